package wizard

import (
	"strings"
	"time"

	"github.com/accidentlink/portal/internal/model"
)

// Wizard steps. Steps 3 and 4 carry only optional content and never
// gate forward navigation.
const (
	StepAccident = 1
	StepVehicle  = 2
	StepExtras   = 3
	StepReview   = 4

	FinalStep = StepReview
)

const minVehicleYear = 1900

// IsStepComplete reports whether the draft satisfies the given step's
// required fields. Pure; looks only at the named step so step 1 can be
// judged independently of later steps.
func IsStepComplete(step int, draft model.ReportDraft) bool {
	switch step {
	case StepAccident:
		return filled(draft.AccidentDate) &&
			filled(draft.AccidentLocation) &&
			filled(draft.IncidentDescription) &&
			filled(draft.DamageDescription)
	case StepVehicle:
		return filled(draft.VehicleMake) &&
			filled(draft.VehicleModel) &&
			filled(draft.VehiclePlate) &&
			filled(draft.VehicleColor) &&
			yearInRange(draft.VehicleYear)
	default:
		return true
	}
}

func filled(s string) bool {
	return strings.TrimSpace(s) != ""
}

func yearInRange(year int) bool {
	return year >= minVehicleYear && year <= time.Now().Year()+1
}
