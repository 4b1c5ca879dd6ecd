package wizard

import (
	"sync"

	"github.com/accidentlink/portal/internal/model"
)

// stepIncompleteMessage is the single user-facing message shown when a
// forward step is gated.
const stepIncompleteMessage = "please fill in all required fields for this step"

// DraftPatch is a partial field update; nil fields are left untouched.
type DraftPatch struct {
	AccidentDate     *string `json:"accident_date"`
	AccidentLocation *string `json:"accident_location"`
	WeatherCondition *string `json:"weather_condition"`
	RoadCondition    *string `json:"road_condition"`
	TrafficCondition *string `json:"traffic_condition"`

	VehicleMake  *string `json:"vehicle_make"`
	VehicleModel *string `json:"vehicle_model"`
	VehicleYear  *int    `json:"vehicle_year"`
	VehiclePlate *string `json:"vehicle_plate"`
	VehicleColor *string `json:"vehicle_color"`

	IncidentDescription *string `json:"incident_description"`
	DamageDescription   *string `json:"damage_description"`
	InjuriesDescription *string `json:"injuries_description"`

	OtherPartyName    *string `json:"other_party_name"`
	OtherPartyIC      *string `json:"other_party_ic"`
	OtherPartyPhone   *string `json:"other_party_phone"`
	OtherPartyVehicle *string `json:"other_party_vehicle"`
}

// DraftStore holds the in-progress field values, the current step and
// the pending validation message for one wizard session. Safe for
// concurrent use; Draft returns a value copy, so a field edit landing
// while a submission is in flight cannot tear the payload being built.
type DraftStore struct {
	mu      sync.Mutex
	draft   model.ReportDraft
	step    int
	message string
}

func NewDraftStore() *DraftStore {
	return &DraftStore{
		draft: model.NewReportDraft(),
		step:  StepAccident,
	}
}

// Draft returns a copy of the current field values.
func (s *DraftStore) Draft() model.ReportDraft {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.draft
}

func (s *DraftStore) Step() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.step
}

// Message returns the pending validation message, empty when none.
func (s *DraftStore) Message() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.message
}

// Apply merges a partial update into the draft. A new user action
// clears any previous validation message.
func (s *DraftStore) Apply(patch DraftPatch) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.message = ""

	setString(&s.draft.AccidentDate, patch.AccidentDate)
	setString(&s.draft.AccidentLocation, patch.AccidentLocation)
	setString(&s.draft.WeatherCondition, patch.WeatherCondition)
	setString(&s.draft.RoadCondition, patch.RoadCondition)
	setString(&s.draft.TrafficCondition, patch.TrafficCondition)

	setString(&s.draft.VehicleMake, patch.VehicleMake)
	setString(&s.draft.VehicleModel, patch.VehicleModel)
	setString(&s.draft.VehiclePlate, patch.VehiclePlate)
	setString(&s.draft.VehicleColor, patch.VehicleColor)
	if patch.VehicleYear != nil {
		s.draft.VehicleYear = *patch.VehicleYear
	}

	setString(&s.draft.IncidentDescription, patch.IncidentDescription)
	setString(&s.draft.DamageDescription, patch.DamageDescription)
	setString(&s.draft.InjuriesDescription, patch.InjuriesDescription)

	setString(&s.draft.OtherPartyName, patch.OtherPartyName)
	setString(&s.draft.OtherPartyIC, patch.OtherPartyIC)
	setString(&s.draft.OtherPartyPhone, patch.OtherPartyPhone)
	setString(&s.draft.OtherPartyVehicle, patch.OtherPartyVehicle)
}

// Next advances to the following step if the current one is complete.
// On failure it records the single validation message, does not move
// and leaves the draft untouched.
func (s *DraftStore) Next() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.step >= FinalStep {
		return false
	}
	if !IsStepComplete(s.step, s.draft) {
		s.message = stepIncompleteMessage
		return false
	}
	s.step++
	s.message = ""
	return true
}

// Prev moves back one step. Always permitted; clears any pending
// validation message.
func (s *DraftStore) Prev() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.step > StepAccident {
		s.step--
	}
	s.message = ""
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}
