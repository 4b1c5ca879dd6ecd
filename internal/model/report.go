package model

import "time"

// ReportStatus tracks a report through police and insurance review.
type ReportStatus string

const (
	StatusSubmitted   ReportStatus = "submitted"
	StatusUnderReview ReportStatus = "under_review"
	StatusCompleted   ReportStatus = "completed"
)

// Photo is a persisted photo reference returned by the backend of record.
// The portal never parses the serving path; it only joins a known base
// with Filename.
type Photo struct {
	ID         int64     `json:"id"`
	Filename   string    `json:"filename"`
	Caption    string    `json:"description"`
	UploadedAt time.Time `json:"uploaded_at"`
}

// Report is the persisted accident record owned by the backend of record.
type Report struct {
	ID        int64        `json:"id"`
	UserID    int64        `json:"user_id"`
	Status    ReportStatus `json:"status"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`

	AccidentDate     time.Time `json:"accident_date"`
	AccidentLocation string    `json:"accident_location"`
	WeatherCondition string    `json:"weather_condition"`
	RoadCondition    string    `json:"road_condition"`
	TrafficCondition string    `json:"traffic_condition"`

	VehicleMake  string `json:"vehicle_make"`
	VehicleModel string `json:"vehicle_model"`
	VehicleYear  int    `json:"vehicle_year"`
	VehiclePlate string `json:"vehicle_plate"`
	VehicleColor string `json:"vehicle_color"`

	IncidentDescription string `json:"incident_description"`
	DamageDescription   string `json:"damage_description"`
	InjuriesDescription string `json:"injuries_description,omitempty"`

	OtherPartyName    string `json:"other_party_name,omitempty"`
	OtherPartyIC      string `json:"other_party_ic,omitempty"`
	OtherPartyPhone   string `json:"other_party_phone,omitempty"`
	OtherPartyVehicle string `json:"other_party_vehicle,omitempty"`

	Photos          []Photo          `json:"photos"`
	PoliceStatement *PoliceStatement `json:"pdrm_statement,omitempty"`
	ClaimAnalysis   *ClaimAnalysis   `json:"insurance_analysis,omitempty"`
}

// HasAnalysis reports whether a claim analysis has been attached.
func (r *Report) HasAnalysis() bool {
	return r.ClaimAnalysis != nil
}
