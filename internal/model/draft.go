package model

import "time"

// Enumerations offered by the wizard's condition selectors. The backend
// of record stores them as free text, so the portal validates membership
// only at the input boundary.
var (
	WeatherConditions = []string{"clear", "rainy", "foggy", "cloudy"}
	RoadConditions    = []string{"dry", "wet", "icy", "under_construction"}
	TrafficConditions = []string{"light", "moderate", "heavy", "stationary"}
)

// ReportDraft is the mutable, pre-persistence form state owned by an
// active wizard session. AccidentDate stays in the wizard's local
// "2006-01-02T15:04" shape until submission normalizes it.
type ReportDraft struct {
	AccidentDate     string `json:"accident_date"`
	AccidentLocation string `json:"accident_location"`
	WeatherCondition string `json:"weather_condition"`
	RoadCondition    string `json:"road_condition"`
	TrafficCondition string `json:"traffic_condition"`

	VehicleMake  string `json:"vehicle_make"`
	VehicleModel string `json:"vehicle_model"`
	VehicleYear  int    `json:"vehicle_year"`
	VehiclePlate string `json:"vehicle_plate"`
	VehicleColor string `json:"vehicle_color"`

	IncidentDescription string `json:"incident_description"`
	DamageDescription   string `json:"damage_description"`
	InjuriesDescription string `json:"injuries_description"`

	OtherPartyName    string `json:"other_party_name"`
	OtherPartyIC      string `json:"other_party_ic"`
	OtherPartyPhone   string `json:"other_party_phone"`
	OtherPartyVehicle string `json:"other_party_vehicle"`
}

// NewReportDraft returns a draft with the wizard's defaults filled in.
func NewReportDraft() ReportDraft {
	return ReportDraft{
		WeatherCondition: "clear",
		RoadCondition:    "dry",
		TrafficCondition: "light",
		VehicleYear:      time.Now().Year(),
	}
}

// NormalizedReport is the create-report payload after normalization:
// the accident date converted to an absolute timestamp and the vehicle
// year carried as an integer.
type NormalizedReport struct {
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
}
