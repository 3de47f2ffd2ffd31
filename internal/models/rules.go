package models

import "agri-advisor/internal/apperrors"

// Rule check status values
const (
	StatusOK      = "OK"
	StatusWarning = "WARNING"
)

// Risk levels
const (
	RiskLow    = "LOW"
	RiskMedium = "MEDIUM"
	RiskHigh   = "HIGH"
)

// RuleSnapshot is the flat reading evaluated by the rule checker. Duration
// fields are derived by the caller (hours a condition has held continuously).
type RuleSnapshot struct {
	Temperature    *float64 `json:"temperature"`
	Humidity       *float64 `json:"humidity"`
	SoilMoisture   *float64 `json:"soilMoisture,omitempty"`
	LightIntensity *float64 `json:"lightIntensity,omitempty"`
	PH             *float64 `json:"ph,omitempty"`

	DurationHighHumidityHr     *float64 `json:"duration_high_humidity_hr,omitempty"`
	DurationHighTempHr         *float64 `json:"duration_high_temp_hr,omitempty"`
	DurationLowTempHr          *float64 `json:"duration_low_temp_hr,omitempty"`
	DurationLowSoilMoistureHr  *float64 `json:"duration_low_soil_moisture_hr,omitempty"`
	DurationHighSoilMoistureHr *float64 `json:"duration_high_soil_moisture_hr,omitempty"`
	DurationLowLightHr         *float64 `json:"duration_low_light_hr,omitempty"`
}

// Validate checks the required snapshot fields
func (s *RuleSnapshot) Validate() error {
	if s.Temperature == nil {
		return &apperrors.MissingFieldError{Field: "temperature"}
	}
	if s.Humidity == nil {
		return &apperrors.MissingFieldError{Field: "humidity"}
	}
	return nil
}

// Warning is produced by a rule that matched
type Warning struct {
	RiskLevel   string `json:"risk_level"`
	WarningCode string `json:"warning_code"`
	Message     string `json:"message"`
	Suggestion  string `json:"suggestion"`
}

// RuleCheckResponse is returned by POST /check_rules
type RuleCheckResponse struct {
	Status   string    `json:"status"`
	Message  string    `json:"message,omitempty"`
	Warnings []Warning `json:"warnings,omitempty"`
}
