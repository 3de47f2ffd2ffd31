package models

import "time"

// Advisory is the periodic per-device recommendation derived from stored
// telemetry: the irrigation outlook plus any rule warnings.
type Advisory struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"-"`
	Timestamp time.Time `gorm:"index:idx_advisory_device_time,priority:2;not null" json:"timestamp"`
	DeviceID  string    `gorm:"index:idx_advisory_device_time,priority:1;not null;size:64" json:"deviceId"`

	Action                string  `gorm:"size:32" json:"action"`
	PredictedSoilMoisture float64 `json:"predicted_soil_moisture_in_3h"`
	PredictedDelta        float64 `json:"predicted_delta"`
	Suggestion            string  `json:"suggestion"`
	WeatherInfo           string  `json:"weather_info"`

	RuleStatus   string    `gorm:"size:16" json:"rule_status"`
	WarningCodes string    `json:"-"` // comma separated, storage only
	Warnings     []Warning `gorm:"-" json:"warnings,omitempty"`

	TriggerReason string `gorm:"size:64" json:"trigger_reason"`
}

// TableName customizes the table name
func (Advisory) TableName() string {
	return "advisory_history"
}
