package models

import "time"

// Sensor types published by the field devices
const (
	SensorTypeSoilMoisture           = "SOIL_MOISTURE"
	SensorTypeAirHumidityTemperature = "AIR_HUMIDITY_TEMPERATURE"
	SensorTypeLightIntensity         = "LIGHT_INTENSITY"
)

// SensorReading is one telemetry sample from a field device. Immutable once recorded.
type SensorReading struct {
	ID             uint      `gorm:"primaryKey;autoIncrement" json:"-"`
	Timestamp      time.Time `gorm:"index:idx_device_time,priority:2;not null" json:"timestamp"`
	DeviceID       string    `gorm:"index:idx_device_time,priority:1;not null;size:64" json:"deviceId"`
	SensorType     string    `gorm:"size:64" json:"sensorType"`
	Temperature    float64   `json:"temperature"`    // Celsius
	Humidity       float64   `json:"humidity"`       // Air humidity, percentage 0-100
	SoilMoisture   float64   `json:"soilMoisture"`   // Percentage 0-100
	LightIntensity float64   `json:"lightIntensity"` // Lux
	PH             float64   `gorm:"column:ph" json:"ph"`
}

// TableName customizes the table name
func (SensorReading) TableName() string {
	return "sensor_readings"
}

// TelemetryPayload is the MQTT message published on sensor/{deviceId}/data.
// Timestamp is kept as a string since simulators emit ISO-8601 without a zone.
type TelemetryPayload struct {
	DeviceID       string  `json:"deviceId"`
	SensorType     string  `json:"sensorType"`
	Temperature    float64 `json:"temperature"`
	Humidity       float64 `json:"humidity"`
	SoilMoisture   float64 `json:"soilMoisture"`
	LightIntensity float64 `json:"lightIntensity"`
	PH             float64 `json:"ph"`
	Timestamp      string  `json:"timestamp"`
}

// Device represents an IoT device in the system
type Device struct {
	DeviceID     string    `gorm:"primaryKey;size:64" json:"device_id"`
	SensorType   string    `gorm:"size:64" json:"sensor_type"`
	RegisteredAt time.Time `json:"registered_at"`
	LastSeen     time.Time `json:"last_seen"`
}

// TableName customizes the table name
func (Device) TableName() string {
	return "device_registry"
}

// GetAllModels returns all models for migration
func GetAllModels() []interface{} {
	return []interface{}{
		&SensorReading{},
		&Device{},
		&Advisory{},
	}
}
