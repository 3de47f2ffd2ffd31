package models

import (
	"agri-advisor/internal/apperrors"
)

// Irrigation actions
const (
	ActionNone               = "NONE"
	ActionScheduleIrrigation = "SCHEDULE_IRRIGATION"
	ActionSkipIrrigation     = "SKIP_IRRIGATION"
)

// CurrentData holds the live sensor values sent with a prediction request.
// Fields are pointers so that an absent key can be told apart from zero.
type CurrentData struct {
	Temperature    *float64 `json:"temperature"`
	Humidity       *float64 `json:"humidity"`
	LightIntensity *float64 `json:"lightIntensity"`
}

// HistoricalAggregates are precomputed by the caller over a window ending
// at now minus 60 minutes.
type HistoricalAggregates struct {
	SoilMoistureLag60            *float64 `json:"soilMoisture_lag_60"`
	TemperatureLag60             *float64 `json:"temperature_lag_60"`
	SoilMoistureRollingMean60m   *float64 `json:"soilMoisture_rolling_mean_60m"`
	TemperatureRollingMean60m    *float64 `json:"temperature_rolling_mean_60m"`
	LightIntensityRollingMean60m *float64 `json:"lightIntensity_rolling_mean_60m"`
}

// PredictRequest is the body of POST /predict/soil_moisture
type PredictRequest struct {
	CurrentData    *CurrentData          `json:"current_data"`
	HistoricalData *HistoricalAggregates `json:"historical_data"`
}

// Validate checks that every required key is present
func (r *PredictRequest) Validate() error {
	if r.CurrentData == nil {
		return &apperrors.MissingFieldError{Field: "current_data"}
	}
	if r.HistoricalData == nil {
		return &apperrors.MissingFieldError{Field: "historical_data"}
	}

	required := []struct {
		name  string
		value *float64
	}{
		{"current_data.temperature", r.CurrentData.Temperature},
		{"current_data.humidity", r.CurrentData.Humidity},
		{"current_data.lightIntensity", r.CurrentData.LightIntensity},
		{"historical_data.soilMoisture_lag_60", r.HistoricalData.SoilMoistureLag60},
		{"historical_data.temperature_lag_60", r.HistoricalData.TemperatureLag60},
		{"historical_data.soilMoisture_rolling_mean_60m", r.HistoricalData.SoilMoistureRollingMean60m},
		{"historical_data.temperature_rolling_mean_60m", r.HistoricalData.TemperatureRollingMean60m},
		{"historical_data.lightIntensity_rolling_mean_60m", r.HistoricalData.LightIntensityRollingMean60m},
	}
	for _, f := range required {
		if f.value == nil {
			return &apperrors.MissingFieldError{Field: f.name}
		}
	}
	return nil
}

// PredictResponse is returned by the soil moisture prediction endpoint
type PredictResponse struct {
	PredictedSoilMoistureIn3h float64 `json:"predicted_soil_moisture_in_3h"`
	PredictedDelta            float64 `json:"predicted_delta"`
	Suggestion                string  `json:"suggestion"`
	Action                    string  `json:"action"`
	WeatherInfo               string  `json:"weather_info"`
}

// Prediction is the model output combined with the moisture proxy
type Prediction struct {
	Delta             float64
	PredictedMoisture float64
}

// WeatherSignal summarizes the short-term rain forecast
type WeatherSignal struct {
	RainMM       float64 `json:"rain_mm"`
	WillRainSoon bool    `json:"will_rain_soon"`
}

// Decision is the fused irrigation recommendation
type Decision struct {
	Action     string `json:"action"`
	Suggestion string `json:"suggestion"`
}

// Float returns a pointer to v, handy for building requests
func Float(v float64) *float64 {
	return &v
}
