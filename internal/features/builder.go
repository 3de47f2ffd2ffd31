package features

import (
	"time"

	"agri-advisor/internal/models"
)

// Feature names understood by the soil moisture model
const (
	SoilMoisture              = "soilMoisture"
	Temperature               = "temperature"
	Humidity                  = "humidity"
	LightIntensity            = "lightIntensity"
	SoilMoistureLag10         = "soilMoisture_lag_10"
	SoilMoistureLag30         = "soilMoisture_lag_30"
	SoilMoistureLag60         = "soilMoisture_lag_60"
	TemperatureLag10          = "temperature_lag_10"
	TemperatureLag30          = "temperature_lag_30"
	TemperatureLag60          = "temperature_lag_60"
	SoilMoistureRollingMean   = "soilMoisture_rolling_mean"
	TemperatureRollingMean    = "temperature_rolling_mean"
	LightIntensityRollingMean = "lightIntensity_rolling_mean"
	Hour                      = "hour"
	DayOfWeek                 = "dayofweek"
)

// TrainingOrder is the column order used when the model was fitted
var TrainingOrder = []string{
	SoilMoisture,
	Temperature, Humidity, LightIntensity,
	SoilMoistureLag10, SoilMoistureLag30, SoilMoistureLag60,
	TemperatureLag10, TemperatureLag30, TemperatureLag60,
	SoilMoistureRollingMean, TemperatureRollingMean, LightIntensityRollingMean,
	Hour, DayOfWeek,
}

// ProxyMoisture is the stand-in for the present soil moisture: the reading
// from 60 minutes ago. The request must have been validated.
func ProxyMoisture(req *models.PredictRequest) float64 {
	return *req.HistoricalData.SoilMoistureLag60
}

// Build derives the model input from current readings and historical aggregates.
// now supplies the hour and day-of-week features.
func Build(req *models.PredictRequest, now time.Time) (*Vector, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	current := req.CurrentData
	historical := req.HistoricalData

	proxy := ProxyMoisture(req)
	soilLag60 := *historical.SoilMoistureLag60
	tempLag60 := *historical.TemperatureLag60
	temperature := *current.Temperature

	v := NewVector()
	v.Set(SoilMoisture, proxy)
	v.Set(Temperature, temperature)
	v.Set(Humidity, *current.Humidity)
	v.Set(LightIntensity, *current.LightIntensity)

	v.Set(SoilMoistureLag60, soilLag60)
	v.Set(TemperatureLag60, tempLag60)
	// lag_60 and proxy are the same reading; the model was trained against
	// exactly this interpolation, so it is kept as is.
	v.Set(SoilMoistureLag30, (soilLag60+proxy)/2)
	v.Set(SoilMoistureLag10, (soilLag60+proxy*2)/3)
	v.Set(TemperatureLag30, (tempLag60+temperature)/2)
	v.Set(TemperatureLag10, (tempLag60+temperature*2)/3)

	v.Set(SoilMoistureRollingMean, *historical.SoilMoistureRollingMean60m)
	v.Set(TemperatureRollingMean, *historical.TemperatureRollingMean60m)
	v.Set(LightIntensityRollingMean, *historical.LightIntensityRollingMean60m)

	v.Set(Hour, float64(now.Hour()))
	v.Set(DayOfWeek, float64(DayOfWeekIndex(now)))

	return v, nil
}

// DayOfWeekIndex returns Monday=0 ... Sunday=6
func DayOfWeekIndex(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}
