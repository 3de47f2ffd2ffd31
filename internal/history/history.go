// Package history derives the prediction and rule inputs from a device's
// stored telemetry, so callers can ask for advice by device ID alone.
package history

import (
	"context"
	"fmt"
	"time"

	"agri-advisor/internal/apperrors"
	"agri-advisor/internal/models"
	"agri-advisor/internal/rules"
)

const (
	// DefaultLookback bounds how much telemetry is loaded per derivation.
	// It also caps the sustained-condition durations.
	DefaultLookback = 72 * time.Hour

	// LagOffset is the age of the moisture proxy and the end of the rolling window
	LagOffset = 60 * time.Minute

	// RollingWindow is the span of the rolling means
	RollingWindow = 60 * time.Minute
)

// Source supplies a device's readings, oldest first
type Source interface {
	ReadingsSince(ctx context.Context, deviceID string, since time.Time) ([]models.SensorReading, error)
}

// Deriver builds request payloads from stored telemetry
type Deriver struct {
	source     Source
	thresholds rules.Thresholds
	lookback   time.Duration
}

// NewDeriver creates a deriver. Rule thresholds decide which conditions
// count towards the sustained durations.
func NewDeriver(source Source, thresholds rules.Thresholds) *Deriver {
	return &Deriver{
		source:     source,
		thresholds: thresholds,
		lookback:   DefaultLookback,
	}
}

// PredictRequest builds the soil moisture prediction payload for a device
func (d *Deriver) PredictRequest(ctx context.Context, deviceID string, now time.Time) (*models.PredictRequest, error) {
	readings, err := d.load(ctx, deviceID, now)
	if err != nil {
		return nil, err
	}

	aggregates, err := Aggregates(readings, now)
	if err != nil {
		return nil, &apperrors.InsufficientDataError{DeviceID: deviceID, Reason: err.Error()}
	}

	return &models.PredictRequest{
		CurrentData:    Current(readings),
		HistoricalData: aggregates,
	}, nil
}

// RuleSnapshot builds the rule checker input for a device
func (d *Deriver) RuleSnapshot(ctx context.Context, deviceID string, now time.Time) (*models.RuleSnapshot, error) {
	readings, err := d.load(ctx, deviceID, now)
	if err != nil {
		return nil, err
	}
	return Snapshot(readings, d.thresholds), nil
}

func (d *Deriver) load(ctx context.Context, deviceID string, now time.Time) ([]models.SensorReading, error) {
	readings, err := d.source.ReadingsSince(ctx, deviceID, now.Add(-d.lookback))
	if err != nil {
		return nil, fmt.Errorf("failed to load telemetry for %s: %w", deviceID, err)
	}

	// Readings stamped after now (clock skew) are ignored
	n := len(readings)
	for n > 0 && readings[n-1].Timestamp.After(now) {
		n--
	}
	readings = readings[:n]

	if len(readings) == 0 {
		return nil, &apperrors.InsufficientDataError{
			DeviceID: deviceID,
			Reason:   fmt.Sprintf("no readings in the last %v", d.lookback),
		}
	}
	return readings, nil
}

// Current returns the latest reading as live sensor values.
// readings must be non-empty and sorted oldest first.
func Current(readings []models.SensorReading) *models.CurrentData {
	latest := readings[len(readings)-1]
	return &models.CurrentData{
		Temperature:    models.Float(latest.Temperature),
		Humidity:       models.Float(latest.Humidity),
		LightIntensity: models.Float(latest.LightIntensity),
	}
}

// Aggregates computes the lag and rolling features for a window ending at
// now minus LagOffset. The lag values come from the latest reading at or
// before that instant; rolling means cover the RollingWindow before it.
func Aggregates(readings []models.SensorReading, now time.Time) (*models.HistoricalAggregates, error) {
	windowEnd := now.Add(-LagOffset)
	windowStart := windowEnd.Add(-RollingWindow)

	var lag *models.SensorReading
	var soilSum, tempSum, lightSum float64
	var count int

	for i := range readings {
		r := &readings[i]
		if r.Timestamp.After(windowEnd) {
			break
		}
		lag = r
		if r.Timestamp.After(windowStart) {
			soilSum += r.SoilMoisture
			tempSum += r.Temperature
			lightSum += r.LightIntensity
			count++
		}
	}

	if lag == nil {
		return nil, fmt.Errorf("no reading at or before %s", windowEnd.Format(time.RFC3339))
	}
	if count == 0 {
		return nil, fmt.Errorf("no readings between %s and %s",
			windowStart.Format(time.RFC3339), windowEnd.Format(time.RFC3339))
	}

	n := float64(count)
	return &models.HistoricalAggregates{
		SoilMoistureLag60:            models.Float(lag.SoilMoisture),
		TemperatureLag60:             models.Float(lag.Temperature),
		SoilMoistureRollingMean60m:   models.Float(soilSum / n),
		TemperatureRollingMean60m:    models.Float(tempSum / n),
		LightIntensityRollingMean60m: models.Float(lightSum / n),
	}, nil
}

// Snapshot turns the latest reading into a rule snapshot and attaches how
// long each watched condition has held. readings must be non-empty and
// sorted oldest first.
func Snapshot(readings []models.SensorReading, t rules.Thresholds) *models.RuleSnapshot {
	latest := readings[len(readings)-1]

	s := &models.RuleSnapshot{
		Temperature:    models.Float(latest.Temperature),
		Humidity:       models.Float(latest.Humidity),
		SoilMoisture:   models.Float(latest.SoilMoisture),
		LightIntensity: models.Float(latest.LightIntensity),
	}
	if latest.PH > 0 {
		s.PH = models.Float(latest.PH)
	}

	s.DurationHighHumidityHr = models.Float(sustainedHours(readings, func(r *models.SensorReading) bool {
		return r.Humidity > t.Fungus.HumidityAbove
	}))
	s.DurationHighTempHr = models.Float(sustainedHours(readings, func(r *models.SensorReading) bool {
		return r.Temperature > t.Heat.TemperatureAbove
	}))
	s.DurationLowTempHr = models.Float(sustainedHours(readings, func(r *models.SensorReading) bool {
		return r.Temperature < t.Cold.TemperatureBelow
	}))
	s.DurationLowSoilMoistureHr = models.Float(sustainedHours(readings, func(r *models.SensorReading) bool {
		return r.SoilMoisture < t.Drought.SoilMoistureBelow
	}))
	s.DurationHighSoilMoistureHr = models.Float(sustainedHours(readings, func(r *models.SensorReading) bool {
		return r.SoilMoisture > t.Waterlogging.SoilMoistureAbove
	}))
	s.DurationLowLightHr = models.Float(sustainedHours(readings, func(r *models.SensorReading) bool {
		return r.LightIntensity < t.LowLight.LightBelow
	}))

	return s
}

// sustainedHours walks back from the latest reading while cond holds and
// returns the span covered, in hours. Zero when the latest reading fails cond.
func sustainedHours(readings []models.SensorReading, cond func(*models.SensorReading) bool) float64 {
	last := len(readings) - 1
	if last < 0 || !cond(&readings[last]) {
		return 0
	}

	first := last
	for first > 0 && cond(&readings[first-1]) {
		first--
	}
	return readings[last].Timestamp.Sub(readings[first].Timestamp).Hours()
}
