package history

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"agri-advisor/internal/apperrors"
	"agri-advisor/internal/models"
	"agri-advisor/internal/rules"
)

var now = time.Date(2024, 5, 15, 14, 0, 0, 0, time.UTC)

// series returns one reading every step, ending at end, built by gen
func series(end time.Time, step time.Duration, count int, gen func(i int) models.SensorReading) []models.SensorReading {
	readings := make([]models.SensorReading, count)
	for i := 0; i < count; i++ {
		r := gen(i)
		r.DeviceID = "SOIL-001"
		r.Timestamp = end.Add(-time.Duration(count-1-i) * step)
		readings[i] = r
	}
	return readings
}

func approx(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestAggregates(t *testing.T) {
	// Every 10 minutes over the last 3 hours; soil moisture drops 1 point per reading
	readings := series(now, 10*time.Minute, 19, func(i int) models.SensorReading {
		return models.SensorReading{
			SoilMoisture:   float64(60 - i),
			Temperature:    20 + float64(i)*0.5,
			LightIntensity: 1000 * float64(i),
		}
	})

	agg, err := Aggregates(readings, now)
	if err != nil {
		t.Fatalf("Aggregates failed: %v", err)
	}

	// now-60m is index 12; the rolling window (now-120m, now-60m] holds indices 7..12
	if *agg.SoilMoistureLag60 != 48 {
		t.Errorf("Expected lag 48, got %v", *agg.SoilMoistureLag60)
	}
	if *agg.TemperatureLag60 != 26 {
		t.Errorf("Expected temperature lag 26, got %v", *agg.TemperatureLag60)
	}
	if !approx(*agg.SoilMoistureRollingMean60m, 50.5) {
		t.Errorf("Expected rolling mean 50.5, got %v", *agg.SoilMoistureRollingMean60m)
	}
	if !approx(*agg.TemperatureRollingMean60m, 24.75) {
		t.Errorf("Expected temperature mean 24.75, got %v", *agg.TemperatureRollingMean60m)
	}
	if !approx(*agg.LightIntensityRollingMean60m, 9500) {
		t.Errorf("Expected light mean 9500, got %v", *agg.LightIntensityRollingMean60m)
	}

	current := Current(readings)
	if *current.Temperature != 29 || *current.LightIntensity != 18000 {
		t.Errorf("Unexpected current data %+v", current)
	}
}

func TestAggregatesInsufficientHistory(t *testing.T) {
	recent := series(now, 10*time.Minute, 5, func(i int) models.SensorReading {
		return models.SensorReading{SoilMoisture: 40}
	})
	if _, err := Aggregates(recent, now); err == nil {
		t.Error("Expected error when no reading precedes the lag instant")
	}

	// A single old reading gives a lag but an empty rolling window
	old := series(now.Add(-3*time.Hour), time.Minute, 1, func(i int) models.SensorReading {
		return models.SensorReading{SoilMoisture: 40}
	})
	if _, err := Aggregates(old, now); err == nil {
		t.Error("Expected error for empty rolling window")
	}
}

func TestSnapshotDurations(t *testing.T) {
	th := rules.DefaultThresholds()

	// Hourly readings over 60 hours: humid for the last 50, hot for the last 5
	readings := series(now, time.Hour, 61, func(i int) models.SensorReading {
		r := models.SensorReading{Temperature: 25, Humidity: 60, SoilMoisture: 50, LightIntensity: 20000, PH: 6.5}
		if i >= 10 {
			r.Humidity = 90
		}
		if i >= 55 {
			r.Temperature = 40
		}
		return r
	})

	s := Snapshot(readings, th)

	if *s.DurationHighHumidityHr != 50 {
		t.Errorf("Expected 50h of high humidity, got %v", *s.DurationHighHumidityHr)
	}
	if *s.DurationHighTempHr != 5 {
		t.Errorf("Expected 5h of high temperature, got %v", *s.DurationHighTempHr)
	}
	if *s.DurationLowTempHr != 0 || *s.DurationLowSoilMoistureHr != 0 {
		t.Errorf("Conditions not holding should report 0")
	}
	if *s.Temperature != 40 || *s.PH != 6.5 {
		t.Errorf("Unexpected snapshot values %+v", s)
	}

	resp, err := rules.NewDefaultChecker(th).Check(s)
	if err != nil {
		t.Fatalf("Check failed: %v", err)
	}
	if len(resp.Warnings) != 1 || resp.Warnings[0].WarningCode != rules.CodeHeatStress {
		t.Errorf("Expected heat stress only, got %+v", resp.Warnings)
	}
}

func TestSnapshotWithoutPH(t *testing.T) {
	readings := series(now, time.Minute, 1, func(i int) models.SensorReading {
		return models.SensorReading{Temperature: 25, Humidity: 60}
	})
	if s := Snapshot(readings, rules.DefaultThresholds()); s.PH != nil {
		t.Errorf("Expected no pH, got %v", *s.PH)
	}
}

type fakeSource struct {
	readings []models.SensorReading
	err      error
	since    time.Time
}

func (f *fakeSource) ReadingsSince(ctx context.Context, deviceID string, since time.Time) ([]models.SensorReading, error) {
	f.since = since
	return f.readings, f.err
}

func TestDeriverPredictRequest(t *testing.T) {
	readings := series(now, 10*time.Minute, 19, func(i int) models.SensorReading {
		return models.SensorReading{SoilMoisture: 40, Temperature: 25, Humidity: 70, LightIntensity: 10000}
	})
	// A reading from the future is ignored
	readings = append(readings, models.SensorReading{Timestamp: now.Add(time.Minute), Temperature: 99})
	src := &fakeSource{readings: readings}

	req, err := NewDeriver(src, rules.DefaultThresholds()).PredictRequest(context.Background(), "SOIL-001", now)
	if err != nil {
		t.Fatalf("PredictRequest failed: %v", err)
	}
	if err := req.Validate(); err != nil {
		t.Errorf("Derived request should be complete: %v", err)
	}
	if *req.CurrentData.Temperature != 25 {
		t.Errorf("Future reading should be ignored, got temperature %v", *req.CurrentData.Temperature)
	}
	if !src.since.Equal(now.Add(-DefaultLookback)) {
		t.Errorf("Unexpected lookback start %v", src.since)
	}
}

func TestDeriverErrors(t *testing.T) {
	d := NewDeriver(&fakeSource{}, rules.DefaultThresholds())

	_, err := d.RuleSnapshot(context.Background(), "SOIL-404", now)
	var insufficient *apperrors.InsufficientDataError
	if !errors.As(err, &insufficient) {
		t.Errorf("Expected InsufficientDataError, got %v", err)
	}

	recent := series(now, time.Minute, 3, func(i int) models.SensorReading { return models.SensorReading{} })
	d = NewDeriver(&fakeSource{readings: recent}, rules.DefaultThresholds())
	if _, err := d.PredictRequest(context.Background(), "SOIL-001", now); !errors.As(err, &insufficient) {
		t.Errorf("Expected InsufficientDataError, got %v", err)
	}

	boom := errors.New("connection refused")
	d = NewDeriver(&fakeSource{err: boom}, rules.DefaultThresholds())
	if _, err := d.PredictRequest(context.Background(), "SOIL-001", now); !errors.Is(err, boom) {
		t.Errorf("Expected store error, got %v", err)
	}
}
