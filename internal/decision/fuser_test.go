package decision

import (
	"strings"
	"testing"

	"agri-advisor/internal/models"
)

func TestFuseRainAlwaysWins(t *testing.T) {
	rain := models.WeatherSignal{RainMM: 3.5, WillRainSoon: true}

	for _, moisture := range []float64{-10, 0, 12.5, 29.99, 30, 55, 100} {
		d := Fuse(moisture, rain, DefaultPolicy())
		if d.Action != models.ActionSkipIrrigation {
			t.Errorf("moisture=%v: expected %s, got %s", moisture, models.ActionSkipIrrigation, d.Action)
		}
		if !strings.Contains(d.Suggestion, "3.5mm") {
			t.Errorf("Suggestion should mention rain amount, got %q", d.Suggestion)
		}
	}
}

func TestFuseWithoutRain(t *testing.T) {
	tests := []struct {
		moisture float64
		want     string
	}{
		{27.0, models.ActionScheduleIrrigation},
		{29.999999, models.ActionScheduleIrrigation},
		{0, models.ActionScheduleIrrigation},
		{30.0, models.ActionNone},
		{30.000001, models.ActionNone},
		{75, models.ActionNone},
	}

	for _, tt := range tests {
		d := Fuse(tt.moisture, models.WeatherSignal{}, DefaultPolicy())
		if d.Action != tt.want {
			t.Errorf("moisture=%v: expected %s, got %s", tt.moisture, tt.want, d.Action)
		}
	}
}

func TestFuseCustomThreshold(t *testing.T) {
	d := Fuse(35, models.WeatherSignal{}, Policy{LowThreshold: 40})
	if d.Action != models.ActionScheduleIrrigation {
		t.Errorf("Expected %s, got %s", models.ActionScheduleIrrigation, d.Action)
	}
	if !strings.Contains(d.Suggestion, "40%") {
		t.Errorf("Suggestion should mention threshold, got %q", d.Suggestion)
	}
}

func TestWeatherInfo(t *testing.T) {
	if got := WeatherInfo(models.WeatherSignal{}); got != "Rain forecast (0mm), Raining soon: false" {
		t.Errorf("Unexpected weather info %q", got)
	}
	got := WeatherInfo(models.WeatherSignal{RainMM: 4.25, WillRainSoon: true})
	if got != "Rain forecast (4.25mm), Raining soon: true" {
		t.Errorf("Unexpected weather info %q", got)
	}
}
