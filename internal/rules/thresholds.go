package rules

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Thresholds holds the trigger values of every built-in rule.
// Durations are in hours.
type Thresholds struct {
	Fungus struct {
		HumidityAbove  float64 `yaml:"humidity_above"`
		TemperatureMin float64 `yaml:"temperature_min"`
		TemperatureMax float64 `yaml:"temperature_max"`
		DurationHr     float64 `yaml:"duration_hr"`
	} `yaml:"fungus_risk"`

	Heat struct {
		TemperatureAbove float64 `yaml:"temperature_above"`
		DurationHr       float64 `yaml:"duration_hr"`
	} `yaml:"heat_stress"`

	Drought struct {
		SoilMoistureBelow float64 `yaml:"soil_moisture_below"`
		DurationHr        float64 `yaml:"duration_hr"`
	} `yaml:"drought_stress"`

	Waterlogging struct {
		SoilMoistureAbove float64 `yaml:"soil_moisture_above"`
		DurationHr        float64 `yaml:"duration_hr"`
	} `yaml:"waterlogging"`

	Cold struct {
		TemperatureBelow float64 `yaml:"temperature_below"`
		DurationHr       float64 `yaml:"duration_hr"`
	} `yaml:"cold_stress"`

	LowLight struct {
		LightBelow float64 `yaml:"light_below"`
		DurationHr float64 `yaml:"duration_hr"`
	} `yaml:"low_light"`

	SoilPH struct {
		Min float64 `yaml:"min"`
		Max float64 `yaml:"max"`
	} `yaml:"soil_ph"`
}

// DefaultThresholds returns the agronomic defaults
func DefaultThresholds() Thresholds {
	var t Thresholds

	t.Fungus.HumidityAbove = 85
	t.Fungus.TemperatureMin = 20
	t.Fungus.TemperatureMax = 28
	t.Fungus.DurationHr = 48

	t.Heat.TemperatureAbove = 38
	t.Heat.DurationHr = 4

	t.Drought.SoilMoistureBelow = 20
	t.Drought.DurationHr = 6

	t.Waterlogging.SoilMoistureAbove = 90
	t.Waterlogging.DurationHr = 24

	t.Cold.TemperatureBelow = 10
	t.Cold.DurationHr = 3

	t.LowLight.LightBelow = 5000
	t.LowLight.DurationHr = 8

	t.SoilPH.Min = 5.5
	t.SoilPH.Max = 7.5

	return t
}

// LoadThresholds reads a YAML override file on top of the defaults.
// An empty path returns the defaults.
func LoadThresholds(path string) (Thresholds, error) {
	t := DefaultThresholds()
	if path == "" {
		return t, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return t, fmt.Errorf("failed to read rules config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &t); err != nil {
		return t, fmt.Errorf("failed to parse rules config %s: %w", path, err)
	}

	if err := t.Validate(); err != nil {
		return t, fmt.Errorf("invalid rules config %s: %w", path, err)
	}
	return t, nil
}

// Validate checks that ranges are well formed
func (t Thresholds) Validate() error {
	if t.Fungus.TemperatureMin > t.Fungus.TemperatureMax {
		return fmt.Errorf("fungus_risk: temperature_min %.2f exceeds temperature_max %.2f",
			t.Fungus.TemperatureMin, t.Fungus.TemperatureMax)
	}
	if t.SoilPH.Min > t.SoilPH.Max {
		return fmt.Errorf("soil_ph: min %.2f exceeds max %.2f", t.SoilPH.Min, t.SoilPH.Max)
	}

	durations := map[string]float64{
		"fungus_risk":    t.Fungus.DurationHr,
		"heat_stress":    t.Heat.DurationHr,
		"drought_stress": t.Drought.DurationHr,
		"waterlogging":   t.Waterlogging.DurationHr,
		"cold_stress":    t.Cold.DurationHr,
		"low_light":      t.LowLight.DurationHr,
	}
	for name, d := range durations {
		if d < 0 {
			return fmt.Errorf("%s: duration_hr must not be negative", name)
		}
	}
	return nil
}
