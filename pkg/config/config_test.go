package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("SOIL_MOISTURE_THRESHOLD_LOW", "")
	t.Setenv("RAIN_THRESHOLD_MM", "")
	t.Setenv("WEATHER_TIMEOUT", "")
	t.Setenv("STORAGE_DRIVER", "")
	t.Setenv("MQTT_TOPIC_ADVISORY", "")
	t.Setenv("ADVISORY_ENABLED", "")
	t.Setenv("ADVISORY_INTERVAL", "")
	t.Setenv("CLASSIFIER_MAX_PIXELS", "")

	cfg := Load()

	if cfg.SoilMoistureThresholdLow != 30.0 {
		t.Errorf("Expected low threshold 30.0, got %v", cfg.SoilMoistureThresholdLow)
	}
	if cfg.RainThresholdMM != 2.0 {
		t.Errorf("Expected rain threshold 2.0, got %v", cfg.RainThresholdMM)
	}
	if cfg.WeatherTimeout != 5*time.Second {
		t.Errorf("Expected weather timeout 5s, got %v", cfg.WeatherTimeout)
	}
	if cfg.StorageEnabled() {
		t.Error("Storage should be disabled by default")
	}
	if cfg.MQTTTopicAdvisory != "advisory/{device_id}" {
		t.Errorf("Unexpected advisory topic %s", cfg.MQTTTopicAdvisory)
	}
	if !cfg.AdvisoryEnabled || cfg.AdvisoryInterval != 10*time.Minute {
		t.Errorf("Unexpected advisory settings %v %v", cfg.AdvisoryEnabled, cfg.AdvisoryInterval)
	}
	if cfg.ClassifierMaxPixels != 40_000_000 {
		t.Errorf("Expected 40MP pixel budget, got %d", cfg.ClassifierMaxPixels)
	}
}

func TestLoadExplicitZeroThreshold(t *testing.T) {
	t.Setenv("SOIL_MOISTURE_THRESHOLD_LOW", "0")

	if cfg := Load(); cfg.SoilMoistureThresholdLow != 0 {
		t.Errorf("Explicit 0 threshold should be kept, got %v", cfg.SoilMoistureThresholdLow)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("SOIL_MOISTURE_THRESHOLD_LOW", "25.5")
	t.Setenv("WEATHER_TIMEOUT", "2s")
	t.Setenv("STORAGE_DRIVER", "sqlite")
	t.Setenv("MQTT_ENABLED", "true")
	t.Setenv("CLASSIFIER_INPUT_SIZE", "128")

	cfg := Load()

	if cfg.SoilMoistureThresholdLow != 25.5 {
		t.Errorf("Expected low threshold 25.5, got %v", cfg.SoilMoistureThresholdLow)
	}
	if cfg.WeatherTimeout != 2*time.Second {
		t.Errorf("Expected weather timeout 2s, got %v", cfg.WeatherTimeout)
	}
	if !cfg.StorageEnabled() {
		t.Error("Storage should be enabled for sqlite driver")
	}
	if !cfg.MQTTEnabled {
		t.Error("MQTT should be enabled")
	}
	if cfg.ClassifierInputSize != 128 {
		t.Errorf("Expected input size 128, got %d", cfg.ClassifierInputSize)
	}
}

func TestLoadInvalidFallsBack(t *testing.T) {
	t.Setenv("RAIN_THRESHOLD_MM", "lots")
	t.Setenv("WEATHER_TIMEOUT", "soon")

	cfg := Load()

	if cfg.RainThresholdMM != 2.0 {
		t.Errorf("Expected fallback rain threshold 2.0, got %v", cfg.RainThresholdMM)
	}
	if cfg.WeatherTimeout != 5*time.Second {
		t.Errorf("Expected fallback timeout 5s, got %v", cfg.WeatherTimeout)
	}
}
