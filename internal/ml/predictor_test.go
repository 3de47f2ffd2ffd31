package ml

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"agri-advisor/internal/apperrors"
	"agri-advisor/internal/features"
	"agri-advisor/internal/models"
)

func buildOrdered(t *testing.T, m *Model) *features.Vector {
	t.Helper()
	req := &models.PredictRequest{
		CurrentData: &models.CurrentData{
			Temperature:    models.Float(30),
			Humidity:       models.Float(60),
			LightIntensity: models.Float(20000),
		},
		HistoricalData: &models.HistoricalAggregates{
			SoilMoistureLag60:            models.Float(28),
			TemperatureLag60:             models.Float(29),
			SoilMoistureRollingMean60m:   models.Float(29),
			TemperatureRollingMean60m:    models.Float(29.5),
			LightIntensityRollingMean60m: models.Float(19000),
		},
	}
	v, err := features.Build(req, time.Date(2024, 5, 15, 9, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	ordered, _, err := v.Reorder(m.FeatureNames())
	if err != nil {
		t.Fatalf("Reorder failed: %v", err)
	}
	return ordered
}

func TestLoadLinearModel(t *testing.T) {
	m, err := LoadModel("testdata/linear_model.json")
	if err != nil {
		t.Fatalf("LoadModel failed: %v", err)
	}

	if m.Kind != KindLinear {
		t.Errorf("Expected kind %q, got %q", KindLinear, m.Kind)
	}
	if len(m.FeatureNames()) != len(features.TrainingOrder) {
		t.Errorf("Expected %d features, got %d", len(features.TrainingOrder), len(m.FeatureNames()))
	}

	delta, err := m.Predict(buildOrdered(t, m))
	if err != nil {
		t.Fatalf("Predict failed: %v", err)
	}

	// 1.5 - 0.02*28 - 0.05*30 + 0.01*60 - 0.00002*20000
	want := -0.36
	if math.Abs(delta-want) > 1e-9 {
		t.Errorf("Expected delta %v, got %v", want, delta)
	}
}

func TestPredictIsDeterministic(t *testing.T) {
	m, err := LoadModel("testdata/linear_model.json")
	if err != nil {
		t.Fatalf("LoadModel failed: %v", err)
	}
	v := buildOrdered(t, m)

	first, _ := m.Predict(v)
	for i := 0; i < 10; i++ {
		got, _ := m.Predict(v)
		if got != first {
			t.Fatalf("Prediction changed between calls: %v vs %v", first, got)
		}
	}
}

func TestRandomForestPredict(t *testing.T) {
	m, err := LoadModel("testdata/forest_model.json")
	if err != nil {
		t.Fatalf("LoadModel failed: %v", err)
	}

	tests := []struct {
		soil, temp float64
		want       float64
	}{
		{40, 20, -1.75},
		{60, 35, -3.0},
		{60, 28, -1.5},
	}

	for _, tt := range tests {
		v := features.NewVector()
		v.Set(features.SoilMoisture, tt.soil)
		v.Set(features.Temperature, tt.temp)

		got, err := m.Predict(v)
		if err != nil {
			t.Fatalf("Predict failed: %v", err)
		}
		if math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("soil=%v temp=%v: expected %v, got %v", tt.soil, tt.temp, tt.want, got)
		}
	}
}

func TestPredictRejectsWrongOrder(t *testing.T) {
	m, err := LoadModel("testdata/forest_model.json")
	if err != nil {
		t.Fatalf("LoadModel failed: %v", err)
	}

	v := features.NewVector()
	v.Set(features.Temperature, 20)
	v.Set(features.SoilMoisture, 40)

	if _, err := m.Predict(v); err == nil {
		t.Error("Expected error for vector not in schema order")
	}
}

func TestLoadModelFailures(t *testing.T) {
	dir := t.TempDir()

	write := func(name, content string) string {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatalf("Failed to write %s: %v", name, err)
		}
		return path
	}

	tests := []struct {
		name string
		path string
	}{
		{"missing file", filepath.Join(dir, "nope.json")},
		{"bad json", write("bad.json", "{not json")},
		{"no features", write("nofeat.json", `{"kind": "linear"}`)},
		{"coefficient mismatch", write("coef.json", `{"kind": "linear", "feature_names": ["a", "b"], "coefficients": [1]}`)},
		{"unknown kind", write("kind.json", `{"kind": "svm", "feature_names": ["a"]}`)},
		{"duplicate feature", write("dup.json", `{"kind": "linear", "feature_names": ["a", "a"], "coefficients": [1, 1]}`)},
		{"backward child", write("cycle.json", `{"kind": "decision_tree", "feature_names": ["a"],
			"trees": [{"children_left": [1, 0], "children_right": [1, -1], "feature": [0, 0],
			"threshold": [1, 1], "value": [0, 0]}]}`)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadModel(tt.path)
			var unavailable *apperrors.ModelUnavailableError
			if !errors.As(err, &unavailable) {
				t.Fatalf("Expected ModelUnavailableError, got %v", err)
			}
		})
	}
}
