package ml

import (
	"encoding/json"
	"fmt"
	"os"

	"agri-advisor/internal/apperrors"
	"agri-advisor/internal/features"
	"agri-advisor/internal/logger"
)

// Estimator kinds an artifact may carry
const (
	KindLinear       = "linear"
	KindDecisionTree = "decision_tree"
	KindRandomForest = "random_forest"
)

// Predictor maps an ordered feature vector to the predicted soil moisture
// change over the model horizon.
type Predictor interface {
	FeatureNames() []string
	Predict(v *features.Vector) (float64, error)
}

// Tree is a fitted regression tree in flat-array form. Node i is a leaf when
// ChildrenLeft[i] == -1; otherwise samples with x[Feature[i]] <= Threshold[i]
// go left.
type Tree struct {
	ChildrenLeft  []int     `json:"children_left"`
	ChildrenRight []int     `json:"children_right"`
	Feature       []int     `json:"feature"`
	Threshold     []float64 `json:"threshold"`
	Value         []float64 `json:"value"`
}

// Model is the soil moisture regressor artifact, trained offline on the
// delta_soilMoisture_3h target.
type Model struct {
	Name         string    `json:"name"`
	Kind         string    `json:"kind"`
	Target       string    `json:"target"`
	HorizonHours float64   `json:"horizon_hours"`
	R2Score      float64   `json:"r2_score"`
	Features     []string  `json:"feature_names"`
	Intercept    float64   `json:"intercept"`
	Coefficients []float64 `json:"coefficients"`
	Trees        []Tree    `json:"trees"`
}

// LoadModel reads and validates a model artifact. Any failure is a
// ModelUnavailableError; callers treat it as fatal.
func LoadModel(modelPath string) (*Model, error) {
	data, err := os.ReadFile(modelPath)
	if err != nil {
		return nil, &apperrors.ModelUnavailableError{Path: modelPath, Err: fmt.Errorf("failed to read model file: %w", err)}
	}

	var model Model
	if err := json.Unmarshal(data, &model); err != nil {
		return nil, &apperrors.ModelUnavailableError{Path: modelPath, Err: fmt.Errorf("failed to unmarshal model: %w", err)}
	}

	if err := model.validate(); err != nil {
		return nil, &apperrors.ModelUnavailableError{Path: modelPath, Err: err}
	}

	logger.Printf("Loaded %s model %q from %s (features=%d, R2=%.4f)",
		model.Kind, model.Name, modelPath, len(model.Features), model.R2Score)

	return &model, nil
}

func (m *Model) validate() error {
	if len(m.Features) == 0 {
		return fmt.Errorf("model declares no feature_names")
	}
	seen := make(map[string]bool, len(m.Features))
	for _, name := range m.Features {
		if seen[name] {
			return fmt.Errorf("duplicate feature %q in schema", name)
		}
		seen[name] = true
	}

	switch m.Kind {
	case KindLinear:
		if len(m.Coefficients) != len(m.Features) {
			return fmt.Errorf("linear model has %d coefficients for %d features", len(m.Coefficients), len(m.Features))
		}
	case KindDecisionTree, KindRandomForest:
		if len(m.Trees) == 0 {
			return fmt.Errorf("%s model has no trees", m.Kind)
		}
		if m.Kind == KindDecisionTree && len(m.Trees) != 1 {
			return fmt.Errorf("decision_tree model must have exactly one tree, got %d", len(m.Trees))
		}
		for i := range m.Trees {
			if err := m.Trees[i].validate(len(m.Features)); err != nil {
				return fmt.Errorf("tree %d: %w", i, err)
			}
		}
	default:
		return fmt.Errorf("unsupported model kind %q", m.Kind)
	}
	return nil
}

func (t *Tree) validate(numFeatures int) error {
	n := len(t.ChildrenLeft)
	if n == 0 {
		return fmt.Errorf("empty tree")
	}
	if len(t.ChildrenRight) != n || len(t.Feature) != n || len(t.Threshold) != n || len(t.Value) != n {
		return fmt.Errorf("node arrays have inconsistent lengths")
	}
	for i := 0; i < n; i++ {
		if t.ChildrenLeft[i] == -1 {
			continue
		}
		if t.ChildrenLeft[i] <= i || t.ChildrenLeft[i] >= n || t.ChildrenRight[i] <= i || t.ChildrenRight[i] >= n {
			return fmt.Errorf("node %d has invalid children", i)
		}
		if t.Feature[i] < 0 || t.Feature[i] >= numFeatures {
			return fmt.Errorf("node %d splits on unknown feature %d", i, t.Feature[i])
		}
	}
	return nil
}

// FeatureNames returns the ordered schema the model was fitted on
func (m *Model) FeatureNames() []string {
	out := make([]string, len(m.Features))
	copy(out, m.Features)
	return out
}

// Predict returns the predicted delta. The vector must already be in schema order.
func (m *Model) Predict(v *features.Vector) (float64, error) {
	names := v.Names()
	if len(names) != len(m.Features) {
		return 0, fmt.Errorf("expected %d features, got %d", len(m.Features), len(names))
	}
	for i, name := range names {
		if name != m.Features[i] {
			return 0, fmt.Errorf("feature %d is %q, model expects %q", i, name, m.Features[i])
		}
	}
	x := v.Values()

	switch m.Kind {
	case KindLinear:
		score := m.Intercept
		for i, coef := range m.Coefficients {
			score += coef * x[i]
		}
		return score, nil
	default:
		var sum float64
		for i := range m.Trees {
			sum += m.Trees[i].predict(x)
		}
		return sum / float64(len(m.Trees)), nil
	}
}

// predict walks the tree; validate guarantees children point forward so the walk terminates.
func (t *Tree) predict(x []float64) float64 {
	node := 0
	for t.ChildrenLeft[node] != -1 {
		if x[t.Feature[node]] <= t.Threshold[node] {
			node = t.ChildrenLeft[node]
		} else {
			node = t.ChildrenRight[node]
		}
	}
	return t.Value[node]
}
