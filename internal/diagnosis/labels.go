package diagnosis

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// Labels maps classifier output indices to raw class names
type Labels map[int]string

// LoadLabels reads a class_indices.json file ({"Tomato___Late_blight": 3, ...})
// and inverts it into index -> name.
func LoadLabels(path string) (Labels, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read class indices: %w", err)
	}

	var indices map[string]int
	if err := json.Unmarshal(data, &indices); err != nil {
		return nil, fmt.Errorf("failed to parse class indices: %w", err)
	}
	if len(indices) == 0 {
		return nil, fmt.Errorf("class indices file %s is empty", path)
	}

	labels := make(Labels, len(indices))
	for name, idx := range indices {
		if idx < 0 {
			return nil, fmt.Errorf("class %q has negative index %d", name, idx)
		}
		if existing, ok := labels[idx]; ok {
			return nil, fmt.Errorf("classes %q and %q share index %d", existing, name, idx)
		}
		labels[idx] = name
	}
	return labels, nil
}

// FormatLabel turns a raw class name into display text:
// "Tomato___Late_blight" -> "Tomato - Late blight"
func FormatLabel(raw string) string {
	return strings.ReplaceAll(strings.ReplaceAll(raw, "___", " - "), "_", " ")
}

// FormatConfidence renders a probability as a percentage with two decimals
func FormatConfidence(p float64) string {
	return fmt.Sprintf("%.2f%%", p*100)
}
