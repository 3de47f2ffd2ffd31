package features

import (
	"agri-advisor/internal/apperrors"
)

// Vector is an ordered mapping from feature name to value.
// Insertion order is kept; Reorder produces the order a model expects.
type Vector struct {
	names  []string
	values map[string]float64
}

// NewVector creates an empty feature vector
func NewVector() *Vector {
	return &Vector{values: make(map[string]float64)}
}

// Set assigns a feature, appending the name on first use
func (v *Vector) Set(name string, value float64) {
	if _, ok := v.values[name]; !ok {
		v.names = append(v.names, name)
	}
	v.values[name] = value
}

// Get returns a feature value
func (v *Vector) Get(name string) (float64, bool) {
	value, ok := v.values[name]
	return value, ok
}

// Names returns feature names in vector order
func (v *Vector) Names() []string {
	out := make([]string, len(v.names))
	copy(out, v.names)
	return out
}

// Values returns feature values in vector order
func (v *Vector) Values() []float64 {
	out := make([]float64, len(v.names))
	for i, name := range v.names {
		out[i] = v.values[name]
	}
	return out
}

// Len returns the number of features
func (v *Vector) Len() int {
	return len(v.names)
}

// Reorder returns a new vector laid out exactly as schema. It fails with a
// SchemaMismatchError when schema names a feature the vector lacks. Features
// not in schema are reported through the returned extras list.
func (v *Vector) Reorder(schema []string) (*Vector, []string, error) {
	var missing []string
	for _, name := range schema {
		if _, ok := v.values[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, nil, &apperrors.SchemaMismatchError{Missing: missing}
	}

	inSchema := make(map[string]bool, len(schema))
	out := NewVector()
	for _, name := range schema {
		inSchema[name] = true
		out.Set(name, v.values[name])
	}

	var extras []string
	for _, name := range v.names {
		if !inSchema[name] {
			extras = append(extras, name)
		}
	}

	return out, extras, nil
}
