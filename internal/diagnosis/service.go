package diagnosis

import (
	"context"
	"fmt"

	"agri-advisor/internal/logger"
	"agri-advisor/internal/models"
)

// Service runs the plant disease diagnosis pipeline
type Service struct {
	classifier Classifier
	labels     Labels
	inputSize  int
	maxPixels  int
}

// NewService creates a diagnosis service
func NewService(classifier Classifier, labels Labels, inputSize int) *Service {
	if inputSize <= 0 {
		inputSize = DefaultInputSize
	}
	return &Service{
		classifier: classifier,
		labels:     labels,
		inputSize:  inputSize,
		maxPixels:  DefaultMaxPixels,
	}
}

// SetMaxPixels changes the largest accepted upload, in decoded pixels
func (s *Service) SetMaxPixels(n int) {
	if n > 0 {
		s.maxPixels = n
	}
}

// Classes returns the number of known classes
func (s *Service) Classes() int {
	return len(s.labels)
}

// Diagnose classifies an uploaded leaf image
func (s *Service) Diagnose(ctx context.Context, image []byte) (*models.DiagnosisResponse, error) {
	tensor, err := PreprocessLimited(image, s.inputSize, s.maxPixels)
	if err != nil {
		return nil, err
	}

	probs, err := s.classifier.Classify(ctx, tensor)
	if err != nil {
		return nil, fmt.Errorf("classification failed: %w", err)
	}

	index, confidence, err := argmax(probs)
	if err != nil {
		return nil, err
	}
	if confidence < 0 || confidence > 1 {
		return nil, fmt.Errorf("classifier confidence %.4f outside [0, 1]", confidence)
	}

	raw, ok := s.labels[index]
	if !ok {
		return nil, fmt.Errorf("classifier returned unknown class index %d", index)
	}

	logger.Debugf("Diagnosis: class=%s index=%d confidence=%.4f", raw, index, confidence)

	return &models.DiagnosisResponse{
		Disease:    FormatLabel(raw),
		Confidence: FormatConfidence(confidence),
	}, nil
}

// argmax returns the first index holding the maximum value
func argmax(values []float64) (int, float64, error) {
	if len(values) == 0 {
		return 0, 0, fmt.Errorf("classifier returned an empty probability vector")
	}
	best := 0
	for i, v := range values[1:] {
		if v > values[best] {
			best = i + 1
		}
	}
	return best, values[best], nil
}
