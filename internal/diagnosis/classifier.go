package diagnosis

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Classifier returns class probabilities for a preprocessed image
type Classifier interface {
	Classify(ctx context.Context, t *Tensor) ([]float64, error)
}

// TFServingClassifier calls a TensorFlow Serving REST predict endpoint,
// e.g. http://localhost:8501/v1/models/plant_disease:predict
type TFServingClassifier struct {
	url    string
	client *http.Client
}

// NewTFServingClassifier creates a classifier client
func NewTFServingClassifier(url string, timeout time.Duration) *TFServingClassifier {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &TFServingClassifier{
		url: url,
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

type predictRequest struct {
	Instances [][][][]float32 `json:"instances"`
}

type predictResponse struct {
	Predictions [][]float64 `json:"predictions"`
	Error       string      `json:"error"`
}

// Classify sends the image as a batch of one and returns the first prediction row
func (c *TFServingClassifier) Classify(ctx context.Context, t *Tensor) ([]float64, error) {
	body, err := json.Marshal(predictRequest{Instances: t.Batch()})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal classifier request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("classifier request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("classifier error: status %d: %s", resp.StatusCode, bytes.TrimSpace(snippet))
	}

	var result predictResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to parse classifier response: %w", err)
	}
	if result.Error != "" {
		return nil, fmt.Errorf("classifier error: %s", result.Error)
	}
	if len(result.Predictions) == 0 {
		return nil, fmt.Errorf("classifier returned no predictions")
	}

	return result.Predictions[0], nil
}
