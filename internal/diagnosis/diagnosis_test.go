package diagnosis

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"hash/crc32"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"agri-advisor/internal/apperrors"
)

func encodeSolidPNG(t *testing.T, w, h int, c color.Color) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("Failed to encode PNG: %v", err)
	}
	return buf.Bytes()
}

func TestPreprocess(t *testing.T) {
	data := encodeSolidPNG(t, 40, 30, color.RGBA{R: 255, G: 0, B: 51, A: 255})

	tensor, err := Preprocess(data, 8)
	if err != nil {
		t.Fatalf("Preprocess failed: %v", err)
	}

	if tensor.Height != 8 || tensor.Width != 8 || tensor.Channels != 3 {
		t.Fatalf("Unexpected shape %dx%dx%d", tensor.Height, tensor.Width, tensor.Channels)
	}
	if len(tensor.Data) != 8*8*3 {
		t.Fatalf("Unexpected data length %d", len(tensor.Data))
	}

	for i := 0; i < len(tensor.Data); i += 3 {
		r, g, b := tensor.Data[i], tensor.Data[i+1], tensor.Data[i+2]
		if r != 1 || g != 0 || b != 0.2 {
			t.Fatalf("Pixel %d: expected (1, 0, 0.2), got (%v, %v, %v)", i/3, r, g, b)
		}
	}
}

func TestPreprocessRange(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 16, 16))
	for i := range img.Pix {
		img.Pix[i] = uint8(i)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("Failed to encode PNG: %v", err)
	}

	tensor, err := Preprocess(buf.Bytes(), 0)
	if err != nil {
		t.Fatalf("Preprocess failed: %v", err)
	}
	if tensor.Height != DefaultInputSize {
		t.Errorf("Expected default size %d, got %d", DefaultInputSize, tensor.Height)
	}
	for _, v := range tensor.Data {
		if v < 0 || v > 1 {
			t.Fatalf("Value %v outside [0, 1]", v)
		}
	}
}

func TestPreprocessInvalidImage(t *testing.T) {
	for name, data := range map[string][]byte{
		"empty":   nil,
		"garbage": []byte("definitely not an image"),
	} {
		t.Run(name, func(t *testing.T) {
			_, err := Preprocess(data, 224)
			var invalid *apperrors.InvalidInputError
			if !errors.As(err, &invalid) {
				t.Errorf("Expected InvalidInputError, got %v", err)
			}
		})
	}
}

// pngHeader returns a PNG holding only a signature and an IHDR chunk, enough
// for DecodeConfig to report the dimensions.
func pngHeader(width, height uint32) []byte {
	ihdr := make([]byte, 13)
	binary.BigEndian.PutUint32(ihdr[0:4], width)
	binary.BigEndian.PutUint32(ihdr[4:8], height)
	ihdr[8] = 8 // bit depth
	ihdr[9] = 2 // truecolor

	chunk := append([]byte("IHDR"), ihdr...)
	data := []byte("\x89PNG\r\n\x1a\n")
	data = binary.BigEndian.AppendUint32(data, uint32(len(ihdr)))
	data = append(data, chunk...)
	return binary.BigEndian.AppendUint32(data, crc32.ChecksumIEEE(chunk))
}

func TestPreprocessPixelBudget(t *testing.T) {
	t.Run("header over default budget", func(t *testing.T) {
		_, err := Preprocess(pngHeader(15000, 15000), 224)
		var invalid *apperrors.InvalidInputError
		if !errors.As(err, &invalid) {
			t.Fatalf("Expected InvalidInputError, got %v", err)
		}
		if !strings.Contains(invalid.Message, "too large") {
			t.Errorf("Unexpected message %q", invalid.Message)
		}
	})

	t.Run("decoded image over explicit budget", func(t *testing.T) {
		data := encodeSolidPNG(t, 10, 10, color.White)
		if _, err := PreprocessLimited(data, 8, 99); !apperrors.IsClientError(err) {
			t.Errorf("Expected client error for 100 pixels over a 99 budget, got %v", err)
		}
		if _, err := PreprocessLimited(data, 8, 100); err != nil {
			t.Errorf("Image at the budget should pass, got %v", err)
		}
	})

	t.Run("service budget", func(t *testing.T) {
		svc := NewService(&stubClassifier{probs: []float64{1}}, Labels{0: "Apple___healthy"}, 8)
		svc.SetMaxPixels(50)
		if _, err := svc.Diagnose(context.Background(), encodeSolidPNG(t, 10, 10, color.White)); !apperrors.IsClientError(err) {
			t.Errorf("Expected client error, got %v", err)
		}
	})
}

func TestTensorBatch(t *testing.T) {
	tensor := &Tensor{Height: 2, Width: 3, Channels: 3, Data: make([]float32, 18)}
	tensor.Data[(1*3+2)*3+1] = 0.5

	batch := tensor.Batch()
	if len(batch) != 1 || len(batch[0]) != 2 || len(batch[0][0]) != 3 || len(batch[0][0][0]) != 3 {
		t.Fatalf("Unexpected batch shape")
	}
	if batch[0][1][2][1] != 0.5 {
		t.Errorf("Expected pixel (1,2) green = 0.5, got %v", batch[0][1][2][1])
	}
}

func TestFormatLabel(t *testing.T) {
	tests := map[string]string{
		"Tomato___Late_blight":                   "Tomato - Late blight",
		"Corn_(maize)___Common_rust_":            "Corn (maize) - Common rust ",
		"Apple___healthy":                        "Apple - healthy",
		"Pepper,_bell___Bacterial_spot":          "Pepper, bell - Bacterial spot",
		"Tomato___Tomato_Yellow_Leaf_Curl_Virus": "Tomato - Tomato Yellow Leaf Curl Virus",
	}
	for raw, want := range tests {
		if got := FormatLabel(raw); got != want {
			t.Errorf("FormatLabel(%q) = %q, want %q", raw, got, want)
		}
	}
}

func TestFormatConfidence(t *testing.T) {
	if got := FormatConfidence(0.97314); got != "97.31%" {
		t.Errorf("Expected 97.31%%, got %s", got)
	}
	if got := FormatConfidence(1); got != "100.00%" {
		t.Errorf("Expected 100.00%%, got %s", got)
	}
}

func TestLoadLabels(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "class_indices.json")
	if err := os.WriteFile(path, []byte(`{"Apple___healthy": 0, "Tomato___Late_blight": 1}`), 0644); err != nil {
		t.Fatalf("Failed to write labels: %v", err)
	}

	labels, err := LoadLabels(path)
	if err != nil {
		t.Fatalf("LoadLabels failed: %v", err)
	}
	if labels[1] != "Tomato___Late_blight" || labels[0] != "Apple___healthy" {
		t.Errorf("Unexpected labels %v", labels)
	}

	dup := filepath.Join(dir, "dup.json")
	if err := os.WriteFile(dup, []byte(`{"a": 0, "b": 0}`), 0644); err != nil {
		t.Fatalf("Failed to write labels: %v", err)
	}
	if _, err := LoadLabels(dup); err == nil {
		t.Error("Expected error for duplicate index")
	}

	if _, err := LoadLabels(filepath.Join(dir, "missing.json")); err == nil {
		t.Error("Expected error for missing file")
	}
}

type stubClassifier struct {
	probs []float64
	err   error
}

func (c *stubClassifier) Classify(ctx context.Context, t *Tensor) ([]float64, error) {
	return c.probs, c.err
}

func TestServiceDiagnose(t *testing.T) {
	labels := Labels{0: "Apple___healthy", 1: "Tomato___Late_blight", 2: "Tomato___healthy"}
	svc := NewService(&stubClassifier{probs: []float64{0.01, 0.9731, 0.0169}}, labels, 16)

	resp, err := svc.Diagnose(context.Background(), encodeSolidPNG(t, 20, 20, color.White))
	if err != nil {
		t.Fatalf("Diagnose failed: %v", err)
	}
	if resp.Disease != "Tomato - Late blight" {
		t.Errorf("Unexpected disease %q", resp.Disease)
	}
	if resp.Confidence != "97.31%" {
		t.Errorf("Unexpected confidence %q", resp.Confidence)
	}
}

func TestServiceDiagnoseErrors(t *testing.T) {
	labels := Labels{0: "Apple___healthy"}
	img := encodeSolidPNG(t, 4, 4, color.Black)

	tests := []struct {
		name       string
		classifier *stubClassifier
		image      []byte
		client     bool
	}{
		{"invalid image", &stubClassifier{probs: []float64{1}}, []byte("nope"), true},
		{"classifier failure", &stubClassifier{err: errors.New("down")}, img, false},
		{"empty probabilities", &stubClassifier{probs: []float64{}}, img, false},
		{"unknown index", &stubClassifier{probs: []float64{0.1, 0.9}}, img, false},
		{"confidence above one", &stubClassifier{probs: []float64{1.5}}, img, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewService(tt.classifier, labels, 8)
			_, err := svc.Diagnose(context.Background(), tt.image)
			if err == nil {
				t.Fatal("Expected error")
			}
			if apperrors.IsClientError(err) != tt.client {
				t.Errorf("IsClientError = %v, want %v (%v)", !tt.client, tt.client, err)
			}
		})
	}
}

func TestTFServingClassifier(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("Unexpected request %s %s", r.Method, r.Header.Get("Content-Type"))
		}
		var body struct {
			Instances [][][][]float32 `json:"instances"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("Failed to decode request: %v", err)
		}
		if len(body.Instances) != 1 || len(body.Instances[0]) != 2 || len(body.Instances[0][0][0]) != 3 {
			t.Errorf("Unexpected instance shape")
		}
		w.Write([]byte(`{"predictions": [[0.2, 0.8]]}`))
	}))
	defer srv.Close()

	c := NewTFServingClassifier(srv.URL, time.Second)
	probs, err := c.Classify(context.Background(), &Tensor{Height: 2, Width: 2, Channels: 3, Data: make([]float32, 12)})
	if err != nil {
		t.Fatalf("Classify failed: %v", err)
	}
	if len(probs) != 2 || probs[1] != 0.8 {
		t.Errorf("Unexpected probabilities %v", probs)
	}
}

func TestTFServingClassifierErrors(t *testing.T) {
	tests := map[string]http.HandlerFunc{
		"server error": func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "model not loaded", http.StatusServiceUnavailable)
		},
		"error body": func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"error": "shape mismatch"}`))
		},
		"no predictions": func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"predictions": []}`))
		},
	}

	for name, handler := range tests {
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(handler)
			defer srv.Close()

			c := NewTFServingClassifier(srv.URL, time.Second)
			if _, err := c.Classify(context.Background(), &Tensor{Height: 1, Width: 1, Channels: 3, Data: make([]float32, 3)}); err == nil {
				t.Error("Expected error")
			}
		})
	}
}
