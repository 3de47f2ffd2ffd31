package diagnosis

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"

	"agri-advisor/internal/apperrors"
	"agri-advisor/internal/logger"
)

// DefaultInputSize is the square input edge of the plant disease classifier
const DefaultInputSize = 224

// DefaultMaxPixels bounds the decoded size of an upload (about 8k x 5k)
const DefaultMaxPixels = 40_000_000

// Tensor is a single RGB image in height x width x channel order with
// values normalized to [0, 1].
type Tensor struct {
	Height   int
	Width    int
	Channels int
	Data     []float32
}

// Batch returns the tensor as a batch of one, shaped [1][H][W][C]
func (t *Tensor) Batch() [][][][]float32 {
	rows := make([][][]float32, t.Height)
	for y := 0; y < t.Height; y++ {
		row := make([][]float32, t.Width)
		for x := 0; x < t.Width; x++ {
			offset := (y*t.Width + x) * t.Channels
			row[x] = t.Data[offset : offset+t.Channels]
		}
		rows[y] = row
	}
	return [][][][]float32{rows}
}

// Preprocess decodes an uploaded image and converts it to classifier input.
// Supported formats: JPEG, PNG, GIF, BMP and WebP.
func Preprocess(data []byte, size int) (*Tensor, error) {
	return PreprocessLimited(data, size, DefaultMaxPixels)
}

// PreprocessLimited is Preprocess with an explicit pixel budget. The header
// is checked against maxPixels before any pixel data is decoded.
func PreprocessLimited(data []byte, size, maxPixels int) (*Tensor, error) {
	if len(data) == 0 {
		return nil, &apperrors.InvalidInputError{Message: "empty image"}
	}
	if size <= 0 {
		size = DefaultInputSize
	}
	if maxPixels <= 0 {
		maxPixels = DefaultMaxPixels
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, &apperrors.InvalidInputError{Message: "invalid image file", Err: err}
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, &apperrors.InvalidInputError{Message: "image has no pixels"}
	}
	if int64(cfg.Width)*int64(cfg.Height) > int64(maxPixels) {
		return nil, &apperrors.InvalidInputError{
			Message: fmt.Sprintf("image too large: %dx%d exceeds %d pixels", cfg.Width, cfg.Height, maxPixels),
		}
	}

	src, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, &apperrors.InvalidInputError{Message: "invalid image file", Err: err}
	}
	if src.Bounds().Empty() {
		return nil, &apperrors.InvalidInputError{Message: "image has no pixels"}
	}

	dst := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.BiLinear.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)

	tensor := &Tensor{
		Height:   size,
		Width:    size,
		Channels: 3,
		Data:     make([]float32, size*size*3),
	}

	i := 0
	for y := 0; y < size; y++ {
		row := dst.Pix[y*dst.Stride : y*dst.Stride+size*4]
		for x := 0; x < size; x++ {
			px := row[x*4 : x*4+4]
			tensor.Data[i] = float32(px[0]) / 255
			tensor.Data[i+1] = float32(px[1]) / 255
			tensor.Data[i+2] = float32(px[2]) / 255
			i += 3
		}
	}

	logger.Debugf("Diagnosis: decoded %s image %dx%d, resized to %dx%d",
		format, src.Bounds().Dx(), src.Bounds().Dy(), size, size)
	return tensor, nil
}
