// Package ocr is the boundary to the external text-recognition engines and
// page rasterizers. The pipeline depends only on the Engine and ImageProducer
// interfaces; concrete adapters shell out to tesseract, easyocr, or doctr and
// are swappable per environment. A page with no usable engine degrades to the
// fallback engine rather than failing the batch.
package ocr

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"image"

	"ticketflow/internal/config"
)

// Result is what the pipeline needs from one recognized page.
type Result struct {
	Text        string
	Confidence  float64 // 0-1
	PageHash    string  // SHA-256 of the rendered page bytes
	Orientation int     // degrees the engine rotated the page by (0/90/180/270)
}

// Engine converts a page image to text. Implementations must be safe for use
// from a single worker; the batch layer gives each worker its own instance.
type Engine interface {
	Name() string
	Recognize(ctx context.Context, img image.Image) (Result, error)
}

// NewEngine selects an engine by configuration.
func NewEngine(cfg config.OCRConfig) (Engine, error) {
	switch cfg.Engine {
	case "tesseract":
		return NewTesseract(cfg), nil
	case "easyocr":
		return NewEasyOCR(cfg), nil
	case "doctr":
		return NewDoctr(cfg), nil
	case "fallback":
		return Fallback{}, nil
	default:
		return nil, fmt.Errorf("unknown ocr engine %q", cfg.Engine)
	}
}

// HashBytes returns the SHA-256 hex digest used for page and file identity.
func HashBytes(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
