package ocr

import (
	"image"
	"math"

	"ticketflow/internal/config"
	"ticketflow/internal/review"
)

// PreflightResult reports whether a page is worth sending to OCR.
type PreflightResult struct {
	OK       bool
	Reason   string
	Severity review.Severity
}

// Preflight runs the fast OCRability checks on a page image: minimum
// resolution and blank-page detection via grayscale standard deviation.
// A failing page still goes through OCR; the result only drives an advisory
// review entry.
func Preflight(img image.Image, cfg config.PreflightConfig) PreflightResult {
	if !cfg.Enabled {
		return PreflightResult{OK: true}
	}

	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if cfg.MinResolution > 0 && (w < cfg.MinResolution || h < cfg.MinResolution) {
		return PreflightResult{
			OK:       false,
			Reason:   "page resolution below threshold",
			Severity: review.SeverityWarning,
		}
	}

	if cfg.BlankStdThreshold > 0 && grayStdDev(img) < cfg.BlankStdThreshold {
		return PreflightResult{
			OK:       false,
			Reason:   "page appears blank",
			Severity: review.SeverityInfo,
		}
	}

	return PreflightResult{OK: true}
}

// grayStdDev samples the image on a coarse grid and returns the standard
// deviation of its gray levels (0-255 scale). Near-zero means a blank page.
func grayStdDev(img image.Image) float64 {
	bounds := img.Bounds()
	const grid = 64

	stepX := bounds.Dx() / grid
	if stepX < 1 {
		stepX = 1
	}
	stepY := bounds.Dy() / grid
	if stepY < 1 {
		stepY = 1
	}

	var sum, sumSq float64
	var n int
	for y := bounds.Min.Y; y < bounds.Max.Y; y += stepY {
		for x := bounds.Min.X; x < bounds.Max.X; x += stepX {
			r, g, b, _ := img.At(x, y).RGBA()
			// 16-bit channels down to the 0-255 luma scale.
			gray := (0.299*float64(r) + 0.587*float64(g) + 0.114*float64(b)) / 257.0
			sum += gray
			sumSq += gray * gray
			n++
		}
	}
	if n == 0 {
		return 0
	}
	mean := sum / float64(n)
	variance := sumSq/float64(n) - mean*mean
	if variance < 0 {
		variance = 0
	}
	return math.Sqrt(variance)
}
