package ocr

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/png"
	"os/exec"
	"strings"

	"ticketflow/internal/config"
	"ticketflow/internal/logging"
)

// pyResult is the JSON shape emitted by the easyocr/doctr wrapper scripts:
// one object with the concatenated text and a mean word confidence.
type pyResult struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
}

// pyEngine shells out to a Python OCR wrapper that reads a PNG on stdin and
// writes a pyResult on stdout. easyocr and doctr share this shape.
type pyEngine struct {
	name   string
	script string
}

// NewEasyOCR builds the easyocr adapter.
func NewEasyOCR(cfg config.OCRConfig) Engine {
	return &pyEngine{name: "easyocr", script: "ticketflow-easyocr"}
}

// NewDoctr builds the doctr adapter.
func NewDoctr(cfg config.OCRConfig) Engine {
	return &pyEngine{name: "doctr", script: "ticketflow-doctr"}
}

func (p *pyEngine) Name() string { return p.name }

func (p *pyEngine) Recognize(ctx context.Context, img image.Image) (Result, error) {
	timer := logging.StartTimer(logging.CategoryOCR, p.name+".Recognize")
	defer timer.Stop()

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return Result{}, fmt.Errorf("failed to encode page: %w", err)
	}
	pageBytes := buf.Bytes()

	cmd := exec.CommandContext(ctx, p.script)
	cmd.Stdin = bytes.NewReader(pageBytes)
	var out, errOut bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &errOut

	if err := cmd.Run(); err != nil {
		return Result{}, fmt.Errorf("%s failed: %w (%s)", p.name, err, strings.TrimSpace(errOut.String()))
	}

	var res pyResult
	if err := json.Unmarshal(out.Bytes(), &res); err != nil {
		return Result{}, fmt.Errorf("%s returned malformed output: %w", p.name, err)
	}
	if res.Confidence < 0 {
		res.Confidence = 0
	}
	if res.Confidence > 1 {
		res.Confidence = 1
	}

	return Result{
		Text:       res.Text,
		Confidence: res.Confidence,
		PageHash:   HashBytes(pageBytes),
	}, nil
}

// Fallback is the no-engine engine: it recognizes nothing and reports zero
// confidence, which routes every page to review instead of failing the run.
type Fallback struct{}

// Name implements Engine.
func (Fallback) Name() string { return "fallback" }

// Recognize implements Engine.
func (Fallback) Recognize(ctx context.Context, img image.Image) (Result, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return Result{}, fmt.Errorf("failed to encode page: %w", err)
	}
	return Result{Text: "", Confidence: 0.0, PageHash: HashBytes(buf.Bytes())}, nil
}
