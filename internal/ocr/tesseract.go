package ocr

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"os/exec"
	"regexp"
	"strconv"
	"strings"

	"ticketflow/internal/config"
	"ticketflow/internal/logging"
)

// Tesseract shells out to the tesseract binary. Orientation correction uses
// the OSD pass (--psm 0) when configured.
type Tesseract struct {
	binary      string
	dpi         int
	orientation string
}

// NewTesseract builds the tesseract adapter from config.
func NewTesseract(cfg config.OCRConfig) *Tesseract {
	return &Tesseract{
		binary:      "tesseract",
		dpi:         cfg.PDFDPI,
		orientation: cfg.OrientationMethod,
	}
}

// Name implements Engine.
func (t *Tesseract) Name() string { return "tesseract" }

// Recognize implements Engine.
func (t *Tesseract) Recognize(ctx context.Context, img image.Image) (Result, error) {
	timer := logging.StartTimer(logging.CategoryOCR, "Tesseract.Recognize")
	defer timer.Stop()

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return Result{}, fmt.Errorf("failed to encode page: %w", err)
	}
	pageBytes := buf.Bytes()

	rotation := 0
	if t.orientation == "tesseract" {
		if deg, err := t.detectOrientation(ctx, pageBytes); err != nil {
			logging.OCRDebug("orientation detection failed, assuming upright: %v", err)
		} else {
			rotation = deg
		}
	}

	args := []string{"stdin", "stdout", "--dpi", strconv.Itoa(t.dpi)}
	if rotation != 0 {
		// OSD reports how the page is rotated; tesseract's own rotate config
		// re-uprights it before recognition.
		args = append(args, "-c", fmt.Sprintf("rotate_pages_degrees=%d", rotation))
	}

	cmd := exec.CommandContext(ctx, t.binary, args...)
	cmd.Stdin = bytes.NewReader(pageBytes)
	var out, errOut bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &errOut

	if err := cmd.Run(); err != nil {
		return Result{}, fmt.Errorf("tesseract failed: %w (%s)", err, strings.TrimSpace(errOut.String()))
	}

	text := out.String()
	return Result{
		Text:        text,
		Confidence:  textConfidence(text),
		PageHash:    HashBytes(pageBytes),
		Orientation: rotation,
	}, nil
}

var osdRotate = regexp.MustCompile(`Rotate:\s*(\d+)`)

func (t *Tesseract) detectOrientation(ctx context.Context, pageBytes []byte) (int, error) {
	cmd := exec.CommandContext(ctx, t.binary, "stdin", "stdout", "--psm", "0")
	cmd.Stdin = bytes.NewReader(pageBytes)
	var out bytes.Buffer
	cmd.Stdout = &out
	if err := cmd.Run(); err != nil {
		return 0, err
	}
	m := osdRotate.FindStringSubmatch(out.String())
	if m == nil {
		return 0, fmt.Errorf("no Rotate line in OSD output")
	}
	deg, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, err
	}
	return deg % 360, nil
}

// textConfidence estimates recognition quality from the character mix. The
// engines in use do not expose a uniform confidence, so the page score is the
// printable-token density of the output.
func textConfidence(text string) float64 {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return 0.0
	}
	total := 0
	alnum := 0
	for _, r := range trimmed {
		if r == '\n' || r == ' ' || r == '\t' {
			continue
		}
		total++
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') ||
			r == '-' || r == '/' || r == ':' || r == '#' || r == '.' || r == ',' {
			alnum++
		}
	}
	if total == 0 {
		return 0.0
	}
	conf := float64(alnum) / float64(total)
	if total < 40 {
		conf *= 0.7 // sparse pages read unreliably
	}
	return conf
}
