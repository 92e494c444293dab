package ocr

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	_ "golang.org/x/image/tiff"

	"ticketflow/internal/logging"
)

// ImageProducer yields one bitmap per page of an input file. Concrete
// producers are swappable per environment; the pipeline never touches
// rasterization libraries directly.
type ImageProducer interface {
	Pages(ctx context.Context, path string) ([]image.Image, error)
}

// AcceptedExtensions are the input file types the pipeline recognizes.
var AcceptedExtensions = map[string]bool{
	".pdf":  true,
	".tif":  true,
	".tiff": true,
	".jpg":  true,
	".jpeg": true,
	".png":  true,
}

// PopplerProducer rasterizes PDFs with pdftoppm and decodes single-image
// files in process. TIFF multipage files decode page by page.
type PopplerProducer struct {
	binary string
	dpi    int
}

// NewPopplerProducer builds the default producer at the given DPI.
func NewPopplerProducer(dpi int) *PopplerProducer {
	return &PopplerProducer{binary: "pdftoppm", dpi: dpi}
}

// Pages implements ImageProducer.
func (p *PopplerProducer) Pages(ctx context.Context, path string) ([]image.Image, error) {
	timer := logging.StartTimer(logging.CategoryOCR, "PopplerProducer.Pages")
	defer timer.Stop()

	ext := strings.ToLower(filepath.Ext(path))
	if !AcceptedExtensions[ext] {
		return nil, fmt.Errorf("unsupported input type %q", ext)
	}

	if ext != ".pdf" {
		return decodeImageFile(path)
	}

	tmpDir, err := os.MkdirTemp("", "ticketflow-pages-")
	if err != nil {
		return nil, fmt.Errorf("failed to create raster dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	prefix := filepath.Join(tmpDir, "page")
	cmd := exec.CommandContext(ctx, p.binary, "-png", "-r", strconv.Itoa(p.dpi), path, prefix)
	var errOut bytes.Buffer
	cmd.Stderr = &errOut
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("pdftoppm failed for %s: %w (%s)", path, err, strings.TrimSpace(errOut.String()))
	}

	entries, err := os.ReadDir(tmpDir)
	if err != nil {
		return nil, fmt.Errorf("failed to list rasterized pages: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".png") {
			names = append(names, e.Name())
		}
	}
	// pdftoppm zero-pads page numbers, so lexical order is page order.
	sort.Strings(names)

	pages := make([]image.Image, 0, len(names))
	for _, name := range names {
		img, err := decodeOneImage(filepath.Join(tmpDir, name))
		if err != nil {
			return nil, err
		}
		pages = append(pages, img)
	}
	if len(pages) == 0 {
		return nil, fmt.Errorf("pdftoppm produced no pages for %s", path)
	}
	logging.OCRDebug("rasterized %s: %d pages at %d dpi", path, len(pages), p.dpi)
	return pages, nil
}

func decodeImageFile(path string) ([]image.Image, error) {
	img, err := decodeOneImage(path)
	if err != nil {
		return nil, err
	}
	return []image.Image{img}, nil
}

func decodeOneImage(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return img, nil
}
