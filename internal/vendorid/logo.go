package vendorid

import (
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"math"
	"os"

	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
)

// Logo comparisons happen on fixed-size grayscale patches so the score is
// independent of scan resolution.
const logoPatchSize = 64

// Multi-scale fallback factors applied to the page ROI.
var logoScales = []float64{0.8, 1.0, 1.2}

func loadLogoImage(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode logo %s: %w", path, err)
	}
	return img, nil
}

// matchLogo scores the page against a template's logo: the template's ROI
// crop is compared with the page's ROI crop by normalized cross-correlation,
// at scale 1.0 first and the multi-scale fallbacks after. The best score is
// returned.
func matchLogo(tmpl *Template, page image.Image) float64 {
	if tmpl.logo == nil || page == nil {
		return 0
	}

	ref := grayPatch(cropROI(tmpl.logo, tmpl.LogoROI, 1.0))
	best := 0.0
	for _, scale := range logoScales {
		candidate := grayPatch(cropROI(page, tmpl.LogoROI, scale))
		if score := ncc(ref, candidate); score > best {
			best = score
		}
	}
	return best
}

// cropROI cuts the fractional ROI out of an image. scale grows or shrinks
// the window around its center, clamped to the image bounds.
func cropROI(img image.Image, roi ROI, scale float64) image.Image {
	b := img.Bounds()
	w := float64(b.Dx())
	h := float64(b.Dy())

	cx := (roi.X + roi.W/2) * w
	cy := (roi.Y + roi.H/2) * h
	rw := roi.W * w * scale
	rh := roi.H * h * scale

	x0 := clampInt(int(cx-rw/2), b.Min.X, b.Max.X-1)
	y0 := clampInt(int(cy-rh/2), b.Min.Y, b.Max.Y-1)
	x1 := clampInt(int(cx+rw/2), x0+1, b.Max.X)
	y1 := clampInt(int(cy+rh/2), y0+1, b.Max.Y)

	rect := image.Rect(x0, y0, x1, y1)
	out := image.NewRGBA(image.Rect(0, 0, rect.Dx(), rect.Dy()))
	xdraw.Copy(out, image.Point{}, img, rect, xdraw.Src, nil)
	return out
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// grayPatch downsamples an image to the fixed comparison patch.
func grayPatch(img image.Image) *image.Gray {
	scaled := image.NewGray(image.Rect(0, 0, logoPatchSize, logoPatchSize))
	xdraw.ApproxBiLinear.Scale(scaled, scaled.Bounds(), img, img.Bounds(), xdraw.Src, nil)
	return scaled
}

// ncc computes the normalized cross-correlation of two equal-size gray
// patches, mapped to [0,1]. Flat patches (zero variance) score 0.
func ncc(a, b *image.Gray) float64 {
	n := logoPatchSize * logoPatchSize

	var sumA, sumB float64
	for i := 0; i < n; i++ {
		sumA += float64(a.Pix[i])
		sumB += float64(b.Pix[i])
	}
	meanA := sumA / float64(n)
	meanB := sumB / float64(n)

	var num, varA, varB float64
	for i := 0; i < n; i++ {
		da := float64(a.Pix[i]) - meanA
		db := float64(b.Pix[i]) - meanB
		num += da * db
		varA += da * da
		varB += db * db
	}
	if varA == 0 || varB == 0 {
		return 0
	}
	corr := num / math.Sqrt(varA*varB)
	if corr < 0 {
		return 0
	}
	return corr
}
