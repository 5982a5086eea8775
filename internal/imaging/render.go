package imaging

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/disintegration/imaging"
	"github.com/lucasb-eyer/go-colorful"

	"github.com/ironsheep/dhpsf-tools-mcp/internal/detection"
)

// MarkerColor is the color used to mark lobe centroids.
var MarkerColor = colorful.Color{R: 0, G: 1, B: 0}

// ImageResult contains a rendered image encoded as base64 PNG.
type ImageResult struct {
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	ImageBase64 string `json:"image_base64"`
	MimeType    string `json:"mime_type"`
}

// MaskImage renders a mask as white foreground on black background.
func MaskImage(mask *detection.Mask) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, mask.Cols, mask.Rows))
	for row := 0; row < mask.Rows; row++ {
		for col := 0; col < mask.Cols; col++ {
			if mask.At(row, col) {
				img.SetGray(col, row, color.Gray{Y: 255})
			}
		}
	}
	return img
}

// LabelImage renders a label map with one color per region.
//
// Background stays black. Hues step by the golden angle so neighbouring
// label numbers get well separated colors.
func LabelImage(labels *detection.Labels) *image.RGBA {
	palette := make([]color.RGBA, labels.Count+1)
	for l := 1; l <= labels.Count; l++ {
		hue := math.Mod(float64(l-1)*137.508, 360)
		r, g, b := colorful.Hsv(hue, 0.75, 0.95).RGB255()
		palette[l] = color.RGBA{R: r, G: g, B: b, A: 255}
	}
	palette[0] = color.RGBA{A: 255}

	img := image.NewRGBA(image.Rect(0, 0, labels.Cols, labels.Rows))
	for row := 0; row < labels.Rows; row++ {
		for col := 0; col < labels.Cols; col++ {
			img.SetRGBA(col, row, palette[labels.At(row, col)])
		}
	}
	return img
}

// AnnotateCentroids returns an RGB copy of the mask with each centroid marked.
//
// Every point is marked once, at its truncated (row, col) pixel, in
// MarkerColor. Points outside the mask are skipped.
func AnnotateCentroids(mask *detection.Mask, points ...detection.Point) *image.RGBA {
	gray := MaskImage(mask)
	img := image.NewRGBA(gray.Bounds())
	for y := 0; y < mask.Rows; y++ {
		for x := 0; x < mask.Cols; x++ {
			v := gray.GrayAt(x, y).Y
			img.SetRGBA(x, y, color.RGBA{R: v, G: v, B: v, A: 255})
		}
	}

	r, g, b := MarkerColor.RGB255()
	marker := color.RGBA{R: r, G: g, B: b, A: 255}
	for _, p := range points {
		row, col := int(p.Row), int(p.Col)
		if row < 0 || row >= mask.Rows || col < 0 || col >= mask.Cols {
			continue
		}
		img.SetRGBA(col, row, marker)
	}
	return img
}

// EncodePNG encodes an image as base64 PNG, optionally scaled.
//
// DH-PSF frames are often only a few dozen pixels across, so scale enlarges
// them with nearest-neighbour sampling to keep pixel edges sharp. A scale of
// 1 (or anything not positive) leaves the image unchanged.
func EncodePNG(img image.Image, scale float64) (*ImageResult, error) {
	out := img
	if scale > 0 && scale != 1.0 {
		w := int(float64(img.Bounds().Dx()) * scale)
		h := int(float64(img.Bounds().Dy()) * scale)
		if w < 1 || h < 1 {
			return nil, fmt.Errorf("scale %v collapses image to %dx%d", scale, w, h)
		}
		out = imaging.Resize(img, w, h, imaging.NearestNeighbor)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, out, imaging.PNG); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}

	return &ImageResult{
		Width:       out.Bounds().Dx(),
		Height:      out.Bounds().Dy(),
		ImageBase64: base64.StdEncoding.EncodeToString(buf.Bytes()),
		MimeType:    "image/png",
	}, nil
}

// SavePNG writes an image to path, format chosen by the extension.
func SavePNG(path string, img image.Image) error {
	if err := imaging.Save(img, path); err != nil {
		return fmt.Errorf("failed to save %s: %w", path, err)
	}
	return nil
}
