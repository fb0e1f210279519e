package imaging

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/color"

	"github.com/disintegration/imaging"

	"github.com/ironsheep/colorgrade-mcp/internal/grade"
)

// EncodedImage is an image serialized for transport in a JSON result.
type EncodedImage struct {
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	ImageBase64 string `json:"image_base64"`
	MimeType    string `json:"mime_type"`
}

// EncodeBase64 encodes img in the given format and wraps it for a JSON
// result. quality applies to JPEG only; see grade.Encode.
func EncodeBase64(img image.Image, format imaging.Format, quality int) (*EncodedImage, error) {
	data, err := EncodeBytes(img, format, quality)
	if err != nil {
		return nil, err
	}
	return &EncodedImage{
		Width:       img.Bounds().Dx(),
		Height:      img.Bounds().Dy(),
		ImageBase64: base64.StdEncoding.EncodeToString(data),
		MimeType:    grade.MIMEType(format),
	}, nil
}

// EncodeBytes encodes img in the given format.
func EncodeBytes(img image.Image, format imaging.Format, quality int) ([]byte, error) {
	var buf bytes.Buffer
	if err := grade.Encode(&buf, img, format, quality); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Crop extracts a rectangular region from an image, optionally scaling the
// result. A scale of 0 or 1 keeps the native resolution; other positive
// values resize with the Lanczos filter, which keeps grading detail sharp
// when zooming in.
func Crop(img image.Image, region Region, scale float64) (*image.NRGBA, error) {
	if err := region.check(img.Bounds()); err != nil {
		return nil, err
	}
	if scale < 0 {
		return nil, fmt.Errorf("scale must not be negative, got %g", scale)
	}

	cropped := imaging.Crop(img, region.Rect(img.Bounds()))

	if scale != 1.0 && scale > 0 {
		newWidth := max(int(float64(cropped.Bounds().Dx())*scale), 1)
		newHeight := max(int(float64(cropped.Bounds().Dy())*scale), 1)
		cropped = imaging.Resize(cropped, newWidth, newHeight, imaging.Lanczos)
	}
	return cropped, nil
}

// NamedRegion resolves a region name against an image of the given bounds.
//
// Supported names: top-left, top-right, bottom-left, bottom-right, top-half,
// bottom-half, left-half, right-half and center (the middle 50%).
func NamedRegion(bounds image.Rectangle, name string) (Region, error) {
	w := bounds.Dx()
	h := bounds.Dy()
	midX := w / 2
	midY := h / 2

	switch name {
	case "top-left":
		return Region{0, 0, midX, midY}, nil
	case "top-right":
		return Region{midX, 0, w, midY}, nil
	case "bottom-left":
		return Region{0, midY, midX, h}, nil
	case "bottom-right":
		return Region{midX, midY, w, h}, nil
	case "top-half":
		return Region{0, 0, w, midY}, nil
	case "bottom-half":
		return Region{0, midY, w, h}, nil
	case "left-half":
		return Region{0, 0, midX, h}, nil
	case "right-half":
		return Region{midX, 0, w, h}, nil
	case "center":
		qW := w / 4
		qH := h / 4
		return Region{qW, qH, w - qW, h - qH}, nil
	default:
		return Region{}, fmt.Errorf("unknown region: %s", name)
	}
}

// Fit scales img down so neither side exceeds maxDim, preserving aspect
// ratio. Images already within bounds, or a maxDim of 0, are returned as is.
func Fit(img image.Image, maxDim int) image.Image {
	b := img.Bounds()
	if maxDim <= 0 || (b.Dx() <= maxDim && b.Dy() <= maxDim) {
		return img
	}
	return imaging.Fit(img, maxDim, maxDim, imaging.Lanczos)
}

// SideBySide places before and after next to each other on a transparent
// canvas, before on the left. Images of different heights are top-aligned.
func SideBySide(before, after image.Image) *image.NRGBA {
	bb, ab := before.Bounds(), after.Bounds()
	canvas := imaging.New(bb.Dx()+ab.Dx(), max(bb.Dy(), ab.Dy()), color.NRGBA{})
	canvas = imaging.Paste(canvas, before, image.Pt(0, 0))
	return imaging.Paste(canvas, after, image.Pt(bb.Dx(), 0))
}
