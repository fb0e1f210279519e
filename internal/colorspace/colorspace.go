// Package colorspace converts colors between hex strings, 8-bit RGB and HSL.
//
// All functions are pure and safe for concurrent use. HSL values use the
// conventional units of the grading engine:
//   - H: hue in degrees, [0, 360)
//   - S: saturation in percent, [0, 100]
//   - L: lightness in percent, [0, 100]
//
// Hex parsing never fails from the caller's point of view: HexToRGB resolves
// anything it cannot read to Neutral. ParseHex is the strict variant used when
// the caller wants to know that a fallback happened.
package colorspace

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
)

// RGB is an 8-bit sRGB triple.
type RGB struct {
	R uint8 `json:"r"` // Red component (0-255)
	G uint8 `json:"g"` // Green component (0-255)
	B uint8 `json:"b"` // Blue component (0-255)
}

// HSL is a color in hue/saturation/lightness space.
type HSL struct {
	H float64 `json:"h"` // Hue: 0-360 degrees (0=red, 120=green, 240=blue)
	S float64 `json:"s"` // Saturation: 0-100 percent
	L float64 `json:"l"` // Lightness: 0-100 percent
}

// Neutral is the mid gray substituted for any hex string that cannot be parsed.
var Neutral = RGB{R: 128, G: 128, B: 128}

// ParseHex parses a 6-digit hex color with an optional leading '#'.
func ParseHex(hex string) (RGB, error) {
	s := strings.TrimPrefix(strings.TrimSpace(hex), "#")
	if len(s) != 6 {
		return RGB{}, fmt.Errorf("invalid hex color %q: must be 6 hex digits", hex)
	}
	val, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return RGB{}, fmt.Errorf("invalid hex color %q: %w", hex, err)
	}
	return RGB{R: uint8(val >> 16), G: uint8(val >> 8), B: uint8(val)}, nil
}

// HexToRGB parses hex like ParseHex but returns Neutral instead of an error.
func HexToRGB(hex string) RGB {
	c, err := ParseHex(hex)
	if err != nil {
		return Neutral
	}
	return c
}

// Hex returns the color as "#rrggbb".
func (c RGB) Hex() string {
	return c.colorful().Hex()
}

// HSL converts the color to HSL.
func (c RGB) HSL() HSL {
	return RGBToHSL(c.R, c.G, c.B)
}

func (c RGB) colorful() colorful.Color {
	return colorful.Color{R: float64(c.R) / 255, G: float64(c.G) / 255, B: float64(c.B) / 255}
}

// RGBToHSL converts 8-bit RGB values to HSL.
//
// Achromatic input (r == g == b) yields H = 0 and S = 0.
func RGBToHSL(r, g, b uint8) HSL {
	h, s, l := RGB{R: r, G: g, B: b}.colorful().Hsl()
	if h >= 360 {
		h -= 360
	}
	return HSL{H: h, S: s * 100, L: l * 100}
}

// HSLToRGB converts HSL back to RGB channels rounded to the nearest integer.
//
// The results are not clamped; use Clamp8 before storing them in a raster.
// Hue outside [0, 360) is wrapped first.
func HSLToRGB(h, s, l float64) (r, g, b int) {
	c := colorful.Hsl(WrapHue(h), s/100, l/100)
	return int(math.Round(c.R * 255)), int(math.Round(c.G * 255)), int(math.Round(c.B * 255))
}

// WrapHue maps any hue in degrees into [0, 360). Negative hues wrap forward.
func WrapHue(h float64) float64 {
	h = math.Mod(h, 360)
	if h < 0 {
		h += 360
	}
	if h >= 360 {
		h = 0
	}
	return h
}

// Luma returns the perceived luminance (0.299R + 0.587G + 0.114B) / 255,
// a value in [0, 1].
func Luma(r, g, b uint8) float64 {
	return (0.299*float64(r) + 0.587*float64(g) + 0.114*float64(b)) / 255
}

// Clamp8 clamps v into [0, 255].
func Clamp8(v int) uint8 {
	switch {
	case v < 0:
		return 0
	case v > 255:
		return 255
	}
	return uint8(v)
}

// ClampPercent clamps v into [0, 100].
func ClampPercent(v float64) float64 {
	return math.Max(0, math.Min(100, v))
}
