package grade

import (
	"fmt"
	"math"

	"github.com/ironsheep/colorgrade-mcp/internal/colorspace"
)

// Tonal zone thresholds on perceived luminance, and the tint blend factor.
const (
	ShadowThreshold    = 0.33
	HighlightThreshold = 0.66
	TintStrength       = 0.30
)

// Zone is a luminance band.
type Zone int

const (
	Shadows Zone = iota
	Midtones
	Highlights
)

func (z Zone) String() string {
	switch z {
	case Shadows:
		return "shadows"
	case Midtones:
		return "midtones"
	case Highlights:
		return "highlights"
	default:
		return fmt.Sprintf("Zone(%d)", int(z))
	}
}

// MarshalText renders the zone name in JSON results.
func (z Zone) MarshalText() ([]byte, error) {
	return []byte(z.String()), nil
}

// ZoneFor selects the tonal zone for a perceived luminance in [0, 1].
// Threshold values belong to the darker zone.
func ZoneFor(luma float64) Zone {
	switch {
	case luma <= ShadowThreshold:
		return Shadows
	case luma <= HighlightThreshold:
		return Midtones
	default:
		return Highlights
	}
}

// adjust applies the hue-windowed shift to c. When the plan has no targets, or
// no target reaches c's hue, c is returned untouched.
func (p *Plan) adjust(c colorspace.RGB) (in colorspace.HSL, shift Shift, out colorspace.HSL, rgb colorspace.RGB) {
	in = c.HSL()
	if len(p.targets) == 0 {
		return in, Shift{}, in, c
	}

	shift = p.ShiftFor(in.H)
	if shift.IsZero() {
		return in, shift, in, c
	}

	out = colorspace.HSL{
		H: colorspace.WrapHue(in.H + shift.Hue),
		S: colorspace.ClampPercent(in.S + shift.Sat),
		L: colorspace.ClampPercent(in.L + shift.Lum),
	}
	r, g, b := colorspace.HSLToRGB(out.H, out.S, out.L)
	rgb = colorspace.RGB{R: colorspace.Clamp8(r), G: colorspace.Clamp8(g), B: colorspace.Clamp8(b)}
	return in, shift, out, rgb
}

// tint blends the zone tint for c's luminance into c.
func (p *Plan) tint(c colorspace.RGB) (luma float64, zone Zone, out colorspace.RGB) {
	luma = colorspace.Luma(c.R, c.G, c.B)
	zone = ZoneFor(luma)
	t := p.tints[zone]
	out = colorspace.RGB{
		R: blend(c.R, t.R),
		G: blend(c.G, t.G),
		B: blend(c.B, t.B),
	}
	return luma, zone, out
}

func blend(c, t uint8) uint8 {
	v := float64(c)*(1-TintStrength) + float64(t)*TintStrength
	return colorspace.Clamp8(int(math.Round(v)))
}

// GradePixel runs the full per-pixel transform.
func (p *Plan) GradePixel(r, g, b uint8) (uint8, uint8, uint8) {
	_, _, _, adjusted := p.adjust(colorspace.RGB{R: r, G: g, B: b})
	_, _, out := p.tint(adjusted)
	return out.R, out.G, out.B
}

// Trace records every intermediate value of the per-pixel transform.
type Trace struct {
	Input         colorspace.RGB `json:"input"`
	InputHSL      colorspace.HSL `json:"input_hsl"`
	Contributions []Contribution `json:"contributions"`
	Shift         Shift          `json:"shift"`
	AdjustedHSL   colorspace.HSL `json:"adjusted_hsl"`
	Adjusted      colorspace.RGB `json:"adjusted"`
	Luma          float64        `json:"luma"`
	Zone          Zone           `json:"zone"`
	Tint          colorspace.RGB `json:"tint"`
	Output        colorspace.RGB `json:"output"`
}

// Trace grades one pixel and returns the intermediate values. The Output
// always equals GradePixel's result.
func (p *Plan) Trace(r, g, b uint8) Trace {
	in := colorspace.RGB{R: r, G: g, B: b}
	inHSL, shift, adjHSL, adjusted := p.adjust(in)
	luma, zone, out := p.tint(adjusted)

	contributions := p.Contributions(inHSL.H)
	if contributions == nil {
		contributions = []Contribution{}
	}
	return Trace{
		Input:         in,
		InputHSL:      inHSL,
		Contributions: contributions,
		Shift:         shift,
		AdjustedHSL:   adjHSL,
		Adjusted:      adjusted,
		Luma:          luma,
		Zone:          zone,
		Tint:          p.tints[zone],
		Output:        out,
	}
}
