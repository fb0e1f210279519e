package grade

import (
	"math"

	"github.com/ironsheep/colorgrade-mcp/internal/colorspace"
	"github.com/ironsheep/colorgrade-mcp/internal/recipe"
)

// HueWindow is the circular hue distance, in degrees, at which a target's
// influence reaches zero.
const HueWindow = 30.0

// Shift is an HSL delta: hue in degrees, saturation and lightness in
// percentage points.
type Shift struct {
	Hue float64 `json:"hue"`
	Sat float64 `json:"saturation"`
	Lum float64 `json:"luminance"`
}

// IsZero reports whether s changes nothing.
func (s Shift) IsZero() bool {
	return s.Hue == 0 && s.Sat == 0 && s.Lum == 0
}

type target struct {
	name  string
	color colorspace.RGB
	hsl   colorspace.HSL
	shift Shift
}

// Plan is a recipe compiled for per-pixel evaluation. It is immutable after
// Compile and safe for concurrent use.
type Plan struct {
	name    string
	targets []target
	tints   [3]colorspace.RGB
}

// Compile resolves every color in r once. A nil recipe compiles to a plan
// with no adjustments and neutral gray tints.
func Compile(r *recipe.Recipe) *Plan {
	p := &Plan{tints: [3]colorspace.RGB{colorspace.Neutral, colorspace.Neutral, colorspace.Neutral}}
	if r == nil {
		return p
	}

	p.name = r.Name
	p.tints = r.TonalPalette.Tints()
	p.targets = make([]target, 0, len(r.HSLAdjustments))
	for _, a := range r.HSLAdjustments {
		c := colorspace.HexToRGB(a.TargetColor)
		p.targets = append(p.targets, target{
			name:  a.Name,
			color: c,
			hsl:   c.HSL(),
			shift: Shift{
				Hue: float64(a.HueShift),
				Sat: float64(a.SaturationShift),
				Lum: float64(a.LuminanceShift),
			},
		})
	}
	return p
}

// Name returns the recipe name the plan was compiled from.
func (p *Plan) Name() string {
	return p.name
}

// Tint returns the tint color for a zone.
func (p *Plan) Tint(z Zone) colorspace.RGB {
	return p.tints[z]
}

// HueDistance returns the circular distance between two hues, in [0, 180].
func HueDistance(a, b float64) float64 {
	d := math.Abs(a - b)
	d = math.Mod(d, 360)
	return math.Min(d, 360-d)
}

// Weight returns the raised-cosine influence for a hue distance: 1 at d = 0,
// falling smoothly to 0 at d = HueWindow and staying 0 beyond.
func Weight(d float64) float64 {
	if d >= HueWindow {
		return 0
	}
	return (1 + math.Cos(math.Pi*d/HueWindow)) / 2
}

// accumulator folds weighted target shifts. It is passed by value so that a
// fold over targets has no shared state.
type accumulator struct {
	sumWeight float64
	sumHue    float64
	sumSat    float64
	sumLum    float64
}

func (a accumulator) add(w float64, s Shift) accumulator {
	return accumulator{
		sumWeight: a.sumWeight + w,
		sumHue:    a.sumHue + w*s.Hue,
		sumSat:    a.sumSat + w*s.Sat,
		sumLum:    a.sumLum + w*s.Lum,
	}
}

// shift returns the weighted average, or the zero shift when nothing
// contributed.
func (a accumulator) shift() Shift {
	if a.sumWeight <= 0 {
		return Shift{}
	}
	return Shift{
		Hue: a.sumHue / a.sumWeight,
		Sat: a.sumSat / a.sumWeight,
		Lum: a.sumLum / a.sumWeight,
	}
}

// ShiftFor resolves the aggregated shift for a pixel hue.
func (p *Plan) ShiftFor(hue float64) Shift {
	var acc accumulator
	for _, t := range p.targets {
		if w := Weight(HueDistance(hue, t.hsl.H)); w > 0 {
			acc = acc.add(w, t.shift)
		}
	}
	return acc.shift()
}

// Contribution is one target's share in a resolved shift.
type Contribution struct {
	Name     string  `json:"name,omitempty"`
	Target   string  `json:"target"`
	Hue      float64 `json:"target_hue"`
	Distance float64 `json:"distance"`
	Weight   float64 `json:"weight"`
	Shift    Shift   `json:"shift"`
}

// Contributions lists every target with a non-zero weight for hue, in recipe
// order.
func (p *Plan) Contributions(hue float64) []Contribution {
	var out []Contribution
	for _, t := range p.targets {
		d := HueDistance(hue, t.hsl.H)
		w := Weight(d)
		if w == 0 {
			continue
		}
		out = append(out, Contribution{
			Name:     t.name,
			Target:   t.color.Hex(),
			Hue:      t.hsl.H,
			Distance: d,
			Weight:   w,
			Shift:    t.shift,
		})
	}
	return out
}
