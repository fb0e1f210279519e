package imaging

import (
	"fmt"
	"image"
	"image/color"
	"sort"

	"github.com/ironsheep/colorgrade-mcp/internal/colorspace"
	"github.com/ironsheep/colorgrade-mcp/internal/grade"
)

// RGBAColor represents an RGBA color with 8-bit components including alpha.
//
// The alpha component represents opacity:
//   - 0 = fully transparent
//   - 255 = fully opaque
type RGBAColor struct {
	R uint8 `json:"r"`
	G uint8 `json:"g"`
	B uint8 `json:"b"`
	A uint8 `json:"a"`
}

// ColorResult contains a sampled color in the representations a recipe
// author needs.
//
//   - Hex: lower-case "#rrggbb", directly usable as a recipe targetColor
//   - RGB / RGBA: 8-bit components
//   - HSL: hue in degrees, saturation and lightness in percent, unrounded
//   - Luma / Zone: perceived luminance and the tonal zone whose tint the
//     pixel would receive
type ColorResult struct {
	Hex  string         `json:"hex"`
	RGB  colorspace.RGB `json:"rgb"`
	RGBA RGBAColor      `json:"rgba"`
	HSL  colorspace.HSL `json:"hsl"`
	Luma float64        `json:"luma"`
	Zone grade.Zone     `json:"zone"`
}

func colorResult(r, g, b, a uint8) ColorResult {
	c := colorspace.RGB{R: r, G: g, B: b}
	luma := colorspace.Luma(r, g, b)
	return ColorResult{
		Hex:  c.Hex(),
		RGB:  c,
		RGBA: RGBAColor{R: r, G: g, B: b, A: a},
		HSL:  c.HSL(),
		Luma: luma,
		Zone: grade.ZoneFor(luma),
	}
}

// at8 reads the non-premultiplied 8-bit color at (x, y).
func at8(img image.Image, x, y int) (r, g, b, a uint8) {
	if n, ok := img.(*image.NRGBA); ok {
		i := n.PixOffset(x, y)
		return n.Pix[i], n.Pix[i+1], n.Pix[i+2], n.Pix[i+3]
	}
	c := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
	return c.R, c.G, c.B, c.A
}

// SampleColor extracts the color value at a specific pixel coordinate.
//
// Coordinates are 0-based with origin at the image's top-left corner:
//   - Valid X range: 0 to width-1
//   - Valid Y range: 0 to height-1
//
// Colors are read non-premultiplied, the way grading sees them, so a
// half-transparent pixel reports its true RGB with A = 128.
func SampleColor(img image.Image, x, y int) (*ColorResult, error) {
	bounds := img.Bounds()
	px, py := bounds.Min.X+x, bounds.Min.Y+y
	if x < 0 || y < 0 || px >= bounds.Max.X || py >= bounds.Max.Y {
		return nil, fmt.Errorf("coordinates (%d,%d) outside image bounds %dx%d", x, y, bounds.Dx(), bounds.Dy())
	}

	r, g, b, a := at8(img, px, py)
	c := colorResult(r, g, b, a)
	return &c, nil
}

// LabeledPoint represents a pixel coordinate with an optional descriptive
// label, such as "skin" or "sky".
type LabeledPoint struct {
	X     int    `json:"x"`
	Y     int    `json:"y"`
	Label string `json:"label,omitempty"`
}

// LabeledColorResult combines a color sample with its location and optional label.
type LabeledColorResult struct {
	Label string      `json:"label,omitempty"`
	X     int         `json:"x"`
	Y     int         `json:"y"`
	Color ColorResult `json:"color"`
}

// MultiColorResult contains color samples from multiple points, in input order.
type MultiColorResult struct {
	Samples []LabeledColorResult `json:"samples"`
}

// SampleColorsMulti extracts colors at multiple pixel coordinates in a single call.
//
// On error no partial results are returned.
func SampleColorsMulti(img image.Image, points []LabeledPoint) (*MultiColorResult, error) {
	results := make([]LabeledColorResult, 0, len(points))

	for _, p := range points {
		c, err := SampleColor(img, p.X, p.Y)
		if err != nil {
			return nil, fmt.Errorf("failed to sample point (%d,%d): %w", p.X, p.Y, err)
		}
		results = append(results, LabeledColorResult{
			Label: p.Label,
			X:     p.X,
			Y:     p.Y,
			Color: *c,
		})
	}

	return &MultiColorResult{Samples: results}, nil
}

// Region represents a rectangular region within an image, relative to the
// image's top-left corner.
//
//   - (X1, Y1) is the top-left corner (inclusive)
//   - (X2, Y2) is the bottom-right corner (exclusive)
type Region struct {
	X1 int `json:"x1"`
	Y1 int `json:"y1"`
	X2 int `json:"x2"`
	Y2 int `json:"y2"`
}

// Rect returns the region translated into img's coordinate space.
func (r Region) Rect(bounds image.Rectangle) image.Rectangle {
	return image.Rect(r.X1, r.Y1, r.X2, r.Y2).Add(bounds.Min)
}

// check validates r against an image of the given bounds.
func (r Region) check(bounds image.Rectangle) error {
	if r.X1 >= r.X2 || r.Y1 >= r.Y2 {
		return fmt.Errorf("invalid region (%d,%d)-(%d,%d): x1 must be < x2, y1 must be < y2",
			r.X1, r.Y1, r.X2, r.Y2)
	}
	if r.X1 < 0 || r.Y1 < 0 || r.X2 > bounds.Dx() || r.Y2 > bounds.Dy() {
		return fmt.Errorf("region (%d,%d)-(%d,%d) outside image bounds %dx%d",
			r.X1, r.Y1, r.X2, r.Y2, bounds.Dx(), bounds.Dy())
	}
	return nil
}

// ColorFrequency represents a quantized color and how much of the image it covers.
type ColorFrequency struct {
	Hex        string         `json:"hex"`
	Percentage float64        `json:"percentage"`
	RGB        colorspace.RGB `json:"rgb"`
	HSL        colorspace.HSL `json:"hsl"`
}

// DominantColorsResult contains the most frequently occurring colors in an
// image, most common first.
type DominantColorsResult struct {
	Colors []ColorFrequency `json:"colors"`
}

// quantBits is the number of bits kept per channel when grouping colors.
const quantBits = 4

// DominantColors extracts the N most common colors from an image or region.
// A nil region analyzes the whole image. Fully transparent pixels are ignored.
//
// # Color Quantization
//
// Each channel keeps its top four bits, so colors within the same 16-unit
// bucket per channel are grouped together:
//
//	quantized = (original >> 4) << 4
//
// For example, colors #f0f0f0 and #fafafa are both reported as #f0f0f0.
// Ties in frequency are broken by hex value so the result is deterministic.
func DominantColors(img image.Image, count int, region *Region) (*DominantColorsResult, error) {
	if count <= 0 {
		return nil, fmt.Errorf("count must be positive, got %d", count)
	}

	bounds := img.Bounds()
	rect := bounds
	if region != nil {
		if err := region.check(bounds); err != nil {
			return nil, err
		}
		rect = region.Rect(bounds)
	}

	var histogram [1 << (3 * quantBits)]int
	total := 0
	for y := rect.Min.Y; y < rect.Max.Y; y++ {
		for x := rect.Min.X; x < rect.Max.X; x++ {
			r, g, b, a := at8(img, x, y)
			if a == 0 {
				continue
			}
			key := int(r>>(8-quantBits))<<(2*quantBits) | int(g>>(8-quantBits))<<quantBits | int(b>>(8-quantBits))
			histogram[key]++
			total++
		}
	}

	colors := make([]ColorFrequency, 0, 64)
	if total == 0 {
		return &DominantColorsResult{Colors: colors}, nil
	}

	const mask = 1<<quantBits - 1
	for key, n := range histogram {
		if n == 0 {
			continue
		}
		c := colorspace.RGB{
			R: uint8(key>>(2*quantBits)) << (8 - quantBits),
			G: uint8(key>>quantBits&mask) << (8 - quantBits),
			B: uint8(key&mask) << (8 - quantBits),
		}
		colors = append(colors, ColorFrequency{
			Hex:        c.Hex(),
			Percentage: float64(n) / float64(total) * 100,
			RGB:        c,
			HSL:        c.HSL(),
		})
	}

	sort.Slice(colors, func(i, j int) bool {
		if colors[i].Percentage != colors[j].Percentage {
			return colors[i].Percentage > colors[j].Percentage
		}
		return colors[i].Hex < colors[j].Hex
	})

	if len(colors) > count {
		colors = colors[:count]
	}

	return &DominantColorsResult{Colors: colors}, nil
}
