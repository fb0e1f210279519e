package recipe

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/ironsheep/colorgrade-mcp/internal/colorspace"
)

// document is the loosely typed shape shared by every recipe format. Values
// are kept as decoded (string, float64, int64, ...) until Normalize.
type document struct {
	Name           any             `json:"name" yaml:"name" toml:"name"`
	Description    any             `json:"description" yaml:"description" toml:"description"`
	TonalPalette   *paletteDoc     `json:"tonalPalette" yaml:"tonalPalette" toml:"tonalPalette"`
	HSLAdjustments []adjustmentDoc `json:"hslAdjustments" yaml:"hslAdjustments" toml:"hslAdjustments"`
}

type paletteDoc struct {
	Shadows    any `json:"shadows" yaml:"shadows" toml:"shadows"`
	Midtones   any `json:"midtones" yaml:"midtones" toml:"midtones"`
	Highlights any `json:"highlights" yaml:"highlights" toml:"highlights"`
}

type adjustmentDoc struct {
	Name            any `json:"name" yaml:"name" toml:"name"`
	TargetColor     any `json:"targetColor" yaml:"targetColor" toml:"targetColor"`
	HueShift        any `json:"hueShift" yaml:"hueShift" toml:"hueShift"`
	SaturationShift any `json:"saturationShift" yaml:"saturationShift" toml:"saturationShift"`
	LuminanceShift  any `json:"luminanceShift" yaml:"luminanceShift" toml:"luminanceShift"`
}

// normalize converts a decoded document into a Recipe, substituting fallbacks
// for unusable colors and shifts.
func normalize(doc *document) (*Recipe, []Warning) {
	var warnings []Warning
	r := &Recipe{
		Name:        text(doc.Name),
		Description: text(doc.Description),
	}

	if doc.TonalPalette != nil {
		r.TonalPalette = TonalPalette{
			Shadows:    hexField("tonalPalette.shadows", doc.TonalPalette.Shadows, &warnings),
			Midtones:   hexField("tonalPalette.midtones", doc.TonalPalette.Midtones, &warnings),
			Highlights: hexField("tonalPalette.highlights", doc.TonalPalette.Highlights, &warnings),
		}
	}

	r.HSLAdjustments = make([]Adjustment, 0, len(doc.HSLAdjustments))
	for i, a := range doc.HSLAdjustments {
		prefix := fmt.Sprintf("hslAdjustments[%d].", i)
		target := hexField(prefix+"targetColor", a.TargetColor, &warnings)
		if target == "" {
			// A missing target is as unusable as a malformed one.
			warnings = append(warnings, Warning{Field: prefix + "targetColor", Message: "missing, using " + colorspace.Neutral.Hex()})
			target = colorspace.Neutral.Hex()
		}
		r.HSLAdjustments = append(r.HSLAdjustments, Adjustment{
			Name:            text(a.Name),
			TargetColor:     target,
			HueShift:        shiftField(prefix+"hueShift", a.HueShift, &warnings),
			SaturationShift: shiftField(prefix+"saturationShift", a.SaturationShift, &warnings),
			LuminanceShift:  shiftField(prefix+"luminanceShift", a.LuminanceShift, &warnings),
		})
	}

	return r, warnings
}

// hexField returns v as a usable hex string. Absent values stay empty so that
// validation can report them; present but malformed values become neutral gray.
func hexField(field string, v any, warnings *[]Warning) string {
	if v == nil {
		return ""
	}
	str, isString := v.(string)
	if !isString {
		*warnings = append(*warnings, Warning{
			Field:   field,
			Message: "hex color must be a string, using " + colorspace.Neutral.Hex(),
			Value:   v,
		})
		return colorspace.Neutral.Hex()
	}
	s := strings.TrimSpace(str)
	if s == "" {
		return ""
	}
	if _, err := colorspace.ParseHex(s); err != nil {
		*warnings = append(*warnings, Warning{
			Field:   field,
			Message: "invalid hex color, using " + colorspace.Neutral.Hex(),
			Value:   v,
		})
		return colorspace.Neutral.Hex()
	}
	return s
}

func shiftField(field string, v any, warnings *[]Warning) int {
	n, err := ParseShift(v)
	if err != nil {
		*warnings = append(*warnings, Warning{Field: field, Message: err.Error() + ", using 0", Value: v})
	}
	return n
}

// Shift parse failures. ParseShift returns 0 alongside either.
var (
	ErrNotNumeric = errors.New("not numeric")
	ErrOutOfRange = errors.New("out of range")
)

// ParseShift converts a free-form shift value to whole degrees or percentage
// points. Values without a number fail with ErrNotNumeric; values beyond
// ±math.MaxInt32 fail with ErrOutOfRange.
//
// Strings are read like a leading-integer parse: optional sign, then digits,
// anything after the digits is ignored ("+15", "-10°", "12.5%" -> 15, -10, 12).
// Numbers are truncated toward zero. A nil value is a missing field and
// yields 0 without complaint.
func ParseShift(v any) (int, error) {
	switch x := v.(type) {
	case nil:
		return 0, nil
	case int:
		return bounded(int64(x))
	case int64:
		return bounded(x)
	case uint64:
		if x > math.MaxInt32 {
			return 0, ErrOutOfRange
		}
		return int(x), nil
	case float64:
		return truncate(x)
	case float32:
		return truncate(float64(x))
	case json.Number:
		return ParseShift(x.String())
	case string:
		return leadingInt(x)
	default:
		return 0, ErrNotNumeric
	}
}

func bounded(n int64) (int, error) {
	if n > math.MaxInt32 || n < -math.MaxInt32 {
		return 0, ErrOutOfRange
	}
	return int(n), nil
}

func truncate(f float64) (int, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, ErrNotNumeric
	}
	if math.Abs(f) > math.MaxInt32 {
		return 0, ErrOutOfRange
	}
	return int(f), nil
}

func leadingInt(s string) (int, error) {
	s = strings.TrimSpace(s)
	end := 0
	if end < len(s) && (s[end] == '+' || s[end] == '-') {
		end++
	}
	digits := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == digits {
		return 0, ErrNotNumeric
	}
	n, err := strconv.ParseInt(s[:end], 10, 64)
	if err != nil {
		return 0, ErrOutOfRange
	}
	return bounded(n)
}

func text(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	default:
		return fmt.Sprint(x)
	}
}
