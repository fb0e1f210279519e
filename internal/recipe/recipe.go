// Package recipe defines the color-grade recipe model and turns loosely typed
// recipe documents into validated Recipe values.
//
// Recipes arrive from an upstream generator whose output is only structurally
// trustworthy. Loading therefore splits problems into two classes:
//
//   - Structural errors (a tonal palette entry is missing, the document does
//     not parse) are returned as errors; *ValidationError lists the offending
//     fields using the document's own field names.
//   - Content problems (a hex color that does not parse, a shift that is not
//     numeric) are never errors. The field falls back to neutral gray or 0 and
//     a Warning is recorded so callers can report it.
package recipe

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/ironsheep/colorgrade-mcp/internal/colorspace"
)

// Recipe is a fully normalised grading recipe.
//
// Every hex field holds either the original string (when it parsed) or the
// neutral gray fallback, so consumers may parse them with colorspace.HexToRGB
// without further checks.
type Recipe struct {
	// Name is an optional display name, e.g. "Teal & Orange".
	Name string `json:"name,omitempty"`

	// Description is optional free text supplied by the generator.
	Description string `json:"description,omitempty"`

	// TonalPalette holds the three luminance-band tint colors.
	TonalPalette TonalPalette `json:"tonalPalette"`

	// HSLAdjustments are the hue-windowed shifts in document order.
	// May be empty.
	HSLAdjustments []Adjustment `json:"hslAdjustments"`
}

// TonalPalette holds one tint color per tonal zone.
type TonalPalette struct {
	Shadows    string `json:"shadows" validate:"required"`
	Midtones   string `json:"midtones" validate:"required"`
	Highlights string `json:"highlights" validate:"required"`
}

// Adjustment is one hue-windowed HSL shift target.
type Adjustment struct {
	// Name is an optional label such as "skin" or "sky".
	Name string `json:"name,omitempty"`

	// TargetColor is the hex color whose hue centers the influence window.
	TargetColor string `json:"targetColor"`

	// HueShift is in degrees.
	HueShift int `json:"hueShift"`

	// SaturationShift and LuminanceShift are in percentage points.
	SaturationShift int `json:"saturationShift"`
	LuminanceShift  int `json:"luminanceShift"`
}

// Warning describes a recipe field that was replaced by its fallback value.
type Warning struct {
	Field   string `json:"field"`   // Document path, e.g. "hslAdjustments[1].hueShift"
	Message string `json:"message"` // Human-readable reason
	Value   any    `json:"value"`   // The value that was rejected
}

func (w Warning) String() string {
	return fmt.Sprintf("%s: %s (got %v)", w.Field, w.Message, w.Value)
}

// FieldError is a single structural validation failure.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError collects the structural problems found in a recipe.
type ValidationError struct {
	Errors []FieldError `json:"errors"`
}

func (v *ValidationError) Error() string {
	parts := make([]string, 0, len(v.Errors))
	for _, e := range v.Errors {
		parts = append(parts, e.Field+" "+e.Message)
	}
	return "invalid recipe: " + strings.Join(parts, "; ")
}

var validate *validator.Validate

func init() {
	validate = validator.New(validator.WithRequiredStructEnabled())

	// Report JSON field names rather than Go field names.
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
}

// Validate checks the structural shape of r. It returns nil or a
// *ValidationError. Color and shift contents are not checked here; see
// Normalize.
func Validate(r *Recipe) error {
	if r == nil {
		return &ValidationError{Errors: []FieldError{{Field: "recipe", Message: "is required"}}}
	}

	err := validate.Struct(r)
	if err == nil {
		return nil
	}

	verr := &ValidationError{}
	if fieldErrors, ok := err.(validator.ValidationErrors); ok {
		for _, e := range fieldErrors {
			verr.Errors = append(verr.Errors, FieldError{
				Field:   fieldPath(e.Namespace()),
				Message: validationMessage(e),
			})
		}
	} else {
		verr.Errors = append(verr.Errors, FieldError{Message: err.Error()})
	}
	return verr
}

// fieldPath drops the leading struct type name from a validator namespace.
func fieldPath(ns string) string {
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func validationMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "is required"
	default:
		return fmt.Sprintf("failed validation '%s'", e.Tag())
	}
}

// Tints returns the palette colors in shadow, midtone, highlight order,
// resolved to RGB with the neutral fallback.
func (p TonalPalette) Tints() [3]colorspace.RGB {
	return [3]colorspace.RGB{
		colorspace.HexToRGB(p.Shadows),
		colorspace.HexToRGB(p.Midtones),
		colorspace.HexToRGB(p.Highlights),
	}
}

// Neutral returns a recipe that leaves hue and saturation alone and tints
// each zone with a gray of matching lightness.
func Neutral() *Recipe {
	return &Recipe{
		Name: "neutral",
		TonalPalette: TonalPalette{
			Shadows:    "#000000",
			Midtones:   "#808080",
			Highlights: "#ffffff",
		},
	}
}
