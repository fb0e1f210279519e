package recipe

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const jsonRecipe = `{
  "name": "Warm Film",
  "description": "Lifted blacks, creamy highlights",
  "tonalPalette": {"shadows": "#000033", "midtones": "808080", "highlights": "#fff8e0"},
  "hslAdjustments": [
    {"name": "skin", "targetColor": "#e0a080", "hueShift": "+5", "saturationShift": -10, "luminanceShift": "3%"},
    {"targetColor": "#3366cc", "hueShift": 12.9, "saturationShift": "lots", "luminanceShift": null}
  ]
}`

const yamlRecipe = `
name: Warm Film
description: Lifted blacks, creamy highlights
tonalPalette:
  shadows: "#000033"
  midtones: "808080"
  highlights: "#fff8e0"
hslAdjustments:
  - name: skin
    targetColor: "#e0a080"
    hueShift: "+5"
    saturationShift: -10
    luminanceShift: 3%
  - targetColor: "#3366cc"
    hueShift: 12.9
    saturationShift: lots
`

const tomlRecipe = `
name = "Warm Film"
description = "Lifted blacks, creamy highlights"

[tonalPalette]
shadows = "#000033"
midtones = "808080"
highlights = "#fff8e0"

[[hslAdjustments]]
name = "skin"
targetColor = "#e0a080"
hueShift = "+5"
saturationShift = -10
luminanceShift = "3%"

[[hslAdjustments]]
targetColor = "#3366cc"
hueShift = 12.9
saturationShift = "lots"
`

const hclRecipe = `
name        = "Warm Film"
description = "Lifted blacks, creamy highlights"

tonal_palette {
  shadows    = "#000033"
  midtones   = "808080"
  highlights = "#fff8e0"
}

adjustment "skin" {
  target_color     = "#e0a080"
  hue_shift        = "+5"
  saturation_shift = -10
  luminance_shift  = "3%"
}

adjustment {
  target_color     = "#3366cc"
  hue_shift        = 12.9
  saturation_shift = "lots"
}
`

func TestParse_FormatsAgree(t *testing.T) {
	want := &Recipe{
		Name:        "Warm Film",
		Description: "Lifted blacks, creamy highlights",
		TonalPalette: TonalPalette{
			Shadows:    "#000033",
			Midtones:   "808080",
			Highlights: "#fff8e0",
		},
		HSLAdjustments: []Adjustment{
			{Name: "skin", TargetColor: "#e0a080", HueShift: 5, SaturationShift: -10, LuminanceShift: 3},
			{TargetColor: "#3366cc", HueShift: 12, SaturationShift: 0, LuminanceShift: 0},
		},
	}

	tests := []struct {
		format Format
		src    string
	}{
		{FormatJSON, jsonRecipe},
		{FormatYAML, yamlRecipe},
		{FormatTOML, tomlRecipe},
		{FormatHCL, hclRecipe},
	}

	for _, tt := range tests {
		t.Run(string(tt.format), func(t *testing.T) {
			got, warnings, err := Parse([]byte(tt.src), tt.format)
			require.NoError(t, err)
			assert.Equal(t, want, got)

			require.Len(t, warnings, 1)
			assert.Equal(t, "hslAdjustments[1].saturationShift", warnings[0].Field)
		})
	}
}

func TestParse_MissingPaletteKeys(t *testing.T) {
	src := `{"tonalPalette": {"shadows": "#000000"}, "hslAdjustments": []}`

	r, _, err := Parse([]byte(src), FormatJSON)
	require.Error(t, err)
	require.NotNil(t, r)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)

	fields := make([]string, 0, len(verr.Errors))
	for _, e := range verr.Errors {
		fields = append(fields, e.Field)
		assert.Equal(t, "is required", e.Message)
	}
	assert.ElementsMatch(t, []string{"tonalPalette.midtones", "tonalPalette.highlights"}, fields)
}

func TestParse_MissingPaletteBlock(t *testing.T) {
	_, _, err := Parse([]byte(`{"hslAdjustments": []}`), FormatJSON)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Len(t, verr.Errors, 3)
}

func TestParse_BadHexFallsBackToGray(t *testing.T) {
	src := `{
	  "tonalPalette": {"shadows": "#zzzzzz", "midtones": "#808080", "highlights": 12},
	  "hslAdjustments": [{"targetColor": "teal", "hueShift": 10}, {"hueShift": 4}]
	}`

	r, warnings, err := Parse([]byte(src), FormatJSON)
	require.NoError(t, err)

	assert.Equal(t, "#808080", r.TonalPalette.Shadows)
	assert.Equal(t, "#808080", r.TonalPalette.Highlights)
	assert.Equal(t, "#808080", r.HSLAdjustments[0].TargetColor)
	assert.Equal(t, "#808080", r.HSLAdjustments[1].TargetColor)
	assert.Equal(t, 10, r.HSLAdjustments[0].HueShift)

	fields := make([]string, 0, len(warnings))
	for _, w := range warnings {
		fields = append(fields, w.Field)
	}
	assert.ElementsMatch(t, []string{
		"tonalPalette.shadows",
		"tonalPalette.highlights",
		"hslAdjustments[0].targetColor",
		"hslAdjustments[1].targetColor",
	}, fields)
}

func TestParse_EmptyAdjustments(t *testing.T) {
	src := `{"tonalPalette": {"shadows": "#000033", "midtones": "#808080", "highlights": "#fff8e0"}}`

	r, warnings, err := Parse([]byte(src), FormatJSON)
	require.NoError(t, err)
	assert.Empty(t, warnings)
	assert.NotNil(t, r.HSLAdjustments)
	assert.Empty(t, r.HSLAdjustments)
}

func TestParse_SyntaxErrors(t *testing.T) {
	tests := []struct {
		format Format
		src    string
	}{
		{FormatJSON, `{"tonalPalette": `},
		{FormatYAML, "tonalPalette: [unclosed"},
		{FormatTOML, "[tonalPalette\nshadows = 1"},
		{FormatHCL, "tonal_palette {"},
		{FormatHCL, "bogus = 1"},
		{FormatHCL, "tonal_palette {\n  sepia = \"#000000\"\n}"},
		{FormatHCL, "adjustment \"a\" \"b\" {}"},
		{Format("xml"), "<recipe/>"},
	}

	for _, tt := range tests {
		t.Run(string(tt.format), func(t *testing.T) {
			_, _, err := Parse([]byte(tt.src), tt.format)
			require.Error(t, err)

			_, isValidation := err.(*ValidationError)
			assert.False(t, isValidation, "syntax error reported as validation error")
		})
	}
}

func TestParseShift(t *testing.T) {
	tests := []struct {
		name    string
		in      any
		want    int
		wantErr error
	}{
		{"nil", nil, 0, nil},
		{"int", 7, 7, nil},
		{"int64", int64(-12), -12, nil},
		{"float truncates", 12.9, 12, nil},
		{"negative float truncates toward zero", -12.9, -12, nil},
		{"json number", json.Number("8.5"), 8, nil},
		{"plus sign", "+15", 15, nil},
		{"degrees suffix", "-10°", -10, nil},
		{"percent suffix", "25%", 25, nil},
		{"decimal string", "12.7", 12, nil},
		{"padded", "  4 ", 4, nil},
		{"word", "lots", 0, ErrNotNumeric},
		{"empty", "", 0, ErrNotNumeric},
		{"sign only", "-", 0, ErrNotNumeric},
		{"bool", true, 0, ErrNotNumeric},
		{"string overflow", "99999999999", 0, ErrOutOfRange},
		{"huge string overflow", "-999999999999999999999999", 0, ErrOutOfRange},
		{"json number overflow", json.Number("99999999999"), 0, ErrOutOfRange},
		{"int64 overflow", int64(99999999999), 0, ErrOutOfRange},
		{"int64 underflow", int64(-99999999999), 0, ErrOutOfRange},
		{"uint64 overflow", uint64(99999999999), 0, ErrOutOfRange},
		{"float overflow", 1e12, 0, ErrOutOfRange},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseShift(tt.in)
			assert.Equal(t, tt.want, got)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestParse_ShiftWarnings(t *testing.T) {
	src := `{
	  "tonalPalette": {"shadows": "#000000", "midtones": "#808080", "highlights": "#ffffff"},
	  "hslAdjustments": [{"targetColor": "#ff0000", "hueShift": 99999999999, "saturationShift": "lots"}]
	}`

	r, warnings, err := Parse([]byte(src), FormatJSON)
	require.NoError(t, err)
	assert.Equal(t, 0, r.HSLAdjustments[0].HueShift)

	require.Len(t, warnings, 2)
	assert.Equal(t, "hslAdjustments[0].hueShift", warnings[0].Field)
	assert.Equal(t, "out of range, using 0", warnings[0].Message)
	assert.Equal(t, "hslAdjustments[0].saturationShift", warnings[1].Field)
	assert.Equal(t, "not numeric, using 0", warnings[1].Message)
}

func TestParse_NumericHexFallsBackToGray(t *testing.T) {
	tests := []struct {
		name   string
		src    string
		format Format
	}{
		{"json", `{"tonalPalette": {"shadows": 123456, "midtones": "#808080", "highlights": "#ffffff"}}`, FormatJSON},
		{"yaml", "tonalPalette:\n  shadows: 123456\n  midtones: \"#808080\"\n  highlights: \"#ffffff\"\n", FormatYAML},
		{"toml", "[tonalPalette]\nshadows = 123456\nmidtones = \"#808080\"\nhighlights = \"#ffffff\"\n", FormatTOML},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, warnings, err := Parse([]byte(tt.src), tt.format)
			require.NoError(t, err)
			assert.Equal(t, "#808080", r.TonalPalette.Shadows)
			require.Len(t, warnings, 1)
			assert.Equal(t, "tonalPalette.shadows", warnings[0].Field)
			assert.Contains(t, warnings[0].Message, "must be a string")
		})
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()

	for name, src := range map[string]string{
		"warm.json":  jsonRecipe,
		"warm.yml":   yamlRecipe,
		"warm.toml":  tomlRecipe,
		"warm.grade": hclRecipe,
	} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, name)
			require.NoError(t, os.WriteFile(path, []byte(src), 0o644))

			r, _, err := Load(path)
			require.NoError(t, err)
			assert.Equal(t, "Warm Film", r.Name)
			assert.Len(t, r.HSLAdjustments, 2)
		})
	}
}

func TestLoad_Errors(t *testing.T) {
	_, _, err := Load("recipe.txt")
	assert.Error(t, err)

	_, _, err = Load(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat(" YML ")
	require.NoError(t, err)
	assert.Equal(t, FormatYAML, f)

	f, err = ParseFormat("hcl")
	require.NoError(t, err)
	assert.Equal(t, FormatHCL, f)

	_, err = ParseFormat("ini")
	assert.Error(t, err)
}

func TestTonalPaletteTints(t *testing.T) {
	p := TonalPalette{Shadows: "#000033", Midtones: "nope", Highlights: "#fff8e0"}
	tints := p.Tints()

	assert.Equal(t, uint8(0x33), tints[0].B)
	assert.Equal(t, uint8(128), tints[1].R)
	assert.Equal(t, uint8(0xe0), tints[2].B)
}

func TestValidate_Nil(t *testing.T) {
	assert.Error(t, Validate(nil))
	assert.NoError(t, Validate(Neutral()))
}

func TestRecipeJSON_RoundTrip(t *testing.T) {
	r, _, err := Parse([]byte(jsonRecipe), FormatJSON)
	require.NoError(t, err)

	again, warnings, err := Parse([]byte(r.JSON()), FormatJSON)
	require.NoError(t, err)
	assert.Empty(t, warnings)
	assert.Equal(t, r, again)
}
