package imaging

import (
	"image"
	"image/color"
	"math"
	"testing"

	"github.com/ironsheep/colorgrade-mcp/internal/grade"
)

// createInMemoryImage creates an in-memory test image
func createInMemoryImage(width, height int, c color.Color) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

// createPatternImage creates an image with different colors in each quadrant
func createPatternImage(width, height int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			var c color.Color
			if x < width/2 && y < height/2 {
				c = color.RGBA{255, 0, 0, 255} // Red top-left
			} else if x >= width/2 && y < height/2 {
				c = color.RGBA{0, 255, 0, 255} // Green top-right
			} else if x < width/2 && y >= height/2 {
				c = color.RGBA{0, 0, 255, 255} // Blue bottom-left
			} else {
				c = color.RGBA{255, 255, 255, 255} // White bottom-right
			}
			img.Set(x, y, c)
		}
	}
	return img
}

func TestSampleColor(t *testing.T) {
	img := createInMemoryImage(100, 100, color.RGBA{255, 128, 64, 255})

	result, err := SampleColor(img, 50, 50)
	if err != nil {
		t.Fatalf("SampleColor failed: %v", err)
	}

	if result.Hex != "#ff8040" {
		t.Errorf("Hex: got %s, want #ff8040", result.Hex)
	}

	if result.RGB.R != 255 || result.RGB.G != 128 || result.RGB.B != 64 {
		t.Errorf("RGB: got (%d,%d,%d), want (255,128,64)", result.RGB.R, result.RGB.G, result.RGB.B)
	}

	if result.RGBA.R != 255 || result.RGBA.G != 128 || result.RGBA.B != 64 || result.RGBA.A != 255 {
		t.Errorf("RGBA: got (%d,%d,%d,%d), want (255,128,64,255)",
			result.RGBA.R, result.RGBA.G, result.RGBA.B, result.RGBA.A)
	}

	if math.Abs(result.HSL.H-20.0) > 0.5 {
		t.Errorf("HSL.H: got %f, want ~20", result.HSL.H)
	}
}

func TestSampleColor_KnownColors(t *testing.T) {
	tests := []struct {
		name     string
		color    color.RGBA
		wantHex  string
		wantHue  float64
		wantZone grade.Zone
	}{
		{"pure red", color.RGBA{255, 0, 0, 255}, "#ff0000", 0, grade.Shadows},
		{"pure green", color.RGBA{0, 255, 0, 255}, "#00ff00", 120, grade.Midtones},
		{"pure blue", color.RGBA{0, 0, 255, 255}, "#0000ff", 240, grade.Shadows},
		{"white", color.RGBA{255, 255, 255, 255}, "#ffffff", 0, grade.Highlights},
		{"black", color.RGBA{0, 0, 0, 255}, "#000000", 0, grade.Shadows},
		{"gray", color.RGBA{128, 128, 128, 255}, "#808080", 0, grade.Midtones},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img := createInMemoryImage(10, 10, tt.color)
			result, err := SampleColor(img, 5, 5)
			if err != nil {
				t.Fatalf("SampleColor failed: %v", err)
			}

			if result.Hex != tt.wantHex {
				t.Errorf("Hex: got %s, want %s", result.Hex, tt.wantHex)
			}
			if math.Abs(result.HSL.H-tt.wantHue) > 0.5 {
				t.Errorf("HSL.H: got %f, want %f", result.HSL.H, tt.wantHue)
			}
			if result.Zone != tt.wantZone {
				t.Errorf("Zone: got %s, want %s", result.Zone, tt.wantZone)
			}
		})
	}
}

func TestSampleColor_NonPremultiplied(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 2, 2))
	img.SetNRGBA(1, 1, color.NRGBA{R: 200, G: 100, B: 50, A: 128})

	result, err := SampleColor(img, 1, 1)
	if err != nil {
		t.Fatalf("SampleColor failed: %v", err)
	}
	if result.Hex != "#c86432" || result.RGBA.A != 128 {
		t.Errorf("got %s alpha %d, want #c86432 alpha 128", result.Hex, result.RGBA.A)
	}
}

func TestSampleColor_OffsetBounds(t *testing.T) {
	// Coordinates are relative to the image's top-left corner.
	img := image.NewNRGBA(image.Rect(10, 10, 20, 20))
	img.SetNRGBA(10, 10, color.NRGBA{R: 1, G: 2, B: 3, A: 255})

	result, err := SampleColor(img, 0, 0)
	if err != nil {
		t.Fatalf("SampleColor failed: %v", err)
	}
	if result.Hex != "#010203" {
		t.Errorf("Hex: got %s, want #010203", result.Hex)
	}
	if _, err := SampleColor(img, 10, 0); err == nil {
		t.Error("SampleColor should fail one past the right edge")
	}
}

func TestSampleColor_OutOfBounds(t *testing.T) {
	img := createInMemoryImage(100, 100, color.RGBA{255, 0, 0, 255})

	tests := []struct {
		name string
		x, y int
	}{
		{"negative x", -1, 50},
		{"negative y", 50, -1},
		{"x too large", 100, 50},
		{"y too large", 50, 100},
		{"both too large", 100, 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := SampleColor(img, tt.x, tt.y)
			if err == nil {
				t.Error("SampleColor should fail for out-of-bounds coordinates")
			}
		})
	}
}

func TestSampleColor_EdgeCoordinates(t *testing.T) {
	img := createInMemoryImage(100, 100, color.RGBA{255, 0, 0, 255})

	tests := []struct {
		name string
		x, y int
	}{
		{"top-left", 0, 0},
		{"top-right", 99, 0},
		{"bottom-left", 0, 99},
		{"bottom-right", 99, 99},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := SampleColor(img, tt.x, tt.y)
			if err != nil {
				t.Errorf("SampleColor failed for valid edge coordinate (%d,%d): %v", tt.x, tt.y, err)
			}
		})
	}
}

func TestSampleColorsMulti(t *testing.T) {
	img := createPatternImage(100, 100)

	points := []LabeledPoint{
		{X: 25, Y: 25, Label: "red"},
		{X: 75, Y: 25, Label: "green"},
		{X: 25, Y: 75, Label: "blue"},
		{X: 75, Y: 75, Label: "white"},
	}

	result, err := SampleColorsMulti(img, points)
	if err != nil {
		t.Fatalf("SampleColorsMulti failed: %v", err)
	}

	if len(result.Samples) != 4 {
		t.Fatalf("expected 4 samples, got %d", len(result.Samples))
	}

	for i, sample := range result.Samples {
		if sample.Label != points[i].Label {
			t.Errorf("sample %d label: got %s, want %s", i, sample.Label, points[i].Label)
		}
	}

	expectedHex := []string{"#ff0000", "#00ff00", "#0000ff", "#ffffff"}
	for i, sample := range result.Samples {
		if sample.Color.Hex != expectedHex[i] {
			t.Errorf("sample %d (%s) hex: got %s, want %s",
				i, sample.Label, sample.Color.Hex, expectedHex[i])
		}
	}
}

func TestSampleColorsMulti_EmptyPoints(t *testing.T) {
	img := createInMemoryImage(100, 100, color.RGBA{255, 0, 0, 255})

	result, err := SampleColorsMulti(img, []LabeledPoint{})
	if err != nil {
		t.Fatalf("SampleColorsMulti failed: %v", err)
	}

	if len(result.Samples) != 0 {
		t.Errorf("expected 0 samples, got %d", len(result.Samples))
	}
}

func TestSampleColorsMulti_OutOfBounds(t *testing.T) {
	img := createInMemoryImage(100, 100, color.RGBA{255, 0, 0, 255})

	points := []LabeledPoint{
		{X: 50, Y: 50, Label: "valid"},
		{X: 200, Y: 50, Label: "invalid"},
	}

	_, err := SampleColorsMulti(img, points)
	if err == nil {
		t.Error("SampleColorsMulti should fail when any point is out of bounds")
	}
}

func TestDominantColors(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 100, 100))
	for y := 0; y < 100; y++ {
		for x := 0; x < 100; x++ {
			if x < 80 {
				img.Set(x, y, color.RGBA{255, 0, 0, 255}) // 80% red
			} else {
				img.Set(x, y, color.RGBA{0, 255, 0, 255}) // 20% green
			}
		}
	}

	result, err := DominantColors(img, 5, nil)
	if err != nil {
		t.Fatalf("DominantColors failed: %v", err)
	}

	if len(result.Colors) != 2 {
		t.Fatalf("expected 2 colors, got %d", len(result.Colors))
	}

	// Quantized red is #f00000 (255 >> 4 << 4 = 240).
	if result.Colors[0].Hex != "#f00000" || result.Colors[0].Percentage != 80 {
		t.Errorf("first color: got %s at %f%%, want #f00000 at 80%%",
			result.Colors[0].Hex, result.Colors[0].Percentage)
	}
	if result.Colors[1].Hex != "#00f000" || result.Colors[1].Percentage != 20 {
		t.Errorf("second color: got %s at %f%%, want #00f000 at 20%%",
			result.Colors[1].Hex, result.Colors[1].Percentage)
	}
	if math.Abs(result.Colors[1].HSL.H-120) > 0.5 {
		t.Errorf("second color hue: got %f, want 120", result.Colors[1].HSL.H)
	}
}

func TestDominantColors_WithRegion(t *testing.T) {
	img := createPatternImage(100, 100)

	region := &Region{X1: 0, Y1: 0, X2: 50, Y2: 50}
	result, err := DominantColors(img, 5, region)
	if err != nil {
		t.Fatalf("DominantColors with region failed: %v", err)
	}

	if len(result.Colors) != 1 {
		t.Fatalf("expected only red in top-left region, got %d colors", len(result.Colors))
	}
	if result.Colors[0].Percentage != 100 {
		t.Errorf("expected red to fill the top-left region, got %f%%", result.Colors[0].Percentage)
	}
}

func TestDominantColors_InvalidRegion(t *testing.T) {
	img := createPatternImage(100, 100)

	for _, r := range []Region{
		{X1: 50, Y1: 0, X2: 50, Y2: 10},
		{X1: 0, Y1: 0, X2: 101, Y2: 10},
		{X1: -1, Y1: 0, X2: 10, Y2: 10},
	} {
		if _, err := DominantColors(img, 5, &r); err == nil {
			t.Errorf("DominantColors should reject region %+v", r)
		}
	}
}

func TestDominantColors_Count(t *testing.T) {
	img := createPatternImage(100, 100)

	result, err := DominantColors(img, 2, nil)
	if err != nil {
		t.Fatalf("DominantColors failed: %v", err)
	}
	if len(result.Colors) != 2 {
		t.Errorf("expected 2 colors, got %d", len(result.Colors))
	}

	// Four equal quadrants: ties are ordered by hex.
	if result.Colors[0].Hex != "#0000f0" || result.Colors[1].Hex != "#00f000" {
		t.Errorf("unexpected tie order: %s, %s", result.Colors[0].Hex, result.Colors[1].Hex)
	}

	if _, err := DominantColors(img, 0, nil); err == nil {
		t.Error("DominantColors should reject a zero count")
	}
}

func TestDominantColors_IgnoresTransparent(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 10, 10))

	result, err := DominantColors(img, 3, nil)
	if err != nil {
		t.Fatalf("DominantColors failed: %v", err)
	}
	if len(result.Colors) != 0 {
		t.Errorf("expected no colors for a fully transparent image, got %d", len(result.Colors))
	}

	img.SetNRGBA(0, 0, color.NRGBA{R: 255, A: 255})
	result, err = DominantColors(img, 3, nil)
	if err != nil {
		t.Fatalf("DominantColors failed: %v", err)
	}
	if len(result.Colors) != 1 || result.Colors[0].Percentage != 100 {
		t.Errorf("expected a single opaque color at 100%%, got %+v", result.Colors)
	}
}

func TestDominantColors_SingleColor(t *testing.T) {
	img := createInMemoryImage(100, 100, color.RGBA{128, 128, 128, 255})

	result, err := DominantColors(img, 3, nil)
	if err != nil {
		t.Fatalf("DominantColors failed: %v", err)
	}

	if len(result.Colors) != 1 {
		t.Fatalf("expected 1 color for uniform image, got %d", len(result.Colors))
	}

	if result.Colors[0].Percentage != 100 {
		t.Errorf("expected 100%% for single color, got %f%%", result.Colors[0].Percentage)
	}
}
