package main

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tealRecipe = `{
  "name": "Teal",
  "tonalPalette": {"shadows": "#003040", "midtones": "#708890", "highlights": "#e0f8ff"},
  "hslAdjustments": [{"targetColor": "#ff8000", "hueShift": 12, "saturationShift": "+10"}]
}`

// execute runs the root command with fresh flag values.
func execute(t *testing.T, args ...string) (stdout, stderr string, err error) {
	t.Helper()

	reset := func(fs *pflag.FlagSet) {
		fs.VisitAll(func(f *pflag.Flag) {
			_ = f.Value.Set(f.DefValue)
			f.Changed = false
		})
	}
	for _, c := range append([]*cobra.Command{rootCmd}, rootCmd.Commands()...) {
		reset(c.Flags())
		reset(c.PersistentFlags())
	}

	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(args)
	err = rootCmd.ExecuteContext(context.Background())
	return out.String(), errOut.String(), err
}

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func writeSource(t *testing.T, dir string, w, h int) string {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: uint8(x * 8), G: 120, B: uint8(y * 8), A: 255})
		}
	}
	path := filepath.Join(dir, "source.png")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, img))
	require.NoError(t, f.Close())
	return path
}

func decodeFile(t *testing.T, path string) image.Image {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	img, _, err := image.Decode(f)
	require.NoError(t, err)
	return img
}

func TestVersion(t *testing.T) {
	out, _, err := execute(t, "version")
	require.NoError(t, err)
	assert.Equal(t, version+"\n", out)
}

func TestValidate(t *testing.T) {
	dir := t.TempDir()
	good := writeFile(t, dir, "teal.json", tealRecipe)
	warned := writeFile(t, dir, "warned.yaml", "tonalPalette:\n  shadows: \"#000000\"\n  midtones: grey\n  highlights: \"#ffffff\"\n")

	out, errOut, err := execute(t, "validate", good, warned)
	require.NoError(t, err)
	assert.Contains(t, out, good+": ok")
	assert.Contains(t, out, warned+": ok")
	assert.Contains(t, errOut, warned+": warning: tonalPalette.midtones")
}

func TestValidate_Invalid(t *testing.T) {
	dir := t.TempDir()
	good := writeFile(t, dir, "teal.json", tealRecipe)
	missing := writeFile(t, dir, "missing.toml", "[tonalPalette]\nshadows = \"#000000\"\n")
	broken := writeFile(t, dir, "broken.json", "{")

	out, errOut, err := execute(t, "validate", good, missing, broken)
	assert.ErrorIs(t, err, errInvalid)
	assert.Contains(t, out, good+": ok")
	assert.Contains(t, errOut, missing+": error: tonalPalette.midtones")
	assert.Contains(t, errOut, missing+": error: tonalPalette.highlights")
	assert.Contains(t, errOut, broken+": error:")
}

func TestValidate_NoArgs(t *testing.T) {
	_, _, err := execute(t, "validate")
	assert.Error(t, err)
}

func TestGrade(t *testing.T) {
	dir := t.TempDir()
	rcp := writeFile(t, dir, "teal.json", tealRecipe)
	src := writeSource(t, dir, 32, 16)
	dst := filepath.Join(dir, "graded.jpg")

	out, _, err := execute(t, "grade", "--recipe", rcp, "--in", src, "--out", dst)
	require.NoError(t, err)
	assert.Contains(t, out, `"Teal"`)
	assert.Contains(t, out, "% of pixels")

	img := decodeFile(t, dst)
	assert.Equal(t, image.Rect(0, 0, 32, 16), img.Bounds())
}

func TestGrade_CompareAndMaxDimension(t *testing.T) {
	dir := t.TempDir()
	rcp := writeFile(t, dir, "teal.json", tealRecipe)
	src := writeSource(t, dir, 32, 16)
	dst := filepath.Join(dir, "compare.out")

	_, _, err := execute(t, "grade", "--recipe", rcp, "--in", src, "--out", dst,
		"--format", "png", "--max-dimension", "16", "--compare")
	require.NoError(t, err)

	img := decodeFile(t, dst)
	assert.Equal(t, image.Rect(0, 0, 32, 8), img.Bounds())
}

func TestGrade_Publish(t *testing.T) {
	dir := t.TempDir()
	rcp := writeFile(t, dir, "teal.json", tealRecipe)
	src := writeSource(t, dir, 8, 8)
	published := filepath.Join(dir, "published")
	conf := writeFile(t, dir, "colorgrade.toml", "log_level = \"error\"\n[publish]\ndir = \""+filepath.ToSlash(published)+"\"\n")

	out, _, err := execute(t, "--config", conf, "grade", "--recipe", rcp, "--in", src,
		"--out", filepath.Join(dir, "out.png"), "--publish")
	require.NoError(t, err)
	assert.Contains(t, out, "Published "+published)

	entries, err := os.ReadDir(published)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Regexp(t, `^teal-[0-9a-f]{12}\.png$`, entries[0].Name())
}

func TestGrade_Errors(t *testing.T) {
	dir := t.TempDir()
	rcp := writeFile(t, dir, "teal.json", tealRecipe)
	bad := writeFile(t, dir, "bad.json", `{"name": "no palette"}`)
	src := writeSource(t, dir, 8, 8)

	tests := []struct {
		name string
		args []string
	}{
		{"missing flags", []string{"grade", "--recipe", rcp}},
		{"no extension", []string{"grade", "--recipe", rcp, "--in", src, "--out", filepath.Join(dir, "out")}},
		{"unsupported format", []string{"grade", "--recipe", rcp, "--in", src, "--out", filepath.Join(dir, "out.webp")}},
		{"invalid recipe", []string{"grade", "--recipe", bad, "--in", src, "--out", filepath.Join(dir, "out.png")}},
		{"missing source", []string{"grade", "--recipe", rcp, "--in", filepath.Join(dir, "nope.png"), "--out", filepath.Join(dir, "out.png")}},
		{"publish unconfigured", []string{"grade", "--recipe", rcp, "--in", src, "--out", filepath.Join(dir, "out.png"), "--publish"}},
		{"bad log level", []string{"--log-level", "loud", "version"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := execute(t, tt.args...)
			assert.Error(t, err)
		})
	}

	_, err := os.Stat(filepath.Join(dir, "out.png"))
	assert.True(t, os.IsNotExist(err), "failed runs must not write output")
}
