package recipe

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Format identifies a recipe document encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
	FormatHCL  Format = "hcl"
)

// FormatFromPath picks the document format from a file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".toml":
		return FormatTOML, nil
	case ".hcl", ".grade":
		return FormatHCL, nil
	default:
		return "", fmt.Errorf("unsupported recipe file extension %q", filepath.Ext(path))
	}
}

// ParseFormat converts a user-supplied format name.
func ParseFormat(name string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(name))); f {
	case FormatJSON, FormatYAML, FormatTOML, FormatHCL:
		return f, nil
	case "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("unsupported recipe format %q", name)
	}
}

// Load reads and parses a recipe file, choosing the format by extension.
func Load(path string) (*Recipe, []Warning, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("reading recipe file: %w", err)
	}
	return parse(data, format, path)
}

// Parse decodes a recipe document, normalises its contents and validates its
// structure. Warnings are returned even when err is a *ValidationError.
func Parse(data []byte, format Format) (*Recipe, []Warning, error) {
	return parse(data, format, "recipe."+string(format))
}

func parse(data []byte, format Format, filename string) (*Recipe, []Warning, error) {
	doc, err := decode(data, format, filename)
	if err != nil {
		return nil, nil, err
	}

	r, warnings := normalize(doc)
	if err := Validate(r); err != nil {
		return r, warnings, err
	}
	return r, warnings, nil
}

func decode(data []byte, format Format, filename string) (*document, error) {
	var doc document
	switch format {
	case FormatJSON:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.UseNumber()
		if err := dec.Decode(&doc); err != nil {
			return nil, fmt.Errorf("parsing JSON recipe: %w", err)
		}
	case FormatYAML:
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("parsing YAML recipe: %w", err)
		}
	case FormatTOML:
		if err := toml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("parsing TOML recipe: %w", err)
		}
	case FormatHCL:
		d, err := decodeHCL(data, filename)
		if err != nil {
			return nil, err
		}
		doc = *d
	default:
		return nil, fmt.Errorf("unsupported recipe format %q", format)
	}
	return &doc, nil
}

// JSON returns the recipe as indented JSON in the upstream field layout.
func (r *Recipe) JSON() string {
	b, _ := json.MarshalIndent(r, "", "  ")
	return string(b)
}
