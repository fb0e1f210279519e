package recipe

import (
	"fmt"
	"math/big"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/zclconf/go-cty/cty"
)

// decodeHCL reads the hand-authored HCL form of a recipe:
//
//	name = "Teal & Orange"
//
//	tonal_palette {
//	  shadows    = "#000033"
//	  midtones   = "#808080"
//	  highlights = "#fff8e0"
//	}
//
//	adjustment "skin" {
//	  target_color     = "#e0a080"
//	  hue_shift        = 5
//	  saturation_shift = -10
//	  luminance_shift  = "+3"
//	}
//
// Adjustment blocks are applied in source order; the label is optional.
func decodeHCL(src []byte, filename string) (*document, error) {
	file, diags := hclsyntax.ParseConfig(src, filename, hcl.Pos{Line: 1, Column: 1})
	if diags.HasErrors() {
		return nil, fmt.Errorf("parsing HCL recipe: %s", diags.Error())
	}

	body := file.Body.(*hclsyntax.Body)
	doc := &document{}

	for name, attr := range body.Attributes {
		v, err := attrValue("", attr)
		if err != nil {
			return nil, err
		}
		switch name {
		case "name":
			doc.Name = v
		case "description":
			doc.Description = v
		default:
			return nil, fmt.Errorf("%s: unknown recipe attribute %q", attr.SrcRange, name)
		}
	}

	for _, block := range body.Blocks {
		switch block.Type {
		case "tonal_palette":
			if doc.TonalPalette != nil {
				return nil, fmt.Errorf("%s: duplicate tonal_palette block", block.DefRange())
			}
			p, err := decodePaletteBlock(block)
			if err != nil {
				return nil, err
			}
			doc.TonalPalette = p
		case "adjustment":
			a, err := decodeAdjustmentBlock(block)
			if err != nil {
				return nil, err
			}
			doc.HSLAdjustments = append(doc.HSLAdjustments, *a)
		default:
			return nil, fmt.Errorf("%s: unknown block type %q", block.DefRange(), block.Type)
		}
	}

	return doc, nil
}

func decodePaletteBlock(block *hclsyntax.Block) (*paletteDoc, error) {
	p := &paletteDoc{}
	for name, attr := range block.Body.Attributes {
		v, err := attrValue("tonal_palette.", attr)
		if err != nil {
			return nil, err
		}
		switch name {
		case "shadows":
			p.Shadows = v
		case "midtones":
			p.Midtones = v
		case "highlights":
			p.Highlights = v
		default:
			return nil, fmt.Errorf("%s: unknown tonal_palette attribute %q", attr.SrcRange, name)
		}
	}
	return p, nil
}

func decodeAdjustmentBlock(block *hclsyntax.Block) (*adjustmentDoc, error) {
	a := &adjustmentDoc{}
	if len(block.Labels) > 1 {
		return nil, fmt.Errorf("%s: adjustment takes at most one label", block.DefRange())
	}
	if len(block.Labels) == 1 {
		a.Name = block.Labels[0]
	}

	for name, attr := range block.Body.Attributes {
		v, err := attrValue("adjustment.", attr)
		if err != nil {
			return nil, err
		}
		switch name {
		case "target_color":
			a.TargetColor = v
		case "hue_shift":
			a.HueShift = v
		case "saturation_shift":
			a.SaturationShift = v
		case "luminance_shift":
			a.LuminanceShift = v
		default:
			return nil, fmt.Errorf("%s: unknown adjustment attribute %q", attr.SrcRange, name)
		}
	}
	return a, nil
}

// attrValue evaluates a literal attribute and converts it to the loosely
// typed values normalize understands.
func attrValue(prefix string, attr *hclsyntax.Attribute) (any, error) {
	val, diags := attr.Expr.Value(nil)
	if diags.HasErrors() {
		return nil, fmt.Errorf("evaluating %s%s: %s", prefix, attr.Name, diags.Error())
	}
	return ctyToAny(val), nil
}

func ctyToAny(val cty.Value) any {
	if val.IsNull() || !val.IsKnown() {
		return nil
	}
	switch val.Type() {
	case cty.String:
		return val.AsString()
	case cty.Number:
		f, _ := val.AsBigFloat().Float64()
		if val.AsBigFloat().IsInt() {
			i, _ := val.AsBigFloat().Int(new(big.Int))
			if i.IsInt64() {
				return i.Int64()
			}
		}
		return f
	case cty.Bool:
		return val.True()
	default:
		return val.GoString()
	}
}
