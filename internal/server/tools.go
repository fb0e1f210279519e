package server

// Tool represents an MCP tool definition
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

// regionNames are the names accepted by image_crop's region parameter.
var regionNames = []string{"top-left", "top-right", "bottom-left", "bottom-right", "top-half", "bottom-half", "left-half", "right-half", "center"}

// outputFormats are the encodings a graded or cropped image can be returned in.
var outputFormats = []string{"png", "jpeg", "gif", "bmp", "tiff"}

func pathProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": "Absolute path to the source image file",
	}
}

// withRecipe adds the recipe, recipe_path and recipe_format properties to
// a tool's properties.
func withRecipe(props map[string]interface{}, purpose string) map[string]interface{} {
	props["recipe"] = map[string]interface{}{
		"type": []string{"object", "string"},
		"description": "Inline grading recipe " + purpose + ". Either a JSON object with tonalPalette " +
			"(shadows, midtones, highlights hex colors) and hslAdjustments (targetColor, hueShift, " +
			"saturationShift, luminanceShift), or a document string in recipe_format.",
	}
	props["recipe_path"] = map[string]interface{}{
		"type":        "string",
		"description": "Path to a recipe file (.json, .yaml, .toml or .hcl), instead of recipe",
	}
	props["recipe_format"] = map[string]interface{}{
		"type":        "string",
		"enum":        []string{"json", "yaml", "toml", "hcl"},
		"description": "Format of a string recipe. Default json",
		"default":     "json",
	}
	return props
}

// GetToolDefinitions returns all available tools
func GetToolDefinitions() []Tool {
	return []Tool{
		// Source Information
		{
			Name:        "image_load",
			Description: "Load a source image and return its dimensions, detected format, color depth and alpha. The decoded image is cached for subsequent calls.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty(),
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "image_dimensions",
			Description: "Get the width and height of an image file.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty(),
				},
				"required": []string{"path"},
			},
		},

		// Color Operations
		{
			Name:        "image_sample_color",
			Description: "Get the exact color at a pixel as hex, RGB and HSL, with its luma and the tonal zone (shadows, midtones, highlights) it falls in. Use the hex as a recipe targetColor.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty(),
					"x": map[string]interface{}{
						"type":        "integer",
						"description": "X coordinate (0-based, from left)",
					},
					"y": map[string]interface{}{
						"type":        "integer",
						"description": "Y coordinate (0-based, from top)",
					},
				},
				"required": []string{"path", "x", "y"},
			},
		},
		{
			Name:        "image_sample_colors_multi",
			Description: "Get color values at multiple pixel coordinates in a single call, e.g. skin, sky and foliage reference points.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty(),
					"points": map[string]interface{}{
						"type": "array",
						"items": map[string]interface{}{
							"type": "object",
							"properties": map[string]interface{}{
								"x":     map[string]interface{}{"type": "integer"},
								"y":     map[string]interface{}{"type": "integer"},
								"label": map[string]interface{}{"type": "string", "description": "Optional label for this point"},
							},
							"required": []string{"x", "y"},
						},
						"description": "Array of points to sample",
					},
				},
				"required": []string{"path", "points"},
			},
		},
		{
			Name:        "image_dominant_colors",
			Description: "Return the N most dominant colors of an image or region. With a recipe, the palette of the graded result is returned.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": withRecipe(map[string]interface{}{
					"path": pathProperty(),
					"count": map[string]interface{}{
						"type":        "integer",
						"description": "Number of dominant colors to return (default 5)",
						"default":     5,
					},
					"region": map[string]interface{}{
						"type": "object",
						"properties": map[string]interface{}{
							"x1": map[string]interface{}{"type": "integer"},
							"y1": map[string]interface{}{"type": "integer"},
							"x2": map[string]interface{}{"type": "integer"},
							"y2": map[string]interface{}{"type": "integer"},
						},
						"description": "Optional region to analyze. If omitted, analyzes entire image.",
					},
				}, "to grade the image with first"),
				"required": []string{"path"},
			},
		},

		// Region Operations
		{
			Name:        "image_crop",
			Description: "Crop a region given by coordinates or by name and return it base64-encoded. With a recipe, the graded result is cropped. Use this to zoom into areas where a grade needs detailed examination.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": withRecipe(map[string]interface{}{
					"path": pathProperty(),
					"x1": map[string]interface{}{
						"type":        "integer",
						"description": "Left edge X coordinate (0-based)",
					},
					"y1": map[string]interface{}{
						"type":        "integer",
						"description": "Top edge Y coordinate (0-based)",
					},
					"x2": map[string]interface{}{
						"type":        "integer",
						"description": "Right edge X coordinate (exclusive)",
					},
					"y2": map[string]interface{}{
						"type":        "integer",
						"description": "Bottom edge Y coordinate (exclusive)",
					},
					"region": map[string]interface{}{
						"type":        "string",
						"enum":        regionNames,
						"description": "Named region to extract instead of x1/y1/x2/y2",
					},
					"scale": map[string]interface{}{
						"type":        "number",
						"description": "Optional scale factor (e.g., 2.0 to double size). Default 1.0",
						"default":     1.0,
					},
					"format": map[string]interface{}{
						"type":        "string",
						"enum":        outputFormats,
						"description": "Output encoding. Default png",
						"default":     "png",
					},
				}, "to grade the image with before cropping"),
				"required": []string{"path"},
			},
		},

		// Grading
		{
			Name:        "grade_validate_recipe",
			Description: "Validate a grading recipe. Returns structural errors (missing tonal palette entries), warnings for values that fall back to neutral gray or 0, and the normalized recipe.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": withRecipe(map[string]interface{}{}, "to validate"),
			},
		},
		{
			Name:        "grade_apply",
			Description: "Apply a grading recipe to a source image and return the graded image base64-encoded, optionally side by side with the source and optionally published to the configured store. The result also reports how far the grade moved the pixels.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": withRecipe(map[string]interface{}{
					"path": pathProperty(),
					"format": map[string]interface{}{
						"type":        "string",
						"enum":        outputFormats,
						"description": "Output encoding. Default png",
						"default":     "png",
					},
					"max_dimension": map[string]interface{}{
						"type":        "integer",
						"description": "Longest output side in pixels; the source is downscaled before grading. 0 keeps full resolution. Defaults to the server's preview size.",
					},
					"quality": map[string]interface{}{
						"type":        "integer",
						"description": "JPEG quality 1-100. Defaults to the server setting.",
					},
					"compare": map[string]interface{}{
						"type":        "boolean",
						"description": "Return the source and graded images side by side",
						"default":     false,
					},
					"publish": map[string]interface{}{
						"type":        "boolean",
						"description": "Also store the encoded image in the configured publish directory or bucket and return its location",
						"default":     false,
					},
				}, "to apply"),
				"required": []string{"path"},
			},
		},
		{
			Name:        "grade_inspect_pixel",
			Description: "Trace how a recipe grades one source pixel: input HSL, the contributing hue targets and their weights, the blended shift, the tonal zone and tint, and the output color.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": withRecipe(map[string]interface{}{
					"path": pathProperty(),
					"x": map[string]interface{}{
						"type":        "integer",
						"description": "X coordinate (0-based, from left)",
					},
					"y": map[string]interface{}{
						"type":        "integer",
						"description": "Y coordinate (0-based, from top)",
					},
				}, "to trace"),
				"required": []string{"path", "x", "y"},
			},
		},
	}
}

// handleToolsList returns the list of available tools
func (s *Server) handleToolsList(req *MCPRequest) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"tools": GetToolDefinitions(),
		},
	}
}
