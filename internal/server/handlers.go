package server

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"image"

	"github.com/ironsheep/colorgrade-mcp/internal/grade"
	"github.com/ironsheep/colorgrade-mcp/internal/imaging"
	"github.com/ironsheep/colorgrade-mcp/internal/publish"
	"github.com/ironsheep/colorgrade-mcp/internal/recipe"
)

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	// Name is the tool to invoke (e.g., "image_load", "grade_apply").
	Name string `json:"name"`

	// Arguments contains the tool-specific parameters as JSON.
	Arguments json.RawMessage `json:"arguments"`
}

// handleToolsCall processes a tools/call request and executes the specified tool.
//
// The response wraps the tool result in MCP's content format:
//
//	{
//	  "content": [{"type": "text", "text": "<JSON result>"}]
//	}
//
// Tool execution errors return a JSON-RPC error response with code -32000.
func (s *Server) handleToolsCall(ctx context.Context, req *MCPRequest) *MCPResponse {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.errorResponse(req.ID, -32602, "Invalid params", err.Error())
	}

	log.Debugf("tools/call %s", params.Name)
	result, err := s.executeTool(ctx, params.Name, params.Arguments)
	if err != nil {
		log.Warningf("tool %s failed: %s", params.Name, err)
		return s.errorResponse(req.ID, -32000, "Tool execution failed", err.Error())
	}

	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"content": []map[string]interface{}{
				{
					"type": "text",
					"text": mustMarshalJSON(result),
				},
			},
		},
	}
}

// executeTool dispatches tool execution to the appropriate handler function.
//
// Each tool handler:
//  1. Unmarshals arguments from JSON
//  2. Applies default values for optional parameters
//  3. Loads the source image from cache and, when a recipe is given,
//     grades it
//  4. Calls the appropriate imaging or grade function
//  5. Returns the result or error
func (s *Server) executeTool(ctx context.Context, name string, args json.RawMessage) (interface{}, error) {
	switch name {
	// Source Information
	case "image_load":
		return s.handleImageLoad(args)
	case "image_dimensions":
		return s.handleImageDimensions(args)

	// Color Operations
	case "image_sample_color":
		return s.handleImageSampleColor(args)
	case "image_sample_colors_multi":
		return s.handleImageSampleColorsMulti(args)
	case "image_dominant_colors":
		return s.handleImageDominantColors(ctx, args)

	// Region Operations
	case "image_crop":
		return s.handleImageCrop(ctx, args)

	// Grading
	case "grade_validate_recipe":
		return s.handleGradeValidateRecipe(args)
	case "grade_apply":
		return s.handleGradeApply(ctx, args)
	case "grade_inspect_pixel":
		return s.handleGradeInspectPixel(args)

	default:
		return nil, fmt.Errorf("unknown tool: %s", name)
	}
}

// errorResponse creates a JSON-RPC error response with the given details.
func (s *Server) errorResponse(id interface{}, code int, message, data string) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error: &MCPError{
			Code:    code,
			Message: message,
			Data:    data,
		},
	}
}

// mustMarshalJSON marshals v to indented JSON, panicking on failure.
// Tool results are plain data structs, so marshalling cannot fail.
func mustMarshalJSON(v interface{}) string {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		panic(err)
	}
	return string(data)
}

// decodeArgs unmarshals tool arguments. Absent arguments decode as an empty
// object so that tools with only optional parameters can be called bare.
func decodeArgs(args json.RawMessage, v interface{}) error {
	if len(bytes.TrimSpace(args)) == 0 {
		args = json.RawMessage(`{}`)
	}
	return json.Unmarshal(args, v)
}

// === Recipe Arguments ===

// recipeArgs is embedded by every tool that accepts a recipe. A recipe is
// given either inline, as a JSON object or as a document string in
// RecipeFormat, or by RecipePath.
type recipeArgs struct {
	Recipe       json.RawMessage `json:"recipe"`
	RecipePath   string          `json:"recipe_path"`
	RecipeFormat string          `json:"recipe_format"`
}

func (a recipeArgs) hasRecipe() bool {
	return a.RecipePath != "" || (len(a.Recipe) > 0 && string(a.Recipe) != "null")
}

// check rejects argument combinations that no recipe could satisfy.
func (a recipeArgs) check() error {
	if !a.hasRecipe() {
		return errors.New("recipe or recipe_path is required")
	}
	if a.RecipePath != "" && len(a.Recipe) > 0 {
		return errors.New("give either recipe or recipe_path, not both")
	}
	if a.RecipeFormat != "" {
		if _, err := recipe.ParseFormat(a.RecipeFormat); err != nil {
			return err
		}
	}
	return nil
}

// load parses the recipe. Warnings are returned alongside a
// *recipe.ValidationError so callers can report both.
func (a recipeArgs) load() (*recipe.Recipe, []recipe.Warning, error) {
	if err := a.check(); err != nil {
		return nil, nil, err
	}
	if a.RecipePath != "" {
		return recipe.Load(a.RecipePath)
	}

	var text string
	if err := json.Unmarshal(a.Recipe, &text); err == nil {
		format := recipe.FormatJSON
		if a.RecipeFormat != "" {
			format, _ = recipe.ParseFormat(a.RecipeFormat)
		}
		return recipe.Parse([]byte(text), format)
	}
	return recipe.Parse(a.Recipe, recipe.FormatJSON)
}

// gradedImage loads the source at path and, if a recipe is given, grades it
// at maxDim. The returned plan is nil when no recipe was given.
func (s *Server) gradedImage(ctx context.Context, path string, ra recipeArgs, maxDim int) (img image.Image, source image.Image, plan *grade.Plan, warnings []recipe.Warning, err error) {
	src, err := s.cache.Load(path)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	src = imaging.Fit(src, maxDim)
	if !ra.hasRecipe() {
		return src, src, nil, nil, nil
	}

	r, warnings, err := ra.load()
	if err != nil {
		return nil, nil, nil, warnings, err
	}
	plan = grade.Compile(r)
	graded, err := grade.ApplyImage(ctx, src, plan)
	if err != nil {
		return nil, nil, nil, warnings, err
	}
	return graded, src, plan, warnings, nil
}

// === Source Information Handlers ===

type imageLoadArgs struct {
	Path string `json:"path"`
}

func (s *Server) handleImageLoad(args json.RawMessage) (interface{}, error) {
	var a imageLoadArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	return imaging.LoadImageInfo(s.cache, a.Path)
}

type imageDimensionsArgs struct {
	Path string `json:"path"`
}

func (s *Server) handleImageDimensions(args json.RawMessage) (interface{}, error) {
	var a imageDimensionsArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	return imaging.GetDimensions(s.cache, a.Path)
}

// === Color Operation Handlers ===

type imageSampleColorArgs struct {
	Path string `json:"path"`
	X    int    `json:"x"`
	Y    int    `json:"y"`
}

func (s *Server) handleImageSampleColor(args json.RawMessage) (interface{}, error) {
	var a imageSampleColorArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	img, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, err
	}
	return imaging.SampleColor(img, a.X, a.Y)
}

type imageSampleColorsMultiArgs struct {
	Path   string                 `json:"path"`
	Points []imaging.LabeledPoint `json:"points"`
}

func (s *Server) handleImageSampleColorsMulti(args json.RawMessage) (interface{}, error) {
	var a imageSampleColorsMultiArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	img, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, err
	}
	return imaging.SampleColorsMulti(img, a.Points)
}

type imageDominantColorsArgs struct {
	Path   string          `json:"path"`
	Count  int             `json:"count"`
	Region *imaging.Region `json:"region,omitempty"`
	recipeArgs
}

type dominantColorsResult struct {
	*imaging.DominantColorsResult
	Graded   bool             `json:"graded"`
	Warnings []recipe.Warning `json:"warnings,omitempty"`
}

func (s *Server) handleImageDominantColors(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a imageDominantColorsArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if a.Count == 0 {
		a.Count = 5
	}
	img, _, plan, warnings, err := s.gradedImage(ctx, a.Path, a.recipeArgs, 0)
	if err != nil {
		return nil, err
	}
	res, err := imaging.DominantColors(img, a.Count, a.Region)
	if err != nil {
		return nil, err
	}
	return &dominantColorsResult{DominantColorsResult: res, Graded: plan != nil, Warnings: warnings}, nil
}

// === Region Operation Handlers ===

type imageCropArgs struct {
	Path string `json:"path"`
	X1   int    `json:"x1"`
	Y1   int    `json:"y1"`
	X2   int    `json:"x2"`
	Y2   int    `json:"y2"`

	// Region, when set, names a region instead of coordinates.
	Region string  `json:"region"`
	Scale  float64 `json:"scale"`
	Format string  `json:"format"`
	recipeArgs
}

type cropResult struct {
	*imaging.EncodedImage
	Region   imaging.Region   `json:"region"`
	Graded   bool             `json:"graded"`
	Warnings []recipe.Warning `json:"warnings,omitempty"`
}

func (s *Server) handleImageCrop(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a imageCropArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if a.Scale == 0 {
		a.Scale = 1.0
	}
	format, err := grade.ParseFormat(a.Format)
	if err != nil {
		return nil, err
	}

	img, _, plan, warnings, err := s.gradedImage(ctx, a.Path, a.recipeArgs, 0)
	if err != nil {
		return nil, err
	}

	region := imaging.Region{X1: a.X1, Y1: a.Y1, X2: a.X2, Y2: a.Y2}
	if a.Region != "" {
		region, err = imaging.NamedRegion(img.Bounds(), a.Region)
		if err != nil {
			return nil, err
		}
	}

	cropped, err := imaging.Crop(img, region, a.Scale)
	if err != nil {
		return nil, err
	}
	enc, err := imaging.EncodeBase64(cropped, format, s.cfg.JPEGQuality)
	if err != nil {
		return nil, err
	}
	return &cropResult{EncodedImage: enc, Region: region, Graded: plan != nil, Warnings: warnings}, nil
}

// === Grading Handlers ===

type gradeValidateRecipeArgs struct {
	recipeArgs
}

type validateResult struct {
	Valid    bool                `json:"valid"`
	Errors   []recipe.FieldError `json:"errors"`
	Warnings []recipe.Warning    `json:"warnings"`
	Recipe   *recipe.Recipe      `json:"recipe,omitempty"`
}

// handleGradeValidateRecipe reports structural errors and content warnings
// as data. Bad arguments (no recipe, both sources, unknown recipe_format)
// are tool failures.
func (s *Server) handleGradeValidateRecipe(args json.RawMessage) (interface{}, error) {
	var a gradeValidateRecipeArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if err := a.check(); err != nil {
		return nil, err
	}

	r, warnings, err := a.load()
	res := &validateResult{
		Valid:    err == nil,
		Errors:   []recipe.FieldError{},
		Warnings: warnings,
	}
	if res.Warnings == nil {
		res.Warnings = []recipe.Warning{}
	}

	var verr *recipe.ValidationError
	switch {
	case err == nil:
		res.Recipe = r
	case errors.As(err, &verr):
		res.Errors = verr.Errors
	default:
		res.Errors = []recipe.FieldError{{Field: "recipe", Message: err.Error()}}
	}
	return res, nil
}

type gradeApplyArgs struct {
	Path   string `json:"path"`
	Format string `json:"format"`

	// MaxDimension bounds the longer output side. Absent means the
	// configured preview size; 0 means full resolution.
	MaxDimension *int `json:"max_dimension"`
	Quality      int  `json:"quality"`
	Compare      bool `json:"compare"`
	Publish      bool `json:"publish"`
	recipeArgs
}

type applyResult struct {
	imaging.EncodedImage
	Recipe    string              `json:"recipe,omitempty"`
	Compare   bool                `json:"compare"`
	Location  string              `json:"location,omitempty"`
	Change    *imaging.DiffResult `json:"change"`
	Warnings  []recipe.Warning    `json:"warnings,omitempty"`
	SizeBytes int                 `json:"size_bytes"`
}

func (s *Server) handleGradeApply(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a gradeApplyArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if !a.hasRecipe() {
		return nil, errors.New("recipe or recipe_path is required")
	}
	if a.Quality == 0 {
		a.Quality = s.cfg.JPEGQuality
	}
	maxDim := s.cfg.MaxPreview
	if a.MaxDimension != nil {
		maxDim = *a.MaxDimension
	}
	if maxDim < 0 {
		return nil, fmt.Errorf("max_dimension must not be negative, got %d", maxDim)
	}
	format, err := grade.ParseFormat(a.Format)
	if err != nil {
		return nil, err
	}
	if a.Publish && s.store == nil {
		return nil, publish.ErrNotConfigured
	}

	graded, src, plan, warnings, err := s.gradedImage(ctx, a.Path, a.recipeArgs, maxDim)
	if err != nil {
		return nil, err
	}

	change, err := imaging.Compare(src, graded)
	if err != nil {
		return nil, err
	}

	out := graded
	if a.Compare {
		out = imaging.SideBySide(src, graded)
	}

	data, err := imaging.EncodeBytes(out, format, a.Quality)
	if err != nil {
		return nil, err
	}

	res := &applyResult{
		EncodedImage: imaging.EncodedImage{
			Width:       out.Bounds().Dx(),
			Height:      out.Bounds().Dy(),
			ImageBase64: base64.StdEncoding.EncodeToString(data),
			MimeType:    grade.MIMEType(format),
		},
		Recipe:    plan.Name(),
		Compare:   a.Compare,
		Change:    change,
		Warnings:  warnings,
		SizeBytes: len(data),
	}

	if a.Publish {
		key := publish.Key(plan.Name(), data, grade.Extension(format))
		res.Location, err = s.store.Put(ctx, key, data, res.MimeType)
		if err != nil {
			return nil, err
		}
		log.Infof("published %s", res.Location)
	}
	return res, nil
}

type gradeInspectPixelArgs struct {
	Path string `json:"path"`
	X    int    `json:"x"`
	Y    int    `json:"y"`
	recipeArgs
}

type inspectResult struct {
	X     int   `json:"x"`
	Y     int   `json:"y"`
	Alpha uint8 `json:"alpha"`
	grade.Trace
	Warnings []recipe.Warning `json:"warnings,omitempty"`
}

// handleGradeInspectPixel grades the single source pixel at (x, y) of the
// full-resolution source and returns every intermediate value.
func (s *Server) handleGradeInspectPixel(args json.RawMessage) (interface{}, error) {
	var a gradeInspectPixelArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	r, warnings, err := a.load()
	if err != nil {
		return nil, err
	}
	img, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, err
	}
	c, err := imaging.SampleColor(img, a.X, a.Y)
	if err != nil {
		return nil, err
	}

	return &inspectResult{
		X:        a.X,
		Y:        a.Y,
		Alpha:    c.RGBA.A,
		Trace:    grade.Compile(r).Trace(c.RGB.R, c.RGB.G, c.RGB.B),
		Warnings: warnings,
	}, nil
}
