// Package server implements the MCP (Model Context Protocol) server for color
// grading.
//
// An assistant generating grading recipes uses these tools to inspect a
// source image, check a recipe, and see what the recipe does to the image
// before handing it to the user.
//
// # Protocol
//
// The server communicates over stdio using JSON-RPC 2.0:
//   - Input: JSON-RPC requests on stdin (one per line)
//   - Output: JSON-RPC responses on stdout
//
// Supported MCP methods:
//   - initialize: Protocol handshake
//   - tools/list: Enumerate available tools
//   - tools/call: Execute a tool with arguments
//   - ping: Health check
//   - notifications/cancelled: Abandon an in-flight tools/call
//
// tools/call requests run concurrently. Responses are written one at a time
// and may arrive out of request order. A cancelled call gets no response,
// and neither does any message without an id.
//
// # Available Tools
//
// Source Information:
//   - image_load: Load image and get metadata
//   - image_dimensions: Get width and height
//
// Color Operations:
//   - image_sample_color: Get color, luma and tonal zone at a pixel
//   - image_sample_colors_multi: Sample multiple points
//   - image_dominant_colors: Extract color palette, optionally after grading
//
// Region Operations:
//   - image_crop: Extract a rectangular or named region, optionally after grading
//
// Grading:
//   - grade_validate_recipe: Report recipe errors and fallback warnings
//   - grade_apply: Grade an image, optionally compare and publish
//   - grade_inspect_pixel: Trace the grade of a single pixel
//
// Tools that take a recipe accept it inline (a JSON object, or a JSON, YAML,
// TOML or HCL document string) or as recipe_path.
//
// # Image Caching
//
// Decoded source images are cached by path and revalidated against the
// file's modification time and size, so a re-exported source is picked up
// without restarting the server.
//
// # Error Handling
//
// Tool execution errors are returned as JSON-RPC error responses with:
//   - code: -32000 (tool execution failure) or standard JSON-RPC codes
//   - message: Human-readable error description
//   - data: Additional error details (typically the Go error string)
//
// grade_validate_recipe is the exception: an invalid recipe is its normal
// result, not an error.
package server
