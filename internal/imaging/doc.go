// Package imaging provides the source-image side of grading: loading and
// caching photos, inspecting their colors, and shaping previews.
//
// This package implements the operations a recipe author uses around the
// grading engine: sampling colors to pick target hues, finding dominant
// colors, cropping and zooming into a region, fitting a large source down to
// preview size, composing before/after comparisons, and measuring how far a
// grade moved the pixels. All operations work with standard Go image.Image
// types and use a coordinate system where (0,0) is at the top-left corner,
// X increases rightward, and Y increases downward.
//
// # Coordinate System
//
// All pixel coordinates in this package are 0-based and relative to the
// image's top-left corner:
//   - X: horizontal position (0 = leftmost pixel)
//   - Y: vertical position (0 = topmost pixel)
//   - For regions, (x1,y1) is inclusive (top-left), (x2,y2) is exclusive (bottom-right)
//
// # Thread Safety
//
// The ImageCache type is safe for concurrent use. Cached images are shared
// between callers and must be treated as read-only; grading never mutates
// its source.
//
// # Color Representation
//
// Sampled colors are reported in the forms a recipe uses:
//   - Hex: lower-case "#rrggbb" (alpha excluded)
//   - RGB / RGBA: 8-bit components (0-255)
//   - HSL: Hue (0-360), Saturation (0-100), Lightness (0-100), unrounded
//   - Zone: the tonal zone (shadows, midtones, highlights) of the pixel
//
// # Error Handling
//
// Functions return errors for invalid inputs such as:
//   - Coordinates outside image bounds
//   - Invalid region specifications (x1 >= x2 or y1 >= y2)
//   - File I/O errors during image loading
//   - Undecodable sources (wrapping grade.ErrUndecodable)
package imaging
