// Package grade applies a color-grade recipe to a raster, pixel by pixel.
//
// A recipe is first compiled into a Plan, which caches everything that does
// not depend on the pixel: the HSL of every adjustment target and the three
// parsed tint colors. The Plan is read-only and safe to share between
// goroutines.
//
// # Per-pixel transform
//
// For each pixel, in order:
//
//  1. Convert RGB to HSL.
//  2. Resolve the hue-windowed shift: every target whose hue lies within
//     HueWindow degrees (circular distance) contributes with a raised-cosine
//     weight (1 + cos(pi*d/HueWindow)) / 2; the shift is the weighted average
//     of the contributing targets, or zero when none contribute. Hue wraps
//     into [0, 360), saturation and lightness clamp into [0, 100].
//  3. Convert back to RGB and clamp to [0, 255].
//  4. Compute perceived luminance 0.299R + 0.587G + 0.114B over 255.
//  5. Pick the tonal zone: luma <= 0.33 shadows, luma <= 0.66 midtones,
//     otherwise highlights. A value exactly on a threshold belongs to the
//     darker zone.
//  6. Blend TintStrength (30%) of the zone's tint into each channel, round,
//     and clamp.
//
// Alpha is copied from the source unchanged.
//
// # Concurrency
//
// Apply allocates a fresh output buffer, splits the raster into contiguous
// row ranges and grades them in parallel. Each worker writes only its own
// rows. Workers stop at the next row boundary once the context is done, and
// a cancelled run returns the context error with no output. The source
// raster is never written.
//
// # Errors
//
// The only failure the engine reports for valid contexts is ErrUndecodable:
// the source could not be decoded, or a Raster's buffer does not match its
// declared shape. Malformed recipe content never fails a run; it degrades to
// neutral gray tints or zero shifts upstream in package recipe.
package grade
