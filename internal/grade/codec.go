package grade

import (
	"bufio"
	"fmt"
	"image"
	"io"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/h2non/filetype"
	_ "golang.org/x/image/webp" // Register WebP format decoder
)

// sniffLen is the header size filetype needs to recognise every image kind.
const sniffLen = 261

// DefaultJPEGQuality is used when Encode is given a quality outside 1-100.
const DefaultJPEGQuality = 90

// Decode reads a source image. The detected format name ("png", "jpg", ...)
// is returned alongside the image. EXIF orientation is applied so that the
// preview matches what a browser would show.
//
// Every failure wraps ErrUndecodable.
func Decode(r io.Reader) (image.Image, string, error) {
	br := bufio.NewReaderSize(r, 4096)
	head, err := br.Peek(sniffLen)
	if err != nil && err != io.EOF && err != bufio.ErrBufferFull {
		return nil, "", fmt.Errorf("%w: %v", ErrUndecodable, err)
	}
	if len(head) == 0 {
		return nil, "", fmt.Errorf("%w: empty input", ErrUndecodable)
	}
	if !filetype.IsImage(head) {
		return nil, "", fmt.Errorf("%w: not an image", ErrUndecodable)
	}
	kind, _ := filetype.Match(head)

	img, err := imaging.Decode(br, imaging.AutoOrientation(true))
	if err != nil {
		return nil, kind.Extension, fmt.Errorf("%w: %s: %v", ErrUndecodable, kind.Extension, err)
	}
	return img, kind.Extension, nil
}

// ParseFormat maps a format name or file extension ("png", ".jpg", "tiff")
// to an output format.
func ParseFormat(name string) (imaging.Format, error) {
	if name == "" {
		return imaging.PNG, nil
	}
	f, err := imaging.FormatFromExtension(strings.TrimPrefix(strings.ToLower(name), "."))
	if err != nil {
		return f, fmt.Errorf("unsupported output format %q", name)
	}
	return f, nil
}

// MIMEType returns the content type for an output format.
func MIMEType(f imaging.Format) string {
	switch f {
	case imaging.JPEG:
		return "image/jpeg"
	case imaging.GIF:
		return "image/gif"
	case imaging.BMP:
		return "image/bmp"
	case imaging.TIFF:
		return "image/tiff"
	default:
		return "image/png"
	}
}

// Extension returns the canonical file extension, without the dot.
func Extension(f imaging.Format) string {
	switch f {
	case imaging.JPEG:
		return "jpg"
	case imaging.GIF:
		return "gif"
	case imaging.BMP:
		return "bmp"
	case imaging.TIFF:
		return "tiff"
	default:
		return "png"
	}
}

// Encode writes img in the given format. quality applies to JPEG only.
func Encode(w io.Writer, img image.Image, f imaging.Format, quality int) error {
	if quality < 1 || quality > 100 {
		quality = DefaultJPEGQuality
	}
	if err := imaging.Encode(w, img, f, imaging.JPEGQuality(quality)); err != nil {
		return fmt.Errorf("failed to encode %s: %w", Extension(f), err)
	}
	return nil
}
