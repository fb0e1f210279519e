package grade

import (
	"context"
	"errors"
	"fmt"
	"image"
	"time"

	"github.com/anthonynsimon/bild/parallel"
	"github.com/disintegration/imaging"
	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("colorgrade.grade")

// ErrUndecodable is returned when the source image cannot be read as a raster.
var ErrUndecodable = errors.New("source image undecodable")

// Raster is a row-major 8-bit pixel buffer. Channels is 3 (RGB) or 4 (RGBA,
// non-premultiplied); the row stride is Width*Channels.
type Raster struct {
	Width    int
	Height   int
	Channels int
	Pix      []uint8
}

// Bounds returns the raster's rectangle with its origin at (0, 0).
func (r Raster) Bounds() image.Rectangle {
	return image.Rect(0, 0, r.Width, r.Height)
}

func (r Raster) check() error {
	if r.Width < 0 || r.Height < 0 {
		return fmt.Errorf("%w: negative dimensions %dx%d", ErrUndecodable, r.Width, r.Height)
	}
	if r.Channels != 3 && r.Channels != 4 {
		return fmt.Errorf("%w: unsupported channel count %d", ErrUndecodable, r.Channels)
	}
	if want := r.Width * r.Height * r.Channels; len(r.Pix) != want {
		return fmt.Errorf("%w: buffer holds %d bytes, %dx%dx%d needs %d",
			ErrUndecodable, len(r.Pix), r.Width, r.Height, r.Channels, want)
	}
	return nil
}

// FromImage copies img into a 4-channel raster.
func FromImage(img image.Image) (Raster, error) {
	if img == nil {
		return Raster{}, fmt.Errorf("%w: nil image", ErrUndecodable)
	}
	nrgba := imaging.Clone(img)
	b := nrgba.Bounds()
	return Raster{Width: b.Dx(), Height: b.Dy(), Channels: 4, Pix: nrgba.Pix}, nil
}

// NRGBA wraps or expands the raster as an *image.NRGBA. A 4-channel raster
// shares its buffer with the result; a 3-channel raster is copied with
// opaque alpha.
func (r Raster) NRGBA() *image.NRGBA {
	if r.Channels == 4 {
		return &image.NRGBA{Pix: r.Pix, Stride: r.Width * 4, Rect: r.Bounds()}
	}

	out := image.NewNRGBA(r.Bounds())
	for i, j := 0, 0; i < len(r.Pix); i, j = i+3, j+4 {
		out.Pix[j] = r.Pix[i]
		out.Pix[j+1] = r.Pix[i+1]
		out.Pix[j+2] = r.Pix[i+2]
		out.Pix[j+3] = 0xff
	}
	return out
}

// Apply grades src with plan and returns a newly allocated raster of the
// same shape. The source is only read.
//
// Rows are graded in parallel. If ctx is done before every row is finished,
// the partial buffer is dropped and ctx.Err() is returned.
func Apply(ctx context.Context, src Raster, plan *Plan) (Raster, error) {
	if err := src.check(); err != nil {
		return Raster{}, err
	}
	if plan == nil {
		plan = Compile(nil)
	}
	if err := ctx.Err(); err != nil {
		return Raster{}, err
	}

	start := time.Now()
	out := Raster{
		Width:    src.Width,
		Height:   src.Height,
		Channels: src.Channels,
		Pix:      make([]uint8, len(src.Pix)),
	}

	ch := src.Channels
	stride := src.Width * ch
	parallel.Line(src.Height, func(first, last int) {
		for y := first; y < last; y++ {
			if ctx.Err() != nil {
				return
			}
			row := y * stride
			for i := row; i < row+stride; i += ch {
				out.Pix[i], out.Pix[i+1], out.Pix[i+2] = plan.GradePixel(src.Pix[i], src.Pix[i+1], src.Pix[i+2])
				if ch == 4 {
					out.Pix[i+3] = src.Pix[i+3]
				}
			}
		}
	})

	if err := ctx.Err(); err != nil {
		log.Debugf("grading %dx%d cancelled after %s", src.Width, src.Height, time.Since(start))
		return Raster{}, err
	}

	log.Debugf("graded %dx%d (%d channels) with %q in %s",
		src.Width, src.Height, ch, plan.Name(), time.Since(start))
	return out, nil
}

// ApplyImage grades any image.Image. The result has the source's dimensions
// with its origin moved to (0, 0).
func ApplyImage(ctx context.Context, img image.Image, plan *Plan) (*image.NRGBA, error) {
	src, err := FromImage(img)
	if err != nil {
		return nil, err
	}
	out, err := Apply(ctx, src, plan)
	if err != nil {
		return nil, err
	}
	return out.NRGBA(), nil
}
