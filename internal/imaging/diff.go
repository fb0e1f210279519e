package imaging

import (
	"fmt"
	"image"
	"math"
)

// changeThreshold is the mean per-channel difference above which a pixel
// counts as changed.
const changeThreshold = 10

// ChannelShift holds mean signed per-channel movement, after minus before.
type ChannelShift struct {
	R float64 `json:"r"`
	G float64 `json:"g"`
	B float64 `json:"b"`
}

// DiffResult summarizes how much a grade moved an image.
type DiffResult struct {
	PixelsChanged    int          `json:"pixels_changed"`
	TotalPixels      int          `json:"total_pixels"`
	ChangedFraction  float64      `json:"changed_fraction"`
	AverageColorDiff float64      `json:"average_color_diff"`
	MeanShift        ChannelShift `json:"mean_shift"`
}

// Compare measures the per-pixel difference between before and after,
// which must have the same size. Colors are compared non-premultiplied;
// alpha is ignored.
func Compare(before, after image.Image) (*DiffResult, error) {
	bb, ab := before.Bounds(), after.Bounds()
	if bb.Dx() != ab.Dx() || bb.Dy() != ab.Dy() {
		return nil, fmt.Errorf("cannot compare %dx%d with %dx%d", bb.Dx(), bb.Dy(), ab.Dx(), ab.Dy())
	}

	total := bb.Dx() * bb.Dy()
	if total == 0 {
		return &DiffResult{}, nil
	}

	changed := 0
	var sumDiff, sumR, sumG, sumB float64
	for dy := 0; dy < bb.Dy(); dy++ {
		for dx := 0; dx < bb.Dx(); dx++ {
			r1, g1, b1, _ := at8(before, bb.Min.X+dx, bb.Min.Y+dy)
			r2, g2, b2, _ := at8(after, ab.Min.X+dx, ab.Min.Y+dy)

			diff := float64(absDiff(r1, r2)+absDiff(g1, g2)+absDiff(b1, b2)) / 3.0
			sumDiff += diff
			if diff > changeThreshold {
				changed++
			}

			sumR += float64(int(r2) - int(r1))
			sumG += float64(int(g2) - int(g1))
			sumB += float64(int(b2) - int(b1))
		}
	}

	n := float64(total)
	return &DiffResult{
		PixelsChanged:    changed,
		TotalPixels:      total,
		ChangedFraction:  math.Round(float64(changed)/n*1000) / 1000,
		AverageColorDiff: math.Round(sumDiff/n*100) / 100,
		MeanShift: ChannelShift{
			R: math.Round(sumR/n*100) / 100,
			G: math.Round(sumG/n*100) / 100,
			B: math.Round(sumB/n*100) / 100,
		},
	}, nil
}

func absDiff(a, b uint8) int {
	if a > b {
		return int(a - b)
	}
	return int(b - a)
}
