package segment

import (
	"fmt"
	"image"
	"runtime"

	"github.com/disintegration/imaging"
	"golang.org/x/sync/errgroup"
)

const (
	maskKeep    = 0
	maskReplace = 255
)

// DecodeMask interprets the raw output tensor as a low-resolution binary
// mask: maskReplace marks background pixels, maskKeep marks person pixels.
// Rows are decoded in parallel; every pixel's decision depends only on its
// own output values.
func DecodeMask(output []float32, profile Profile, shape Shape) (*image.Gray, error) {
	mw, mh := shape.MaskWidth(), shape.MaskHeight()
	if want := mw * mh * profile.OutputChannels; len(output) != want {
		return nil, fmt.Errorf("output buffer has %d values, want %d", len(output), want)
	}

	mask := image.NewGray(image.Rect(0, 0, mw, mh))
	classes := profile.OutputChannels

	var g errgroup.Group
	g.SetLimit(runtime.NumCPU())
	for y := 0; y < mh; y++ {
		y := y
		g.Go(func() error {
			row := mask.Pix[y*mask.Stride : y*mask.Stride+mw]
			if profile.MultiClass() {
				base := y * mw * classes
				for x := 0; x < mw; x++ {
					off := base + x*classes
					// Strict > resolves arg-max ties to the lowest index.
					best := 0
					for c := 1; c < classes; c++ {
						if output[off+c] > output[off+best] {
							best = c
						}
					}
					if best != profile.PersonClass {
						row[x] = maskReplace
					}
				}
			} else {
				base := y * mw
				for x := 0; x < mw; x++ {
					if output[base+x] < profile.Threshold {
						row[x] = maskReplace
					}
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return mask, nil
}

// UpsampleMask scales a low-resolution mask to frame resolution with the same
// filter preprocessing uses, then re-binarizes the interpolated values.
func UpsampleMask(mask *image.Gray, width, height int) *image.Gray {
	resized := imaging.Resize(mask, width, height, resampleFilter)

	out := image.NewGray(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		srow := y * resized.Stride
		drow := y * out.Stride
		for x := 0; x < width; x++ {
			if resized.Pix[srow+x*4] >= 128 {
				out.Pix[drow+x] = maskReplace
			}
		}
	}
	return out
}
