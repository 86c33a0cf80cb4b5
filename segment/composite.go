package segment

import (
	"fmt"
	"image"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// Composite overwrites every frame pixel marked in mask with the
// corresponding replacement pixel, in place. Pixels where the mask is
// maskKeep are left untouched; the edge is hard, no blending. The mask and
// replacement must match the frame's dimensions.
func Composite(frame *image.NRGBA, mask *image.Gray, replacement *image.NRGBA) error {
	size := frame.Bounds().Size()
	if rs := replacement.Bounds().Size(); rs != size {
		return fmt.Errorf("frame is %dx%d but replacement is %dx%d", size.X, size.Y, rs.X, rs.Y)
	}
	if ms := mask.Bounds().Size(); ms != size {
		return fmt.Errorf("frame is %dx%d but mask is %dx%d", size.X, size.Y, ms.X, ms.Y)
	}

	var g errgroup.Group
	g.SetLimit(runtime.NumCPU())
	for y := 0; y < size.Y; y++ {
		y := y
		g.Go(func() error {
			mrow := y * mask.Stride
			frow := y * frame.Stride
			rrow := y * replacement.Stride
			for x := 0; x < size.X; x++ {
				if mask.Pix[mrow+x] == maskKeep {
					continue
				}
				fo := frow + x*4
				ro := rrow + x*4
				copy(frame.Pix[fo:fo+3], replacement.Pix[ro:ro+3])
			}
			return nil
		})
	}
	return g.Wait()
}
