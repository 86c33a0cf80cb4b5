package segment

import (
	"image"

	"github.com/disintegration/imaging"
)

// resampleFilter is used for both the model-input downscale and the mask
// upsample so the two stay consistent at mask boundaries.
var resampleFilter = imaging.Lanczos

// Preprocess resizes frame to the model input resolution and normalizes the
// pixel values per the profile, producing the interleaved RGB float32 buffer
// the input tensor expects. Deterministic: the same frame and profile always
// yield the same buffer.
func Preprocess(frame image.Image, profile Profile, shape Shape) []float32 {
	small := imaging.Resize(frame, shape.InputWidth, shape.InputHeight, resampleFilter)

	out := make([]float32, shape.InputWidth*shape.InputHeight*3)
	i := 0
	for y := 0; y < shape.InputHeight; y++ {
		row := y * small.Stride
		for x := 0; x < shape.InputWidth; x++ {
			p := row + x*4
			r := float32(small.Pix[p])
			g := float32(small.Pix[p+1])
			b := float32(small.Pix[p+2])
			if profile.Norm == NormMeanSubtract {
				out[i] = r + resnetChannelOffsets[0]
				out[i+1] = g + resnetChannelOffsets[1]
				out[i+2] = b + resnetChannelOffsets[2]
			} else {
				out[i] = r/255 - 0.5
				out[i+1] = g/255 - 0.5
				out[i+2] = b/255 - 0.5
			}
			i += 3
		}
	}

	checkValueRange(out, profile)
	return out
}

// TensorImage reverses the profile's normalization, reconstructing the model
// input frame from a preprocessed buffer. Used by debug consumers to inspect
// exactly what the model saw.
func TensorImage(tensor []float32, profile Profile, shape Shape) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, shape.InputWidth, shape.InputHeight))
	i := 0
	for y := 0; y < shape.InputHeight; y++ {
		row := y * img.Stride
		for x := 0; x < shape.InputWidth; x++ {
			var r, g, b float32
			if profile.Norm == NormMeanSubtract {
				r = tensor[i] - resnetChannelOffsets[0]
				g = tensor[i+1] - resnetChannelOffsets[1]
				b = tensor[i+2] - resnetChannelOffsets[2]
			} else {
				r = (tensor[i] + 0.5) * 255
				g = (tensor[i+1] + 0.5) * 255
				b = (tensor[i+2] + 0.5) * 255
			}
			p := row + x*4
			img.Pix[p] = clampByte(r)
			img.Pix[p+1] = clampByte(g)
			img.Pix[p+2] = clampByte(b)
			img.Pix[p+3] = 255
			i += 3
		}
	}
	return img
}

func clampByte(v float32) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= 255 {
		return 255
	}
	return uint8(v + 0.5)
}
