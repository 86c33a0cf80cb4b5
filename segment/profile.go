package segment

import "fmt"

// Family identifies a supported segmentation model architecture.
type Family int

const (
	FamilyUndefined Family = iota
	FamilyDeeplabV3
	FamilyBodypixResnet
	FamilyBodypixMobilenet
)

func (f Family) String() string {
	switch f {
	case FamilyDeeplabV3:
		return "deeplabv3"
	case FamilyBodypixResnet:
		return "bodypix_resnet"
	case FamilyBodypixMobilenet:
		return "bodypix_mobilenet"
	default:
		return "undefined"
	}
}

// DeeplabV3ClassCount is the number of per-pixel class scores a deeplabv3
// model emits, including the dedicated background class at index 0.
const DeeplabV3ClassCount = 21

// DeeplabV3Labels is the deeplabv3 label ordering. "person" sits at index 15.
var DeeplabV3Labels = []string{
	"background", "aeroplane", "bicycle", "bird", "board", "bottle", "bus",
	"car", "cat", "chair", "cow", "diningtable", "dog", "horse",
	"motorbike", "person", "pottedplant", "sheep", "sofa", "train", "tv",
}

const (
	// DefaultPersonClassIndex is the position of "person" in DeeplabV3Labels.
	// Overridable through Options for models trained on a different ordering.
	DefaultPersonClassIndex = 15

	// DefaultPersonThreshold is the probability cutoff for the single-channel
	// bodypix families. A score below the threshold marks background.
	DefaultPersonThreshold float32 = 0.5
)

// NormPolicy selects how 8-bit pixel values are mapped into the float range
// the model was trained on.
type NormPolicy int

const (
	// NormSymmetric maps v to v/255 - 0.5.
	NormSymmetric NormPolicy = iota
	// NormMeanSubtract adds fixed per-channel offsets, leaving values in
	// roughly [-127, 255].
	NormMeanSubtract
)

// Per-channel RGB offsets for bodypix_resnet, from the tfjs body-pix reference.
var resnetChannelOffsets = [3]float32{-123.15, -115.90, -103.06}

func (n NormPolicy) expectedRange() (float32, float32) {
	if n == NormMeanSubtract {
		return -127, 255
	}
	return -0.5, 0.5
}

// Profile captures everything family-specific about a model: how its output
// tensor is interpreted, how input pixels are normalized, and which strides
// are structurally valid. Exactly one profile is active per Remover.
type Profile struct {
	Family         Family
	OutputChannels int // class count for multi-class models, 1 otherwise
	Norm           NormPolicy

	// PersonClass is the arg-max index kept as foreground (multi-class only).
	PersonClass int
	// Threshold is the person-probability cutoff (single-channel only).
	Threshold float32

	validStrides []int
}

// ResolveProfile maps a model-family name to its Profile. An unrecognized
// name is a configuration error.
func ResolveProfile(family string) (Profile, error) {
	switch family {
	case "deeplabv3":
		return Profile{
			Family:         FamilyDeeplabV3,
			OutputChannels: DeeplabV3ClassCount,
			Norm:           NormSymmetric,
			PersonClass:    DefaultPersonClassIndex,
			Threshold:      DefaultPersonThreshold,
			validStrides:   []int{1},
		}, nil
	case "bodypix_resnet":
		return Profile{
			Family:         FamilyBodypixResnet,
			OutputChannels: 1,
			Norm:           NormMeanSubtract,
			PersonClass:    DefaultPersonClassIndex,
			Threshold:      DefaultPersonThreshold,
			validStrides:   []int{16, 32},
		}, nil
	case "bodypix_mobilenet":
		return Profile{
			Family:         FamilyBodypixMobilenet,
			OutputChannels: 1,
			Norm:           NormSymmetric,
			PersonClass:    DefaultPersonClassIndex,
			Threshold:      DefaultPersonThreshold,
			validStrides:   []int{8, 16},
		}, nil
	default:
		return Profile{}, fmt.Errorf("unknown model family %q", family)
	}
}

// MultiClass reports whether the output tensor carries a per-class score
// vector rather than a single person probability.
func (p Profile) MultiClass() bool {
	return p.OutputChannels > 1
}

// ValidStride reports whether stride is structurally possible for the family.
func (p Profile) ValidStride(stride int) bool {
	for _, s := range p.validStrides {
		if s == stride {
			return true
		}
	}
	return false
}
