package segment

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveProfile(t *testing.T) {
	tests := []struct {
		family       string
		channels     int
		norm         NormPolicy
		validStrides []int
	}{
		{"deeplabv3", DeeplabV3ClassCount, NormSymmetric, []int{1}},
		{"bodypix_resnet", 1, NormMeanSubtract, []int{16, 32}},
		{"bodypix_mobilenet", 1, NormSymmetric, []int{8, 16}},
	}
	for _, tt := range tests {
		t.Run(tt.family, func(t *testing.T) {
			p, err := ResolveProfile(tt.family)
			require.NoError(t, err)
			assert.Equal(t, tt.family, p.Family.String())
			assert.Equal(t, tt.channels, p.OutputChannels)
			assert.Equal(t, tt.norm, p.Norm)
			assert.Equal(t, DefaultPersonClassIndex, p.PersonClass)
			assert.Equal(t, DefaultPersonThreshold, p.Threshold)
			for _, s := range tt.validStrides {
				assert.True(t, p.ValidStride(s), "stride %d should be valid", s)
			}
		})
	}
}

func TestResolveProfileUnknownFamily(t *testing.T) {
	_, err := ResolveProfile("segnet")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "segnet")

	_, err = ResolveProfile("")
	require.Error(t, err)
}

func TestValidStrideRejectsOthers(t *testing.T) {
	p, err := ResolveProfile("deeplabv3")
	require.NoError(t, err)
	assert.False(t, p.ValidStride(2))
	assert.False(t, p.ValidStride(16))

	p, err = ResolveProfile("bodypix_mobilenet")
	require.NoError(t, err)
	assert.False(t, p.ValidStride(32))
	assert.False(t, p.ValidStride(1))
}

func TestMultiClass(t *testing.T) {
	deeplab, err := ResolveProfile("deeplabv3")
	require.NoError(t, err)
	assert.True(t, deeplab.MultiClass())

	bodypix, err := ResolveProfile("bodypix_resnet")
	require.NoError(t, err)
	assert.False(t, bodypix.MultiClass())
}

func TestPersonLabelOrdering(t *testing.T) {
	require.Len(t, DeeplabV3Labels, DeeplabV3ClassCount)
	assert.Equal(t, "person", DeeplabV3Labels[DefaultPersonClassIndex])
	assert.Equal(t, "background", DeeplabV3Labels[0])
}
