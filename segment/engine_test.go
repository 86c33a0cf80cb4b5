package segment

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	ort "github.com/yalue/onnxruntime_go"
)

func tensorInfo(dtype ort.TensorElementDataType, dims ...int64) ort.InputOutputInfo {
	return ort.InputOutputInfo{
		Name:         "t",
		OrtValueType: ort.ONNXTypeTensor,
		Dimensions:   ort.NewShape(dims...),
		DataType:     dtype,
	}
}

func floatInfo(dims ...int64) ort.InputOutputInfo {
	return tensorInfo(ort.TensorElementDataTypeFloat, dims...)
}

func mustProfile(t *testing.T, family string) Profile {
	t.Helper()
	p, err := ResolveProfile(family)
	require.NoError(t, err)
	return p
}

func TestDeriveShape(t *testing.T) {
	tests := []struct {
		name   string
		family string
		input  ort.InputOutputInfo
		output ort.InputOutputInfo
		want   Shape
	}{
		{
			name:   "deeplabv3 stride 1",
			family: "deeplabv3",
			input:  floatInfo(1, 513, 513, 3),
			output: floatInfo(1, 513, 513, 21),
			want:   Shape{InputWidth: 513, InputHeight: 513, Stride: 1, OutputChannels: 21},
		},
		{
			name:   "bodypix_resnet stride 16",
			family: "bodypix_resnet",
			input:  floatInfo(1, 480, 640, 3),
			output: floatInfo(1, 30, 40, 1),
			want:   Shape{InputWidth: 640, InputHeight: 480, Stride: 16, OutputChannels: 1},
		},
		{
			name:   "bodypix_mobilenet stride 8",
			family: "bodypix_mobilenet",
			input:  floatInfo(1, 400, 400, 3),
			output: floatInfo(1, 50, 50, 1),
			want:   Shape{InputWidth: 400, InputHeight: 400, Stride: 8, OutputChannels: 1},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := deriveShape(tt.input, tt.output, mustProfile(t, tt.family))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, got.InputWidth/got.MaskWidth(), got.InputHeight/got.MaskHeight())
		})
	}
}

func TestDeriveShapeErrors(t *testing.T) {
	tests := []struct {
		name   string
		family string
		input  ort.InputOutputInfo
		output ort.InputOutputInfo
	}{
		{
			name:   "input not float32",
			family: "deeplabv3",
			input:  tensorInfo(ort.TensorElementDataTypeUint8, 1, 513, 513, 3),
			output: floatInfo(1, 513, 513, 21),
		},
		{
			name:   "input wrong dimensionality",
			family: "deeplabv3",
			input:  floatInfo(513, 513, 3),
			output: floatInfo(1, 513, 513, 21),
		},
		{
			name:   "input batch size not 1",
			family: "deeplabv3",
			input:  floatInfo(2, 513, 513, 3),
			output: floatInfo(1, 513, 513, 21),
		},
		{
			name:   "input not 3 channels",
			family: "deeplabv3",
			input:  floatInfo(1, 513, 513, 4),
			output: floatInfo(1, 513, 513, 21),
		},
		{
			name:   "output not float32",
			family: "deeplabv3",
			input:  floatInfo(1, 513, 513, 3),
			output: tensorInfo(ort.TensorElementDataTypeUint8, 1, 513, 513, 21),
		},
		{
			name:   "output does not divide input",
			family: "bodypix_resnet",
			input:  floatInfo(1, 480, 640, 3),
			output: floatInfo(1, 31, 40, 1),
		},
		{
			name:   "non-uniform stride",
			family: "bodypix_resnet",
			input:  floatInfo(1, 480, 640, 3),
			output: floatInfo(1, 15, 40, 1),
		},
		{
			name:   "stride invalid for family",
			family: "deeplabv3",
			input:  floatInfo(1, 512, 512, 3),
			output: floatInfo(1, 256, 256, 21),
		},
		{
			name:   "wrong class count",
			family: "deeplabv3",
			input:  floatInfo(1, 513, 513, 3),
			output: floatInfo(1, 513, 513, 20),
		},
		{
			name:   "bodypix output not single channel",
			family: "bodypix_mobilenet",
			input:  floatInfo(1, 400, 400, 3),
			output: floatInfo(1, 50, 50, 2),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := deriveShape(tt.input, tt.output, mustProfile(t, tt.family))
			assert.Error(t, err)
		})
	}
}

func TestNewEngineUnknownModelFile(t *testing.T) {
	_, err := NewEngine("testdata/does-not-exist.onnx", mustProfile(t, "deeplabv3"), 1, false)
	assert.Error(t, err)
}
