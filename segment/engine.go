package segment

import (
	"fmt"
	"log/slog"
	"time"

	ort "github.com/yalue/onnxruntime_go"
)

// Shape describes the loaded model's tensor geometry, derived once at startup
// and fixed for the lifetime of the engine.
type Shape struct {
	InputWidth  int
	InputHeight int
	// Stride is the ratio between input and output spatial resolution,
	// identical on both axes.
	Stride         int
	OutputChannels int
}

func (s Shape) MaskWidth() int  { return s.InputWidth / s.Stride }
func (s Shape) MaskHeight() int { return s.InputHeight / s.Stride }

// deriveShape cross-checks the model's tensor metadata against the profile
// and derives the stride. Models are NHWC with batch size 1.
func deriveShape(input, output ort.InputOutputInfo, profile Profile) (Shape, error) {
	if input.DataType != ort.TensorElementDataTypeFloat {
		return Shape{}, fmt.Errorf("input tensor must be float32, got %s", input.DataType)
	}
	if len(input.Dimensions) != 4 {
		return Shape{}, fmt.Errorf("input tensor must have 4 dimensions, got %d", len(input.Dimensions))
	}
	if input.Dimensions[0] != 1 {
		return Shape{}, fmt.Errorf("input tensor batch size must be 1, got %d", input.Dimensions[0])
	}
	if input.Dimensions[3] != 3 {
		return Shape{}, fmt.Errorf("input tensor must have 3 channels, got %d", input.Dimensions[3])
	}
	height := int(input.Dimensions[1])
	width := int(input.Dimensions[2])
	if width <= 0 || height <= 0 {
		return Shape{}, fmt.Errorf("input tensor has non-positive size %dx%d", width, height)
	}

	if output.DataType != ort.TensorElementDataTypeFloat {
		return Shape{}, fmt.Errorf("output tensor must be float32, got %s", output.DataType)
	}
	if len(output.Dimensions) != 4 {
		return Shape{}, fmt.Errorf("output tensor must have 4 dimensions, got %d", len(output.Dimensions))
	}
	if output.Dimensions[0] != 1 {
		return Shape{}, fmt.Errorf("output tensor batch size must be 1, got %d", output.Dimensions[0])
	}
	outHeight := int(output.Dimensions[1])
	outWidth := int(output.Dimensions[2])
	if outWidth <= 0 || outHeight <= 0 || height%outHeight != 0 || width%outWidth != 0 {
		return Shape{}, fmt.Errorf("output size %dx%d does not evenly divide input size %dx%d",
			outWidth, outHeight, width, height)
	}
	stride := width / outWidth
	if height/outHeight != stride {
		return Shape{}, fmt.Errorf("vertical stride %d does not match horizontal stride %d",
			height/outHeight, stride)
	}
	if !profile.ValidStride(stride) {
		return Shape{}, fmt.Errorf("stride %d is not valid for model family %s", stride, profile.Family)
	}
	if int(output.Dimensions[3]) != profile.OutputChannels {
		return Shape{}, fmt.Errorf("output tensor has %d channels, family %s expects %d",
			output.Dimensions[3], profile.Family, profile.OutputChannels)
	}

	return Shape{
		InputWidth:     width,
		InputHeight:    height,
		Stride:         stride,
		OutputChannels: profile.OutputChannels,
	}, nil
}

// Engine owns one ONNX session with fixed input and output tensors. It is not
// safe for concurrent Invoke calls; the output buffer is reused per run.
type Engine struct {
	session *ort.AdvancedSession
	input   *ort.Tensor[float32]
	output  *ort.Tensor[float32]
	shape   Shape
}

// NewEngine loads the model at modelPath, validates its tensor shapes against
// the profile and prepares a session. Shape validation happens before any
// tensor is allocated. When useCUDA is set but no CUDA provider is available
// the engine falls back to CPU execution.
func NewEngine(modelPath string, profile Profile, numThreads int, useCUDA bool) (*Engine, error) {
	inputs, outputs, err := ort.GetInputOutputInfo(modelPath)
	if err != nil {
		return nil, fmt.Errorf("load model %s: %w", modelPath, err)
	}
	if len(inputs) != 1 || len(outputs) != 1 {
		return nil, fmt.Errorf("model must have exactly one input and one output tensor, got %d/%d",
			len(inputs), len(outputs))
	}
	shape, err := deriveShape(inputs[0], outputs[0], profile)
	if err != nil {
		return nil, err
	}

	opts, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("create session options: %w", err)
	}
	if numThreads > 0 {
		if err := opts.SetIntraOpNumThreads(numThreads); err != nil {
			return nil, fmt.Errorf("set thread count: %w", err)
		}
	}
	if useCUDA {
		cudaOpts, err := ort.NewCUDAProviderOptions()
		if err != nil {
			slog.Warn("CUDA provider unavailable, falling back to CPU", slog.String("error", err.Error()))
		} else {
			err := opts.AppendExecutionProviderCUDA(cudaOpts)
			cudaOpts.Destroy()
			if err != nil {
				slog.Warn("CUDA provider rejected, falling back to CPU", slog.String("error", err.Error()))
			}
		}
	}

	inputTensor, err := ort.NewTensor(
		ort.NewShape(1, int64(shape.InputHeight), int64(shape.InputWidth), 3),
		make([]float32, shape.InputHeight*shape.InputWidth*3))
	if err != nil {
		return nil, fmt.Errorf("create input tensor: %w", err)
	}
	outputTensor, err := ort.NewEmptyTensor[float32](
		ort.NewShape(1, int64(shape.MaskHeight()), int64(shape.MaskWidth()), int64(shape.OutputChannels)))
	if err != nil {
		inputTensor.Destroy()
		return nil, fmt.Errorf("create output tensor: %w", err)
	}

	session, err := ort.NewAdvancedSession(
		modelPath,
		[]string{inputs[0].Name},
		[]string{outputs[0].Name},
		[]ort.Value{inputTensor},
		[]ort.Value{outputTensor},
		opts,
	)
	if err != nil {
		inputTensor.Destroy()
		outputTensor.Destroy()
		return nil, fmt.Errorf("create ONNX session: %w", err)
	}

	slog.Info("model loaded",
		slog.String("path", modelPath),
		slog.String("family", profile.Family.String()),
		slog.Int("input_width", shape.InputWidth),
		slog.Int("input_height", shape.InputHeight),
		slog.Int("stride", shape.Stride))

	return &Engine{
		session: session,
		input:   inputTensor,
		output:  outputTensor,
		shape:   shape,
	}, nil
}

func (e *Engine) Shape() Shape {
	return e.shape
}

// Invoke copies input into the managed input tensor and runs one synchronous
// forward pass. The returned slice aliases the engine's output tensor and is
// only valid until the next Invoke.
func (e *Engine) Invoke(input []float32) ([]float32, error) {
	dst := e.input.GetData()
	if len(input) != len(dst) {
		return nil, fmt.Errorf("input buffer has %d floats, tensor wants %d", len(input), len(dst))
	}
	copy(dst, input)

	start := time.Now()
	if err := e.session.Run(); err != nil {
		return nil, fmt.Errorf("inference: %w", err)
	}
	slog.Info("inference complete", slog.Int64("ms", time.Since(start).Milliseconds()))

	return e.output.GetData(), nil
}

// Close releases the session and its tensors.
func (e *Engine) Close() error {
	var firstErr error
	if err := e.session.Destroy(); err != nil {
		firstErr = err
	}
	if err := e.input.Destroy(); err != nil && firstErr == nil {
		firstErr = err
	}
	if err := e.output.Destroy(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}
