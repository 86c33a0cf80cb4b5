package segment

import (
	"fmt"
	"image"
	"sync"
)

// Options configures a Remover.
type Options struct {
	ModelPath  string
	Family     string
	NumThreads int
	UseCUDA    bool

	// PersonClassIndex overrides the profile's person class when >= 0.
	PersonClassIndex int
	// PersonThreshold overrides the profile's probability cutoff when > 0.
	PersonThreshold float32

	// KeepIntermediates retains the last preprocessed tensor and both mask
	// resolutions after each frame so a debug consumer can inspect them.
	KeepIntermediates bool
}

// Remover runs the per-frame background replacement pipeline: preprocess,
// one synchronous inference, mask decode, mask upsample, composite. It owns
// the engine for its lifetime and processes one frame at a time.
type Remover struct {
	profile Profile
	engine  *Engine
	shape   Shape
	keep    bool

	mu            sync.Mutex
	lastInput     []float32
	lastMask      *image.Gray
	lastUpsampled *image.Gray
}

// NewRemover resolves the model family, loads the model and validates its
// tensor shapes. Any mismatch between the family's expectations and the
// loaded model fails construction.
func NewRemover(opts Options) (*Remover, error) {
	profile, err := ResolveProfile(opts.Family)
	if err != nil {
		return nil, err
	}
	if opts.PersonClassIndex >= 0 {
		profile.PersonClass = opts.PersonClassIndex
	}
	if opts.PersonThreshold > 0 {
		profile.Threshold = opts.PersonThreshold
	}

	engine, err := NewEngine(opts.ModelPath, profile, opts.NumThreads, opts.UseCUDA)
	if err != nil {
		return nil, err
	}

	return &Remover{
		profile: profile,
		engine:  engine,
		shape:   engine.Shape(),
		keep:    opts.KeepIntermediates,
	}, nil
}

// ProcessFrame segments frame and overwrites its background pixels with the
// corresponding pixels of replacement, mutating frame in place. Both images
// must have identical dimensions.
func (r *Remover) ProcessFrame(frame, replacement *image.NRGBA) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	size := frame.Bounds().Size()
	if rs := replacement.Bounds().Size(); rs != size {
		return fmt.Errorf("frame is %dx%d but replacement is %dx%d", size.X, size.Y, rs.X, rs.Y)
	}

	input := Preprocess(frame, r.profile, r.shape)
	output, err := r.engine.Invoke(input)
	if err != nil {
		return err
	}
	mask, err := DecodeMask(output, r.profile, r.shape)
	if err != nil {
		return err
	}
	upsampled := UpsampleMask(mask, size.X, size.Y)

	if err := Composite(frame, upsampled, replacement); err != nil {
		return err
	}

	if r.keep {
		r.lastInput = input
		r.lastMask = mask
		r.lastUpsampled = upsampled
	}
	return nil
}

// Intermediates returns the buffers retained from the last processed frame:
// the preprocessed input tensor, the low-resolution mask and the upsampled
// mask. All are nil until a frame has been processed with KeepIntermediates
// set.
func (r *Remover) Intermediates() (input []float32, mask, upsampled *image.Gray) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastInput, r.lastMask, r.lastUpsampled
}

func (r *Remover) Profile() Profile {
	return r.profile
}

func (r *Remover) Shape() Shape {
	return r.shape
}

// Close releases the engine and its native resources.
func (r *Remover) Close() error {
	return r.engine.Close()
}
