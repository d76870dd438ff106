package image

import (
	"errors"
	"fmt"
	"golden-diff/internal/pixel"
	"image"
	"image/color"
	"runtime"
	"sync"
	"sync/atomic"
)

var (
	// UnchangedColor marks a pixel that is identical in both images.
	UnchangedColor = color.NRGBA{R: 255, G: 0, B: 0, A: 0}
	// ChangedColor marks a pixel that differs in at least one channel.
	ChangedColor = color.NRGBA{R: 255, G: 0, B: 0, A: 255}
)

var ErrDimensionMismatch = errors.New("images have different sizes")

type DimensionMismatchError struct {
	Baseline image.Point
	Target   image.Point
}

func (e *DimensionMismatchError) Error() string {
	return fmt.Sprintf("%s: %dx%d != %dx%d", ErrDimensionMismatch, e.Baseline.X, e.Baseline.Y, e.Target.X, e.Target.Y)
}

func (e *DimensionMismatchError) Is(target error) bool {
	return target == ErrDimensionMismatch
}

type MaskDiff struct {
	workers int
}

func NewMaskDiff() *MaskDiff {
	// Use GOMAXPROCS instead of runtime.NumCPU() to consider cgroup.
	return NewMaskDiffWithWorkers(runtime.GOMAXPROCS(0))
}

func NewMaskDiffWithWorkers(workers int) *MaskDiff {
	if workers < 1 {
		workers = 1
	}
	return &MaskDiff{
		workers,
	}
}

// GenerateDiff returns the dimensions and RGBA bytes of the mask for a and b.
func GenerateDiff(a *pixel.Buffer, b *pixel.Buffer) (int, int, []byte, error) {
	result, err := NewMaskDiff().Calculate(a, b)
	if err != nil {
		return 0, 0, nil, err
	}
	return result.Mask.Width, result.Mask.Height, result.Mask.Pix, nil
}

func (m *MaskDiff) Calculate(baseline *pixel.Buffer, target *pixel.Buffer) (*DiffResult, error) {
	if err := baseline.Validate(); err != nil {
		return nil, fmt.Errorf("baseline: %w", err)
	}
	if err := target.Validate(); err != nil {
		return nil, fmt.Errorf("target: %w", err)
	}
	if !baseline.SameSize(target) {
		return nil, &DimensionMismatchError{
			Baseline: baseline.Size(),
			Target:   target.Size(),
		}
	}

	width := baseline.Width
	height := baseline.Height
	mask := pixel.New(width, height)

	numWorkers := min(m.workers, height)
	rowsPerWorker := height / numWorkers

	var changedPixelCount int64
	var wg sync.WaitGroup
	wg.Add(numWorkers)

	for i := 0; i < numWorkers; i++ {
		startY := i * rowsPerWorker
		endY := startY + rowsPerWorker
		if i == numWorkers-1 {
			endY = height
		}

		go func(startY int, endY int) {
			defer wg.Done()
			start := startY * width * pixel.BytesPerPixel
			end := endY * width * pixel.BytesPerPixel
			atomic.AddInt64(&changedPixelCount, m.process(baseline.Pix[start:end], target.Pix[start:end], mask.Pix[start:end]))
		}(startY, endY)
	}

	wg.Wait()

	return &DiffResult{
		Mask:          mask,
		ChangedPixels: changedPixelCount,
		DiffAmount:    float64(changedPixelCount) / float64(width*height),
	}, nil
}

// process writes one mask pixel per input pixel pair. The three slices cover
// the same rows and have equal length.
func (m *MaskDiff) process(baseline []byte, target []byte, diff []byte) int64 {
	var changed int64

	for offset := 0; offset+3 < len(diff); offset += pixel.BytesPerPixel {
		diff[offset] = ChangedColor.R
		diff[offset+1] = ChangedColor.G
		diff[offset+2] = ChangedColor.B

		if baseline[offset] == target[offset] &&
			baseline[offset+1] == target[offset+1] &&
			baseline[offset+2] == target[offset+2] &&
			baseline[offset+3] == target[offset+3] {
			diff[offset+3] = UnchangedColor.A
		} else {
			diff[offset+3] = ChangedColor.A
			changed++
		}
	}

	return changed
}
