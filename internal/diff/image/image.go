package image

import "golden-diff/internal/pixel"

type DiffResult struct {
	Mask          *pixel.Buffer
	ChangedPixels int64
	DiffAmount    float64
}

type Differ interface {
	Calculate(baseline *pixel.Buffer, target *pixel.Buffer) (*DiffResult, error)
}
