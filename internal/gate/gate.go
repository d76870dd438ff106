package gate

import (
	"context"
	"errors"
	"golden-diff/internal/codec"
	diffimage "golden-diff/internal/diff/image"
	"golden-diff/internal/pixel"
	"golden-diff/internal/storage"

	"github.com/go-logr/logr"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/xerrors"
)

type Outcome int

const (
	OutcomeEqual Outcome = iota
	OutcomeBaselineCreated
)

func (o Outcome) String() string {
	switch o {
	case OutcomeEqual:
		return "equal"
	case OutcomeBaselineCreated:
		return "baseline_created"
	default:
		return "unknown"
	}
}

type Gate struct {
	Codec  codec.Codec
	Differ diffimage.Differ
	Log    logr.Logger
	// Comparisons counts calls by result; nil disables counting.
	Comparisons metric.Int64Counter
}

func New(c codec.Codec, log logr.Logger) *Gate {
	return &Gate{
		Codec:  c,
		Differ: diffimage.NewMaskDiff(),
		Log:    log,
	}
}

// AssertEqualOrPersistDiff returns nil when expected and actual are identical.
// Otherwise it writes the diff mask to diffKey and returns an error matching
// ErrUnequal. Images of different sizes are not diffed; the returned error
// matches diffimage.ErrDimensionMismatch and nothing is written.
func (g *Gate) AssertEqualOrPersistDiff(ctx context.Context, expected *pixel.Buffer, actual *pixel.Buffer, diffKey string) (err error) {
	defer func() {
		result := "equal"
		if err != nil {
			result = "unequal"
			if !errors.Is(err, ErrUnequal) {
				result = "error"
			}
		}
		g.count(ctx, result)
	}()

	return g.compare(ctx, expected, actual, diffKey)
}

// AssertEqualOrBootstrap compares actual against the image stored at
// expectedKey. When there is none yet, actual becomes the new baseline.
func (g *Gate) AssertEqualOrBootstrap(ctx context.Context, expectedKey string, actual *pixel.Buffer, diffKey string) (Outcome, error) {
	if err := actual.Validate(); err != nil {
		g.count(ctx, "error")
		return OutcomeEqual, xerrors.Errorf("actual: %w", err)
	}

	expected, err := g.Codec.Decode(ctx, expectedKey)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			g.count(ctx, "error")
			return OutcomeEqual, err
		}

		path, err := g.Codec.Write(ctx, expectedKey, actual)
		if err != nil {
			g.count(ctx, "error")
			return OutcomeEqual, xerrors.Errorf("failed to create baseline: %w", err)
		}
		g.Log.Info("created baseline", "path", path, "width", actual.Width, "height", actual.Height)
		g.count(ctx, OutcomeBaselineCreated.String())
		return OutcomeBaselineCreated, nil
	}

	if err := g.AssertEqualOrPersistDiff(ctx, expected, actual, diffKey); err != nil {
		return OutcomeEqual, err
	}
	return OutcomeEqual, nil
}

func (g *Gate) compare(ctx context.Context, expected *pixel.Buffer, actual *pixel.Buffer, diffKey string) error {
	if err := expected.Validate(); err != nil {
		return xerrors.Errorf("expected: %w", err)
	}
	if err := actual.Validate(); err != nil {
		return xerrors.Errorf("actual: %w", err)
	}

	if !expected.SameSize(actual) {
		g.Log.Info("images have different sizes", "expected", expected.Size(), "actual", actual.Size())
		return &diffimage.DimensionMismatchError{
			Baseline: expected.Size(),
			Target:   actual.Size(),
		}
	}

	if expected.Equal(actual) {
		g.Log.V(1).Info("images are equal", "width", expected.Width, "height", expected.Height)
		return nil
	}

	result, err := g.differ().Calculate(expected, actual)
	if err != nil {
		return xerrors.Errorf("failed to generate diff: %w", err)
	}

	path, err := g.Codec.Write(ctx, diffKey, result.Mask)
	if err != nil {
		g.Log.Error(err, "failed to write diff", "key", diffKey, "changedPixels", result.ChangedPixels)
		return &DiffPersistFailedError{
			Key: diffKey,
			Err: err,
		}
	}

	g.Log.Info("images differ", "path", path, "changedPixels", result.ChangedPixels, "diffAmount", result.DiffAmount)
	return &DiffPersistedError{
		Path:          path,
		ChangedPixels: result.ChangedPixels,
		DiffAmount:    result.DiffAmount,
	}
}

func (g *Gate) differ() diffimage.Differ {
	if g.Differ != nil {
		return g.Differ
	}
	return diffimage.NewMaskDiff()
}

func (g *Gate) count(ctx context.Context, result string) {
	if g.Comparisons == nil {
		return
	}
	g.Comparisons.Add(ctx, 1, metric.WithAttributes(attribute.String("result", result)))
}
