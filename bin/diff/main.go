package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"golden-diff/internal/codec"
	diffimage "golden-diff/internal/diff/image"
	"golden-diff/internal/env"
	"golden-diff/internal/gate"
	"golden-diff/internal/pixel"
	"golden-diff/internal/retry"
	"golden-diff/internal/storage"
	"net/http"
	"os"
	"time"

	"github.com/go-logr/zapr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/xerrors"
)

type DiffOutput struct {
	Result        string  `json:"result"`
	Expected      string  `json:"expected"`
	Actual        string  `json:"actual"`
	DiffPath      string  `json:"diffPath,omitempty"`
	ChangedPixels int64   `json:"changedPixels,omitempty"`
	DiffAmount    float64 `json:"diffAmount,omitempty"`
	Error         string  `json:"error,omitempty"`
}

func main() {
	if err := env.Load(); err != nil {
		fmt.Fprintf(os.Stderr, "failed to load .env: %v\n", err)
		os.Exit(1)
	}

	var diffKey string
	var bootstrap bool
	var storageBackend string
	var directory string
	var createDirectories bool
	var callbackURL string
	flag.StringVar(&diffKey, "diff", env.OrDefault("DIFF", "diff.png"), "Where the diff mask is written when the images differ")
	flag.BoolVar(&bootstrap, "bootstrap", env.OrDefault("BOOTSTRAP", false), "Create the expected image from the actual one when it does not exist")
	flag.StringVar(&storageBackend, "storage-backend", env.OrDefault("STORAGE_BACKEND", "file"), "Storage backend for the expected and diff images (file or s3)")
	flag.StringVar(&directory, "directory", env.OrDefault("DIRECTORY", "."), "Root directory of the file storage backend")
	flag.BoolVar(&createDirectories, "create-directories", env.OrDefault("CREATE_DIRECTORIES", false), "Create missing parent directories when writing")
	flag.StringVar(&callbackURL, "callback-url", env.OrDefault("CALLBACK_URL", ""), "Callback URL to send results to")
	flag.Parse()

	args := flag.Args()
	if len(args) != 2 {
		fmt.Fprintf(os.Stderr, "usage: %s [flags] <expected> <actual>\n", os.Args[0])
		os.Exit(2)
	}

	zapLogger, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	logger := zapr.NewLogger(zapLogger)
	exit := func(code int) {
		_ = zapLogger.Sync()
		os.Exit(code)
	}

	ctx := context.Background()

	var s storage.Storage
	switch storageBackend {
	case "file":
		s, err = storage.NewFileStorage(ctx, storage.FileConfig{
			Directory:         directory,
			CreateDirectories: createDirectories,
		})
	case "s3":
		s, err = storage.NewS3Storage(ctx, storage.S3Config{
			Bucket: os.Getenv("S3_BUCKET"),
			Prefix: os.Getenv("S3_PREFIX"),
		})
	default:
		err = xerrors.Errorf("unknown storage backend %q", storageBackend)
	}
	if err != nil {
		logger.Error(err, "failed to create storage backend")
		exit(1)
	}

	g := gate.New(codec.NewStorageCodec(s), logger.WithName("gate"))

	output, err := compare(ctx, g, args[0], args[1], diffKey, bootstrap)
	if err != nil {
		logger.Error(err, "comparison failed", "expected", args[0], "actual", args[1])
	}

	j, marshalErr := json.Marshal(output)
	if marshalErr != nil {
		logger.Error(marshalErr, "failed to marshal result")
		exit(1)
	}
	fmt.Println(string(j))

	if callbackURL != "" {
		if err := callback(ctx, callbackURL, j); err != nil {
			logger.Error(err, "failed to send callback", "url", callbackURL)
			exit(1)
		}
	}

	if err != nil {
		exit(1)
	}
	exit(0)
}

// compare runs the equality gate over the stored expected image and the
// local actual image. The returned output describes the result even when
// the error is non-nil.
func compare(ctx context.Context, g *gate.Gate, expected string, actual string, diffKey string, bootstrap bool) (*DiffOutput, error) {
	output := &DiffOutput{
		Expected: expected,
		Actual:   actual,
	}

	err := func() error {
		if bootstrap {
			actualImage, err := loadImage(actual)
			if err != nil {
				return err
			}
			outcome, err := g.AssertEqualOrBootstrap(ctx, expected, actualImage, diffKey)
			if err != nil {
				return err
			}
			output.Result = outcome.String()
			return nil
		}

		var expectedImage *pixel.Buffer
		var actualImage *pixel.Buffer
		eg, egCtx := errgroup.WithContext(ctx)
		eg.Go(func() error {
			buf, err := g.Codec.Decode(egCtx, expected)
			if err != nil {
				return xerrors.Errorf("failed to load expected image: %w", err)
			}
			expectedImage = buf
			return nil
		})
		eg.Go(func() error {
			buf, err := loadImage(actual)
			if err != nil {
				return err
			}
			actualImage = buf
			return nil
		})
		if err := eg.Wait(); err != nil {
			return err
		}

		if err := g.AssertEqualOrPersistDiff(ctx, expectedImage, actualImage, diffKey); err != nil {
			return err
		}
		output.Result = gate.OutcomeEqual.String()
		return nil
	}()
	if err == nil {
		return output, nil
	}

	var persisted *gate.DiffPersistedError
	switch {
	case errors.As(err, &persisted):
		output.Result = "unequal"
		output.DiffPath = persisted.Path
		output.ChangedPixels = persisted.ChangedPixels
		output.DiffAmount = persisted.DiffAmount
	case errors.Is(err, gate.ErrUnequal):
		output.Result = "unequal"
	case errors.Is(err, diffimage.ErrDimensionMismatch):
		output.Result = "dimension_mismatch"
	default:
		output.Result = "error"
	}
	output.Error = err.Error()
	return output, err
}

func loadImage(path string) (*pixel.Buffer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, xerrors.Errorf("failed to read actual image: %w", err)
	}
	buf, _, err := codec.DecodeBytes(data)
	if err != nil {
		return nil, &codec.DecodeError{Key: path, Err: err}
	}
	return buf, nil
}

func callback(ctx context.Context, callbackURL string, data []byte) error {
	request, err := http.NewRequestWithContext(ctx, http.MethodPost, callbackURL, bytes.NewReader(data))
	if err != nil {
		return xerrors.Errorf("failed to create request: %w", err)
	}
	request.Header.Set("Content-Type", "application/json")

	client := &http.Client{
		Timeout: 1 * time.Second, // retry.Transport does not have perTryTimeout
		Transport: &retry.Transport{
			Base:          http.DefaultTransport,
			RetryStrategy: retry.NewExponentialBackOff(10*time.Millisecond, 1*time.Second, 3, nil),
			RetryOn:       retry.NewDefaultRetryOn(),
		},
	}

	response, err := client.Do(request)
	if err != nil {
		return xerrors.Errorf("failed to send request: %w", err)
	}
	defer func() {
		_ = response.Body.Close()
	}()

	if response.StatusCode >= http.StatusBadRequest {
		return xerrors.Errorf("callback responded with %s", response.Status)
	}
	return nil
}
