package main

import (
	"context"
	"flag"
	"golden-diff/internal/codec"
	"golden-diff/internal/env"
	"golden-diff/internal/gate"
	"golden-diff/internal/runnable"
	"golden-diff/internal/storage"
	"os"
	"os/signal"

	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"go.uber.org/zap"
	"golang.org/x/xerrors"
)

func newStorage(ctx context.Context, backend string, directory string, bucket string, prefix string) (storage.Storage, error) {
	switch backend {
	case "file":
		return storage.NewFileStorage(ctx, storage.FileConfig{
			Directory:         directory,
			CreateDirectories: true,
		})
	case "s3":
		return storage.NewS3Storage(ctx, storage.S3Config{
			Bucket: bucket,
			Prefix: prefix,
		})
	default:
		return nil, xerrors.Errorf("unknown storage backend %q", backend)
	}
}

func main() {
	if err := env.Load(); err != nil {
		_, _ = os.Stderr.WriteString("failed to load .env: " + err.Error() + "\n")
		os.Exit(1)
	}

	var storageBackend string
	var directory string
	var bucket string
	var prefix string
	var debug bool

	flag.StringVar(&storageBackend, "storage-backend", env.OrDefault("STORAGE_BACKEND", "file"), "Where baselines and diffs are stored (file or s3)")
	flag.StringVar(&directory, "directory", env.OrDefault("DIRECTORY", "/tmp/golden-diff"), "Root directory of the file storage backend")
	flag.StringVar(&bucket, "s3-bucket", env.OrDefault("S3_BUCKET", ""), "Bucket of the s3 storage backend")
	flag.StringVar(&prefix, "s3-prefix", env.OrDefault("S3_PREFIX", ""), "Key prefix of the s3 storage backend")
	flag.BoolVar(&debug, "debug", env.OrDefault("DEBUG", false), "Enable text logs and pprof endpoints")
	flag.Parse()

	zapLogger, err := zap.NewProduction()
	if debug {
		zapLogger, err = zap.NewDevelopment()
	}
	if err != nil {
		_, _ = os.Stderr.WriteString("failed to create logger: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() {
		_ = zapLogger.Sync()
	}()
	entrypointLogger := zapr.NewLogger(zapLogger).WithName("entrypoint")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	s, err := newStorage(ctx, storageBackend, directory, bucket, prefix)
	if err != nil {
		entrypointLogger.Error(err, "unable to create storage backend", "backend", storageBackend)
		os.Exit(1)
	}

	runnable.Debug = debug
	// Start replaces the logger with one writing to the server's slog handler.
	g := gate.New(codec.NewStorageCodec(s), logr.Discard())

	entrypointLogger.Info("starting server", "backend", storageBackend)
	if err := runnable.NewServer(s, g).Start(ctx); err != nil {
		entrypointLogger.Error(err, "problem running server")
		os.Exit(1)
	}
}
