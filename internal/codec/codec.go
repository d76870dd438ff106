package codec

import (
	"bytes"
	"context"
	"fmt"
	"golden-diff/internal/pixel"
	"golden-diff/internal/storage"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
	"golang.org/x/xerrors"
)

// Codec reads and writes pixel buffers as encoded images. A missing image is
// reported by Decode with an error matching storage.ErrNotFound.
type Codec interface {
	Decode(ctx context.Context, key string) (*pixel.Buffer, error)
	Encode(buf *pixel.Buffer) ([]byte, error)
	Write(ctx context.Context, key string, buf *pixel.Buffer) (string, error)
}

type DecodeError struct {
	Key string
	Err error
}

func (e *DecodeError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("failed to decode image: %s", e.Err)
	}
	return fmt.Sprintf("failed to decode image %s: %s", e.Key, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

type storageCodec struct {
	storage storage.Storage
}

func NewStorageCodec(s storage.Storage) Codec {
	return &storageCodec{
		storage: s,
	}
}

func (c *storageCodec) Decode(ctx context.Context, key string) (*pixel.Buffer, error) {
	data, err := c.storage.Get(ctx, key)
	if err != nil {
		return nil, xerrors.Errorf("failed to read image %s: %w", key, err)
	}

	buf, _, err := DecodeBytes(data)
	if err != nil {
		return nil, &DecodeError{Key: key, Err: err}
	}
	return buf, nil
}

func (c *storageCodec) Encode(buf *pixel.Buffer) ([]byte, error) {
	return EncodePNG(buf)
}

func (c *storageCodec) Write(ctx context.Context, key string, buf *pixel.Buffer) (string, error) {
	data, err := c.Encode(buf)
	if err != nil {
		return "", err
	}

	url, err := c.storage.Put(ctx, key, data)
	if err != nil {
		return "", xerrors.Errorf("failed to write image %s: %w", key, err)
	}
	return url, nil
}

// DecodeBytes decodes any registered image format and returns the format name.
func DecodeBytes(data []byte) (*pixel.Buffer, string, error) {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", err
	}

	buf := pixel.FromImage(img)
	if err := buf.Validate(); err != nil {
		return nil, "", err
	}
	return buf, format, nil
}

// EncodePNG encodes buf as a non-premultiplied RGBA PNG, so every channel
// value, including those of fully transparent pixels, survives a round trip.
func EncodePNG(buf *pixel.Buffer) ([]byte, error) {
	if err := buf.Validate(); err != nil {
		return nil, xerrors.Errorf("failed to encode image: %w", err)
	}

	var buffer bytes.Buffer
	if err := png.Encode(&buffer, buf.Image()); err != nil {
		return nil, xerrors.Errorf("failed to encode image: %w", err)
	}
	return buffer.Bytes(), nil
}
