package pixel

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/draw"
)

// BytesPerPixel is the number of channels (R, G, B, A) stored per pixel.
const BytesPerPixel = 4

var ErrInvalidBuffer = errors.New("invalid pixel buffer")

// Buffer is a row-major, non-premultiplied RGBA image with 8 bits per channel.
type Buffer struct {
	Width  int
	Height int
	Pix    []byte
}

func New(width int, height int) *Buffer {
	return &Buffer{
		Width:  width,
		Height: height,
		Pix:    make([]byte, width*height*BytesPerPixel),
	}
}

// FromImage converts img to a Buffer whose top-left pixel is img.Bounds().Min.
func FromImage(img image.Image) *Buffer {
	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()

	if nrgba, ok := img.(*image.NRGBA); ok && nrgba.Stride == width*BytesPerPixel {
		start := nrgba.PixOffset(bounds.Min.X, bounds.Min.Y)
		pix := make([]byte, width*height*BytesPerPixel)
		copy(pix, nrgba.Pix[start:start+len(pix)])
		return &Buffer{
			Width:  width,
			Height: height,
			Pix:    pix,
		}
	}

	dst := image.NewNRGBA(image.Rect(0, 0, width, height))
	draw.Draw(dst, dst.Bounds(), img, bounds.Min, draw.Src)
	return &Buffer{
		Width:  width,
		Height: height,
		Pix:    dst.Pix,
	}
}

func (b *Buffer) Validate() error {
	if b == nil {
		return fmt.Errorf("%w: nil buffer", ErrInvalidBuffer)
	}
	if b.Width <= 0 || b.Height <= 0 {
		return fmt.Errorf("%w: non-positive dimensions %dx%d", ErrInvalidBuffer, b.Width, b.Height)
	}
	if want := b.Width * b.Height * BytesPerPixel; len(b.Pix) != want {
		return fmt.Errorf("%w: %dx%d needs %d bytes, got %d", ErrInvalidBuffer, b.Width, b.Height, want, len(b.Pix))
	}
	return nil
}

func (b *Buffer) Size() image.Point {
	return image.Point{X: b.Width, Y: b.Height}
}

func (b *Buffer) SameSize(o *Buffer) bool {
	return b.Width == o.Width && b.Height == o.Height
}

// Equal reports whether both buffers have the same dimensions and identical bytes.
func (b *Buffer) Equal(o *Buffer) bool {
	return b.SameSize(o) && bytes.Equal(b.Pix, o.Pix)
}

// Image returns an *image.NRGBA sharing the buffer's pixel slice.
func (b *Buffer) Image() *image.NRGBA {
	return &image.NRGBA{
		Pix:    b.Pix,
		Stride: b.Width * BytesPerPixel,
		Rect:   image.Rect(0, 0, b.Width, b.Height),
	}
}
