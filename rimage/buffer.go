// Package rimage holds the pixel buffers the scanner works on, the frame processor that turns
// video frames into temporal difference images, and the image operations applied to them.
package rimage

import (
	"image"
	"image/color"

	"github.com/pkg/errors"
)

// ErrDimensionMismatch is returned when two buffers that must share a size do not.
var ErrDimensionMismatch = errors.New("image dimensions do not match")

// GrayBuffer is an 8-bit single channel image. Pixel (x, y) lives at Pix[y*Stride+x].
type GrayBuffer struct {
	Width  int
	Height int
	Stride int
	Pix    []uint8
}

// NewGrayBuffer returns a zeroed buffer with a tight stride.
func NewGrayBuffer(width, height int) *GrayBuffer {
	return &GrayBuffer{
		Width:  width,
		Height: height,
		Stride: width,
		Pix:    make([]uint8, width*height),
	}
}

// At returns the value of pixel (x, y).
func (g *GrayBuffer) At(x, y int) uint8 {
	return g.Pix[y*g.Stride+x]
}

// Set writes the value of pixel (x, y).
func (g *GrayBuffer) Set(x, y int, v uint8) {
	g.Pix[y*g.Stride+x] = v
}

// Row returns the Width pixels of row y.
func (g *GrayBuffer) Row(y int) []uint8 {
	start := y * g.Stride
	return g.Pix[start : start+g.Width]
}

// Bounds returns the image rectangle.
func (g *GrayBuffer) Bounds() image.Rectangle {
	return image.Rect(0, 0, g.Width, g.Height)
}

// SameSize reports whether both buffers have the same width and height.
func (g *GrayBuffer) SameSize(other *GrayBuffer) bool {
	return g.Width == other.Width && g.Height == other.Height
}

// ToImage copies the buffer into an image.Gray.
func (g *GrayBuffer) ToImage() *image.Gray {
	out := image.NewGray(g.Bounds())
	for y := 0; y < g.Height; y++ {
		copy(out.Pix[y*out.Stride:], g.Row(y))
	}
	return out
}

// GrayBufferFromImage converts any image into a GrayBuffer using the same weights as
// ColorBuffer.Gray.
func GrayBufferFromImage(img image.Image) *GrayBuffer {
	if gray, ok := img.(*image.Gray); ok {
		b := gray.Bounds()
		out := NewGrayBuffer(b.Dx(), b.Dy())
		for y := 0; y < out.Height; y++ {
			copy(out.Row(y), gray.Pix[y*gray.Stride:y*gray.Stride+out.Width])
		}
		return out
	}
	return ColorBufferFromImage(img).Gray()
}

// ColorBuffer is an 8-bit three channel image stored in BGR order, the layout capture devices
// hand out. Pixel (x, y) starts at Pix[y*Stride+3*x].
type ColorBuffer struct {
	Width  int
	Height int
	Stride int
	Pix    []uint8
}

// NewColorBuffer returns a zeroed buffer with a tight stride.
func NewColorBuffer(width, height int) *ColorBuffer {
	return &ColorBuffer{
		Width:  width,
		Height: height,
		Stride: width * 3,
		Pix:    make([]uint8, width*height*3),
	}
}

// BGRAt returns the channels of pixel (x, y).
func (c *ColorBuffer) BGRAt(x, y int) (b, g, r uint8) {
	i := y*c.Stride + x*3
	return c.Pix[i], c.Pix[i+1], c.Pix[i+2]
}

// SetBGR writes the channels of pixel (x, y).
func (c *ColorBuffer) SetBGR(x, y int, b, g, r uint8) {
	i := y*c.Stride + x*3
	c.Pix[i], c.Pix[i+1], c.Pix[i+2] = b, g, r
}

// NRGBAAt returns pixel (x, y) as an opaque color.
func (c *ColorBuffer) NRGBAAt(x, y int) color.NRGBA {
	b, g, r := c.BGRAt(x, y)
	return color.NRGBA{R: r, G: g, B: b, A: 255}
}

// Bounds returns the image rectangle.
func (c *ColorBuffer) Bounds() image.Rectangle {
	return image.Rect(0, 0, c.Width, c.Height)
}

// Gray converts the buffer to grayscale.
func (c *ColorBuffer) Gray() *GrayBuffer {
	return c.GrayInto(nil)
}

// GrayInto converts the buffer to grayscale, reusing dst when it has the right size.
// The weights are the fixed point BT.601 luma weights, rounded.
func (c *ColorBuffer) GrayInto(dst *GrayBuffer) *GrayBuffer {
	if dst == nil || dst.Width != c.Width || dst.Height != c.Height {
		dst = NewGrayBuffer(c.Width, c.Height)
	}
	for y := 0; y < c.Height; y++ {
		src := c.Pix[y*c.Stride:]
		row := dst.Row(y)
		for x := range row {
			b, g, r := uint32(src[3*x]), uint32(src[3*x+1]), uint32(src[3*x+2])
			row[x] = uint8((r*4899 + g*9617 + b*1868 + 8192) >> 14)
		}
	}
	return dst
}

// Clone returns a deep copy.
func (c *ColorBuffer) Clone() *ColorBuffer {
	return c.CopyInto(nil)
}

// CopyInto copies the buffer into dst, reusing it when it has the right size.
func (c *ColorBuffer) CopyInto(dst *ColorBuffer) *ColorBuffer {
	if dst == nil || dst.Width != c.Width || dst.Height != c.Height {
		dst = NewColorBuffer(c.Width, c.Height)
	}
	for y := 0; y < c.Height; y++ {
		copy(dst.Pix[y*dst.Stride:y*dst.Stride+3*c.Width], c.Pix[y*c.Stride:])
	}
	return dst
}

// ToImage copies the buffer into an image.NRGBA.
func (c *ColorBuffer) ToImage() *image.NRGBA {
	out := image.NewNRGBA(c.Bounds())
	for y := 0; y < c.Height; y++ {
		for x := 0; x < c.Width; x++ {
			out.SetNRGBA(x, y, c.NRGBAAt(x, y))
		}
	}
	return out
}

// ColorBufferFromImage converts any image into a BGR buffer.
func ColorBufferFromImage(img image.Image) *ColorBuffer {
	b := img.Bounds()
	out := NewColorBuffer(b.Dx(), b.Dy())
	for y := 0; y < out.Height; y++ {
		for x := 0; x < out.Width; x++ {
			c := color.NRGBAModel.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.NRGBA)
			out.SetBGR(x, y, c.B, c.G, c.R)
		}
	}
	return out
}
