package rimage

import (
	"image"

	"github.com/disintegration/imaging"
	"github.com/pkg/errors"
)

// LoadColorBuffer decodes an image file into a BGR buffer.
func LoadColorBuffer(path string) (*ColorBuffer, error) {
	img, err := imaging.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot decode %q", path)
	}
	return ColorBufferFromImage(img), nil
}

// LoadGrayBuffer decodes an image file into a grayscale buffer.
func LoadGrayBuffer(path string) (*GrayBuffer, error) {
	img, err := imaging.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot decode %q", path)
	}
	return GrayBufferFromImage(img), nil
}

// SaveImage encodes img to path. The format follows the file extension.
func SaveImage(img image.Image, path string) error {
	return errors.Wrapf(imaging.Save(img, path), "cannot write %q", path)
}

// GaussianSmooth blurs the buffer with a gaussian of the given sigma. A sigma <= 0 returns a
// copy.
func GaussianSmooth(img *GrayBuffer, sigma float64) *GrayBuffer {
	if sigma <= 0 {
		out := NewGrayBuffer(img.Width, img.Height)
		for y := 0; y < img.Height; y++ {
			copy(out.Row(y), img.Row(y))
		}
		return out
	}
	return GrayBufferFromImage(imaging.Grayscale(imaging.Blur(img.ToImage(), sigma)))
}
