package structuredlight

import (
	"fmt"
	"image"
	"math"
	"path/filepath"

	"github.com/disintegration/imaging"

	"go.viam.com/lightscan/rimage"
)

// ProjectorImages returns the projected sequence as the projector must show it: scaled by the
// projector gain and turned upside down for an inverted projector.
func ProjectorImages(codes *GrayCodes, params Params) []image.Image {
	scale := gainScale(params.ProjGain)
	seq := codes.Sequence()
	out := make([]image.Image, 0, len(seq))
	for _, pattern := range seq {
		img := pattern.ToImage()
		if scale != 1 {
			for i, v := range img.Pix {
				img.Pix[i] = uint8(math.Min(255, math.Round(float64(v)*scale)))
			}
		}
		if params.ProjInvert {
			out = append(out, imaging.Rotate180(img))
			continue
		}
		out = append(out, img)
	}
	return out
}

// ExportPatterns writes the projected sequence into dir as numbered PNG files and returns their
// paths in projection order.
func ExportPatterns(codes *GrayCodes, dir string, params Params) ([]string, error) {
	images := ProjectorImages(codes, params)
	paths := make([]string, 0, len(images))
	for i, img := range images {
		path := filepath.Join(dir, fmt.Sprintf("%02d.png", i))
		if err := rimage.SaveImage(img, path); err != nil {
			return nil, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

// SaveDepthPreview writes the colorized depth map of rec to path.
func SaveDepthPreview(rec *Reconstruction, path string) error {
	img, err := rec.DepthPreview()
	if err != nil {
		return err
	}
	return rimage.SaveImage(img, path)
}
