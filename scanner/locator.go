package scanner

import "go.viam.com/lightscan/rimage"

// NotFound is returned by the locator when no pixel on a scan line reaches the threshold. Black
// pixels never count, so a zero threshold still needs some light.
const NotFound = -1

// Locator finds the laser line on one scan line of a difference image.
type Locator struct {
	Threshold uint8

	// FirstHit returns the first pixel at or above Threshold instead of the brightest one. It is
	// used on edge maps, where every edge pixel has the same value.
	FirstHit bool
}

// NewLocator returns the locator configured by cfg.
func NewLocator(cfg *BaseConfig) Locator {
	return Locator{Threshold: cfg.BrightnessThreshold, FirstHit: cfg.UseCanny}
}

// locate returns the position along a scan line of n pixels read through at.
func (l Locator) locate(n int, at func(i int) uint8) int {
	found := NotFound
	var best uint8
	for i := 0; i < n; i++ {
		v := at(i)
		if v == 0 || v < l.Threshold {
			continue
		}
		if l.FirstHit {
			return i
		}
		if found == NotFound || v > best {
			found, best = i, v
		}
	}
	return found
}

// InColumn scans column x from the top and returns the row of the laser.
func (l Locator) InColumn(img *rimage.GrayBuffer, x int) int {
	if x < 0 || x >= img.Width {
		return NotFound
	}
	return l.locate(img.Height, func(y int) uint8 { return img.At(x, y) })
}

// InRow scans row y from the left and returns the column of the laser.
func (l Locator) InRow(img *rimage.GrayBuffer, y int) int {
	if y < 0 || y >= img.Height {
		return NotFound
	}
	row := img.Row(y)
	return l.locate(img.Width, func(x int) uint8 { return row[x] })
}
