package artifact

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
)

// ErrEmpty is returned for zero-length artifacts.
var ErrEmpty = errors.New("artifact is empty")

// Check verifies that name exists, is non-empty and decodes as an image.
func (s *Store) Check(name string) (image.Config, error) {
	data, err := s.Read(name)
	if err != nil {
		return image.Config{}, fmt.Errorf("read %s: %w", name, err)
	}
	if len(data) == 0 {
		return image.Config{}, fmt.Errorf("%s: %w", name, ErrEmpty)
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return image.Config{}, fmt.Errorf("decode %s: %w", name, err)
	}
	if cfg.Width == 0 || cfg.Height == 0 {
		return cfg, fmt.Errorf("%s: %w", name, ErrEmpty)
	}
	return cfg, nil
}

// Diff returns the fraction of pixels that differ between two image
// artifacts. Images with different bounds are entirely different.
func (s *Store) Diff(a, b string) (float64, error) {
	imgA, err := s.decode(a)
	if err != nil {
		return 0, err
	}
	imgB, err := s.decode(b)
	if err != nil {
		return 0, err
	}
	return diffRatio(imgA, imgB), nil
}

func (s *Store) decode(name string) (image.Image, error) {
	data, err := s.Read(name)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", name, err)
	}
	return img, nil
}

func diffRatio(a, b image.Image) float64 {
	ab, bb := a.Bounds(), b.Bounds()
	if ab.Dx() != bb.Dx() || ab.Dy() != bb.Dy() {
		return 1
	}
	total := ab.Dx() * ab.Dy()
	if total == 0 {
		return 0
	}
	changed := 0
	for y := 0; y < ab.Dy(); y++ {
		for x := 0; x < ab.Dx(); x++ {
			r1, g1, b1, a1 := a.At(ab.Min.X+x, ab.Min.Y+y).RGBA()
			r2, g2, b2, a2 := b.At(bb.Min.X+x, bb.Min.Y+y).RGBA()
			if r1 != r2 || g1 != g2 || b1 != b2 || a1 != a2 {
				changed++
			}
		}
	}
	return float64(changed) / float64(total)
}
