package pptx

import (
	"fmt"
	"image/color"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"

	"github.com/markoub/power-it-sub001/pkg/errors"
)

const (
	previewWidth  = 1280
	previewHeight = 720
)

// RenderPreviews writes one flat PNG per slide for preview listings: a
// slide-sized canvas carrying the slide's primary image when it has one.
// This is a byte-producing convenience only; it never touches the deck.
// Slides whose image cannot be read fall back to the empty canvas.
func RenderPreviews(slideCount int, primaryImages map[int]string, dir string) ([]string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeStorage, "create preview directory")
	}

	paths := make([]string, 0, slideCount)
	for i := 0; i < slideCount; i++ {
		canvas := imaging.New(previewWidth, previewHeight, color.NRGBA{R: 250, G: 250, B: 250, A: 255})

		if src, ok := primaryImages[i]; ok {
			if img, err := imaging.Open(src); err == nil {
				fitted := imaging.Fit(img, previewWidth-100, previewHeight-100, imaging.Lanczos)
				canvas = imaging.PasteCenter(canvas, fitted)
			}
		}

		path := filepath.Join(dir, fmt.Sprintf("slide%d.png", i+1))
		if err := imaging.Save(canvas, path); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeStorage, "save preview "+path)
		}
		paths = append(paths, path)
	}
	return paths, nil
}
