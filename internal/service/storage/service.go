// Package storage owns the on-disk layout of presentation artifacts: one
// directory per presentation holding the rendered deck, generated images and
// preview rasters. All paths flow through here so the URL convention and the
// filesystem stay in one place.
package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"github.com/h2non/filetype"

	"github.com/markoub/power-it-sub001/internal/deck"
	"github.com/markoub/power-it-sub001/internal/infra/logger"
	"github.com/markoub/power-it-sub001/pkg/errors"
)

type Service struct {
	basePath string
	logger   *logger.Logger
}

func New(basePath string, log *logger.Logger) *Service {
	return &Service{
		basePath: basePath,
		logger:   log,
	}
}

// PresentationDir is the root of one presentation's artifacts.
func (s *Service) PresentationDir(id int64) string {
	return filepath.Join(s.basePath, "presentations", strconv.FormatInt(id, 10))
}

func (s *Service) ImagesDir(id int64) string {
	return filepath.Join(s.PresentationDir(id), "images")
}

func (s *Service) PreviewsDir(id int64) string {
	return filepath.Join(s.PresentationDir(id), "previews")
}

// DeckPath names the rendered document after the presentation, slugged so
// arbitrary names stay filesystem-safe.
func (s *Service) DeckPath(id int64, name string) string {
	return filepath.Join(s.PresentationDir(id), slug.Make(name)+".pptx")
}

// SaveImage writes generated image bytes under the presentation's images
// directory. The filename encodes slide index and field plus a short unique
// suffix; the extension comes from content sniffing, not from the caller.
func (s *Service) SaveImage(id int64, slideIndex int, field string, data []byte) (*deck.ImageAsset, error) {
	dir := s.ImagesDir(id)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeStorage, "create images directory")
	}

	ext := "png"
	if kind, err := filetype.Match(data); err == nil && kind != filetype.Unknown {
		ext = kind.Extension
	}

	filename := fmt.Sprintf("slide%d_%s_%s.%s", slideIndex, field, uuid.NewString()[:8], ext)
	path := filepath.Join(dir, filename)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeStorage, "write image file")
	}

	s.logger.Debug("image saved", "presentation_id", id, "path", path, "size", len(data))

	return &deck.ImageAsset{
		SlideIndex: slideIndex,
		Field:      field,
		Path:       path,
	}, nil
}

// ImagePath resolves a stored image by the filename used in its public URL.
// The name is flattened to its base first so traversal cannot escape the
// images directory.
func (s *Service) ImagePath(id int64, filename string) (string, error) {
	clean := filepath.Base(filename)
	if clean == "." || clean == ".." || strings.ContainsAny(clean, `/\`) {
		return "", errors.Newf(errors.ErrCodeInvalidReq, "invalid image filename %q", filename)
	}
	path := filepath.Join(s.ImagesDir(id), clean)
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return "", errors.Newf(errors.ErrCodeNotFound, "image %q not found", clean)
		}
		return "", errors.Wrap(err, errors.ErrCodeStorage, "stat image file")
	}
	return path, nil
}

// DeckFile returns the rendered document path, or NOT_FOUND when the render
// step has not produced one yet.
func (s *Service) DeckFile(id int64, name string) (string, error) {
	path := s.DeckPath(id, name)
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return "", errors.New(errors.ErrCodeNotFound, "rendered deck not found")
		}
		return "", errors.Wrap(err, errors.ErrCodeStorage, "stat deck file")
	}
	return path, nil
}

// LockRender takes the presentation directory's file lock for the duration
// of a render, serializing writers even across processes.
func (s *Service) LockRender(ctx context.Context, id int64) (release func(), err error) {
	dir := s.PresentationDir(id)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeStorage, "create presentation directory")
	}

	fl := flock.New(filepath.Join(dir, ".lock"))
	locked, err := fl.TryLockContext(ctx, 100*time.Millisecond)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeStorage, "acquire render lock")
	}
	if !locked {
		return nil, errors.New(errors.ErrCodeStepBusy, "presentation directory is locked")
	}
	return func() {
		if err := fl.Unlock(); err != nil {
			s.logger.Warn("release render lock", "presentation_id", id, "error", err)
		}
	}, nil
}

// RemoveAll deletes every artifact of a presentation; used when the
// presentation itself is deleted.
func (s *Service) RemoveAll(id int64) error {
	if err := os.RemoveAll(s.PresentationDir(id)); err != nil {
		return errors.Wrap(err, errors.ErrCodeStorage, "remove presentation directory")
	}
	return nil
}
