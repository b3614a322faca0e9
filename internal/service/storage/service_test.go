package storage

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"github.com/markoub/power-it-sub001/internal/infra/logger"
	"github.com/markoub/power-it-sub001/pkg/errors"
)

// 1x1 PNG header is enough for content sniffing.
var pngBytes = []byte("\x89PNG\r\n\x1a\n" + "rest of image")

func newService(t *testing.T) *Service {
	t.Helper()
	return New(t.TempDir(), logger.NewNop())
}

func TestSaveImageNamesAndSniffsExtension(t *testing.T) {
	s := newService(t)

	asset, err := s.SaveImage(42, 3, "logo2", pngBytes)
	if err != nil {
		t.Fatalf("save image: %v", err)
	}
	if asset.SlideIndex != 3 || asset.Field != "logo2" {
		t.Errorf("asset = %+v", asset)
	}

	name := filepath.Base(asset.Path)
	if matched, _ := regexp.MatchString(`^slide3_logo2_[0-9a-f-]{8}\.png$`, name); !matched {
		t.Errorf("filename = %q, want slide3_logo2_<uuid8>.png", name)
	}
	if filepath.Dir(asset.Path) != s.ImagesDir(42) {
		t.Errorf("asset dir = %q", filepath.Dir(asset.Path))
	}
	if _, err := os.Stat(asset.Path); err != nil {
		t.Errorf("saved file missing: %v", err)
	}
}

func TestImagePathRejectsTraversal(t *testing.T) {
	s := newService(t)

	if _, err := s.ImagePath(1, "../../../etc/passwd"); !errors.Is(err, errors.ErrCodeNotFound) && !errors.Is(err, errors.ErrCodeInvalidReq) {
		t.Errorf("traversal err = %v", err)
	}
	if _, err := s.ImagePath(1, "nope.png"); !errors.Is(err, errors.ErrCodeNotFound) {
		t.Errorf("missing file err = %v", err)
	}
}

func TestImagePathRoundTrip(t *testing.T) {
	s := newService(t)
	asset, err := s.SaveImage(5, 0, "image", pngBytes)
	if err != nil {
		t.Fatalf("save: %v", err)
	}

	path, err := s.ImagePath(5, filepath.Base(asset.Path))
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if path != asset.Path {
		t.Errorf("resolved %q, want %q", path, asset.Path)
	}
}

func TestDeckPathIsSlugged(t *testing.T) {
	s := newService(t)
	path := s.DeckPath(9, "Q3 Review: Money & Growth!")
	if filepath.Base(path) != "q3-review-money-and-growth.pptx" {
		t.Errorf("deck path = %q", path)
	}
}

func TestDeckFileNotFound(t *testing.T) {
	s := newService(t)
	if _, err := s.DeckFile(1, "anything"); !errors.Is(err, errors.ErrCodeNotFound) {
		t.Errorf("err = %v, want NOT_FOUND", err)
	}
}

func TestLockRenderExcludesSecondHolder(t *testing.T) {
	s := newService(t)
	ctx := context.Background()

	release, err := s.LockRender(ctx, 11)
	if err != nil {
		t.Fatalf("first lock: %v", err)
	}

	shortCtx, cancel := context.WithTimeout(ctx, 300*time.Millisecond)
	defer cancel()
	if _, err := s.LockRender(shortCtx, 11); err == nil {
		t.Error("second lock acquired while first held")
	}

	release()
	release2, err := s.LockRender(ctx, 11)
	if err != nil {
		t.Fatalf("relock after release: %v", err)
	}
	release2()
}

func TestRemoveAll(t *testing.T) {
	s := newService(t)
	if _, err := s.SaveImage(8, 0, "image", pngBytes); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := s.RemoveAll(8); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if _, err := os.Stat(s.PresentationDir(8)); !os.IsNotExist(err) {
		t.Errorf("presentation dir still present: %v", err)
	}
}
