// Package renderer materializes a compiled deck into a PPTX file: layout
// resolution, placeholder binding, TOC and section generation, then
// serialization and optional preview rasters.
package renderer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/markoub/power-it-sub001/internal/deck"
	"github.com/markoub/power-it-sub001/internal/infra/logger"
	"github.com/markoub/power-it-sub001/internal/pptx"
	"github.com/markoub/power-it-sub001/internal/service/storage"
	"github.com/markoub/power-it-sub001/internal/store"
	"github.com/markoub/power-it-sub001/pkg/errors"
)

type Config struct {
	TemplatePath       string
	TOCLayoutIndex     int
	DefaultLayoutIndex int
	TOCMaxSections     int
	PreviewEnabled     bool
}

type Renderer struct {
	cfg     Config
	storage *storage.Service
	binder  *pptx.Binder
	toc     *pptx.TOCGenerator
	logger  *logger.Logger
}

func New(cfg Config, st *storage.Service, log *logger.Logger) *Renderer {
	return &Renderer{
		cfg:     cfg,
		storage: st,
		binder:  pptx.NewBinder(log),
		toc:     pptx.NewTOCGenerator(cfg.TOCMaxSections, log),
		logger:  log,
	}
}

// Render builds the output document from the compiled deck and writes it to
// the presentation's storage directory under its file lock. The template is
// reopened per render so edits to the template file take effect without a
// restart.
func (r *Renderer) Render(ctx context.Context, pres *store.Presentation, compiled *deck.CompiledDeck, assets []deck.ImageAsset) (*deck.RenderResult, error) {
	release, err := r.storage.LockRender(ctx, pres.ID)
	if err != nil {
		return nil, err
	}
	defer release()

	tpl, err := pptx.OpenTemplate(r.cfg.TemplatePath)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeRender, "open template")
	}

	resolver := pptx.ResolverConfig{
		TOCLayoutIndex:     r.cfg.TOCLayoutIndex,
		DefaultLayoutIndex: r.cfg.DefaultLayoutIndex,
	}

	ordered := orderSlides(compiled.Slides)
	byIndex := make(map[int][]deck.ImageAsset)
	for _, asset := range assets {
		byIndex[asset.SlideIndex] = append(byIndex[asset.SlideIndex], asset)
	}

	out := pptx.NewDeck(tpl)
	primaryImages := make(map[int]string)
	sectionOrdinal := 0

	for outIdx, entry := range ordered {
		cs := entry.slide
		def, err := deck.Definition(cs.Type)
		if err != nil {
			return nil, err
		}
		layout, err := tpl.ResolveLayout(cs.Type, def.Layout, resolver)
		if err != nil {
			return nil, err
		}

		slide := out.AddSlide(layout)
		src := &deck.Slide{Type: cs.Type, Fields: cs.Fields}

		switch cs.Type {
		case deck.TypeTableOfContents:
			r.toc.RenderTOC(slide, src.ListField("sections"))
		case deck.TypeSection:
			sectionOrdinal++
			src = sectionSlide(src, sectionOrdinal)
			r.bind(slide, src, def, nil)
		default:
			images, primary, err := r.slideImages(byIndex[entry.origIndex])
			if err != nil {
				return nil, err
			}
			if primary != "" {
				primaryImages[outIdx] = primary
			}
			r.bind(slide, src, def, images)
		}
	}

	deckPath := r.storage.DeckPath(pres.ID, pres.Name)
	if err := os.MkdirAll(filepath.Dir(deckPath), 0755); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeStorage, "create presentation directory")
	}
	if err := out.Save(deckPath); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeRender, "serialize deck")
	}

	result := &deck.RenderResult{
		FilePath:     deckPath,
		SlideCount:   out.SlideCount(),
		PreviewPaths: []string{},
	}

	if r.cfg.PreviewEnabled {
		previews, err := pptx.RenderPreviews(out.SlideCount(), primaryImages, r.storage.PreviewsDir(pres.ID))
		if err != nil {
			// previews are a convenience; the deck itself is already saved
			r.logger.Warn("preview rasterization failed", "presentation_id", pres.ID, "error", err)
		} else {
			result.PreviewPaths = previews
		}
	}

	r.logger.Info("deck rendered",
		"presentation_id", pres.ID,
		"path", deckPath,
		"slides", result.SlideCount,
	)
	return result, nil
}

// bind applies the binder and downgrades unresolved-placeholder warnings to
// the log; template drift must not abort a render.
func (r *Renderer) bind(slide *pptx.Slide, src *deck.Slide, def deck.TypeDefinition, images map[string]pptx.ImageData) {
	_ = r.binder.Bind(slide, src, def, images)
}

// slideImages loads the binder inputs for one slide's assets. The first
// asset's file doubles as the preview primary image.
func (r *Renderer) slideImages(assets []deck.ImageAsset) (map[string]pptx.ImageData, string, error) {
	if len(assets) == 0 {
		return nil, "", nil
	}
	images := make(map[string]pptx.ImageData, len(assets))
	primary := ""
	for _, asset := range assets {
		data := asset.Data
		if len(data) == 0 {
			b, err := os.ReadFile(asset.Path)
			if err != nil {
				return nil, "", errors.Wrap(err, errors.ErrCodeStorage,
					fmt.Sprintf("read image asset %s", asset.Path))
			}
			data = b
		}
		ext := strings.TrimPrefix(filepath.Ext(asset.Path), ".")
		if ext == "" {
			ext = "png"
		}
		images[asset.Field] = pptx.ImageData{Data: data, Ext: ext}
		if primary == "" {
			primary = asset.Path
		}
	}
	return images, primary, nil
}

type orderedSlide struct {
	origIndex int
	slide     deck.CompiledSlide
}

// orderSlides moves the first welcome slide to the front and keeps every
// other slide in its given order.
func orderSlides(slides []deck.CompiledSlide) []orderedSlide {
	out := make([]orderedSlide, 0, len(slides))
	welcomeAt := -1
	for i, s := range slides {
		if s.Type == deck.TypeWelcome {
			welcomeAt = i
			break
		}
	}
	if welcomeAt >= 0 {
		out = append(out, orderedSlide{origIndex: welcomeAt, slide: slides[welcomeAt]})
	}
	for i, s := range slides {
		if i == welcomeAt {
			continue
		}
		out = append(out, orderedSlide{origIndex: i, slide: s})
	}
	return out
}

// sectionSlide fills in the zero-padded section number, preferring an
// explicit numeric field over the running ordinal.
func sectionSlide(src *deck.Slide, ordinal int) *deck.Slide {
	n := ordinal
	switch v := src.Fields["number"].(type) {
	case float64:
		n = int(v)
	case int:
		n = v
	case string:
		// already formatted upstream; keep as-is
		if v != "" {
			return src
		}
	}

	fields := make(map[string]any, len(src.Fields))
	for k, val := range src.Fields {
		fields[k] = val
	}
	fields["number"] = pptx.FormatSectionNumber(n)
	return &deck.Slide{Type: src.Type, Fields: fields}
}
