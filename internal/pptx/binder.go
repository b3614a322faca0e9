package pptx

import (
	"regexp"
	"strings"

	"go.uber.org/multierr"

	"github.com/markoub/power-it-sub001/internal/deck"
	"github.com/markoub/power-it-sub001/internal/infra/logger"
	"github.com/markoub/power-it-sub001/pkg/errors"
)

// ImageData is a generated image ready to bind onto a picture placeholder.
type ImageData struct {
	Data []byte
	Ext  string
}

// Binder writes slide field values onto placeholder shapes. Shape
// resolution is tiered: exact name, numbered-slot naming conventions, then
// placeholder type matched by declared component order. Templates are
// hand-authored and drift, so an unresolved component degrades to a warning
// instead of aborting the render.
type Binder struct {
	log *logger.Logger
}

func NewBinder(log *logger.Logger) *Binder {
	return &Binder{log: log}
}

var numberedComponentRe = regexp.MustCompile(`^([a-z]+)([0-9]+)$`)

// Bind populates every declared component of the slide type. Text goes
// through the inline formatter so emphasis markers become styled runs;
// image components swap their placeholder for a picture. The returned error
// aggregates unresolved-component warnings and is safe to log and ignore.
func (b *Binder) Bind(target *Slide, src *deck.Slide, def deck.TypeDefinition, images map[string]ImageData) error {
	claimed := make(map[*Shape]bool)
	var warnings error

	for _, component := range def.Components {
		if deck.IsImageComponent(component) {
			img, ok := images[component]
			if !ok {
				// generation skipped or not requested; nothing to bind
				continue
			}
			shape := b.resolve(target, component, claimed)
			if shape == nil {
				warnings = multierr.Append(warnings, errors.Newf(errors.ErrCodePlaceholder,
					"no shape for image component %q on slide type %q", component, src.Type))
				continue
			}
			claimed[shape] = true
			relID := target.AddImage(img.Data, img.Ext)
			target.ReplaceWithPicture(shape, relID)
			continue
		}

		lines := textLines(src, component)
		if lines == nil {
			continue
		}
		shape := b.resolve(target, component, claimed)
		if shape == nil {
			warnings = multierr.Append(warnings, errors.Newf(errors.ErrCodePlaceholder,
				"no shape for component %q on slide type %q", component, src.Type))
			continue
		}
		claimed[shape] = true
		if !shape.HasTextFrame() {
			warnings = multierr.Append(warnings, errors.Newf(errors.ErrCodePlaceholder,
				"shape %q has no text frame for component %q", shape.Name(), component))
			continue
		}
		shape.setText(lines, textOptions{})
	}

	if warnings != nil && b.log != nil {
		b.log.Warn("some components could not be bound",
			"slide_type", src.Type, "detail", warnings.Error())
	}
	return warnings
}

// textLines renders a field as paragraphs of styled spans, nil when absent.
func textLines(src *deck.Slide, component string) [][]deck.Span {
	if list := src.ListField(component); len(list) > 1 {
		lines := make([][]deck.Span, 0, len(list))
		for _, item := range list {
			lines = append(lines, deck.ParseInline(item))
		}
		return lines
	}
	text, ok := src.StringField(component)
	if !ok {
		return nil
	}
	return [][]deck.Span{deck.ParseInline(text)}
}

// resolve walks the tiered shape resolution strategy.
func (b *Binder) resolve(target *Slide, component string, claimed map[*Shape]bool) *Shape {
	// (1) exact name after normalization ("Logo 2" == "logo2")
	want := normalizeLayoutName(component)
	for _, shape := range target.Shapes() {
		if claimed[shape] {
			continue
		}
		if normalizeLayoutName(shape.Name()) == want {
			return shape
		}
	}

	// (2) numbered slots under the template's default naming
	if m := numberedComponentRe.FindStringSubmatch(want); m != nil {
		for _, probe := range []string{
			"textplaceholder" + m[2],
			"pictureplaceholder" + m[2],
			m[1] + "placeholder" + m[2],
		} {
			for _, shape := range target.Shapes() {
				if claimed[shape] {
					continue
				}
				if normalizeLayoutName(shape.Name()) == probe {
					return shape
				}
			}
		}
	}

	// (3) placeholder type, positionally by declared order
	return b.resolveByType(target, component, claimed)
}

func (b *Binder) resolveByType(target *Slide, component string, claimed map[*Shape]bool) *Shape {
	base := strings.TrimRightFunc(component, func(r rune) bool { return r >= '0' && r <= '9' })

	match := func(shape *Shape) bool {
		switch base {
		case "title":
			return shape.IsTitle()
		case "subtitle":
			return shape.PlaceholderType() == PhSubtitle
		case "image", "logo":
			return shape.IsPicture()
		default:
			return shape.IsPlaceholder() && shape.PlaceholderType() == PhBody
		}
	}

	// components are bound in declared order and claim shapes as they go,
	// so the first unclaimed candidate is the positional match
	for _, shape := range target.Shapes() {
		if claimed[shape] || !match(shape) {
			continue
		}
		return shape
	}
	return nil
}
