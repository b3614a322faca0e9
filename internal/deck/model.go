// Package deck holds the content model flowing through the generation
// pipeline: research payloads, typed slides, image assets and the compiled
// form handed to the renderer.
package deck

import (
	"fmt"
	"strings"

	"github.com/markoub/power-it-sub001/pkg/errors"
)

type Link struct {
	Href  string `json:"href"`
	Title string `json:"title"`
}

// Research is the stored payload of the research and manual_research steps.
type Research struct {
	Content string `json:"content"`
	Links   []Link `json:"links,omitempty"`
}

// Slide is one slide as produced by the content generator. Fields is
// string-keyed at the boundary because placeholder binding needs dynamic
// field names; Validate pins it against the slide type catalog right after
// load.
type Slide struct {
	Type   string         `json:"type"`
	Fields map[string]any `json:"fields"`
}

// SlideDeck is the stored payload of the slides step.
type SlideDeck struct {
	Title  string  `json:"title"`
	Author string  `json:"author,omitempty"`
	Slides []Slide `json:"slides"`
}

// ImageAsset is one generated image. SlideIndex is -1 for standalone images
// not attached to any slide.
type ImageAsset struct {
	SlideIndex int    `json:"slide_index"`
	Field      string `json:"field"`
	Prompt     string `json:"prompt,omitempty"`
	Path       string `json:"path"`
	Data       []byte `json:"data,omitempty"`
}

// CompiledSlide is a Slide with its image URLs resolved. ImageURL is empty
// (and omitted from JSON) when the slide has no matching asset.
type CompiledSlide struct {
	Type     string         `json:"type"`
	Fields   map[string]any `json:"fields"`
	ImageURL string         `json:"image_url,omitempty"`
}

// CompiledDeck is the stored payload of the compiled step.
type CompiledDeck struct {
	Title  string          `json:"title"`
	Author string          `json:"author,omitempty"`
	Slides []CompiledSlide `json:"slides"`
}

// RenderResult is the stored payload of the pptx step.
type RenderResult struct {
	FilePath     string   `json:"file_path"`
	SlideCount   int      `json:"slide_count"`
	PreviewPaths []string `json:"preview_image_paths"`
}

// Validate checks every slide against the catalog: the type must exist and
// image-named fields must be absent, false or true — never free text.
func (d *SlideDeck) Validate() error {
	for i, s := range d.Slides {
		if _, err := Definition(s.Type); err != nil {
			return errors.Newf(errors.ErrCodeUnknownType, "slide %d: unknown slide type %q", i, s.Type)
		}
		for name, value := range s.Fields {
			if !IsImageComponent(name) {
				continue
			}
			if _, ok := value.(bool); !ok {
				return errors.Newf(errors.ErrCodeInvalidReq,
					"slide %d: image field %q must be a boolean, got %T", i, name, value)
			}
		}
	}
	return nil
}

// StringField reads a field as a string; list values are joined with
// newlines so text placeholders can take either form.
func (s *Slide) StringField(name string) (string, bool) {
	v, ok := s.Fields[name]
	if !ok {
		return "", false
	}
	switch t := v.(type) {
	case string:
		return t, true
	case []string:
		return strings.Join(t, "\n"), true
	case []any:
		parts := make([]string, 0, len(t))
		for _, item := range t {
			parts = append(parts, fmt.Sprint(item))
		}
		return strings.Join(parts, "\n"), true
	case bool:
		return "", false
	default:
		return fmt.Sprint(t), true
	}
}

// ListField reads a field as a string list; a plain string becomes a
// single-element list.
func (s *Slide) ListField(name string) []string {
	v, ok := s.Fields[name]
	if !ok {
		return nil
	}
	switch t := v.(type) {
	case []string:
		return t
	case []any:
		out := make([]string, 0, len(t))
		for _, item := range t {
			out = append(out, fmt.Sprint(item))
		}
		return out
	case string:
		if t == "" {
			return nil
		}
		return []string{t}
	default:
		return nil
	}
}

// WantsImage reports whether the slide requested generation for the named
// image field.
func (s *Slide) WantsImage(name string) bool {
	v, ok := s.Fields[name]
	if !ok {
		return false
	}
	b, ok := v.(bool)
	return ok && b
}
