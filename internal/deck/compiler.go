package deck

import (
	"fmt"
	"path/filepath"
)

// ImageURLPath builds the public URL for a stored image file, following the
// /presentations/{id}/images/{filename} convention.
func ImageURLPath(presentationID int64, filename string) string {
	return fmt.Sprintf("/presentations/%d/images/%s", presentationID, filename)
}

// Compile merges the slide list with the generated image assets, resolving
// per-field *_url entries and the slide-level primary image URL. Slides
// without matching assets pass through untouched: absence of image_url, not
// a null, signals "no image".
func Compile(d *SlideDeck, images []ImageAsset, presentationID int64) *CompiledDeck {
	out := &CompiledDeck{
		Title:  d.Title,
		Author: d.Author,
		Slides: make([]CompiledSlide, 0, len(d.Slides)),
	}

	byIndex := make(map[int][]ImageAsset)
	for _, asset := range images {
		byIndex[asset.SlideIndex] = append(byIndex[asset.SlideIndex], asset)
	}

	for i, slide := range d.Slides {
		cs := CompiledSlide{
			Type:   slide.Type,
			Fields: make(map[string]any, len(slide.Fields)+2),
		}
		for k, v := range slide.Fields {
			cs.Fields[k] = v
		}
		for _, asset := range byIndex[i] {
			url := ImageURLPath(presentationID, filepath.Base(asset.Path))
			cs.Fields[asset.Field+"_url"] = url
			if cs.ImageURL == "" {
				cs.ImageURL = url
			}
		}
		out.Slides = append(out.Slides, cs)
	}
	return out
}

// NormalizeSlides converts heterogeneous slide representations into the
// typed form. Older stored results carried flat {title, content} objects
// instead of {type, fields}; both shapes are accepted here so the ambiguity
// never reaches the renderer.
func NormalizeSlides(raw []map[string]any) []Slide {
	slides := make([]Slide, 0, len(raw))
	for _, item := range raw {
		slides = append(slides, normalizeSlide(item))
	}
	return slides
}

func normalizeSlide(item map[string]any) Slide {
	if t, ok := item["type"].(string); ok && t != "" {
		fields, _ := item["fields"].(map[string]any)
		if fields == nil {
			fields = map[string]any{}
		}
		return Slide{Type: t, Fields: fields}
	}

	// Legacy shape: flat title/content attributes.
	fields := map[string]any{}
	if title, ok := item["title"]; ok {
		fields["title"] = title
	}
	if content, ok := item["content"]; ok {
		fields["content"] = content
	}
	return Slide{Type: TypeContent, Fields: fields}
}
