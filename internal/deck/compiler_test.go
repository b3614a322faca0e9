package deck

import (
	"testing"
)

func TestCompileResolvesImageURLs(t *testing.T) {
	d := &SlideDeck{
		Title: "Deck",
		Slides: []Slide{
			{Type: TypeContentImage, Fields: map[string]any{"title": "With images", "image1": true, "image2": true}},
			{Type: TypeContent, Fields: map[string]any{"title": "Plain"}},
		},
	}
	images := []ImageAsset{
		{SlideIndex: 0, Field: "image1", Path: "/data/presentations/7/images/slide0_image1_ab12cd34.png"},
		{SlideIndex: 0, Field: "image2", Path: "/data/presentations/7/images/slide0_image2_ef56ab78.png"},
	}

	out := Compile(d, images, 7)
	if len(out.Slides) != 2 {
		t.Fatalf("slides = %d, want 2", len(out.Slides))
	}

	first := out.Slides[0]
	wantURL1 := "/presentations/7/images/slide0_image1_ab12cd34.png"
	if first.Fields["image1_url"] != wantURL1 {
		t.Errorf("image1_url = %v, want %s", first.Fields["image1_url"], wantURL1)
	}
	if first.Fields["image2_url"] != "/presentations/7/images/slide0_image2_ef56ab78.png" {
		t.Errorf("image2_url = %v", first.Fields["image2_url"])
	}
	if first.ImageURL != wantURL1 {
		t.Errorf("primary image_url = %q, want first match %q", first.ImageURL, wantURL1)
	}

	second := out.Slides[1]
	if second.ImageURL != "" {
		t.Errorf("slide without assets got image_url %q", second.ImageURL)
	}
	if _, ok := second.Fields["image_url"]; ok {
		t.Error("slide without assets must not gain an image_url field")
	}
}

func TestCompileStandaloneAssetsIgnored(t *testing.T) {
	d := &SlideDeck{Slides: []Slide{{Type: TypeContent, Fields: map[string]any{"title": "A"}}}}
	images := []ImageAsset{{SlideIndex: -1, Field: "image", Path: "/x/cover.png"}}

	out := Compile(d, images, 1)
	if out.Slides[0].ImageURL != "" {
		t.Errorf("standalone asset leaked onto slide: %q", out.Slides[0].ImageURL)
	}
}

func TestNormalizeSlides(t *testing.T) {
	raw := []map[string]any{
		{"type": "welcome", "fields": map[string]any{"title": "Hi"}},
		{"title": "Legacy", "content": []any{"one", "two"}},
		{"type": "section"},
	}

	slides := NormalizeSlides(raw)
	if len(slides) != 3 {
		t.Fatalf("slides = %d", len(slides))
	}
	if slides[0].Type != TypeWelcome || slides[0].Fields["title"] != "Hi" {
		t.Errorf("typed slide mangled: %+v", slides[0])
	}
	if slides[1].Type != TypeContent {
		t.Errorf("legacy slide type = %q, want content", slides[1].Type)
	}
	if slides[1].Fields["title"] != "Legacy" {
		t.Errorf("legacy title = %v", slides[1].Fields["title"])
	}
	if slides[2].Type != TypeSection || slides[2].Fields == nil {
		t.Errorf("missing fields not defaulted: %+v", slides[2])
	}
}

func TestStringAndListFields(t *testing.T) {
	s := Slide{Type: TypeContent, Fields: map[string]any{
		"title":   "T",
		"content": []any{"a", "b"},
		"image":   true,
	}}

	if got, ok := s.StringField("content"); !ok || got != "a\nb" {
		t.Errorf("StringField(content) = %q, %v", got, ok)
	}
	if _, ok := s.StringField("image"); ok {
		t.Error("bool field must not read as string")
	}
	if got := s.ListField("title"); len(got) != 1 || got[0] != "T" {
		t.Errorf("ListField(title) = %v", got)
	}
	if !s.WantsImage("image") {
		t.Error("WantsImage(image) = false")
	}
	if s.WantsImage("title") {
		t.Error("WantsImage(title) = true")
	}
}
