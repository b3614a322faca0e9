package pptx

import (
	"bytes"
	"testing"

	"github.com/markoub/power-it-sub001/internal/deck"
	"github.com/markoub/power-it-sub001/pkg/errors"
)

func TestOpenTemplateParsesLayouts(t *testing.T) {
	tpl := openTestTemplate(t)

	layouts := tpl.Layouts()
	if len(layouts) != 5 {
		t.Fatalf("layouts = %d, want 5", len(layouts))
	}
	want := []string{"Welcome", "TableOfContents", "Section", "Content", "Content Image"}
	for i, name := range want {
		if layouts[i].Name != name {
			t.Errorf("layout[%d] = %q, want %q", i, layouts[i].Name, name)
		}
	}
}

func TestResolveLayout(t *testing.T) {
	tpl := openTestTemplate(t)
	cfg := ResolverConfig{TOCLayoutIndex: 1, DefaultLayoutIndex: 3}

	tests := []struct {
		name       string
		slideType  string
		layoutName string
		want       string
	}{
		{"exact match", deck.TypeWelcome, "Welcome", "Welcome"},
		{"normalized match tolerates spaces", deck.TypeContentImage, "ContentImage", "Content Image"},
		{"toc positional fallback", deck.TypeTableOfContents, "Inhalt", "TableOfContents"},
		{"keyword fallback", "freeform", "SomethingWithContentInside", "Content"},
		{"default index fallback", "mystery", "NoSuchLayout", "Content"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			layout, err := tpl.ResolveLayout(tt.slideType, tt.layoutName, cfg)
			if err != nil {
				t.Fatalf("ResolveLayout: %v", err)
			}
			if layout.Name != tt.want {
				t.Errorf("resolved %q, want %q", layout.Name, tt.want)
			}
		})
	}
}

func TestResolveLayoutKeywordScanIgnoresTOC(t *testing.T) {
	// TableOfContents precedes Content in part order and its normalized
	// name contains "content". The keyword scan must walk past it.
	tpl := openTestTemplate(t)
	cfg := ResolverConfig{TOCLayoutIndex: 1, DefaultLayoutIndex: 3}

	layout, err := tpl.ResolveLayout("freeform", "ContentWall", cfg)
	if err != nil {
		t.Fatalf("ResolveLayout: %v", err)
	}
	if layout.Name != "Content" {
		t.Errorf("resolved %q, want %q", layout.Name, "Content")
	}

	// With no content-named layout at all, resolution must land on the
	// default index, not on TableOfContents.
	data := buildTemplateZip(t, []string{
		layoutXML("Welcome", spShape(2, "Title 1", "ctrTitle", "", "")),
		layoutXML("TableOfContents", spShape(2, "Title 1", "title", "", "")),
		layoutXML("Section", spShape(2, "Title 1", "title", "", "")),
	})
	bare, err := OpenTemplateReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	layout, err = bare.ResolveLayout("mystery", "NoSuchLayout", ResolverConfig{TOCLayoutIndex: 1, DefaultLayoutIndex: 2})
	if err != nil {
		t.Fatalf("ResolveLayout: %v", err)
	}
	if layout.Name != "Section" {
		t.Errorf("resolved %q, want %q", layout.Name, "Section")
	}
}

func TestResolveLayoutNeverFailsWithLayouts(t *testing.T) {
	tpl := openTestTemplate(t)
	// out-of-range fallback indexes must still yield a layout
	layout, err := tpl.ResolveLayout("unknown", "Nope", ResolverConfig{TOCLayoutIndex: 99, DefaultLayoutIndex: 99})
	if err != nil {
		t.Fatalf("ResolveLayout: %v", err)
	}
	if layout == nil {
		t.Fatal("resolved nil layout")
	}
}

func TestResolveLayoutEmptyTemplate(t *testing.T) {
	data := buildTemplateZip(t, nil)
	tpl, err := OpenTemplateReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	_, err = tpl.ResolveLayout(deck.TypeContent, "Content", ResolverConfig{})
	if !errors.Is(err, errors.ErrCodeLayoutNotFound) {
		t.Errorf("err = %v, want %s", err, errors.ErrCodeLayoutNotFound)
	}
}
