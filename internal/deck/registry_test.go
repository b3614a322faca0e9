package deck

import (
	"testing"

	"github.com/markoub/power-it-sub001/pkg/errors"
)

func TestDefinition(t *testing.T) {
	def, err := Definition(TypeContentImage)
	if err != nil {
		t.Fatalf("Definition(contentimage): %v", err)
	}
	if def.Layout != "ContentImage" {
		t.Errorf("layout = %q, want ContentImage", def.Layout)
	}
	if len(def.Components) != 3 || def.Components[2] != "image" {
		t.Errorf("components = %v", def.Components)
	}

	if _, err := Definition("hologram"); !errors.Is(err, errors.ErrCodeUnknownType) {
		t.Errorf("unknown type error = %v, want %s", err, errors.ErrCodeUnknownType)
	}
}

func TestIsImageComponent(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"image", true},
		{"image1", true},
		{"image12", true},
		{"logo1", true},
		{"logo", true},
		{"title", false},
		{"content", false},
		{"imagery", false},
		{"sections", false},
	}
	for _, tt := range tests {
		if got := IsImageComponent(tt.name); got != tt.want {
			t.Errorf("IsImageComponent(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestImageComponents(t *testing.T) {
	got := ImageComponents(TypeContentWithLogos)
	want := []string{"logo1", "logo2", "logo3"}
	if len(got) != len(want) {
		t.Fatalf("ImageComponents = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("ImageComponents[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestValidate(t *testing.T) {
	ok := &SlideDeck{Slides: []Slide{
		{Type: TypeContent, Fields: map[string]any{"title": "T", "content": []any{"a", "b"}}},
		{Type: TypeContentImage, Fields: map[string]any{"title": "T", "image": true}},
	}}
	if err := ok.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	unknown := &SlideDeck{Slides: []Slide{{Type: "mystery", Fields: map[string]any{}}}}
	if err := unknown.Validate(); !errors.Is(err, errors.ErrCodeUnknownType) {
		t.Errorf("unknown type: %v", err)
	}

	freeText := &SlideDeck{Slides: []Slide{
		{Type: TypeContentImage, Fields: map[string]any{"image": "a sunset over mountains"}},
	}}
	if err := freeText.Validate(); err == nil {
		t.Error("free text in image field should fail validation")
	}
}
