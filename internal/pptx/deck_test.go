package pptx

import (
	"archive/zip"
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/beevik/etree"

	"github.com/markoub/power-it-sub001/internal/deck"
)

func layoutByName(t *testing.T, tpl *Template, name string) *Layout {
	t.Helper()
	for _, l := range tpl.Layouts() {
		if l.Name == name {
			return l
		}
	}
	t.Fatalf("no layout %q in test template", name)
	return nil
}

func TestAddSlideClonesOnlyPlaceholders(t *testing.T) {
	tpl := openTestTemplate(t)
	d := NewDeck(tpl)

	slide := d.AddSlide(layoutByName(t, tpl, "Content"))
	shapes := slide.Shapes()
	if len(shapes) != 2 {
		t.Fatalf("shapes = %d, want 2 (decoration stripped)", len(shapes))
	}
	for _, s := range shapes {
		if !s.IsPlaceholder() {
			t.Errorf("non-placeholder shape %q survived cloning", s.Name())
		}
	}
}

func TestSetTextClearsExistingRuns(t *testing.T) {
	tpl := openTestTemplate(t)
	d := NewDeck(tpl)
	slide := d.AddSlide(layoutByName(t, tpl, "Content"))

	title := slide.ShapeNamed("Title 1")
	if title == nil {
		t.Fatal("no Title 1 shape")
	}
	title.setText([][]deck.Span{deck.ParseInline("First")}, textOptions{})
	title.setText([][]deck.Span{deck.ParseInline("Second")}, textOptions{})
	if got := title.Text(); got != "Second" {
		t.Errorf("text = %q, want Second (old runs must be cleared)", got)
	}
}

func TestStyledRuns(t *testing.T) {
	tpl := openTestTemplate(t)
	d := NewDeck(tpl)
	slide := d.AddSlide(layoutByName(t, tpl, "Content"))

	title := slide.ShapeNamed("Title 1")
	title.setText([][]deck.Span{deck.ParseInline("go **fast** now")}, textOptions{})

	runs := title.el.FindElements("p:txBody/a:p/a:r")
	if len(runs) != 3 {
		t.Fatalf("runs = %d, want 3", len(runs))
	}
	bold := runs[1].FindElement("a:rPr")
	if bold == nil || bold.SelectAttrValue("b", "") != "1" {
		t.Error("middle run should be bold")
	}
	if plain := runs[0].FindElement("a:rPr"); plain != nil && plain.SelectAttrValue("b", "") == "1" {
		t.Error("leading run should not be bold")
	}
}

func TestSaveRoundTrip(t *testing.T) {
	tpl := openTestTemplate(t)
	d := NewDeck(tpl)

	s1 := d.AddSlide(layoutByName(t, tpl, "Welcome"))
	s1.ShapeNamed("Title 1").setText([][]deck.Span{deck.ParseInline("Hello")}, textOptions{})
	d.AddSlide(layoutByName(t, tpl, "Content"))

	out := filepath.Join(t.TempDir(), "deck.pptx")
	if err := d.Save(out); err != nil {
		t.Fatalf("Save: %v", err)
	}

	zr, err := zip.OpenReader(out)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer zr.Close()

	parts := map[string][]byte{}
	for _, f := range zr.File {
		rc, err := f.Open()
		if err != nil {
			t.Fatalf("open part %s: %v", f.Name, err)
		}
		data, _ := io.ReadAll(rc)
		rc.Close()
		parts[f.Name] = data
	}

	for _, want := range []string{
		"ppt/slides/slide1.xml",
		"ppt/slides/slide2.xml",
		"ppt/slides/_rels/slide1.xml.rels",
		"ppt/slides/_rels/slide2.xml.rels",
		"ppt/slideMasters/slideMaster1.xml",
	} {
		if _, ok := parts[want]; !ok {
			t.Errorf("missing part %s", want)
		}
	}

	pres := etree.NewDocument()
	if err := pres.ReadFromBytes(parts["ppt/presentation.xml"]); err != nil {
		t.Fatalf("parse presentation.xml: %v", err)
	}
	ids := pres.FindElements("//p:sldIdLst/p:sldId")
	if len(ids) != 2 {
		t.Errorf("sldIdLst entries = %d, want 2 (template slide dropped)", len(ids))
	}

	ct := etree.NewDocument()
	if err := ct.ReadFromBytes(parts["[Content_Types].xml"]); err != nil {
		t.Fatalf("parse content types: %v", err)
	}
	slideOverrides := 0
	for _, ov := range ct.FindElements("//Override") {
		if strings.HasPrefix(ov.SelectAttrValue("PartName", ""), "/ppt/slides/") {
			slideOverrides++
		}
	}
	if slideOverrides != 2 {
		t.Errorf("slide overrides = %d, want 2", slideOverrides)
	}

	if !bytes.Contains(parts["ppt/slides/slide1.xml"], []byte("Hello")) {
		t.Error("bound title text missing from serialized slide")
	}
	if !bytes.Contains(parts["ppt/slides/_rels/slide1.xml.rels"], []byte("slideLayout1.xml")) {
		t.Error("slide 1 not related to its layout")
	}

	// reopening the output as a template proves structural validity
	reopened, err := OpenTemplate(out)
	if err != nil {
		t.Fatalf("reopen as template: %v", err)
	}
	if len(reopened.Layouts()) != 5 {
		t.Errorf("layouts after round trip = %d, want 5", len(reopened.Layouts()))
	}
}

func TestAddImageCreatesMediaAndRel(t *testing.T) {
	tpl := openTestTemplate(t)
	d := NewDeck(tpl)
	slide := d.AddSlide(layoutByName(t, tpl, "Content Image"))

	pic := slide.ShapeNamed("Picture Placeholder 3")
	if pic == nil || !pic.IsPicture() {
		t.Fatal("test layout should expose a picture placeholder")
	}

	relID := slide.AddImage([]byte{0x89, 0x50, 0x4E, 0x47}, "png")
	slide.ReplaceWithPicture(pic, relID)

	if slide.ShapeNamed("Picture Placeholder 3") != nil {
		t.Error("placeholder sp should be replaced by a picture")
	}
	pics := slide.doc.FindElements("//p:pic")
	if len(pics) != 1 {
		t.Fatalf("p:pic elements = %d, want 1", len(pics))
	}
	blip := pics[0].FindElement("p:blipFill/a:blip")
	if blip == nil || blip.SelectAttrValue("r:embed", "") != relID {
		t.Errorf("blip embed mismatch, want %s", relID)
	}

	out := filepath.Join(t.TempDir(), "deck.pptx")
	if err := d.Save(out); err != nil {
		t.Fatalf("Save: %v", err)
	}
	zr, err := zip.OpenReader(out)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer zr.Close()
	found := false
	for _, f := range zr.File {
		if strings.HasPrefix(f.Name, "ppt/media/image") {
			found = true
		}
	}
	if !found {
		t.Error("media part missing from archive")
	}
}

func TestPreviewRendering(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "previews")
	paths, err := RenderPreviews(3, nil, dir)
	if err != nil {
		t.Fatalf("RenderPreviews: %v", err)
	}
	if len(paths) != 3 {
		t.Fatalf("previews = %d, want 3", len(paths))
	}
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			t.Errorf("preview %s: %v", p, err)
			continue
		}
		if info.Size() == 0 {
			t.Errorf("preview %s is empty", p)
		}
	}
}
