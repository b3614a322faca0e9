package pptx

import (
	"strconv"

	"github.com/beevik/etree"

	"github.com/markoub/power-it-sub001/internal/deck"
)

// Placeholder types as they appear in p:ph/@type. An absent type attribute
// means "body" per the OOXML default.
const (
	PhTitle       = "title"
	PhCenterTitle = "ctrTitle"
	PhSubtitle    = "subTitle"
	PhBody        = "body"
	PhPicture     = "pic"
)

// Shape wraps one p:sp element with its capabilities resolved once: name,
// placeholder type/index and whether it carries a text frame. The source
// format forces runtime probing; doing it once here keeps the binder simple.
type Shape struct {
	el *etree.Element

	name          string
	isPlaceholder bool
	phType        string
	phIdx         int
	hasTextFrame  bool
}

func wrapShape(el *etree.Element) *Shape {
	s := &Shape{el: el, phIdx: -1}

	if cNvPr := el.FindElement("p:nvSpPr/p:cNvPr"); cNvPr != nil {
		s.name = cNvPr.SelectAttrValue("name", "")
	}
	if ph := el.FindElement("p:nvSpPr/p:nvPr/p:ph"); ph != nil {
		s.isPlaceholder = true
		s.phType = ph.SelectAttrValue("type", PhBody)
		if idx := ph.SelectAttrValue("idx", ""); idx != "" {
			if n, err := strconv.Atoi(idx); err == nil {
				s.phIdx = n
			}
		}
	}
	s.hasTextFrame = el.FindElement("p:txBody") != nil
	return s
}

func (s *Shape) Name() string          { return s.name }
func (s *Shape) IsPlaceholder() bool   { return s.isPlaceholder }
func (s *Shape) PlaceholderType() string { return s.phType }
func (s *Shape) PlaceholderIndex() int { return s.phIdx }
func (s *Shape) HasTextFrame() bool    { return s.hasTextFrame }

// IsTitle covers both the title and centered-title placeholder variants.
func (s *Shape) IsTitle() bool {
	return s.isPlaceholder && (s.phType == PhTitle || s.phType == PhCenterTitle)
}

// IsPicture reports whether the placeholder is marked for picture content.
func (s *Shape) IsPicture() bool {
	return s.isPlaceholder && s.phType == PhPicture
}

// textOptions tune how styled runs are written into a text frame.
type textOptions struct {
	fontSize      float64 // points; 0 keeps the inherited size
	forceTopLevel bool    // strip indent level and suppress bullets
}

// SetText replaces the shape's paragraphs with one paragraph per line, one
// styled run per span. Existing runs are cleared first so rebinding stays
// idempotent.
func (s *Shape) setText(lines [][]deck.Span, opts textOptions) {
	txBody := s.el.FindElement("p:txBody")
	if txBody == nil {
		return
	}

	for _, p := range txBody.SelectElements("a:p") {
		txBody.RemoveChild(p)
	}

	if len(lines) == 0 {
		lines = [][]deck.Span{{}}
	}

	for _, spans := range lines {
		para := txBody.CreateElement("a:p")
		if opts.forceTopLevel {
			pPr := para.CreateElement("a:pPr")
			pPr.CreateAttr("indent", "0")
			pPr.CreateElement("a:buNone")
		}
		for _, span := range spans {
			run := para.CreateElement("a:r")
			rPr := run.CreateElement("a:rPr")
			rPr.CreateAttr("lang", "en-US")
			rPr.CreateAttr("dirty", "0")
			if span.Bold {
				rPr.CreateAttr("b", "1")
			}
			if span.Italic {
				rPr.CreateAttr("i", "1")
			}
			if opts.fontSize > 0 {
				rPr.CreateAttr("sz", strconv.Itoa(int(opts.fontSize*100)))
			}
			t := run.CreateElement("a:t")
			t.SetText(span.Text)
		}
	}
}

// Text gathers the visible text of the shape, paragraphs joined by newlines.
func (s *Shape) Text() string {
	txBody := s.el.FindElement("p:txBody")
	if txBody == nil {
		return ""
	}
	var out string
	for i, p := range txBody.SelectElements("a:p") {
		if i > 0 {
			out += "\n"
		}
		for _, r := range p.SelectElements("a:r") {
			if t := r.SelectElement("a:t"); t != nil {
				out += t.Text()
			}
		}
	}
	return out
}

// transform returns the shape's explicit a:xfrm, if any. Placeholders often
// omit it and inherit geometry from the layout.
func (s *Shape) transform() *etree.Element {
	return s.el.FindElement("p:spPr/a:xfrm")
}
