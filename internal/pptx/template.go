// Package pptx implements the slice of OOXML presentation editing this
// service needs: opening a template, resolving its layouts, cloning layout
// placeholders into new slides, binding text and images onto placeholder
// shapes and serializing the result. It is not a general PPTX editor.
package pptx

import (
	"archive/zip"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/beevik/etree"

	"github.com/markoub/power-it-sub001/internal/deck"
	"github.com/markoub/power-it-sub001/pkg/errors"
)

const (
	partPresentation = "ppt/presentation.xml"
	partPresRels     = "ppt/_rels/presentation.xml.rels"
	partContentTypes = "[Content_Types].xml"

	relTypeSlide       = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/slide"
	relTypeSlideLayout = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/slideLayout"
	relTypeImage       = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/image"

	contentTypeSlide = "application/vnd.openxmlformats-officedocument.presentationml.slide+xml"
)

// Layout is one slide layout part of the template.
type Layout struct {
	Name  string
	Index int    // position in the layout list, 0-based
	Path  string // zip part name, e.g. ppt/slideLayouts/slideLayout3.xml
	doc   *etree.Document
}

// Template is an opened .pptx template: every part kept verbatim for
// copy-through plus parsed handles on the pieces we rewrite.
type Template struct {
	parts   map[string][]byte
	order   []string
	layouts []*Layout
}

var layoutPartRe = regexp.MustCompile(`^ppt/slideLayouts/slideLayout(\d+)\.xml$`)
var slidePartRe = regexp.MustCompile(`^ppt/slides(/|$)`)
var mediaPartRe = regexp.MustCompile(`^ppt/media/image(\d+)\.`)

// OpenTemplate reads a template presentation from disk.
func OpenTemplate(path string) (*Template, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeStorage, "open template")
	}
	defer zr.Close()
	return readTemplate(&zr.Reader)
}

// OpenTemplateReader reads a template from an in-memory zip.
func OpenTemplateReader(r io.ReaderAt, size int64) (*Template, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeStorage, "open template")
	}
	return readTemplate(zr)
}

func readTemplate(zr *zip.Reader) (*Template, error) {
	t := &Template{parts: make(map[string][]byte, len(zr.File))}

	for _, f := range zr.File {
		rc, err := f.Open()
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeStorage, "read template part "+f.Name)
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeStorage, "read template part "+f.Name)
		}
		t.parts[f.Name] = data
		t.order = append(t.order, f.Name)
	}

	if _, ok := t.parts[partPresentation]; !ok {
		return nil, errors.New(errors.ErrCodeInvalidReq, "not a presentation: missing ppt/presentation.xml")
	}

	if err := t.parseLayouts(); err != nil {
		return nil, err
	}
	return t, nil
}

func (t *Template) parseLayouts() error {
	type numbered struct {
		num  int
		path string
	}
	var found []numbered
	for name := range t.parts {
		if m := layoutPartRe.FindStringSubmatch(name); m != nil {
			num, _ := strconv.Atoi(m[1])
			found = append(found, numbered{num: num, path: name})
		}
	}
	sort.Slice(found, func(i, j int) bool { return found[i].num < found[j].num })

	for i, n := range found {
		doc := etree.NewDocument()
		if err := doc.ReadFromBytes(t.parts[n.path]); err != nil {
			return errors.Wrap(err, errors.ErrCodeMalformed, "parse layout "+n.path)
		}
		name := ""
		if cSld := doc.FindElement("//p:cSld"); cSld != nil {
			name = cSld.SelectAttrValue("name", "")
		}
		t.layouts = append(t.layouts, &Layout{
			Name:  name,
			Index: i,
			Path:  n.path,
			doc:   doc,
		})
	}
	return nil
}

// Layouts returns the template's layouts in part order.
func (t *Template) Layouts() []*Layout {
	return t.layouts
}

// ResolverConfig carries the template-specific fallback indexes. They vary
// between hand-authored templates, so they are configuration, not constants.
type ResolverConfig struct {
	TOCLayoutIndex     int
	DefaultLayoutIndex int
}

// normalizeLayoutName lowercases and strips spaces so "Content Image" and
// "ContentImage" compare equal. Hand-authored templates drift on both.
func normalizeLayoutName(s string) string {
	return strings.ToLower(strings.ReplaceAll(s, " ", ""))
}

// ResolveLayout locates the layout for a slide type. Resolution order:
// exact normalized name match, TOC positional fallback, keyword substring
// match, default index. It fails only when the template has no layouts.
func (t *Template) ResolveLayout(slideType, layoutName string, cfg ResolverConfig) (*Layout, error) {
	if len(t.layouts) == 0 {
		return nil, errors.New(errors.ErrCodeLayoutNotFound, "template has no slide layouts")
	}

	want := normalizeLayoutName(layoutName)
	for _, l := range t.layouts {
		if normalizeLayoutName(l.Name) == want {
			return l, nil
		}
	}

	if slideType == deck.TypeTableOfContents {
		if idx := cfg.TOCLayoutIndex; idx >= 0 && idx < len(t.layouts) {
			return t.layouts[idx], nil
		}
	}

	for _, keyword := range []string{want, "content"} {
		if keyword == "" {
			continue
		}
		for _, l := range t.layouts {
			name := normalizeLayoutName(l.Name)
			// "tableofcontents" contains "content"; the TOC layout is
			// reachable only by exact name or the positional fallback.
			if strings.Contains(name, "tableofcontents") {
				continue
			}
			if strings.Contains(name, keyword) {
				return l, nil
			}
		}
	}

	idx := cfg.DefaultLayoutIndex
	if idx < 0 || idx >= len(t.layouts) {
		idx = 0
	}
	return t.layouts[idx], nil
}

// nextMediaIndex returns the first free ppt/media/imageN ordinal so deck
// media never clashes with template media.
func (t *Template) nextMediaIndex() int {
	max := 0
	for name := range t.parts {
		if m := mediaPartRe.FindStringSubmatch(name); m != nil {
			if n, _ := strconv.Atoi(m[1]); n > max {
				max = n
			}
		}
	}
	return max + 1
}

// relIDForLayout appends the slide's layout relationship. The layout rel is
// always the slide's first, so its id is fixed.
func relIDForLayout(slideRels *etree.Document, layout *Layout) string {
	rels := slideRels.SelectElement("Relationships")
	rel := rels.CreateElement("Relationship")
	rel.CreateAttr("Id", "rId1")
	rel.CreateAttr("Type", relTypeSlideLayout)
	rel.CreateAttr("Target", "../slideLayouts/"+strings.TrimPrefix(layout.Path, "ppt/slideLayouts/"))
	return "rId1"
}

func (t *Template) String() string {
	names := make([]string, 0, len(t.layouts))
	for _, l := range t.layouts {
		names = append(names, l.Name)
	}
	return fmt.Sprintf("template(%d layouts: %s)", len(t.layouts), strings.Join(names, ", "))
}
