package pptx

import (
	"archive/zip"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/beevik/etree"

	"github.com/markoub/power-it-sub001/pkg/errors"
)

const (
	xmlnsA = "http://schemas.openxmlformats.org/drawingml/2006/main"
	xmlnsP = "http://schemas.openxmlformats.org/presentationml/2006/main"
	xmlnsR = "http://schemas.openxmlformats.org/officeDocument/2006/relationships"
)

// Deck is the output presentation being assembled: the template's parts with
// the authored slides dropped and ours appended.
type Deck struct {
	tpl        *Template
	slides     []*Slide
	media      []mediaPart
	nextMedia  int
	nextShapeID int
}

type mediaPart struct {
	partName string
	data     []byte
}

// Slide is one output slide under construction.
type Slide struct {
	deck   *Deck
	layout *Layout
	doc    *etree.Document
	rels   *etree.Document
	shapes []*Shape // resolved lazily, invalidated on mutation
}

// NewDeck starts an empty output presentation over the template.
func NewDeck(t *Template) *Deck {
	return &Deck{
		tpl:         t,
		nextMedia:   t.nextMediaIndex(),
		nextShapeID: 100,
	}
}

// SlideCount returns the number of slides added so far.
func (d *Deck) SlideCount() int { return len(d.slides) }

// AddSlide creates a slide from a layout by cloning the layout's placeholder
// shapes, the same population model the original authoring tool uses: static
// layout art shows through by inheritance, placeholders come across as
// editable copies.
func (d *Deck) AddSlide(layout *Layout) *Slide {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8" standalone="yes"`)

	sld := doc.CreateElement("p:sld")
	sld.CreateAttr("xmlns:a", xmlnsA)
	sld.CreateAttr("xmlns:p", xmlnsP)
	sld.CreateAttr("xmlns:r", xmlnsR)

	cSld := sld.CreateElement("p:cSld")
	spTree := d.cloneLayoutTree(layout)
	cSld.AddChild(spTree)

	clrMap := sld.CreateElement("p:clrMapOvr")
	clrMap.CreateElement("a:masterClrMapping")

	rels := etree.NewDocument()
	rels.CreateProcInst("xml", `version="1.0" encoding="UTF-8" standalone="yes"`)
	relsRoot := rels.CreateElement("Relationships")
	relsRoot.CreateAttr("xmlns", "http://schemas.openxmlformats.org/package/2006/relationships")

	slide := &Slide{deck: d, layout: layout, doc: doc, rels: rels}
	relIDForLayout(rels, layout)

	d.slides = append(d.slides, slide)
	return slide
}

// cloneLayoutTree deep-copies the layout's shape tree, keeping only
// placeholder shapes. Static art stays on the layout and is rendered
// underneath the slide, so copying it would double it up.
func (d *Deck) cloneLayoutTree(layout *Layout) *etree.Element {
	src := layout.doc.FindElement("//p:cSld/p:spTree")
	if src == nil {
		tree := etree.NewElement("p:spTree")
		nv := tree.CreateElement("p:nvGrpSpPr")
		cNvPr := nv.CreateElement("p:cNvPr")
		cNvPr.CreateAttr("id", "1")
		cNvPr.CreateAttr("name", "")
		nv.CreateElement("p:cNvGrpSpPr")
		nv.CreateElement("p:nvPr")
		tree.CreateElement("p:grpSpPr")
		return tree
	}

	tree := src.Copy()
	for _, child := range tree.ChildElements() {
		switch child.Tag {
		case "nvGrpSpPr", "grpSpPr":
			continue
		case "sp":
			if child.FindElement("p:nvSpPr/p:nvPr/p:ph") == nil {
				tree.RemoveChild(child)
			}
		default:
			// pictures, tables, group shapes on the layout are decoration
			tree.RemoveChild(child)
		}
	}
	return tree
}

// Shapes returns wrappers for the slide's shapes, resolved once per call
// site mutation.
func (s *Slide) Shapes() []*Shape {
	if s.shapes != nil {
		return s.shapes
	}
	tree := s.doc.FindElement("//p:cSld/p:spTree")
	if tree == nil {
		return nil
	}
	for _, el := range tree.SelectElements("p:sp") {
		s.shapes = append(s.shapes, wrapShape(el))
	}
	return s.shapes
}

// ShapeNamed finds a shape by exact name.
func (s *Slide) ShapeNamed(name string) *Shape {
	for _, shape := range s.Shapes() {
		if shape.Name() == name {
			return shape
		}
	}
	return nil
}

// RemoveShape deletes the shape from the slide entirely, leaving no
// placeholder behind.
func (s *Slide) RemoveShape(shape *Shape) {
	if parent := shape.el.Parent(); parent != nil {
		parent.RemoveChild(shape.el)
	}
	s.shapes = nil
}

// Layout returns the layout this slide was created from.
func (s *Slide) Layout() *Layout { return s.layout }

// AddImage registers image bytes as a media part and relates it to this
// slide, returning the relationship id for a:blip/@r:embed.
func (s *Slide) AddImage(data []byte, ext string) string {
	partName := fmt.Sprintf("ppt/media/image%d.%s", s.deck.nextMedia, strings.TrimPrefix(ext, "."))
	s.deck.nextMedia++
	s.deck.media = append(s.deck.media, mediaPart{partName: partName, data: data})

	rels := s.rels.SelectElement("Relationships")
	relID := fmt.Sprintf("rId%d", len(rels.ChildElements())+1)
	rel := rels.CreateElement("Relationship")
	rel.CreateAttr("Id", relID)
	rel.CreateAttr("Type", relTypeImage)
	rel.CreateAttr("Target", "../media/"+filepath.Base(partName))
	return relID
}

// ReplaceWithPicture swaps a placeholder shape for a p:pic element bound to
// the related media part, keeping the placeholder's geometry and index so
// layout inheritance still applies.
func (s *Slide) ReplaceWithPicture(shape *Shape, relID string) {
	parent := shape.el.Parent()
	if parent == nil {
		return
	}

	pic := etree.NewElement("p:pic")

	nvPicPr := pic.CreateElement("p:nvPicPr")
	cNvPr := nvPicPr.CreateElement("p:cNvPr")
	cNvPr.CreateAttr("id", strconv.Itoa(s.deck.nextShapeID))
	s.deck.nextShapeID++
	cNvPr.CreateAttr("name", shape.Name())
	cNvPicPr := nvPicPr.CreateElement("p:cNvPicPr")
	picLocks := cNvPicPr.CreateElement("a:picLocks")
	picLocks.CreateAttr("noChangeAspect", "1")
	nvPr := nvPicPr.CreateElement("p:nvPr")
	if ph := shape.el.FindElement("p:nvSpPr/p:nvPr/p:ph"); ph != nil {
		nvPr.AddChild(ph.Copy())
	}

	blipFill := pic.CreateElement("p:blipFill")
	blip := blipFill.CreateElement("a:blip")
	blip.CreateAttr("r:embed", relID)
	stretch := blipFill.CreateElement("a:stretch")
	stretch.CreateElement("a:fillRect")

	spPr := pic.CreateElement("p:spPr")
	if xfrm := shape.transform(); xfrm != nil {
		spPr.AddChild(xfrm.Copy())
	}
	prstGeom := spPr.CreateElement("a:prstGeom")
	prstGeom.CreateAttr("prst", "rect")
	prstGeom.CreateElement("a:avLst")

	parent.InsertChildAt(shape.el.Index(), pic)
	parent.RemoveChild(shape.el)
	s.shapes = nil
}

// Save serializes the deck to a .pptx file. Template parts pass through
// byte-identical; presentation.xml, its rels and the content types are
// rebuilt to reference exactly our slides.
func (d *Deck) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.Wrap(err, errors.ErrCodeStorage, "create output directory")
	}
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeStorage, "create output file")
	}
	defer f.Close()

	zw := zip.NewWriter(f)
	if err := d.writeParts(zw); err != nil {
		zw.Close()
		return err
	}
	if err := zw.Close(); err != nil {
		return errors.Wrap(err, errors.ErrCodeStorage, "finalize output archive")
	}
	return f.Close()
}

func (d *Deck) writeParts(zw *zip.Writer) error {
	presDoc, presRels, err := d.buildPresentationParts()
	if err != nil {
		return err
	}
	ctDoc, err := d.buildContentTypes()
	if err != nil {
		return err
	}

	rebuilt := map[string]bool{
		partPresentation: true,
		partPresRels:     true,
		partContentTypes: true,
	}

	writeDoc := func(name string, doc *etree.Document) error {
		w, err := zw.Create(name)
		if err != nil {
			return errors.Wrap(err, errors.ErrCodeStorage, "write "+name)
		}
		if _, err := doc.WriteTo(w); err != nil {
			return errors.Wrap(err, errors.ErrCodeStorage, "write "+name)
		}
		return nil
	}

	// copy-through of untouched template parts, original order
	for _, name := range d.tpl.order {
		if rebuilt[name] || slidePartRe.MatchString(name) {
			continue
		}
		w, err := zw.Create(name)
		if err != nil {
			return errors.Wrap(err, errors.ErrCodeStorage, "write "+name)
		}
		if _, err := w.Write(d.tpl.parts[name]); err != nil {
			return errors.Wrap(err, errors.ErrCodeStorage, "write "+name)
		}
	}

	if err := writeDoc(partContentTypes, ctDoc); err != nil {
		return err
	}
	if err := writeDoc(partPresentation, presDoc); err != nil {
		return err
	}
	if err := writeDoc(partPresRels, presRels); err != nil {
		return err
	}

	for i, slide := range d.slides {
		if err := writeDoc(slidePartName(i), slide.doc); err != nil {
			return err
		}
		if err := writeDoc(slideRelsPartName(i), slide.rels); err != nil {
			return err
		}
	}

	for _, m := range d.media {
		w, err := zw.Create(m.partName)
		if err != nil {
			return errors.Wrap(err, errors.ErrCodeStorage, "write "+m.partName)
		}
		if _, err := w.Write(m.data); err != nil {
			return errors.Wrap(err, errors.ErrCodeStorage, "write "+m.partName)
		}
	}
	return nil
}

func slidePartName(i int) string {
	return fmt.Sprintf("ppt/slides/slide%d.xml", i+1)
}

func slideRelsPartName(i int) string {
	return fmt.Sprintf("ppt/slides/_rels/slide%d.xml.rels", i+1)
}

// buildPresentationParts rewrites presentation.xml and its rels: template
// slide references are dropped, references to our slides appended with
// relationship ids above any the template already uses.
func (d *Deck) buildPresentationParts() (*etree.Document, *etree.Document, error) {
	pres := etree.NewDocument()
	if err := pres.ReadFromBytes(d.tpl.parts[partPresentation]); err != nil {
		return nil, nil, errors.Wrap(err, errors.ErrCodeMalformed, "parse presentation.xml")
	}
	rels := etree.NewDocument()
	if err := rels.ReadFromBytes(d.tpl.parts[partPresRels]); err != nil {
		return nil, nil, errors.Wrap(err, errors.ErrCodeMalformed, "parse presentation rels")
	}

	relsRoot := rels.SelectElement("Relationships")
	maxRel := 0
	for _, rel := range relsRoot.SelectElements("Relationship") {
		if rel.SelectAttrValue("Type", "") == relTypeSlide {
			relsRoot.RemoveChild(rel)
			continue
		}
		id := rel.SelectAttrValue("Id", "")
		if n, err := strconv.Atoi(strings.TrimPrefix(id, "rId")); err == nil && n > maxRel {
			maxRel = n
		}
	}

	root := pres.FindElement("p:presentation")
	if root == nil {
		return nil, nil, errors.New(errors.ErrCodeMalformed, "presentation.xml has no p:presentation root")
	}
	if old := root.FindElement("p:sldIdLst"); old != nil {
		root.RemoveChild(old)
	}

	sldIdLst := etree.NewElement("p:sldIdLst")
	for i := range d.slides {
		relID := fmt.Sprintf("rId%d", maxRel+i+1)

		rel := relsRoot.CreateElement("Relationship")
		rel.CreateAttr("Id", relID)
		rel.CreateAttr("Type", relTypeSlide)
		rel.CreateAttr("Target", "slides/"+filepath.Base(slidePartName(i)))

		sldID := sldIdLst.CreateElement("p:sldId")
		sldID.CreateAttr("id", strconv.Itoa(256+i))
		sldID.CreateAttr("r:id", relID)
	}

	// sldIdLst sits after sldMasterIdLst when present, else first.
	insertAt := 0
	if masters := root.FindElement("p:sldMasterIdLst"); masters != nil {
		insertAt = masters.Index() + 1
	}
	root.InsertChildAt(insertAt, sldIdLst)

	return pres, rels, nil
}

// buildContentTypes rewrites [Content_Types].xml: template slide overrides
// dropped, overrides for our slides added, image defaults guaranteed.
func (d *Deck) buildContentTypes() (*etree.Document, error) {
	ct := etree.NewDocument()
	if err := ct.ReadFromBytes(d.tpl.parts[partContentTypes]); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeMalformed, "parse content types")
	}
	root := ct.SelectElement("Types")
	if root == nil {
		return nil, errors.New(errors.ErrCodeMalformed, "content types missing Types root")
	}

	for _, ov := range root.SelectElements("Override") {
		if strings.HasPrefix(ov.SelectAttrValue("PartName", ""), "/ppt/slides/") {
			root.RemoveChild(ov)
		}
	}

	defaults := map[string]bool{}
	for _, def := range root.SelectElements("Default") {
		defaults[strings.ToLower(def.SelectAttrValue("Extension", ""))] = true
	}
	for ext, mime := range map[string]string{
		"png":  "image/png",
		"jpeg": "image/jpeg",
		"jpg":  "image/jpeg",
		"gif":  "image/gif",
	} {
		if !defaults[ext] {
			def := root.CreateElement("Default")
			def.CreateAttr("Extension", ext)
			def.CreateAttr("ContentType", mime)
		}
	}

	for i := range d.slides {
		ov := root.CreateElement("Override")
		ov.CreateAttr("PartName", "/"+slidePartName(i))
		ov.CreateAttr("ContentType", contentTypeSlide)
	}
	return ct, nil
}
