package pptx

import (
	"archive/zip"
	"bytes"
	"fmt"
	"strings"
	"testing"

	"go.uber.org/multierr"
)

func multierrList(err error) []error {
	return multierr.Errors(err)
}

const nsDecl = `xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main" xmlns:p="http://schemas.openxmlformats.org/presentationml/2006/main" xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships"`

func spShape(id int, name, phType, phIdx, text string) string {
	ph := ""
	if phType != "" || phIdx != "" {
		attrs := ""
		if phType != "" {
			attrs += fmt.Sprintf(` type=%q`, phType)
		}
		if phIdx != "" {
			attrs += fmt.Sprintf(` idx=%q`, phIdx)
		}
		ph = "<p:ph" + attrs + "/>"
	}
	return fmt.Sprintf(`<p:sp>
<p:nvSpPr><p:cNvPr id="%d" name=%q/><p:cNvSpPr/><p:nvPr>%s</p:nvPr></p:nvSpPr>
<p:spPr><a:xfrm><a:off x="0" y="0"/><a:ext cx="914400" cy="914400"/></a:xfrm></p:spPr>
<p:txBody><a:bodyPr/><a:lstStyle/><a:p><a:r><a:rPr lang="en-US"/><a:t>%s</a:t></a:r></a:p></p:txBody>
</p:sp>`, id, name, ph, text)
}

func decorationShape(id int) string {
	return fmt.Sprintf(`<p:sp>
<p:nvSpPr><p:cNvPr id="%d" name="Decoration %d"/><p:cNvSpPr/><p:nvPr/></p:nvSpPr>
<p:spPr/>
<p:txBody><a:bodyPr/><a:p><a:r><a:t>static art</a:t></a:r></a:p></p:txBody>
</p:sp>`, id, id)
}

func layoutXML(name string, shapes ...string) string {
	return fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<p:sldLayout %s>
<p:cSld name=%q>
<p:spTree>
<p:nvGrpSpPr><p:cNvPr id="1" name=""/><p:cNvGrpSpPr/><p:nvPr/></p:nvGrpSpPr>
<p:grpSpPr/>
%s
</p:spTree>
</p:cSld>
<p:clrMapOvr><a:overrideClrMapping bg1="lt1" tx1="dk1" bg2="lt2" tx2="dk2" accent1="accent1" accent2="accent2" accent3="accent3" accent4="accent4" accent5="accent5" accent6="accent6" hlink="hlink" folHlink="folHlink"/></p:clrMapOvr>
</p:sldLayout>`, nsDecl, name, strings.Join(shapes, "\n"))
}

// testLayouts builds the layout set the tests exercise. Order matters: the
// resolver's positional fallbacks are index-based.
func testLayouts() []string {
	tocShapes := []string{spShape(2, "Title 1", "title", "", "Agenda")}
	for n := 1; n <= 8; n++ {
		tocShapes = append(tocShapes, spShape(10+n, fmt.Sprintf("Section%d", n), "body", fmt.Sprint(n), ""))
	}
	return []string{
		layoutXML("Welcome",
			spShape(2, "Title 1", "ctrTitle", "", ""),
			spShape(3, "Subtitle 2", "subTitle", "1", ""),
			spShape(4, "Text Placeholder 3", "body", "2", ""),
		),
		layoutXML("TableOfContents", tocShapes...),
		layoutXML("Section",
			spShape(2, "Title 1", "title", "", ""),
			spShape(3, "Number", "body", "1", ""),
		),
		layoutXML("Content",
			spShape(2, "Title 1", "title", "", ""),
			spShape(3, "Content Placeholder 2", "body", "1", ""),
			decorationShape(9),
		),
		layoutXML("Content Image",
			spShape(2, "Title 1", "title", "", ""),
			spShape(3, "Content Placeholder 2", "body", "1", ""),
			spShape(4, "Picture Placeholder 3", "pic", "2", ""),
		),
	}
}

func buildTemplateZip(t *testing.T, layouts []string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	write := func(name, content string) {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("create %s: %v", name, err)
		}
		if _, err := w.Write([]byte(content)); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}

	var ctOverrides strings.Builder
	for i := range layouts {
		part := fmt.Sprintf("ppt/slideLayouts/slideLayout%d.xml", i+1)
		ctOverrides.WriteString(fmt.Sprintf(
			`<Override PartName="/%s" ContentType="application/vnd.openxmlformats-officedocument.presentationml.slideLayout+xml"/>`, part))
	}

	write("[Content_Types].xml", fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">
<Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>
<Default Extension="xml" ContentType="application/xml"/>
<Override PartName="/ppt/presentation.xml" ContentType="application/vnd.openxmlformats-officedocument.presentationml.presentation.main+xml"/>
<Override PartName="/ppt/slideMasters/slideMaster1.xml" ContentType="application/vnd.openxmlformats-officedocument.presentationml.slideMaster+xml"/>
<Override PartName="/ppt/slides/slide1.xml" ContentType="application/vnd.openxmlformats-officedocument.presentationml.slide+xml"/>
%s</Types>`, ctOverrides.String()))

	write("_rels/.rels", `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="ppt/presentation.xml"/>
</Relationships>`)

	write("ppt/presentation.xml", fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<p:presentation %s>
<p:sldMasterIdLst><p:sldMasterId id="2147483648" r:id="rId1"/></p:sldMasterIdLst>
<p:sldIdLst><p:sldId id="256" r:id="rId2"/></p:sldIdLst>
<p:sldSz cx="12192000" cy="6858000"/>
</p:presentation>`, nsDecl))

	write("ppt/_rels/presentation.xml.rels", `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/slideMaster" Target="slideMasters/slideMaster1.xml"/>
<Relationship Id="rId2" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/slide" Target="slides/slide1.xml"/>
</Relationships>`)

	write("ppt/slideMasters/slideMaster1.xml", fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<p:sldMaster %s><p:cSld><p:spTree>
<p:nvGrpSpPr><p:cNvPr id="1" name=""/><p:cNvGrpSpPr/><p:nvPr/></p:nvGrpSpPr>
<p:grpSpPr/>
</p:spTree></p:cSld></p:sldMaster>`, nsDecl))

	// an authored slide the deck writer must drop
	write("ppt/slides/slide1.xml", fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<p:sld %s><p:cSld><p:spTree>
<p:nvGrpSpPr><p:cNvPr id="1" name=""/><p:cNvGrpSpPr/><p:nvPr/></p:nvGrpSpPr>
<p:grpSpPr/>
</p:spTree></p:cSld></p:sld>`, nsDecl))
	write("ppt/slides/_rels/slide1.xml.rels", `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/slideLayout" Target="../slideLayouts/slideLayout1.xml"/>
</Relationships>`)

	for i, layout := range layouts {
		write(fmt.Sprintf("ppt/slideLayouts/slideLayout%d.xml", i+1), layout)
	}

	if err := zw.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}
	return buf.Bytes()
}

func openTestTemplate(t *testing.T) *Template {
	t.Helper()
	data := buildTemplateZip(t, testLayouts())
	tpl, err := OpenTemplateReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("open test template: %v", err)
	}
	return tpl
}
