package pptx

import (
	"fmt"

	"github.com/markoub/power-it-sub001/internal/deck"
	"github.com/markoub/power-it-sub001/internal/infra/logger"
)

// DefaultTOCSlots is the slot count of the standard template's table of
// contents layout.
const DefaultTOCSlots = 8

// TOCGenerator fills the table-of-contents slide and builds section divider
// slides on top of the binder.
type TOCGenerator struct {
	maxSlots int
	log      *logger.Logger
}

func NewTOCGenerator(maxSlots int, log *logger.Logger) *TOCGenerator {
	if maxSlots <= 0 {
		maxSlots = DefaultTOCSlots
	}
	return &TOCGenerator{maxSlots: maxSlots, log: log}
}

// RenderTOC binds section titles into the numbered slots of a TOC slide.
// Slots beyond the title list are removed outright, not blanked, so unused
// entries leave no visual trace. Calling it again with the same titles is a
// no-op on the visible result.
func (g *TOCGenerator) RenderTOC(slide *Slide, sectionTitles []string) {
	for n := 1; n <= g.maxSlots; n++ {
		shape := g.slotShape(slide, n)
		if shape == nil {
			if n <= len(sectionTitles) && g.log != nil {
				g.log.Warn("no shape for TOC slot", "slot", n)
			}
			continue
		}
		if n <= len(sectionTitles) {
			// TOC entries never show list markers
			shape.setText([][]deck.Span{deck.ParseInline(sectionTitles[n-1])},
				textOptions{forceTopLevel: true})
		} else {
			slide.RemoveShape(shape)
		}
	}
}

// slotShape resolves the shape for slot n: a shape literally named
// "Section<n>", else the template default "Text Placeholder <n+1>" (offset
// by one past the title placeholder).
func (g *TOCGenerator) slotShape(slide *Slide, n int) *Shape {
	if shape := slide.ShapeNamed(fmt.Sprintf("Section%d", n)); shape != nil {
		return shape
	}
	return slide.ShapeNamed(fmt.Sprintf("Text Placeholder %d", n+1))
}

// VisibleSlots counts the remaining TOC slot shapes, used to verify slot
// cleanup.
func (g *TOCGenerator) VisibleSlots(slide *Slide) int {
	count := 0
	for n := 1; n <= g.maxSlots; n++ {
		if g.slotShape(slide, n) != nil {
			count++
		}
	}
	return count
}

// FormatSectionNumber renders a 1-based section ordinal zero-padded to at
// least two digits; wider numbers keep their full width.
func FormatSectionNumber(n int) string {
	return fmt.Sprintf("%02d", n)
}
