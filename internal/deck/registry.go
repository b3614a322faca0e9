package deck

import (
	"regexp"

	"github.com/markoub/power-it-sub001/pkg/errors"
)

// Slide type names understood by the pipeline.
const (
	TypeWelcome          = "welcome"
	TypeTableOfContents  = "tableofcontents"
	TypeSection          = "section"
	TypeContent          = "content"
	TypeContentImage     = "contentimage"
	TypeContentWithLogos = "contentwithlogos"
	TypeImageFull        = "imagefull"
	TypeThankYou         = "thankyou"
)

// TypeDefinition maps a slide type to the template layout that renders it
// and the ordered components the binder fills.
type TypeDefinition struct {
	Layout     string
	Components []string
}

var definitions = map[string]TypeDefinition{
	TypeWelcome:          {Layout: "Welcome", Components: []string{"title", "subtitle", "author"}},
	TypeTableOfContents:  {Layout: "TableOfContents", Components: []string{"sections"}},
	TypeSection:          {Layout: "Section", Components: []string{"title", "number"}},
	TypeContent:          {Layout: "Content", Components: []string{"title", "content"}},
	TypeContentImage:     {Layout: "ContentImage", Components: []string{"title", "content", "image"}},
	TypeContentWithLogos: {Layout: "ContentWithLogos", Components: []string{"title", "content", "logo1", "logo2", "logo3"}},
	TypeImageFull:        {Layout: "ImageFull", Components: []string{"title", "image", "explanation"}},
	TypeThankYou:         {Layout: "ThankYou", Components: []string{"title", "subtitle"}},
}

var imageComponentRe = regexp.MustCompile(`^(image|logo)[0-9]*$`)

// Definition returns the catalog entry for a slide type.
func Definition(slideType string) (TypeDefinition, error) {
	def, ok := definitions[slideType]
	if !ok {
		return TypeDefinition{}, errors.Newf(errors.ErrCodeUnknownType, "no definition for slide type %q", slideType)
	}
	return def, nil
}

// KnownType reports whether the slide type exists in the catalog.
func KnownType(slideType string) bool {
	_, ok := definitions[slideType]
	return ok
}

// IsImageComponent reports whether a component name follows the image-field
// naming convention (image, image1..N, logo1..N).
func IsImageComponent(name string) bool {
	return imageComponentRe.MatchString(name)
}

// ImageComponents returns the image-typed component names of a slide type,
// in declared order.
func ImageComponents(slideType string) []string {
	def, ok := definitions[slideType]
	if !ok {
		return nil
	}
	var out []string
	for _, c := range def.Components {
		if IsImageComponent(c) {
			out = append(out, c)
		}
	}
	return out
}
