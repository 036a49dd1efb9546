package specs

import (
	"regexp"
	"strings"

	"github.com/reiger65/stonewhistle-workshop-manager/pkg/shopify"
	"github.com/reiger65/stonewhistle-workshop-manager/pkg/types"
)

// Extraction is the result of parsing one platform line item: the physical
// specification plus the remaining fulfillable quantity, copied through so
// downstream lifecycle decisions need no second platform call.
type Extraction struct {
	Spec        types.ItemSpec
	Fulfillable int
}

// instrumentModels maps a lowercased title keyword to the canonical model
// name stamped on the item. First keyword found in the title wins.
var instrumentModels = []struct {
	keyword string
	model   string
}{
	{"alpha", "Alpha"},
	{"orion", "Orion"},
	{"luna", "Luna"},
	{"vega", "Vega"},
	{"terra", "Terra"},
	{"nova", "Nova"},
	{"drifter", "Drifter"},
	{"whistle", "Whistle"},
}

// tuningPattern matches a note letter, optional accidental, optional minor
// marker, and an octave digit: C4, F#3, Bbm2, Em4.
var tuningPattern = regexp.MustCompile(`[A-G](#|b)?m?[0-9]`)

// Extract derives the specification bag from a line item's title, variant
// string, and custom properties. Missing fields degrade to defaults; it never
// fails. Precedence within the extraction: explicit properties beat the
// variant string, which beats whatever the title yields.
func Extract(line shopify.LineItem) Extraction {
	spec := types.ItemSpec{}

	lowerTitle := strings.ToLower(line.Title)
	for _, m := range instrumentModels {
		if strings.Contains(lowerTitle, m.keyword) {
			spec.ItemType = m.model
			break
		}
	}
	spec.Tuning = tuningPattern.FindString(line.Title)

	applyVariant(&spec, line.VariantTitle)
	applyProperties(&spec, line.Properties)

	if spec.Frequency == "" {
		spec.Frequency = frequencyFromText(line.Title)
	}
	if spec.Frequency == "" {
		spec.Frequency = "440"
	}

	return Extraction{Spec: spec, Fulfillable: line.FulfillableQuantity}
}

// applyVariant reads the slash-delimited variant positionally:
// color / tuning / engraving.
func applyVariant(spec *types.ItemSpec, variant string) {
	if strings.TrimSpace(variant) == "" {
		return
	}
	parts := strings.Split(variant, "/")
	for i, part := range parts {
		value := strings.TrimSpace(part)
		if value == "" {
			continue
		}
		switch i {
		case 0:
			spec.Color = value
		case 1:
			if tuningPattern.MatchString(value) {
				spec.Tuning = tuningPattern.FindString(value)
			} else {
				spec.Tuning = value
			}
		case 2:
			spec.Engraving = value
		}
	}
}

func applyProperties(spec *types.ItemSpec, properties []shopify.Property) {
	for _, p := range properties {
		name := strings.ToLower(strings.TrimSpace(p.Name))
		value := strings.TrimSpace(p.Value)
		if name == "" || value == "" {
			continue
		}
		switch {
		case strings.Contains(name, "color") || strings.Contains(name, "colour"):
			spec.Color = value
		case strings.Contains(name, "tuning") || strings.Contains(name, "key") ||
			strings.Contains(name, "scale"):
			if tuningPattern.MatchString(value) {
				spec.Tuning = tuningPattern.FindString(value)
			} else {
				spec.Tuning = value
			}
		case strings.Contains(name, "engrav"):
			spec.Engraving = value
		case strings.Contains(name, "frequency") || strings.Contains(name, "hz") ||
			strings.Contains(name, "pitch"):
			if f := frequencyFromText(value); f != "" {
				spec.Frequency = f
			}
		case strings.Contains(name, "model") || strings.Contains(name, "type"):
			spec.ItemType = value
		}
	}
}

// frequencyFromText recognizes the two pitch standards the workshop builds
// to. Anything else is left unresolved and defaulted by the caller.
func frequencyFromText(text string) string {
	switch {
	case strings.Contains(text, "432"):
		return "432"
	case strings.Contains(text, "440"):
		return "440"
	default:
		return ""
	}
}
