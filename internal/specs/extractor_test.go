package specs

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/reiger65/stonewhistle-workshop-manager/pkg/shopify"
	"github.com/reiger65/stonewhistle-workshop-manager/pkg/types"
)

func TestExtract(t *testing.T) {
	tests := []struct {
		name string
		line shopify.LineItem
		want types.ItemSpec
	}{
		{
			name: "model and tuning from title",
			line: shopify.LineItem{Title: "Alpha C4"},
			want: types.ItemSpec{ItemType: "Alpha", Tuning: "C4", Frequency: "440"},
		},
		{
			name: "432 token in title overrides default pitch",
			line: shopify.LineItem{Title: "Orion D3 432Hz"},
			want: types.ItemSpec{ItemType: "Orion", Tuning: "D3", Frequency: "432"},
		},
		{
			name: "minor tuning with accidental",
			line: shopify.LineItem{Title: "Luna F#m3 handcrafted"},
			want: types.ItemSpec{ItemType: "Luna", Tuning: "F#m3", Frequency: "440"},
		},
		{
			name: "variant string fills color tuning engraving",
			line: shopify.LineItem{
				Title:        "Vega",
				VariantTitle: "ocean blue / E3 / custom logo",
			},
			want: types.ItemSpec{
				ItemType: "Vega", Tuning: "E3", Color: "ocean blue",
				Engraving: "custom logo", Frequency: "440",
			},
		},
		{
			name: "properties beat variant string",
			line: shopify.LineItem{
				Title:        "Terra A3",
				VariantTitle: "sandstone / A3",
				Properties: []shopify.Property{
					{Name: "Color choice", Value: "charcoal"},
					{Name: "Engraving text", Value: "for Mira"},
					{Name: "Pitch", Value: "432 Hz"},
				},
			},
			want: types.ItemSpec{
				ItemType: "Terra", Tuning: "A3", Color: "charcoal",
				Engraving: "for Mira", Frequency: "432",
			},
		},
		{
			name: "key property without note pattern kept verbatim",
			line: shopify.LineItem{
				Title: "Nova",
				Properties: []shopify.Property{
					{Name: "Key", Value: "Celtic minor"},
				},
			},
			want: types.ItemSpec{ItemType: "Nova", Tuning: "Celtic minor", Frequency: "440"},
		},
		{
			name: "unknown title yields empty spec with default pitch",
			line: shopify.LineItem{Title: "Gift card"},
			want: types.ItemSpec{Frequency: "440"},
		},
		{
			name: "blank property values ignored",
			line: shopify.LineItem{
				Title: "Alpha C4",
				Properties: []shopify.Property{
					{Name: "Color", Value: "  "},
					{Name: "", Value: "x"},
				},
			},
			want: types.ItemSpec{ItemType: "Alpha", Tuning: "C4", Frequency: "440"},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := Extract(tc.line)
			assert.Equal(t, tc.want, got.Spec)
		})
	}
}

func TestExtractCopiesFulfillableQuantity(t *testing.T) {
	got := Extract(shopify.LineItem{Title: "Alpha C4", FulfillableQuantity: 3})
	assert.Equal(t, 3, got.Fulfillable)
}
