package variant

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVariant_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  Attributes
		id    ID
	}{
		{
			name:  "attribute list",
			input: `{"id":"sku-1","attributes":[{"name":"color","value":"black"},{"name":"size","value":"L"}]}`,
			want:  attrs("color", "black", "size", "L"),
			id:    "sku-1",
		},
		{
			name:  "attribute object keeps key order",
			input: `{"id":7,"attributes":{"size":"L","color":"black","material":"cotton"}}`,
			want:  attrs("size", "L", "color", "black", "material", "cotton"),
			id:    "7",
		},
		{
			name:  "numeric attribute value",
			input: `{"id":"a","attributes":{"waist":32,"washable":true}}`,
			want:  attrs("waist", "32", "washable", "true"),
			id:    "a",
		},
		{
			name:  "missing attributes",
			input: `{"id":"bare"}`,
			want:  nil,
			id:    "bare",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var v Variant
			require.NoError(t, json.Unmarshal([]byte(tt.input), &v))
			assert.Equal(t, tt.id, v.ID)
			assert.Equal(t, tt.want, v.Attributes)
		})
	}
}

func TestVariant_UnmarshalJSON_Invalid(t *testing.T) {
	inputs := []string{
		`{"id":"x","attributes":"color"}`,
		`{"id":"x","attributes":{"color":{"nested":true}}}`,
		`{"id":{"x":1}}`,
	}
	for _, input := range inputs {
		var v Variant
		assert.Error(t, json.Unmarshal([]byte(input), &v), input)
	}
}

func TestVariant_Prices(t *testing.T) {
	var v Variant
	require.NoError(t, json.Unmarshal([]byte(`{"id":"1","price":"19.90","original_price":24.5}`), &v))

	assert.True(t, v.Price.Equal(decimal.RequireFromString("19.90")))
	assert.True(t, v.OriginalPrice.Equal(decimal.RequireFromString("24.5")))
	assert.True(t, v.Discounted())

	v.OriginalPrice = decimal.Zero
	assert.False(t, v.Discounted())
}

func TestAttributes_Get(t *testing.T) {
	a := attrs("color", "black", "size", "L", "color", "navy")

	got, ok := a.Get("color")
	assert.True(t, ok)
	assert.Equal(t, "navy", got)

	_, ok = a.Get("material")
	assert.False(t, ok)

	assert.Equal(t, map[string]string{"color": "navy", "size": "L"}, a.Map())
}

func TestSelection_Covers(t *testing.T) {
	s := Selection{"color": "black"}
	assert.True(t, s.Covers([]string{"color"}))
	assert.False(t, s.Covers([]string{"color", "size"}))
	assert.True(t, s.Covers(nil))
}

func TestPriceRange(t *testing.T) {
	_, _, ok := PriceRange(nil)
	assert.False(t, ok)

	variants := []Variant{
		{ID: "1", Price: decimal.RequireFromString("12.50")},
		{ID: "2", Price: decimal.RequireFromString("9.99")},
		{ID: "3", Price: decimal.RequireFromString("15")},
	}
	min, max, ok := PriceRange(variants)
	require.True(t, ok)
	assert.True(t, min.Equal(decimal.RequireFromString("9.99")))
	assert.True(t, max.Equal(decimal.RequireFromString("15")))
}
