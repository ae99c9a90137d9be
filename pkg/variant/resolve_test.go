package variant

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func attrs(pairs ...string) Attributes {
	out := make(Attributes, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		out = append(out, Attribute{Name: pairs[i], Value: pairs[i+1]})
	}
	return out
}

func shirtVariants() []Variant {
	return []Variant{
		{ID: "1", Attributes: attrs("color", "black", "size", "L")},
		{ID: "2", Attributes: attrs("color", "white", "size", "L")},
	}
}

func TestSections(t *testing.T) {
	t.Run("first seen order", func(t *testing.T) {
		variants := []Variant{
			{ID: "1", Attributes: attrs("size", "M", "color", "red")},
			{ID: "2", Attributes: attrs("color", "blue", "material", "wool", "size", "L")},
		}
		assert.Equal(t, []string{"size", "color", "material"}, Sections(variants))
	})

	t.Run("empty input", func(t *testing.T) {
		assert.Empty(t, Sections(nil))
	})

	t.Run("same set under permutation", func(t *testing.T) {
		variants := []Variant{
			{ID: "1", Attributes: attrs("color", "black", "size", "L")},
			{ID: "2", Attributes: attrs("fit", "slim", "color", "white")},
			{ID: "3", Attributes: attrs("size", "S")},
		}
		reversed := []Variant{variants[2], variants[1], variants[0]}

		assert.ElementsMatch(t, Sections(variants), Sections(reversed))
		assert.Equal(t, []string{"size", "fit", "color"}, Sections(reversed))
	})
}

func TestValuesFor(t *testing.T) {
	variants := []Variant{
		{ID: "1", Attributes: attrs("color", "black", "size", "L")},
		{ID: "2", Attributes: attrs("color", "white", "size", "L")},
		{ID: "3", Attributes: attrs("color", "black", "size", "M")},
		{ID: "4", Attributes: attrs("size", "XL")},
	}

	assert.Equal(t, []string{"black", "white"}, ValuesFor(variants, "color"))
	assert.Equal(t, []string{"L", "M", "XL"}, ValuesFor(variants, "size"))
	assert.Empty(t, ValuesFor(variants, "material"))
}

func TestValuesFor_RepeatedNameUsesLastValue(t *testing.T) {
	variants := []Variant{
		{ID: "1", Attributes: attrs("color", "black", "color", "navy")},
	}
	assert.Equal(t, []string{"navy"}, ValuesFor(variants, "color"))
}

func TestIsAvailable(t *testing.T) {
	variants := shirtVariants()

	tests := []struct {
		name      string
		selection Selection
		section   string
		candidate string
		want      bool
	}{
		{"matching other section", Selection{"size": "L"}, "color", "white", true},
		{"unknown value", Selection{"size": "L"}, "color", "red", false},
		{"empty selection is wildcard", Selection{}, "size", "L", true},
		{"nil selection is wildcard", nil, "color", "black", true},
		{"conflicting fixed selection", Selection{"size": "M"}, "color", "black", false},
		{"own section ignored", Selection{"color": "black", "size": "L"}, "color", "white", true},
		{"unknown section", Selection{}, "material", "wool", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsAvailable(variants, tt.selection, tt.section, tt.candidate))
		})
	}
}

func TestIsAvailable_MissingAttributeIsNonMatch(t *testing.T) {
	variants := []Variant{
		{ID: "1", Attributes: attrs("color", "black")},
		{ID: "2", Attributes: attrs("color", "white", "size", "L")},
	}

	assert.False(t, IsAvailable(variants, Selection{"size": "L"}, "color", "black"))
	assert.True(t, IsAvailable(variants, Selection{"size": "L"}, "color", "white"))
	assert.True(t, IsAvailable(variants, Selection{}, "color", "black"))
}

func TestApplySelection(t *testing.T) {
	t.Run("sets value", func(t *testing.T) {
		got := ApplySelection(Selection{"size": "L"}, "color", "black")
		assert.Equal(t, Selection{"size": "L", "color": "black"}, got)
	})

	t.Run("replaces value", func(t *testing.T) {
		got := ApplySelection(Selection{"color": "white"}, "color", "black")
		assert.Equal(t, Selection{"color": "black"}, got)
	})

	t.Run("same value toggles off", func(t *testing.T) {
		got := ApplySelection(Selection{"color": "black", "size": "L"}, "color", "black")
		assert.Equal(t, Selection{"size": "L"}, got)
	})

	t.Run("does not mutate input", func(t *testing.T) {
		in := Selection{"color": "black"}
		_ = ApplySelection(in, "color", "black")
		_ = ApplySelection(in, "size", "L")
		assert.Equal(t, Selection{"color": "black"}, in)
	})

	t.Run("nil input", func(t *testing.T) {
		assert.Equal(t, Selection{"size": "S"}, ApplySelection(nil, "size", "S"))
	})
}

func TestApplySelection_DoubleToggleRemovesKey(t *testing.T) {
	starts := []Selection{
		{},
		{"size": "L"},
		{"color": "white", "size": "L"},
	}

	for _, s := range starts {
		got := ApplySelection(ApplySelection(s, "color", "black"), "color", "black")
		want := s.Clone()
		delete(want, "color")
		assert.Equal(t, want, got)
	}
}

func TestResolve(t *testing.T) {
	variants := shirtVariants()

	t.Run("complete selection", func(t *testing.T) {
		v, ok := Resolve(variants, Selection{"color": "black", "size": "L"})
		require.True(t, ok)
		assert.Equal(t, ID("1"), v.ID)
	})

	t.Run("incomplete selection", func(t *testing.T) {
		v, ok := Resolve(variants, Selection{"color": "black"})
		assert.False(t, ok)
		assert.Nil(t, v)
	})

	t.Run("no match", func(t *testing.T) {
		_, ok := Resolve(variants, Selection{"color": "red", "size": "L"})
		assert.False(t, ok)
	})

	t.Run("empty variant list", func(t *testing.T) {
		_, ok := Resolve(nil, Selection{"color": "black"})
		assert.False(t, ok)
	})

	t.Run("returned variant is a copy", func(t *testing.T) {
		v, ok := Resolve(variants, Selection{"color": "white", "size": "L"})
		require.True(t, ok)
		v.ID = "changed"
		assert.Equal(t, ID("2"), variants[1].ID)
	})
}

func TestResolve_DuplicateAttributeMapsYieldNoVariant(t *testing.T) {
	variants := []Variant{
		{ID: "1", Attributes: attrs("color", "black", "size", "L")},
		{ID: "2", Attributes: attrs("size", "L", "color", "black")},
	}

	v, ok := Resolve(variants, Selection{"color": "black", "size": "L"})
	assert.False(t, ok)
	assert.Nil(t, v)
}

func TestResolve_PartialVariantNeverMatchesFullSelection(t *testing.T) {
	variants := []Variant{
		{ID: "1", Attributes: attrs("color", "black")},
		{ID: "2", Attributes: attrs("color", "black", "size", "L")},
	}

	v, ok := Resolve(variants, Selection{"color": "black", "size": "L"})
	require.True(t, ok)
	assert.Equal(t, ID("2"), v.ID)
}

func TestResolve_SingleVariantWithoutOptions(t *testing.T) {
	variants := []Variant{{ID: "only"}}

	v, ok := Resolve(variants, Selection{})
	require.True(t, ok)
	assert.Equal(t, ID("only"), v.ID)
}
