package variant

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// ID is an opaque variant identifier. The catalog API sends it either as a
// JSON string or as a number; both decode to the same textual form.
type ID string

// UnmarshalJSON accepts string and numeric identifiers.
func (id *ID) UnmarshalJSON(data []byte) error {
	raw, err := scalarText(data)
	if err != nil {
		return fmt.Errorf("decode variant id: %w", err)
	}
	*id = ID(raw)
	return nil
}

// Attribute is one named option value of a variant.
type Attribute struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Attributes is the ordered attribute list of a variant.
//
// Order matters: Sections reports attribute names in the order they are
// first seen across variants.
type Attributes []Attribute

// Get returns the value for name. When a name is repeated the last value
// wins.
func (a Attributes) Get(name string) (string, bool) {
	for i := len(a) - 1; i >= 0; i-- {
		if a[i].Name == name {
			return a[i].Value, true
		}
	}
	return "", false
}

// Map returns the effective name to value mapping (last value wins).
func (a Attributes) Map() map[string]string {
	m := make(map[string]string, len(a))
	for _, attr := range a {
		m[attr.Name] = attr.Value
	}
	return m
}

// UnmarshalJSON decodes either a list of {"name","value"} objects or a
// plain JSON object. Object key order is preserved.
func (a *Attributes) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*a = nil
		return nil
	}

	switch trimmed[0] {
	case '[':
		var list []Attribute
		if err := json.Unmarshal(trimmed, &list); err != nil {
			return fmt.Errorf("decode attribute list: %w", err)
		}
		*a = list
		return nil
	case '{':
		return a.decodeObject(trimmed)
	default:
		return fmt.Errorf("decode attributes: unexpected JSON %q", string(trimmed[:1]))
	}
}

func (a *Attributes) decodeObject(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	if _, err := dec.Token(); err != nil {
		return fmt.Errorf("decode attributes: %w", err)
	}

	out := Attributes{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("decode attribute name: %w", err)
		}
		name, ok := tok.(string)
		if !ok {
			return fmt.Errorf("decode attribute name: unexpected token %v", tok)
		}

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return fmt.Errorf("decode attribute %q: %w", name, err)
		}
		value, err := scalarText(raw)
		if err != nil {
			return fmt.Errorf("decode attribute %q: %w", name, err)
		}
		out = append(out, Attribute{Name: name, Value: value})
	}

	*a = out
	return nil
}

// scalarText renders a JSON string, number or bool as plain text.
func scalarText(data []byte) (string, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return "", fmt.Errorf("empty value")
	}
	switch trimmed[0] {
	case '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return "", err
		}
		return s, nil
	case '{', '[':
		return "", fmt.Errorf("expected scalar, got %s", strings.TrimSpace(string(trimmed[:1])))
	default:
		if bytes.Equal(trimmed, []byte("null")) {
			return "", nil
		}
		return string(trimmed), nil
	}
}

// Variant is one purchasable configuration (SKU) of a product.
type Variant struct {
	ID            ID              `json:"id"`
	SKU           string          `json:"sku,omitempty"`
	Attributes    Attributes      `json:"attributes"`
	Price         decimal.Decimal `json:"price"`
	OriginalPrice decimal.Decimal `json:"original_price"`
}

// Discounted reports whether the variant sells below its original price.
func (v Variant) Discounted() bool {
	return !v.OriginalPrice.IsZero() && v.OriginalPrice.GreaterThan(v.Price)
}

// Selection maps section names to the chosen value. Absent sections are
// unconstrained.
type Selection map[string]string

// Clone returns an independent copy. A nil selection clones to an empty one.
func (s Selection) Clone() Selection {
	out := make(Selection, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// Covers reports whether every section has a chosen value.
func (s Selection) Covers(sections []string) bool {
	for _, name := range sections {
		if _, ok := s[name]; !ok {
			return false
		}
	}
	return true
}
