package variant

// Option is one selectable value of a section as presented to a picker.
type Option struct {
	Value     string `json:"value"`
	Available bool   `json:"available"`
	Selected  bool   `json:"selected"`
}

// Section groups the options of one attribute name.
type Section struct {
	Name    string   `json:"name"`
	Options []Option `json:"options"`
}

// Resolver answers selection queries for one product. Sections and values
// are computed once; every answer equals the corresponding package function.
//
// A Resolver is immutable after construction and safe for concurrent use.
type Resolver struct {
	variants []Variant
	sections []string
	values   map[string][]string
}

// NewResolver copies variants and indexes their sections and values.
func NewResolver(variants []Variant) *Resolver {
	owned := make([]Variant, len(variants))
	copy(owned, variants)

	sections := Sections(owned)
	values := make(map[string][]string, len(sections))
	for _, name := range sections {
		values[name] = ValuesFor(owned, name)
	}

	return &Resolver{
		variants: owned,
		sections: sections,
		values:   values,
	}
}

// Variants returns the variants the resolver was built from.
func (r *Resolver) Variants() []Variant {
	out := make([]Variant, len(r.variants))
	copy(out, r.variants)
	return out
}

// Sections returns the attribute names in first-seen order.
func (r *Resolver) Sections() []string {
	out := make([]string, len(r.sections))
	copy(out, r.sections)
	return out
}

// Values returns the distinct values of section, or nil for an unknown section.
func (r *Resolver) Values(section string) []string {
	values, ok := r.values[section]
	if !ok {
		return nil
	}
	out := make([]string, len(values))
	copy(out, values)
	return out
}

// IsAvailable reports whether candidate can be chosen for section next.
func (r *Resolver) IsAvailable(selection Selection, section, candidate string) bool {
	return IsAvailable(r.variants, selection, section, candidate)
}

// Resolve returns the unique variant for a complete selection.
func (r *Resolver) Resolve(selection Selection) (*Variant, bool) {
	return resolve(r.variants, r.sections, selection)
}

// Options lays out every section with per-value availability under selection.
func (r *Resolver) Options(selection Selection) []Section {
	out := make([]Section, 0, len(r.sections))
	for _, name := range r.sections {
		values := r.values[name]
		section := Section{
			Name:    name,
			Options: make([]Option, 0, len(values)),
		}
		for _, value := range values {
			current, picked := selection[name]
			section.Options = append(section.Options, Option{
				Value:     value,
				Available: IsAvailable(r.variants, selection, name, value),
				Selected:  picked && current == value,
			})
		}
		out = append(out, section)
	}
	return out
}
