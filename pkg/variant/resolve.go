package variant

// Sections returns the union of attribute names across variants in the
// order they are first seen.
func Sections(variants []Variant) []string {
	seen := make(map[string]struct{})
	sections := make([]string, 0)
	for _, v := range variants {
		for _, attr := range v.Attributes {
			if _, ok := seen[attr.Name]; ok {
				continue
			}
			seen[attr.Name] = struct{}{}
			sections = append(sections, attr.Name)
		}
	}
	return sections
}

// ValuesFor returns the distinct values seen for section, in first-seen
// order. A repeated name inside one variant contributes only its effective
// (last) value.
func ValuesFor(variants []Variant, section string) []string {
	seen := make(map[string]struct{})
	values := make([]string, 0)
	for _, v := range variants {
		value, ok := v.Attributes.Get(section)
		if !ok {
			continue
		}
		if _, dup := seen[value]; dup {
			continue
		}
		seen[value] = struct{}{}
		values = append(values, value)
	}
	return values
}

// IsAvailable reports whether choosing candidate for section would still
// leave at least one variant matching every other fixed selection.
//
// Sections absent from selection are wildcards. The current value of
// section itself is ignored, so an already selected section can be probed
// for alternatives.
func IsAvailable(variants []Variant, selection Selection, section, candidate string) bool {
	for _, v := range variants {
		value, ok := v.Attributes.Get(section)
		if !ok || value != candidate {
			continue
		}
		if matchesExcept(v, selection, section) {
			return true
		}
	}
	return false
}

// ApplySelection returns a new selection with value chosen for section.
// Choosing the value that is already selected deselects the section.
// The input selection is never modified.
func ApplySelection(selection Selection, section, value string) Selection {
	next := selection.Clone()
	if current, ok := next[section]; ok && current == value {
		delete(next, section)
		return next
	}
	next[section] = value
	return next
}

// Resolve returns the variant designated by a complete selection.
//
// It reports false when the selection leaves a section open, when no variant
// carries exactly the selected attributes, or when more than one does.
func Resolve(variants []Variant, selection Selection) (*Variant, bool) {
	return resolve(variants, Sections(variants), selection)
}

func resolve(variants []Variant, sections []string, selection Selection) (*Variant, bool) {
	if !selection.Covers(sections) {
		return nil, false
	}

	match := -1
	for i := range variants {
		if !equalsSelection(variants[i].Attributes, selection) {
			continue
		}
		if match >= 0 {
			return nil, false
		}
		match = i
	}
	if match < 0 {
		return nil, false
	}

	v := variants[match]
	return &v, true
}

// matchesExcept reports whether v satisfies every entry of selection other
// than skip. A missing attribute is a non-match.
func matchesExcept(v Variant, selection Selection, skip string) bool {
	for name, want := range selection {
		if name == skip {
			continue
		}
		got, ok := v.Attributes.Get(name)
		if !ok || got != want {
			return false
		}
	}
	return true
}

func equalsSelection(attrs Attributes, selection Selection) bool {
	effective := attrs.Map()
	if len(effective) != len(selection) {
		return false
	}
	for name, want := range selection {
		got, ok := effective[name]
		if !ok || got != want {
			return false
		}
	}
	return true
}
