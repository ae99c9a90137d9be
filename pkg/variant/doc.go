// Package variant resolves product option selections to concrete SKUs.
//
// A product is sold as a set of variants. Each variant carries an ordered
// list of named attribute values (color=black, size=L). The package answers
// the questions an option picker asks while the buyer clicks through it:
//
//   - which attribute names exist (Sections), in first-seen order
//   - which values exist for one attribute (ValuesFor)
//   - whether picking a value next would still lead to a variant (IsAvailable)
//   - how a click changes the selection (ApplySelection, toggle semantics)
//   - which variant a complete selection designates (Resolve)
//
// Example usage:
//
//	r := variant.NewResolver(product.Variants)
//	sel := variant.Selection{}
//	sel = variant.ApplySelection(sel, "color", "black")
//	if r.IsAvailable(sel, "size", "L") {
//		sel = variant.ApplySelection(sel, "size", "L")
//	}
//	if v, ok := r.Resolve(sel); ok {
//		fmt.Println(v.ID, v.Price)
//	}
//
// All functions are pure. Degenerate input (no variants, duplicate attribute
// maps, variants missing attributes) yields empty or negative results, never
// a panic. A variant that lacks an attribute never matches a selection that
// constrains that attribute.
package variant
