package variant

import "github.com/shopspring/decimal"

// PriceRange returns the lowest and highest variant price. ok is false for
// an empty list.
func PriceRange(variants []Variant) (min, max decimal.Decimal, ok bool) {
	if len(variants) == 0 {
		return decimal.Zero, decimal.Zero, false
	}

	min, max = variants[0].Price, variants[0].Price
	for _, v := range variants[1:] {
		if v.Price.LessThan(min) {
			min = v.Price
		}
		if v.Price.GreaterThan(max) {
			max = v.Price
		}
	}
	return min, max, true
}
