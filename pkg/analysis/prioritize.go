package analysis

// Precedence is the fixed ranking used by Prioritize, highest first.
var Precedence = []Category{
	CategorySecurity,
	CategoryPerformance,
	CategorySEO,
	CategoryUX,
	CategoryAccessibility,
	CategoryFeature,
}

// DefaultItem is returned when there is nothing to choose from.
var DefaultItem = Item{Type: CategoryFeature, Item: "Add general improvement"}

// Prioritize returns the first item of the highest ranked category present in
// items. Items with unknown categories are only picked when nothing ranks, in
// which case the first item wins.
func Prioritize(items []Item) Item {
	if len(items) == 0 {
		return DefaultItem
	}

	for _, category := range Precedence {
		for _, item := range items {
			if item.Type == category {
				return item
			}
		}
	}

	return items[0]
}
