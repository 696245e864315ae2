package model

type Category string

const (
	CategoryElectronics Category = "electronics"
	CategoryAppliances  Category = "appliances"
	CategoryFurniture   Category = "furniture"
	CategoryClothing    Category = "clothing"
	CategoryJewelry     Category = "jewelry"
	CategoryAutomotive  Category = "automotive"
	CategoryOther       Category = "other"

	// repairer-only specialties
	CategoryElectrical Category = "electrical"
	CategoryPlumbing   Category = "plumbing"
	CategoryCarpentry  Category = "carpentry"
)

var requestCategories = map[Category]struct{}{
	CategoryElectronics: {},
	CategoryAppliances:  {},
	CategoryFurniture:   {},
	CategoryClothing:    {},
	CategoryJewelry:     {},
	CategoryAutomotive:  {},
	CategoryOther:       {},
}

var repairerOnlyCategories = map[Category]struct{}{
	CategoryElectrical: {},
	CategoryPlumbing:   {},
	CategoryCarpentry:  {},
}

// IsRequestCategory reports whether c can be chosen when submitting a repair request.
func IsRequestCategory(c string) bool {
	_, ok := requestCategories[Category(c)]
	return ok
}

// IsRepairerCategory reports whether c can be listed on a repairer profile.
func IsRepairerCategory(c string) bool {
	if IsRequestCategory(c) {
		return true
	}
	_, ok := repairerOnlyCategories[Category(c)]
	return ok
}
