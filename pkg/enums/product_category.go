package enums

import "fmt"

// ProductCategory maps to the category column on products.
type ProductCategory string

const (
	ProductCategoryBook       ProductCategory = "book"
	ProductCategoryGift       ProductCategory = "gift"
	ProductCategoryStationery ProductCategory = "stationery"
	ProductCategorySport      ProductCategory = "sport"
)

var validProductCategories = []ProductCategory{
	ProductCategoryBook,
	ProductCategoryGift,
	ProductCategoryStationery,
	ProductCategorySport,
}

// String implements fmt.Stringer.
func (p ProductCategory) String() string {
	return string(p)
}

// IsValid reports whether the value is a known ProductCategory.
func (p ProductCategory) IsValid() bool {
	for _, candidate := range validProductCategories {
		if candidate == p {
			return true
		}
	}
	return false
}

// IsBook reports whether the category uses book pricing fields.
func (p ProductCategory) IsBook() bool {
	return p == ProductCategoryBook
}

// ParseProductCategory converts raw input into a ProductCategory.
func ParseProductCategory(value string) (ProductCategory, error) {
	for _, candidate := range validProductCategories {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid product category %q", value)
}
