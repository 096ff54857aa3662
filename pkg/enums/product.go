package enums

import "fmt"

// ProductCategory represents the catalog categories a listing can belong to.
type ProductCategory string

const (
	ProductCategoryElectronics ProductCategory = "Electronics"
	ProductCategoryFurniture   ProductCategory = "Furniture"
	ProductCategoryClothing    ProductCategory = "Clothing"
	ProductCategoryBooks       ProductCategory = "Books"
	ProductCategoryOthers      ProductCategory = "Others"
)

// FilterAll disables a catalog filter when passed as a query value.
const FilterAll = "All"

var validProductCategories = []ProductCategory{
	ProductCategoryElectronics,
	ProductCategoryFurniture,
	ProductCategoryClothing,
	ProductCategoryBooks,
	ProductCategoryOthers,
}

// String implements fmt.Stringer.
func (c ProductCategory) String() string {
	return string(c)
}

// IsValid reports whether the value is a known ProductCategory.
func (c ProductCategory) IsValid() bool {
	for _, candidate := range validProductCategories {
		if candidate == c {
			return true
		}
	}
	return false
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

// ProductCondition describes the wear of a listed item.
type ProductCondition string

const (
	ProductConditionNew     ProductCondition = "New"
	ProductConditionLikeNew ProductCondition = "Like New"
	ProductConditionGood    ProductCondition = "Good"
	ProductConditionFair    ProductCondition = "Fair"
	ProductConditionPoor    ProductCondition = "Poor"
)

var validProductConditions = []ProductCondition{
	ProductConditionNew,
	ProductConditionLikeNew,
	ProductConditionGood,
	ProductConditionFair,
	ProductConditionPoor,
}

// String implements fmt.Stringer.
func (c ProductCondition) String() string {
	return string(c)
}

// IsValid reports whether the value is a known ProductCondition.
func (c ProductCondition) IsValid() bool {
	for _, candidate := range validProductConditions {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseProductCondition converts raw input into a ProductCondition.
func ParseProductCondition(value string) (ProductCondition, error) {
	for _, candidate := range validProductConditions {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid product condition %q", value)
}

// ProductStatus tracks listing availability.
type ProductStatus string

const (
	ProductStatusAvailable ProductStatus = "Available"
	ProductStatusReserved  ProductStatus = "Reserved"
	ProductStatusExchanged ProductStatus = "Exchanged"
)

var validProductStatuses = []ProductStatus{
	ProductStatusAvailable,
	ProductStatusReserved,
	ProductStatusExchanged,
}

// String implements fmt.Stringer.
func (s ProductStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known ProductStatus.
func (s ProductStatus) IsValid() bool {
	for _, candidate := range validProductStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseProductStatus converts raw input into a ProductStatus.
func ParseProductStatus(value string) (ProductStatus, error) {
	for _, candidate := range validProductStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid product status %q", value)
}
