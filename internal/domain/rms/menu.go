package rms

// MenuCategory groups menu items.
type MenuCategory struct {
	Entity
	Code         *string `json:"code,omitempty"`
	Name         string  `json:"name"`
	Description  *string `json:"description,omitempty"`
	DisplayOrder *int    `json:"displayOrder,omitempty"`
	ImageURL     *string `json:"imageUrl,omitempty"`
	IsActive     *bool   `json:"isActive,omitempty"`
}

// MenuItem is a sellable dish or drink.
type MenuItem struct {
	Entity
	Code            *string       `json:"code,omitempty"`
	Name            string        `json:"name"`
	Description     *string       `json:"description,omitempty"`
	Category        *MenuCategory `json:"category,omitempty"`
	CategoryID      string        `json:"categoryId,omitempty"`
	BasePrice       float64       `json:"basePrice"`
	ImageURL        *string       `json:"imageUrl,omitempty"`
	IsAvailable     *bool         `json:"isAvailable,omitempty"`
	IsVegetarian    *bool         `json:"isVegetarian,omitempty"`
	IsVegan         *bool         `json:"isVegan,omitempty"`
	Allergens       *string       `json:"allergens,omitempty"`
	PreparationTime *int          `json:"preparationTime,omitempty"`
	Calories        *int          `json:"calories,omitempty"`
	ServingSize     *string       `json:"servingSize,omitempty"`
	IsActive        *bool         `json:"isActive,omitempty"`
}

// AvailabilityUpdate is the body of PATCH /menu-items/{id}/availability.
type AvailabilityUpdate struct {
	IsAvailable bool `json:"isAvailable"`
}
