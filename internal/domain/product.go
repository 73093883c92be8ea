package domain

// Product is a menu item. Order lines reference products weakly: deleting a
// product leaves historical order lines in place.
type Product struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	Category     string  `json:"category"`
	Price        float64 `json:"price"`
	Description  string  `json:"description,omitempty"`
	Image        string  `json:"image,omitempty"`
	Ingredients  string  `json:"ingredients,omitempty"`
	Availability bool    `json:"availability"`
}
