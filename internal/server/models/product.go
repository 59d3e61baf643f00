package models

// Product is a catalog item.
type Product struct {
	ID                 int64   `json:"id"`
	Title              string  `json:"title"`
	Price              float64 `json:"price"`
	Description        string  `json:"description"`
	Brand              string  `json:"brand"`
	Model              string  `json:"model"`
	Color              string  `json:"color"`
	Category           string  `json:"category"`
	Image              string  `json:"image"`
	DiscountPercentage float64 `json:"discount_percentage"`
	StockQuantity      int     `json:"stock_quantity"`
	RatingRate         float64 `json:"rating_rate"`
	RatingCount        int     `json:"rating_count"`
	AvailabilityStatus string  `json:"availability_status"`
}

// ProductPatch carries a partial update; nil fields are left unchanged.
type ProductPatch struct {
	Title              *string  `json:"title"`
	Price              *float64 `json:"price"`
	Description        *string  `json:"description"`
	Brand              *string  `json:"brand"`
	Model              *string  `json:"model"`
	Color              *string  `json:"color"`
	Category           *string  `json:"category"`
	Image              *string  `json:"image"`
	DiscountPercentage *float64 `json:"discount_percentage"`
	StockQuantity      *int     `json:"stock_quantity"`
	RatingRate         *float64 `json:"rating_rate"`
	RatingCount        *int     `json:"rating_count"`
	AvailabilityStatus *string  `json:"availability_status"`
}

// Apply copies the set fields of p onto dst.
func (p *ProductPatch) Apply(dst *Product) {
	if p.Title != nil {
		dst.Title = *p.Title
	}
	if p.Price != nil {
		dst.Price = *p.Price
	}
	if p.Description != nil {
		dst.Description = *p.Description
	}
	if p.Brand != nil {
		dst.Brand = *p.Brand
	}
	if p.Model != nil {
		dst.Model = *p.Model
	}
	if p.Color != nil {
		dst.Color = *p.Color
	}
	if p.Category != nil {
		dst.Category = *p.Category
	}
	if p.Image != nil {
		dst.Image = *p.Image
	}
	if p.DiscountPercentage != nil {
		dst.DiscountPercentage = *p.DiscountPercentage
	}
	if p.StockQuantity != nil {
		dst.StockQuantity = *p.StockQuantity
	}
	if p.RatingRate != nil {
		dst.RatingRate = *p.RatingRate
	}
	if p.RatingCount != nil {
		dst.RatingCount = *p.RatingCount
	}
	if p.AvailabilityStatus != nil {
		dst.AvailabilityStatus = *p.AvailabilityStatus
	}
}
