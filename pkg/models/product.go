package models

// Catalog defaults applied on import when the source row leaves the
// field blank.
const (
	DefaultBrand        = "Vendex"
	DefaultCondition    = "new"
	DefaultAvailability = "in_stock"
)

// Product is a catalog entry. Both ID and SKU are unique; bulk import
// upserts are keyed on SKU because numeric IDs collide across partial
// re-imports.
type Product struct {
	ID             int64   `json:"id"`
	SKU            string  `json:"sku"`
	Title          string  `json:"title"`
	Description    string  `json:"description"`
	Price          float64 `json:"price"`
	Cost           float64 `json:"cost"`
	Image          string  `json:"image"`
	Brand          string  `json:"brand"`
	Category       string  `json:"google_product_category,omitempty"`
	ProductType    string  `json:"product_type,omitempty"`
	GTIN           string  `json:"gtin,omitempty"`
	MPN            string  `json:"mpn,omitempty"`
	Condition      string  `json:"condition"`
	Availability   string  `json:"availability"`
	CustomLabel0   string  `json:"custom_label_0,omitempty"`
	CustomLabel1   string  `json:"custom_label_1,omitempty"`
	ShippingWeight string  `json:"shipping_weight,omitempty"`
	Rating         float64 `json:"rating"`
	Reviews        int64   `json:"reviews"`
}

// Spread is the per-unit margin, computed at query time and never
// persisted.
func (p *Product) Spread() float64 {
	return p.Price - p.Cost
}
