package catalog

import (
	"strings"

	"github.com/noah-isme/backend-kasir/internal/money"
)

// Product is the read-only product shape supplied by the POS backend.
type Product struct {
	ID            int64       `json:"id"`
	SKU           string      `json:"sku"`
	Name          string      `json:"name"`
	CategoryName  string      `json:"categoryName,omitempty"`
	UnitPrice     money.Money `json:"unitPrice"`
	StockQuantity int         `json:"stockQuantity"`
	Barcode       string      `json:"barcode,omitempty"`
	IsActive      bool        `json:"isActive"`
}

// Matches reports whether the product matches a search term by name, SKU or barcode.
func (p Product) Matches(term string) bool {
	term = strings.TrimSpace(term)
	if term == "" {
		return true
	}
	lower := strings.ToLower(term)
	if strings.Contains(strings.ToLower(p.Name), lower) {
		return true
	}
	if strings.Contains(strings.ToLower(p.SKU), lower) {
		return true
	}
	return p.Barcode != "" && strings.Contains(p.Barcode, term)
}
