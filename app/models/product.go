package models

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Product represents a menu product. Order lines keep their own copy, so a product
// edited later never changes an open or completed order.
type Product struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Category string          `json:"category"`
}

// NewProduct creates a product with a fresh identifier
func NewProduct(name string, price decimal.Decimal, category string) Product {
	return Product{
		ID:       uuid.NewString(),
		Name:     name,
		Price:    price,
		Category: category,
	}
}

// CustomizationOption is a per-category choice offered when adding an item (e.g. sugar level)
type CustomizationOption struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	Choices []string `json:"choices"`
}

// Table represents a café table
type Table struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	IsActive bool   `json:"is_active"`
}

// NewTable creates an active table with a fresh identifier
func NewTable(name string) Table {
	return Table{
		ID:       uuid.NewString(),
		Name:     name,
		IsActive: true,
	}
}
