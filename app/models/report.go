package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// CategoryRevenue is the revenue of one product category in a shift
type CategoryRevenue struct {
	Category string          `json:"category"`
	Revenue  decimal.Decimal `json:"revenue"`
}

// PaymentRevenue is the revenue collected with one payment method in a shift
type PaymentRevenue struct {
	Method  string          `json:"method"`
	Revenue decimal.Decimal `json:"revenue"`
	Orders  int             `json:"orders"`
}

// ProductCount is the number of units sold of one product in a shift
type ProductCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// ShiftSummary aggregates the completed orders of a shift
type ShiftSummary struct {
	ShiftStart   time.Time         `json:"shift_start"`
	TotalRevenue decimal.Decimal   `json:"total_revenue"`
	TotalOrders  int               `json:"total_orders"`
	AverageOrder decimal.Decimal   `json:"average_order"`
	Categories   []CategoryRevenue `json:"categories"`
	Payments     []PaymentRevenue  `json:"payments"`
	TopProducts  []ProductCount    `json:"top_products"`
}
