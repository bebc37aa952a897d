package models

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus represents the lifecycle state of a table order
type OrderStatus string

const (
	OrderStatusDraft OrderStatus = "draft"
	OrderStatusSent  OrderStatus = "sent"
)

func (s OrderStatus) String() string {
	return string(s)
}

// Payment methods recorded on completed orders
const (
	PaymentCash  = "Μετρητά"
	PaymentCard  = "Κάρτα"
	PaymentSplit = "Διαχωρισμός"
)

// OrderItem is one line of a table order.
// ID is stable for the lifetime of the line and independent of its position.
type OrderItem struct {
	ID             string            `json:"id"`
	Product        Product           `json:"product"`
	Quantity       int               `json:"quantity"`
	Customizations map[string]string `json:"customizations,omitempty"`
	Notes          string            `json:"notes,omitempty"`
}

// Subtotal returns price x quantity for the line
func (i OrderItem) Subtotal() decimal.Decimal {
	return i.Product.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// CustomizationKeys returns the customization names in a stable order
func (i OrderItem) CustomizationKeys() []string {
	keys := make([]string, 0, len(i.Customizations))
	for k := range i.Customizations {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Clone returns a deep copy of the line
func (i OrderItem) Clone() OrderItem {
	c := i
	if i.Customizations != nil {
		c.Customizations = make(map[string]string, len(i.Customizations))
		for k, v := range i.Customizations {
			c.Customizations[k] = v
		}
	}
	return c
}

// TableOrder is the open order of a single table.
// SentCount is the number of leading items already transmitted to the bar.
type TableOrder struct {
	TableID   string      `json:"table_id"`
	TableName string      `json:"table_name"`
	Items     []OrderItem `json:"items"`
	Status    OrderStatus `json:"status"`
	SentCount int         `json:"sent_count"`
	CreatedAt time.Time   `json:"created_at"`
}

// HasNewItems reports whether items were added after the last transmission
func (o *TableOrder) HasNewItems() bool {
	return len(o.Items) > o.SentCount
}

// IsEmpty reports whether the order has no lines
func (o *TableOrder) IsEmpty() bool {
	return len(o.Items) == 0
}

// Total returns the sum of all line subtotals
func (o *TableOrder) Total() decimal.Decimal {
	total := decimal.Zero
	for _, item := range o.Items {
		total = total.Add(item.Subtotal())
	}
	return total
}

// Clone returns a deep copy of the order
func (o *TableOrder) Clone() *TableOrder {
	c := *o
	c.Items = CloneItems(o.Items)
	return &c
}

// CloneItems deep-copies a slice of order lines
func CloneItems(items []OrderItem) []OrderItem {
	out := make([]OrderItem, len(items))
	for i, item := range items {
		out[i] = item.Clone()
	}
	return out
}

// CompletedOrder is the immutable snapshot created when a table is closed
type CompletedOrder struct {
	ID            string          `json:"id"`
	TableName     string          `json:"table_name"`
	Items         []OrderItem     `json:"items"`
	Total         decimal.Decimal `json:"total"`
	Timestamp     time.Time       `json:"timestamp"`
	PaymentMethod string          `json:"payment_method"`
	WaiterName    string          `json:"waiter_name,omitempty"`
}

// Clone returns a deep copy of the completed order
func (o CompletedOrder) Clone() CompletedOrder {
	o.Items = CloneItems(o.Items)
	return o
}
