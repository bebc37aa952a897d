package receipt

import (
	"bytes"
	"testing"
	"time"

	"EOrders/app/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var printedAt = time.Date(2026, 3, 14, 21, 5, 0, 0, time.UTC)

func espresso(qty int) models.OrderItem {
	return models.OrderItem{
		ID:       "item-espresso",
		Product:  models.Product{ID: "p1", Name: "Espresso", Price: decimal.RequireFromString("2.50"), Category: "Καφέδες"},
		Quantity: qty,
		Customizations: map[string]string{
			"Ζάχαρη": "Μέτριο",
			"Γάλα":   "",
		},
	}
}

func frappe(qty int) models.OrderItem {
	return models.OrderItem{
		ID:       "item-frappe",
		Product:  models.Product{ID: "p2", Name: "Frappé", Price: decimal.RequireFromString("3.50"), Category: "Καφέδες"},
		Quantity: qty,
		Notes:    "χωρίς καλαμάκι",
	}
}

func TestOrderReceiptContent(t *testing.T) {
	c := NewComposer(DefaultCodepage())
	cp := c.Codepage

	out := c.OrderReceipt("Τραπέζι 1", "Maria", []models.OrderItem{espresso(2), frappe(1)}, printedAt)

	assert.True(t, bytes.HasPrefix(out, []byte{ESC, '@', ESC, 't', cp.Table}))
	assert.Contains(t, string(out), string(cp.Encode(c.Labels.OrderTitle)))
	assert.Contains(t, string(out), string(cp.Encode("Τραπέζι 1")))
	assert.Contains(t, string(out), string(cp.Encode("Σερβιτόρος: Maria")))
	assert.Contains(t, string(out), "14/03/2026 21:05\n")
	assert.Contains(t, string(out), string(cp.Encode("2x Espresso\n")))
	assert.Contains(t, string(out), string(cp.Encode("1x Frappé\n")))
	assert.Contains(t, string(out), string(cp.Encode("  Ζάχαρη: Μέτριο\n")))
	assert.Contains(t, string(out), string(cp.Encode("  >> χωρίς καλαμάκι\n")))
	assert.NotContains(t, string(out), string(cp.Encode("  Γάλα:")))
	assert.NotContains(t, string(out), string(cp.Encode(c.Labels.NewItemsTitle)))
	assert.True(t, bytes.HasSuffix(out, []byte{ESC, 'd', 4, GS, 'V', 1}))
}

func TestOrderReceiptItemOrderAndRules(t *testing.T) {
	c := NewComposer(DefaultCodepage())
	out := string(c.OrderReceipt("T1", "", []models.OrderItem{frappe(1), espresso(2)}, printedAt))

	first := bytes.Index([]byte(out), c.Codepage.Encode("1x Frapp"))
	second := bytes.Index([]byte(out), c.Codepage.Encode("2x Espresso"))
	require.NotEqual(t, -1, first)
	require.NotEqual(t, -1, second)
	assert.Less(t, first, second)
	assert.Equal(t, 2, bytes.Count([]byte(out), []byte(Rule('-'))))
	assert.Equal(t, 1, bytes.Count([]byte(out), []byte(Rule('='))))
	assert.NotContains(t, out, string(c.Codepage.Encode(c.Labels.Waiter)))
}

func TestNewItemsReceiptUsesAddendumHeader(t *testing.T) {
	c := NewComposer(DefaultCodepage())
	out := string(c.NewItemsReceipt("T1", "", []models.OrderItem{frappe(1)}, printedAt))

	assert.Contains(t, out, string(c.Codepage.Encode(c.Labels.NewItemsTitle)))
	assert.NotContains(t, out, string(c.Codepage.Encode(c.Labels.OrderTitle+"\n")))
	assert.NotContains(t, out, string(c.Codepage.Encode("Espresso")))
}

func TestReceiptsAreDeterministic(t *testing.T) {
	c := NewComposer(DefaultCodepage())
	items := []models.OrderItem{espresso(2), frappe(1)}

	a := c.OrderReceipt("T1", "Maria", items, printedAt)
	b := c.OrderReceipt("T1", "Maria", items, printedAt)
	assert.Equal(t, a, b)

	summary := models.ShiftSummary{TotalRevenue: decimal.RequireFromString("45"), TotalOrders: 3}
	assert.Equal(t, c.ShiftSummaryReceipt(summary, printedAt), c.ShiftSummaryReceipt(summary, printedAt))
}

func TestShiftSummaryReceipt(t *testing.T) {
	c := NewComposer(DefaultCodepage())
	c.TopProducts = 2
	summary := models.ShiftSummary{
		TotalRevenue: decimal.RequireFromString("45.00"),
		TotalOrders:  3,
		AverageOrder: decimal.RequireFromString("15.00"),
		Categories: []models.CategoryRevenue{
			{Category: "Cocktails", Revenue: decimal.RequireFromString("25.00")},
			{Category: "Καφέδες", Revenue: decimal.RequireFromString("20.00")},
		},
		Payments: []models.PaymentRevenue{
			{Method: models.PaymentCash, Revenue: decimal.RequireFromString("45.00"), Orders: 3},
		},
		TopProducts: []models.ProductCount{
			{Name: "Espresso", Count: 6},
			{Name: "Mojito", Count: 3},
			{Name: "Chips", Count: 1},
		},
	}

	out := string(c.ShiftSummaryReceipt(summary, printedAt))
	enc := func(s string) string { return string(c.Codepage.Encode(s)) }

	assert.Contains(t, out, enc(c.Labels.ShiftTitle))
	assert.Contains(t, out, enc(LeftRight("ΣΥΝΟΛΟ ΕΣΟΔΩΝ:", "€45.00")+"\n"))
	assert.Contains(t, out, enc(LeftRight("ΠΑΡΑΓΓΕΛΙΕΣ:", "3")+"\n"))
	assert.Contains(t, out, enc(LeftRight("  Cocktails", "€25.00")))
	assert.Contains(t, out, enc(LeftRight("  1. Espresso", "6τεμ")))
	assert.Contains(t, out, enc(LeftRight("  2. Mojito", "3τεμ")))
	assert.NotContains(t, out, enc("Chips"))
	assert.Less(t, bytes.Index([]byte(out), []byte(enc("  Cocktails"))), bytes.Index([]byte(out), []byte(enc("  Καφέδες"))))
}

func TestShiftSummaryReceiptOmitsEmptySections(t *testing.T) {
	c := NewComposer(DefaultCodepage())
	out := string(c.ShiftSummaryReceipt(models.ShiftSummary{}, printedAt))

	assert.NotContains(t, out, string(c.Codepage.Encode(c.Labels.ByCategory)))
	assert.NotContains(t, out, string(c.Codepage.Encode(c.Labels.TopProducts)))
	assert.Contains(t, out, string(c.Codepage.Encode(LeftRight("ΣΥΝΟΛΟ ΕΣΟΔΩΝ:", "€0.00"))))
}

func TestTestReceipt(t *testing.T) {
	c := NewComposer(DefaultCodepage())
	out := c.TestReceipt(printedAt)

	assert.Contains(t, string(out), "e-Orders\n")
	assert.Contains(t, string(out), "Test Print OK!\n")
	assert.Contains(t, string(out), Rule('-')+"\n14/03/2026 21:05\n")
	assert.True(t, bytes.HasSuffix(out, []byte{ESC, 'd', 4, GS, 'V', 1}))
}

func TestBillReceipt(t *testing.T) {
	c := NewComposer(DefaultCodepage())
	order := models.CompletedOrder{
		ID:            "order-1",
		TableName:     "T1",
		Items:         []models.OrderItem{espresso(2), frappe(1)},
		Total:         decimal.RequireFromString("8.50"),
		Timestamp:     printedAt,
		PaymentMethod: models.PaymentCash,
		WaiterName:    "Maria",
	}

	plain, err := c.BillReceipt(order, false)
	require.NoError(t, err)
	assert.Contains(t, string(plain), string(c.Codepage.Encode(LeftRight("2x Espresso", "€5.00"))))
	assert.Contains(t, string(plain), string(c.Codepage.Encode(LeftRight("ΣΥΝΟΛΟ:", "€8.50"))))
	assert.NotContains(t, string(plain), string([]byte{GS, 'v', '0'}))

	withQR, err := c.BillReceipt(order, true)
	require.NoError(t, err)
	assert.Contains(t, string(withQR), string([]byte{GS, 'v', '0', 0}))
	assert.Greater(t, len(withQR), len(plain))
}
