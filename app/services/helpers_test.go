package services

import (
	"path/filepath"
	"sync"
	"testing"

	"EOrders/app/config"
	"EOrders/app/database"
	"EOrders/app/models"
	"EOrders/app/websocket"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newTestStore(t *testing.T) *StoreService {
	t.Helper()
	dir := t.TempDir()
	conn, err := database.Open(config.StorageConfig{Driver: "sqlite", Path: filepath.Join(dir, "test.db")}, dir)
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := conn.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return NewStoreService(database.NewBlobStore(conn), zaptest.NewLogger(t))
}

func price(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func espresso() models.Product {
	return models.Product{ID: "p-espresso", Name: "Espresso", Price: price("2.50"), Category: "Καφέδες"}
}

func frappe() models.Product {
	return models.Product{ID: "p-frappe", Name: "Frappé", Price: price("3.50"), Category: "Καφέδες"}
}

func beer() models.Product {
	return models.Product{ID: "p-beer", Name: "Mythos", Price: price("4.00"), Category: "Μπίρες"}
}

func line(p models.Product, qty int) models.OrderItem {
	return models.OrderItem{Product: p, Quantity: qty}
}

type printCall struct {
	table  string
	waiter string
	items  []models.OrderItem
}

type fakePrinter struct {
	mu       sync.Mutex
	orders   []printCall
	newItems []printCall
	bills    []models.CompletedOrder
	shifts   []models.ShiftSummary
	bill     bool
}

func (p *fakePrinter) PrintOrder(tableName, waiter string, items []models.OrderItem) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.orders = append(p.orders, printCall{tableName, waiter, items})
}

func (p *fakePrinter) PrintNewItems(tableName, waiter string, items []models.OrderItem) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.newItems = append(p.newItems, printCall{tableName, waiter, items})
}

func (p *fakePrinter) PrintBill(order models.CompletedOrder) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.bills = append(p.bills, order)
}

func (p *fakePrinter) BillEnabled() bool {
	return p.bill
}

func (p *fakePrinter) PrintShiftSummary(summary models.ShiftSummary) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.shifts = append(p.shifts, summary)
}

type fakeFeed struct {
	mu       sync.Mutex
	messages []websocket.Message
}

func (f *fakeFeed) BroadcastToBar(message websocket.Message) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, message)
}

func (f *fakeFeed) types() []websocket.MessageType {
	f.mu.Lock()
	defer f.mu.Unlock()
	var types []websocket.MessageType
	for _, m := range f.messages {
		types = append(types, m.Type)
	}
	return types
}

func productNames(items []models.OrderItem) []string {
	names := make([]string, len(items))
	for i, item := range items {
		names[i] = item.Product.Name
	}
	return names
}
