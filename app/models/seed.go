package models

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DefaultCategories is the category list of a fresh installation
func DefaultCategories() []string {
	return []string{"Καφέδες", "Αναψυκτικά", "Μπίρες", "Cocktails", "Ποτά", "Snacks"}
}

// DefaultProducts is the menu of a fresh installation
func DefaultProducts() []Product {
	menu := []struct {
		name, price, category string
	}{
		{"Espresso", "2.50", "Καφέδες"},
		{"Cappuccino", "3.50", "Καφέδες"},
		{"Freddo Espresso", "3.00", "Καφέδες"},
		{"Freddo Cappuccino", "3.50", "Καφέδες"},
		{"Latte", "3.80", "Καφέδες"},
		{"Frappé", "3.50", "Καφέδες"},
		{"Coca Cola", "2.50", "Αναψυκτικά"},
		{"Sprite", "2.50", "Αναψυκτικά"},
		{"Fanta", "2.50", "Αναψυκτικά"},
		{"Χυμός Πορτοκάλι", "3.00", "Αναψυκτικά"},
		{"Mythos", "4.00", "Μπίρες"},
		{"Heineken", "4.50", "Μπίρες"},
		{"Fix", "4.00", "Μπίρες"},
		{"Mojito", "8.00", "Cocktails"},
		{"Margarita", "8.50", "Cocktails"},
		{"Pina Colada", "8.50", "Cocktails"},
		{"Cosmopolitan", "8.00", "Cocktails"},
		{"Vodka", "6.00", "Ποτά"},
		{"Whiskey", "7.00", "Ποτά"},
		{"Gin", "6.50", "Ποτά"},
		{"Rum", "6.00", "Ποτά"},
		{"Chips", "2.00", "Snacks"},
		{"Nuts", "3.00", "Snacks"},
		{"Popcorn", "2.50", "Snacks"},
	}

	products := make([]Product, 0, len(menu))
	for _, m := range menu {
		products = append(products, NewProduct(m.name, decimal.RequireFromString(m.price), m.category))
	}
	return products
}

// DefaultCustomizations maps a category to the options offered for its products
func DefaultCustomizations() map[string][]CustomizationOption {
	return map[string][]CustomizationOption{
		"Καφέδες": {
			{ID: uuid.NewString(), Name: "Ζάχαρη", Choices: []string{"Σκέτο", "Μέτριο", "Γλυκό"}},
			{ID: uuid.NewString(), Name: "Γάλα", Choices: []string{"Όχι", "Κανονικό", "Χωρίς λακτόζη", "Φυτικό"}},
		},
	}
}

// DefaultTables returns count active tables named "<prefix> N"
func DefaultTables(count int, prefix string) []Table {
	tables := make([]Table, 0, count)
	for i := 1; i <= count; i++ {
		tables = append(tables, NewTable(fmt.Sprintf("%s %d", prefix, i)))
	}
	return tables
}
