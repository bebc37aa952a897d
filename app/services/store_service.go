package services

import (
	"time"

	"EOrders/app/database"
	"EOrders/app/models"

	"go.uber.org/zap"
)

// Storage keys
const (
	KeyProducts       = "products"
	KeyCategories     = "categories"
	KeyCustomizations = "customizations"
	KeyTables         = "tables"
	KeyTableOrders    = "table_orders"
	KeyOrderHistory   = "order_history"
	KeyPrinterConfig  = "printer_config"
	KeyShiftStart     = "shift_start"
)

// StoreService loads and saves whole collections as JSON blobs. Reads never fail:
// a missing or corrupt blob yields an empty collection (or the default printer
// configuration).
type StoreService struct {
	*BaseService
}

// NewStoreService creates a new store service
func NewStoreService(blobs *database.BlobStore, log *zap.Logger) *StoreService {
	return &StoreService{BaseService: NewBaseService(blobs, log)}
}

// SeedDefaults writes the starter menu and tables for every collection that has
// never been stored. It returns the keys that were seeded.
func (s *StoreService) SeedDefaults(tableCount int, tablePrefix string) ([]string, error) {
	seeds := []struct {
		key   string
		value func() interface{}
	}{
		{KeyCategories, func() interface{} { return models.DefaultCategories() }},
		{KeyProducts, func() interface{} { return models.DefaultProducts() }},
		{KeyCustomizations, func() interface{} { return models.DefaultCustomizations() }},
		{KeyTables, func() interface{} { return models.DefaultTables(tableCount, tablePrefix) }},
	}

	var seeded []string
	for _, seed := range seeds {
		var raw interface{}
		if s.loadJSON(seed.key, &raw) {
			continue
		}
		if err := s.saveJSON(seed.key, seed.value()); err != nil {
			return seeded, err
		}
		seeded = append(seeded, seed.key)
	}
	if len(seeded) > 0 {
		s.log.Info("Seeded default data", zap.Strings("keys", seeded))
	}
	return seeded, nil
}

// LoadProducts returns the menu
func (s *StoreService) LoadProducts() []models.Product {
	products := []models.Product{}
	if !s.loadJSON(KeyProducts, &products) || products == nil {
		return []models.Product{}
	}
	return products
}

// SaveProducts replaces the menu
func (s *StoreService) SaveProducts(products []models.Product) error {
	return s.saveJSON(KeyProducts, products)
}

// LoadCategories returns the ordered category names
func (s *StoreService) LoadCategories() []string {
	categories := []string{}
	if !s.loadJSON(KeyCategories, &categories) || categories == nil {
		return []string{}
	}
	return categories
}

// SaveCategories replaces the category list
func (s *StoreService) SaveCategories(categories []string) error {
	return s.saveJSON(KeyCategories, categories)
}

// LoadCustomizations returns the customization options per category
func (s *StoreService) LoadCustomizations() map[string][]models.CustomizationOption {
	customizations := map[string][]models.CustomizationOption{}
	if !s.loadJSON(KeyCustomizations, &customizations) || customizations == nil {
		return map[string][]models.CustomizationOption{}
	}
	return customizations
}

// SaveCustomizations replaces the customization options
func (s *StoreService) SaveCustomizations(customizations map[string][]models.CustomizationOption) error {
	return s.saveJSON(KeyCustomizations, customizations)
}

// LoadTables returns all tables, active or not
func (s *StoreService) LoadTables() []models.Table {
	tables := []models.Table{}
	if !s.loadJSON(KeyTables, &tables) || tables == nil {
		return []models.Table{}
	}
	return tables
}

// SaveTables replaces the table list
func (s *StoreService) SaveTables(tables []models.Table) error {
	return s.saveJSON(KeyTables, tables)
}

// LoadTableOrders returns the open orders keyed by table id
func (s *StoreService) LoadTableOrders() map[string]*models.TableOrder {
	orders := map[string]*models.TableOrder{}
	if !s.loadJSON(KeyTableOrders, &orders) || orders == nil {
		return map[string]*models.TableOrder{}
	}
	return orders
}

// SaveTableOrders replaces the open orders snapshot
func (s *StoreService) SaveTableOrders(orders map[string]*models.TableOrder) error {
	return s.saveJSON(KeyTableOrders, orders)
}

// LoadHistory returns the completed orders, oldest first
func (s *StoreService) LoadHistory() []models.CompletedOrder {
	history := []models.CompletedOrder{}
	if !s.loadJSON(KeyOrderHistory, &history) || history == nil {
		return []models.CompletedOrder{}
	}
	return history
}

// SaveHistory replaces the order history
func (s *StoreService) SaveHistory(history []models.CompletedOrder) error {
	return s.saveJSON(KeyOrderHistory, history)
}

// LoadPrinterConfig returns the printer selection, mode none when unset
func (s *StoreService) LoadPrinterConfig() models.PrinterConfig {
	cfg := models.DefaultPrinterConfig()
	if !s.loadJSON(KeyPrinterConfig, &cfg) {
		return models.DefaultPrinterConfig()
	}
	return cfg.Normalize()
}

// SavePrinterConfig stores the printer selection
func (s *StoreService) SavePrinterConfig(cfg models.PrinterConfig) error {
	return s.saveJSON(KeyPrinterConfig, cfg.Normalize())
}

// LoadShiftStart returns when the current shift began; ok is false when no shift
// was ever started
func (s *StoreService) LoadShiftStart() (start time.Time, ok bool) {
	if !s.loadJSON(KeyShiftStart, &start) {
		return time.Time{}, false
	}
	return start, true
}

// SaveShiftStart records the start of a new shift
func (s *StoreService) SaveShiftStart(start time.Time) error {
	return s.saveJSON(KeyShiftStart, start.UTC())
}

// ClearAll deletes every stored collection
func (s *StoreService) ClearAll() error {
	for _, key := range []string{
		KeyProducts, KeyCategories, KeyCustomizations, KeyTables,
		KeyTableOrders, KeyOrderHistory, KeyPrinterConfig, KeyShiftStart,
	} {
		if err := s.deleteKey(key); err != nil {
			return err
		}
	}
	return nil
}
