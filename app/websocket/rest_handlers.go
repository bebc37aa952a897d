package websocket

import (
	"encoding/json"
	"net/http"

	"EOrders/app/models"
)

// OrderReader exposes the open orders without importing the services package
type OrderReader interface {
	Orders() []*models.TableOrder
}

// CatalogReader exposes the stored tables and menu
type CatalogReader interface {
	LoadTables() []models.Table
	LoadProducts() []models.Product
}

// RESTHandlers provides read-only HTTP endpoints so a bar display can catch up on
// the open orders after (re)connecting to the feed
type RESTHandlers struct {
	orders  OrderReader
	catalog CatalogReader
}

// NewRESTHandlers creates a new REST handlers instance
func NewRESTHandlers(orders OrderReader, catalog CatalogReader) *RESTHandlers {
	return &RESTHandlers{orders: orders, catalog: catalog}
}

// Routes returns the endpoints keyed by path, ready for Options.Routes
func (h *RESTHandlers) Routes() map[string]http.Handler {
	return map[string]http.Handler{
		"/api/orders":   http.HandlerFunc(h.HandleGetOrders),
		"/api/tables":   http.HandlerFunc(h.HandleGetTables),
		"/api/products": http.HandlerFunc(h.HandleGetProducts),
	}
}

// OrderResponse is an open order with its derived fields
type OrderResponse struct {
	*models.TableOrder
	HasNewItems bool   `json:"has_new_items"`
	Total       string `json:"total"`
}

// HandleGetOrders returns the open orders
func (h *RESTHandlers) HandleGetOrders(w http.ResponseWriter, r *http.Request) {
	if !allowRead(w, r) {
		return
	}
	orders := h.orders.Orders()
	response := make([]OrderResponse, 0, len(orders))
	for _, order := range orders {
		response = append(response, OrderResponse{
			TableOrder:  order,
			HasNewItems: order.HasNewItems(),
			Total:       order.Total().StringFixed(2),
		})
	}
	writeJSON(w, response)
}

// HandleGetTables returns the active tables
func (h *RESTHandlers) HandleGetTables(w http.ResponseWriter, r *http.Request) {
	if !allowRead(w, r) {
		return
	}
	tables := []models.Table{}
	for _, table := range h.catalog.LoadTables() {
		if table.IsActive {
			tables = append(tables, table)
		}
	}
	writeJSON(w, tables)
}

// HandleGetProducts returns the menu
func (h *RESTHandlers) HandleGetProducts(w http.ResponseWriter, r *http.Request) {
	if !allowRead(w, r) {
		return
	}
	writeJSON(w, h.catalog.LoadProducts())
}

// allowRead sets the CORS headers and rejects anything but GET
func allowRead(w http.ResponseWriter, r *http.Request) bool {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return false
	}
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}
