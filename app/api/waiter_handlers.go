// Package api serves the waiter endpoints that drive the order ledger over HTTP.
// They are mounted on the bar feed listener next to the read-only catch-up routes.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"EOrders/app/models"
	"EOrders/app/services"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Ledger is the part of the order service driven by waiters
type Ledger interface {
	AddItem(table models.Table, item models.OrderItem) (models.OrderItem, error)
	UpdateQuantity(tableID string, index, quantity int) error
	RemoveItem(tableID string, index int) error
	Send(tableID, waiter string) (services.SendKind, error)
	Transfer(fromTableID string, to models.Table) error
	Close(tableID, paymentMethod, waiter string) (models.CompletedOrder, error)
	CloseSplit(tableID, waiter string) (models.CompletedOrder, error)
	ClearTable(tableID string) error
	MarkPaid(tableID string, indices []int) error
	PaidIndices(tableID string) []int
	PaidTotal(tableID string) decimal.Decimal
	RemainingTotal(tableID string) decimal.Decimal
	AllPaid(tableID string) bool
	EqualShare(tableID string, payers int) (decimal.Decimal, error)
	Order(tableID string) (*models.TableOrder, bool)
}

// Shifts reports on and closes the current shift
type Shifts interface {
	Summary() models.ShiftSummary
	CloseShift() (models.ShiftSummary, error)
}

// Printers manages the receipt printer selection
type Printers interface {
	GetPrinterConfig() models.PrinterConfig
	SavePrinterConfig(cfg models.PrinterConfig) error
	TestPrint(ctx context.Context) services.TestPrintResult
}

// Catalog resolves tables and products by id
type Catalog interface {
	LoadTables() []models.Table
	LoadProducts() []models.Product
}

// WaiterHandlers exposes ledger, shift and printer operations to waiter devices
type WaiterHandlers struct {
	ledger   Ledger
	shifts   Shifts
	printers Printers
	catalog  Catalog
	log      *zap.Logger
}

// NewWaiterHandlers creates the waiter endpoints
func NewWaiterHandlers(ledger Ledger, shifts Shifts, printers Printers, catalog Catalog, log *zap.Logger) *WaiterHandlers {
	if log == nil {
		log = zap.NewNop()
	}
	return &WaiterHandlers{
		ledger:   ledger,
		shifts:   shifts,
		printers: printers,
		catalog:  catalog,
		log:      log,
	}
}

// Routes returns the endpoints keyed by ServeMux pattern
func (h *WaiterHandlers) Routes() map[string]http.Handler {
	return map[string]http.Handler{
		"/api/tables/{table}/order":         http.HandlerFunc(h.HandleOrder),
		"/api/tables/{table}/items":         http.HandlerFunc(h.HandleAddItem),
		"/api/tables/{table}/items/{index}": http.HandlerFunc(h.HandleItem),
		"/api/tables/{table}/send":          http.HandlerFunc(h.HandleSend),
		"/api/tables/{table}/transfer":      http.HandlerFunc(h.HandleTransfer),
		"/api/tables/{table}/close":         http.HandlerFunc(h.HandleClose),
		"/api/tables/{table}/split":         http.HandlerFunc(h.HandleSplit),
		"/api/tables/{table}/split/paid":    http.HandlerFunc(h.HandleMarkPaid),
		"/api/tables/{table}/split/close":   http.HandlerFunc(h.HandleCloseSplit),
		"/api/shift":                        http.HandlerFunc(h.HandleShift),
		"/api/shift/close":                  http.HandlerFunc(h.HandleCloseShift),
		"/api/printer":                      http.HandlerFunc(h.HandlePrinter),
		"/api/printer/test":                 http.HandlerFunc(h.HandleTestPrint),
	}
}

// AddItemRequest is the body of POST /api/tables/{table}/items
type AddItemRequest struct {
	ProductID      string            `json:"product_id"`
	Quantity       int               `json:"quantity"`
	Customizations map[string]string `json:"customizations,omitempty"`
	Notes          string            `json:"notes,omitempty"`
}

// QuantityRequest is the body of PUT /api/tables/{table}/items/{index}
type QuantityRequest struct {
	Quantity int `json:"quantity"`
}

// WaiterRequest carries the name printed on receipts
type WaiterRequest struct {
	Waiter string `json:"waiter"`
}

// TransferRequest is the body of POST /api/tables/{table}/transfer
type TransferRequest struct {
	ToTableID string `json:"to_table_id"`
}

// CloseRequest is the body of POST /api/tables/{table}/close
type CloseRequest struct {
	PaymentMethod string `json:"payment_method"`
	Waiter        string `json:"waiter"`
}

// MarkPaidRequest is the body of POST /api/tables/{table}/split/paid
type MarkPaidRequest struct {
	Indices []int `json:"indices"`
}

// SplitResponse is the settlement state of a table
type SplitResponse struct {
	PaidIndices []int  `json:"paid_indices"`
	Paid        string `json:"paid"`
	Remaining   string `json:"remaining"`
	AllPaid     bool   `json:"all_paid"`
	Share       string `json:"share,omitempty"`
}

// HandleOrder returns (GET) or clears (DELETE) the table's open order
func (h *WaiterHandlers) HandleOrder(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodGet, http.MethodDelete) {
		return
	}
	tableID := r.PathValue("table")

	if r.Method == http.MethodDelete {
		if err := h.ledger.ClearTable(tableID); err != nil {
			h.fail(w, "clear table", err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
		return
	}

	order, ok := h.ledger.Order(tableID)
	if !ok {
		h.fail(w, "get order", services.ErrOrderNotFound)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

// HandleAddItem adds a menu product to the table's order
func (h *WaiterHandlers) HandleAddItem(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodPost) {
		return
	}
	var req AddItemRequest
	if !decode(w, r, &req) {
		return
	}
	table, ok := h.table(r.PathValue("table"))
	if !ok {
		http.Error(w, "Table not found", http.StatusNotFound)
		return
	}
	product, ok := h.product(req.ProductID)
	if !ok {
		http.Error(w, "Product not found", http.StatusNotFound)
		return
	}

	item, err := h.ledger.AddItem(table, models.OrderItem{
		Product:        product,
		Quantity:       req.Quantity,
		Customizations: req.Customizations,
		Notes:          req.Notes,
	})
	if err != nil {
		h.fail(w, "add item", err)
		return
	}
	writeJSON(w, http.StatusCreated, item)
}

// HandleItem changes the quantity of (PUT) or removes (DELETE) the line at index
func (h *WaiterHandlers) HandleItem(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodPut, http.MethodDelete) {
		return
	}
	tableID := r.PathValue("table")
	index, err := strconv.Atoi(r.PathValue("index"))
	if err != nil {
		http.Error(w, "Invalid item index", http.StatusBadRequest)
		return
	}

	switch r.Method {
	case http.MethodPut:
		var req QuantityRequest
		if !decode(w, r, &req) {
			return
		}
		err = h.ledger.UpdateQuantity(tableID, index, req.Quantity)
	case http.MethodDelete:
		err = h.ledger.RemoveItem(tableID, index)
	}
	if err != nil {
		h.fail(w, "update item", err)
		return
	}
	h.writeOrder(w, tableID)
}

// HandleSend transmits the order to the bar
func (h *WaiterHandlers) HandleSend(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodPost) {
		return
	}
	var req WaiterRequest
	if !decode(w, r, &req) {
		return
	}
	kind, err := h.ledger.Send(r.PathValue("table"), req.Waiter)
	if err != nil {
		h.fail(w, "send order", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"kind": kind.String()})
}

// HandleTransfer moves the order to another table
func (h *WaiterHandlers) HandleTransfer(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodPost) {
		return
	}
	var req TransferRequest
	if !decode(w, r, &req) {
		return
	}
	to, ok := h.table(req.ToTableID)
	if !ok {
		http.Error(w, "Destination table not found", http.StatusNotFound)
		return
	}
	if err := h.ledger.Transfer(r.PathValue("table"), to); err != nil {
		h.fail(w, "transfer order", err)
		return
	}
	h.writeOrder(w, to.ID)
}

// HandleClose settles the table with a single payment
func (h *WaiterHandlers) HandleClose(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodPost) {
		return
	}
	var req CloseRequest
	if !decode(w, r, &req) {
		return
	}
	completed, err := h.ledger.Close(r.PathValue("table"), req.PaymentMethod, req.Waiter)
	if err != nil {
		h.fail(w, "close table", err)
		return
	}
	writeJSON(w, http.StatusOK, completed)
}

// HandleSplit reports the settlement state. With ?payers=n the equal share of the
// remaining amount is included.
func (h *WaiterHandlers) HandleSplit(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodGet) {
		return
	}
	tableID := r.PathValue("table")
	if _, ok := h.ledger.Order(tableID); !ok {
		h.fail(w, "split state", services.ErrOrderNotFound)
		return
	}

	response := h.split(tableID)
	if p := r.URL.Query().Get("payers"); p != "" {
		payers, err := strconv.Atoi(p)
		if err != nil {
			http.Error(w, "Invalid number of payers", http.StatusBadRequest)
			return
		}
		share, err := h.ledger.EqualShare(tableID, payers)
		if err != nil {
			h.fail(w, "equal share", err)
			return
		}
		response.Share = share.StringFixed(2)
	}
	writeJSON(w, http.StatusOK, response)
}

// HandleMarkPaid records lines as paid in an itemized split
func (h *WaiterHandlers) HandleMarkPaid(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodPost) {
		return
	}
	var req MarkPaidRequest
	if !decode(w, r, &req) {
		return
	}
	tableID := r.PathValue("table")
	if err := h.ledger.MarkPaid(tableID, req.Indices); err != nil {
		h.fail(w, "mark paid", err)
		return
	}
	writeJSON(w, http.StatusOK, h.split(tableID))
}

// HandleCloseSplit closes a table whose every line was paid
func (h *WaiterHandlers) HandleCloseSplit(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodPost) {
		return
	}
	var req WaiterRequest
	if !decode(w, r, &req) {
		return
	}
	completed, err := h.ledger.CloseSplit(r.PathValue("table"), req.Waiter)
	if err != nil {
		h.fail(w, "close split", err)
		return
	}
	writeJSON(w, http.StatusOK, completed)
}

// HandleShift returns the running shift summary
func (h *WaiterHandlers) HandleShift(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodGet) {
		return
	}
	writeJSON(w, http.StatusOK, h.shifts.Summary())
}

// HandleCloseShift prints the shift report and starts a new shift
func (h *WaiterHandlers) HandleCloseShift(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodPost) {
		return
	}
	summary, err := h.shifts.CloseShift()
	if err != nil {
		h.fail(w, "close shift", err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// HandlePrinter returns (GET) or replaces (PUT) the printer selection
func (h *WaiterHandlers) HandlePrinter(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodGet, http.MethodPut) {
		return
	}
	if r.Method == http.MethodPut {
		var cfg models.PrinterConfig
		if !decode(w, r, &cfg) {
			return
		}
		if err := h.printers.SavePrinterConfig(cfg); err != nil {
			h.log.Warn("REST API: rejected printer configuration", zap.Error(err))
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
	}
	writeJSON(w, http.StatusOK, h.printers.GetPrinterConfig())
}

// HandleTestPrint prints the connectivity test ticket and reports the outcome
func (h *WaiterHandlers) HandleTestPrint(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodPost) {
		return
	}
	writeJSON(w, http.StatusOK, h.printers.TestPrint(r.Context()))
}

func (h *WaiterHandlers) split(tableID string) SplitResponse {
	return SplitResponse{
		PaidIndices: h.ledger.PaidIndices(tableID),
		Paid:        h.ledger.PaidTotal(tableID).StringFixed(2),
		Remaining:   h.ledger.RemainingTotal(tableID).StringFixed(2),
		AllPaid:     h.ledger.AllPaid(tableID),
	}
}

func (h *WaiterHandlers) writeOrder(w http.ResponseWriter, tableID string) {
	order, ok := h.ledger.Order(tableID)
	if !ok {
		// the last line was removed
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

func (h *WaiterHandlers) table(id string) (models.Table, bool) {
	for _, table := range h.catalog.LoadTables() {
		if table.ID == id && table.IsActive {
			return table, true
		}
	}
	return models.Table{}, false
}

func (h *WaiterHandlers) product(id string) (models.Product, bool) {
	for _, product := range h.catalog.LoadProducts() {
		if product.ID == id {
			return product, true
		}
	}
	return models.Product{}, false
}

// fail maps ledger errors to HTTP status codes
func (h *WaiterHandlers) fail(w http.ResponseWriter, op string, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		h.log.Error("REST API: "+op+" failed", zap.Error(err))
	} else {
		h.log.Debug("REST API: "+op+" rejected", zap.Error(err))
	}
	http.Error(w, err.Error(), status)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, services.ErrOrderNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrInvalidQuantity),
		errors.Is(err, services.ErrIndexOutOfRange),
		errors.Is(err, services.ErrInvalidSplit),
		errors.Is(err, services.ErrInvalidTable):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrTableOccupied),
		errors.Is(err, services.ErrNotFullyPaid):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// allow sets the CORS headers, answers preflight requests and rejects other methods
func allow(w http.ResponseWriter, r *http.Request, methods ...string) bool {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", strings.Join(append(methods, http.MethodOptions), ", "))
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return false
	}
	for _, m := range methods {
		if r.Method == m {
			return true
		}
	}
	http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	return false
}

// decode reads a JSON body; an empty body leaves v untouched
func decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if r.Body == nil {
		return true
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
