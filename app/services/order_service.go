package services

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"EOrders/app/models"
	"EOrders/app/websocket"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// SendKind reports which receipt a send produced
type SendKind int

const (
	SendNone SendKind = iota
	SendFull
	SendDelta
)

func (k SendKind) String() string {
	switch k {
	case SendFull:
		return "full"
	case SendDelta:
		return "delta"
	default:
		return "none"
	}
}

// OrderStore persists the open orders and the order history
type OrderStore interface {
	LoadTableOrders() map[string]*models.TableOrder
	SaveTableOrders(orders map[string]*models.TableOrder) error
	LoadHistory() []models.CompletedOrder
	SaveHistory(history []models.CompletedOrder) error
}

// OrderPrinter prints the receipts triggered by the order flow. Calls must not block.
type OrderPrinter interface {
	PrintOrder(tableName, waiter string, items []models.OrderItem)
	PrintNewItems(tableName, waiter string, items []models.OrderItem)
	PrintBill(order models.CompletedOrder)
	BillEnabled() bool
}

// OrderFeed receives order events for bar displays
type OrderFeed interface {
	BroadcastToBar(message websocket.Message)
}

// OrderService is the order ledger: it owns the open order of every table and
// drives the draft/sent lifecycle. Every accepted mutation is followed by a
// persisted snapshot. Printing and feed events happen after the mutation is
// committed and never undo it.
type OrderService struct {
	mu      sync.Mutex
	orders  map[string]*models.TableOrder
	history []models.CompletedOrder
	split   *SplitBillTracker

	store   OrderStore
	printer OrderPrinter
	feed    OrderFeed
	log     *zap.Logger
	metrics *Metrics
	now     func() time.Time
}

// NewOrderService creates the ledger and restores the persisted open orders
func NewOrderService(store OrderStore, printer OrderPrinter, log *zap.Logger, metrics *Metrics) *OrderService {
	if log == nil {
		log = zap.NewNop()
	}
	if metrics == nil {
		metrics = NewMetrics()
	}
	s := &OrderService{
		orders:  make(map[string]*models.TableOrder),
		history: []models.CompletedOrder{},
		split:   NewSplitBillTracker(),
		store:   store,
		printer: printer,
		log:     log,
		metrics: metrics,
		now:     time.Now,
	}
	s.restore()
	return s
}

// SetFeed attaches the bar display feed
func (s *OrderService) SetFeed(feed OrderFeed) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.feed = feed
}

// SetClock replaces the time source (useful for testing)
func (s *OrderService) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// restore loads the snapshot and repairs anything that breaks the ledger rules
func (s *OrderService) restore() {
	if s.store == nil {
		return
	}
	repaired := 0
	for key, order := range s.store.LoadTableOrders() {
		if order == nil || order.IsEmpty() {
			repaired++
			continue
		}
		if order.TableID == "" {
			order.TableID = key
		}
		for i := range order.Items {
			if order.Items[i].ID == "" {
				order.Items[i].ID = uuid.NewString()
				repaired++
			}
		}
		if order.SentCount < 0 {
			order.SentCount = 0
			repaired++
		}
		if order.SentCount > len(order.Items) {
			order.SentCount = len(order.Items)
			repaired++
		}
		if order.Status == "" {
			order.Status = models.OrderStatusDraft
		}
		s.orders[order.TableID] = order
	}
	s.history = s.store.LoadHistory()
	s.metrics.OpenOrders.Set(float64(len(s.orders)))

	s.log.Info("Order ledger restored",
		zap.Int("open_orders", len(s.orders)),
		zap.Int("history", len(s.history)),
		zap.Int("repaired", repaired))
	if repaired > 0 {
		s.persistOrders()
	}
}

// AddItem appends a line to the table's order, opening a draft order if the table
// has none. The stored line is returned with its identifier.
func (s *OrderService) AddItem(table models.Table, item models.OrderItem) (models.OrderItem, error) {
	if table.ID == "" {
		return models.OrderItem{}, ErrInvalidTable
	}
	if item.Quantity < 1 {
		return models.OrderItem{}, fmt.Errorf("%w: got %d", ErrInvalidQuantity, item.Quantity)
	}

	item = item.Clone()
	if item.ID == "" {
		item.ID = uuid.NewString()
	}

	s.mu.Lock()
	order, ok := s.orders[table.ID]
	if !ok {
		order = &models.TableOrder{
			TableID:   table.ID,
			TableName: table.Name,
			Items:     []models.OrderItem{},
			Status:    models.OrderStatusDraft,
			CreatedAt: s.now(),
		}
		s.orders[table.ID] = order
	}
	order.Items = append(order.Items, item)
	s.committed("add_item")
	s.mu.Unlock()

	return item.Clone(), nil
}

// UpdateQuantity changes the quantity of the line at index
func (s *OrderService) UpdateQuantity(tableID string, index, quantity int) error {
	if quantity < 1 {
		return fmt.Errorf("%w: got %d", ErrInvalidQuantity, quantity)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	order, err := s.lookup(tableID)
	if err != nil {
		return err
	}
	if index < 0 || index >= len(order.Items) {
		return fmt.Errorf("%w: %d (order has %d items)", ErrIndexOutOfRange, index, len(order.Items))
	}
	order.Items[index].Quantity = quantity
	s.committed("update_quantity")
	return nil
}

// RemoveItem deletes the line at index. Removing the last line deletes the order.
func (s *OrderService) RemoveItem(tableID string, index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	order, err := s.lookup(tableID)
	if err != nil {
		return err
	}
	if index < 0 || index >= len(order.Items) {
		return fmt.Errorf("%w: %d (order has %d items)", ErrIndexOutOfRange, index, len(order.Items))
	}

	order.Items = append(order.Items[:index], order.Items[index+1:]...)
	// keep the sent prefix covering only lines the bar has seen
	if index < order.SentCount {
		order.SentCount--
	}
	if order.SentCount > len(order.Items) {
		order.SentCount = len(order.Items)
	}
	if order.IsEmpty() {
		delete(s.orders, tableID)
		s.split.Discard(tableID)
	} else {
		s.split.Prune(order)
	}
	s.committed("remove_item")
	return nil
}

// Send transmits the order to the bar. A draft order is printed in full; a sent
// order with new lines prints only the lines added since the last send. A sent
// order without new lines is left alone and SendNone is returned.
func (s *OrderService) Send(tableID, waiter string) (SendKind, error) {
	s.mu.Lock()
	order, err := s.lookup(tableID)
	if err != nil {
		s.mu.Unlock()
		return SendNone, err
	}

	var kind SendKind
	var items []models.OrderItem
	switch {
	case order.Status != models.OrderStatusSent:
		kind = SendFull
		items = models.CloneItems(order.Items)
	case order.HasNewItems():
		kind = SendDelta
		items = models.CloneItems(order.Items[order.SentCount:])
	default:
		s.mu.Unlock()
		return SendNone, nil
	}

	order.Status = models.OrderStatusSent
	order.SentCount = len(order.Items)
	tableName := order.TableName
	s.committed("send_" + kind.String())
	feed := s.feed
	s.mu.Unlock()

	if s.printer != nil {
		if kind == SendFull {
			s.printer.PrintOrder(tableName, waiter, items)
		} else {
			s.printer.PrintNewItems(tableName, waiter, items)
		}
	}
	s.notify(feed, websocket.TypeOrderSent, websocket.OrderSentData{
		TableID:   tableID,
		TableName: tableName,
		Waiter:    waiter,
		Delta:     kind == SendDelta,
		Items:     items,
	})
	s.log.Info("Order sent",
		zap.String("table", tableName),
		zap.String("kind", kind.String()),
		zap.Int("items", len(items)))
	return kind, nil
}

// Transfer moves the order of one table to another. The destination must not
// hold an order; on rejection neither table changes.
func (s *OrderService) Transfer(fromTableID string, to models.Table) error {
	if to.ID == "" {
		return ErrInvalidTable
	}

	s.mu.Lock()
	order, err := s.lookup(fromTableID)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	if to.ID == fromTableID {
		s.mu.Unlock()
		return nil
	}
	if dest, ok := s.orders[to.ID]; ok && !dest.IsEmpty() {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrTableOccupied, dest.TableName)
	}

	fromName := order.TableName
	delete(s.orders, fromTableID)
	order.TableID = to.ID
	order.TableName = to.Name
	s.orders[to.ID] = order
	s.split.Move(fromTableID, to.ID)
	s.committed("transfer")
	feed := s.feed
	s.mu.Unlock()

	s.notify(feed, websocket.TypeTableTransfer, websocket.TableTransferData{
		FromTableID:   fromTableID,
		FromTableName: fromName,
		ToTableID:     to.ID,
		ToTableName:   to.Name,
	})
	s.log.Info("Order transferred", zap.String("from", fromName), zap.String("to", to.Name))
	return nil
}

// Close settles the table: the order is copied into the history and removed from
// the ledger. An empty payment method is recorded as cash.
func (s *OrderService) Close(tableID, paymentMethod, waiter string) (models.CompletedOrder, error) {
	if paymentMethod == "" {
		paymentMethod = models.PaymentCash
	}

	s.mu.Lock()
	order, err := s.lookup(tableID)
	if err != nil {
		s.mu.Unlock()
		return models.CompletedOrder{}, err
	}
	completed, feed := s.closeLocked(order, paymentMethod, waiter)
	s.mu.Unlock()

	s.afterClose(feed, tableID, completed.Clone())
	return completed, nil
}

// CloseSplit closes an order whose every line was paid through an itemized split
func (s *OrderService) CloseSplit(tableID, waiter string) (models.CompletedOrder, error) {
	s.mu.Lock()
	order, err := s.lookup(tableID)
	if err != nil {
		s.mu.Unlock()
		return models.CompletedOrder{}, err
	}
	if !s.split.AllPaid(order) {
		remaining := s.split.RemainingTotal(order)
		s.mu.Unlock()
		return models.CompletedOrder{}, fmt.Errorf("%w: %s remaining", ErrNotFullyPaid, remaining.StringFixed(2))
	}
	completed, feed := s.closeLocked(order, models.PaymentSplit, waiter)
	s.mu.Unlock()

	s.afterClose(feed, tableID, completed.Clone())
	return completed, nil
}

func (s *OrderService) closeLocked(order *models.TableOrder, paymentMethod, waiter string) (models.CompletedOrder, OrderFeed) {
	completed := models.CompletedOrder{
		ID:            uuid.NewString(),
		TableName:     order.TableName,
		Items:         models.CloneItems(order.Items),
		Total:         order.Total(),
		Timestamp:     s.now(),
		PaymentMethod: paymentMethod,
		WaiterName:    waiter,
	}
	s.history = append(s.history, completed)
	delete(s.orders, order.TableID)
	s.split.Discard(order.TableID)
	s.persistHistory()
	s.committed("close")
	return completed.Clone(), s.feed
}

func (s *OrderService) afterClose(feed OrderFeed, tableID string, completed models.CompletedOrder) {
	if s.printer != nil && s.printer.BillEnabled() {
		s.printer.PrintBill(completed)
	}
	s.notify(feed, websocket.TypeOrderClosed, websocket.OrderClosedData{
		TableID:       tableID,
		TableName:     completed.TableName,
		OrderID:       completed.ID,
		Total:         completed.Total,
		PaymentMethod: completed.PaymentMethod,
	})
	s.log.Info("Order closed",
		zap.String("table", completed.TableName),
		zap.String("total", completed.Total.StringFixed(2)),
		zap.String("payment", completed.PaymentMethod),
		zap.String("waiter", completed.WaiterName))
}

// ClearTable drops the table's order without recording it in the history
func (s *OrderService) ClearTable(tableID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.lookup(tableID); err != nil {
		return err
	}
	delete(s.orders, tableID)
	s.split.Discard(tableID)
	s.committed("clear")
	return nil
}

// MarkPaid records the lines at the given positions as paid
func (s *OrderService) MarkPaid(tableID string, indices []int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	order, err := s.lookup(tableID)
	if err != nil {
		return err
	}
	if err := s.split.MarkPaid(order, indices); err != nil {
		return err
	}
	s.metrics.LedgerOps.WithLabelValues("mark_paid").Inc()
	return nil
}

// PaidIndices returns the positions of the paid lines
func (s *OrderService) PaidIndices(tableID string) []int {
	s.mu.Lock()
	defer s.mu.Unlock()

	order, ok := s.orders[tableID]
	if !ok {
		return []int{}
	}
	return s.split.PaidIndices(order)
}

// PaidTotal returns the amount already settled on the table
func (s *OrderService) PaidTotal(tableID string) decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()

	order, ok := s.orders[tableID]
	if !ok {
		return decimal.Zero
	}
	return s.split.PaidTotal(order)
}

// RemainingTotal returns the amount still owed on the table
func (s *OrderService) RemainingTotal(tableID string) decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()

	order, ok := s.orders[tableID]
	if !ok {
		return decimal.Zero
	}
	return s.split.RemainingTotal(order)
}

// AllPaid reports whether the table can be closed as a split payment
func (s *OrderService) AllPaid(tableID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.split.AllPaid(s.orders[tableID])
}

// EqualShare returns what each of n payers owes on the remaining amount
func (s *OrderService) EqualShare(tableID string, payers int) (decimal.Decimal, error) {
	s.mu.Lock()
	order, err := s.lookup(tableID)
	if err != nil {
		s.mu.Unlock()
		return decimal.Zero, err
	}
	remaining := s.split.RemainingTotal(order)
	s.mu.Unlock()

	return EqualShare(remaining, payers)
}

// Order returns a copy of the table's open order
func (s *OrderService) Order(tableID string) (*models.TableOrder, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	order, ok := s.orders[tableID]
	if !ok {
		return nil, false
	}
	return order.Clone(), true
}

// Orders returns copies of all open orders sorted by table name
func (s *OrderService) Orders() []*models.TableOrder {
	s.mu.Lock()
	defer s.mu.Unlock()

	orders := make([]*models.TableOrder, 0, len(s.orders))
	for _, order := range s.orders {
		orders = append(orders, order.Clone())
	}
	sort.Slice(orders, func(i, j int) bool {
		if orders[i].TableName != orders[j].TableName {
			return orders[i].TableName < orders[j].TableName
		}
		return orders[i].TableID < orders[j].TableID
	})
	return orders
}

// HasNewItems reports whether the table has lines not yet sent to the bar
func (s *OrderService) HasNewItems(tableID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	order, ok := s.orders[tableID]
	return ok && order.HasNewItems()
}

// History returns the completed orders, oldest first
func (s *OrderService) History() []models.CompletedOrder {
	s.mu.Lock()
	defer s.mu.Unlock()

	history := make([]models.CompletedOrder, len(s.history))
	for i, order := range s.history {
		history[i] = order.Clone()
	}
	return history
}

// DrainHistory returns the completed orders and empties the history
func (s *OrderService) DrainHistory() []models.CompletedOrder {
	s.mu.Lock()
	defer s.mu.Unlock()

	history := s.history
	s.history = []models.CompletedOrder{}
	s.persistHistory()
	s.metrics.LedgerOps.WithLabelValues("drain_history").Inc()
	return history
}

func (s *OrderService) lookup(tableID string) (*models.TableOrder, error) {
	order, ok := s.orders[tableID]
	if !ok {
		return nil, fmt.Errorf("%w: table %s", ErrOrderNotFound, tableID)
	}
	return order, nil
}

// committed persists the open orders and counts the operation. Caller holds mu.
func (s *OrderService) committed(op string) {
	s.persistOrders()
	s.metrics.LedgerOps.WithLabelValues(op).Inc()
	s.metrics.OpenOrders.Set(float64(len(s.orders)))
}

func (s *OrderService) persistOrders() {
	if s.store == nil {
		return
	}
	snapshot := make(map[string]*models.TableOrder, len(s.orders))
	for id, order := range s.orders {
		snapshot[id] = order.Clone()
	}
	if err := s.store.SaveTableOrders(snapshot); err != nil {
		s.log.Error("Could not persist open orders", zap.Error(err))
	}
}

func (s *OrderService) persistHistory() {
	if s.store == nil {
		return
	}
	if err := s.store.SaveHistory(s.history); err != nil {
		s.log.Error("Could not persist order history", zap.Error(err))
	}
}

func (s *OrderService) notify(feed OrderFeed, t websocket.MessageType, data interface{}) {
	if feed == nil {
		return
	}
	msg, err := websocket.NewMessage(t, data)
	if err != nil {
		s.log.Warn("Could not build feed message", zap.Error(err))
		return
	}
	feed.BroadcastToBar(msg)
}
