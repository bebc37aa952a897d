package services

import (
	"fmt"
	"sort"

	"EOrders/app/models"

	"github.com/shopspring/decimal"
)

// Equal split bounds
const (
	MinSplitPayers = 2
	MaxSplitPayers = 10
)

// SplitBillTracker records which lines of each open order have been paid. Paid
// state is keyed by item identity, so removing or reordering lines never shifts it
// onto another line. It holds no lock of its own; OrderService serializes access.
type SplitBillTracker struct {
	paid map[string]map[string]struct{} // table id -> item ids
}

// NewSplitBillTracker creates an empty tracker
func NewSplitBillTracker() *SplitBillTracker {
	return &SplitBillTracker{paid: make(map[string]map[string]struct{})}
}

// EqualShare divides the remaining amount between n payers, rounded to cents
func EqualShare(remaining decimal.Decimal, n int) (decimal.Decimal, error) {
	if n < MinSplitPayers || n > MaxSplitPayers {
		return decimal.Zero, fmt.Errorf("%w: %d payers, allowed %d-%d", ErrInvalidSplit, n, MinSplitPayers, MaxSplitPayers)
	}
	return remaining.DivRound(decimal.NewFromInt(int64(n)), 2), nil
}

// MarkPaid unions the lines at the given positions into the paid set. Positions
// are resolved against the current items; if any is out of range nothing is
// recorded.
func (t *SplitBillTracker) MarkPaid(order *models.TableOrder, indices []int) error {
	ids := make([]string, 0, len(indices))
	for _, idx := range indices {
		if idx < 0 || idx >= len(order.Items) {
			return fmt.Errorf("%w: %d (order has %d items)", ErrIndexOutOfRange, idx, len(order.Items))
		}
		ids = append(ids, order.Items[idx].ID)
	}

	set := t.paid[order.TableID]
	if set == nil {
		set = make(map[string]struct{})
		t.paid[order.TableID] = set
	}
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return nil
}

// PaidIndices returns the current positions of the paid lines, ascending
func (t *SplitBillTracker) PaidIndices(order *models.TableOrder) []int {
	set := t.paid[order.TableID]
	indices := []int{}
	for i, item := range order.Items {
		if _, ok := set[item.ID]; ok {
			indices = append(indices, i)
		}
	}
	sort.Ints(indices)
	return indices
}

// PaidTotal sums the subtotals of the paid lines
func (t *SplitBillTracker) PaidTotal(order *models.TableOrder) decimal.Decimal {
	set := t.paid[order.TableID]
	total := decimal.Zero
	for _, item := range order.Items {
		if _, ok := set[item.ID]; ok {
			total = total.Add(item.Subtotal())
		}
	}
	return total
}

// RemainingTotal is the order total minus the paid lines
func (t *SplitBillTracker) RemainingTotal(order *models.TableOrder) decimal.Decimal {
	return order.Total().Sub(t.PaidTotal(order))
}

// AllPaid reports whether every line is paid. An order without lines is never
// considered paid.
func (t *SplitBillTracker) AllPaid(order *models.TableOrder) bool {
	if order == nil || len(order.Items) == 0 {
		return false
	}
	return len(t.PaidIndices(order)) == len(order.Items)
}

// Prune forgets paid ids that no longer belong to the order
func (t *SplitBillTracker) Prune(order *models.TableOrder) {
	set := t.paid[order.TableID]
	if len(set) == 0 {
		return
	}
	present := make(map[string]struct{}, len(order.Items))
	for _, item := range order.Items {
		present[item.ID] = struct{}{}
	}
	for id := range set {
		if _, ok := present[id]; !ok {
			delete(set, id)
		}
	}
}

// Move re-keys the paid set when an order changes table
func (t *SplitBillTracker) Move(fromTableID, toTableID string) {
	if set, ok := t.paid[fromTableID]; ok {
		delete(t.paid, fromTableID)
		t.paid[toTableID] = set
	}
}

// Discard drops the paid set of a table
func (t *SplitBillTracker) Discard(tableID string) {
	delete(t.paid, tableID)
}
