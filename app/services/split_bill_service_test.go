package services

import (
	"testing"

	"EOrders/app/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEqualShare(t *testing.T) {
	share, err := EqualShare(price("24.00"), 3)
	require.NoError(t, err)
	assert.Equal(t, "8.00", share.StringFixed(2))

	share, err = EqualShare(price("10.00"), 3)
	require.NoError(t, err)
	assert.Equal(t, "3.33", share.StringFixed(2))

	for _, n := range []int{0, 1, 11} {
		_, err := EqualShare(price("24.00"), n)
		assert.ErrorIs(t, err, ErrInvalidSplit, "n=%d", n)
	}
}

func TestTrackerAllPaidEdgeCases(t *testing.T) {
	tracker := NewSplitBillTracker()

	assert.False(t, tracker.AllPaid(nil))
	empty := &models.TableOrder{TableID: "t1"}
	assert.False(t, tracker.AllPaid(empty), "an order without lines is never settled")
	require.NoError(t, tracker.MarkPaid(empty, nil))
	assert.False(t, tracker.AllPaid(empty))
}

func TestTrackerMoveAndDiscard(t *testing.T) {
	tracker := NewSplitBillTracker()
	order := &models.TableOrder{TableID: "t1", Items: []models.OrderItem{
		{ID: "a", Product: espresso(), Quantity: 1},
		{ID: "b", Product: frappe(), Quantity: 1},
	}}
	require.NoError(t, tracker.MarkPaid(order, []int{1}))

	tracker.Move("t1", "t2")
	assert.Empty(t, tracker.PaidIndices(order))
	order.TableID = "t2"
	assert.Equal(t, []int{1}, tracker.PaidIndices(order))
	assert.Equal(t, "2.50", tracker.RemainingTotal(order).StringFixed(2))

	tracker.Discard("t2")
	assert.Empty(t, tracker.PaidIndices(order))
}
