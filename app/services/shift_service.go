package services

import (
	"sort"
	"time"

	"EOrders/app/models"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// HistorySource gives access to the completed orders of the current shift
type HistorySource interface {
	History() []models.CompletedOrder
	DrainHistory() []models.CompletedOrder
}

// ShiftStore persists the start of the current shift
type ShiftStore interface {
	LoadShiftStart() (time.Time, bool)
	SaveShiftStart(start time.Time) error
}

// ShiftPrinter prints the end-of-shift report
type ShiftPrinter interface {
	PrintShiftSummary(summary models.ShiftSummary)
}

// ShiftService builds the shift report and closes shifts
type ShiftService struct {
	history     HistorySource
	store       ShiftStore
	printer     ShiftPrinter
	topProducts int
	log         *zap.Logger
	now         func() time.Time
}

// NewShiftService creates a new shift service. topProducts limits the product
// ranking; zero keeps every product.
func NewShiftService(history HistorySource, store ShiftStore, printer ShiftPrinter, topProducts int, log *zap.Logger) *ShiftService {
	if log == nil {
		log = zap.NewNop()
	}
	return &ShiftService{
		history:     history,
		store:       store,
		printer:     printer,
		topProducts: topProducts,
		log:         log,
		now:         time.Now,
	}
}

// SetClock replaces the time source (useful for testing)
func (s *ShiftService) SetClock(now func() time.Time) {
	s.now = now
}

// Summary reports on the shift so far without closing it
func (s *ShiftService) Summary() models.ShiftSummary {
	history := s.history.History()
	return Summarize(history, s.shiftStart(history), s.topProducts)
}

// CloseShift prints the shift report, empties the order history and starts a new
// shift. The report is returned even when printing is not configured. The new
// shift start is saved first; if that fails the history is left untouched.
func (s *ShiftService) CloseShift() (models.ShiftSummary, error) {
	start := s.shiftStart(s.history.History())

	next := s.now()
	if err := s.store.SaveShiftStart(next); err != nil {
		s.log.Error("Could not save shift start", zap.Error(err))
		return models.ShiftSummary{}, err
	}

	history := s.history.DrainHistory()
	summary := Summarize(history, start, s.topProducts)

	if s.printer != nil {
		s.printer.PrintShiftSummary(summary)
	}

	s.log.Info("Shift closed",
		zap.Time("started", summary.ShiftStart),
		zap.Int("orders", summary.TotalOrders),
		zap.String("revenue", summary.TotalRevenue.StringFixed(2)))
	return summary, nil
}

func (s *ShiftService) shiftStart(history []models.CompletedOrder) time.Time {
	if start, ok := s.store.LoadShiftStart(); ok {
		return start
	}
	if len(history) > 0 {
		return history[0].Timestamp
	}
	return s.now()
}

// Summarize aggregates completed orders. Categories and payment methods are
// ranked by revenue, products by units sold; ties keep first-seen order.
func Summarize(history []models.CompletedOrder, start time.Time, topProducts int) models.ShiftSummary {
	summary := models.ShiftSummary{
		ShiftStart:   start,
		TotalRevenue: decimal.Zero,
		AverageOrder: decimal.Zero,
		Categories:   []models.CategoryRevenue{},
		Payments:     []models.PaymentRevenue{},
		TopProducts:  []models.ProductCount{},
	}

	categoryIdx := map[string]int{}
	paymentIdx := map[string]int{}
	productIdx := map[string]int{}

	for _, order := range history {
		summary.TotalRevenue = summary.TotalRevenue.Add(order.Total)
		summary.TotalOrders++

		i, ok := paymentIdx[order.PaymentMethod]
		if !ok {
			i = len(summary.Payments)
			paymentIdx[order.PaymentMethod] = i
			summary.Payments = append(summary.Payments, models.PaymentRevenue{Method: order.PaymentMethod, Revenue: decimal.Zero})
		}
		summary.Payments[i].Revenue = summary.Payments[i].Revenue.Add(order.Total)
		summary.Payments[i].Orders++

		for _, item := range order.Items {
			c, ok := categoryIdx[item.Product.Category]
			if !ok {
				c = len(summary.Categories)
				categoryIdx[item.Product.Category] = c
				summary.Categories = append(summary.Categories, models.CategoryRevenue{Category: item.Product.Category, Revenue: decimal.Zero})
			}
			summary.Categories[c].Revenue = summary.Categories[c].Revenue.Add(item.Subtotal())

			p, ok := productIdx[item.Product.Name]
			if !ok {
				p = len(summary.TopProducts)
				productIdx[item.Product.Name] = p
				summary.TopProducts = append(summary.TopProducts, models.ProductCount{Name: item.Product.Name})
			}
			summary.TopProducts[p].Count += item.Quantity
		}
	}

	if summary.TotalOrders > 0 {
		summary.AverageOrder = summary.TotalRevenue.DivRound(decimal.NewFromInt(int64(summary.TotalOrders)), 2)
	}

	sort.SliceStable(summary.Categories, func(i, j int) bool {
		return summary.Categories[i].Revenue.GreaterThan(summary.Categories[j].Revenue)
	})
	sort.SliceStable(summary.Payments, func(i, j int) bool {
		return summary.Payments[i].Revenue.GreaterThan(summary.Payments[j].Revenue)
	})
	sort.SliceStable(summary.TopProducts, func(i, j int) bool {
		return summary.TopProducts[i].Count > summary.TopProducts[j].Count
	})
	if topProducts > 0 && len(summary.TopProducts) > topProducts {
		summary.TopProducts = summary.TopProducts[:topProducts]
	}
	return summary
}
