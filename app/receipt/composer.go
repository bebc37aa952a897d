package receipt

import (
	"fmt"
	"strconv"
	"time"

	"EOrders/app/models"
)

// TimeLayout is the timestamp format printed on every receipt
const TimeLayout = "02/01/2006 15:04"

// Labels holds the fixed texts printed on receipts
type Labels struct {
	OrderTitle    string
	NewItemsTitle string
	ShiftTitle    string
	BillTitle     string
	TestTitle     string
	TestStatus    string
	Waiter        string
	Revenue       string
	Orders        string
	Average       string
	ByCategory    string
	ByPayment     string
	TopProducts   string
	UnitSuffix    string
	Total         string
	Payment       string
	Footer        string
}

// DefaultLabels returns the Greek receipt texts
func DefaultLabels() Labels {
	return Labels{
		OrderTitle:    "ΠΑΡΑΓΓΕΛΙΑ",
		NewItemsTitle: "+ ΠΡΟΣΘΗΚΗ +",
		ShiftTitle:    "ΚΛΕΙΣΙΜΟ ΒΑΡΔΙΑΣ",
		BillTitle:     "ΛΟΓΑΡΙΑΣΜΟΣ",
		TestTitle:     "e-Orders",
		TestStatus:    "Test Print OK!",
		Waiter:        "Σερβιτόρος: ",
		Revenue:       "ΣΥΝΟΛΟ ΕΣΟΔΩΝ:",
		Orders:        "ΠΑΡΑΓΓΕΛΙΕΣ:",
		Average:       "ΜΕΣΟΣ ΟΡΟΣ:",
		ByCategory:    "ΑΝΑ ΚΑΤΗΓΟΡΙΑ:",
		ByPayment:     "ΑΝΑ ΤΡΟΠΟ ΠΛΗΡΩΜΗΣ:",
		TopProducts:   "TOP ΠΡΟΪΟΝΤΑ:",
		UnitSuffix:    "τεμ",
		Total:         "ΣΥΝΟΛΟ:",
		Payment:       "ΠΛΗΡΩΜΗ:",
		Footer:        "e-Orders",
	}
}

// Composer turns orders and shift data into ESC/POS byte streams.
// It holds no mutable state: identical inputs give byte-identical output.
type Composer struct {
	Codepage    Codepage
	Labels      Labels
	FeedLines   int
	TopProducts int
	QRSize      int
}

// NewComposer creates a composer with the default layout for the given codepage
func NewComposer(cp Codepage) *Composer {
	return &Composer{
		Codepage:    cp,
		Labels:      DefaultLabels(),
		FeedLines:   4,
		TopProducts: 10,
		QRSize:      192,
	}
}

// OrderReceipt builds the full ticket sent to the bar the first time an order is sent
func (c *Composer) OrderReceipt(tableName, waiter string, items []models.OrderItem, at time.Time) []byte {
	return c.orderTicket(c.Labels.OrderTitle, tableName, waiter, items, at)
}

// NewItemsReceipt builds the addendum ticket holding only the items added since the last send
func (c *Composer) NewItemsReceipt(tableName, waiter string, items []models.OrderItem, at time.Time) []byte {
	return c.orderTicket(c.Labels.NewItemsTitle, tableName, waiter, items, at)
}

func (c *Composer) orderTicket(title, tableName, waiter string, items []models.OrderItem, at time.Time) []byte {
	w := NewWriter(c.Codepage)
	w.Init()

	w.Align(AlignCenter)
	c.title(w, title)
	w.NewLine()

	w.Bold(true)
	w.SetSize(SizeDoubleHeight)
	w.Line(tableName)
	w.SetSize(SizeNormal)
	w.Bold(false)
	if waiter != "" {
		w.Line(c.Labels.Waiter + waiter)
	}
	w.Line(at.Format(TimeLayout))
	w.Line(Rule('='))

	w.Align(AlignLeft)
	for _, item := range items {
		w.Bold(true)
		w.Line(fmt.Sprintf("%dx %s", item.Quantity, item.Product.Name))
		w.Bold(false)

		for _, key := range item.CustomizationKeys() {
			if value := item.Customizations[key]; value != "" {
				w.Line(fmt.Sprintf("  %s: %s", key, value))
			}
		}
		if item.Notes != "" {
			w.Line("  >> " + item.Notes)
		}
		w.Line(Rule('-'))
	}

	c.finish(w)
	return w.Bytes()
}

// ShiftSummaryReceipt builds the end-of-shift report. Lists are printed in the order
// given; the product list is capped at TopProducts entries.
func (c *Composer) ShiftSummaryReceipt(summary models.ShiftSummary, at time.Time) []byte {
	w := NewWriter(c.Codepage)
	w.Init()

	w.Align(AlignCenter)
	c.title(w, c.Labels.ShiftTitle)
	w.Line(at.Format(TimeLayout))
	w.Line(Rule('='))

	w.Align(AlignLeft)
	w.Bold(true)
	w.NewLine()
	w.Line(LeftRight(c.Labels.Revenue, Money(summary.TotalRevenue)))
	w.Line(LeftRight(c.Labels.Orders, strconv.Itoa(summary.TotalOrders)))
	w.Line(LeftRight(c.Labels.Average, Money(summary.AverageOrder)))
	w.Bold(false)

	if len(summary.Categories) > 0 {
		c.section(w, c.Labels.ByCategory)
		for _, cat := range summary.Categories {
			w.Line(LeftRight("  "+cat.Category, Money(cat.Revenue)))
		}
	}

	if len(summary.Payments) > 0 {
		c.section(w, c.Labels.ByPayment)
		for _, p := range summary.Payments {
			w.Line(LeftRight(fmt.Sprintf("  %s (%d)", p.Method, p.Orders), Money(p.Revenue)))
		}
	}

	if len(summary.TopProducts) > 0 {
		c.section(w, c.Labels.TopProducts)
		for i, p := range summary.TopProducts {
			if c.TopProducts > 0 && i >= c.TopProducts {
				break
			}
			w.Line(LeftRight(fmt.Sprintf("  %d. %s", i+1, p.Name), fmt.Sprintf("%d%s", p.Count, c.Labels.UnitSuffix)))
		}
	}

	w.NewLine()
	w.Line(Rule('='))
	w.Align(AlignCenter)
	w.Line(c.Labels.Footer)

	c.finish(w)
	return w.Bytes()
}

// TestReceipt builds the connectivity smoke-test ticket
func (c *Composer) TestReceipt(at time.Time) []byte {
	w := NewWriter(c.Codepage)
	w.Init()

	w.Align(AlignCenter)
	w.SetSize(SizeDouble)
	w.Line(c.Labels.TestTitle)
	w.SetSize(SizeNormal)
	w.NewLine()
	w.Line(c.Labels.TestStatus)
	w.Line(Rule('-'))
	w.Line(at.Format(TimeLayout))

	c.finish(w)
	return w.Bytes()
}

// BillReceipt builds the customer bill of a closed order, with prices, total and
// payment method. When withQR is set the order id is printed as a QR code.
func (c *Composer) BillReceipt(order models.CompletedOrder, withQR bool) ([]byte, error) {
	w := NewWriter(c.Codepage)
	w.Init()

	w.Align(AlignCenter)
	c.title(w, c.Labels.BillTitle)
	w.Bold(true)
	w.Line(order.TableName)
	w.Bold(false)
	if order.WaiterName != "" {
		w.Line(c.Labels.Waiter + order.WaiterName)
	}
	w.Line(order.Timestamp.Format(TimeLayout))
	w.Line(Rule('='))

	w.Align(AlignLeft)
	for _, item := range order.Items {
		w.Line(LeftRight(fmt.Sprintf("%dx %s", item.Quantity, item.Product.Name), Money(item.Subtotal())))
	}
	w.Line(Rule('-'))

	w.Bold(true)
	w.SetSize(SizeDoubleHeight)
	w.Line(LeftRight(c.Labels.Total, Money(order.Total)))
	w.SetSize(SizeNormal)
	w.Bold(false)
	w.Line(LeftRight(c.Labels.Payment, order.PaymentMethod))

	w.Align(AlignCenter)
	if withQR {
		w.NewLine()
		if err := w.QRCode(order.ID, c.QRSize); err != nil {
			return nil, err
		}
	}
	w.Line(c.Labels.Footer)

	c.finish(w)
	return w.Bytes(), nil
}

// title prints a centered bold double-size heading
func (c *Composer) title(w *Writer, text string) {
	w.Bold(true)
	w.SetSize(SizeDouble)
	w.Line(text)
	w.SetSize(SizeNormal)
	w.Bold(false)
}

func (c *Composer) section(w *Writer, heading string) {
	w.NewLine()
	w.Line(Rule('-'))
	w.Bold(true)
	w.Line(heading)
	w.Bold(false)
}

func (c *Composer) finish(w *Writer) {
	w.Feed(c.FeedLines)
	w.Cut(CutPartial)
}
