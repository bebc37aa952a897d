package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"EOrders/app/models"
	"EOrders/app/printer"
	"EOrders/app/receipt"

	"go.uber.org/zap"
)

// PrintJob names the kind of receipt being printed
type PrintJob string

const (
	JobOrder        PrintJob = "order"
	JobNewItems     PrintJob = "new_items"
	JobShiftSummary PrintJob = "shift_summary"
	JobBill         PrintJob = "bill"
	JobTest         PrintJob = "test"
)

// PrinterConfigSource provides the current printer selection
type PrinterConfigSource interface {
	LoadPrinterConfig() models.PrinterConfig
	SavePrinterConfig(cfg models.PrinterConfig) error
}

// TransportFactory builds the transport for a printer configuration
type TransportFactory func(cfg models.PrinterConfig, opts printer.Options) (printer.Transport, error)

// PrinterDefaults are the application-wide printing parameters
type PrinterDefaults struct {
	Codepage    string
	SettleDelay time.Duration
	Timeout     time.Duration
	FeedLines   int
	TopProducts int
}

// TestPrintResult is reported to the operator after a test print
type TestPrintResult struct {
	OK      bool   `json:"ok"`
	Kind    string `json:"kind,omitempty"`
	Message string `json:"message"`
}

// PrinterService composes receipts and delivers them. Order-flow prints run in the
// background and never report failures to the caller; TestPrint is synchronous.
type PrinterService struct {
	configs      PrinterConfigSource
	defaults     PrinterDefaults
	newTransport TransportFactory
	log          *zap.Logger
	metrics      *Metrics
	now          func() time.Time
	wg           sync.WaitGroup
}

// NewPrinterService creates a new printer service
func NewPrinterService(configs PrinterConfigSource, defaults PrinterDefaults, log *zap.Logger, metrics *Metrics) *PrinterService {
	if log == nil {
		log = zap.NewNop()
	}
	if metrics == nil {
		metrics = NewMetrics()
	}
	if defaults.SettleDelay <= 0 {
		defaults.SettleDelay = printer.DefaultSettleDelay
	}
	if defaults.Timeout <= 0 {
		defaults.Timeout = printer.DefaultTimeout
	}
	return &PrinterService{
		configs:      configs,
		defaults:     defaults,
		newTransport: DefaultTransport,
		log:          log,
		metrics:      metrics,
		now:          time.Now,
	}
}

// SetTransportFactory replaces how transports are built (useful for testing)
func (s *PrinterService) SetTransportFactory(f TransportFactory) {
	s.newTransport = f
}

// SetClock replaces the time source printed on receipts
func (s *PrinterService) SetClock(now func() time.Time) {
	s.now = now
}

// DefaultTransport selects the Bluetooth or TCP transport for cfg
func DefaultTransport(cfg models.PrinterConfig, opts printer.Options) (printer.Transport, error) {
	switch cfg.Mode {
	case models.PrinterModeBluetooth:
		return printer.NewBluetoothTransport(cfg.BluetoothAddress, cfg.BluetoothChannel, opts), nil
	case models.PrinterModeWiFi:
		return printer.NewTCPTransport(cfg.WiFiHost, cfg.WiFiPort, opts), nil
	default:
		return nil, &printer.Error{Kind: printer.KindNotConfigured, Op: "select", Err: fmt.Errorf("no printer selected")}
	}
}

// GetPrinterConfig returns the stored printer selection
func (s *PrinterService) GetPrinterConfig() models.PrinterConfig {
	return s.configs.LoadPrinterConfig()
}

// SavePrinterConfig validates and stores a printer selection
func (s *PrinterService) SavePrinterConfig(cfg models.PrinterConfig) error {
	cfg = cfg.Normalize()
	switch cfg.Mode {
	case models.PrinterModeNone:
	case models.PrinterModeBluetooth:
		if _, err := printer.ParseBluetoothAddress(cfg.BluetoothAddress); err != nil {
			return err
		}
	case models.PrinterModeWiFi:
		if cfg.WiFiHost == "" {
			return fmt.Errorf("printer host is required")
		}
		if cfg.WiFiPort > 65535 {
			return fmt.Errorf("invalid printer port %d", cfg.WiFiPort)
		}
	default:
		return fmt.Errorf("unsupported printer type: %s", cfg.Mode)
	}
	if cfg.Codepage != "" {
		if _, ok := receipt.LookupCodepage(cfg.Codepage); !ok {
			return fmt.Errorf("unsupported codepage %q", cfg.Codepage)
		}
	}
	if err := s.configs.SavePrinterConfig(cfg); err != nil {
		return err
	}
	s.log.Info("Printer configuration saved", zap.String("mode", string(cfg.Mode)), zap.String("target", cfg.Target()))
	return nil
}

// Composer returns a receipt composer for the configured codepage
func (s *PrinterService) Composer() *receipt.Composer {
	return s.composerFor(s.configs.LoadPrinterConfig())
}

func (s *PrinterService) composerFor(cfg models.PrinterConfig) *receipt.Composer {
	name := cfg.Codepage
	if name == "" {
		name = s.defaults.Codepage
	}
	cp := receipt.DefaultCodepage()
	if name != "" {
		found, ok := receipt.LookupCodepage(name)
		if !ok {
			s.log.Warn("Unknown codepage, using default", zap.String("codepage", name))
		} else {
			cp = found
		}
	}

	c := receipt.NewComposer(cp)
	if s.defaults.FeedLines > 0 {
		c.FeedLines = s.defaults.FeedLines
	}
	if s.defaults.TopProducts > 0 {
		c.TopProducts = s.defaults.TopProducts
	}
	return c
}

// PrintOrder prints the full ticket of a freshly sent order
func (s *PrinterService) PrintOrder(tableName, waiter string, items []models.OrderItem) {
	items = models.CloneItems(items)
	at := s.now()
	s.dispatchBuilt(JobOrder, func(c *receipt.Composer) ([]byte, error) {
		return c.OrderReceipt(tableName, waiter, items, at), nil
	})
}

// PrintNewItems prints the addendum ticket of items added after the last send
func (s *PrinterService) PrintNewItems(tableName, waiter string, items []models.OrderItem) {
	items = models.CloneItems(items)
	at := s.now()
	s.dispatchBuilt(JobNewItems, func(c *receipt.Composer) ([]byte, error) {
		return c.NewItemsReceipt(tableName, waiter, items, at), nil
	})
}

// PrintShiftSummary prints the end-of-shift report
func (s *PrinterService) PrintShiftSummary(summary models.ShiftSummary) {
	at := s.now()
	s.dispatchBuilt(JobShiftSummary, func(c *receipt.Composer) ([]byte, error) {
		return c.ShiftSummaryReceipt(summary, at), nil
	})
}

// PrintBill prints the customer bill of a closed order when bill printing is enabled
func (s *PrinterService) PrintBill(order models.CompletedOrder) {
	order.Items = models.CloneItems(order.Items)
	s.dispatchBuilt(JobBill, func(c *receipt.Composer) ([]byte, error) {
		return c.BillReceipt(order, true)
	})
}

// BillEnabled reports whether bills are printed on close
func (s *PrinterService) BillEnabled() bool {
	return s.configs.LoadPrinterConfig().PrintBill
}

// Dispatch sends pre-built bytes in the background. Failures are logged and
// counted, never returned.
func (s *PrinterService) Dispatch(job PrintJob, data []byte) {
	data = append([]byte(nil), data...)
	s.dispatchBuilt(job, func(*receipt.Composer) ([]byte, error) {
		return data, nil
	})
}

func (s *PrinterService) dispatchBuilt(job PrintJob, build func(c *receipt.Composer) ([]byte, error)) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				s.log.Error("Print job panicked", zap.String("job", string(job)), zap.Any("panic", r), zap.Stack("stack"))
				s.metrics.PrintJobs.WithLabelValues(string(job), "unknown", resultPanic).Inc()
			}
		}()

		cfg := s.configs.LoadPrinterConfig()
		data, err := build(s.composerFor(cfg))
		if err != nil {
			s.log.Error("Could not compose receipt", zap.String("job", string(job)), zap.Error(err))
			s.metrics.PrintJobs.WithLabelValues(string(job), string(cfg.Mode), resultFailed).Inc()
			return
		}

		if err := s.send(context.Background(), cfg, data); err != nil {
			s.log.Warn("Print failed",
				zap.String("job", string(job)),
				zap.String("target", cfg.Target()),
				zap.String("kind", printer.KindOf(err).String()),
				zap.Error(err))
			s.metrics.PrintJobs.WithLabelValues(string(job), string(cfg.Mode), resultFailed).Inc()
			return
		}
		s.log.Info("Printed receipt", zap.String("job", string(job)), zap.String("target", cfg.Target()), zap.Int("bytes", len(data)))
		s.metrics.PrintJobs.WithLabelValues(string(job), string(cfg.Mode), resultOK).Inc()
	}()
}

// TestPrint prints the connectivity test ticket and reports the outcome
func (s *PrinterService) TestPrint(ctx context.Context) TestPrintResult {
	cfg := s.configs.LoadPrinterConfig()
	data := s.composerFor(cfg).TestReceipt(s.now())

	err := s.send(ctx, cfg, data)
	if err != nil {
		s.log.Warn("Test print failed", zap.String("target", cfg.Target()), zap.Error(err))
		s.metrics.PrintJobs.WithLabelValues(string(JobTest), string(cfg.Mode), resultFailed).Inc()
		return TestPrintResult{OK: false, Kind: printer.KindOf(err).String(), Message: err.Error()}
	}

	s.log.Info("Test print OK", zap.String("target", cfg.Target()))
	s.metrics.PrintJobs.WithLabelValues(string(JobTest), string(cfg.Mode), resultOK).Inc()
	return TestPrintResult{OK: true, Message: fmt.Sprintf("Printed to %s", cfg.Target())}
}

func (s *PrinterService) send(ctx context.Context, cfg models.PrinterConfig, data []byte) error {
	if cfg.Mode == models.PrinterModeNone {
		return &printer.Error{Kind: printer.KindNotConfigured, Op: "select", Err: fmt.Errorf("no printer selected")}
	}
	opts := printer.Options{
		SettleDelay: cfg.SettleDelay(s.defaults.SettleDelay),
		Timeout:     cfg.Timeout(s.defaults.Timeout),
	}
	transport, err := s.newTransport(cfg, opts)
	if err != nil {
		return err
	}

	// Bounds connect, write and settle together
	ctx, cancel := context.WithTimeout(ctx, 2*opts.Timeout+opts.SettleDelay)
	defer cancel()

	start := time.Now()
	err = transport.Send(ctx, data)
	s.metrics.PrintDuration.WithLabelValues(transport.Name()).Observe(time.Since(start).Seconds())
	return err
}

// Wait blocks until all background print jobs have finished
func (s *PrinterService) Wait() {
	s.wg.Wait()
}
