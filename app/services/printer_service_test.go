package services

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net"
	"sync"
	"testing"
	"time"

	"EOrders/app/models"
	"EOrders/app/printer"
	"EOrders/app/receipt"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"
)

type memPrinterConfigs struct {
	mu  sync.Mutex
	cfg models.PrinterConfig
}

func (m *memPrinterConfigs) LoadPrinterConfig() models.PrinterConfig {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cfg.Normalize()
}

func (m *memPrinterConfigs) SavePrinterConfig(cfg models.PrinterConfig) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cfg = cfg
	return nil
}

type recordingTransport struct {
	mu    sync.Mutex
	sent  [][]byte
	err   error
	panic bool
}

func (r *recordingTransport) Name() string { return "fake" }

func (r *recordingTransport) Send(ctx context.Context, data []byte) error {
	if r.panic {
		panic("printer exploded")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, append([]byte(nil), data...))
	return r.err
}

func (r *recordingTransport) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sent)
}

func failingFactory(cfg models.PrinterConfig, opts printer.Options) (printer.Transport, error) {
	return &recordingTransport{err: &printer.Error{Kind: printer.KindConnection, Op: "dial", Err: errors.New("connection refused")}}, nil
}

func newPrinterFixture(t *testing.T, cfg models.PrinterConfig) (*PrinterService, *recordingTransport, *Metrics) {
	t.Helper()
	transport := &recordingTransport{}
	metrics := NewMetrics()
	svc := NewPrinterService(&memPrinterConfigs{cfg: cfg}, PrinterDefaults{Codepage: "windows-1253"}, zaptest.NewLogger(t), metrics)
	svc.SetTransportFactory(func(models.PrinterConfig, printer.Options) (printer.Transport, error) {
		return transport, nil
	})
	svc.SetClock(func() time.Time { return time.Date(2026, 3, 14, 22, 0, 0, 0, time.UTC) })
	return svc, transport, metrics
}

var wifiConfig = models.PrinterConfig{Mode: models.PrinterModeWiFi, WiFiHost: "192.168.1.50", WiFiPort: 9100}

func TestDispatchWithoutPrinterFailsNotConfigured(t *testing.T) {
	svc, transport, metrics := newPrinterFixture(t, models.DefaultPrinterConfig())
	core, logs := observer.New(zapcore.InfoLevel)
	svc.log = zap.New(core)

	svc.PrintOrder("Τραπέζι 1", "", []models.OrderItem{line(espresso(), 1)})
	svc.PrintNewItems("Τραπέζι 1", "", []models.OrderItem{line(frappe(), 1)})
	svc.Wait()

	assert.Equal(t, 0, transport.count())
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.PrintJobs.WithLabelValues(string(JobOrder), "none", resultFailed)))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.PrintJobs.WithLabelValues(string(JobNewItems), "none", resultFailed)))

	failures := logs.FilterMessage("Print failed").All()
	require.Len(t, failures, 2)
	for _, entry := range failures {
		assert.Equal(t, zapcore.WarnLevel, entry.Level)
		assert.Equal(t, "not_configured", entry.ContextMap()["kind"])
	}
}

func TestDispatchSendsComposedReceipt(t *testing.T) {
	svc, transport, metrics := newPrinterFixture(t, wifiConfig)

	svc.PrintNewItems("Τραπέζι 3", "Maria", []models.OrderItem{line(frappe(), 2)})
	svc.Wait()

	require.Equal(t, 1, transport.count())
	cp := receipt.DefaultCodepage()
	data := transport.sent[0]
	assert.True(t, bytes.HasPrefix(data, []byte{0x1B, 0x40, 0x1B, 0x74, 47}))
	assert.True(t, bytes.Contains(data, cp.Encode("2x Frappé")))
	assert.True(t, bytes.Contains(data, cp.Encode(receipt.DefaultLabels().NewItemsTitle)))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.PrintJobs.WithLabelValues(string(JobNewItems), "wifi", resultOK)))
}

func TestDispatchSwallowsFailures(t *testing.T) {
	svc, transport, metrics := newPrinterFixture(t, wifiConfig)
	transport.err = &printer.Error{Kind: printer.KindTimeout, Op: "write", Err: errors.New("i/o timeout")}

	svc.Dispatch(JobOrder, []byte("raw"))
	svc.Wait()

	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.PrintJobs.WithLabelValues(string(JobOrder), "wifi", resultFailed)))
}

func TestDispatchRecoversPanics(t *testing.T) {
	svc, transport, metrics := newPrinterFixture(t, wifiConfig)
	transport.panic = true

	svc.PrintShiftSummary(models.ShiftSummary{TotalRevenue: decimal.Zero, AverageOrder: decimal.Zero})
	svc.Wait()

	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.PrintJobs.WithLabelValues(string(JobShiftSummary), "unknown", resultPanic)))
}

func TestDispatchCopiesData(t *testing.T) {
	svc, transport, _ := newPrinterFixture(t, wifiConfig)
	data := []byte("ticket")

	svc.Dispatch(JobTest, data)
	data[0] = 'X'
	svc.Wait()

	require.Equal(t, 1, transport.count())
	assert.Equal(t, "ticket", string(transport.sent[0]))
}

func TestPrintBill(t *testing.T) {
	svc, transport, _ := newPrinterFixture(t, wifiConfig)

	svc.PrintBill(models.CompletedOrder{
		ID:            "order-1",
		TableName:     "Τραπέζι 1",
		Items:         []models.OrderItem{line(espresso(), 2)},
		Total:         price("5.00"),
		PaymentMethod: models.PaymentCash,
	})
	svc.Wait()

	require.Equal(t, 1, transport.count())
	assert.True(t, bytes.Contains(transport.sent[0], []byte{0x1D, 0x76, 0x30, 0x00}), "bill carries the QR raster")
}

func TestTestPrintSurfacesErrors(t *testing.T) {
	svc, transport, metrics := newPrinterFixture(t, wifiConfig)
	transport.err = &printer.Error{Kind: printer.KindConnection, Op: "dial", Err: errors.New("no route to host")}

	result := svc.TestPrint(context.Background())
	assert.False(t, result.OK)
	assert.Equal(t, "connection_error", result.Kind)
	assert.Contains(t, result.Message, "no route to host")
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.PrintJobs.WithLabelValues(string(JobTest), "wifi", resultFailed)))
}

func TestTestPrintWithoutPrinter(t *testing.T) {
	metrics := NewMetrics()
	svc := NewPrinterService(&memPrinterConfigs{cfg: models.DefaultPrinterConfig()}, PrinterDefaults{}, zaptest.NewLogger(t), metrics)

	result := svc.TestPrint(context.Background())
	assert.False(t, result.OK)
	assert.Equal(t, "not_configured", result.Kind)
}

func TestTestPrintOverTCP(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	received := make(chan []byte, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		data, _ := io.ReadAll(conn)
		received <- data
	}()

	addr := ln.Addr().(*net.TCPAddr)
	cfg := models.PrinterConfig{Mode: models.PrinterModeWiFi, WiFiHost: "127.0.0.1", WiFiPort: addr.Port, SettleDelayMs: 10}
	svc := NewPrinterService(&memPrinterConfigs{cfg: cfg}, PrinterDefaults{}, zaptest.NewLogger(t), NewMetrics())

	result := svc.TestPrint(context.Background())
	require.True(t, result.OK, result.Message)

	select {
	case data := <-received:
		cp := receipt.DefaultCodepage()
		assert.True(t, bytes.Contains(data, cp.Encode(receipt.DefaultLabels().TestStatus)))
	case <-time.After(2 * time.Second):
		t.Fatal("printer did not receive the test receipt")
	}
}

func TestSavePrinterConfigValidation(t *testing.T) {
	configs := &memPrinterConfigs{cfg: models.DefaultPrinterConfig()}
	svc := NewPrinterService(configs, PrinterDefaults{}, zaptest.NewLogger(t), NewMetrics())

	assert.Error(t, svc.SavePrinterConfig(models.PrinterConfig{Mode: models.PrinterModeBluetooth, BluetoothAddress: "not-an-address"}))
	assert.Error(t, svc.SavePrinterConfig(models.PrinterConfig{Mode: models.PrinterModeWiFi}))
	assert.Error(t, svc.SavePrinterConfig(models.PrinterConfig{Mode: models.PrinterModeWiFi, WiFiHost: "10.0.0.2", WiFiPort: 70000}))
	assert.Error(t, svc.SavePrinterConfig(models.PrinterConfig{Mode: models.PrinterModeWiFi, WiFiHost: "10.0.0.2", Codepage: "utf-8"}))
	assert.Error(t, svc.SavePrinterConfig(models.PrinterConfig{Mode: "usb"}))
	assert.Equal(t, models.PrinterModeNone, svc.GetPrinterConfig().Mode)

	require.NoError(t, svc.SavePrinterConfig(models.PrinterConfig{Mode: models.PrinterModeWiFi, WiFiHost: "10.0.0.2"}))
	saved := svc.GetPrinterConfig()
	assert.Equal(t, models.PrinterModeWiFi, saved.Mode)
	assert.Equal(t, models.DefaultPrinterPort, saved.WiFiPort)

	require.NoError(t, svc.SavePrinterConfig(models.PrinterConfig{Mode: models.PrinterModeBluetooth, BluetoothAddress: "00:11:22:33:44:55", BluetoothName: "PT-210"}))
	assert.Equal(t, "PT-210 (00:11:22:33:44:55)", svc.GetPrinterConfig().Target())
}

func TestDefaultTransport(t *testing.T) {
	_, err := DefaultTransport(models.DefaultPrinterConfig(), printer.Options{})
	assert.ErrorIs(t, err, printer.ErrNotConfigured)

	transport, err := DefaultTransport(wifiConfig, printer.Options{})
	require.NoError(t, err)
	assert.Equal(t, "wifi", transport.Name())

	transport, err = DefaultTransport(models.PrinterConfig{Mode: models.PrinterModeBluetooth, BluetoothAddress: "00:11:22:33:44:55"}, printer.Options{})
	require.NoError(t, err)
	assert.Equal(t, "bluetooth", transport.Name())
}

func TestComposerUsesConfiguredCodepage(t *testing.T) {
	svc, _, _ := newPrinterFixture(t, models.PrinterConfig{Mode: models.PrinterModeWiFi, WiFiHost: "h", Codepage: "cp858"})
	assert.Equal(t, "cp858", svc.Composer().Codepage.Name)

	svc, _, _ = newPrinterFixture(t, models.PrinterConfig{Mode: models.PrinterModeWiFi, WiFiHost: "h", Codepage: "bogus"})
	assert.Equal(t, receipt.DefaultCodepageName, svc.Composer().Codepage.Name)
}
