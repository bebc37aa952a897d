package services

import (
	"net"
	"testing"

	"EOrders/app/models"

	"github.com/grandcat/zeroconf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseBluetoothctlDevices(t *testing.T) {
	output := "Device 00:11:22:33:44:55 PT-210 Printer\n" +
		"Device aa:bb:cc:dd:ee:ff\n" +
		"Controller 11:22:33:44:55:66 laptop\n" +
		"Device broken Name\n"

	printers := parseBluetoothctlDevices(output)
	require.Len(t, printers, 2)
	assert.Equal(t, DetectedPrinter{Name: "PT-210 Printer", Mode: models.PrinterModeBluetooth, Address: "00:11:22:33:44:55"}, printers[0])
	assert.Equal(t, "AA:BB:CC:DD:EE:FF", printers[1].Address)
	assert.Equal(t, "aa:bb:cc:dd:ee:ff", printers[1].Name)
}

func TestPrinterFromEntry(t *testing.T) {
	entry := zeroconf.NewServiceEntry("EPSON TM-T20", RawPrintService, "local.")
	entry.Port = 9100
	entry.AddrIPv4 = []net.IP{net.ParseIP("192.168.1.50")}
	entry.Text = []string{"txtvers=1", "ty=EPSON TM-T20II"}

	p, ok := printerFromEntry(entry)
	require.True(t, ok)
	assert.Equal(t, "192.168.1.50", p.Address)
	assert.Equal(t, 9100, p.Port)
	assert.Equal(t, "EPSON TM-T20II", p.Model)

	entry.AddrIPv4 = nil
	_, ok = printerFromEntry(entry)
	assert.False(t, ok)
}

func TestDetectedPrinterConfig(t *testing.T) {
	cfg := DetectedPrinter{Name: "Bar", Mode: models.PrinterModeWiFi, Address: "10.0.0.9", Port: 9100}.Config()
	assert.Equal(t, models.PrinterModeWiFi, cfg.Mode)
	assert.Equal(t, "10.0.0.9:9100", cfg.Target())

	cfg = DetectedPrinter{Name: "PT-210", Mode: models.PrinterModeBluetooth, Address: "00:11:22:33:44:55"}.Config()
	assert.Equal(t, "00:11:22:33:44:55", cfg.BluetoothAddress)
	assert.Equal(t, "PT-210", cfg.BluetoothName)
}
