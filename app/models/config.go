package models

import (
	"fmt"
	"time"
)

// PrinterMode selects the active printer transport
type PrinterMode string

const (
	PrinterModeNone      PrinterMode = "none"
	PrinterModeBluetooth PrinterMode = "bluetooth"
	PrinterModeWiFi      PrinterMode = "wifi"
)

// DefaultPrinterPort is the conventional raw-print (JetDirect) port
const DefaultPrinterPort = 9100

// PrinterConfig holds the receipt printer settings. Exactly one mode is active.
type PrinterConfig struct {
	Mode             PrinterMode `json:"type"`
	BluetoothAddress string      `json:"bluetooth_address"`
	BluetoothName    string      `json:"bluetooth_name"`
	BluetoothChannel int         `json:"bluetooth_channel,omitempty"` // RFCOMM channel, 0 = SPP lookup
	WiFiHost         string      `json:"wifi_ip"`
	WiFiPort         int         `json:"wifi_port"`
	Codepage         string      `json:"codepage,omitempty"`        // empty = application default
	SettleDelayMs    int         `json:"settle_delay_ms,omitempty"` // 0 = application default
	TimeoutMs        int         `json:"timeout_ms,omitempty"`      // 0 = application default
	PrintBill        bool        `json:"print_bill"`                // print a bill when a table closes
}

// DefaultPrinterConfig returns the configuration used when nothing is stored
func DefaultPrinterConfig() PrinterConfig {
	return PrinterConfig{
		Mode:     PrinterModeNone,
		WiFiPort: DefaultPrinterPort,
	}
}

// Normalize fills in defaults for unset fields
func (c PrinterConfig) Normalize() PrinterConfig {
	if c.Mode == "" {
		c.Mode = PrinterModeNone
	}
	if c.WiFiPort <= 0 {
		c.WiFiPort = DefaultPrinterPort
	}
	if c.BluetoothChannel < 0 {
		c.BluetoothChannel = 0
	}
	return c
}

// Target returns a printable description of the configured destination
func (c PrinterConfig) Target() string {
	switch c.Mode {
	case PrinterModeBluetooth:
		if c.BluetoothName != "" {
			return fmt.Sprintf("%s (%s)", c.BluetoothName, c.BluetoothAddress)
		}
		return c.BluetoothAddress
	case PrinterModeWiFi:
		return fmt.Sprintf("%s:%d", c.WiFiHost, c.WiFiPort)
	default:
		return "none"
	}
}

// SettleDelay returns the stored settle delay or the fallback
func (c PrinterConfig) SettleDelay(fallback time.Duration) time.Duration {
	if c.SettleDelayMs > 0 {
		return time.Duration(c.SettleDelayMs) * time.Millisecond
	}
	return fallback
}

// Timeout returns the stored I/O timeout or the fallback
func (c PrinterConfig) Timeout(fallback time.Duration) time.Duration {
	if c.TimeoutMs > 0 {
		return time.Duration(c.TimeoutMs) * time.Millisecond
	}
	return fallback
}
