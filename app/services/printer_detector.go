package services

import (
	"bufio"
	"context"
	"fmt"
	"os/exec"
	"runtime"
	"sort"
	"strings"
	"time"

	"EOrders/app/models"
	"EOrders/app/printer"

	"github.com/grandcat/zeroconf"
)

// RawPrintService is the mDNS service type of raw port 9100 printers
const RawPrintService = "_pdl-datastream._tcp"

// DetectedPrinter represents a printer found on the network or paired over Bluetooth
type DetectedPrinter struct {
	Name    string             `json:"name"`
	Mode    models.PrinterMode `json:"type"`
	Address string             `json:"address"`
	Port    int                `json:"port,omitempty"`
	Model   string             `json:"model,omitempty"`
}

// Config returns a printer configuration targeting this printer
func (p DetectedPrinter) Config() models.PrinterConfig {
	cfg := models.DefaultPrinterConfig()
	cfg.Mode = p.Mode
	switch p.Mode {
	case models.PrinterModeBluetooth:
		cfg.BluetoothAddress = p.Address
		cfg.BluetoothName = p.Name
	case models.PrinterModeWiFi:
		cfg.WiFiHost = p.Address
		cfg.WiFiPort = p.Port
	}
	return cfg.Normalize()
}

// DiscoverNetworkPrinters browses mDNS for raw print services until ctx is done
func DiscoverNetworkPrinters(ctx context.Context) ([]DetectedPrinter, error) {
	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create mDNS resolver: %w", err)
	}

	entries := make(chan *zeroconf.ServiceEntry)
	found := make(chan []DetectedPrinter, 1)
	go func() {
		seen := map[string]bool{}
		var printers []DetectedPrinter
		for entry := range entries {
			if p, ok := printerFromEntry(entry); ok && !seen[p.Address] {
				seen[p.Address] = true
				printers = append(printers, p)
			}
		}
		found <- printers
	}()

	if err := resolver.Browse(ctx, RawPrintService, "local.", entries); err != nil {
		close(entries)
		return nil, fmt.Errorf("failed to browse for printers: %w", err)
	}
	// entries is closed by the resolver once ctx is done
	printers := <-found
	sort.Slice(printers, func(i, j int) bool { return printers[i].Name < printers[j].Name })
	return printers, nil
}

func printerFromEntry(entry *zeroconf.ServiceEntry) (DetectedPrinter, bool) {
	if entry == nil || len(entry.AddrIPv4) == 0 {
		return DetectedPrinter{}, false
	}
	p := DetectedPrinter{
		Name:    entry.Instance,
		Mode:    models.PrinterModeWiFi,
		Address: entry.AddrIPv4[0].String(),
		Port:    entry.Port,
	}
	for _, txt := range entry.Text {
		if strings.HasPrefix(txt, "ty=") {
			p.Model = strings.TrimPrefix(txt, "ty=")
		}
	}
	return p, true
}

// DetectBluetoothPrinters lists the paired Bluetooth devices (Linux only)
func DetectBluetoothPrinters(ctx context.Context) ([]DetectedPrinter, error) {
	if runtime.GOOS != "linux" {
		return nil, fmt.Errorf("bluetooth discovery unsupported on %s", runtime.GOOS)
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	output, err := exec.CommandContext(ctx, "bluetoothctl", "devices", "Paired").Output()
	if err != nil {
		return nil, fmt.Errorf("failed to list paired devices: %w", err)
	}
	return parseBluetoothctlDevices(string(output)), nil
}

// parseBluetoothctlDevices parses lines of the form "Device AA:BB:CC:DD:EE:FF Name"
func parseBluetoothctlDevices(output string) []DetectedPrinter {
	printers := []DetectedPrinter{}
	scanner := bufio.NewScanner(strings.NewReader(output))
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 2 || fields[0] != "Device" {
			continue
		}
		if _, err := printer.ParseBluetoothAddress(fields[1]); err != nil {
			continue
		}
		name := strings.Join(fields[2:], " ")
		if name == "" {
			name = fields[1]
		}
		printers = append(printers, DetectedPrinter{
			Name:    name,
			Mode:    models.PrinterModeBluetooth,
			Address: strings.ToUpper(fields[1]),
		})
	}
	return printers
}
