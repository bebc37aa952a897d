package printer

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DefaultRFCOMMChannel is used when the SPP channel cannot be looked up
const DefaultRFCOMMChannel = 1

// ChannelResolver finds the RFCOMM channel of the Serial Port Profile on a device
type ChannelResolver func(ctx context.Context, address string) (int, error)

// BluetoothTransport prints over an RFCOMM (Serial Port Profile) link.
// A zero Channel is resolved through Resolve before each connection.
type BluetoothTransport struct {
	Address string
	Channel int
	Resolve ChannelResolver
	Options
}

// NewBluetoothTransport creates a transport for a paired printer MAC address.
// Pass channel 0 to look up the SPP channel over SDP.
func NewBluetoothTransport(address string, channel int, opts Options) *BluetoothTransport {
	if channel < 0 {
		channel = 0
	}
	return &BluetoothTransport{
		Address: strings.ToUpper(strings.TrimSpace(address)),
		Channel: channel,
		Resolve: ResolveSPPChannel,
		Options: opts.normalize(),
	}
}

func (t *BluetoothTransport) Name() string {
	return "bluetooth"
}

func (t *BluetoothTransport) Send(ctx context.Context, data []byte) error {
	if t.Address == "" {
		return notConfigured("no bluetooth printer paired")
	}
	addr, err := ParseBluetoothAddress(t.Address)
	if err != nil {
		return &Error{Kind: KindNotConfigured, Op: "configure", Err: err}
	}
	if t.Channel > 30 {
		return notConfigured("invalid RFCOMM channel %d", t.Channel)
	}
	opts := t.Options.normalize()
	return sendRFCOMM(ctx, addr, uint8(t.channel(ctx, opts.Timeout)), data, opts)
}

// channel returns the configured channel, else the SPP channel advertised by the
// device, else DefaultRFCOMMChannel
func (t *BluetoothTransport) channel(ctx context.Context, timeout time.Duration) int {
	if t.Channel > 0 {
		return t.Channel
	}
	if t.Resolve != nil {
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		if ch, err := t.Resolve(ctx, t.Address); err == nil && ch > 0 && ch <= 30 {
			return ch
		}
	}
	return DefaultRFCOMMChannel
}

// ParseBluetoothAddress parses "AA:BB:CC:DD:EE:FF" into its six bytes, most
// significant first
func ParseBluetoothAddress(s string) ([6]byte, error) {
	var addr [6]byte
	parts := strings.Split(s, ":")
	if len(parts) != 6 {
		return addr, fmt.Errorf("invalid bluetooth address %q", s)
	}
	for i, p := range parts {
		if len(p) != 2 {
			return addr, fmt.Errorf("invalid bluetooth address %q", s)
		}
		b, err := strconv.ParseUint(p, 16, 8)
		if err != nil {
			return addr, fmt.Errorf("invalid bluetooth address %q: %w", s, err)
		}
		addr[i] = byte(b)
	}
	return addr, nil
}
