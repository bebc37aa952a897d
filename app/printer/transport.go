package printer

import (
	"context"
	"fmt"
	"io"
	"net"
	"strings"
	"time"
)

// SPPUUID is the Serial Port Profile service class used by Bluetooth receipt printers
const SPPUUID = "00001101-0000-1000-8000-00805F9B34FB"

// Default tunables, overridable per printer configuration
const (
	DefaultSettleDelay = 500 * time.Millisecond
	DefaultTimeout     = 5 * time.Second
)

// Transport delivers one complete ESC/POS byte stream to a printer.
// Each call opens a fresh connection and closes it before returning.
type Transport interface {
	Send(ctx context.Context, data []byte) error
	Name() string
}

// Options are the timing parameters shared by all transports
type Options struct {
	// SettleDelay is waited after the last write, before closing, so the printer
	// drains its input buffer.
	SettleDelay time.Duration
	// Timeout bounds connect and write each.
	Timeout time.Duration
}

func (o Options) normalize() Options {
	if o.SettleDelay < 0 {
		o.SettleDelay = 0
	}
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	return o
}

// TCPTransport prints over a raw TCP socket (JetDirect, port 9100)
type TCPTransport struct {
	Host string
	Port int
	Options
}

// NewTCPTransport creates a TCP transport for host:port
func NewTCPTransport(host string, port int, opts Options) *TCPTransport {
	return &TCPTransport{Host: strings.TrimSpace(host), Port: port, Options: opts.normalize()}
}

func (t *TCPTransport) Name() string {
	return "wifi"
}

// Address returns the dial address
func (t *TCPTransport) Address() string {
	return net.JoinHostPort(t.Host, fmt.Sprint(t.Port))
}

func (t *TCPTransport) Send(ctx context.Context, data []byte) error {
	if t.Host == "" {
		return notConfigured("no printer host set")
	}
	if t.Port <= 0 || t.Port > 65535 {
		return notConfigured("invalid printer port %d", t.Port)
	}
	opts := t.Options.normalize()

	dialer := net.Dialer{Timeout: opts.Timeout}
	conn, err := dialer.DialContext(ctx, "tcp", t.Address())
	if err != nil {
		return classify(KindConnection, "connect "+t.Address(), err)
	}
	defer conn.Close()

	return writeAndSettle(ctx, conn, data, opts)
}

// deadlineWriter is implemented by net.Conn and *os.File
type deadlineWriter interface {
	io.Writer
	SetWriteDeadline(t time.Time) error
}

// writeAndSettle writes the whole stream under the write deadline then waits the
// settle delay. Cancelling ctx interrupts the settle wait only.
func writeAndSettle(ctx context.Context, w deadlineWriter, data []byte, opts Options) error {
	deadline := time.Now().Add(opts.Timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	// Not all file descriptors support deadlines; the write still proceeds.
	_ = w.SetWriteDeadline(deadline)

	for written := 0; written < len(data); {
		n, err := w.Write(data[written:])
		if err != nil {
			return classify(KindIO, "write", err)
		}
		written += n
	}

	if opts.SettleDelay > 0 {
		timer := time.NewTimer(opts.SettleDelay)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
		}
	}
	return nil
}
