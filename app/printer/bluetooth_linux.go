//go:build linux

package printer

import (
	"context"
	"fmt"
	"os"
	"time"

	"golang.org/x/sys/unix"
)

const pollInterval = 100 * time.Millisecond

func sendRFCOMM(ctx context.Context, addr [6]byte, channel uint8, data []byte, opts Options) error {
	fd, err := unix.Socket(unix.AF_BLUETOOTH, unix.SOCK_STREAM|unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC, unix.BTPROTO_RFCOMM)
	if err != nil {
		return &Error{Kind: KindConnection, Op: "socket", Err: err}
	}

	// bdaddr_t is little-endian
	sa := &unix.SockaddrRFCOMM{Channel: channel}
	for i := range addr {
		sa.Addr[len(addr)-1-i] = addr[i]
	}

	target := fmt.Sprintf("%X:%d", addr, channel)
	if err := connectWithTimeout(ctx, fd, sa, opts.Timeout); err != nil {
		unix.Close(fd)
		return classify(KindConnection, "connect "+target, err)
	}

	// A non-blocking descriptor is registered with the runtime poller, so write
	// deadlines apply.
	f := os.NewFile(uintptr(fd), "rfcomm:"+target)
	defer f.Close()

	return writeAndSettle(ctx, f, data, opts)
}

func connectWithTimeout(ctx context.Context, fd int, sa unix.Sockaddr, timeout time.Duration) error {
	err := unix.Connect(fd, sa)
	if err == nil {
		return nil
	}
	if err != unix.EINPROGRESS && err != unix.EAGAIN {
		return err
	}

	deadline := time.Now().Add(timeout)
	for {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		left := time.Until(deadline)
		if left <= 0 {
			return context.DeadlineExceeded
		}
		if left > pollInterval {
			left = pollInterval
		}

		fds := []unix.PollFd{{Fd: int32(fd), Events: unix.POLLOUT}}
		n, err := unix.Poll(fds, int(left/time.Millisecond)+1)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return err
		}
		if n == 0 {
			continue
		}

		soErr, err := unix.GetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_ERROR)
		if err != nil {
			return err
		}
		if soErr != 0 {
			return unix.Errno(soErr)
		}
		return nil
	}
}
