//go:build !linux

package printer

import (
	"context"
	"errors"
	"runtime"
)

func sendRFCOMM(ctx context.Context, addr [6]byte, channel uint8, data []byte, opts Options) error {
	return &Error{
		Kind: KindConnection,
		Op:   "connect",
		Err:  errors.New("bluetooth RFCOMM is not supported on " + runtime.GOOS),
	}
}
