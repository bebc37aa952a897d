package printer

import (
	"bufio"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// ResolveSPPChannel asks the local SDP tooling for the RFCOMM channel on which
// the device offers the Serial Port Profile
func ResolveSPPChannel(ctx context.Context, address string) (int, error) {
	out, err := exec.CommandContext(ctx, "sdptool", "search", "--bdaddr", address, shortUUID(SPPUUID)).Output()
	if err != nil {
		return 0, fmt.Errorf("sdptool search %s: %w", address, err)
	}
	return ParseSDPChannel(string(out), SPPUUID)
}

// shortUUID returns the 16-bit alias of a Bluetooth base UUID, e.g. "0x1101"
func shortUUID(uuid string) string {
	if len(uuid) < 8 {
		return uuid
	}
	return "0x" + strings.ToLower(uuid[4:8])
}

// ParseSDPChannel extracts the RFCOMM channel of the first service record whose
// class list names uuid, from sdptool output
func ParseSDPChannel(output, uuid string) (int, error) {
	short := "(" + shortUUID(uuid) + ")"
	full := strings.ToLower(uuid)

	matching := false
	scanner := bufio.NewScanner(strings.NewReader(output))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		lower := strings.ToLower(line)
		switch {
		case strings.HasPrefix(line, "Service RecHandle:"):
			matching = false
		case strings.Contains(lower, short) || strings.Contains(lower, full):
			matching = true
		case matching && strings.HasPrefix(line, "Channel:"):
			ch, err := strconv.Atoi(strings.TrimSpace(strings.TrimPrefix(line, "Channel:")))
			if err != nil {
				return 0, fmt.Errorf("invalid channel line %q", line)
			}
			return ch, nil
		}
	}
	return 0, fmt.Errorf("no service %s found", uuid)
}
