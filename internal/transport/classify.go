package transport

import (
	"context"
	"errors"
	"net"
	"syscall"
)

// IsConnectivityError reports whether err means the service could not be
// reached in time: connection refused, a network timeout, or an expired
// deadline. Other failures, including non-2xx responses, return false.
func IsConnectivityError(err error) bool {
	if err == nil {
		return false
	}
	if IsStatusError(err) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	if errors.Is(err, syscall.ECONNREFUSED) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return false
}
