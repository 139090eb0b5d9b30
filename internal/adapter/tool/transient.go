package tool

import (
	"context"
	"errors"
	"net"
	"strings"

	"content-crew/internal/domain"
)

// permanent errors are never worth a retry, whatever their text says.
var permanent = []error{
	domain.ErrImageJobFailed,
	domain.ErrPathOutsideSandbox,
	domain.ErrSSRFBlocked,
	domain.ErrAuthInvalid,
	context.Canceled,
}

// transientText matches failures from image hosts, SearXNG and WaveSpeed
// that surface only as message text.
var transientText = []string{
	"connection refused",
	"connection reset",
	"no such host",
	"timeout",
	"temporarily unavailable",
	"service unavailable",
	"bad gateway",
	"too many requests",
	"try again",
}

// transient reports whether repeating the same tool call could succeed.
func transient(err error) bool {
	if err == nil {
		return false
	}
	for _, p := range permanent {
		if errors.Is(err, p) {
			return false
		}
	}
	if domain.IsRetryableError(err) || errors.Is(err, domain.ErrTimeout) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, s := range transientText {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}
