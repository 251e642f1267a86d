package crawler

import (
	"context"
	"errors"
	"net"
	"net/url"
	"strings"
	"syscall"

	"github.com/alvmarrod/product-weaver/internal/storage"
	"github.com/gocolly/colly/v2"
)

// Classify converts a failed fetch into the record for the URL that was
// originally requested. Listing and detail failures are treated alike.
func Classify(failure *FetchError, originalURL string) storage.ProductRecord {
	if failure == nil {
		return storage.FailedRecord(originalURL, string(KindUnknown))
	}
	return storage.FailedRecord(originalURL, failure.Error())
}

// classifyError maps a transport error to a failure kind
func classifyError(err error) FailureKind {
	if err == nil {
		return KindUnknown
	}

	if errors.Is(err, colly.ErrRobotsTxtBlocked) {
		return KindRobotsDisallowed
	}
	if errors.Is(err, colly.ErrMissingURL) {
		return KindInvalidURL
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, syscall.ETIMEDOUT) {
		return KindTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return KindTimeout
	}

	if errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNABORTED) || errors.Is(err, syscall.EHOSTUNREACH) ||
		errors.Is(err, syscall.ENETUNREACH) {
		return KindConnectionFailure
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return KindConnectionFailure
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return KindConnectionFailure
	}

	// Client.Timeout errors are not always wrapped as net.Error
	msg := err.Error()
	if strings.Contains(msg, "Client.Timeout exceeded") || strings.Contains(msg, "timeout awaiting") {
		return KindTimeout
	}
	if strings.Contains(msg, "connection reset") || strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "EOF") {
		return KindConnectionFailure
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Op == "parse" {
		return KindInvalidURL
	}

	return KindUnknown
}
