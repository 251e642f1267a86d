package crawler

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"syscall"
	"testing"

	"github.com/gocolly/colly/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestClassifyErrorKinds(t *testing.T) {
	refused := &url.Error{Op: "Get", URL: "http://x", Err: &net.OpError{
		Op: "dial", Net: "tcp", Err: os.NewSyscallError("connect", syscall.ECONNREFUSED),
	}}

	tests := []struct {
		name string
		err  error
		want FailureKind
	}{
		{"deadline", fmt.Errorf("get: %w", context.DeadlineExceeded), KindTimeout},
		{"net timeout", &url.Error{Op: "Get", URL: "http://x", Err: timeoutErr{}}, KindTimeout},
		{"client timeout text", errors.New(`Get "http://x": net/http: request canceled (Client.Timeout exceeded while awaiting headers)`), KindTimeout},
		{"refused", refused, KindConnectionFailure},
		{"reset", fmt.Errorf("read: %w", syscall.ECONNRESET), KindConnectionFailure},
		{"dns", &net.DNSError{Err: "no such host", Name: "nope.invalid"}, KindConnectionFailure},
		{"robots", colly.ErrRobotsTxtBlocked, KindRobotsDisallowed},
		{"missing url", colly.ErrMissingURL, KindInvalidURL},
		{"parse", &url.Error{Op: "parse", URL: "::", Err: errors.New("missing protocol scheme")}, KindInvalidURL},
		{"other", errors.New("something odd"), KindUnknown},
		{"nil", nil, KindUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, classifyError(tt.err))
		})
	}
}

func TestClassifyBuildsFailureRecord(t *testing.T) {
	failure := &FetchError{
		Kind:       KindHTTPStatus,
		URL:        "https://store.example/products/gone",
		StatusCode: 404,
		Err:        errors.New("404 Not Found"),
	}

	record := Classify(failure, "https://store.example/products/gone")
	assert.Equal(t, "https://store.example/products/gone", record.URL)
	assert.Equal(t, "http status: 404 Not Found", record.Error)
	assert.Empty(t, record.ProductName)
	require.NoError(t, record.Validate())
}

func TestClassifyNilFailure(t *testing.T) {
	record := Classify(nil, "https://store.example/")
	require.NoError(t, record.Validate())
	assert.Equal(t, string(KindUnknown), record.Error)
}

func TestFetchErrorUnwraps(t *testing.T) {
	err := &FetchError{Kind: KindTimeout, Err: fmt.Errorf("get: %w", context.DeadlineExceeded)}
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, "timeout", (&FetchError{Kind: KindTimeout}).Error())
}
