package util

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/hashicorp/go-cleanhttp"
	"github.com/hashicorp/go-retryablehttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// retrySlog adapts a slog.Logger to retryablehttp.LeveledLogger.
type retrySlog struct {
	inner *slog.Logger
}

// an ERROR from the retry client is usually followed by a retry, so it is
// logged as WARN
func (l retrySlog) Error(msg string, keysAndValues ...any) {
	l.inner.Warn(msg, keysAndValues...)
}

func (l retrySlog) Warn(msg string, keysAndValues ...any) {
	l.inner.Warn(msg, keysAndValues...)
}

func (l retrySlog) Info(msg string, keysAndValues ...any) {
	l.inner.Info(msg, keysAndValues...)
}

// DEBUG lines include the full request URL, so they stay at DEBUG
func (l retrySlog) Debug(msg string, keysAndValues ...any) {
	l.inner.Debug(msg, keysAndValues...)
}

// RobustHTTPClient returns a stdlib *http.Client for calling upstream APIs,
// with hashicorp retryablehttp logic inside.
//
// Connection errors, 5xx (except 501) and 429 responses are retried up to
// retryMax times, respecting 'Retry-After'. The timeout covers the whole retry
// sequence. Requests are traced with otelhttp.
func RobustHTTPClient(logger *slog.Logger, retryMax int, timeout time.Duration) *http.Client {
	if logger == nil {
		logger = slog.Default()
	}
	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = retryMax
	retryClient.RetryWaitMin = 1 * time.Second
	retryClient.RetryWaitMax = 10 * time.Second
	retryClient.HTTPClient.Transport = otelhttp.NewTransport(cleanhttp.DefaultPooledTransport())
	retryClient.Logger = retryablehttp.LeveledLogger(retrySlog{inner: logger})

	client := retryClient.StandardClient()
	client.Timeout = timeout
	return client
}
