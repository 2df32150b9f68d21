package http

import (
	nethttp "net/http"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/rs/zerolog"

	"github.com/rescale/pathbrowser/internal/constants"
	"github.com/rescale/pathbrowser/internal/logging"
)

// retryLogger implements the retryablehttp.LeveledLogger interface on top of
// the structured logger. Info and Debug are dropped; retries are only
// interesting when they fail.
type retryLogger struct {
	logger *logging.Logger
}

func (l *retryLogger) Error(msg string, keysAndValues ...interface{}) {
	withFields(l.logger.Error(), keysAndValues).Msg(msg)
}

func (l *retryLogger) Info(msg string, keysAndValues ...interface{}) {}

func (l *retryLogger) Debug(msg string, keysAndValues ...interface{}) {}

func (l *retryLogger) Warn(msg string, keysAndValues ...interface{}) {
	withFields(l.logger.Warn(), keysAndValues).Msg(msg)
}

func withFields(e *zerolog.Event, keysAndValues []interface{}) *zerolog.Event {
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		key, ok := keysAndValues[i].(string)
		if !ok {
			continue
		}
		e = e.Interface(key, keysAndValues[i+1])
	}
	return e
}

// NewRetryingClient wraps base in retryablehttp so idempotent store requests
// survive throttling and transient 5xx responses, and returns the standard
// client view of it for SDKs that take a plain *http.Client.
func NewRetryingClient(base *nethttp.Client, logger *logging.Logger) *nethttp.Client {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	retryClient := retryablehttp.NewClient()
	retryClient.HTTPClient = base
	retryClient.RetryMax = constants.MaxRetries
	retryClient.RetryWaitMin = constants.RetryInitialDelay
	retryClient.RetryWaitMax = constants.RetryMaxDelay
	retryClient.Logger = &retryLogger{logger: logger}
	return retryClient.StandardClient()
}
