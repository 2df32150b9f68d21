package http

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net"
	"strings"
	"syscall"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/aws/smithy-go"

	"github.com/rescale/pathbrowser/internal/constants"
	"github.com/rescale/pathbrowser/internal/store"
)

// ErrorType is the retry class of a failed store request.
type ErrorType int

const (
	ErrorTypeSuccess ErrorType = iota
	// ErrorTypeCredential covers rejected or expired credentials (401, 403, bad SAS).
	ErrorTypeCredential
	// ErrorTypeNetwork covers transport failures: resets, refused connections, timeouts.
	ErrorTypeNetwork
	// ErrorTypeRetryable covers server side failures and throttling (429, 5xx).
	ErrorTypeRetryable
	// ErrorTypeFatal is everything else. Unknown errors land here so they never loop.
	ErrorTypeFatal
)

func (t ErrorType) String() string {
	switch t {
	case ErrorTypeSuccess:
		return "success"
	case ErrorTypeCredential:
		return "credential"
	case ErrorTypeNetwork:
		return "network"
	case ErrorTypeRetryable:
		return "retryable"
	case ErrorTypeFatal:
		return "fatal"
	}
	return "unknown"
}

// ErrorTypeName returns the log name of errType.
func ErrorTypeName(errType ErrorType) string { return errType.String() }

// Config holds retry parameters for ExecuteWithRetry
type Config struct {
	// MaxRetries is the total number of attempts, not the number of retries after the first.
	MaxRetries   int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	// CredentialRefresh runs before every attempt. Credential errors are only
	// retried when it is set.
	CredentialRefresh func(context.Context) error
	OnRetry           func(attempt int, err error, errorType ErrorType)
}

// DefaultConfig returns the retry settings used by the cloud stores.
func DefaultConfig() Config {
	return Config{
		MaxRetries:   constants.MaxRetries,
		InitialDelay: constants.RetryInitialDelay,
		MaxDelay:     constants.RetryMaxDelay,
	}
}

// messageMarkers is checked in order against the lowercased error text when
// no structured status is available. The first matching class wins.
var messageMarkers = []struct {
	class   ErrorType
	markers []string
}{
	{ErrorTypeCredential, []string{
		"expired", "invalid token", "403", "unauthorized",
		"authentication failed", "authenticationfailed", "authorization failure",
		"invalid sas", "sas token", "signature not valid", "signaturedoesnotmatch",
	}},
	{ErrorTypeNetwork, []string{
		"connection reset", "connection refused", "broken pipe",
		"tls handshake timeout", "i/o timeout", "eof", "timeout",
	}},
	{ErrorTypeRetryable, []string{
		"requesttimeout", "internalerror", "serviceunavailable", "service unavailable",
		"slowdown", "throttl", "serverbusy", "server busy",
		"operationtimeout", "operation timeout",
		"429", "500", "502", "503", "504",
	}},
}

// retryableCodes are service error codes from S3 and Blob Storage that carry
// no useful HTTP status of their own.
var retryableCodes = map[string]ErrorType{
	"ExpiredToken":          ErrorTypeCredential,
	"InvalidAccessKeyId":    ErrorTypeCredential,
	"SignatureDoesNotMatch": ErrorTypeCredential,
	"AuthenticationFailed":  ErrorTypeCredential,
	"RequestTimeout":        ErrorTypeRetryable,
	"SlowDown":              ErrorTypeRetryable,
	"InternalError":         ErrorTypeRetryable,
	"ServerBusy":            ErrorTypeRetryable,
	"OperationTimedOut":     ErrorTypeRetryable,
}

// ClassifyError determines how ExecuteWithRetry treats err. Store sentinels
// and context errors are decided first, then SDK status codes, then transport
// errors, and finally the error text.
func ClassifyError(err error) ErrorType {
	if err == nil {
		return ErrorTypeSuccess
	}

	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return ErrorTypeFatal
	case errors.Is(err, store.ErrUnauthorized):
		return ErrorTypeCredential
	case errors.Is(err, store.ErrNotFound),
		errors.Is(err, store.ErrAlreadyExists),
		errors.Is(err, store.ErrInvalidDirectory):
		return ErrorTypeFatal
	}

	if class, ok := classifyService(err); ok {
		return class
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ErrorTypeNetwork
	}
	if errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.EPIPE) || errors.Is(err, io.ErrUnexpectedEOF) {
		return ErrorTypeNetwork
	}

	msg := strings.ToLower(err.Error())
	for _, group := range messageMarkers {
		for _, m := range group.markers {
			if strings.Contains(msg, m) {
				return group.class
			}
		}
	}
	return ErrorTypeFatal
}

// classifyService inspects the response errors of the Azure and AWS SDKs.
func classifyService(err error) (ErrorType, bool) {
	var respErr *azcore.ResponseError
	if errors.As(err, &respErr) {
		if class, ok := retryableCodes[respErr.ErrorCode]; ok {
			return class, true
		}
		return classifyStatus(respErr.StatusCode)
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		if class, ok := retryableCodes[apiErr.ErrorCode()]; ok {
			return class, true
		}
	}
	var httpErr interface{ HTTPStatusCode() int }
	if errors.As(err, &httpErr) {
		return classifyStatus(httpErr.HTTPStatusCode())
	}
	return 0, false
}

func classifyStatus(status int) (ErrorType, bool) {
	switch {
	case status == 401 || status == 403:
		return ErrorTypeCredential, true
	case status == 408 || status == 429 || status >= 500:
		return ErrorTypeRetryable, true
	case status >= 400:
		return ErrorTypeFatal, true
	}
	return 0, false
}

// CalculateBackoff returns a full-jitter exponential delay:
// random(0, min(maxDelay, initialDelay * 2^attempt)).
func CalculateBackoff(attempt int, initialDelay, maxDelay time.Duration) time.Duration {
	if attempt <= 0 || initialDelay <= 0 {
		return 0
	}
	ceiling := maxDelay
	if attempt < 32 {
		if d := initialDelay << uint(attempt); d > 0 && d < maxDelay {
			ceiling = d
		}
	}
	if ceiling <= 0 {
		return 0
	}
	return time.Duration(rand.Int63n(int64(ceiling)))
}

// ExecuteWithRetry runs operation up to config.MaxRetries times. Fatal errors
// and context cancellation return at once, credential errors wait a second
// for the refresh hook, and network or server errors back off with jitter.
func ExecuteWithRetry(ctx context.Context, config Config, operation func() error) error {
	var lastErr error
	for attempt := 0; attempt < config.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if config.CredentialRefresh != nil {
			if err := config.CredentialRefresh(ctx); err != nil {
				return fmt.Errorf("credential refresh failed: %w", err)
			}
		}

		err := operation()
		errType := ClassifyError(err)
		if errType == ErrorTypeSuccess {
			return nil
		}
		lastErr = err

		delay, retry := retryDelay(config, attempt, errType)
		if !retry {
			return err
		}
		if attempt == config.MaxRetries-1 {
			break
		}
		if config.OnRetry != nil {
			config.OnRetry(attempt+1, err, errType)
		}
		if err := sleep(ctx, delay); err != nil {
			return err
		}
	}

	if ClassifyError(lastErr) == ErrorTypeCredential {
		return fmt.Errorf("credential error after %d attempts: %w", config.MaxRetries, lastErr)
	}
	return fmt.Errorf("operation failed after %d attempts: %w", config.MaxRetries, lastErr)
}

// retryDelay reports whether errType is worth another attempt and how long to
// wait before it.
func retryDelay(config Config, attempt int, errType ErrorType) (time.Duration, bool) {
	switch errType {
	case ErrorTypeCredential:
		// Without a refresh hook the next attempt fails the same way.
		return time.Second, config.CredentialRefresh != nil
	case ErrorTypeNetwork, ErrorTypeRetryable:
		return CalculateBackoff(attempt, config.InitialDelay, config.MaxDelay), true
	}
	return 0, false
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
