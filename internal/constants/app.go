// Package constants holds shared defaults for the path browser and its stores.
package constants

import (
	"time"
)

// Interaction timing defaults
const (
	// RenameDelay - a second click on a label later than this (and before
	// DoubleClickDelay) starts an inline rename instead of toggling selection (300ms)
	RenameDelay = 300 * time.Millisecond

	// DoubleClickDelay - upper bound for the rename gesture; later second
	// clicks count as a fresh first click (2 seconds)
	DoubleClickDelay = 2 * time.Second

	// RefreshTimer - minimum time a refresh keeps the content hidden, so fast
	// backends do not flicker (100ms)
	RefreshTimer = 100 * time.Millisecond
)

// Namespace defaults
const (
	// DefaultName - selection namespace used when none is configured
	DefaultName = "default"

	// NewEntryPrefix - placeholder text for inline create ("New File", "New Directory")
	NewEntryPrefix = "New "
)

// Event bus sizing
const (
	// EventBusDefaultBuffer - default buffer size for event channels (1000)
	// Large enough for a full marquee drag over a big listing without drops
	EventBusDefaultBuffer = 1000

	// EventBusMaxBuffer - maximum buffer size for high-throughput scenarios (5000)
	EventBusMaxBuffer = 5000
)

// Store operation timeouts
const (
	// StoreOperationTimeout - default timeout for a single store call made by the CLI (30 seconds)
	StoreOperationTimeout = 30 * time.Second

	// WatchDebounce - coalescing window for filesystem change notifications (200ms)
	WatchDebounce = 200 * time.Millisecond

	// DiskSpaceMargin - local writes need this multiple of their size free (10% buffer)
	DiskSpaceMargin = 1.1
)

// Retry configuration for cloud-backed stores
const (
	// MaxRetries - maximum number of retries for transient errors
	MaxRetries = 10

	// RetryInitialDelay - initial delay before first retry (1s)
	RetryInitialDelay = 1 * time.Second

	// RetryMaxDelay - maximum delay between retries (30s)
	RetryMaxDelay = 30 * time.Second

	// LayeredStoreRetries - store-level retries when the HTTP transport
	// already retries transient responses (3)
	LayeredStoreRetries = 3
)

// HTTP Client Timeouts
const (
	// HTTPIdleConnTimeout - how long to keep idle connections open (90 seconds)
	HTTPIdleConnTimeout = 90 * time.Second

	// HTTPTLSHandshakeTimeout - timeout for TLS handshake (60 seconds)
	HTTPTLSHandshakeTimeout = 60 * time.Second

	// HTTPExpectContinueTimeout - timeout for 100-continue response (1 second)
	HTTPExpectContinueTimeout = 1 * time.Second

	// HTTPDialTimeout - timeout for establishing connection (30 seconds)
	HTTPDialTimeout = 30 * time.Second

	// HTTPDialKeepAlive - keep-alive period for dialer (30 seconds)
	HTTPDialKeepAlive = 30 * time.Second
)
