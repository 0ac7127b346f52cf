/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package scanmodels

import "time"

// ScanOptions configures a parallel table scan.
type ScanOptions struct {
	MaxParallel     int                 // Concurrent segment requests in flight (default: 30)
	BufferSize      int                 // Output channel buffer (default: 32)
	Projection      *string             // Optional projection expression
	MaxRetries      int                 // Retry attempts for throttled requests (default: 3)
	RetryBackoff    time.Duration       // Backoff between retries (default: 1s)
	ProgressHandler func(ScanProgress)  // Optional progress callback
}

// ScanProgress tracks a scan pass.
type ScanProgress struct {
	ItemsScanned   int64     // Items examined so far
	PagesProcessed int       // Segment pages reaped so far
	TotalSegments  int       // Segment count of this pass
	StartTime      time.Time // When the pass started
	CurrentRate    float64   // Items per second
}

// ScanOption is a functional option for configuring a scan pass.
type ScanOption func(*ScanOptions)

// DefaultScanOptions returns the default scan configuration.
func DefaultScanOptions() ScanOptions {
	return ScanOptions{
		MaxParallel:  30,
		BufferSize:   32,
		MaxRetries:   3,
		RetryBackoff: time.Second,
	}
}

// WithMaxParallel sets the number of concurrent segment requests.
func WithMaxParallel(n int) ScanOption {
	return func(opts *ScanOptions) {
		opts.MaxParallel = n
	}
}

// WithBufferSize sets the output channel buffer size.
func WithBufferSize(size int) ScanOption {
	return func(opts *ScanOptions) {
		opts.BufferSize = size
	}
}

// WithProjection sets a projection expression applied to every segment request.
func WithProjection(expr string) ScanOption {
	return func(opts *ScanOptions) {
		opts.Projection = &expr
	}
}

// WithMaxRetries sets the retry budget for throttled segment requests.
// Hard request failures are never retried.
func WithMaxRetries(retries int) ScanOption {
	return func(opts *ScanOptions) {
		opts.MaxRetries = retries
	}
}

// WithRetryBackoff sets the backoff between throttle retries.
func WithRetryBackoff(backoff time.Duration) ScanOption {
	return func(opts *ScanOptions) {
		opts.RetryBackoff = backoff
	}
}

// WithProgressHandler sets a callback invoked after each reaped page.
func WithProgressHandler(handler func(ScanProgress)) ScanOption {
	return func(opts *ScanOptions) {
		opts.ProgressHandler = handler
	}
}
