/*
Package errors provides semantic error types for the tablecache library.

The package defines the failure classes of the scan-cache pipeline with
specific types that can be checked using the standard errors.Is() function
or the provided helper functions.

Common Errors:

	var (
	    ErrInvalidMetrics   = errors.New("invalid table metrics")
	    ErrCacheCorrupt     = errors.New("cache entry corrupt")
	    ErrFreshnessUnknown = errors.New("change stream unavailable")
	)

Usage:

	batches, err := tc.GetRecords(ctx, "orders", tablecache.WithCache())
	if err != nil {
	    if errors.IsInvalidMetrics(err) {
	        // Table is empty or metrics have not propagated yet
	        return nil, fmt.Errorf("table %s not scannable", "orders")
	    }
	    return nil, err
	}

	// Create typed errors
	err := errors.NewInvalidMetricsError("orders", "item count")
	err := errors.NewCorruptFrameError(4096, "frame length exceeds payload")
	err := errors.NewFreshnessError("orders", cause)

Scan and disk I/O failures are not given their own class; they are wrapped
with %w and surface to the immediate caller untouched. Indeterminate
freshness (ErrFreshnessUnknown) is always resolved toward a rescan, and
per-frame corruption (CorruptFrameError) is recoverable during replay.
*/
package errors
