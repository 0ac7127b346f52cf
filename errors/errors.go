/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package errors

import (
	"errors"
	"fmt"
)

// Common sentinel errors
var (
	// ErrInvalidMetrics is returned when table metrics are unusable for
	// planning a scan (zero item count or zero byte size)
	ErrInvalidMetrics = errors.New("invalid table metrics")

	// ErrCacheCorrupt is returned when a staged cache entry cannot be decoded
	ErrCacheCorrupt = errors.New("cache entry corrupt")

	// ErrFreshnessUnknown is returned when the change stream cannot answer
	// whether the table moved since a cached snapshot
	ErrFreshnessUnknown = errors.New("change stream unavailable")
)

// InvalidMetricsError reports a table whose metrics cannot seed a scan plan.
type InvalidMetricsError struct {
	Table string
	Field string
}

func (e *InvalidMetricsError) Error() string {
	return fmt.Sprintf("table %q has zero %s; refusing to plan a scan", e.Table, e.Field)
}

func (e *InvalidMetricsError) Is(target error) bool {
	return target == ErrInvalidMetrics
}

// CorruptFrameError reports a single undecodable frame in a staged binary
// payload. Replay continues past it unless the frame is truncated.
type CorruptFrameError struct {
	Offset int64
	Reason string
}

func (e *CorruptFrameError) Error() string {
	return fmt.Sprintf("corrupt cache frame at offset %d: %s", e.Offset, e.Reason)
}

func (e *CorruptFrameError) Is(target error) bool {
	return target == ErrCacheCorrupt
}

// FreshnessError wraps a change-stream failure during a staleness check.
// Callers must resolve it toward "assume changed".
type FreshnessError struct {
	Table string
	Err   error
}

func (e *FreshnessError) Error() string {
	return fmt.Sprintf("cannot judge freshness of table %q: %v", e.Table, e.Err)
}

func (e *FreshnessError) Unwrap() error {
	return e.Err
}

func (e *FreshnessError) Is(target error) bool {
	return target == ErrFreshnessUnknown
}

// Helper functions for creating errors

// NewInvalidMetricsError creates a new InvalidMetricsError
func NewInvalidMetricsError(table, field string) error {
	return &InvalidMetricsError{Table: table, Field: field}
}

// NewCorruptFrameError creates a new CorruptFrameError
func NewCorruptFrameError(offset int64, reason string) error {
	return &CorruptFrameError{Offset: offset, Reason: reason}
}

// NewFreshnessError creates a new FreshnessError
func NewFreshnessError(table string, err error) error {
	return &FreshnessError{Table: table, Err: err}
}

// IsInvalidMetrics checks if an error is an invalid metrics error
func IsInvalidMetrics(err error) bool {
	return errors.Is(err, ErrInvalidMetrics)
}

// IsCacheCorrupt checks if an error is a cache corruption error
func IsCacheCorrupt(err error) bool {
	return errors.Is(err, ErrCacheCorrupt)
}

// IsFreshnessUnknown checks if an error is an indeterminate freshness error
func IsFreshnessUnknown(err error) bool {
	return errors.Is(err, ErrFreshnessUnknown)
}
