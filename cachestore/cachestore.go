/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package cachestore

import (
	"context"

	"github.com/suparena/tablecache/scanmodels"
)

// CacheStrategy stores and replays staged table exports keyed by a string.
//
// Implementations must guarantee that no two generations coexist under the
// same key: Set clears any prior entry before staging the new one, and a Get
// racing an in-flight Set for the same key waits for that write to finish
// rather than observing a half-written entry.
type CacheStrategy interface {
	// Get returns the staged entry for key, or (nil, nil) when none exists.
	// The returned Extract replays the batch sequence lazily.
	Get(ctx context.Context, key string) (*scanmodels.StagedCacheData, error)

	// Set stages a new entry, consuming data.Extract to completion. A
	// sequence that terminates with an in-band error aborts the write and
	// leaves no entry behind.
	Set(ctx context.Context, key string, data *scanmodels.StagedCacheData) error

	// Clear removes the entry for key. Missing entries are not errors.
	Clear(ctx context.Context, key string) error
}
