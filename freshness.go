/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package tablecache

import (
	"context"
	"log"
	"time"

	"github.com/suparena/tablecache/scanmodels"
)

// hasChanges decides whether a staged export may still stand in for the live
// table. It errs toward "changed": any doubt, including a stream failure,
// forces a rescan rather than risking stale data.
func (tc *TableCache) hasChanges(ctx context.Context, table string, metrics scanmodels.TableMetrics, entry *scanmodels.StagedCacheData) bool {
	if entry == nil {
		return true
	}

	// Coarse pass on DescribeTable metadata first; it is one call and
	// catches most movement.
	if entry.Metadata.TableSizeBytes != metrics.TableSizeBytes {
		return true
	}

	rng, err := tc.monitor.LatestRange(ctx, table)
	if err != nil {
		log.Printf("tablecache: freshness of %q indeterminate: %v", table, err)
		return true
	}
	cached := entry.Metadata.SequenceRange
	if cached == nil || !cached.Equal(rng) {
		return true
	}

	// The shard topology matched the snapshot. Same-size writes can still
	// hide inside it, so read actual change records past the anchor.
	changed, err := tc.monitor.HasChangesSince(ctx, table, cached, time.Time(entry.Metadata.Timestamp))
	if err != nil {
		log.Printf("tablecache: freshness of %q indeterminate: %v", table, err)
		return true
	}
	return changed
}
