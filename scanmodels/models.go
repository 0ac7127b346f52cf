/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package scanmodels

import (
	"context"

	"github.com/go-openapi/strfmt"
)

// TableMetrics describes the table at the moment a records request starts.
// It is fetched fresh for every top-level call; a table reporting zero items
// or zero bytes is rejected before any scan plan is computed.
type TableMetrics struct {
	// TableSizeBytes is the total table size reported by DescribeTable.
	TableSizeBytes int64 `json:"tableSizeBytes"`
	// ItemCount is the approximate item count reported by DescribeTable.
	ItemCount int64 `json:"itemCount"`
	// PartitionKey is the hash key attribute name.
	PartitionKey string `json:"partitionKey"`
	// SortKey is the range key attribute name, if the table has one.
	SortKey *string `json:"sortKey,omitempty"`
}

// ScanMeta carries the per-page counters returned by a segment scan.
type ScanMeta struct {
	// ScannedCount is the number of items examined for this page.
	ScannedCount int32 `json:"scannedCount"`
	// Count is the number of items returned for this page.
	Count int32 `json:"count"`
}

// ScanBatch is one completed segment page. Batches from different segments
// arrive in no particular order; within a segment they follow the bookmark
// chain. A batch with Error set is the terminal element of its sequence.
type ScanBatch struct {
	// Index is the launch-order slot of the request that produced this page.
	Index int `json:"index"`
	// Segment is the stable scan segment id.
	Segment int32 `json:"segment"`
	// Meta holds the page counters.
	Meta ScanMeta `json:"meta"`
	// Items are the page records in wire order, as JSON-shaped maps.
	Items []map[string]any `json:"items,omitempty"`
	// Error terminates the sequence; it is never persisted.
	Error error `json:"-"`
}

// BatchSource is a restartable lazy batch sequence. Each invocation opens a
// fresh pass; the channel closes at end-of-sequence.
type BatchSource func(ctx context.Context) <-chan ScanBatch

// SequenceRange bounds a change-stream shard's content.
type SequenceRange struct {
	Starting string `json:"starting"`
	Ending   string `json:"ending,omitempty"`
}

// Equal reports whether two ranges describe the same snapshot. A nil range
// only equals another nil range.
func (r *SequenceRange) Equal(other *SequenceRange) bool {
	if r == nil || other == nil {
		return r == other
	}
	return r.Starting == other.Starting && r.Ending == other.Ending
}

// CacheMetadata is the sidecar metadata stamped on a staged export.
// SequenceRange, when present, anchors the change-stream position at staging
// time; Timestamp is the staging instant used to filter later change records.
type CacheMetadata struct {
	TableSizeBytes   int64           `json:"tableSizeBytes"`
	ItemCount        int64           `json:"itemCount"`
	LastEvaluatedKey map[string]any  `json:"lastEvaluatedKey,omitempty"`
	SequenceRange    *SequenceRange  `json:"sequenceRange,omitempty"`
	Timestamp        strfmt.DateTime `json:"timestamp"`
}

// TableSchema records the key attributes of the staged table.
type TableSchema struct {
	PartitionKey string  `json:"partitionKey"`
	SortKey      *string `json:"sortKey,omitempty"`
}

// StagedCacheData is a persisted scan pass: sidecar metadata and schema plus
// the lazily replayable batch extract. Extract is nil until a reader or
// writer attaches one; it is never serialized.
type StagedCacheData struct {
	Metadata CacheMetadata `json:"metadata"`
	Schema   TableSchema   `json:"schema"`
	Extract  BatchSource   `json:"-"`
}
