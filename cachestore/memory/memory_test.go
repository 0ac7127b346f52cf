/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package memory

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/suparena/tablecache/scanmodels"
)

func sourceOf(batches []scanmodels.ScanBatch) scanmodels.BatchSource {
	return func(ctx context.Context) <-chan scanmodels.ScanBatch {
		ch := make(chan scanmodels.ScanBatch)
		go func() {
			defer close(ch)
			for _, b := range batches {
				ch <- b
			}
		}()
		return ch
	}
}

func TestSetGetRoundTrip(t *testing.T) {
	store := New()
	ctx := context.Background()

	batches := []scanmodels.ScanBatch{
		{Index: 0, Items: []map[string]any{{"PK": "a"}}},
		{Index: 1, Items: []map[string]any{{"PK": "b"}}},
	}
	entry := &scanmodels.StagedCacheData{
		Metadata: scanmodels.CacheMetadata{ItemCount: 2},
		Schema:   scanmodels.TableSchema{PartitionKey: "PK"},
		Extract:  sourceOf(batches),
	}
	require.NoError(t, store.Set(ctx, "orders", entry))
	require.Equal(t, 1, store.Len())

	got, err := store.Get(ctx, "orders")
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, entry.Metadata, got.Metadata)

	// Replays are restartable.
	for pass := 0; pass < 2; pass++ {
		var replayed []scanmodels.ScanBatch
		for b := range got.Extract(ctx) {
			replayed = append(replayed, b)
		}
		require.Equal(t, batches, replayed)
	}
}

func TestMissingKeyIsCleanMiss(t *testing.T) {
	got, err := New().Get(context.Background(), "nothing")
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestInBandErrorAbortsStaging(t *testing.T) {
	store := New()
	ctx := context.Background()

	batches := []scanmodels.ScanBatch{
		{Index: 0, Items: []map[string]any{{"PK": "a"}}},
		{Error: os.ErrDeadlineExceeded},
	}
	err := store.Set(ctx, "orders", &scanmodels.StagedCacheData{Extract: sourceOf(batches)})
	require.Error(t, err)
	require.Zero(t, store.Len())
}

func TestClearIsIdempotent(t *testing.T) {
	store := New()
	ctx := context.Background()

	require.NoError(t, store.Clear(ctx, "orders"))
	require.NoError(t, store.Set(ctx, "orders", &scanmodels.StagedCacheData{Extract: sourceOf(nil)}))
	require.NoError(t, store.Clear(ctx, "orders"))
	require.Zero(t, store.Len())
}
