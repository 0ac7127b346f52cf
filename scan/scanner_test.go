/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package scan

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	sdk "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/require"
	"github.com/suparena/tablecache/scanmodels"
)

// fakeDynamo serves a fixed item population across whatever segment layout
// the scanner asks for, paginating each segment with an offset bookmark.
type fakeDynamo struct {
	mu       sync.Mutex
	calls    int
	items    []map[string]types.AttributeValue
	pageSize int
	failSeg  int32 // segment that always errors; -1 for none
}

func newFakeDynamo(itemCount, pageSize int) *fakeDynamo {
	f := &fakeDynamo{pageSize: pageSize, failSeg: -1}
	for i := 0; i < itemCount; i++ {
		f.items = append(f.items, map[string]types.AttributeValue{
			"id": &types.AttributeValueMemberS{Value: fmt.Sprintf("item-%04d", i)},
		})
	}
	return f
}

func (f *fakeDynamo) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *fakeDynamo) Scan(ctx context.Context, in *sdk.ScanInput, optFns ...func(*sdk.Options)) (*sdk.ScanOutput, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()

	seg := aws.ToInt32(in.Segment)
	total := aws.ToInt32(in.TotalSegments)
	if seg == f.failSeg {
		return nil, fmt.Errorf("segment %d unavailable", seg)
	}

	var segItems []map[string]types.AttributeValue
	for i, item := range f.items {
		if int32(i)%total == seg {
			segItems = append(segItems, item)
		}
	}

	start := 0
	if in.ExclusiveStartKey != nil {
		off := in.ExclusiveStartKey["offset"].(*types.AttributeValueMemberN)
		start, _ = strconv.Atoi(off.Value)
	}
	end := start + f.pageSize
	if end > len(segItems) {
		end = len(segItems)
	}

	out := &sdk.ScanOutput{
		Items:        segItems[start:end],
		Count:        int32(end - start),
		ScannedCount: int32(end - start),
	}
	if end < len(segItems) {
		out.LastEvaluatedKey = map[string]types.AttributeValue{
			"offset": &types.AttributeValueMemberN{Value: strconv.Itoa(end)},
		}
	}
	return out, nil
}

func drain(t *testing.T, batches <-chan scanmodels.ScanBatch) ([]scanmodels.ScanBatch, error) {
	t.Helper()
	var collected []scanmodels.ScanBatch
	for batch := range batches {
		if batch.Error != nil {
			return collected, batch.Error
		}
		collected = append(collected, batch)
	}
	return collected, nil
}

func metricsFor(itemCount int) scanmodels.TableMetrics {
	return scanmodels.TableMetrics{
		TableSizeBytes: int64(itemCount) * 100,
		ItemCount:      int64(itemCount),
		PartitionKey:   "id",
	}
}

func TestScanCoversWholeTable(t *testing.T) {
	const itemCount = 200

	for _, maxParallel := range []int{1, 3, 30, itemCount} {
		t.Run(fmt.Sprintf("maxParallel=%d", maxParallel), func(t *testing.T) {
			fake := newFakeDynamo(itemCount, 7)
			scanner := NewScanner(fake)

			batches, err := drain(t, scanner.Scan(context.Background(), "orders", metricsFor(itemCount),
				scanmodels.WithMaxParallel(maxParallel),
			))
			require.NoError(t, err)

			var scanned int64
			seen := map[string]bool{}
			for _, b := range batches {
				scanned += int64(b.Meta.ScannedCount)
				for _, item := range b.Items {
					id := item["id"].(string)
					require.False(t, seen[id], "item %s delivered twice", id)
					seen[id] = true
				}
			}
			require.Equal(t, int64(itemCount), scanned, "scanned counts must sum to the item count")
			require.Len(t, seen, itemCount)
		})
	}
}

func TestScanSegmentPagesOrdered(t *testing.T) {
	fake := newFakeDynamo(60, 4)
	scanner := NewScanner(fake)

	batches, err := drain(t, scanner.Scan(context.Background(), "orders", metricsFor(60),
		scanmodels.WithMaxParallel(2),
	))
	require.NoError(t, err)

	// Within a segment the first item of each page must advance; the
	// bookmark chain guarantees it.
	lastID := map[int32]string{}
	for _, b := range batches {
		first := b.Items[0]["id"].(string)
		if prev, ok := lastID[b.Segment]; ok {
			require.Greater(t, first, prev, "segment %d pages out of order", b.Segment)
		}
		lastID[b.Segment] = first
	}
}

func TestScanSingleItemIssuesOneRequest(t *testing.T) {
	fake := newFakeDynamo(1, 10)
	scanner := NewScanner(fake)

	batches, err := drain(t, scanner.Scan(context.Background(), "orders", metricsFor(1),
		scanmodels.WithMaxParallel(30),
	))
	require.NoError(t, err)
	require.Len(t, batches, 1)
	require.Equal(t, 1, fake.callCount(), "a one-item table needs exactly one request")
}

func TestScanSegmentFailurePropagates(t *testing.T) {
	fake := newFakeDynamo(50, 5)
	fake.failSeg = 0
	scanner := NewScanner(fake)

	_, err := drain(t, scanner.Scan(context.Background(), "orders", metricsFor(50),
		scanmodels.WithMaxParallel(2),
		scanmodels.WithMaxRetries(0),
	))
	require.Error(t, err)
	require.Contains(t, err.Error(), "segment")
}

func TestScanProgressReported(t *testing.T) {
	fake := newFakeDynamo(30, 5)
	scanner := NewScanner(fake)

	var mu sync.Mutex
	var reports []scanmodels.ScanProgress
	handler := func(p scanmodels.ScanProgress) {
		mu.Lock()
		reports = append(reports, p)
		mu.Unlock()
	}

	_, err := drain(t, scanner.Scan(context.Background(), "orders", metricsFor(30),
		scanmodels.WithMaxParallel(3),
		scanmodels.WithProgressHandler(handler),
	))
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, reports)
	last := reports[len(reports)-1]
	require.Equal(t, int64(30), last.ItemsScanned)
}

func TestScanCancellation(t *testing.T) {
	fake := newFakeDynamo(100, 1)
	scanner := NewScanner(fake)

	ctx, cancel := context.WithCancel(context.Background())
	batches := scanner.Scan(ctx, "orders", metricsFor(100),
		scanmodels.WithMaxParallel(1),
		scanmodels.WithBufferSize(0),
	)

	<-batches // first page
	cancel()

	// The channel must close; no further pulls hang.
	for range batches {
	}
}
