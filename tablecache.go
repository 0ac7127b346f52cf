/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package tablecache

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	sdk "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/go-openapi/strfmt"
	"github.com/suparena/tablecache/cachestore"
	"github.com/suparena/tablecache/errors"
	"github.com/suparena/tablecache/mux"
	"github.com/suparena/tablecache/scan"
	"github.com/suparena/tablecache/scanmodels"
	"github.com/suparena/tablecache/streams"
)

// DynamoDBAPI is the slice of the DynamoDB client the cache depends on.
type DynamoDBAPI interface {
	scan.API
	DescribeTable(ctx context.Context, params *sdk.DescribeTableInput, optFns ...func(*sdk.Options)) (*sdk.DescribeTableOutput, error)
}

// TableCache serves table exports, preferring a staged local copy whenever
// the change stream proves the table has not moved since it was taken.
type TableCache struct {
	db       DynamoDBAPI
	scanner  *scan.Scanner
	monitor  *streams.Monitor
	cache    cachestore.CacheStrategy
	scanOpts []scanmodels.ScanOption
}

// Option configures a TableCache.
type Option func(*TableCache)

// WithScanOptions sets the default options applied to every fresh scan.
func WithScanOptions(opts ...scanmodels.ScanOption) Option {
	return func(tc *TableCache) {
		tc.scanOpts = opts
	}
}

// New assembles a TableCache from its clients and a cache strategy.
func New(db DynamoDBAPI, streamsClient streams.API, cache cachestore.CacheStrategy, opts ...Option) *TableCache {
	tc := &TableCache{
		db:      db,
		scanner: scan.NewScanner(db),
		monitor: streams.NewMonitor(streamsClient),
		cache:   cache,
	}
	for _, opt := range opts {
		opt(tc)
	}
	return tc
}

// GetOptions configures one records request.
type GetOptions struct {
	UseCache bool
}

// GetOption is a functional option for GetRecords.
type GetOption func(*GetOptions)

// WithCache lets the request reuse a staged export when the change stream
// shows the table has not moved. Without it every request scans fresh.
func WithCache() GetOption {
	return func(o *GetOptions) {
		o.UseCache = true
	}
}

// GetRecords returns one lazy, single-pass sequence of row batches for the
// table. The sequence terminates with an in-band error batch on failure;
// re-invoke for another pass.
func (tc *TableCache) GetRecords(ctx context.Context, table string, opts ...GetOption) (<-chan scanmodels.ScanBatch, error) {
	options := GetOptions{}
	for _, opt := range opts {
		opt(&options)
	}

	metrics, err := tc.tableMetrics(ctx, table)
	if err != nil {
		return nil, err
	}

	if !options.UseCache {
		return tc.freshScan(ctx, table, metrics), nil
	}

	entry, err := tc.cache.Get(ctx, table)
	if err != nil {
		return nil, fmt.Errorf("load cache entry: %w", err)
	}

	if !tc.hasChanges(ctx, table, metrics, entry) {
		return entry.Extract(ctx), nil
	}

	if err := tc.cache.Clear(ctx, table); err != nil {
		return nil, fmt.Errorf("clear stale cache entry: %w", err)
	}
	return tc.freshScan(ctx, table, metrics), nil
}

// tableMetrics takes a fresh DescribeTable snapshot and validates it.
func (tc *TableCache) tableMetrics(ctx context.Context, table string) (scanmodels.TableMetrics, error) {
	out, err := tc.db.DescribeTable(ctx, &sdk.DescribeTableInput{TableName: aws.String(table)})
	if err != nil {
		return scanmodels.TableMetrics{}, fmt.Errorf("describe table %q: %w", table, err)
	}

	metrics := scanmodels.TableMetrics{
		TableSizeBytes: aws.ToInt64(out.Table.TableSizeBytes),
		ItemCount:      aws.ToInt64(out.Table.ItemCount),
	}
	for _, key := range out.Table.KeySchema {
		switch key.KeyType {
		case types.KeyTypeHash:
			metrics.PartitionKey = aws.ToString(key.AttributeName)
		case types.KeyTypeRange:
			metrics.SortKey = key.AttributeName
		}
	}

	if metrics.ItemCount == 0 {
		return scanmodels.TableMetrics{}, errors.NewInvalidMetricsError(table, "item count")
	}
	if metrics.TableSizeBytes == 0 {
		return scanmodels.TableMetrics{}, errors.NewInvalidMetricsError(table, "byte size")
	}
	return metrics, nil
}

// freshScan runs one pass over the live table, fanning it out to the caller
// and a background cache writer in lockstep.
func (tc *TableCache) freshScan(ctx context.Context, table string, metrics scanmodels.TableMetrics) <-chan scanmodels.ScanBatch {
	// Best-effort anchor; a missing stream just means the next cached read
	// cannot prove freshness and will rescan.
	rng, err := tc.monitor.LatestRange(ctx, table)
	if err != nil {
		log.Printf("tablecache: no change-stream anchor for %q: %v", table, err)
		rng = nil
	}

	factory := func(ctx context.Context) <-chan scanmodels.ScanBatch {
		return tc.scanner.Scan(ctx, table, metrics, tc.scanOpts...)
	}
	m := mux.New(2, factory, mux.WithTerminal(func(b scanmodels.ScanBatch) error {
		return b.Error
	}))
	consumers := m.Consumers()
	m.Start()

	staged := &scanmodels.StagedCacheData{
		Metadata: scanmodels.CacheMetadata{
			TableSizeBytes: metrics.TableSizeBytes,
			ItemCount:      metrics.ItemCount,
			SequenceRange:  rng,
			Timestamp:      strfmt.DateTime(time.Now()),
		},
		Schema: scanmodels.TableSchema{
			PartitionKey: metrics.PartitionKey,
			SortKey:      metrics.SortKey,
		},
		// Single-use source: the writer's fan-out leg, with the producer's
		// terminal error re-surfaced so an aborted pass never stages.
		Extract: func(ctx context.Context) <-chan scanmodels.ScanBatch {
			return surfaceErr(ctx, consumers[1], m)
		},
	}
	go func() {
		if err := tc.cache.Set(ctx, table, staged); err != nil {
			// Cache trouble must never stall the caller: withdraw the
			// writer from the barrier and keep serving live data.
			consumers[1].Close()
			for range consumers[1].C() {
			}
			log.Printf("tablecache: staging %q failed: %v", table, err)
		}
	}()

	return surfaceErr(ctx, consumers[0], m)
}

// surfaceErr forwards a fan-out leg, appending the controller's terminal
// error in-band after end-of-sequence. An abandoned leg withdraws from the
// barrier when ctx is cancelled.
func surfaceErr(ctx context.Context, c *mux.Consumer[scanmodels.ScanBatch], m *mux.Multiplexer[scanmodels.ScanBatch]) <-chan scanmodels.ScanBatch {
	out := make(chan scanmodels.ScanBatch)
	go func() {
		defer close(out)
		for batch := range c.C() {
			select {
			case out <- batch:
			case <-ctx.Done():
				c.Close()
				for range c.C() {
				}
				return
			}
		}
		if err := m.Err(); err != nil {
			select {
			case out <- scanmodels.ScanBatch{Error: err}:
			case <-ctx.Done():
			}
		}
	}()
	return out
}
