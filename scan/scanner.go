/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package scan

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	sdk "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/suparena/tablecache/scanmodels"
)

// API is the slice of the DynamoDB client the scanner depends on.
type API interface {
	Scan(ctx context.Context, params *sdk.ScanInput, optFns ...func(*sdk.Options)) (*sdk.ScanOutput, error)
}

// Scanner drives one full-table pass as parallel partial scans, emitting
// segment pages as they complete.
type Scanner struct {
	client API
}

// NewScanner constructs a Scanner on top of a DynamoDB client.
func NewScanner(client API) *Scanner {
	return &Scanner{client: client}
}

// task is one pending segment request: the segment id plus its pagination
// bookmark. A nil startKey means the segment has not been visited this pass.
type task struct {
	segment  int32
	startKey map[string]types.AttributeValue
}

// pageResult is the completion record reaped from an in-flight request.
type pageResult struct {
	slot    int
	segment int32
	out     *sdk.ScanOutput
	err     error
}

// Scan starts a parallel pass over the table and returns its page sequence.
// The sequence ends once the accumulated scanned count reaches
// metrics.ItemCount or every segment reports no further bookmark. A segment
// failure is delivered in-band as the terminal batch; pages already emitted
// stand. Cancelling ctx stops the pass; requests already in flight finish
// and are discarded.
func (s *Scanner) Scan(ctx context.Context, table string, metrics scanmodels.TableMetrics, opts ...scanmodels.ScanOption) <-chan scanmodels.ScanBatch {
	options := scanmodels.DefaultScanOptions()
	for _, opt := range opts {
		opt(&options)
	}
	if options.MaxParallel < 1 {
		options.MaxParallel = 1
	}

	out := make(chan scanmodels.ScanBatch, options.BufferSize)
	go s.run(ctx, table, metrics, options, out)
	return out
}

// run is the pool dispatcher: it keeps up to MaxParallel segment requests in
// flight, reaps them first-completed-wins, re-queues segments that returned
// a bookmark, and retires segments that did not.
func (s *Scanner) run(
	ctx context.Context,
	table string,
	metrics scanmodels.TableMetrics,
	options scanmodels.ScanOptions,
	out chan<- scanmodels.ScanBatch,
) {
	defer close(out)

	total := segmentCount(metrics, options.MaxParallel)

	pending := make([]task, 0, total)
	for seg := int32(0); seg < int32(total); seg++ {
		pending = append(pending, task{segment: seg})
	}

	// Buffered to MaxParallel so abandoned workers can always deliver their
	// completion and exit.
	results := make(chan pageResult, options.MaxParallel)

	var (
		launched int
		inflight int
		scanned  int64
		pages    int
	)
	startTime := time.Now()

	launch := func(t task) {
		slot := launched
		launched++
		inflight++
		go func() {
			o, err := s.scanPage(ctx, table, t, int32(total), options)
			results <- pageResult{slot: slot, segment: t.segment, out: o, err: err}
		}()
	}

	reportProgress := func() {
		if options.ProgressHandler == nil {
			return
		}
		progress := scanmodels.ScanProgress{
			ItemsScanned:   scanned,
			PagesProcessed: pages,
			TotalSegments:  total,
			StartTime:      startTime,
		}
		elapsed := time.Since(startTime).Seconds()
		if elapsed > 0 {
			progress.CurrentRate = float64(scanned) / elapsed
		}
		options.ProgressHandler(progress)
	}

	fill := func() {
		for inflight < options.MaxParallel && len(pending) > 0 {
			next := pending[0]
			pending = pending[1:]
			launch(next)
		}
	}
	fill()

	for inflight > 0 {
		var r pageResult
		select {
		case <-ctx.Done():
			return
		case r = <-results:
		}
		inflight--

		if r.err != nil {
			select {
			case out <- scanmodels.ScanBatch{Index: r.slot, Segment: r.segment, Error: fmt.Errorf("scan segment %d: %w", r.segment, r.err)}:
			case <-ctx.Done():
			}
			return
		}

		pages++
		scanned += int64(r.out.ScannedCount)

		if len(r.out.Items) > 0 {
			var items []map[string]any
			if err := attributevalue.UnmarshalListOfMaps(r.out.Items, &items); err != nil {
				select {
				case out <- scanmodels.ScanBatch{Index: r.slot, Segment: r.segment, Error: fmt.Errorf("decode segment %d page: %w", r.segment, err)}:
				case <-ctx.Done():
				}
				return
			}
			batch := scanmodels.ScanBatch{
				Index:   r.slot,
				Segment: r.segment,
				Meta: scanmodels.ScanMeta{
					ScannedCount: r.out.ScannedCount,
					Count:        r.out.Count,
				},
				Items: items,
			}
			select {
			case out <- batch:
			case <-ctx.Done():
				return
			}
		}

		reportProgress()

		if scanned >= metrics.ItemCount {
			// Pass complete; outstanding requests finish on their own and
			// are discarded.
			return
		}

		if len(r.out.LastEvaluatedKey) > 0 {
			pending = append(pending, task{segment: r.segment, startKey: r.out.LastEvaluatedKey})
		}
		fill()
	}
}

// scanPage executes one segment request, retrying only throttle-class faults.
func (s *Scanner) scanPage(
	ctx context.Context,
	table string,
	t task,
	total int32,
	options scanmodels.ScanOptions,
) (*sdk.ScanOutput, error) {
	input := &sdk.ScanInput{
		TableName:            aws.String(table),
		Segment:              aws.Int32(t.segment),
		TotalSegments:        aws.Int32(total),
		ProjectionExpression: options.Projection,
	}
	if len(t.startKey) > 0 {
		input.ExclusiveStartKey = t.startKey
	}

	var lastErr error
	for attempt := 0; attempt <= options.MaxRetries; attempt++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		out, err := s.client.Scan(ctx, input)
		if err == nil {
			return out, nil
		}
		lastErr = err

		if !isThrottleError(err) {
			return nil, err
		}

		if attempt < options.MaxRetries {
			backoff := time.Duration(attempt+1) * options.RetryBackoff
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}
	}

	return nil, fmt.Errorf("scan failed after %d retries: %w", options.MaxRetries, lastErr)
}

// isThrottleError reports whether a scan fault is worth retrying. Everything
// else propagates to the caller untouched.
func isThrottleError(err error) bool {
	switch err.(type) {
	case *types.ProvisionedThroughputExceededException:
		return true
	case *types.RequestLimitExceeded:
		return true
	case *types.InternalServerError:
		return true
	}
	return false
}
