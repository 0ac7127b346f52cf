/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package streams

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	sdk "github.com/aws/aws-sdk-go-v2/service/dynamodbstreams"
	"github.com/aws/aws-sdk-go-v2/service/dynamodbstreams/types"
	"github.com/suparena/tablecache/errors"
	"github.com/suparena/tablecache/scanmodels"
)

// API is the slice of the DynamoDB Streams client the monitor depends on.
type API interface {
	ListStreams(ctx context.Context, params *sdk.ListStreamsInput, optFns ...func(*sdk.Options)) (*sdk.ListStreamsOutput, error)
	DescribeStream(ctx context.Context, params *sdk.DescribeStreamInput, optFns ...func(*sdk.Options)) (*sdk.DescribeStreamOutput, error)
	GetShardIterator(ctx context.Context, params *sdk.GetShardIteratorInput, optFns ...func(*sdk.Options)) (*sdk.GetShardIteratorOutput, error)
	GetRecords(ctx context.Context, params *sdk.GetRecordsInput, optFns ...func(*sdk.Options)) (*sdk.GetRecordsOutput, error)
}

// Monitor answers freshness questions about a table from its change stream.
type Monitor struct {
	client      API
	recordLimit int32
}

// MonitorOption configures a Monitor.
type MonitorOption func(*Monitor)

// WithRecordLimit caps the GetRecords page size used during change checks.
func WithRecordLimit(limit int32) MonitorOption {
	return func(m *Monitor) {
		m.recordLimit = limit
	}
}

// NewMonitor constructs a Monitor on top of a DynamoDB Streams client.
func NewMonitor(client API, opts ...MonitorOption) *Monitor {
	m := &Monitor{client: client, recordLimit: 1000}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// streamArn resolves the table's current stream.
func (m *Monitor) streamArn(ctx context.Context, table string) (string, error) {
	out, err := m.client.ListStreams(ctx, &sdk.ListStreamsInput{
		TableName: aws.String(table),
		Limit:     aws.Int32(1),
	})
	if err != nil {
		return "", fmt.Errorf("list streams: %w", err)
	}
	if len(out.Streams) == 0 {
		return "", fmt.Errorf("table %q has no change stream", table)
	}
	return aws.ToString(out.Streams[0].StreamArn), nil
}

// shards pages the full shard list of a stream.
func (m *Monitor) shards(ctx context.Context, arn string) ([]types.Shard, error) {
	var all []types.Shard
	var startShard *string
	for {
		out, err := m.client.DescribeStream(ctx, &sdk.DescribeStreamInput{
			StreamArn:             aws.String(arn),
			ExclusiveStartShardId: startShard,
		})
		if err != nil {
			return nil, fmt.Errorf("describe stream: %w", err)
		}
		all = append(all, out.StreamDescription.Shards...)
		startShard = out.StreamDescription.LastEvaluatedShardId
		if startShard == nil {
			return all, nil
		}
	}
}

// LatestRange snapshots the newest shard's sequence-number range. The
// snapshot anchors a staged export so later checks can resume the stream
// just past it.
func (m *Monitor) LatestRange(ctx context.Context, table string) (*scanmodels.SequenceRange, error) {
	arn, err := m.streamArn(ctx, table)
	if err != nil {
		return nil, errors.NewFreshnessError(table, err)
	}
	shards, err := m.shards(ctx, arn)
	if err != nil {
		return nil, errors.NewFreshnessError(table, err)
	}
	if len(shards) == 0 {
		return nil, errors.NewFreshnessError(table, fmt.Errorf("stream has no shards"))
	}

	last := shards[len(shards)-1]
	rng := &scanmodels.SequenceRange{}
	if r := last.SequenceNumberRange; r != nil {
		rng.Starting = aws.ToString(r.StartingSequenceNumber)
		rng.Ending = aws.ToString(r.EndingSequenceNumber)
	}
	return rng, nil
}

// HasChangesSince reads actual change records to decide whether the table
// moved after the cached snapshot. Shards holding the anchored starting
// sequence number are read from just past it; other non-closed shards from
// their trim horizon. Only records created strictly after `since` qualify.
//
// Any stream failure returns a non-nil error and an unusable false; the
// caller must treat that as changed; a (false, nil) result is a conclusive
// zero-qualifying-records sweep.
func (m *Monitor) HasChangesSince(ctx context.Context, table string, rng *scanmodels.SequenceRange, since time.Time) (bool, error) {
	arn, err := m.streamArn(ctx, table)
	if err != nil {
		return false, errors.NewFreshnessError(table, err)
	}
	shards, err := m.shards(ctx, arn)
	if err != nil {
		return false, errors.NewFreshnessError(table, err)
	}

	for _, shard := range shards {
		input := &sdk.GetShardIteratorInput{
			StreamArn: aws.String(arn),
			ShardId:   shard.ShardId,
		}
		switch {
		case rng != nil && rng.Starting != "" && shardContains(shard, rng.Starting):
			input.ShardIteratorType = types.ShardIteratorTypeAfterSequenceNumber
			input.SequenceNumber = aws.String(rng.Starting)
		case shardOpen(shard):
			input.ShardIteratorType = types.ShardIteratorTypeTrimHorizon
		default:
			// Closed shard without the anchor: its content predates the
			// snapshot's trim window.
			continue
		}

		iterOut, err := m.client.GetShardIterator(ctx, input)
		if err != nil {
			return false, errors.NewFreshnessError(table, err)
		}

		changed, err := m.shardHasRecordsAfter(ctx, iterOut.ShardIterator, since)
		if err != nil {
			return false, errors.NewFreshnessError(table, err)
		}
		if changed {
			return true, nil
		}
	}
	return false, nil
}

// shardHasRecordsAfter walks a shard from the iterator looking for one
// record created after the cutoff.
func (m *Monitor) shardHasRecordsAfter(ctx context.Context, iterator *string, since time.Time) (bool, error) {
	for iterator != nil {
		out, err := m.client.GetRecords(ctx, &sdk.GetRecordsInput{
			ShardIterator: iterator,
			Limit:         aws.Int32(m.recordLimit),
		})
		if err != nil {
			return false, fmt.Errorf("get records: %w", err)
		}
		for _, rec := range out.Records {
			if rec.Dynamodb == nil || rec.Dynamodb.ApproximateCreationDateTime == nil {
				continue
			}
			if rec.Dynamodb.ApproximateCreationDateTime.After(since) {
				return true, nil
			}
		}
		if len(out.Records) == 0 {
			// Caught up; an open shard would otherwise hand out iterators
			// forever.
			return false, nil
		}
		iterator = out.NextShardIterator
	}
	return false, nil
}

func shardOpen(shard types.Shard) bool {
	return shard.SequenceNumberRange == nil || shard.SequenceNumberRange.EndingSequenceNumber == nil
}

// shardContains reports whether seq falls inside the shard's sequence-number
// range. Sequence numbers compare as integers, not strings.
func shardContains(shard types.Shard, seq string) bool {
	r := shard.SequenceNumberRange
	if r == nil || r.StartingSequenceNumber == nil {
		return false
	}
	n, ok := new(big.Int).SetString(seq, 10)
	if !ok {
		return false
	}
	start, ok := new(big.Int).SetString(aws.ToString(r.StartingSequenceNumber), 10)
	if !ok {
		return false
	}
	if n.Cmp(start) < 0 {
		return false
	}
	if r.EndingSequenceNumber == nil {
		return true
	}
	end, ok := new(big.Int).SetString(aws.ToString(r.EndingSequenceNumber), 10)
	if !ok {
		return false
	}
	return n.Cmp(end) <= 0
}
