/*
Package scanmodels defines the data structures shared by the scan, cache and
freshness layers.

Key Types:

TableMetrics:
A fresh DescribeTable snapshot taken per records request:

	metrics := scanmodels.TableMetrics{
	    TableSizeBytes: 1 << 20,
	    ItemCount:      1000,
	    PartitionKey:   "PK",
	}

ScanBatch:
One segment page flowing through every stage of the pipeline. Batches carry
an in-band terminal Error; a closed channel is end-of-sequence:

	for batch := range source {
	    if batch.Error != nil {
	        return batch.Error
	    }
	    process(batch.Items)
	}

StagedCacheData:
A persisted scan pass. Metadata and Schema land in the JSON sidecar; Extract
replays the framed binary payload lazily and may be invoked once per pass.

ScanOptions:
Functional options for a scan pass:

	opts := []ScanOption{
	    WithMaxParallel(30),
	    WithProjection("PK, SK, Payload"),
	    WithProgressHandler(progressFunc),
	}

These types provide a consistent interface across scanner, multiplexer and
cache store implementations.
*/
package scanmodels
