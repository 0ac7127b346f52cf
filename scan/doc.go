/*
Package scan drives parallel full-table DynamoDB scans.

A pass splits the table into segments sized from the table metrics (average
item size against the 1 MiB scan page ceiling), keeps a bounded pool of
segment requests in flight, and emits each completed page on a channel as a
scanmodels.ScanBatch. Segments paginate independently through their
LastEvaluatedKey bookmarks; pages within one segment are ordered, pages
across segments are not.

	scanner := scan.NewScanner(client)
	batches := scanner.Scan(ctx, "orders", metrics,
	    scanmodels.WithMaxParallel(30),
	    scanmodels.WithProgressHandler(func(p scanmodels.ScanProgress) {
	        log.Printf("scanned %d items", p.ItemsScanned)
	    }),
	)
	for batch := range batches {
	    if batch.Error != nil {
	        return batch.Error
	    }
	    consume(batch)
	}

The pass ends when the accumulated scanned count reaches the table's item
count or every segment is exhausted. A segment failure terminates the
sequence in-band; already-delivered pages are not rolled back.
*/
package scan
