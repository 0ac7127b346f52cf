/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package scan

import "github.com/suparena/tablecache/scanmodels"

// scanPageBytes is the DynamoDB scan response size ceiling used to
// approximate how many items one segment page can hold.
const scanPageBytes = 1 << 20

// maxSegments is the DynamoDB TotalSegments ceiling.
const maxSegments = 10000

// segmentCount derives the segment count for one pass. The average item size
// gives an items-per-page estimate; the count is raised to the configured
// parallelism so every slot has a segment, then clamped to
// [1, maxSegments, ItemCount].
func segmentCount(metrics scanmodels.TableMetrics, maxParallel int) int {
	avgItem := metrics.TableSizeBytes / metrics.ItemCount
	if avgItem < 1 {
		avgItem = 1
	}
	perPage := int64(scanPageBytes) / avgItem
	if perPage < 1 {
		perPage = 1
	}

	n := metrics.ItemCount / perPage
	if metrics.ItemCount%perPage != 0 {
		n++
	}
	if n < int64(maxParallel) {
		n = int64(maxParallel)
	}
	if n > maxSegments {
		n = maxSegments
	}
	if n > metrics.ItemCount {
		n = metrics.ItemCount
	}
	if n < 1 {
		n = 1
	}
	return int(n)
}
