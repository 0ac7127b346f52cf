/*
Package cachestore defines the staged-export cache contract implemented by
the disk and memory backends.

A staged export is one full scan pass plus the metadata needed to judge its
staleness later: table size, item count, a change-stream sequence-range
anchor and the staging timestamp. Strategies replay the pass lazily and
enforce a single-generation rule per key.

	store, err := disk.New(dir)
	if err != nil {
	    return err
	}
	var cache cachestore.CacheStrategy = store

	entry, err := cache.Get(ctx, "orders")
	if entry == nil {
	    // clean miss
	}
	for batch := range entry.Extract(ctx) {
	    ...
	}
*/
package cachestore
