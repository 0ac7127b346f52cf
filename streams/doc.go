/*
Package streams decides table freshness from DynamoDB Streams metadata.

A staged export is stamped with the newest shard's sequence-number range at
staging time (LatestRange). A later check (HasChangesSince) resumes the
stream just past that anchor, or from the trim horizon of open shards when
the anchor is unknown, and looks for change records created after the
staging timestamp. One qualifying record means the cache is stale; a sweep
with zero qualifying records across all shards means it is still good.

Stream errors are never swallowed into a false "unchanged": every failure
path returns an error, and callers resolve indeterminate freshness toward a
rescan.
*/
package streams
