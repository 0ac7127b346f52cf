/*
Package disk implements the on-disk cache strategy.

Each key is stored as two artifacts:

	<key>.json   metadata + schema sidecar, written last
	<key>.bin    framed payload: [4-byte LE length][JSON batch], repeated

Writes stream the payload record-by-record as the upstream pass is consumed,
so an export larger than memory never needs buffering; the sidecar is
finalized only after the payload closed cleanly, which keeps readers from
ever trusting a half-written entry. A reader arriving during a write waits
for the writer to finish.

Replay reads the payload in fixed-size chunks through an incremental frame
decoder, carrying only a partial trailing frame across chunk boundaries.
Record-level corruption is skipped; a truncated tail surfaces as one
in-band error after all intact frames were delivered.
*/
package disk
