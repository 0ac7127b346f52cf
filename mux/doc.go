/*
Package mux fans a single producer sequence out to a fixed number of
lockstep consumers.

One scan pass is expensive; the multiplexer lets two independent sinks (a
caller and a cache writer) consume the same pass without rescanning or
buffering it. The producer advances one item at a time: item i+1 is not
pulled until every active consumer has accepted item i, so no consumer ever
runs more than one item ahead of the slowest.

	m := mux.New(2, factory, mux.WithTerminal(func(b scanmodels.ScanBatch) error {
	    return b.Error
	}))
	consumers := m.Consumers()
	m.Start()

	go persist(consumers[1].C())
	for item := range consumers[0].C() {
	    handle(item)
	}
	if err := m.Err(); err != nil {
	    return err
	}

A consumer that stops early calls Close on its handle and drops out of the
barrier without stalling the rest. Producer errors are recorded on the
controller; consumers only ever observe end-of-sequence.
*/
package mux
