/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package disk

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/suparena/tablecache/errors"
)

// Binary payload framing: [4-byte little-endian length][JSON batch payload],
// repeated once per staged batch.

const (
	frameHeaderSize = 4
	// maxFrameBytes rejects lengths that cannot be a real batch; anything
	// larger is a corrupt header.
	maxFrameBytes = 1 << 28
	// readChunkSize is how much of the payload file is pulled per read.
	readChunkSize = 64 * 1024
)

// writeFrame appends one length-prefixed payload to w.
func writeFrame(w io.Writer, payload []byte) error {
	var header [frameHeaderSize]byte
	binary.LittleEndian.PutUint32(header[:], uint32(len(payload)))
	if _, err := w.Write(header[:]); err != nil {
		return fmt.Errorf("write frame header: %w", err)
	}
	if _, err := w.Write(payload); err != nil {
		return fmt.Errorf("write frame payload: %w", err)
	}
	return nil
}

// frameDecoder incrementally splits a chunked byte stream into frames,
// buffering only the partial trailing frame across chunk boundaries.
type frameDecoder struct {
	buf    []byte
	offset int64 // file offset of buf[0]
}

// feed appends the next chunk of the stream.
func (d *frameDecoder) feed(p []byte) {
	d.buf = append(d.buf, p...)
}

// next pops the next complete frame payload, or nil when more input is
// needed. An impossible frame length is a hard corruption error.
func (d *frameDecoder) next() ([]byte, error) {
	if len(d.buf) < frameHeaderSize {
		return nil, nil
	}
	length := binary.LittleEndian.Uint32(d.buf[:frameHeaderSize])
	if length > maxFrameBytes {
		return nil, errors.NewCorruptFrameError(d.offset, fmt.Sprintf("frame length %d exceeds limit", length))
	}
	total := frameHeaderSize + int(length)
	if len(d.buf) < total {
		return nil, nil
	}
	payload := make([]byte, length)
	copy(payload, d.buf[frameHeaderSize:total])
	d.buf = d.buf[total:]
	d.offset += int64(total)
	return payload, nil
}

// trailing reports a leftover fragment after end of input: a frame that was
// announced but never completed.
func (d *frameDecoder) trailing() error {
	if len(d.buf) == 0 {
		return nil
	}
	return errors.NewCorruptFrameError(d.offset, fmt.Sprintf("truncated trailing frame (%d bytes)", len(d.buf)))
}
