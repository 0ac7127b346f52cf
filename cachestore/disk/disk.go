/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package disk

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"

	"github.com/suparena/tablecache/errors"
	"github.com/suparena/tablecache/scanmodels"
)

// Store is the on-disk cache strategy. Each key owns two artifacts under the
// store directory: <key>.json (metadata + schema sidecar) and <key>.bin (the
// framed batch payload). The sidecar is written only after the payload
// completes, so a sidecar never points at an unfinished binary.
type Store struct {
	dir string

	mu     sync.Mutex
	writes map[string]chan struct{}
}

// New creates a disk store rooted at dir, creating the directory if needed.
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	return &Store{dir: dir, writes: make(map[string]chan struct{})}, nil
}

// sidecar is the JSON layout of <key>.json.
type sidecar struct {
	Metadata scanmodels.CacheMetadata `json:"metadata"`
	Schema   scanmodels.TableSchema   `json:"schema"`
}

// frame is the JSON layout of one binary payload frame.
type frame struct {
	Index   int                 `json:"index"`
	Segment int32               `json:"segment"`
	Meta    scanmodels.ScanMeta `json:"meta"`
	Items   []map[string]any    `json:"items,omitempty"`
}

func (s *Store) jsonPath(key string) string {
	return filepath.Join(s.dir, key+".json")
}

func (s *Store) binPath(key string) string {
	return filepath.Join(s.dir, key+".bin")
}

// beginWrite registers the single in-flight write for key, waiting out any
// writer already holding it. The returned release must be called when the
// write finishes.
func (s *Store) beginWrite(key string) (release func()) {
	s.mu.Lock()
	for {
		ch, busy := s.writes[key]
		if !busy {
			break
		}
		s.mu.Unlock()
		<-ch
		s.mu.Lock()
	}
	ch := make(chan struct{})
	s.writes[key] = ch
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.writes, key)
		s.mu.Unlock()
		close(ch)
	}
}

// awaitWrite blocks until no write is in flight for key.
func (s *Store) awaitWrite(ctx context.Context, key string) error {
	s.mu.Lock()
	ch := s.writes[key]
	s.mu.Unlock()
	if ch == nil {
		return nil
	}
	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Set stages a new export under key. The prior entry is cleared first; the
// payload is streamed frame by frame as the extract is consumed, and the
// sidecar lands only once the stream completed cleanly. An in-band error
// batch aborts the write and removes the partial payload.
func (s *Store) Set(ctx context.Context, key string, data *scanmodels.StagedCacheData) error {
	release := s.beginWrite(key)
	defer release()

	if err := s.removeArtifacts(key); err != nil {
		return err
	}

	binPath := s.binPath(key)
	f, err := os.Create(binPath)
	if err != nil {
		return fmt.Errorf("create cache payload: %w", err)
	}

	w := bufio.NewWriterSize(f, readChunkSize)

	abort := func(cause error) error {
		f.Close()
		os.Remove(binPath)
		return cause
	}

	for batch := range data.Extract(ctx) {
		if batch.Error != nil {
			return abort(fmt.Errorf("staging aborted: %w", batch.Error))
		}
		if err := ctx.Err(); err != nil {
			return abort(err)
		}
		payload, err := json.Marshal(frame{
			Index:   batch.Index,
			Segment: batch.Segment,
			Meta:    batch.Meta,
			Items:   batch.Items,
		})
		if err != nil {
			return abort(fmt.Errorf("encode batch: %w", err))
		}
		if err := writeFrame(w, payload); err != nil {
			return abort(err)
		}
	}
	if err := ctx.Err(); err != nil {
		return abort(err)
	}

	if err := w.Flush(); err != nil {
		return abort(fmt.Errorf("flush cache payload: %w", err))
	}
	if err := f.Close(); err != nil {
		os.Remove(binPath)
		return fmt.Errorf("finish cache payload: %w", err)
	}

	raw, err := json.Marshal(sidecar{Metadata: data.Metadata, Schema: data.Schema})
	if err != nil {
		os.Remove(binPath)
		return fmt.Errorf("encode sidecar: %w", err)
	}
	if err := os.WriteFile(s.jsonPath(key), raw, 0o644); err != nil {
		os.Remove(binPath)
		return fmt.Errorf("write sidecar: %w", err)
	}
	return nil
}

// Get loads the staged entry for key. A missing or unreadable sidecar is a
// clean miss. The returned Extract opens the payload lazily and decodes it
// incrementally; each invocation is an independent pass.
func (s *Store) Get(ctx context.Context, key string) (*scanmodels.StagedCacheData, error) {
	if err := s.awaitWrite(ctx, key); err != nil {
		return nil, err
	}

	raw, err := os.ReadFile(s.jsonPath(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read sidecar: %w", err)
	}

	var sc sidecar
	if err := json.Unmarshal(raw, &sc); err != nil {
		// Unreadable sidecar: treat as a miss, not a failure.
		return nil, nil
	}

	binPath := s.binPath(key)
	data := &scanmodels.StagedCacheData{
		Metadata: sc.Metadata,
		Schema:   sc.Schema,
	}
	data.Extract = func(ctx context.Context) <-chan scanmodels.ScanBatch {
		ch := make(chan scanmodels.ScanBatch)
		go replay(ctx, binPath, ch)
		return ch
	}
	return data, nil
}

// Clear removes both artifacts for key, best-effort.
func (s *Store) Clear(ctx context.Context, key string) error {
	release := s.beginWrite(key)
	defer release()
	return s.removeArtifacts(key)
}

func (s *Store) removeArtifacts(key string) error {
	for _, path := range []string{s.jsonPath(key), s.binPath(key)} {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("remove %s: %w", path, err)
		}
	}
	return nil
}

// replay streams the framed payload into ch. Undecodable frame payloads are
// reported in-band and replay continues; a corrupt header or truncated
// trailing fragment ends the pass with one localized error.
func replay(ctx context.Context, binPath string, ch chan<- scanmodels.ScanBatch) {
	defer close(ch)

	send := func(batch scanmodels.ScanBatch) bool {
		select {
		case ch <- batch:
			return true
		case <-ctx.Done():
			return false
		}
	}

	f, err := os.Open(binPath)
	if err != nil {
		send(scanmodels.ScanBatch{Error: fmt.Errorf("open cache payload: %w", err)})
		return
	}
	defer f.Close()

	var dec frameDecoder
	chunk := make([]byte, readChunkSize)
	for {
		n, readErr := f.Read(chunk)
		if n > 0 {
			dec.feed(chunk[:n])
		}

		for {
			payload, err := dec.next()
			if err != nil {
				send(scanmodels.ScanBatch{Error: err})
				return
			}
			if payload == nil {
				break
			}
			var fr frame
			if err := json.Unmarshal(payload, &fr); err != nil {
				// Localized decode failure; later frames may still be good.
				log.Printf("tablecache: skipping corrupt cache frame: %v",
					errors.NewCorruptFrameError(dec.offset, err.Error()))
				continue
			}
			if !send(scanmodels.ScanBatch{
				Index:   fr.Index,
				Segment: fr.Segment,
				Meta:    fr.Meta,
				Items:   fr.Items,
			}) {
				return
			}
		}

		if readErr == io.EOF {
			if err := dec.trailing(); err != nil {
				send(scanmodels.ScanBatch{Error: err})
			}
			return
		}
		if readErr != nil {
			send(scanmodels.ScanBatch{Error: fmt.Errorf("read cache payload: %w", readErr)})
			return
		}
	}
}
