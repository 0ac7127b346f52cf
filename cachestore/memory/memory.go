/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

// Package memory provides an in-memory CacheStrategy, mainly for testing.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/suparena/tablecache/scanmodels"
)

// entry is one materialized generation.
type entry struct {
	metadata scanmodels.CacheMetadata
	schema   scanmodels.TableSchema
	batches  []scanmodels.ScanBatch
}

// Store keeps staged exports in memory, fully materialized. It honors the
// same single-generation and in-band-error contracts as the disk store.
type Store struct {
	mu       sync.RWMutex
	data     map[string]*entry
	setError error
	getError error
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{data: make(map[string]*entry)}
}

// WithSetError makes Set operations return an error
func (s *Store) WithSetError(err error) *Store {
	s.setError = err
	return s
}

// WithGetError makes Get operations return an error
func (s *Store) WithGetError(err error) *Store {
	s.getError = err
	return s
}

// Len returns the number of staged entries.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}

// Get returns a copy of the staged entry whose Extract replays the
// materialized batches.
func (s *Store) Get(ctx context.Context, key string) (*scanmodels.StagedCacheData, error) {
	if s.getError != nil {
		return nil, s.getError
	}

	s.mu.RLock()
	e, exists := s.data[key]
	s.mu.RUnlock()
	if !exists {
		return nil, nil
	}

	batches := e.batches
	data := &scanmodels.StagedCacheData{
		Metadata: e.metadata,
		Schema:   e.schema,
	}
	data.Extract = func(ctx context.Context) <-chan scanmodels.ScanBatch {
		ch := make(chan scanmodels.ScanBatch)
		go func() {
			defer close(ch)
			for _, b := range batches {
				select {
				case ch <- b:
				case <-ctx.Done():
					return
				}
			}
		}()
		return ch
	}
	return data, nil
}

// Set drains the extract into memory, replacing any prior generation only on
// clean completion.
func (s *Store) Set(ctx context.Context, key string, data *scanmodels.StagedCacheData) error {
	if s.setError != nil {
		// Still drain so lockstep producers are not wedged by a broken sink.
		for range data.Extract(ctx) {
		}
		return s.setError
	}

	e := &entry{metadata: data.Metadata, schema: data.Schema}
	for batch := range data.Extract(ctx) {
		if batch.Error != nil {
			return fmt.Errorf("staging aborted: %w", batch.Error)
		}
		e.batches = append(e.batches, batch)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	s.data[key] = e
	s.mu.Unlock()
	return nil
}

// Clear drops the entry for key; missing keys are fine.
func (s *Store) Clear(ctx context.Context, key string) error {
	s.mu.Lock()
	delete(s.data, key)
	s.mu.Unlock()
	return nil
}
