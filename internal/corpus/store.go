package corpus

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"sync"
)

// Store returns the message records of a media, in stored order.
type Store interface {
	RecordsFor(ctx context.Context, mediaID int64) ([]MessageRecord, error)
}

// CSVStore reads message tables from the files named by an Index. Tables are
// cached after the first read until Invalidate is called.
type CSVStore struct {
	index *Index
	log   *slog.Logger

	mu    sync.Mutex
	cache map[int64][]MessageRecord
}

// NewCSVStore creates a store backed by the tables listed in index.
func NewCSVStore(index *Index, log *slog.Logger) *CSVStore {
	return &CSVStore{
		index: index,
		log:   log.With("component", "corpus_store"),
		cache: make(map[int64][]MessageRecord),
	}
}

// RecordsFor loads the table of mediaID. Unknown ids wrap ErrUnknownMedia.
func (s *CSVStore) RecordsFor(ctx context.Context, mediaID int64) ([]MessageRecord, error) {
	desc, err := s.index.Lookup(mediaID)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if cached, ok := s.cache[mediaID]; ok {
		return slices.Clone(cached), nil
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := os.Open(desc.Source)
	if err != nil {
		return nil, fmt.Errorf("failed to open table for media %d: %w", mediaID, err)
	}
	defer f.Close()

	records, err := ReadTable(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read table %s: %w", desc.Source, err)
	}

	s.log.DebugContext(ctx, "Loaded message table", "media_id", mediaID, "source", desc.Source, "records", len(records))
	s.cache[mediaID] = records

	return slices.Clone(records), nil
}

// Reload rereads the index file and drops every cached table, so media
// imported since the last load become visible.
func (s *CSVStore) Reload() error {
	if err := s.index.Reload(); err != nil {
		return err
	}
	s.mu.Lock()
	s.cache = make(map[int64][]MessageRecord)
	s.mu.Unlock()
	return nil
}

// MemoryStore serves records held in memory.
type MemoryStore struct {
	index  *Index
	tables map[int64][]MessageRecord
}

// NewMemoryStore creates a store over tables, keyed by media id. Ids missing
// from index are still unknown even when a table is present.
func NewMemoryStore(index *Index, tables map[int64][]MessageRecord) *MemoryStore {
	return &MemoryStore{index: index, tables: tables}
}

// RecordsFor returns the table of mediaID.
func (s *MemoryStore) RecordsFor(_ context.Context, mediaID int64) ([]MessageRecord, error) {
	if _, err := s.index.Lookup(mediaID); err != nil {
		return nil, err
	}
	return slices.Clone(s.tables[mediaID]), nil
}
