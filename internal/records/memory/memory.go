package memory

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"cantine/internal/core"
)

//go:embed sample.json
var sampleJSON []byte

// Store keeps records in a map keyed by date.
type Store struct {
	mu    sync.Mutex
	items map[string]core.DailyRecord
	seed  []core.DailyRecord
}

// New returns a store holding a copy of seed.
func New(seed []core.DailyRecord) *Store {
	s := &Store{seed: cloneAll(seed)}
	s.load()
	return s
}

// NewFromFile seeds the store from a JSON array of records. An empty path
// loads the bundled sample days.
func NewFromFile(path string) (*Store, error) {
	data := sampleJSON
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read seed file: %w", err)
		}
		data = b
	}
	seed, err := DecodeSeed(data)
	if err != nil {
		return nil, err
	}
	return New(seed), nil
}

// DecodeSeed parses a JSON array of records and fills in derived fields.
// Records with an invalid date or value are rejected.
func DecodeSeed(data []byte) ([]core.DailyRecord, error) {
	var seed []core.DailyRecord
	if err := json.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("decode seed: %w", err)
	}
	for i := range seed {
		if err := seed[i].Validate(); err != nil {
			return nil, fmt.Errorf("seed record %d: %w", i, err)
		}
		seed[i].Derive()
	}
	return seed, nil
}

func (s *Store) load() {
	s.items = make(map[string]core.DailyRecord, len(s.seed))
	for _, r := range s.seed {
		s.items[r.Date] = r.Clone()
	}
}

func (s *Store) ListRecords(_ context.Context) ([]core.DailyRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.DailyRecord, 0, len(s.items))
	for _, r := range s.items {
		out = append(out, r.Clone())
	}
	core.SortByDate(out)
	return out, nil
}

func (s *Store) Get(_ context.Context, date string) (core.DailyRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.items[date]
	if !ok {
		return core.DailyRecord{}, fmt.Errorf("record %s: %w", date, core.ErrNotFound)
	}
	return r.Clone(), nil
}

func (s *Store) Upsert(_ context.Context, rec core.DailyRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[rec.Date] = rec.Clone()
	return nil
}

func (s *Store) Delete(_ context.Context, date string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[date]; !ok {
		return fmt.Errorf("record %s: %w", date, core.ErrNotFound)
	}
	delete(s.items, date)
	return nil
}

func (s *Store) Rename(_ context.Context, oldDate string, rec core.DailyRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[oldDate]; !ok {
		return fmt.Errorf("record %s: %w", oldDate, core.ErrNotFound)
	}
	if rec.Date != oldDate {
		if _, taken := s.items[rec.Date]; taken {
			return fmt.Errorf("record %s: %w", rec.Date, core.ErrConflict)
		}
		delete(s.items, oldDate)
	}
	s.items[rec.Date] = rec.Clone()
	return nil
}

// Reset discards every change and restores the seed records.
func (s *Store) Reset(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.load()
	return nil
}

func cloneAll(in []core.DailyRecord) []core.DailyRecord {
	out := make([]core.DailyRecord, len(in))
	for i := range in {
		out[i] = in[i].Clone()
	}
	return out
}
