// Package memory is an in-process stand-in for the seed spreadsheet.
package memory

import (
	"context"
	"sync"

	"lifedash/internal/core"
	"lifedash/internal/sheets"
)

type Store struct {
	mu     sync.Mutex
	habits [][]any
	mental [][]any
	reads  int
}

var _ sheets.SeedReader = (*Store)(nil)

// New holds habit rows of (name, goal) and one metric name per mental row.
func New(habits, mental [][]any) *Store {
	s := &Store{}
	s.SetRows(habits, mental)
	return s
}

// SetRows replaces the sheet content.
func (s *Store) SetRows(habits, mental [][]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.habits = cloneRows(habits)
	s.mental = cloneRows(mental)
}

// ReadSeed parses the current rows.
func (s *Store) ReadSeed(_ context.Context) (core.Seed, error) {
	s.mu.Lock()
	habits, mental := cloneRows(s.habits), cloneRows(s.mental)
	s.reads++
	s.mu.Unlock()
	return sheets.ParseSeed(habits, mental)
}

// Reads reports how many times the seed was read.
func (s *Store) Reads() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reads
}

func cloneRows(rows [][]any) [][]any {
	out := make([][]any, len(rows))
	for i, row := range rows {
		out[i] = append([]any(nil), row...)
	}
	return out
}
