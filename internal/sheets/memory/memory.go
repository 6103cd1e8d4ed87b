// Package memory is a ReportWriter that keeps appended rows in process, for
// development without a spreadsheet and for tests.
package memory

import (
	"context"
	"fmt"
	"sync"

	ports "bizdash/internal/sheets"
)

type Store struct {
	mu     sync.Mutex
	blocks [][][]any
	fail   error
}

var _ ports.ReportWriter = (*Store)(nil)

func New() *Store {
	return &Store{}
}

// FailWith makes every following append return err. Nil clears it.
func (s *Store) FailWith(err error) {
	s.mu.Lock()
	s.fail = err
	s.mu.Unlock()
}

// AppendRows stores a copy of rows and returns a synthetic block reference.
func (s *Store) AppendRows(_ context.Context, rows [][]any) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return "", s.fail
	}
	block := make([][]any, len(rows))
	for i, r := range rows {
		block[i] = append([]any(nil), r...)
	}
	s.blocks = append(s.blocks, block)
	return fmt.Sprintf("mem:%d", len(s.blocks)), nil
}

// Blocks returns every appended block in order.
func (s *Store) Blocks() [][][]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([][][]any(nil), s.blocks...)
}
