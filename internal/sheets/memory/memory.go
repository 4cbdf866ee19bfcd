package memory

import (
	"context"
	"sort"
	"sync"

	"townledger/internal/report"
)

// Sink keeps the last table written under each name.
type Sink struct {
	mu     sync.Mutex
	tables map[string]report.Table
	writes int
	err    error
}

func New() *Sink {
	return &Sink{tables: make(map[string]report.Table)}
}

// WriteTable stores a copy of t.
func (s *Sink) WriteTable(ctx context.Context, t report.Table) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	rows := make([][]string, len(t.Rows))
	for i, r := range t.Rows {
		rows[i] = append([]string(nil), r...)
	}
	s.tables[t.Name] = report.Table{
		Name:    t.Name,
		Columns: append([]string(nil), t.Columns...),
		Rows:    rows,
	}
	s.writes++
	return nil
}

// Fail makes every later write return err. Nil restores normal behavior.
func (s *Sink) Fail(err error) {
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
}

func (s *Sink) Table(name string) (report.Table, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tables[name]
	return t, ok
}

// Names returns the stored table names, sorted.
func (s *Sink) Names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.tables))
	for name := range s.tables {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func (s *Sink) Writes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}
