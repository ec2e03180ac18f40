package database

import (
	"context"
	"sort"
	"sync"

	"github.com/crawlscope/crawlscope/internal/analyzer"
)

// MemoryStore keeps reports in process memory. Used for tests and for
// running without any configured database.
type MemoryStore struct {
	mu      sync.RWMutex
	reports map[string]analyzer.AnalysisReport
}

// NewMemoryStore constructs an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{reports: make(map[string]analyzer.AnalysisReport)}
}

// Save stores the report, keyed by id.
func (s *MemoryStore) Save(_ context.Context, report analyzer.AnalysisReport) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reports[report.ID] = report
	return nil
}

// Get loads the full report by id.
func (s *MemoryStore) Get(_ context.Context, id string) (analyzer.AnalysisReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	report, ok := s.reports[id]
	if !ok {
		return analyzer.AnalysisReport{}, ErrReportNotFound
	}
	return report, nil
}

// List returns all stored reports in flat row form, newest first.
func (s *MemoryStore) List(_ context.Context) ([]analyzer.ReportRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows := make([]analyzer.ReportRow, 0, len(s.reports))
	for _, report := range s.reports {
		rows = append(rows, report.Row())
	}
	sort.Slice(rows, func(i, j int) bool {
		return rows[i].GeneratedAt.After(rows[j].GeneratedAt)
	})
	return rows, nil
}

// Close is a no-op.
func (s *MemoryStore) Close() error {
	return nil
}
