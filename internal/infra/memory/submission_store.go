package memory

import (
	"context"
	"sort"
	"sync"

	"contest-service/internal/domain"
)

// SubmissionStore is an in-memory implementation of app.SubmissionStore for
// tests and single-node demo runs. It enforces the same one-record-per-team
// constraint a relational store would.
type SubmissionStore struct {
	mu      sync.RWMutex
	records map[domain.TeamIdentity]domain.SubmissionRecord
}

func NewSubmissionStore() *SubmissionStore {
	return &SubmissionStore{
		records: make(map[domain.TeamIdentity]domain.SubmissionRecord),
	}
}

func (s *SubmissionStore) FindByIdentity(_ context.Context, identity domain.TeamIdentity) (domain.SubmissionRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.records[identity]
	return record, ok, nil
}

func (s *SubmissionStore) Insert(_ context.Context, record domain.SubmissionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[record.TeamIdentity]; ok {
		return domain.ErrAlreadySubmitted
	}
	s.records[record.TeamIdentity] = record
	return nil
}

func (s *SubmissionStore) ListAll(_ context.Context) ([]domain.SubmissionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records := make([]domain.SubmissionRecord, 0, len(s.records))
	for _, record := range s.records {
		records = append(records, record)
	}
	sort.Slice(records, func(i, j int) bool {
		if records[i].Score != records[j].Score {
			return records[i].Score > records[j].Score
		}
		if !records[i].SubmittedAt.Equal(records[j].SubmittedAt) {
			return records[i].SubmittedAt.Before(records[j].SubmittedAt)
		}
		return records[i].TeamIdentity < records[j].TeamIdentity
	})
	return records, nil
}
