package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"contest-service/internal/domain"
)

// SubmissionStore is the durable, authoritative record of submissions. Its
// uniqueness constraint on team identity is the single arbiter of "first
// writer wins"; Insert must report a duplicate as domain.ErrAlreadySubmitted.
type SubmissionStore interface {
	FindByIdentity(ctx context.Context, identity domain.TeamIdentity) (domain.SubmissionRecord, bool, error)
	Insert(ctx context.Context, record domain.SubmissionRecord) error
	ListAll(ctx context.Context) ([]domain.SubmissionRecord, error)
}

// ContestService coordinates the contest use cases: presence, validation,
// the single graded submission per team, and the admin views.
type ContestService struct {
	registry  *SessionRegistry
	store     SubmissionStore
	questions *QuestionSource
	now       func() time.Time
}

func NewContestService(registry *SessionRegistry, store SubmissionStore, questions *QuestionSource) *ContestService {
	return NewContestServiceWithClock(registry, store, questions, time.Now)
}

// NewContestServiceWithClock allows deterministic timestamps in tests.
func NewContestServiceWithClock(registry *SessionRegistry, store SubmissionStore, questions *QuestionSource, now func() time.Time) *ContestService {
	return &ContestService{registry: registry, store: store, questions: questions, now: now}
}

// ValidateTeam checks whether a team may start the contest. The check is
// advisory for the client UI; the store's uniqueness constraint at submit
// time remains the enforcement point. selfConn, when non-empty, excludes the
// requester's own prior join from the active-elsewhere check.
func (s *ContestService) ValidateTeam(ctx context.Context, rawTeamName, selfConn string) error {
	identity, err := domain.NormalizeTeamName(rawTeamName)
	if err != nil {
		return err
	}

	// Authoritative check against the durable store, not the registry, so a
	// restart cannot forget a prior submission.
	_, found, err := s.store.FindByIdentity(ctx, identity)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}
	if found {
		return domain.ErrAlreadySubmitted
	}

	if connID, ok := s.registry.ActiveConn(identity); ok && connID != selfConn {
		return domain.ErrActiveElsewhere
	}
	return nil
}

// Submit grades the raw answer document and persists exactly one record for
// the team. A concurrent duplicate loses at the store's uniqueness constraint
// and is reported as domain.ErrAlreadySubmitted regardless of any earlier
// validation. The answer document is stored verbatim; a document that is not
// a question-keyed object simply grades to zero rather than failing.
func (s *ContestService) Submit(ctx context.Context, rawTeamName string, rawAnswers json.RawMessage) (int, error) {
	identity, err := domain.NormalizeTeamName(rawTeamName)
	if err != nil {
		return 0, err
	}

	cfg, err := s.questions.Current()
	if err != nil {
		return 0, err
	}

	if len(rawAnswers) == 0 {
		rawAnswers = json.RawMessage(`{}`)
	}
	var answers domain.AnswerSet
	if err := json.Unmarshal(rawAnswers, &answers); err != nil {
		answers = domain.AnswerSet{}
	}
	score := domain.Grade(answers, cfg)

	record := domain.SubmissionRecord{
		TeamIdentity: identity,
		Answers:      rawAnswers,
		Score:        score,
		SubmittedAt:  s.now().UTC(),
	}
	if err := s.store.Insert(ctx, record); err != nil {
		if errors.Is(err, domain.ErrAlreadySubmitted) {
			return 0, err
		}
		return 0, fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}
	return score, nil
}

// Questions returns the current question list without answer material.
func (s *ContestService) Questions() ([]domain.QuestionSummary, error) {
	cfg, err := s.questions.Current()
	if err != nil {
		return nil, err
	}
	return cfg.Summaries(), nil
}

// Submissions returns all durable submissions ranked by score for admins.
func (s *ContestService) Submissions(ctx context.Context) ([]domain.SubmissionRecord, error) {
	records, err := s.store.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}
	return records, nil
}

// JoinPresence records a live session for the team. The returned evicted
// connection, if any, should be closed by the transport.
func (s *ContestService) JoinPresence(connID, rawTeamName string) (domain.TeamIdentity, string, error) {
	return s.registry.Join(connID, rawTeamName)
}

// LeavePresence drops the connection's session, if it has one. A disconnect
// arriving after the team submitted simply removes the registry entry.
func (s *ContestService) LeavePresence(connID string) {
	s.registry.Leave(connID)
}

// WatchPresence subscribes to active-team snapshots for admin views.
func (s *ContestService) WatchPresence() (<-chan []domain.ActiveTeam, func()) {
	return s.registry.Subscribe()
}

// ReloadConfig re-fetches the question config, keeping the prior config on
// failure.
func (s *ContestService) ReloadConfig(ctx context.Context) error {
	return s.questions.Reload(ctx)
}
