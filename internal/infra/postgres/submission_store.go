package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"contest-service/internal/domain"
	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

const uniqueViolationCode = "23505"

// SubmissionStore persists submissions in Postgres. The primary key on
// team_identity is the authoritative first-writer-wins arbiter for the
// one-submission-per-team rule.
type SubmissionStore struct {
	pool *pgxpool.Pool
}

func NewSubmissionStore(pool *pgxpool.Pool) *SubmissionStore {
	return &SubmissionStore{pool: pool}
}

func (s *SubmissionStore) FindByIdentity(ctx context.Context, identity domain.TeamIdentity) (domain.SubmissionRecord, bool, error) {
	record := domain.SubmissionRecord{TeamIdentity: identity}
	var answers []byte
	err := s.pool.QueryRow(ctx,
		`SELECT answers, score, submitted_at FROM submissions WHERE team_identity=$1`,
		string(identity),
	).Scan(&answers, &record.Score, &record.SubmittedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.SubmissionRecord{}, false, nil
	}
	if err != nil {
		return domain.SubmissionRecord{}, false, fmt.Errorf("find submission: %w", err)
	}
	record.Answers = json.RawMessage(answers)
	return record, true, nil
}

func (s *SubmissionStore) Insert(ctx context.Context, record domain.SubmissionRecord) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO submissions (team_identity, answers, score, submitted_at) VALUES ($1, $2, $3, $4)`,
		string(record.TeamIdentity), []byte(record.Answers), record.Score, record.SubmittedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
			return domain.ErrAlreadySubmitted
		}
		return fmt.Errorf("insert submission: %w", err)
	}
	return nil
}

func (s *SubmissionStore) ListAll(ctx context.Context) ([]domain.SubmissionRecord, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT team_identity, answers, score, submitted_at FROM submissions
		 ORDER BY score DESC, submitted_at ASC, team_identity ASC`)
	if err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}
	defer rows.Close()

	var records []domain.SubmissionRecord
	for rows.Next() {
		var record domain.SubmissionRecord
		var identity string
		var answers []byte
		if err := rows.Scan(&identity, &answers, &record.Score, &record.SubmittedAt); err != nil {
			return nil, fmt.Errorf("scan submission: %w", err)
		}
		record.TeamIdentity = domain.TeamIdentity(identity)
		record.Answers = json.RawMessage(answers)
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}
	return records, nil
}
