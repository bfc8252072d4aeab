package memory

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"contest-service/internal/domain"
)

func TestSubmissionStoreInsertAndFind(t *testing.T) {
	ctx := context.Background()
	store := NewSubmissionStore()

	if _, found, err := store.FindByIdentity(ctx, "team one"); err != nil || found {
		t.Fatalf("expected empty store, found=%v err=%v", found, err)
	}

	record := domain.SubmissionRecord{
		TeamIdentity: "team one",
		Answers:      json.RawMessage(`{"q1": "Netscape"}`),
		Score:        10,
		SubmittedAt:  time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	if err := store.Insert(ctx, record); err != nil {
		t.Fatalf("insert: %v", err)
	}

	got, found, err := store.FindByIdentity(ctx, "team one")
	if err != nil || !found {
		t.Fatalf("expected record, found=%v err=%v", found, err)
	}
	if got.Score != 10 || string(got.Answers) != `{"q1": "Netscape"}` {
		t.Fatalf("unexpected record %+v", got)
	}

	if err := store.Insert(ctx, record); !errors.Is(err, domain.ErrAlreadySubmitted) {
		t.Fatalf("expected ErrAlreadySubmitted, got %v", err)
	}
}

func TestSubmissionStoreListRankedByScore(t *testing.T) {
	ctx := context.Background()
	store := NewSubmissionStore()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	inserts := []domain.SubmissionRecord{
		{TeamIdentity: "mid", Score: 20, SubmittedAt: base.Add(2 * time.Minute)},
		{TeamIdentity: "top", Score: 40, SubmittedAt: base.Add(3 * time.Minute)},
		{TeamIdentity: "late-tie", Score: 20, SubmittedAt: base.Add(5 * time.Minute)},
		{TeamIdentity: "low", Score: 0, SubmittedAt: base},
	}
	for _, record := range inserts {
		record.Answers = json.RawMessage(`{}`)
		if err := store.Insert(ctx, record); err != nil {
			t.Fatalf("insert %s: %v", record.TeamIdentity, err)
		}
	}

	records, err := store.ListAll(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	want := []domain.TeamIdentity{"top", "mid", "late-tie", "low"}
	if len(records) != len(want) {
		t.Fatalf("expected %d records, got %d", len(want), len(records))
	}
	for i, identity := range want {
		if records[i].TeamIdentity != identity {
			t.Fatalf("position %d: expected %s, got %s", i, identity, records[i].TeamIdentity)
		}
	}
}
