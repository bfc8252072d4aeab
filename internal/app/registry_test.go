package app

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"contest-service/internal/domain"
)

func TestJoinLeaveIsActive(t *testing.T) {
	registry := NewSessionRegistry()

	identity, evicted, err := registry.Join("connA", "Team One")
	if err != nil {
		t.Fatalf("join: %v", err)
	}
	if identity != "team one" || evicted != "" {
		t.Fatalf("expected normalized identity without eviction, got %q evicted=%q", identity, evicted)
	}
	if !registry.IsActive("team one") {
		t.Fatalf("expected team one active after join")
	}

	registry.Leave("connA")
	if registry.IsActive("team one") {
		t.Fatalf("expected team one inactive after leave")
	}
	// Leave must be safe to repeat and safe for unknown connections.
	registry.Leave("connA")
	registry.Leave("never-joined")
}

func TestJoinRejectsShortNames(t *testing.T) {
	registry := NewSessionRegistry()
	if _, _, err := registry.Join("connA", "ab"); !errors.Is(err, domain.ErrInvalidTeamName) {
		t.Fatalf("expected ErrInvalidTeamName, got %v", err)
	}
	if registry.IsActive("ab") {
		t.Fatalf("rejected join must not register anything")
	}
}

func TestJoinEvictsPriorConnectionForSameIdentity(t *testing.T) {
	registry := NewSessionRegistry()

	if _, _, err := registry.Join("connA", "Alpha"); err != nil {
		t.Fatalf("join A: %v", err)
	}
	identity, evicted, err := registry.Join("connB", "  ALPHA ")
	if err != nil {
		t.Fatalf("join B: %v", err)
	}
	if identity != "alpha" || evicted != "connA" {
		t.Fatalf("expected connA evicted for alpha, got identity=%q evicted=%q", identity, evicted)
	}
	if conn, ok := registry.ActiveConn("alpha"); !ok || conn != "connB" {
		t.Fatalf("expected connB to hold alpha, got %q ok=%v", conn, ok)
	}

	// The evicted connection's leave must not disturb the new session.
	registry.Leave("connA")
	if !registry.IsActive("alpha") {
		t.Fatalf("expected alpha still active under connB")
	}
	registry.Leave("connB")
	if registry.IsActive("alpha") {
		t.Fatalf("expected alpha released")
	}
}

func TestRejoinSameConnectionSwitchesIdentity(t *testing.T) {
	registry := NewSessionRegistry()

	if _, _, err := registry.Join("connA", "Alpha"); err != nil {
		t.Fatalf("join alpha: %v", err)
	}
	if _, _, err := registry.Join("connA", "Beta"); err != nil {
		t.Fatalf("join beta: %v", err)
	}
	if registry.IsActive("alpha") {
		t.Fatalf("expected alpha released after the connection switched teams")
	}
	if !registry.IsActive("beta") {
		t.Fatalf("expected beta active")
	}
}

func TestConcurrentJoinsAndLeaves(t *testing.T) {
	registry := NewSessionRegistry()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			connID := fmt.Sprintf("conn-%d", i)
			if _, _, err := registry.Join(connID, fmt.Sprintf("Team %02d", i)); err != nil {
				t.Errorf("join %d: %v", i, err)
			}
			if i%2 == 0 {
				registry.Leave(connID)
			}
		}(i)
	}
	wg.Wait()

	for i := 0; i < 50; i++ {
		identity := domain.TeamIdentity(fmt.Sprintf("team %02d", i))
		if active := registry.IsActive(identity); active != (i%2 == 1) {
			t.Fatalf("team %02d: expected active=%v, got %v", i, i%2 == 1, active)
		}
	}
}

func TestSubscribeReceivesSnapshots(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	step := 0
	registry := NewSessionRegistryWithClock(func() time.Time {
		step++
		return base.Add(time.Duration(step) * time.Second)
	})

	updates, cancel := registry.Subscribe()
	defer cancel()

	initial := <-updates
	if len(initial) != 0 {
		t.Fatalf("expected empty initial snapshot, got %+v", initial)
	}

	if _, _, err := registry.Join("connA", "Alpha"); err != nil {
		t.Fatalf("join: %v", err)
	}
	snapshot := <-updates
	if len(snapshot) != 1 || snapshot[0].TeamIdentity != "alpha" || snapshot[0].ConnectionID != "connA" {
		t.Fatalf("expected alpha snapshot, got %+v", snapshot)
	}

	registry.Leave("connA")
	snapshot = <-updates
	if len(snapshot) != 0 {
		t.Fatalf("expected empty snapshot after leave, got %+v", snapshot)
	}
}

func TestSnapshotOrderedByJoinTime(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	step := 0
	registry := NewSessionRegistryWithClock(func() time.Time {
		step++
		return base.Add(time.Duration(step) * time.Second)
	})

	for _, join := range []struct{ conn, name string }{
		{"c1", "Zebra"}, {"c2", "Apple"}, {"c3", "Mango"},
	} {
		if _, _, err := registry.Join(join.conn, join.name); err != nil {
			t.Fatalf("join %s: %v", join.name, err)
		}
	}

	updates, cancel := registry.Subscribe()
	defer cancel()
	snapshot := <-updates
	if len(snapshot) != 3 {
		t.Fatalf("expected 3 teams, got %d", len(snapshot))
	}
	if snapshot[0].TeamIdentity != "zebra" || snapshot[1].TeamIdentity != "apple" || snapshot[2].TeamIdentity != "mango" {
		t.Fatalf("expected join order, got %+v", snapshot)
	}
}
