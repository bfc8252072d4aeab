package app

import (
	"sort"
	"sync"
	"time"

	"contest-service/internal/domain"
)

// SessionRegistry tracks which team identities are live on which presence
// connections. A team may hold at most one connection at a time: a join for
// an identity that is already active evicts the prior connection's entry and
// reports it so the transport can close the superseded socket.
type SessionRegistry struct {
	now func() time.Time

	mu          sync.RWMutex
	byConn      map[string]*sessionEntry
	byIdentity  map[domain.TeamIdentity]string
	subscribers map[chan []domain.ActiveTeam]struct{}
}

type sessionEntry struct {
	identity domain.TeamIdentity
	joinedAt time.Time
}

func NewSessionRegistry() *SessionRegistry {
	return NewSessionRegistryWithClock(time.Now)
}

// NewSessionRegistryWithClock allows deterministic timestamps in tests.
func NewSessionRegistryWithClock(now func() time.Time) *SessionRegistry {
	return &SessionRegistry{
		now:         now,
		byConn:      make(map[string]*sessionEntry),
		byIdentity:  make(map[domain.TeamIdentity]string),
		subscribers: make(map[chan []domain.ActiveTeam]struct{}),
	}
}

// Join normalizes the raw team name and records the connection as the
// identity's single live session. The returned evicted connection ID is
// non-empty when a prior connection for the same identity was replaced.
// Re-joining on the same connection under a new name releases the old
// identity first.
func (r *SessionRegistry) Join(connID, rawTeamName string) (domain.TeamIdentity, string, error) {
	identity, err := domain.NormalizeTeamName(rawTeamName)
	if err != nil {
		return "", "", err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if prev, ok := r.byConn[connID]; ok && prev.identity != identity {
		if r.byIdentity[prev.identity] == connID {
			delete(r.byIdentity, prev.identity)
		}
	}

	evicted := ""
	if other, ok := r.byIdentity[identity]; ok && other != connID {
		evicted = other
		delete(r.byConn, other)
	}

	r.byConn[connID] = &sessionEntry{identity: identity, joinedAt: r.now()}
	r.byIdentity[identity] = connID
	r.broadcastLocked()
	return identity, evicted, nil
}

// Leave removes the mapping for the connection only. Safe to call for
// unknown connections and safe to call repeatedly.
func (r *SessionRegistry) Leave(connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.byConn[connID]
	if !ok {
		return
	}
	delete(r.byConn, connID)
	if r.byIdentity[entry.identity] == connID {
		delete(r.byIdentity, entry.identity)
	}
	r.broadcastLocked()
}

// IsActive reports whether any connection is currently mapped to the identity.
func (r *SessionRegistry) IsActive(identity domain.TeamIdentity) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.byIdentity[identity]
	return ok
}

// ActiveConn returns the connection currently holding the identity, if any.
func (r *SessionRegistry) ActiveConn(identity domain.TeamIdentity) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	connID, ok := r.byIdentity[identity]
	return connID, ok
}

// Subscribe returns a channel that receives active-team snapshots on every
// registry change, starting with the current state. The caller must invoke
// the returned cancel function to avoid leaks.
func (r *SessionRegistry) Subscribe() (<-chan []domain.ActiveTeam, func()) {
	ch := make(chan []domain.ActiveTeam, 8)

	r.mu.Lock()
	r.subscribers[ch] = struct{}{}
	initial := r.snapshotLocked()
	r.mu.Unlock()

	ch <- initial

	cancel := func() {
		r.mu.Lock()
		if _, ok := r.subscribers[ch]; ok {
			delete(r.subscribers, ch)
			close(ch)
		}
		r.mu.Unlock()
	}
	return ch, cancel
}

func (r *SessionRegistry) broadcastLocked() {
	snapshot := r.snapshotLocked()
	for ch := range r.subscribers {
		select {
		case ch <- snapshot:
		default:
			// Drop the stale update so a slow subscriber cannot block the registry.
			select {
			case <-ch:
			default:
			}
			ch <- snapshot
		}
	}
}

func (r *SessionRegistry) snapshotLocked() []domain.ActiveTeam {
	teams := make([]domain.ActiveTeam, 0, len(r.byIdentity))
	for identity, connID := range r.byIdentity {
		entry := r.byConn[connID]
		if entry == nil {
			continue
		}
		teams = append(teams, domain.ActiveTeam{
			TeamIdentity: identity,
			ConnectionID: connID,
			JoinedAt:     entry.joinedAt,
		})
	}
	sort.Slice(teams, func(i, j int) bool {
		if !teams[i].JoinedAt.Equal(teams[j].JoinedAt) {
			return teams[i].JoinedAt.Before(teams[j].JoinedAt)
		}
		return teams[i].TeamIdentity < teams[j].TeamIdentity
	})
	return teams
}
