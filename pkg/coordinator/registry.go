// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package coordinator

import (
	"sort"
	"sync"

	"github.com/AccelByte/extend-ranked-matchmaker/pkg/session"
)

// registry tracks the active sessions and which player plays where.
// Its lock is a leaf: nothing else is locked while holding it.
type registry struct {
	mu       sync.Mutex
	sessions map[string]*session.Session
	byPlayer map[string]*session.Session
}

func newRegistry() *registry {
	return &registry{
		sessions: make(map[string]*session.Session),
		byPlayer: make(map[string]*session.Session),
	}
}

// reserve registers the session for both players, or nothing if either is busy.
// It returns the busy player on failure.
func (r *registry) reserve(s *session.Session) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	players := s.Players()
	for _, playerID := range players {
		if _, busy := r.byPlayer[playerID]; busy {
			return playerID, false
		}
	}
	r.sessions[s.ID()] = s
	for _, playerID := range players {
		r.byPlayer[playerID] = s
	}
	return "", true
}

func (r *registry) busy(playerID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.byPlayer[playerID]
	return ok
}

func (r *registry) get(sessionID string) (*session.Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[sessionID]
	return s, ok
}

func (r *registry) sessionOf(playerID string) (*session.Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.byPlayer[playerID]
	return s, ok
}

func (r *registry) remove(s *session.Session) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.sessions[s.ID()] == s {
		delete(r.sessions, s.ID())
	}
	for _, playerID := range s.Players() {
		if r.byPlayer[playerID] == s {
			delete(r.byPlayer, playerID)
		}
	}
}

// all returns the active sessions ordered by id.
func (r *registry) all() []*session.Session {
	r.mu.Lock()
	sessions := make([]*session.Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		sessions = append(sessions, s)
	}
	r.mu.Unlock()

	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].ID() < sessions[j].ID()
	})
	return sessions
}

func (r *registry) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}
