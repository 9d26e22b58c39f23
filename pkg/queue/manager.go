// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package queue

import (
	"sort"
	"sync"
)

// Manager lazily creates one Queue per game kind.
// Its lock only guards the lookup table and is never held while a queue is locked.
type Manager struct {
	mu     sync.RWMutex
	queues map[string]*Queue
}

func NewManager() *Manager {
	return &Manager{queues: make(map[string]*Queue)}
}

// Get returns the queue of the game kind, creating it on first use.
func (m *Manager) Get(gameKind string) *Queue {
	m.mu.RLock()
	q, ok := m.queues[gameKind]
	m.mu.RUnlock()
	if ok {
		return q
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if q, ok = m.queues[gameKind]; ok {
		return q
	}
	q = New(gameKind)
	m.queues[gameKind] = q
	return q
}

// Lookup returns the queue without creating it.
func (m *Manager) Lookup(gameKind string) (*Queue, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	q, ok := m.queues[gameKind]
	return q, ok
}

// Queues returns all queues sorted by game kind.
func (m *Manager) Queues() []*Queue {
	m.mu.RLock()
	queues := make([]*Queue, 0, len(m.queues))
	for _, q := range m.queues {
		queues = append(queues, q)
	}
	m.mu.RUnlock()

	sort.Slice(queues, func(i, j int) bool {
		return queues[i].gameKind < queues[j].gameKind
	})
	return queues
}

// DequeueEverywhere removes the player from every queue except the given game kind.
// Each queue is locked on its own, one after the other.
func (m *Manager) DequeueEverywhere(playerID string, exceptGameKind string) []string {
	var removed []string
	for _, q := range m.Queues() {
		if q.gameKind == exceptGameKind {
			continue
		}
		if q.Dequeue(playerID) {
			removed = append(removed, q.gameKind)
		}
	}
	return removed
}
