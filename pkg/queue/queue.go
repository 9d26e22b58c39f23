// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

// Package queue holds the per game kind matchmaking queues.
// Every queue owns its own lock, so traffic on one game kind never waits on another.
package queue

import (
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/AccelByte/extend-ranked-matchmaker/pkg/models"
	"gonum.org/v1/gonum/stat"
)

// Queue is the FIFO waiting list of one game kind.
type Queue struct {
	mu       sync.Mutex
	gameKind string
	entries  []models.QueueEntry // ordered by EnqueuedAt, oldest first
}

func New(gameKind string) *Queue {
	return &Queue{gameKind: gameKind}
}

func (q *Queue) GameKind() string {
	return q.gameKind
}

// Enqueue inserts the entry, failing with models.ErrAlreadyQueued on a duplicate player.
func (q *Queue) Enqueue(entry models.QueueEntry) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.enqueue(entry)
}

// Dequeue removes the player's entry. Removing an absent player is not an error.
func (q *Queue) Dequeue(playerID string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.remove(playerID)
}

// Snapshot returns a point-in-time copy of the entries, oldest first.
func (q *Queue) Snapshot() []models.QueueEntry {
	q.mu.Lock()
	defer q.mu.Unlock()
	return slices.Clone(q.entries)
}

func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries)
}

// Position returns the 1-based FIFO position of the player.
func (q *Queue) Position(playerID string) (int, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.position(playerID)
}

func (q *Queue) Stats(now time.Time) models.QueueStats {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.stats(now)
}

// Atomically runs fn while holding the queue lock. fn must not block or do I/O.
func (q *Queue) Atomically(fn func(tx *Txn) error) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	return fn(&Txn{q: q})
}

func (q *Queue) enqueue(entry models.QueueEntry) error {
	if entry.GameKind != q.gameKind {
		return fmt.Errorf("entry for %q enqueued on %q: %w", entry.GameKind, q.gameKind, models.ErrInvalidRequest)
	}
	if _, ok := q.position(entry.PlayerID); ok {
		return models.ErrAlreadyQueued
	}

	// keep FIFO order even when the clock hands out equal or earlier timestamps
	idx := sort.Search(len(q.entries), func(i int) bool {
		return q.entries[i].EnqueuedAt.After(entry.EnqueuedAt)
	})
	q.entries = slices.Insert(q.entries, idx, entry)

	return nil
}

func (q *Queue) remove(playerID string) bool {
	idx := slices.IndexFunc(q.entries, func(e models.QueueEntry) bool { return e.PlayerID == playerID })
	if idx < 0 {
		return false
	}
	q.entries = slices.Delete(q.entries, idx, idx+1)
	return true
}

func (q *Queue) position(playerID string) (int, bool) {
	idx := slices.IndexFunc(q.entries, func(e models.QueueEntry) bool { return e.PlayerID == playerID })
	if idx < 0 {
		return 0, false
	}
	return idx + 1, true
}

func (q *Queue) stats(now time.Time) models.QueueStats {
	if len(q.entries) == 0 {
		return models.QueueStats{}
	}
	waits := make([]float64, len(q.entries))
	for i, entry := range q.entries {
		waits[i] = float64(entry.WaitTime(now))
	}
	return models.QueueStats{
		Players: len(q.entries),
		AvgWait: time.Duration(stat.Mean(waits, nil)),
	}
}

// Txn is a view of a locked queue, valid only inside Atomically.
type Txn struct {
	q *Queue
}

// SnapshotInto appends the current entries to buf, so the caller can reuse pooled buffers.
func (tx *Txn) SnapshotInto(buf []models.QueueEntry) []models.QueueEntry {
	return append(buf, tx.q.entries...)
}

func (tx *Txn) Enqueue(entry models.QueueEntry) error {
	return tx.q.enqueue(entry)
}

func (tx *Txn) Remove(playerID string) bool {
	return tx.q.remove(playerID)
}

func (tx *Txn) Contains(playerID string) bool {
	_, ok := tx.q.position(playerID)
	return ok
}

func (tx *Txn) Position(playerID string) (int, bool) {
	return tx.q.position(playerID)
}

func (tx *Txn) Stats(now time.Time) models.QueueStats {
	return tx.q.stats(now)
}

func (tx *Txn) Len() int {
	return len(tx.q.entries)
}
