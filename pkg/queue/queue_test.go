// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package queue

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/AccelByte/extend-ranked-matchmaker/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func entry(playerID string, rating int, at time.Time) models.QueueEntry {
	return models.QueueEntry{PlayerID: playerID, GameKind: "duel", Rating: rating, EnqueuedAt: at}
}

func TestQueue_EnqueueRejectsDuplicate(t *testing.T) {
	t.Parallel()
	q := New("duel")
	now := time.Now()

	require.NoError(t, q.Enqueue(entry("a", 1200, now)))
	err := q.Enqueue(entry("a", 1300, now.Add(time.Second)))
	assert.ErrorIs(t, err, models.ErrAlreadyQueued)
	assert.Equal(t, 1, q.Len())
}

func TestQueue_EnqueueRejectsOtherGameKind(t *testing.T) {
	t.Parallel()
	q := New("duel")
	err := q.Enqueue(models.QueueEntry{PlayerID: "a", GameKind: "chess"})
	assert.ErrorIs(t, err, models.ErrInvalidRequest)
}

func TestQueue_DequeueIsIdempotent(t *testing.T) {
	t.Parallel()
	q := New("duel")
	require.NoError(t, q.Enqueue(entry("a", 1200, time.Now())))

	assert.True(t, q.Dequeue("a"))
	assert.False(t, q.Dequeue("a"))
	assert.False(t, q.Dequeue("never-queued"))
	assert.Equal(t, 0, q.Len())
}

func TestQueue_SnapshotIsFIFOAndDetached(t *testing.T) {
	t.Parallel()
	q := New("duel")
	base := time.Now()

	require.NoError(t, q.Enqueue(entry("late", 1200, base.Add(2*time.Second))))
	require.NoError(t, q.Enqueue(entry("early", 1200, base)))
	require.NoError(t, q.Enqueue(entry("middle", 1200, base.Add(time.Second))))
	require.NoError(t, q.Enqueue(entry("middle-tie", 1200, base.Add(time.Second))))

	snapshot := q.Snapshot()
	ids := make([]string, 0, len(snapshot))
	for _, e := range snapshot {
		ids = append(ids, e.PlayerID)
	}
	assert.Equal(t, []string{"early", "middle", "middle-tie", "late"}, ids)

	snapshot[0].PlayerID = "mutated"
	assert.Equal(t, "early", q.Snapshot()[0].PlayerID)

	pos, ok := q.Position("middle-tie")
	assert.True(t, ok)
	assert.Equal(t, 3, pos)
}

func TestQueue_Stats(t *testing.T) {
	t.Parallel()
	q := New("duel")
	now := time.Now()

	assert.Equal(t, models.QueueStats{}, q.Stats(now))

	require.NoError(t, q.Enqueue(entry("a", 1200, now.Add(-10*time.Second))))
	require.NoError(t, q.Enqueue(entry("b", 1200, now.Add(-20*time.Second))))

	stats := q.Stats(now)
	assert.Equal(t, 2, stats.Players)
	assert.Equal(t, 15*time.Second, stats.AvgWait)
}

func TestQueue_AtomicallyRemovesAndInserts(t *testing.T) {
	t.Parallel()
	q := New("duel")
	now := time.Now()
	require.NoError(t, q.Enqueue(entry("a", 1200, now)))

	err := q.Atomically(func(tx *Txn) error {
		buf := tx.SnapshotInto(nil)
		require.Len(t, buf, 1)
		assert.True(t, tx.Remove("a"))
		return tx.Enqueue(entry("b", 1250, now))
	})
	require.NoError(t, err)

	snapshot := q.Snapshot()
	require.Len(t, snapshot, 1)
	assert.Equal(t, "b", snapshot[0].PlayerID)
}

func TestQueue_ConcurrentEnqueueDistinctPlayers(t *testing.T) {
	t.Parallel()
	q := New("duel")
	now := time.Now()

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = q.Enqueue(entry(fmt.Sprintf("p%d", i), 1200, now))
			_ = q.Enqueue(entry(fmt.Sprintf("p%d", i), 1200, now))
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 100, q.Len())
}

func TestManager_GetCreatesOncePerGameKind(t *testing.T) {
	t.Parallel()
	m := NewManager()

	var wg sync.WaitGroup
	results := make([]*Queue, 50)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = m.Get("duel")
		}(i)
	}
	wg.Wait()

	for _, q := range results {
		assert.Same(t, results[0], q)
	}
	_, ok := m.Lookup("chess")
	assert.False(t, ok)
}

func TestManager_DequeueEverywhere(t *testing.T) {
	t.Parallel()
	m := NewManager()
	now := time.Now()

	require.NoError(t, m.Get("duel").Enqueue(entry("a", 1200, now)))
	require.NoError(t, m.Get("chess").Enqueue(models.QueueEntry{PlayerID: "a", GameKind: "chess", EnqueuedAt: now}))
	require.NoError(t, m.Get("sudoku").Enqueue(models.QueueEntry{PlayerID: "a", GameKind: "sudoku", EnqueuedAt: now}))

	removed := m.DequeueEverywhere("a", "duel")
	assert.Equal(t, []string{"chess", "sudoku"}, removed)
	assert.Equal(t, 1, m.Get("duel").Len())

	queues := m.Queues()
	require.Len(t, queues, 3)
	assert.Equal(t, "chess", queues[0].GameKind())
}
