// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package models

import (
	"encoding/json"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatchOutcome_PlayerResult(t *testing.T) {
	outcome := MatchOutcome{Players: [2]string{"a", "b"}, WinnerID: "b", ResultKind: ResultLoss}
	assert.Equal(t, ResultLoss, outcome.PlayerResult("a"))
	assert.Equal(t, ResultWin, outcome.PlayerResult("b"))
	assert.Equal(t, ResultLoss, outcome.EngineResult())

	draw := MatchOutcome{Players: [2]string{"a", "b"}, ResultKind: ResultDraw}
	assert.Equal(t, ResultDraw, draw.PlayerResult("a"))
	assert.Equal(t, ResultDraw, draw.EngineResult())

	abandoned := MatchOutcome{Players: [2]string{"a", "b"}, WinnerID: "a", ResultKind: ResultAbandoned}
	assert.Equal(t, ResultWin, abandoned.EngineResult())
	assert.Equal(t, ResultLoss, abandoned.PlayerResult("b"))
}

func TestRatingRecord_Apply(t *testing.T) {
	record := RatingRecord{PlayerID: "a", GameKind: "duel", Rating: 1200}

	record = record.Apply(1216, ResultWin)
	assert.Equal(t, 1216, record.Rating)
	assert.Equal(t, 1, record.Wins)

	record = record.Apply(1200, ResultLoss).Apply(1201, ResultDraw)
	assert.Equal(t, RatingRecord{PlayerID: "a", GameKind: "duel", Rating: 1201, Wins: 1, Losses: 1, Draws: 1}, record)
}

func TestSessionState_IsTerminal(t *testing.T) {
	assert.False(t, StateAwaitingPlayers.IsTerminal())
	assert.False(t, StateInProgress.IsTerminal())
	assert.True(t, StateFinished.IsTerminal())
	assert.True(t, StateAbandoned.IsTerminal())
}

func TestMatchSession_CopyIsDeep(t *testing.T) {
	now := time.Now()
	session := MatchSession{
		SessionID: "s1",
		Players:   [2]string{"a", "b"},
		Moves:     []Move{{PlayerID: "a", Payload: json.RawMessage(`{"x":1}`), Timestamp: now}},
		CreatedAt: now,
		Outcome:   &MatchOutcome{SessionID: "s1", WinnerID: "a"},
	}

	copied := session.Copy()
	require.Len(t, copied.Moves, 1)
	copied.Moves[0].Payload[0] = '['
	copied.Outcome.WinnerID = "b"

	assert.Equal(t, `{"x":1}`, string(session.Moves[0].Payload))
	assert.Equal(t, "a", session.Outcome.WinnerID)
	assert.True(t, copied.CreatedAt.Equal(now))
	assert.Equal(t, "b", session.Opponent("a"))
	assert.Equal(t, "a", session.Opponent("b"))
}

func TestMatchSession_RatingOf(t *testing.T) {
	session := MatchSession{Players: [2]string{"a", "b"}, RatingsAtStart: [2]int{1200, 1350}}
	assert.Equal(t, 1200, session.RatingOf("a"))
	assert.Equal(t, 1350, session.RatingOf("b"))
}

func TestQueueEntry_WaitTime(t *testing.T) {
	now := time.Now()
	entry := QueueEntry{EnqueuedAt: now.Add(-20 * time.Second)}
	assert.Equal(t, 20*time.Second, entry.WaitTime(now))
	assert.Equal(t, time.Duration(0), QueueEntry{EnqueuedAt: now.Add(time.Second)}.WaitTime(now))
}

func TestErrorMapping_Unwraps(t *testing.T) {
	wrapped := fmt.Errorf("session s1: %w", ErrSessionAlreadyTerminal)
	assert.Equal(t, http.StatusConflict, HTTPStatus(wrapped))
	assert.Equal(t, 510305, ErrorCode(wrapped))

	assert.Equal(t, http.StatusBadRequest, HTTPStatus(ErrNotYourTurn))
	assert.Equal(t, http.StatusNotFound, HTTPStatus(ErrSessionNotFound))
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(fmt.Errorf("boom")))
	assert.Equal(t, 20001, ErrorCode(fmt.Errorf("boom")))

	assert.True(t, IsRetryable(fmt.Errorf("x: %w", ErrEvaluatorUnavailable)))
	assert.False(t, IsRetryable(ErrNotYourTurn))
}

func TestPool_ReusesBuffers(t *testing.T) {
	pool := NewPool()
	buf := pool.GetQueueEntries()
	assert.Empty(t, buf)
	buf = append(buf, QueueEntry{PlayerID: "a"})
	pool.PutQueueEntries(buf)

	again := pool.GetQueueEntries()
	assert.Empty(t, again)
}
