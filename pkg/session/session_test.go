// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package session

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/AccelByte/extend-ranked-matchmaker/pkg/constants"
	"github.com/AccelByte/extend-ranked-matchmaker/pkg/evaluator"
	"github.com/AccelByte/extend-ranked-matchmaker/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	start   = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	players = [2]string{"alice", "bob"}
)

func forfeitPolicy() Policy {
	return Policy{TurnTimeout: 10 * time.Second, TimeoutPolicy: constants.TimeoutPolicyForfeit, MaxConsecutiveTimeouts: 3}
}

func passPolicy() Policy {
	return Policy{TurnTimeout: 10 * time.Second, TimeoutPolicy: constants.TimeoutPolicyPass, MaxConsecutiveTimeouts: 3}
}

// winAfter declares the player who made the n-th move the winner.
func winAfter(n int) evaluator.Evaluator {
	return evaluator.Func(func(_ context.Context, _ string, _ [2]string, moves []models.Move) (evaluator.Verdict, error) {
		if len(moves) >= n {
			return evaluator.Winner(moves[len(moves)-1].PlayerID), nil
		}
		return evaluator.Ongoing(), nil
	})
}

func started(t *testing.T, policy Policy, eval evaluator.Evaluator) *Session {
	t.Helper()
	s := New("s1", "duel", players, [2]int{1200, 1250}, start, policy, eval)
	require.Equal(t, models.StateAwaitingPlayers, s.State())
	require.NoError(t, s.Start(start))
	return s
}

func TestSession_StartOpensFirstTurn(t *testing.T) {
	t.Parallel()
	s := started(t, forfeitPolicy(), nil)

	view := s.Snapshot()
	assert.Equal(t, models.StateInProgress, view.State)
	assert.Equal(t, "alice", view.CurrentTurnPlayerID)
	assert.Equal(t, [2]int{1200, 1250}, view.RatingsAtStart)
	assert.Equal(t, start.Add(10*time.Second), view.DeadlineAt)

	assert.ErrorIs(t, s.Start(start), models.ErrSessionNotActive)
}

func TestSession_StartRejectsSamePlayerTwice(t *testing.T) {
	t.Parallel()
	s := New("s1", "duel", [2]string{"alice", "alice"}, [2]int{}, start, forfeitPolicy(), nil)
	assert.ErrorIs(t, s.Start(start), models.ErrInvalidRequest)
}

func TestSession_SubmitMoveBeforeStart(t *testing.T) {
	t.Parallel()
	s := New("s1", "duel", players, [2]int{}, start, forfeitPolicy(), nil)
	_, err := s.SubmitMove(context.Background(), "alice", nil, start)
	assert.ErrorIs(t, err, models.ErrSessionNotActive)
}

func TestSession_SubmitMoveAlternatesTurns(t *testing.T) {
	t.Parallel()
	s := started(t, forfeitPolicy(), nil)
	ctx := context.Background()

	outcome, err := s.SubmitMove(ctx, "alice", []byte(`{"cell":4}`), start.Add(time.Second))
	require.NoError(t, err)
	assert.Nil(t, outcome)

	_, err = s.SubmitMove(ctx, "alice", []byte(`{"cell":5}`), start.Add(2*time.Second))
	assert.ErrorIs(t, err, models.ErrNotYourTurn)

	_, err = s.SubmitMove(ctx, "bob", []byte(`{"cell":0}`), start.Add(3*time.Second))
	require.NoError(t, err)

	view := s.Snapshot()
	require.Len(t, view.Moves, 2)
	assert.Equal(t, "alice", view.Moves[0].PlayerID)
	assert.Equal(t, "bob", view.Moves[1].PlayerID)
	assert.Equal(t, "alice", view.CurrentTurnPlayerID)
	assert.Equal(t, start.Add(13*time.Second), view.DeadlineAt)
}

func TestSession_SubmitMoveByStranger(t *testing.T) {
	t.Parallel()
	s := started(t, forfeitPolicy(), nil)
	_, err := s.SubmitMove(context.Background(), "mallory", nil, start)
	assert.ErrorIs(t, err, models.ErrNotParticipant)
}

func TestSession_EvaluatorEndsMatch(t *testing.T) {
	t.Parallel()
	s := started(t, forfeitPolicy(), winAfter(3))
	ctx := context.Background()

	_, err := s.SubmitMove(ctx, "alice", nil, start)
	require.NoError(t, err)
	_, err = s.SubmitMove(ctx, "bob", nil, start)
	require.NoError(t, err)
	outcome, err := s.SubmitMove(ctx, "alice", nil, start)
	require.NoError(t, err)
	require.NotNil(t, outcome)

	assert.Equal(t, "alice", outcome.WinnerID)
	assert.Equal(t, models.ResultWin, outcome.ResultKind)
	assert.Equal(t, models.ReasonEvaluated, outcome.Reason)
	assert.Equal(t, models.StateFinished, s.State())

	recorded, ok := s.Outcome()
	assert.True(t, ok)
	assert.Equal(t, *outcome, recorded)
}

func TestSession_EvaluatorDraw(t *testing.T) {
	t.Parallel()
	draw := evaluator.Func(func(context.Context, string, [2]string, []models.Move) (evaluator.Verdict, error) {
		return evaluator.Draw(), nil
	})
	s := started(t, forfeitPolicy(), draw)

	outcome, err := s.SubmitMove(context.Background(), "alice", nil, start)
	require.NoError(t, err)
	require.NotNil(t, outcome)
	assert.Equal(t, models.ResultDraw, outcome.ResultKind)
	assert.Empty(t, outcome.WinnerID)
}

func TestSession_SubmitMoveOnFinishedSession(t *testing.T) {
	t.Parallel()
	s := started(t, forfeitPolicy(), winAfter(1))

	_, err := s.SubmitMove(context.Background(), "alice", nil, start)
	require.NoError(t, err)

	for _, player := range players {
		_, err = s.SubmitMove(context.Background(), player, nil, start)
		assert.ErrorIs(t, err, models.ErrSessionAlreadyTerminal)
	}
	_, err = s.Resign("bob", start)
	assert.ErrorIs(t, err, models.ErrSessionAlreadyTerminal)
	_, expired := s.ExpireTurn(start.Add(time.Hour))
	assert.False(t, expired)
}

func TestSession_EvaluatorUnavailableKeepsSessionInProgress(t *testing.T) {
	t.Parallel()
	var fail atomic.Bool
	fail.Store(true)
	flaky := evaluator.Func(func(context.Context, string, [2]string, []models.Move) (evaluator.Verdict, error) {
		if fail.Load() {
			return evaluator.Verdict{}, errors.New("rule engine down")
		}
		return evaluator.Ongoing(), nil
	})
	s := started(t, forfeitPolicy(), flaky)

	_, err := s.SubmitMove(context.Background(), "alice", []byte("x"), start.Add(time.Second))
	assert.ErrorIs(t, err, models.ErrEvaluatorUnavailable)
	assert.True(t, models.IsRetryable(err))

	view := s.Snapshot()
	assert.Equal(t, models.StateInProgress, view.State)
	assert.Empty(t, view.Moves)
	assert.Equal(t, "alice", view.CurrentTurnPlayerID)

	fail.Store(false)
	_, err = s.SubmitMove(context.Background(), "alice", []byte("x"), start.Add(2*time.Second))
	require.NoError(t, err)
	assert.Len(t, s.Snapshot().Moves, 1)
}

func TestSession_EvaluatorNamingStrangerIsUnavailable(t *testing.T) {
	t.Parallel()
	bogus := evaluator.Func(func(context.Context, string, [2]string, []models.Move) (evaluator.Verdict, error) {
		return evaluator.Winner("mallory"), nil
	})
	s := started(t, forfeitPolicy(), bogus)

	_, err := s.SubmitMove(context.Background(), "alice", nil, start)
	assert.ErrorIs(t, err, models.ErrEvaluatorUnavailable)
	assert.Equal(t, models.StateInProgress, s.State())
}

func TestSession_MovesAreImmutable(t *testing.T) {
	t.Parallel()
	s := started(t, forfeitPolicy(), nil)
	payload := []byte(`{"cell":1}`)

	_, err := s.SubmitMove(context.Background(), "alice", payload, start)
	require.NoError(t, err)
	payload[0] = 'X'

	view := s.Snapshot()
	view.Moves[0].Payload[1] = 'Y'
	assert.Equal(t, `{"cell":1}`, string(s.Snapshot().Moves[0].Payload))
}

func TestSession_ExpireTurnBeforeDeadline(t *testing.T) {
	t.Parallel()
	s := started(t, forfeitPolicy(), nil)

	outcome, expired := s.ExpireTurn(start.Add(10 * time.Second))
	assert.False(t, expired)
	assert.Nil(t, outcome)
}

func TestSession_ExpireTurnForfeit(t *testing.T) {
	t.Parallel()
	s := started(t, forfeitPolicy(), nil)

	outcome, expired := s.ExpireTurn(start.Add(11 * time.Second))
	assert.True(t, expired)
	require.NotNil(t, outcome)
	assert.Equal(t, "bob", outcome.WinnerID)
	assert.Equal(t, models.ResultLoss, outcome.ResultKind)
	assert.Equal(t, models.ReasonTimeout, outcome.Reason)
	assert.Equal(t, models.StateFinished, s.State())
}

func TestSession_ExpireTurnPassFlipsTurnAndResetsDeadline(t *testing.T) {
	t.Parallel()
	s := started(t, passPolicy(), nil)

	now := start.Add(11 * time.Second)
	outcome, expired := s.ExpireTurn(now)
	assert.True(t, expired)
	assert.Nil(t, outcome)

	view := s.Snapshot()
	assert.Equal(t, "bob", view.CurrentTurnPlayerID)
	assert.Equal(t, now.Add(10*time.Second), view.DeadlineAt)
}

func TestSession_ThreeConsecutiveTimeoutsForfeitUnderPass(t *testing.T) {
	t.Parallel()
	s := started(t, passPolicy(), nil)
	ctx := context.Background()
	now := start

	for i := 0; i < 2; i++ {
		// alice times out, bob plays
		now = s.DeadlineAt().Add(time.Millisecond)
		outcome, expired := s.ExpireTurn(now)
		require.True(t, expired)
		require.Nil(t, outcome)
		_, err := s.SubmitMove(ctx, "bob", nil, now)
		require.NoError(t, err)
	}

	now = s.DeadlineAt().Add(time.Millisecond)
	outcome, expired := s.ExpireTurn(now)
	assert.True(t, expired)
	require.NotNil(t, outcome)
	assert.Equal(t, "bob", outcome.WinnerID)
	assert.Equal(t, models.StateFinished, s.State())
}

func TestSession_MoveResetsConsecutiveTimeouts(t *testing.T) {
	t.Parallel()
	s := started(t, passPolicy(), nil)
	ctx := context.Background()

	for round := 0; round < 5; round++ {
		now := s.DeadlineAt().Add(time.Millisecond)
		_, expired := s.ExpireTurn(now) // alice misses
		require.True(t, expired)
		_, err := s.SubmitMove(ctx, "bob", nil, now)
		require.NoError(t, err)
		_, err = s.SubmitMove(ctx, "alice", nil, now) // alice plays, counter resets
		require.NoError(t, err)
		_, err = s.SubmitMove(ctx, "bob", nil, now)
		require.NoError(t, err)
	}
	assert.Equal(t, models.StateInProgress, s.State())
}

func TestSession_Resign(t *testing.T) {
	t.Parallel()
	s := started(t, forfeitPolicy(), nil)

	outcome, err := s.Resign("bob", start)
	require.NoError(t, err)
	assert.Equal(t, "alice", outcome.WinnerID)
	assert.Equal(t, models.ResultWin, outcome.ResultKind)
	assert.Equal(t, models.StateFinished, s.State())

	_, err = s.Resign("alice", start)
	assert.ErrorIs(t, err, models.ErrSessionAlreadyTerminal)
}

func TestSession_Abandon(t *testing.T) {
	t.Parallel()
	s := started(t, forfeitPolicy(), nil)

	_, err := s.Abandon("mallory", start)
	assert.ErrorIs(t, err, models.ErrNotParticipant)

	outcome, err := s.Abandon("alice", start)
	require.NoError(t, err)
	assert.Equal(t, "bob", outcome.WinnerID)
	assert.Equal(t, models.ResultAbandoned, outcome.ResultKind)
	assert.Equal(t, models.StateAbandoned, s.State())
	assert.Empty(t, s.Snapshot().CurrentTurnPlayerID)
}

func TestSession_ConcurrentMovesAreSerialized(t *testing.T) {
	t.Parallel()
	s := started(t, forfeitPolicy(), nil)
	ctx := context.Background()

	var (
		wg       sync.WaitGroup
		accepted atomic.Int32
	)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.SubmitMove(ctx, "alice", nil, start); err == nil {
				accepted.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), accepted.Load())
	assert.Len(t, s.Snapshot().Moves, 1)
}

func TestSession_ConcurrentResignAndTimeoutYieldOneOutcome(t *testing.T) {
	t.Parallel()
	s := started(t, forfeitPolicy(), nil)

	var (
		wg       sync.WaitGroup
		outcomes atomic.Int32
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		if outcome, _ := s.ExpireTurn(start.Add(time.Minute)); outcome != nil {
			outcomes.Add(1)
		}
	}()
	go func() {
		defer wg.Done()
		if outcome, err := s.Resign("alice", start.Add(time.Minute)); err == nil && outcome != nil {
			outcomes.Add(1)
		}
	}()
	wg.Wait()

	assert.Equal(t, int32(1), outcomes.Load())
}

func TestPolicy_Defaults(t *testing.T) {
	t.Parallel()
	policy := Policy{}.withDefaults()
	assert.Equal(t, constants.TurnTimeout, policy.TurnTimeout)
	assert.Equal(t, constants.TimeoutPolicyForfeit, policy.TimeoutPolicy)
	assert.Equal(t, constants.MaxConsecutiveTimeouts, policy.MaxConsecutiveTimeouts)
}
