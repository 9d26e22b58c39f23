// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

// Package session implements the state machine of one head-to-head match.
//
//	AwaitingPlayers -> InProgress -> Finished
//	                             \-> Abandoned
//
// Every transition of a session is serialized by its own mutex. Terminal sessions accept nothing.
package session

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/AccelByte/extend-ranked-matchmaker/pkg/config"
	"github.com/AccelByte/extend-ranked-matchmaker/pkg/constants"
	"github.com/AccelByte/extend-ranked-matchmaker/pkg/evaluator"
	"github.com/AccelByte/extend-ranked-matchmaker/pkg/models"
)

const noWinner = -1

// Policy is the per game kind turn timing.
type Policy struct {
	TurnTimeout            time.Duration
	TimeoutPolicy          string
	MaxConsecutiveTimeouts int
}

func PolicyFromConfig(cfg *config.Config, gameKind string) Policy {
	return Policy{
		TurnTimeout:            cfg.TurnTimeout(),
		TimeoutPolicy:          cfg.TimeoutPolicy(gameKind),
		MaxConsecutiveTimeouts: cfg.MaxConsecutiveTimeouts,
	}
}

func (p Policy) withDefaults() Policy {
	if p.TurnTimeout <= 0 {
		p.TurnTimeout = constants.TurnTimeout
	}
	if p.TimeoutPolicy == "" {
		p.TimeoutPolicy = constants.TimeoutPolicyForfeit
	}
	if p.MaxConsecutiveTimeouts <= 0 {
		p.MaxConsecutiveTimeouts = constants.MaxConsecutiveTimeouts
	}
	return p
}

type Session struct {
	mu sync.Mutex

	id             string
	gameKind       string
	players        [2]string
	ratingsAtStart [2]int
	createdAt      time.Time

	state      models.SessionState
	moves      []models.Move
	turn       int
	deadlineAt time.Time
	timeouts   [2]int
	outcome    *models.MatchOutcome

	policy    Policy
	evaluator evaluator.Evaluator
}

func New(id, gameKind string, players [2]string, ratings [2]int, now time.Time, policy Policy, eval evaluator.Evaluator) *Session {
	if eval == nil {
		eval = evaluator.NeverEnding
	}
	return &Session{
		id:             id,
		gameKind:       gameKind,
		players:        players,
		ratingsAtStart: ratings,
		createdAt:      now,
		state:          models.StateAwaitingPlayers,
		policy:         policy.withDefaults(),
		evaluator:      eval,
	}
}

func (s *Session) ID() string {
	return s.id
}

func (s *Session) GameKind() string {
	return s.gameKind
}

func (s *Session) Players() [2]string {
	return s.players
}

// Start binds both players and opens the first turn for the first player.
func (s *Session) Start(now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.IsTerminal() {
		return models.ErrSessionAlreadyTerminal
	}
	if s.state != models.StateAwaitingPlayers {
		return models.ErrSessionNotActive
	}
	if s.players[0] == "" || s.players[1] == "" || s.players[0] == s.players[1] {
		return fmt.Errorf("session %s needs two distinct players: %w", s.id, models.ErrInvalidRequest)
	}

	s.state = models.StateInProgress
	s.turn = 0
	s.deadlineAt = now.Add(s.policy.TurnTimeout)
	return nil
}

// SubmitMove records a move of the current player. The evaluator sees the move list including the
// new move before anything is committed, so a failing evaluator leaves the session untouched.
// The returned outcome is non-nil only when this move ended the match.
func (s *Session) SubmitMove(ctx context.Context, playerID string, payload []byte, now time.Time) (*models.MatchOutcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkActive(); err != nil {
		return nil, err
	}
	idx, ok := s.indexOf(playerID)
	if !ok {
		return nil, models.ErrNotParticipant
	}
	if idx != s.turn {
		return nil, models.ErrNotYourTurn
	}

	move := models.Move{PlayerID: playerID, Payload: slices.Clone(payload), Timestamp: now}
	candidate := append(slices.Clip(s.moves), move)

	verdict, err := s.evaluator.Evaluate(ctx, s.gameKind, s.players, slices.Clone(candidate))
	if err != nil {
		return nil, fmt.Errorf("evaluate session %s: %v: %w", s.id, err, models.ErrEvaluatorUnavailable)
	}

	winner := noWinner
	if verdict.Status == evaluator.StatusWinner {
		if winner, ok = s.indexOf(verdict.WinnerID); !ok {
			return nil, fmt.Errorf("evaluator named %q winner of session %s: %w", verdict.WinnerID, s.id, models.ErrEvaluatorUnavailable)
		}
	}

	s.moves = candidate
	s.timeouts[idx] = 0
	s.turn = 1 - idx
	s.deadlineAt = now.Add(s.policy.TurnTimeout)

	if verdict.IsTerminal() {
		return s.finish(models.StateFinished, winner, models.ReasonEvaluated, now), nil
	}
	return nil, nil
}

// ExpireTurn applies the timeout policy when the current turn's deadline has passed.
// It reports whether a timeout was applied; the outcome is non-nil when it ended the match.
func (s *Session) ExpireTurn(now time.Time) (*models.MatchOutcome, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != models.StateInProgress || !now.After(s.deadlineAt) {
		return nil, false
	}

	late := s.turn
	s.timeouts[late]++
	if s.policy.TimeoutPolicy == constants.TimeoutPolicyForfeit || s.timeouts[late] >= s.policy.MaxConsecutiveTimeouts {
		return s.finish(models.StateFinished, 1-late, models.ReasonTimeout, now), true
	}

	s.turn = 1 - late
	s.deadlineAt = now.Add(s.policy.TurnTimeout)
	return nil, true
}

// Resign ends the match with the opponent as winner.
func (s *Session) Resign(playerID string, now time.Time) (*models.MatchOutcome, error) {
	return s.concede(playerID, models.StateFinished, models.ReasonResigned, now)
}

// Abandon ends the match because the player left; the remaining player wins.
func (s *Session) Abandon(playerID string, now time.Time) (*models.MatchOutcome, error) {
	return s.concede(playerID, models.StateAbandoned, models.ReasonLeft, now)
}

func (s *Session) concede(playerID string, state models.SessionState, reason string, now time.Time) (*models.MatchOutcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.IsTerminal() {
		return nil, models.ErrSessionAlreadyTerminal
	}
	idx, ok := s.indexOf(playerID)
	if !ok {
		return nil, models.ErrNotParticipant
	}
	return s.finish(state, 1-idx, reason, now), nil
}

func (s *Session) State() models.SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) DeadlineAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deadlineAt
}

// Outcome returns the recorded outcome once the session is terminal.
func (s *Session) Outcome() (models.MatchOutcome, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.outcome == nil {
		return models.MatchOutcome{}, false
	}
	return *s.outcome, true
}

// Snapshot returns a deep copy of the session.
func (s *Session) Snapshot() models.MatchSession {
	s.mu.Lock()
	defer s.mu.Unlock()

	view := models.MatchSession{
		SessionID:      s.id,
		GameKind:       s.gameKind,
		Players:        s.players,
		RatingsAtStart: s.ratingsAtStart,
		State:          s.state,
		Moves:          s.moves,
		CreatedAt:      s.createdAt,
		DeadlineAt:     s.deadlineAt,
		Outcome:        s.outcome,
	}
	if s.state == models.StateInProgress {
		view.CurrentTurnPlayerID = s.players[s.turn]
	}
	return view.Copy()
}

func (s *Session) checkActive() error {
	if s.state.IsTerminal() {
		return models.ErrSessionAlreadyTerminal
	}
	if s.state != models.StateInProgress {
		return models.ErrSessionNotActive
	}
	return nil
}

func (s *Session) indexOf(playerID string) (int, bool) {
	for i, p := range s.players {
		if p == playerID {
			return i, true
		}
	}
	return 0, false
}

// finish must be called with the lock held.
func (s *Session) finish(state models.SessionState, winner int, reason string, now time.Time) *models.MatchOutcome {
	outcome := models.MatchOutcome{
		SessionID: s.id,
		GameKind:  s.gameKind,
		Players:   s.players,
		DecidedAt: now,
		Reason:    reason,
	}

	switch {
	case state == models.StateAbandoned:
		outcome.ResultKind = models.ResultAbandoned
		outcome.WinnerID = s.players[winner]
	case winner == noWinner:
		outcome.ResultKind = models.ResultDraw
	case winner == 0:
		outcome.ResultKind = models.ResultWin
		outcome.WinnerID = s.players[0]
	default:
		outcome.ResultKind = models.ResultLoss
		outcome.WinnerID = s.players[1]
	}

	s.state = state
	s.outcome = &outcome
	copied := outcome
	return &copied
}
