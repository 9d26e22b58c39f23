// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package coordinator

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/AccelByte/extend-ranked-matchmaker/pkg/constants"
	"github.com/AccelByte/extend-ranked-matchmaker/pkg/envelope"
	"github.com/AccelByte/extend-ranked-matchmaker/pkg/mathutil"
	"github.com/AccelByte/extend-ranked-matchmaker/pkg/models"
	"github.com/AccelByte/extend-ranked-matchmaker/pkg/session"
)

// MoveResult is the session after a player action. Outcome is set once the session is terminal;
// RatingChanges stays empty while the rating update is parked.
type MoveResult struct {
	Session        models.MatchSession   `json:"session"`
	Outcome        *models.MatchOutcome  `json:"outcome,omitempty"`
	RatingChanges  []models.RatingChange `json:"rating_changes,omitempty"`
	RatingsPending bool                  `json:"ratings_pending,omitempty"`
}

// SubmitMove records a move of the player whose turn it is. The payload must be JSON; an empty
// payload is recorded as null. An overdue turn is expired first, so a late move can find the
// session finished or the turn passed.
func (c *Coordinator) SubmitMove(rootScope *envelope.Scope, sessionID, playerID string, payload []byte) (MoveResult, error) {
	scope := rootScope.NewChildScope("Coordinator.SubmitMove")
	defer scope.Finish()
	scope.WithField(envelope.SessionIDTag, sessionID).WithField(envelope.PlayerIDTag, playerID)

	if len(payload) == 0 {
		payload = nil
	} else if !json.Valid(payload) {
		return MoveResult{}, fmt.Errorf("move payload must be JSON: %w", models.ErrInvalidRequest)
	}

	s, err := c.activeSession(scope, sessionID)
	if err != nil {
		return MoveResult{}, err
	}

	now := c.now()
	if outcome, expired := s.ExpireTurn(now); expired {
		c.metrics.AddTurnTimeout(s.GameKind(), c.cfg.TimeoutPolicy(s.GameKind()))
		if outcome != nil {
			c.finalize(scope, s, *outcome, c.cfg.PersistMaxRetries)
			scope.Log.Warn("move rejected, session ended on turn timeout")
			return MoveResult{}, models.ErrSessionAlreadyTerminal
		}
	}

	outcome, err := s.SubmitMove(scope.Ctx, playerID, payload, now)
	if err != nil {
		return MoveResult{}, c.rejected(scope, err)
	}
	return c.result(scope, s, outcome), nil
}

// Resign ends the session with the opponent as winner.
func (c *Coordinator) Resign(rootScope *envelope.Scope, sessionID, playerID string) (MoveResult, error) {
	scope := rootScope.NewChildScope("Coordinator.Resign")
	defer scope.Finish()
	scope.WithField(envelope.SessionIDTag, sessionID).WithField(envelope.PlayerIDTag, playerID)

	return c.concede(scope, sessionID, playerID, (*session.Session).Resign)
}

// Leave abandons the session on behalf of a disconnected player; the remaining player wins.
func (c *Coordinator) Leave(rootScope *envelope.Scope, sessionID, playerID string) (MoveResult, error) {
	scope := rootScope.NewChildScope("Coordinator.Leave")
	defer scope.Finish()
	scope.WithField(envelope.SessionIDTag, sessionID).WithField(envelope.PlayerIDTag, playerID)

	return c.concede(scope, sessionID, playerID, (*session.Session).Abandon)
}

func (c *Coordinator) concede(scope *envelope.Scope, sessionID, playerID string, transition func(*session.Session, string, time.Time) (*models.MatchOutcome, error)) (MoveResult, error) {
	s, err := c.activeSession(scope, sessionID)
	if err != nil {
		return MoveResult{}, err
	}
	outcome, err := transition(s, playerID, c.now())
	if err != nil {
		return MoveResult{}, c.rejected(scope, err)
	}
	return c.result(scope, s, outcome), nil
}

// Session returns the active session, or the terminal one from the archive.
func (c *Coordinator) Session(rootScope *envelope.Scope, sessionID string) (models.MatchSession, error) {
	scope := rootScope.NewChildScope("Coordinator.Session")
	defer scope.Finish()
	scope.WithField(envelope.SessionIDTag, sessionID)

	if s, ok := c.sessions.get(sessionID); ok {
		return s.Snapshot(), nil
	}
	return c.terminalSession(scope, sessionID)
}

// History lists the player's terminal sessions, newest first.
func (c *Coordinator) History(rootScope *envelope.Scope, playerID string, limit int) ([]models.MatchSession, error) {
	scope := rootScope.NewChildScope("Coordinator.History")
	defer scope.Finish()
	scope.WithField(envelope.PlayerIDTag, playerID)

	if playerID == "" {
		return nil, fmt.Errorf("player id is required: %w", models.ErrInvalidRequest)
	}
	if limit <= 0 {
		limit = constants.DefaultHistoryLimit
	}
	sessions, err := c.archive.ListByPlayer(scope.Ctx, playerID, mathutil.Clamp(limit, 1, constants.MaxHistoryLimit))
	if err != nil {
		scope.RecordError(err)
		return nil, err
	}
	return sessions, nil
}

// Rating returns the player's rating record for the game kind.
func (c *Coordinator) Rating(rootScope *envelope.Scope, playerID, gameKind string) (models.RatingRecord, error) {
	scope := rootScope.NewChildScope("Coordinator.Rating")
	defer scope.Finish()
	scope.WithField(envelope.PlayerIDTag, playerID).WithField(envelope.GameKindTag, gameKind)

	if playerID == "" || gameKind == "" {
		return models.RatingRecord{}, fmt.Errorf("player id and game kind are required: %w", models.ErrInvalidRequest)
	}
	record, err := c.ratings.GetRating(scope.Ctx, playerID, gameKind)
	if err != nil {
		scope.RecordError(err)
		return models.RatingRecord{}, fmt.Errorf("%w: %v", models.ErrRatingPersistenceFailed, err)
	}
	return record, nil
}

// SweepTimeouts expires every overdue turn. It returns the number of expired turns.
// Forfeited sessions are persisted with a single attempt once every deadline is enforced;
// failures are left to ReconcileRatings.
func (c *Coordinator) SweepTimeouts(rootScope *envelope.Scope, now time.Time) int {
	scope := rootScope.NewChildScope("Coordinator.SweepTimeouts")
	defer scope.Finish()

	type forfeit struct {
		session *session.Session
		outcome models.MatchOutcome
	}

	startTime := time.Now()
	expired := 0
	var forfeits []forfeit
	for _, s := range c.sessions.all() {
		outcome, ok := s.ExpireTurn(now)
		if !ok {
			continue
		}
		expired++
		c.metrics.AddTurnTimeout(s.GameKind(), c.cfg.TimeoutPolicy(s.GameKind()))
		scope.Log.WithField(envelope.SessionIDTag, s.ID()).Debug("turn expired")
		if outcome != nil {
			forfeits = append(forfeits, forfeit{session: s, outcome: *outcome})
		}
	}
	for _, f := range forfeits {
		c.finalize(scope, f.session, f.outcome, 0)
	}
	c.metrics.AddFunctionElapsedTimeMs("all", constants.SweepFunction, time.Since(startTime))
	return expired
}

// ActiveSessions returns the number of sessions in progress.
func (c *Coordinator) ActiveSessions() int {
	return c.sessions.len()
}

func (c *Coordinator) activeSession(scope *envelope.Scope, sessionID string) (*session.Session, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("session id is required: %w", models.ErrInvalidRequest)
	}
	if s, ok := c.sessions.get(sessionID); ok {
		return s, nil
	}
	if _, err := c.terminalSession(scope, sessionID); err != nil {
		return nil, err
	}
	scope.Log.Warn("rejected action on terminal session")
	return nil, models.ErrSessionAlreadyTerminal
}

func (c *Coordinator) terminalSession(scope *envelope.Scope, sessionID string) (models.MatchSession, error) {
	if view, ok := c.parked.session(sessionID); ok {
		return view, nil
	}
	view, err := c.archive.Get(scope.Ctx, sessionID)
	if err != nil && !errors.Is(err, models.ErrSessionNotFound) {
		scope.RecordError(err)
	}
	return view, err
}

func (c *Coordinator) rejected(scope *envelope.Scope, err error) error {
	switch {
	case errors.Is(err, models.ErrSessionAlreadyTerminal):
		scope.Log.Warn("rejected action on terminal session")
	case errors.Is(err, models.ErrEvaluatorUnavailable):
		scope.RecordError(err)
		scope.Log.WithError(err).Error("evaluator failed, move not recorded")
	default:
		scope.Log.WithError(err).Debug("action rejected")
	}
	return err
}

func (c *Coordinator) result(scope *envelope.Scope, s *session.Session, outcome *models.MatchOutcome) MoveResult {
	if outcome == nil {
		return MoveResult{Session: s.Snapshot()}
	}
	changes, persisted := c.finalize(scope, s, *outcome, c.cfg.PersistMaxRetries)
	final := *outcome
	return MoveResult{
		Session:        s.Snapshot(),
		Outcome:        &final,
		RatingChanges:  changes,
		RatingsPending: !persisted,
	}
}
