// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package coordinator

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/AccelByte/extend-ranked-matchmaker/pkg/constants"
	"github.com/AccelByte/extend-ranked-matchmaker/pkg/envelope"
	"github.com/AccelByte/extend-ranked-matchmaker/pkg/models"
	"github.com/AccelByte/extend-ranked-matchmaker/pkg/rating"
	"github.com/AccelByte/extend-ranked-matchmaker/pkg/session"
	"github.com/AccelByte/extend-ranked-matchmaker/pkg/utils"
)

const maxPersistInterval = 2 * time.Second

// pendingOutcome is the durable work left for one terminal session.
// Each step is recorded as it succeeds, so a retry resumes where the last attempt stopped
// and new ratings are computed exactly once.
type pendingOutcome struct {
	outcome  models.MatchOutcome
	session  models.MatchSession
	archived bool
	changes  []models.RatingChange
	applied  [2]bool
}

// finalize archives the terminal session and rates both players, then drops the session from the
// active registry. It runs once per session, by whoever observed the terminal transition.
// Persistence is retried up to retries times; when it keeps failing the outcome is parked and false is returned.
// Until a parked outcome is applied its players cannot start another session of the same game kind.
func (c *Coordinator) finalize(rootScope *envelope.Scope, s *session.Session, outcome models.MatchOutcome, retries int) ([]models.RatingChange, bool) {
	scope := rootScope.NewChildScope("Coordinator.finalize")
	defer scope.Finish()
	scope.WithField(envelope.SessionIDTag, outcome.SessionID).WithField(envelope.GameKindTag, outcome.GameKind)

	startTime := time.Now()
	defer func() {
		c.metrics.AddFunctionElapsedTimeMs(outcome.GameKind, constants.FinalizeFunction, time.Since(startTime))
	}()

	c.metrics.AddSessionFinished(outcome.GameKind, string(outcome.ResultKind), outcome.Reason)
	scope.Log.
		WithField("result", outcome.ResultKind).
		WithField("winner", outcome.WinnerID).
		WithField("reason", outcome.Reason).
		Info("session ended")

	p := &pendingOutcome{outcome: outcome, session: s.Snapshot()}
	err := c.persistWithRetry(scope, p, retries)
	if err != nil {
		// park before dropping, so the session stays readable and its players stay blocked
		c.parked.put(p)
	}
	c.sessions.remove(s)

	if err != nil {
		c.metrics.AddRatingPersistenceFailure(outcome.GameKind)
		scope.RecordError(err)
		scope.Log.WithError(err).Error("outcome parked for reconciliation")
		return nil, false
	}
	return p.changes, true
}

func (c *Coordinator) persistWithRetry(scope *envelope.Scope, p *pendingOutcome, retries int) error {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = c.cfg.PersistInitialDelay()
	policy.MaxInterval = maxPersistInterval

	if retries < 0 {
		retries = 0
	}
	b := backoff.WithContext(backoff.WithMaxRetries(policy, uint64(retries)), scope.Ctx)

	err := backoff.RetryNotify(func() error {
		return c.persist(scope.Ctx, p)
	}, b, func(err error, wait time.Duration) {
		scope.Log.WithError(err).WithField("retryIn", wait).Warn("persisting outcome failed")
	})
	if err != nil {
		return fmt.Errorf("%w: %v", models.ErrRatingPersistenceFailed, err)
	}
	return nil
}

// persist runs the steps that have not succeeded yet.
func (c *Coordinator) persist(ctx context.Context, p *pendingOutcome) error {
	if !p.archived {
		if err := c.archive.Put(ctx, p.session); err != nil {
			return fmt.Errorf("archive session: %w", err)
		}
		p.archived = true
	}

	players := p.outcome.Players
	if p.changes == nil {
		var current [2]int
		for i, playerID := range players {
			record, err := c.ratings.GetRating(ctx, playerID, p.outcome.GameKind)
			if err != nil {
				return fmt.Errorf("get rating of %s: %w", playerID, err)
			}
			current[i] = record.Rating
		}

		newA, newB := rating.ComputeNewRatings(current[0], current[1], p.outcome.EngineResult())
		p.changes = []models.RatingChange{
			{PlayerID: players[0], OldRating: current[0], NewRating: newA, Result: p.outcome.PlayerResult(players[0])},
			{PlayerID: players[1], OldRating: current[1], NewRating: newB, Result: p.outcome.PlayerResult(players[1])},
		}
	}

	for i, change := range p.changes {
		if p.applied[i] {
			continue
		}
		_, err := c.ratings.ApplyOutcome(ctx, p.outcome.SessionID, change.PlayerID, p.outcome.GameKind, change.NewRating, change.Result)
		if err != nil {
			return fmt.Errorf("apply outcome to %s: %w", change.PlayerID, err)
		}
		p.applied[i] = true
	}
	return nil
}

// ReconcileRatings retries every parked outcome once. It returns how many were completed.
// An outcome stays parked, and readable, until all of its steps have succeeded.
func (c *Coordinator) ReconcileRatings(rootScope *envelope.Scope) int {
	scope := rootScope.NewChildScope("Coordinator.ReconcileRatings")
	defer scope.Finish()

	c.reconcileMu.Lock()
	defer c.reconcileMu.Unlock()

	reconciled := 0
	for _, p := range c.parked.list() {
		if err := c.persist(scope.Ctx, p); err != nil {
			scope.Log.WithField(envelope.SessionIDTag, p.outcome.SessionID).WithError(err).Warn("outcome still parked")
			continue
		}
		c.parked.remove(p.outcome.SessionID)
		reconciled++
		scope.Log.WithField(envelope.SessionIDTag, p.outcome.SessionID).Info("parked outcome applied")
	}
	return reconciled
}

// PendingOutcomes returns the number of parked outcomes.
func (c *Coordinator) PendingOutcomes() int {
	return c.parked.len()
}

type parkedOutcomes struct {
	mu    sync.Mutex
	items map[string]*pendingOutcome
}

func newParkedOutcomes() *parkedOutcomes {
	return &parkedOutcomes{items: make(map[string]*pendingOutcome)}
}

func (p *parkedOutcomes) put(item *pendingOutcome) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.items[item.outcome.SessionID] = item
}

func (p *parkedOutcomes) remove(sessionID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.items, sessionID)
}

// list returns the parked outcomes, oldest session first.
func (p *parkedOutcomes) list() []*pendingOutcome {
	p.mu.Lock()
	defer p.mu.Unlock()
	items := make([]*pendingOutcome, 0, len(p.items))
	for _, item := range p.items {
		items = append(items, item)
	}
	slices.SortFunc(items, func(a, b *pendingOutcome) int {
		return strings.Compare(a.outcome.SessionID, b.outcome.SessionID)
	})
	return items
}

// pending reports whether the player has an unapplied outcome in the game kind.
func (p *parkedOutcomes) pending(playerID, gameKind string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, item := range p.items {
		if item.outcome.GameKind == gameKind && utils.Contains(item.outcome.Players[:], playerID) {
			return true
		}
	}
	return false
}

func (p *parkedOutcomes) session(sessionID string) (models.MatchSession, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	item, ok := p.items[sessionID]
	if !ok {
		return models.MatchSession{}, false
	}
	return item.session.Copy(), true
}

func (p *parkedOutcomes) len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.items)
}
