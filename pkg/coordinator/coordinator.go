// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

// Package coordinator owns the queues and the active sessions and drives them from player requests
// and from the background worker.
//
// Lock order is queue, then session registry or parked outcomes. A session's own lock is never
// held together with a queue lock, and terminal handling (archive, rating persistence) runs with
// no lock held.
package coordinator

import (
	"fmt"
	"sync"
	"time"

	"github.com/AccelByte/extend-ranked-matchmaker/pkg/config"
	"github.com/AccelByte/extend-ranked-matchmaker/pkg/constants"
	"github.com/AccelByte/extend-ranked-matchmaker/pkg/envelope"
	"github.com/AccelByte/extend-ranked-matchmaker/pkg/evaluator"
	"github.com/AccelByte/extend-ranked-matchmaker/pkg/matcher"
	"github.com/AccelByte/extend-ranked-matchmaker/pkg/metrics"
	"github.com/AccelByte/extend-ranked-matchmaker/pkg/models"
	"github.com/AccelByte/extend-ranked-matchmaker/pkg/queue"
	"github.com/AccelByte/extend-ranked-matchmaker/pkg/session"
	"github.com/AccelByte/extend-ranked-matchmaker/pkg/store"
	"github.com/AccelByte/extend-ranked-matchmaker/pkg/utils"
)

type Coordinator struct {
	cfg        *config.Config
	queues     *queue.Manager
	matcher    *matcher.Matcher
	sessions   *registry
	ratings    store.RatingStore
	archive    store.SessionArchive
	evaluators *evaluator.Registry
	metrics    metrics.MatchmakingMetrics
	pool       *models.Pool
	parked     *parkedOutcomes
	now        func() time.Time

	reconcileMu sync.Mutex
}

type Option func(*Coordinator)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) {
		c.now = now
	}
}

func New(cfg *config.Config, ratings store.RatingStore, archive store.SessionArchive, evaluators *evaluator.Registry, m metrics.MatchmakingMetrics, opts ...Option) *Coordinator {
	if cfg == nil {
		cfg = config.Default()
	}
	if evaluators == nil {
		evaluators = evaluator.NewRegistry(nil)
	}
	c := &Coordinator{
		cfg:        cfg,
		queues:     queue.NewManager(),
		matcher:    matcher.New(matcher.ToleranceFromConfig(cfg)),
		sessions:   newRegistry(),
		ratings:    ratings,
		archive:    archive,
		evaluators: evaluators,
		metrics:    m,
		pool:       models.NewPool(),
		parked:     newParkedOutcomes(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Opponent is the other player of a fresh match.
type Opponent struct {
	PlayerID string `json:"player_id"`
	Rating   int    `json:"rating"`
}

// JoinResult is either a match or the player's place in the queue.
type JoinResult struct {
	Matched       bool              `json:"matched"`
	SessionID     string            `json:"session_id,omitempty"`
	Opponent      *Opponent         `json:"opponent,omitempty"`
	Queued        bool              `json:"queued"`
	QueuePosition int               `json:"queue_position,omitempty"`
	QueueStats    models.QueueStats `json:"queue_stats"`
}

// Join matches the player against the closest waiting opponent, or queues the player.
func (c *Coordinator) Join(rootScope *envelope.Scope, playerID, gameKind string) (JoinResult, error) {
	scope := rootScope.NewChildScope("Coordinator.Join")
	defer scope.Finish()
	scope.WithField(envelope.PlayerIDTag, playerID).WithField(envelope.GameKindTag, gameKind)

	startTime := time.Now()
	defer func() {
		c.metrics.AddFunctionElapsedTimeMs(gameKind, constants.JoinFunction, time.Since(startTime))
	}()

	if playerID == "" || gameKind == "" {
		return JoinResult{}, fmt.Errorf("player id and game kind are required: %w", models.ErrInvalidRequest)
	}
	if c.sessions.busy(playerID) {
		return JoinResult{}, models.ErrAlreadyInSession
	}
	if c.parked.pending(playerID, gameKind) {
		return JoinResult{}, fmt.Errorf("previous %s outcome not applied yet: %w", gameKind, models.ErrRatingPersistenceFailed)
	}

	record, err := c.ratings.GetRating(scope.Ctx, playerID, gameKind)
	if err != nil {
		scope.RecordError(err)
		return JoinResult{}, fmt.Errorf("%w: %v", models.ErrRatingPersistenceFailed, err)
	}

	now := c.now()
	joiner := models.QueueEntry{
		PlayerID:   playerID,
		GameKind:   gameKind,
		Rating:     record.Rating,
		EnqueuedAt: now,
	}

	var (
		result  JoinResult
		matched *session.Session
	)
	q := c.queues.Get(gameKind)
	err = q.Atomically(func(tx *queue.Txn) error {
		if tx.Contains(playerID) {
			return models.ErrAlreadyQueued
		}

		entries := tx.SnapshotInto(c.pool.GetQueueEntries())
		defer func() { c.pool.PutQueueEntries(entries) }()

		skipped := make(map[string]struct{})
		eligible := func(candidate models.QueueEntry) bool {
			_, skip := skipped[candidate.PlayerID]
			return !skip && !c.parked.pending(candidate.PlayerID, gameKind)
		}

		for {
			opponent, ok := c.matcher.FindOpponent(joiner, entries, now, eligible)
			if !ok {
				break
			}

			s := c.startSession(opponent, joiner, now)
			busyPlayer, reserved := c.sessions.reserve(s)
			if !reserved {
				if busyPlayer == playerID {
					return models.ErrAlreadyInSession
				}
				// the candidate is playing another game kind
				skipped[busyPlayer] = struct{}{}
				continue
			}

			tx.Remove(opponent.PlayerID)
			matched = s
			result = JoinResult{
				Matched:   true,
				SessionID: s.ID(),
				Opponent:  &Opponent{PlayerID: opponent.PlayerID, Rating: opponent.Rating},
			}
			c.metrics.PlayersInQueue(gameKind, tx.Len())
			return nil
		}

		if c.sessions.busy(playerID) {
			return models.ErrAlreadyInSession
		}
		if c.parked.pending(playerID, gameKind) {
			return fmt.Errorf("previous %s outcome not applied yet: %w", gameKind, models.ErrRatingPersistenceFailed)
		}
		if err := tx.Enqueue(joiner); err != nil {
			return err
		}
		if len(entries) == 0 {
			c.metrics.AddUnmatchedReason(gameKind, constants.ReasonEmptyQueue)
		} else {
			c.metrics.AddUnmatchedReason(gameKind, constants.ReasonOutsideTolerance)
		}

		result.Queued = true
		result.QueuePosition, _ = tx.Position(playerID)
		result.QueueStats = tx.Stats(now)
		c.metrics.PlayersInQueue(gameKind, tx.Len())
		return nil
	})
	if err != nil {
		scope.Log.WithError(err).Debug("join rejected")
		return JoinResult{}, err
	}

	if matched != nil {
		c.afterMatch(scope, matched)
	} else {
		scope.Log.WithField("queuePosition", result.QueuePosition).Debug("player queued")
	}
	return result, nil
}

// Cancel removes the player from the queue. It reports whether the player was queued;
// a player that was already matched is left alone.
func (c *Coordinator) Cancel(rootScope *envelope.Scope, playerID, gameKind string) (bool, error) {
	scope := rootScope.NewChildScope("Coordinator.Cancel")
	defer scope.Finish()
	scope.WithField(envelope.PlayerIDTag, playerID).WithField(envelope.GameKindTag, gameKind)

	if playerID == "" || gameKind == "" {
		return false, fmt.Errorf("player id and game kind are required: %w", models.ErrInvalidRequest)
	}

	q, ok := c.queues.Lookup(gameKind)
	if !ok {
		return false, nil
	}
	removed := q.Dequeue(playerID)
	if removed {
		c.metrics.PlayersInQueue(gameKind, q.Len())
		scope.Log.Debug("player left the queue")
	}
	return removed, nil
}

// Poll tells a waiting player whether the background matcher paired them, or where they stand in the queue.
func (c *Coordinator) Poll(rootScope *envelope.Scope, playerID, gameKind string) (JoinResult, error) {
	scope := rootScope.NewChildScope("Coordinator.Poll")
	defer scope.Finish()
	scope.WithField(envelope.PlayerIDTag, playerID).WithField(envelope.GameKindTag, gameKind)

	if playerID == "" || gameKind == "" {
		return JoinResult{}, fmt.Errorf("player id and game kind are required: %w", models.ErrInvalidRequest)
	}

	if s, ok := c.sessions.sessionOf(playerID); ok && s.GameKind() == gameKind {
		view := s.Snapshot()
		opponentID := view.Opponent(playerID)
		return JoinResult{
			Matched:   true,
			SessionID: view.SessionID,
			Opponent:  &Opponent{PlayerID: opponentID, Rating: view.RatingOf(opponentID)},
		}, nil
	}

	var result JoinResult
	q, ok := c.queues.Lookup(gameKind)
	if !ok {
		return result, nil
	}
	_ = q.Atomically(func(tx *queue.Txn) error {
		result.QueuePosition, result.Queued = tx.Position(playerID)
		result.QueueStats = tx.Stats(c.now())
		return nil
	})
	return result, nil
}

// QueueStats returns the size and average wait of the game kind's queue.
func (c *Coordinator) QueueStats(gameKind string) models.QueueStats {
	q, ok := c.queues.Lookup(gameKind)
	if !ok {
		return models.QueueStats{}
	}
	return q.Stats(c.now())
}

// MatchQueued pairs the players that are already waiting, oldest first. Their tolerance widens
// while they wait, so pairs can appear without anybody joining. It returns the number of new sessions.
func (c *Coordinator) MatchQueued(rootScope *envelope.Scope, now time.Time) int {
	scope := rootScope.NewChildScope("Coordinator.MatchQueued")
	defer scope.Finish()

	created := 0
	for _, q := range c.queues.Queues() {
		gameKind := q.GameKind()
		startTime := time.Now()

		var started []*session.Session
		_ = q.Atomically(func(tx *queue.Txn) error {
			if tx.Len() < 2 {
				return nil
			}
			entries := tx.SnapshotInto(c.pool.GetQueueEntries())
			defer func() { c.pool.PutQueueEntries(entries) }()

			pairs := c.matcher.PairAll(entries, now, func(candidate models.QueueEntry) bool {
				return !c.sessions.busy(candidate.PlayerID) && !c.parked.pending(candidate.PlayerID, gameKind)
			})
			for _, pair := range pairs {
				s := c.startSession(pair.First, pair.Second, now)
				if _, reserved := c.sessions.reserve(s); !reserved {
					continue
				}
				tx.Remove(pair.First.PlayerID)
				tx.Remove(pair.Second.PlayerID)
				started = append(started, s)
			}
			c.metrics.PlayersInQueue(gameKind, tx.Len())
			return nil
		})

		for _, s := range started {
			c.afterMatch(scope, s)
		}
		created += len(started)
		c.metrics.AddFunctionElapsedTimeMs(gameKind, constants.MatchQueuedFunction, time.Since(startTime))
	}

	if created > 0 {
		scope.Log.WithField("sessions", created).Info("matched waiting players")
	}
	return created
}

// startSession builds and starts a session; the longer waiting player moves first.
func (c *Coordinator) startSession(first, second models.QueueEntry, now time.Time) *session.Session {
	s := session.New(
		utils.GenerateSessionID(now),
		first.GameKind,
		[2]string{first.PlayerID, second.PlayerID},
		[2]int{first.Rating, second.Rating},
		now,
		session.PolicyFromConfig(c.cfg, first.GameKind),
		c.evaluators.For(first.GameKind),
	)
	// players are distinct queue entries of one queue
	_ = s.Start(now)
	return s
}

// afterMatch runs once a session is reserved; it must be called with no queue lock held.
func (c *Coordinator) afterMatch(rootScope *envelope.Scope, s *session.Session) {
	players := s.Players()
	for _, playerID := range players {
		if removed := c.queues.DequeueEverywhere(playerID, s.GameKind()); len(removed) > 0 {
			rootScope.Log.WithField(envelope.PlayerIDTag, playerID).
				WithField("gameKinds", removed).
				Debug("removed matched player from other queues")
		}
	}
	c.metrics.AddSessionCreated(s.GameKind())
	rootScope.Log.
		WithField(envelope.SessionIDTag, s.ID()).
		WithField("players", players).
		Info("session started")
}
