// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type prometheusMetrics struct {
	playersInQueue            prometheus.GaugeVec
	functionElapsedTime       prometheus.HistogramVec
	sessionsCreated           prometheus.CounterVec
	sessionsFinished          prometheus.CounterVec
	turnTimeouts              prometheus.CounterVec
	ratingPersistenceFailures prometheus.CounterVec
	unmatchedReasons          prometheus.CounterVec
}

func setupPrometheusMetrics(registry *prometheus.Registry) prometheusMetrics {
	factory := promauto.With(registry)

	playersInQueue := factory.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "ranked_players_in_queue",
			Help: "Number of players waiting in the queue of a game kind",
		}, []string{"game_kind"})

	//nolint:promlinter
	functionElapsedTime := factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ranked_function_elapsed_time_ms",
			Help:    "A histogram of matchmaking functions elapsed time in milliseconds",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10),
		}, []string{"game_kind", "function"})
	//nolint:promlinter
	sessionsCreated := factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ranked_sessions_created",
			Help: "Number of match sessions started",
		}, []string{"game_kind"})
	//nolint:promlinter
	sessionsFinished := factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ranked_sessions_finished",
			Help: "Number of match sessions that reached a terminal state",
		}, []string{"game_kind", "result", "reason"})
	//nolint:promlinter
	turnTimeouts := factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ranked_turn_timeouts",
			Help: "Number of expired turns",
		}, []string{"game_kind", "policy"})
	//nolint:promlinter
	ratingPersistenceFailures := factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ranked_rating_persistence_failures",
			Help: "Number of outcomes whose rating update exhausted its retries",
		}, []string{"game_kind"})
	//nolint:promlinter
	unmatchedReasons := factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ranked_unmatched_reasons",
			Help: "Reasons a join did not produce a match",
		}, []string{"game_kind", "reason"})

	return prometheusMetrics{
		playersInQueue:            *playersInQueue,
		functionElapsedTime:       *functionElapsedTime,
		sessionsCreated:           *sessionsCreated,
		sessionsFinished:          *sessionsFinished,
		turnTimeouts:              *turnTimeouts,
		ratingPersistenceFailures: *ratingPersistenceFailures,
		unmatchedReasons:          *unmatchedReasons,
	}
}

func (metrics prometheusMetrics) PlayersInQueue(gameKind string, numPlayers int) {
	metrics.playersInQueue.With(prometheus.Labels{"game_kind": gameKind}).Set(float64(numPlayers))
}

func (metrics prometheusMetrics) AddFunctionElapsedTimeMs(gameKind, function string, elapsedTime time.Duration) {
	metrics.functionElapsedTime.With(prometheus.Labels{"game_kind": gameKind, "function": function}).Observe(float64(elapsedTime.Milliseconds()))
}

func (metrics prometheusMetrics) AddSessionCreated(gameKind string) {
	metrics.sessionsCreated.With(prometheus.Labels{"game_kind": gameKind}).Inc()
}

func (metrics prometheusMetrics) AddSessionFinished(gameKind string, result string, reason string) {
	metrics.sessionsFinished.With(prometheus.Labels{"game_kind": gameKind, "result": result, "reason": reason}).Inc()
}

func (metrics prometheusMetrics) AddTurnTimeout(gameKind string, policy string) {
	metrics.turnTimeouts.With(prometheus.Labels{"game_kind": gameKind, "policy": policy}).Inc()
}

func (metrics prometheusMetrics) AddRatingPersistenceFailure(gameKind string) {
	metrics.ratingPersistenceFailures.With(prometheus.Labels{"game_kind": gameKind}).Inc()
}

func (metrics prometheusMetrics) AddUnmatchedReason(gameKind string, reason string) {
	metrics.unmatchedReasons.With(prometheus.Labels{"game_kind": gameKind, "reason": reason}).Add(float64(1))
}
