// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package testsetup

import (
	"sync"
	"time"

	"github.com/AccelByte/extend-ranked-matchmaker/pkg/metrics"
)

type stubMetricsCollection struct{}

func (s stubMetricsCollection) PlayersInQueue(gameKind string, numPlayers int) {}

func (s stubMetricsCollection) AddFunctionElapsedTimeMs(gameKind, function string, elapsedTime time.Duration) {
}

func (s stubMetricsCollection) AddSessionCreated(gameKind string) {}

func (s stubMetricsCollection) AddSessionFinished(gameKind string, result string, reason string) {}

func (s stubMetricsCollection) AddTurnTimeout(gameKind string, policy string) {}

func (s stubMetricsCollection) AddRatingPersistenceFailure(gameKind string) {}

func (s stubMetricsCollection) AddUnmatchedReason(gameKind string, reason string) {}

func NewMetrics() metrics.MatchmakingMetrics {
	return stubMetricsCollection{}
}

// RecordingMetrics counts calls per metric name.
type RecordingMetrics struct {
	stubMetricsCollection
	mu     sync.Mutex
	counts map[string]int
}

func NewRecordingMetrics() *RecordingMetrics {
	return &RecordingMetrics{counts: make(map[string]int)}
}

func (r *RecordingMetrics) inc(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.counts[name]++
}

func (r *RecordingMetrics) Count(name string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.counts[name]
}

func (r *RecordingMetrics) AddSessionCreated(gameKind string) { r.inc("session_created") }

func (r *RecordingMetrics) AddSessionFinished(gameKind string, result string, reason string) {
	r.inc("session_finished")
	r.inc("session_finished:" + reason)
}

func (r *RecordingMetrics) AddTurnTimeout(gameKind string, policy string) { r.inc("turn_timeout") }

func (r *RecordingMetrics) AddRatingPersistenceFailure(gameKind string) {
	r.inc("rating_persistence_failure")
}

func (r *RecordingMetrics) AddUnmatchedReason(gameKind string, reason string) {
	r.inc("unmatched:" + reason)
}
