// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type MatchmakingMetrics interface {
	PlayersInQueue(gameKind string, numPlayers int)
	AddFunctionElapsedTimeMs(gameKind, function string, elapsedTime time.Duration)
	AddSessionCreated(gameKind string)
	AddSessionFinished(gameKind string, result string, reason string)
	AddTurnTimeout(gameKind string, policy string)
	AddRatingPersistenceFailure(gameKind string)
	AddUnmatchedReason(gameKind string, reason string)
}

func NewMetrics(registry *prometheus.Registry) MatchmakingMetrics {
	return setupPrometheusMetrics(registry)
}
