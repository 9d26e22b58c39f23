// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package constants

import "time"

const (
	DefaultRating = 1200
	KFactor       = 32

	// ratings are floored here, never negative
	MinRating = 0
)

const (
	BaseTolerance = 50
	MaxTolerance  = 100
	WidenAfter    = 15 * time.Second
)

const (
	TurnTimeout            = 30 * time.Second
	MaxConsecutiveTimeouts = 3
	SweepInterval          = time.Second
	ReconcileInterval      = 30 * time.Second
)

const (
	DefaultHistoryLimit = 20
	MaxHistoryLimit     = 100
)

const (
	TimeoutPolicyForfeit = "forfeit"
	TimeoutPolicyPass    = "pass"
)

const (
	JoinFunction        = "join"
	MatchQueuedFunction = "matchQueued"
	SweepFunction       = "sweepTimeouts"
	FinalizeFunction    = "finalize"

	// not matched reason constants.
	ReasonEmptyQueue       = "empty_queue"
	ReasonOutsideTolerance = "outside_tolerance"
)
