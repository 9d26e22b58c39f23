// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package models

import (
	"encoding/json"
	"time"

	"github.com/mitchellh/copystructure"
	"github.com/sirupsen/logrus"
)

const (
	// PlayerIDPathParameter is the placeholder for playerID parameter.
	PlayerIDPathParameter = "playerID"

	// GameKindPathParameter is the placeholder for gameKind parameter.
	GameKindPathParameter = "gameKind"

	// SessionIDPathParameter is the placeholder for sessionID parameter.
	SessionIDPathParameter = "sessionID"
)

// QueueEntry is a waiting player's matchmaking request.
type QueueEntry struct {
	PlayerID   string    `json:"player_id"`
	GameKind   string    `json:"game_kind"`
	Rating     int       `json:"rating"`
	EnqueuedAt time.Time `json:"enqueued_at"`
}

// WaitTime returns how long the entry has been queued at now.
func (e QueueEntry) WaitTime(now time.Time) time.Duration {
	if now.Before(e.EnqueuedAt) {
		return 0
	}
	return now.Sub(e.EnqueuedAt)
}

type SessionState string

const (
	StateAwaitingPlayers SessionState = "awaiting_players"
	StateInProgress      SessionState = "in_progress"
	StateFinished        SessionState = "finished"
	StateAbandoned       SessionState = "abandoned"
)

// IsTerminal reports whether no further transitions are permitted.
func (s SessionState) IsTerminal() bool {
	return s == StateFinished || s == StateAbandoned
}

// ResultKind of a match. Win and Loss are from the first player's perspective.
type ResultKind string

const (
	ResultWin       ResultKind = "win"
	ResultLoss      ResultKind = "loss"
	ResultDraw      ResultKind = "draw"
	ResultAbandoned ResultKind = "abandoned"
)

// Move is one accepted move. Payload is opaque to the core and interpreted by the game evaluator.
type Move struct {
	PlayerID  string          `json:"player_id"`
	Payload   json.RawMessage `json:"payload"`
	Timestamp time.Time       `json:"timestamp"`
}

// MatchOutcome is the single source of truth for rating adjustment and stats increment.
type MatchOutcome struct {
	SessionID  string     `json:"session_id"`
	GameKind   string     `json:"game_kind"`
	Players    [2]string  `json:"players"`
	WinnerID   string     `json:"winner_id,omitempty"`
	ResultKind ResultKind `json:"result_kind"`
	DecidedAt  time.Time  `json:"decided_at"`
	Reason     string     `json:"reason,omitempty"`
}

// PlayerResult returns the win/loss/draw result of one participant.
func (o MatchOutcome) PlayerResult(playerID string) ResultKind {
	if o.WinnerID == "" {
		return ResultDraw
	}
	if o.WinnerID == playerID {
		return ResultWin
	}
	return ResultLoss
}

// EngineResult maps the outcome onto the rating engine's first-player perspective.
func (o MatchOutcome) EngineResult() ResultKind {
	return o.PlayerResult(o.Players[0])
}

// Outcome reasons.
const (
	ReasonEvaluated = "evaluated"
	ReasonResigned  = "resigned"
	ReasonTimeout   = "timeout"
	ReasonLeft      = "left"
)

// MatchSession is a read-only view of one session.
type MatchSession struct {
	SessionID           string        `json:"session_id"`
	GameKind            string        `json:"game_kind"`
	Players             [2]string     `json:"players"`
	RatingsAtStart      [2]int        `json:"ratings_at_start"`
	State               SessionState  `json:"state"`
	Moves               []Move        `json:"moves"`
	CurrentTurnPlayerID string        `json:"current_turn_player_id"`
	CreatedAt           time.Time     `json:"created_at"`
	DeadlineAt          time.Time     `json:"deadline_at"`
	Outcome             *MatchOutcome `json:"outcome,omitempty"`
}

// Opponent returns the other participant.
func (s MatchSession) Opponent(playerID string) string {
	if s.Players[0] == playerID {
		return s.Players[1]
	}
	return s.Players[0]
}

// RatingOf returns the participant's rating at session start.
func (s MatchSession) RatingOf(playerID string) int {
	if s.Players[1] == playerID {
		return s.RatingsAtStart[1]
	}
	return s.RatingsAtStart[0]
}

func (s MatchSession) Copy() MatchSession {
	copied, err := copystructure.Copy(s)
	if err != nil {
		logrus.Warn("failed copy matchSession:", err)
	}
	copySession, _ := copied.(MatchSession)
	return copySession
}

// RatingRecord is the durable per (player, game kind) rating and counters.
type RatingRecord struct {
	PlayerID string `json:"player_id"`
	GameKind string `json:"game_kind"`
	Rating   int    `json:"rating"`
	Wins     int    `json:"wins"`
	Losses   int    `json:"losses"`
	Draws    int    `json:"draws"`
}

// Apply returns the record after a rated result.
func (r RatingRecord) Apply(newRating int, result ResultKind) RatingRecord {
	r.Rating = newRating
	switch result {
	case ResultWin:
		r.Wins++
	case ResultLoss:
		r.Losses++
	case ResultDraw:
		r.Draws++
	}
	return r
}

// RatingChange is reported back to both clients once a session is rated.
type RatingChange struct {
	PlayerID  string     `json:"player_id"`
	OldRating int        `json:"old_rating"`
	NewRating int        `json:"new_rating"`
	Result    ResultKind `json:"result"`
}

// QueueStats is a point-in-time summary of one queue.
type QueueStats struct {
	Players int           `json:"players"`
	AvgWait time.Duration `json:"avg_wait"`
}
