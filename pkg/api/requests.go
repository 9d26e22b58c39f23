// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package api

import (
	"encoding/json"
	"fmt"
	"time"

	validator "github.com/AccelByte/justice-input-validation-go"
	"github.com/go-openapi/swag"

	"github.com/AccelByte/extend-ranked-matchmaker/pkg/coordinator"
	"github.com/AccelByte/extend-ranked-matchmaker/pkg/models"
)

type QueueRequest struct {
	PlayerID string `json:"player_id" valid:"stringlength(1|64)"`
	GameKind string `json:"game_kind" valid:"stringlength(1|64),lowercase"`
}

func (r *QueueRequest) Validate() error {
	if r.PlayerID == "" || r.GameKind == "" {
		return fmt.Errorf("player_id and game_kind are required: %w", models.ErrInvalidRequest)
	}
	if _, err := validator.ValidateStruct(r); err != nil {
		return fmt.Errorf("%v: %w", err, models.ErrInvalidRequest)
	}
	return nil
}

type PlayerRequest struct {
	PlayerID string `json:"player_id" valid:"stringlength(1|64)"`
}

func (r *PlayerRequest) Validate() error {
	if r.PlayerID == "" {
		return fmt.Errorf("player_id is required: %w", models.ErrInvalidRequest)
	}
	if _, err := validator.ValidateStruct(r); err != nil {
		return fmt.Errorf("%v: %w", err, models.ErrInvalidRequest)
	}
	return nil
}

type MoveRequest struct {
	PlayerID string          `json:"player_id" valid:"stringlength(1|64)"`
	Payload  json.RawMessage `json:"payload"   optional:"true"`
}

func (r *MoveRequest) Validate() error {
	if r.PlayerID == "" {
		return fmt.Errorf("player_id is required: %w", models.ErrInvalidRequest)
	}
	if _, err := validator.ValidateStruct(r); err != nil {
		return fmt.Errorf("%v: %w", err, models.ErrInvalidRequest)
	}
	if len(r.Payload) > 0 && !json.Valid(r.Payload) {
		return fmt.Errorf("payload is not valid json: %w", models.ErrInvalidRequest)
	}
	return nil
}

// QueueResponse is the answer to join and status requests.
type QueueResponse struct {
	Matched       bool                  `json:"matched"`
	SessionID     string                `json:"session_id,omitempty"`
	Opponent      *coordinator.Opponent `json:"opponent,omitempty"`
	Queued        bool                  `json:"queued"`
	QueuePosition *int                  `json:"queue_position,omitempty"`
	QueuePlayers  *int                  `json:"queue_players,omitempty"`
	AvgWaitTimeMs *int64                `json:"avg_wait_time_ms,omitempty"`
}

func newQueueResponse(result coordinator.JoinResult) QueueResponse {
	response := QueueResponse{
		Matched:   result.Matched,
		SessionID: result.SessionID,
		Opponent:  result.Opponent,
		Queued:    result.Queued,
	}
	if result.Queued {
		response.QueuePosition = swag.Int(result.QueuePosition)
		response.QueuePlayers = swag.Int(result.QueueStats.Players)
		response.AvgWaitTimeMs = swag.Int64(result.QueueStats.AvgWait.Milliseconds())
	}
	return response
}

type QueueStatsResponse struct {
	GameKind      string `json:"game_kind"`
	Players       int    `json:"players"`
	AvgWaitTimeMs int64  `json:"avg_wait_time_ms"`
}

// RatingResponse is a rating record plus the derived win rate.
type RatingResponse struct {
	models.RatingRecord
	GamesPlayed int      `json:"games_played"`
	WinRate     *float64 `json:"win_rate,omitempty"`
}

func newRatingResponse(record models.RatingRecord) RatingResponse {
	response := RatingResponse{
		RatingRecord: record,
		GamesPlayed:  record.Wins + record.Losses + record.Draws,
	}
	if response.GamesPlayed > 0 {
		response.WinRate = swag.Float64(float64(record.Wins) / float64(response.GamesPlayed))
	}
	return response
}

type ErrorResponse struct {
	ErrorCode    int    `json:"errorCode"`
	ErrorMessage string `json:"errorMessage"`
}

func durationMs(d time.Duration) int64 {
	return d.Milliseconds()
}
