// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

// Package store declares the persistence collaborators of the coordinator.
package store

import (
	"context"

	"github.com/AccelByte/extend-ranked-matchmaker/pkg/models"
)

// RatingStore is the durable (player, game kind) rating table.
type RatingStore interface {
	// GetRating returns the record, creating the default one when absent.
	GetRating(ctx context.Context, playerID, gameKind string) (models.RatingRecord, error)

	// ApplyOutcome sets the new rating and increments the counter of result in one atomic step.
	// It is keyed by (sessionID, playerID): applying the same session twice changes nothing the second time.
	ApplyOutcome(ctx context.Context, sessionID, playerID, gameKind string, newRating int, result models.ResultKind) (models.RatingRecord, error)
}

// SessionArchive is the read-only log of terminal sessions.
type SessionArchive interface {
	// Put stores the terminal session; storing the same session again is harmless.
	Put(ctx context.Context, session models.MatchSession) error

	// Get returns models.ErrSessionNotFound when the session was never archived.
	Get(ctx context.Context, sessionID string) (models.MatchSession, error)

	// ListByPlayer returns the player's sessions, newest first.
	ListByPlayer(ctx context.Context, playerID string, limit int) ([]models.MatchSession, error)
}

// NewRatingRecord returns the record of a player that never played the game kind.
func NewRatingRecord(playerID, gameKind string, defaultRating int) models.RatingRecord {
	return models.RatingRecord{PlayerID: playerID, GameKind: gameKind, Rating: defaultRating}
}
