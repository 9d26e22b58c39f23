// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

// Package memory holds in-process implementations of the store interfaces.
package memory

import (
	"context"
	"sync"

	"github.com/AccelByte/extend-ranked-matchmaker/pkg/constants"
	"github.com/AccelByte/extend-ranked-matchmaker/pkg/models"
	"github.com/AccelByte/extend-ranked-matchmaker/pkg/store"
)

var _ store.RatingStore = (*RatingStore)(nil)

type ratingKey struct {
	playerID string
	gameKind string
}

type appliedKey struct {
	sessionID string
	playerID  string
}

type RatingStore struct {
	mu      sync.Mutex
	records map[ratingKey]models.RatingRecord
	applied map[appliedKey]struct{}
}

func NewRatingStore() *RatingStore {
	return &RatingStore{
		records: make(map[ratingKey]models.RatingRecord),
		applied: make(map[appliedKey]struct{}),
	}
}

func (s *RatingStore) GetRating(ctx context.Context, playerID, gameKind string) (models.RatingRecord, error) {
	if err := ctx.Err(); err != nil {
		return models.RatingRecord{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getOrCreate(playerID, gameKind), nil
}

func (s *RatingStore) ApplyOutcome(ctx context.Context, sessionID, playerID, gameKind string, newRating int, result models.ResultKind) (models.RatingRecord, error) {
	if err := ctx.Err(); err != nil {
		return models.RatingRecord{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	record := s.getOrCreate(playerID, gameKind)
	key := appliedKey{sessionID: sessionID, playerID: playerID}
	if _, done := s.applied[key]; done {
		return record, nil
	}

	record = record.Apply(newRating, result)
	s.records[ratingKey{playerID: playerID, gameKind: gameKind}] = record
	s.applied[key] = struct{}{}
	return record, nil
}

// Set overwrites a record; used to seed ratings.
func (s *RatingStore) Set(record models.RatingRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[ratingKey{playerID: record.PlayerID, gameKind: record.GameKind}] = record
}

func (s *RatingStore) getOrCreate(playerID, gameKind string) models.RatingRecord {
	key := ratingKey{playerID: playerID, gameKind: gameKind}
	record, ok := s.records[key]
	if !ok {
		record = store.NewRatingRecord(playerID, gameKind, constants.DefaultRating)
		s.records[key] = record
	}
	return record
}
