// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package testsetup

import (
	"context"
	"errors"
	"sync"

	"github.com/AccelByte/extend-ranked-matchmaker/pkg/models"
	"github.com/AccelByte/extend-ranked-matchmaker/pkg/store"
)

var ErrStoreDown = errors.New("rating store unavailable")

// FlakyRatingStore fails the next FailApply ApplyOutcome calls and the next FailGet GetRating calls.
type FlakyRatingStore struct {
	store.RatingStore

	mu         sync.Mutex
	FailApply  int
	FailGet    int
	applyCalls int
}

func NewFlakyRatingStore(inner store.RatingStore) *FlakyRatingStore {
	return &FlakyRatingStore{RatingStore: inner}
}

func (f *FlakyRatingStore) SetFailures(get, apply int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.FailGet = get
	f.FailApply = apply
}

func (f *FlakyRatingStore) ApplyCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.applyCalls
}

func (f *FlakyRatingStore) GetRating(ctx context.Context, playerID, gameKind string) (models.RatingRecord, error) {
	f.mu.Lock()
	if f.FailGet > 0 {
		f.FailGet--
		f.mu.Unlock()
		return models.RatingRecord{}, ErrStoreDown
	}
	f.mu.Unlock()
	return f.RatingStore.GetRating(ctx, playerID, gameKind)
}

func (f *FlakyRatingStore) ApplyOutcome(ctx context.Context, sessionID, playerID, gameKind string, newRating int, result models.ResultKind) (models.RatingRecord, error) {
	f.mu.Lock()
	f.applyCalls++
	if f.FailApply > 0 {
		f.FailApply--
		f.mu.Unlock()
		return models.RatingRecord{}, ErrStoreDown
	}
	f.mu.Unlock()
	return f.RatingStore.ApplyOutcome(ctx, sessionID, playerID, gameKind, newRating, result)
}
