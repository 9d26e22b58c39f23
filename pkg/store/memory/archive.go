// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/elliotchance/pie/v2"

	"github.com/AccelByte/extend-ranked-matchmaker/pkg/models"
	"github.com/AccelByte/extend-ranked-matchmaker/pkg/store"
)

var _ store.SessionArchive = (*Archive)(nil)

type Archive struct {
	mu       sync.RWMutex
	sessions map[string]models.MatchSession
	byPlayer map[string][]string
}

func NewArchive() *Archive {
	return &Archive{
		sessions: make(map[string]models.MatchSession),
		byPlayer: make(map[string][]string),
	}
}

func (a *Archive) Put(ctx context.Context, session models.MatchSession) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	if _, exists := a.sessions[session.SessionID]; !exists {
		for _, playerID := range session.Players {
			a.byPlayer[playerID] = append(a.byPlayer[playerID], session.SessionID)
		}
	}
	a.sessions[session.SessionID] = session.Copy()
	return nil
}

func (a *Archive) Get(ctx context.Context, sessionID string) (models.MatchSession, error) {
	if err := ctx.Err(); err != nil {
		return models.MatchSession{}, err
	}
	a.mu.RLock()
	defer a.mu.RUnlock()

	session, ok := a.sessions[sessionID]
	if !ok {
		return models.MatchSession{}, models.ErrSessionNotFound
	}
	return session.Copy(), nil
}

func (a *Archive) ListByPlayer(ctx context.Context, playerID string, limit int) ([]models.MatchSession, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	a.mu.RLock()
	defer a.mu.RUnlock()

	ids := slices.Clone(a.byPlayer[playerID])
	slices.Reverse(ids)
	if limit > 0 && len(ids) > limit {
		ids = ids[:limit]
	}

	return pie.Map(ids, func(id string) models.MatchSession {
		return a.sessions[id].Copy()
	}), nil
}
