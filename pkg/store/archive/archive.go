// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

// Package archive keeps terminal sessions in redis.
package archive

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/AccelByte/extend-ranked-matchmaker/pkg/models"
	"github.com/AccelByte/extend-ranked-matchmaker/pkg/store"
)

const defaultKeyPrefix = "ranked"

var _ store.SessionArchive = (*RedisArchive)(nil)

// RedisArchive stores each session as JSON under <prefix>:session:<id>
// and indexes it per player in the sorted set <prefix>:player:<id>:sessions scored by creation time.
type RedisArchive struct {
	client    redis.UniversalClient
	keyPrefix string
}

func New(client redis.UniversalClient, keyPrefix string) *RedisArchive {
	if keyPrefix == "" {
		keyPrefix = defaultKeyPrefix
	}
	return &RedisArchive{client: client, keyPrefix: keyPrefix}
}

func (a *RedisArchive) sessionKey(sessionID string) string {
	return fmt.Sprintf("%s:session:%s", a.keyPrefix, sessionID)
}

func (a *RedisArchive) playerKey(playerID string) string {
	return fmt.Sprintf("%s:player:%s:sessions", a.keyPrefix, playerID)
}

func (a *RedisArchive) Put(ctx context.Context, session models.MatchSession) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("marshal session %s: %w", session.SessionID, err)
	}

	score := float64(session.CreatedAt.UnixNano())
	_, err = a.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, a.sessionKey(session.SessionID), data, 0)
		for _, playerID := range session.Players {
			pipe.ZAdd(ctx, a.playerKey(playerID), redis.Z{Score: score, Member: session.SessionID})
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("archive session %s: %w", session.SessionID, err)
	}
	return nil
}

func (a *RedisArchive) Get(ctx context.Context, sessionID string) (models.MatchSession, error) {
	data, err := a.client.Get(ctx, a.sessionKey(sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return models.MatchSession{}, models.ErrSessionNotFound
	}
	if err != nil {
		return models.MatchSession{}, fmt.Errorf("get archived session %s: %w", sessionID, err)
	}

	var session models.MatchSession
	if err = json.Unmarshal(data, &session); err != nil {
		return models.MatchSession{}, fmt.Errorf("unmarshal session %s: %w", sessionID, err)
	}
	return session, nil
}

func (a *RedisArchive) ListByPlayer(ctx context.Context, playerID string, limit int) ([]models.MatchSession, error) {
	stop := int64(-1)
	if limit > 0 {
		stop = int64(limit - 1)
	}
	ids, err := a.client.ZRevRange(ctx, a.playerKey(playerID), 0, stop).Result()
	if err != nil {
		return nil, fmt.Errorf("list sessions of %s: %w", playerID, err)
	}
	if len(ids) == 0 {
		return []models.MatchSession{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = a.sessionKey(id)
	}
	values, err := a.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("load sessions of %s: %w", playerID, err)
	}

	sessions := make([]models.MatchSession, 0, len(values))
	for i, value := range values {
		raw, ok := value.(string)
		if !ok {
			continue
		}
		var session models.MatchSession
		if err = json.Unmarshal([]byte(raw), &session); err != nil {
			return nil, fmt.Errorf("unmarshal session %s: %w", ids[i], err)
		}
		sessions = append(sessions, session)
	}
	return sessions, nil
}
