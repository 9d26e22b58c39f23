// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

// Package evaluator is the seam to the per game rule engines, which live outside this service.
package evaluator

import (
	"context"
	"sync"

	"github.com/AccelByte/extend-ranked-matchmaker/pkg/models"
)

type Status string

const (
	StatusOngoing Status = "ongoing"
	StatusWinner  Status = "winner"
	StatusDraw    Status = "draw"
)

// Verdict is the rule engine's reading of the move list.
type Verdict struct {
	Status   Status
	WinnerID string
}

func Ongoing() Verdict {
	return Verdict{Status: StatusOngoing}
}

func Winner(playerID string) Verdict {
	return Verdict{Status: StatusWinner, WinnerID: playerID}
}

func Draw() Verdict {
	return Verdict{Status: StatusDraw}
}

func (v Verdict) IsTerminal() bool {
	return v.Status == StatusWinner || v.Status == StatusDraw
}

// Evaluator decides whether a move list ends the match.
// An error means the evaluator could not answer, not that the move is illegal.
type Evaluator interface {
	Evaluate(ctx context.Context, gameKind string, players [2]string, moves []models.Move) (Verdict, error)
}

// Func adapts a function to Evaluator.
type Func func(ctx context.Context, gameKind string, players [2]string, moves []models.Move) (Verdict, error)

func (f Func) Evaluate(ctx context.Context, gameKind string, players [2]string, moves []models.Move) (Verdict, error) {
	return f(ctx, gameKind, players, moves)
}

// NeverEnding keeps every match going; such matches end by resignation, timeout or leaving.
var NeverEnding Evaluator = Func(func(context.Context, string, [2]string, []models.Move) (Verdict, error) {
	return Ongoing(), nil
})

// Registry resolves the evaluator of a game kind.
type Registry struct {
	mu       sync.RWMutex
	byKind   map[string]Evaluator
	fallback Evaluator
}

func NewRegistry(fallback Evaluator) *Registry {
	if fallback == nil {
		fallback = NeverEnding
	}
	return &Registry{byKind: make(map[string]Evaluator), fallback: fallback}
}

func (r *Registry) Register(gameKind string, evaluator Evaluator) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byKind[gameKind] = evaluator
}

func (r *Registry) For(gameKind string) Evaluator {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if evaluator, ok := r.byKind[gameKind]; ok {
		return evaluator
	}
	return r.fallback
}

// Evaluate dispatches to the evaluator registered for the game kind.
func (r *Registry) Evaluate(ctx context.Context, gameKind string, players [2]string, moves []models.Move) (Verdict, error) {
	return r.For(gameKind).Evaluate(ctx, gameKind, players, moves)
}
