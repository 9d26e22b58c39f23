// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

// Package matcher pairs queue entries by rating proximity.
// Everything here is pure over the given snapshot; removing matched entries is the caller's job.
package matcher

import (
	"time"

	"github.com/AccelByte/extend-ranked-matchmaker/pkg/config"
	"github.com/AccelByte/extend-ranked-matchmaker/pkg/mathutil"
	"github.com/AccelByte/extend-ranked-matchmaker/pkg/models"
)

// Tolerance is the rating gap accepted for a pair, widening with queue time.
type Tolerance struct {
	Base       int
	Max        int
	WidenAfter time.Duration
}

func ToleranceFromConfig(cfg *config.Config) Tolerance {
	return Tolerance{
		Base:       cfg.BaseTolerance,
		Max:        cfg.MaxTolerance,
		WidenAfter: cfg.WidenAfter(),
	}
}

// For returns the tolerance after waiting for wait. It doubles every time another WidenAfter
// is exceeded, up to Max, so it never shrinks as the wait grows.
func (t Tolerance) For(wait time.Duration) int {
	tolerance := t.Base
	if t.WidenAfter <= 0 {
		return tolerance
	}
	for threshold := t.WidenAfter; wait > threshold && tolerance < t.Max; threshold += t.WidenAfter {
		tolerance = mathutil.Max(tolerance*2, 1)
	}
	return mathutil.Min(tolerance, mathutil.Max(t.Max, t.Base))
}

// Eligible lets the caller veto candidates, e.g. players that already play elsewhere.
type Eligible func(candidate models.QueueEntry) bool

type Matcher struct {
	tolerance Tolerance
}

func New(tolerance Tolerance) *Matcher {
	return &Matcher{tolerance: tolerance}
}

// FindOpponent returns the entry closest in rating to the joiner among those within tolerance.
// The tolerance of a pair follows the longer wait of the two; for a fresh join that is the candidate's.
// Ties go to the earliest enqueued candidate, then to the lowest player id.
func (m *Matcher) FindOpponent(joiner models.QueueEntry, entries []models.QueueEntry, now time.Time, eligible Eligible) (models.QueueEntry, bool) {
	var (
		best     models.QueueEntry
		bestDiff int
		found    bool
	)

	joinerWait := joiner.WaitTime(now)
	for _, candidate := range entries {
		if candidate.PlayerID == joiner.PlayerID || candidate.GameKind != joiner.GameKind {
			continue
		}
		if eligible != nil && !eligible(candidate) {
			continue
		}

		diff := mathutil.Abs(candidate.Rating - joiner.Rating)
		tolerance := m.tolerance.For(mathutil.Max(joinerWait, candidate.WaitTime(now)))
		if diff > tolerance {
			continue
		}

		if !found || isBetter(candidate, diff, best, bestDiff) {
			best, bestDiff, found = candidate, diff, true
		}
	}

	return best, found
}

func isBetter(candidate models.QueueEntry, diff int, best models.QueueEntry, bestDiff int) bool {
	if diff != bestDiff {
		return diff < bestDiff
	}
	if !candidate.EnqueuedAt.Equal(best.EnqueuedAt) {
		return candidate.EnqueuedAt.Before(best.EnqueuedAt)
	}
	return candidate.PlayerID < best.PlayerID
}

// Pair is two entries matched together; First is the longer waiting one.
type Pair struct {
	First  models.QueueEntry
	Second models.QueueEntry
}

// PairAll walks the entries oldest first, using each unmatched entry as pivot, and returns
// every pair found. An entry appears in at most one pair.
func (m *Matcher) PairAll(entries []models.QueueEntry, now time.Time, eligible Eligible) []Pair {
	var pairs []Pair
	used := make(map[string]struct{}, len(entries))
	notUsed := func(candidate models.QueueEntry) bool {
		if _, ok := used[candidate.PlayerID]; ok {
			return false
		}
		return eligible == nil || eligible(candidate)
	}

	for _, pivot := range entries {
		if !notUsed(pivot) {
			continue
		}
		opponent, ok := m.FindOpponent(pivot, entries, now, notUsed)
		if !ok {
			continue
		}
		used[pivot.PlayerID] = struct{}{}
		used[opponent.PlayerID] = struct{}{}
		pairs = append(pairs, Pair{First: pivot, Second: opponent})
	}

	return pairs
}
