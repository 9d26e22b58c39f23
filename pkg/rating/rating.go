// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

// Package rating computes Elo rating updates for head-to-head matches.
package rating

import (
	"math"

	"github.com/AccelByte/extend-ranked-matchmaker/pkg/constants"
	"github.com/AccelByte/extend-ranked-matchmaker/pkg/mathutil"
	"github.com/AccelByte/extend-ranked-matchmaker/pkg/models"
)

// ExpectedScore returns the expected score of a player rated a against one rated b.
func ExpectedScore(a, b int) float64 {
	return 1 / (1 + math.Pow(10, float64(b-a)/400))
}

// ActualScores returns the scores of both players for a result seen from the first player.
// Abandoned is not a score by itself; callers resolve it to a win or loss first.
func ActualScores(result models.ResultKind) (float64, float64) {
	switch result {
	case models.ResultWin:
		return 1, 0
	case models.ResultLoss:
		return 0, 1
	default:
		return 0.5, 0.5
	}
}

// ComputeNewRatings returns the ratings of both players after a match, using one K for both.
func ComputeNewRatings(ratingA, ratingB int, result models.ResultKind) (int, int) {
	expectedA := ExpectedScore(ratingA, ratingB)
	expectedB := 1 - expectedA
	actualA, actualB := ActualScores(result)

	newA := int(math.Round(float64(ratingA) + constants.KFactor*(actualA-expectedA)))
	newB := int(math.Round(float64(ratingB) + constants.KFactor*(actualB-expectedB)))

	return mathutil.Max(constants.MinRating, newA), mathutil.Max(constants.MinRating, newB)
}
