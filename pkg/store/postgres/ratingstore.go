// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

// Package postgres is the gorm backed RatingStore.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/AccelByte/extend-ranked-matchmaker/pkg/constants"
	"github.com/AccelByte/extend-ranked-matchmaker/pkg/models"
	"github.com/AccelByte/extend-ranked-matchmaker/pkg/store"
)

var _ store.RatingStore = (*RatingStore)(nil)

// RatingRow is one (player, game kind) rating.
type RatingRow struct {
	PlayerID  string    `gorm:"primaryKey;type:varchar(64)"`
	GameKind  string    `gorm:"primaryKey;type:varchar(64)"`
	Rating    int       `gorm:"not null"`
	Wins      int       `gorm:"not null;default:0"`
	Losses    int       `gorm:"not null;default:0"`
	Draws     int       `gorm:"not null;default:0"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

func (RatingRow) TableName() string { return "rating_records" }

// AppliedOutcomeRow marks that a session's result was applied to a player.
type AppliedOutcomeRow struct {
	SessionID string    `gorm:"primaryKey;type:varchar(64)"`
	PlayerID  string    `gorm:"primaryKey;type:varchar(64)"`
	GameKind  string    `gorm:"type:varchar(64);not null"`
	NewRating int       `gorm:"not null"`
	Result    string    `gorm:"type:varchar(16);not null"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

func (AppliedOutcomeRow) TableName() string { return "applied_outcomes" }

type RatingStore struct {
	DB            *gorm.DB
	DefaultRating int
}

// Open connects to dsn and migrates the rating tables.
func Open(dsn string) (*RatingStore, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	s := New(db)
	if err = s.Migrate(); err != nil {
		return nil, err
	}
	return s, nil
}

func New(db *gorm.DB) *RatingStore {
	return &RatingStore{DB: db, DefaultRating: constants.DefaultRating}
}

func (s *RatingStore) Migrate() error {
	if err := s.DB.AutoMigrate(&RatingRow{}, &AppliedOutcomeRow{}); err != nil {
		return fmt.Errorf("migrate rating tables: %w", err)
	}
	return nil
}

func (s *RatingStore) GetRating(ctx context.Context, playerID, gameKind string) (models.RatingRecord, error) {
	var row RatingRow
	err := s.DB.WithContext(ctx).Where("player_id = ? AND game_kind = ?", playerID, gameKind).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			var txErr error
			row, txErr = s.loadOrCreate(tx, playerID, gameKind, false)
			return txErr
		})
	}
	if err != nil {
		return models.RatingRecord{}, fmt.Errorf("get rating of %s/%s: %w", playerID, gameKind, err)
	}
	return row.toRecord(), nil
}

func (s *RatingStore) ApplyOutcome(ctx context.Context, sessionID, playerID, gameKind string, newRating int, result models.ResultKind) (models.RatingRecord, error) {
	var row RatingRow
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		marker := AppliedOutcomeRow{
			SessionID: sessionID,
			PlayerID:  playerID,
			GameKind:  gameKind,
			NewRating: newRating,
			Result:    string(result),
		}
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&marker)
		if res.Error != nil {
			return res.Error
		}

		var err error
		row, err = s.loadOrCreate(tx, playerID, gameKind, true)
		if err != nil {
			return err
		}
		if res.RowsAffected == 0 {
			// already applied for this session
			return nil
		}

		applied := row.toRecord().Apply(newRating, result)
		row.Rating, row.Wins, row.Losses, row.Draws = applied.Rating, applied.Wins, applied.Losses, applied.Draws
		return tx.Model(&row).
			Where("player_id = ? AND game_kind = ?", playerID, gameKind).
			Updates(map[string]interface{}{
				"rating": row.Rating,
				"wins":   row.Wins,
				"losses": row.Losses,
				"draws":  row.Draws,
			}).Error
	})
	if err != nil {
		return models.RatingRecord{}, fmt.Errorf("apply outcome %s to %s/%s: %w", sessionID, playerID, gameKind, err)
	}
	return row.toRecord(), nil
}

func (s *RatingStore) loadOrCreate(tx *gorm.DB, playerID, gameKind string, lock bool) (RatingRow, error) {
	row := RatingRow{PlayerID: playerID, GameKind: gameKind, Rating: s.DefaultRating}
	if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&row).Error; err != nil {
		return RatingRow{}, err
	}

	query := tx
	if lock {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	if err := query.Where("player_id = ? AND game_kind = ?", playerID, gameKind).First(&row).Error; err != nil {
		return RatingRow{}, err
	}
	return row, nil
}

func (r RatingRow) toRecord() models.RatingRecord {
	return models.RatingRecord{
		PlayerID: r.PlayerID,
		GameKind: r.GameKind,
		Rating:   r.Rating,
		Wins:     r.Wins,
		Losses:   r.Losses,
		Draws:    r.Draws,
	}
}
