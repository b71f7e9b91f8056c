package repository

import (
	"context"
	"errors"
	"game_gate_backend/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PlayStatRepository struct {
	DB *gorm.DB
}

func NewPlayStatRepository(db *gorm.DB) *PlayStatRepository {
	return &PlayStatRepository{DB: db}
}

// TodayStats 返回用户某天的计数，没有记录时为零值
func (r *PlayStatRepository) TodayStats(ctx context.Context, userID uint, day string) (model.PlayStats, error) {
	var stat model.DailyPlayStat
	err := r.DB.WithContext(ctx).
		Where("user_id = ? AND day = ?", userID, day).
		First(&stat).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.PlayStats{}, nil
	}
	if err != nil {
		return model.PlayStats{}, err
	}
	return model.PlayStats{
		GamesPlayed:       stat.GamesPlayed,
		TimePlayedSeconds: stat.TimePlayedSeconds,
	}, nil
}

// RecordPlay 累加一局游戏及其时长
func (r *PlayStatRepository) RecordPlay(ctx context.Context, userID uint, day string, seconds int) error {
	stat := model.DailyPlayStat{
		UserID:            userID,
		Day:               day,
		GamesPlayed:       1,
		TimePlayedSeconds: seconds,
	}
	return r.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "day"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"games_played":        gorm.Expr("games_played + ?", 1),
			"time_played_seconds": gorm.Expr("time_played_seconds + ?", seconds),
			"updated_at":          gorm.Expr("CURRENT_TIMESTAMP"),
		}),
	}).Create(&stat).Error
}
