package repository

import (
	"context"
	"game_gate_backend/internal/model"

	"gorm.io/gorm"
)

type AttemptRepository struct {
	DB *gorm.DB
}

func NewAttemptRepository(db *gorm.DB) *AttemptRepository {
	return &AttemptRepository{DB: db}
}

// RecordAttempt 追加一条答题记录
func (r *AttemptRepository) RecordAttempt(ctx context.Context, attempt *model.GameAttempt) error {
	return r.DB.WithContext(ctx).Create(attempt).Error
}

func (r *AttemptRepository) ListBySession(ctx context.Context, sessionID string) ([]model.GameAttempt, error) {
	var attempts []model.GameAttempt
	err := r.DB.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("attempted_at ASC").
		Find(&attempts).Error
	return attempts, err
}
