package repository

import (
	"context"
	"errors"
	"game_gate_backend/internal/model"

	"gorm.io/gorm"
)

type ParentControlRepository struct {
	DB *gorm.DB
}

func NewParentControlRepository(db *gorm.DB) *ParentControlRepository {
	return &ParentControlRepository{DB: db}
}

// ParentControls 没有设置时返回不阻止的零值
func (r *ParentControlRepository) ParentControls(ctx context.Context, userID uint) (model.ParentControls, error) {
	var pc model.ParentControl
	err := r.DB.WithContext(ctx).Where("user_id = ?", userID).First(&pc).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.ParentControls{}, nil
	}
	if err != nil {
		return model.ParentControls{}, err
	}
	return pc.Controls(), nil
}

func (r *ParentControlRepository) Save(ctx context.Context, pc *model.ParentControl) error {
	return r.DB.WithContext(ctx).Save(pc).Error
}
