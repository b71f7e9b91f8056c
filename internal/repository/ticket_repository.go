package repository

import (
	"context"
	"errors"
	"game_gate_backend/internal/model"

	"gorm.io/gorm"
)

type TicketRepository struct {
	DB *gorm.DB
}

func NewTicketRepository(db *gorm.DB) *TicketRepository {
	return &TicketRepository{DB: db}
}

// Balance 没有票据记录的用户余额为 0
func (r *TicketRepository) Balance(ctx context.Context, userID uint) (int, error) {
	var t model.UserTicket
	err := r.DB.WithContext(ctx).Where("user_id = ?", userID).First(&t).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return t.Balance, nil
}

func (r *TicketRepository) Save(ctx context.Context, t *model.UserTicket) error {
	return r.DB.WithContext(ctx).Save(t).Error
}
