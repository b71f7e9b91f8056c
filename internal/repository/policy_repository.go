package repository

import (
	"context"
	"game_gate_backend/internal/model"

	"gorm.io/gorm"
)

type PolicyRepository struct {
	DB *gorm.DB
}

func NewPolicyRepository(db *gorm.DB) *PolicyRepository {
	return &PolicyRepository{DB: db}
}

// ListActive 返回启用的策略，按 priority 升序、id 升序
func (r *PolicyRepository) ListActive(ctx context.Context) ([]model.GamePolicy, error) {
	var policies []model.GamePolicy
	err := r.DB.WithContext(ctx).
		Where("active = ?", true).
		Order("priority ASC").
		Order("id ASC").
		Find(&policies).Error
	return policies, err
}

// List 返回全部策略（含停用），用于管理端查看
func (r *PolicyRepository) List(ctx context.Context) ([]model.GamePolicy, error) {
	var policies []model.GamePolicy
	err := r.DB.WithContext(ctx).
		Order("priority ASC").
		Order("id ASC").
		Find(&policies).Error
	return policies, err
}

func (r *PolicyRepository) FindByID(ctx context.Context, id uint) (*model.GamePolicy, error) {
	var p model.GamePolicy
	if err := r.DB.WithContext(ctx).First(&p, id).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *PolicyRepository) Create(ctx context.Context, p *model.GamePolicy) error {
	return r.DB.WithContext(ctx).Create(p).Error
}

// CreateBatch 在一个事务内写入多条策略
func (r *PolicyRepository) CreateBatch(ctx context.Context, policies []model.GamePolicy) error {
	if len(policies) == 0 {
		return nil
	}
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(&policies).Error
	})
}

func (r *PolicyRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.DB.WithContext(ctx).Model(&model.GamePolicy{}).Count(&count).Error
	return count, err
}
