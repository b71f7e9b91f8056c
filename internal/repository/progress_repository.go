package repository

import (
	"context"
	"errors"
	"game_gate_backend/internal/model"
	"time"

	"gorm.io/gorm"
)

type ProgressRepository struct {
	DB *gorm.DB
}

func NewProgressRepository(db *gorm.DB) *ProgressRepository {
	return &ProgressRepository{DB: db}
}

// CourseProgress 返回 0-100 的进度；未知时返回 nil
func (r *ProgressRepository) CourseProgress(ctx context.Context, userID, courseID uint) (*float64, error) {
	var p model.CourseProgress
	err := r.DB.WithContext(ctx).
		Where("user_id = ? AND course_id = ?", userID, courseID).
		First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	pct := p.ProgressPct
	return &pct, nil
}

func (r *ProgressRepository) SaveCourseProgress(ctx context.Context, p *model.CourseProgress) error {
	return r.DB.WithContext(ctx).Save(p).Error
}

// LastLessonView 返回最近一次课时浏览时间；courseID 为 0 时不限课程
func (r *ProgressRepository) LastLessonView(ctx context.Context, userID, courseID uint) (*time.Time, error) {
	query := r.DB.WithContext(ctx).Model(&model.LessonView{}).Where("user_id = ?", userID)
	if courseID > 0 {
		query = query.Where("course_id = ?", courseID)
	}

	var view model.LessonView
	err := query.Order("viewed_at DESC").First(&view).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	viewed := view.ViewedAt
	return &viewed, nil
}

func (r *ProgressRepository) RecordLessonView(ctx context.Context, v *model.LessonView) error {
	return r.DB.WithContext(ctx).Create(v).Error
}
