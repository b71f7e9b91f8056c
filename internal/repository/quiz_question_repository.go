package repository

import (
	"context"
	"errors"
	"game_gate_backend/internal/model"
	"game_gate_backend/internal/util"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// order 是保留字，交给方言负责转义
var orderColumn = clause.OrderByColumn{Column: clause.Column{Name: "order"}}

// QuestionMeta 题目 ID 与筛选所需的元数据
type QuestionMeta struct {
	ID         uint
	Difficulty string
}

type QuizQuestionRepository struct {
	DB *gorm.DB
}

func NewQuizQuestionRepository(db *gorm.DB) *QuizQuestionRepository {
	return &QuizQuestionRepository{DB: db}
}

// ListQuestionMeta 返回测验下全部题目，按 order、id 排序
func (r *QuizQuestionRepository) ListQuestionMeta(ctx context.Context, quizID uint) ([]QuestionMeta, error) {
	var metas []QuestionMeta
	err := r.DB.WithContext(ctx).
		Model(&model.QuizQuestion{}).
		Select("id, difficulty").
		Where("quiz_id = ?", quizID).
		Order(orderColumn).
		Order("id ASC").
		Scan(&metas).Error
	return metas, err
}

// FindQuestion 加载题目及其全部选项（含正确性）
func (r *QuizQuestionRepository) FindQuestion(ctx context.Context, questionID uint) (*model.QuizQuestion, error) {
	var q model.QuizQuestion
	err := r.DB.WithContext(ctx).
		Preload("Answers", func(db *gorm.DB) *gorm.DB {
			return db.Order(orderColumn).Order("id ASC")
		}).
		First(&q, questionID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrQuestionNotFound
	}
	if err != nil {
		return nil, err
	}
	return &q, nil
}

// RandomizeAnswers 测验是否配置为乱序下发选项；测验不存在时按不乱序处理
func (r *QuizQuestionRepository) RandomizeAnswers(ctx context.Context, quizID uint) (bool, error) {
	var quiz model.Quiz
	err := r.DB.WithContext(ctx).Select("id, randomize_answers").First(&quiz, quizID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return quiz.RandomizeAnswers, nil
}

func (r *QuizQuestionRepository) CreateQuiz(ctx context.Context, quiz *model.Quiz) error {
	return r.DB.WithContext(ctx).Create(quiz).Error
}

// CreateQuestion 同时写入题目与选项
func (r *QuizQuestionRepository) CreateQuestion(ctx context.Context, q *model.QuizQuestion) error {
	return r.DB.WithContext(ctx).Create(q).Error
}
