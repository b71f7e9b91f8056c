package service

import (
	"context"
	"time"

	"game_gate_backend/internal/model"
	"game_gate_backend/internal/repository"
)

// 外部协作方接口，由 repository 层的 gorm 实现或其它集成提供。

// PolicyStore 返回启用的策略
type PolicyStore interface {
	ListActive(ctx context.Context) ([]model.GamePolicy, error)
}

// QuizQuestionProvider 提供测验题目及其正确性数据
type QuizQuestionProvider interface {
	ListQuestionMeta(ctx context.Context, quizID uint) ([]repository.QuestionMeta, error)
	FindQuestion(ctx context.Context, questionID uint) (*model.QuizQuestion, error)
	RandomizeAnswers(ctx context.Context, quizID uint) (bool, error)
}

// CourseProgressProvider 返回 0-100 的课程进度，未知时返回 nil
type CourseProgressProvider interface {
	CourseProgress(ctx context.Context, userID, courseID uint) (*float64, error)
}

type DailyStatsProvider interface {
	TodayStats(ctx context.Context, userID uint, day string) (model.PlayStats, error)
}

// ParentControlProvider 未安装家长控制集成时传 nil
type ParentControlProvider interface {
	ParentControls(ctx context.Context, userID uint) (model.ParentControls, error)
}

type TicketStore interface {
	Balance(ctx context.Context, userID uint) (int, error)
}

// LessonActivityProvider 返回最近一次课时浏览时间，没有时返回 nil
type LessonActivityProvider interface {
	LastLessonView(ctx context.Context, userID, courseID uint) (*time.Time, error)
}

// AttemptSink 只追加的答题记录存储
type AttemptSink interface {
	RecordAttempt(ctx context.Context, attempt *model.GameAttempt) error
}

type PlayRecorder interface {
	RecordPlay(ctx context.Context, userID uint, day string, seconds int) error
}
