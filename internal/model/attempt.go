package model

import (
	"time"

	"gorm.io/datatypes"
)

// GameAttempt 答题审计记录，只追加
type GameAttempt struct {
	UUIDBase

	SessionID    string         `gorm:"size:64;index" json:"sessionId"`
	UserID       uint           `gorm:"index" json:"userId"`
	QuestionID   uint           `gorm:"index" json:"questionId"`
	QuizID       uint           `gorm:"index" json:"quizId"`
	UserAnswer   datatypes.JSON `json:"userAnswer"`
	IsCorrect    bool           `json:"isCorrect"`
	PointsEarned int            `json:"pointsEarned"`
	AttemptedAt  time.Time      `gorm:"index" json:"attemptedAt"`
}

func (GameAttempt) TableName() string {
	return "game_attempts"
}
