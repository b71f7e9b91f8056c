package util

import "errors"

var (
	ErrNoQuestionsAvailable = errors.New("no questions available")
	ErrQuestionNotFound     = errors.New("question not found")
	ErrQuestionExpired      = errors.New("expired")
	ErrInvalidAnswerShape   = errors.New("invalid answer format")
	ErrInvalidPlayDuration  = errors.New("duration must not be negative")
)
