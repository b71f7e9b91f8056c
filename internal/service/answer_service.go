package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"reflect"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"game_gate_backend/internal/model"
	"game_gate_backend/internal/util"
	"game_gate_backend/pkg/logger"
	"game_gate_backend/pkg/monitoring"
	"game_gate_backend/pkg/tracing"

	"github.com/spf13/cast"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

const (
	MessageCorrect       = "correct"
	MessageIncorrect     = "incorrect"
	MessageExpired       = "expired"
	MessageInvalidAnswer = "invalid answer format"
)

// ValidateRequest 答案校验参数
type ValidateRequest struct {
	QuestionID uint
	UserID     uint
	SessionID  string
	Answer     interface{}
}

// ValidationResult Valid=false 表示缓存已过期或答案格式错误
type ValidationResult struct {
	Valid   bool   `json:"valid"`
	Correct bool   `json:"correct"`
	Points  int    `json:"points"`
	Message string `json:"message"`
}

// AnswerChecker 某一题型的判分逻辑；答案结构不符时返回 util.ErrInvalidAnswerShape
type AnswerChecker interface {
	Check(record *model.CachedQuestion, answer interface{}) (bool, error)
}

type AnswerCheckerFunc func(record *model.CachedQuestion, answer interface{}) (bool, error)

func (f AnswerCheckerFunc) Check(record *model.CachedQuestion, answer interface{}) (bool, error) {
	return f(record, answer)
}

type AnswerService struct {
	Cache    QuestionCache
	Attempts AttemptSink
	Now      func() time.Time

	mu       sync.RWMutex
	checkers map[model.QuestionType]AnswerChecker
}

func NewAnswerService(cache QuestionCache, attempts AttemptSink) *AnswerService {
	s := &AnswerService{
		Cache:    cache,
		Attempts: attempts,
		Now:      time.Now,
		checkers: make(map[model.QuestionType]AnswerChecker),
	}
	s.RegisterChecker(model.SingleChoice, AnswerCheckerFunc(checkSingleChoice))
	s.RegisterChecker(model.MultipleChoice, AnswerCheckerFunc(checkMultipleChoice))
	s.RegisterChecker(model.FreeText, AnswerCheckerFunc(checkText))
	s.RegisterChecker(model.FillBlank, AnswerCheckerFunc(checkText))
	return s
}

// RegisterChecker 为 sort、matrix 等题型注册判分逻辑
func (s *AnswerService) RegisterChecker(t model.QuestionType, checker AnswerChecker) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.checkers[t] = checker
}

func (s *AnswerService) checker(t model.QuestionType) (AnswerChecker, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.checkers[t]
	return c, ok
}

// Validate 校验答案。缓存条目在读取后立即删除，同一次选题最多校验一次。
func (s *AnswerService) Validate(ctx context.Context, req ValidateRequest) (*ValidationResult, error) {
	ctx, span := tracing.Tracer.Start(ctx, "AnswerService.Validate")
	defer span.End()
	span.SetAttributes(attribute.Int64("game.question_id", int64(req.QuestionID)))

	key := CacheKey{QuestionID: req.QuestionID, UserID: req.UserID}
	record, ok, err := s.Cache.Get(ctx, key)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("load cached question: %w", err)
	}
	if !ok {
		monitoring.AnswerValidations.WithLabelValues(MessageExpired).Inc()
		return &ValidationResult{Valid: false, Message: MessageExpired}, util.ErrQuestionExpired
	}

	if err := s.Cache.Delete(ctx, key); err != nil {
		logger.Log.Warn("failed to delete cached question", zap.String("key", key.String()), zap.Error(err))
	}

	correct, checkErr := s.check(record, req.Answer)

	result := &ValidationResult{Valid: true, Correct: correct, Message: MessageIncorrect}
	switch {
	case errors.Is(checkErr, util.ErrInvalidAnswerShape):
		result = &ValidationResult{Valid: false, Message: MessageInvalidAnswer}
	case checkErr != nil:
		// 自定义判分器出错时按答错处理
		logger.Log.Warn("answer checker failed", zap.Uint("question_id", req.QuestionID), zap.Error(checkErr))
		result.Correct = false
		checkErr = nil
	case correct:
		result.Points = record.Question.Points
		result.Message = MessageCorrect
	}

	if req.SessionID != "" && s.Attempts != nil {
		s.recordAttempt(ctx, req, record, result)
	}

	outcome := result.Message
	monitoring.AnswerValidations.WithLabelValues(outcome).Inc()
	span.SetAttributes(attribute.Bool("game.correct", result.Correct))

	if checkErr != nil {
		return result, checkErr
	}
	return result, nil
}

func (s *AnswerService) check(record *model.CachedQuestion, answer interface{}) (bool, error) {
	checker, ok := s.checker(record.Question.Type)
	if !ok {
		return false, nil
	}
	return checker.Check(record, answer)
}

func (s *AnswerService) recordAttempt(ctx context.Context, req ValidateRequest, record *model.CachedQuestion, result *ValidationResult) {
	answer, err := json.Marshal(req.Answer)
	if err != nil {
		answer = []byte("null")
	}
	attempt := &model.GameAttempt{
		SessionID:    req.SessionID,
		UserID:       req.UserID,
		QuestionID:   record.Question.ID,
		QuizID:       record.Question.QuizID,
		UserAnswer:   datatypes.JSON(answer),
		IsCorrect:    result.Correct,
		PointsEarned: result.Points,
		AttemptedAt:  s.Now(),
	}
	if err := s.Attempts.RecordAttempt(ctx, attempt); err != nil {
		logger.Log.Error("failed to record attempt",
			zap.String("session_id", req.SessionID),
			zap.Uint("question_id", req.QuestionID),
			zap.Error(err),
		)
	}
}

func checkSingleChoice(record *model.CachedQuestion, answer interface{}) (bool, error) {
	id, err := choiceID(answer)
	if err != nil {
		return false, err
	}
	if id <= 0 {
		return false, nil
	}
	return slices.Contains(record.CorrectAnswer.IDs, uint(id)), nil
}

// checkMultipleChoice 排序后完全相等才算对，没有部分得分
func checkMultipleChoice(record *model.CachedQuestion, answer interface{}) (bool, error) {
	items, ok := answer.([]interface{})
	if !ok {
		if !isList(answer) {
			return false, util.ErrInvalidAnswerShape
		}
		rv := reflect.ValueOf(answer)
		items = make([]interface{}, rv.Len())
		for i := range items {
			items[i] = rv.Index(i).Interface()
		}
	}

	got := make([]int, 0, len(items))
	for _, item := range items {
		id, err := choiceID(item)
		if err != nil {
			return false, err
		}
		got = append(got, id)
	}
	want := make([]int, 0, len(record.CorrectAnswer.IDs))
	for _, id := range record.CorrectAnswer.IDs {
		want = append(want, int(id))
	}
	slices.Sort(got)
	slices.Sort(want)
	return slices.Equal(got, want), nil
}

// choiceID 选项 ID 只接受整数或整数字符串；bool、nil、带小数的数字都视为格式错误
func choiceID(v interface{}) (int, error) {
	switch n := v.(type) {
	case nil, bool:
		return 0, util.ErrInvalidAnswerShape
	case float64:
		if n != math.Trunc(n) {
			return 0, util.ErrInvalidAnswerShape
		}
	case float32:
		if float64(n) != math.Trunc(float64(n)) {
			return 0, util.ErrInvalidAnswerShape
		}
	case string:
		id, err := strconv.Atoi(strings.TrimSpace(n))
		if err != nil {
			return 0, util.ErrInvalidAnswerShape
		}
		return id, nil
	case json.Number:
		id, err := n.Int64()
		if err != nil {
			return 0, util.ErrInvalidAnswerShape
		}
		return int(id), nil
	}
	if isList(v) {
		return 0, util.ErrInvalidAnswerShape
	}
	if _, isMap := v.(map[string]interface{}); isMap {
		return 0, util.ErrInvalidAnswerShape
	}
	id, err := cast.ToIntE(v)
	if err != nil {
		return 0, util.ErrInvalidAnswerShape
	}
	return id, nil
}

func checkText(record *model.CachedQuestion, answer interface{}) (bool, error) {
	if isList(answer) {
		return false, util.ErrInvalidAnswerShape
	}
	if _, isMap := answer.(map[string]interface{}); isMap {
		return false, util.ErrInvalidAnswerShape
	}
	submitted, err := cast.ToStringE(answer)
	if err != nil {
		return false, util.ErrInvalidAnswerShape
	}
	submitted = strings.ToLower(strings.TrimSpace(submitted))
	if submitted == "" {
		return false, nil
	}
	for _, accepted := range record.CorrectAnswer.Texts {
		if strings.ToLower(strings.TrimSpace(accepted)) == submitted {
			return true, nil
		}
	}
	return false, nil
}

func isList(v interface{}) bool {
	switch v.(type) {
	case []interface{}, []int, []uint, []string, []float64:
		return true
	}
	return false
}
