package service

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"game_gate_backend/internal/config"
	"game_gate_backend/internal/model"
	"game_gate_backend/internal/util"
	"game_gate_backend/pkg/monitoring"
	"game_gate_backend/pkg/tracing"

	"go.opentelemetry.io/otel/attribute"
)

// SelectRequest 取题参数
type SelectRequest struct {
	QuizID     uint
	UserID     uint
	Exclude    []uint
	Difficulty string
	QuestionID uint // 指定题目，过滤后仍在候选中时优先使用
}

type QuestionService struct {
	Questions QuizQuestionProvider
	Cache     QuestionCache
	TTL       time.Duration

	intN    func(n int) int
	shuffle func(n int, swap func(i, j int))
}

func NewQuestionService(questions QuizQuestionProvider, cache QuestionCache, ttl time.Duration) *QuestionService {
	if ttl <= 0 {
		ttl = config.DefaultQuestionTTL
	}
	return &QuestionService{
		Questions: questions,
		Cache:     cache,
		TTL:       ttl,
		intN:      rand.IntN,
		shuffle:   rand.Shuffle,
	}
}

// Select 从测验题库中选出一道题，写入缓存后返回不含正确答案的题目
func (s *QuestionService) Select(ctx context.Context, req SelectRequest) (*model.Question, error) {
	ctx, span := tracing.Tracer.Start(ctx, "QuestionService.Select")
	defer span.End()
	span.SetAttributes(attribute.Int64("game.quiz_id", int64(req.QuizID)))

	metas, err := s.Questions.ListQuestionMeta(ctx, req.QuizID)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("list quiz questions: %w", err)
	}

	excluded := make(map[uint]struct{}, len(req.Exclude))
	for _, id := range req.Exclude {
		excluded[id] = struct{}{}
	}
	difficulty := strings.TrimSpace(req.Difficulty)

	candidates := make([]uint, 0, len(metas))
	for _, m := range metas {
		if _, skip := excluded[m.ID]; skip {
			continue
		}
		if difficulty != "" && !strings.EqualFold(strings.TrimSpace(m.Difficulty), difficulty) {
			continue
		}
		candidates = append(candidates, m.ID)
	}
	if len(candidates) == 0 {
		monitoring.QuestionSelections.WithLabelValues("empty").Inc()
		return nil, util.ErrNoQuestionsAvailable
	}

	var chosen uint
	if req.QuestionID > 0 {
		for _, id := range candidates {
			if id == req.QuestionID {
				chosen = id
				break
			}
		}
	}
	if chosen == 0 {
		chosen = candidates[s.intN(len(candidates))]
	}

	full, err := s.Questions.FindQuestion(ctx, chosen)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("load question %d: %w", chosen, err)
	}

	randomize, err := s.Questions.RandomizeAnswers(ctx, req.QuizID)
	if err != nil {
		return nil, fmt.Errorf("load quiz settings: %w", err)
	}

	record := buildCachedQuestion(full, req.UserID)
	if randomize && len(record.Question.Answers) > 1 {
		answers := record.Question.Answers
		s.shuffle(len(answers), func(i, j int) { answers[i], answers[j] = answers[j], answers[i] })
	}

	key := CacheKey{QuestionID: full.ID, UserID: req.UserID}
	if err := s.Cache.Put(ctx, key, record, s.TTL); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("cache question: %w", err)
	}

	monitoring.QuestionSelections.WithLabelValues("served").Inc()
	served := record.Question
	served.Answers = append([]model.AnswerOption{}, record.Question.Answers...)
	return &served, nil
}

// buildCachedQuestion 拆分出下发部分与正确答案；文本题不下发任何选项
func buildCachedQuestion(q *model.QuizQuestion, userID uint) *model.CachedQuestion {
	rec := &model.CachedQuestion{
		Question: model.Question{
			ID:      q.ID,
			QuizID:  q.QuizID,
			Title:   q.Title,
			Text:    q.Text,
			Type:    q.QuestionType,
			Points:  q.Points,
			Answers: []model.AnswerOption{},
		},
		UserID: userID,
	}

	if q.QuestionType.IsTextType() {
		for _, a := range q.Answers {
			if a.Correct {
				rec.CorrectAnswer.Texts = append(rec.CorrectAnswer.Texts, a.Text)
			}
		}
		// 未标记正确项时，所有答案文本都可接受
		if len(rec.CorrectAnswer.Texts) == 0 {
			for _, a := range q.Answers {
				rec.CorrectAnswer.Texts = append(rec.CorrectAnswer.Texts, a.Text)
			}
		}
		return rec
	}

	for _, a := range q.Answers {
		rec.Question.Answers = append(rec.Question.Answers, model.AnswerOption{ID: a.ID, Text: a.Text})
		if a.Correct {
			rec.CorrectAnswer.IDs = append(rec.CorrectAnswer.IDs, a.ID)
		}
	}
	return rec
}
