package service

import (
	"context"
	"errors"
	"slices"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"game_gate_backend/internal/model"
	"game_gate_backend/internal/repository"
	"game_gate_backend/internal/util"
)

type fakeQuestions struct {
	questions map[uint]*model.QuizQuestion
	quizOf    map[uint]uint
	randomize bool
}

func newFakeQuestions(qs ...*model.QuizQuestion) *fakeQuestions {
	f := &fakeQuestions{questions: map[uint]*model.QuizQuestion{}, quizOf: map[uint]uint{}}
	for _, q := range qs {
		f.questions[q.ID] = q
		f.quizOf[q.ID] = q.QuizID
	}
	return f
}

func (f *fakeQuestions) ListQuestionMeta(_ context.Context, quizID uint) ([]repository.QuestionMeta, error) {
	var metas []repository.QuestionMeta
	for id, q := range f.questions {
		if q.QuizID == quizID {
			metas = append(metas, repository.QuestionMeta{ID: id, Difficulty: q.Difficulty})
		}
	}
	slices.SortFunc(metas, func(a, b repository.QuestionMeta) int { return int(a.ID) - int(b.ID) })
	return metas, nil
}

func (f *fakeQuestions) FindQuestion(_ context.Context, id uint) (*model.QuizQuestion, error) {
	q, ok := f.questions[id]
	if !ok {
		return nil, util.ErrQuestionNotFound
	}
	return q, nil
}

func (f *fakeQuestions) RandomizeAnswers(context.Context, uint) (bool, error) {
	return f.randomize, nil
}

type recordingSink struct {
	mu       sync.Mutex
	attempts []model.GameAttempt
	err      error
}

func (s *recordingSink) RecordAttempt(_ context.Context, a *model.GameAttempt) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attempts = append(s.attempts, *a)
	return s.err
}

func question(id, quizID uint, qt model.QuestionType, points int, difficulty string, answers ...model.QuizAnswer) *model.QuizQuestion {
	q := &model.QuizQuestion{QuizID: quizID, Title: "q", QuestionType: qt, Points: points, Difficulty: difficulty, Answers: answers}
	q.ID = id
	return q
}

func answer(id uint, text string, correct bool) model.QuizAnswer {
	a := model.QuizAnswer{Text: text, Correct: correct}
	a.ID = id
	return a
}

// fakeClock 可手动推进的时钟
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newGate(t *testing.T, ttl time.Duration, qs ...*model.QuizQuestion) (*QuestionService, *AnswerService, *MemoryQuestionCache, *fakeClock) {
	t.Helper()
	clock := &fakeClock{now: time.Date(2026, 10, 17, 10, 0, 0, 0, time.UTC)}
	cache := NewMemoryQuestionCache()
	cache.Now = clock.Now
	qsvc := NewQuestionService(newFakeQuestions(qs...), cache, ttl)
	asvc := NewAnswerService(cache, nil)
	asvc.Now = clock.Now
	return qsvc, asvc, cache, clock
}

func TestSelectValidate_RoundTrip(t *testing.T) {
	qsvc, asvc, _, _ := newGate(t, time.Minute,
		question(11, 5, model.SingleChoice, 10, "easy",
			answer(1, "3", false), answer(2, "4", true), answer(3, "5", false)),
	)
	ctx := context.Background()

	served, err := qsvc.Select(ctx, SelectRequest{QuizID: 5, UserID: 42})
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if served.ID != 11 || len(served.Answers) != 3 {
		t.Fatalf("served = %+v", served)
	}

	res, err := asvc.Validate(ctx, ValidateRequest{QuestionID: 11, UserID: 42, Answer: float64(2)})
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if !res.Valid || !res.Correct || res.Points != 10 || res.Message != MessageCorrect {
		t.Fatalf("result = %+v", res)
	}

	// 同一次选题不能校验两次
	res, err = asvc.Validate(ctx, ValidateRequest{QuestionID: 11, UserID: 42, Answer: float64(2)})
	if !errors.Is(err, util.ErrQuestionExpired) || res.Valid || res.Message != MessageExpired {
		t.Fatalf("second validate = %+v, %v", res, err)
	}
}

func TestValidate_OtherUserCannotUseCachedQuestion(t *testing.T) {
	qsvc, asvc, _, _ := newGate(t, time.Minute,
		question(11, 5, model.SingleChoice, 10, "", answer(1, "a", true)),
	)
	ctx := context.Background()
	if _, err := qsvc.Select(ctx, SelectRequest{QuizID: 5, UserID: 42}); err != nil {
		t.Fatal(err)
	}
	if _, err := asvc.Validate(ctx, ValidateRequest{QuestionID: 11, UserID: 43, Answer: 1}); !errors.Is(err, util.ErrQuestionExpired) {
		t.Fatalf("err = %v, want expired for another user", err)
	}
}

func TestValidate_TTLExpiry(t *testing.T) {
	qsvc, asvc, _, clock := newGate(t, 5*time.Minute,
		question(11, 5, model.SingleChoice, 10, "", answer(1, "a", true)),
	)
	ctx := context.Background()
	if _, err := qsvc.Select(ctx, SelectRequest{QuizID: 5, UserID: 42}); err != nil {
		t.Fatal(err)
	}
	clock.Advance(5 * time.Minute)
	res, err := asvc.Validate(ctx, ValidateRequest{QuestionID: 11, UserID: 42, Answer: 1})
	if !errors.Is(err, util.ErrQuestionExpired) || res.Message != MessageExpired {
		t.Fatalf("result = %+v, err = %v", res, err)
	}
}

func TestValidate_MultipleChoice(t *testing.T) {
	q := question(21, 5, model.MultipleChoice, 4, "",
		answer(1, "a", true), answer(2, "b", false), answer(3, "c", true))

	tests := []struct {
		name        string
		answer      interface{}
		wantValid   bool
		wantCorrect bool
	}{
		{"reordered exact set", []interface{}{float64(3), float64(1)}, true, true},
		{"wrong set", []interface{}{float64(1), float64(2)}, true, false},
		{"subset", []interface{}{float64(1)}, true, false},
		{"superset", []interface{}{float64(1), float64(2), float64(3)}, true, false},
		{"scalar", float64(1), false, false},
		{"string list", []interface{}{"x"}, false, false},
		{"bool element", []interface{}{true, float64(3)}, false, false},
		{"fractional element", []interface{}{1.5, float64(3)}, false, false},
		{"nil element", []interface{}{nil, float64(3)}, false, false},
		{"typed int slice", []int{3, 1}, true, true},
		{"missing", nil, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			qsvc, asvc, _, _ := newGate(t, time.Minute, q)
			ctx := context.Background()
			if _, err := qsvc.Select(ctx, SelectRequest{QuizID: 5, UserID: 1}); err != nil {
				t.Fatal(err)
			}
			res, err := asvc.Validate(ctx, ValidateRequest{QuestionID: 21, UserID: 1, Answer: tt.answer})
			if res.Valid != tt.wantValid || res.Correct != tt.wantCorrect {
				t.Fatalf("result = %+v, err = %v", res, err)
			}
			if !tt.wantValid && !errors.Is(err, util.ErrInvalidAnswerShape) {
				t.Errorf("err = %v, want invalid shape", err)
			}
			if res.Correct && res.Points != 4 {
				t.Errorf("points = %d", res.Points)
			}
		})
	}
}

func TestValidate_SingleChoiceShapes(t *testing.T) {
	q := question(31, 5, model.SingleChoice, 2, "", answer(7, "a", true), answer(8, "b", false))
	tests := []struct {
		name        string
		answer      interface{}
		wantValid   bool
		wantCorrect bool
	}{
		{"number", float64(7), true, true},
		{"numeric string", "7", true, true},
		{"wrong id", 8, true, false},
		{"list", []interface{}{float64(7)}, false, false},
		{"garbage", "seven", false, false},
		{"bool", true, false, false},
		{"fractional", 7.9, false, false},
		{"missing", nil, false, false},
		{"object", map[string]interface{}{"id": 7}, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			qsvc, asvc, _, _ := newGate(t, time.Minute, q)
			ctx := context.Background()
			if _, err := qsvc.Select(ctx, SelectRequest{QuizID: 5, UserID: 1}); err != nil {
				t.Fatal(err)
			}
			res, err := asvc.Validate(ctx, ValidateRequest{QuestionID: 31, UserID: 1, Answer: tt.answer})
			if res.Valid != tt.wantValid || res.Correct != tt.wantCorrect {
				t.Fatalf("result = %+v", res)
			}
			if !tt.wantValid && (!errors.Is(err, util.ErrInvalidAnswerShape) || res.Message != MessageInvalidAnswer || res.Points != 0) {
				t.Errorf("result = %+v, err = %v, want invalid answer format", res, err)
			}
		})
	}
}

func TestSelectValidate_TextQuestion(t *testing.T) {
	q := question(41, 5, model.FillBlank, 3, "", answer(1, "Paris", true), answer(2, "paris, france", true))
	qsvc, asvc, _, _ := newGate(t, time.Minute, q)
	ctx := context.Background()

	served, err := qsvc.Select(ctx, SelectRequest{QuizID: 5, UserID: 1})
	if err != nil {
		t.Fatal(err)
	}
	if len(served.Answers) != 0 {
		t.Fatalf("text question leaked answers: %+v", served.Answers)
	}

	res, err := asvc.Validate(ctx, ValidateRequest{QuestionID: 41, UserID: 1, Answer: "  PARIS "})
	if err != nil || !res.Correct || res.Points != 3 {
		t.Fatalf("result = %+v, err = %v", res, err)
	}
}

func TestValidate_TextQuestionRejectsStructuredAnswer(t *testing.T) {
	q := question(41, 5, model.FreeText, 3, "", answer(1, "blue", true))
	qsvc, asvc, _, _ := newGate(t, time.Minute, q)
	ctx := context.Background()
	if _, err := qsvc.Select(ctx, SelectRequest{QuizID: 5, UserID: 1}); err != nil {
		t.Fatal(err)
	}
	res, err := asvc.Validate(ctx, ValidateRequest{QuestionID: 41, UserID: 1, Answer: map[string]interface{}{"a": "blue"}})
	if !errors.Is(err, util.ErrInvalidAnswerShape) || res.Valid {
		t.Fatalf("result = %+v, err = %v", res, err)
	}
}

func TestSelect_FiltersAndPreference(t *testing.T) {
	qs := []*model.QuizQuestion{
		question(1, 5, model.SingleChoice, 1, "easy", answer(1, "a", true)),
		question(2, 5, model.SingleChoice, 1, "Hard", answer(2, "a", true)),
		question(3, 5, model.SingleChoice, 1, "hard", answer(3, "a", true)),
		question(4, 6, model.SingleChoice, 1, "hard", answer(4, "a", true)),
	}
	ctx := context.Background()

	t.Run("difficulty case insensitive with exclusion", func(t *testing.T) {
		qsvc, _, _, _ := newGate(t, time.Minute, qs...)
		for i := 0; i < 20; i++ {
			got, err := qsvc.Select(ctx, SelectRequest{QuizID: 5, UserID: 1, Difficulty: "HARD", Exclude: []uint{3}})
			if err != nil {
				t.Fatal(err)
			}
			if got.ID != 2 {
				t.Fatalf("selected %d, want 2", got.ID)
			}
		}
	})

	t.Run("preferred question used when still a candidate", func(t *testing.T) {
		qsvc, _, _, _ := newGate(t, time.Minute, qs...)
		qsvc.intN = func(int) int { t.Fatal("random pick used despite preference"); return 0 }
		got, err := qsvc.Select(ctx, SelectRequest{QuizID: 5, UserID: 1, QuestionID: 3})
		if err != nil || got.ID != 3 {
			t.Fatalf("got %+v, err = %v", got, err)
		}
	})

	t.Run("excluded preference falls back to random", func(t *testing.T) {
		qsvc, _, _, _ := newGate(t, time.Minute, qs...)
		qsvc.intN = func(n int) int { return n - 1 }
		got, err := qsvc.Select(ctx, SelectRequest{QuizID: 5, UserID: 1, QuestionID: 3, Exclude: []uint{3}})
		if err != nil || got.ID != 2 {
			t.Fatalf("got %+v, err = %v", got, err)
		}
	})

	t.Run("nothing left", func(t *testing.T) {
		qsvc, _, cache, _ := newGate(t, time.Minute, qs...)
		_, err := qsvc.Select(ctx, SelectRequest{QuizID: 5, UserID: 1, Exclude: []uint{1, 2, 3}})
		if !errors.Is(err, util.ErrNoQuestionsAvailable) {
			t.Fatalf("err = %v", err)
		}
		if cache.Len() != 0 {
			t.Error("nothing should be cached")
		}
	})

	t.Run("unknown quiz", func(t *testing.T) {
		qsvc, _, _, _ := newGate(t, time.Minute, qs...)
		if _, err := qsvc.Select(ctx, SelectRequest{QuizID: 99, UserID: 1}); !errors.Is(err, util.ErrNoQuestionsAvailable) {
			t.Fatalf("err = %v", err)
		}
	})
}

func TestSelect_RandomizeAnswers(t *testing.T) {
	q := question(1, 5, model.SingleChoice, 1, "", answer(1, "a", true), answer(2, "b", false), answer(3, "c", false))
	qsvc, _, _, _ := newGate(t, time.Minute, q)
	qsvc.Questions.(*fakeQuestions).randomize = true
	shuffled := false
	qsvc.shuffle = func(n int, swap func(i, j int)) {
		shuffled = true
		swap(0, n-1)
	}

	got, err := qsvc.Select(context.Background(), SelectRequest{QuizID: 5, UserID: 1})
	if err != nil {
		t.Fatal(err)
	}
	if !shuffled || got.Answers[0].ID != 3 || got.Answers[2].ID != 1 {
		t.Fatalf("answers = %+v", got.Answers)
	}
	// 打乱只影响顺序，不改变原始数据
	if q.Answers[0].ID != 1 {
		t.Error("source question mutated")
	}
}

func TestValidate_RecordsAttempt(t *testing.T) {
	q := question(11, 5, model.SingleChoice, 10, "", answer(1, "a", true))
	qsvc, asvc, _, _ := newGate(t, time.Minute, q)
	sink := &recordingSink{err: errors.New("sink down")}
	asvc.Attempts = sink
	ctx := context.Background()

	if _, err := qsvc.Select(ctx, SelectRequest{QuizID: 5, UserID: 42}); err != nil {
		t.Fatal(err)
	}
	res, err := asvc.Validate(ctx, ValidateRequest{QuestionID: 11, UserID: 42, SessionID: "s-1", Answer: 1})
	if err != nil || !res.Correct {
		t.Fatalf("sink errors must not fail validation: %+v, %v", res, err)
	}
	if len(sink.attempts) != 1 {
		t.Fatalf("attempts = %d", len(sink.attempts))
	}
	a := sink.attempts[0]
	if a.SessionID != "s-1" || a.QuizID != 5 || !a.IsCorrect || a.PointsEarned != 10 || string(a.UserAnswer) != "1" {
		t.Errorf("attempt = %+v", a)
	}
}

// barrierCache 让并发的 Get 都在 Delete 之前完成
type barrierCache struct {
	QuestionCache
	wg sync.WaitGroup
}

func (b *barrierCache) Get(ctx context.Context, key CacheKey) (*model.CachedQuestion, bool, error) {
	rec, ok, err := b.QuestionCache.Get(ctx, key)
	b.wg.Done()
	b.wg.Wait()
	return rec, ok, err
}

func TestValidate_ConcurrentDoubleSubmitCanBothSucceed(t *testing.T) {
	q := question(11, 5, model.SingleChoice, 10, "", answer(1, "a", true))
	qsvc, asvc, cache, _ := newGate(t, time.Minute, q)
	ctx := context.Background()
	if _, err := qsvc.Select(ctx, SelectRequest{QuizID: 5, UserID: 42}); err != nil {
		t.Fatal(err)
	}

	barrier := &barrierCache{QuestionCache: cache}
	barrier.wg.Add(2)
	asvc.Cache = barrier

	var correct atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := asvc.Validate(ctx, ValidateRequest{QuestionID: 11, UserID: 42, Answer: 1})
			if err == nil && res.Correct {
				correct.Add(1)
			}
		}()
	}
	wg.Wait()

	// 读取与删除非原子，两个请求都读到时均判为正确
	if correct.Load() != 2 {
		t.Fatalf("correct = %d, want both submissions scored", correct.Load())
	}
	if cache.Len() != 0 {
		t.Error("entry should be gone after validation")
	}
}
