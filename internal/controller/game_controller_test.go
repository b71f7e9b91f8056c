package controller

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"game_gate_backend/internal/config"
	"game_gate_backend/internal/middleware"
	"game_gate_backend/internal/model"
	"game_gate_backend/internal/repository"
	"game_gate_backend/internal/service"
	"game_gate_backend/internal/util"

	"github.com/gin-gonic/gin"
	"gorm.io/datatypes"
)

const testSecret = "test-secret-test-secret-test-secret"

type memPolicies struct{ policies []model.GamePolicy }

func (m memPolicies) ListActive(context.Context) ([]model.GamePolicy, error) { return m.policies, nil }
func (m memPolicies) List(context.Context) ([]model.GamePolicy, error)       { return m.policies, nil }

type memQuestions struct{ q *model.QuizQuestion }

func (m memQuestions) ListQuestionMeta(_ context.Context, quizID uint) ([]repository.QuestionMeta, error) {
	if quizID != m.q.QuizID {
		return nil, nil
	}
	return []repository.QuestionMeta{{ID: m.q.ID, Difficulty: m.q.Difficulty}}, nil
}

func (m memQuestions) FindQuestion(_ context.Context, id uint) (*model.QuizQuestion, error) {
	if id != m.q.ID {
		return nil, util.ErrQuestionNotFound
	}
	return m.q, nil
}

func (memQuestions) RandomizeAnswers(context.Context, uint) (bool, error) { return false, nil }

type memRecorder struct{ games, seconds int }

func (m *memRecorder) RecordPlay(_ context.Context, _ uint, _ string, seconds int) error {
	m.games++
	m.seconds += seconds
	return nil
}

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func setupRouter(t *testing.T, policies []model.GamePolicy) (*gin.Engine, *memRecorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	q := &model.QuizQuestion{QuizID: 5, Title: "2+2", QuestionType: model.SingleChoice, Points: 10,
		Answers: []model.QuizAnswer{{Text: "3"}, {Text: "4", Correct: true}}}
	q.ID = 11
	q.Answers[0].ID = 1
	q.Answers[1].ID = 2

	store := memPolicies{policies: policies}
	builder := service.NewPlayContextBuilder(time.UTC, nil, nil, nil, nil, nil)
	builder.Now = func() time.Time { return time.Date(2026, 10, 17, 23, 30, 0, 0, time.UTC) }
	cache := service.NewMemoryQuestionCache()
	recorder := &memRecorder{}

	game := NewGameController(
		service.NewPolicyService(store, builder, nil),
		service.NewQuestionService(memQuestions{q: q}, cache, time.Minute),
		service.NewAnswerService(cache, nil),
		service.NewPlayStatService(recorder, builder),
	)
	admin := NewPolicyController(store)

	cfg := &config.Config{JWT: config.JWTConfig{Secret: testSecret}}
	r := gin.New()
	games := r.Group("/api/games", middleware.AuthMiddleware(cfg))
	games.GET("/can-play", game.CanPlay)
	games.POST("/questions", game.GetQuestion)
	games.POST("/questions/:id/validate", game.ValidateAnswer)
	games.POST("/plays", game.RecordPlay)
	r.GET("/api/admin/policies", middleware.AuthMiddleware(cfg), middleware.RoleMiddleware(model.Admin), admin.ListPolicies)
	return r, recorder
}

func token(t *testing.T, userID uint, role model.UserRole) string {
	t.Helper()
	tok, err := util.GenerateJWT(userID, role, testSecret, time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	return tok
}

func do(t *testing.T, r *gin.Engine, method, path, tok string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if tok != "" {
		req.Header.Set("Authorization", util.HeaderBearer+tok)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var env envelope
	_ = json.Unmarshal(w.Body.Bytes(), &env)
	return w, env
}

func TestCanPlay(t *testing.T) {
	quiet := model.GamePolicy{Name: "quiet", RuleType: model.RuleQuietHours, Priority: 1, Active: true,
		Conditions: datatypes.JSON(`{"start":"22:00","end":"07:00"}`), Actions: datatypes.JSON(`{}`)}
	quiet.ID = 1
	r, _ := setupRouter(t, []model.GamePolicy{quiet})
	tok := token(t, 42, model.Student)

	w, env := do(t, r, http.MethodGet, "/api/games/can-play?course_id=3", tok, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d body = %s", w.Code, w.Body)
	}
	var decision model.PlayDecision
	if err := json.Unmarshal(env.Data, &decision); err != nil {
		t.Fatal(err)
	}
	if decision.CanPlay || decision.Policy != "quiet" || decision.Reason == "" {
		t.Fatalf("decision = %+v", decision)
	}

	if w, _ := do(t, r, http.MethodGet, "/api/games/can-play?course_id=abc", tok, nil); w.Code != http.StatusBadRequest {
		t.Errorf("bad course_id status = %d", w.Code)
	}
	if w, _ := do(t, r, http.MethodGet, "/api/games/can-play", "", nil); w.Code != http.StatusUnauthorized {
		t.Errorf("missing token status = %d", w.Code)
	}
}

func TestQuestionFlow(t *testing.T) {
	r, _ := setupRouter(t, nil)
	tok := token(t, 42, model.Student)

	w, env := do(t, r, http.MethodPost, "/api/games/questions", tok, gin.H{"quizId": 5})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d body = %s", w.Code, w.Body)
	}
	if bytes.Contains(env.Data, []byte("correct")) {
		t.Fatalf("served question leaks correctness: %s", env.Data)
	}

	w, env = do(t, r, http.MethodPost, "/api/games/questions/11/validate", tok, gin.H{"answer": 2, "sessionId": "s-1"})
	if w.Code != http.StatusOK {
		t.Fatalf("validate status = %d body = %s", w.Code, w.Body)
	}
	var result service.ValidationResult
	if err := json.Unmarshal(env.Data, &result); err != nil {
		t.Fatal(err)
	}
	if !result.Valid || !result.Correct || result.Points != 10 {
		t.Fatalf("result = %+v", result)
	}

	w, env = do(t, r, http.MethodPost, "/api/games/questions/11/validate", tok, gin.H{"answer": 2})
	if w.Code != http.StatusGone || env.Message != service.MessageExpired {
		t.Fatalf("second validate status = %d message = %s", w.Code, env.Message)
	}
}

func TestQuestionErrors(t *testing.T) {
	r, _ := setupRouter(t, nil)
	tok := token(t, 42, model.Student)

	if w, _ := do(t, r, http.MethodPost, "/api/games/questions", tok, gin.H{}); w.Code != http.StatusBadRequest {
		t.Errorf("missing quizId status = %d", w.Code)
	}
	if w, env := do(t, r, http.MethodPost, "/api/games/questions", tok, gin.H{"quizId": 99}); w.Code != http.StatusNotFound || env.Message != util.ErrNoQuestionsAvailable.Error() {
		t.Errorf("empty quiz status = %d message = %s", w.Code, env.Message)
	}
	if w, _ := do(t, r, http.MethodPost, "/api/games/questions/abc/validate", tok, gin.H{"answer": 1}); w.Code != http.StatusBadRequest {
		t.Errorf("bad id status = %d", w.Code)
	}

	if w, _ := do(t, r, http.MethodPost, "/api/games/questions", tok, gin.H{"quizId": 5}); w.Code != http.StatusOK {
		t.Fatal("select failed")
	}
	w, env := do(t, r, http.MethodPost, "/api/games/questions/11/validate", tok, gin.H{"answer": []int{2}})
	if w.Code != http.StatusBadRequest || env.Message != service.MessageInvalidAnswer {
		t.Errorf("invalid shape status = %d message = %s", w.Code, env.Message)
	}

	// 缺少 answer 字段不能按答错处理
	if w, _ := do(t, r, http.MethodPost, "/api/games/questions", tok, gin.H{"quizId": 5}); w.Code != http.StatusOK {
		t.Fatal("select failed")
	}
	w, env = do(t, r, http.MethodPost, "/api/games/questions/11/validate", tok, gin.H{"sessionId": "s-1"})
	if w.Code != http.StatusBadRequest || env.Message != service.MessageInvalidAnswer {
		t.Errorf("missing answer status = %d message = %s", w.Code, env.Message)
	}
}

func TestRecordPlay(t *testing.T) {
	r, recorder := setupRouter(t, nil)
	tok := token(t, 42, model.Student)

	if w, _ := do(t, r, http.MethodPost, "/api/games/plays", tok, gin.H{"durationSeconds": 300}); w.Code != http.StatusCreated {
		t.Fatalf("status = %d body = %s", w.Code, w.Body)
	}
	if w, _ := do(t, r, http.MethodPost, "/api/games/plays", tok, gin.H{"durationSeconds": -5}); w.Code != http.StatusBadRequest {
		t.Fatalf("negative duration status = %d", w.Code)
	}
	if recorder.games != 1 || recorder.seconds != 300 {
		t.Errorf("recorder = %+v", recorder)
	}
}

func TestListPolicies_AdminOnly(t *testing.T) {
	p := model.GamePolicy{Name: "quiet", RuleType: model.RuleQuietHours, Active: true}
	r, _ := setupRouter(t, []model.GamePolicy{p})

	if w, _ := do(t, r, http.MethodGet, "/api/admin/policies", token(t, 1, model.Student), nil); w.Code != http.StatusForbidden {
		t.Errorf("student status = %d", w.Code)
	}
	w, env := do(t, r, http.MethodGet, "/api/admin/policies", token(t, 1, model.Admin), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("admin status = %d", w.Code)
	}
	var body struct {
		Total int `json:"total"`
	}
	if err := json.Unmarshal(env.Data, &body); err != nil || body.Total != 1 {
		t.Fatalf("body = %s", env.Data)
	}
}
