package controller

import (
	"errors"
	"net/http"
	"strconv"

	"game_gate_backend/internal/service"
	"game_gate_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type GameController struct {
	PolicyService   *service.PolicyService
	QuestionService *service.QuestionService
	AnswerService   *service.AnswerService
	PlayStatService *service.PlayStatService
}

func NewGameController(
	policyService *service.PolicyService,
	questionService *service.QuestionService,
	answerService *service.AnswerService,
	playStatService *service.PlayStatService,
) *GameController {
	return &GameController{
		PolicyService:   policyService,
		QuestionService: questionService,
		AnswerService:   answerService,
		PlayStatService: playStatService,
	}
}

type GetQuestionRequest struct {
	QuizID     uint   `json:"quizId" binding:"required"`
	SessionID  string `json:"sessionId"`
	Exclude    []uint `json:"exclude"`
	Difficulty string `json:"difficulty"`
	QuestionID uint   `json:"questionId"`
}

type ValidateAnswerRequest struct {
	SessionID string      `json:"sessionId"`
	Answer    interface{} `json:"answer"`
}

type RecordPlayRequest struct {
	CourseID        uint `json:"courseId"`
	DurationSeconds int  `json:"durationSeconds"`
}

// @Summary 是否可以开始游戏
// @Tags 游戏
// @Produce json
// @Security BearerAuth
// @Param course_id query int false "课程ID"
// @Success 200 {object} util.Response
// @Router /api/games/can-play [get]
func (c *GameController) CanPlay(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	var courseID uint
	if v := ctx.Query("course_id"); v != "" {
		id, err := strconv.ParseUint(v, 10, 32)
		if err != nil {
			util.BadRequest(ctx, "invalid course_id")
			return
		}
		courseID = uint(id)
	}

	decision, err := c.PolicyService.CanUserPlay(ctx.Request.Context(), user.UserID, courseID)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, decision)
}

// @Summary 获取一道题目（不含正确答案）
// @Tags 游戏
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body GetQuestionRequest true "取题参数"
// @Success 200 {object} util.Response
// @Failure 404 {object} util.Response
// @Router /api/games/questions [post]
func (c *GameController) GetQuestion(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	var req GetQuestionRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	question, err := c.QuestionService.Select(ctx.Request.Context(), service.SelectRequest{
		QuizID:     req.QuizID,
		UserID:     user.UserID,
		Exclude:    req.Exclude,
		Difficulty: req.Difficulty,
		QuestionID: req.QuestionID,
	})
	if errors.Is(err, util.ErrNoQuestionsAvailable) || errors.Is(err, util.ErrQuestionNotFound) {
		util.NotFound(ctx, util.ErrNoQuestionsAvailable.Error())
		return
	}
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, question)
}

// @Summary 校验答案
// @Tags 游戏
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "题目ID"
// @Param request body ValidateAnswerRequest true "答案"
// @Success 200 {object} util.Response
// @Failure 400 {object} util.Response
// @Failure 410 {object} util.Response
// @Router /api/games/questions/{id}/validate [post]
func (c *GameController) ValidateAnswer(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	questionID := util.MustParseUint(ctx.Param("id"))
	if questionID == 0 {
		util.BadRequest(ctx, "invalid question id")
		return
	}

	var req ValidateAnswerRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	result, err := c.AnswerService.Validate(ctx.Request.Context(), service.ValidateRequest{
		QuestionID: questionID,
		UserID:     user.UserID,
		SessionID:  req.SessionID,
		Answer:     req.Answer,
	})
	switch {
	case errors.Is(err, util.ErrQuestionExpired):
		util.ErrorWithData(ctx, http.StatusGone, result.Message, result)
	case errors.Is(err, util.ErrInvalidAnswerShape):
		util.ErrorWithData(ctx, http.StatusBadRequest, result.Message, result)
	case err != nil:
		util.LogInternalError(ctx, err)
	default:
		util.Success(ctx, result)
	}
}

// @Summary 记录一局已结束的游戏
// @Tags 游戏
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body RecordPlayRequest true "游戏时长"
// @Success 201 {object} util.Response
// @Router /api/games/plays [post]
func (c *GameController) RecordPlay(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	var req RecordPlayRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	err := c.PlayStatService.RecordPlay(ctx.Request.Context(), user.UserID, req.DurationSeconds)
	if errors.Is(err, util.ErrInvalidPlayDuration) {
		util.BadRequest(ctx, err.Error())
		return
	}
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Created(ctx, gin.H{"recorded": true})
}
