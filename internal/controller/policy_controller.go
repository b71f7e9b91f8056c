package controller

import (
	"context"

	"game_gate_backend/internal/model"
	"game_gate_backend/internal/util"

	"github.com/gin-gonic/gin"
)

// PolicyLister 管理端只读查看策略
type PolicyLister interface {
	List(ctx context.Context) ([]model.GamePolicy, error)
}

type PolicyController struct {
	Policies PolicyLister
}

func NewPolicyController(policies PolicyLister) *PolicyController {
	return &PolicyController{Policies: policies}
}

// @Summary 策略列表（按评估顺序）
// @Tags 管理
// @Produce json
// @Security BearerAuth
// @Success 200 {object} util.Response
// @Router /api/admin/policies [get]
func (c *PolicyController) ListPolicies(ctx *gin.Context) {
	policies, err := c.Policies.List(ctx.Request.Context())
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"items": policies, "total": len(policies)})
}
