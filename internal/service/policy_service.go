package service

import (
	"context"
	"fmt"
	"sort"

	"game_gate_backend/internal/model"
	"game_gate_backend/pkg/logger"
	"game_gate_backend/pkg/monitoring"
	"game_gate_backend/pkg/tracing"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

const resultAllowed = "allowed"

type PolicyService struct {
	Store    PolicyStore
	Contexts ContextBuilder
	Rules    *RuleRegistry
}

func NewPolicyService(store PolicyStore, contexts ContextBuilder, rules *RuleRegistry) *PolicyService {
	if rules == nil {
		rules = NewRuleRegistry()
	}
	return &PolicyService{
		Store:    store,
		Contexts: contexts,
		Rules:    rules,
	}
}

// CanUserPlay 按 (priority, id) 顺序评估启用的策略，第一个阻止结果即为最终判定
func (s *PolicyService) CanUserPlay(ctx context.Context, userID, courseID uint) (*model.PlayDecision, error) {
	ctx, span := tracing.Tracer.Start(ctx, "PolicyService.CanUserPlay")
	defer span.End()

	policies, err := s.Store.ListActive(ctx)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("load active policies: %w", err)
	}

	pc := s.Contexts.Build(ctx, userID, courseID)
	decision := s.Evaluate(policies, &pc)

	span.SetAttributes(
		attribute.Bool("game.can_play", decision.CanPlay),
		attribute.String("game.policy", decision.Policy),
	)
	if decision.CanPlay {
		monitoring.PolicyDecisions.WithLabelValues(resultAllowed, "").Inc()
	} else {
		monitoring.PolicyDecisions.WithLabelValues("blocked", string(decision.RuleType)).Inc()
		logger.Log.Debug("play blocked",
			zap.Uint("user_id", userID),
			zap.Uint("course_id", courseID),
			zap.String("policy", decision.Policy),
			zap.String("rule_type", string(decision.RuleType)),
		)
	}
	return decision, nil
}

// Evaluate 对给定上下文执行策略，不访问任何外部资源
func (s *PolicyService) Evaluate(policies []model.GamePolicy, pc *model.PlayContext) *model.PlayDecision {
	ordered := make([]model.GamePolicy, 0, len(policies))
	for _, p := range policies {
		if p.Active {
			ordered = append(ordered, p)
		}
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].Priority != ordered[j].Priority {
			return ordered[i].Priority < ordered[j].Priority
		}
		return ordered[i].ID < ordered[j].ID
	})

	decision := &model.PlayDecision{CanPlay: true}
	for i := range ordered {
		p := &ordered[i]
		evaluator, ok := s.Rules.Lookup(p.RuleType)
		if !ok {
			// 未注册的规则类型不阻止任何人
			logger.Log.Debug("no evaluator for rule type", zap.String("rule_type", string(p.RuleType)), zap.Uint("policy_id", p.ID))
			continue
		}

		result := safeEvaluate(evaluator, p, pc)
		if result.Block {
			return &model.PlayDecision{
				CanPlay:  false,
				Reason:   result.Message,
				Policy:   p.Name,
				PolicyID: p.ID,
				RuleType: p.RuleType,
			}
		}
		if len(result.Actions) > 0 {
			if decision.Actions == nil {
				decision.Actions = make(map[string]interface{}, len(result.Actions))
			}
			for k, v := range result.Actions {
				decision.Actions[k] = v
			}
		}
	}
	return decision
}

// safeEvaluate 外部注册的评估器 panic 时按不阻止处理
func safeEvaluate(evaluator RuleEvaluator, p *model.GamePolicy, pc *model.PlayContext) (result RuleResult) {
	defer func() {
		if r := recover(); r != nil {
			logger.Log.Error("rule evaluator panicked",
				zap.Uint("policy_id", p.ID),
				zap.String("rule_type", string(p.RuleType)),
				zap.Any("panic", r),
			)
			result = RuleResult{}
		}
	}()
	return evaluator.Evaluate(p.ConditionMap(), p.ActionMap(), pc)
}
