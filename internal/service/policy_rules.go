package service

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"
	"time"

	"game_gate_backend/internal/model"
	"game_gate_backend/internal/util"

	"github.com/spf13/cast"
)

// RuleResult 单条策略的评估结果
type RuleResult struct {
	Block   bool
	Message string
	// Actions 非阻止时附加到最终判定上的建议性动作
	Actions map[string]interface{}
}

// RuleEvaluator 按规则类型评估 (conditions, actions, context)，必须是纯函数
type RuleEvaluator interface {
	Evaluate(conditions, actions map[string]interface{}, pc *model.PlayContext) RuleResult
}

type RuleEvaluatorFunc func(conditions, actions map[string]interface{}, pc *model.PlayContext) RuleResult

func (f RuleEvaluatorFunc) Evaluate(conditions, actions map[string]interface{}, pc *model.PlayContext) RuleResult {
	return f(conditions, actions, pc)
}

// RuleRegistry 规则类型到评估器的映射，内置六种类型，可对外注册
type RuleRegistry struct {
	mu         sync.RWMutex
	evaluators map[model.RuleType]RuleEvaluator
}

func NewRuleRegistry() *RuleRegistry {
	r := &RuleRegistry{evaluators: make(map[model.RuleType]RuleEvaluator)}
	r.Register(model.RuleQuietHours, RuleEvaluatorFunc(evaluateQuietHours))
	r.Register(model.RuleFreePlay, RuleEvaluatorFunc(evaluateFreePlay))
	r.Register(model.RuleStudyFirst, RuleEvaluatorFunc(evaluateStudyFirst))
	r.Register(model.RuleParentControl, RuleEvaluatorFunc(evaluateParentControl))
	r.Register(model.RuleDailyLimit, RuleEvaluatorFunc(evaluateDailyLimit))
	r.Register(model.RuleCourseSpecific, RuleEvaluatorFunc(evaluateCourseSpecific))
	return r
}

// Register 注册或替换某规则类型的评估器
func (r *RuleRegistry) Register(ruleType model.RuleType, evaluator RuleEvaluator) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.evaluators[ruleType] = evaluator
}

func (r *RuleRegistry) Lookup(ruleType model.RuleType) (RuleEvaluator, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.evaluators[ruleType]
	return e, ok
}

// blockMessage actions.message 优先于默认提示
func blockMessage(actions map[string]interface{}, fallback string) string {
	if msg := strings.TrimSpace(cast.ToString(actions["message"])); msg != "" {
		return msg
	}
	return fallback
}

// clockMinutes 将 "HH:MM" 转换为当天分钟数
func clockMinutes(v string) (int, bool) {
	t, err := time.Parse(util.ClockFormat, strings.TrimSpace(v))
	if err != nil {
		return 0, false
	}
	return t.Hour()*60 + t.Minute(), true
}

// windowContains 闭区间判断；start > end 时视为跨午夜
func windowContains(start, end, cur int) bool {
	if start > end {
		return cur >= start || cur <= end
	}
	return cur >= start && cur <= end
}

func conditionWindow(conditions map[string]interface{}) (string, string, int, int, bool) {
	startStr := cast.ToString(conditions["start"])
	endStr := cast.ToString(conditions["end"])
	start, okStart := clockMinutes(startStr)
	end, okEnd := clockMinutes(endStr)
	return startStr, endStr, start, end, okStart && okEnd
}

func evaluateQuietHours(conditions, actions map[string]interface{}, pc *model.PlayContext) RuleResult {
	startStr, endStr, start, end, ok := conditionWindow(conditions)
	cur, okCur := clockMinutes(pc.CurrentTime)
	if !ok || !okCur {
		return RuleResult{}
	}
	if !windowContains(start, end, cur) {
		return RuleResult{}
	}
	return RuleResult{
		Block:   true,
		Message: blockMessage(actions, fmt.Sprintf("Games are not available during quiet hours (%s - %s).", startStr, endStr)),
	}
}

// evaluateFreePlay 只在窗口内附加 actions，从不阻止
func evaluateFreePlay(conditions, actions map[string]interface{}, pc *model.PlayContext) RuleResult {
	if days := cast.ToStringSlice(conditions["days"]); len(days) > 0 {
		matched := false
		for _, d := range days {
			d = strings.ToLower(strings.TrimSpace(d))
			if len(d) > 3 {
				d = d[:3]
			}
			if d == pc.CurrentDay {
				matched = true
				break
			}
		}
		if !matched {
			return RuleResult{}
		}
	}

	if conditions["start"] != nil || conditions["end"] != nil {
		_, _, start, end, ok := conditionWindow(conditions)
		cur, okCur := clockMinutes(pc.CurrentTime)
		if !ok || !okCur || !windowContains(start, end, cur) {
			return RuleResult{}
		}
	}

	annotations := make(map[string]interface{}, len(actions)+1)
	for k, v := range actions {
		annotations[k] = v
	}
	annotations["free_play"] = true
	return RuleResult{Actions: annotations}
}

func evaluateStudyFirst(conditions, actions map[string]interface{}, pc *model.PlayContext) RuleResult {
	if pc.LastLessonView == nil {
		return RuleResult{
			Block:   true,
			Message: blockMessage(actions, "Please complete a lesson before playing."),
		}
	}

	minimum := time.Duration(cast.ToInt64(conditions["minimum_time_seconds"])) * time.Second
	elapsed := pc.Now.Sub(*pc.LastLessonView)
	if elapsed >= minimum {
		return RuleResult{}
	}

	remaining := int(math.Ceil((minimum - elapsed).Minutes()))
	return RuleResult{
		Block:   true,
		Message: blockMessage(actions, fmt.Sprintf("Keep studying: games unlock in %d more minute(s).", remaining)),
	}
}

// evaluateParentControl time_restrictions 是允许窗口，与 quiet_hours 含义相反，且不跨午夜
func evaluateParentControl(conditions, actions map[string]interface{}, pc *model.PlayContext) RuleResult {
	controls := pc.ParentControls
	if controls.GamesBlocked {
		return RuleResult{
			Block:   true,
			Message: blockMessage(actions, "Games have been turned off by a parent or guardian."),
		}
	}

	if tr := controls.TimeRestrictions; tr != nil {
		start, okStart := clockMinutes(tr.Start)
		end, okEnd := clockMinutes(tr.End)
		cur, okCur := clockMinutes(pc.CurrentTime)
		if okStart && okEnd && okCur && (cur < start || cur > end) {
			return RuleResult{
				Block:   true,
				Message: blockMessage(actions, fmt.Sprintf("Games are only allowed between %s and %s.", tr.Start, tr.End)),
			}
		}
	}

	if controls.RequireTickets && pc.TicketBalance <= 0 {
		return RuleResult{
			Block:   true,
			Message: blockMessage(actions, "You need a ticket to play. Ask a parent or guardian for more."),
		}
	}
	return RuleResult{}
}

func evaluateDailyLimit(conditions, actions map[string]interface{}, pc *model.PlayContext) RuleResult {
	maxGames := cast.ToInt(conditions["max_games_per_day"])
	if maxGames > 0 && pc.TodayStats.GamesPlayed >= maxGames {
		return RuleResult{
			Block:   true,
			Message: blockMessage(actions, fmt.Sprintf("You have reached today's limit of %d games.", maxGames)),
		}
	}

	maxTime := cast.ToInt(conditions["max_time_per_day"])
	if maxTime > 0 && pc.TodayStats.TimePlayedSeconds >= maxTime {
		minutes := int(math.Ceil(float64(maxTime) / 60))
		return RuleResult{
			Block:   true,
			Message: blockMessage(actions, fmt.Sprintf("You have reached today's play time limit of %d minute(s).", minutes)),
		}
	}
	return RuleResult{}
}

func evaluateCourseSpecific(conditions, actions map[string]interface{}, pc *model.PlayContext) RuleResult {
	if pc.CourseID > 0 {
		for _, id := range cast.ToIntSlice(conditions["blocked_courses"]) {
			if id > 0 && uint(id) == pc.CourseID {
				return RuleResult{
					Block:   true,
					Message: blockMessage(actions, "Games are not available for this course."),
				}
			}
		}
	}

	// 进度未知时跳过最低进度检查
	minimum := cast.ToFloat64(conditions["minimum_progress"])
	if minimum > 0 && pc.CourseProgressPct != nil && *pc.CourseProgressPct < minimum {
		return RuleResult{
			Block: true,
			Message: blockMessage(actions, fmt.Sprintf("Complete at least %s%% of this course to unlock games.",
				strconv.FormatFloat(minimum, 'f', -1, 64))),
		}
	}
	return RuleResult{}
}
