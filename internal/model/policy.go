package model

import (
	"encoding/json"

	"gorm.io/datatypes"
)

// RuleType 策略规则类型
type RuleType string

const (
	RuleFreePlay       RuleType = "free_play"
	RuleQuietHours     RuleType = "quiet_hours"
	RuleStudyFirst     RuleType = "study_first"
	RuleParentControl  RuleType = "parent_control"
	RuleDailyLimit     RuleType = "daily_limit"
	RuleCourseSpecific RuleType = "course_specific"
	RuleCustom         RuleType = "custom"
)

// swagger:model GamePolicy
type GamePolicy struct {
	BaseModel

	Name       string         `gorm:"size:191;not null" json:"name"`
	RuleType   RuleType       `gorm:"size:50;index" json:"ruleType"`
	Conditions datatypes.JSON `json:"conditions"`
	Actions    datatypes.JSON `json:"actions"`
	Priority   int            `gorm:"not null;index" json:"priority"` // 越小越先评估，0 也是有效值
	Active     bool           `gorm:"not null;index" json:"active"`
}

func (GamePolicy) TableName() string {
	return "game_policies"
}

// ConditionMap 解析 conditions，空值返回空 map
func (p *GamePolicy) ConditionMap() map[string]interface{} {
	return decodeObject(p.Conditions)
}

// ActionMap 解析 actions，空值返回空 map
func (p *GamePolicy) ActionMap() map[string]interface{} {
	return decodeObject(p.Actions)
}

func decodeObject(raw datatypes.JSON) map[string]interface{} {
	out := map[string]interface{}{}
	if len(raw) == 0 {
		return out
	}
	// 非对象 JSON 视为空条件
	_ = json.Unmarshal(raw, &out)
	if out == nil {
		out = map[string]interface{}{}
	}
	return out
}
