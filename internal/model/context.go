package model

import "time"

// TimeWindow "HH:MM" 时间区间
type TimeWindow struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// PlayStats 当日游戏统计
type PlayStats struct {
	GamesPlayed       int `json:"gamesPlayed"`
	TimePlayedSeconds int `json:"timePlayedSeconds"`
}

// ParentControls 家长控制设置；没有家长集成时为零值（不阻止）
type ParentControls struct {
	GamesBlocked     bool        `json:"gamesBlocked"`
	TimeRestrictions *TimeWindow `json:"timeRestrictions,omitempty"`
	RequireTickets   bool        `json:"requireTickets"`
}

// PlayContext 单次策略评估的只读快照，每次评估重新构建，不持久化
type PlayContext struct {
	UserID            uint           `json:"userId"`
	CourseID          uint           `json:"courseId"`
	Now               time.Time      `json:"now"`
	CurrentTime       string         `json:"currentTime"` // HH:MM，站点时区
	CurrentDay        string         `json:"currentDay"`  // mon, tue, ...
	CourseProgressPct *float64       `json:"courseProgressPct,omitempty"`
	TodayStats        PlayStats      `json:"todayStats"`
	ParentControls    ParentControls `json:"parentControls"`
	LastLessonView    *time.Time     `json:"lastLessonView,omitempty"`
	TicketBalance     int            `json:"ticketBalance"`
}

// PlayDecision 准入判定结果
type PlayDecision struct {
	CanPlay  bool                   `json:"canPlay"`
	Reason   string                 `json:"reason,omitempty"`
	Policy   string                 `json:"policy,omitempty"`
	PolicyID uint                   `json:"policyId,omitempty"`
	RuleType RuleType               `json:"ruleType,omitempty"`
	Actions  map[string]interface{} `json:"actions,omitempty"`
}
