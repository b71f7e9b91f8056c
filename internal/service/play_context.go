package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"game_gate_backend/internal/model"
	"game_gate_backend/internal/util"
	"game_gate_backend/pkg/logger"

	"go.uber.org/zap"
)

// ContextBuilder 为一次评估构建上下文快照
type ContextBuilder interface {
	Build(ctx context.Context, userID, courseID uint) model.PlayContext
}

// PlayContextBuilder 除 Stats 外的提供方都可以为 nil；任一提供方缺失或出错时使用中性默认值
type PlayContextBuilder struct {
	Stats    DailyStatsProvider
	Progress CourseProgressProvider
	Parents  ParentControlProvider
	Tickets  TicketStore
	Lessons  LessonActivityProvider

	// Now 可替换的时钟，测试中固定时间
	Now func() time.Time

	mu  sync.RWMutex
	loc *time.Location
}

func NewPlayContextBuilder(
	loc *time.Location,
	stats DailyStatsProvider,
	progress CourseProgressProvider,
	parents ParentControlProvider,
	tickets TicketStore,
	lessons LessonActivityProvider,
) *PlayContextBuilder {
	if loc == nil {
		loc = time.UTC
	}
	return &PlayContextBuilder{
		Stats:    stats,
		Progress: progress,
		Parents:  parents,
		Tickets:  tickets,
		Lessons:  lessons,
		Now:      time.Now,
		loc:      loc,
	}
}

// SetLocation 配置热更新时切换站点时区
func (b *PlayContextBuilder) SetLocation(loc *time.Location) {
	if loc == nil {
		return
	}
	b.mu.Lock()
	b.loc = loc
	b.mu.Unlock()
}

func (b *PlayContextBuilder) Location() *time.Location {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.loc
}

// LocalNow 站点时区的当前时间
func (b *PlayContextBuilder) LocalNow() time.Time {
	now := time.Now
	if b.Now != nil {
		now = b.Now
	}
	return now().In(b.Location())
}

// Today 站点时区的日期，用于每日计数
func (b *PlayContextBuilder) Today() string {
	return b.LocalNow().Format(util.DateFormat)
}

func (b *PlayContextBuilder) Build(ctx context.Context, userID, courseID uint) model.PlayContext {
	now := b.LocalNow()
	pc := model.PlayContext{
		UserID:      userID,
		CourseID:    courseID,
		Now:         now,
		CurrentTime: now.Format(util.ClockFormat),
		CurrentDay:  strings.ToLower(now.Weekday().String()[:3]),
	}

	log := logger.Log.With(zap.Uint("user_id", userID), zap.Uint("course_id", courseID))

	if b.Stats != nil {
		stats, err := b.Stats.TodayStats(ctx, userID, now.Format(util.DateFormat))
		if err != nil {
			log.Warn("daily stats unavailable, using zero counters", zap.Error(err))
		} else {
			pc.TodayStats = stats
		}
	}

	if b.Progress != nil && courseID > 0 {
		pct, err := b.Progress.CourseProgress(ctx, userID, courseID)
		if err != nil {
			log.Warn("course progress unavailable", zap.Error(err))
		} else {
			pc.CourseProgressPct = pct
		}
	}

	if b.Parents != nil {
		controls, err := b.Parents.ParentControls(ctx, userID)
		if err != nil {
			log.Warn("parent controls unavailable, treating as not blocked", zap.Error(err))
		} else {
			pc.ParentControls = controls
		}
	}

	if b.Tickets != nil {
		balance, err := b.Tickets.Balance(ctx, userID)
		if err != nil {
			log.Warn("ticket balance unavailable", zap.Error(err))
		} else {
			pc.TicketBalance = balance
		}
	}

	if b.Lessons != nil {
		viewed, err := b.Lessons.LastLessonView(ctx, userID, courseID)
		if err != nil {
			log.Warn("lesson activity unavailable", zap.Error(err))
		} else {
			pc.LastLessonView = viewed
		}
	}

	return pc
}
