package service

import (
	"context"
	"fmt"

	"game_gate_backend/internal/util"
)

// 单局时长上限，防止客户端上报异常值
const maxPlaySeconds = 6 * 60 * 60

// DayClock 提供站点时区的日期
type DayClock interface {
	Today() string
}

type PlayStatService struct {
	Recorder PlayRecorder
	Clock    DayClock
}

func NewPlayStatService(recorder PlayRecorder, clock DayClock) *PlayStatService {
	return &PlayStatService{Recorder: recorder, Clock: clock}
}

// RecordPlay 记录一局结束的游戏，写入当日计数
func (s *PlayStatService) RecordPlay(ctx context.Context, userID uint, durationSeconds int) error {
	if durationSeconds < 0 {
		return util.ErrInvalidPlayDuration
	}
	if durationSeconds > maxPlaySeconds {
		durationSeconds = maxPlaySeconds
	}
	if err := s.Recorder.RecordPlay(ctx, userID, s.Clock.Today(), durationSeconds); err != nil {
		return fmt.Errorf("record play: %w", err)
	}
	return nil
}
