package worker

import (
	"context"
	"sync"
	"time"

	"github.com/gatemail/internal/logger"
)

const scheduledCampaignInterval = time.Minute

// DueDispatcher 触发到期的预定活动
type DueDispatcher interface {
	DispatchDue(ctx context.Context) (int, error)
}

// Scheduler 预定活动轮询器，队列关闭时也可单独运行
type Scheduler struct {
	dispatcher DueDispatcher
	interval   time.Duration
	quit       chan struct{}
	stopOnce   sync.Once
}

// NewScheduler 创建轮询器
func NewScheduler(dispatcher DueDispatcher) *Scheduler {
	return &Scheduler{
		dispatcher: dispatcher,
		interval:   scheduledCampaignInterval,
		quit:       make(chan struct{}),
	}
}

// Name 服务名称
func (s *Scheduler) Name() string {
	return "scheduler"
}

// Start 阻塞运行直到 ctx 取消或 Stop 被调用
func (s *Scheduler) Start(ctx context.Context) error {
	if s == nil || s.dispatcher == nil {
		return nil
	}
	s.runOnce(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-s.quit:
			return nil
		case <-ticker.C:
			s.runOnce(ctx)
		}
	}
}

// Stop 停止轮询
func (s *Scheduler) Stop(context.Context) error {
	if s == nil || s.quit == nil {
		return nil
	}
	s.stopOnce.Do(func() { close(s.quit) })
	return nil
}

func (s *Scheduler) runOnce(ctx context.Context) {
	dispatched, err := s.dispatcher.DispatchDue(ctx)
	if err != nil {
		logger.Warnw("scheduled_campaign_dispatch_failed", "error", err)
		return
	}
	if dispatched > 0 {
		logger.Infow("scheduled_campaign_dispatched", "count", dispatched)
	}
}
