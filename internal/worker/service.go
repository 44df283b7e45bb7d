package worker

import (
	"context"
	"errors"
	"sync"

	"github.com/gatemail/internal/config"
	"github.com/gatemail/internal/logger"
	"github.com/gatemail/internal/queue"

	"github.com/hibiken/asynq"
)

// Service 消费群发队列的 asynq 服务
type Service struct {
	server *asynq.Server
	mux    *asynq.ServeMux
	done   chan struct{}
	once   sync.Once
}

// NewService 队列未启用时返回 queue.ErrDisabled
func NewService(cfg *config.QueueConfig, consumer *Consumer) (*Service, error) {
	if cfg == nil || !cfg.Enabled {
		return nil, queue.ErrDisabled
	}
	if consumer == nil {
		return nil, errors.New("worker consumer is nil")
	}
	opt, serverCfg := queue.BuildServerConfig(cfg)
	mux := asynq.NewServeMux()
	consumer.Register(mux)
	return &Service{
		server: asynq.NewServer(opt, serverCfg),
		mux:    mux,
		done:   make(chan struct{}),
	}, nil
}

func (s *Service) Name() string {
	return "worker"
}

// Start 非阻塞启动 asynq，随后等待 ctx 取消或 Stop
func (s *Service) Start(ctx context.Context) error {
	if s == nil || s.server == nil {
		return errors.New("worker not initialized")
	}
	if err := s.server.Start(s.mux); err != nil {
		return err
	}
	logger.Infow("worker_started")
	select {
	case <-ctx.Done():
	case <-s.done:
	}
	return nil
}

// Stop 等待进行中的任务结束后关闭
func (s *Service) Stop(context.Context) error {
	if s == nil || s.server == nil {
		return nil
	}
	s.once.Do(func() {
		close(s.done)
		s.server.Shutdown()
		logger.Infow("worker_stopped")
	})
	return nil
}
