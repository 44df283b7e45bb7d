package app

import (
	"errors"

	"github.com/gatemail/internal/config"
	"github.com/gatemail/internal/logger"
	"github.com/gatemail/internal/provider"
	"github.com/gatemail/internal/router"
	"github.com/gatemail/internal/worker"
)

// BuildRunner 构建服务运行器
func BuildRunner(cfg *config.Config, mode string) (*Runner, *provider.Container, error) {
	if cfg == nil {
		return nil, nil, errors.New("config is nil")
	}

	container := provider.NewContainer(cfg)

	var services []Service

	// 初始化 HTTP 服务
	if mode == ModeAll || mode == ModeAPI {
		engine := router.SetupRouter(cfg, container)
		addr := cfg.Server.Host + ":" + cfg.Server.Port
		httpService := NewHTTPService(addr, engine)
		services = append(services, httpService)
	}

	// 预定活动轮询始终在进程内运行；队列开启时群发由 Worker 消费
	if mode == ModeAll || mode == ModeWorker {
		if !cfg.Queue.Enabled && mode == ModeWorker {
			return nil, nil, errors.New("worker mode requires queue.enabled")
		}
		if cfg.Queue.Enabled {
			workerService, err := worker.NewService(&cfg.Queue, worker.NewConsumer(container))
			if err != nil {
				return nil, nil, err
			}
			services = append(services, workerService)
		} else {
			logger.Infow("app_queue_disabled_inline_send")
		}
		services = append(services, worker.NewScheduler(container.CampaignService))
	}

	if len(services) == 0 {
		return nil, nil, errors.New("no services initialized (check mode and config)")
	}

	return NewRunner(services...), container, nil
}

// Run 应用启动入口
func Run(opts Options) error {
	opts, err := opts.withDefaults()
	if err != nil {
		return err
	}

	runner, container, err := BuildRunner(opts.Config, opts.Mode)
	if err != nil {
		return err
	}
	defer container.Close()

	addr := opts.Config.Server.Host + ":" + opts.Config.Server.Port
	opts.Logger.Infow("app_start", "addr", addr, "mode", opts.Mode)
	return RunWithOptions(runner, opts)
}
