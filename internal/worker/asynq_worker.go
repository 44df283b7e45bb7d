package worker

import (
	"context"
	"errors"
	"fmt"

	"github.com/gatemail/internal/logger"
	"github.com/gatemail/internal/provider"
	"github.com/gatemail/internal/queue"
	"github.com/gatemail/internal/service"

	"github.com/hibiken/asynq"
)

// CampaignSender 执行活动群发
type CampaignSender interface {
	SendCampaign(ctx context.Context, id uint) (*service.CampaignSendResult, error)
}

// Consumer 异步任务消费者
type Consumer struct {
	*provider.Container
	sender CampaignSender
}

// NewConsumer 创建消费者
func NewConsumer(c *provider.Container) *Consumer {
	consumer := &Consumer{Container: c}
	if c != nil && c.CampaignDispatcher != nil {
		consumer.sender = c.CampaignDispatcher
	}
	return consumer
}

// Register 注册消费者
func (c *Consumer) Register(mux *asynq.ServeMux) {
	if c == nil || mux == nil {
		logger.Debugw("worker_register_skip_nil", "consumer_nil", c == nil, "mux_nil", mux == nil)
		return
	}
	mux.HandleFunc(queue.TaskCampaignSend, c.handleCampaignSend)
}

func (c *Consumer) handleCampaignSend(ctx context.Context, task *asynq.Task) error {
	if c == nil || task == nil || c.sender == nil {
		logger.Debugw("worker_campaign_send_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	payload, err := queue.ParseCampaignSendPayload(task)
	if err != nil {
		logger.Warnw("worker_campaign_send_unmarshal_failed", "error", err)
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}
	if payload.CampaignID == 0 {
		logger.Debugw("worker_campaign_send_skip_invalid_payload", "campaign_id", payload.CampaignID)
		return nil
	}

	log := logger.SW("campaign_id", payload.CampaignID, "requested_by", payload.RequestedBy, "request_id", payload.RequestID)
	result, err := c.sender.SendCampaign(ctx, payload.CampaignID)
	if err != nil {
		if errors.Is(err, service.ErrCampaignNotFound) || errors.Is(err, service.ErrCampaignStatusInvalid) {
			log.Debugw("worker_campaign_send_skip", "reason", err.Error())
			return nil
		}
		log.Warnw("worker_campaign_send_failed", "error", err)
		return err
	}
	log.Infow("worker_campaign_send_done",
		"success", result.Success,
		"total_sent", result.TotalSent,
		"total_failed", result.TotalFailed,
	)
	return nil
}
