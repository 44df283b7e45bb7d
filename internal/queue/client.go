package queue

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/gatemail/internal/config"
	"github.com/gatemail/internal/constants"
	"github.com/gatemail/internal/logger"

	"github.com/hibiken/asynq"
)

const (
	// DefaultQueue 默认队列名称
	DefaultQueue = constants.QueueDefault
	// CriticalQueue 群发任务所在队列
	CriticalQueue = constants.QueueCritical

	defaultConcurrency  = 10
	campaignSendTimeout = 2 * time.Hour
)

var (
	// ErrDisabled 队列未启用
	ErrDisabled = errors.New("queue disabled")
	// ErrAlreadyQueued 同一活动已有待执行的群发任务
	ErrAlreadyQueued = errors.New("campaign send already queued")
)

type enqueuer interface {
	Enqueue(task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
	Close() error
}

type taskInspector interface {
	GetTaskInfo(queue, id string) (*asynq.TaskInfo, error)
	DeleteTask(queue, id string) error
	Close() error
}

// Client asynq 客户端；未启用时所有入队操作返回 ErrDisabled
type Client struct {
	inner     enqueuer
	inspector taskInspector
}

// NewClient 创建队列客户端
func NewClient(cfg *config.QueueConfig) (*Client, error) {
	if cfg == nil || !cfg.Enabled {
		return &Client{}, nil
	}
	opt := redisOpt(cfg)
	return &Client{inner: asynq.NewClient(opt), inspector: asynq.NewInspector(opt)}, nil
}

func (c *Client) Enabled() bool {
	return c != nil && c.inner != nil
}

func (c *Client) Close() error {
	if !c.Enabled() {
		return nil
	}
	if c.inspector != nil {
		_ = c.inspector.Close()
	}
	return c.inner.Close()
}

// EnqueueCampaignSend 推送活动群发任务。
// 任务 ID 固定为活动 ID，群发不重试，失败体现在活动状态上。
// 失败任务会以同一 ID 留在归档里，入队冲突时清掉已结束的旧任务再入队一次。
func (c *Client) EnqueueCampaignSend(payload CampaignSendPayload, opts ...asynq.Option) (string, error) {
	if !c.Enabled() {
		return "", ErrDisabled
	}
	task, err := NewCampaignSendTask(payload)
	if err != nil {
		return "", err
	}
	taskID := CampaignSendTaskID(payload.CampaignID)
	base := []asynq.Option{
		asynq.Queue(CriticalQueue),
		asynq.MaxRetry(0),
		asynq.Timeout(campaignSendTimeout),
		asynq.TaskID(taskID),
	}
	opts = append(base, opts...)

	info, err := c.inner.Enqueue(task, opts...)
	if isTaskConflict(err) && c.releaseFinished(taskID) {
		info, err = c.inner.Enqueue(task, opts...)
	}
	switch {
	case isTaskConflict(err):
		return "", fmt.Errorf("%w: campaign %d", ErrAlreadyQueued, payload.CampaignID)
	case err != nil:
		return "", err
	}
	return info.ID, nil
}

// CampaignSendTaskID 活动群发任务 ID
func CampaignSendTaskID(campaignID uint) string {
	return "campaign-send-" + strconv.FormatUint(uint64(campaignID), 10)
}

func isTaskConflict(err error) bool {
	return errors.Is(err, asynq.ErrTaskIDConflict) || errors.Is(err, asynq.ErrDuplicateTask)
}

// releaseFinished 删除已归档或已完成的同 ID 任务；仍在排队或执行的任务保留
func (c *Client) releaseFinished(taskID string) bool {
	if c.inspector == nil {
		return false
	}
	info, err := c.inspector.GetTaskInfo(CriticalQueue, taskID)
	switch {
	case errors.Is(err, asynq.ErrTaskNotFound):
		return true
	case err != nil:
		logger.Warnw("queue_task_lookup_failed", "task_id", taskID, "error", err)
		return false
	}
	if info.State != asynq.TaskStateArchived && info.State != asynq.TaskStateCompleted {
		return false
	}
	if err := c.inspector.DeleteTask(CriticalQueue, taskID); err != nil && !errors.Is(err, asynq.ErrTaskNotFound) {
		logger.Warnw("queue_task_release_failed", "task_id", taskID, "state", info.State.String(), "error", err)
		return false
	}
	logger.Infow("queue_task_released", "task_id", taskID, "state", info.State.String())
	return true
}

// BuildServerConfig worker 端的连接与并发配置，日志接入 zap
func BuildServerConfig(cfg *config.QueueConfig) (asynq.RedisClientOpt, asynq.Config) {
	serverCfg := asynq.Config{
		Concurrency: defaultConcurrency,
		Queues:      map[string]int{DefaultQueue: 1, CriticalQueue: 1},
		Logger:      logger.S(),
		ErrorHandler: asynq.ErrorHandlerFunc(func(_ context.Context, task *asynq.Task, err error) {
			logger.Errorw("queue_task_failed", "type", task.Type(), "error", err)
		}),
	}
	if cfg != nil {
		if cfg.Concurrency > 0 {
			serverCfg.Concurrency = cfg.Concurrency
		}
		if len(cfg.Queues) > 0 {
			serverCfg.Queues = cfg.Queues
		}
	}
	return redisOpt(cfg), serverCfg
}

func redisOpt(cfg *config.QueueConfig) asynq.RedisClientOpt {
	if cfg == nil {
		return asynq.RedisClientOpt{Addr: "127.0.0.1:6379"}
	}
	host := strings.TrimSpace(cfg.Host)
	if host == "" {
		host = "127.0.0.1"
	}
	port := cfg.Port
	if port <= 0 {
		port = 6379
	}
	return asynq.RedisClientOpt{
		Addr:     net.JoinHostPort(host, strconv.Itoa(port)),
		Password: cfg.Password,
		DB:       cfg.DB,
	}
}
