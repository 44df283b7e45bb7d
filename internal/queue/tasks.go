package queue

import (
	"encoding/json"

	"github.com/gatemail/internal/constants"

	"github.com/hibiken/asynq"
)

// TaskCampaignSend 活动群发任务
const TaskCampaignSend = constants.TaskCampaignSend

// CampaignSendPayload 活动群发任务载荷
type CampaignSendPayload struct {
	CampaignID  uint   `json:"campaign_id"`
	RequestedBy uint   `json:"requested_by"`
	RequestID   string `json:"request_id,omitempty"`
}

// NewCampaignSendTask 创建活动群发任务
func NewCampaignSendTask(payload CampaignSendPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskCampaignSend, body), nil
}

// ParseCampaignSendPayload 解析活动群发任务载荷
func ParseCampaignSendPayload(task *asynq.Task) (CampaignSendPayload, error) {
	var payload CampaignSendPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return payload, err
	}
	return payload, nil
}
