package worker

import (
	"context"
	"errors"
	"testing"

	"github.com/gatemail/internal/queue"
	"github.com/gatemail/internal/service"

	"github.com/hibiken/asynq"
)

type stubCampaignSender struct {
	calls []uint
	err   error
}

func (s *stubCampaignSender) SendCampaign(_ context.Context, id uint) (*service.CampaignSendResult, error) {
	s.calls = append(s.calls, id)
	if s.err != nil {
		return nil, s.err
	}
	return &service.CampaignSendResult{Success: true, TotalSent: 3}, nil
}

func newCampaignTask(t *testing.T, id uint) *asynq.Task {
	t.Helper()
	task, err := queue.NewCampaignSendTask(queue.CampaignSendPayload{CampaignID: id, RequestedBy: 1})
	if err != nil {
		t.Fatalf("build task failed: %v", err)
	}
	return task
}

func TestHandleCampaignSendCallsSender(t *testing.T) {
	sender := &stubCampaignSender{}
	consumer := &Consumer{sender: sender}

	if err := consumer.handleCampaignSend(context.Background(), newCampaignTask(t, 7)); err != nil {
		t.Fatalf("handle campaign send failed: %v", err)
	}
	if len(sender.calls) != 1 || sender.calls[0] != 7 {
		t.Fatalf("expected one send for campaign 7, got %v", sender.calls)
	}
}

func TestHandleCampaignSendSkipsFinishedCampaign(t *testing.T) {
	cases := []error{service.ErrCampaignNotFound, service.ErrCampaignStatusInvalid}
	for _, sendErr := range cases {
		sender := &stubCampaignSender{err: sendErr}
		consumer := &Consumer{sender: sender}
		if err := consumer.handleCampaignSend(context.Background(), newCampaignTask(t, 9)); err != nil {
			t.Fatalf("expected skip for %v, got %v", sendErr, err)
		}
	}
}

func TestHandleCampaignSendReturnsConnectionError(t *testing.T) {
	sender := &stubCampaignSender{err: service.ErrEmailConnectionFailed}
	consumer := &Consumer{sender: sender}

	err := consumer.handleCampaignSend(context.Background(), newCampaignTask(t, 3))
	if !errors.Is(err, service.ErrEmailConnectionFailed) {
		t.Fatalf("expected connection error, got %v", err)
	}
}

func TestHandleCampaignSendInvalidPayload(t *testing.T) {
	sender := &stubCampaignSender{}
	consumer := &Consumer{sender: sender}

	err := consumer.handleCampaignSend(context.Background(), asynq.NewTask(queue.TaskCampaignSend, []byte("{bad")))
	if !errors.Is(err, asynq.SkipRetry) {
		t.Fatalf("expected skip retry for malformed payload, got %v", err)
	}

	if err := consumer.handleCampaignSend(context.Background(), newCampaignTask(t, 0)); err != nil {
		t.Fatalf("expected zero campaign id to be skipped, got %v", err)
	}
	if len(sender.calls) != 0 {
		t.Fatalf("expected no sends, got %v", sender.calls)
	}
}
