package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gatemail/internal/config"
	"github.com/gatemail/internal/constants"
	"github.com/gatemail/internal/mailer"
	"github.com/gatemail/internal/models"
	"github.com/gatemail/internal/repository"
	"github.com/gatemail/internal/tracking"

	"gorm.io/gorm"
)

type stubProvider struct {
	mu        sync.Mutex
	sent      []mailer.Message
	failFor   map[string]bool
	panicFor  string
	connErr   error
	connTests int
}

func (p *stubProvider) Kind() mailer.ProviderKind { return mailer.KindSMTP }

func (p *stubProvider) TestConnection(context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.connTests++
	return p.connErr
}

func (p *stubProvider) Send(_ context.Context, msg mailer.Message) (mailer.SendResult, error) {
	if p.panicFor != "" && msg.To == p.panicFor {
		panic("provider exploded")
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failFor[msg.To] {
		return mailer.SendResult{}, errors.New("mailbox unavailable")
	}
	p.sent = append(p.sent, msg)
	return mailer.SendResult{MessageID: "msg-" + msg.To}, nil
}

type staticStrategy struct {
	settings mailer.Settings
	found    bool
	err      error
}

func (s staticStrategy) Name() string { return "static" }

func (s staticStrategy) Resolve(*models.Campaign) (mailer.Settings, bool, error) {
	return s.settings, s.found, s.err
}

type dispatcherFixture struct {
	db         *gorm.DB
	dispatcher *CampaignDispatcher
	provider   *stubProvider
	campaigns  repository.CampaignRepository
	sleeps     int
}

func setupDispatcherTest(t *testing.T, strategies ...CredentialStrategy) *dispatcherFixture {
	t.Helper()
	db := openServiceTestDB(t)
	f := &dispatcherFixture{db: db, provider: &stubProvider{failFor: map[string]bool{}}}
	if len(strategies) == 0 {
		strategies = []CredentialStrategy{staticStrategy{settings: mailer.Settings{Kind: mailer.KindSMTP}, found: true}}
	}
	f.campaigns = repository.NewCampaignRepository(db)
	f.dispatcher = NewCampaignDispatcher(
		config.CampaignConfig{BatchSize: 10, BatchDelayMS: 1000},
		f.campaigns,
		repository.NewCampaignEmailRepository(db),
		strategies,
		func(mailer.Settings) (mailer.Provider, error) { return f.provider, nil },
		tracking.NewInjector("https://gate.example.com"),
	)
	f.dispatcher.sleep = func(_ context.Context, d time.Duration) error {
		if d != time.Second {
			t.Fatalf("unexpected batch delay %s", d)
		}
		f.sleeps++
		return nil
	}
	return f
}

func (f *dispatcherFixture) createCampaign(t *testing.T, status string, recipients int) *models.Campaign {
	t.Helper()
	list := make([]string, 0, recipients)
	for i := 0; i < recipients; i++ {
		list = append(list, fmt.Sprintf("user%02d@example.com", i))
	}
	campaign := &models.Campaign{
		Title:      "Launch",
		Subject:    "Hello",
		HTMLBody:   `<html><body><a href="https://example.com/offer">Offer</a></body></html>`,
		Recipients: models.StringArray(list),
		Status:     status,
	}
	if err := f.campaigns.Create(campaign); err != nil {
		t.Fatalf("create campaign failed: %v", err)
	}
	return campaign
}

func (f *dispatcherFixture) reload(t *testing.T, id uint) *models.Campaign {
	t.Helper()
	campaign, err := f.campaigns.GetByID(id)
	if err != nil || campaign == nil {
		t.Fatalf("reload campaign failed: %v", err)
	}
	return campaign
}

func TestSendCampaignBatchesAndTracking(t *testing.T) {
	f := setupDispatcherTest(t)
	campaign := f.createCampaign(t, constants.CampaignStatusDraft, 23)

	result, err := f.dispatcher.SendCampaign(context.Background(), campaign.ID)
	if err != nil {
		t.Fatalf("send campaign failed: %v", err)
	}
	if !result.Success || result.TotalSent != 23 || result.TotalFailed != 0 {
		t.Fatalf("unexpected result: %+v", result)
	}
	if f.sleeps != 2 {
		t.Fatalf("expected sleeps between three batches only, got %d", f.sleeps)
	}
	if f.provider.connTests != 1 {
		t.Fatalf("expected one connection test, got %d", f.provider.connTests)
	}

	stored := f.reload(t, campaign.ID)
	if stored.Status != constants.CampaignStatusSent || stored.TotalSent != 23 || stored.SentAt == nil {
		t.Fatalf("unexpected campaign after send: %+v", stored)
	}

	var emails []models.CampaignEmail
	f.db.Where("campaign_id = ?", campaign.ID).Find(&emails)
	if len(emails) != 23 {
		t.Fatalf("expected 23 email rows, got %d", len(emails))
	}
	for _, msg := range f.provider.sent {
		if strings.Count(msg.HTML, "/api/v1/track/open?id=") != 1 {
			t.Fatalf("expected exactly one pixel in %q", msg.HTML)
		}
		if !strings.Contains(msg.HTML, "/api/v1/track/click?id=") {
			t.Fatalf("expected tracked link in %q", msg.HTML)
		}
		if strings.Contains(msg.Text, "track") {
			t.Fatalf("text part should be built from the original body, got %q", msg.Text)
		}
	}
}

func TestSendCampaignPartialFailure(t *testing.T) {
	f := setupDispatcherTest(t)
	campaign := f.createCampaign(t, constants.CampaignStatusDraft, 4)
	f.provider.failFor["user02@example.com"] = true

	result, err := f.dispatcher.SendCampaign(context.Background(), campaign.ID)
	if err != nil {
		t.Fatalf("send campaign failed: %v", err)
	}
	if result.Success || result.TotalSent != 3 || result.TotalFailed != 1 || len(result.Errors) != 1 {
		t.Fatalf("unexpected result: %+v", result)
	}
	stored := f.reload(t, campaign.ID)
	if stored.Status != constants.CampaignStatusPartiallySent || stored.TotalFailed != 1 {
		t.Fatalf("unexpected campaign: %+v", stored)
	}
	var failed models.CampaignEmail
	if err := f.db.Where("recipient_email = ?", "user02@example.com").First(&failed).Error; err != nil {
		t.Fatalf("load failed row: %v", err)
	}
	if failed.Status != constants.CampaignEmailStatusFailed || failed.ErrorMessage == "" {
		t.Fatalf("unexpected failed row: %+v", failed)
	}
}

func TestSendCampaignRejectsFinishedStatus(t *testing.T) {
	f := setupDispatcherTest(t)
	for _, status := range []string{constants.CampaignStatusSending, constants.CampaignStatusSent, constants.CampaignStatusPartiallySent, constants.CampaignStatusFailed} {
		campaign := f.createCampaign(t, status, 1)
		if _, err := f.dispatcher.SendCampaign(context.Background(), campaign.ID); !errors.Is(err, ErrCampaignStatusInvalid) {
			t.Fatalf("status %s: expected invalid status, got %v", status, err)
		}
	}
	if _, err := f.dispatcher.SendCampaign(context.Background(), 9999); !errors.Is(err, ErrCampaignNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestSendCampaignConnectionFailureKeepsState(t *testing.T) {
	f := setupDispatcherTest(t)
	f.provider.connErr = errors.New("dial tcp: refused")
	campaign := f.createCampaign(t, constants.CampaignStatusDraft, 2)

	if _, err := f.dispatcher.SendCampaign(context.Background(), campaign.ID); !errors.Is(err, ErrEmailConnectionFailed) {
		t.Fatalf("expected connection failure, got %v", err)
	}
	stored := f.reload(t, campaign.ID)
	if stored.Status != constants.CampaignStatusDraft || stored.SentAt != nil {
		t.Fatalf("campaign should be untouched: %+v", stored)
	}
}

func TestSendCampaignPanicMarksFailed(t *testing.T) {
	f := setupDispatcherTest(t)
	campaign := f.createCampaign(t, constants.CampaignStatusDraft, 3)
	f.provider.panicFor = "user01@example.com"

	result, err := f.dispatcher.SendCampaign(context.Background(), campaign.ID)
	if !errors.Is(err, ErrCampaignSendFailed) {
		t.Fatalf("expected send failure, got %v", err)
	}
	if result == nil || result.Success {
		t.Fatalf("expected failed result, got %+v", result)
	}
	stored := f.reload(t, campaign.ID)
	if stored.Status != constants.CampaignStatusFailed || !strings.Contains(stored.ErrorMessage, "panic") {
		t.Fatalf("campaign should be marked failed: %+v", stored)
	}
}

func TestSendCampaignFailedIsTerminal(t *testing.T) {
	f := setupDispatcherTest(t)
	campaign := f.createCampaign(t, constants.CampaignStatusDraft, 3)
	f.provider.panicFor = "user01@example.com"
	if _, err := f.dispatcher.SendCampaign(context.Background(), campaign.ID); !errors.Is(err, ErrCampaignSendFailed) {
		t.Fatalf("expected send failure, got %v", err)
	}

	f.provider.panicFor = ""
	f.provider.mu.Lock()
	sentBefore := len(f.provider.sent)
	f.provider.mu.Unlock()
	var rowsBefore int64
	f.db.Model(&models.CampaignEmail{}).Where("campaign_id = ?", campaign.ID).Count(&rowsBefore)

	result, err := f.dispatcher.SendCampaign(context.Background(), campaign.ID)
	if !errors.Is(err, ErrCampaignStatusInvalid) || result != nil {
		t.Fatalf("resend of failed campaign should be rejected, got result=%+v err=%v", result, err)
	}
	stored := f.reload(t, campaign.ID)
	if stored.Status != constants.CampaignStatusFailed {
		t.Fatalf("failed status must not move back, got %s", stored.Status)
	}
	f.provider.mu.Lock()
	sentAfter := len(f.provider.sent)
	f.provider.mu.Unlock()
	var rowsAfter int64
	f.db.Model(&models.CampaignEmail{}).Where("campaign_id = ?", campaign.ID).Count(&rowsAfter)
	if sentAfter != sentBefore || rowsAfter != rowsBefore {
		t.Fatalf("rejected resend must not send or write: sent %d->%d rows %d->%d", sentBefore, sentAfter, rowsBefore, rowsAfter)
	}
}

func TestDispatchClaimsSendingOnce(t *testing.T) {
	f := setupDispatcherTest(t)
	campaign := f.createCampaign(t, constants.CampaignStatusDraft, 2)

	first, provider, err := f.dispatcher.Prepare(context.Background(), campaign.ID)
	if err != nil {
		t.Fatalf("prepare failed: %v", err)
	}
	second, _, err := f.dispatcher.Prepare(context.Background(), campaign.ID)
	if err != nil {
		t.Fatalf("second prepare failed: %v", err)
	}

	result, err := f.dispatcher.Dispatch(context.Background(), first, provider)
	if err != nil || result.TotalSent != 2 {
		t.Fatalf("first dispatch failed: result=%+v err=%v", result, err)
	}
	if _, err := f.dispatcher.Dispatch(context.Background(), second, provider); !errors.Is(err, ErrCampaignStatusInvalid) {
		t.Fatalf("second dispatch should lose the claim, got %v", err)
	}
	if stored := f.reload(t, campaign.ID); stored.Status != constants.CampaignStatusSent {
		t.Fatalf("losing dispatch must not change status, got %s", stored.Status)
	}
	if len(f.provider.sent) != 2 {
		t.Fatalf("each recipient should be sent once, got %d", len(f.provider.sent))
	}
}

func TestSendCampaignStrategyOrder(t *testing.T) {
	f := setupDispatcherTest(t,
		staticStrategy{found: false},
		staticStrategy{settings: mailer.Settings{Kind: mailer.KindResend, FromEmail: "ops@example.com"}, found: true},
		staticStrategy{err: errors.New("must not be reached")},
	)
	var used mailer.Settings
	f.dispatcher.factory = func(settings mailer.Settings) (mailer.Provider, error) {
		used = settings
		return f.provider, nil
	}
	campaign := f.createCampaign(t, constants.CampaignStatusFailed, 1)
	if _, err := f.dispatcher.SendCampaign(context.Background(), campaign.ID); err != nil {
		t.Fatalf("send campaign failed: %v", err)
	}
	if used.Kind != mailer.KindResend || used.FromEmail != "ops@example.com" {
		t.Fatalf("unexpected settings used: %+v", used)
	}
}

func TestSendCampaignNoCredentials(t *testing.T) {
	f := setupDispatcherTest(t, staticStrategy{found: false})
	campaign := f.createCampaign(t, constants.CampaignStatusDraft, 1)
	if _, err := f.dispatcher.SendCampaign(context.Background(), campaign.ID); !errors.Is(err, ErrEmailServiceNotConfigured) {
		t.Fatalf("expected not configured, got %v", err)
	}
}

func TestNormalizeRecipients(t *testing.T) {
	got := normalizeRecipients([]string{" a@example.com", "A@example.com", "", "b@example.com"})
	if len(got) != 2 || got[0] != "a@example.com" || got[1] != "b@example.com" {
		t.Fatalf("unexpected recipients: %v", got)
	}
}
