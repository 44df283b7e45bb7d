package admin

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gatemail/internal/config"
	"github.com/gatemail/internal/constants"
	"github.com/gatemail/internal/mailer"
	"github.com/gatemail/internal/models"
	"github.com/gatemail/internal/provider"
	"github.com/gatemail/internal/repository"
	"github.com/gatemail/internal/service"
	"github.com/gatemail/internal/tracking"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

type capturingProvider struct {
	mu   sync.Mutex
	sent []mailer.Message
}

func (p *capturingProvider) Kind() mailer.ProviderKind { return mailer.KindSMTP }

func (p *capturingProvider) TestConnection(context.Context) error { return nil }

func (p *capturingProvider) Send(_ context.Context, msg mailer.Message) (mailer.SendResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sent = append(p.sent, msg)
	return mailer.SendResult{MessageID: "msg-" + msg.To}, nil
}

type fixedStrategy struct{}

func (fixedStrategy) Name() string { return "fixed" }

func (fixedStrategy) Resolve(*models.Campaign) (mailer.Settings, bool, error) {
	return mailer.Settings{Kind: mailer.KindSMTP, FromEmail: "news@example.com"}, true, nil
}

func setupCampaignHandlerTest(t *testing.T) (*gin.Engine, *capturingProvider, *gorm.DB) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:admin_campaign_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("get sql db failed: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := db.AutoMigrate(models.AllModels()...); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}

	sender := &capturingProvider{}
	campaignRepo := repository.NewCampaignRepository(db)
	emailRepo := repository.NewCampaignEmailRepository(db)
	dispatcher := service.NewCampaignDispatcher(
		config.CampaignConfig{BatchSize: 10, BatchDelayMS: 0},
		campaignRepo,
		emailRepo,
		[]service.CredentialStrategy{fixedStrategy{}},
		func(mailer.Settings) (mailer.Provider, error) { return sender, nil },
		tracking.NewInjector("https://gate.example.com"),
	)
	h := New(&provider.Container{
		CampaignService: service.NewCampaignService(campaignRepo, emailRepo, repository.NewAliasRepository(db), dispatcher, nil),
	})

	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("admin_id", uint(1))
		c.Next()
	})
	r.POST("/campaigns", h.CreateCampaign)
	r.POST("/campaigns/:id/send", h.SendCampaign)
	r.GET("/campaigns/:id/emails", h.GetCampaignEmails)
	return r, sender, db
}

func doJSON(r *gin.Engine, method, target string, body interface{}) *httptest.ResponseRecorder {
	var payload []byte
	if body != nil {
		payload, _ = json.Marshal(body)
	}
	req := httptest.NewRequest(method, target, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestSendCampaignSynchronously(t *testing.T) {
	r, sender, db := setupCampaignHandlerTest(t)

	w := doJSON(r, http.MethodPost, "/campaigns", map[string]interface{}{
		"title":      "Launch",
		"subject":    "Hello",
		"html_body":  `<html><body><a href="https://example.com/offer">Offer</a></body></html>`,
		"recipients": "a@example.com\nb@example.com",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("create campaign want 200 got %d body=%s", w.Code, w.Body.String())
	}
	var created struct {
		Data models.Campaign `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode create response failed: %v", err)
	}
	if created.Data.Status != constants.CampaignStatusDraft || created.Data.TotalRecipients != 2 {
		t.Fatalf("unexpected created campaign: %+v", created.Data)
	}

	w = doJSON(r, http.MethodPost, fmt.Sprintf("/campaigns/%d/send", created.Data.ID), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("send campaign want 200 got %d body=%s", w.Code, w.Body.String())
	}
	var sent struct {
		Data service.CampaignSendResult `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &sent); err != nil {
		t.Fatalf("decode send response failed: %v", err)
	}
	if !sent.Data.Success || sent.Data.TotalSent != 2 || sent.Data.TotalFailed != 0 {
		t.Fatalf("unexpected send result: %+v", sent.Data)
	}
	if len(sender.sent) != 2 {
		t.Fatalf("provider should receive 2 messages, got %d", len(sender.sent))
	}

	var campaign models.Campaign
	if err := db.First(&campaign, created.Data.ID).Error; err != nil {
		t.Fatalf("reload campaign failed: %v", err)
	}
	if campaign.Status != constants.CampaignStatusSent {
		t.Fatalf("campaign status want sent got %s", campaign.Status)
	}

	w = doJSON(r, http.MethodPost, fmt.Sprintf("/campaigns/%d/send", created.Data.ID), nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("resend want 400 got %d", w.Code)
	}

	w = doJSON(r, http.MethodGet, fmt.Sprintf("/campaigns/%d/emails?limit=1", created.Data.ID), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list emails want 200 got %d", w.Code)
	}
	var emails struct {
		Data struct {
			Items []models.CampaignEmail `json:"items"`
			Total int64                  `json:"total"`
		} `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &emails); err != nil {
		t.Fatalf("decode emails failed: %v", err)
	}
	if emails.Data.Total != 2 || len(emails.Data.Items) != 1 {
		t.Fatalf("unexpected emails page: total=%d len=%d", emails.Data.Total, len(emails.Data.Items))
	}
}

func TestSendCampaignNotFound(t *testing.T) {
	r, _, _ := setupCampaignHandlerTest(t)
	w := doJSON(r, http.MethodPost, "/campaigns/999/send", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("want 404 got %d", w.Code)
	}
}

func TestCreateCampaignRejectsInvalidRecipient(t *testing.T) {
	r, _, _ := setupCampaignHandlerTest(t)
	w := doJSON(r, http.MethodPost, "/campaigns", map[string]interface{}{
		"title":      "Launch",
		"subject":    "Hello",
		"html_body":  "<p>x</p>",
		"recipients": []string{"not-an-email"},
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("want 400 got %d", w.Code)
	}
}
