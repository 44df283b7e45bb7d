package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/gatemail/internal/constants"
	"github.com/gatemail/internal/models"
	"github.com/gatemail/internal/repository"
)

func setupCampaignServiceTest(t *testing.T) (*CampaignService, *dispatcherFixture) {
	t.Helper()
	f := setupDispatcherTest(t)
	svc := NewCampaignService(
		f.campaigns,
		repository.NewCampaignEmailRepository(f.db),
		repository.NewAliasRepository(f.db),
		f.dispatcher,
		nil,
	)
	return svc, f
}

func TestDecodeRecipients(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want []string
	}{
		{name: "array", raw: `["a@example.com", " b@example.com ", "a@example.com"]`, want: []string{"a@example.com", "b@example.com"}},
		{name: "text", raw: `"a@example.com\nb@example.com, c@example.com;\n\n"`, want: []string{"a@example.com", "b@example.com", "c@example.com"}},
		{name: "empty", raw: ``, want: nil},
	}
	for _, tc := range cases {
		got, err := DecodeRecipients(json.RawMessage(tc.raw))
		if err != nil {
			t.Fatalf("%s: decode failed: %v", tc.name, err)
		}
		if len(got) != len(tc.want) {
			t.Fatalf("%s: want %v got %v", tc.name, tc.want, got)
		}
		for i := range got {
			if got[i] != tc.want[i] {
				t.Fatalf("%s: want %v got %v", tc.name, tc.want, got)
			}
		}
	}
	if _, err := DecodeRecipients(json.RawMessage(`42`)); !errors.Is(err, ErrCampaignInvalid) {
		t.Fatalf("expected invalid recipients, got %v", err)
	}
}

func TestCampaignCreateAndUpdate(t *testing.T) {
	svc, _ := setupCampaignServiceTest(t)

	if _, err := svc.Create(1, CampaignInput{Title: "T", Subject: "S", HTMLBody: "<p>x</p>", Recipients: []string{"bad"}}); !errors.Is(err, ErrCampaignInvalid) {
		t.Fatalf("expected invalid recipient, got %v", err)
	}

	scheduledAt := time.Now().Add(time.Hour)
	campaign, err := svc.Create(1, CampaignInput{
		Title:       "Spring",
		Subject:     "News",
		HTMLBody:    "<p>hello</p>",
		Recipients:  []string{"a@example.com", "A@example.com", "b@example.com"},
		ScheduledAt: &scheduledAt,
	})
	if err != nil {
		t.Fatalf("create campaign failed: %v", err)
	}
	if campaign.Status != constants.CampaignStatusScheduled || campaign.TotalRecipients != 2 || campaign.CreatedBy != 1 {
		t.Fatalf("unexpected campaign: %+v", campaign)
	}

	aliasID := uint(404)
	if _, err := svc.Update(campaign.ID, CampaignInput{FromAliasID: &aliasID}); !errors.Is(err, ErrAliasNotFound) {
		t.Fatalf("expected alias not found, got %v", err)
	}

	updated, err := svc.Update(campaign.ID, CampaignInput{Subject: "News v2"})
	if err != nil {
		t.Fatalf("update campaign failed: %v", err)
	}
	if updated.Subject != "News v2" || len(updated.Recipients) != 2 {
		t.Fatalf("unexpected update result: %+v", updated)
	}
}

func TestCampaignSendSynchronousAndStats(t *testing.T) {
	svc, f := setupCampaignServiceTest(t)
	campaign := f.createCampaign(t, constants.CampaignStatusDraft, 4)
	f.provider.failFor["user03@example.com"] = true

	outcome, err := svc.Send(context.Background(), campaign.ID, 1, "req-1")
	if err != nil {
		t.Fatalf("send failed: %v", err)
	}
	if outcome.Queued || outcome.Result == nil || outcome.Result.TotalSent != 3 {
		t.Fatalf("unexpected outcome: %+v", outcome)
	}

	if _, err := svc.Update(campaign.ID, CampaignInput{Subject: "late"}); !errors.Is(err, ErrCampaignStatusInvalid) {
		t.Fatalf("sent campaign must not be editable, got %v", err)
	}

	var sent models.CampaignEmail
	if err := f.db.Where("campaign_id = ? AND status = ?", campaign.ID, constants.CampaignEmailStatusSent).First(&sent).Error; err != nil {
		t.Fatalf("load sent row failed: %v", err)
	}
	tracker := NewTrackingService(f.campaigns, repository.NewCampaignEmailRepository(f.db))
	if err := tracker.RecordOpen(context.Background(), sent.TrackingID, RequestMeta{}); err != nil {
		t.Fatalf("record open failed: %v", err)
	}

	stats, err := svc.Stats(campaign.ID)
	if err != nil {
		t.Fatalf("stats failed: %v", err)
	}
	if stats.TotalSent != 3 || stats.TotalOpened != 1 || stats.OpenRate != "33.33" || stats.ClickRate != "0.00" {
		t.Fatalf("unexpected stats: %+v", stats)
	}
	if stats.StatusBreakdown[constants.CampaignEmailStatusFailed] != 1 {
		t.Fatalf("unexpected breakdown: %+v", stats.StatusBreakdown)
	}

	emails, total, err := svc.Emails(campaign.ID, "", 2, 1)
	if err != nil {
		t.Fatalf("emails failed: %v", err)
	}
	if total != 4 || len(emails) != 2 {
		t.Fatalf("unexpected emails page: total=%d len=%d", total, len(emails))
	}
}

func TestCampaignAnalyticsWindow(t *testing.T) {
	svc, f := setupCampaignServiceTest(t)
	now := time.Date(2026, 5, 10, 15, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	campaign := f.createCampaign(t, constants.CampaignStatusSent, 1)
	events := []models.EmailTrackingEvent{
		{CampaignEmailID: 1, CampaignID: campaign.ID, EventType: constants.TrackingEventOpen, CreatedAt: now.Add(-time.Hour)},
		{CampaignEmailID: 1, CampaignID: campaign.ID, EventType: constants.TrackingEventOpen, CreatedAt: now.Add(-2 * time.Hour)},
		{CampaignEmailID: 1, CampaignID: campaign.ID, EventType: constants.TrackingEventClick, CreatedAt: now.AddDate(0, 0, -2)},
		{CampaignEmailID: 1, CampaignID: campaign.ID, EventType: constants.TrackingEventOpen, CreatedAt: now.AddDate(0, 0, -20)},
	}
	for i := range events {
		if err := f.db.Create(&events[i]).Error; err != nil {
			t.Fatalf("create event failed: %v", err)
		}
	}

	analytics, err := svc.Analytics(campaign.ID, "7d")
	if err != nil {
		t.Fatalf("analytics failed: %v", err)
	}
	if len(analytics.Points) != 7 || analytics.From != "2026-05-04" || analytics.To != "2026-05-10" {
		t.Fatalf("unexpected window: %+v", analytics)
	}
	last := analytics.Points[6]
	if last.Date != "2026-05-10" || last.Opens != 2 {
		t.Fatalf("unexpected last point: %+v", last)
	}
	if analytics.Points[4].Clicks != 1 {
		t.Fatalf("expected click two days ago: %+v", analytics.Points[4])
	}

	if _, err := svc.Analytics(campaign.ID, "2w"); !errors.Is(err, ErrAnalyticsRangeInvalid) {
		t.Fatalf("expected invalid range, got %v", err)
	}
}

func TestCampaignDispatchDue(t *testing.T) {
	svc, f := setupCampaignServiceTest(t)
	campaign := f.createCampaign(t, constants.CampaignStatusScheduled, 1)
	past := time.Now().Add(-time.Minute)
	if err := f.campaigns.UpdateFields(campaign.ID, map[string]interface{}{"scheduled_at": past}); err != nil {
		t.Fatalf("update scheduled_at failed: %v", err)
	}
	future := f.createCampaign(t, constants.CampaignStatusScheduled, 1)
	later := time.Now().Add(time.Hour)
	if err := f.campaigns.UpdateFields(future.ID, map[string]interface{}{"scheduled_at": later}); err != nil {
		t.Fatalf("update scheduled_at failed: %v", err)
	}

	dispatched, err := svc.DispatchDue(context.Background())
	if err != nil {
		t.Fatalf("dispatch due failed: %v", err)
	}
	if dispatched != 1 {
		t.Fatalf("expected one due campaign, got %d", dispatched)
	}
	if got := f.reload(t, future.ID); got.Status != constants.CampaignStatusScheduled {
		t.Fatalf("future campaign should wait, got %s", got.Status)
	}
}

func TestPercentOf(t *testing.T) {
	if got := percentOf(1, 3); got != "33.33" {
		t.Fatalf("unexpected percent %s", got)
	}
	if got := percentOf(2, 3); got != "66.67" {
		t.Fatalf("unexpected percent %s", got)
	}
	if got := percentOf(5, 0); got != "0.00" {
		t.Fatalf("unexpected percent %s", got)
	}
}
