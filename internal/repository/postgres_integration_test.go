//go:build integration
// +build integration

package repository

import (
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gatemail/internal/constants"
	"github.com/gatemail/internal/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// setupPostgresIntegrationDB 初始化 PostgreSQL 集成测试数据库。
func setupPostgresIntegrationDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := strings.TrimSpace(os.Getenv("TEST_POSTGRES_DSN"))
	if dsn == "" {
		t.Skip("skip postgres integration test: TEST_POSTGRES_DSN is empty")
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open postgres failed: %v", err)
	}

	cleanupModels := []interface{}{
		&models.EmailTrackingEvent{},
		&models.CampaignEmail{},
		&models.Campaign{},
		&models.ContentView{},
		&models.ProtectedContent{},
	}
	_ = db.Migrator().DropTable(cleanupModels...)

	if err := db.AutoMigrate(cleanupModels...); err != nil {
		t.Fatalf("migrate postgres models failed: %v", err)
	}

	t.Cleanup(func() {
		_ = db.Migrator().DropTable(cleanupModels...)
		sqlDB, err := db.DB()
		if err == nil {
			_ = sqlDB.Close()
		}
	})

	return db
}

func TestPostgresContentSearchIsCaseInsensitive(t *testing.T) {
	db := setupPostgresIntegrationDB(t)
	repo := NewContentRepository(db)

	content := &models.ProtectedContent{
		UUID:        "pg-content-1",
		Title:       "Quarterly Report",
		ContentHTML: "<p>report</p>",
		IsActive:    true,
	}
	if err := repo.Create(content); err != nil {
		t.Fatalf("create content failed: %v", err)
	}

	rows, total, err := repo.List(ContentListFilter{Page: 1, PageSize: 10, Search: "quarterly"})
	if err != nil {
		t.Fatalf("content search failed: %v", err)
	}
	if total != 1 || len(rows) != 1 {
		t.Fatalf("content search want 1 got total=%d len=%d", total, len(rows))
	}

	rows, total, err = repo.List(ContentListFilter{Page: 1, PageSize: 10, Search: "pg-content-1"})
	if err != nil {
		t.Fatalf("content uuid search failed: %v", err)
	}
	if total != 1 || len(rows) != 1 {
		t.Fatalf("content uuid search want 1 got total=%d len=%d", total, len(rows))
	}
}

func TestPostgresTopContentAndDailyEvents(t *testing.T) {
	db := setupPostgresIntegrationDB(t)

	contentRepo := NewContentRepository(db)
	if err := contentRepo.Create(&models.ProtectedContent{UUID: "pg-top", Title: "Top", ContentHTML: "x", IsActive: true}); err != nil {
		t.Fatalf("create content failed: %v", err)
	}
	viewRepo := NewViewRepository(db)
	now := time.Now()
	for i := 0; i < 3; i++ {
		if err := viewRepo.CreateContentView(&models.ContentView{ContentUUID: "pg-top", ViewedAt: now}); err != nil {
			t.Fatalf("create view failed: %v", err)
		}
	}
	top, err := viewRepo.TopContent(nil, 5)
	if err != nil {
		t.Fatalf("top content failed: %v", err)
	}
	if len(top) != 1 || top[0].Views != 3 || top[0].Title != "Top" {
		t.Fatalf("unexpected top content: %+v", top)
	}

	emailRepo := NewCampaignEmailRepository(db)
	events := []models.EmailTrackingEvent{
		{CampaignEmailID: 1, CampaignID: 7, EventType: constants.TrackingEventOpen, CreatedAt: now},
		{CampaignEmailID: 1, CampaignID: 7, EventType: constants.TrackingEventOpen, CreatedAt: now},
		{CampaignEmailID: 1, CampaignID: 7, EventType: constants.TrackingEventClick, CreatedAt: now},
	}
	for i := range events {
		if err := emailRepo.CreateEvent(&events[i]); err != nil {
			t.Fatalf("create event failed: %v", err)
		}
	}
	rows, err := emailRepo.DailyEvents(7, now.Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("daily events failed: %v", err)
	}
	totals := map[string]int64{}
	for _, row := range rows {
		if row.Day == "" {
			t.Fatalf("day should not be empty: %+v", row)
		}
		totals[row.EventType] += row.Total
	}
	if totals[constants.TrackingEventOpen] != 2 || totals[constants.TrackingEventClick] != 1 {
		t.Fatalf("unexpected daily totals: %+v", totals)
	}
}
