package main

import (
	"time"

	"github.com/gatemail/internal/config"
	"github.com/gatemail/internal/constants"
	"github.com/gatemail/internal/logger"
	"github.com/gatemail/internal/models"

	"github.com/google/uuid"
)

func main() {
	// 连接数据库
	cfg := config.Load()
	logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	stdLog := logger.StdLogger()
	if err := models.InitDB(cfg.Database.Driver, cfg.Database.DSN, models.DBPoolConfig{
		MaxOpenConns:           cfg.Database.Pool.MaxOpenConns,
		MaxIdleConns:           cfg.Database.Pool.MaxIdleConns,
		ConnMaxLifetimeSeconds: cfg.Database.Pool.ConnMaxLifetimeSeconds,
		ConnMaxIdleTimeSeconds: cfg.Database.Pool.ConnMaxIdleTimeSeconds,
	}); err != nil {
		stdLog.Fatalf("Failed to connect database: %v", err)
	}

	// 自动迁移
	if err := models.AutoMigrate(); err != nil {
		stdLog.Fatalf("Failed to migrate database: %v", err)
	}

	// 受保护内容
	expiresAt := time.Now().AddDate(0, 3, 0)
	contents := []models.ProtectedContent{
		{
			Title:       "Welcome Pack",
			ContentHTML: "<h1>Welcome</h1><p>Thanks for verifying your email. This page is only visible after verification.</p>",
			IsActive:    true,
			Metadata:    models.JSON(map[string]interface{}{"source": "seed"}),
		},
		{
			Title:       "Quarterly Report Preview",
			ContentHTML: "<h1>Quarterly Report</h1><p>Preview copy for verified subscribers.</p>",
			ExpiresAt:   &expiresAt,
			IsActive:    true,
			Metadata:    models.JSON(map[string]interface{}{"source": "seed"}),
		},
	}
	for _, content := range contents {
		var existing models.ProtectedContent
		if err := models.DB.Where("title = ?", content.Title).First(&existing).Error; err == nil {
			stdLog.Printf("Content already exists: %s (%s)", existing.Title, existing.UUID)
			continue
		}
		content.UUID = uuid.NewString()
		if err := models.DB.Create(&content).Error; err != nil {
			stdLog.Printf("Failed to create content %s: %v", content.Title, err)
			continue
		}
		stdLog.Printf("Created content: %s (%s)", content.Title, content.UUID)
	}

	// 邮件模板
	templates := []models.EmailTemplate{
		{
			Name:        "Simple Newsletter",
			Description: "Single column newsletter with a call to action",
			HTMLContent: `<html><body><h1>{{title}}</h1><p>{{body}}</p><p><a href="https://example.com">Read more</a></p></body></html>`,
			Category:    constants.TemplateCategoryNewsletter,
		},
		{
			Name:        "Plain Announcement",
			Description: "Minimal announcement layout",
			HTMLContent: `<html><body><p>{{body}}</p></body></html>`,
			Category:    constants.TemplateCategoryGeneral,
		},
	}
	for _, tpl := range templates {
		var existing models.EmailTemplate
		if err := models.DB.Where("name = ?", tpl.Name).First(&existing).Error; err == nil {
			stdLog.Printf("Template already exists: %s", tpl.Name)
			continue
		}
		if err := models.DB.Create(&tpl).Error; err != nil {
			stdLog.Printf("Failed to create template %s: %v", tpl.Name, err)
			continue
		}
		stdLog.Printf("Created template: %s", tpl.Name)
	}

	// 发件人别名（未验证，需在后台发送验证邮件）
	alias := models.SenderAlias{
		RealEmail:  "owner@example.com",
		AliasEmail: "news@example.com",
		AliasName:  "Example News",
		IsActive:   true,
	}
	var existingAlias models.SenderAlias
	if err := models.DB.Where("alias_email = ?", alias.AliasEmail).First(&existingAlias).Error; err == nil {
		alias = existingAlias
		stdLog.Printf("Alias already exists: %s", alias.AliasEmail)
	} else if err := models.DB.Create(&alias).Error; err != nil {
		stdLog.Fatalf("Failed to create alias: %v", err)
	} else {
		stdLog.Printf("Created alias: %s", alias.AliasEmail)
	}

	// 草稿活动
	campaign := models.Campaign{
		Title:           "Launch Announcement",
		Subject:         "We just launched",
		HTMLBody:        `<html><body><h1>Hello</h1><p>Our new portal is live. <a href="https://example.com/launch">Take a look</a>.</p></body></html>`,
		Recipients:      models.StringArray{"alice@example.com", "bob@example.com"},
		FromAliasID:     &alias.ID,
		Status:          constants.CampaignStatusDraft,
		TotalRecipients: 2,
	}
	var existingCampaign models.Campaign
	if err := models.DB.Where("title = ?", campaign.Title).First(&existingCampaign).Error; err == nil {
		stdLog.Printf("Campaign already exists: %s", campaign.Title)
	} else if err := models.DB.Create(&campaign).Error; err != nil {
		stdLog.Printf("Failed to create campaign: %v", err)
	} else {
		stdLog.Printf("Created draft campaign: %s", campaign.Title)
	}

	stdLog.Println("Seed completed")
}
