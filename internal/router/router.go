package router

import (
	"sort"
	"strings"

	"github.com/gatemail/internal/authz"
	"github.com/gatemail/internal/config"
	adminhandlers "github.com/gatemail/internal/http/handlers/admin"
	publichandlers "github.com/gatemail/internal/http/handlers/public"
	"github.com/gatemail/internal/http/response"
	"github.com/gatemail/internal/logger"
	"github.com/gatemail/internal/provider"

	"github.com/gin-gonic/gin"
)

// NewEngine 创建 gin 引擎，只信任配置中的代理转发的客户端地址
func NewEngine(server config.ServerConfig) *gin.Engine {
	r := gin.New()
	if err := r.SetTrustedProxies(server.TrustedProxies); err != nil {
		logger.Warnw("router_trusted_proxies_invalid", "trusted_proxies", server.TrustedProxies, "error", err)
		_ = r.SetTrustedProxies(nil)
	}
	return r
}

// SetupRouter 初始化路由
func SetupRouter(cfg *config.Config, c *provider.Container) *gin.Engine {
	log := logger.L
	if log == nil {
		log = logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	}
	r := NewEngine(cfg.Server)

	publicHandler := publichandlers.New(c)
	adminHandler := adminhandlers.New(c)
	adminLoginRule := RateLimitRule{
		Prefix:        "admin_login",
		WindowSeconds: cfg.Security.LoginRateLimit.WindowSeconds,
		MaxRequests:   cfg.Security.LoginRateLimit.MaxAttempts,
		MessageKey:    "error.login_too_many",
	}

	// 中间件
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(LoggerMiddleware(log))
	r.Use(CORSMiddleware(cfg.CORS))

	if cfg.Metrics.Enabled {
		metrics := NewHTTPMetrics(nil, nil)
		r.Use(metrics.Middleware())
		metricsPath := strings.TrimSpace(cfg.Metrics.Path)
		if metricsPath == "" {
			metricsPath = "/metrics"
		}
		r.GET(metricsPath, metrics.Handler())
	}

	apiV1 := r.Group("/api/v1")
	{
		// 验证码与访问令牌
		apiV1.GET("/config", publicHandler.GetConfig)
		apiV1.GET("/captcha/image", publicHandler.GetImageCaptcha)
		apiV1.POST("/generate-code", publicHandler.GenerateCode)
		apiV1.POST("/validate-code", publicHandler.ValidateCode)
		apiV1.POST("/validate-token", publicHandler.ValidateToken)

		// 受保护内容
		apiV1.GET("/content/:uuid", publicHandler.GetProtectedContent)
		apiV1.POST("/track-page-view", publicHandler.TrackPageView)

		// 邮件追踪
		apiV1.GET("/track/open", publicHandler.TrackOpen)
		apiV1.GET("/track/click", publicHandler.TrackClick)

		admin := apiV1.Group("/admin")
		{
			admin.POST("/login", RateLimitMiddleware(c.Store, adminLoginRule, KeyByIPAndJSONField("username")), adminHandler.AdminLogin)

			authorized := admin.Use(JWTAuthMiddleware(c.AuthService, cfg.JWT.SecretKey), AdminRBACMiddleware(c.AuthzService))
			{
				authorized.GET("/profile", adminHandler.GetAdminProfile)
				authorized.PUT("/password", adminHandler.UpdateAdminPassword)

				// 受保护内容管理
				authorized.GET("/content", adminHandler.GetAdminContentList)
				authorized.POST("/content", adminHandler.CreateContent)
				authorized.GET("/content/:id", adminHandler.GetAdminContent)
				authorized.PUT("/content/:id", adminHandler.UpdateContent)
				authorized.DELETE("/content/:id", adminHandler.DeleteContent)

				// 邮件活动
				authorized.GET("/campaigns", adminHandler.GetAdminCampaigns)
				authorized.POST("/campaigns", adminHandler.CreateCampaign)
				authorized.GET("/campaigns/analytics", adminHandler.GetCampaignsAnalytics)
				authorized.GET("/campaigns/:id", adminHandler.GetAdminCampaign)
				authorized.PUT("/campaigns/:id", adminHandler.UpdateCampaign)
				authorized.DELETE("/campaigns/:id", adminHandler.DeleteCampaign)
				authorized.POST("/campaigns/:id/send", adminHandler.SendCampaign)
				authorized.GET("/campaigns/:id/emails", adminHandler.GetCampaignEmails)
				authorized.GET("/campaigns/:id/stats", adminHandler.GetCampaignStats)
				authorized.GET("/campaigns/:id/analytics", adminHandler.GetCampaignAnalytics)

				// 发信凭据
				authorized.GET("/credentials", adminHandler.GetCredentials)
				authorized.POST("/credentials", adminHandler.CreateCredential)
				authorized.PUT("/credentials/:id", adminHandler.UpdateCredential)
				authorized.DELETE("/credentials/:id", adminHandler.DeleteCredential)
				authorized.POST("/credentials/:id/test", adminHandler.TestCredential)

				// 发件别名
				authorized.GET("/aliases", adminHandler.GetAliases)
				authorized.POST("/aliases", adminHandler.CreateAlias)
				authorized.DELETE("/aliases/:id", adminHandler.DeleteAlias)
				authorized.POST("/aliases/:id/send-verification", adminHandler.SendAliasVerification)
				authorized.POST("/aliases/:id/verify", adminHandler.VerifyAlias)

				// 邮件模板
				authorized.GET("/templates", adminHandler.GetTemplates)
				authorized.POST("/templates", adminHandler.CreateTemplate)
				authorized.DELETE("/templates/:id", adminHandler.DeleteTemplate)

				// 系统发信
				authorized.POST("/email/test", adminHandler.SendTestEmail)
				authorized.GET("/email/smtp-presets", adminHandler.GetSMTPPresets)

				// 访问统计
				authorized.GET("/analytics/overview", adminHandler.GetAnalyticsOverview)
				authorized.GET("/analytics/sessions", adminHandler.GetAnalyticsSessions)
				authorized.GET("/analytics/views", adminHandler.GetAnalyticsViews)
				authorized.GET("/analytics/recent", adminHandler.GetAnalyticsRecent)

				// 权限管理
				authorized.GET("/authz/me", adminHandler.GetAuthzMe)
				authorized.GET("/authz/roles", adminHandler.ListAuthzRoles)
				authorized.POST("/authz/roles", adminHandler.CreateAuthzRole)
				authorized.DELETE("/authz/roles/:role", adminHandler.DeleteAuthzRole)
				authorized.GET("/authz/roles/:role/policies", adminHandler.GetAuthzRolePolicies)
				authorized.POST("/authz/policies", adminHandler.GrantAuthzPolicy)
				authorized.DELETE("/authz/policies", adminHandler.RevokeAuthzPolicy)
				authorized.GET("/authz/admins", adminHandler.ListAuthzAdmins)
				authorized.GET("/authz/admins/:id/roles", adminHandler.GetAuthzAdminRoles)
				authorized.PUT("/authz/admins/:id/roles", adminHandler.SetAuthzAdminRoles)
				authorized.GET("/authz/permissions/catalog", func(ctx *gin.Context) {
					response.Success(ctx, buildAdminPermissionCatalog(r))
				})
			}
		}
	}

	r.GET("/health", publicHandler.Health)

	return r
}

type adminPermissionCatalogItem struct {
	Module     string `json:"module"`
	Method     string `json:"method"`
	Object     string `json:"object"`
	Permission string `json:"permission"`
}

func buildAdminPermissionCatalog(engine *gin.Engine) []adminPermissionCatalogItem {
	if engine == nil {
		return []adminPermissionCatalogItem{}
	}

	routes := engine.Routes()
	seen := make(map[string]struct{}, len(routes))
	items := make([]adminPermissionCatalogItem, 0, len(routes))

	for _, item := range routes {
		method := strings.ToUpper(strings.TrimSpace(item.Method))
		if method == "" || method == "OPTIONS" || method == "HEAD" {
			continue
		}
		if !strings.HasPrefix(item.Path, "/api/v1/admin/") {
			continue
		}
		if item.Path == "/api/v1/admin/login" {
			continue
		}
		object := authz.NormalizeObject(item.Path)
		permission := method + ":" + object
		if _, exists := seen[permission]; exists {
			continue
		}
		seen[permission] = struct{}{}
		items = append(items, adminPermissionCatalogItem{
			Module:     deriveAdminPermissionModule(object),
			Method:     method,
			Object:     object,
			Permission: permission,
		})
	}

	sort.Slice(items, func(i, j int) bool {
		if items[i].Module == items[j].Module {
			if items[i].Object == items[j].Object {
				return items[i].Method < items[j].Method
			}
			return items[i].Object < items[j].Object
		}
		return items[i].Module < items[j].Module
	})

	return items
}

func deriveAdminPermissionModule(object string) string {
	normalized := strings.TrimPrefix(strings.TrimSpace(object), "/")
	if normalized == "" {
		return "system"
	}
	segments := strings.Split(normalized, "/")
	if len(segments) <= 1 {
		return segments[0]
	}
	if segments[0] != "admin" {
		return segments[0]
	}
	if segments[1] == "authz" {
		return "authz"
	}
	return segments[1]
}
