package constants

// 活动状态常量
const (
	CampaignStatusDraft         = "draft"
	CampaignStatusScheduled     = "scheduled"
	CampaignStatusSending       = "sending"
	CampaignStatusSent          = "sent"
	CampaignStatusPartiallySent = "partially_sent"
	CampaignStatusFailed        = "failed"
)

// 单封活动邮件状态常量
const (
	CampaignEmailStatusPending   = "pending"
	CampaignEmailStatusSent      = "sent"
	CampaignEmailStatusFailed    = "failed"
	CampaignEmailStatusDelivered = "delivered"
	CampaignEmailStatusBounced   = "bounced"
)

// 邮件追踪事件类型
const (
	TrackingEventOpen  = "open"
	TrackingEventClick = "click"
)

// 访问会话状态（后台列表派生）
const (
	SessionStatusPending  = "pending"
	SessionStatusVerified = "verified"
	SessionStatusExpired  = "expired"
)

// 邮件模板分类
const (
	TemplateCategoryGeneral    = "general"
	TemplateCategoryNewsletter = "newsletter"
	TemplateCategoryPromotion  = "promotion"
)

// 验证码场景
const (
	CaptchaProviderNone          = "none"
	CaptchaProviderImage         = "image"
	CaptchaSceneGenerateCode     = "generate_code"
	CaptchaSceneAdminLogin       = "admin_login"
	CaptchaImageCharset          = "0123456789"
	CaptchaImageDefaultMaxStore  = 10240
	CaptchaImageDefaultExpireSec = 300
)

// 队列与任务常量
const (
	QueueDefault     = "default"
	QueueCritical    = "critical"
	TaskCampaignSend = "campaign:send"
)

// 分析时间范围
const (
	AnalyticsRange7Days   = "7d"
	AnalyticsRange30Days  = "30d"
	AnalyticsRange90Days  = "90d"
	AnalyticsRangeOneYear = "1y"
)
