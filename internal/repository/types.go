package repository

import "time"

// ContentListFilter 受保护内容列表过滤条件
type ContentListFilter struct {
	Page     int
	PageSize int
	Search   string
	IsActive *bool
}

// SessionListFilter 验证会话列表过滤条件
type SessionListFilter struct {
	Page        int
	PageSize    int
	Email       string
	CreatedFrom *time.Time
}

// CampaignListFilter 活动列表过滤条件
type CampaignListFilter struct {
	Status string
	Limit  int
	Offset int
}

// CampaignEmailListFilter 活动投递记录过滤条件
type CampaignEmailListFilter struct {
	CampaignID uint
	Status     string
	Limit      int
	Offset     int
}

// ContentRankingRow 内容访问排行
type ContentRankingRow struct {
	ContentUUID string
	Title       string
	Views       int64
}

// DailyEventRow 按天聚合的追踪事件
type DailyEventRow struct {
	Day       string
	EventType string
	Total     int64
}
