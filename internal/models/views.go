package models

import "time"

// ContentView 受保护内容访问记录
type ContentView struct {
	ID                uint      `gorm:"primarykey" json:"id"`
	ContentUUID       string    `gorm:"type:varchar(64);index;not null" json:"content_uuid"`
	UserSessionID     *uint     `gorm:"index" json:"user_session_id"`
	IPAddress         string    `gorm:"type:varchar(64);index;not null;default:''" json:"ip_address"`
	Email             string    `gorm:"type:varchar(255);not null;default:''" json:"email"`
	UserAgent         string    `gorm:"type:varchar(512);not null;default:''" json:"user_agent"`
	AccessTokenPrefix string    `gorm:"type:varchar(16);not null;default:''" json:"access_token_prefix"`
	ViewedAt          time.Time `gorm:"index" json:"viewed_at"`
}

// TableName 指定表名
func (ContentView) TableName() string {
	return "content_views"
}

// PageView 受保护页面访问记录
type PageView struct {
	ID            uint      `gorm:"primarykey" json:"id"`
	UserSessionID *uint     `gorm:"index" json:"user_session_id"`
	IPAddress     string    `gorm:"type:varchar(64);index;not null;default:''" json:"ip_address"`
	Email         string    `gorm:"type:varchar(255);not null;default:''" json:"email"`
	UserAgent     string    `gorm:"type:varchar(512);not null;default:''" json:"user_agent"`
	ViewedAt      time.Time `gorm:"index" json:"viewed_at"`
}

// TableName 指定表名
func (PageView) TableName() string {
	return "page_views"
}
