package models

import "time"

// ProtectedContent 受保护内容
type ProtectedContent struct {
	ID          uint       `gorm:"primarykey" json:"id"`
	UUID        string     `gorm:"column:uuid;type:varchar(64);uniqueIndex;not null" json:"uuid"`
	Title       string     `gorm:"type:varchar(255);not null" json:"title"`
	ContentHTML string     `gorm:"type:text;not null" json:"content_html"`
	ExpiresAt   *time.Time `gorm:"index" json:"expires_at"` // 为空表示永不过期
	IsActive    bool       `gorm:"not null;default:true;index" json:"is_active"`
	ViewCount   int64      `gorm:"not null;default:0" json:"view_count"`
	Metadata    JSON       `gorm:"type:json" json:"metadata"`
	CreatedAt   time.Time  `gorm:"index" json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// TableName 指定表名
func (ProtectedContent) TableName() string {
	return "protected_content"
}

// IsViewable 判断内容当前是否可访问
func (p *ProtectedContent) IsViewable(now time.Time) bool {
	if p == nil || !p.IsActive {
		return false
	}
	return p.ExpiresAt == nil || p.ExpiresAt.After(now)
}
