package models

import "time"

// UserSession 访客验证会话
type UserSession struct {
	ID                     uint       `gorm:"primarykey" json:"id"`
	SessionID              string     `gorm:"type:varchar(64);uniqueIndex;not null" json:"session_id"`
	Email                  string     `gorm:"type:varchar(255);index;not null" json:"email"`
	PhoneNumber            string     `gorm:"type:varchar(32);not null;default:''" json:"phone_number"`
	IPAddress              string     `gorm:"type:varchar(64);index;not null;default:''" json:"ip_address"`
	UserAgent              string     `gorm:"type:varchar(512);not null;default:''" json:"user_agent"`
	TargetContentUUID      string     `gorm:"type:varchar(64);index;not null;default:''" json:"target_content_uuid"`
	VerificationCodeSentAt time.Time  `gorm:"index" json:"verification_code_sent_at"`
	CodeVerifiedAt         *time.Time `gorm:"index" json:"code_verified_at"`
	ProtectedPageViewedAt  *time.Time `json:"protected_page_viewed_at"`
	CreatedAt              time.Time  `gorm:"index" json:"created_at"`
	UpdatedAt              time.Time  `json:"updated_at"`
}

// TableName 指定表名
func (UserSession) TableName() string {
	return "user_sessions"
}
