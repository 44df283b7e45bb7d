package models

import "time"

// SenderAlias 发件人别名
type SenderAlias struct {
	ID                    uint       `gorm:"primarykey" json:"id"`
	RealEmail             string     `gorm:"type:varchar(255);not null" json:"real_email"`
	AliasEmail            string     `gorm:"type:varchar(255);uniqueIndex;not null" json:"alias_email"`
	AliasName             string     `gorm:"type:varchar(120);not null;default:''" json:"alias_name"`
	IsVerified            bool       `gorm:"not null;default:false" json:"is_verified"`
	VerificationToken     string     `gorm:"type:varchar(128);index;not null;default:''" json:"-"`
	VerificationExpiresAt *time.Time `json:"-"`
	IsActive              bool       `gorm:"not null;default:true;index" json:"is_active"`
	CreatedAt             time.Time  `gorm:"index" json:"created_at"`
}

// TableName 指定表名
func (SenderAlias) TableName() string {
	return "sender_aliases"
}
