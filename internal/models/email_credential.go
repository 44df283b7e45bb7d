package models

import "time"

// EmailCredential 发信服务凭据
// EncryptedSecret 保存 SMTP 密码或 API Key 的密文，任何接口都不返回
type EmailCredential struct {
	ID              uint      `gorm:"primarykey" json:"id"`
	AliasID         *uint     `gorm:"index" json:"alias_id"`
	CredentialName  string    `gorm:"type:varchar(120);not null" json:"credential_name"`
	ProviderType    string    `gorm:"type:varchar(32);index;not null" json:"provider_type"`
	SMTPHost        string    `gorm:"column:smtp_host;type:varchar(255);not null;default:''" json:"smtp_host"`
	SMTPPort        int       `gorm:"column:smtp_port;not null;default:0" json:"smtp_port"`
	SMTPUsername    string    `gorm:"column:smtp_username;type:varchar(255);not null;default:''" json:"smtp_username"`
	SMTPUseTLS      bool      `gorm:"column:smtp_use_tls;not null;default:true" json:"smtp_use_tls"`
	APIEndpoint     string    `gorm:"type:varchar(255);not null;default:''" json:"api_endpoint"`
	EncryptedSecret string    `gorm:"type:text;not null;default:''" json:"-"`
	IsActive        bool      `gorm:"not null;default:true;index" json:"is_active"`
	IsDefault       bool      `gorm:"not null;default:false;index" json:"is_default"`
	CreatedAt       time.Time `gorm:"index" json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// TableName 指定表名
func (EmailCredential) TableName() string {
	return "email_credentials"
}
