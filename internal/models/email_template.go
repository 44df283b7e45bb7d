package models

import "time"

// EmailTemplate 邮件模板
type EmailTemplate struct {
	ID          uint      `gorm:"primarykey" json:"id"`
	Name        string    `gorm:"type:varchar(120);not null" json:"name"`
	Description string    `gorm:"type:varchar(500);not null;default:''" json:"description"`
	HTMLContent string    `gorm:"column:html_content;type:text;not null" json:"html_content"`
	Category    string    `gorm:"type:varchar(32);index;not null" json:"category"`
	CreatedAt   time.Time `gorm:"index" json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TableName 指定表名
func (EmailTemplate) TableName() string {
	return "email_templates"
}
