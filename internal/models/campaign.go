package models

import "time"

// Campaign 邮件营销活动
type Campaign struct {
	ID              uint        `gorm:"primarykey" json:"id"`
	Title           string      `gorm:"type:varchar(255);not null" json:"title"`
	Subject         string      `gorm:"type:varchar(255);not null" json:"subject"`
	HTMLBody        string      `gorm:"column:html_body;type:text;not null" json:"html_body"`
	Recipients      StringArray `gorm:"type:json" json:"recipients"`
	FromAliasID     *uint       `gorm:"index" json:"from_alias_id"`
	Status          string      `gorm:"type:varchar(32);index;not null" json:"status"`
	ScheduledAt     *time.Time  `gorm:"index" json:"scheduled_at"`
	SentAt          *time.Time  `json:"sent_at"`
	TotalRecipients int         `gorm:"not null;default:0" json:"total_recipients"`
	TotalSent       int         `gorm:"not null;default:0" json:"total_sent"`
	TotalFailed     int         `gorm:"not null;default:0" json:"total_failed"`
	TotalOpened     int         `gorm:"not null;default:0" json:"total_opened"`
	TotalClicked    int         `gorm:"not null;default:0" json:"total_clicked"`
	TotalBounced    int         `gorm:"not null;default:0" json:"total_bounced"`
	CreatedBy       uint        `gorm:"index;not null;default:0" json:"created_by"`
	ErrorMessage    string      `gorm:"type:text" json:"error_message,omitempty"`
	CreatedAt       time.Time   `gorm:"index" json:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at"`
}

// TableName 指定表名
func (Campaign) TableName() string {
	return "campaigns"
}

// CampaignEmail 活动单个收件人的投递记录
type CampaignEmail struct {
	ID             uint       `gorm:"primarykey" json:"id"`
	CampaignID     uint       `gorm:"uniqueIndex:idx_campaign_recipient;not null" json:"campaign_id"`
	RecipientEmail string     `gorm:"type:varchar(255);uniqueIndex:idx_campaign_recipient;not null" json:"recipient_email"`
	TrackingID     string     `gorm:"type:varchar(64);uniqueIndex;not null" json:"tracking_id"`
	Status         string     `gorm:"type:varchar(32);index;not null" json:"status"`
	MessageID      string     `gorm:"type:varchar(255);not null;default:''" json:"message_id"`
	ErrorMessage   string     `gorm:"type:text" json:"error_message,omitempty"`
	SentAt         *time.Time `json:"sent_at"`
	OpenedAt       *time.Time `gorm:"index" json:"opened_at"`
	OpenCount      int        `gorm:"not null;default:0" json:"open_count"`
	ClickedAt      *time.Time `gorm:"index" json:"clicked_at"`
	ClickCount     int        `gorm:"not null;default:0" json:"click_count"`
	CreatedAt      time.Time  `gorm:"index" json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// TableName 指定表名
func (CampaignEmail) TableName() string {
	return "campaign_emails"
}

// EmailTrackingEvent 打开/点击事件
type EmailTrackingEvent struct {
	ID              uint      `gorm:"primarykey" json:"id"`
	CampaignEmailID uint      `gorm:"index;not null" json:"campaign_email_id"`
	CampaignID      uint      `gorm:"index;not null" json:"campaign_id"`
	EventType       string    `gorm:"type:varchar(16);index;not null" json:"event_type"`
	URL             string    `gorm:"type:text" json:"url,omitempty"`
	IPAddress       string    `gorm:"type:varchar(64);not null;default:''" json:"ip_address"`
	UserAgent       string    `gorm:"type:varchar(512);not null;default:''" json:"user_agent"`
	CreatedAt       time.Time `gorm:"index" json:"created_at"`
}

// TableName 指定表名
func (EmailTrackingEvent) TableName() string {
	return "email_tracking_events"
}
