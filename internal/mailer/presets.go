package mailer

import (
	"sort"
	"strings"
)

// SMTPPreset 常见邮箱服务的 SMTP 参数
type SMTPPreset struct {
	Name   string `json:"name"`
	Host   string `json:"host"`
	Port   int    `json:"port"`
	Secure bool   `json:"secure"` // true 表示 465 直连 TLS
}

var smtpPresets = map[string]SMTPPreset{
	"gmail":   {Name: "gmail", Host: "smtp.gmail.com", Port: 587},
	"zoho":    {Name: "zoho", Host: "smtp.zoho.com", Port: 587},
	"outlook": {Name: "outlook", Host: "smtp-mail.outlook.com", Port: 587},
	"yahoo":   {Name: "yahoo", Host: "smtp.mail.yahoo.com", Port: 587},
}

// LookupSMTPPreset 查找预设；custom 或未知名称返回 false
func LookupSMTPPreset(name string) (SMTPPreset, bool) {
	preset, ok := smtpPresets[strings.ToLower(strings.TrimSpace(name))]
	return preset, ok
}

// SMTPPresets 返回全部预设（按名称排序），custom 使用传入的自定义参数
func SMTPPresets(custom SMTPPreset) []SMTPPreset {
	names := make([]string, 0, len(smtpPresets))
	for name := range smtpPresets {
		names = append(names, name)
	}
	sort.Strings(names)
	out := make([]SMTPPreset, 0, len(names)+1)
	for _, name := range names {
		out = append(out, smtpPresets[name])
	}
	custom.Name = "custom"
	return append(out, custom)
}
