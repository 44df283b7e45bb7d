package logger

import "strings"

// MaskEmail 日志中的邮箱只保留首字符和域名，如 a***@example.com
func MaskEmail(email string) string {
	local, domain, ok := strings.Cut(strings.TrimSpace(email), "@")
	if !ok || local == "" {
		return "***"
	}
	return local[:1] + "***@" + domain
}
