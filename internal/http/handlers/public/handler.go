package public

import "github.com/gatemail/internal/provider"

// Handler 公开接口处理器入口
// 说明：验证码、受保护内容与邮件追踪接口，无需管理员身份。
type Handler struct {
	*provider.Container
}

// New 创建公开接口处理器
func New(c *provider.Container) *Handler {
	return &Handler{Container: c}
}
