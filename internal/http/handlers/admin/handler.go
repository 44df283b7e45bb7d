package admin

import "github.com/gatemail/internal/provider"

// Handler 后台接口，鉴权与 RBAC 由路由中间件完成
type Handler struct {
	*provider.Container
}

func New(c *provider.Container) *Handler {
	return &Handler{Container: c}
}
