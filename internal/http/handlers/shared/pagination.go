package shared

import (
	"strconv"

	"github.com/gatemail/internal/http/response"

	"github.com/gin-gonic/gin"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// PageQuery page / page_size 查询参数，非法值回落到默认值
type PageQuery struct {
	Page     int
	PageSize int
}

// ReadPage 读取并归一化分页参数
func ReadPage(c *gin.Context) PageQuery {
	page, err := strconv.Atoi(c.Query("page"))
	if err != nil || page < 1 {
		page = 1
	}
	size, err := strconv.Atoi(c.Query("page_size"))
	switch {
	case err != nil || size <= 0:
		size = defaultPageSize
	case size > maxPageSize:
		size = maxPageSize
	}
	return PageQuery{Page: page, PageSize: size}
}

// Respond 输出分页响应
func (q PageQuery) Respond(c *gin.Context, items interface{}, total int64) {
	pages := int64(0)
	if q.PageSize > 0 {
		pages = (total + int64(q.PageSize) - 1) / int64(q.PageSize)
	}
	response.SuccessWithPage(c, items, response.Pagination{
		Page:      q.Page,
		PageSize:  q.PageSize,
		Total:     total,
		TotalPage: pages,
	})
}
