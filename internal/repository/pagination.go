package repository

import "gorm.io/gorm"

// 后台列表单页上限
const maxPageSize = 200

// applyPagination page 从 1 开始；pageSize<=0 时不分页，超过上限时截断
func applyPagination(query *gorm.DB, page, pageSize int) *gorm.DB {
	if query == nil || pageSize <= 0 {
		return query
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	if page < 1 {
		page = 1
	}
	return query.Limit(pageSize).Offset((page - 1) * pageSize)
}

// applyLimitOffset 活动投递记录等按 limit/offset 翻页的列表
func applyLimitOffset(query *gorm.DB, limit, offset int) *gorm.DB {
	if query == nil {
		return query
	}
	if limit > 0 {
		if limit > maxPageSize {
			limit = maxPageSize
		}
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}
	return query
}
