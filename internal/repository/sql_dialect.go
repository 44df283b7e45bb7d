package repository

import (
	"strings"

	"gorm.io/gorm"
)

// sqlDialect 只区分 postgres 与 sqlite 两种写法
type sqlDialect string

const (
	dialectSQLite   sqlDialect = "sqlite"
	dialectPostgres sqlDialect = "postgres"
)

// dialectOf 未知或缺失时按 sqlite 处理
func dialectOf(db *gorm.DB) sqlDialect {
	if db == nil || db.Dialector == nil {
		return dialectSQLite
	}
	switch strings.ToLower(db.Dialector.Name()) {
	case "postgres", "postgresql":
		return dialectPostgres
	default:
		return dialectSQLite
	}
}

// like 大小写不敏感的匹配运算符；sqlite 的 LIKE 对 ASCII 本身不区分大小写
func (d sqlDialect) like() string {
	if d == dialectPostgres {
		return "ILIKE"
	}
	return "LIKE"
}

// day 把时间列格式化为 YYYY-MM-DD
func (d sqlDialect) day(column string) string {
	if d == dialectPostgres {
		return "to_char(" + column + ", 'YYYY-MM-DD')"
	}
	return "strftime('%Y-%m-%d', " + column + ")"
}
