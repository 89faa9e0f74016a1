// Package testutil 提供测试用的内存数据库
package testutil

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"customer-profile-sync/internal/config"
	"customer-profile-sync/internal/db"
	"customer-profile-sync/internal/logger"
)

// SQLite 打开一个独立的内存sqlite库，测试结束时关闭
func SQLite(t testing.TB) *gorm.DB {
	t.Helper()

	info := config.DBInfo{
		Driver: config.DriverSQLite,
		DBName: "file:" + uuid.NewString() + "?mode=memory&cache=shared",
	}
	conn, err := db.Open(info, logger.Gorm(logger.Discard(), false))
	require.NoError(t, err)

	t.Cleanup(func() {
		if sqlDB, err := conn.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return conn
}
