package database

import (
	"context"
	"testing"

	"github.com/eliasthecreate/Inter-Ministry-Exchange--sub000/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestBuildDSN 测试 DSN 构建
func TestBuildDSN(t *testing.T) {
	dsn := BuildDSN(config.DatabaseConfig{
		Host:     "db.internal",
		Port:     5433,
		User:     "exchange",
		Password: "secret",
		DBName:   "exchange",
		SSLMode:  "require",
	})
	assert.Equal(t, "host=db.internal port=5433 user=exchange password=secret dbname=exchange sslmode=require", dsn)
}

// TestResolvePoolConfig 测试连接池参数合并
func TestResolvePoolConfig(t *testing.T) {
	pool := ResolvePoolConfig(config.DatabaseConfig{MaxOpenConns: 50})
	assert.Equal(t, 50, pool.MaxOpenConns)
	assert.Equal(t, 10, pool.MaxIdleConns)
	assert.Equal(t, 3600, pool.ConnMaxLifetime)
	assert.Equal(t, 600, pool.ConnMaxIdleTime)
}

// TestMigrate_SQLite 测试 SQLite 迁移创建全部表
func TestMigrate_SQLite(t *testing.T) {
	db, err := OpenSQLite(":memory:")
	require.NoError(t, err)

	require.NoError(t, Migrate(db))

	for _, table := range []string{"ministries", "users", "data_requests", "audit_logs"} {
		assert.True(t, db.Migrator().HasTable(table), "table %s should exist", table)
	}

	// 重复执行迁移应当幂等
	assert.NoError(t, Migrate(db))
}

// TestCheckHealth 测试健康检查
func TestCheckHealth(t *testing.T) {
	assert.Error(t, CheckHealth(context.Background(), nil))

	db, err := Connect(config.DatabaseConfig{Driver: "sqlite", Path: ":memory:"})
	require.NoError(t, err)
	assert.NoError(t, CheckHealth(context.Background(), db))
}
