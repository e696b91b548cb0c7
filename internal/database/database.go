package database

import (
	"context"
	"fmt"
	"time"

	"github.com/eliasthecreate/Inter-Ministry-Exchange--sub000/internal/config"
	"github.com/eliasthecreate/Inter-Ministry-Exchange--sub000/internal/model"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// PoolConfig 连接池配置
type PoolConfig struct {
	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime int // 秒
	ConnMaxIdleTime int // 秒
}

// BuildDSN 构建 PostgreSQL DSN
func BuildDSN(cfg config.DatabaseConfig) string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode)
}

// GetPoolConfig 获取连接池配置
func GetPoolConfig() *PoolConfig {
	return &PoolConfig{
		MaxIdleConns:    10,
		MaxOpenConns:    100,
		ConnMaxLifetime: 3600, // 1 小时
		ConnMaxIdleTime: 600,  // 10 分钟
	}
}

// ResolvePoolConfig 合并配置中的连接池参数与默认值
func ResolvePoolConfig(cfg config.DatabaseConfig) *PoolConfig {
	poolConfig := GetPoolConfig()
	if cfg.MaxIdleConns > 0 {
		poolConfig.MaxIdleConns = cfg.MaxIdleConns
	}
	if cfg.MaxOpenConns > 0 {
		poolConfig.MaxOpenConns = cfg.MaxOpenConns
	}
	if cfg.ConnMaxLifetime > 0 {
		poolConfig.ConnMaxLifetime = cfg.ConnMaxLifetime
	}
	if cfg.ConnMaxIdleTime > 0 {
		poolConfig.ConnMaxIdleTime = cfg.ConnMaxIdleTime
	}
	return poolConfig
}

// Connect 连接数据库
func Connect(cfg config.DatabaseConfig) (*gorm.DB, error) {
	if cfg.Driver == "sqlite" {
		return OpenSQLite(cfg.Path)
	}

	db, err := gorm.Open(postgres.Open(BuildDSN(cfg)), &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}

	poolConfig := ResolvePoolConfig(cfg)
	sqlDB.SetMaxIdleConns(poolConfig.MaxIdleConns)
	sqlDB.SetMaxOpenConns(poolConfig.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(time.Duration(poolConfig.ConnMaxLifetime) * time.Second)
	sqlDB.SetConnMaxIdleTime(time.Duration(poolConfig.ConnMaxIdleTime) * time.Second)

	return db, nil
}

// OpenSQLite 打开 SQLite 数据库,用于本地开发和测试
// 连接数固定为 1: 内存库每个连接是独立的数据库,且写事务由此串行化
func OpenSQLite(path string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)

	return db, nil
}

// Migrate 执行数据库迁移
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&model.MinistryModel{},
		&model.UserModel{},
		&model.DataRequestModel{},
		&model.AuditLogModel{},
	); err != nil {
		return fmt.Errorf("failed to auto migrate: %w", err)
	}

	if err := CreateIndexes(db); err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}

	// SQLite 不支持 ALTER TABLE ADD CONSTRAINT,外键只在 PostgreSQL 上创建
	if db.Dialector.Name() == "postgres" {
		if err := CreateForeignKeys(db); err != nil {
			return fmt.Errorf("failed to create foreign keys: %w", err)
		}
	}

	return nil
}

// foreignKey 外键定义
type foreignKey struct {
	name   string
	table  interface{}
	column string
	ref    string
}

// CreateForeignKeys 创建外键约束,删除被引用的部委或用户会被数据库拒绝
func CreateForeignKeys(db *gorm.DB) error {
	keys := []foreignKey{
		{"fk_users_ministry", &model.UserModel{}, "ministry_id", "ministries(id)"},
		{"fk_data_requests_requesting", &model.DataRequestModel{}, "requesting_ministry_id", "ministries(id)"},
		{"fk_data_requests_target", &model.DataRequestModel{}, "target_ministry_id", "ministries(id)"},
		{"fk_data_requests_requested_by", &model.DataRequestModel{}, "requested_by", "users(id)"},
		{"fk_data_requests_approved_by", &model.DataRequestModel{}, "approved_by", "users(id)"},
		{"fk_audit_logs_user", &model.AuditLogModel{}, "user_id", "users(id)"},
	}

	for _, fk := range keys {
		if db.Migrator().HasConstraint(fk.table, fk.name) {
			continue
		}
		stmt := &gorm.Statement{DB: db}
		if err := stmt.Parse(fk.table); err != nil {
			return fmt.Errorf("failed to parse %s: %w", fk.name, err)
		}
		sql := fmt.Sprintf("ALTER TABLE %s ADD CONSTRAINT %s FOREIGN KEY (%s) REFERENCES %s ON DELETE RESTRICT",
			stmt.Schema.Table, fk.name, fk.column, fk.ref)
		if err := db.Exec(sql).Error; err != nil {
			return fmt.Errorf("failed to create %s: %w", fk.name, err)
		}
	}
	return nil
}

// CreateIndexes 创建数据库索引
func CreateIndexes(db *gorm.DB) error {
	indexes := []struct {
		name string
		sql  string
	}{
		{"idx_requests_requesting_date", "CREATE INDEX IF NOT EXISTS idx_requests_requesting_date ON data_requests(requesting_ministry_id, requested_date)"},
		{"idx_requests_target_date", "CREATE INDEX IF NOT EXISTS idx_requests_target_date ON data_requests(target_ministry_id, requested_date)"},
		{"idx_audit_record", "CREATE INDEX IF NOT EXISTS idx_audit_record ON audit_logs(table_affected, record_id)"},
		{"idx_audit_timestamp", "CREATE INDEX IF NOT EXISTS idx_audit_timestamp_id ON audit_logs(timestamp, id)"},
	}

	for _, idx := range indexes {
		if err := db.Exec(idx.sql).Error; err != nil {
			return fmt.Errorf("failed to create %s: %w", idx.name, err)
		}
	}
	return nil
}

// ConnectWithRetry 带重试的数据库连接
func ConnectWithRetry(cfg config.DatabaseConfig, maxRetries int, retryInterval time.Duration) (*gorm.DB, error) {
	var db *gorm.DB
	var err error

	for i := 0; i < maxRetries; i++ {
		db, err = Connect(cfg)
		if err == nil {
			return db, nil
		}

		// 如果不是最后一次重试，等待后重试
		if i < maxRetries-1 {
			time.Sleep(retryInterval)
			retryInterval *= 2 // 指数退避
		}
	}

	return nil, fmt.Errorf("failed to connect database after %d retries: %w", maxRetries, err)
}

// CheckHealth 检查数据库连接健康状态
func CheckHealth(ctx context.Context, db *gorm.DB) error {
	if db == nil {
		return fmt.Errorf("database not configured")
	}

	sqlDB, err := db.DB()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	return sqlDB.PingContext(ctx)
}
