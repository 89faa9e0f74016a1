package db

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlserver"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"customer-profile-sync/internal/config"
	"customer-profile-sync/internal/logger"
)

// DBPool 数据库连接池：目标库用于写入，源库（含只读副本）用于读取
type DBPool struct {
	target      *gorm.DB   // 目标画像库连接
	source      *gorm.DB   // 源订单库主连接
	replicas    []*gorm.DB // 源库只读副本
	replicaSize int32      // 副本数量
	current     int32      // 当前副本索引，用于轮询
	names       []string   // 连接描述，顺序与Ping结果一致
}

// NewDBPool 按配置创建连接池
// 源库和目标库必须可连接；副本连接失败只记录日志并跳过
func NewDBPool(cfg *config.Config, log logrus.FieldLogger) (*DBPool, error) {
	gl := logger.Gorm(log, cfg.Log.SQLLog)

	target, err := Open(cfg.Target, gl)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to target DB: %w", err)
	}

	source, err := Open(cfg.Source.DBInfo, gl)
	if err != nil {
		closeDB(target)
		return nil, fmt.Errorf("failed to connect to source DB: %w", err)
	}

	pool := &DBPool{
		target: target,
		source: source,
		names:  []string{"target " + cfg.Target.Describe(), "source " + cfg.Source.Describe()},
	}

	for i, info := range cfg.Source.Replicas {
		replica, err := Open(info, gl)
		if err != nil {
			log.WithError(err).Warnf("failed to connect to source replica #%d, skipping", i)
			continue
		}
		pool.replicas = append(pool.replicas, replica)
		pool.names = append(pool.names, fmt.Sprintf("replica#%d %s", i, info.Describe()))
	}
	pool.replicaSize = int32(len(pool.replicas))

	if pool.replicaSize == 0 && len(cfg.Source.Replicas) > 0 {
		log.Warn("no source replicas available, reading from source primary")
	}

	return pool, nil
}

// NewDBPoolFrom 用已有连接组装连接池，源库和目标库可以是同一个连接
func NewDBPoolFrom(target, source *gorm.DB, replicas ...*gorm.DB) *DBPool {
	pool := &DBPool{
		target:      target,
		source:      source,
		replicas:    replicas,
		replicaSize: int32(len(replicas)),
		names:       []string{"target", "source"},
	}
	for i := range replicas {
		pool.names = append(pool.names, fmt.Sprintf("replica#%d", i))
	}
	return pool
}

// Open 连接到单个数据库并配置连接池
func Open(info config.DBInfo, gl gormlogger.Interface) (*gorm.DB, error) {
	dialector, err := dialectorFor(info)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gl,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", info.Describe(), err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database connection: %w", err)
	}

	if info.Driver == config.DriverSQLite {
		// sqlite 只允许单个写连接
		sqlDB.SetMaxOpenConns(1)
	} else {
		if info.MaxIdleConns > 0 {
			sqlDB.SetMaxIdleConns(info.MaxIdleConns)
		}
		if info.MaxOpenConns > 0 {
			sqlDB.SetMaxOpenConns(info.MaxOpenConns)
		}
	}
	if info.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(info.ConnMaxLifetime)
	}

	return db, nil
}

// dialectorFor 根据驱动选择gorm方言
func dialectorFor(info config.DBInfo) (gorm.Dialector, error) {
	dsn, err := info.GetDSN()
	if err != nil {
		return nil, err
	}

	switch info.Driver {
	case config.DriverMySQL:
		return mysql.Open(dsn), nil
	case config.DriverPostgres:
		return postgres.Open(dsn), nil
	case config.DriverSQLServer:
		return sqlserver.Open(dsn), nil
	case config.DriverSQLite:
		return sqlite.Open(dsn), nil
	default:
		return nil, fmt.Errorf("unsupported driver: %q", info.Driver)
	}
}

// Target 获取目标库连接
func (p *DBPool) Target() *gorm.DB {
	return p.target
}

// Source 获取用于读取订单的连接（副本轮询，没有副本时使用源库主连接）
func (p *DBPool) Source() *gorm.DB {
	if p.replicaSize == 0 {
		return p.source
	}

	current := atomic.AddInt32(&p.current, 1) % p.replicaSize
	return p.replicas[current]
}

// HealthResult 单个连接的健康检查结果
type HealthResult struct {
	Name    string
	Latency time.Duration
	Err     error
}

// Ping 对所有连接执行健康检查，每个连接单独超时
func (p *DBPool) Ping(ctx context.Context, timeout time.Duration) []HealthResult {
	conns := append([]*gorm.DB{p.target, p.source}, p.replicas...)
	results := make([]HealthResult, 0, len(conns))

	for i, conn := range conns {
		start := time.Now()
		err := CheckHealth(ctx, conn, timeout)
		results = append(results, HealthResult{
			Name:    p.names[i],
			Latency: time.Since(start),
			Err:     err,
		})
	}
	return results
}

// CheckHealth 执行 SELECT 1 检查连接是否可用
func CheckHealth(ctx context.Context, conn *gorm.DB, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	result := &struct{ Value int }{}
	if err := conn.WithContext(ctx).Raw("SELECT 1 AS value").Scan(result).Error; err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	if result.Value != 1 {
		return errors.New("health check failed: unexpected result")
	}
	return nil
}

// Close 关闭所有数据库连接，同一连接只关闭一次
func (p *DBPool) Close() error {
	seen := make(map[*gorm.DB]bool)
	var lastErr error
	for _, conn := range append([]*gorm.DB{p.target, p.source}, p.replicas...) {
		if conn == nil || seen[conn] {
			continue
		}
		seen[conn] = true
		if err := closeDB(conn); err != nil {
			lastErr = err
		}
	}
	return lastErr
}

func closeDB(conn *gorm.DB) error {
	sqlDB, err := conn.DB()
	if err != nil {
		return fmt.Errorf("failed to get SQL DB instance: %w", err)
	}
	return sqlDB.Close()
}
