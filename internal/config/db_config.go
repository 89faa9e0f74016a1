package config

import (
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/sirupsen/logrus"
)

// 支持的数据库驱动
const (
	DriverMySQL     = "mysql"
	DriverPostgres  = "postgres"
	DriverSQLServer = "sqlserver"
	DriverSQLite    = "sqlite"
)

// DateLayout 同步时间窗口使用的日期格式
const DateLayout = "2006-01-02"

// Config 画像同步任务的整体配置，由调用方显式传入各组件
type Config struct {
	Source SourceConfig `mapstructure:"source"` // 源订单库（只读）
	Target DBInfo       `mapstructure:"target"` // 目标画像库
	Sync   SyncConfig   `mapstructure:"sync"`   // 同步参数
	Log    LogConfig    `mapstructure:"log"`    // 日志配置
	Server ServerConfig `mapstructure:"server"` // serve模式的HTTP配置
}

// DBInfo 单个数据库连接信息
type DBInfo struct {
	Driver          string        `mapstructure:"driver"`            // 驱动：mysql/postgres/sqlserver/sqlite
	Host            string        `mapstructure:"host"`              // 主机地址
	Port            int           `mapstructure:"port"`              // 端口号
	User            string        `mapstructure:"user"`              // 用户名
	Password        string        `mapstructure:"password"`          // 密码
	DBName          string        `mapstructure:"dbname"`            // 数据库名（sqlite为文件路径）
	DSN             string        `mapstructure:"dsn"`               // 显式DSN，非空时优先使用
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`    // 最大空闲连接数
	MaxOpenConns    int           `mapstructure:"max_open_conns"`    // 最大打开连接数
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"` // 连接最长存活时间
}

// SourceConfig 源库配置，可附带只读副本
type SourceConfig struct {
	DBInfo   `mapstructure:",squash"`
	Replicas []DBInfo `mapstructure:"replicas"` // 只读副本列表，轮询使用
	Table    string   `mapstructure:"table"`    // 原始订单表名
}

// SyncConfig 同步任务参数
type SyncConfig struct {
	Limit        int           `mapstructure:"limit"`         // 最多处理的客户数，0表示不限制
	DryRun       bool          `mapstructure:"dry_run"`       // 只计算不写入
	Since        string        `mapstructure:"since"`         // 时间窗口起点（含），YYYY-MM-DD
	Until        string        `mapstructure:"until"`         // 时间窗口终点（不含），YYYY-MM-DD
	Workers      int           `mapstructure:"workers"`       // 并发写入数
	BatchSize    int           `mapstructure:"batch_size"`    // 每批写入的画像数
	PageSize     int           `mapstructure:"page_size"`     // 每页读取的订单数
	QueryTimeout time.Duration `mapstructure:"query_timeout"` // 单次数据库调用超时
	Interval     time.Duration `mapstructure:"interval"`      // serve模式的同步间隔
	AutoMigrate  bool          `mapstructure:"auto_migrate"`  // sync前自动迁移目标表
}

// LogConfig 日志配置
type LogConfig struct {
	Level      string `mapstructure:"level"`        // debug/info/warn/error
	Format     string `mapstructure:"format"`       // text 或 json
	Output     string `mapstructure:"output"`       // stdout/file/both
	FilePath   string `mapstructure:"file_path"`    // 日志文件路径
	MaxSizeMB  int    `mapstructure:"max_size_mb"`  // 单个文件最大尺寸
	MaxBackups int    `mapstructure:"max_backups"`  // 保留的旧文件数
	MaxAgeDays int    `mapstructure:"max_age_days"` // 旧文件保留天数
	SQLLog     bool   `mapstructure:"sql_log"`      // 是否输出SQL日志
}

// ServerConfig serve模式的HTTP服务配置
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// GetDefaultConfig 获取默认配置
// 实际部署时通过配置文件、环境变量或命令行参数覆盖
func GetDefaultConfig() *Config {
	return &Config{
		Source: SourceConfig{
			DBInfo: DBInfo{
				Driver:          DriverMySQL,
				Host:            "localhost",
				Port:            3306,
				User:            "root",
				Password:        "",
				DBName:          "hotdog",
				MaxIdleConns:    5,
				MaxOpenConns:    10,
				ConnMaxLifetime: time.Hour,
			},
			Table: "orders",
		},
		Target: DBInfo{
			Driver:          DriverMySQL,
			Host:            "localhost",
			Port:            3306,
			User:            "root",
			Password:        "",
			DBName:          "hotdog_analytics",
			MaxIdleConns:    5,
			MaxOpenConns:    10,
			ConnMaxLifetime: time.Hour,
		},
		Sync: SyncConfig{
			Workers:      4,
			BatchSize:    200,
			PageSize:     5000,
			QueryTimeout: 30 * time.Second,
			Interval:     time.Hour,
			AutoMigrate:  true,
		},
		Log: LogConfig{
			Level:      "info",
			Format:     "text",
			Output:     "stdout",
			FilePath:   "logs/profilesync.log",
			MaxSizeMB:  100,
			MaxBackups: 7,
			MaxAgeDays: 30,
		},
		Server: ServerConfig{
			Port: 8080,
		},
	}
}

// GetDSN 根据驱动类型生成DSN连接字符串
func (db DBInfo) GetDSN() (string, error) {
	if db.DSN != "" {
		return db.DSN, nil
	}

	switch db.Driver {
	case DriverMySQL:
		return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local",
			db.User, db.Password, db.Host, db.Port, db.DBName), nil
	case DriverPostgres:
		return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
			db.Host, db.Port, db.User, db.Password, db.DBName), nil
	case DriverSQLServer:
		u := url.URL{
			Scheme:   "sqlserver",
			User:     url.UserPassword(db.User, db.Password),
			Host:     fmt.Sprintf("%s:%d", db.Host, db.Port),
			RawQuery: url.Values{"database": {db.DBName}}.Encode(),
		}
		return u.String(), nil
	case DriverSQLite:
		if db.DBName == "" {
			return "", errors.New("sqlite requires dbname (file path or :memory:)")
		}
		return db.DBName, nil
	default:
		return "", fmt.Errorf("unsupported driver: %q", db.Driver)
	}
}

// Describe 返回不含密码的连接描述，用于日志
func (db DBInfo) Describe() string {
	if db.Driver == DriverSQLite {
		return fmt.Sprintf("%s:%s", db.Driver, db.DBName)
	}
	if db.DSN != "" {
		return fmt.Sprintf("%s:<dsn>", db.Driver)
	}
	return fmt.Sprintf("%s://%s@%s:%d/%s", db.Driver, db.User, db.Host, db.Port, db.DBName)
}

// Window 解析同步时间窗口，未配置的一端返回nil
func (s SyncConfig) Window() (since, until *time.Time, err error) {
	if s.Since != "" {
		t, err := time.ParseInLocation(DateLayout, s.Since, time.Local)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid since %q: %w", s.Since, err)
		}
		since = &t
	}
	if s.Until != "" {
		t, err := time.ParseInLocation(DateLayout, s.Until, time.Local)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid until %q: %w", s.Until, err)
		}
		until = &t
	}
	if since != nil && until != nil && !since.Before(*until) {
		return nil, nil, fmt.Errorf("since %s must be before until %s", s.Since, s.Until)
	}
	return since, until, nil
}

// Validate 检查配置是否可用
func (c *Config) Validate() error {
	if _, err := c.Source.GetDSN(); err != nil {
		return fmt.Errorf("source: %w", err)
	}
	for i, r := range c.Source.Replicas {
		if _, err := r.GetDSN(); err != nil {
			return fmt.Errorf("source replica #%d: %w", i, err)
		}
	}
	if c.Source.Table == "" {
		return errors.New("source table must not be empty")
	}
	if _, err := c.Target.GetDSN(); err != nil {
		return fmt.Errorf("target: %w", err)
	}
	if c.Sync.Limit < 0 {
		return fmt.Errorf("limit must not be negative, got %d", c.Sync.Limit)
	}
	if c.Sync.Workers <= 0 {
		return fmt.Errorf("workers must be positive, got %d", c.Sync.Workers)
	}
	if c.Sync.BatchSize <= 0 {
		return fmt.Errorf("batch_size must be positive, got %d", c.Sync.BatchSize)
	}
	if c.Sync.PageSize <= 0 {
		return fmt.Errorf("page_size must be positive, got %d", c.Sync.PageSize)
	}
	if c.Sync.QueryTimeout <= 0 {
		return fmt.Errorf("query_timeout must be positive, got %s", c.Sync.QueryTimeout)
	}
	if _, _, err := c.Sync.Window(); err != nil {
		return err
	}
	if _, err := logrus.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log level: %w", err)
	}
	return nil
}
