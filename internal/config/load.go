package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix 环境变量前缀，例如 PROFILESYNC_SOURCE_HOST
const EnvPrefix = "PROFILESYNC"

// Load 按优先级合并配置：命令行参数 > 环境变量(.env) > 配置文件 > 默认值
// 命令行参数需由调用方事先绑定到v上
func Load(v *viper.Viper, configFile string) (*Config, error) {
	// .env 文件可选
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	setDefaults(v, GetDefaultConfig())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", configFile, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// setDefaults 把默认配置注册到viper，AutomaticEnv只对已知键生效
func setDefaults(v *viper.Viper, d *Config) {
	setDBDefaults(v, "source", d.Source.DBInfo)
	v.SetDefault("source.table", d.Source.Table)
	setDBDefaults(v, "target", d.Target)

	v.SetDefault("sync.limit", d.Sync.Limit)
	v.SetDefault("sync.dry_run", d.Sync.DryRun)
	v.SetDefault("sync.since", d.Sync.Since)
	v.SetDefault("sync.until", d.Sync.Until)
	v.SetDefault("sync.workers", d.Sync.Workers)
	v.SetDefault("sync.batch_size", d.Sync.BatchSize)
	v.SetDefault("sync.page_size", d.Sync.PageSize)
	v.SetDefault("sync.query_timeout", d.Sync.QueryTimeout)
	v.SetDefault("sync.interval", d.Sync.Interval)
	v.SetDefault("sync.auto_migrate", d.Sync.AutoMigrate)

	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
	v.SetDefault("log.output", d.Log.Output)
	v.SetDefault("log.file_path", d.Log.FilePath)
	v.SetDefault("log.max_size_mb", d.Log.MaxSizeMB)
	v.SetDefault("log.max_backups", d.Log.MaxBackups)
	v.SetDefault("log.max_age_days", d.Log.MaxAgeDays)
	v.SetDefault("log.sql_log", d.Log.SQLLog)

	v.SetDefault("server.port", d.Server.Port)
}

func setDBDefaults(v *viper.Viper, prefix string, db DBInfo) {
	v.SetDefault(prefix+".driver", db.Driver)
	v.SetDefault(prefix+".host", db.Host)
	v.SetDefault(prefix+".port", db.Port)
	v.SetDefault(prefix+".user", db.User)
	v.SetDefault(prefix+".password", db.Password)
	v.SetDefault(prefix+".dbname", db.DBName)
	v.SetDefault(prefix+".dsn", db.DSN)
	v.SetDefault(prefix+".max_idle_conns", db.MaxIdleConns)
	v.SetDefault(prefix+".max_open_conns", db.MaxOpenConns)
	v.SetDefault(prefix+".conn_max_lifetime", db.ConnMaxLifetime)
}
