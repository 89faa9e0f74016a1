package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := GetDefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "orders", cfg.Source.Table)
	assert.Equal(t, 0, cfg.Sync.Limit)
	assert.False(t, cfg.Sync.DryRun)
}

func TestGetDSN(t *testing.T) {
	cases := []struct {
		name string
		info DBInfo
		want string
	}{
		{
			name: "mysql",
			info: DBInfo{Driver: DriverMySQL, Host: "db", Port: 3306, User: "u", Password: "p", DBName: "hotdog"},
			want: "u:p@tcp(db:3306)/hotdog?charset=utf8mb4&parseTime=True&loc=Local",
		},
		{
			name: "postgres",
			info: DBInfo{Driver: DriverPostgres, Host: "db", Port: 5432, User: "u", Password: "p", DBName: "hotdog"},
			want: "host=db port=5432 user=u password=p dbname=hotdog sslmode=disable",
		},
		{
			name: "sqlserver escapes credentials",
			info: DBInfo{Driver: DriverSQLServer, Host: "db", Port: 1433, User: "sa", Password: "p@ss", DBName: "hotdog"},
			want: "sqlserver://sa:p%40ss@db:1433?database=hotdog",
		},
		{
			name: "sqlite",
			info: DBInfo{Driver: DriverSQLite, DBName: ":memory:"},
			want: ":memory:",
		},
		{
			name: "explicit dsn wins",
			info: DBInfo{Driver: DriverMySQL, DSN: "custom"},
			want: "custom",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := tc.info.GetDSN()
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestGetDSNRejectsUnknownDriver(t *testing.T) {
	_, err := DBInfo{Driver: "oracle"}.GetDSN()
	assert.Error(t, err)

	_, err = DBInfo{Driver: DriverSQLite}.GetDSN()
	assert.Error(t, err)
}

func TestDescribeHidesPassword(t *testing.T) {
	info := DBInfo{Driver: DriverMySQL, Host: "db", Port: 3306, User: "u", Password: "secret", DBName: "hotdog"}
	assert.NotContains(t, info.Describe(), "secret")
}

func TestWindow(t *testing.T) {
	since, until, err := SyncConfig{}.Window()
	require.NoError(t, err)
	assert.Nil(t, since)
	assert.Nil(t, until)

	since, until, err = SyncConfig{Since: "2024-01-01", Until: "2024-02-01"}.Window()
	require.NoError(t, err)
	require.NotNil(t, since)
	require.NotNil(t, until)
	assert.Equal(t, time.January, since.Month())
	assert.Equal(t, time.February, until.Month())

	_, _, err = SyncConfig{Since: "2024-02-01", Until: "2024-01-01"}.Window()
	assert.Error(t, err)

	_, _, err = SyncConfig{Since: "yesterday"}.Window()
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	mutate := []struct {
		name string
		fn   func(c *Config)
	}{
		{"negative limit", func(c *Config) { c.Sync.Limit = -1 }},
		{"zero workers", func(c *Config) { c.Sync.Workers = 0 }},
		{"zero batch", func(c *Config) { c.Sync.BatchSize = 0 }},
		{"zero page", func(c *Config) { c.Sync.PageSize = 0 }},
		{"zero timeout", func(c *Config) { c.Sync.QueryTimeout = 0 }},
		{"empty table", func(c *Config) { c.Source.Table = "" }},
		{"bad target driver", func(c *Config) { c.Target.Driver = "mongo" }},
		{"bad replica", func(c *Config) { c.Source.Replicas = []DBInfo{{Driver: "x"}} }},
		{"bad log level", func(c *Config) { c.Log.Level = "loud" }},
		{"empty log level", func(c *Config) { c.Log.Level = "" }},
	}
	for _, m := range mutate {
		t.Run(m.name, func(t *testing.T) {
			cfg := GetDefaultConfig()
			m.fn(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestLoadFromEnvAndFile(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "profilesync.yaml")
	content := `
source:
  driver: sqlserver
  host: mssql.internal
  port: 1433
  table: dbo_orders
  replicas:
    - driver: sqlserver
      host: mssql-ro.internal
      port: 1433
sync:
  workers: 8
  query_timeout: 5s
`
	require.NoError(t, os.WriteFile(file, []byte(content), 0o600))

	t.Setenv("PROFILESYNC_TARGET_DBNAME", "analytics_test")
	t.Setenv("PROFILESYNC_SYNC_LIMIT", "25")

	cfg, err := Load(viper.New(), file)
	require.NoError(t, err)

	assert.Equal(t, DriverSQLServer, cfg.Source.Driver)
	assert.Equal(t, "mssql.internal", cfg.Source.Host)
	assert.Equal(t, "dbo_orders", cfg.Source.Table)
	require.Len(t, cfg.Source.Replicas, 1)
	assert.Equal(t, "mssql-ro.internal", cfg.Source.Replicas[0].Host)
	assert.Equal(t, 8, cfg.Sync.Workers)
	assert.Equal(t, 5*time.Second, cfg.Sync.QueryTimeout)
	assert.Equal(t, "analytics_test", cfg.Target.DBName)
	assert.Equal(t, 25, cfg.Sync.Limit)
	// 未覆盖的键保持默认值
	assert.Equal(t, 200, cfg.Sync.BatchSize)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(viper.New(), filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
