package syncer

import (
	"github.com/sirupsen/logrus"

	"customer-profile-sync/internal/config"
	"customer-profile-sync/internal/db"
	"customer-profile-sync/internal/source"
	"customer-profile-sync/internal/store"
)

// NewFromPool 使用连接池组装读取器、画像存储和同步记录存储
func NewFromPool(cfg *config.Config, pool *db.DBPool, log logrus.FieldLogger) *Driver {
	reader := source.NewReader(pool, cfg.Source.Table, cfg.Sync.PageSize, cfg.Sync.QueryTimeout, log)
	profiles := store.NewProfileStore(pool.Target(), cfg.Sync.QueryTimeout)
	runs := store.NewRunStore(pool.Target(), cfg.Sync.QueryTimeout)
	return NewDriver(reader, profiles, runs, log)
}
