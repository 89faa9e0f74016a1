package main

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"customer-profile-sync/internal/config"
	"customer-profile-sync/internal/db"
	"customer-profile-sync/internal/logger"
)

// app 命令共享的状态，在 PersistentPreRunE 中初始化
type app struct {
	v          *viper.Viper
	configFile string
	cfg        *config.Config
	log        *logrus.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{v: viper.New()}

	root := &cobra.Command{
		Use:   "profilesync",
		Short: "Build customer profiles from completed orders",
		Long: `profilesync reads completed, non-deleted orders from the hotdog order
database, groups them by customer, computes lifetime metrics and upserts one
profile per customer into the analytics database.

Configuration is read from an optional config file, PROFILESYNC_* environment
variables (a .env file is loaded when present) and command-line flags.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
	}

	root.PersistentFlags().StringVarP(&a.configFile, "config", "c", "", "config file (yaml, toml or json)")
	root.PersistentFlags().String("log-level", "", "log level: debug, info, warn, error")
	root.PersistentFlags().String("log-format", "", "log format: text or json")
	a.bindFlags(root.PersistentFlags(), map[string]string{
		"log.level":  "log-level",
		"log.format": "log-format",
	})

	root.AddCommand(
		newSyncCmd(a),
		newCheckCmd(a),
		newMigrateCmd(a),
		newServeCmd(a),
	)
	return root
}

// setup 加载配置并创建日志器
func (a *app) setup(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(a.v, a.configFile)
	if err != nil {
		return err
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}

	a.cfg = cfg
	a.log = log
	return nil
}

// bindFlags 把命令行参数绑定到配置键，只有显式指定的参数会覆盖配置
func (a *app) bindFlags(fs *pflag.FlagSet, keys map[string]string) {
	for key, name := range keys {
		if err := a.v.BindPFlag(key, fs.Lookup(name)); err != nil {
			panic(fmt.Sprintf("bind flag %s: %v", name, err))
		}
	}
}

// openPool 按配置连接数据库
func (a *app) openPool() (*db.DBPool, error) {
	a.log.WithFields(logrus.Fields{
		"source": a.cfg.Source.Describe(),
		"target": a.cfg.Target.Describe(),
	}).Debug("connecting to databases")

	return db.NewDBPool(a.cfg, a.log)
}
