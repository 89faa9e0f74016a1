// Package syncer 编排一次完整的画像同步：读取订单、按身份分组、计算画像、写入目标库
package syncer

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"customer-profile-sync/internal/aggregate"
	"customer-profile-sync/internal/config"
	"customer-profile-sync/internal/model"
	"customer-profile-sync/internal/source"
)

// OrderSource 逐页提供满足条件的原始订单
type OrderSource interface {
	Scan(ctx context.Context, w source.Window, fn func(page []model.RawOrder) error) (int64, error)
}

// ProfileWriter 写入单个画像
type ProfileWriter interface {
	Upsert(ctx context.Context, p *model.CustomerProfile) error
}

// RunRecorder 保存同步记录
type RunRecorder interface {
	Begin(ctx context.Context, run *model.SyncRun) error
	Finish(ctx context.Context, run *model.SyncRun) error
}

// Options 单次同步的参数
type Options struct {
	Limit     int           // 最多处理的客户数，0表示不限制
	DryRun    bool          // 只计算不写入
	Window    source.Window // 下单时间窗口
	Workers   int           // 并发写入数
	BatchSize int           // 每批写入的画像数
}

// OptionsFromConfig 由同步配置生成参数
func OptionsFromConfig(cfg config.SyncConfig) (Options, error) {
	since, until, err := cfg.Window()
	if err != nil {
		return Options{}, err
	}
	return Options{
		Limit:     cfg.Limit,
		DryRun:    cfg.DryRun,
		Window:    source.Window{Since: since, Until: until},
		Workers:   cfg.Workers,
		BatchSize: cfg.BatchSize,
	}, nil
}

// Driver 同步驱动器
type Driver struct {
	src  OrderSource
	dst  ProfileWriter
	runs RunRecorder // 可为空，为空时不记录同步历史
	log  logrus.FieldLogger
}

// NewDriver 创建同步驱动器
func NewDriver(src OrderSource, dst ProfileWriter, runs RunRecorder, log logrus.FieldLogger) *Driver {
	return &Driver{
		src:  src,
		dst:  dst,
		runs: runs,
		log:  log.WithField("component", "syncer"),
	}
}

// Run 执行一次同步
//
// 读取阶段出错返回 *SourceQueryError，此时没有任何写入；
// 部分画像写入失败时返回包装了 ErrPartialFailure 的错误，其余画像照常写入；
// ctx 取消后当前批次写完即停止，返回 ctx 的错误。
// 任何情况下都会返回 Report。
func (d *Driver) Run(ctx context.Context, opts Options) (*Report, error) {
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 1
	}

	report := &Report{
		RunID:     uuid.New().String(),
		Status:    model.RunRunning,
		DryRun:    opts.DryRun,
		Limit:     opts.Limit,
		StartTime: time.Now(),
	}
	log := d.log.WithField("run_id", report.RunID)
	log.WithFields(logrus.Fields{
		"limit":   opts.Limit,
		"dry_run": opts.DryRun,
		"workers": opts.Workers,
		"batch":   opts.BatchSize,
	}).Info("profile sync started")

	d.begin(ctx, report, log)

	// 读取并分组
	grouper := aggregate.NewGrouper()
	orders, err := d.src.Scan(ctx, opts.Window, func(page []model.RawOrder) error {
		for i := range page {
			grouper.Add(&page[i])
		}
		return nil
	})
	report.OrdersRead = orders
	if err != nil {
		if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
			d.finish(ctx, report, model.RunCancelled, err, log)
			return report, err
		}
		qerr := &SourceQueryError{Err: err}
		d.finish(ctx, report, model.RunFailed, qerr, log)
		return report, qerr
	}

	anomalies := grouper.Anomalies()
	for _, a := range anomalies {
		log.WithFields(logrus.Fields{
			"order_id": a.OrderID,
			"error":    a.Err,
		}).Warn("order skipped")
	}
	report.Anomalies = int64(len(anomalies))

	profiles := grouper.Profiles(opts.Limit)
	report.ProfilesRead = int64(len(profiles))
	log.WithFields(logrus.Fields{
		"orders":    orders,
		"customers": grouper.Len(),
		"selected":  len(profiles),
		"anomalies": report.Anomalies,
	}).Info("orders grouped")

	if opts.DryRun {
		for i := range profiles {
			p := &profiles[i]
			log.WithFields(logrus.Fields{
				"customer_id": p.CustomerID,
				"orders":      p.TotalOrders,
				"total_spend": p.TotalSpend.StringFixed(2),
				"avg":         p.AvgOrderAmount.StringFixed(2),
				"first":       p.FirstOrderDate.Format(config.DateLayout),
				"last":        p.LastOrderDate.Format(config.DateLayout),
			}).Info("dry run profile")
		}
		d.finish(ctx, report, model.RunCompleted, nil, log)
		return report, nil
	}

	// 分批写入，批次之间检查取消
	for start := 0; start < len(profiles); start += opts.BatchSize {
		if err := ctx.Err(); err != nil {
			log.WithField("remaining", len(profiles)-start).Warn("sync cancelled between batches")
			d.finish(ctx, report, model.RunCancelled, err, log)
			return report, err
		}

		end := start + opts.BatchSize
		if end > len(profiles) {
			end = len(profiles)
		}
		d.writeBatch(ctx, profiles[start:end], opts.Workers, report)
	}

	sort.Slice(report.failures, func(i, j int) bool {
		return report.failures[i].CustomerID < report.failures[j].CustomerID
	})
	for _, f := range report.failures {
		report.FailedIDs = append(report.FailedIDs, f.CustomerID)
		log.WithFields(logrus.Fields{
			"customer_id": f.CustomerID,
			"error":       f.Err,
		}).Error("profile upsert failed")
	}

	if report.ProfilesFailed > 0 {
		perr := fmt.Errorf("%w: %d of %d profiles failed", ErrPartialFailure, report.ProfilesFailed, report.ProfilesRead)
		d.finish(ctx, report, model.RunPartial, perr, log)
		return report, perr
	}

	d.finish(ctx, report, model.RunCompleted, nil, log)
	return report, nil
}

// writeBatch 并发写入一批画像
// 已开始的批次不受 ctx 取消影响，每次写入仍受写入方自身的超时约束
func (d *Driver) writeBatch(ctx context.Context, batch []model.CustomerProfile, workers int, report *Report) {
	wctx := context.WithoutCancel(ctx)

	var (
		g  errgroup.Group
		mu sync.Mutex
	)
	g.SetLimit(workers)

	for i := range batch {
		p := &batch[i]
		g.Go(func() error {
			err := d.dst.Upsert(wctx, p)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				report.ProfilesFailed++
				report.failures = append(report.failures, &UpsertError{CustomerID: p.CustomerID, Err: err})
				return nil
			}
			report.ProfilesWritten++
			return nil
		})
	}
	_ = g.Wait()
}

// begin 记录同步开始，记录失败不影响同步
func (d *Driver) begin(ctx context.Context, report *Report, log logrus.FieldLogger) {
	if d.runs == nil || report.DryRun {
		return
	}
	if err := d.runs.Begin(ctx, report.toRun()); err != nil {
		log.WithError(err).Warn("failed to record sync run start")
	}
}

// finish 填写最终状态并记录同步结束
func (d *Driver) finish(ctx context.Context, report *Report, status model.SyncRunStatus, cause error, log logrus.FieldLogger) {
	report.Status = status
	report.FinishTime = time.Now()
	if cause != nil {
		report.Error = cause.Error()
	}

	entry := log.WithFields(logrus.Fields{
		"status":    status,
		"orders":    report.OrdersRead,
		"read":      report.ProfilesRead,
		"written":   report.ProfilesWritten,
		"failed":    report.ProfilesFailed,
		"anomalies": report.Anomalies,
		"duration":  report.Duration().String(),
	})
	switch status {
	case model.RunCompleted:
		entry.Info("profile sync finished")
	case model.RunFailed:
		entry.WithError(cause).Error("profile sync failed")
	default:
		entry.Warn("profile sync finished with problems")
	}

	if d.runs == nil || report.DryRun {
		return
	}
	if err := d.runs.Finish(context.WithoutCancel(ctx), report.toRun()); err != nil {
		log.WithError(err).Warn("failed to record sync run result")
	}
}
