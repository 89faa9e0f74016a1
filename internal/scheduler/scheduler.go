// Package scheduler 定时执行画像同步，同一时间最多只有一次同步在运行
package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"customer-profile-sync/internal/syncer"
)

// ErrBusy 已有同步在运行
var ErrBusy = errors.New("a sync run is already in progress")

// ErrStopped 调度器未启动或已停止
var ErrStopped = errors.New("scheduler is not running")

// Runner 执行一次同步
type Runner interface {
	Run(ctx context.Context, opts syncer.Options) (*syncer.Report, error)
}

// Stats 调度器状态
type Stats struct {
	Started       bool           `json:"started"`        // 调度器是否在运行
	Busy          bool           `json:"busy"`           // 是否有同步正在执行
	Interval      string         `json:"interval"`       // 同步间隔
	CompletedRuns int            `json:"completed_runs"` // 已结束的同步次数
	SkippedTicks  int            `json:"skipped_ticks"`  // 因上次同步未结束而跳过的周期
	LastReport    *syncer.Report `json:"last_report"`    // 最近一次同步结果
	LastError     string         `json:"last_error"`     // 最近一次同步的错误
	LastRunTime   time.Time      `json:"last_run_time"`  // 最近一次同步结束时间
	UptimeSeconds int64          `json:"uptime_seconds"` // 运行时间(秒)
}

// Scheduler 定时同步调度器
type Scheduler struct {
	runner   Runner
	opts     syncer.Options
	interval time.Duration
	log      logrus.FieldLogger

	mu            sync.Mutex
	started       bool
	busy          bool
	completedRuns int
	skippedTicks  int
	lastReport    *syncer.Report
	lastErr       error
	lastRunTime   time.Time
	startTime     time.Time

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup // 调度循环和所有进行中的同步
}

// New 创建调度器
func New(runner Runner, opts syncer.Options, interval time.Duration, log logrus.FieldLogger) *Scheduler {
	return &Scheduler{
		runner:   runner,
		opts:     opts,
		interval: interval,
		log:      log.WithField("component", "scheduler"),
	}
}

// Start 启动调度循环，立即执行一次同步，之后每个周期执行一次
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.interval <= 0 {
		return errors.New("sync interval must be positive")
	}

	s.ctx, s.cancel = context.WithCancel(ctx)
	s.started = true
	s.startTime = time.Now()

	s.log.WithField("interval", s.interval.String()).Info("scheduler started")

	s.wg.Add(1)
	go s.loop()

	return nil
}

// Stop 停止调度：取消进行中的同步（当前批次写完后停止）并等待其退出
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	s.started = false
	cancel := s.cancel
	s.mu.Unlock()

	s.log.Info("stopping scheduler")
	cancel()
	s.wg.Wait()
	s.log.Info("scheduler stopped")
}

// TriggerNow 在后台立即执行一次同步
// 已有同步在运行时返回 ErrBusy
func (s *Scheduler) TriggerNow() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return ErrStopped
	}
	if s.busy {
		return ErrBusy
	}

	s.busy = true
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.runOnce("manual")
	}()
	return nil
}

// Stats 返回调度器状态
func (s *Scheduler) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := Stats{
		Started:       s.started,
		Busy:          s.busy,
		Interval:      s.interval.String(),
		CompletedRuns: s.completedRuns,
		SkippedTicks:  s.skippedTicks,
		LastReport:    s.lastReport,
		LastRunTime:   s.lastRunTime,
	}
	if s.lastErr != nil {
		st.LastError = s.lastErr.Error()
	}
	if s.started {
		st.UptimeSeconds = int64(time.Since(s.startTime).Seconds())
	}
	return st
}

// loop 调度循环
func (s *Scheduler) loop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.tick()
	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.tick()
		}
	}
}

// tick 周期到达，在后台启动一次同步；上一次同步未结束时跳过本周期
func (s *Scheduler) tick() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ctx.Err() != nil {
		return
	}
	if s.busy {
		s.skippedTicks++
		s.log.Warn("previous sync still running, skipping this tick")
		return
	}

	s.busy = true
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.runOnce("interval")
	}()
}

// runOnce 执行一次同步并保存结果，调用前必须已将 busy 置为 true
func (s *Scheduler) runOnce(trigger string) {
	s.log.WithField("trigger", trigger).Debug("sync triggered")

	report, err := s.runner.Run(s.ctx, s.opts)
	if err != nil {
		s.log.WithError(err).WithField("trigger", trigger).Warn("scheduled sync ended with error")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.busy = false
	s.completedRuns++
	s.lastReport = report
	s.lastErr = err
	s.lastRunTime = time.Now()
}
