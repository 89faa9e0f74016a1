package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"customer-profile-sync/internal/model"
)

// RunStore 同步记录存储
type RunStore struct {
	conn    *gorm.DB
	timeout time.Duration
}

// NewRunStore 创建同步记录存储
func NewRunStore(conn *gorm.DB, timeout time.Duration) *RunStore {
	return &RunStore{
		conn:    conn,
		timeout: timeout,
	}
}

// Begin 写入一条执行中的同步记录
func (s *RunStore) Begin(ctx context.Context, run *model.SyncRun) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	run.Status = model.RunRunning
	if err := s.conn.WithContext(ctx).Create(run).Error; err != nil {
		return fmt.Errorf("failed to create sync run record: %w", err)
	}
	return nil
}

// Finish 更新同步记录的最终状态和统计
func (s *RunStore) Finish(ctx context.Context, run *model.SyncRun) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	result := s.conn.WithContext(ctx).
		Model(&model.SyncRun{}).
		Where("run_id = ?", run.RunID).
		Updates(map[string]interface{}{
			"status":           run.Status,
			"orders_read":      run.OrdersRead,
			"profiles_read":    run.ProfilesRead,
			"profiles_written": run.ProfilesWritten,
			"profiles_failed":  run.ProfilesFailed,
			"anomalies":        run.Anomalies,
			"failed_ids":       run.FailedIDs,
			"error_message":    run.ErrorMessage,
			"finish_time":      run.FinishTime,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to update sync run %s: %w", run.RunID, result.Error)
	}
	if result.RowsAffected == 0 {
		return errors.New("sync run record not found")
	}
	return nil
}

// Get 按任务ID读取同步记录
func (s *RunStore) Get(ctx context.Context, runID string) (*model.SyncRun, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var run model.SyncRun
	err := s.conn.WithContext(ctx).Where("run_id = ?", runID).Take(&run).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("sync run %s not found", runID)
	}
	if err != nil {
		return nil, err
	}
	return &run, nil
}

// Recent 最近的同步记录，按开始时间倒序
func (s *RunStore) Recent(ctx context.Context, limit int) ([]model.SyncRun, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var runs []model.SyncRun
	query := s.conn.WithContext(ctx).Order("start_time DESC").Order("id DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&runs).Error; err != nil {
		return nil, fmt.Errorf("failed to list sync runs: %w", err)
	}
	return runs, nil
}
