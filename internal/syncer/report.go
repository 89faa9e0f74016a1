package syncer

import (
	"strings"
	"time"

	"customer-profile-sync/internal/model"
)

// Report 一次同步的结果统计
type Report struct {
	RunID           string              `json:"run_id"`
	Status          model.SyncRunStatus `json:"status"`
	DryRun          bool                `json:"dry_run"`
	Limit           int                 `json:"limit"`
	OrdersRead      int64               `json:"orders_read"`
	ProfilesRead    int64               `json:"profiles_read"`
	ProfilesWritten int64               `json:"profiles_written"`
	ProfilesFailed  int64               `json:"profiles_failed"`
	Anomalies       int64               `json:"anomalies"`
	FailedIDs       []string            `json:"failed_ids,omitempty"`
	Error           string              `json:"error,omitempty"`
	StartTime       time.Time           `json:"start_time"`
	FinishTime      time.Time           `json:"finish_time"`

	failures []*UpsertError
}

// Duration 同步耗时
func (r *Report) Duration() time.Duration {
	return r.FinishTime.Sub(r.StartTime)
}

// Failures 每个失败画像的写入错误，按客户身份排序
func (r *Report) Failures() []*UpsertError {
	return r.failures
}

// toRun 转换为同步记录
func (r *Report) toRun() *model.SyncRun {
	run := &model.SyncRun{
		RunID:           r.RunID,
		Status:          r.Status,
		OrdersRead:      r.OrdersRead,
		ProfilesRead:    r.ProfilesRead,
		ProfilesWritten: r.ProfilesWritten,
		ProfilesFailed:  r.ProfilesFailed,
		Anomalies:       r.Anomalies,
		Limit:           r.Limit,
		FailedIDs:       strings.Join(r.FailedIDs, ","),
		ErrorMessage:    r.Error,
		StartTime:       r.StartTime,
	}
	if !r.FinishTime.IsZero() {
		finish := r.FinishTime
		run.FinishTime = &finish
	}
	return run
}
