package model

import (
	"time"
)

// SyncRunStatus 一次同步任务的状态
type SyncRunStatus string

// 同步任务的不同状态
const (
	RunRunning   SyncRunStatus = "running"   // 执行中
	RunCompleted SyncRunStatus = "completed" // 全部成功
	RunPartial   SyncRunStatus = "partial"   // 部分画像写入失败
	RunFailed    SyncRunStatus = "failed"    // 读取失败，未写入
	RunCancelled SyncRunStatus = "cancelled" // 被取消，已写入的批次保留
)

// SyncRun 同步任务的执行记录
type SyncRun struct {
	ID              uint           `gorm:"primarykey"`
	RunID           string         `gorm:"column:run_id;type:varchar(64);uniqueIndex"` // 任务唯一ID
	Status          SyncRunStatus  `gorm:"column:status;type:varchar(20);index"`       // 任务状态
	OrdersRead      int64          `gorm:"column:orders_read"`                         // 读取的订单数
	ProfilesRead    int64          `gorm:"column:profiles_read"`                       // 分组得到的画像数
	ProfilesWritten int64          `gorm:"column:profiles_written"`                    // 写入成功数
	ProfilesFailed  int64          `gorm:"column:profiles_failed"`                     // 写入失败数
	Anomalies       int64          `gorm:"column:anomalies"`                           // 无法识别身份的订单数
	Limit           int            `gorm:"column:limit_n"`                             // 本次的limit参数
	FailedIDs       string         `gorm:"column:failed_ids;type:text"`                // 失败的客户身份，逗号分隔
	ErrorMessage    string         `gorm:"column:error_message;type:text"`             // 致命错误信息
	StartTime       time.Time      `gorm:"column:start_time"`                          // 开始时间
	FinishTime      *time.Time     `gorm:"column:finish_time"`                         // 结束时间
}

// TableName 定义同步记录表名
func (SyncRun) TableName() string {
	return "profile_sync_runs"
}
