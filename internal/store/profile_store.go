// Package store 负责目标库中画像和同步记录的读写
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"customer-profile-sync/internal/model"
)

// ErrNotFound 画像不存在
var ErrNotFound = errors.New("profile not found")

// ProfileStore 目标库画像存储
type ProfileStore struct {
	conn    *gorm.DB      // 目标库连接
	timeout time.Duration // 单次调用超时
}

// NewProfileStore 创建画像存储
func NewProfileStore(conn *gorm.DB, timeout time.Duration) *ProfileStore {
	return &ProfileStore{
		conn:    conn,
		timeout: timeout,
	}
}

// Migrate 创建或更新画像表和同步记录表
func (s *ProfileStore) Migrate(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if err := s.conn.WithContext(ctx).AutoMigrate(&model.CustomerProfile{}, &model.SyncRun{}); err != nil {
		return fmt.Errorf("failed to migrate target tables: %w", err)
	}
	return nil
}

// Upsert 写入一个画像：不存在则插入，存在则覆盖全部计算字段
// 单条语句完成，相同输入重复调用结果不变；外部维护的分类字段不受影响
func (s *ProfileStore) Upsert(ctx context.Context, p *model.CustomerProfile) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	result := s.conn.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "customer_id"}},
			DoUpdates: clause.AssignmentColumns(model.ComputedColumns),
		}).
		Create(p)
	if result.Error != nil {
		return fmt.Errorf("failed to upsert profile %s: %w", p.CustomerID, result.Error)
	}
	return nil
}

// Get 按客户身份读取画像
func (s *ProfileStore) Get(ctx context.Context, customerID string) (*model.CustomerProfile, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var p model.CustomerProfile
	err := s.conn.WithContext(ctx).Where("customer_id = ?", customerID).Take(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get profile %s: %w", customerID, err)
	}
	return &p, nil
}

// List 按客户身份顺序读取全部画像
func (s *ProfileStore) List(ctx context.Context) ([]model.CustomerProfile, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var profiles []model.CustomerProfile
	if err := s.conn.WithContext(ctx).Order("customer_id ASC").Find(&profiles).Error; err != nil {
		return nil, fmt.Errorf("failed to list profiles: %w", err)
	}
	return profiles, nil
}

// Count 画像总数
func (s *ProfileStore) Count(ctx context.Context) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var n int64
	if err := s.conn.WithContext(ctx).Model(&model.CustomerProfile{}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("failed to count profiles: %w", err)
	}
	return n, nil
}
