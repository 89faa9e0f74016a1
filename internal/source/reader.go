// Package source 从源库读取满足条件的原始订单
package source

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"customer-profile-sync/internal/model"
)

// ConnProvider 提供源库读连接
type ConnProvider interface {
	Source() *gorm.DB
}

// Window 可选的下单时间窗口，[Since, Until)
type Window struct {
	Since *time.Time
	Until *time.Time
}

// Reader 源订单读取器，按 order_id 键集分页
type Reader struct {
	conns    ConnProvider
	table    string
	pageSize int
	timeout  time.Duration
	log      logrus.FieldLogger
}

// NewReader 创建读取器
func NewReader(conns ConnProvider, table string, pageSize int, timeout time.Duration, log logrus.FieldLogger) *Reader {
	return &Reader{
		conns:    conns,
		table:    table,
		pageSize: pageSize,
		timeout:  timeout,
		log:      log.WithField("component", "source"),
	}
}

// Filter 在查询上追加订单过滤条件
// pay_state 和 delete_flag 为 NULL 的历史订单视为有效订单
func Filter(q *gorm.DB, w Window) *gorm.DB {
	q = q.Where("(pay_state = ? OR pay_state IS NULL)", model.PayStateCompleted).
		Where("(delete_flag = ? OR delete_flag IS NULL)", 0).
		Where("record_time IS NOT NULL")

	if w.Since != nil {
		q = q.Where("record_time >= ?", *w.Since)
	}
	if w.Until != nil {
		q = q.Where("record_time < ?", *w.Until)
	}
	return q
}

// Scan 逐页读取满足条件的订单并交给fn处理，返回读取的订单总数
// 每页是一次独立查询，带独立超时；任何错误直接返回，不吞掉部分结果
func (r *Reader) Scan(ctx context.Context, w Window, fn func(page []model.RawOrder) error) (int64, error) {
	// 一次扫描固定读同一个源库（主库或某个副本），不同页可能在池中不同连接上执行。
	// 页之间没有快照：按 order_id 递增推进，扫描期间新增的订单可能被读到也可能不被读到，
	// 已读过的订单不会重复读取
	conn := r.conns.Source()

	var (
		total   int64
		lastID  int64
		hasLast bool
		pages   int
	)

	for {
		if err := ctx.Err(); err != nil {
			return total, err
		}

		page, err := r.fetchPage(ctx, conn, w, lastID, hasLast)
		if err != nil {
			return total, fmt.Errorf("failed to read orders after order_id %d: %w", lastID, err)
		}
		if len(page) == 0 {
			break
		}

		pages++
		total += int64(len(page))
		lastID = page[len(page)-1].OrderID
		hasLast = true

		if err := fn(page); err != nil {
			return total, err
		}

		if len(page) < r.pageSize {
			break
		}
	}

	r.log.WithFields(logrus.Fields{
		"table":  r.table,
		"orders": total,
		"pages":  pages,
	}).Info("source scan finished")

	return total, nil
}

// fetchPage 读取一页订单
func (r *Reader) fetchPage(ctx context.Context, conn *gorm.DB, w Window, lastID int64, hasLast bool) ([]model.RawOrder, error) {
	qctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	q := Filter(conn.WithContext(qctx).Table(r.table), w)
	if hasLast {
		q = q.Where("order_id > ?", lastID)
	}

	var page []model.RawOrder
	if err := q.Order("order_id ASC").Limit(r.pageSize).Find(&page).Error; err != nil {
		return nil, err
	}
	return page, nil
}
