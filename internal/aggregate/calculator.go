// Package aggregate 计算每个客户身份的画像统计
package aggregate

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"customer-profile-sync/internal/identity"
	"customer-profile-sync/internal/model"
)

// AvgScale 平均客单价保留的小数位，与画像表的 decimal(18,2) 一致
const AvgScale = 2

// ErrMissingRecordTime 订单缺少下单时间，读取条件本应排除此类订单
var ErrMissingRecordTime = errors.New("order has no record_time")

// EffectiveAmount 订单的有效金额：现金大于0取现金，否则取订单总额，空值按0计
func EffectiveAmount(o *model.RawOrder) decimal.Decimal {
	if o.CashAmount.Valid && o.CashAmount.Decimal.IsPositive() {
		return o.CashAmount.Decimal
	}
	if o.TotalAmount.Valid {
		return o.TotalAmount.Decimal
	}
	return decimal.Zero
}

// Average 计算平均值，订单数为0时返回0
func Average(total decimal.Decimal, orders int64) decimal.Decimal {
	if orders == 0 {
		return decimal.Zero
	}
	return total.DivRound(decimal.NewFromInt(orders), AvgScale)
}

// TruncateToDate 截断到自然日，保留原时区
func TruncateToDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// Accumulator 单个客户身份的累加器
// 同一订单ID重复出现只计一次
type Accumulator struct {
	id         identity.Identity
	orders     map[int64]struct{}
	totalSpend decimal.Decimal
	first      time.Time
	last       time.Time
	openID     *string
	vip        latest[int64]
	phone      latest[string]
}

// latest 记录最近一笔携带该字段的订单中的值
type latest[T any] struct {
	value   *T
	at      time.Time
	orderID int64
}

func (l *latest[T]) offer(v T, at time.Time, orderID int64) {
	if l.value != nil {
		if at.Before(l.at) || (at.Equal(l.at) && orderID < l.orderID) {
			return
		}
	}
	l.value = &v
	l.at = at
	l.orderID = orderID
}

// NewAccumulator 创建累加器
func NewAccumulator(id identity.Identity) *Accumulator {
	return &Accumulator{
		id:         id,
		orders:     make(map[int64]struct{}),
		totalSpend: decimal.Zero,
	}
}

// Add 累加一条订单
func (a *Accumulator) Add(o *model.RawOrder) error {
	if o.RecordTime == nil {
		return fmt.Errorf("order %d: %w", o.OrderID, ErrMissingRecordTime)
	}
	if _, dup := a.orders[o.OrderID]; dup {
		return nil
	}
	a.orders[o.OrderID] = struct{}{}

	a.totalSpend = a.totalSpend.Add(EffectiveAmount(o))

	at := *o.RecordTime
	if a.first.IsZero() || at.Before(a.first) {
		a.first = at
	}
	if a.last.IsZero() || at.After(a.last) {
		a.last = at
	}

	if !a.id.Synthetic && a.openID == nil {
		openID := a.id.Key
		a.openID = &openID
	}
	if o.VipID != nil {
		a.vip.offer(*o.VipID, at, o.OrderID)
	}
	if o.Phone != nil && *o.Phone != "" {
		a.phone.offer(*o.Phone, at, o.OrderID)
	}
	return nil
}

// Orders 已累加的不同订单数
func (a *Accumulator) Orders() int64 {
	return int64(len(a.orders))
}

// OrderIDs 已累加的订单ID，升序
func (a *Accumulator) OrderIDs() []int64 {
	ids := make([]int64, 0, len(a.orders))
	for id := range a.orders {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Profile 生成画像，外部维护的分类字段保持为空
func (a *Accumulator) Profile() model.CustomerProfile {
	total := a.Orders()
	p := model.CustomerProfile{
		CustomerID:     a.id.Key,
		OpenID:         a.openID,
		VipNum:         a.vip.value,
		Phone:          a.phone.value,
		TotalOrders:    total,
		TotalSpend:     a.totalSpend,
		AvgOrderAmount: Average(a.totalSpend, total),
	}
	if total > 0 {
		p.FirstOrderDate = TruncateToDate(a.first)
		p.LastOrderDate = TruncateToDate(a.last)
	}
	return p
}
