package testutil

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"customer-profile-sync/internal/model"
)

// Str 返回字符串指针
func Str(s string) *string { return &s }

// I64 返回int64指针
func I64(v int64) *int64 { return &v }

// Int 返回int指针
func Int(v int) *int { return &v }

// Dec 返回有效的NullDecimal
func Dec(s string) decimal.NullDecimal {
	return decimal.NullDecimal{Decimal: decimal.RequireFromString(s), Valid: true}
}

// At 解析UTC时间，格式 2006-01-02 15:04
func At(s string) *time.Time {
	t, err := time.ParseInLocation("2006-01-02 15:04", s, time.UTC)
	if err != nil {
		panic(err)
	}
	return &t
}

// SeedOrders 创建订单表并写入订单
func SeedOrders(t testing.TB, conn *gorm.DB, orders ...model.RawOrder) {
	t.Helper()
	require.NoError(t, conn.AutoMigrate(&model.RawOrder{}))
	if len(orders) > 0 {
		require.NoError(t, conn.Create(&orders).Error)
	}
}

// ScenarioOrders 典型场景：A两笔订单（一笔现金为0），一笔匿名订单，以及被排除的订单
func ScenarioOrders() []model.RawOrder {
	return []model.RawOrder{
		{OrderID: 1, CustomerOpenID: Str("A"), RecordTime: At("2024-01-01 10:00"), CashAmount: Dec("10"), TotalAmount: Dec("10"), PayState: Int(2)},
		{OrderID: 2, CustomerOpenID: Str("A"), RecordTime: At("2024-01-05 12:30"), CashAmount: Dec("0"), TotalAmount: Dec("5")},
		{OrderID: 3, RecordTime: At("2024-01-03 09:00"), CashAmount: Dec("3"), TotalAmount: Dec("3"), PayState: Int(2)},
		// 已删除
		{OrderID: 4, CustomerOpenID: Str("A"), RecordTime: At("2024-01-06 09:00"), CashAmount: Dec("99"), TotalAmount: Dec("99"), PayState: Int(2), DeleteFlag: Int(1)},
		// 未完成支付
		{OrderID: 5, CustomerOpenID: Str("B"), RecordTime: At("2024-01-06 09:00"), TotalAmount: Dec("8"), PayState: Int(1)},
		// 缺少下单时间
		{OrderID: 6, CustomerOpenID: Str("C"), TotalAmount: Dec("8"), PayState: Int(2)},
	}
}
