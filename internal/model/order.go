package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// PayStateCompleted 已完成支付的订单状态
const PayStateCompleted = 2

// RawOrder 源库中的一条原始订单，只读
// 可空字段全部使用指针或Null类型，空值与零值必须可区分
type RawOrder struct {
	OrderID        int64               `gorm:"column:order_id;primaryKey;autoIncrement:false"` // 订单ID，唯一
	CustomerOpenID *string             `gorm:"column:customer_open_id;size:128"`               // 外部身份标识，可空
	VipID          *int64              `gorm:"column:vip_id"`                                  // 会员ID，可空
	Phone          *string             `gorm:"column:phone;size:32"`                           // 手机号，可空
	RecordTime     *time.Time          `gorm:"column:record_time"`                             // 下单时间，可空
	CashAmount     decimal.NullDecimal `gorm:"column:cash_amount;type:decimal(18,2)"`          // 实收现金
	TotalAmount    decimal.NullDecimal `gorm:"column:total_amount;type:decimal(18,2)"`         // 订单总额
	PayState       *int                `gorm:"column:pay_state"`                               // 2=已完成，NULL=历史数据
	DeleteFlag     *int                `gorm:"column:delete_flag"`                             // 0或NULL=有效
}

// TableName 默认表名，实际读取时以配置的表名为准
func (RawOrder) TableName() string {
	return "orders"
}

// Included 判断订单是否满足同步过滤条件，与源库查询条件保持一致
func (o *RawOrder) Included() bool {
	if o.PayState != nil && *o.PayState != PayStateCompleted {
		return false
	}
	if o.DeleteFlag != nil && *o.DeleteFlag != 0 {
		return false
	}
	return o.RecordTime != nil
}
