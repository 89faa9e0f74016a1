package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// CustomerProfile 目标库中的客户画像，每个客户身份一行
// 不含更新时间字段：相同输入重复同步得到完全相同的行
type CustomerProfile struct {
	CustomerID     string          `gorm:"column:customer_id;primaryKey;size:160"`         // 客户身份
	OpenID         *string         `gorm:"column:open_id;size:128"`                        // 外部身份标识，合成身份为空
	VipNum         *int64          `gorm:"column:vip_num"`                                 // 会员号
	Phone          *string         `gorm:"column:phone;size:32"`                           // 手机号
	FirstOrderDate time.Time       `gorm:"column:first_order_date;type:date"`              // 首单日期
	LastOrderDate  time.Time       `gorm:"column:last_order_date;type:date"`               // 末单日期
	TotalOrders    int64           `gorm:"column:total_orders"`                            // 订单数
	TotalSpend     decimal.Decimal `gorm:"column:total_spend;type:decimal(18,2)"`          // 累计消费
	AvgOrderAmount decimal.Decimal `gorm:"column:avg_order_amount;type:decimal(18,2)"`     // 平均客单价

	// 以下字段由外部系统维护，同步不会覆盖
	CustomerSegment *string `gorm:"column:customer_segment;size:32"`
	RFMScore        *string `gorm:"column:rfm_score;size:16"`
	AgeGroup        *string `gorm:"column:age_group;size:16"`
}

// TableName 定义画像表名
func (CustomerProfile) TableName() string {
	return "customer_profiles"
}

// ComputedColumns 同步时整体覆盖的列
var ComputedColumns = []string{
	"open_id",
	"vip_num",
	"phone",
	"first_order_date",
	"last_order_date",
	"total_orders",
	"total_spend",
	"avg_order_amount",
}
