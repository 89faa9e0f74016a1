// Package identity 从原始订单推导客户身份
//
// 规则（顺序固定）：
//  1. customer_open_id 非空时，身份即为 open id；
//  2. 否则使用订单自身生成合成身份 "CUST_<order_id>"。
//
// 匿名订单各自独立成组，不允许归入共享的"未知"分组，否则会把互不相关的
// 订单合并成一个虚高的画像。
package identity

import (
	"errors"
	"strconv"
	"strings"

	"customer-profile-sync/internal/model"
)

// SyntheticPrefix 合成身份前缀
const SyntheticPrefix = "CUST_"

// ErrAnomaly 订单既没有 open id 也没有订单ID，无法分配身份
var ErrAnomaly = errors.New("identity resolution anomaly: order has neither open id nor order id")

// Identity 解析结果
type Identity struct {
	Key       string // 客户身份，即画像主键
	Synthetic bool   // 是否为合成身份
}

// Resolve 为一条订单解析客户身份
func Resolve(o *model.RawOrder) (Identity, error) {
	if openID, ok := OpenID(o); ok {
		return Identity{Key: openID}, nil
	}
	if o.OrderID == 0 {
		return Identity{}, ErrAnomaly
	}
	return Identity{Key: SyntheticKey(o.OrderID), Synthetic: true}, nil
}

// OpenID 返回订单的有效 open id，空白字符串视为缺失
func OpenID(o *model.RawOrder) (string, bool) {
	if o.CustomerOpenID == nil {
		return "", false
	}
	if strings.TrimSpace(*o.CustomerOpenID) == "" {
		return "", false
	}
	return *o.CustomerOpenID, true
}

// SyntheticKey 由订单ID生成合成身份
func SyntheticKey(orderID int64) string {
	return SyntheticPrefix + strconv.FormatInt(orderID, 10)
}
