package aggregate

import (
	"fmt"
	"sort"

	"customer-profile-sync/internal/identity"
	"customer-profile-sync/internal/model"
)

// Anomaly 无法分配身份或无法累加的订单
type Anomaly struct {
	OrderID int64
	Err     error
}

// groupKey 分组键，真实 open id 与合成身份分属不同的键空间
type groupKey struct {
	synthetic bool
	key       string
}

// Grouper 按客户身份对订单分组累加
// 非并发安全，由单个读取循环驱动
type Grouper struct {
	accs      map[groupKey]*Accumulator
	orders    int64
	anomalies []Anomaly
}

// NewGrouper 创建分组器
func NewGrouper() *Grouper {
	return &Grouper{
		accs: make(map[groupKey]*Accumulator),
	}
}

// Add 解析订单身份并累加到对应分组，异常订单单独记录
func (g *Grouper) Add(o *model.RawOrder) {
	g.orders++

	id, err := identity.Resolve(o)
	if err != nil {
		g.anomalies = append(g.anomalies, Anomaly{OrderID: o.OrderID, Err: err})
		return
	}

	k := groupKey{synthetic: id.Synthetic, key: id.Key}
	acc, ok := g.accs[k]
	if !ok {
		acc = NewAccumulator(id)
		g.accs[k] = acc
	}
	if err := acc.Add(o); err != nil {
		g.anomalies = append(g.anomalies, Anomaly{OrderID: o.OrderID, Err: err})
	}
}

// Orders 读取的订单总数
func (g *Grouper) Orders() int64 {
	return g.orders
}

// Len 分组数，不含与真实 open id 冲突的合成身份
func (g *Grouper) Len() int {
	return len(g.Keys())
}

// Anomalies 异常订单，包括合成身份与某个真实 open id 相同的匿名订单
func (g *Grouper) Anomalies() []Anomaly {
	out := append([]Anomaly(nil), g.anomalies...)
	for _, k := range g.collisions() {
		for _, orderID := range g.accs[k].OrderIDs() {
			out = append(out, Anomaly{
				OrderID: orderID,
				Err:     fmt.Errorf("%w: synthetic identity %s collides with an open id", identity.ErrAnomaly, k.key),
			})
		}
	}
	return out
}

// collisions 与真实 open id 同名的合成身份分组，按身份排序
// 两者会写入同一个 customer_id，匿名订单不能并入真实客户
func (g *Grouper) collisions() []groupKey {
	var keys []groupKey
	for k, acc := range g.accs {
		if !k.synthetic || acc.Orders() == 0 {
			continue
		}
		if _, ok := g.accs[groupKey{key: k.key}]; ok {
			keys = append(keys, k)
		}
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].key < keys[j].key })
	return keys
}

// resolve 按身份返回要输出的分组，冲突的合成身份被排除
func (g *Grouper) resolve() map[string]*Accumulator {
	out := make(map[string]*Accumulator, len(g.accs))
	for k, acc := range g.accs {
		if acc.Orders() == 0 {
			continue
		}
		if k.synthetic {
			if _, ok := g.accs[groupKey{key: k.key}]; ok {
				continue
			}
		}
		out[k.key] = acc
	}
	return out
}

// Keys 按字典序返回所有客户身份，保证limit截取结果稳定
func (g *Grouper) Keys() []string {
	groups := g.resolve()
	keys := make([]string, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Profiles 生成画像，limit大于0时只取前limit个身份
func (g *Grouper) Profiles(limit int) []model.CustomerProfile {
	groups := g.resolve()
	keys := make([]string, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	if limit > 0 && len(keys) > limit {
		keys = keys[:limit]
	}

	profiles := make([]model.CustomerProfile, 0, len(keys))
	for _, k := range keys {
		profiles = append(profiles, groups[k].Profile())
	}
	return profiles
}
