package aggregate

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"customer-profile-sync/internal/identity"
	"customer-profile-sync/internal/model"
)

func TestGrouperScenario(t *testing.T) {
	two := 2
	g := NewGrouper()
	g.Add(&model.RawOrder{OrderID: 1, CustomerOpenID: strPtr("A"), RecordTime: at("2024-01-01 10:00"), CashAmount: dec("10"), TotalAmount: dec("10"), PayState: &two})
	g.Add(&model.RawOrder{OrderID: 2, CustomerOpenID: strPtr("A"), RecordTime: at("2024-01-02 10:00"), CashAmount: dec("0"), TotalAmount: dec("5")})
	g.Add(&model.RawOrder{OrderID: 3, RecordTime: at("2024-01-03 10:00"), CashAmount: dec("3"), TotalAmount: dec("3"), PayState: &two})

	assert.Equal(t, int64(3), g.Orders())
	assert.Equal(t, []string{"A", "CUST_3"}, g.Keys())

	profiles := g.Profiles(0)
	require.Len(t, profiles, 2)

	a := profiles[0]
	assert.Equal(t, "A", a.CustomerID)
	assert.Equal(t, int64(2), a.TotalOrders)
	assert.True(t, a.TotalSpend.Equal(decimal.NewFromInt(15)))
	assert.True(t, a.AvgOrderAmount.Equal(decimal.RequireFromString("7.5")))

	c := profiles[1]
	assert.Equal(t, "CUST_3", c.CustomerID)
	assert.Equal(t, int64(1), c.TotalOrders)
	assert.True(t, c.TotalSpend.Equal(decimal.NewFromInt(3)))
}

func TestGrouperKeepsAnonymousOrdersApart(t *testing.T) {
	g := NewGrouper()
	g.Add(&model.RawOrder{OrderID: 7, Phone: strPtr("138"), RecordTime: at("2024-01-01 10:00"), TotalAmount: dec("1")})
	g.Add(&model.RawOrder{OrderID: 8, Phone: strPtr("138"), RecordTime: at("2024-01-01 10:00"), TotalAmount: dec("1")})

	assert.Equal(t, 2, g.Len())
	for _, p := range g.Profiles(0) {
		assert.Equal(t, int64(1), p.TotalOrders)
	}
}

func TestGrouperLimit(t *testing.T) {
	g := NewGrouper()
	for _, id := range []string{"c", "a", "b"} {
		g.Add(&model.RawOrder{OrderID: int64(len(id) + int(id[0])), CustomerOpenID: strPtr(id), RecordTime: at("2024-01-01 10:00")})
	}

	profiles := g.Profiles(2)
	require.Len(t, profiles, 2)
	assert.Equal(t, "a", profiles[0].CustomerID)
	assert.Equal(t, "b", profiles[1].CustomerID)

	assert.Len(t, g.Profiles(10), 3)
}

func TestGrouperRecordsAnomalies(t *testing.T) {
	g := NewGrouper()
	g.Add(&model.RawOrder{})
	g.Add(&model.RawOrder{OrderID: 4})

	anomalies := g.Anomalies()
	require.Len(t, anomalies, 2)
	assert.ErrorIs(t, anomalies[0].Err, identity.ErrAnomaly)
	assert.ErrorIs(t, anomalies[1].Err, ErrMissingRecordTime)

	// 累加失败的分组不产生画像
	assert.Empty(t, g.Keys())
	assert.Equal(t, int64(2), g.Orders())
}

func TestGrouperSyntheticIdentityCollidesWithOpenID(t *testing.T) {
	anonymous := &model.RawOrder{OrderID: 3, RecordTime: at("2024-01-03 10:00"), TotalAmount: dec("3")}
	named := &model.RawOrder{OrderID: 9, CustomerOpenID: strPtr("CUST_3"), RecordTime: at("2024-01-04 10:00"), TotalAmount: dec("100")}

	orders := map[string][]*model.RawOrder{
		"anonymous first": {anonymous, named},
		"named first":     {named, anonymous},
	}
	for name, seq := range orders {
		t.Run(name, func(t *testing.T) {
			g := NewGrouper()
			for _, o := range seq {
				g.Add(o)
			}

			assert.Equal(t, []string{"CUST_3"}, g.Keys())
			assert.Equal(t, 1, g.Len())

			profiles := g.Profiles(0)
			require.Len(t, profiles, 1)
			p := profiles[0]
			assert.Equal(t, int64(1), p.TotalOrders)
			assert.True(t, p.TotalSpend.Equal(decimal.NewFromInt(100)))
			require.NotNil(t, p.OpenID)
			assert.Equal(t, "CUST_3", *p.OpenID)

			anomalies := g.Anomalies()
			require.Len(t, anomalies, 1)
			assert.Equal(t, int64(3), anomalies[0].OrderID)
			assert.ErrorIs(t, anomalies[0].Err, identity.ErrAnomaly)
		})
	}
}
