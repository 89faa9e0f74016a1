package aggregate

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"customer-profile-sync/internal/identity"
	"customer-profile-sync/internal/model"
)

func strPtr(s string) *string { return &s }
func i64Ptr(v int64) *int64   { return &v }

func dec(s string) decimal.NullDecimal {
	return decimal.NullDecimal{Decimal: decimal.RequireFromString(s), Valid: true}
}

func at(s string) *time.Time {
	t, err := time.Parse("2006-01-02 15:04", s)
	if err != nil {
		panic(err)
	}
	return &t
}

func TestEffectiveAmount(t *testing.T) {
	cases := []struct {
		name  string
		cash  decimal.NullDecimal
		total decimal.NullDecimal
		want  string
	}{
		{"positive cash wins", dec("10"), dec("12"), "10"},
		{"zero cash falls back to total", dec("0"), dec("5"), "5"},
		{"negative cash falls back to total", dec("-1"), dec("5"), "5"},
		{"null cash falls back to total", decimal.NullDecimal{}, dec("5"), "5"},
		{"both null is zero", decimal.NullDecimal{}, decimal.NullDecimal{}, "0"},
		{"zero total is kept", dec("0"), dec("0"), "0"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := EffectiveAmount(&model.RawOrder{CashAmount: tc.cash, TotalAmount: tc.total})
			assert.True(t, decimal.RequireFromString(tc.want).Equal(got), "got %s", got)
		})
	}
}

func TestAverage(t *testing.T) {
	assert.True(t, Average(decimal.NewFromInt(15), 2).Equal(decimal.RequireFromString("7.5")))
	assert.True(t, Average(decimal.NewFromInt(10), 3).Equal(decimal.RequireFromString("3.33")))
	assert.True(t, Average(decimal.NewFromInt(10), 0).IsZero())
}

func TestAccumulatorProfile(t *testing.T) {
	acc := NewAccumulator(identity.Identity{Key: "A"})
	require.NoError(t, acc.Add(&model.RawOrder{
		OrderID: 1, CustomerOpenID: strPtr("A"), VipID: i64Ptr(100), Phone: strPtr("111"),
		RecordTime: at("2024-03-05 20:30"), CashAmount: dec("10"), TotalAmount: dec("10"),
	}))
	require.NoError(t, acc.Add(&model.RawOrder{
		OrderID: 2, CustomerOpenID: strPtr("A"), Phone: strPtr("222"),
		RecordTime: at("2024-01-02 08:15"), CashAmount: dec("0"), TotalAmount: dec("5"),
	}))

	p := acc.Profile()
	assert.Equal(t, "A", p.CustomerID)
	require.NotNil(t, p.OpenID)
	assert.Equal(t, "A", *p.OpenID)
	assert.Equal(t, int64(2), p.TotalOrders)
	assert.True(t, p.TotalSpend.Equal(decimal.NewFromInt(15)))
	assert.True(t, p.AvgOrderAmount.Equal(decimal.RequireFromString("7.5")))
	assert.Equal(t, "2024-01-02", p.FirstOrderDate.Format("2006-01-02"))
	assert.Equal(t, "2024-03-05", p.LastOrderDate.Format("2006-01-02"))
	assert.Zero(t, p.FirstOrderDate.Hour())

	// 会员号和手机号取最近一笔携带该字段的订单
	require.NotNil(t, p.VipNum)
	assert.Equal(t, int64(100), *p.VipNum)
	require.NotNil(t, p.Phone)
	assert.Equal(t, "111", *p.Phone)

	assert.Nil(t, p.CustomerSegment)
	assert.Nil(t, p.RFMScore)
	assert.Nil(t, p.AgeGroup)
}

func TestAccumulatorCountsDistinctOrders(t *testing.T) {
	acc := NewAccumulator(identity.Identity{Key: "A"})
	o := &model.RawOrder{OrderID: 1, RecordTime: at("2024-01-01 10:00"), TotalAmount: dec("4")}
	require.NoError(t, acc.Add(o))
	require.NoError(t, acc.Add(o))

	p := acc.Profile()
	assert.Equal(t, int64(1), p.TotalOrders)
	assert.True(t, p.TotalSpend.Equal(decimal.NewFromInt(4)))
}

func TestAccumulatorRejectsMissingRecordTime(t *testing.T) {
	acc := NewAccumulator(identity.Identity{Key: "A"})
	err := acc.Add(&model.RawOrder{OrderID: 1})
	assert.ErrorIs(t, err, ErrMissingRecordTime)
	assert.Zero(t, acc.Orders())
}

func TestAccumulatorSyntheticHasNoOpenID(t *testing.T) {
	acc := NewAccumulator(identity.Identity{Key: "CUST_3", Synthetic: true})
	require.NoError(t, acc.Add(&model.RawOrder{OrderID: 3, RecordTime: at("2024-01-01 10:00"), CashAmount: dec("3"), TotalAmount: dec("3")}))
	assert.Nil(t, acc.Profile().OpenID)
}

func TestEmptyAccumulatorAverageIsZero(t *testing.T) {
	p := NewAccumulator(identity.Identity{Key: "A"}).Profile()
	assert.Zero(t, p.TotalOrders)
	assert.True(t, p.AvgOrderAmount.IsZero())
}

func TestDecimalSumHasNoDrift(t *testing.T) {
	acc := NewAccumulator(identity.Identity{Key: "A"})
	for i := int64(1); i <= 30000; i++ {
		require.NoError(t, acc.Add(&model.RawOrder{OrderID: i, RecordTime: at("2024-01-01 10:00"), CashAmount: dec("0.10")}))
	}
	assert.Equal(t, "3000", acc.Profile().TotalSpend.String())
}
