package pricing

import (
	"math"
	"testing"

	"agency_portal/internal/domain/entities"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTotal(t *testing.T) {
	items := []entities.LineItem{
		{ServiceType: entities.ServiceTypeWebsite, Quantity: 1, UnitPrice: 350000},
		{ServiceType: entities.ServiceTypeSEO, Quantity: 2, UnitPrice: 55000},
	}
	total, err := Total(items)
	require.NoError(t, err)
	assert.Equal(t, int64(460000), total)

	total, err = Total(nil)
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestTotal_IgnoresStoredLineTotal(t *testing.T) {
	total, err := Total([]entities.LineItem{{Quantity: 3, UnitPrice: 100, LineTotal: 1}})
	require.NoError(t, err)
	assert.Equal(t, int64(300), total)
}

func TestTotal_RejectsNegativeValues(t *testing.T) {
	_, err := Total([]entities.LineItem{{Quantity: -1, UnitPrice: 100}})
	assert.ErrorIs(t, err, ErrInvalidLineItem)

	_, err = Total([]entities.LineItem{{Quantity: 1, UnitPrice: -100}})
	assert.ErrorIs(t, err, ErrInvalidLineItem)
	assert.Equal(t, "Invalid line item", ErrInvalidLineItem.Error())
}

func TestTotal_Overflow(t *testing.T) {
	_, err := LineTotal(math.MaxInt64, 2)
	assert.ErrorIs(t, err, ErrAmountOverflow)

	_, err = Total([]entities.LineItem{
		{Quantity: 1, UnitPrice: math.MaxInt64},
		{Quantity: 1, UnitPrice: 1},
	})
	assert.ErrorIs(t, err, ErrAmountOverflow)
}

func TestDeposit(t *testing.T) {
	cases := []struct {
		name    string
		plan    entities.BillingPlanType
		total   int64
		percent int
		want    int64
	}{
		{name: "split half", plan: entities.BillingPlanSplit, total: 460000, percent: 50, want: 230000},
		{name: "split truncates", plan: entities.BillingPlanSplit, total: 999, percent: 33, want: 329},
		{name: "split full", plan: entities.BillingPlanSplit, total: 12345, percent: 100, want: 12345},
		{name: "upfront ignores percent", plan: entities.BillingPlanFullUpfront, total: 460000, percent: 50, want: 0},
		{name: "retainer", plan: entities.BillingPlanMonthlyRetainer, total: 100, percent: 10, want: 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Deposit(tc.plan, tc.total, tc.percent)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
			assert.LessOrEqual(t, got, tc.total)
		})
	}

	_, err := Deposit(entities.BillingPlanSplit, 100, 101)
	assert.ErrorIs(t, err, ErrInvalidDepositPercent)
	_, err = Deposit(entities.BillingPlanSplit, 100, -1)
	assert.ErrorIs(t, err, ErrInvalidDepositPercent)

	got, err := Deposit(entities.BillingPlanSplit, math.MaxInt64, 100)
	require.NoError(t, err)
	assert.Equal(t, int64(math.MaxInt64), got)
}
