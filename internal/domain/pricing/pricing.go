// Package pricing computes proposal totals and deposits in integer minor units.
package pricing

import (
	"errors"
	"math"

	"agency_portal/internal/domain/entities"
)

var (
	ErrInvalidLineItem       = errors.New("Invalid line item")
	ErrInvalidDepositPercent = errors.New("invalid deposit percent")
	ErrAmountOverflow        = errors.New("amount overflows minor units")
)

// LineTotal returns quantity * unitPrice.
func LineTotal(quantity, unitPrice int64) (int64, error) {
	if quantity < 0 || unitPrice < 0 {
		return 0, ErrInvalidLineItem
	}
	if unitPrice != 0 && quantity > math.MaxInt64/unitPrice {
		return 0, ErrAmountOverflow
	}
	return quantity * unitPrice, nil
}

// Total sums quantity * unit price over items. Stored line totals are
// ignored so a stale row can never leak into the aggregate.
func Total(items []entities.LineItem) (int64, error) {
	var total int64
	for _, it := range items {
		lt, err := LineTotal(it.Quantity, it.UnitPrice)
		if err != nil {
			return 0, err
		}
		if total > math.MaxInt64-lt {
			return 0, ErrAmountOverflow
		}
		total += lt
	}
	return total, nil
}

// Deposit returns total * percent / 100 for split plans and 0 otherwise.
// The result is truncated toward zero, so it never exceeds total.
func Deposit(planType entities.BillingPlanType, total int64, percent int) (int64, error) {
	if percent < 0 || percent > 100 {
		return 0, ErrInvalidDepositPercent
	}
	if total < 0 {
		return 0, ErrInvalidLineItem
	}
	if planType != entities.BillingPlanSplit {
		return 0, nil
	}
	// total/100*percent + remainder keeps the intermediate inside int64.
	return total/100*int64(percent) + total%100*int64(percent)/100, nil
}
