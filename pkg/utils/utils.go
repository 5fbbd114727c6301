package utils

import (
	"time"

	"github.com/shopspring/decimal"
)

// MoneyPlaces is the number of fraction digits carried by MXN amounts.
const MoneyPlaces = 2

// CalculatePeriodPayment calculates the fixed installment of a payment plan
// Formula: Total / Periods, rounded to cents
func CalculatePeriodPayment(total decimal.Decimal, periods int) decimal.Decimal {
	if periods <= 0 {
		return decimal.Zero
	}
	return total.Div(decimal.NewFromInt(int64(periods))).Round(MoneyPlaces)
}

// InstallmentAmount returns the amount due for a given installment number.
// The last installment absorbs the rounding difference so the plan sums to
// exactly the total.
func InstallmentAmount(total decimal.Decimal, periods, number int) decimal.Decimal {
	periodPayment := CalculatePeriodPayment(total, periods)
	if number < periods {
		return periodPayment
	}
	return total.Sub(periodPayment.Mul(decimal.NewFromInt(int64(periods - 1))))
}

// IsPayablePlan reports whether every installment of the plan is a positive
// amount. Plans where the per-period payment rounds to zero, or where the
// rounded-up installments alone reach the total, leave nothing positive for
// the last installment.
func IsPayablePlan(total decimal.Decimal, periods int) bool {
	periodPayment := CalculatePeriodPayment(total, periods)
	if !periodPayment.IsPositive() {
		return false
	}
	return periodPayment.Mul(decimal.NewFromInt(int64(periods - 1))).LessThan(total)
}

// CalculateDueDate calculates the due date for a given installment.
// Installment 1 is due on the start date, then one per month.
func CalculateDueDate(startDate time.Time, number int) time.Time {
	return startDate.AddDate(0, number-1, 0)
}

// IsDateOverdue checks if a due date is strictly before the reference day
func IsDateOverdue(dueDate, now time.Time) bool {
	return TruncateToDay(now).After(TruncateToDay(dueDate))
}

// TruncateToDay drops the clock part keeping the location
func TruncateToDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// HasMoneyPrecision reports whether the amount has at most two fraction digits
func HasMoneyPrecision(amount decimal.Decimal) bool {
	return amount.Equal(amount.Round(MoneyPlaces))
}

// DecimalFromString converts string to decimal.Decimal
func DecimalFromString(s string) (decimal.Decimal, error) {
	return decimal.NewFromString(s)
}
