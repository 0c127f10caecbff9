package market

import (
	"fmt"
	"math"
	"time"

	"github.com/shopspring/decimal"
)

var maxInt64 = decimal.NewFromInt(math.MaxInt64)

// toAmount converts an on-chain u64 amount to int64.
func toAmount(field string, d decimal.Decimal) (int64, error) {
	if !d.IsInteger() || d.IsNegative() || d.GreaterThan(maxInt64) {
		return 0, fmt.Errorf("%w: %s = %s", ErrMalformed, field, d.String())
	}
	return d.IntPart(), nil
}

// toExpiry converts a millisecond timestamp. Zero means no expiry.
func toExpiry(field string, d decimal.Decimal) (*time.Time, error) {
	ms, err := toAmount(field, d)
	if err != nil {
		return nil, err
	}
	if ms == 0 {
		return nil, nil
	}
	t := time.UnixMilli(ms).UTC()
	return &t, nil
}
