package ledger

import "math"

// Convert turns a points amount into currency at the given rate
// (1 point = rate currency units).
func Convert(points int64, rate float64) float64 {
	return float64(points) * rate
}

// ConvertInverse turns a currency amount into points at the given rate,
// rounding to the nearest whole point.
func ConvertInverse(amount, rate float64) int64 {
	if rate == 0 {
		return 0
	}
	return int64(math.Round(amount / rate))
}

// WithdrawalFee computes the fee and resulting payout for a withdrawal
// request. Both use the fee percentage snapshotted at request creation.
func WithdrawalFee(amount, feePercent float64) (fee, payout float64) {
	fee = amount * feePercent / 100
	return fee, amount - fee
}
