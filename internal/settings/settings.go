package settings

import (
	"context"
	"fmt"
)

// Settings holds the tunable platform values consulted by the engine.
// Values are read at call time and snapshotted into created requests, so
// later changes never alter in-flight payouts.
type Settings struct {
	// ConversionRate is currency units per point (1 point = rate BDT).
	ConversionRate         float64 `json:"conversion_rate"`
	WithdrawalFeePercent   float64 `json:"withdrawal_fee_percent"`
	MinWithdrawal          float64 `json:"min_withdrawal"`
	ReferralRewardUser     int64   `json:"referral_reward_user"`
	ReferralRewardReferrer int64   `json:"referral_reward_referrer"`
	AdFreePrice            float64 `json:"ad_free_price"`
	EarningEnabled         bool    `json:"earning_enabled"`
	ReferralEnabled        bool    `json:"referral_enabled"`
}

// Defaults returns the platform launch configuration.
func Defaults() Settings {
	return Settings{
		ConversionRate:         0.5,
		WithdrawalFeePercent:   10,
		MinWithdrawal:          500,
		ReferralRewardUser:     20,
		ReferralRewardReferrer: 100,
		AdFreePrice:            200,
		EarningEnabled:         true,
		ReferralEnabled:        true,
	}
}

// Validate rejects values that would corrupt payout arithmetic.
func (s Settings) Validate() error {
	if s.ConversionRate <= 0 {
		return fmt.Errorf("conversion rate must be positive")
	}
	if s.WithdrawalFeePercent < 0 || s.WithdrawalFeePercent > 100 {
		return fmt.Errorf("withdrawal fee percent must be between 0 and 100")
	}
	if s.MinWithdrawal < 0 {
		return fmt.Errorf("minimum withdrawal must not be negative")
	}
	if s.ReferralRewardUser < 0 || s.ReferralRewardReferrer < 0 {
		return fmt.Errorf("referral rewards must not be negative")
	}
	if s.AdFreePrice < 0 {
		return fmt.Errorf("ad-free price must not be negative")
	}
	return nil
}

// Source supplies the current settings and accepts administrative updates.
type Source interface {
	Load(ctx context.Context) (Settings, error)
	Save(ctx context.Context, s Settings) error
}
