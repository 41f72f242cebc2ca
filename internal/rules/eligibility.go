// Package rules holds the pure business rules: ad eligibility, subscription
// extension math and the admin input formats.
package rules

import (
	"fmt"
	"time"

	"github.com/BatmanBruc/jondor-ad-bot/types"
)

const AdCooldown = 4 * time.Hour

type BlackoutActiveError struct {
	Until time.Time
}

func (e *BlackoutActiveError) Error() string {
	return fmt.Sprintf("publishing is blocked until %s", e.Until.UTC().Format(time.RFC3339))
}

type CooldownActiveError struct {
	Remaining time.Duration
}

func (e *CooldownActiveError) Error() string {
	return fmt.Sprintf("cooldown active, %s remaining", e.Remaining)
}

// CheckEligibility decides whether user may publish an ad at now. The checks run
// in a fixed order and the first failure is returned. activeBlackout is the
// period the caller found for now, nil when none.
func CheckEligibility(user *types.User, now time.Time, activeBlackout *types.BlackoutPeriod) error {
	if user == nil {
		return types.ErrNotRegistered
	}
	if user.Role.Can(types.CapBypassLimits) {
		return nil
	}
	if !user.HasActiveSubscription(now) {
		return types.ErrSubscriptionExpired
	}
	if activeBlackout.Contains(now) {
		return &BlackoutActiveError{Until: activeBlackout.End}
	}
	if user.LastAdAt != nil {
		elapsed := now.Sub(*user.LastAdAt)
		if elapsed < AdCooldown {
			return &CooldownActiveError{Remaining: AdCooldown - elapsed}
		}
	}
	return nil
}
