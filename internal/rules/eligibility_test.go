package rules

import (
	"errors"
	"testing"
	"time"

	"github.com/BatmanBruc/jondor-ad-bot/types"
)

var now = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func ptr(t time.Time) *time.Time { return &t }

func TestCheckEligibility_PrivilegedBypass(t *testing.T) {
	blackout := &types.BlackoutPeriod{Start: now.Add(-time.Hour), End: now.Add(time.Hour)}
	for _, role := range []types.Role{types.RoleAdmin, types.RoleSuperadmin} {
		user := &types.User{
			TelegramID: 1,
			Role:       role,
			LastAdAt:   ptr(now.Add(-time.Minute)),
		}
		if err := CheckEligibility(user, now, blackout); err != nil {
			t.Errorf("role %s: expected bypass, got %v", role, err)
		}
	}
}

func TestCheckEligibility_NotRegistered(t *testing.T) {
	if err := CheckEligibility(nil, now, nil); !errors.Is(err, types.ErrNotRegistered) {
		t.Fatalf("expected ErrNotRegistered, got %v", err)
	}
}

func TestCheckEligibility_Subscription(t *testing.T) {
	tests := []struct {
		name  string
		until *time.Time
	}{
		{"absent", nil},
		{"expired", ptr(now.Add(-time.Second))},
		{"equal to now", ptr(now)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			user := &types.User{Role: types.RoleClient, SubscriptionUntil: tt.until}
			err := CheckEligibility(user, now, nil)
			if !errors.Is(err, types.ErrSubscriptionExpired) {
				t.Fatalf("expected ErrSubscriptionExpired, got %v", err)
			}
		})
	}
}

func TestCheckEligibility_BlackoutClosedInterval(t *testing.T) {
	user := &types.User{Role: types.RoleClient, SubscriptionUntil: ptr(now.Add(24 * time.Hour))}
	periods := []*types.BlackoutPeriod{
		{Start: now, End: now.Add(time.Hour)},
		{Start: now.Add(-time.Hour), End: now},
		{Start: now.Add(-time.Hour), End: now.Add(time.Hour)},
	}
	for i, p := range periods {
		err := CheckEligibility(user, now, p)
		var be *BlackoutActiveError
		if !errors.As(err, &be) {
			t.Fatalf("period %d: expected BlackoutActiveError, got %v", i, err)
		}
		if !be.Until.Equal(p.End) {
			t.Errorf("period %d: until = %v, want %v", i, be.Until, p.End)
		}
	}

	outside := &types.BlackoutPeriod{Start: now.Add(time.Minute), End: now.Add(time.Hour)}
	if err := CheckEligibility(user, now, outside); err != nil {
		t.Errorf("period outside now must not block, got %v", err)
	}
}

func TestCheckEligibility_SubscriptionBeforeBlackout(t *testing.T) {
	user := &types.User{Role: types.RoleClient}
	blackout := &types.BlackoutPeriod{Start: now.Add(-time.Hour), End: now.Add(time.Hour)}
	if err := CheckEligibility(user, now, blackout); !errors.Is(err, types.ErrSubscriptionExpired) {
		t.Fatalf("expected subscription failure first, got %v", err)
	}
}

func TestCheckEligibility_Cooldown(t *testing.T) {
	for _, ago := range []time.Duration{0, time.Minute, 90 * time.Minute, 4*time.Hour - time.Second} {
		user := &types.User{
			Role:              types.RoleClient,
			SubscriptionUntil: ptr(now.Add(24 * time.Hour)),
			LastAdAt:          ptr(now.Add(-ago)),
		}
		err := CheckEligibility(user, now, nil)
		var ce *CooldownActiveError
		if !errors.As(err, &ce) {
			t.Fatalf("last ad %s ago: expected CooldownActiveError, got %v", ago, err)
		}
		if want := AdCooldown - ago; ce.Remaining != want {
			t.Errorf("last ad %s ago: remaining = %s, want %s", ago, ce.Remaining, want)
		}
	}
}

func TestCheckEligibility_CooldownElapsed(t *testing.T) {
	user := &types.User{
		Role:              types.RoleClient,
		SubscriptionUntil: ptr(now.Add(24 * time.Hour)),
		LastAdAt:          ptr(now.Add(-AdCooldown)),
	}
	if err := CheckEligibility(user, now, nil); err != nil {
		t.Fatalf("expected eligible after exactly 4h, got %v", err)
	}
}
