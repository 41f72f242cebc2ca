package rules

import (
	"fmt"
	"strings"
	"time"

	"github.com/BatmanBruc/jondor-ad-bot/types"
)

const (
	DateLayout     = "02.01.2006"
	DateTimeLayout = "02.01.2006 15:04"

	daysPerMonth = 30
)

// ExtendByMonths adds months*30 days to the later of the current expiry and now,
// so an active subscription keeps its remaining time.
func ExtendByMonths(current *time.Time, now time.Time, months int) time.Time {
	base := now
	if current != nil && current.After(now) {
		base = *current
	}
	return base.Add(time.Duration(months*daysPerMonth) * 24 * time.Hour)
}

// ParseCustomExpiry reads an absolute expiry date in UTC. The date must be
// strictly after now.
func ParseCustomExpiry(input string, now time.Time) (time.Time, error) {
	until, err := time.ParseInLocation(DateLayout, strings.TrimSpace(input), time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", types.ErrInvalidInputFormat, input)
	}
	if !until.After(now) {
		return time.Time{}, types.ErrPastOrInvalidDate
	}
	return until, nil
}

func ParseBlackoutTime(input string) (time.Time, error) {
	t, err := time.ParseInLocation(DateTimeLayout, strings.TrimSpace(input), time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", types.ErrInvalidInputFormat, input)
	}
	return t, nil
}

func ValidateBlackoutRange(start, end time.Time) error {
	if !end.After(start) {
		return types.ErrInvalidRange
	}
	return nil
}
