package types

import (
	"context"
	"fmt"
	"strings"
	"time"
)

type Role string

const (
	RoleClient     Role = "client"
	RoleAdmin      Role = "admin"
	RoleSuperadmin Role = "superadmin"
)

// Capability is a permission granted to a set of roles.
type Capability int

const (
	// CapBypassLimits skips subscription, blackout and cooldown checks.
	CapBypassLimits Capability = iota
	CapAdminConsole
	CapManageRoles
)

var roleCapabilities = map[Role][]Capability{
	RoleClient:     nil,
	RoleAdmin:      {CapBypassLimits, CapAdminConsole},
	RoleSuperadmin: {CapBypassLimits, CapAdminConsole, CapManageRoles},
}

func ParseRole(s string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := roleCapabilities[r]; !ok {
		return "", fmt.Errorf("%w: unknown role %q", ErrInvalidInputFormat, s)
	}
	return r, nil
}

func (r Role) Valid() bool {
	_, ok := roleCapabilities[r]
	return ok
}

func (r Role) Can(c Capability) bool {
	for _, granted := range roleCapabilities[r] {
		if granted == c {
			return true
		}
	}
	return false
}

type Profile struct {
	Username     string
	FirstName    string
	LastName     string
	LanguageCode string
	IsBot        bool
}

func (p Profile) FullName() string {
	return strings.TrimSpace(strings.TrimSpace(p.FirstName) + " " + strings.TrimSpace(p.LastName))
}

type User struct {
	TelegramID        int64
	Phone             string
	Profile           Profile
	FullName          string
	Role              Role
	SubscriptionUntil *time.Time
	LastAdAt          *time.Time
	CreatedAt         time.Time
}

func (u *User) HasActiveSubscription(now time.Time) bool {
	return u != nil && u.SubscriptionUntil != nil && u.SubscriptionUntil.After(now)
}

// DisplayName falls back from full name to username to the numeric id.
func (u *User) DisplayName() string {
	if n := strings.TrimSpace(u.FullName); n != "" {
		return n
	}
	if n := strings.TrimSpace(u.Profile.Username); n != "" {
		return n
	}
	return fmt.Sprintf("ID%d", u.TelegramID)
}

type AdStatus string

const (
	AdStatusPending  AdStatus = "pending"
	AdStatusApproved AdStatus = "approved"
	AdStatusRejected AdStatus = "rejected"
)

type Ad struct {
	ID        int64
	UserID    int64
	MediaRefs []string
	Text      *string
	Status    AdStatus
	CreatedAt time.Time
	SentAt    *time.Time
}

type BlackoutPeriod struct {
	ID        int64
	Start     time.Time
	End       time.Time
	CreatedBy int64
	CreatedAt time.Time
}

// Contains reports whether t lies in the closed interval [Start, End].
func (p *BlackoutPeriod) Contains(t time.Time) bool {
	return p != nil && !t.Before(p.Start) && !t.After(p.End)
}

type UserStore interface {
	GetUser(ctx context.Context, telegramID int64) (*User, error)
	UpsertUser(ctx context.Context, telegramID int64, phone string, profile Profile, role Role) (*User, error)
	SetRole(ctx context.Context, telegramID int64, role Role) error
	ListUsers(ctx context.Context, roles ...Role) ([]*User, error)
	UpdateLastAdTime(ctx context.Context, telegramID int64, ts time.Time) error
	ExtendSubscription(ctx context.Context, telegramID int64, until time.Time) error
}

type AdStore interface {
	CreateAd(ctx context.Context, userID int64, mediaRefs []string, text *string) (*Ad, error)
	MarkAdSent(ctx context.Context, adID int64, ts time.Time) error
	// MarkAdPublished stamps the ad's sent time and the owner's last ad time together.
	MarkAdPublished(ctx context.Context, adID, userID int64, ts time.Time) error
}

type BlackoutStore interface {
	AddBlackout(ctx context.Context, start, end time.Time, createdBy int64) (*BlackoutPeriod, error)
	GetActiveBlackout(ctx context.Context, now time.Time) (*BlackoutPeriod, error)
	ListBlackouts(ctx context.Context, limit int) ([]*BlackoutPeriod, error)
	DeleteBlackout(ctx context.Context, id int64) error
}

type Gateway interface {
	UserStore
	AdStore
	BlackoutStore
}
