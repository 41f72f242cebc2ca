package store

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/BatmanBruc/jondor-ad-bot/types"
)

func TestBuildPostgresDSNFromEnv(t *testing.T) {
	t.Setenv("POSTGRES_HOST", "db")
	t.Setenv("POSTGRES_PORT", "6543")
	t.Setenv("POSTGRES_DB", "ads")
	t.Setenv("POSTGRES_USER", "bot")
	t.Setenv("POSTGRES_PASSWORD", "p@ss:w/rd")

	want := "postgres://bot:p%40ss%3Aw%2Frd@db:6543/ads?sslmode=disable"
	if got := buildPostgresDSNFromEnv(); got != want {
		t.Errorf("dsn = %q, want %q", got, want)
	}
}

func TestRedisClientGenerateKey(t *testing.T) {
	c := &RedisClient{prefix: "jondor_bot"}
	if got := c.generateKey("session", "1", "2"); got != "jondor_bot:session:1:2" {
		t.Errorf("key = %q", got)
	}
	c = &RedisClient{}
	if got := c.generateKey("session", "1"); got != "session:1" {
		t.Errorf("key without prefix = %q", got)
	}
}

// setupPostgresTest connects to POSTGRES_TEST_DSN and truncates the tables.
// The test is skipped when the variable is unset.
func setupPostgresTest(t *testing.T) *PostgresStore {
	t.Helper()
	dsn := strings.TrimSpace(os.Getenv("POSTGRES_TEST_DSN"))
	if dsn == "" {
		t.Skip("POSTGRES_TEST_DSN not set")
	}
	ctx := context.Background()
	s, err := NewPostgresStore(ctx, dsn, 4)
	if err != nil {
		t.Fatalf("NewPostgresStore failed: %v", err)
	}
	if _, err := s.pool.Exec(ctx, `TRUNCATE ads, blackout_periods, users RESTART IDENTITY CASCADE`); err != nil {
		s.Close()
		t.Fatalf("truncate failed: %v", err)
	}
	t.Cleanup(s.Close)
	return s
}

func TestPostgresStore_UserLifecycle(t *testing.T) {
	s := setupPostgresTest(t)
	ctx := context.Background()

	if _, err := s.GetUser(ctx, 42); !errors.Is(err, types.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	u, err := s.UpsertUser(ctx, 42, "+998900000000", types.Profile{Username: "seller", FirstName: "Ali", LastName: "Valiyev"}, types.RoleClient)
	if err != nil {
		t.Fatalf("UpsertUser failed: %v", err)
	}
	if u.FullName != "Ali Valiyev" || u.Role != types.RoleClient {
		t.Errorf("unexpected user %+v", u)
	}

	// A second upsert only changes the phone.
	u, err = s.UpsertUser(ctx, 42, "+998911111111", types.Profile{Username: "other"}, types.RoleAdmin)
	if err != nil {
		t.Fatalf("second UpsertUser failed: %v", err)
	}
	if u.Phone != "+998911111111" || u.Profile.Username != "seller" || u.Role != types.RoleClient {
		t.Errorf("conflict must update phone only, got %+v", u)
	}

	until := time.Now().Add(48 * time.Hour).UTC().Truncate(time.Second)
	if err := s.ExtendSubscription(ctx, 42, until); err != nil {
		t.Fatalf("ExtendSubscription failed: %v", err)
	}
	if err := s.SetRole(ctx, 42, types.RoleAdmin); err != nil {
		t.Fatalf("SetRole failed: %v", err)
	}
	if err := s.SetRole(ctx, 404, types.RoleAdmin); !errors.Is(err, types.ErrNotFound) {
		t.Errorf("SetRole on missing user: expected ErrNotFound, got %v", err)
	}

	got, err := s.GetUser(ctx, 42)
	if err != nil {
		t.Fatalf("GetUser failed: %v", err)
	}
	if got.SubscriptionUntil == nil || !got.SubscriptionUntil.Equal(until) {
		t.Errorf("subscription = %v, want %v", got.SubscriptionUntil, until)
	}
	if got.Role != types.RoleAdmin {
		t.Errorf("role = %q", got.Role)
	}

	if _, err := s.UpsertUser(ctx, 43, "", types.Profile{}, types.RoleSuperadmin); err != nil {
		t.Fatalf("UpsertUser 43 failed: %v", err)
	}
	listed, err := s.ListUsers(ctx, types.RoleClient, types.RoleAdmin)
	if err != nil {
		t.Fatalf("ListUsers failed: %v", err)
	}
	if len(listed) != 1 || listed[0].TelegramID != 42 {
		t.Errorf("ListUsers(client, admin) = %d users", len(listed))
	}
}

func TestPostgresStore_AdPublish(t *testing.T) {
	s := setupPostgresTest(t)
	ctx := context.Background()

	if _, err := s.UpsertUser(ctx, 7, "+1", types.Profile{}, types.RoleClient); err != nil {
		t.Fatalf("UpsertUser failed: %v", err)
	}
	text := "X"
	ad, err := s.CreateAd(ctx, 7, []string{"photo-1", "audio-1"}, &text)
	if err != nil {
		t.Fatalf("CreateAd failed: %v", err)
	}
	if ad.Status != types.AdStatusApproved || len(ad.MediaRefs) != 2 || ad.SentAt != nil {
		t.Errorf("unexpected ad %+v", ad)
	}

	ts := time.Now().UTC().Truncate(time.Second)
	if err := s.MarkAdPublished(ctx, ad.ID, 7, ts); err != nil {
		t.Fatalf("MarkAdPublished failed: %v", err)
	}
	if err := s.MarkAdPublished(ctx, ad.ID, 7, ts.Add(time.Minute)); !errors.Is(err, types.ErrNotFound) {
		t.Errorf("sent_at must be set at most once, got %v", err)
	}
	u, err := s.GetUser(ctx, 7)
	if err != nil {
		t.Fatalf("GetUser failed: %v", err)
	}
	if u.LastAdAt == nil || !u.LastAdAt.Equal(ts) {
		t.Errorf("last ad = %v, want %v", u.LastAdAt, ts)
	}
}

func TestPostgresStore_Blackouts(t *testing.T) {
	s := setupPostgresTest(t)
	ctx := context.Background()
	start := time.Date(2030, 1, 1, 10, 0, 0, 0, time.UTC)
	end := start.Add(2 * time.Hour)

	if _, err := s.AddBlackout(ctx, end, start, 1); !errors.Is(err, types.ErrInvalidRange) {
		t.Fatalf("reversed range: expected ErrInvalidRange, got %v", err)
	}
	if list, _ := s.ListBlackouts(ctx, 0); len(list) != 0 {
		t.Fatalf("rejected blackout must not be written, found %d", len(list))
	}

	p, err := s.AddBlackout(ctx, start, end, 1)
	if err != nil {
		t.Fatalf("AddBlackout failed: %v", err)
	}

	for _, at := range []time.Time{start, end, start.Add(time.Hour)} {
		active, err := s.GetActiveBlackout(ctx, at)
		if err != nil || active == nil || active.ID != p.ID {
			t.Errorf("at %v: active = %+v, err = %v", at, active, err)
		}
	}
	if active, err := s.GetActiveBlackout(ctx, end.Add(time.Second)); err != nil || active != nil {
		t.Errorf("after end: active = %+v, err = %v", active, err)
	}

	if err := s.DeleteBlackout(ctx, p.ID); err != nil {
		t.Fatalf("DeleteBlackout failed: %v", err)
	}
	if err := s.DeleteBlackout(ctx, p.ID); !errors.Is(err, types.ErrNotFound) {
		t.Errorf("second delete: expected ErrNotFound, got %v", err)
	}
}
