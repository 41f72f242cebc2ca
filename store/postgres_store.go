package store

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BatmanBruc/jondor-ad-bot/internal/rules"
	"github.com/BatmanBruc/jondor-ad-bot/types"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

const (
	queryTimeout = 5 * time.Second
	txTimeout    = 10 * time.Second

	DefaultBlackoutListLimit = 20
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// PostgresStore is the only component that talks to durable storage. It owns
// the connection pool handed to it at construction.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, dsn string, maxConns int32) (*PostgresStore, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		dsn = buildPostgresDSNFromEnv()
	}
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if maxConns > 0 {
		cfg.MaxConns = maxConns
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	s := &PostgresStore{pool: pool}
	if err := s.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if err := s.runMigrations(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return s, nil
}

func (s *PostgresStore) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	return s.pool.Ping(ctx)
}

func buildPostgresDSNFromEnv() string {
	host := strings.TrimSpace(os.Getenv("POSTGRES_HOST"))
	if host == "" {
		host = "localhost"
	}
	port := strings.TrimSpace(os.Getenv("POSTGRES_PORT"))
	if port == "" {
		port = "5432"
	}
	db := strings.TrimSpace(os.Getenv("POSTGRES_DB"))
	if db == "" {
		db = "jondor_bot"
	}
	user := strings.TrimSpace(os.Getenv("POSTGRES_USER"))
	if user == "" {
		user = "jondor_bot"
	}
	pass := os.Getenv("POSTGRES_PASSWORD")
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable", urlEscape(user), urlEscape(pass), host, port, db)
}

func urlEscape(s string) string {
	r := strings.NewReplacer(
		"%", "%25",
		":", "%3A",
		"/", "%2F",
		"@", "%40",
		"?", "%3F",
		"#", "%23",
		"[", "%5B",
		"]", "%5D",
	)
	return r.Replace(s)
}

func (s *PostgresStore) runMigrations(ctx context.Context) error {
	db := stdlib.OpenDB(*s.pool.Config().ConnConfig)
	defer db.Close()

	goose.SetBaseFS(migrationsFS)
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}
	return goose.UpContext(ctx, db, "migrations")
}

func notFound(err error, what string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s: %w", what, types.ErrNotFound)
	}
	return err
}

const userColumns = `telegram_id, phone, username, first_name, last_name, full_name, language_code, is_bot, role, subscription_until, last_ad_at, created_at`

func scanUser(row pgx.Row) (*types.User, error) {
	var u types.User
	var role string
	err := row.Scan(
		&u.TelegramID, &u.Phone, &u.Profile.Username, &u.Profile.FirstName, &u.Profile.LastName,
		&u.FullName, &u.Profile.LanguageCode, &u.Profile.IsBot, &role,
		&u.SubscriptionUntil, &u.LastAdAt, &u.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	u.Role = types.Role(role)
	return &u, nil
}

func (s *PostgresStore) GetUser(ctx context.Context, telegramID int64) (*types.User, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	u, err := scanUser(s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE telegram_id = $1`, telegramID))
	if err != nil {
		return nil, notFound(err, fmt.Sprintf("user %d", telegramID))
	}
	return u, nil
}

// UpsertUser inserts a user. When the telegram id already exists only the phone
// is updated; the stored row is returned either way.
func (s *PostgresStore) UpsertUser(ctx context.Context, telegramID int64, phone string, profile types.Profile, role types.Role) (*types.User, error) {
	if !role.Valid() {
		return nil, fmt.Errorf("upsert user %d: %w: role %q", telegramID, types.ErrInvalidInputFormat, role)
	}
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	return scanUser(s.pool.QueryRow(ctx, `
INSERT INTO users (telegram_id, phone, username, first_name, last_name, full_name, language_code, is_bot, role)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
ON CONFLICT (telegram_id) DO UPDATE SET
  phone = EXCLUDED.phone
RETURNING `+userColumns,
		telegramID, strings.TrimSpace(phone), strings.TrimSpace(profile.Username),
		strings.TrimSpace(profile.FirstName), strings.TrimSpace(profile.LastName), profile.FullName(),
		strings.TrimSpace(profile.LanguageCode), profile.IsBot, string(role),
	))
}

func (s *PostgresStore) SetRole(ctx context.Context, telegramID int64, role types.Role) error {
	if !role.Valid() {
		return fmt.Errorf("set role: %w: %q", types.ErrInvalidInputFormat, role)
	}
	return s.execOne(ctx, fmt.Sprintf("user %d", telegramID),
		`UPDATE users SET role = $1 WHERE telegram_id = $2`, string(role), telegramID)
}

// ListUsers returns users newest first. With no roles every user is returned.
func (s *PostgresStore) ListUsers(ctx context.Context, roles ...types.Role) ([]*types.User, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var (
		rows pgx.Rows
		err  error
	)
	if len(roles) == 0 {
		rows, err = s.pool.Query(ctx, `SELECT `+userColumns+` FROM users ORDER BY created_at DESC`)
	} else {
		names := make([]string, 0, len(roles))
		for _, r := range roles {
			names = append(names, string(r))
		}
		rows, err = s.pool.Query(ctx, `SELECT `+userColumns+` FROM users WHERE role = ANY($1) ORDER BY created_at DESC`, names)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]*types.User, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (s *PostgresStore) UpdateLastAdTime(ctx context.Context, telegramID int64, ts time.Time) error {
	return s.execOne(ctx, fmt.Sprintf("user %d", telegramID),
		`UPDATE users SET last_ad_at = $1 WHERE telegram_id = $2`, ts.UTC(), telegramID)
}

func (s *PostgresStore) ExtendSubscription(ctx context.Context, telegramID int64, until time.Time) error {
	return s.execOne(ctx, fmt.Sprintf("user %d", telegramID),
		`UPDATE users SET subscription_until = $1 WHERE telegram_id = $2`, until.UTC(), telegramID)
}

func (s *PostgresStore) CreateAd(ctx context.Context, userID int64, mediaRefs []string, text *string) (*types.Ad, error) {
	if mediaRefs == nil {
		mediaRefs = []string{}
	}
	media, err := json.Marshal(mediaRefs)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var (
		ad     types.Ad
		raw    []byte
		status string
	)
	err = s.pool.QueryRow(ctx, `
INSERT INTO ads (user_id, media_file_ids, text, status)
VALUES ($1, $2::jsonb, $3, $4)
RETURNING id, user_id, media_file_ids, text, status, created_at, sent_at
`, userID, string(media), text, string(types.AdStatusApproved)).
		Scan(&ad.ID, &ad.UserID, &raw, &ad.Text, &status, &ad.CreatedAt, &ad.SentAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(raw, &ad.MediaRefs); err != nil {
		return nil, fmt.Errorf("decode media of ad %d: %w", ad.ID, err)
	}
	ad.Status = types.AdStatus(status)
	return &ad, nil
}

func (s *PostgresStore) MarkAdSent(ctx context.Context, adID int64, ts time.Time) error {
	return s.execOne(ctx, fmt.Sprintf("ad %d", adID),
		`UPDATE ads SET sent_at = $1 WHERE id = $2 AND sent_at IS NULL`, ts.UTC(), adID)
}

// MarkAdPublished sets ads.sent_at (only if still unset) and users.last_ad_at in
// one transaction.
func (s *PostgresStore) MarkAdPublished(ctx context.Context, adID, userID int64, ts time.Time) error {
	ctx, cancel := context.WithTimeout(ctx, txTimeout)
	defer cancel()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tag, err := tx.Exec(ctx, `UPDATE ads SET sent_at = $1 WHERE id = $2 AND sent_at IS NULL`, ts.UTC(), adID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("unsent ad %d: %w", adID, types.ErrNotFound)
	}
	tag, err = tx.Exec(ctx, `UPDATE users SET last_ad_at = $1 WHERE telegram_id = $2`, ts.UTC(), userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("user %d: %w", userID, types.ErrNotFound)
	}
	return tx.Commit(ctx)
}

func (s *PostgresStore) AddBlackout(ctx context.Context, start, end time.Time, createdBy int64) (*types.BlackoutPeriod, error) {
	if err := rules.ValidateBlackoutRange(start, end); err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	return scanBlackout(s.pool.QueryRow(ctx, `
INSERT INTO blackout_periods (start_datetime, end_datetime, created_by)
VALUES ($1, $2, $3)
RETURNING `+blackoutColumns, start.UTC(), end.UTC(), createdBy))
}

// GetActiveBlackout returns a period containing now, or nil when there is none.
func (s *PostgresStore) GetActiveBlackout(ctx context.Context, now time.Time) (*types.BlackoutPeriod, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	p, err := scanBlackout(s.pool.QueryRow(ctx, `
SELECT `+blackoutColumns+` FROM blackout_periods
WHERE start_datetime <= $1 AND end_datetime >= $1
ORDER BY end_datetime DESC
LIMIT 1
`, now.UTC()))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return p, err
}

func (s *PostgresStore) ListBlackouts(ctx context.Context, limit int) ([]*types.BlackoutPeriod, error) {
	if limit <= 0 {
		limit = DefaultBlackoutListLimit
	}
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	rows, err := s.pool.Query(ctx, `SELECT `+blackoutColumns+` FROM blackout_periods ORDER BY start_datetime DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	periods := make([]*types.BlackoutPeriod, 0)
	for rows.Next() {
		p, err := scanBlackout(rows)
		if err != nil {
			return nil, err
		}
		periods = append(periods, p)
	}
	return periods, rows.Err()
}

func (s *PostgresStore) DeleteBlackout(ctx context.Context, id int64) error {
	return s.execOne(ctx, fmt.Sprintf("blackout %d", id), `DELETE FROM blackout_periods WHERE id = $1`, id)
}

const blackoutColumns = `id, start_datetime, end_datetime, COALESCE(created_by, 0), created_at`

func scanBlackout(row pgx.Row) (*types.BlackoutPeriod, error) {
	var p types.BlackoutPeriod
	if err := row.Scan(&p.ID, &p.Start, &p.End, &p.CreatedBy, &p.CreatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}

// execOne runs a statement that must touch exactly one row.
func (s *PostgresStore) execOne(ctx context.Context, what, sql string, args ...any) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	tag, err := s.pool.Exec(ctx, sql, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", what, types.ErrNotFound)
	}
	return nil
}
