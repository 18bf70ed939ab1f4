package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jrsteele09/assoc-portal/token/onetime"
)

var _ onetime.Repo = (*OneTimeStore)(nil)

type OneTimeStore struct {
	db *sql.DB
}

func NewOneTimeStore(db *sql.DB) *OneTimeStore {
	return &OneTimeStore{db: db}
}

const oneTimeCols = `id, email, digest, type, redirect_to, created_at, expires_at, used_at`

func scanOneTime(scanner interface{ Scan(...any) error }) (*onetime.OneTimeToken, error) {
	var t onetime.OneTimeToken
	var createdAt, expiresAt int64
	var usedAt sql.NullInt64
	if err := scanner.Scan(&t.ID, &t.Email, &t.Digest, &t.Type, &t.RedirectTo, &createdAt, &expiresAt, &usedAt); err != nil {
		return nil, err
	}
	t.CreatedAt = fromNanos(createdAt)
	t.ExpiresAt = fromNanos(expiresAt)
	if usedAt.Valid {
		at := fromNanos(usedAt.Int64)
		t.UsedAt = &at
	}
	return &t, nil
}

func (s *OneTimeStore) Insert(ctx context.Context, t *onetime.OneTimeToken) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO one_time_tokens (id, email, digest, type, redirect_to, created_at, expires_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.Email, t.Digest, string(t.Type), t.RedirectTo, toNanos(t.CreatedAt), toNanos(t.ExpiresAt),
	)
	if err != nil {
		return fmt.Errorf("insert one-time token: %w", err)
	}
	return nil
}

// Consume relies on a single conditional UPDATE so concurrent redemptions
// cannot both succeed.
func (s *OneTimeStore) Consume(ctx context.Context, digest string, usedAt time.Time) (*onetime.OneTimeToken, error) {
	row := s.db.QueryRowContext(ctx,
		`UPDATE one_time_tokens SET used_at = ? WHERE digest = ? AND used_at IS NULL RETURNING `+oneTimeCols,
		toNanos(usedAt), digest,
	)
	t, err := scanOneTime(row)
	if err == nil {
		return t, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("consume one-time token: %w", err)
	}

	row = s.db.QueryRowContext(ctx, `SELECT `+oneTimeCols+` FROM one_time_tokens WHERE digest = ?`, digest)
	t, err = scanOneTime(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, onetime.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get one-time token: %w", err)
	}
	return t, onetime.ErrUsed
}

func (s *OneTimeStore) InvalidateForEmail(ctx context.Context, email string, at time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE one_time_tokens SET used_at = ? WHERE email = ? AND used_at IS NULL`,
		toNanos(at), email,
	)
	if err != nil {
		return fmt.Errorf("invalidate previous tokens: %w", err)
	}
	return nil
}

func (s *OneTimeStore) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM one_time_tokens WHERE expires_at <= ?`, toNanos(before))
	if err != nil {
		return 0, fmt.Errorf("delete expired one-time tokens: %w", err)
	}
	count, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return count, nil
}
