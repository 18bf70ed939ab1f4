package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jrsteele09/assoc-portal/token/refresh"
)

var _ refresh.Repo = (*RefreshTokenStore)(nil)

type RefreshTokenStore struct {
	db *sql.DB
}

func NewRefreshTokenStore(db *sql.DB) *RefreshTokenStore {
	return &RefreshTokenStore{db: db}
}

func (s *RefreshTokenStore) Upsert(ctx context.Context, rt *refresh.StoredRefreshToken) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO refresh_tokens (token, user_id, session_id, iat) VALUES (?, ?, ?, ?)
		 ON CONFLICT(token) DO UPDATE SET user_id = excluded.user_id, session_id = excluded.session_id, iat = excluded.iat`,
		rt.Token, rt.UserID, rt.SessionID, toNanos(rt.Iat),
	)
	if err != nil {
		return fmt.Errorf("upsert refresh token: %w", err)
	}
	return nil
}

func (s *RefreshTokenStore) Consume(ctx context.Context, token string) (*refresh.StoredRefreshToken, error) {
	rt := refresh.StoredRefreshToken{Token: token}
	var iat int64
	err := s.db.QueryRowContext(ctx,
		`DELETE FROM refresh_tokens WHERE token = ? RETURNING user_id, session_id, iat`, token,
	).Scan(&rt.UserID, &rt.SessionID, &iat)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, refresh.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("consume refresh token: %w", err)
	}
	rt.Iat = fromNanos(iat)
	return &rt, nil
}

func (s *RefreshTokenStore) Delete(ctx context.Context, token string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM refresh_tokens WHERE token = ?`, token); err != nil {
		return fmt.Errorf("delete refresh token: %w", err)
	}
	return nil
}

func (s *RefreshTokenStore) DeleteBySessionID(ctx context.Context, sessionID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM refresh_tokens WHERE session_id = ?`, sessionID); err != nil {
		return fmt.Errorf("delete session refresh tokens: %w", err)
	}
	return nil
}

func (s *RefreshTokenStore) DeleteIssuedBefore(ctx context.Context, before time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM refresh_tokens WHERE iat < ?`, toNanos(before))
	if err != nil {
		return 0, fmt.Errorf("delete old refresh tokens: %w", err)
	}
	count, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return count, nil
}
