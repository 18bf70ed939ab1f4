package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jrsteele09/assoc-portal/users"
)

var _ users.UserRepo = (*UserStore)(nil)

type UserStore struct {
	db *sql.DB
}

func NewUserStore(db *sql.DB) *UserStore {
	return &UserStore{db: db}
}

const userCols = `id, email, is_admin, blocked, created_at, last_sign_in`

func scanUser(scanner interface{ Scan(...any) error }) (*users.User, error) {
	var u users.User
	var createdAt, lastSignIn int64
	if err := scanner.Scan(&u.ID, &u.Email, &u.IsAdmin, &u.Blocked, &createdAt, &lastSignIn); err != nil {
		return nil, err
	}
	u.CreatedAt = fromNanos(createdAt)
	u.LastSignIn = fromNanos(lastSignIn)
	return &u, nil
}

func (s *UserStore) Upsert(ctx context.Context, user *users.User) error {
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (`+userCols+`) VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET email = excluded.email, is_admin = excluded.is_admin,
		 blocked = excluded.blocked, last_sign_in = excluded.last_sign_in`,
		user.ID, user.Email, boolToInt(user.IsAdmin), boolToInt(user.Blocked), toNanos(user.CreatedAt), toNanos(user.LastSignIn),
	)
	if err != nil {
		return fmt.Errorf("upsert user: %w", err)
	}
	return nil
}

func (s *UserStore) GetByEmail(ctx context.Context, email string) (*users.User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+userCols+` FROM users WHERE email = ?`, email)
	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, users.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user by email: %w", err)
	}
	return u, nil
}

func (s *UserStore) GetByID(ctx context.Context, id string) (*users.User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+userCols+` FROM users WHERE id = ?`, id)
	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, users.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user by id: %w", err)
	}
	return u, nil
}

func (s *UserStore) List(ctx context.Context, offset, limit int) ([]*users.User, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+userCols+` FROM users ORDER BY email LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	list := []*users.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		list = append(list, u)
	}
	return list, rows.Err()
}

func (s *UserStore) SetAdmin(ctx context.Context, email string, isAdmin bool) error {
	return s.updateOne(ctx, `UPDATE users SET is_admin = ? WHERE email = ?`, boolToInt(isAdmin), email)
}

func (s *UserStore) SetLastSignIn(ctx context.Context, id string, at time.Time) error {
	return s.updateOne(ctx, `UPDATE users SET last_sign_in = ? WHERE id = ?`, toNanos(at), id)
}

func (s *UserStore) updateOne(ctx context.Context, query string, args ...any) error {
	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return users.ErrUserNotFound
	}
	return nil
}
