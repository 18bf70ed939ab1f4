package users

import (
	"context"
	"time"
)

type UserRepo interface {
	Upsert(ctx context.Context, user *User) error
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByID(ctx context.Context, id string) (*User, error)
	List(ctx context.Context, offset, limit int) ([]*User, error)
	SetAdmin(ctx context.Context, email string, isAdmin bool) error
	SetLastSignIn(ctx context.Context, id string, at time.Time) error
}
