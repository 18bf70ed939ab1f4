// Package errors holds the sentinels repositories return. Every store
// implementation, SQL or in-memory, maps its own "no rows" onto these.
package errors

import "errors"

var (
	ErrUserNotFound         = errors.New("user not found")
	ErrRefreshTokenNotFound = errors.New("refresh token not found")
	ErrOneTimeTokenNotFound = errors.New("one-time token not found")
	ErrOneTimeTokenUsed     = errors.New("one-time token already used")
)
