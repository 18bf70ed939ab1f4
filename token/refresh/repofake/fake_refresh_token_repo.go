package refreshrepofake

import (
	"context"
	"sync"
	"time"

	"github.com/jrsteele09/assoc-portal/token/refresh"
)

var _ refresh.Repo = (*FakeRefreshTokenRepo)(nil)

type FakeRefreshTokenRepo struct {
	tokens map[string]*refresh.StoredRefreshToken
	lock   sync.Mutex
}

func NewFakeRefreshTokenRepo() *FakeRefreshTokenRepo {
	return &FakeRefreshTokenRepo{
		tokens: make(map[string]*refresh.StoredRefreshToken),
	}
}

func (tr *FakeRefreshTokenRepo) Upsert(_ context.Context, refreshToken *refresh.StoredRefreshToken) error {
	tr.lock.Lock()
	defer tr.lock.Unlock()

	stored := *refreshToken
	tr.tokens[refreshToken.Token] = &stored
	return nil
}

func (tr *FakeRefreshTokenRepo) Consume(_ context.Context, token string) (*refresh.StoredRefreshToken, error) {
	tr.lock.Lock()
	defer tr.lock.Unlock()

	rt, ok := tr.tokens[token]
	if !ok {
		return nil, refresh.ErrNotFound
	}
	delete(tr.tokens, token)
	return rt, nil
}

func (tr *FakeRefreshTokenRepo) Delete(_ context.Context, token string) error {
	tr.lock.Lock()
	defer tr.lock.Unlock()

	delete(tr.tokens, token)
	return nil
}

func (tr *FakeRefreshTokenRepo) DeleteBySessionID(_ context.Context, sessionID string) error {
	tr.lock.Lock()
	defer tr.lock.Unlock()

	for token, rt := range tr.tokens {
		if rt.SessionID == sessionID {
			delete(tr.tokens, token)
		}
	}
	return nil
}

func (tr *FakeRefreshTokenRepo) DeleteIssuedBefore(_ context.Context, before time.Time) (int64, error) {
	tr.lock.Lock()
	defer tr.lock.Unlock()

	var n int64
	for token, rt := range tr.tokens {
		if rt.Iat.Before(before) {
			delete(tr.tokens, token)
			n++
		}
	}
	return n, nil
}

// Len returns the number of live tokens.
func (tr *FakeRefreshTokenRepo) Len() int {
	tr.lock.Lock()
	defer tr.lock.Unlock()
	return len(tr.tokens)
}
