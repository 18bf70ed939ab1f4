package onetimerepofake

import (
	"context"
	"sync"
	"time"

	"github.com/jrsteele09/assoc-portal/token/onetime"
)

var _ onetime.Repo = (*FakeOneTimeRepo)(nil)

type FakeOneTimeRepo struct {
	tokens map[string]*onetime.OneTimeToken // digest to token
	lock   sync.Mutex
}

func NewFakeOneTimeRepo() *FakeOneTimeRepo {
	return &FakeOneTimeRepo{
		tokens: make(map[string]*onetime.OneTimeToken),
	}
}

func (r *FakeOneTimeRepo) Insert(_ context.Context, t *onetime.OneTimeToken) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	stored := *t
	r.tokens[t.Digest] = &stored
	return nil
}

func (r *FakeOneTimeRepo) Consume(_ context.Context, digest string, usedAt time.Time) (*onetime.OneTimeToken, error) {
	r.lock.Lock()
	defer r.lock.Unlock()

	t, ok := r.tokens[digest]
	if !ok {
		return nil, onetime.ErrNotFound
	}
	if t.UsedAt != nil {
		c := *t
		return &c, onetime.ErrUsed
	}
	at := usedAt
	t.UsedAt = &at
	c := *t
	return &c, nil
}

func (r *FakeOneTimeRepo) InvalidateForEmail(_ context.Context, email string, at time.Time) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	for _, t := range r.tokens {
		if t.Email == email && t.UsedAt == nil {
			used := at
			t.UsedAt = &used
		}
	}
	return nil
}

func (r *FakeOneTimeRepo) DeleteExpired(_ context.Context, before time.Time) (int64, error) {
	r.lock.Lock()
	defer r.lock.Unlock()

	var n int64
	for digest, t := range r.tokens {
		if !t.ExpiresAt.After(before) {
			delete(r.tokens, digest)
			n++
		}
	}
	return n, nil
}
