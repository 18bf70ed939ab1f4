package server

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jrsteele09/assoc-portal/users"
	"github.com/rs/zerolog/log"
)

// InitialiseSystem makes sure every address in ADMIN_EMAILS has an admin
// profile. Addresses that have never signed in get a profile up front so the
// flag is in place on their first sign in.
func (s *Server) InitialiseSystem(ctx context.Context) error {
	if s.users == nil {
		return nil
	}

	for _, email := range s.config.GetAdminEmails() {
		email = users.NormaliseEmail(email)
		if !s.policy.IsAllowed(email) {
			log.Warn().Str("email", email).Msg("skipping admin outside the allowed domain")
			continue
		}
		if err := s.ensureAdmin(ctx, email); err != nil {
			return fmt.Errorf("[Server InitialiseSystem] %w", err)
		}
	}
	return nil
}

func (s *Server) ensureAdmin(ctx context.Context, email string) error {
	user, err := s.users.GetByEmail(ctx, email)
	switch {
	case errors.Is(err, users.ErrUserNotFound):
		user = &users.User{
			ID:        uuid.New().String(),
			Email:     email,
			IsAdmin:   true,
			CreatedAt: s.nowTime(),
		}
		if err := s.users.Upsert(ctx, user); err != nil {
			return fmt.Errorf("failed to create admin %s: %w", email, err)
		}
		log.Info().Str("email", email).Msg("admin profile created")
		return nil
	case err != nil:
		return fmt.Errorf("failed to get user %s: %w", email, err)
	case user.IsAdmin:
		return nil
	}

	if err := s.users.SetAdmin(ctx, email, true); err != nil {
		return fmt.Errorf("failed to promote %s: %w", email, err)
	}
	log.Info().Str("email", email).Msg("user promoted to admin")
	return nil
}
