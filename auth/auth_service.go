package auth

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jrsteele09/assoc-portal/mail"
	"github.com/jrsteele09/assoc-portal/metrics"
	"github.com/jrsteele09/assoc-portal/ratelimit"
	"github.com/jrsteele09/assoc-portal/sessions"
	"github.com/jrsteele09/assoc-portal/token"
	"github.com/jrsteele09/assoc-portal/token/jwt"
	"github.com/jrsteele09/assoc-portal/token/onetime"
	"github.com/jrsteele09/assoc-portal/token/refresh"
	"github.com/jrsteele09/assoc-portal/users"
	"github.com/rs/zerolog/log"
)

// ConfirmPath is the route magic links point at.
const ConfirmPath = "/auth/confirm"

const defaultLinkTTL = 15 * time.Minute

// Service is the in-process auth provider: magic links, sessions and profiles.
type Service struct {
	repos   Repos            // All repository dependencies
	links   *onetime.Manager // Single-use magic-link tokens
	tokens  *token.Manager   // Access and refresh tokens
	mailer  mail.Mailer      // Magic-link delivery
	limiter ratelimit.Limiter
	metrics *metrics.Metrics
	baseURL string
	linkTTL time.Duration
	nowTime func() time.Time // nowTime function (injectable for testing)
}

// ServiceOption defines a function type to modify the Service instance.
type ServiceOption func(*Service)

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) ServiceOption {
	return func(s *Service) {
		s.nowTime = nowFunc
	}
}

func WithMailer(m mail.Mailer) ServiceOption {
	return func(s *Service) {
		s.mailer = m
	}
}

func WithLimiter(l ratelimit.Limiter) ServiceOption {
	return func(s *Service) {
		s.limiter = l
	}
}

func WithMetrics(m *metrics.Metrics) ServiceOption {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithLinkTTL(ttl time.Duration) ServiceOption {
	return func(s *Service) {
		s.linkTTL = ttl
	}
}

// NewService initializes a Service. baseURL is the public origin used to build
// magic links.
func NewService(repos Repos, tokens *token.Manager, baseURL string, options ...ServiceOption) (*Service, error) {
	if repos.Users == nil {
		return nil, errors.New("[NewService] Users repo is required")
	}
	if repos.OneTime == nil {
		return nil, errors.New("[NewService] OneTime repo is required")
	}
	if tokens == nil {
		return nil, errors.New("[NewService] token manager is required")
	}

	s := &Service{
		repos:   repos,
		tokens:  tokens,
		mailer:  mail.LogMailer{},
		baseURL: strings.TrimSuffix(baseURL, "/"),
		linkTTL: defaultLinkTTL,
		nowTime: time.Now,
	}
	for _, opt := range options {
		opt(s)
	}
	s.links = onetime.NewManager(repos.OneTime, s.linkTTL, s.nowTime)
	return s, nil
}

// SendMagicLink emails a sign-in link to params.Email, subject to the per
// address rate limit.
func (s *Service) SendMagicLink(ctx context.Context, params MagicLinkParameters) error {
	if err := params.Validate(); err != nil {
		s.metrics.MagicLink(metrics.MagicLinkRejected)
		return err
	}

	if s.limiter != nil {
		if err := s.limiter.Allow(ctx, params.Email); err != nil {
			if errors.Is(err, ratelimit.ErrLimited) {
				s.metrics.MagicLink(metrics.MagicLinkRateLimited)
				return ErrRateLimited
			}
			// The limiter store being down should not lock everybody out.
			log.Warn().Err(err).Msg("magic link rate limiter unavailable")
		}
	}

	redirectTo := sameOriginRedirect(s.baseURL, params.RedirectTo)
	tokenHash, err := s.links.Issue(ctx, params.Email, onetime.TypeMagicLink, redirectTo)
	if err != nil {
		s.metrics.MagicLink(metrics.MagicLinkFailed)
		return fmt.Errorf("[Service.SendMagicLink] %w", err)
	}

	if err := s.mailer.SendMagicLink(ctx, mail.MagicLink{
		To:      params.Email,
		Link:    s.confirmLink(tokenHash, redirectTo),
		Expires: humanDuration(s.linkTTL),
	}); err != nil {
		s.metrics.MagicLink(metrics.MagicLinkFailed)
		log.Err(err).Str("email", params.Email).Msg("failed to send magic link")
		return fmt.Errorf("[Service.SendMagicLink] %w: %v", ErrEmailSendFailed, err)
	}

	s.metrics.MagicLink(metrics.MagicLinkSent)
	log.Info().Str("email", params.Email).Msg("magic link sent")
	return nil
}

// VerifyOTP redeems a magic-link token. The first redemption of an address
// creates its user.
func (s *Service) VerifyOTP(ctx context.Context, params VerifyParameters) (*sessions.Session, error) {
	t, err := params.Validate()
	if err != nil {
		return nil, err
	}

	link, err := s.links.Redeem(ctx, params.TokenHash, t)
	if err != nil {
		switch {
		case errors.Is(err, onetime.ErrInvalid),
			errors.Is(err, onetime.ErrExpired),
			errors.Is(err, onetime.ErrRedeemed),
			errors.Is(err, onetime.ErrWrongType):
			log.Debug().Err(err).Msg("magic link rejected")
			return nil, ErrOTPInvalid
		}
		return nil, fmt.Errorf("[Service.VerifyOTP] %w", err)
	}

	user, err := s.userForEmail(ctx, link.Email)
	if err != nil {
		return nil, fmt.Errorf("[Service.VerifyOTP] %w", err)
	}
	if user.Blocked {
		return nil, ErrUserBlocked
	}

	now := s.nowTime()
	if err := s.repos.Users.SetLastSignIn(ctx, user.ID, now); err != nil {
		return nil, fmt.Errorf("[Service.VerifyOTP] SetLastSignIn: %w", err)
	}
	user.LastSignIn = now

	session, err := s.tokens.IssueSession(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("[Service.VerifyOTP] %w", err)
	}
	return session, nil
}

// GetSession decodes the access token without requiring it to be live.
func (s *Service) GetSession(ctx context.Context, accessToken, refreshToken string) (*sessions.Session, error) {
	if accessToken == "" {
		return nil, nil
	}

	claims, err := s.tokens.Inspect(accessToken, true)
	if err != nil && !errors.Is(err, jwt.ErrTokenExpired) {
		return nil, ErrInvalidToken
	}

	return &sessions.Session{
		UserID:       claims.Subject,
		Email:        claims.Email,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    token.TokenTypeBearer,
		IssuedAt:     claims.IssuedAt.Unix(),
		ExpiresAt:    claims.ExpiresAt.Unix(),
	}, nil
}

// RefreshSession rotates refreshToken. Each refresh token works once.
func (s *Service) RefreshSession(ctx context.Context, refreshToken string) (*sessions.Session, error) {
	rt, err := s.tokens.RotateRefreshToken(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, refresh.ErrInvalid) || errors.Is(err, refresh.ErrExpired) {
			return nil, ErrRefreshTokenInvalid
		}
		return nil, fmt.Errorf("[Service.RefreshSession] %w", err)
	}

	user, err := s.repos.Users.GetByID(ctx, rt.UserID)
	if errors.Is(err, users.ErrUserNotFound) {
		return nil, ErrRefreshTokenInvalid
	}
	if err != nil {
		return nil, fmt.Errorf("[Service.RefreshSession] GetByID: %w", err)
	}
	if user.Blocked {
		_ = s.tokens.Revoke(ctx, "", rt.Token)
		return nil, ErrUserBlocked
	}

	return s.tokens.ResumeSession(user, rt)
}

func (s *Service) GetUser(ctx context.Context, accessToken string) (*users.User, error) {
	claims, err := s.tokens.Inspect(accessToken, false)
	if err != nil {
		return nil, ErrInvalidToken
	}
	user, err := s.repos.Users.GetByID(ctx, claims.Subject)
	if errors.Is(err, users.ErrUserNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("[Service.GetUser] %w", err)
	}
	if user.Blocked {
		return nil, ErrUserBlocked
	}
	return user, nil
}

func (s *Service) GetProfile(ctx context.Context, accessToken, userID string) (*users.Profile, error) {
	caller, err := s.GetUser(ctx, accessToken)
	if err != nil {
		return nil, err
	}
	if caller.ID == userID {
		p := caller.Profile()
		return &p, nil
	}
	if !caller.IsAdmin {
		return nil, ErrForbidden
	}

	user, err := s.repos.Users.GetByID(ctx, userID)
	if errors.Is(err, users.ErrUserNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("[Service.GetProfile] %w", err)
	}
	p := user.Profile()
	return &p, nil
}

func (s *Service) ListProfiles(ctx context.Context, accessToken string, offset, limit int) ([]users.Profile, error) {
	caller, err := s.GetUser(ctx, accessToken)
	if err != nil {
		return nil, err
	}
	if !caller.IsAdmin {
		return nil, ErrForbidden
	}

	list, err := s.repos.Users.List(ctx, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("[Service.ListProfiles] %w", err)
	}
	profiles := make([]users.Profile, 0, len(list))
	for _, u := range list {
		profiles = append(profiles, u.Profile())
	}
	return profiles, nil
}

func (s *Service) SignOut(ctx context.Context, accessToken, refreshToken string) error {
	if err := s.tokens.Revoke(ctx, accessToken, refreshToken); err != nil {
		return fmt.Errorf("[Service.SignOut] %w", err)
	}
	return nil
}

// Cleanup removes expired magic links and refresh tokens.
func (s *Service) Cleanup(ctx context.Context) error {
	links, err := s.links.DeleteExpired(ctx)
	if err != nil {
		return fmt.Errorf("[Service.Cleanup] one-time tokens: %w", err)
	}
	refreshTokens, err := s.tokens.Cleanup(ctx)
	if err != nil {
		return fmt.Errorf("[Service.Cleanup] refresh tokens: %w", err)
	}
	if links > 0 || refreshTokens > 0 {
		log.Debug().Int64("links", links).Int64("refresh_tokens", refreshTokens).Msg("expired tokens removed")
	}
	return nil
}

func (s *Service) userForEmail(ctx context.Context, email string) (*users.User, error) {
	user, err := s.repos.Users.GetByEmail(ctx, email)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, users.ErrUserNotFound) {
		return nil, fmt.Errorf("GetByEmail: %w", err)
	}

	user = &users.User{
		ID:        uuid.New().String(),
		Email:     email,
		CreatedAt: s.nowTime(),
	}
	if err := s.repos.Users.Upsert(ctx, user); err != nil {
		return nil, fmt.Errorf("Upsert: %w", err)
	}
	log.Info().Str("user_id", user.ID).Str("email", email).Msg("user created")
	return user, nil
}

func (s *Service) confirmLink(tokenHash, redirectTo string) string {
	q := url.Values{}
	q.Set("token_hash", tokenHash)
	q.Set("type", string(onetime.TypeEmail))
	if redirectTo != "" {
		q.Set("redirect_to", redirectTo)
	}
	return s.baseURL + ConfirmPath + "?" + q.Encode()
}

func humanDuration(d time.Duration) string {
	if d >= time.Hour && d%time.Hour == 0 {
		if h := int(d / time.Hour); h != 1 {
			return fmt.Sprintf("%d hours", h)
		}
		return "1 hour"
	}
	if m := int(d / time.Minute); m != 1 {
		return fmt.Sprintf("%d minutes", m)
	}
	return "1 minute"
}
