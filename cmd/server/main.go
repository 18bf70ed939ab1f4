package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/joho/godotenv"
	"github.com/jrsteele09/assoc-portal/auth"
	"github.com/jrsteele09/assoc-portal/internal/config"
	"github.com/jrsteele09/assoc-portal/internal/logging"
	"github.com/jrsteele09/assoc-portal/mail"
	"github.com/jrsteele09/assoc-portal/metrics"
	"github.com/jrsteele09/assoc-portal/ratelimit"
	"github.com/jrsteele09/assoc-portal/server"
	"github.com/jrsteele09/assoc-portal/storage/sqlite"
	"github.com/jrsteele09/assoc-portal/token"
	"github.com/jrsteele09/assoc-portal/token/keys"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const cleanupInterval = 10 * time.Minute

func main() {
	// A missing .env is fine; the environment may already be set.
	_ = godotenv.Load()

	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("Error running server")
	}
	log.Info().Msg("Server stopped")
}

func run() (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Bytes("stack", debug.Stack()).Msg("Recovered from panic")
			returnError = errors.New("panic recovered")
		}
	}()

	c := config.New()
	logging.Setup(c.GetEnv())
	displayAppname(c.GetAppName())

	db, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	rdb := connectRedis(c)
	if rdb != nil {
		defer rdb.Close()
	}

	service, limiter, err := newAuthService(c, db, rdb)
	if err != nil {
		return err
	}

	h, err := server.New(c, service, sqlite.NewUserStore(db), server.WithMetrics(metrics.New()))
	if err != nil {
		return fmt.Errorf("server.New: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go runCleanup(ctx, service, limiter)

	srv := &http.Server{
		Addr:              c.GetPort(),
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errs := make(chan error, 1)
	go func() { errs <- listenAndServe(srv) }()

	select {
	case err := <-errs:
		return err
	case <-waitForStopSignal():
	}
	return shutdown(srv)
}

func openDatabase(c config.Config) (*sql.DB, error) {
	if err := os.MkdirAll(filepath.Dir(c.GetDatabasePath()), 0o755); err != nil {
		return nil, fmt.Errorf("create data folder: %w", err)
	}
	db, err := sqlite.Open(c.GetDatabasePath())
	if err != nil {
		return nil, fmt.Errorf("sqlite.Open: %w", err)
	}
	return db, nil
}

// connectRedis returns nil when Redis is not configured or not reachable;
// the server then keeps rate limits and revocations in memory.
func connectRedis(c config.Config) *redis.Client {
	redisURL := c.GetRedisURL()
	if redisURL == "" {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	rdb, err := ratelimit.Connect(ctx, redisURL)
	if err != nil {
		log.Warn().Err(err).Msg("redis unavailable, using in-memory rate limits and revocations")
		return nil
	}
	log.Info().Msg("rate limits and revocations shared through redis")
	return rdb
}

// newAuthService wires the in-process auth provider over SQLite.
func newAuthService(c config.Config, db *sql.DB, rdb *redis.Client) (*auth.Service, ratelimit.Limiter, error) {
	secret := c.GetJWTSecret()
	if secret == "" {
		generated, err := keys.GenerateSecret()
		if err != nil {
			return nil, nil, fmt.Errorf("generate secret: %w", err)
		}
		secret = generated
		log.Warn().Msg("JWT_SECRET is not set; sessions will not survive a restart")
	}
	signer, err := keys.DeriveAccessTokenSigner(secret)
	if err != nil {
		return nil, nil, fmt.Errorf("derive signer: %w", err)
	}

	tokenOptions := []token.ManagerOption{
		token.WithTokenExpiry(c.GetAccessTokenExpiry(), c.GetRefreshTokenExpiry()),
		token.WithRefreshTokenLength(c.GetRefreshTokenLength()),
	}
	var limiter ratelimit.Limiter
	if rdb != nil {
		tokenOptions = append(tokenOptions, token.WithRevocationList(token.NewRedisRevocationList(rdb, nil)))
		limiter = ratelimit.NewRedisLimiter(rdb, c.GetMagicLinkRateLimit(), c.GetMagicLinkRateWindow())
	} else {
		limiter = ratelimit.NewMemoryLimiter(c.GetMagicLinkRateLimit(), c.GetMagicLinkRateWindow())
	}
	tokens := token.New(sqlite.NewRefreshTokenStore(db), signer, c.GetBaseURL(), tokenOptions...)

	service, err := auth.NewService(auth.Repos{
		Users:   sqlite.NewUserStore(db),
		OneTime: sqlite.NewOneTimeStore(db),
	}, tokens, c.GetBaseURL(),
		auth.WithMailer(newMailer(c)),
		auth.WithLimiter(limiter),
		auth.WithLinkTTL(c.GetOneTimeTokenExpiry()),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("auth.NewService: %w", err)
	}
	return service, limiter, nil
}

func newMailer(c config.Config) mail.Mailer {
	postmark := mail.NewPostmarkClient(c.GetPostmarkToken(), c.GetMailFrom(), c.GetAppName())
	if postmark.Configured() {
		return postmark
	}
	log.Warn().Msg("POSTMARK_TOKEN is not set; magic links are written to the log")
	return mail.LogMailer{}
}

func runCleanup(ctx context.Context, service *auth.Service, limiter ratelimit.Limiter) {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := service.Cleanup(ctx); err != nil {
				log.Err(err).Msg("token cleanup failed")
			}
			if m, ok := limiter.(*ratelimit.MemoryLimiter); ok {
				m.Prune()
			}
		}
	}
}

func listenAndServe(server *http.Server) error {
	log.Info().Str("addr", server.Addr).Msg("Server listening")
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server.ListenAndServe %w", err)
	}
	return nil
}

func waitForStopSignal() <-chan os.Signal {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	return stop
}

func shutdown(server *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
