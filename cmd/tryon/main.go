package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/erazemk/tryon/internal/account"
	"github.com/erazemk/tryon/internal/api"
	"github.com/erazemk/tryon/internal/auth"
	"github.com/erazemk/tryon/internal/catalog"
	"github.com/erazemk/tryon/internal/closet"
	"github.com/erazemk/tryon/internal/config"
	"github.com/erazemk/tryon/internal/db"
	"github.com/erazemk/tryon/internal/session"
	"github.com/erazemk/tryon/internal/store"
	"github.com/erazemk/tryon/internal/web"
)

// purgeInterval is how often expired sessions are swept from the database.
const purgeInterval = time.Hour

func main() {
	fs := flag.NewFlagSet("tryon", flag.ContinueOnError)

	var dbPath string
	fs.StringVar(&dbPath, "db", "tryon.sqlite3", "")
	fs.StringVar(&dbPath, "d", "tryon.sqlite3", "")

	var addr string
	fs.StringVar(&addr, "addr", ":8080", "")
	fs.StringVar(&addr, "a", ":8080", "")

	var logPath string
	fs.StringVar(&logPath, "log", "", "")
	fs.StringVar(&logPath, "l", "", "")

	var verbose bool
	fs.BoolVar(&verbose, "verbose", false, "")
	fs.BoolVar(&verbose, "v", false, "")

	fs.Usage = func() {
		fmt.Fprint(os.Stdout, `Usage: tryon [flags]

Flags:
  -d, -db <path>          SQLite session database path (default: tryon.sqlite3)
  -a, -addr <host:port>   listen address (default: :8080)
  -l, -log <path>         log file path (default: no file, stdout/stderr only)
  -v, -verbose            include debug logs
  -h, -help               show this help and exit

Environment:
  ACCOUNT_SERVICE_URL     account service base URL (required)
  ACCOUNT_SERVICE_KEY     account service public API key (required)
  PUBLIC_URL              public base URL of this server (default: http://localhost:8080)
  OAUTH_PROVIDER          sign-in provider (default: google)
  RATE_LIMIT_RPS          API requests per second per client (default: 5)
  RATE_LIMIT_BURST        API burst size per client (default: 20)
  ITEM_IDS                item id scheme, counter or uuid (default: counter)
`)
	}

	if err := fs.Parse(os.Args[1:]); err != nil {
		if err == flag.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}

	if fs.NArg() > 0 {
		fmt.Fprintf(os.Stderr, "unexpected argument: %s\n", fs.Arg(0))
		fs.Usage()
		os.Exit(1)
	}

	// Set up structured logging: INFO/WARN → stdout, ERROR → stderr.
	// Optionally also write to a log file.
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	closeLog, err := setupLogger(logPath, level)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	if closeLog != nil {
		defer closeLog()
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	database, err := db.Open(dbPath)
	if err != nil {
		slog.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer database.Close()

	// Ensure schema exists (idempotent).
	if err := db.EnsureSchema(database); err != nil {
		slog.Error("failed to ensure database schema", "error", err)
		os.Exit(1)
	}

	slog.Info("database ready", "path", dbPath)

	// Signing and sealing keys are generated on first run.
	ctx := context.Background()
	jwtSecret, err := store.GetSecret(ctx, database, store.SecretJWT)
	if err != nil {
		slog.Error("failed to get JWT secret", "error", err)
		os.Exit(1)
	}
	sessionKey, err := store.GetSecret(ctx, database, store.SecretSessions)
	if err != nil {
		slog.Error("failed to get session key", "error", err)
		os.Exit(1)
	}
	sealer, err := auth.NewSealer(sessionKey)
	if err != nil {
		slog.Error("invalid session key", "error", err)
		os.Exit(1)
	}

	var catalogOpts []catalog.Option
	if cfg.ItemIDs == "uuid" {
		catalogOpts = append(catalogOpts, catalog.WithIDGenerator(catalog.UUIDs{}))
	}

	sessions := &session.Manager{
		DB:      database,
		Secret:  jwtSecret,
		Sealer:  sealer,
		Account: account.NewClient(cfg.AccountURL, cfg.AccountKey),
		Closets: closet.NewRegistry(catalogOpts...),
	}

	// Set up routers.
	apiRouter := api.NewRouter(sessions)
	webRouter, err := web.NewRouter(sessions, web.Options{
		Provider:      cfg.OAuthProvider,
		CallbackURL:   cfg.CallbackURL(),
		SecureCookies: cfg.SecureCookies(),
	})
	if err != nil {
		slog.Error("failed to set up web router", "error", err)
		os.Exit(1)
	}

	// Combine: API routes take priority, web routes handle the rest.
	limiter := api.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
	mux := http.NewServeMux()
	mux.Handle("/api/", limiter.Middleware(apiRouter))
	mux.Handle("/", webRouter)

	handler := api.LoggingMiddleware(api.Recover(mux))

	server := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	// Graceful shutdown on SIGINT/SIGTERM.
	runCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go purgeSessions(runCtx, sessions)

	go func() {
		<-runCtx.Done()
		slog.Info("shutdown signal received")

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			slog.Error("server forced to shutdown", "error", err)
		}
	}()

	slog.Info("server started", "addr", addr, "public_url", cfg.PublicURL, "provider", cfg.OAuthProvider)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	slog.Info("server stopped, closing database")
}

// purgeSessions sweeps expired sessions until ctx is done.
func purgeSessions(ctx context.Context, sessions *session.Manager) {
	ticker := time.NewTicker(purgeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			n, err := sessions.PurgeExpired(ctx, time.Now())
			if err != nil {
				slog.Error("failed to purge expired sessions", "error", err)
				continue
			}
			if n > 0 {
				slog.Info("purged expired sessions", "count", n)
			}
		case <-ctx.Done():
			return
		}
	}
}
