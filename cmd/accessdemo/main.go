// Command accessdemo walks through the access core against the in-memory
// backend: second-factor sign-in, permission checks, the sliding session
// timeout and invitation onboarding.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log/slog"
	"maps"
	"os"
	"os/signal"
	"slices"
	"time"

	"github.com/dmitrymomot/accesskit/pkg/audit"
	"github.com/dmitrymomot/accesskit/pkg/auth"
	"github.com/dmitrymomot/accesskit/pkg/authstate"
	"github.com/dmitrymomot/accesskit/pkg/config"
	"github.com/dmitrymomot/accesskit/pkg/logger"
	"github.com/dmitrymomot/accesskit/pkg/totp"
	"github.com/dmitrymomot/accesskit/pkg/twofactor"
	"github.com/dmitrymomot/accesskit/svc/accounts"
)

type appConfig struct {
	Env      string `env:"APP_ENV" envDefault:"development"`
	LogLevel string `env:"LOG_LEVEL" envDefault:""`
	// Store selects the second-factor backend: memory, redis or postgres.
	Store string `env:"TWO_FACTOR_STORE" envDefault:"memory"`
}

func main() {
	var (
		envFile    = flag.String("env", ".env", "Optional .env file")
		sessionTTL = flag.Duration("session", 6*time.Second, "Server session lifetime")
		warnBefore = flag.Duration("warn", 3*time.Second, "Warn this long before the session ends")
		extend     = flag.Bool("extend", true, "Extend the session once when warned")
	)
	flag.Parse()

	if err := config.LoadEnv(*envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "load %s: %v\n", *envFile, err)
		os.Exit(1)
	}

	var app appConfig
	config.MustLoad(&app)

	opts := []logger.Option{
		logger.WithEnvironment(app.Env, "accessdemo"),
		logger.WithContextExtractors(authstate.LoggerExtractor()),
	}
	if app.LogLevel != "" {
		opts = append(opts, logger.WithLevelName(app.LogLevel))
	}
	log := logger.New(opts...)
	logger.SetAsDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, log, app, *sessionTTL, *warnBefore, *extend); err != nil {
		log.ErrorContext(ctx, "demo failed", logger.Error(err), slog.String("message", auth.Message(err)))
		os.Exit(1)
	}
}

func run(ctx context.Context, log *slog.Logger, app appConfig, sessionTTL, warnBefore time.Duration, extend bool) error {
	if os.Getenv("TOTP_ENCRYPTION_KEY") == "" {
		key, err := totp.GenerateEncodedEncryptionKey()
		if err != nil {
			return err
		}
		log.WarnContext(ctx, "TOTP_ENCRYPTION_KEY not set, using an ephemeral key")
		if err := os.Setenv("TOTP_ENCRYPTION_KEY", key); err != nil {
			return err
		}
	}

	var tfCfg twofactor.Config
	if err := config.Load(&tfCfg); err != nil {
		return err
	}
	store, closeStore, err := openStore(ctx, log, app.Store)
	if err != nil {
		return err
	}
	defer closeStore()

	tf, err := twofactor.New(store.twoFactor, tfCfg, append(store.options, twofactor.WithLogger(log))...)
	if err != nil {
		return err
	}
	defer tf.Close()

	var accCfg accounts.Config
	if err := config.Load(&accCfg); err != nil {
		return err
	}
	accCfg.SessionTTL = sessionTTL

	events := audit.NewMemoryStore()
	async := audit.NewAsyncStore(events, audit.AsyncOptions{}, func(err error) {
		log.ErrorContext(ctx, "audit batch dropped", logger.Error(err))
	})
	trail := audit.New(async, audit.WithLogger(log))
	srv := accounts.New(tf, accCfg, accounts.WithLogger(log), accounts.WithAudit(trail))

	d := &demo{log: log, srv: srv, sessionTTL: sessionTTL, warnBefore: warnBefore, extend: extend}
	err = d.seed(ctx)
	if err == nil {
		err = d.ownerJourney(ctx)
	}
	if err == nil {
		err = d.guestJourney(ctx)
	}

	flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if cerr := async.Close(flushCtx); cerr != nil {
		log.WarnContext(ctx, "audit flush incomplete", logger.Error(cerr))
	}
	summarizeAudit(ctx, log, events)
	return err
}

// summarizeAudit logs how many events of each action the run produced.
func summarizeAudit(ctx context.Context, log *slog.Logger, store audit.Store) {
	all, err := store.Query(ctx, audit.Criteria{})
	if err != nil {
		log.WarnContext(ctx, "audit query failed", logger.Error(err))
		return
	}
	counts := make(map[audit.Action]int)
	failures := 0
	for _, e := range all {
		counts[e.Action]++
		if e.Result == audit.ResultFailure {
			failures++
		}
	}
	attrs := []any{slog.Int("events", len(all)), slog.Int("failures", failures)}
	for _, action := range slices.Sorted(maps.Keys(counts)) {
		attrs = append(attrs, slog.Int(string(action), counts[action]))
	}
	log.InfoContext(ctx, "audit trail", attrs...)
}
