package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/ludexapp/ludex/internal/auth"
	"github.com/ludexapp/ludex/internal/catalog"
	"github.com/ludexapp/ludex/internal/config"
	"github.com/ludexapp/ludex/internal/logging"
	"github.com/ludexapp/ludex/internal/paging"
	"github.com/ludexapp/ludex/internal/prefs"
	"github.com/ludexapp/ludex/internal/session"
	"github.com/ludexapp/ludex/internal/ui"
)

// Options configure the ludex application.
type Options struct {
	ConfigPath   string
	PrefsPath    string // empty uses default ~/.config/ludex/prefs.toml
	APIURL       string // overrides the configured api_url
	RefreshEvery int    // seconds; overrides refresh_seconds when > 0
}

// Env holds the wired dependencies shared by the TUI and the CLI commands.
type Env struct {
	Config  config.Config
	Logger  *log.Logger
	Client  *catalog.Client
	Runner  *catalog.Runner
	Mutator *catalog.Mutator
	Tokens  *auth.Source
	Session *session.Session

	logCloser io.Closer
}

// Bootstrap loads configuration and builds the client stack.
func Bootstrap(opts Options) (*Env, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if v := strings.TrimSpace(opts.APIURL); v != "" {
		cfg.APIURL = v
	}
	if opts.RefreshEvery > 0 {
		cfg.RefreshInterval = time.Duration(opts.RefreshEvery) * time.Second
	}

	logger, closer, err := logging.Open(cfg.LogFile, cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	env, err := NewEnv(cfg, logger)
	if err != nil {
		_ = closer.Close()
		return nil, err
	}
	env.logCloser = closer
	return env, nil
}

// NewEnv wires the client stack for cfg using logger.
func NewEnv(cfg config.Config, logger *log.Logger) (*Env, error) {
	if logger == nil {
		logger = logging.Nop()
	}
	tokens, err := auth.NewSource(cfg.TokenFile, cfg.APIURL, cfg.MutationRetries, logger.WithPrefix("auth"))
	if err != nil {
		return nil, fmt.Errorf("init token source: %w", err)
	}
	client, err := catalog.NewClient(cfg.APIURL,
		catalog.WithTokenSource(tokens),
		catalog.WithLogger(logger.WithPrefix("http")),
		catalog.WithRateLimit(cfg.RequestsPerSecond),
	)
	if err != nil {
		return nil, fmt.Errorf("init catalog client: %w", err)
	}
	mutator, err := catalog.NewMutator(cfg.APIURL, cfg.MutationRetries, tokens, logger.WithPrefix("mutate"))
	if err != nil {
		return nil, fmt.Errorf("init mutator: %w", err)
	}
	runner := catalog.NewRunner(client, logger.WithPrefix("runner"))

	return &Env{
		Config:  cfg,
		Logger:  logger,
		Client:  client,
		Runner:  runner,
		Mutator: mutator,
		Tokens:  tokens,
		Session: session.New(runner, logger.WithPrefix("paging")),
	}, nil
}

// Close flushes and closes the log file.
func (e *Env) Close() error {
	if e == nil || e.logCloser == nil {
		return nil
	}
	e.Logger.Info("ludex shutting down")
	return e.logCloser.Close()
}

// Run boots the TUI until the context is cancelled or the user quits.
func Run(ctx context.Context, opts Options) error {
	env, err := Bootstrap(opts)
	if err != nil {
		return err
	}
	defer func() { _ = env.Close() }()

	userPrefs, _ := prefs.Load(opts.PrefsPath)
	env.Logger.Info("ludex started", "api", env.Client.BaseURL())

	warmCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	if err := Warm(warmCtx, env.Session.Persistent(), env.Logger); err != nil {
		// The TUI shows per-view errors; startup continues.
		env.Logger.Warn("warm-up incomplete", "err", err)
	}
	cancel()

	if env.Config.RefreshInterval > 0 {
		StartRefresher(ctx, env.Session.Persistent(), env.Config.RefreshInterval, env.Logger)
	}

	return ui.Run(ui.Options{
		Context:   ctx,
		Session:   env.Session,
		Mutator:   env.Mutator,
		Logger:    env.Logger,
		LogFile:   env.Config.LogFile,
		Prefs:     userPrefs,
		PrefsPath: opts.PrefsPath,
	})
}

// Warm primes every source concurrently and returns the joined errors.
func Warm(ctx context.Context, sources []paging.Source, logger *log.Logger) error {
	if logger == nil {
		logger = logging.Nop()
	}
	errs := make([]error, len(sources))
	g, gctx := errgroup.WithContext(ctx)
	for i, src := range sources {
		g.Go(func() error {
			started := time.Now()
			if err := src.Prime(gctx); err != nil {
				errs[i] = fmt.Errorf("%s: %w", src.Endpoint(), err)
				return nil
			}
			logger.Debug("warmed", "endpoint", src.Endpoint(), "duration", time.Since(started).Round(time.Millisecond))
			return nil
		})
	}
	_ = g.Wait()
	return errors.Join(errs...)
}
