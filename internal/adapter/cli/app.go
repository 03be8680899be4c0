// Package cli is the terminal front end of the loan assistant. Every command
// goes through the session manager and the API client; nothing here talks
// HTTP or storage directly.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"finagent/internal/adapter/api"
	"finagent/internal/adapter/storage/file"
	"finagent/internal/adapter/storage/gormkv"
	"finagent/internal/adapter/storage/memory"
	redisstore "finagent/internal/adapter/storage/redis"
	"finagent/internal/apperr"
	"finagent/internal/config"
	"finagent/internal/domain/auth"
	"finagent/internal/domain/kv"
	"finagent/internal/infrastructure/cache"
	"finagent/internal/infrastructure/db"
	"finagent/internal/infrastructure/logger"
	"finagent/internal/usecase/conversation"
	"finagent/internal/usecase/sanction"
	"finagent/internal/usecase/session"
	"finagent/pkg/metrics"

	"github.com/fatih/color"
	"go.uber.org/zap"
)

const redisKeyPrefix = "finagent:"

// Deps are the collaborators a command may use.
type Deps struct {
	Sessions *session.Manager
	API      *api.Client
	Chat     *conversation.Service
	Letters  *sanction.Chain
}

// Wire builds the session manager on store and closes the loop between it
// and client. onExpired runs when a rejected token signs the user out.
func Wire(ctx context.Context, client *api.Client, store kv.Store, log *zap.Logger, onExpired func()) (*Deps, error) {
	mgr, err := session.New(ctx, client, store,
		session.WithLogger(logger.Module(log, "session")),
		session.WithSignInRedirect(onExpired),
	)
	if err != nil {
		return nil, err
	}
	client.SetTokenSource(mgr)
	client.SetUnauthorizedHandler(mgr.OnUnauthorized)

	return &Deps{
		Sessions: mgr,
		API:      client,
		Chat:     conversation.NewService(client, mgr, logger.Module(log, "chat")),
		Letters: sanction.NewChain(logger.Module(log, "sanction"),
			sanction.NewRemotePDF(client),
			sanction.NewFacsimile(client, time.Now),
		),
	}, nil
}

type opener func(ctx context.Context, a *App) (*Deps, func(), error)

// App holds the output streams and lazily opened dependencies, so offline
// commands such as emi never touch storage.
type App struct {
	out    io.Writer
	errOut io.Writer
	open   opener

	// metrics counts this process's API calls; --debug-metrics prints them.
	metrics *metrics.Collector

	deps    *Deps
	closeFn func()
}

// FromConfig opens storage, logging and the API client described by cfg on
// first use.
func FromConfig(cfg *config.Client) *App {
	return &App{
		out:     os.Stdout,
		errOut:  os.Stderr,
		metrics: metrics.NewCollector(),
		open: func(ctx context.Context, a *App) (*Deps, func(), error) {
			log, err := logger.New(logger.Config{Level: cfg.LogLevel, File: cfg.LogFile})
			if err != nil {
				return nil, nil, err
			}
			store, closeStore, err := openStore(ctx, cfg, log)
			if err != nil {
				return nil, nil, apperr.Wrap(apperr.KindUnknown, "Could not open local storage.", err)
			}
			client := api.New(cfg.APIBaseURL,
				api.WithTimeouts(cfg.RequestTimeout, cfg.ChatTimeout),
				api.WithLogger(logger.Module(log, "api")),
				api.WithMetrics(a.metrics),
			)
			deps, err := Wire(ctx, client, store, log, a.sessionExpired)
			if err != nil {
				closeStore()
				return nil, nil, err
			}
			return deps, func() {
				closeStore()
				_ = log.Sync()
			}, nil
		},
	}
}

func openStore(ctx context.Context, cfg *config.Client, log *zap.Logger) (kv.Store, func(), error) {
	noop := func() {}
	switch cfg.Storage {
	case config.StorageMemory:
		return memory.New(), noop, nil
	case config.StorageRedis:
		rdb, err := cache.OpenRedis(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return nil, nil, err
		}
		return redisstore.New(rdb, redisKeyPrefix), func() { _ = rdb.Close() }, nil
	case config.StorageSQLite:
		if err := os.MkdirAll(filepath.Dir(cfg.StoragePath), 0o700); err != nil {
			return nil, nil, err
		}
		gdb, err := db.OpenSQLite(cfg.StoragePath)
		if err != nil {
			return nil, nil, err
		}
		sqlDB, err := gdb.DB()
		if err != nil {
			return nil, nil, err
		}
		store, err := gormkv.New(gdb)
		if err != nil {
			_ = sqlDB.Close()
			return nil, nil, err
		}
		return store, func() { _ = sqlDB.Close() }, nil
	case config.StorageFile:
		return file.New(cfg.StoragePath, file.WithLogger(logger.Module(log, "storage"))), noop, nil
	}
	return nil, nil, fmt.Errorf("unsupported storage %q", cfg.Storage)
}

// Deps opens the dependencies once per process.
func (a *App) Deps(ctx context.Context) (*Deps, error) {
	if a.deps != nil {
		return a.deps, nil
	}
	deps, closeFn, err := a.open(ctx, a)
	if err != nil {
		return nil, err
	}
	a.deps, a.closeFn = deps, closeFn
	return deps, nil
}

// signedIn returns the dependencies and the current user, failing when
// nobody is signed in.
func (a *App) signedIn(ctx context.Context) (*Deps, *auth.User, error) {
	deps, err := a.Deps(ctx)
	if err != nil {
		return nil, nil, err
	}
	u := deps.Sessions.User()
	if u == nil {
		return nil, nil, apperr.New(apperr.KindAuthFailure, "Please sign in first with `finagent login`.")
	}
	return deps, u, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
		a.closeFn = nil
	}
}

func (a *App) sessionExpired() {
	color.New(color.FgYellow).Fprintln(a.errOut, "Your session has expired. Please sign in again with `finagent login`.")
}
