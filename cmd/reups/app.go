package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/hashicorp/go-multierror"

	"github.com/natelust/reups/internal/db"
	"github.com/natelust/reups/internal/rcache"
	"github.com/natelust/reups/internal/rconfig"
	"github.com/natelust/reups/internal/rlog"
)

// appCtx bundles the wiring every subcommand needs, built once in
// rootCmd.PersistentPreRunE and threaded through cmd.Context() rather than
// package globals, matching the teacher's habit of passing an explicit
// logger (never slog.Default()) down from main.
type appCtx struct {
	cfg    *rconfig.Config
	logger *slog.Logger
	cache  *rcache.Cache
}

type appCtxKey struct{}

func withAppCtx(ctx context.Context, a *appCtx) context.Context {
	return context.WithValue(ctx, appCtxKey{}, a)
}

func appCtxFrom(ctx context.Context) *appCtx {
	a, ok := ctx.Value(appCtxKey{}).(*appCtx)
	if !ok {
		panic("reups: appCtx missing from context")
	}
	return a
}

// buildAppCtx loads configuration (merging CLI overrides), builds the
// logger, and opens the on-disk cache.
func buildAppCtx(configPath string, overrides configOverrides) (*appCtx, error) {
	cfg, err := rconfig.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("reups: %w", err)
	}
	overrides.apply(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("reups: invalid configuration: %w", err)
	}

	logger, err := rlog.NewFromLevelName(os.Stderr, cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("reups: %w", err)
	}

	cache, err := rcache.New(cfg.CacheDir, logger)
	if err != nil {
		return nil, fmt.Errorf("reups: %w", err)
	}

	return &appCtx{cfg: cfg, logger: logger, cache: cache}, nil
}

// configOverrides carries the persistent flags that, when set, win over the
// loaded config file's fields.
type configOverrides struct {
	stacks        []string
	tagPreference []string
	userTagDir    string
	cacheDir      string
	logLevel      string
}

func (o configOverrides) apply(cfg *rconfig.Config) {
	if len(o.stacks) > 0 {
		cfg.Stacks = o.stacks
	}
	if len(o.tagPreference) > 0 {
		cfg.TagPreference = o.tagPreference
	}
	if o.userTagDir != "" {
		cfg.UserTagDir = o.userTagDir
	}
	if o.cacheDir != "" {
		cfg.CacheDir = o.cacheDir
	}
	if o.logLevel != "" {
		cfg.LogLevel = o.logLevel
	}
}

// openDB opens every configured stack, parallelized by internal/db.
func openDB(ctx context.Context, a *appCtx) (*db.DB, error) {
	d, err := db.Open(ctx, a.cfg.Stacks, a.cache, a.cfg.UserTagDir)
	if err != nil {
		return nil, err
	}
	if w := d.Warnings(); w != nil {
		for _, werr := range w.Errors {
			a.logger.Warn(werr.Error())
		}
	}
	return d, nil
}

// logWarnings logs each accumulated non-fatal resolution warning at warn
// level (spec §7 "non-fatal, logged only").
func logWarnings(a *appCtx, warnings *multierror.Error) {
	if warnings == nil {
		return
	}
	for _, w := range warnings.Errors {
		a.logger.Warn(w.Error())
	}
}

// environMap turns os.Environ()'s KEY=VALUE slice into a lookup map.
func environMap() map[string]string {
	env := os.Environ()
	out := make(map[string]string, len(env))
	for _, kv := range env {
		for i := 0; i < len(kv); i++ {
			if kv[i] == '=' {
				out[kv[:i]] = kv[i+1:]
				break
			}
		}
	}
	return out
}
