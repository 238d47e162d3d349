// File: cmd/fetch.go
// Shared wiring for the fetch subcommands: credentials sourcing, engine
// construction, output, and optional persistence.
package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/aonoki/unifetch/internal/browser"
	"github.com/aonoki/unifetch/internal/observability"
	"github.com/aonoki/unifetch/internal/portal"
	"github.com/aonoki/unifetch/internal/scraper"
	"github.com/aonoki/unifetch/internal/store"
)

var (
	flagUser     string
	flagPassword string
)

func credentials() scraper.Credentials {
	creds := scraper.Credentials{Identifier: flagUser, Secret: flagPassword}
	if creds.Identifier == "" {
		creds.Identifier = os.Getenv("UNIFETCH_PORTAL_USER")
	}
	if creds.Secret == "" {
		creds.Secret = os.Getenv("UNIFETCH_PORTAL_PASSWORD")
	}
	return creds
}

// newEngine starts a browser and wires the orchestrator over it. The caller
// must Close the returned manager.
func newEngine(ctx context.Context) (*browser.Manager, *scraper.Orchestrator, error) {
	logger := observability.GetLogger()

	mgr, err := browser.NewManager(ctx, appCfg.Browser, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to start browser: %w", err)
	}

	orch := scraper.New(mgr, portal.NewRuleClassifier(), appCfg.Scraper, appCfg.Portal, logger)
	return mgr, orch, nil
}

func nowInPortalTZ() time.Time {
	return time.Now().In(portal.Location)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

// withStore opens the result store when storage is enabled and hands it to fn.
func withStore(ctx context.Context, fn func(ctx context.Context, st *store.Store) error) error {
	if !appCfg.Storage.Enabled {
		return nil
	}
	logger := observability.GetLogger()

	pool, err := pgxpool.New(ctx, appCfg.Storage.URL)
	if err != nil {
		return fmt.Errorf("failed to open result store: %w", err)
	}
	defer pool.Close()

	st, err := store.New(ctx, pool, logger)
	if err != nil {
		return err
	}
	if err := st.InitSchema(ctx); err != nil {
		return err
	}

	if err := fn(ctx, st); err != nil {
		return err
	}
	logger.Info("Results persisted", zap.String("store", "postgres"))
	return nil
}
