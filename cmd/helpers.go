// -- cmd/helpers.go --
package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
	"github.com/xkilldash9x/tourguard-cli/api/schemas"
	"github.com/xkilldash9x/tourguard-cli/internal/dom"
	"github.com/xkilldash9x/tourguard-cli/internal/dom/cdp"
	"github.com/xkilldash9x/tourguard-cli/internal/health"
	"github.com/xkilldash9x/tourguard-cli/internal/observability"
	"github.com/xkilldash9x/tourguard-cli/internal/observer"
	"github.com/xkilldash9x/tourguard-cli/internal/store"
	"go.uber.org/zap"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// loadTours reads tour definitions from a JSON file holding either a single
// definition object or an array of them.
func loadTours(path string) ([]*schemas.TourDefinition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read tours file: %w", err)
	}

	var defs []*schemas.TourDefinition
	if err := json.Unmarshal(data, &defs); err == nil {
		return defs, nil
	}

	var single schemas.TourDefinition
	if err := json.Unmarshal(data, &single); err != nil {
		return nil, fmt.Errorf("failed to parse %s as a tour definition or array: %w", path, err)
	}
	return []*schemas.TourDefinition{&single}, nil
}

// engine bundles the live components a command needs plus their teardown.
type engine struct {
	observers *observer.Manager
	checker   *health.Checker
	session   *cdp.Session
	runID     string

	cleanup []func()
}

func (e *engine) close() {
	for i := len(e.cleanup) - 1; i >= 0; i-- {
		e.cleanup[i]()
	}
}

// buildEngine wires the observer manager and health checker, attaching a live
// browser page when url is non-empty.
func buildEngine(ctx context.Context, url string, headless bool) (*engine, error) {
	logger := observability.GetLogger()

	e := &engine{runID: uuid.New().String()}

	e.observers = observer.NewManager(engineCfg.Observer(), logger)
	e.observers.Start()
	e.cleanup = append(e.cleanup, func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := e.observers.Close(closeCtx); err != nil {
			logger.Warn("Observer manager close failed", zap.Error(err))
		}
	})

	var resolver *dom.Resolver
	if url != "" {
		session, err := cdp.NewSession(ctx, cdp.SessionOptions{Headless: headless}, logger)
		if err != nil {
			e.close()
			return nil, err
		}
		e.session = session
		e.cleanup = append(e.cleanup, session.Close)

		if err := session.Navigate(ctx, url, 0); err != nil {
			e.close()
			return nil, err
		}
		resolver = dom.NewResolver(session.Document(), e.observers, engineCfg.Resolver(), logger)
	}

	e.checker = health.NewChecker(resolver, engineCfg.Health(), logger)
	return e, nil
}

// openStore connects the outcome store when the database is enabled,
// returning (nil, nil) otherwise.
func openStore(ctx context.Context) (*store.Store, func(), error) {
	dbCfg := engineCfg.Database()
	if !dbCfg.Enabled {
		return nil, func() {}, nil
	}

	pool, err := pgxpool.New(ctx, dbCfg.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	st, err := store.New(ctx, pool, observability.GetLogger())
	if err != nil {
		pool.Close()
		return nil, nil, err
	}
	return st, pool.Close, nil
}

// printJSON renders a value as indented JSON on the command's stdout.
func printJSON(cmd *cobra.Command, v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(out))
	return nil
}
