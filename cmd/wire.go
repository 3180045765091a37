package main

import (
	"context"
	"os"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/praxis-labs/veracity/internal/collect"
	"github.com/praxis-labs/veracity/internal/config"
	"github.com/praxis-labs/veracity/internal/contact"
	"github.com/praxis-labs/veracity/internal/correction"
	"github.com/praxis-labs/veracity/internal/dnscheck"
	"github.com/praxis-labs/veracity/internal/enrich"
	"github.com/praxis-labs/veracity/internal/jobs"
	"github.com/praxis-labs/veracity/internal/notify"
	"github.com/praxis-labs/veracity/internal/registration"
	"github.com/praxis-labs/veracity/internal/store"
	"github.com/praxis-labs/veracity/internal/verify"
	"github.com/praxis-labs/veracity/pkg/anthropic"
)

func initStore(ctx context.Context, cfg *config.Config) (store.Store, error) {
	switch cfg.Store.Driver {
	case "", "sqlite":
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = "veracity.db"
		}
		return store.NewSQLite(dsn)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, &cfg.Store.Pool)
	default:
		return nil, eris.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}

// engine bundles everything a command needs to verify companies.
type engine struct {
	store       store.Store
	orch        *verify.Orchestrator
	corrections *correction.Service
}

func (e *engine) Close() {
	if err := e.store.Close(); err != nil {
		zap.L().Warn("close store", zap.Error(err))
	}
}

func buildEngine(ctx context.Context, cfg *config.Config) (*engine, error) {
	st, err := initStore(ctx, cfg)
	if err != nil {
		return nil, eris.Wrap(err, "open store")
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}

	catalog, err := loadCatalog(cfg.Catalog.Path)
	if err != nil {
		st.Close()
		return nil, err
	}

	gateway := collect.NewGateway(cfg.Collect, collect.NewStoreCache(st))
	notifier := notify.NewWebhook(cfg.Notify.WebhookURL)

	orch := verify.New(
		st,
		dnscheck.New(nil, nil),
		contact.New(nil, nil, nil),
		registration.New(gateway, catalog),
		catalog,
		buildEnricher(cfg),
		notifier,
	)

	return &engine{
		store:       st,
		orch:        orch,
		corrections: correction.New(st, notifier),
	}, nil
}

// loadCatalog tolerates a missing catalog file. Cross-referencing then runs
// degraded on registration number format alone.
func loadCatalog(path string) (*collect.Catalog, error) {
	if path == "" {
		return nil, nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		zap.L().Warn("source catalog not found, cross-reference checks disabled",
			zap.String("path", path))
		return nil, nil
	}
	catalog, err := collect.LoadCatalog(path)
	if err != nil {
		return nil, eris.Wrap(err, "load catalog")
	}
	return catalog, nil
}

func buildEnricher(cfg *config.Config) enrich.Enricher {
	if cfg.Anthropic.Key != "" {
		return enrich.NewAnthropic(anthropic.NewClient(cfg.Anthropic.Key), cfg.Enrich)
	}
	if len(cfg.Keywords.Suspicious) > 0 {
		return enrich.KeywordScanner{Keywords: cfg.Keywords.Suspicious}
	}
	return enrich.Noop{}
}

func buildRunner(cfg *config.Config, orch *verify.Orchestrator) (jobs.Runner, func(), error) {
	switch cfg.Jobs.Backend {
	case "", "local":
		r := jobs.NewLocalRunner(orch, cfg.Jobs.MaxConcurrent)
		return r, r.Wait, nil
	case "temporal":
		c, err := dialTemporal(cfg)
		if err != nil {
			return nil, nil, err
		}
		return jobs.NewTemporalRunner(c), c.Close, nil
	default:
		return nil, nil, eris.Errorf("unknown jobs backend %q", cfg.Jobs.Backend)
	}
}
