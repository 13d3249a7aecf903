package pipeline

import (
	"context"
	"fmt"
	"log"

	"github.com/warp/vr-engine/benefit"
	"github.com/warp/vr-engine/config"
	"github.com/warp/vr-engine/factory"
	"github.com/warp/vr-engine/gemini"
	"github.com/warp/vr-engine/generic"
	"github.com/warp/vr-engine/generic/store"
	"github.com/warp/vr-engine/store/sqlite"
)

// FromConfig wires the union catalog, the policy and the Gemini adapter.
// A missing API key is not an error here: runs fail with
// ErrMissingCredential instead, so servers still start and report it.
func FromConfig(ctx context.Context, cfg *config.Config) (*Pipeline, error) {
	policy, err := cfg.ResolvePolicy()
	if err != nil {
		return nil, err
	}

	p := &Pipeline{
		Policy:  policy,
		Timeout: cfg.Adjudicator.Timeout,
		Workers: cfg.Adjudicator.Workers,
	}

	if err := p.openUnions(ctx, cfg.Unions); err != nil {
		p.Close()
		return nil, err
	}

	if cfg.APIKey == "" {
		log.Printf("[Pipeline] %s is not set; runs will fail until it is configured", config.EnvAPIKey)
		return p, nil
	}
	// The period is replaced on every run.
	adj, err := gemini.New(ctx, gemini.Config{APIKey: cfg.APIKey, Model: cfg.Adjudicator.Model}, generic.Period{})
	if err != nil {
		p.Close()
		return nil, err
	}
	p.Adjudicator = func(period generic.Period) benefit.Adjudicator {
		return adj.ForPeriod(period)
	}
	return p, nil
}

func (p *Pipeline) openUnions(ctx context.Context, uc config.UnionsConfig) error {
	var (
		table *benefit.UnionTable
		err   error
	)
	switch {
	case uc.Database != "":
		table, err = p.openCatalog(ctx, uc)
	case uc.CatalogFile != "":
		table, err = factory.NewUnionFactory().LoadUnionTable(uc.CatalogFile)
		if err == nil {
			table, err = memoryTable(ctx, table, uc.Fallback)
		}
	default:
		table, err = memoryTable(ctx, benefit.DefaultUnionTable(), uc.Fallback)
	}
	if err != nil {
		return fmt.Errorf("union catalog: %w", err)
	}
	p.Unions = table
	return nil
}

// memoryTable copies seed into an in-memory catalog, applies the configured
// fallback and reads the table back.
func memoryTable(ctx context.Context, seed *benefit.UnionTable, fallback string) (*benefit.UnionTable, error) {
	catalog := store.NewMemory()
	if err := seed.Seed(ctx, catalog); err != nil {
		return nil, err
	}
	if fallback != "" {
		if err := catalog.SetFallbackCode(ctx, fallback); err != nil {
			return nil, fmt.Errorf("fallback %q: %w", fallback, err)
		}
	}
	return benefit.NewUnionTableFromCatalog(ctx, catalog)
}

// openCatalog opens the SQLite catalog, seeding the built-in unions into an
// empty one. The store also keeps the run history.
func (p *Pipeline) openCatalog(ctx context.Context, uc config.UnionsConfig) (*benefit.UnionTable, error) {
	db, err := sqlite.New(uc.Database)
	if err != nil {
		return nil, err
	}
	p.Catalog = db
	p.History = db

	n, err := db.CountRateCards(ctx)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		log.Printf("[Pipeline] seeding union catalog %s", uc.Database)
		if err := benefit.DefaultUnionTable().Seed(ctx, db); err != nil {
			return nil, err
		}
	}
	if uc.Fallback != "" {
		if err := db.SetFallbackCode(ctx, uc.Fallback); err != nil {
			return nil, err
		}
	}
	return benefit.NewUnionTableFromCatalog(ctx, db)
}
