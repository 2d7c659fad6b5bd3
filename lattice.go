// Package lattice maps declaratively typed domain objects onto a
// graph-oriented object store where relationships are directed predicate
// edges, with a secondary search index answering reverse-edge queries. This
// package wires the configured store and index adapters into a model.Repo;
// the interesting machinery lives in the model, schema, graph, store, and
// index packages.
package lattice

import (
	"context"
	"fmt"

	"github.com/lattice-data/lattice/config"
	"github.com/lattice-data/lattice/index"
	"github.com/lattice-data/lattice/model"
	"github.com/lattice-data/lattice/schema"
	"github.com/lattice-data/lattice/store"
)

// Open assembles a Repo from configuration: the selected primary store
// adapter, the Redis index when enabled, and the given reflection registry.
func Open(ctx context.Context, cfg *config.Config, registry *schema.Registry) (*model.Repo, error) {
	if cfg == nil {
		cfg = config.Default()
	}

	var st store.Client
	var err error
	switch cfg.Store.Driver {
	case "sqlite":
		st, err = store.OpenSQLite(ctx, cfg.Store.Path)
	case "postgres":
		st, err = store.OpenPostgres(ctx, cfg.Store.URL)
	case "memory":
		st = store.NewMemStore()
	default:
		err = fmt.Errorf("unknown store driver: %s", cfg.Store.Driver)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open primary store: %w", err)
	}

	var idx index.Client
	if cfg.Index.Enabled {
		idx, err = index.NewRedisIndex(index.RedisConfig{
			Addr:     cfg.Index.Addr,
			Password: cfg.Index.Password,
			DB:       cfg.Index.DB,
			Prefix:   cfg.Index.Prefix,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to connect to index: %w", err)
		}
	}

	return model.NewRepo(st, idx, registry), nil
}
