// Package backend opens the store implementation named in the configuration.
package backend

import (
	"fmt"

	"tgdash/internal/config"
	"tgdash/internal/store"
	"tgdash/internal/store/duckdb"
	"tgdash/internal/store/sqlite"
)

func Open(cfg config.StorageConfig) (store.Store, error) {
	switch cfg.Driver {
	case "", "sqlite":
		st, err := sqlite.NewStore(cfg.Path)
		if err != nil {
			return nil, err
		}
		return st, nil
	case "duckdb":
		st, err := duckdb.NewStore(cfg.Path)
		if err != nil {
			return nil, err
		}
		return st, nil
	}
	return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
}
