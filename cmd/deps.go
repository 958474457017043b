package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/walak/walak/internal/config"
	"github.com/walak/walak/internal/engine"
	"github.com/walak/walak/internal/logging"
	"github.com/walak/walak/internal/remote"
	"github.com/walak/walak/internal/store"
	"github.com/walak/walak/internal/taxonomy"
)

func loadConfig() (config.Config, error) {
	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return config.Config{}, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// openStore opens the local SQLite store at store.path or the default
// location.
func openStore(cfg config.Config) (*store.Store, error) {
	path := cfg.StorePath
	if path == "" {
		var err error
		if path, err = store.DefaultDBPath(); err != nil {
			return nil, err
		}
	}
	logging.Log.WithField("path", path).Debug("opening store")
	s, err := store.New(path)
	if err != nil {
		return nil, fmt.Errorf("open store %s: %w", path, err)
	}
	return s, nil
}

func newRemote(cfg config.Config) (*remote.Client, error) {
	if cfg.APIURL == "" {
		return nil, fmt.Errorf("%s is not set", config.KeyAPIURL)
	}
	return remote.New(cfg.APIURL, remote.Options{
		Timeout: cfg.APITimeout,
		Retries: cfg.APIRetries,
	}), nil
}

// backend is where the logs of a command come from. Settings is the local
// store when there is one; it is nil for the remote source.
type backend struct {
	Repo     store.Repository
	Settings *store.Store
	close    func() error
}

func (b backend) Close() error {
	if b.close == nil {
		return nil
	}
	return b.close()
}

func openBackend(cfg config.Config) (backend, error) {
	if cfg.Remote() {
		c, err := newRemote(cfg)
		if err != nil {
			return backend{}, err
		}
		logging.Log.WithField("url", cfg.APIURL).Debug("using remote log store")
		return backend{Repo: c}, nil
	}
	s, err := openStore(cfg)
	if err != nil {
		return backend{}, err
	}
	return backend{Repo: s, Settings: s, close: s.Close}, nil
}

func loadTaxonomy(cfg config.Config) (*taxonomy.Taxonomy, error) {
	if cfg.TaxonomyFile == "" {
		return taxonomy.Default(), nil
	}
	tax, err := taxonomy.LoadFile(cfg.TaxonomyFile)
	if err != nil {
		return nil, err
	}
	logging.Log.WithField("file", cfg.TaxonomyFile).Debug("loaded taxonomy")
	return tax, nil
}

func newEngine(cfg config.Config) (*engine.Engine, error) {
	tax, err := loadTaxonomy(cfg)
	if err != nil {
		return nil, err
	}
	return engine.New(tax, time.Local), nil
}
