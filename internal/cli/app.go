package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/me/mgasm/internal/archive"
	"github.com/me/mgasm/internal/catalog"
	"github.com/me/mgasm/internal/config"
	"github.com/me/mgasm/internal/pipeline"
	"github.com/me/mgasm/internal/store"
	"github.com/me/mgasm/pkg/kbase"
)

// App holds the wired components shared by the local commands and the server.
type App struct {
	Config       config.Config
	Store        *store.SQLiteStore
	Catalog      *catalog.Catalog // nil unless the local backend is selected
	Orchestrator *pipeline.Orchestrator
}

// NewApp opens the run history and connects the orchestrator to the
// configured backend. Empty DBPath and CatalogDir default to ~/.mgasm.
func NewApp(ctx context.Context, cfg config.Config, logger *slog.Logger) (*App, error) {
	if cfg.DBPath == "" {
		cfg.DBPath = defaultStatePath("mgasm.db")
	}
	if cfg.Backend == config.BackendLocal && cfg.CatalogDir == "" {
		cfg.CatalogDir = defaultStatePath("catalog")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Tools.Validate(); err != nil {
		logger.Warn("pipeline runs will be refused until the tool table is fixed", "error", err)
	}

	if cfg.DBPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}
	st, err := store.NewSQLiteStore(cfg.DBPath, logger)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	app := &App{Config: cfg, Store: st}

	var services pipeline.Services
	switch cfg.Backend {
	case config.BackendLocal:
		cat, err := catalog.New(cfg.CatalogDir, st, logger)
		if err != nil {
			st.Close()
			return nil, err
		}
		app.Catalog = cat
		services = cat
	default:
		kc := kbase.DefaultConfig(cfg.Services.CallbackURL).
			WithToken(cfg.Services.Token).
			WithRetries(cfg.Services.MaxRetries, cfg.Services.RetryDelay)
		if cfg.Services.Timeout > 0 {
			kc.Timeout = cfg.Services.Timeout
		}
		services = kbase.NewClient(kc, logger)
	}

	pc := pipeline.Config{
		Settings: cfg,
		Services: services,
		Recorder: st,
		Logger:   logger,
	}
	if cfg.Archive.Enabled() {
		mirror, err := archive.NewS3Mirror(cfg.Archive, logger)
		if err != nil {
			st.Close()
			return nil, fmt.Errorf("archive: %w", err)
		}
		pc.Archiver = mirror
	}
	app.Orchestrator = pipeline.New(pc)

	logger.Debug("application ready",
		"backend", cfg.Backend,
		"db", cfg.DBPath,
		"scratch", cfg.ScratchDir,
		"archive", cfg.Archive.Enabled(),
	)
	return app, nil
}

// Close releases the run history.
func (a *App) Close() error {
	return a.Store.Close()
}

// defaultStatePath returns name under ~/.mgasm, falling back to the working
// directory when no home directory is known.
func defaultStatePath(name string) string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".mgasm", name)
	}
	return filepath.Join(home, ".mgasm", name)
}
