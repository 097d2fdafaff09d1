package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/DiateAtendimento/conaprev-inscricoes-sub000/internal/app"
	"github.com/DiateAtendimento/conaprev-inscricoes-sub000/internal/cache"
	"github.com/DiateAtendimento/conaprev-inscricoes-sub000/internal/catalog"
	"github.com/DiateAtendimento/conaprev-inscricoes-sub000/internal/config"
	"github.com/DiateAtendimento/conaprev-inscricoes-sub000/internal/export"
	"github.com/DiateAtendimento/conaprev-inscricoes-sub000/internal/search"
	"github.com/DiateAtendimento/conaprev-inscricoes-sub000/internal/sheets"
	"github.com/DiateAtendimento/conaprev-inscricoes-sub000/internal/sheets/sqlsheet"
	"github.com/DiateAtendimento/conaprev-inscricoes-sub000/internal/sheets/xlsxsheet"
)

// environment holds the services one CLI invocation works with.
type environment struct {
	cfg     config.Config
	logger  *slog.Logger
	catalog *catalog.Catalog
	sheets  sheets.Accessor
	records *app.Records
	votes   *app.Votes
	search  *search.Service
	closers []func()
}

func newEnvironment(ctx context.Context, cfg config.Config, logger *slog.Logger) (*environment, error) {
	env := &environment{cfg: cfg, logger: logger}
	ok := false
	defer func() {
		if !ok {
			env.close()
		}
	}()

	cat, err := catalog.Load(cfg.CatalogPath)
	if err != nil {
		return nil, err
	}
	env.catalog = cat

	acc, creator, err := env.openBackend(ctx)
	if err != nil {
		return nil, err
	}
	env.sheets = acc

	tableCache, err := env.openCache()
	if err != nil {
		return nil, err
	}

	created, err := app.Bootstrap(ctx, cat, acc, creator)
	if err != nil {
		return nil, fmt.Errorf("bootstrap tables: %w", err)
	}
	if len(created) > 0 {
		logger.Info("created missing tables", "tables", created)
	}

	opts := app.Options{CacheTTL: cfg.CacheTTL, Logger: logger}
	env.records = app.NewRecords(cat, acc, tableCache, opts)
	env.votes = app.NewVotes(cat, acc, tableCache, env.records, opts)

	var meili *search.Meili
	if strings.TrimSpace(cfg.MeiliURL) != "" {
		meili = search.NewMeili(cfg.MeiliURL, cfg.MeiliMasterKey, logger)
		env.closers = append(env.closers, meili.Close)
	}
	profiles := make([]string, 0, len(cat.Profiles))
	for _, p := range cat.Profiles {
		profiles = append(profiles, p.Key)
	}
	env.search = search.NewService(meili, search.NewScan(env.records, profiles), logger)
	env.records.SetIndexer(env.search)
	// Runs before the Meili health loop is stopped.
	env.closers = append(env.closers, env.search.Wait)

	ok = true
	return env, nil
}

func (e *environment) openBackend(ctx context.Context) (sheets.Accessor, app.TableCreator, error) {
	switch e.cfg.Backend {
	case "memory":
		mem := sheets.NewMemory()
		return mem, app.TableCreatorFunc(func(_ context.Context, title string, headerRow []string) error {
			if len(headerRow) == 0 {
				mem.AddTable(title)
				return nil
			}
			mem.AddTable(title, headerRow)
			return nil
		}), nil

	case "sql":
		dialect, err := sqlsheet.ParseDialect(e.cfg.DatabaseDriver)
		if err != nil {
			return nil, nil, err
		}
		store, err := sqlsheet.Connect(ctx, dialect, e.cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		e.closers = append(e.closers, func() { _ = store.Close() })
		return store, app.TableCreatorFunc(func(ctx context.Context, title string, headerRow []string) error {
			_, err := store.EnsureTable(ctx, title, headerRow)
			return err
		}), nil

	case "xlsx":
		if err := os.MkdirAll(filepath.Dir(e.cfg.XLSXPath), 0o755); err != nil {
			return nil, nil, fmt.Errorf("create workbook dir: %w", err)
		}
		wb, err := xlsxsheet.Open(e.cfg.XLSXPath)
		if err != nil {
			return nil, nil, err
		}
		return wb, wb, nil

	default:
		return nil, nil, fmt.Errorf("unknown backend %q (want memory, sql or xlsx)", e.cfg.Backend)
	}
}

func (e *environment) openCache() (cache.Cache, error) {
	if strings.TrimSpace(e.cfg.RedisURL) == "" {
		return cache.NewMemory(e.cfg.CacheMaxEntries), nil
	}
	e.logger.Debug("using redis for the table cache")
	r, err := cache.NewRedis(e.cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}
	e.closers = append(e.closers, func() { _ = r.Close() })
	return r, nil
}

// exporter builds the export service, connecting to MinIO only when an
// endpoint is configured.
func (e *environment) exporter(ctx context.Context) (*export.Service, error) {
	var uploader export.Uploader
	if strings.TrimSpace(e.cfg.MinIOEndpoint) != "" {
		m, err := export.NewMinIO(ctx, export.MinIOConfig{
			Endpoint:  e.cfg.MinIOEndpoint,
			AccessKey: e.cfg.MinIOAccessKey,
			SecretKey: e.cfg.MinIOSecretKey,
			Bucket:    e.cfg.MinIOBucket,
			UseSSL:    e.cfg.MinIOUseSSL,
		})
		if err != nil {
			return nil, err
		}
		uploader = m
	}
	return export.NewService(e.records, uploader, e.logger), nil
}

// close releases resources in reverse order of acquisition.
func (e *environment) close() {
	for i := len(e.closers) - 1; i >= 0; i-- {
		e.closers[i]()
	}
	e.closers = nil
}
