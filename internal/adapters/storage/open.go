// Package storage elige el adaptador de mares.Repository a partir de DATABASE_URL.
package storage

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"mare-records/internal/adapters/storage/memory"
	"mare-records/internal/adapters/storage/postgres"
	"mare-records/internal/adapters/storage/sqlite"
	"mare-records/internal/domain/mares"
	"mare-records/internal/platform/logger"
)

type Config struct {
	URL            string
	MaxOpenConns   int
	MaxIdleConns   int
	ConnectTimeout time.Duration
}

type Driver string

const (
	DriverMemory   Driver = "memory"
	DriverPostgres Driver = "postgres"
	DriverSQLite   Driver = "sqlite"
)

// ParseURL devuelve el driver y el DSN que entiende ese driver.
//
//	""                         -> memory
//	postgres://… postgresql:// -> postgres (URL tal cual)
//	sqlite:ruta, sqlite://ruta -> sqlite (ruta o :memory:)
func ParseURL(raw string) (Driver, string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return DriverMemory, "", nil
	}

	scheme, rest, ok := strings.Cut(raw, ":")
	if !ok {
		return "", "", fmt.Errorf("database url %q: missing scheme", Redact(raw))
	}
	switch strings.ToLower(scheme) {
	case "postgres", "postgresql":
		return DriverPostgres, raw, nil
	case "sqlite", "sqlite3":
		dsn := strings.TrimPrefix(rest, "//")
		if dsn == "" {
			return "", "", fmt.Errorf("database url %q: empty sqlite path", raw)
		}
		return DriverSQLite, dsn, nil
	default:
		return "", "", fmt.Errorf("database url %q: unsupported scheme %q", Redact(raw), scheme)
	}
}

// Open conecta, aplica el schema y devuelve el repositorio listo.
// Cualquier fallo es un *mares.SchemaError: el proceso no debe arrancar sin tabla válida.
func Open(ctx context.Context, cfg Config, log logger.Logger) (mares.Repository, error) {
	if log == nil {
		log = logger.Nop()
	}

	driver, dsn, err := ParseURL(cfg.URL)
	if err != nil {
		return nil, &mares.SchemaError{Reason: "parse database url", Err: err}
	}

	var repo mares.Repository
	switch driver {
	case DriverMemory:
		log.Warn("DATABASE_URL not set; using in-memory storage", nil)
		repo = memory.NewMaresRepo()

	case DriverPostgres:
		db, err := postgres.Open(ctx, dsn, postgres.PoolOptions{
			MaxOpenConns:   cfg.MaxOpenConns,
			MaxIdleConns:   cfg.MaxIdleConns,
			ConnectTimeout: cfg.ConnectTimeout,
		})
		if err != nil {
			return nil, &mares.SchemaError{Reason: "connect postgres", Err: err}
		}
		repo = postgres.NewMaresRepo(db)

	case DriverSQLite:
		db, err := sqlite.Open(ctx, dsn)
		if err != nil {
			return nil, &mares.SchemaError{Reason: "open sqlite", Err: err}
		}
		repo = sqlite.NewMaresRepo(db)
	}

	if err := repo.EnsureSchema(ctx); err != nil {
		_ = repo.Close()
		return nil, err
	}

	log.Info("storage ready", map[string]any{
		"driver": string(driver),
		"url":    Redact(cfg.URL),
	})
	return repo, nil
}

// redactedURL reemplaza URLs que no se pueden parsear: podrían traer credenciales.
const redactedURL = "[unparseable url]"

// Redact oculta la contraseña de una URL para poder loguearla.
func Redact(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return redactedURL
	}
	if u.User == nil {
		return raw
	}
	if _, ok := u.User.Password(); ok {
		u.User = url.UserPassword(u.User.Username(), "xxxxx")
	}
	return u.String()
}
