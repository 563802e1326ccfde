// Package sqlmigrate aplica migraciones SQL ordenadas y registra las versiones aplicadas.
package sqlmigrate

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
)

type Migration struct {
	Version int
	Name    string
	SQL     string
}

// Dialect contiene las sentencias que cambian entre motores.
type Dialect struct {
	// CreateTable crea la tabla de control (version, name, applied_at) si no existe.
	CreateTable string
	// SelectVersions devuelve una columna con las versiones aplicadas.
	SelectVersions string
	// InsertVersion recibe (version, name).
	InsertVersion string

	// Lock / Unlock son opcionales. Se ejecutan sobre la misma conexión que las migraciones.
	Lock   string
	Unlock string
}

// Run aplica las migraciones pendientes, cada una en su propia transacción.
// Devuelve las versiones aplicadas en esta llamada.
func Run(ctx context.Context, db *sql.DB, d Dialect, migrations []Migration) ([]int, error) {
	ordered, err := sortMigrations(migrations)
	if err != nil {
		return nil, err
	}

	conn, err := db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Close()

	if d.Lock != "" {
		if _, err := conn.ExecContext(ctx, d.Lock); err != nil {
			return nil, fmt.Errorf("acquire migration lock: %w", err)
		}
		defer func() {
			// el lock es de sesión: hay que soltarlo aunque ctx ya esté cancelado
			_, _ = conn.ExecContext(context.WithoutCancel(ctx), d.Unlock)
		}()
	}

	if _, err := conn.ExecContext(ctx, d.CreateTable); err != nil {
		return nil, fmt.Errorf("create migrations table: %w", err)
	}

	applied, err := appliedVersions(ctx, conn, d.SelectVersions)
	if err != nil {
		return nil, err
	}

	var done []int
	for _, m := range ordered {
		if applied[m.Version] {
			continue
		}
		if err := apply(ctx, conn, d, m); err != nil {
			return done, err
		}
		done = append(done, m.Version)
	}
	return done, nil
}

func sortMigrations(migrations []Migration) ([]Migration, error) {
	out := make([]Migration, len(migrations))
	copy(out, migrations)
	sort.Slice(out, func(i, j int) bool { return out[i].Version < out[j].Version })

	for i, m := range out {
		if m.Version <= 0 {
			return nil, fmt.Errorf("migration %q: version must be positive", m.Name)
		}
		if i > 0 && out[i-1].Version == m.Version {
			return nil, fmt.Errorf("duplicate migration version %d", m.Version)
		}
	}
	return out, nil
}

func appliedVersions(ctx context.Context, conn *sql.Conn, query string) (map[int]bool, error) {
	rows, err := conn.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("read applied migrations: %w", err)
	}
	defer rows.Close()

	out := map[int]bool{}
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("read applied migrations: %w", err)
		}
		out[v] = true
	}
	return out, rows.Err()
}

func apply(ctx context.Context, conn *sql.Conn, d Dialect, m Migration) error {
	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("migration %d (%s): begin: %w", m.Version, m.Name, err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, m.SQL); err != nil {
		return fmt.Errorf("migration %d (%s): %w", m.Version, m.Name, err)
	}
	if _, err := tx.ExecContext(ctx, d.InsertVersion, m.Version, m.Name); err != nil {
		return fmt.Errorf("migration %d (%s): record version: %w", m.Version, m.Name, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("migration %d (%s): commit: %w", m.Version, m.Name, err)
	}
	return nil
}
