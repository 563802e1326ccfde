package sqlite

import (
	"context"
	"fmt"
	"strings"

	"mare-records/internal/adapters/storage/sqlmigrate"
	"mare-records/internal/domain/mares"
)

var dialect = sqlmigrate.Dialect{
	CreateTable: `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version    INTEGER PRIMARY KEY,
			name       TEXT NOT NULL,
			applied_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ', 'now'))
		)`,
	SelectVersions: `SELECT version FROM schema_migrations`,
	InsertVersion:  `INSERT INTO schema_migrations (version, name) VALUES (?, ?)`,
}

// AUTOINCREMENT evita que SQLite reutilice ids tras borrar la fila más alta.
// modified_at es TEXT con ancho fijo (ver timeLayout); el DEFAULT completa los milisegundos hasta nanosegundos.
var migrations = []sqlmigrate.Migration{
	{
		Version: 1,
		Name:    "create_mares",
		SQL: `
			CREATE TABLE IF NOT EXISTS mares (
				id          INTEGER PRIMARY KEY AUTOINCREMENT,
				name        VARCHAR(100) NOT NULL CHECK (length(name) <= 100),
				breed       INTEGER NOT NULL,
				modified_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%f', 'now') || '000000Z')
			)`,
	},
	{
		Version: 2,
		Name:    "mares_name_idx",
		SQL:     `CREATE INDEX IF NOT EXISTS mares_name_idx ON mares (name)`,
	},
}

type columnSpec struct {
	typ     string
	notNull bool
	pk      bool
}

var expectedColumns = map[string]columnSpec{
	"id":          {typ: "INTEGER", pk: true},
	"name":        {typ: "VARCHAR(100)", notNull: true},
	"breed":       {typ: "INTEGER", notNull: true},
	"modified_at": {typ: "TEXT", notNull: true},
}

func (r *MaresRepo) EnsureSchema(ctx context.Context) error {
	if _, err := sqlmigrate.Run(ctx, r.db, dialect, migrations); err != nil {
		return &mares.SchemaError{Reason: "apply migrations", Err: err}
	}
	return r.verifySchema(ctx)
}

func (r *MaresRepo) verifySchema(ctx context.Context) error {
	rows, err := r.db.QueryContext(ctx, `PRAGMA table_info(mares)`)
	if err != nil {
		return &mares.SchemaError{Reason: "inspect mares", Err: err}
	}
	defer rows.Close()

	found := map[string]columnSpec{}
	for rows.Next() {
		var (
			cid     int
			name    string
			typ     string
			notNull int
			dflt    any
			pk      int
		)
		if err := rows.Scan(&cid, &name, &typ, &notNull, &dflt, &pk); err != nil {
			return &mares.SchemaError{Reason: "inspect mares", Err: err}
		}
		found[name] = columnSpec{typ: strings.ToUpper(strings.TrimSpace(typ)), notNull: notNull == 1, pk: pk > 0}
	}
	if err := rows.Err(); err != nil {
		return &mares.SchemaError{Reason: "inspect mares", Err: err}
	}

	return compareColumns(found)
}

func compareColumns(found map[string]columnSpec) error {
	if len(found) == 0 {
		return &mares.SchemaError{Reason: "relation mares does not exist"}
	}
	for col, want := range expectedColumns {
		got, ok := found[col]
		if !ok {
			return &mares.SchemaError{Reason: fmt.Sprintf("column mares.%s missing", col)}
		}
		if got.typ != want.typ || got.pk != want.pk || (want.notNull && !got.notNull) {
			return &mares.SchemaError{Reason: fmt.Sprintf("column mares.%s has incompatible shape (type=%s)", col, got.typ)}
		}
	}
	return nil
}
