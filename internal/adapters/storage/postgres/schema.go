package postgres

import (
	"context"
	"fmt"

	"mare-records/internal/adapters/storage/sqlmigrate"
	"mare-records/internal/domain/mares"
)

// migrationLockKey identifica el advisory lock que serializa arranques concurrentes.
const migrationLockKey = 7_100_423_001

var dialect = sqlmigrate.Dialect{
	CreateTable: `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version    INTEGER PRIMARY KEY,
			name       TEXT NOT NULL,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
	SelectVersions: `SELECT version FROM schema_migrations`,
	InsertVersion:  `INSERT INTO schema_migrations (version, name) VALUES ($1, $2)`,
	Lock:           fmt.Sprintf(`SELECT pg_advisory_lock(%d)`, migrationLockKey),
	Unlock:         fmt.Sprintf(`SELECT pg_advisory_unlock(%d)`, migrationLockKey),
}

var migrations = []sqlmigrate.Migration{
	{
		Version: 1,
		Name:    "create_mares",
		SQL: `
			CREATE TABLE IF NOT EXISTS mares (
				id          INTEGER GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
				name        VARCHAR(100) NOT NULL,
				breed       INTEGER NOT NULL,
				modified_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
			)`,
	},
	{
		Version: 2,
		Name:    "mares_name_idx",
		SQL:     `CREATE INDEX IF NOT EXISTS mares_name_idx ON mares (name)`,
	},
}

type columnSpec struct {
	dataType  string
	maxLength int
	nullable  bool
	identity  bool
}

var expectedColumns = map[string]columnSpec{
	"id":          {dataType: "integer", identity: true},
	"name":        {dataType: "character varying", maxLength: 100},
	"breed":       {dataType: "integer"},
	"modified_at": {dataType: "timestamp with time zone"},
}

func (r *MaresRepo) EnsureSchema(ctx context.Context) error {
	if _, err := sqlmigrate.Run(ctx, r.db, dialect, migrations); err != nil {
		return &mares.SchemaError{Reason: "apply migrations", Err: err}
	}
	return r.verifySchema(ctx)
}

func (r *MaresRepo) verifySchema(ctx context.Context) error {
	rows, err := r.db.QueryContext(ctx, `
		SELECT
			column_name,
			data_type,
			COALESCE(character_maximum_length, 0),
			is_nullable = 'YES',
			is_identity = 'YES'
		FROM information_schema.columns
		WHERE table_schema = current_schema() AND table_name = 'mares'
	`)
	if err != nil {
		return &mares.SchemaError{Reason: "inspect mares", Err: err}
	}
	defer rows.Close()

	found := map[string]columnSpec{}
	for rows.Next() {
		var name string
		var c columnSpec
		if err := rows.Scan(&name, &c.dataType, &c.maxLength, &c.nullable, &c.identity); err != nil {
			return &mares.SchemaError{Reason: "inspect mares", Err: err}
		}
		found[name] = c
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
		if got != want {
			return &mares.SchemaError{Reason: fmt.Sprintf(
				"column mares.%s has incompatible shape (type=%s len=%d nullable=%t identity=%t)",
				col, got.dataType, got.maxLength, got.nullable, got.identity,
			)}
		}
	}
	return nil
}
