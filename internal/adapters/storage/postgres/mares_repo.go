package postgres

import (
	"context"
	"database/sql"
	"errors"
	"iter"
	"math"

	"github.com/jackc/pgx/v5/pgconn"

	"mare-records/internal/domain/mares"
)

const selectColumns = `id, name, breed, modified_at`

// maxID es el mayor valor de la columna id (INTEGER). Ids por encima no pueden existir
// y pgx ni siquiera los codifica como int4.
const maxID = math.MaxInt32

type MaresRepo struct {
	db *sql.DB
}

func NewMaresRepo(db *sql.DB) *MaresRepo {
	return &MaresRepo{db: db}
}

func (r *MaresRepo) Create(ctx context.Context, m mares.NewMare) (mares.Mare, error) {
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO mares (name, breed, modified_at)
		VALUES ($1, $2, $3)
		RETURNING `+selectColumns,
		m.Name,
		int32(m.Breed),
		m.ModifiedAt,
	)

	out, err := scanMare(row)
	if err != nil {
		return mares.Mare{}, mapError(err)
	}
	return out, nil
}

func (r *MaresRepo) GetByID(ctx context.Context, id int64) (mares.Mare, error) {
	if id > maxID {
		return mares.Mare{}, mares.ErrNotFound
	}
	row := r.db.QueryRowContext(ctx, `
		SELECT `+selectColumns+`
		FROM mares
		WHERE id = $1
	`, id)

	m, err := scanMare(row)
	if err != nil {
		return mares.Mare{}, mapError(err)
	}
	return m, nil
}

func (r *MaresRepo) List(ctx context.Context) iter.Seq2[mares.Mare, error] {
	return func(yield func(mares.Mare, error) bool) {
		rows, err := r.db.QueryContext(ctx, `
			SELECT `+selectColumns+`
			FROM mares
			ORDER BY id ASC
		`)
		if err != nil {
			yield(mares.Mare{}, err)
			return
		}
		defer rows.Close()

		for rows.Next() {
			m, err := scanMare(rows)
			if err != nil {
				yield(mares.Mare{}, err)
				return
			}
			if !yield(m, nil) {
				return
			}
		}
		if err := rows.Err(); err != nil {
			yield(mares.Mare{}, err)
		}
	}
}

func (r *MaresRepo) ListPage(ctx context.Context, afterID int64, limit int) ([]mares.Mare, error) {
	if afterID >= maxID {
		return []mares.Mare{}, nil
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+selectColumns+`
		FROM mares
		WHERE id > $1
		ORDER BY id ASC
		LIMIT $2
	`, afterID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]mares.Mare, 0, limit)
	for rows.Next() {
		m, err := scanMare(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// Update aplica el patch en una sola sentencia. GREATEST mantiene modified_at monótono
// aunque dos réplicas tengan relojes distintos.
func (r *MaresRepo) Update(ctx context.Context, id int64, p mares.Patch) (mares.Mare, error) {
	if id > maxID {
		return mares.Mare{}, mares.ErrNotFound
	}
	var name sql.NullString
	if p.Name != nil {
		name = sql.NullString{String: *p.Name, Valid: true}
	}
	var breed sql.NullInt32
	if p.Breed != nil {
		breed = sql.NullInt32{Int32: int32(*p.Breed), Valid: true}
	}
	var ifModified sql.NullTime
	if p.IfModifiedAt != nil {
		ifModified = sql.NullTime{Time: *p.IfModifiedAt, Valid: true}
	}

	row := r.db.QueryRowContext(ctx, `
		UPDATE mares
		SET
			name = COALESCE($2::varchar, name),
			breed = COALESCE($3::integer, breed),
			modified_at = GREATEST(modified_at, $4::timestamptz)
		WHERE id = $1
			AND ($5::timestamptz IS NULL OR modified_at = $5::timestamptz)
		RETURNING `+selectColumns,
		id,
		name,
		breed,
		p.ModifiedAt,
		ifModified,
	)

	m, err := scanMare(row)
	if err == nil {
		return m, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return mares.Mare{}, mapError(err)
	}
	if p.IfModifiedAt == nil {
		return mares.Mare{}, mares.ErrNotFound
	}
	// Sin filas con precondición: distinguir "no existe" de "cambió".
	if _, err := r.GetByID(ctx, id); err != nil {
		return mares.Mare{}, err
	}
	return mares.Mare{}, mares.ErrConflict
}

func (r *MaresRepo) Delete(ctx context.Context, id int64) (mares.Mare, error) {
	if id > maxID {
		return mares.Mare{}, mares.ErrNotFound
	}
	row := r.db.QueryRowContext(ctx, `
		DELETE FROM mares
		WHERE id = $1
		RETURNING `+selectColumns,
		id,
	)

	m, err := scanMare(row)
	if err != nil {
		return mares.Mare{}, mapError(err)
	}
	return m, nil
}

func (r *MaresRepo) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *MaresRepo) Close() error {
	return r.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanMare(s scanner) (mares.Mare, error) {
	var (
		m     mares.Mare
		breed int32
	)
	if err := s.Scan(&m.ID, &m.Name, &breed, &m.ModifiedAt); err != nil {
		return mares.Mare{}, err
	}
	m.Breed = mares.Breed(breed)
	m.ModifiedAt = m.ModifiedAt.UTC()
	return m, nil
}

// mapError traduce errores de Postgres a errores de dominio.
// Lo que no se reconoce se devuelve tal cual y el Service lo envuelve como StorageError.
func mapError(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return mares.ErrNotFound
	}

	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case "22001": // string_data_right_truncation
		return &mares.ValidationError{Field: "name", Reason: "must be at most 100 characters"}
	case "23502": // not_null_violation
		return &mares.ValidationError{Field: pgErr.ColumnName, Reason: "required"}
	case "22003": // numeric_value_out_of_range
		return &mares.ValidationError{Field: "breed", Reason: "out of range"}
	default:
		return err
	}
}
