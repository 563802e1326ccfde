package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"iter"
	"time"

	"mare-records/internal/domain/mares"
)

// timeLayout es RFC3339 en UTC con nanosegundos de ancho fijo: ordena igual como string que como instante.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

const selectColumns = `id, name, breed, modified_at`

type MaresRepo struct {
	db *sql.DB
}

func NewMaresRepo(db *sql.DB) *MaresRepo {
	return &MaresRepo{db: db}
}

func (r *MaresRepo) Create(ctx context.Context, m mares.NewMare) (mares.Mare, error) {
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO mares (name, breed, modified_at)
		VALUES (?, ?, ?)
		RETURNING `+selectColumns,
		m.Name,
		int32(m.Breed),
		formatTime(m.ModifiedAt),
	)
	return scanMare(row)
}

func (r *MaresRepo) GetByID(ctx context.Context, id int64) (mares.Mare, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+selectColumns+`
		FROM mares
		WHERE id = ?
	`, id)

	m, err := scanMare(row)
	if errors.Is(err, sql.ErrNoRows) {
		return mares.Mare{}, mares.ErrNotFound
	}
	return m, err
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
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+selectColumns+`
		FROM mares
		WHERE id > ?
		ORDER BY id ASC
		LIMIT ?
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

// Update lee modified_at dentro de la transacción y compara instantes, no strings:
// filas con el formato del DEFAULT (milisegundos) no ordenan bien contra timeLayout.
func (r *MaresRepo) Update(ctx context.Context, id int64, p mares.Patch) (_ mares.Mare, err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return mares.Mare{}, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var stored string
	err = tx.QueryRowContext(ctx, `SELECT modified_at FROM mares WHERE id = ?`, id).Scan(&stored)
	if errors.Is(err, sql.ErrNoRows) {
		return mares.Mare{}, mares.ErrNotFound
	}
	if err != nil {
		return mares.Mare{}, err
	}
	current, err := parseTime(stored)
	if err != nil {
		return mares.Mare{}, err
	}
	if p.IfModifiedAt != nil && !current.Equal(*p.IfModifiedAt) {
		return mares.Mare{}, mares.ErrConflict
	}

	next := p.ModifiedAt
	if current.After(next) {
		next = current
	}
	var name sql.NullString
	if p.Name != nil {
		name = sql.NullString{String: *p.Name, Valid: true}
	}
	var breed sql.NullInt32
	if p.Breed != nil {
		breed = sql.NullInt32{Int32: int32(*p.Breed), Valid: true}
	}

	row := tx.QueryRowContext(ctx, `
		UPDATE mares
		SET
			name = COALESCE(?, name),
			breed = COALESCE(?, breed),
			modified_at = ?
		WHERE id = ? AND modified_at = ?
		RETURNING `+selectColumns,
		name,
		breed,
		formatTime(next),
		id,
		stored,
	)
	m, err := scanMare(row)
	if errors.Is(err, sql.ErrNoRows) {
		err = mares.ErrConflict
	}
	if err != nil {
		return mares.Mare{}, err
	}
	return m, tx.Commit()
}

func (r *MaresRepo) Delete(ctx context.Context, id int64) (mares.Mare, error) {
	row := r.db.QueryRowContext(ctx, `
		DELETE FROM mares
		WHERE id = ?
		RETURNING `+selectColumns,
		id,
	)

	m, err := scanMare(row)
	if errors.Is(err, sql.ErrNoRows) {
		return mares.Mare{}, mares.ErrNotFound
	}
	return m, err
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
		ts    string
	)
	if err := s.Scan(&m.ID, &m.Name, &breed, &ts); err != nil {
		return mares.Mare{}, err
	}
	t, err := parseTime(ts)
	if err != nil {
		return mares.Mare{}, err
	}
	m.Breed = mares.Breed(breed)
	m.ModifiedAt = t
	return m, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

// parseTime acepta también el formato con milisegundos que produce el DEFAULT de la tabla.
func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse modified_at %q: %w", s, err)
	}
	return t.UTC(), nil
}
