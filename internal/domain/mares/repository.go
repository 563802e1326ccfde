package mares

import (
	"context"
	"iter"
)

// Repository es el contrato que cumplen los adapters de storage (postgres, sqlite, memory).
// Debe devolver ErrNotFound / ErrConflict tal cual; el resto de errores los envuelve el Service.
type Repository interface {
	Create(ctx context.Context, m NewMare) (Mare, error)
	GetByID(ctx context.Context, id int64) (Mare, error)

	// List recorre todos los registros ordenados por id ASC sin cargarlos en memoria.
	List(ctx context.Context) iter.Seq2[Mare, error]
	ListPage(ctx context.Context, afterID int64, limit int) ([]Mare, error)

	Update(ctx context.Context, id int64, p Patch) (Mare, error)
	Delete(ctx context.Context, id int64) (Mare, error)

	Ping(ctx context.Context) error
	EnsureSchema(ctx context.Context) error
	Close() error
}
