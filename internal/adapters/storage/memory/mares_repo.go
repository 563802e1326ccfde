package memory

import (
	"context"
	"iter"
	"sort"
	"sync"

	"mare-records/internal/domain/mares"
)

// maresRepo es el storage de desarrollo: sin DATABASE_URL el proceso es su propio motor.
// nextID solo crece, así que los ids tampoco se reutilizan aquí.
type maresRepo struct {
	mu     sync.RWMutex
	byID   map[int64]mares.Mare
	nextID int64
}

func NewMaresRepo() mares.Repository {
	return &maresRepo{
		byID: make(map[int64]mares.Mare),
	}
}

func (r *maresRepo) Create(ctx context.Context, m mares.NewMare) (mares.Mare, error) {
	if err := ctx.Err(); err != nil {
		return mares.Mare{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	out := mares.Mare{
		ID:         r.nextID,
		Name:       m.Name,
		Breed:      m.Breed,
		ModifiedAt: m.ModifiedAt.UTC(),
	}
	r.byID[out.ID] = out
	return out, nil
}

func (r *maresRepo) GetByID(ctx context.Context, id int64) (mares.Mare, error) {
	if err := ctx.Err(); err != nil {
		return mares.Mare{}, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	m, ok := r.byID[id]
	if !ok {
		return mares.Mare{}, mares.ErrNotFound
	}
	return m, nil
}

// List itera sobre una copia tomada al empezar.
func (r *maresRepo) List(ctx context.Context) iter.Seq2[mares.Mare, error] {
	return func(yield func(mares.Mare, error) bool) {
		for _, m := range r.snapshot(0) {
			if err := ctx.Err(); err != nil {
				yield(mares.Mare{}, err)
				return
			}
			if !yield(m, nil) {
				return
			}
		}
	}
}

func (r *maresRepo) ListPage(ctx context.Context, afterID int64, limit int) ([]mares.Mare, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := r.snapshot(afterID)
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *maresRepo) snapshot(afterID int64) []mares.Mare {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]mares.Mare, 0, len(r.byID))
	for id, m := range r.byID {
		if id > afterID {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (r *maresRepo) Update(ctx context.Context, id int64, p mares.Patch) (mares.Mare, error) {
	if err := ctx.Err(); err != nil {
		return mares.Mare{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	m, ok := r.byID[id]
	if !ok {
		return mares.Mare{}, mares.ErrNotFound
	}
	if p.IfModifiedAt != nil && !m.ModifiedAt.Equal(*p.IfModifiedAt) {
		return mares.Mare{}, mares.ErrConflict
	}

	if p.Name != nil {
		m.Name = *p.Name
	}
	if p.Breed != nil {
		m.Breed = *p.Breed
	}
	if p.ModifiedAt.After(m.ModifiedAt) {
		m.ModifiedAt = p.ModifiedAt.UTC()
	}
	r.byID[id] = m
	return m, nil
}

func (r *maresRepo) Delete(ctx context.Context, id int64) (mares.Mare, error) {
	if err := ctx.Err(); err != nil {
		return mares.Mare{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	m, ok := r.byID[id]
	if !ok {
		return mares.Mare{}, mares.ErrNotFound
	}
	delete(r.byID, id)
	return m, nil
}

func (r *maresRepo) Ping(ctx context.Context) error { return ctx.Err() }

func (r *maresRepo) EnsureSchema(ctx context.Context) error { return ctx.Err() }

func (r *maresRepo) Close() error { return nil }
