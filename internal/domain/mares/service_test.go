package mares

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"iter"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"mare-records/internal/platform/logger"
)

// -------------------------
// Test repo (in-memory)
// -------------------------

type testRepo struct {
	mu     sync.Mutex
	byID   map[int64]Mare
	nextID int64
	writes int

	failWith error
}

func newTestRepo() *testRepo {
	return &testRepo{byID: map[int64]Mare{}}
}

func (r *testRepo) Create(ctx context.Context, m NewMare) (Mare, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failWith != nil {
		return Mare{}, r.failWith
	}
	r.writes++
	r.nextID++
	out := Mare{ID: r.nextID, Name: m.Name, Breed: m.Breed, ModifiedAt: m.ModifiedAt}
	r.byID[out.ID] = out
	return out, nil
}

func (r *testRepo) GetByID(ctx context.Context, id int64) (Mare, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failWith != nil {
		return Mare{}, r.failWith
	}
	m, ok := r.byID[id]
	if !ok {
		return Mare{}, ErrNotFound
	}
	return m, nil
}

func (r *testRepo) sorted(afterID int64) []Mare {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Mare, 0, len(r.byID))
	for _, m := range r.byID {
		if m.ID > afterID {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (r *testRepo) List(ctx context.Context) iter.Seq2[Mare, error] {
	return func(yield func(Mare, error) bool) {
		if r.failWith != nil {
			yield(Mare{}, r.failWith)
			return
		}
		for _, m := range r.sorted(0) {
			if !yield(m, nil) {
				return
			}
		}
	}
}

func (r *testRepo) ListPage(ctx context.Context, afterID int64, limit int) ([]Mare, error) {
	if r.failWith != nil {
		return nil, r.failWith
	}
	out := r.sorted(afterID)
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *testRepo) Update(ctx context.Context, id int64, p Patch) (Mare, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.byID[id]
	if !ok {
		return Mare{}, ErrNotFound
	}
	r.writes++
	if p.Name != nil {
		m.Name = *p.Name
	}
	if p.Breed != nil {
		m.Breed = *p.Breed
	}
	m.ModifiedAt = p.ModifiedAt
	r.byID[id] = m
	return m, nil
}

func (r *testRepo) Delete(ctx context.Context, id int64) (Mare, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.byID[id]
	if !ok {
		return Mare{}, ErrNotFound
	}
	r.writes++
	delete(r.byID, id)
	return m, nil
}

func (r *testRepo) Ping(ctx context.Context) error        { return r.failWith }
func (r *testRepo) EnsureSchema(ctx context.Context) error { return nil }
func (r *testRepo) Close() error                           { return nil }

// -------------------------
// Helpers
// -------------------------

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func newTestService(repo Repository, at time.Time) (*Service, *clock, *bytes.Buffer) {
	var buf bytes.Buffer
	log := logger.New(logger.Options{Level: logger.Debug, Format: logger.FormatJSON, Output: zapcore.AddSync(&buf)})
	svc := NewService(repo, Options{Logger: log})
	c := &clock{t: at}
	svc.now = c.now
	return svc, c, &buf
}

func events(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var ev map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &ev))
		out = append(out, ev)
	}
	return out
}

func breedPtr(b Breed) *Breed { return &b }
func strPtr(s string) *string { return &s }

var t0 = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

// -------------------------
// Tests
// -------------------------

func TestService_MistyLifecycle(t *testing.T) {
	repo := newTestRepo()
	svc, clk, _ := newTestService(repo, t0)
	ctx := context.Background()

	m, err := svc.Create(ctx, CreateInput{Name: "Misty", Breed: breedPtr(3)})
	require.NoError(t, err)
	assert.Equal(t, Mare{ID: 1, Name: "Misty", Breed: 3, ModifiedAt: t0}, m)

	t1 := t0.Add(time.Minute)
	clk.t = t1
	m, err = svc.Update(ctx, 1, UpdateInput{Name: strPtr("Misty Rose")})
	require.NoError(t, err)
	assert.Equal(t, Mare{ID: 1, Name: "Misty Rose", Breed: 3, ModifiedAt: t1}, m)

	deleted, err := svc.Delete(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "Misty Rose", deleted.Name)

	_, err = svc.Get(ctx, 1)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestService_CreateValidation(t *testing.T) {
	repo := newTestRepo()
	svc, _, _ := newTestService(repo, t0)

	cases := []struct {
		name  string
		in    CreateInput
		field string
	}{
		{"empty name", CreateInput{Name: "", Breed: breedPtr(1)}, "name"},
		{"blank name", CreateInput{Name: "   ", Breed: breedPtr(1)}, "name"},
		{"too long", CreateInput{Name: strings.Repeat("a", 101), Breed: breedPtr(1)}, "name"},
		{"invalid utf8", CreateInput{Name: "ab\xff", Breed: breedPtr(1)}, "name"},
		{"missing breed", CreateInput{Name: "Misty"}, "breed"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), c.in)
			require.ErrorIs(t, err, ErrInvalidInput)

			var ve *ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, c.field, ve.Field)
		})
	}
	assert.Zero(t, repo.writes)
}

func TestService_CreateCountsRunes(t *testing.T) {
	svc, _, _ := newTestService(newTestRepo(), t0)

	// 100 caracteres de dos bytes cada uno.
	name := strings.Repeat("ñ", 100)
	m, err := svc.Create(context.Background(), CreateInput{Name: "  " + name + " ", Breed: breedPtr(0)})
	require.NoError(t, err)
	assert.Equal(t, name, m.Name)
}

func TestService_UpdateOnlySuppliedFields(t *testing.T) {
	repo := newTestRepo()
	svc, clk, _ := newTestService(repo, t0)
	ctx := context.Background()

	_, err := svc.Create(ctx, CreateInput{Name: "Misty", Breed: breedPtr(3)})
	require.NoError(t, err)

	clk.t = t0.Add(time.Second)
	m, err := svc.Update(ctx, 1, UpdateInput{Breed: breedPtr(BreedUnicorn)})
	require.NoError(t, err)
	assert.Equal(t, "Misty", m.Name)
	assert.Equal(t, BreedUnicorn, m.Breed)

	_, err = svc.Update(ctx, 1, UpdateInput{})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.Update(ctx, 1, UpdateInput{Name: strPtr("")})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.Update(ctx, 99, UpdateInput{Name: strPtr("Ghost")})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestService_ModifiedAtNeverGoesBack(t *testing.T) {
	repo := newTestRepo()
	svc, clk, _ := newTestService(repo, t0)
	ctx := context.Background()

	_, err := svc.Create(ctx, CreateInput{Name: "Misty", Breed: breedPtr(3)})
	require.NoError(t, err)

	// Reloj atrasado respecto al registro guardado.
	clk.t = t0.Add(-time.Hour)
	m, err := svc.Update(ctx, 1, UpdateInput{Name: strPtr("Misty Rose")})
	require.NoError(t, err)
	assert.Equal(t, t0, m.ModifiedAt)
}

func TestService_UpdateConflict(t *testing.T) {
	repo := newTestRepo()
	svc, clk, _ := newTestService(repo, t0)
	ctx := context.Background()

	_, err := svc.Create(ctx, CreateInput{Name: "Misty", Breed: breedPtr(3)})
	require.NoError(t, err)

	clk.t = t0.Add(time.Minute)
	stale := t0.Add(-time.Second)
	_, err = svc.Update(ctx, 1, UpdateInput{Name: strPtr("Lost"), IfModifiedAt: &stale})
	assert.ErrorIs(t, err, ErrConflict)

	current := t0
	m, err := svc.Update(ctx, 1, UpdateInput{Name: strPtr("Won"), IfModifiedAt: &current})
	require.NoError(t, err)
	assert.Equal(t, "Won", m.Name)
	assert.Equal(t, 2, repo.writes)
}

func TestService_NonPositiveIDs(t *testing.T) {
	repo := newTestRepo()
	svc, _, _ := newTestService(repo, t0)
	ctx := context.Background()

	_, err := svc.Get(ctx, 0)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = svc.Delete(ctx, -1)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = svc.Update(ctx, -5, UpdateInput{Name: strPtr("x")})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestService_StorageErrorsAreWrapped(t *testing.T) {
	boom := errors.New("connection refused")
	repo := newTestRepo()
	repo.failWith = boom
	svc, _, buf := newTestService(repo, t0)

	_, err := svc.Create(context.Background(), CreateInput{Name: "Misty", Breed: breedPtr(3)})
	require.ErrorIs(t, err, ErrStorage)
	require.ErrorIs(t, err, boom)

	var se *StorageError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "create", se.Op)

	for _, err := range svc.List(context.Background()) {
		assert.ErrorIs(t, err, ErrStorage)
	}

	assert.ErrorIs(t, svc.Ping(context.Background()), ErrStorage)

	evs := events(t, buf)
	require.Len(t, evs, 2)
	assert.Equal(t, "error", evs[0]["level"])
	assert.Equal(t, "storage_error", evs[0]["outcome"])
	assert.Equal(t, "list", evs[1]["op"])
}

func TestService_LogsOneEventPerOperation(t *testing.T) {
	repo := newTestRepo()
	svc, _, buf := newTestService(repo, t0)
	ctx := context.Background()

	_, _ = svc.Create(ctx, CreateInput{Name: "Misty", Breed: breedPtr(3)})
	_, _ = svc.Get(ctx, 1)
	_, _ = svc.Get(ctx, 42)
	_, _ = svc.Create(ctx, CreateInput{Name: ""})

	evs := events(t, buf)
	require.Len(t, evs, 4)

	assert.Equal(t, "mare operation", evs[0]["msg"])
	assert.Equal(t, "create", evs[0]["op"])
	assert.Equal(t, "ok", evs[0]["outcome"])
	assert.Equal(t, "info", evs[0]["level"])
	assert.Equal(t, float64(1), evs[0]["id"])
	assert.Equal(t, "mares", evs[0]["component"])
	assert.Contains(t, evs[0], "duration_ms")

	assert.Equal(t, "get", evs[1]["op"])
	assert.Equal(t, "not_found", evs[2]["outcome"])
	assert.Equal(t, "warn", evs[2]["level"])
	assert.Equal(t, "invalid", evs[3]["outcome"])
	assert.Contains(t, evs[3]["error"], "invalid name")
}

func TestService_ListAndPaging(t *testing.T) {
	repo := newTestRepo()
	svc, _, _ := newTestService(repo, t0)
	ctx := context.Background()

	for _, n := range []string{"A", "B", "C", "D", "E", "F", "G"} {
		_, err := svc.Create(ctx, CreateInput{Name: n, Breed: breedPtr(0)})
		require.NoError(t, err)
	}

	var names []string
	for m, err := range svc.List(ctx) {
		require.NoError(t, err)
		names = append(names, m.Name)
	}
	assert.Equal(t, []string{"A", "B", "C", "D", "E", "F", "G"}, names)

	page, err := svc.ListPage(ctx, 0, 0)
	require.NoError(t, err)
	assert.Len(t, page, DefaultPageSize)

	page, err = svc.ListPage(ctx, 5, 10)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, int64(6), page[0].ID)

	_, err = svc.ListPage(ctx, -1, 5)
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = svc.ListPage(ctx, 0, MaxPageSize+1)
	assert.ErrorIs(t, err, ErrInvalidInput)

	var verr *ValidationError
	_, err = svc.ListPage(ctx, 0, -3)
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "limit", verr.Field)
}

func TestOutcome(t *testing.T) {
	assert.Equal(t, "ok", Outcome(nil))
	assert.Equal(t, "invalid", Outcome(&ValidationError{Field: "name", Reason: "required"}))
	assert.Equal(t, "not_found", Outcome(ErrNotFound))
	assert.Equal(t, "conflict", Outcome(ErrConflict))
	assert.Equal(t, "storage_error", Outcome(&StorageError{Op: "get", Err: errors.New("x")}))
	assert.Equal(t, "error", Outcome(errors.New("x")))
}

func TestBreedNames(t *testing.T) {
	assert.Equal(t, "pegasus", BreedPegasus.Name())
	assert.Equal(t, "unknown", Breed(3).Name())
	assert.Equal(t, "breed(3)", Breed(3).String())
	assert.Equal(t, "earth", BreedEarth.String())
}
