// Package storagetest contiene la batería de pruebas que todo mares.Repository debe pasar.
package storagetest

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mare-records/internal/domain/mares"
)

// Factory devuelve un repositorio vacío con el schema ya aplicado.
type Factory func(t *testing.T) mares.Repository

var t0 = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func RunRepositoryContract(t *testing.T, newRepo Factory) {
	t.Run("CreateAssignsIncreasingIDs", func(t *testing.T) { testCreateAssignsIDs(t, newRepo(t)) })
	t.Run("GetMissing", func(t *testing.T) { testGetMissing(t, newRepo(t)) })
	t.Run("HugeIDs", func(t *testing.T) { testHugeIDs(t, newRepo(t)) })
	t.Run("ListOrderedByID", func(t *testing.T) { testListOrdered(t, newRepo(t)) })
	t.Run("ListStopsEarly", func(t *testing.T) { testListStopsEarly(t, newRepo(t)) })
	t.Run("ListPage", func(t *testing.T) { testListPage(t, newRepo(t)) })
	t.Run("UpdatePartial", func(t *testing.T) { testUpdatePartial(t, newRepo(t)) })
	t.Run("UpdateNeverMovesModifiedAtBack", func(t *testing.T) { testUpdateMonotonic(t, newRepo(t)) })
	t.Run("UpdatePrecondition", func(t *testing.T) { testUpdatePrecondition(t, newRepo(t)) })
	t.Run("UpdateMissing", func(t *testing.T) { testUpdateMissing(t, newRepo(t)) })
	t.Run("DeleteThenGet", func(t *testing.T) { testDelete(t, newRepo(t)) })
	t.Run("IDsNotReusedAfterDelete", func(t *testing.T) { testIDsNotReused(t, newRepo(t)) })
	t.Run("ConcurrentCreates", func(t *testing.T) { testConcurrentCreates(t, newRepo(t)) })
	t.Run("EnsureSchemaIdempotent", func(t *testing.T) { testEnsureSchemaTwice(t, newRepo(t)) })
	t.Run("Ping", func(t *testing.T) { require.NoError(t, newRepo(t).Ping(context.Background())) })
}

func create(t *testing.T, repo mares.Repository, name string, breed mares.Breed, at time.Time) mares.Mare {
	t.Helper()
	m, err := repo.Create(context.Background(), mares.NewMare{Name: name, Breed: breed, ModifiedAt: at})
	require.NoError(t, err)
	return m
}

func collect(t *testing.T, repo mares.Repository) []mares.Mare {
	t.Helper()
	var out []mares.Mare
	for m, err := range repo.List(context.Background()) {
		require.NoError(t, err)
		out = append(out, m)
	}
	return out
}

func testCreateAssignsIDs(t *testing.T, repo mares.Repository) {
	a := create(t, repo, "Misty", 3, t0)
	b := create(t, repo, "Sunny", mares.BreedPegasus, t0)

	assert.Positive(t, a.ID)
	assert.Greater(t, b.ID, a.ID)
	assert.Equal(t, "Misty", a.Name)
	assert.Equal(t, mares.Breed(3), a.Breed)
	assert.True(t, a.ModifiedAt.Equal(t0), "modified_at=%s", a.ModifiedAt)

	got, err := repo.GetByID(context.Background(), a.ID)
	require.NoError(t, err)
	assert.Equal(t, a.ID, got.ID)
	assert.Equal(t, a.Name, got.Name)
	assert.Equal(t, a.Breed, got.Breed)
	assert.True(t, got.ModifiedAt.Equal(a.ModifiedAt))
}

func testGetMissing(t *testing.T, repo mares.Repository) {
	_, err := repo.GetByID(context.Background(), 4242)
	assert.True(t, errors.Is(err, mares.ErrNotFound), "got %v", err)
}

// Ids mayores que cualquier columna entera de 32 bits: ausentes, nunca error de storage.
func testHugeIDs(t *testing.T, repo mares.Repository) {
	create(t, repo, "Misty", 3, t0)
	const huge = int64(3_000_000_000)

	_, err := repo.GetByID(context.Background(), huge)
	assert.True(t, errors.Is(err, mares.ErrNotFound), "get: %v", err)

	name := "Ghost"
	_, err = repo.Update(context.Background(), huge, mares.Patch{Name: &name, ModifiedAt: t0})
	assert.True(t, errors.Is(err, mares.ErrNotFound), "update: %v", err)

	_, err = repo.Delete(context.Background(), huge)
	assert.True(t, errors.Is(err, mares.ErrNotFound), "delete: %v", err)

	page, err := repo.ListPage(context.Background(), huge, 5)
	require.NoError(t, err)
	assert.Empty(t, page)
}

func testListOrdered(t *testing.T, repo mares.Repository) {
	assert.Empty(t, collect(t, repo))

	for _, n := range []string{"A", "B", "C"} {
		create(t, repo, n, mares.BreedEarth, t0)
	}

	got := collect(t, repo)
	require.Len(t, got, 3)
	assert.True(t, sort.SliceIsSorted(got, func(i, j int) bool { return got[i].ID < got[j].ID }))
	assert.Equal(t, "A", got[0].Name)
	assert.Equal(t, "C", got[2].Name)
}

func testListStopsEarly(t *testing.T, repo mares.Repository) {
	first := create(t, repo, "A", mares.BreedEarth, t0)
	create(t, repo, "B", mares.BreedEarth, t0)
	create(t, repo, "C", mares.BreedEarth, t0)

	seen := 0
	for _, err := range repo.List(context.Background()) {
		require.NoError(t, err)
		seen++
		if seen == 2 {
			break
		}
	}
	assert.Equal(t, 2, seen)

	// El repositorio sigue usable después de cortar la iteración.
	_, err := repo.GetByID(context.Background(), first.ID)
	assert.NoError(t, err)
}

func testListPage(t *testing.T, repo mares.Repository) {
	var ids []int64
	for _, n := range []string{"A", "B", "C", "D", "E", "F", "G"} {
		ids = append(ids, create(t, repo, n, mares.BreedEarth, t0).ID)
	}

	page, err := repo.ListPage(context.Background(), 0, 5)
	require.NoError(t, err)
	require.Len(t, page, 5)
	assert.Equal(t, ids[0], page[0].ID)

	page, err = repo.ListPage(context.Background(), page[4].ID, 5)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, ids[5], page[0].ID)
	assert.Equal(t, ids[6], page[1].ID)

	page, err = repo.ListPage(context.Background(), ids[6], 5)
	require.NoError(t, err)
	assert.Empty(t, page)
}

func testUpdatePartial(t *testing.T, repo mares.Repository) {
	m := create(t, repo, "Misty", 3, t0)
	t1 := t0.Add(time.Minute)

	name := "Misty Rose"
	got, err := repo.Update(context.Background(), m.ID, mares.Patch{Name: &name, ModifiedAt: t1})
	require.NoError(t, err)
	assert.Equal(t, "Misty Rose", got.Name)
	assert.Equal(t, mares.Breed(3), got.Breed)
	assert.True(t, got.ModifiedAt.Equal(t1))

	breed := mares.BreedUnicorn
	t2 := t1.Add(time.Minute)
	got, err = repo.Update(context.Background(), m.ID, mares.Patch{Breed: &breed, ModifiedAt: t2})
	require.NoError(t, err)
	assert.Equal(t, "Misty Rose", got.Name)
	assert.Equal(t, mares.BreedUnicorn, got.Breed)
	assert.True(t, got.ModifiedAt.Equal(t2))

	stored, err := repo.GetByID(context.Background(), m.ID)
	require.NoError(t, err)
	assert.Equal(t, got.Name, stored.Name)
	assert.Equal(t, got.Breed, stored.Breed)
	assert.True(t, stored.ModifiedAt.Equal(t2))
}

func testUpdateMonotonic(t *testing.T, repo mares.Repository) {
	m := create(t, repo, "Misty", 3, t0)

	name := "Earlier"
	got, err := repo.Update(context.Background(), m.ID, mares.Patch{Name: &name, ModifiedAt: t0.Add(-time.Hour)})
	require.NoError(t, err)
	assert.Equal(t, "Earlier", got.Name)
	assert.True(t, got.ModifiedAt.Equal(t0), "modified_at moved back to %s", got.ModifiedAt)
}

func testUpdatePrecondition(t *testing.T, repo mares.Repository) {
	m := create(t, repo, "Misty", 3, t0)

	stale := t0.Add(-time.Second)
	name := "Lost"
	_, err := repo.Update(context.Background(), m.ID, mares.Patch{Name: &name, ModifiedAt: t0.Add(time.Minute), IfModifiedAt: &stale})
	assert.True(t, errors.Is(err, mares.ErrConflict), "got %v", err)

	current := m.ModifiedAt
	name = "Won"
	got, err := repo.Update(context.Background(), m.ID, mares.Patch{Name: &name, ModifiedAt: t0.Add(time.Minute), IfModifiedAt: &current})
	require.NoError(t, err)
	assert.Equal(t, "Won", got.Name)

	_, err = repo.Update(context.Background(), 9999, mares.Patch{Name: &name, ModifiedAt: t0, IfModifiedAt: &current})
	assert.True(t, errors.Is(err, mares.ErrNotFound), "got %v", err)
}

func testUpdateMissing(t *testing.T, repo mares.Repository) {
	name := "Ghost"
	_, err := repo.Update(context.Background(), 9999, mares.Patch{Name: &name, ModifiedAt: t0})
	assert.True(t, errors.Is(err, mares.ErrNotFound), "got %v", err)
}

func testDelete(t *testing.T, repo mares.Repository) {
	m := create(t, repo, "Misty", 3, t0)

	deleted, err := repo.Delete(context.Background(), m.ID)
	require.NoError(t, err)
	assert.Equal(t, m.ID, deleted.ID)
	assert.Equal(t, "Misty", deleted.Name)

	_, err = repo.GetByID(context.Background(), m.ID)
	assert.True(t, errors.Is(err, mares.ErrNotFound))

	_, err = repo.Delete(context.Background(), m.ID)
	assert.True(t, errors.Is(err, mares.ErrNotFound))
}

func testIDsNotReused(t *testing.T, repo mares.Repository) {
	a := create(t, repo, "A", mares.BreedEarth, t0)
	b := create(t, repo, "B", mares.BreedEarth, t0)

	_, err := repo.Delete(context.Background(), b.ID)
	require.NoError(t, err)

	c := create(t, repo, "C", mares.BreedEarth, t0)
	assert.Greater(t, c.ID, b.ID)
	assert.NotEqual(t, a.ID, c.ID)
}

func testConcurrentCreates(t *testing.T, repo mares.Repository) {
	const n = 20

	var wg sync.WaitGroup
	ids := make(chan int64, n)
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			m, err := repo.Create(context.Background(), mares.NewMare{Name: "Mare", Breed: mares.Breed(i), ModifiedAt: t0})
			if err != nil {
				errs <- err
				return
			}
			ids <- m.ID
		}(i)
	}
	wg.Wait()
	close(ids)
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}
	seen := map[int64]bool{}
	for id := range ids {
		assert.False(t, seen[id], "duplicate id %d", id)
		seen[id] = true
	}
	assert.Len(t, seen, n)
}

func testEnsureSchemaTwice(t *testing.T, repo mares.Repository) {
	create(t, repo, "Survivor", mares.BreedEarth, t0)

	require.NoError(t, repo.EnsureSchema(context.Background()))
	require.NoError(t, repo.EnsureSchema(context.Background()))

	got := collect(t, repo)
	require.Len(t, got, 1)
	assert.Equal(t, "Survivor", got[0].Name)
}
