package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mare-records/internal/adapters/storage/storagetest"
	"mare-records/internal/domain/mares"
)

func openTestDB(t *testing.T) *MaresRepo {
	t.Helper()
	db, err := Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewMaresRepo(db)
}

func TestMaresRepo_Contract(t *testing.T) {
	storagetest.RunRepositoryContract(t, func(t *testing.T) mares.Repository {
		repo := openTestDB(t)
		require.NoError(t, repo.EnsureSchema(context.Background()))
		return repo
	})
}

func TestEnsureSchema_IncompatibleTable(t *testing.T) {
	repo := openTestDB(t)
	_, err := repo.db.Exec(`CREATE TABLE mares (id TEXT PRIMARY KEY, name TEXT, breed TEXT, modified_at TEXT)`)
	require.NoError(t, err)

	err = repo.EnsureSchema(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, mares.ErrSchema), "got %v", err)

	var se *mares.SchemaError
	require.ErrorAs(t, err, &se)
	assert.Contains(t, se.Reason, "incompatible shape")
}

func TestEnsureSchema_KeepsExistingRows(t *testing.T) {
	repo := openTestDB(t)
	ctx := context.Background()
	require.NoError(t, repo.EnsureSchema(ctx))

	// Fila insertada por fuera de la aplicación: usa el DEFAULT.
	_, err := repo.db.ExecContext(ctx, `INSERT INTO mares (name, breed) VALUES ('Legacy', 1)`)
	require.NoError(t, err)

	var raw string
	require.NoError(t, repo.db.QueryRowContext(ctx, `SELECT modified_at FROM mares`).Scan(&raw))
	assert.Len(t, raw, len(timeLayout))

	require.NoError(t, repo.EnsureSchema(ctx))

	var got []mares.Mare
	for m, err := range repo.List(ctx) {
		require.NoError(t, err)
		got = append(got, m)
	}
	require.Len(t, got, 1)
	assert.Equal(t, "Legacy", got[0].Name)
	assert.Equal(t, mares.BreedPegasus, got[0].Breed)
	assert.WithinDuration(t, time.Now(), got[0].ModifiedAt, time.Minute)
}

// Filas escritas con milisegundos (DEFAULT de versiones previas o herramientas externas).
func TestUpdate_MillisecondTimestamps(t *testing.T) {
	repo := openTestDB(t)
	ctx := context.Background()
	require.NoError(t, repo.EnsureSchema(ctx))

	res, err := repo.db.ExecContext(ctx,
		`INSERT INTO mares (name, breed, modified_at) VALUES ('Legacy', 1, '2024-03-01T12:00:00.123Z')`)
	require.NoError(t, err)
	id, err := res.LastInsertId()
	require.NoError(t, err)

	m, err := repo.GetByID(ctx, id)
	require.NoError(t, err)
	want := time.Date(2024, 3, 1, 12, 0, 0, 123_000_000, time.UTC)
	require.True(t, m.ModifiedAt.Equal(want), "modified_at=%s", m.ModifiedAt)

	// La precondición compara instantes, no el texto guardado.
	name := "Renamed"
	got, err := repo.Update(ctx, id, mares.Patch{Name: &name, ModifiedAt: want.Add(time.Minute), IfModifiedAt: &m.ModifiedAt})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", got.Name)
	assert.True(t, got.ModifiedAt.Equal(want.Add(time.Minute)))

	// Un modified_at anterior no retrocede, aunque el guardado tenga otro formato.
	_, err = repo.db.ExecContext(ctx, `UPDATE mares SET modified_at = '2024-03-01T12:00:00.123Z' WHERE id = ?`, id)
	require.NoError(t, err)
	got, err = repo.Update(ctx, id, mares.Patch{Name: &name, ModifiedAt: want.Add(-time.Millisecond)})
	require.NoError(t, err)
	assert.True(t, got.ModifiedAt.Equal(want), "modified_at moved back to %s", got.ModifiedAt)

	stale := want.Add(-time.Second)
	_, err = repo.Update(ctx, id, mares.Patch{Name: &name, ModifiedAt: want, IfModifiedAt: &stale})
	assert.ErrorIs(t, err, mares.ErrConflict)
}

func TestNameLengthCheck(t *testing.T) {
	repo := openTestDB(t)
	require.NoError(t, repo.EnsureSchema(context.Background()))

	long := make([]byte, 101)
	for i := range long {
		long[i] = 'a'
	}
	_, err := repo.Create(context.Background(), mares.NewMare{Name: string(long), Breed: 0, ModifiedAt: time.Now()})
	assert.Error(t, err)
}

func TestTimeRoundTrip(t *testing.T) {
	in := time.Date(2024, 3, 1, 12, 0, 0, 1500, time.FixedZone("x", 3600))
	s := formatTime(in)
	assert.Equal(t, "2024-03-01T11:00:00.000001500Z", s)

	out, err := parseTime(s)
	require.NoError(t, err)
	assert.True(t, out.Equal(in))
	assert.Equal(t, time.UTC, out.Location())

	_, err = parseTime("yesterday")
	assert.Error(t, err)
}

func TestCompareColumns(t *testing.T) {
	err := compareColumns(map[string]columnSpec{})
	assert.ErrorIs(t, err, mares.ErrSchema)

	ok := map[string]columnSpec{}
	for k, v := range expectedColumns {
		ok[k] = v
	}
	assert.NoError(t, compareColumns(ok))

	delete(ok, "breed")
	err = compareColumns(ok)
	var se *mares.SchemaError
	require.ErrorAs(t, err, &se)
	assert.Contains(t, se.Reason, "mares.breed missing")
}
