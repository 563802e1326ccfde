package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"mare-records/internal/domain/mares"
	"mare-records/internal/platform/logger"
)

func TestParseURL(t *testing.T) {
	cases := []struct {
		in     string
		driver Driver
		dsn    string
	}{
		{"", DriverMemory, ""},
		{"  ", DriverMemory, ""},
		{"postgres://u:p@db:5432/mares", DriverPostgres, "postgres://u:p@db:5432/mares"},
		{"postgresql://db/mares?sslmode=disable", DriverPostgres, "postgresql://db/mares?sslmode=disable"},
		{"sqlite::memory:", DriverSQLite, ":memory:"},
		{"sqlite:///var/lib/mares.db", DriverSQLite, "/var/lib/mares.db"},
		{"sqlite:mares.db", DriverSQLite, "mares.db"},
	}
	for _, c := range cases {
		t.Run(c.in, func(t *testing.T) {
			d, dsn, err := ParseURL(c.in)
			require.NoError(t, err)
			assert.Equal(t, c.driver, d)
			assert.Equal(t, c.dsn, dsn)
		})
	}

	for _, bad := range []string{"mysql://db/x", "just-a-path", "sqlite:"} {
		_, _, err := ParseURL(bad)
		assert.Error(t, err, bad)
	}
}

func TestRedact(t *testing.T) {
	assert.Equal(t, "postgres://mare:xxxxx@db:5432/mares", Redact("postgres://mare:secret@db:5432/mares"))
	assert.Equal(t, "postgres://db/mares", Redact("postgres://db/mares"))
	assert.Equal(t, "sqlite::memory:", Redact("sqlite::memory:"))

	// URL rota: no se devuelve el texto crudo.
	got := Redact("postgres://mare:secret@[::1")
	assert.NotContains(t, got, "secret")
	assert.Equal(t, redactedURL, got)
}

func TestOpen_SQLiteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mares.db")
	var buf bytes.Buffer
	log := logger.New(logger.Options{Level: logger.Info, Format: logger.FormatJSON, Output: zapcore.AddSync(&buf)})

	repo, err := Open(context.Background(), Config{URL: "sqlite:" + path}, log)
	require.NoError(t, err)

	m, err := repo.Create(context.Background(), mares.NewMare{Name: "Misty", Breed: 3, ModifiedAt: time.Now()})
	require.NoError(t, err)
	require.NoError(t, repo.Close())

	// Segunda apertura: el schema ya existe y los datos siguen ahí.
	repo, err = Open(context.Background(), Config{URL: "sqlite://" + path}, nil)
	require.NoError(t, err)
	defer repo.Close()

	got, err := repo.GetByID(context.Background(), m.ID)
	require.NoError(t, err)
	assert.Equal(t, "Misty", got.Name)

	require.NoError(t, log.Sync())
	line := strings.TrimSpace(strings.Split(buf.String(), "\n")[0])
	var ev map[string]any
	require.NoError(t, json.Unmarshal([]byte(line), &ev))
	assert.Equal(t, "storage ready", ev["msg"])
	assert.Equal(t, "sqlite", ev["driver"])
}

func TestOpen_Memory(t *testing.T) {
	repo, err := Open(context.Background(), Config{}, nil)
	require.NoError(t, err)
	assert.NoError(t, repo.Ping(context.Background()))
}

func TestOpen_Failures(t *testing.T) {
	_, err := Open(context.Background(), Config{URL: "mysql://db/x"}, nil)
	assert.ErrorIs(t, err, mares.ErrSchema)

	_, err = Open(context.Background(), Config{URL: "sqlite:" + filepath.Join(t.TempDir(), "missing", "dir", "x.db")}, nil)
	assert.ErrorIs(t, err, mares.ErrSchema)
}
