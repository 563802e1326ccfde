package monitor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"mare-records/internal/platform/logger"
)

type fakePinger struct {
	mu    sync.Mutex
	err   error
	calls atomic.Int32
}

func (f *fakePinger) Ping(ctx context.Context) error {
	f.calls.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.err
}

func (f *fakePinger) fail(err error) {
	f.mu.Lock()
	f.err = err
	f.mu.Unlock()
}

func (f *fakePinger) heal() { f.fail(nil) }

func TestStorageProbe_CountsFailuresAndRecovery(t *testing.T) {
	var buf bytes.Buffer
	log := logger.New(logger.Options{Level: logger.Debug, Format: logger.FormatJSON, Output: zapcore.AddSync(&buf)})

	target := &fakePinger{}
	p := NewStorageProbe(target, log, time.Second)

	require.NoError(t, p.Check(context.Background()))
	assert.Equal(t, 0, p.Failures())
	assert.Empty(t, buf.String())

	target.fail(errors.New("connection refused"))
	assert.Error(t, p.Check(context.Background()))
	assert.Error(t, p.Check(context.Background()))
	assert.Equal(t, 2, p.Failures())

	target.heal()
	require.NoError(t, p.Check(context.Background()))
	assert.Equal(t, 0, p.Failures())

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)

	var last map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[2]), &last))
	assert.Equal(t, "storage recovered", last["msg"])
	assert.Equal(t, float64(2), last["after_failures"])
	assert.Equal(t, "storage_probe", last["component"])

	var second map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &second))
	assert.Equal(t, "warn", second["level"])
	assert.Equal(t, float64(2), second["consecutive_failures"])
}

func TestStorageProbe_RunsOnSchedule(t *testing.T) {
	target := &fakePinger{}
	p := NewStorageProbe(target, nil, time.Second)

	require.NoError(t, p.Start("@every 1s"))
	require.NoError(t, p.Start("@every 1s")) // segunda llamada no duplica el job

	assert.Eventually(t, func() bool { return target.calls.Load() >= 1 }, 5*time.Second, 50*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, p.Stop(ctx))
	require.NoError(t, p.Stop(ctx))
}

func TestStorageProbe_InvalidSchedule(t *testing.T) {
	p := NewStorageProbe(&fakePinger{}, nil, 0)
	assert.Error(t, p.Start("whenever"))
}
