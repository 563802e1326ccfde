// Package monitor agrupa trabajos periódicos de observabilidad.
package monitor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"mare-records/internal/platform/logger"
)

// Pinger es lo único que el probe necesita del storage.
type Pinger interface {
	Ping(ctx context.Context) error
}

const defaultProbeTimeout = 3 * time.Second

// StorageProbe hace ping al storage según un schedule cron y registra caídas y recuperaciones.
type StorageProbe struct {
	target  Pinger
	log     logger.Logger
	timeout time.Duration

	cron    *cron.Cron
	mu      sync.Mutex
	running bool

	failures int
}

func NewStorageProbe(target Pinger, log logger.Logger, timeout time.Duration) *StorageProbe {
	if log == nil {
		log = logger.Nop()
	}
	if timeout <= 0 {
		timeout = defaultProbeTimeout
	}
	return &StorageProbe{
		target:  target,
		log:     log.With(map[string]any{"component": "storage_probe"}),
		timeout: timeout,
		cron:    cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
	}
}

// Start programa el probe. schedule acepta formato cron de 5 campos o descriptores ("@every 30s").
func (p *StorageProbe) Start(schedule string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running {
		return nil
	}
	if _, err := p.cron.AddFunc(schedule, func() { p.Check(context.Background()) }); err != nil {
		return fmt.Errorf("invalid probe schedule %q: %w", schedule, err)
	}
	p.cron.Start()
	p.running = true

	p.log.Info("storage probe started", map[string]any{"schedule": schedule})
	return nil
}

// Stop espera a que termine un check en curso o a que venza ctx.
func (p *StorageProbe) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return nil
	}
	p.running = false
	p.mu.Unlock()

	done := p.cron.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Check hace un ping y actualiza el contador de fallos consecutivos.
func (p *StorageProbe) Check(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	err := p.target.Ping(ctx)

	p.mu.Lock()
	defer p.mu.Unlock()

	if err != nil {
		p.failures++
		p.log.Warn("storage ping failed", map[string]any{
			"consecutive_failures": p.failures,
			"error":                err.Error(),
		})
		return err
	}
	if p.failures > 0 {
		p.log.Info("storage recovered", map[string]any{"after_failures": p.failures})
		p.failures = 0
	}
	return nil
}

// Failures devuelve los fallos consecutivos desde el último ping correcto.
func (p *StorageProbe) Failures() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.failures
}
