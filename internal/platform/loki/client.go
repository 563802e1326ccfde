// Package loki envía líneas de log al endpoint de push de Grafana Loki.
//
// El envío es best-effort: Write nunca bloquea ni falla. Si la cola está llena
// la línea se descarta; si el push falla el lote se pierde. Ambos casos se cuentan.
package loki

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"mare-records/internal/platform/httpclient"
)

const pushPath = "/loki/api/v1/push"

const (
	DefaultBatchSize  = 100
	DefaultBatchWait  = time.Second
	DefaultBufferSize = 1024
	DefaultTimeout    = 5 * time.Second
)

type Config struct {
	URL        string
	Labels     map[string]string
	BatchSize  int
	BatchWait  time.Duration
	BufferSize int
	Timeout    time.Duration

	// OnError recibe los fallos de push. Por defecto escribe en stderr;
	// no debe loguear a través de un logger que escriba en este mismo cliente.
	OnError func(error)
}

type entry struct {
	ts   time.Time
	line string
}

type Client struct {
	http      *httpclient.Client
	labels    map[string]string
	batchSize int
	batchWait time.Duration
	timeout   time.Duration
	onError   func(error)
	now       func() time.Time

	entries  chan entry
	quit     chan struct{}
	done     chan struct{}
	stopOnce sync.Once

	dropped atomic.Int64
	failed  atomic.Int64
}

// New arranca el cliente y su goroutine de envío. Llamar a Close al terminar.
func New(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.URL) == "" {
		return nil, fmt.Errorf("loki: url required")
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.BatchWait <= 0 {
		cfg.BatchWait = DefaultBatchWait
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = DefaultBufferSize
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.OnError == nil {
		cfg.OnError = func(err error) { fmt.Fprintln(os.Stderr, err) }
	}

	hc, err := httpclient.New(cfg.URL, cfg.Timeout)
	if err != nil {
		return nil, fmt.Errorf("loki: %w", err)
	}

	labels := make(map[string]string, len(cfg.Labels))
	for k, v := range cfg.Labels {
		if strings.TrimSpace(k) == "" {
			continue
		}
		labels[k] = v
	}
	if len(labels) == 0 {
		// Loki rechaza streams sin labels.
		labels["source"] = "mare-records"
	}

	c := &Client{
		http:      hc,
		labels:    labels,
		batchSize: cfg.BatchSize,
		batchWait: cfg.BatchWait,
		timeout:   cfg.Timeout,
		onError:   cfg.OnError,
		now:       time.Now,
		entries:   make(chan entry, cfg.BufferSize),
		quit:      make(chan struct{}),
		done:      make(chan struct{}),
	}
	go c.run()
	return c, nil
}

// Write encola una línea (zapcore.WriteSyncer). p se copia; zap reutiliza sus buffers.
func (c *Client) Write(p []byte) (int, error) {
	line := strings.TrimRight(string(p), "\n")
	if line == "" {
		return len(p), nil
	}

	select {
	case <-c.quit:
		c.dropped.Add(1)
		return len(p), nil
	default:
	}

	select {
	case c.entries <- entry{ts: c.now(), line: line}:
	default:
		c.dropped.Add(1)
	}
	return len(p), nil
}

// Sync no espera al push; el envío es asíncrono.
func (c *Client) Sync() error { return nil }

// Dropped cuenta líneas descartadas por cola llena o cliente cerrado.
func (c *Client) Dropped() int64 { return c.dropped.Load() }

// Failed cuenta líneas perdidas por pushes fallidos.
func (c *Client) Failed() int64 { return c.failed.Load() }

// Close vacía la cola, hace el último push y detiene la goroutine.
func (c *Client) Close(ctx context.Context) error {
	c.stopOnce.Do(func() { close(c.quit) })
	select {
	case <-c.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Client) run() {
	defer close(c.done)

	ticker := time.NewTicker(c.batchWait)
	defer ticker.Stop()

	batch := make([]entry, 0, c.batchSize)
	flush := func() {
		if len(batch) == 0 {
			return
		}
		c.push(batch)
		batch = batch[:0]
	}

	for {
		select {
		case e := <-c.entries:
			batch = append(batch, e)
			if len(batch) >= c.batchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		case <-c.quit:
			for {
				select {
				case e := <-c.entries:
					batch = append(batch, e)
					if len(batch) >= c.batchSize {
						flush()
					}
				default:
					flush()
					return
				}
			}
		}
	}
}

type pushRequest struct {
	Streams []stream `json:"streams"`
}

type stream struct {
	Stream map[string]string `json:"stream"`
	Values [][2]string       `json:"values"`
}

func (c *Client) push(batch []entry) {
	values := make([][2]string, 0, len(batch))
	for _, e := range batch {
		values = append(values, [2]string{strconv.FormatInt(e.ts.UnixNano(), 10), e.line})
	}

	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	err := c.http.DoJSON(ctx, httpclient.Request{
		Method: http.MethodPost,
		Path:   pushPath,
		Body:   pushRequest{Streams: []stream{{Stream: c.labels, Values: values}}},
	}, nil)
	if err != nil {
		c.failed.Add(int64(len(batch)))
		c.onError(fmt.Errorf("loki: push %d entries: %w", len(batch), err))
	}
}
