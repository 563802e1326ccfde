package mares

import (
	"context"
	"errors"
	"iter"
	"strings"
	"time"
	"unicode/utf8"

	"mare-records/internal/platform/logger"
)

const (
	DefaultQueryTimeout = 5 * time.Second

	DefaultPageSize = 5
	MaxPageSize     = 100
)

type Service struct {
	repo    Repository
	log     logger.Logger
	now     func() time.Time
	timeout time.Duration
}

type Options struct {
	Logger       logger.Logger
	QueryTimeout time.Duration
}

func NewService(repo Repository, opts Options) *Service {
	log := opts.Logger
	if log == nil {
		log = logger.Nop()
	}
	timeout := opts.QueryTimeout
	if timeout <= 0 {
		timeout = DefaultQueryTimeout
	}
	return &Service{
		repo:    repo,
		log:     log.With(map[string]any{"component": "mares"}),
		now:     time.Now,
		timeout: timeout,
	}
}

type CreateInput struct {
	Name  string
	Breed *Breed
}

func (s *Service) Create(ctx context.Context, in CreateInput) (m Mare, err error) {
	start := s.now()
	defer func() { s.record("create", m.ID, start, err, nil) }()

	name, err := validateName(in.Name)
	if err != nil {
		return Mare{}, err
	}
	if in.Breed == nil {
		return Mare{}, &ValidationError{Field: "breed", Reason: "required"}
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	m, err = s.repo.Create(ctx, NewMare{
		Name:       name,
		Breed:      *in.Breed,
		ModifiedAt: start,
	})
	if err != nil {
		return Mare{}, wrapStorage("create", err)
	}
	return m, nil
}

func (s *Service) Get(ctx context.Context, id int64) (m Mare, err error) {
	start := s.now()
	defer func() { s.record("get", id, start, err, nil) }()

	if id <= 0 {
		return Mare{}, ErrNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	m, err = s.repo.GetByID(ctx, id)
	if err != nil {
		return Mare{}, wrapStorage("get", err)
	}
	return m, nil
}

// List devuelve una secuencia perezosa ordenada por id.
// El timeout de consulta cubre todo el recorrido.
func (s *Service) List(ctx context.Context) iter.Seq2[Mare, error] {
	return func(yield func(Mare, error) bool) {
		start := s.now()
		count := 0
		var err error
		defer func() { s.record("list", 0, start, err, map[string]any{"count": count}) }()

		ctx, cancel := context.WithTimeout(ctx, s.timeout)
		defer cancel()

		for m, e := range s.repo.List(ctx) {
			if e != nil {
				err = wrapStorage("list", e)
				yield(Mare{}, err)
				return
			}
			count++
			if !yield(m, nil) {
				return
			}
		}
	}
}

// ListPage pagina por keyset: registros con id > afterID, como mucho limit.
func (s *Service) ListPage(ctx context.Context, afterID int64, limit int) (out []Mare, err error) {
	start := s.now()
	defer func() {
		s.record("list_page", 0, start, err, map[string]any{"after": afterID, "count": len(out)})
	}()

	if afterID < 0 {
		return nil, &ValidationError{Field: "after", Reason: "must not be negative"}
	}
	if limit < 0 {
		return nil, &ValidationError{Field: "limit", Reason: "must be positive"}
	}
	// 0 = tamaño por defecto.
	if limit == 0 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		return nil, &ValidationError{Field: "limit", Reason: "must be at most 100"}
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	out, err = s.repo.ListPage(ctx, afterID, limit)
	if err != nil {
		return nil, wrapStorage("list_page", err)
	}
	return out, nil
}

type UpdateInput struct {
	// Punteros para PATCH real: nil = no tocar.
	Name  *string
	Breed *Breed

	// Si viene, el update solo se aplica si modified_at sigue siendo este valor.
	IfModifiedAt *time.Time
}

func (s *Service) Update(ctx context.Context, id int64, in UpdateInput) (m Mare, err error) {
	start := s.now()
	defer func() { s.record("update", id, start, err, nil) }()

	if in.Name == nil && in.Breed == nil {
		return Mare{}, &ValidationError{Field: "body", Reason: "nothing to update"}
	}

	p := Patch{Breed: in.Breed, IfModifiedAt: in.IfModifiedAt}
	if in.Name != nil {
		name, err := validateName(*in.Name)
		if err != nil {
			return Mare{}, err
		}
		p.Name = &name
	}

	if id <= 0 {
		return Mare{}, ErrNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return Mare{}, wrapStorage("update", err)
	}
	if in.IfModifiedAt != nil && !current.ModifiedAt.Equal(*in.IfModifiedAt) {
		return Mare{}, ErrConflict
	}

	// modified_at nunca retrocede, aunque el reloj local vaya atrasado.
	p.ModifiedAt = start
	if p.ModifiedAt.Before(current.ModifiedAt) {
		p.ModifiedAt = current.ModifiedAt
	}

	m, err = s.repo.Update(ctx, id, p)
	if err != nil {
		return Mare{}, wrapStorage("update", err)
	}
	return m, nil
}

func (s *Service) Delete(ctx context.Context, id int64) (m Mare, err error) {
	start := s.now()
	defer func() { s.record("delete", id, start, err, nil) }()

	if id <= 0 {
		return Mare{}, ErrNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	m, err = s.repo.Delete(ctx, id)
	if err != nil {
		return Mare{}, wrapStorage("delete", err)
	}
	return m, nil
}

// Ping comprueba que el storage responde. No emite evento de operación.
func (s *Service) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if err := s.repo.Ping(ctx); err != nil {
		return wrapStorage("ping", err)
	}
	return nil
}

func validateName(raw string) (string, error) {
	name := strings.TrimSpace(raw)
	if name == "" {
		return "", &ValidationError{Field: "name", Reason: "required"}
	}
	if !utf8.ValidString(name) {
		return "", &ValidationError{Field: "name", Reason: "must be valid UTF-8"}
	}
	if utf8.RuneCountInString(name) > MaxNameLength {
		return "", &ValidationError{Field: "name", Reason: "must be at most 100 characters"}
	}
	return name, nil
}

func wrapStorage(op string, err error) error {
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrConflict),
		errors.Is(err, ErrInvalidInput), errors.Is(err, ErrStorage):
		return err
	}
	return &StorageError{Op: op, Err: err}
}

// Outcome clasifica el resultado de una operación para el evento de log.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrInvalidInput):
		return "invalid"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrConflict):
		return "conflict"
	case errors.Is(err, ErrStorage):
		return "storage_error"
	default:
		return "error"
	}
}

func (s *Service) record(op string, id int64, start time.Time, err error, extra map[string]any) {
	fields := map[string]any{
		"op":          op,
		"outcome":     Outcome(err),
		"duration_ms": s.now().Sub(start).Milliseconds(),
	}
	if id > 0 {
		fields["id"] = id
	}
	for k, v := range extra {
		fields[k] = v
	}
	if err != nil {
		fields["error"] = err.Error()
	}

	switch Outcome(err) {
	case "ok":
		s.log.Info("mare operation", fields)
	case "storage_error", "error":
		s.log.Error("mare operation", fields)
	default:
		s.log.Warn("mare operation", fields)
	}
}
