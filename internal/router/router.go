package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	httpSwagger "github.com/swaggo/http-swagger"

	_ "mare-records/docs"
	mem "mare-records/internal/adapters/storage/memory"
	"mare-records/internal/domain/mares"
	"mare-records/internal/middleware"
	"mare-records/internal/platform/logger"
	"mare-records/internal/ports/images"
)

type Options struct {
	// Opcional: si no viene, in-memory.
	Repo mares.Repository

	Logger       logger.Logger
	QueryTimeout time.Duration

	// Puede ser nil: entonces /mares/{id}/image no se registra.
	ImageFinder images.Finder
}

func NewRouter(opts Options) http.Handler {
	log := opts.Logger
	if log == nil {
		log = logger.Nop()
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.AccessLog(log.With(map[string]any{"component": "http"})))
	r.Use(middleware.Recover(log))

	repo := opts.Repo
	if repo == nil {
		repo = mem.NewMaresRepo()
	}

	svc := mares.NewService(repo, mares.Options{
		Logger:       log,
		QueryTimeout: opts.QueryTimeout,
	})

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	// /ready falla si el storage no responde; /health solo dice que el proceso vive.
	r.Get("/ready", func(w http.ResponseWriter, req *http.Request) {
		if err := svc.Ping(req.Context()); err != nil {
			log.Warn("readiness check failed", map[string]any{"error": err.Error()})
			http.Error(w, "storage unavailable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	mares.RegisterRoutes(r, svc, opts.ImageFinder)

	return r
}
