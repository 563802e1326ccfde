package mares

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"mare-records/internal/ports/images"
)

// RegisterRoutes monta /mares. finder puede ser nil: entonces no hay ruta de imagen.
func RegisterRoutes(r chi.Router, svc *Service, finder images.Finder) {
	r.Route("/mares", func(mr chi.Router) {
		mr.Post("/", createMareHandler(svc))
		mr.Get("/", listMaresHandler(svc))

		mr.Get("/{id}", getMareHandler(svc))
		mr.Patch("/{id}", updateMareHandler(svc))
		mr.Delete("/{id}", deleteMareHandler(svc))

		if finder != nil {
			mr.Get("/{id}/image", mareImageHandler(svc, finder))
		}
	})
}

type createMareRequest struct {
	Name  string `json:"name" example:"Misty"`
	Breed *Breed `json:"breed" example:"3"`
}

type updateMareRequest struct {
	// Punteros para PATCH real: nil = no tocar.
	Name  *string `json:"name" example:"Misty Rose"`
	Breed *Breed  `json:"breed" example:"2"`

	// Opcional: si viene, el update falla con 409 si el registro cambió desde entonces.
	ModifiedAt *time.Time `json:"modified_at,omitempty"`
}

type mareResponse struct {
	ID         int64     `json:"id" example:"1"`
	Name       string    `json:"name" example:"Misty"`
	Breed      Breed     `json:"breed" example:"3"`
	BreedName  string    `json:"breed_name" example:"unknown"`
	ModifiedAt time.Time `json:"modified_at"`
}

type mareImageResponse struct {
	MareID   int64  `json:"mare_id"`
	Name     string `json:"name"`
	ImageID  int64  `json:"image_id"`
	ImageURL string `json:"image_url"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// createMareHandler godoc
// @Summary Crear yegua
// @Description Inserta un registro en mares. name: 1 a 100 caracteres (se recortan espacios). breed: entero opaco, obligatorio.
// @Tags mares
// @Accept json
// @Produce json
// @Param payload body createMareRequest true "Datos de la yegua"
// @Success 201 {object} mareResponse
// @Failure 400 {object} errorResponse "invalid json / validación"
// @Failure 500 {object} errorResponse "storage error"
// @Router /mares [post]
func createMareHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createMareRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid json")
			return
		}

		m, err := svc.Create(r.Context(), CreateInput{Name: req.Name, Breed: req.Breed})
		if err != nil {
			writeServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, toMareResponse(m))
	}
}

// listMaresHandler godoc
// @Summary Listar yeguas
// @Description Sin parámetros devuelve todos los registros ordenados por id. Con after y/o limit pagina por keyset (id > after, limit por defecto 5, máximo 100).
// @Tags mares
// @Produce json
// @Param after query int false "Último id visto"
// @Param limit query int false "Tamaño de página"
// @Success 200 {array} mareResponse
// @Failure 400 {object} errorResponse "after/limit inválidos (limit debe ser > 0)"
// @Failure 500 {object} errorResponse "storage error"
// @Router /mares [get]
func listMaresHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()

		if !q.Has("after") && !q.Has("limit") {
			out := make([]mareResponse, 0)
			for m, err := range svc.List(r.Context()) {
				if err != nil {
					writeServiceError(w, err)
					return
				}
				out = append(out, toMareResponse(m))
			}
			writeJSON(w, http.StatusOK, out)
			return
		}

		var (
			after int64
			limit int
			err   error
		)
		if s := q.Get("after"); s != "" {
			if after, err = strconv.ParseInt(s, 10, 64); err != nil {
				writeError(w, http.StatusBadRequest, "after must be an integer")
				return
			}
		}
		if s := q.Get("limit"); s != "" {
			if limit, err = strconv.Atoi(s); err != nil {
				writeError(w, http.StatusBadRequest, "limit must be an integer")
				return
			}
			if limit <= 0 {
				writeError(w, http.StatusBadRequest, "limit must be positive")
				return
			}
		}

		items, err := svc.ListPage(r.Context(), after, limit)
		if err != nil {
			writeServiceError(w, err)
			return
		}

		out := make([]mareResponse, 0, len(items))
		for _, m := range items {
			out = append(out, toMareResponse(m))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

// getMareHandler godoc
// @Summary Obtener yegua
// @Tags mares
// @Produce json
// @Param id path int true "ID de la yegua"
// @Success 200 {object} mareResponse
// @Failure 400 {object} errorResponse "id inválido"
// @Failure 404 {object} errorResponse "mare not found"
// @Router /mares/{id} [get]
func getMareHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := mareID(w, r)
		if !ok {
			return
		}

		m, err := svc.Get(r.Context(), id)
		if err != nil {
			writeServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toMareResponse(m))
	}
}

// updateMareHandler godoc
// @Summary Actualizar yegua
// @Description Actualiza solo los campos enviados. modified_at pasa a max(ahora, valor anterior). Si el body trae modified_at, se usa como precondición y un valor desactualizado devuelve 409.
// @Tags mares
// @Accept json
// @Produce json
// @Param id path int true "ID de la yegua"
// @Param payload body updateMareRequest true "Campos a cambiar"
// @Success 200 {object} mareResponse
// @Failure 400 {object} errorResponse "invalid json / validación"
// @Failure 404 {object} errorResponse "mare not found"
// @Failure 409 {object} errorResponse "modificada por otro cliente"
// @Router /mares/{id} [patch]
func updateMareHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := mareID(w, r)
		if !ok {
			return
		}

		var req updateMareRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid json")
			return
		}

		m, err := svc.Update(r.Context(), id, UpdateInput{
			Name:         req.Name,
			Breed:        req.Breed,
			IfModifiedAt: req.ModifiedAt,
		})
		if err != nil {
			writeServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toMareResponse(m))
	}
}

// deleteMareHandler godoc
// @Summary Borrar yegua
// @Tags mares
// @Param id path int true "ID de la yegua"
// @Success 204
// @Failure 400 {object} errorResponse "id inválido"
// @Failure 404 {object} errorResponse "mare not found"
// @Router /mares/{id} [delete]
func deleteMareHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := mareID(w, r)
		if !ok {
			return
		}

		if _, err := svc.Delete(r.Context(), id); err != nil {
			writeServiceError(w, err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

// mareImageHandler godoc
// @Summary Imagen aleatoria de la yegua
// @Description Busca en el servicio de imágenes una imagen con el nombre de la yegua.
// @Tags mares
// @Produce json
// @Param id path int true "ID de la yegua"
// @Success 200 {object} mareImageResponse
// @Failure 404 {object} errorResponse "mare not found"
// @Failure 502 {object} errorResponse "sin imagen / error del servicio de imágenes"
// @Router /mares/{id}/image [get]
func mareImageHandler(svc *Service, finder images.Finder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := mareID(w, r)
		if !ok {
			return
		}

		m, err := svc.Get(r.Context(), id)
		if err != nil {
			writeServiceError(w, err)
			return
		}

		img, err := finder.FindImage(r.Context(), m.Name)
		if errors.Is(err, images.ErrNoImage) {
			writeError(w, http.StatusBadGateway, "no image found for "+m.Name)
			return
		}
		if err != nil {
			writeError(w, http.StatusBadGateway, "image search failed")
			return
		}

		writeJSON(w, http.StatusOK, mareImageResponse{
			MareID:   m.ID,
			Name:     m.Name,
			ImageID:  img.ID,
			ImageURL: img.URL,
		})
	}
}

func mareID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "id must be an integer")
		return 0, false
	}
	return id, true
}

func toMareResponse(m Mare) mareResponse {
	return mareResponse{
		ID:         m.ID,
		Name:       m.Name,
		Breed:      m.Breed,
		BreedName:  m.Breed.Name(),
		ModifiedAt: m.ModifiedAt,
	}
}

// writeServiceError traduce errores del Service a status HTTP.
// Los errores de storage no exponen el detalle al cliente.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrNotFound):
		writeError(w, http.StatusNotFound, ErrNotFound.Error())
	case errors.Is(err, ErrConflict):
		writeError(w, http.StatusConflict, ErrConflict.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
