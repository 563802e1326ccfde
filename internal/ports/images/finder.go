package images

import (
	"context"
	"errors"
)

var ErrNoImage = errors.New("no image found")

type Image struct {
	ID  int64
	URL string
}

// Finder busca una imagen para un nombre de yegua. Devuelve ErrNoImage si no hay resultados.
type Finder interface {
	FindImage(ctx context.Context, name string) (Image, error)
}
