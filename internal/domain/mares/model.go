package mares

import (
	"strconv"
	"time"
)

// Breed es un identificador opaco de raza.
// No existe tabla de razas: cualquier entero se acepta y se guarda tal cual.
type Breed int32

// Razas conocidas. Solo se usan para mostrar nombres.
const (
	BreedEarth   Breed = 0
	BreedPegasus Breed = 1
	BreedUnicorn Breed = 2
)

var breedNames = map[Breed]string{
	BreedEarth:   "earth",
	BreedPegasus: "pegasus",
	BreedUnicorn: "unicorn",
}

// Name devuelve el nombre de la raza o "unknown" si el id no es conocido.
func (b Breed) Name() string {
	if n, ok := breedNames[b]; ok {
		return n
	}
	return "unknown"
}

func (b Breed) String() string {
	if n, ok := breedNames[b]; ok {
		return n
	}
	return "breed(" + strconv.Itoa(int(b)) + ")"
}

// MaxNameLength es el límite de VARCHAR(100) en la tabla mares, medido en caracteres.
const MaxNameLength = 100

// Mare es un registro de la tabla mares.
type Mare struct {
	ID    int64
	Name  string
	Breed Breed

	ModifiedAt time.Time
}

// NewMare es lo que el servicio entrega al repositorio para insertar.
// El id lo asigna el motor de base de datos.
type NewMare struct {
	Name       string
	Breed      Breed
	ModifiedAt time.Time
}

// Patch describe una actualización parcial.
// Punteros nil = no tocar. IfModifiedAt != nil activa la comprobación optimista.
type Patch struct {
	Name  *string
	Breed *Breed

	ModifiedAt   time.Time
	IfModifiedAt *time.Time
}
