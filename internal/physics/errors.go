package physics

import "errors"

var (
	// ErrInvalidHandle is returned for handles whose object was destroyed or never existed.
	ErrInvalidHandle = errors.New("physics: invalid handle")
	// ErrFormInUse is returned when destroying or adding shapes to a form that bodies still reference.
	ErrFormInUse = errors.New("physics: form still used by bodies")
	// ErrEmptyForm is returned when creating a body from a form without shapes.
	ErrEmptyForm = errors.New("physics: form has no shapes")
	// ErrDegenerateHull is returned when hull input is too small or flat.
	ErrDegenerateHull = errors.New("physics: degenerate hull")
)
