package configs

import (
	"errors"
)

// First decodes the highest-priority value at path, or returns the zero
// value when no file defines it. Any other error panics: files are checked
// against the schema before anything is decoded.
func First[T any](loader Loader, path string) T {
	var value T
	if err := loader.AssignFirst(path, &value); err != nil {
		if errors.Is(err, ErrValueNotFound) {
			return value
		}
		panic(err)
	}
	return value
}
