package configs

import (
	"errors"
)

// First returns the first value at path, or the zero value if no file defines it.
func First[T any](loader Loader, path string) T {
	var value T
	if err := loader.Decode(path, &value); err != nil {
		if errors.Is(err, ErrValueNotFound) {
			return value
		}
		panic(err)
	}
	return value
}

// FirstOr is First with a default.
func FirstOr[T any](loader Loader, path string, def T) T {
	var value T
	if err := loader.Decode(path, &value); err != nil {
		if errors.Is(err, ErrValueNotFound) {
			return def
		}
		panic(err)
	}
	return value
}
