package configs

import (
	"errors"
	"fmt"
	"iter"
	"os"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
)

var ErrValueNotFound = errors.New("value not found")

// Loader reads cue files lazily, in order. Earlier files take precedence.
type Loader struct {
	load func() ([]document, error)
}

type document struct {
	path  string
	value cue.Value
}

// NewLoader returns a Loader over filePaths. A non-empty schema is closed and
// unified with every file, so unknown fields are errors.
func NewLoader(filePaths []string, schema string) Loader {
	return Loader{
		load: sync.OnceValues(func() ([]document, error) {
			ctx := cuecontext.New()

			var schemaValue cue.Value
			if schema != "" {
				schemaValue = ctx.CompileString("close({" + schema + "})")
				if err := schemaValue.Err(); err != nil {
					return nil, fmt.Errorf("compile schema: %w", err)
				}
			}

			docs := make([]document, 0, len(filePaths))
			for _, filePath := range filePaths {
				content, err := os.ReadFile(filePath)
				if err != nil {
					return nil, err
				}
				value := ctx.CompileBytes(content, cue.Filename(filePath))
				if err := value.Err(); err != nil {
					return nil, err
				}
				if schemaValue.Exists() {
					if err := schemaValue.Unify(value).Validate(cue.Concrete(true)); err != nil {
						return nil, fmt.Errorf("%s: %w", filePath, err)
					}
				}
				docs = append(docs, document{
					path:  filePath,
					value: value,
				})
			}
			return docs, nil
		}),
	}
}

// Paths returns the paths of the loaded files.
func (l Loader) Paths() ([]string, error) {
	docs, err := l.load()
	if err != nil {
		return nil, err
	}
	ret := make([]string, 0, len(docs))
	for _, doc := range docs {
		ret = append(ret, doc.path)
	}
	return ret, nil
}

// Values yields the value at path from every file that defines it.
func (l Loader) Values(path string) iter.Seq2[cue.Value, error] {
	return func(yield func(cue.Value, error) bool) {
		docs, err := l.load()
		if err != nil {
			yield(cue.Value{}, err)
			return
		}
		cuePath := cue.ParsePath(path)
		for _, doc := range docs {
			value := doc.value.LookupPath(cuePath)
			if !value.Exists() || value.Err() != nil {
				continue
			}
			if !yield(value, nil) {
				return
			}
		}
	}
}

// Decode decodes the first value at path into target.
func (l Loader) Decode(path string, target any) error {
	for value, err := range l.Values(path) {
		if err != nil {
			return err
		}
		return value.Decode(target)
	}
	return fmt.Errorf("%s: %w", path, ErrValueNotFound)
}
