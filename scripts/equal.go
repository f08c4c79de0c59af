package scripts

import (
	"go/token"
	"math/big"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"go.starlark.net/syntax"
)

// fields that carry spelling or resolver state, not structure
var ignoredFields = map[string]bool{
	"Raw":      true,
	"Binding":  true,
	"Function": true,
	"Module":   true,
	"Options":  true,
}

var nodeCmpOptions = cmp.Options{
	cmp.FilterPath(func(path cmp.Path) bool {
		field, ok := path.Last().(cmp.StructField)
		if !ok {
			return false
		}
		name := field.Name()
		return !token.IsExported(name) || ignoredFields[name]
	}, cmp.Ignore()),
	cmpopts.IgnoreTypes(syntax.Position{}),
	cmp.Comparer(func(a, b *big.Int) bool {
		return a.Cmp(b) == 0
	}),
}

// EqualNodes reports whether two syntax trees have the same structure.
// Positions, comments and literal spelling are ignored.
func EqualNodes(a, b syntax.Node) bool {
	return cmp.Equal(a, b, nodeCmpOptions)
}
