//go:build cgo

package vectorstore

import (
	"github.com/custodia-labs/docseek/cgo/sqlitevec"
	"github.com/custodia-labs/docseek/internal/core/ports/driven"
)

func init() {
	storeBackends = append(storeBackends, backendCase{
		name:      sqlitevec.Name,
		indexFile: "index.db",
		open:      func(path string) (driven.VectorBackend, error) { return sqlitevec.New(path) },
	})
}
