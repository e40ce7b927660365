package schema

import (
	"embed"
	"io/fs"
	"sync"
)

//go:embed data/*.yaml
var embeddedData embed.FS

var (
	defaultOnce     sync.Once
	defaultRegistry *Registry
	defaultErr      error
)

// EmbeddedFS returns the bundled registry document.
func EmbeddedFS() fs.FS {
	sub, err := fs.Sub(embeddedData, "data")
	if err != nil {
		panic(err)
	}
	return sub
}

// Default returns the registry decoded from the embedded document. A
// malformed embedded document is a build defect and panics.
func Default() *Registry {
	defaultOnce.Do(func() {
		defaultRegistry, defaultErr = LoadFS(EmbeddedFS())
	})
	if defaultErr != nil {
		panic(defaultErr)
	}
	return defaultRegistry
}
