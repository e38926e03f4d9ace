package webui

import (
	"embed"
	"io/fs"
)

//go:embed all:dist
var distFS embed.FS

// Dist returns the embedded production build of the admin UI, rooted so
// that index.html sits at the top of the tree.
func Dist() fs.FS {
	sub, err := fs.Sub(distFS, "dist")
	if err != nil {
		// Unreachable: the dist directory is embedded at compile time.
		panic(err)
	}
	return sub
}
