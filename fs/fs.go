// Package appfs exposes static assets that ship inside the binary.
package appfs

import "embed"

//go:embed migrations
var FS embed.FS
