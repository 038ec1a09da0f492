// Package assets embeds the default asset tree so release and browser
// builds need no files next to the binary.
package assets

import (
	"embed"
	"io/fs"
)

//go:embed manifest.yaml levels/*.yaml models/*.yaml scripts/*.lua
var embedded embed.FS

// FS returns the embedded asset tree rooted at the manifest.
func FS() fs.FS { return embedded }

// ManifestPath is the manifest file name inside every asset tree.
const ManifestPath = "manifest.yaml"
