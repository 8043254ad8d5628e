//go:build !windows

package scanner

import "io/fs"

type fileAttrs struct {
	hidden, system, archive bool
}

// attributes reports no attribute bits; outside Windows hidden and system
// files are recognized by name only.
func attributes(fs.FileInfo) fileAttrs {
	return fileAttrs{}
}
