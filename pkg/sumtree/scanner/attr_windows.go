//go:build windows

package scanner

import (
	"io/fs"
	"syscall"
)

type fileAttrs struct {
	hidden, system, archive bool
}

func attributes(info fs.FileInfo) fileAttrs {
	if info == nil {
		return fileAttrs{}
	}
	data, ok := info.Sys().(*syscall.Win32FileAttributeData)
	if !ok {
		return fileAttrs{}
	}
	a := data.FileAttributes
	return fileAttrs{
		hidden:  a&syscall.FILE_ATTRIBUTE_HIDDEN != 0,
		system:  a&syscall.FILE_ATTRIBUTE_SYSTEM != 0,
		archive: a&syscall.FILE_ATTRIBUTE_ARCHIVE != 0,
	}
}
