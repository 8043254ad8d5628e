//go:build linux

package hasher

import (
	"os"

	"golang.org/x/sys/unix"
)

// adviseSequential tells the kernel the file will be read front to back.
// Failures are ignored; the hint only affects readahead.
func adviseSequential(f *os.File, size int64) {
	if size <= 0 {
		return
	}
	_ = unix.Fadvise(int(f.Fd()), 0, size, unix.FADV_SEQUENTIAL)
}
