//go:build unix

package probe

import (
	"encoding/binary"

	"golang.org/x/sys/unix"
)

// readWord maps size bytes of path at base and returns the word at off.
// The mapping and file descriptor are released on every return path.
func readWord(path string, base int64, size, off int) (uint32, error) {
	fd, err := unix.Open(path, unix.O_RDWR|unix.O_SYNC, 0)
	if err != nil {
		return 0, &ProbeError{Op: "open", Path: path, Err: err}
	}
	defer unix.Close(fd)

	mem, err := unix.Mmap(fd, base, size, unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		return 0, &ProbeError{Op: "mmap", Path: path, Err: err}
	}
	defer unix.Munmap(mem)

	return binary.LittleEndian.Uint32(mem[off : off+4]), nil
}
