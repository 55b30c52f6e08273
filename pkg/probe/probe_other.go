//go:build !unix

package probe

import "errors"

var errUnsupported = errors.New("physical memory mapping is not supported on this platform")

func readWord(path string, base int64, size, off int) (uint32, error) {
	return 0, &ProbeError{Op: "mmap", Path: path, Err: errUnsupported}
}
