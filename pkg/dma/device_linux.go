//go:build linux

package dma

import (
	"fmt"
	"io"

	"golang.org/x/sys/unix"
)

type device struct {
	fd   int
	path string
}

func openDevice(path string) (Source, error) {
	fd, err := unix.Open(path, unix.O_RDONLY|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, fmt.Errorf("dma: could not open device %s: %w", path, err)
	}

	// Only meaningful when the device is a pipe (simulated hardware).
	const maxPipeSize = 1024 * 1024
	_, _ = unix.FcntlInt(uintptr(fd), unix.F_SETPIPE_SZ, maxPipeSize)

	return &device{fd: fd, path: path}, nil
}

func (d *device) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	for {
		n, err := unix.Read(d.fd, p)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return 0, fmt.Errorf("dma: read %s: %w", d.path, err)
		}
		if n == 0 {
			return 0, io.EOF
		}
		return n, nil
	}
}

func (d *device) Close() error {
	return unix.Close(d.fd)
}
