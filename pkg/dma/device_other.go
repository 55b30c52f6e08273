//go:build !linux

package dma

import "fmt"

func openDevice(path string) (Source, error) {
	return nil, fmt.Errorf("dma: device capture of %s not supported on this platform", path)
}
