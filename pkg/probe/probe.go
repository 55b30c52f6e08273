// Package probe classifies the loaded fabric design by reading the design
// type register through a memory-mapped window of physical memory.
package probe

import (
	"fmt"

	"github.com/rftool/pkg/tiles"
)

const (
	DefaultMemDevice = "/dev/mem"
	DefaultMapSize   = 4096
)

// Config locates the design type register.
type Config struct {
	MemDevice string // backing memory device, /dev/mem on target
	Register  uint64 // physical address of the design type register
	MapSize   int    // window size, power of two, page aligned
}

// ProbeError reports a failure to open or map the backing memory device.
type ProbeError struct {
	Op   string
	Path string
	Err  error
}

func (e *ProbeError) Error() string {
	return fmt.Sprintf("probe: %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *ProbeError) Unwrap() error { return e.Err }

// ReadRegister maps the window holding cfg.Register and returns the 32-bit word.
func ReadRegister(cfg Config) (uint32, error) {
	if cfg.MemDevice == "" {
		cfg.MemDevice = DefaultMemDevice
	}
	if cfg.MapSize <= 0 {
		cfg.MapSize = DefaultMapSize
	}
	if cfg.MapSize&(cfg.MapSize-1) != 0 {
		return 0, &ProbeError{Op: "map", Path: cfg.MemDevice, Err: fmt.Errorf("window size %d is not a power of two", cfg.MapSize)}
	}

	mask := uint64(cfg.MapSize - 1)
	base := cfg.Register &^ mask
	off := int(cfg.Register & mask)
	if off+4 > cfg.MapSize {
		return 0, &ProbeError{Op: "map", Path: cfg.MemDevice, Err: fmt.Errorf("register 0x%x straddles the window", cfg.Register)}
	}

	return readWord(cfg.MemDevice, int64(base), cfg.MapSize, off)
}

// Detect reads the design type register and classifies the design.
func Detect(cfg Config) (tiles.Variant, uint32, error) {
	word, err := ReadRegister(cfg)
	if err != nil {
		return tiles.Unrecognized, 0, err
	}
	return tiles.VariantFromRegister(word), word, nil
}
