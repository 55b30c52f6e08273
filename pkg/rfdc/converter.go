package rfdc

import (
	"fmt"
	"sync"

	"github.com/rftool/pkg/tiles"
)

// Converter is the initialized converter controller. Exactly one exists per
// process; bring-up creates it and hands it to the session's dispatcher.
//
// Mutating calls are serialized; TileState may be called concurrently by the
// data path.
type Converter struct {
	mu      sync.RWMutex
	drv     Driver
	variant tiles.Variant
	plan    tiles.Plan
}

func NewConverter(drv Driver, variant tiles.Variant, plan tiles.Plan) *Converter {
	return &Converter{drv: drv, variant: variant, plan: plan}
}

func (c *Converter) Variant() tiles.Variant { return c.variant }

func (c *Converter) Plan() tiles.Plan { return c.plan }

func (c *Converter) ResetTile(kind Kind, tile int) error {
	if err := checkTile(kind, tile); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.drv.ResetTile(kind, tile)
}

func (c *Converter) ConfigurePLL(kind Kind, tile int, cfg PLLConfig) error {
	if err := checkTile(kind, tile); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.drv.ConfigurePLL(kind, tile, cfg)
}

func (c *Converter) SetFIFOs(kind Kind, enable bool) error {
	if err := checkKind(kind); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.drv.SetFIFOs(kind, enable)
}

func (c *Converter) TileState(kind Kind, tile int) (TileState, error) {
	if err := checkTile(kind, tile); err != nil {
		return TileState{}, err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.drv.TileState(kind, tile)
}

// Close releases the driver. Only called at process exit.
func (c *Converter) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.drv.Close()
}

// MaxTiles returns the hardware tile count of a converter kind.
func MaxTiles(kind Kind) int {
	if kind == DAC {
		return tiles.MaxDACTiles
	}
	return tiles.MaxADCTiles
}

func checkKind(kind Kind) error {
	if kind != ADC && kind != DAC {
		return fmt.Errorf("rfdc: invalid converter kind %d", int(kind))
	}
	return nil
}

func checkTile(kind Kind, tile int) error {
	if err := checkKind(kind); err != nil {
		return err
	}
	if tile < 0 || tile >= MaxTiles(kind) {
		return fmt.Errorf("rfdc: %s tile %d out of range [0,%d)", kind, tile, MaxTiles(kind))
	}
	return nil
}
