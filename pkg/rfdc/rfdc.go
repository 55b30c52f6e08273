// Package rfdc is the boundary to the RF data converter driver.
//
// The register-level driver (tile PLL math, FIFO gating, clock tree
// programming) lives outside this module. Driver exposes the handful of
// operations bring-up and command dispatch need; each one either succeeds or
// returns an error. Converter is the single handle shared by the bring-up
// sequencer and the session's command dispatcher.
package rfdc

import (
	"errors"
	"fmt"
	"strings"
)

// Kind selects the converter type of a tile.
type Kind int

const (
	ADC Kind = iota
	DAC
)

func (k Kind) String() string {
	switch k {
	case ADC:
		return "adc"
	case DAC:
		return "dac"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// ParseKind accepts "adc"/"dac" in any case, or the driver's numeric type (0/1).
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(s) {
	case "adc", "0":
		return ADC, nil
	case "dac", "1":
		return DAC, nil
	}
	return 0, fmt.Errorf("rfdc: unknown converter kind %q", s)
}

// ClockConfig selects the reference clock tree programming.
type ClockConfig struct {
	Board     string    `yaml:"board"`
	LMKConfig string    `yaml:"lmk_config"`
	LMXMHz    []float64 `yaml:"lmx_mhz"` // per LMX synthesizer, board order
}

// PLLConfig is one tile's dynamic PLL setting.
type PLLConfig struct {
	Source    int     `yaml:"source" json:"source"`
	RefClkMHz float64 `yaml:"ref_clk_mhz" json:"ref_clk_mhz"`
	SampleMHz float64 `yaml:"sample_mhz" json:"sample_mhz"`
}

// PLL clock sources.
const (
	ExternalClock = 0
	InternalPLL   = 1
)

// TileState is what the driver reports about one tile.
type TileState struct {
	Kind        Kind      `json:"-"`
	Tile        int       `json:"tile"`
	PLLLocked   bool      `json:"pll_locked"`
	FIFOEnabled bool      `json:"fifo_enabled"`
	PLL         PLLConfig `json:"pll"`
	Resets      int       `json:"resets"`
}

// Driver is the external converter driver.
type Driver interface {
	// Register registers the converter instance with the platform layer.
	Register(deviceID uint16) error
	// Initialize configures the controller against the registered device.
	Initialize(deviceID uint16) error
	ConfigureClocks(cfg ClockConfig) error
	// SetFIFOs gates the FIFOs of every tile of the given kind.
	SetFIFOs(kind Kind, enable bool) error
	ConfigurePLL(kind Kind, tile int, cfg PLLConfig) error
	ResetTile(kind Kind, tile int) error
	TileState(kind Kind, tile int) (TileState, error)
	Close() error
}

// ErrNotBuilt is returned when the hardware driver binding was not compiled in.
var ErrNotBuilt = errors.New("rfdc: xrfdc driver not built in (rebuild with -tags xrfdc)")

// Open returns the driver named by name: "sim" or "xrfdc".
func Open(name string) (Driver, error) {
	switch strings.ToLower(name) {
	case "sim", "":
		return NewSim(), nil
	case "xrfdc":
		return openXRFdc()
	}
	return nil, fmt.Errorf("rfdc: unknown driver %q", name)
}
