package tiles

import (
	"errors"
	"fmt"
)

// Hardware tile maxima of the converter block.
const (
	MaxADCTiles = 4
	MaxDACTiles = 4
)

// Variant identifies which converter tiles the loaded design wires up.
type Variant int

const (
	NonMultiTileSync Variant = iota
	SingleDacSingleAdc
	MultiTileSync
	Unrecognized
)

// Design-type codes as found in bits [17:16] of the design type register.
const (
	codeNonMTS    = 0x0
	codeDAC1ADC1  = 0x1
	codeMTS       = 0x2
	designTypeMsk = 0x3
	designTypeLSB = 16
)

// ErrUnrecognizedVariant is returned by PlanFor when the design type has no tile plan.
var ErrUnrecognizedVariant = errors.New("tiles: unrecognized design variant")

func (v Variant) String() string {
	switch v {
	case NonMultiTileSync:
		return "non-mts"
	case SingleDacSingleAdc:
		return "dac1-adc1"
	case MultiTileSync:
		return "mts"
	default:
		return "unrecognized"
	}
}

// VariantFromCode maps a 2-bit design-type code to a Variant.
func VariantFromCode(code uint32) Variant {
	switch code & designTypeMsk {
	case codeNonMTS:
		return NonMultiTileSync
	case codeDAC1ADC1:
		return SingleDacSingleAdc
	case codeMTS:
		return MultiTileSync
	default:
		return Unrecognized
	}
}

// VariantFromRegister extracts bits [17:16] of the design type register.
func VariantFromRegister(word uint32) Variant {
	return VariantFromCode((word >> designTypeLSB) & designTypeMsk)
}

// Plan is the set of tiles activated during bring-up.
type Plan struct {
	ADCTiles int `json:"adc_tiles"`
	DACTiles int `json:"dac_tiles"`
	DACStart int `json:"dac_start"`
}

// PlanFor returns the tile plan for a design variant.
// No I/O. Unrecognized variants never produce a partial plan.
func PlanFor(v Variant) (Plan, error) {
	switch v {
	case SingleDacSingleAdc:
		// The single-DAC design wires its DAC behind tile 0, so activation skips it.
		return Plan{ADCTiles: 1, DACTiles: 2, DACStart: 1}, nil
	case NonMultiTileSync, MultiTileSync:
		return Plan{ADCTiles: MaxADCTiles, DACTiles: MaxDACTiles, DACStart: 0}, nil
	default:
		return Plan{}, fmt.Errorf("%w: %s (%d)", ErrUnrecognizedVariant, v, int(v))
	}
}

// Validate checks the plan against the hardware maxima.
func (p Plan) Validate() error {
	if p.ADCTiles < 0 || p.DACTiles < 0 || p.DACStart < 0 {
		return fmt.Errorf("tiles: negative tile count in plan %+v", p)
	}
	if p.ADCTiles > MaxADCTiles {
		return fmt.Errorf("tiles: %d ADC tiles exceeds maximum %d", p.ADCTiles, MaxADCTiles)
	}
	if p.DACStart+p.DACTiles > MaxDACTiles {
		return fmt.Errorf("tiles: DAC range [%d,%d) exceeds maximum %d", p.DACStart, p.DACStart+p.DACTiles, MaxDACTiles)
	}
	return nil
}

// ADCRange returns the ADC tile indices to configure, in order.
func (p Plan) ADCRange() []int {
	return span(0, p.ADCTiles)
}

// DACRange returns the DAC tile indices to configure, in order.
func (p Plan) DACRange() []int {
	return span(p.DACStart, p.DACTiles)
}

func (p Plan) String() string {
	return fmt.Sprintf("adc=%d dac=%d dac_start=%d", p.ADCTiles, p.DACTiles, p.DACStart)
}

func span(start, n int) []int {
	out := make([]int, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, start+i)
	}
	return out
}
