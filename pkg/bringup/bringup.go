// Package bringup runs the one-time converter initialization sequence.
//
// Steps run in a fixed order: register the device, initialize the
// controller, program the clock tree, disable FIFOs, tune every active
// tile's PLL, then reset every physically present tile. The first fatal
// failure aborts the sequence; nothing from a later step is invoked.
package bringup

import (
	"context"
	"fmt"
	"time"

	"github.com/rftool/pkg/metrics"
	"github.com/rftool/pkg/rfdc"
	"github.com/rftool/pkg/tiles"
	"github.com/rs/zerolog"
)

// Step names one stage of bring-up.
type Step int

const (
	StepRegister Step = iota + 1
	StepConfigInit
	StepClocks
	StepFIFO
	StepADCPLL
	StepDACPLL
	StepReset
)

func (s Step) String() string {
	switch s {
	case StepRegister:
		return "register"
	case StepConfigInit:
		return "config-init"
	case StepClocks:
		return "clocks"
	case StepFIFO:
		return "fifo-disable"
	case StepADCPLL:
		return "adc-pll"
	case StepDACPLL:
		return "dac-pll"
	case StepReset:
		return "tile-reset"
	default:
		return fmt.Sprintf("step(%d)", int(s))
	}
}

// StepError identifies the failing step, and for tile steps the kind and index.
type StepError struct {
	Step Step
	Kind rfdc.Kind
	Tile int // -1 when not tile scoped
	Err  error
}

func (e *StepError) Error() string {
	switch e.Step {
	case StepFIFO:
		return fmt.Sprintf("bringup: %s (%s): %v", e.Step, e.Kind, e.Err)
	case StepADCPLL, StepDACPLL:
		return fmt.Sprintf("bringup: %s tile %d: %v", e.Step, e.Tile, e.Err)
	default:
		return fmt.Sprintf("bringup: %s: %v", e.Step, e.Err)
	}
}

func (e *StepError) Unwrap() error { return e.Err }

// Settings carries the device and frequency parameters of bring-up.
type Settings struct {
	DeviceID uint16
	Clocks   rfdc.ClockConfig
	ADCPLL   rfdc.PLLConfig
	DACPLL   rfdc.PLLConfig
}

type sequencer struct {
	ctx context.Context
	drv rfdc.Driver
	log zerolog.Logger
	m   *metrics.Metrics
}

// Run executes bring-up against drv for the given design variant and plan and
// returns the converter handle shared with the session manager.
func Run(ctx context.Context, drv rfdc.Driver, variant tiles.Variant, plan tiles.Plan, set Settings, log zerolog.Logger, m *metrics.Metrics) (*rfdc.Converter, error) {
	if err := plan.Validate(); err != nil {
		return nil, err
	}
	if m == nil {
		m = metrics.Discard()
	}

	s := &sequencer{ctx: ctx, drv: drv, log: log, m: m}

	log.Info().
		Str("variant", variant.String()).
		Int("adc_tiles", plan.ADCTiles).
		Int("dac_tiles", plan.DACTiles).
		Int("dac_start", plan.DACStart).
		Msg("starting converter bring-up")

	steps := []struct {
		step Step
		fn   func() error
	}{
		{StepRegister, func() error { return s.single(StepRegister, func() error { return drv.Register(set.DeviceID) }) }},
		{StepConfigInit, func() error { return s.single(StepConfigInit, func() error { return drv.Initialize(set.DeviceID) }) }},
		{StepClocks, func() error { return s.single(StepClocks, func() error { return drv.ConfigureClocks(set.Clocks) }) }},
		{StepFIFO, s.disableFIFOs},
		{StepADCPLL, func() error { return s.tunePLLs(StepADCPLL, rfdc.ADC, plan.ADCRange(), set.ADCPLL) }},
		{StepDACPLL, func() error { return s.tunePLLs(StepDACPLL, rfdc.DAC, plan.DACRange(), set.DACPLL) }},
		{StepReset, s.resetAll},
	}

	for _, st := range steps {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		start := time.Now()
		err := st.fn()
		s.m.BringupStepSeconds.WithLabelValues(st.step.String()).Observe(time.Since(start).Seconds())
		if err != nil {
			s.m.BringupFailures.WithLabelValues(st.step.String()).Inc()
			return nil, err
		}
		log.Debug().Str("step", st.step.String()).Dur("took", time.Since(start)).Msg("bring-up step done")
	}

	log.Info().Msg("converter bring-up complete")
	return rfdc.NewConverter(drv, variant, plan), nil
}

func (s *sequencer) single(step Step, fn func() error) error {
	if err := fn(); err != nil {
		return &StepError{Step: step, Tile: -1, Err: err}
	}
	return nil
}

// disableFIFOs gates DAC then ADC FIFOs before any PLL is touched.
func (s *sequencer) disableFIFOs() error {
	for _, kind := range []rfdc.Kind{rfdc.DAC, rfdc.ADC} {
		if err := s.drv.SetFIFOs(kind, false); err != nil {
			return &StepError{Step: StepFIFO, Kind: kind, Tile: -1, Err: err}
		}
	}
	return nil
}

func (s *sequencer) tunePLLs(step Step, kind rfdc.Kind, tileIDs []int, cfg rfdc.PLLConfig) error {
	for _, tile := range tileIDs {
		if err := s.ctx.Err(); err != nil {
			return err
		}
		if err := s.drv.ConfigurePLL(kind, tile, cfg); err != nil {
			return &StepError{Step: step, Kind: kind, Tile: tile, Err: err}
		}
		s.log.Debug().
			Str("kind", kind.String()).
			Int("tile", tile).
			Float64("ref_mhz", cfg.RefClkMHz).
			Float64("sample_mhz", cfg.SampleMHz).
			Msg("tile pll configured")
	}
	return nil
}

// resetAll resets every physically present tile, independent of the plan.
// A failed reset is reported but does not stop bring-up.
func (s *sequencer) resetAll() error {
	for _, kind := range []rfdc.Kind{rfdc.ADC, rfdc.DAC} {
		for tile := 0; tile < rfdc.MaxTiles(kind); tile++ {
			if err := s.drv.ResetTile(kind, tile); err != nil {
				s.m.TileResetFailures.WithLabelValues(kind.String()).Inc()
				s.log.Warn().Err(err).Str("kind", kind.String()).Int("tile", tile).Msg("tile reset failed")
			}
		}
	}
	return nil
}
