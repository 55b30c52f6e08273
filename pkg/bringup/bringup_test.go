package bringup

import (
	"context"
	"errors"
	"testing"

	"github.com/rftool/pkg/metrics"
	"github.com/rftool/pkg/rfdc"
	"github.com/rftool/pkg/tiles"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var settings = Settings{
	DeviceID: 0,
	Clocks:   rfdc.ClockConfig{Board: "zcu111", LMXMHz: []float64{245.76, 245.76, 245.76}},
	ADCPLL:   rfdc.PLLConfig{Source: rfdc.InternalPLL, RefClkMHz: 245.76, SampleMHz: 3194.88},
	DACPLL:   rfdc.PLLConfig{Source: rfdc.InternalPLL, RefClkMHz: 245.76, SampleMHz: 6389.76},
}

func calls(s *rfdc.Sim) []string {
	var out []string
	for _, c := range s.Calls() {
		out = append(out, c.String())
	}
	return out
}

// stepOf maps a recorded call to the bring-up step it belongs to.
func stepOf(c rfdc.Call) Step {
	switch c.Op {
	case rfdc.OpRegister:
		return StepRegister
	case rfdc.OpInitialize:
		return StepConfigInit
	case rfdc.OpClocks:
		return StepClocks
	case rfdc.OpFIFO:
		return StepFIFO
	case rfdc.OpPLL:
		if c.Kind == rfdc.ADC {
			return StepADCPLL
		}
		return StepDACPLL
	case rfdc.OpReset:
		return StepReset
	}
	return 0
}

func TestRunOrderSingleDacSingleAdc(t *testing.T) {
	sim := rfdc.NewSim()
	plan, err := tiles.PlanFor(tiles.SingleDacSingleAdc)
	require.NoError(t, err)

	conv, err := Run(context.Background(), sim, tiles.SingleDacSingleAdc, plan, settings, zerolog.Nop(), metrics.Discard())
	require.NoError(t, err)
	require.NotNil(t, conv)

	assert.Equal(t, []string{
		"register",
		"initialize",
		"clocks",
		"fifo:dac",
		"fifo:adc",
		"pll:adc:0",
		"pll:dac:1",
		"pll:dac:2",
		"reset:adc:0", "reset:adc:1", "reset:adc:2", "reset:adc:3",
		"reset:dac:0", "reset:dac:1", "reset:dac:2", "reset:dac:3",
	}, calls(sim))

	assert.Equal(t, plan, conv.Plan())
	st, err := conv.TileState(rfdc.DAC, 1)
	require.NoError(t, err)
	assert.True(t, st.PLLLocked)
	assert.False(t, st.FIFOEnabled)
	assert.Equal(t, 1, st.Resets)
}

func TestRunFullPlanTunesEveryTile(t *testing.T) {
	sim := rfdc.NewSim()
	plan, err := tiles.PlanFor(tiles.NonMultiTileSync)
	require.NoError(t, err)

	_, err = Run(context.Background(), sim, tiles.NonMultiTileSync, plan, settings, zerolog.Nop(), nil)
	require.NoError(t, err)

	var adc, dac int
	for _, c := range sim.Calls() {
		if c.Op == rfdc.OpPLL && c.Kind == rfdc.ADC {
			adc++
		}
		if c.Op == rfdc.OpPLL && c.Kind == rfdc.DAC {
			dac++
		}
	}
	assert.Equal(t, tiles.MaxADCTiles, adc)
	assert.Equal(t, tiles.MaxDACTiles, dac)
}

func TestFaultAtStepStopsLaterSteps(t *testing.T) {
	boom := errors.New("driver failure")

	tests := []struct {
		name string
		fail func(rfdc.Call) bool
		step Step
		kind rfdc.Kind
		tile int
	}{
		{"register", func(c rfdc.Call) bool { return c.Op == rfdc.OpRegister }, StepRegister, 0, -1},
		{"config init", func(c rfdc.Call) bool { return c.Op == rfdc.OpInitialize }, StepConfigInit, 0, -1},
		{"clocks", func(c rfdc.Call) bool { return c.Op == rfdc.OpClocks }, StepClocks, 0, -1},
		{"dac fifo", func(c rfdc.Call) bool { return c.Op == rfdc.OpFIFO && c.Kind == rfdc.DAC }, StepFIFO, rfdc.DAC, -1},
		{"adc fifo", func(c rfdc.Call) bool { return c.Op == rfdc.OpFIFO && c.Kind == rfdc.ADC }, StepFIFO, rfdc.ADC, -1},
		{"adc tile 2", func(c rfdc.Call) bool { return c.Op == rfdc.OpPLL && c.Kind == rfdc.ADC && c.Tile == 2 }, StepADCPLL, rfdc.ADC, 2},
		{"dac tile 3", func(c rfdc.Call) bool { return c.Op == rfdc.OpPLL && c.Kind == rfdc.DAC && c.Tile == 3 }, StepDACPLL, rfdc.DAC, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sim := rfdc.NewSim()
			sim.Hook = func(c rfdc.Call) error {
				if tt.fail(c) {
					return boom
				}
				return nil
			}
			m := metrics.Discard()

			conv, err := Run(context.Background(), sim, tiles.MultiTileSync, tiles.Plan{ADCTiles: 4, DACTiles: 4}, settings, zerolog.Nop(), m)
			require.Error(t, err)
			assert.Nil(t, conv)
			assert.ErrorIs(t, err, boom)

			var se *StepError
			require.True(t, errors.As(err, &se))
			assert.Equal(t, tt.step, se.Step)
			assert.Equal(t, tt.tile, se.Tile)
			if tt.step == StepFIFO || tt.tile >= 0 {
				assert.Equal(t, tt.kind, se.Kind)
			}

			recorded := sim.Calls()
			last := recorded[len(recorded)-1]
			assert.True(t, tt.fail(last), "failing call must be the last one invoked")
			for _, c := range recorded {
				assert.LessOrEqual(t, int(stepOf(c)), int(tt.step), "call %s belongs to a later step", c)
			}
		})
	}
}

func TestResetFailureIsNotFatal(t *testing.T) {
	sim := rfdc.NewSim()
	sim.Hook = func(c rfdc.Call) error {
		if c.Op == rfdc.OpReset && c.Kind == rfdc.ADC && c.Tile == 1 {
			return errors.New("reset refused")
		}
		return nil
	}

	conv, err := Run(context.Background(), sim, tiles.NonMultiTileSync, tiles.Plan{ADCTiles: 4, DACTiles: 4}, settings, zerolog.Nop(), nil)
	require.NoError(t, err)
	require.NotNil(t, conv)

	var resets int
	for _, c := range sim.Calls() {
		if c.Op == rfdc.OpReset {
			resets++
		}
	}
	assert.Equal(t, tiles.MaxADCTiles+tiles.MaxDACTiles, resets)
}

func TestRunRejectsInvalidPlan(t *testing.T) {
	sim := rfdc.NewSim()
	_, err := Run(context.Background(), sim, tiles.MultiTileSync, tiles.Plan{DACTiles: 4, DACStart: 2}, settings, zerolog.Nop(), nil)
	require.Error(t, err)
	assert.Empty(t, sim.Calls())
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sim := rfdc.NewSim()
	_, err := Run(ctx, sim, tiles.MultiTileSync, tiles.Plan{ADCTiles: 1}, settings, zerolog.Nop(), nil)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, sim.Calls())
}
