package rfdc

import (
	"errors"
	"testing"

	"github.com/rftool/pkg/tiles"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readySim(t *testing.T) *Sim {
	t.Helper()
	s := NewSim()
	require.NoError(t, s.Register(0))
	require.NoError(t, s.Initialize(0))
	require.NoError(t, s.ConfigureClocks(ClockConfig{Board: "zcu111"}))
	return s
}

func TestConverterTileBounds(t *testing.T) {
	c := NewConverter(readySim(t), tiles.NonMultiTileSync, tiles.Plan{ADCTiles: 4, DACTiles: 4})

	assert.Error(t, c.ResetTile(ADC, -1))
	assert.Error(t, c.ResetTile(DAC, tiles.MaxDACTiles))
	assert.Error(t, c.ResetTile(Kind(7), 0))
	assert.NoError(t, c.ResetTile(DAC, tiles.MaxDACTiles-1))

	_, err := c.TileState(ADC, tiles.MaxADCTiles)
	assert.Error(t, err)
}

func TestConverterPLLAndState(t *testing.T) {
	c := NewConverter(readySim(t), tiles.MultiTileSync, tiles.Plan{ADCTiles: 4, DACTiles: 4})

	cfg := PLLConfig{Source: InternalPLL, RefClkMHz: 245.76, SampleMHz: 3194.88}
	require.NoError(t, c.ConfigurePLL(ADC, 2, cfg))
	require.NoError(t, c.SetFIFOs(ADC, false))

	st, err := c.TileState(ADC, 2)
	require.NoError(t, err)
	assert.True(t, st.PLLLocked)
	assert.False(t, st.FIFOEnabled)
	assert.Equal(t, cfg, st.PLL)

	assert.Equal(t, tiles.MultiTileSync, c.Variant())
}

func TestSimRequiresOrder(t *testing.T) {
	s := NewSim()
	assert.Error(t, s.Initialize(0), "initialize before register")
	assert.Error(t, s.ConfigurePLL(ADC, 0, PLLConfig{RefClkMHz: 1, SampleMHz: 1}), "pll before clocks")
}

func TestSimHookFailsOperation(t *testing.T) {
	s := readySim(t)
	boom := errors.New("boom")
	s.Hook = func(c Call) error {
		if c.Op == OpReset && c.Kind == DAC && c.Tile == 1 {
			return boom
		}
		return nil
	}

	assert.NoError(t, s.ResetTile(DAC, 0))
	assert.ErrorIs(t, s.ResetTile(DAC, 1), boom)

	calls := s.Calls()
	assert.Equal(t, "reset:dac:1", calls[len(calls)-1].String())
}

func TestParseKind(t *testing.T) {
	k, err := ParseKind("ADC")
	require.NoError(t, err)
	assert.Equal(t, ADC, k)

	k, err = ParseKind("1")
	require.NoError(t, err)
	assert.Equal(t, DAC, k)

	_, err = ParseKind("xyz")
	assert.Error(t, err)
}

func TestOpenDrivers(t *testing.T) {
	d, err := Open("sim")
	require.NoError(t, err)
	assert.IsType(t, &Sim{}, d)

	_, err = Open("nope")
	assert.Error(t, err)
}
