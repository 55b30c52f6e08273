package command

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/rftool/pkg/rfdc"
	"github.com/rftool/pkg/tiles"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTable(t *testing.T) (*Table, *rfdc.Sim) {
	t.Helper()
	sim := rfdc.NewSim()
	require.NoError(t, sim.Register(0))
	require.NoError(t, sim.Initialize(0))
	require.NoError(t, sim.ConfigureClocks(rfdc.ClockConfig{Board: "zcu111"}))

	plan, err := tiles.PlanFor(tiles.SingleDacSingleAdc)
	require.NoError(t, err)
	return NewTable(rfdc.NewConverter(sim, tiles.SingleDacSingleAdc, plan), "1.2.3"), sim
}

func TestDispatch(t *testing.T) {
	tbl, _ := newTable(t)

	tests := []struct {
		line   string
		status Status
		resp   string
	}{
		{"version\r\n", OK, "1.2.3"},
		{"GetDesignType", OK, "1 dac1-adc1"},
		{"gettileplan\n", OK, "1 2 1"},
		{"ResetTile dac 2", OK, "ok"},
		{"ResetTile dac 7", ErrExecute, ""},
		{"ResetTile adc", ErrNumArgs, ""},
		{"ResetTile rf 0", ErrExecute, ""},
		{"DynamicPLLConfig adc 0 1 245.76 3194.88", OK, "ok"},
		{"DynamicPLLConfig adc 0 9 245.76 3194.88", ErrExecute, ""},
		{"DynamicPLLConfig adc 0 1 -1 3194.88", ErrExecute, ""},
		{"SetFIFO 1 1", OK, "ok"},
		{"SetFIFO dac on", ErrExecute, ""},
		{"frobnicate", ErrUndefined, "frobnicate"},
		{"   ", ErrUndefined, "empty command"},
		{"disconnect\n", OK, DisconnectToken},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			status, resp := tbl.Dispatch([]byte(tt.line))
			assert.Equal(t, tt.status, status, string(resp))
			if tt.resp != "" {
				assert.Equal(t, tt.resp, string(resp))
			}
		})
	}
}

func TestTileStateReflectsCommands(t *testing.T) {
	tbl, _ := newTable(t)

	status, _ := tbl.Dispatch([]byte("DynamicPLLConfig dac 1 1 245.76 6389.76"))
	require.Equal(t, OK, status)
	status, _ = tbl.Dispatch([]byte("SetFIFO dac 0"))
	require.Equal(t, OK, status)

	status, resp := tbl.Dispatch([]byte("GetTileState dac 1"))
	require.Equal(t, OK, status, string(resp))

	var st rfdc.TileState
	require.NoError(t, json.Unmarshal(resp, &st))
	assert.Equal(t, 1, st.Tile)
	assert.True(t, st.PLLLocked)
	assert.False(t, st.FIFOEnabled)
	assert.Equal(t, 6389.76, st.PLL.SampleMHz)
}

func TestDriverFailureIsExecuteError(t *testing.T) {
	tbl, sim := newTable(t)
	sim.Hook = func(c rfdc.Call) error {
		if c.Op == rfdc.OpReset {
			return errors.New("tile busy")
		}
		return nil
	}

	status, resp := tbl.Dispatch([]byte("ResetTile adc 0"))
	assert.Equal(t, ErrExecute, status)
	assert.Equal(t, "tile busy", string(resp))
}

func TestHelpListsCommands(t *testing.T) {
	tbl, _ := newTable(t)
	status, resp := tbl.Dispatch([]byte("help"))
	require.Equal(t, OK, status)
	assert.Contains(t, string(resp), "resettile <adc|dac> <tile>")
	assert.Contains(t, string(resp), "disconnect")
}

func TestRenderError(t *testing.T) {
	assert.Equal(t, "ERROR: command undefined foo", string(RenderError(ErrUndefined, []byte("foo"))))
	assert.Equal(t, "ERROR: command too long", string(RenderError(ErrTooLong, nil)))
	assert.Equal(t, "ERROR: status 42 x", string(RenderError(Status(42), []byte(" x\n"))))
}

func TestIsDisconnect(t *testing.T) {
	assert.True(t, IsDisconnect([]byte("disconnect")))
	assert.False(t, IsDisconnect([]byte("disconnect\n")))
	assert.False(t, IsDisconnect(nil))
}
