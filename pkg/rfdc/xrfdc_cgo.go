//go:build linux && cgo && xrfdc

package rfdc

/*
#cgo LDFLAGS: -lrfdc -lmetal
#include <stdlib.h>
#include <metal/sys.h>
#include <metal/device.h>
#include "xrfdc.h"
#include "clock_interface.h"

static XRFdc rft_inst;
static struct metal_device *rft_dev;

static int rft_register(u16 id) {
	struct metal_init_params params = METAL_INIT_DEFAULTS;
	params.log_level = METAL_LOG_ERROR;
	if (metal_init(&params)) {
		return -1;
	}
	return XRFdc_RegisterMetal(&rft_inst, id, &rft_dev);
}

static int rft_cfg_init(u16 id) {
	XRFdc_Config *cfg = XRFdc_LookupConfig(id);
	if (cfg == NULL) {
		return -1;
	}
	return XRFdc_CfgInitialize(&rft_inst, cfg);
}

static int rft_fifo(u32 type, int enable) {
	return XRFdc_SetupFIFO(&rft_inst, type, -1, (u8)enable);
}

static int rft_pll(u32 type, u32 tile, u8 source, double ref, double rate) {
	return XRFdc_DynamicPLLConfig(&rft_inst, type, tile, source, ref, rate);
}

static int rft_reset(u32 type, int tile) {
	return XRFdc_Reset(&rft_inst, type, tile);
}

static int rft_pll_locked(u32 type, u32 tile, u32 *locked) {
	u32 status = 0;
	int ret = XRFdc_GetPLLLockStatus(&rft_inst, type, tile, &status);
	*locked = (status == XRFDC_PLL_LOCKED);
	return ret;
}

static int rft_clocks(int board, int lmk, int lmx0, int lmx1, int lmx2) {
	return initRFclock(board, lmk, lmx0, lmx1, lmx2);
}

static void rft_close(void) {
	metal_finish();
}
*/
import "C"

import (
	"fmt"
	"strings"
	"sync"
)

var (
	boards = map[string]C.int{
		"zcu111": C.ZCU111,
	}
	lmkConfigs = map[string]C.int{
		"LMK04208_12M8_3072M_122M88_REVA": C.LMK04208_12M8_3072M_122M88_REVA,
	}
	// LMX outputs by position: two DAC synthesizers, then the ADC synthesizer.
	lmxRates = []map[float64]C.int{
		{245.76: C.DAC_245_76_MHZ},
		{245.76: C.DAC_245_76_MHZ},
		{245.76: C.ADC_245_76_MHZ},
	}
)

type xrfdc struct {
	mu    sync.Mutex
	fifo  [2]bool
	pll   [2][]PLLConfig
	reset [2][]int
}

func openXRFdc() (Driver, error) {
	d := &xrfdc{}
	for _, k := range []Kind{ADC, DAC} {
		d.pll[k] = make([]PLLConfig, MaxTiles(k))
		d.reset[k] = make([]int, MaxTiles(k))
	}
	return d, nil
}

func tileType(kind Kind) C.u32 {
	if kind == DAC {
		return C.XRFDC_DAC_TILE
	}
	return C.XRFDC_ADC_TILE
}

func status(op string, ret C.int) error {
	if ret != C.XRFDC_SUCCESS {
		return fmt.Errorf("xrfdc: %s failed (status %d)", op, int(ret))
	}
	return nil
}

func (d *xrfdc) Register(deviceID uint16) error {
	return status("register metal device", C.rft_register(C.u16(deviceID)))
}

func (d *xrfdc) Initialize(deviceID uint16) error {
	return status("cfg initialize", C.rft_cfg_init(C.u16(deviceID)))
}

func (d *xrfdc) ConfigureClocks(cfg ClockConfig) error {
	board, ok := boards[strings.ToLower(cfg.Board)]
	if !ok {
		return fmt.Errorf("xrfdc: unsupported board %q", cfg.Board)
	}
	lmk, ok := lmkConfigs[cfg.LMKConfig]
	if !ok {
		return fmt.Errorf("xrfdc: unsupported LMK config %q", cfg.LMKConfig)
	}
	if len(cfg.LMXMHz) != len(lmxRates) {
		return fmt.Errorf("xrfdc: expected %d LMX rates, got %d", len(lmxRates), len(cfg.LMXMHz))
	}
	var lmx [3]C.int
	for i, mhz := range cfg.LMXMHz {
		id, ok := lmxRates[i][mhz]
		if !ok {
			return fmt.Errorf("xrfdc: unsupported LMX%d rate %.2f MHz", i, mhz)
		}
		lmx[i] = id
	}
	return status("init rf clock", C.rft_clocks(board, lmk, lmx[0], lmx[1], lmx[2]))
}

func (d *xrfdc) SetFIFOs(kind Kind, enable bool) error {
	en := C.int(0)
	if enable {
		en = 1
	}
	if err := status("setup fifo "+kind.String(), C.rft_fifo(tileType(kind), en)); err != nil {
		return err
	}
	d.mu.Lock()
	d.fifo[kind] = enable
	d.mu.Unlock()
	return nil
}

func (d *xrfdc) ConfigurePLL(kind Kind, tile int, cfg PLLConfig) error {
	ret := C.rft_pll(tileType(kind), C.u32(tile), C.u8(cfg.Source), C.double(cfg.RefClkMHz), C.double(cfg.SampleMHz))
	if err := status(fmt.Sprintf("dynamic pll config %s tile %d", kind, tile), ret); err != nil {
		return err
	}
	d.mu.Lock()
	d.pll[kind][tile] = cfg
	d.mu.Unlock()
	return nil
}

func (d *xrfdc) ResetTile(kind Kind, tile int) error {
	if err := status(fmt.Sprintf("reset %s tile %d", kind, tile), C.rft_reset(tileType(kind), C.int(tile))); err != nil {
		return err
	}
	d.mu.Lock()
	d.reset[kind][tile]++
	d.mu.Unlock()
	return nil
}

func (d *xrfdc) TileState(kind Kind, tile int) (TileState, error) {
	var locked C.u32
	if err := status("pll lock status", C.rft_pll_locked(tileType(kind), C.u32(tile), &locked)); err != nil {
		return TileState{}, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return TileState{
		Kind:        kind,
		Tile:        tile,
		PLLLocked:   locked != 0,
		FIFOEnabled: d.fifo[kind],
		PLL:         d.pll[kind][tile],
		Resets:      d.reset[kind][tile],
	}, nil
}

func (d *xrfdc) Close() error {
	C.rft_close()
	return nil
}
