package config

import (
	"github.com/rftool/pkg/probe"
	"github.com/rftool/pkg/rfdc"
)

// Defaults for the ZCU111 reference design.
const (
	DefaultCommandAddr  = ":8081"
	DefaultDataAddr     = ":8082"
	DefaultPollInterval = 50
	DefaultJoinTimeout  = 2000
	DefaultLineBuffer   = 2048

	DefaultDesignTypeReg = 0xB0005054

	DefaultBitstream = "/run/media/mmcblk0p1/nonmts/zcu111_rfsoc_trd_wrapper.bit.bin"
	DefaultOverlay   = "/run/media/mmcblk0p1/nonmts/pl.dtbo"
	DefaultTool      = "fpgautil"
	DefaultSettleMs  = 300

	DefaultDataDevice = "/dev/xdma0_c2h_0"
	DefaultChunkSize  = 64 * 1024

	DefaultMonitorAddr = ":8080"
)

// Default returns a fully normalized configuration.
func Default() *Config {
	cfg := &Config{}
	Normalize(cfg)
	return cfg
}

// Normalize fills unset fields with defaults.
// It MUST be called only after Validate().
func Normalize(cfg *Config) {
	if cfg == nil {
		return
	}

	s := &cfg.Server
	if s.CommandAddr == "" {
		s.CommandAddr = DefaultCommandAddr
	}
	if s.DataAddr == "" {
		s.DataAddr = DefaultDataAddr
	}
	if s.PollIntervalMs == 0 {
		s.PollIntervalMs = DefaultPollInterval
	}
	if s.JoinTimeoutMs == 0 {
		s.JoinTimeoutMs = DefaultJoinTimeout
	}
	if s.LineBuffer == 0 {
		s.LineBuffer = DefaultLineBuffer
	}

	p := &cfg.Probe
	if p.MemDevice == "" {
		p.MemDevice = probe.DefaultMemDevice
	}
	if p.Register == 0 {
		p.Register = DefaultDesignTypeReg
	}
	if p.MapSize == 0 {
		p.MapSize = probe.DefaultMapSize
	}

	pr := &cfg.Provision
	if pr.Bitstream == "" {
		pr.Bitstream = DefaultBitstream
	}
	if pr.Overlay == "" {
		pr.Overlay = DefaultOverlay
	}
	if pr.Tool == "" {
		pr.Tool = DefaultTool
	}
	if pr.SettleMs == 0 {
		pr.SettleMs = DefaultSettleMs
	}

	c := &cfg.Converter
	if c.Driver == "" {
		c.Driver = "xrfdc"
	}
	if c.Clocks.Board == "" {
		c.Clocks.Board = "zcu111"
	}
	if c.Clocks.LMKConfig == "" {
		c.Clocks.LMKConfig = "LMK04208_12M8_3072M_122M88_REVA"
	}
	if len(c.Clocks.LMXMHz) == 0 {
		c.Clocks.LMXMHz = []float64{245.76, 245.76, 245.76}
	}
	defaultPLL(&c.ADCPLL, rfdc.PLLConfig{Source: rfdc.InternalPLL, RefClkMHz: 245.76, SampleMHz: 3194.88})
	defaultPLL(&c.DACPLL, rfdc.PLLConfig{Source: rfdc.InternalPLL, RefClkMHz: 245.76, SampleMHz: 6389.76})

	d := &cfg.Data
	if d.Source == "" {
		d.Source = "device"
	}
	if d.Device == "" {
		d.Device = DefaultDataDevice
	}
	if d.ChunkSize == 0 {
		d.ChunkSize = DefaultChunkSize
	}

	if cfg.Monitor.Addr == "" {
		cfg.Monitor.Addr = DefaultMonitorAddr
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
}

// defaultPLL fills a block with no frequencies. A block that only names the
// internal PLL keeps that source; Validate rejects a half-set pair.
func defaultPLL(pll *rfdc.PLLConfig, def rfdc.PLLConfig) {
	if pll.RefClkMHz != 0 || pll.SampleMHz != 0 {
		return
	}
	pll.RefClkMHz = def.RefClkMHz
	pll.SampleMHz = def.SampleMHz
	if pll.Source == rfdc.ExternalClock {
		pll.Source = def.Source
	}
}

// Simulate switches every hardware-facing component to its simulated form.
func Simulate(cfg *Config, variantCode uint32) {
	cfg.Provision.Skip = true
	cfg.Converter.Driver = "sim"
	cfg.Data.Source = "sim"
	cfg.Probe.Variant = &variantCode
}
