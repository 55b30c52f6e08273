package config

import (
	"fmt"
	"net"
	"strings"

	"github.com/rftool/pkg/rfdc"
)

// Validate checks configuration correctness.
// Unset fields are accepted; Normalize fills them later.
// It MUST NOT mutate configuration.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config: nil configuration")
	}

	// ------------------------------------------------------------
	// LISTENERS
	// ------------------------------------------------------------

	s := cfg.Server
	for _, a := range []struct{ name, addr string }{
		{"server.command_addr", s.CommandAddr},
		{"server.data_addr", s.DataAddr},
		{"monitor.addr", cfg.Monitor.Addr},
	} {
		if a.addr == "" {
			continue
		}
		if _, _, err := net.SplitHostPort(a.addr); err != nil {
			return fmt.Errorf("%s: invalid address %q: %w", a.name, a.addr, err)
		}
	}
	if s.CommandAddr != "" && s.CommandAddr == s.DataAddr {
		return fmt.Errorf("server: command and data listeners share address %q", s.CommandAddr)
	}
	if s.PollIntervalMs < 0 || s.JoinTimeoutMs < 0 {
		return fmt.Errorf("server: poll_interval_ms and join_timeout_ms must be >= 0")
	}
	if s.LineBuffer < 0 || (s.LineBuffer > 0 && s.LineBuffer < 16) {
		return fmt.Errorf("server: line_buffer %d too small (min 16)", s.LineBuffer)
	}

	// ------------------------------------------------------------
	// PROBE WINDOW
	// ------------------------------------------------------------

	p := cfg.Probe
	if p.MapSize < 0 || (p.MapSize > 0 && p.MapSize&(p.MapSize-1) != 0) {
		return fmt.Errorf("probe: map_size %d must be a power of two", p.MapSize)
	}
	if p.Register%4 != 0 {
		return fmt.Errorf("probe: register 0x%x is not word aligned", p.Register)
	}
	if p.Variant != nil && *p.Variant > 3 {
		return fmt.Errorf("probe: variant_code %d is not a 2-bit code", *p.Variant)
	}

	// ------------------------------------------------------------
	// CONVERTER
	// ------------------------------------------------------------

	c := cfg.Converter
	switch strings.ToLower(c.Driver) {
	case "", "sim", "xrfdc":
	default:
		return fmt.Errorf("converter: unknown driver %q", c.Driver)
	}
	for name, pll := range map[string]rfdc.PLLConfig{
		"adc_pll": c.ADCPLL,
		"dac_pll": c.DACPLL,
	} {
		if pll.Source != rfdc.ExternalClock && pll.Source != rfdc.InternalPLL {
			return fmt.Errorf("converter.%s: unknown clock source %d", name, pll.Source)
		}
		ref, rate := pll.RefClkMHz, pll.SampleMHz
		if ref < 0 || rate < 0 {
			return fmt.Errorf("converter.%s: negative frequency", name)
		}
		if (ref == 0) != (rate == 0) {
			return fmt.Errorf("converter.%s: ref_clk_mhz and sample_mhz must be set together", name)
		}
		if ref > 0 && rate < ref {
			return fmt.Errorf("converter.%s: sample rate %.2f below reference %.2f", name, rate, ref)
		}
	}

	// ------------------------------------------------------------
	// DATA PATH
	// ------------------------------------------------------------

	d := cfg.Data
	switch strings.ToLower(d.Source) {
	case "", "sim", "device":
	default:
		return fmt.Errorf("data: unknown source %q", d.Source)
	}
	if d.ChunkSize < 0 || d.ChunkSize%32 != 0 {
		return fmt.Errorf("data: chunk_size %d must be a non-negative multiple of 32", d.ChunkSize)
	}

	return nil
}
