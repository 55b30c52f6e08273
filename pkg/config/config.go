package config

import (
	"fmt"
	"os"
	"time"

	"github.com/rftool/pkg/rfdc"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Probe     ProbeConfig     `yaml:"probe"`
	Provision ProvisionConfig `yaml:"provision"`
	Converter ConverterConfig `yaml:"converter"`
	Data      DataConfig      `yaml:"data"`
	Monitor   MonitorConfig   `yaml:"monitor"`
	Log       LogConfig       `yaml:"log"`
}

// ---- SESSIONS ----

type ServerConfig struct {
	CommandAddr    string `yaml:"command_addr"`
	DataAddr       string `yaml:"data_addr"`
	PollIntervalMs int    `yaml:"poll_interval_ms"`
	JoinTimeoutMs  int    `yaml:"join_timeout_ms"`
	LineBuffer     int    `yaml:"line_buffer"` // command/response capacity, bytes
}

func (s ServerConfig) PollInterval() time.Duration {
	return time.Duration(s.PollIntervalMs) * time.Millisecond
}

func (s ServerConfig) JoinTimeout() time.Duration {
	return time.Duration(s.JoinTimeoutMs) * time.Millisecond
}

// ---- DESIGN TYPE REGISTER ----

type ProbeConfig struct {
	MemDevice string `yaml:"mem_device"`
	Register  uint64 `yaml:"register"`
	MapSize   int    `yaml:"map_size"`
	// Variant, when set, skips the register read (simulation only).
	Variant *uint32 `yaml:"variant_code"`
}

// ---- FABRIC PROVISIONING ----

type ProvisionConfig struct {
	Skip      bool   `yaml:"skip"`
	Bitstream string `yaml:"bitstream"`
	Overlay   string `yaml:"overlay"`
	Tool      string `yaml:"tool"`
	SettleMs  int    `yaml:"settle_ms"`
}

// ---- CONVERTER ----

type ConverterConfig struct {
	Driver   string           `yaml:"driver"` // sim or xrfdc
	DeviceID uint16           `yaml:"device_id"`
	Clocks   rfdc.ClockConfig `yaml:"clocks"`
	ADCPLL   rfdc.PLLConfig   `yaml:"adc_pll"`
	DACPLL   rfdc.PLLConfig   `yaml:"dac_pll"`
}

// ---- DATA PATH ----

type DataConfig struct {
	Source    string `yaml:"source"` // sim or device
	Device    string `yaml:"device"`
	ChunkSize int    `yaml:"chunk_size"`
	RecordDir string `yaml:"record_dir"` // empty disables recording
}

// ---- MONITOR ----

type MonitorConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads a YAML configuration file. Missing keys keep their zero value
// until Normalize fills them in.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return &cfg, nil
}
