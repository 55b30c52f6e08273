package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/rftool/pkg/config"
	"github.com/rftool/pkg/logging"
)

var version = "dev"

// Process exit codes.
const (
	exitOK        = 0
	exitBringup   = 1
	exitProvision = 2
	exitConfig    = 3
)

// sizeFlag custom type to handle units like KB, MB, GB
type sizeFlag int

func (s *sizeFlag) String() string {
	return fmt.Sprintf("%d", *s)
}

func (s *sizeFlag) Set(value string) error {
	value = strings.TrimSpace(strings.ToUpper(value))
	multiplier := 1

	if strings.HasSuffix(value, "GB") {
		multiplier = 1024 * 1024 * 1024
		value = strings.TrimSuffix(value, "GB")
	} else if strings.HasSuffix(value, "MB") {
		multiplier = 1024 * 1024
		value = strings.TrimSuffix(value, "MB")
	} else if strings.HasSuffix(value, "KB") {
		multiplier = 1024
		value = strings.TrimSuffix(value, "KB")
	} else if strings.HasSuffix(value, "B") {
		value = strings.TrimSuffix(value, "B")
	}

	val, err := strconv.Atoi(value)
	if err != nil || val < 0 {
		return fmt.Errorf("invalid size format: %s", value)
	}

	*s = sizeFlag(val * multiplier)
	return nil
}

func main() {
	configFile := flag.String("c", "", "YAML configuration file")

	isSim := flag.Bool("sim", false, "Simulate converter and data path; skips fabric provisioning")
	simVariant := flag.Uint("variant", 0, "Design type code reported in simulation (0 non-MTS, 1 DAC1/ADC1, 2 MTS)")

	isProbe := flag.Bool("probe", false, "Detect the design type, print the tile plan and exit")

	captureFile := flag.String("capture", "", "Capture from the data source to this file and exit")
	var captureSize sizeFlag = 100 * 1024 * 1024 // Default 100MB
	flag.Var(&captureSize, "s", "Capture size (e.g., 100MB, 1GB, 4096B)")

	var chunk sizeFlag
	flag.Var(&chunk, "chunk", "Data path read size per write (e.g., 64KB)")
	recordDir := flag.String("record", "", "Record every session's samples as Parquet under this directory")
	monitorAddr := flag.String("monitor", "", "Serve the HTTP monitor on this address")
	logLevel := flag.String("log-level", "", "Log level (debug, info, warn, error)")
	showVersion := flag.Bool("version", false, "Print version and exit")

	// Custom usage message
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage of %s:\n", os.Args[0])
		fmt.Fprintln(os.Stderr, "  Server Mode:  rftool [-c config.yaml] [options]")
		fmt.Fprintln(os.Stderr, "  Probe Mode:   rftool -probe [options]")
		fmt.Fprintln(os.Stderr, "  Capture Mode: rftool -capture out.bin -s 16MB [options]")
		fmt.Fprintln(os.Stderr, "  Sim Mode:     rftool -sim [-variant 1] [options]")
		fmt.Fprintln(os.Stderr, "\nOptions:")
		flag.PrintDefaults()
	}

	flag.Parse()

	if *showVersion {
		fmt.Println(version)
		return
	}

	cfg := &config.Config{}
	if *configFile != "" {
		loaded, err := config.Load(*configFile)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(exitConfig)
		}
		cfg = loaded
	}

	if *isSim {
		config.Simulate(cfg, uint32(*simVariant))
	}
	if chunk > 0 {
		cfg.Data.ChunkSize = int(chunk)
	}
	if *recordDir != "" {
		cfg.Data.RecordDir = *recordDir
	}
	if *monitorAddr != "" {
		cfg.Monitor.Enabled = true
		cfg.Monitor.Addr = *monitorAddr
	}
	if *logLevel != "" {
		cfg.Log.Level = *logLevel
	}

	if err := config.Validate(cfg); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitConfig)
	}
	config.Normalize(cfg)

	log := logging.New(logging.Options{Level: cfg.Log.Level, Format: cfg.Log.Format})

	switch {
	case *isProbe:
		os.Exit(runProbe(cfg, log))
	case *captureFile != "":
		os.Exit(runCapture(cfg, int(captureSize), *captureFile, log))
	default:
		os.Exit(runServer(cfg, log))
	}
}
