package main

import (
	"fmt"
	"os"
	"time"

	"github.com/rftool/pkg/config"
	"github.com/rftool/pkg/dma"
	"github.com/rftool/pkg/probe"
	"github.com/rftool/pkg/tiles"
	"github.com/rs/zerolog"
)

// detect reads the design type, or takes it from configuration in simulation.
func detect(cfg *config.Config) (tiles.Variant, uint32, error) {
	if v := cfg.Probe.Variant; v != nil {
		return tiles.VariantFromCode(*v), *v << 16, nil
	}
	return probe.Detect(probe.Config{
		MemDevice: cfg.Probe.MemDevice,
		Register:  cfg.Probe.Register,
		MapSize:   cfg.Probe.MapSize,
	})
}

// runProbe prints the detected design type and tile plan.
func runProbe(cfg *config.Config, log zerolog.Logger) int {
	fmt.Println("--- Design Type Probe ---")

	variant, word, err := detect(cfg)
	if err != nil {
		log.Error().Err(err).Msg("probe failed")
		return exitBringup
	}
	fmt.Printf("Register:   0x%08x @ 0x%x\n", word, cfg.Probe.Register)
	fmt.Printf("Variant:    %s (code %d)\n", variant, int(variant))

	plan, err := tiles.PlanFor(variant)
	if err != nil {
		log.Error().Err(err).Uint32("register", word).Msg("planning failed")
		return exitBringup
	}
	fmt.Printf("ADC tiles:  %v\n", plan.ADCRange())
	fmt.Printf("DAC tiles:  %v\n", plan.DACRange())
	return exitOK
}

// runCapture executes a one-shot capture from the data source and saves it.
func runCapture(cfg *config.Config, size int, outputFilename string, log zerolog.Logger) int {
	fmt.Println("--- DMA Capture Session Start ---")
	fmt.Printf("Source: %s (%s) | Target: %d bytes\n", cfg.Data.Source, cfg.Data.Device, size)

	src, err := dma.Open(dma.Config{Source: cfg.Data.Source, Device: cfg.Data.Device})
	if err != nil {
		log.Error().Err(err).Msg("open data source")
		return exitBringup
	}
	defer src.Close()

	fmt.Println(">>> CAPTURING...")
	result, err := dma.Capture(src, size)
	if err != nil {
		log.Error().Err(err).Msg("capture failed")
		return exitBringup
	}
	if rem := result.BytesRead % dma.FrameSize; rem != 0 {
		log.Warn().Int("trailing_bytes", rem).Msg("capture ends mid-frame")
	}

	fmt.Println("--- Results ---")
	fmt.Printf("Total Read:     %d bytes\n", result.BytesRead)
	fmt.Printf("Throughput:     %.2f MB/s\n", result.Throughput)
	fmt.Printf("Duration:       %v\n", result.Duration)

	fmt.Printf(">>> SAVING TO FILE: %s ... ", outputFilename)
	saveStart := time.Now()
	if err := os.WriteFile(outputFilename, result.Data, 0o644); err != nil {
		fmt.Println()
		log.Error().Err(err).Str("file", outputFilename).Msg("save capture")
		return exitBringup
	}
	elapsed := time.Since(saveStart)
	fmt.Printf("DONE\n")
	fmt.Printf("Save Duration:   %v\n", elapsed)
	if elapsed > 0 {
		fmt.Printf("Save Throughput: %.2f MB/s\n", float64(result.BytesRead)/(1024*1024)/elapsed.Seconds())
	}
	return exitOK
}
