package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rftool/pkg/bringup"
	"github.com/rftool/pkg/command"
	"github.com/rftool/pkg/config"
	"github.com/rftool/pkg/dma"
	"github.com/rftool/pkg/logging"
	"github.com/rftool/pkg/metrics"
	"github.com/rftool/pkg/monitor"
	"github.com/rftool/pkg/provision"
	"github.com/rftool/pkg/rfdc"
	"github.com/rftool/pkg/session"
	"github.com/rftool/pkg/tiles"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// runServer provisions the fabric, brings the converter up and serves
// sessions until SIGINT or SIGTERM.
func runServer(cfg *config.Config, log zerolog.Logger) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return serve(ctx, cfg, log)
}

// serve runs server mode until ctx is cancelled and returns the exit code.
func serve(ctx context.Context, cfg *config.Config, log zerolog.Logger) int {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	log.Info().Str("version", version).Msg("rftool starting")

	if cfg.Provision.Skip {
		log.Info().Msg("fabric provisioning skipped")
	} else {
		err := provision.Run(ctx, provision.Config{
			Bitstream: cfg.Provision.Bitstream,
			Overlay:   cfg.Provision.Overlay,
			Tool:      cfg.Provision.Tool,
			Settle:    time.Duration(cfg.Provision.SettleMs) * time.Millisecond,
		}, logging.Component(log, "provision"))
		if err != nil {
			log.Error().Err(err).Msg("fabric provisioning failed")
			return exitProvision
		}
	}

	variant, word, err := detect(cfg)
	if err != nil {
		log.Error().Err(err).Msg("design type probe failed")
		return exitBringup
	}
	plan, err := tiles.PlanFor(variant)
	if err != nil {
		log.Error().Err(err).Uint32("register", word).Msg("tile planning failed")
		return exitBringup
	}

	drv, err := rfdc.Open(cfg.Converter.Driver)
	if err != nil {
		log.Error().Err(err).Str("driver", cfg.Converter.Driver).Msg("converter driver unavailable")
		return exitBringup
	}

	conv, err := bringup.Run(ctx, drv, variant, plan, bringup.Settings{
		DeviceID: cfg.Converter.DeviceID,
		Clocks:   cfg.Converter.Clocks,
		ADCPLL:   cfg.Converter.ADCPLL,
		DACPLL:   cfg.Converter.DACPLL,
	}, logging.Component(log, "bringup"), m)
	if err != nil {
		ev := log.Error().Err(err)
		var se *bringup.StepError
		if errors.As(err, &se) {
			ev = ev.Str("step", se.Step.String())
			if se.Tile >= 0 || se.Step == bringup.StepFIFO {
				ev = ev.Str("kind", se.Kind.String())
			}
			if se.Tile >= 0 {
				ev = ev.Int("tile", se.Tile)
			}
		}
		ev.Msg("converter bring-up failed")
		drv.Close()
		return exitBringup
	}
	defer conv.Close()

	mgr := session.New(session.Config{
		CommandAddr:  cfg.Server.CommandAddr,
		DataAddr:     cfg.Server.DataAddr,
		PollInterval: cfg.Server.PollInterval(),
		JoinTimeout:  cfg.Server.JoinTimeout(),
		LineBuffer:   cfg.Server.LineBuffer,
		ChunkSize:    cfg.Data.ChunkSize,
		RecordDir:    cfg.Data.RecordDir,
		Variant:      variant,
		Plan:         plan,
	}, command.NewTable(conv, version), func() (dma.Source, error) {
		return dma.Open(dma.Config{Source: cfg.Data.Source, Device: cfg.Data.Device})
	}, logging.Component(log, "session"), m)

	// The monitor is auxiliary: its failure is logged and sessions keep
	// being served. Only the manager's error ends the process.
	var g errgroup.Group

	if cfg.Monitor.Enabled {
		mlog := logging.Component(log, "monitor")
		hub := monitor.NewHub(mlog)
		mgr.SetObserver(hub)
		srv := monitor.NewServer(cfg.Monitor.Addr, hub, reg, variant, plan, mgr.Status, mlog)
		g.Go(func() error {
			if err := srv.Run(ctx); err != nil {
				mlog.Error().Err(err).Str("addr", cfg.Monitor.Addr).Msg("monitor stopped")
			}
			return nil
		})
	}
	g.Go(func() error { return mgr.Run(ctx) })

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("server stopped")
		return exitBringup
	}
	log.Info().Msg("shutdown complete")
	return exitOK
}
