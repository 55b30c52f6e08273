// Package provision loads the fabric image and device-tree overlay before the
// converter is touched.
package provision

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Config is the provisioning precondition.
type Config struct {
	Bitstream string
	Overlay   string
	Tool      string
	Settle    time.Duration
}

// Error reports a failed provisioning stage. Stage is one of "bitstream",
// "overlay", "tool" or "load".
type Error struct {
	Stage  string
	Path   string
	Output string
	Err    error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("provision: %s %s: %v", e.Stage, e.Path, e.Err)
	if e.Output != "" {
		msg += ": " + e.Output
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Run checks that both images exist, loads them with the fabric manager tool
// and waits for the fabric to settle.
func Run(ctx context.Context, cfg Config, log zerolog.Logger) error {
	for _, f := range []struct{ stage, path string }{
		{"bitstream", cfg.Bitstream},
		{"overlay", cfg.Overlay},
	} {
		fi, err := os.Stat(f.path)
		if err != nil {
			return &Error{Stage: f.stage, Path: f.path, Err: err}
		}
		if fi.IsDir() {
			return &Error{Stage: f.stage, Path: f.path, Err: errors.New("is a directory")}
		}
	}

	tool, err := exec.LookPath(cfg.Tool)
	if err != nil {
		return &Error{Stage: "tool", Path: cfg.Tool, Err: err}
	}

	log.Info().Str("bitstream", cfg.Bitstream).Str("overlay", cfg.Overlay).Msg("loading fabric image")

	var out bytes.Buffer
	cmd := exec.CommandContext(ctx, tool, "-b", cfg.Bitstream, "-o", cfg.Overlay)
	cmd.Stdout = &out
	cmd.Stderr = &out
	start := time.Now()
	if err := cmd.Run(); err != nil {
		return &Error{Stage: "load", Path: tool, Output: strings.TrimSpace(out.String()), Err: err}
	}
	log.Debug().Dur("took", time.Since(start)).Str("output", strings.TrimSpace(out.String())).Msg("fabric image loaded")

	if cfg.Settle <= 0 {
		return nil
	}
	select {
	case <-time.After(cfg.Settle):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
