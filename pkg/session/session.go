// Package session serves one command and data connection pair at a time.
//
// Each cycle accepts the data connection, then the command connection, starts
// a worker that streams samples on the data connection, and runs the command
// loop in the calling goroutine until the peer disconnects. The connections
// are then closed, the worker is joined, and the manager listens again.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rftool/pkg/command"
	"github.com/rftool/pkg/dma"
	"github.com/rftool/pkg/metrics"
	"github.com/rftool/pkg/tiles"
	"github.com/rs/zerolog"
)

// Config holds listener and timing settings.
type Config struct {
	CommandAddr  string
	DataAddr     string
	PollInterval time.Duration
	JoinTimeout  time.Duration
	LineBuffer   int
	ChunkSize    int
	RecordDir    string // empty disables recording

	// Recorded alongside captures.
	Variant tiles.Variant
	Plan    tiles.Plan
}

// OpenFunc returns a fresh sample source for one session.
type OpenFunc func() (dma.Source, error)

// Session is one accepted connection pair.
type Session struct {
	ID    string
	cmd   net.Conn
	data  net.Conn
	alive atomic.Bool
	stop  chan struct{} // closed at teardown
	done  chan struct{} // closed when the worker has exited
}

type Manager struct {
	cfg  Config
	disp command.Dispatcher
	open OpenFunc
	log  zerolog.Logger
	m    *metrics.Metrics
	obs  Observer

	listenOnce sync.Once
	listenErr  error
	dataLn     net.Listener
	cmdLn      net.Listener

	mu      sync.Mutex
	state   State
	current string
	cycles  int

	resp []byte

	// lastWorker is the previous session's done channel. A new worker
	// does not open its source until that worker has exited.
	lastWorker chan struct{}
}

func New(cfg Config, disp command.Dispatcher, open OpenFunc, log zerolog.Logger, m *metrics.Metrics) *Manager {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 50 * time.Millisecond
	}
	if cfg.JoinTimeout <= 0 {
		cfg.JoinTimeout = 2 * time.Second
	}
	if cfg.LineBuffer <= 0 {
		cfg.LineBuffer = 2048
	}
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = 64 * 1024
	}
	if m == nil {
		m = metrics.Discard()
	}
	return &Manager{
		cfg:  cfg,
		disp: disp,
		open: open,
		log:  log,
		m:    m,
		resp: make([]byte, 0, cfg.LineBuffer),
	}
}

// SetObserver registers o for state transitions. Call before Run.
func (m *Manager) SetObserver(o Observer) { m.obs = o }

// Listen binds both listeners. Run calls it if needed.
func (m *Manager) Listen() error {
	m.listenOnce.Do(func() {
		dl, err := net.Listen("tcp", m.cfg.DataAddr)
		if err != nil {
			m.listenErr = fmt.Errorf("session: data listener: %w", err)
			return
		}
		cl, err := net.Listen("tcp", m.cfg.CommandAddr)
		if err != nil {
			dl.Close()
			m.listenErr = fmt.Errorf("session: command listener: %w", err)
			return
		}
		m.dataLn, m.cmdLn = dl, cl
	})
	return m.listenErr
}

// DataAddr returns the bound data address, or nil before a successful Listen.
func (m *Manager) DataAddr() net.Addr {
	if m.dataLn == nil {
		return nil
	}
	return m.dataLn.Addr()
}

// CommandAddr returns the bound command address, or nil before a successful Listen.
func (m *Manager) CommandAddr() net.Addr {
	if m.cmdLn == nil {
		return nil
	}
	return m.cmdLn.Addr()
}

// Status returns the current state snapshot.
func (m *Manager) Status() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Snapshot{State: m.state, Session: m.current, Cycles: m.cycles}
}

// Run serves sessions until ctx is cancelled. It returns nil on cancellation
// and an error only if the listeners fail.
func (m *Manager) Run(ctx context.Context) error {
	if err := m.Listen(); err != nil {
		return err
	}

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
		case <-stop:
		}
		m.dataLn.Close()
		m.cmdLn.Close()
	}()

	m.log.Info().
		Str("data_addr", m.dataLn.Addr().String()).
		Str("command_addr", m.cmdLn.Addr().String()).
		Msg("session manager listening")

	for {
		if ctx.Err() != nil {
			return nil
		}
		m.transition("", Listening, "")

		data, err := m.accept(ctx, m.dataLn)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("session: accept data: %w", err)
		}
		m.transition("", DataAccepted, data.RemoteAddr().String())

		cmd, err := m.accept(ctx, m.cmdLn)
		if err != nil {
			data.Close()
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("session: accept command: %w", err)
		}

		m.serve(ctx, data, cmd)
	}
}

// accept retries transient failures; a closed listener ends it.
func (m *Manager) accept(ctx context.Context, ln net.Listener) (net.Conn, error) {
	var delay time.Duration
	for {
		conn, err := ln.Accept()
		if err == nil {
			return conn, nil
		}
		if errors.Is(err, net.ErrClosed) || ctx.Err() != nil {
			return nil, err
		}
		if delay == 0 {
			delay = 5 * time.Millisecond
		} else {
			delay *= 2
		}
		if delay > time.Second {
			delay = time.Second
		}
		m.log.Warn().Err(err).Dur("retry_in", delay).Msg("accept failed")
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

func (m *Manager) serve(ctx context.Context, data, cmd net.Conn) {
	s := &Session{
		ID:   uuid.NewString(),
		cmd:  cmd,
		data: data,
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
	log := m.log.With().Str("session", s.ID).Logger()

	m.resp = m.resp[:0]
	m.transition(s.ID, CommandAccepted, cmd.RemoteAddr().String())

	s.alive.Store(true)
	prev := m.lastWorker
	m.lastWorker = s.done
	go m.stream(s, prev, log)
	m.m.Sessions.Inc()
	m.transition(s.ID, Active, "")
	log.Info().Str("command_peer", cmd.RemoteAddr().String()).Str("data_peer", data.RemoteAddr().String()).Msg("session active")

	reason := m.commandLoop(ctx, s, log)
	m.teardown(s, reason, log)
}

func (m *Manager) commandLoop(ctx context.Context, s *Session, log zerolog.Logger) string {
	p := newPoller(s.cmd, m.cfg.PollInterval, m.cfg.LineBuffer)
	for {
		select {
		case <-ctx.Done():
			return "shutdown"
		case <-s.done:
			return "data worker exited"
		default:
		}

		line, tooLong, err := p.poll()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return "command peer closed"
			}
			return "command read: " + err.Error()
		}

		var status command.Status
		var resp []byte
		switch {
		case tooLong:
			status = command.ErrTooLong
		case len(line) == 0:
			continue
		default:
			status, resp = m.disp.Dispatch(line)
		}
		m.m.Commands.WithLabelValues(status.String()).Inc()

		m.resp = m.resp[:0]
		if status == command.OK {
			m.resp = append(m.resp, resp...)
		} else {
			log.Debug().Str("status", status.String()).Bytes("detail", resp).Msg("command failed")
			m.resp = append(m.resp, command.RenderError(status, resp)...)
		}
		m.resp = append(m.resp, '\n')

		if _, err := s.cmd.Write(m.resp); err != nil {
			return "command write: " + err.Error()
		}
		if status == command.OK && command.IsDisconnect(resp) {
			return "disconnect"
		}
	}
}

func (m *Manager) teardown(s *Session, reason string, log zerolog.Logger) {
	s.alive.Store(false)
	close(s.stop)
	m.transition(s.ID, Closing, reason)

	s.cmd.Close()
	s.data.Close()

	select {
	case <-s.done:
	case <-time.After(m.cfg.JoinTimeout):
		m.m.WorkerJoinTimeouts.Inc()
		log.Warn().Dur("timeout", m.cfg.JoinTimeout).Msg("data worker did not stop in time")
	}

	m.mu.Lock()
	m.cycles++
	m.mu.Unlock()
	log.Info().Str("reason", reason).Msg("session closed")
}

func (m *Manager) transition(id string, st State, detail string) {
	m.mu.Lock()
	m.state = st
	m.current = id
	m.mu.Unlock()

	for _, s := range states {
		v := 0.0
		if s == st {
			v = 1
		}
		m.m.SessionState.WithLabelValues(s.String()).Set(v)
	}
	m.log.Debug().Str("session", id).Str("state", st.String()).Str("detail", detail).Msg("session state")

	if m.obs != nil {
		m.obs.Publish(Event{Session: id, State: st, Time: time.Now(), Detail: detail})
	}
}
