package monitor

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rftool/pkg/session"
	"github.com/rftool/pkg/tiles"
	"github.com/rs/zerolog"
)

// Status is the /api/status document.
type Status struct {
	Variant string           `json:"variant"`
	Plan    tiles.Plan       `json:"plan"`
	Session session.Snapshot `json:"session"`
	Clients int              `json:"monitor_clients"`
}

// StatusFunc reports the session manager's current snapshot.
type StatusFunc func() session.Snapshot

type Server struct {
	hub     *Hub
	variant tiles.Variant
	plan    tiles.Plan
	status  StatusFunc
	log     zerolog.Logger
	http    *http.Server

	upgrader websocket.Upgrader
}

func NewServer(addr string, hub *Hub, gatherer prometheus.Gatherer, variant tiles.Variant, plan tiles.Plan, status StatusFunc, log zerolog.Logger) *Server {
	s := &Server{
		hub:     hub,
		variant: variant,
		plan:    plan,
		status:  status,
		log:     log,
		upgrader: websocket.Upgrader{
			CheckOrigin:     func(r *http.Request) bool { return true },
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
		},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWS)
	mux.HandleFunc("/api/status", s.handleStatus)
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	s.http = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Handler exposes the routes, for tests.
func (s *Server) Handler() http.Handler { return s.http.Handler }

// Serve accepts on ln until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	errc := make(chan error, 1)
	go func() { errc <- s.http.Serve(ln) }()
	s.log.Info().Str("addr", ln.Addr().String()).Msg("monitor listening")

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	s.hub.Close()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.http.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Run listens on the configured address and serves until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.http.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	st := Status{
		Variant: s.variant.String(),
		Plan:    s.plan,
		Clients: s.hub.Clients(),
	}
	if s.status != nil {
		st.Session = s.status()
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(st)
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Debug().Err(err).Msg("websocket upgrade")
		return
	}
	c := s.hub.register(conn)
	defer s.hub.unregister(c)

	// Greet with the current snapshot so late joiners see where the cycle is.
	if s.status != nil {
		snap := s.status()
		s.hub.sendTo(c, eventMessage{Type: "session", Event: session.Event{Session: snap.Session, State: snap.State, Time: time.Now()}})
	}

	// Inbound messages are ignored; reading detects the close.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
