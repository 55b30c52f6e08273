package rfdc

import (
	"fmt"
	"sync"

	"github.com/rftool/pkg/tiles"
)

// Driver operation names recorded by Sim.
const (
	OpRegister   = "register"
	OpInitialize = "initialize"
	OpClocks     = "clocks"
	OpFIFO       = "fifo"
	OpPLL        = "pll"
	OpReset      = "reset"
	OpState      = "state"
	OpClose      = "close"
)

// Call is one recorded driver invocation.
type Call struct {
	Op   string
	Kind Kind
	Tile int // -1 when the operation is not tile scoped
}

func (c Call) String() string {
	if c.Tile < 0 {
		switch c.Op {
		case OpFIFO:
			return fmt.Sprintf("%s:%s", c.Op, c.Kind)
		default:
			return c.Op
		}
	}
	return fmt.Sprintf("%s:%s:%d", c.Op, c.Kind, c.Tile)
}

// Sim is an in-memory converter used in simulation mode and tests.
// Hook, when set, runs before every operation; a non-nil return fails it.
type Sim struct {
	mu         sync.Mutex
	Hook       func(Call) error
	calls      []Call
	registered bool
	ready      bool
	clocks     *ClockConfig
	state      [2][]TileState
}

func NewSim() *Sim {
	s := &Sim{}
	s.state[ADC] = make([]TileState, tiles.MaxADCTiles)
	s.state[DAC] = make([]TileState, tiles.MaxDACTiles)
	for k := range s.state {
		for i := range s.state[k] {
			s.state[k][i] = TileState{Kind: Kind(k), Tile: i, FIFOEnabled: true}
		}
	}
	return s
}

// Calls returns a copy of the recorded invocations.
func (s *Sim) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Call, len(s.calls))
	copy(out, s.calls)
	return out
}

func (s *Sim) record(c Call) error {
	s.calls = append(s.calls, c)
	if s.Hook != nil {
		return s.Hook(c)
	}
	return nil
}

func (s *Sim) Register(deviceID uint16) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.record(Call{Op: OpRegister, Tile: -1}); err != nil {
		return err
	}
	s.registered = true
	return nil
}

func (s *Sim) Initialize(deviceID uint16) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.record(Call{Op: OpInitialize, Tile: -1}); err != nil {
		return err
	}
	if !s.registered {
		return fmt.Errorf("rfdc sim: device %d not registered", deviceID)
	}
	s.ready = true
	return nil
}

func (s *Sim) ConfigureClocks(cfg ClockConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.record(Call{Op: OpClocks, Tile: -1}); err != nil {
		return err
	}
	if !s.ready {
		return fmt.Errorf("rfdc sim: controller not initialized")
	}
	s.clocks = &cfg
	return nil
}

func (s *Sim) SetFIFOs(kind Kind, enable bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.record(Call{Op: OpFIFO, Kind: kind, Tile: -1}); err != nil {
		return err
	}
	for i := range s.state[kind] {
		s.state[kind][i].FIFOEnabled = enable
	}
	return nil
}

func (s *Sim) ConfigurePLL(kind Kind, tile int, cfg PLLConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.record(Call{Op: OpPLL, Kind: kind, Tile: tile}); err != nil {
		return err
	}
	if s.clocks == nil {
		return fmt.Errorf("rfdc sim: %s tile %d: reference clocks not configured", kind, tile)
	}
	if cfg.RefClkMHz <= 0 || cfg.SampleMHz <= 0 {
		return fmt.Errorf("rfdc sim: %s tile %d: invalid PLL frequencies %.2f/%.2f", kind, tile, cfg.RefClkMHz, cfg.SampleMHz)
	}
	st := &s.state[kind][tile]
	st.PLL = cfg
	st.PLLLocked = cfg.Source == InternalPLL
	return nil
}

func (s *Sim) ResetTile(kind Kind, tile int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.record(Call{Op: OpReset, Kind: kind, Tile: tile}); err != nil {
		return err
	}
	s.state[kind][tile].Resets++
	return nil
}

func (s *Sim) TileState(kind Kind, tile int) (TileState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Hook != nil {
		if err := s.Hook(Call{Op: OpState, Kind: kind, Tile: tile}); err != nil {
			return TileState{}, err
		}
	}
	return s.state[kind][tile], nil
}

func (s *Sim) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ready = false
	s.registered = false
	return nil
}
