// Package simulation animates packets between the two designated clients.
//
// The scheduler has two ticks. A generation tick finds a route from client A
// to client B and launches a packet along it; an animation tick moves every
// in-flight packet one step and retires those that arrive. Ticks are plain
// method calls: callers drive them from real tickers (service.Session) or
// through Advance, which replays both ticks on a virtual clock.
package simulation

import (
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/iti/rngstream"

	"topolab/internal/domain"
	"topolab/internal/metrics"
	"topolab/internal/pathfind"
)

// State is the scheduler lifecycle state
type State int

const (
	Stopped State = iota
	Running
)

func (s State) String() string {
	if s == Running {
		return "running"
	}
	return "stopped"
}

// Topology is what the scheduler reads from the graph
type Topology interface {
	pathfind.Adjacency
	ClientA() (string, bool)
	ClientB() (string, bool)
	Component(id string) (domain.Component, bool)
}

// Forwarder reports whether a component can pass traffic
type Forwarder interface {
	Forwarding(id string) bool
}

// Stats are the counters reset by Start
type Stats struct {
	PacketCount int `json:"packet_count"`
	ByteCount   int `json:"byte_count"`
	Delivered   int `json:"delivered"`
	Skipped     int `json:"skipped"`
}

// Scheduler generates and animates packets
type Scheduler struct {
	topo    Topology
	cfg     Config
	faults  Forwarder
	metrics *metrics.Registry
	logger  *slog.Logger
	rng     *rngstream.RngStream

	state    State
	inFlight []*packet
	stats    Stats

	// virtual clock used by Advance
	clock    time.Duration
	nextGen  time.Duration
	nextStep time.Duration
}

// Option configures a Scheduler
type Option func(*Scheduler)

// WithFaults supplies component health for fault-aware routing
func WithFaults(f Forwarder) Option {
	return func(s *Scheduler) {
		s.faults = f
	}
}

// WithMetrics records scheduler activity in r
func WithMetrics(r *metrics.Registry) Option {
	return func(s *Scheduler) {
		s.metrics = r
	}
}

// WithLogger sets the logger
func WithLogger(l *slog.Logger) Option {
	return func(s *Scheduler) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithStream overrides the random stream used for payloads and protocols
func WithStream(rng *rngstream.RngStream) Option {
	return func(s *Scheduler) {
		if rng != nil {
			s.rng = rng
		}
	}
}

// New creates a stopped scheduler over topo. The config is used as given;
// call Config.Validate first when it comes from user input.
func New(topo Topology, cfg Config, opts ...Option) *Scheduler {
	s := &Scheduler{
		topo:   topo,
		cfg:    cfg,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.rng == nil {
		s.rng = rngstream.New(cfg.StreamName)
	}
	return s
}

// Config returns the scheduler configuration
func (s *Scheduler) Config() Config {
	return s.cfg
}

// State returns the current lifecycle state
func (s *Scheduler) State() State {
	return s.state
}

// Running reports whether the scheduler is generating packets
func (s *Scheduler) Running() bool {
	return s.state == Running
}

// Stats returns the counters since the last Start
func (s *Scheduler) Stats() Stats {
	return s.stats
}

// Start begins generating packets. Both clients must be assigned. Counters
// reset on every transition from Stopped; starting a running scheduler is a
// no-op.
func (s *Scheduler) Start() error {
	if s.state == Running {
		return nil
	}
	_, okA := s.topo.ClientA()
	_, okB := s.topo.ClientB()
	if !okA || !okB {
		return domain.ErrClientsUnassigned
	}

	s.stats = Stats{}
	s.inFlight = nil
	s.clock = 0
	s.nextGen = s.cfg.GenerationInterval
	s.nextStep = s.cfg.StepInterval()
	s.state = Running
	s.metrics.SetInFlight(0)
	s.logger.Info("Simulation started",
		"generation_interval", s.cfg.GenerationInterval,
		"animation_duration", s.cfg.AnimationDuration,
		"respect_faults", s.cfg.RespectFaults)
	return nil
}

// Stop halts generation and discards every in-flight packet. It is safe to
// call at any time.
func (s *Scheduler) Stop() {
	if s.state == Stopped && len(s.inFlight) == 0 {
		return
	}
	dropped := len(s.inFlight)
	s.state = Stopped
	s.inFlight = nil
	s.metrics.SetInFlight(0)
	s.logger.Info("Simulation stopped", "dropped", dropped, "delivered", s.stats.Delivered)
}

func (s *Scheduler) adjacency() pathfind.Adjacency {
	if !s.cfg.RespectFaults || s.faults == nil {
		return s.topo
	}
	return pathfind.Exclude(s.topo, func(id string) bool {
		return !s.faults.Forwarding(id)
	})
}

// GenerateTick launches one packet from client A to client B. It reports
// false when stopped or when no route exists, in which case the tick is
// counted as skipped.
func (s *Scheduler) GenerateTick() (Packet, bool) {
	if s.state != Running {
		return Packet{}, false
	}
	a, _ := s.topo.ClientA()
	b, _ := s.topo.ClientB()

	path := pathfind.FindPath(s.adjacency(), a, b)
	if len(path) == 0 {
		s.stats.Skipped++
		s.metrics.RecordSkipped()
		s.logger.Debug("No route between clients, skipping packet", "client_a", a, "client_b", b)
		return Packet{}, false
	}

	p := &packet{
		id:       uuid.NewString(),
		path:     path,
		anchors:  make([]domain.Point, len(path)),
		protocol: s.cfg.Protocols[s.rng.RandInt(0, len(s.cfg.Protocols)-1)],
		bytes:    s.rng.RandInt(s.cfg.MinPayload, s.cfg.MaxPayload),
	}
	for i, id := range path {
		if c, ok := s.topo.Component(id); ok {
			p.anchors[i] = c.Position
		}
	}

	s.inFlight = append(s.inFlight, p)
	s.stats.PacketCount++
	s.stats.ByteCount += p.bytes
	s.metrics.RecordPacket(p.protocol, p.bytes)
	s.metrics.SetInFlight(len(s.inFlight))
	return s.view(p), true
}

// AnimateTick advances every in-flight packet by one step and returns the
// packets that arrived.
func (s *Scheduler) AnimateTick() []Packet {
	if len(s.inFlight) == 0 {
		return nil
	}
	var delivered []Packet
	remaining := s.inFlight[:0]
	for _, p := range s.inFlight {
		p.step++
		if p.step >= s.cfg.AnimationSteps {
			delivered = append(delivered, s.view(p))
			continue
		}
		remaining = append(remaining, p)
	}
	for i := len(remaining); i < len(s.inFlight); i++ {
		s.inFlight[i] = nil
	}
	s.inFlight = remaining

	if len(delivered) > 0 {
		s.stats.Delivered += len(delivered)
		s.metrics.RecordDelivered(len(delivered))
		s.metrics.SetInFlight(len(s.inFlight))
	}
	return delivered
}

// Advance moves the virtual clock forward by d, firing every animation and
// generation tick that falls due in order. When both are due at the same
// instant the animation tick runs first. It returns the packets delivered.
func (s *Scheduler) Advance(d time.Duration) []Packet {
	if s.state != Running || d <= 0 {
		return nil
	}
	target := s.clock + d
	step := s.cfg.StepInterval()

	var delivered []Packet
	for s.state == Running {
		next := s.nextStep
		if s.nextGen < next {
			next = s.nextGen
		}
		if next > target {
			break
		}
		s.clock = next
		if s.nextStep == next {
			delivered = append(delivered, s.AnimateTick()...)
			s.nextStep += step
		}
		if s.nextGen == next {
			s.GenerateTick()
			s.nextGen += s.cfg.GenerationInterval
		}
	}
	s.clock = target
	return delivered
}

// Elapsed returns the virtual time since Start
func (s *Scheduler) Elapsed() time.Duration {
	return s.clock
}

// InFlight returns views of the packets currently moving, oldest first
func (s *Scheduler) InFlight() []Packet {
	out := make([]Packet, 0, len(s.inFlight))
	for _, p := range s.inFlight {
		out = append(out, s.view(p))
	}
	return out
}

func (s *Scheduler) view(p *packet) Packet {
	progress := float64(p.step) / float64(s.cfg.AnimationSteps)
	if progress > 1 {
		progress = 1
	}

	points := make([]domain.Point, len(p.path))
	for i, id := range p.path {
		points[i] = p.anchors[i]
		if c, ok := s.topo.Component(id); ok {
			points[i] = c.Position
		}
	}
	seg, _ := segmentAt(progress, len(p.path)-1)

	return Packet{
		ID:       p.id,
		Path:     append([]string(nil), p.path...),
		Protocol: p.protocol,
		Bytes:    p.bytes,
		Progress: progress,
		Segment:  seg,
		Position: Interpolate(points, progress),
	}
}
