package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/iti/rngstream"

	"topolab/internal/domain"
	"topolab/internal/fault"
	"topolab/internal/metrics"
	"topolab/internal/pathfind"
	"topolab/internal/repository"
	"topolab/internal/simulation"
	"topolab/internal/spatial"
	"topolab/internal/topology"
)

var (
	// ErrSessionClosed is returned for commands sent after Run has exited
	ErrSessionClosed = errors.New("session closed")
	// ErrNoStore is returned by Save and Load when no store is configured
	ErrNoStore = errors.New("no topology store configured")
)

// Session owns a topology and everything that reads or mutates it
type Session struct {
	graph  *topology.Graph
	faults *fault.Model
	sched  *simulation.Scheduler
	layer  spatial.Layer
	simCfg simulation.Config
	rng    *rngstream.RngStream

	store   repository.Store
	bus     *EventBus
	metrics *metrics.Registry
	logger  *slog.Logger

	cmds    chan command
	stopped chan struct{}

	genTicker  *time.Ticker
	stepTicker *time.Ticker
}

type command struct {
	fn   func()
	done chan struct{}
}

// Option configures a Session
type Option func(*Session)

// WithStore enables Save, Load and List
func WithStore(store repository.Store) Option {
	return func(s *Session) {
		s.store = store
	}
}

// WithEventBus publishes session events on bus
func WithEventBus(bus *EventBus) Option {
	return func(s *Session) {
		s.bus = bus
	}
}

// WithMetrics records session activity in r
func WithMetrics(r *metrics.Registry) Option {
	return func(s *Session) {
		s.metrics = r
	}
}

// WithLogger sets the logger
func WithLogger(l *slog.Logger) Option {
	return func(s *Session) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithLayer sets the hit-testing geometry; its zones should match the graph's
func WithLayer(layer spatial.Layer) Option {
	return func(s *Session) {
		s.layer = layer
	}
}

// NewSession wraps g. The session does nothing until Run is called.
func NewSession(g *topology.Graph, simCfg simulation.Config, opts ...Option) *Session {
	s := &Session{
		simCfg:  simCfg,
		logger:  slog.Default(),
		cmds:    make(chan command),
		stopped: make(chan struct{}),
	}
	s.layer = spatial.DefaultLayer(0, 0)
	s.layer.Zones = g.Zones()
	for _, opt := range opts {
		opt(s)
	}
	s.rng = rngstream.New(simCfg.StreamName + "-faults")
	s.install(g)
	return s
}

// install makes g the session's graph with a fresh fault model and scheduler
func (s *Session) install(g *topology.Graph) {
	if s.sched != nil {
		s.sched.Stop()
	}
	s.stopTickers()
	s.graph = g
	s.faults = fault.NewModel(g)
	s.sched = simulation.New(g, s.simCfg,
		simulation.WithFaults(s.faults),
		simulation.WithMetrics(s.metrics),
		simulation.WithLogger(s.logger),
	)
	s.updateTopologyMetrics()
	s.updateProblemMetrics()
}

// Run processes commands and simulation ticks until ctx is cancelled
func (s *Session) Run(ctx context.Context) error {
	defer close(s.stopped)
	defer s.stopTickers()

	s.logger.Info("Session started", "components", s.graph.Len(), "connections", s.graph.ConnectionCount())

	for {
		select {
		case <-ctx.Done():
			s.sched.Stop()
			s.logger.Info("Session stopped")
			return ctx.Err()

		case c := <-s.cmds:
			c.fn()
			close(c.done)

		case <-tickerC(s.genTicker):
			if p, ok := s.sched.GenerateTick(); ok {
				s.publish(EventPacketLaunched, p)
			}

		case <-tickerC(s.stepTicker):
			if delivered := s.sched.AnimateTick(); len(delivered) > 0 {
				s.publish(EventPacketsDelivered, delivered)
			}
		}
	}
}

func tickerC(t *time.Ticker) <-chan time.Time {
	if t == nil {
		return nil
	}
	return t.C
}

func (s *Session) stopTickers() {
	if s.genTicker != nil {
		s.genTicker.Stop()
		s.genTicker = nil
	}
	if s.stepTicker != nil {
		s.stepTicker.Stop()
		s.stepTicker = nil
	}
}

// do runs fn inside the session loop and waits for it to finish
func (s *Session) do(ctx context.Context, fn func()) error {
	c := command{fn: fn, done: make(chan struct{})}
	select {
	case s.cmds <- c:
	case <-s.stopped:
		return ErrSessionClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-c.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// query runs fn inside the session loop and returns its result
func query[T any](ctx context.Context, s *Session, fn func() (T, error)) (T, error) {
	var (
		out T
		err error
	)
	if derr := s.do(ctx, func() { out, err = fn() }); derr != nil {
		var zero T
		return zero, derr
	}
	return out, err
}

func (s *Session) publish(t EventType, payload interface{}) {
	s.bus.Publish(Event{Type: t, Payload: payload})
}

func (s *Session) updateTopologyMetrics() {
	s.metrics.SetTopologySize(s.graph.Len(), s.graph.ConnectionCount())
}

func (s *Session) updateProblemMetrics() {
	counts := s.faults.CountBySeverity()
	bySeverity := make(map[string]int, len(counts))
	for severity, n := range counts {
		bySeverity[string(severity)] = n
	}
	s.metrics.SetActiveProblems(bySeverity)
}

// ============================================================================
// Queries
// ============================================================================

// SimulationState describes the scheduler
type SimulationState struct {
	State   string              `json:"state"`
	Stats   simulation.Stats    `json:"stats"`
	Packets []simulation.Packet `json:"packets"`
}

// Snapshot is a consistent read of the whole session
type Snapshot struct {
	Components  []domain.Component             `json:"components"`
	Connections []domain.Connection            `json:"connections"`
	ClientA     string                         `json:"client_a,omitempty"`
	ClientB     string                         `json:"client_b,omitempty"`
	Agents      map[string]domain.AgentType    `json:"agents"`
	Problems    map[string][]fault.ProblemKind `json:"problems"`
	Simulation  SimulationState                `json:"simulation"`
	Zones       spatial.ZoneLayout             `json:"zones"`
}

// ComponentStatus is a component's fault-visible state
type ComponentStatus struct {
	ID       string              `json:"id"`
	Status   domain.Status       `json:"status"`
	Problems []fault.ProblemKind `json:"problems"`
}

// Snapshot returns the current graph, faults and simulation state
func (s *Session) Snapshot(ctx context.Context) (Snapshot, error) {
	return query(ctx, s, func() (Snapshot, error) {
		snap := Snapshot{
			Components:  s.graph.Components(),
			Connections: s.graph.Connections(),
			Agents:      s.graph.Agents(),
			Problems:    make(map[string][]fault.ProblemKind),
			Simulation:  s.simulationState(),
			Zones:       s.graph.Zones(),
		}
		snap.ClientA, _ = s.graph.ClientA()
		snap.ClientB, _ = s.graph.ClientB()
		for _, id := range s.faults.Affected() {
			snap.Problems[id] = s.faults.Active(id)
		}
		return snap, nil
	})
}

func (s *Session) simulationState() SimulationState {
	return SimulationState{
		State:   s.sched.State().String(),
		Stats:   s.sched.Stats(),
		Packets: s.sched.InFlight(),
	}
}

// Component returns one component
func (s *Session) Component(ctx context.Context, id string) (domain.Component, error) {
	return query(ctx, s, func() (domain.Component, error) {
		c, ok := s.graph.Component(id)
		if !ok {
			return c, fmt.Errorf("%w: %s", domain.ErrComponentNotFound, id)
		}
		return c, nil
	})
}

// ConnectionsOf returns the connections touching a component
func (s *Session) ConnectionsOf(ctx context.Context, id string) ([]domain.Connection, error) {
	return query(ctx, s, func() ([]domain.Connection, error) {
		if !s.graph.HasComponent(id) {
			return nil, fmt.Errorf("%w: %s", domain.ErrComponentNotFound, id)
		}
		return s.graph.ConnectionsOf(id), nil
	})
}

// Document returns the persisted form of the current graph
func (s *Session) Document(ctx context.Context) (*domain.Document, error) {
	return query(ctx, s, func() (*domain.Document, error) {
		return s.graph.Document(), nil
	})
}

// FindPath returns the BFS route between two components; empty when none
func (s *Session) FindPath(ctx context.Context, from, to string, respectFaults bool) ([]string, error) {
	return query(ctx, s, func() ([]string, error) {
		var g pathfind.Adjacency = s.graph
		if respectFaults {
			g = pathfind.Exclude(s.graph, func(id string) bool { return !s.faults.Forwarding(id) })
		}
		path := pathfind.FindPath(g, from, to)
		if path == nil {
			path = []string{}
		}
		return path, nil
	})
}

// Partitions groups the components into connected islands
func (s *Session) Partitions(ctx context.Context) ([][]string, error) {
	return query(ctx, s, func() ([][]string, error) {
		comps := s.graph.Components()
		ids := make([]string, len(comps))
		for i, c := range comps {
			ids[i] = c.ID
		}
		return pathfind.Partitions(s.graph, ids), nil
	})
}

// HitTest returns the component under p, if any
func (s *Session) HitTest(ctx context.Context, p domain.Point) (string, bool, error) {
	type hit struct {
		id string
		ok bool
	}
	h, err := query(ctx, s, func() (hit, error) {
		id, ok := s.layer.HitTest(p, s.graph.Components())
		return hit{id, ok}, nil
	})
	return h.id, h.ok, err
}

// AttachmentAt returns the attachment side of a component nearest to p
func (s *Session) AttachmentAt(ctx context.Context, id string, p domain.Point) (domain.AttachmentSide, bool, error) {
	type found struct {
		side domain.AttachmentSide
		ok   bool
	}
	f, err := query(ctx, s, func() (found, error) {
		c, ok := s.graph.Component(id)
		if !ok {
			return found{}, fmt.Errorf("%w: %s", domain.ErrComponentNotFound, id)
		}
		side, ok := s.layer.DetectConnectionPoint(p, c.Position)
		return found{side, ok}, nil
	})
	return f.side, f.ok, err
}

// ============================================================================
// Graph mutations
// ============================================================================

// AddComponent places a new component of type t at p, snapped to the grid
func (s *Session) AddComponent(ctx context.Context, t domain.ComponentType, p domain.Point, name string) (domain.Component, error) {
	return query(ctx, s, func() (domain.Component, error) {
		c := domain.NewComponent(t, s.layer.Snap(p))
		if name != "" {
			c.DisplayName = name
		}
		if err := s.graph.AddComponent(c, false); err != nil {
			return domain.Component{}, err
		}
		s.afterComponentCreated(c)
		return c, nil
	})
}

// DropComponent instantiates a palette payload at p. Unknown payloads report
// false with a nil error.
func (s *Session) DropComponent(ctx context.Context, payload string, p domain.Point) (domain.Component, bool, error) {
	type dropped struct {
		c  domain.Component
		ok bool
	}
	d, err := query(ctx, s, func() (dropped, error) {
		c, ok, err := s.graph.DropComponent(payload, p)
		if err != nil || !ok {
			return dropped{}, err
		}
		s.afterComponentCreated(c)
		return dropped{c, true}, nil
	})
	return d.c, d.ok, err
}

// AddClient fills a client slot
func (s *Session) AddClient(ctx context.Context, side domain.ClientSide, t domain.ComponentType, name string) (domain.Component, error) {
	return query(ctx, s, func() (domain.Component, error) {
		c, err := s.graph.AddClient(side, t, name)
		if err != nil {
			return c, err
		}
		s.afterComponentCreated(c)
		return c, nil
	})
}

func (s *Session) afterComponentCreated(c domain.Component) {
	s.updateTopologyMetrics()
	s.publish(EventComponentCreated, c)
	s.logger.Debug("Component created", "id", c.ID, "type", c.Type)
}

// RemoveComponent deletes a component, its connections and its problems
func (s *Session) RemoveComponent(ctx context.Context, id string) error {
	_, err := query(ctx, s, func() (struct{}, error) {
		if err := s.graph.RemoveComponent(id); err != nil {
			return struct{}{}, err
		}
		s.faults.Clear(id)
		s.updateTopologyMetrics()
		s.updateProblemMetrics()
		s.publish(EventComponentDeleted, map[string]string{"component_id": id})
		return struct{}{}, nil
	})
	return err
}

// ComponentUpdate carries the optional fields of an edit. Nil fields are left
// unchanged; ClearColor and ClearAreaSize reset the optional attributes.
type ComponentUpdate struct {
	Position      *domain.Point `json:"position,omitempty"`
	DisplayName   *string       `json:"display_name,omitempty"`
	Color         *domain.RGB   `json:"color,omitempty"`
	ClearColor    bool          `json:"clear_color,omitempty"`
	AreaSize      *domain.Size  `json:"area_size,omitempty"`
	ClearAreaSize bool          `json:"clear_area_size,omitempty"`
}

// UpdateComponent applies u to a component. The edited component is checked
// as a whole before anything is written, so a rejected update changes nothing.
func (s *Session) UpdateComponent(ctx context.Context, id string, u ComponentUpdate) (domain.Component, error) {
	return query(ctx, s, func() (domain.Component, error) {
		before, ok := s.graph.Component(id)
		if !ok {
			return domain.Component{}, fmt.Errorf("%w: %s", domain.ErrComponentNotFound, id)
		}

		next := before.Clone()
		if u.Position != nil {
			if before.IsClient() {
				return domain.Component{}, fmt.Errorf("%w: %s", domain.ErrClientPinned, id)
			}
			if !s.graph.Zones().PlacementAllowed(*u.Position, false) {
				return domain.Component{}, fmt.Errorf("%w: (%g, %g)", domain.ErrZoneViolation, u.Position.X, u.Position.Y)
			}
			next.Position = *u.Position
		}
		if u.DisplayName != nil {
			next.DisplayName = *u.DisplayName
		}
		switch {
		case u.ClearColor:
			next.Color = nil
		case u.Color != nil:
			next.Color = u.Color
		}
		switch {
		case u.ClearAreaSize:
			next.AreaSize = nil
		case u.AreaSize != nil:
			next.AreaSize = u.AreaSize
		}
		if err := next.Validate(); err != nil {
			return domain.Component{}, err
		}

		if next.Position != before.Position {
			if err := s.graph.MoveComponent(id, next.Position); err != nil {
				return domain.Component{}, err
			}
		}
		if err := s.graph.SetDisplayName(id, next.DisplayName); err != nil {
			return domain.Component{}, err
		}
		if err := s.graph.SetColor(id, next.Color); err != nil {
			return domain.Component{}, err
		}
		if err := s.graph.SetAreaSize(id, next.AreaSize); err != nil {
			return domain.Component{}, err
		}

		c, ok := s.graph.Component(id)
		if !ok {
			return domain.Component{}, fmt.Errorf("%w: %s", domain.ErrComponentNotFound, id)
		}
		s.publish(EventComponentUpdated, c)
		return c, nil
	})
}

// AddConnection links two components
func (s *Session) AddConnection(ctx context.Context, from, to string, kind domain.ConnectionKind, opts ...topology.ConnectionOption) (domain.Connection, error) {
	return query(ctx, s, func() (domain.Connection, error) {
		existed := s.graph.Connected(from, to)
		c, err := s.graph.AddConnection(from, to, kind, opts...)
		if err != nil {
			if reason, ok := domain.RejectionReason(err); ok {
				s.metrics.RecordRuleRejection()
				s.publish(EventConnectionDenied, map[string]string{"from_id": from, "to_id": to, "reason": reason})
			}
			return c, err
		}
		if !existed {
			s.updateTopologyMetrics()
			s.publish(EventConnectionCreated, c)
		}
		return c, nil
	})
}

// RemoveConnection deletes a connection
func (s *Session) RemoveConnection(ctx context.Context, id string) error {
	_, err := query(ctx, s, func() (struct{}, error) {
		if err := s.graph.RemoveConnection(id); err != nil {
			return struct{}{}, err
		}
		s.updateTopologyMetrics()
		s.publish(EventConnectionDeleted, map[string]string{"connection_id": id})
		return struct{}{}, nil
	})
	return err
}

// AssignAgent labels a component for the training layer
func (s *Session) AssignAgent(ctx context.Context, id string, agent domain.AgentType) error {
	_, err := query(ctx, s, func() (struct{}, error) {
		if err := s.graph.AssignAgent(id, agent); err != nil {
			return struct{}{}, err
		}
		s.publish(EventAgentsUpdated, s.graph.Agents())
		return struct{}{}, nil
	})
	return err
}

// RemoveAgent clears a component's label
func (s *Session) RemoveAgent(ctx context.Context, id string) error {
	return s.do(ctx, func() {
		if _, ok := s.graph.AgentOf(id); !ok {
			return
		}
		s.graph.RemoveAgent(id)
		s.publish(EventAgentsUpdated, s.graph.Agents())
	})
}

// Agents returns the agent labels
func (s *Session) Agents(ctx context.Context) (map[string]domain.AgentType, error) {
	return query(ctx, s, func() (map[string]domain.AgentType, error) {
		return s.graph.Agents(), nil
	})
}

// ============================================================================
// Faults
// ============================================================================

// ApplyProblem activates a problem on a component
func (s *Session) ApplyProblem(ctx context.Context, id string, kind fault.ProblemKind) (ComponentStatus, error) {
	return query(ctx, s, func() (ComponentStatus, error) {
		if err := s.faults.Apply(kind, id); err != nil {
			return ComponentStatus{}, err
		}
		s.updateProblemMetrics()
		s.publish(EventProblemApplied, fault.Injection{ComponentID: id, Kind: kind})
		s.logger.Info("Problem applied", "component", id, "problem", kind)
		return s.status(id), nil
	})
}

// ResolveProblem clears a problem from a component
func (s *Session) ResolveProblem(ctx context.Context, id string, kind fault.ProblemKind) (ComponentStatus, error) {
	return query(ctx, s, func() (ComponentStatus, error) {
		if !s.graph.HasComponent(id) {
			return ComponentStatus{}, fmt.Errorf("%w: %s", domain.ErrComponentNotFound, id)
		}
		wasActive := s.faults.IsActive(kind, id)
		if err := s.faults.Resolve(kind, id); err != nil {
			return ComponentStatus{}, err
		}
		if wasActive {
			s.updateProblemMetrics()
			s.publish(EventProblemResolved, fault.Injection{ComponentID: id, Kind: kind})
			s.logger.Info("Problem resolved", "component", id, "problem", kind)
		}
		return s.status(id), nil
	})
}

// InjectRandomProblem applies a random problem to a random non-area component
func (s *Session) InjectRandomProblem(ctx context.Context) (fault.Injection, bool, error) {
	type injected struct {
		inj fault.Injection
		ok  bool
	}
	r, err := query(ctx, s, func() (injected, error) {
		var ids []string
		for _, c := range s.graph.Components() {
			if c.Type.IsArea() || c.Type == domain.ComponentTypeNote {
				continue
			}
			ids = append(ids, c.ID)
		}
		inj, ok, err := s.faults.InjectRandom(ids, s.rng)
		if err != nil || !ok {
			return injected{}, err
		}
		s.updateProblemMetrics()
		s.publish(EventProblemApplied, inj)
		s.logger.Info("Problem injected", "component", inj.ComponentID, "problem", inj.Kind)
		return injected{inj, true}, nil
	})
	return r.inj, r.ok, err
}

// ClearProblems resolves every problem, or only those of id when non-empty
func (s *Session) ClearProblems(ctx context.Context, id string) error {
	return s.do(ctx, func() {
		if id == "" {
			s.faults.Reset()
		} else {
			s.faults.Clear(id)
		}
		s.updateProblemMetrics()
		s.publish(EventProblemResolved, map[string]string{"component_id": id})
	})
}

// Status returns a component's status folded from its active problems
func (s *Session) Status(ctx context.Context, id string) (ComponentStatus, error) {
	return query(ctx, s, func() (ComponentStatus, error) {
		if !s.graph.HasComponent(id) {
			return ComponentStatus{}, fmt.Errorf("%w: %s", domain.ErrComponentNotFound, id)
		}
		return s.status(id), nil
	})
}

func (s *Session) status(id string) ComponentStatus {
	active := s.faults.Active(id)
	if active == nil {
		active = []fault.ProblemKind{}
	}
	return ComponentStatus{ID: id, Status: s.faults.Status(id), Problems: active}
}

// ============================================================================
// Simulation
// ============================================================================

// StartSimulation begins packet generation on wall-clock tickers
func (s *Session) StartSimulation(ctx context.Context) (SimulationState, error) {
	return query(ctx, s, func() (SimulationState, error) {
		if s.sched.Running() {
			return s.simulationState(), nil
		}
		if err := s.sched.Start(); err != nil {
			return SimulationState{}, err
		}
		s.genTicker = time.NewTicker(s.simCfg.GenerationInterval)
		s.stepTicker = time.NewTicker(s.simCfg.StepInterval())
		state := s.simulationState()
		s.publish(EventSimulationStarted, state)
		return state, nil
	})
}

// StopSimulation halts generation and clears in-flight packets
func (s *Session) StopSimulation(ctx context.Context) (SimulationState, error) {
	return query(ctx, s, func() (SimulationState, error) {
		stats := s.sched.Stats()
		s.sched.Stop()
		s.stopTickers()
		state := s.simulationState()
		state.Stats = stats
		s.publish(EventSimulationStopped, state)
		return state, nil
	})
}

// Simulation returns the scheduler state and in-flight packets
func (s *Session) Simulation(ctx context.Context) (SimulationState, error) {
	return query(ctx, s, func() (SimulationState, error) {
		return s.simulationState(), nil
	})
}

// ============================================================================
// Persistence
// ============================================================================

// LoadDocument replaces the graph with doc. Records that fail validation are
// skipped and reported. Faults and the simulation are reset.
func (s *Session) LoadDocument(ctx context.Context, doc *domain.Document) (topology.LoadReport, error) {
	return query(ctx, s, func() (topology.LoadReport, error) {
		g, report, err := topology.FromDocument(doc, s.graph.Rules(), s.graph.Zones(),
			topology.WithGridSpacing(s.layer.GridSpacing))
		if err != nil {
			return report, err
		}
		s.install(g)
		for _, skipped := range report.Skipped {
			s.logger.Warn("Skipped record", "kind", skipped.Kind, "index", skipped.Index, "id", skipped.ID, "reason", skipped.Reason)
		}
		s.publish(EventTopologyLoaded, map[string]int{
			"components":  g.Len(),
			"connections": g.ConnectionCount(),
			"skipped":     len(report.Skipped),
		})
		return report, nil
	})
}

// Save stores the current graph under name. It reports false when the stored
// copy was already identical.
func (s *Session) Save(ctx context.Context, name string) (bool, error) {
	if s.store == nil {
		return false, ErrNoStore
	}
	doc, err := s.Document(ctx)
	if err != nil {
		return false, err
	}
	changed, err := s.store.Save(ctx, name, doc)
	if err != nil {
		return false, fmt.Errorf("failed to save topology %s: %w", name, err)
	}
	if changed {
		s.logger.Info("Topology saved", "name", name, "components", len(doc.Components))
		s.bus.Publish(Event{Type: EventTopologySaved, Payload: map[string]string{"name": name}})
	}
	return changed, nil
}

// Load replaces the graph with a saved topology
func (s *Session) Load(ctx context.Context, name string) (topology.LoadReport, error) {
	var report topology.LoadReport
	if s.store == nil {
		return report, ErrNoStore
	}
	loaded, err := s.store.Load(ctx, name)
	if err != nil {
		return report, err
	}
	report, err = s.LoadDocument(ctx, loaded.Document)
	if err != nil {
		return report, err
	}
	// Rows the store could not decode come first; they never reached the graph
	skipped := append([]domain.SkippedRecord(nil), loaded.Skipped...)
	report.Skipped = append(skipped, report.Skipped...)
	return report, nil
}

// ListSaved summarises the saved topologies
func (s *Session) ListSaved(ctx context.Context) ([]repository.Summary, error) {
	if s.store == nil {
		return nil, ErrNoStore
	}
	return s.store.List(ctx)
}

// DeleteSaved removes a saved topology
func (s *Session) DeleteSaved(ctx context.Context, name string) error {
	if s.store == nil {
		return ErrNoStore
	}
	return s.store.Delete(ctx, name)
}
