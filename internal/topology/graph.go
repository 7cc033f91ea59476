// Package topology owns the mutable graph of components and connections.
//
// The graph is an arena keyed by component id. Connections, client slots and
// agent labels all refer to components by id, so removing a component is an
// id scan rather than a pointer walk. Every mutating operation either succeeds
// completely or leaves the graph untouched. The graph is not safe for
// concurrent use; callers that share it across goroutines must serialize
// access (see service.Session).
package topology

import (
	"fmt"

	"topolab/internal/domain"
	"topolab/internal/rules"
	"topolab/internal/spatial"
)

// Graph is the topology being edited
type Graph struct {
	rules       *rules.Engine
	zones       spatial.ZoneLayout
	gridSpacing float64

	components map[string]*domain.Component
	order      []string

	connections map[string]*domain.Connection
	connOrder   []string
	pairs       map[domain.PairKey]string
	incidence   map[string][]string

	clientA string
	clientB string
	agents  map[string]domain.AgentType
}

// Option configures a Graph
type Option func(*Graph)

// WithGridSpacing sets the grid used to snap dropped components
func WithGridSpacing(spacing float64) Option {
	return func(g *Graph) {
		g.gridSpacing = spacing
	}
}

// New creates an empty graph. A nil engine means the built-in rule table.
func New(engine *rules.Engine, zones spatial.ZoneLayout, opts ...Option) *Graph {
	if engine == nil {
		engine = rules.Default()
	}
	g := &Graph{
		rules:       engine,
		zones:       zones,
		gridSpacing: spatial.DefaultGridSpacing,
		components:  make(map[string]*domain.Component),
		connections: make(map[string]*domain.Connection),
		pairs:       make(map[domain.PairKey]string),
		incidence:   make(map[string][]string),
		agents:      make(map[string]domain.AgentType),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Rules returns the engine gating new connections
func (g *Graph) Rules() *rules.Engine {
	return g.rules
}

// Zones returns the reserved client zones
func (g *Graph) Zones() spatial.ZoneLayout {
	return g.zones
}

// AddComponent inserts c. Client components are pinned to the centre of their
// zone; other components are rejected inside a zone unless allowInClientZones.
func (g *Graph) AddComponent(c domain.Component, allowInClientZones bool) error {
	if err := c.Validate(); err != nil {
		return err
	}
	if _, exists := g.components[c.ID]; exists {
		return fmt.Errorf("%w: %s", domain.ErrDuplicateComponent, c.ID)
	}

	side, isClient := c.ClientSide()
	if isClient {
		if occupant := g.clientID(side); occupant != "" {
			return fmt.Errorf("%w: client %s is %s", domain.ErrClientSlotTaken, side, occupant)
		}
		c.Position = g.zones.Center(side)
	} else if !allowInClientZones && !g.zones.PlacementAllowed(c.Position, false) {
		return fmt.Errorf("%w: (%g, %g)", domain.ErrZoneViolation, c.Position.X, c.Position.Y)
	}

	stored := c.Clone()
	g.components[c.ID] = &stored
	g.order = append(g.order, c.ID)
	if isClient {
		g.setClientID(side, c.ID)
	}
	return nil
}

// AddClient creates a component in the given client slot. An empty name keeps
// the default "Client A"/"Client B" label.
func (g *Graph) AddClient(side domain.ClientSide, t domain.ComponentType, name string) (domain.Component, error) {
	if side != domain.ClientA && side != domain.ClientB {
		return domain.Component{}, fmt.Errorf("unknown client side %q", side)
	}
	c := domain.NewClient(t, side)
	if name != "" {
		c.DisplayName = name
	}
	if err := g.AddComponent(c, false); err != nil {
		return domain.Component{}, err
	}
	return g.components[c.ID].Clone(), nil
}

// DropComponent instantiates the type named by payload at the snapped point.
// Unrecognized payloads are ignored and report false with a nil error.
func (g *Graph) DropComponent(payload string, p domain.Point) (domain.Component, bool, error) {
	t, ok := domain.ParseComponentType(payload)
	if !ok {
		return domain.Component{}, false, nil
	}
	c := domain.NewComponent(t, spatial.SnapToGrid(p, g.gridSpacing))
	if err := g.AddComponent(c, false); err != nil {
		return domain.Component{}, false, err
	}
	return c.Clone(), true, nil
}

// RemoveComponent deletes a component together with every connection touching
// it, its client slot and its agent label.
func (g *Graph) RemoveComponent(id string) error {
	if _, ok := g.components[id]; !ok {
		return fmt.Errorf("%w: %s", domain.ErrComponentNotFound, id)
	}

	touching := append([]string(nil), g.incidence[id]...)
	for _, connID := range touching {
		g.dropConnection(connID)
	}

	delete(g.components, id)
	delete(g.incidence, id)
	delete(g.agents, id)
	g.order = removeID(g.order, id)

	if g.clientA == id {
		g.clientA = ""
	}
	if g.clientB == id {
		g.clientB = ""
	}
	return nil
}

// MoveComponent repositions a non-client component
func (g *Graph) MoveComponent(id string, p domain.Point) error {
	c, ok := g.components[id]
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrComponentNotFound, id)
	}
	if c.IsClient() {
		return fmt.Errorf("%w: %s", domain.ErrClientPinned, id)
	}
	if !g.zones.PlacementAllowed(p, false) {
		return fmt.Errorf("%w: (%g, %g)", domain.ErrZoneViolation, p.X, p.Y)
	}
	c.Position = p
	return nil
}

// SetDisplayName renames a component
func (g *Graph) SetDisplayName(id, name string) error {
	c, ok := g.components[id]
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrComponentNotFound, id)
	}
	c.DisplayName = name
	return nil
}

// SetColor sets or, with nil, clears the custom color
func (g *Graph) SetColor(id string, color *domain.RGB) error {
	c, ok := g.components[id]
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrComponentNotFound, id)
	}
	if color == nil {
		c.Color = nil
		return nil
	}
	if !c.Type.SupportsCustomColor() {
		return fmt.Errorf("%w: %s", domain.ErrCustomColorUnsupported, c.Type)
	}
	v := *color
	c.Color = &v
	return nil
}

// SetAreaSize sets or, with nil, clears the size of an area component
func (g *Graph) SetAreaSize(id string, size *domain.Size) error {
	c, ok := g.components[id]
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrComponentNotFound, id)
	}
	if size == nil {
		c.AreaSize = nil
		return nil
	}
	if !c.Type.IsArea() {
		return fmt.Errorf("%w: %s", domain.ErrNotArea, c.Type)
	}
	if size.Width <= 0 || size.Height <= 0 {
		return fmt.Errorf("area size must be positive, got %gx%g", size.Width, size.Height)
	}
	v := *size
	c.AreaSize = &v
	return nil
}

// AssignAgent labels a component for the training layer
func (g *Graph) AssignAgent(id string, agent domain.AgentType) error {
	if _, ok := g.components[id]; !ok {
		return fmt.Errorf("%w: %s", domain.ErrComponentNotFound, id)
	}
	g.agents[id] = agent
	return nil
}

// RemoveAgent clears the label of a component, if any
func (g *Graph) RemoveAgent(id string) {
	delete(g.agents, id)
}

// AgentOf returns the label assigned to a component
func (g *Graph) AgentOf(id string) (domain.AgentType, bool) {
	agent, ok := g.agents[id]
	return agent, ok
}

// Agents returns a copy of the agent map
func (g *Graph) Agents() map[string]domain.AgentType {
	out := make(map[string]domain.AgentType, len(g.agents))
	for id, agent := range g.agents {
		out[id] = agent
	}
	return out
}

// Components returns copies of all components in insertion order
func (g *Graph) Components() []domain.Component {
	out := make([]domain.Component, 0, len(g.order))
	for _, id := range g.order {
		out = append(out, g.components[id].Clone())
	}
	return out
}

// Component returns a copy of the component with the given id
func (g *Graph) Component(id string) (domain.Component, bool) {
	c, ok := g.components[id]
	if !ok {
		return domain.Component{}, false
	}
	return c.Clone(), true
}

// HasComponent reports whether id is in the graph
func (g *Graph) HasComponent(id string) bool {
	_, ok := g.components[id]
	return ok
}

// ClientA returns the id occupying the client A slot
func (g *Graph) ClientA() (string, bool) {
	return g.clientA, g.clientA != ""
}

// ClientB returns the id occupying the client B slot
func (g *Graph) ClientB() (string, bool) {
	return g.clientB, g.clientB != ""
}

// Len returns the number of components
func (g *Graph) Len() int {
	return len(g.components)
}

func (g *Graph) clientID(side domain.ClientSide) string {
	if side == domain.ClientB {
		return g.clientB
	}
	return g.clientA
}

func (g *Graph) setClientID(side domain.ClientSide, id string) {
	if side == domain.ClientB {
		g.clientB = id
		return
	}
	g.clientA = id
}

func removeID(ids []string, id string) []string {
	for i, v := range ids {
		if v == id {
			return append(ids[:i:i], ids[i+1:]...)
		}
	}
	return ids
}
