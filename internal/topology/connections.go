package topology

import (
	"fmt"

	"topolab/internal/domain"
)

// ConnectionOption sets cosmetic attributes on a new connection
type ConnectionOption func(*domain.Connection)

// WithAttachment records the anchor sides used at each end. An empty side
// leaves that end unset.
func WithAttachment(from, to domain.AttachmentSide) ConnectionOption {
	return func(c *domain.Connection) {
		if from != "" {
			side := from
			c.FromPoint = &side
		}
		if to != "" {
			side := to
			c.ToPoint = &side
		}
	}
}

// WithCurve sets the rendering curve
func WithCurve(control domain.Point, style domain.CurveStyle) ConnectionOption {
	return func(c *domain.Connection) {
		p := control
		c.Control = &p
		c.Curve = style
	}
}

// AddConnection links two components if the rule table allows their types.
// Linking a pair that is already connected, in either direction, returns the
// existing connection and no error. An empty kind means wired.
func (g *Graph) AddConnection(from, to string, kind domain.ConnectionKind, opts ...ConnectionOption) (domain.Connection, error) {
	if kind == "" {
		kind = domain.ConnectionWired
	}
	c := domain.NewConnection(from, to, kind)
	for _, opt := range opts {
		opt(&c)
	}
	return g.insertConnection(c)
}

func (g *Graph) insertConnection(c domain.Connection) (domain.Connection, error) {
	if c.FromID == c.ToID {
		return domain.Connection{}, fmt.Errorf("%w: %s", domain.ErrSelfLoop, c.FromID)
	}
	from, ok := g.components[c.FromID]
	if !ok {
		return domain.Connection{}, fmt.Errorf("%w: %s", domain.ErrComponentNotFound, c.FromID)
	}
	to, ok := g.components[c.ToID]
	if !ok {
		return domain.Connection{}, fmt.Errorf("%w: %s", domain.ErrComponentNotFound, c.ToID)
	}

	if existing, ok := g.pairs[c.Pair()]; ok {
		return g.connections[existing].Clone(), nil
	}
	if err := c.Validate(); err != nil {
		return domain.Connection{}, err
	}
	if _, ok := g.connections[c.ID]; ok {
		return domain.Connection{}, fmt.Errorf("connection %s already exists", c.ID)
	}
	if err := g.rules.Check(from.Type, to.Type); err != nil {
		return domain.Connection{}, err
	}

	stored := c.Clone()
	g.connections[c.ID] = &stored
	g.connOrder = append(g.connOrder, c.ID)
	g.pairs[c.Pair()] = c.ID
	g.incidence[c.FromID] = append(g.incidence[c.FromID], c.ID)
	g.incidence[c.ToID] = append(g.incidence[c.ToID], c.ID)
	return stored.Clone(), nil
}

// RemoveConnection deletes a connection by id
func (g *Graph) RemoveConnection(id string) error {
	if _, ok := g.connections[id]; !ok {
		return fmt.Errorf("%w: %s", domain.ErrConnectionNotFound, id)
	}
	g.dropConnection(id)
	return nil
}

func (g *Graph) dropConnection(id string) {
	c, ok := g.connections[id]
	if !ok {
		return
	}
	delete(g.connections, id)
	delete(g.pairs, c.Pair())
	g.connOrder = removeID(g.connOrder, id)
	g.incidence[c.FromID] = removeID(g.incidence[c.FromID], id)
	g.incidence[c.ToID] = removeID(g.incidence[c.ToID], id)
}

// ConnectionsOf returns the connections touching id in the order they were made
func (g *Graph) ConnectionsOf(id string) []domain.Connection {
	ids := g.incidence[id]
	if len(ids) == 0 {
		return nil
	}
	out := make([]domain.Connection, 0, len(ids))
	for _, connID := range ids {
		out = append(out, g.connections[connID].Clone())
	}
	return out
}

// Connections returns copies of all connections in construction order
func (g *Graph) Connections() []domain.Connection {
	out := make([]domain.Connection, 0, len(g.connOrder))
	for _, id := range g.connOrder {
		out = append(out, g.connections[id].Clone())
	}
	return out
}

// Connection returns a copy of the connection with the given id
func (g *Graph) Connection(id string) (domain.Connection, bool) {
	c, ok := g.connections[id]
	if !ok {
		return domain.Connection{}, false
	}
	return c.Clone(), true
}

// Connected reports whether a and b share a connection
func (g *Graph) Connected(a, b string) bool {
	_, ok := g.pairs[domain.MakePairKey(a, b)]
	return ok
}

// ConnectionCount returns the number of connections
func (g *Graph) ConnectionCount() int {
	return len(g.connections)
}
