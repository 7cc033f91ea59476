package topology

import (
	"topolab/internal/domain"
	"topolab/internal/rules"
	"topolab/internal/spatial"
)

// SampleIDs names the components of the sample topology
type SampleIDs struct {
	ClientA, Router, Switch, Server, ClientB string
}

// Path returns the expected client A to client B route
func (s SampleIDs) Path() []string {
	return []string{s.ClientA, s.Router, s.Switch, s.Server, s.ClientB}
}

// Sample builds the reference lab: client A on a router, a switch, a server
// and client B on the server. Devices are spread evenly between the zones.
func Sample(engine *rules.Engine, zones spatial.ZoneLayout, opts ...Option) (*Graph, SampleIDs, error) {
	g := New(engine, zones, opts...)
	var ids SampleIDs

	left := zones.ClientA.X + zones.ClientA.Width
	right := zones.ClientB.X
	y := zones.ClientA.Center().Y
	at := func(frac float64) domain.Point {
		return domain.Pt(left+(right-left)*frac, y)
	}

	a, err := g.AddClient(domain.ClientA, domain.ComponentTypePC, "")
	if err != nil {
		return nil, ids, err
	}
	ids.ClientA = a.ID

	for _, d := range []struct {
		t    domain.ComponentType
		frac float64
		id   *string
	}{
		{domain.ComponentTypeRouter, 0.25, &ids.Router},
		{domain.ComponentTypeSwitch, 0.5, &ids.Switch},
		{domain.ComponentTypeServer, 0.75, &ids.Server},
	} {
		c := domain.NewComponent(d.t, at(d.frac))
		if err := g.AddComponent(c, false); err != nil {
			return nil, ids, err
		}
		*d.id = c.ID
	}

	b, err := g.AddClient(domain.ClientB, domain.ComponentTypePC, "")
	if err != nil {
		return nil, ids, err
	}
	ids.ClientB = b.ID

	for _, link := range [][2]string{
		{ids.ClientA, ids.Router},
		{ids.Router, ids.Switch},
		{ids.Switch, ids.Server},
		{ids.Server, ids.ClientB},
	} {
		if _, err := g.AddConnection(link[0], link[1], domain.ConnectionWired); err != nil {
			return nil, ids, err
		}
	}
	return g, ids, nil
}
