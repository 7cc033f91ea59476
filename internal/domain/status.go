package domain

// Status is the fault-visible state of a component. Problems toggle these
// fields; the simulation and training layers read them.
type Status struct {
	PoweredOn         bool    `json:"powered_on"`
	LinkUp            bool    `json:"link_up"`
	HasIP             bool    `json:"has_ip"`
	DNSResolving      bool    `json:"dns_resolving"`
	Blocking          bool    `json:"blocking"`
	CPULoadPercent    float64 `json:"cpu_load_percent"`
	LatencyMs         float64 `json:"latency_ms"`
	PacketLossPercent float64 `json:"packet_loss_percent"`
}

// DefaultStatus is the status of a healthy component
func DefaultStatus() Status {
	return Status{
		PoweredOn:      true,
		LinkUp:         true,
		HasIP:          true,
		DNSResolving:   true,
		CPULoadPercent: 5,
		LatencyMs:      1,
	}
}

// Forwarding reports whether a component in this state can pass traffic
func (s Status) Forwarding() bool {
	return s.PoweredOn && s.LinkUp && !s.Blocking
}

// Healthy reports whether s equals the default status
func (s Status) Healthy() bool {
	return s == DefaultStatus()
}
