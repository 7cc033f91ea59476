// Package fault models injectable problems on topology components.
//
// The set of problem kinds is closed. Each kind changes a fixed set of status
// fields; a component's status is always recomputed from its active problems
// so resolving one of two overlapping problems leaves the other in effect.
package fault

import (
	"fmt"

	"topolab/internal/domain"
)

// ProblemKind identifies a fault
type ProblemKind string

const (
	PowerOff       ProblemKind = "power_off"
	CableUnplugged ProblemKind = "cable_unplugged"
	NoIPAddress    ProblemKind = "no_ip_address"
	DNSFailure     ProblemKind = "dns_failure"
	FirewallBlock  ProblemKind = "firewall_block"
	HighLatency    ProblemKind = "high_latency"
	PacketLoss     ProblemKind = "packet_loss"
	HighCPU        ProblemKind = "high_cpu"
)

// Severity ranks how disruptive a problem is
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Severities lists the levels from least to most severe
func Severities() []Severity {
	return []Severity{SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical}
}

const (
	degradedLatencyMs  = 250
	degradedPacketLoss = 25
	saturatedCPU       = 95
)

// Problem describes a fault kind
type Problem struct {
	Kind        ProblemKind `json:"kind"`
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Severity    Severity    `json:"severity"`

	effect func(*domain.Status)
}

// Affect applies the problem's effect to s
func (p Problem) Affect(s *domain.Status) {
	if p.effect != nil {
		p.effect(s)
	}
}

var catalog = []Problem{
	{
		Kind:        PowerOff,
		Name:        "Power Off",
		Description: "The device has lost power and is completely unresponsive.",
		Severity:    SeverityCritical,
		effect: func(s *domain.Status) {
			s.PoweredOn = false
			s.LinkUp = false
		},
	},
	{
		Kind:        CableUnplugged,
		Name:        "Cable Unplugged",
		Description: "The network cable is disconnected, so the link is down.",
		Severity:    SeverityHigh,
		effect:      func(s *domain.Status) { s.LinkUp = false },
	},
	{
		Kind:        NoIPAddress,
		Name:        "No IP Address",
		Description: "The device failed to obtain an IP address.",
		Severity:    SeverityHigh,
		effect:      func(s *domain.Status) { s.HasIP = false },
	},
	{
		Kind:        DNSFailure,
		Name:        "DNS Failure",
		Description: "Name resolution is failing on this device.",
		Severity:    SeverityMedium,
		effect:      func(s *domain.Status) { s.DNSResolving = false },
	},
	{
		Kind:        FirewallBlock,
		Name:        "Firewall Block",
		Description: "A firewall rule is dropping traffic through this device.",
		Severity:    SeverityHigh,
		effect:      func(s *domain.Status) { s.Blocking = true },
	},
	{
		Kind:        HighLatency,
		Name:        "High Latency",
		Description: "Responses from this device are severely delayed.",
		Severity:    SeverityMedium,
		effect:      func(s *domain.Status) { s.LatencyMs = degradedLatencyMs },
	},
	{
		Kind:        PacketLoss,
		Name:        "Packet Loss",
		Description: "A significant share of packets through this device are dropped.",
		Severity:    SeverityMedium,
		effect:      func(s *domain.Status) { s.PacketLossPercent = degradedPacketLoss },
	},
	{
		Kind:        HighCPU,
		Name:        "High CPU",
		Description: "The device CPU is saturated and slow to respond.",
		Severity:    SeverityLow,
		effect:      func(s *domain.Status) { s.CPULoadPercent = saturatedCPU },
	},
}

var catalogIndex = func() map[ProblemKind]int {
	idx := make(map[ProblemKind]int, len(catalog))
	for i, p := range catalog {
		idx[p.Kind] = i
	}
	return idx
}()

// Catalog returns every problem definition in a fixed order
func Catalog() []Problem {
	return append([]Problem(nil), catalog...)
}

// Kinds returns every problem kind in catalog order
func Kinds() []ProblemKind {
	out := make([]ProblemKind, len(catalog))
	for i, p := range catalog {
		out[i] = p.Kind
	}
	return out
}

// Lookup returns the definition of kind
func Lookup(kind ProblemKind) (Problem, bool) {
	i, ok := catalogIndex[kind]
	if !ok {
		return Problem{}, false
	}
	return catalog[i], true
}

// ParseKind validates a problem tag
func ParseKind(tag string) (ProblemKind, error) {
	kind := ProblemKind(tag)
	if _, ok := catalogIndex[kind]; !ok {
		return "", fmt.Errorf("%w: %q", domain.ErrUnknownProblem, tag)
	}
	return kind, nil
}

// Forwarding reports whether a component with this status can carry traffic
func Forwarding(s domain.Status) bool {
	return s.Forwarding()
}
