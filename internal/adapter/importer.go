package adapter

import (
	"fmt"
	"io"
	"log/slog"
	"net"
	"sort"
	"strings"

	nmap "github.com/Ullaakut/nmap/v3"

	"topolab/internal/codec"
	"topolab/internal/domain"
)

// FormatNmapXML names the nmap XML report format
const FormatNmapXML = "nmap-xml"

// ScanImporter converts nmap reports into topology documents. Live hosts
// become components typed from their OS class and open ports; traceroute hops
// become wired connections, with unknown intermediate hops added as routers.
type ScanImporter struct {
	logger *slog.Logger
}

var _ codec.Importer = (*ScanImporter)(nil)

// NewScanImporter creates a scan importer
func NewScanImporter(logger *slog.Logger) *ScanImporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &ScanImporter{logger: logger}
}

// Format returns the format name
func (i *ScanImporter) Format() string {
	return FormatNmapXML
}

// Parse reads an nmap XML report (nmap -oX) and converts it
func (i *ScanImporter) Parse(r io.Reader) (*codec.Result, error) {
	run, err := ParseXML(r)
	if err != nil {
		return nil, err
	}
	return i.Import(run), nil
}

// ParseXML decodes an nmap XML report
func ParseXML(r io.Reader) (*nmap.Run, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read scan report: %w", err)
	}
	var run nmap.Run
	if err := nmap.Parse(data, &run); err != nil {
		return nil, fmt.Errorf("failed to parse nmap XML: %w", err)
	}
	return &run, nil
}

// importState tracks ids while a report is converted
type importState struct {
	doc    *domain.Document
	byIP   map[string]string
	linked map[domain.PairKey]bool
}

func (s *importState) add(c domain.Component, ip string) string {
	c.Position = codec.GridPosition(len(s.doc.Components))
	s.doc.AddComponent(c)
	s.byIP[ip] = c.ID
	return c.ID
}

func (s *importState) link(a, b string) {
	if a == b {
		return
	}
	key := domain.MakePairKey(a, b)
	if s.linked[key] {
		return
	}
	s.linked[key] = true
	c := domain.NewConnection(a, b, domain.ConnectionWired)
	s.doc.AddConnection(c)
}

// Import converts a parsed report. Down hosts are ignored; hosts without an
// address are reported as skipped.
func (i *ScanImporter) Import(run *nmap.Run) *codec.Result {
	result := &codec.Result{Document: domain.NewDocument()}
	if run == nil {
		return result
	}

	state := &importState{
		doc:    result.Document,
		byIP:   make(map[string]string),
		linked: make(map[domain.PairKey]bool),
	}

	for idx, host := range run.Hosts {
		if host.Status.State != "up" {
			continue
		}
		ip := primaryIP(host)
		if ip == "" {
			result.Skipped = append(result.Skipped, domain.SkippedRecord{
				Kind:   domain.RecordComponent,
				Index:  idx,
				Reason: "host has no address",
			})
			continue
		}
		if _, seen := state.byIP[ip]; seen {
			continue
		}

		c := domain.NewComponent(inferComponentType(host), domain.Point{})
		c.ID = hostID(ip)
		c.DisplayName = hostLabel(host, ip)
		state.add(c, ip)
	}

	// Hops are linked after every host is known so a hop that is itself a
	// scanned host reuses that component
	for _, host := range run.Hosts {
		if host.Status.State != "up" {
			continue
		}
		ip := primaryIP(host)
		if ip == "" || len(host.Trace.Hops) == 0 {
			continue
		}

		hops := append([]nmap.Hop(nil), host.Trace.Hops...)
		sort.SliceStable(hops, func(a, b int) bool { return hops[a].TTL < hops[b].TTL })

		prev := ""
		for _, hop := range hops {
			if hop.IPAddr == "" {
				// Unanswered hop; the chain resumes at the next known address
				continue
			}
			id, ok := state.byIP[hop.IPAddr]
			if !ok {
				c := domain.NewComponent(domain.ComponentTypeRouter, domain.Point{})
				c.ID = hostID(hop.IPAddr)
				c.DisplayName = shortName(hop.Host, hop.IPAddr)
				id = state.add(c, hop.IPAddr)
			}
			if prev != "" {
				state.link(prev, id)
			}
			prev = id
		}
		if target := state.byIP[ip]; prev != "" {
			state.link(prev, target)
		}
	}

	i.logger.Info("Imported nmap report",
		"hosts", len(run.Hosts),
		"components", len(result.Document.Components),
		"connections", len(result.Document.Connections),
		"skipped", len(result.Skipped))
	return result
}

// primaryIP prefers the IPv4 address and falls back to the first non-MAC one
func primaryIP(host nmap.Host) string {
	var fallback string
	for _, addr := range host.Addresses {
		switch addr.AddrType {
		case "ipv4":
			return addr.Addr
		case "mac":
		default:
			if fallback == "" {
				fallback = addr.Addr
			}
		}
	}
	return fallback
}

// hostID converts an IP address to a stable component id
func hostID(ip string) string {
	if parsed := net.ParseIP(ip); parsed != nil {
		ip = parsed.String()
	}
	ip = strings.NewReplacer(".", "-", ":", "-").Replace(ip)
	return "host-" + ip
}

func hostLabel(host nmap.Host, ip string) string {
	if len(host.Hostnames) > 0 {
		return shortName(host.Hostnames[0].Name, ip)
	}
	return ip
}

// shortName returns the first label of a hostname, or fallback when there is
// no usable name
func shortName(hostname, fallback string) string {
	if hostname == "" {
		return fallback
	}
	if idx := strings.Index(hostname, "."); idx > 2 {
		return hostname[:idx]
	}
	return hostname
}

// inferComponentType guesses a catalog type from the OS class nmap reported,
// then from service device types, then from open ports
func inferComponentType(host nmap.Host) domain.ComponentType {
	if len(host.OS.Matches) > 0 {
		for _, class := range host.OS.Matches[0].Classes {
			if t, ok := deviceType(class.Type); ok {
				return t
			}
		}
	}

	portSet := make(map[uint16]bool)
	for _, p := range host.Ports {
		if p.State.State != "open" {
			continue
		}
		portSet[p.ID] = true
		if t, ok := deviceType(p.Service.DeviceType); ok {
			return t
		}
	}

	switch {
	// Router indicators
	case portSet[53] && (portSet[80] || portSet[443]):
		return domain.ComponentTypeRouter
	case portSet[9100] || portSet[631] || portSet[515]:
		return domain.ComponentTypePrinter
	case portSet[5432] || portSet[3306] || portSet[1433] || portSet[27017] || portSet[6379]:
		return domain.ComponentTypeDatabase
	case portSet[2049] || portSet[548]:
		return domain.ComponentTypeNAS
	case portSet[554]:
		return domain.ComponentTypeSmartCamera
	case portSet[5060]:
		return domain.ComponentTypeVoIPPhone
	case portSet[1194] || portSet[500] || portSet[4500]:
		return domain.ComponentTypeVPNGateway
	case portSet[3128]:
		return domain.ComponentTypeProxy
	// Kubernetes, SSH and web hosts
	case portSet[6443] || portSet[10250] || portSet[22] || portSet[80] || portSet[443] || portSet[8080]:
		return domain.ComponentTypeServer
	// Windows desktop
	case portSet[3389] || portSet[445]:
		return domain.ComponentTypePC
	}
	return domain.ComponentTypePC
}

// deviceType maps nmap's device type vocabulary onto the catalog
func deviceType(kind string) (domain.ComponentType, bool) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "router":
		return domain.ComponentTypeRouter, true
	case "broadband router":
		return domain.ComponentTypeWirelessRouter, true
	case "switch":
		return domain.ComponentTypeSwitch, true
	case "firewall":
		return domain.ComponentTypeFirewall, true
	case "wap":
		return domain.ComponentTypeAccessPoint, true
	case "load balancer":
		return domain.ComponentTypeLoadBalancer, true
	case "proxy server":
		return domain.ComponentTypeProxy, true
	case "security-misc":
		return domain.ComponentTypeIDS, true
	case "printer", "print server":
		return domain.ComponentTypePrinter, true
	case "storage-misc":
		return domain.ComponentTypeNAS, true
	case "phone":
		return domain.ComponentTypeSmartphone, true
	case "voip phone", "voip adapter":
		return domain.ComponentTypeVoIPPhone, true
	case "webcam":
		return domain.ComponentTypeSmartCamera, true
	case "specialized":
		return domain.ComponentTypeIoTSensor, true
	}
	return "", false
}
