package adapter

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"strings"
	"time"

	nmap "github.com/Ullaakut/nmap/v3"
)

// Scanner runs nmap against a set of targets
type Scanner struct {
	targets           []string
	timeout           time.Duration
	portRange         string
	serviceDetection  bool
	osDetection       bool
	traceroute        bool
	skipHostDiscovery bool
	logger            *slog.Logger
}

// NewScanner creates a new nmap scanner
// targets: list of CIDR ranges or individual IPs to scan
// opts: optional configuration options
func NewScanner(targets []string, opts ...ScanOption) *Scanner {
	s := &Scanner{
		targets:          targets,
		timeout:          10 * time.Minute,
		portRange:        "22,25,53,80,443,445,3389,5432,5900,6443,8080,8443,9090,9100",
		serviceDetection: true,
		osDetection:      false, // Requires root
		traceroute:       true,
		logger:           slog.Default(),
	}

	// Apply options
	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Options returns the nmap options for the configured scan
func (s *Scanner) Options() ([]nmap.Option, error) {
	targets, err := expandTargets(s.targets)
	if err != nil {
		return nil, err
	}
	if len(targets) == 0 {
		return nil, fmt.Errorf("no scan targets configured")
	}

	opts := []nmap.Option{
		nmap.WithTargets(targets...),
		nmap.WithPorts(s.portRange),
	}
	if s.serviceDetection {
		opts = append(opts, nmap.WithServiceInfo())
	}
	// OS detection requires root
	if s.osDetection {
		opts = append(opts, nmap.WithOSDetection())
	}
	if s.traceroute {
		opts = append(opts, nmap.WithTraceRoute())
	}
	if s.skipHostDiscovery {
		opts = append(opts, nmap.WithSkipHostDiscovery())
	}
	return opts, nil
}

// Scan runs nmap and returns its parsed report
func (s *Scanner) Scan(ctx context.Context) (*nmap.Run, error) {
	opts, err := s.Options()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	scanner, err := nmap.NewScanner(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create scanner: %w", err)
	}

	s.logger.Info("Starting nmap scan", "targets", s.targets, "ports", s.portRange)
	result, warnings, err := scanner.Run()
	if err != nil {
		return nil, fmt.Errorf("scan failed: %w", err)
	}
	if warnings != nil && len(*warnings) > 0 {
		s.logger.Warn("Nmap reported warnings", "warnings", *warnings)
	}
	if result == nil {
		return nil, fmt.Errorf("nil scan result")
	}

	s.logger.Info("Nmap scan complete", "hosts", len(result.Hosts))
	return result, nil
}

// expandTargets validates CIDR targets; nmap expands them itself
func expandTargets(targets []string) ([]string, error) {
	var expanded []string
	for _, target := range targets {
		target = strings.TrimSpace(target)
		if target == "" {
			continue
		}
		if strings.Contains(target, "/") {
			_, ipNet, err := net.ParseCIDR(target)
			if err != nil {
				return nil, fmt.Errorf("invalid CIDR %s: %w", target, err)
			}
			expanded = append(expanded, ipNet.String())
		} else {
			// Single IP or hostname
			expanded = append(expanded, target)
		}
	}
	return expanded, nil
}

// parsePorts validates an nmap port list
// Supported: "80,443,8080" or "1-1000" or "22,80-443,8080"
func parsePorts(portRange string) (string, error) {
	parts := strings.Split(portRange, ",")
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if strings.Contains(part, "-") {
			rangeParts := strings.Split(part, "-")
			if len(rangeParts) != 2 {
				return "", fmt.Errorf("invalid port range: %s", part)
			}
			start, err := strconv.Atoi(strings.TrimSpace(rangeParts[0]))
			if err != nil || start < 1 || start > 65535 {
				return "", fmt.Errorf("invalid port number: %s", rangeParts[0])
			}
			end, err := strconv.Atoi(strings.TrimSpace(rangeParts[1]))
			if err != nil || end < 1 || end > 65535 || end < start {
				return "", fmt.Errorf("invalid port number: %s", rangeParts[1])
			}
		} else {
			port, err := strconv.Atoi(part)
			if err != nil || port < 1 || port > 65535 {
				return "", fmt.Errorf("invalid port number: %s", part)
			}
		}
	}
	return portRange, nil
}
