package adapter

import (
	"log/slog"
	"time"
)

// ScanOption is a functional option for configuring Scanner
type ScanOption func(*Scanner)

// WithTimeout sets the timeout for the entire nmap scan
func WithTimeout(d time.Duration) ScanOption {
	return func(s *Scanner) {
		s.timeout = d
	}
}

// WithPortRange sets the ports to scan. Invalid lists are ignored.
// Format: "80,443,8080" or "1-1000" or "22,80-443,8080"
func WithPortRange(ports string) ScanOption {
	return func(s *Scanner) {
		if validated, err := parsePorts(ports); err == nil {
			s.portRange = validated
		}
	}
}

// WithServiceDetection enables or disables service version detection (-sV)
func WithServiceDetection(enabled bool) ScanOption {
	return func(s *Scanner) {
		s.serviceDetection = enabled
	}
}

// WithOSDetection enables or disables OS detection (-O)
// Note: OS detection requires root privileges
func WithOSDetection(enabled bool) ScanOption {
	return func(s *Scanner) {
		s.osDetection = enabled
	}
}

// WithTraceroute enables or disables hop discovery (--traceroute). Hops are
// what the importer turns into connections.
func WithTraceroute(enabled bool) ScanOption {
	return func(s *Scanner) {
		s.traceroute = enabled
	}
}

// WithSkipHostDiscovery sets whether to skip ping and treat all hosts as online (-Pn)
func WithSkipHostDiscovery(skip bool) ScanOption {
	return func(s *Scanner) {
		s.skipHostDiscovery = skip
	}
}

// WithFastScan enables fast scan mode (fewer ports, quicker results)
func WithFastScan() ScanOption {
	return func(s *Scanner) {
		s.portRange = "22,80,443"
		s.serviceDetection = false
		s.timeout = 5 * time.Minute
	}
}

// WithScanLogger sets the scanner's logger
func WithScanLogger(logger *slog.Logger) ScanOption {
	return func(s *Scanner) {
		if logger != nil {
			s.logger = logger
		}
	}
}
