// Package adapter brings discovered networks into topolab.
//
// Scanner drives nmap (github.com/Ullaakut/nmap/v3) against CIDR ranges or
// single hosts, with service detection and traceroute enabled by default.
// ScanImporter turns the resulting report, live or read from an nmap -oX
// file, into a domain.Document:
//
//   - live hosts become components, typed from the OS class, the service
//     device type, then the open ports
//   - traceroute hops become wired connections; hops that were not scanned
//     themselves are added as routers
//   - hosts without any address are reported as skipped records
//
// The document goes through the normal load path, so connections the rule
// table refuses are skipped there and reported alongside.
package adapter
