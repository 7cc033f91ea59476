// Package handler implements HTTP request handlers for the topolab API.
//
// TopologyHandler exposes a service.Session over JSON: the graph snapshot,
// component and connection editing, path and partition queries, fault
// injection, the packet simulation, agent labels, the rule table, saved
// topologies, and import/export through the codec package.
//
// # API Design
//
// Routes use the method-qualified patterns of net/http's ServeMux:
// - GET for retrieval
// - POST for creation and actions
// - PUT and PATCH for updates
// - DELETE for removal
//
// # Response Format
//
// Success responses return JSON data with appropriate status codes (200, 201,
// 204 when there is nothing to report, such as an ignored palette drop).
// Error responses return JSON with {error, details} structure. Domain errors
// map to 404 (missing component, connection or saved topology), 409 (occupied
// client slot), 422 (rule rejection, zone violation) or 400 (unknown type or
// problem kind).
//
// # Middleware
//
// Chain composes Recover, CORS, Logger and Metrics around the mux. Metrics
// labels requests by route pattern.
package handler
