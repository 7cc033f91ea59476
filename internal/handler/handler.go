package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"topolab/internal/codec"
	"topolab/internal/domain"
	"topolab/internal/fault"
	"topolab/internal/repository"
	"topolab/internal/rules"
	"topolab/internal/service"
	"topolab/internal/topology"
)

// maxBodyBytes caps request bodies, including imported documents
const maxBodyBytes = 10 << 20

// TopologyHandler handles topology API requests
type TopologyHandler struct {
	session   *service.Session
	rules     *rules.Engine
	importers map[string]codec.Importer
	logger    *slog.Logger
}

// NewTopologyHandler creates a new topology handler. The rule engine backs the
// rule table endpoints and should be the one the session's graph uses.
func NewTopologyHandler(session *service.Session, engine *rules.Engine, logger *slog.Logger) *TopologyHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &TopologyHandler{
		session:   session,
		rules:     engine,
		importers: make(map[string]codec.Importer),
		logger:    logger,
	}
}

// RegisterImporter adds an import-only format, such as scan reports, to
// POST /api/import/{format}
func (h *TopologyHandler) RegisterImporter(imp codec.Importer) {
	h.importers[imp.Format()] = imp
}

// Register adds the API routes to mux
func (h *TopologyHandler) Register(mux *http.ServeMux) {
	// Graph
	mux.HandleFunc("GET /api/graph", h.GetGraph)
	mux.HandleFunc("GET /api/catalog", h.GetCatalog)
	mux.HandleFunc("GET /api/path", h.FindPath)
	mux.HandleFunc("GET /api/partitions", h.GetPartitions)
	mux.HandleFunc("GET /api/hit", h.HitTest)

	// Components
	mux.HandleFunc("POST /api/components", h.CreateComponent)
	mux.HandleFunc("POST /api/components/drop", h.DropComponent)
	mux.HandleFunc("POST /api/clients/{side}", h.CreateClient)
	mux.HandleFunc("GET /api/components/{id}", h.GetComponent)
	mux.HandleFunc("PATCH /api/components/{id}", h.UpdateComponent)
	mux.HandleFunc("DELETE /api/components/{id}", h.DeleteComponent)
	mux.HandleFunc("GET /api/components/{id}/connections", h.GetComponentConnections)
	mux.HandleFunc("GET /api/components/{id}/attachment", h.GetAttachment)

	// Connections
	mux.HandleFunc("POST /api/connections", h.CreateConnection)
	mux.HandleFunc("DELETE /api/connections/{id}", h.DeleteConnection)

	// Agents
	mux.HandleFunc("GET /api/agents", h.ListAgents)
	mux.HandleFunc("PUT /api/components/{id}/agent", h.AssignAgent)
	mux.HandleFunc("DELETE /api/components/{id}/agent", h.RemoveAgent)

	// Faults
	mux.HandleFunc("GET /api/problems", h.ListProblemKinds)
	mux.HandleFunc("POST /api/problems/inject", h.InjectProblem)
	mux.HandleFunc("DELETE /api/problems", h.ClearAllProblems)
	mux.HandleFunc("GET /api/components/{id}/status", h.GetStatus)
	mux.HandleFunc("POST /api/components/{id}/problems", h.ApplyProblem)
	mux.HandleFunc("DELETE /api/components/{id}/problems", h.ClearProblems)
	mux.HandleFunc("DELETE /api/components/{id}/problems/{kind}", h.ResolveProblem)

	// Simulation
	mux.HandleFunc("GET /api/simulation", h.GetSimulation)
	mux.HandleFunc("GET /api/simulation/packets", h.GetPackets)
	mux.HandleFunc("POST /api/simulation/start", h.StartSimulation)
	mux.HandleFunc("POST /api/simulation/stop", h.StopSimulation)

	// Rules
	mux.HandleFunc("GET /api/rules", h.ListRules)
	mux.HandleFunc("GET /api/rules/{type}/partners", h.GetPartners)

	// Saved topologies
	mux.HandleFunc("GET /api/topologies", h.ListTopologies)
	mux.HandleFunc("PUT /api/topologies/{name}", h.SaveTopology)
	mux.HandleFunc("POST /api/topologies/{name}/load", h.LoadTopology)
	mux.HandleFunc("DELETE /api/topologies/{name}", h.DeleteTopology)

	// Import and export
	mux.HandleFunc("POST /api/import/{format}", h.Import)
	mux.HandleFunc("GET /api/export/{format}", h.Export)
}

// Error response structure
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// GetGraph returns the complete topology with simulation and fault state
func (h *TopologyHandler) GetGraph(w http.ResponseWriter, r *http.Request) {
	snap, err := h.session.Snapshot(r.Context())
	if err != nil {
		h.fail(w, "Failed to get graph", err)
		return
	}
	h.writeJSON(w, snap, http.StatusOK)
}

// GetCatalog returns the component type catalog
func (h *TopologyHandler) GetCatalog(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, domain.Catalog(), http.StatusOK)
}

// PathResponse is the result of a route query
type PathResponse struct {
	From      string   `json:"from"`
	To        string   `json:"to"`
	Path      []string `json:"path"`
	Reachable bool     `json:"reachable"`
}

// FindPath returns the shortest route between two components
func (h *TopologyHandler) FindPath(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	from, to := q.Get("from"), q.Get("to")
	if from == "" || to == "" {
		h.writeError(w, "Invalid query", "from and to are required", http.StatusBadRequest)
		return
	}

	respect := false
	if v := q.Get("respect_faults"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			h.writeError(w, "Invalid query", "respect_faults must be a boolean", http.StatusBadRequest)
			return
		}
		respect = b
	}

	path, err := h.session.FindPath(r.Context(), from, to, respect)
	if err != nil {
		h.fail(w, "Failed to find path", err)
		return
	}
	h.writeJSON(w, PathResponse{From: from, To: to, Path: path, Reachable: len(path) > 0}, http.StatusOK)
}

// GetPartitions returns the connected components of the topology
func (h *TopologyHandler) GetPartitions(w http.ResponseWriter, r *http.Request) {
	parts, err := h.session.Partitions(r.Context())
	if err != nil {
		h.fail(w, "Failed to get partitions", err)
		return
	}
	h.writeJSON(w, parts, http.StatusOK)
}

// HitTest returns the component under a canvas point
func (h *TopologyHandler) HitTest(w http.ResponseWriter, r *http.Request) {
	p, ok := h.queryPoint(w, r)
	if !ok {
		return
	}

	id, hit, err := h.session.HitTest(r.Context(), p)
	if err != nil {
		h.fail(w, "Failed to hit test", err)
		return
	}
	if !hit {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	h.writeJSON(w, map[string]string{"component_id": id}, http.StatusOK)
}

// CreateComponentRequest places a new component on the canvas
type CreateComponentRequest struct {
	Type string       `json:"type"`
	At   domain.Point `json:"position"`
	Name string       `json:"name,omitempty"`
}

// CreateComponent creates a component of a catalog type
func (h *TopologyHandler) CreateComponent(w http.ResponseWriter, r *http.Request) {
	var req CreateComponentRequest
	if !h.decode(w, r, &req) {
		return
	}

	t, ok := domain.ParseComponentType(req.Type)
	if !ok {
		h.fail(w, "Failed to create component", domain.ErrUnknownComponentType)
		return
	}

	c, err := h.session.AddComponent(r.Context(), t, req.At, req.Name)
	if err != nil {
		h.fail(w, "Failed to create component", err)
		return
	}
	h.writeJSON(w, c, http.StatusCreated)
}

// DropRequest is a palette drop: a raw type tag and a canvas point
type DropRequest struct {
	Payload string       `json:"payload"`
	At      domain.Point `json:"position"`
}

// DropComponent handles a palette drop. Unknown payloads are ignored.
func (h *TopologyHandler) DropComponent(w http.ResponseWriter, r *http.Request) {
	var req DropRequest
	if !h.decode(w, r, &req) {
		return
	}

	c, created, err := h.session.DropComponent(r.Context(), req.Payload, req.At)
	if err != nil {
		h.fail(w, "Failed to drop component", err)
		return
	}
	if !created {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	h.writeJSON(w, c, http.StatusCreated)
}

// CreateClientRequest fills a client slot
type CreateClientRequest struct {
	Type string `json:"type"`
	Name string `json:"name,omitempty"`
}

// CreateClient creates the component pinned to client slot a or b
func (h *TopologyHandler) CreateClient(w http.ResponseWriter, r *http.Request) {
	side := domain.ClientSide(r.PathValue("side"))
	if side != domain.ClientA && side != domain.ClientB {
		h.writeError(w, "Invalid client side", "side must be a or b", http.StatusBadRequest)
		return
	}

	var req CreateClientRequest
	if !h.decode(w, r, &req) {
		return
	}

	t, ok := domain.ParseComponentType(req.Type)
	if !ok {
		h.fail(w, "Failed to create client", domain.ErrUnknownComponentType)
		return
	}

	c, err := h.session.AddClient(r.Context(), side, t, req.Name)
	if err != nil {
		h.fail(w, "Failed to create client", err)
		return
	}
	h.writeJSON(w, c, http.StatusCreated)
}

// GetComponent returns a single component
func (h *TopologyHandler) GetComponent(w http.ResponseWriter, r *http.Request) {
	c, err := h.session.Component(r.Context(), r.PathValue("id"))
	if err != nil {
		h.fail(w, "Failed to get component", err)
		return
	}
	h.writeJSON(w, c, http.StatusOK)
}

// UpdateComponent moves, renames, recolors or resizes a component
func (h *TopologyHandler) UpdateComponent(w http.ResponseWriter, r *http.Request) {
	var req service.ComponentUpdate
	if !h.decode(w, r, &req) {
		return
	}

	c, err := h.session.UpdateComponent(r.Context(), r.PathValue("id"), req)
	if err != nil {
		h.fail(w, "Failed to update component", err)
		return
	}
	h.writeJSON(w, c, http.StatusOK)
}

// DeleteComponent removes a component and its connections
func (h *TopologyHandler) DeleteComponent(w http.ResponseWriter, r *http.Request) {
	if err := h.session.RemoveComponent(r.Context(), r.PathValue("id")); err != nil {
		h.fail(w, "Failed to delete component", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetComponentConnections returns every connection touching a component
func (h *TopologyHandler) GetComponentConnections(w http.ResponseWriter, r *http.Request) {
	conns, err := h.session.ConnectionsOf(r.Context(), r.PathValue("id"))
	if err != nil {
		h.fail(w, "Failed to list connections", err)
		return
	}
	h.writeJSON(w, conns, http.StatusOK)
}

// GetAttachment returns the anchor side of a component nearest to a point
func (h *TopologyHandler) GetAttachment(w http.ResponseWriter, r *http.Request) {
	p, ok := h.queryPoint(w, r)
	if !ok {
		return
	}

	side, hit, err := h.session.AttachmentAt(r.Context(), r.PathValue("id"), p)
	if err != nil {
		h.fail(w, "Failed to detect attachment", err)
		return
	}
	if !hit {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	h.writeJSON(w, map[string]domain.AttachmentSide{"side": side}, http.StatusOK)
}

// CreateConnectionRequest links two components
type CreateConnectionRequest struct {
	FromID    string                `json:"from_id"`
	ToID      string                `json:"to_id"`
	Kind      domain.ConnectionKind `json:"kind,omitempty"`
	FromPoint domain.AttachmentSide `json:"from_point,omitempty"`
	ToPoint   domain.AttachmentSide `json:"to_point,omitempty"`
	Control   *domain.Point         `json:"control,omitempty"`
	Curve     domain.CurveStyle     `json:"curve,omitempty"`
}

// CreateConnection links two components when the rule table allows it
func (h *TopologyHandler) CreateConnection(w http.ResponseWriter, r *http.Request) {
	var req CreateConnectionRequest
	if !h.decode(w, r, &req) {
		return
	}

	var opts []topology.ConnectionOption
	if req.FromPoint != "" || req.ToPoint != "" {
		opts = append(opts, topology.WithAttachment(req.FromPoint, req.ToPoint))
	}
	if req.Control != nil {
		opts = append(opts, topology.WithCurve(*req.Control, req.Curve))
	}

	c, err := h.session.AddConnection(r.Context(), req.FromID, req.ToID, req.Kind, opts...)
	if err != nil {
		h.fail(w, "Failed to create connection", err)
		return
	}
	h.writeJSON(w, c, http.StatusCreated)
}

// DeleteConnection removes a connection
func (h *TopologyHandler) DeleteConnection(w http.ResponseWriter, r *http.Request) {
	if err := h.session.RemoveConnection(r.Context(), r.PathValue("id")); err != nil {
		h.fail(w, "Failed to delete connection", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListAgents returns the component to agent assignments
func (h *TopologyHandler) ListAgents(w http.ResponseWriter, r *http.Request) {
	agents, err := h.session.Agents(r.Context())
	if err != nil {
		h.fail(w, "Failed to list agents", err)
		return
	}
	h.writeJSON(w, agents, http.StatusOK)
}

// AssignAgentRequest labels a component
type AssignAgentRequest struct {
	Agent domain.AgentType `json:"agent"`
}

// AssignAgent assigns an agent label to a component
func (h *TopologyHandler) AssignAgent(w http.ResponseWriter, r *http.Request) {
	var req AssignAgentRequest
	if !h.decode(w, r, &req) {
		return
	}
	if req.Agent == "" {
		h.writeError(w, "Invalid request body", "agent is required", http.StatusBadRequest)
		return
	}

	if err := h.session.AssignAgent(r.Context(), r.PathValue("id"), req.Agent); err != nil {
		h.fail(w, "Failed to assign agent", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RemoveAgent clears a component's agent label
func (h *TopologyHandler) RemoveAgent(w http.ResponseWriter, r *http.Request) {
	if err := h.session.RemoveAgent(r.Context(), r.PathValue("id")); err != nil {
		h.fail(w, "Failed to remove agent", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListProblemKinds returns the fault catalog
func (h *TopologyHandler) ListProblemKinds(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, fault.Catalog(), http.StatusOK)
}

// GetStatus returns a component's folded status and active problems
func (h *TopologyHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	st, err := h.session.Status(r.Context(), r.PathValue("id"))
	if err != nil {
		h.fail(w, "Failed to get status", err)
		return
	}
	h.writeJSON(w, st, http.StatusOK)
}

// ApplyProblemRequest names the problem to inject
type ApplyProblemRequest struct {
	Kind string `json:"kind"`
}

// ApplyProblem injects a problem on a component
func (h *TopologyHandler) ApplyProblem(w http.ResponseWriter, r *http.Request) {
	var req ApplyProblemRequest
	if !h.decode(w, r, &req) {
		return
	}

	kind, err := fault.ParseKind(req.Kind)
	if err != nil {
		h.fail(w, "Failed to apply problem", err)
		return
	}

	st, err := h.session.ApplyProblem(r.Context(), r.PathValue("id"), kind)
	if err != nil {
		h.fail(w, "Failed to apply problem", err)
		return
	}
	h.writeJSON(w, st, http.StatusOK)
}

// ResolveProblem clears one problem from a component
func (h *TopologyHandler) ResolveProblem(w http.ResponseWriter, r *http.Request) {
	kind, err := fault.ParseKind(r.PathValue("kind"))
	if err != nil {
		h.fail(w, "Failed to resolve problem", err)
		return
	}

	st, err := h.session.ResolveProblem(r.Context(), r.PathValue("id"), kind)
	if err != nil {
		h.fail(w, "Failed to resolve problem", err)
		return
	}
	h.writeJSON(w, st, http.StatusOK)
}

// ClearProblems clears every problem on a component
func (h *TopologyHandler) ClearProblems(w http.ResponseWriter, r *http.Request) {
	if err := h.session.ClearProblems(r.Context(), r.PathValue("id")); err != nil {
		h.fail(w, "Failed to clear problems", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ClearAllProblems clears every problem in the topology
func (h *TopologyHandler) ClearAllProblems(w http.ResponseWriter, r *http.Request) {
	if err := h.session.ClearProblems(r.Context(), ""); err != nil {
		h.fail(w, "Failed to clear problems", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// InjectProblem applies a random problem to a random component
func (h *TopologyHandler) InjectProblem(w http.ResponseWriter, r *http.Request) {
	inj, ok, err := h.session.InjectRandomProblem(r.Context())
	if err != nil {
		h.fail(w, "Failed to inject problem", err)
		return
	}
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	h.writeJSON(w, inj, http.StatusOK)
}

// GetSimulation returns the scheduler state, stats and in-flight packets
func (h *TopologyHandler) GetSimulation(w http.ResponseWriter, r *http.Request) {
	st, err := h.session.Simulation(r.Context())
	if err != nil {
		h.fail(w, "Failed to get simulation", err)
		return
	}
	h.writeJSON(w, st, http.StatusOK)
}

// GetPackets returns only the in-flight packets with their positions
func (h *TopologyHandler) GetPackets(w http.ResponseWriter, r *http.Request) {
	st, err := h.session.Simulation(r.Context())
	if err != nil {
		h.fail(w, "Failed to get packets", err)
		return
	}
	h.writeJSON(w, st.Packets, http.StatusOK)
}

// StartSimulation starts packet generation between the two clients
func (h *TopologyHandler) StartSimulation(w http.ResponseWriter, r *http.Request) {
	st, err := h.session.StartSimulation(r.Context())
	if err != nil {
		h.fail(w, "Failed to start simulation", err)
		return
	}
	h.writeJSON(w, st, http.StatusOK)
}

// StopSimulation stops the scheduler and clears in-flight packets
func (h *TopologyHandler) StopSimulation(w http.ResponseWriter, r *http.Request) {
	st, err := h.session.StopSimulation(r.Context())
	if err != nil {
		h.fail(w, "Failed to stop simulation", err)
		return
	}
	h.writeJSON(w, st, http.StatusOK)
}

// ListRules returns the rule table
func (h *TopologyHandler) ListRules(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, h.rules.Rules(), http.StatusOK)
}

// GetPartners returns the types a component type may connect to
func (h *TopologyHandler) GetPartners(w http.ResponseWriter, r *http.Request) {
	t, ok := domain.ParseComponentType(r.PathValue("type"))
	if !ok {
		h.fail(w, "Failed to list partners", domain.ErrUnknownComponentType)
		return
	}
	h.writeJSON(w, h.rules.AllowedPartners(t), http.StatusOK)
}

// ListTopologies returns the saved topologies
func (h *TopologyHandler) ListTopologies(w http.ResponseWriter, r *http.Request) {
	list, err := h.session.ListSaved(r.Context())
	if err != nil {
		h.fail(w, "Failed to list topologies", err)
		return
	}
	h.writeJSON(w, list, http.StatusOK)
}

// SaveTopology stores the current topology under a name
func (h *TopologyHandler) SaveTopology(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	changed, err := h.session.Save(r.Context(), name)
	if err != nil {
		h.fail(w, "Failed to save topology", err)
		return
	}
	h.writeJSON(w, map[string]interface{}{"name": name, "changed": changed}, http.StatusOK)
}

// LoadTopology replaces the current topology with a saved one
func (h *TopologyHandler) LoadTopology(w http.ResponseWriter, r *http.Request) {
	report, err := h.session.Load(r.Context(), r.PathValue("name"))
	if err != nil {
		h.fail(w, "Failed to load topology", err)
		return
	}
	h.writeJSON(w, report, http.StatusOK)
}

// DeleteTopology removes a saved topology
func (h *TopologyHandler) DeleteTopology(w http.ResponseWriter, r *http.Request) {
	if err := h.session.DeleteSaved(r.Context(), r.PathValue("name")); err != nil {
		h.fail(w, "Failed to delete topology", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Helper methods

func (h *TopologyHandler) decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		h.writeError(w, "Invalid request body", err.Error(), http.StatusBadRequest)
		return false
	}
	return true
}

func (h *TopologyHandler) queryPoint(w http.ResponseWriter, r *http.Request) (domain.Point, bool) {
	q := r.URL.Query()
	x, errX := strconv.ParseFloat(q.Get("x"), 64)
	y, errY := strconv.ParseFloat(q.Get("y"), 64)
	if errX != nil || errY != nil {
		h.writeError(w, "Invalid query", "x and y must be numbers", http.StatusBadRequest)
		return domain.Point{}, false
	}
	return domain.Pt(x, y), true
}

// fail maps an error onto a status code and writes it
func (h *TopologyHandler) fail(w http.ResponseWriter, msg string, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error(msg, "error", err)
	}
	h.writeError(w, msg, err.Error(), status)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrComponentNotFound),
		errors.Is(err, domain.ErrConnectionNotFound),
		errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrDuplicateComponent),
		errors.Is(err, domain.ErrClientSlotTaken),
		errors.Is(err, domain.ErrClientsUnassigned):
		return http.StatusConflict
	case errors.Is(err, domain.ErrConnectionRejected),
		errors.Is(err, domain.ErrSelfLoop),
		errors.Is(err, domain.ErrZoneViolation),
		errors.Is(err, domain.ErrClientPinned),
		errors.Is(err, domain.ErrNotClientCapable),
		errors.Is(err, domain.ErrCustomColorUnsupported),
		errors.Is(err, domain.ErrNotArea):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrUnknownComponentType),
		errors.Is(err, domain.ErrInvalidConnection),
		errors.Is(err, domain.ErrUnknownProblem):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrNoStore),
		errors.Is(err, service.ErrSessionClosed),
		errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func (h *TopologyHandler) writeJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Warn("Failed to encode JSON", "error", err)
	}
}

func (h *TopologyHandler) writeError(w http.ResponseWriter, error, details string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(ErrorResponse{
		Error:   error,
		Details: details,
	}); err != nil {
		h.logger.Warn("Failed to encode error response", "error", err)
	}
}
