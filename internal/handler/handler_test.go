package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"topolab/internal/codec"
	"topolab/internal/domain"
	"topolab/internal/fault"
	"topolab/internal/metrics"
	"topolab/internal/repository"
	"topolab/internal/repository/sqlite"
	"topolab/internal/rules"
	"topolab/internal/service"
	"topolab/internal/simulation"
	"topolab/internal/spatial"
	"topolab/internal/topology"
)

type testServer struct {
	mux     *http.ServeMux
	handler *TopologyHandler
	ids     topology.SampleIDs
}

func newTestServer(t *testing.T, opts ...service.Option) *testServer {
	t.Helper()
	engine := rules.Default()
	g, ids, err := topology.Sample(engine, spatial.DefaultZones(1000, 600, 120))
	require.NoError(t, err)

	cfg := simulation.DefaultConfig()
	cfg.GenerationInterval = 10 * time.Millisecond
	cfg.AnimationDuration = 20 * time.Millisecond
	cfg.AnimationSteps = 2

	s := service.NewSession(g, cfg, opts...)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	mux := http.NewServeMux()
	h := NewTopologyHandler(s, engine, nil)
	h.Register(mux)
	return &testServer{mux: mux, handler: h, ids: ids}
}

func (ts *testServer) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		r = strings.NewReader(b)
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)
		r = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, r)
	rec := httptest.NewRecorder()
	ts.mux.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestGetGraph(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/api/graph", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	snap := decodeBody[service.Snapshot](t, rec)
	assert.Len(t, snap.Components, 5)
	assert.Len(t, snap.Connections, 4)
	assert.Equal(t, ts.ids.ClientA, snap.ClientA)
	assert.Equal(t, "stopped", snap.Simulation.State)
}

func TestComponentEndpoints(t *testing.T) {
	ts := newTestServer(t)

	t.Run("create snaps to grid", func(t *testing.T) {
		rec := ts.do(t, http.MethodPost, "/api/components", CreateComponentRequest{
			Type: "firewall",
			At:   domain.Pt(503, 408),
			Name: "Edge",
		})
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		c := decodeBody[domain.Component](t, rec)
		assert.Equal(t, domain.Pt(500, 400), c.Position)
		assert.Equal(t, "Edge", c.DisplayName)

		rec = ts.do(t, http.MethodGet, "/api/components/"+c.ID, nil)
		require.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("unknown type", func(t *testing.T) {
		rec := ts.do(t, http.MethodPost, "/api/components", CreateComponentRequest{Type: "toaster", At: domain.Pt(500, 500)})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("client zone is reserved", func(t *testing.T) {
		rec := ts.do(t, http.MethodPost, "/api/components", CreateComponentRequest{Type: "switch", At: domain.Pt(60, 300)})
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		resp := decodeBody[ErrorResponse](t, rec)
		assert.Equal(t, "Failed to create component", resp.Error)
		assert.NotEmpty(t, resp.Details)
	})

	t.Run("unknown drop payload is ignored", func(t *testing.T) {
		rec := ts.do(t, http.MethodPost, "/api/components/drop", DropRequest{Payload: "toaster", At: domain.Pt(500, 500)})
		assert.Equal(t, http.StatusNoContent, rec.Code)
	})

	t.Run("occupied client slot", func(t *testing.T) {
		rec := ts.do(t, http.MethodPost, "/api/clients/a", CreateClientRequest{Type: "laptop"})
		assert.Equal(t, http.StatusConflict, rec.Code)

		rec = ts.do(t, http.MethodPost, "/api/clients/c", CreateClientRequest{Type: "laptop"})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("rename", func(t *testing.T) {
		name := "Core"
		rec := ts.do(t, http.MethodPatch, "/api/components/"+ts.ids.Router, service.ComponentUpdate{DisplayName: &name})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Equal(t, "Core", decodeBody[domain.Component](t, rec).DisplayName)
	})

	t.Run("clients cannot move", func(t *testing.T) {
		p := domain.Pt(500, 100)
		rec := ts.do(t, http.MethodPatch, "/api/components/"+ts.ids.ClientA, service.ComponentUpdate{Position: &p})
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	})

	t.Run("missing component", func(t *testing.T) {
		rec := ts.do(t, http.MethodGet, "/api/components/ghost", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)

		rec = ts.do(t, http.MethodDelete, "/api/components/ghost", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("malformed body", func(t *testing.T) {
		rec := ts.do(t, http.MethodPost, "/api/components", "{not json")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("delete cascades", func(t *testing.T) {
		rec := ts.do(t, http.MethodDelete, "/api/components/"+ts.ids.Switch, nil)
		require.Equal(t, http.StatusNoContent, rec.Code)

		rec = ts.do(t, http.MethodGet, "/api/components/"+ts.ids.Router+"/connections", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Len(t, decodeBody[[]domain.Connection](t, rec), 1)

		rec = ts.do(t, http.MethodGet, "/api/partitions", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Len(t, decodeBody[[][]string](t, rec), 3)
	})
}

func TestConnectionEndpoints(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/api/connections", CreateConnectionRequest{FromID: ts.ids.ClientA, ToID: ts.ids.ClientB})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = ts.do(t, http.MethodPost, "/api/connections", CreateConnectionRequest{FromID: ts.ids.Router, ToID: ts.ids.Router})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = ts.do(t, http.MethodPost, "/api/connections", CreateConnectionRequest{FromID: ts.ids.Router, ToID: ts.ids.Server, Kind: "carrier_pigeon"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, http.MethodPost, "/api/connections", CreateConnectionRequest{
		FromID:    ts.ids.Router,
		ToID:      ts.ids.Server,
		Kind:      domain.ConnectionFiber,
		FromPoint: domain.SideRight,
		ToPoint:   domain.SideLeft,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	c := decodeBody[domain.Connection](t, rec)
	assert.Equal(t, domain.ConnectionFiber, c.Kind)
	require.NotNil(t, c.FromPoint)
	assert.Equal(t, domain.SideRight, *c.FromPoint)

	rec = ts.do(t, http.MethodDelete, "/api/connections/"+c.ID, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = ts.do(t, http.MethodDelete, "/api/connections/"+c.ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPathAndFaults(t *testing.T) {
	ts := newTestServer(t)
	route := "/api/path?from=" + ts.ids.ClientA + "&to=" + ts.ids.ClientB

	rec := ts.do(t, http.MethodGet, route, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	path := decodeBody[PathResponse](t, rec)
	assert.True(t, path.Reachable)
	assert.Equal(t, ts.ids.Path(), path.Path)

	rec = ts.do(t, http.MethodGet, "/api/path?from="+ts.ids.ClientA, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, http.MethodPost, "/api/components/"+ts.ids.Switch+"/problems", ApplyProblemRequest{Kind: string(fault.PowerOff)})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	st := decodeBody[service.ComponentStatus](t, rec)
	assert.False(t, st.Status.PoweredOn)
	assert.Equal(t, []fault.ProblemKind{fault.PowerOff}, st.Problems)

	rec = ts.do(t, http.MethodGet, route+"&respect_faults=true", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	path = decodeBody[PathResponse](t, rec)
	assert.False(t, path.Reachable)
	assert.Empty(t, path.Path)

	rec = ts.do(t, http.MethodGet, route+"&respect_faults=maybe", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, http.MethodPost, "/api/components/"+ts.ids.Switch+"/problems", ApplyProblemRequest{Kind: "gremlins"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, http.MethodDelete, "/api/components/"+ts.ids.Switch+"/problems/"+string(fault.PowerOff), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	st = decodeBody[service.ComponentStatus](t, rec)
	assert.True(t, st.Status.PoweredOn)
	assert.Empty(t, st.Problems)

	rec = ts.do(t, http.MethodPost, "/api/problems/inject", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	inj := decodeBody[fault.Injection](t, rec)
	assert.NotEmpty(t, inj.ComponentID)

	rec = ts.do(t, http.MethodDelete, "/api/problems", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = ts.do(t, http.MethodGet, "/api/components/"+inj.ComponentID+"/status", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decodeBody[service.ComponentStatus](t, rec).Problems)
}

func TestAgentEndpoints(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPut, "/api/components/"+ts.ids.Router+"/agent", AssignAgentRequest{Agent: "defender"})
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = ts.do(t, http.MethodPut, "/api/components/ghost/agent", AssignAgentRequest{Agent: "defender"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = ts.do(t, http.MethodGet, "/api/agents", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]domain.AgentType{ts.ids.Router: "defender"}, decodeBody[map[string]domain.AgentType](t, rec))

	rec = ts.do(t, http.MethodDelete, "/api/components/"+ts.ids.Router+"/agent", nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = ts.do(t, http.MethodGet, "/api/agents", nil)
	assert.Empty(t, decodeBody[map[string]domain.AgentType](t, rec))
}

func TestSimulationEndpoints(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/api/simulation/start", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "running", decodeBody[service.SimulationState](t, rec).State)

	require.Eventually(t, func() bool {
		rec := ts.do(t, http.MethodGet, "/api/simulation", nil)
		return decodeBody[service.SimulationState](t, rec).Stats.Delivered > 0
	}, 2*time.Second, 10*time.Millisecond)

	rec = ts.do(t, http.MethodGet, "/api/simulation/packets", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = ts.do(t, http.MethodPost, "/api/simulation/stop", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	st := decodeBody[service.SimulationState](t, rec)
	assert.Equal(t, "stopped", st.State)
	assert.Empty(t, st.Packets)

	rec = ts.do(t, http.MethodDelete, "/api/components/"+ts.ids.ClientB, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = ts.do(t, http.MethodPost, "/api/simulation/start", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestRuleEndpoints(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/api/rules/router/partners", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, decodeBody[[]domain.ComponentType](t, rec), domain.ComponentTypeSwitch)

	rec = ts.do(t, http.MethodGet, "/api/rules/toaster/partners", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, http.MethodGet, "/api/rules", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, decodeBody[[]rules.Rule](t, rec))

	rec = ts.do(t, http.MethodGet, "/api/catalog", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeBody[[]domain.TypeInfo](t, rec), len(domain.AllComponentTypes()))
}

func TestSavedTopologies(t *testing.T) {
	t.Run("without a store", func(t *testing.T) {
		ts := newTestServer(t)
		rec := ts.do(t, http.MethodPut, "/api/topologies/lab", nil)
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})

	t.Run("save, list, load and delete", func(t *testing.T) {
		repo, err := sqlite.New(":memory:")
		require.NoError(t, err)
		t.Cleanup(func() { repo.Close() })
		ts := newTestServer(t, service.WithStore(repo))

		rec := ts.do(t, http.MethodPut, "/api/topologies/lab", nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Equal(t, true, decodeBody[map[string]interface{}](t, rec)["changed"])

		rec = ts.do(t, http.MethodGet, "/api/topologies", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		list := decodeBody[[]repository.Summary](t, rec)
		require.Len(t, list, 1)
		assert.Equal(t, "lab", list[0].Name)

		rec = ts.do(t, http.MethodPost, "/api/topologies/lab/load", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Empty(t, decodeBody[topology.LoadReport](t, rec).Skipped)

		rec = ts.do(t, http.MethodDelete, "/api/topologies/lab", nil)
		require.Equal(t, http.StatusNoContent, rec.Code)

		rec = ts.do(t, http.MethodPost, "/api/topologies/lab/load", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestImportExport(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/api/export/json", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	exported := rec.Body.String()

	rec = ts.do(t, http.MethodGet, "/api/export/yaml", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "components:")

	rec = ts.do(t, http.MethodGet, "/api/export/visio", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, http.MethodPost, "/api/import/json", exported)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Empty(t, decodeBody[topology.LoadReport](t, rec).Skipped)

	rec = ts.do(t, http.MethodGet, "/api/graph", nil)
	assert.Len(t, decodeBody[service.Snapshot](t, rec).Components, 5)

	rec = ts.do(t, http.MethodPost, "/api/import/json", "{broken")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	t.Run("registered importer", func(t *testing.T) {
		ts.handler.RegisterImporter(singleRouterImporter{})

		rec := ts.do(t, http.MethodPost, "/api/import/single-router", "ignored")
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		report := decodeBody[topology.LoadReport](t, rec)
		require.Len(t, report.Skipped, 1)
		assert.Equal(t, "from importer", report.Skipped[0].Reason)

		rec = ts.do(t, http.MethodGet, "/api/graph", nil)
		snap := decodeBody[service.Snapshot](t, rec)
		require.Len(t, snap.Components, 1)
		assert.Equal(t, domain.ComponentTypeRouter, snap.Components[0].Type)
	})
}

// singleRouterImporter yields one router and one skipped record
type singleRouterImporter struct{}

func (singleRouterImporter) Format() string { return "single-router" }

func (singleRouterImporter) Parse(r io.Reader) (*codec.Result, error) {
	doc := domain.NewDocument()
	doc.AddComponent(domain.NewComponent(domain.ComponentTypeRouter, domain.Pt(400, 300)))
	return &codec.Result{
		Document: doc,
		Skipped:  []domain.SkippedRecord{{Kind: domain.RecordComponent, Index: 1, Reason: "from importer"}},
	}, nil
}

func TestMiddleware(t *testing.T) {
	t.Run("metrics label by route pattern", func(t *testing.T) {
		reg := metrics.NewRegistry()
		mux := http.NewServeMux()
		mux.HandleFunc("GET /api/things/{id}", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTeapot)
		})
		h := Chain(mux, Metrics(reg))

		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/things/1", nil))
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/things/2", nil))

		got := testutil.ToFloat64(reg.HTTPRequestsTotal.WithLabelValues("GET", "GET /api/things/{id}", "418"))
		assert.Equal(t, 2.0, got)
	})

	t.Run("recover", func(t *testing.T) {
		h := Chain(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			panic("boom")
		}), Recover(slog.New(slog.NewTextHandler(io.Discard, nil))))

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})

	t.Run("cors preflight", func(t *testing.T) {
		h := Chain(http.NotFoundHandler(), CORS)

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/api/graph", nil))
		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	})
}
