package web

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"workstation-engine/internal/engine"
	"workstation-engine/internal/inventory"
	"workstation-engine/internal/process"
	"workstation-engine/internal/registry"
	"workstation-engine/internal/resource"
	"workstation-engine/internal/station"
	"workstation-engine/internal/timer"
	"workstation-engine/internal/types"
)

type fixture struct {
	inv     *inventory.Memory
	tracker *StateTracker
	hub     *Hub
	handler http.Handler
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	inv := inventory.NewMemory(0, 0)
	reg := registry.New(process.NewFactory(process.Env{Items: inv, Fluids: inv}), registry.StaticSource{
		{ID: "log_to_planks", Type: "woodworking", Parts: []process.PartSpec{
			{Kind: "item_input", Items: []process.ItemAmount{{Kind: "log", Count: 1}}},
			{Kind: "item_output", Items: []process.ItemAmount{{Kind: "plank", Count: 4}}},
			{Kind: "duration", Duration: process.Duration(2 * time.Second)},
		}},
		{ID: "fill_bucket", Type: "pumping", Parts: []process.PartSpec{
			{Kind: "fluid_input", Fluids: []process.FluidAmount{{Kind: "water", Volume: 100}}},
			{Kind: "item_output", Items: []process.ItemAmount{{Kind: "water_bucket", Count: 1}}},
		}},
	}, nil)

	stations := station.NewDirectory()
	require.NoError(t, stations.Add(station.NewWorkstation("bench", types.SlotLayout{
		types.CategoryInput:      {Start: 0, Count: 1},
		types.CategoryOutput:     {Start: 1, Count: 1},
		types.CategoryFluidInput: {Slots: []int{0}},
	}, map[string]types.ProcessTypeSupport{"woodworking": {}, "pumping": {}})))

	auth := engine.NewAuthority(reg, stations, timer.NewManualClock(time.Unix(0, 0)), nil, nil, nil)
	inv.SetItemValidator(auth.ValidateItemInsertion)
	inv.SetFluidValidator(auth.ValidateFluidInsertion)
	inv.OnChange(auth.NotifyStateChanged)

	hub := NewHub(nil)
	tracker := NewStateTracker(hub)
	tracker.AddWorkstation("bench")
	return &fixture{inv: inv, tracker: tracker, hub: hub, handler: NewServer(auth, reg, inv, tracker, hub, nil).Routes()}
}

func (f *fixture) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func TestRequestProcessFlow(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/api/workstations/bench/process", `{"process_id":"log_to_planks"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/workstations/bench/items", `{"slot":0,"kind":"log","count":1,"actor":"player"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = f.do(t, http.MethodPost, "/api/workstations/bench/process", `{"process_id":"log_to_planks","instigator":"player"}`)
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	var info engine.InstanceInfo
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&info))
	assert.Equal(t, types.ActorID("player"), info.Instigator)
	assert.Equal(t, "woodworking", info.ProcessType)
	assert.NotEmpty(t, rec.Header().Get("X-Trace-ID"))

	rec = f.do(t, http.MethodPost, "/api/workstations/bench/process", `{"process_id":"log_to_planks"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/workstations/bench/processes", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var views []struct {
		ID      string               `json:"id"`
		Running *engine.InstanceInfo `json:"running"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&views))
	require.Len(t, views, 2)
	for _, v := range views {
		if v.ID == "log_to_planks" {
			require.NotNil(t, v.Running)
			assert.Equal(t, info.ID, v.Running.ID)
		} else {
			assert.Nil(t, v.Running)
		}
	}
}

func TestStatusCodes(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		want   int
	}{
		{"unknown workstation", http.MethodPost, "/api/workstations/ghost/process", `{"process_id":"log_to_planks"}`, http.StatusNotFound},
		{"unknown process", http.MethodPost, "/api/workstations/bench/process", `{"process_id":"nope"}`, http.StatusNotFound},
		{"bad json", http.MethodPost, "/api/workstations/bench/process", `{`, http.StatusBadRequest},
		{"missing count", http.MethodPost, "/api/workstations/bench/items", `{"slot":0,"kind":"log"}`, http.StatusBadRequest},
		{"rejected item", http.MethodPost, "/api/workstations/bench/items", `{"slot":0,"kind":"stone","count":1}`, http.StatusForbidden},
		{"output slot", http.MethodPost, "/api/workstations/bench/items", `{"slot":1,"kind":"plank","count":1}`, http.StatusForbidden},
		{"items unknown workstation", http.MethodPost, "/api/workstations/ghost/items", `{"slot":0,"kind":"log","count":1}`, http.StatusNotFound},
		{"no room", http.MethodPost, "/api/workstations/bench/items", `{"slot":0,"kind":"log","count":100}`, http.StatusConflict},
		{"processes unknown workstation", http.MethodGet, "/api/workstations/ghost/processes", "", http.StatusNotFound},
		{"wrong method", http.MethodGet, "/api/workstations/bench/process", "", http.StatusMethodNotAllowed},
		{"reset", http.MethodPost, "/api/processes/reset", "", http.StatusNoContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(t, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
		})
	}
}

func TestFluidInsertionStartsNothingManual(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/api/workstations/bench/fluids", `{"slot":0,"kind":"water","volume":250}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var fluids map[int]resource.Fluid
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&fluids))
	assert.Equal(t, resource.Fluid{Kind: "water", Volume: 250}, fluids[0])

	rec = f.do(t, http.MethodPost, "/api/workstations/bench/fluids", `{"slot":0,"kind":"lava","volume":10}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = f.do(t, http.MethodPost, "/api/workstations/bench/fluids", `{"slot":0,"kind":"water"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/workstations/bench/process", `{"process_id":"fill_bucket"}`)
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	assert.Equal(t, 1, f.inv.Items("bench")[1].Count)
	assert.InDelta(t, 150, f.inv.Fluids("bench")[0].Volume, 0.001)
}

func TestStateEndpoint(t *testing.T) {
	f := newFixture(t)
	f.tracker.ProcessRejected("bench")

	req := httptest.NewRequest(http.MethodGet, "/api/state", nil)
	req.Header.Set("X-Trace-ID", "trace-1")
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "trace-1", rec.Header().Get("X-Trace-ID"))
	var state GlobalState
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&state))
	assert.Equal(t, 1, state.Workstations["bench"].Rejected)
}

func TestWebSocketReceivesSnapshotAndUpdates(t *testing.T) {
	f := newFixture(t)
	go f.hub.Run()

	srv := httptest.NewServer(f.handler)
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws", nil)
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))

	var snapshot GlobalState
	require.NoError(t, conn.ReadJSON(&snapshot))
	assert.Contains(t, snapshot.Workstations, types.WorkstationID("bench"))

	require.Eventually(t, func() bool { return f.hub.Clients() == 1 }, time.Second, 10*time.Millisecond)
	f.tracker.ProcessRejected("bench")
	for {
		var update GlobalState
		require.NoError(t, conn.ReadJSON(&update))
		if update.Workstations["bench"].Rejected == 1 {
			break
		}
	}
}

func TestMetricsEndpoint(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, bytes.Contains(rec.Body.Bytes(), []byte("go_goroutines")))
}
