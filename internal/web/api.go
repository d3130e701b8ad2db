package web

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"workstation-engine/internal/engine"
	"workstation-engine/internal/inventory"
	"workstation-engine/internal/process"
	"workstation-engine/internal/registry"
	"workstation-engine/internal/resource"
	"workstation-engine/internal/types"
	"workstation-engine/internal/util"
)

// Server 暴露工作站的 HTTP API
type Server struct {
	authority *engine.Authority
	registry  *registry.Registry
	inv       *inventory.Memory
	tracker   *StateTracker
	hub       *Hub
	logger    *slog.Logger
}

// NewServer 创建 API 服务，hub 为空时不提供 /ws
func NewServer(a *engine.Authority, reg *registry.Registry, inv *inventory.Memory, st *StateTracker, hub *Hub, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{authority: a, registry: reg, inv: inv, tracker: st, hub: hub, logger: logger.With("component", "api")}
}

// Routes 返回注册好所有路由的 handler
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	if s.hub != nil {
		mux.HandleFunc("/ws", s.hub.ServeWs)
	}
	mux.HandleFunc("GET /api/state", s.handleState)
	mux.HandleFunc("GET /api/workstations/{id}/processes", s.handleProcesses)
	mux.HandleFunc("POST /api/workstations/{id}/process", s.handleRequestProcess)
	mux.HandleFunc("POST /api/workstations/{id}/items", s.handlePutItem)
	mux.HandleFunc("POST /api/workstations/{id}/fluids", s.handlePutFluid)
	mux.HandleFunc("POST /api/processes/reset", s.handleReset)
	return s.withTrace(mux)
}

// withTrace 为每个请求生成 Trace ID 并写入响应头
func (s *Server) withTrace(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		traceID := r.Header.Get("X-Trace-ID")
		if traceID == "" {
			traceID = util.NewTraceID()
		}
		w.Header().Set("X-Trace-ID", traceID)
		next.ServeHTTP(w, r.WithContext(util.ContextWithTraceID(r.Context(), traceID)))
	})
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.tracker.GetStateSnapshot())
}

type processView struct {
	process.Description
	Running *engine.InstanceInfo `json:"running,omitempty"`
}

func (s *Server) handleProcesses(w http.ResponseWriter, r *http.Request) {
	id := types.WorkstationID(r.PathValue("id"))
	procs, err := s.authority.Processes(id)
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	running := make(map[string]engine.InstanceInfo)
	for _, inst := range s.authority.InFlight(id) {
		running[inst.ProcessType] = inst
	}
	out := make([]processView, 0, len(procs))
	for _, p := range procs {
		v := processView{Description: p.Describe()}
		if inst, ok := running[p.Type()]; ok && inst.ProcessID == p.ID() {
			v.Running = &inst
		}
		out = append(out, v)
	}
	writeJSON(w, http.StatusOK, out)
}

type processRequest struct {
	ProcessID  string        `json:"process_id"`
	Instigator types.ActorID `json:"instigator"`
}

func (s *Server) handleRequestProcess(w http.ResponseWriter, r *http.Request) {
	id := types.WorkstationID(r.PathValue("id"))
	var req processRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.logger.Warn("解析开工请求失败", "error", err)
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if req.Instigator == "" {
		req.Instigator = "api"
	}
	inst, err := s.authority.RequestProcess(r.Context(), req.Instigator, id, req.ProcessID)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusAccepted, inst.Info())
}

type itemRequest struct {
	Slot  int           `json:"slot"`
	Kind  string        `json:"kind"`
	Count int           `json:"count"`
	Actor types.ActorID `json:"actor"`
}

func (s *Server) handlePutItem(w http.ResponseWriter, r *http.Request) {
	id := types.WorkstationID(r.PathValue("id"))
	var req itemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if req.Kind == "" || req.Count <= 0 {
		writeError(w, http.StatusBadRequest, errors.New("kind and a positive count are required"))
		return
	}
	if _, err := s.authority.Processes(id); err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	if err := s.inv.Put(id, req.Actor, req.Slot, resource.Stack{Kind: req.Kind, Count: req.Count}); err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, s.inv.Items(id))
}

type fluidRequest struct {
	Slot   int           `json:"slot"`
	Kind   string        `json:"kind"`
	Volume float64       `json:"volume"`
	Actor  types.ActorID `json:"actor"`
}

func (s *Server) handlePutFluid(w http.ResponseWriter, r *http.Request) {
	id := types.WorkstationID(r.PathValue("id"))
	var req fluidRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if req.Kind == "" || req.Volume <= 0 {
		writeError(w, http.StatusBadRequest, errors.New("kind and a positive volume are required"))
		return
	}
	if _, err := s.authority.Processes(id); err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	if err := s.inv.PutFluid(id, req.Actor, req.Slot, resource.Fluid{Kind: req.Kind, Volume: req.Volume}); err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, s.inv.Fluids(id))
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	s.registry.Reset()
	s.logger.Info("工艺模板已重新加载")
	w.WriteHeader(http.StatusNoContent)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, engine.ErrUnknownWorkstation), errors.Is(err, engine.ErrUnknownProcess):
		return http.StatusNotFound
	case errors.Is(err, engine.ErrAlreadyRunning), errors.Is(err, inventory.ErrNoRoom):
		return http.StatusConflict
	case errors.Is(err, engine.ErrNotViable):
		return http.StatusUnprocessableEntity
	case errors.Is(err, inventory.ErrRejected):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
