// Package httpserver implements external interfaces: a chi router
// exposing /health, /tools/*, /agents/*, and an MCP JSON-RPC transport
// mounted at /mcp, following fbrzx-airplane-chat's chi router/middleware
// wiring and writeJSON/writeError helper shape.
package httpserver

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/contextharness/ctx/internal/apperr"
	"github.com/contextharness/ctx/internal/registry"
)

// Server wires the tool/agent registry to HTTP, plus a health endpoint
// reporting reload/store metrics per .
type Server struct {
	router   chi.Router
	reg      *registry.Registry
	health   HealthFunc
	mcpMount http.Handler // built by MountMCP in mcp.go; nil until MountMCP is called
}

// HealthFunc reports the fields adds to `GET /health`:
// document/chunk counts, pending-embedding count, last reload time.
type HealthFunc func() HealthStatus

// HealthStatus is /health's JSON body.
type HealthStatus struct {
	Status           string    `json:"status"`
	Documents        int       `json:"documents"`
	Chunks           int       `json:"chunks"`
	PendingEmbeds    int       `json:"pending_embeds"`
	RegistryReloaded time.Time `json:"registry_reloaded_at"`
	ToolCount        int       `json:"tool_count"`
	AgentCount       int       `json:"agent_count"`
}

// New builds a Server around reg, serving health checks via health.
func New(reg *registry.Registry, health HealthFunc) *Server {
	s := &Server{reg: reg, health: health}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/health", s.handleHealth)
	r.Post("/tools/search", s.handleInvokeTool("search"))
	r.Post("/tools/get", s.handleInvokeTool("get"))
	r.Get("/tools/sources", s.handleInvokeToolNoBody("sources"))
	r.Get("/tools/list", s.handleListTools)
	r.Post("/tools/{name}", s.handleInvokeNamedTool)
	r.Get("/agents/list", s.handleListAgents)
	r.Post("/agents/{name}/prompt", s.handleResolveAgent)

	s.router = r
	return s
}

// Handler returns the router's http.Handler, extended with /mcp if MountMCP
// was called.
func (s *Server) Handler() http.Handler {
	return s.router
}

// handleHealth always reports Status "ok"; a Status set by the HealthFunc is
// replaced, and only its counts and timestamps reach the response.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := HealthStatus{Status: "ok"}
	if s.health != nil {
		status = s.health()
		status.Status = "ok"
	}
	writeJSON(w, http.StatusOK, status)
}

func (s *Server) handleListTools(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"tools": s.reg.ListTools()})
}

func (s *Server) handleListAgents(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"agents": s.reg.ListAgents()})
}

func (s *Server) handleInvokeTool(name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.invokeAndWrite(w, r, name)
	}
}

func (s *Server) handleInvokeToolNoBody(name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		out, err := s.reg.InvokeTool(r.Context(), name, map[string]any{})
		if err != nil {
			writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func (s *Server) handleInvokeNamedTool(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	s.invokeAndWrite(w, r, name)
}

func (s *Server) invokeAndWrite(w http.ResponseWriter, r *http.Request, name string) {
	params := map[string]any{}
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
			writeAppError(w, apperr.E(apperr.BadRequest, "malformed JSON body", err))
			return
		}
	}
	out, err := s.reg.InvokeTool(r.Context(), name, params)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleResolveAgent(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	args := map[string]any{}
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&args); err != nil {
			writeAppError(w, apperr.E(apperr.BadRequest, "malformed JSON body", err))
			return
		}
	}
	res, err := s.reg.ResolveAgent(r.Context(), name, args)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// writeAppError renders err 's `{ "error": { code, message, details? } }`
// shape, choosing the HTTP status from the apperr taxonomy.
func writeAppError(w http.ResponseWriter, err error) {
	ae, ok := apperr.As(err)
	if !ok {
		ae = apperr.E(apperr.Internal, err.Error(), err)
	}
	body := map[string]any{
		"error": map[string]any{
			"code":    ae.Code,
			"message": ae.Message,
		},
	}
	if ae.Details != nil {
		body["error"].(map[string]any)["details"] = ae.Details
	}
	writeJSON(w, apperr.HTTPStatus(ae.Code), body)
}
