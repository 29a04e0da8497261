package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"

	"flowcanvas/internal/canvas"
	"flowcanvas/internal/codec"
	"flowcanvas/internal/domain"
	"flowcanvas/internal/execution"
	"flowcanvas/internal/service"
)

// maxBodyBytes caps request bodies. Exported projects may carry inline
// media as data URIs.
const maxBodyBytes = 32 << 20

// ProjectHandler handles project API requests
type ProjectHandler struct {
	svc    *service.ProjectService
	canvas canvas.Config
}

// NewProjectHandler creates a new project handler
func NewProjectHandler(svc *service.ProjectService) *ProjectHandler {
	return &ProjectHandler{svc: svc, canvas: canvas.DefaultConfig()}
}

// SetCanvasConfig sets the interaction tuning served to editors
func (h *ProjectHandler) SetCanvasConfig(c canvas.Config) {
	h.canvas = c
}

// Register mounts every API route on mux
func (h *ProjectHandler) Register(mux *http.ServeMux) {
	// Project endpoints
	mux.HandleFunc("GET /api/projects", h.ListProjects)
	mux.HandleFunc("POST /api/projects", h.CreateProject)
	mux.HandleFunc("GET /api/projects/{id}", h.GetProject)
	mux.HandleFunc("DELETE /api/projects/{id}", h.DeleteProject)
	mux.HandleFunc("PUT /api/projects/{id}/viewport", h.SaveViewport)

	// Node endpoints
	mux.HandleFunc("POST /api/projects/{id}/nodes", h.CreateNode)
	mux.HandleFunc("PATCH /api/projects/{id}/nodes/{nodeID}", h.UpdateNode)
	mux.HandleFunc("PUT /api/projects/{id}/nodes/{nodeID}/position", h.MoveNode)
	mux.HandleFunc("DELETE /api/projects/{id}/nodes/{nodeID}", h.DeleteNode)
	mux.HandleFunc("GET /api/projects/{id}/nodes/{nodeID}/context", h.NodeContext)

	// Edge endpoints
	mux.HandleFunc("POST /api/projects/{id}/edges", h.CreateEdge)
	mux.HandleFunc("DELETE /api/projects/{id}/edges/{edgeID}", h.DeleteEdge)

	// Group endpoints
	mux.HandleFunc("POST /api/projects/{id}/groups", h.CreateGroup)
	mux.HandleFunc("DELETE /api/projects/{id}/groups/{groupID}", h.Ungroup)

	// Execution endpoints
	mux.HandleFunc("POST /api/projects/{id}/nodes/{nodeID}/run", h.RunNode)
	mux.HandleFunc("POST /api/projects/{id}/run", h.RunWorkflow)

	// Import/export endpoints
	mux.HandleFunc("GET /api/projects/{id}/export/{format}", h.Export)
	mux.HandleFunc("POST /api/import/{format}", h.Import)

	mux.HandleFunc("GET /api/node-types", h.NodeTypes)
	mux.HandleFunc("GET /api/canvas", h.CanvasSettings)
}

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// ============================================================================
// Projects
// ============================================================================

// ListProjects returns project summaries, most recent first
func (h *ProjectHandler) ListProjects(w http.ResponseWriter, r *http.Request) {
	projects, err := h.svc.ListProjects(r.Context())
	if err != nil {
		h.fail(w, "Failed to list projects", err)
		return
	}
	h.writeJSON(w, projects, http.StatusOK)
}

// CreateProjectRequest is the body of POST /api/projects
type CreateProjectRequest struct {
	Name string `json:"name"`
}

// CreateProject creates an empty project
func (h *ProjectHandler) CreateProject(w http.ResponseWriter, r *http.Request) {
	var req CreateProjectRequest
	if !h.decodeOptional(w, r, &req) {
		return
	}

	p, err := h.svc.CreateProject(r.Context(), req.Name)
	if err != nil {
		h.fail(w, "Failed to create project", err)
		return
	}
	h.writeJSON(w, p, http.StatusCreated)
}

// GetProject returns a project with its graph and viewport
func (h *ProjectHandler) GetProject(w http.ResponseWriter, r *http.Request) {
	p, err := h.svc.GetProject(r.Context(), r.PathValue("id"))
	if err != nil {
		h.fail(w, "Failed to get project", err)
		return
	}
	h.writeJSON(w, p, http.StatusOK)
}

// DeleteProject removes a project
func (h *ProjectHandler) DeleteProject(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteProject(r.Context(), r.PathValue("id")); err != nil {
		h.fail(w, "Failed to delete project", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SaveViewport stores the camera
func (h *ProjectHandler) SaveViewport(w http.ResponseWriter, r *http.Request) {
	var v domain.Viewport
	if !h.decode(w, r, &v) {
		return
	}
	if err := h.svc.SaveViewport(r.Context(), r.PathValue("id"), v); err != nil {
		if errors.Is(err, service.ErrProjectNotFound) {
			h.fail(w, "Failed to save viewport", err)
			return
		}
		h.writeError(w, "Invalid viewport", err.Error(), http.StatusBadRequest)
		return
	}
	h.writeJSON(w, v, http.StatusOK)
}

// ============================================================================
// Nodes
// ============================================================================

// CreateNode adds a node of a registered type
func (h *ProjectHandler) CreateNode(w http.ResponseWriter, r *http.Request) {
	var spec service.NodeSpec
	if !h.decode(w, r, &spec) {
		return
	}

	n, err := h.svc.AddNode(r.Context(), r.PathValue("id"), spec)
	if err != nil {
		h.fail(w, "Failed to create node", err)
		return
	}
	h.writeJSON(w, n, http.StatusCreated)
}

// UpdateNode merges the body into the node's data
func (h *ProjectHandler) UpdateNode(w http.ResponseWriter, r *http.Request) {
	var patch domain.DataPatch
	if !h.decode(w, r, &patch) {
		return
	}

	n, err := h.svc.UpdateNode(r.Context(), r.PathValue("id"), r.PathValue("nodeID"), patch)
	if err != nil {
		h.fail(w, "Failed to update node", err)
		return
	}
	h.writeJSON(w, n, http.StatusOK)
}

// MoveNode places a node at {x, y}
func (h *ProjectHandler) MoveNode(w http.ResponseWriter, r *http.Request) {
	var pos domain.Point
	if !h.decode(w, r, &pos) {
		return
	}

	n, err := h.svc.MoveNode(r.Context(), r.PathValue("id"), r.PathValue("nodeID"), pos.X, pos.Y)
	if err != nil {
		h.fail(w, "Failed to move node", err)
		return
	}
	h.writeJSON(w, n, http.StatusOK)
}

// DeleteNode removes a node and its edges
func (h *ProjectHandler) DeleteNode(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteNodes(r.Context(), r.PathValue("id"), r.PathValue("nodeID")); err != nil {
		h.fail(w, "Failed to delete node", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// NodeContext previews what a node would receive if it ran now
func (h *ProjectHandler) NodeContext(w http.ResponseWriter, r *http.Request) {
	ec, err := h.svc.NodeContext(r.Context(), r.PathValue("id"), r.PathValue("nodeID"))
	if err != nil {
		h.fail(w, "Failed to build context", err)
		return
	}
	h.writeJSON(w, ec, http.StatusOK)
}

// ============================================================================
// Edges and groups
// ============================================================================

// CreateEdge connects two nodes. Missing handles are auto-matched.
func (h *ProjectHandler) CreateEdge(w http.ResponseWriter, r *http.Request) {
	var spec service.EdgeSpec
	if !h.decode(w, r, &spec) {
		return
	}
	if spec.Source == "" || spec.Target == "" {
		h.writeError(w, "Invalid edge", "source and target are required", http.StatusBadRequest)
		return
	}

	e, err := h.svc.Connect(r.Context(), r.PathValue("id"), spec)
	if err != nil {
		h.fail(w, "Failed to create edge", err)
		return
	}
	h.writeJSON(w, e, http.StatusCreated)
}

// DeleteEdge removes an edge
func (h *ProjectHandler) DeleteEdge(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Disconnect(r.Context(), r.PathValue("id"), r.PathValue("edgeID")); err != nil {
		h.fail(w, "Failed to delete edge", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GroupRequest is the body of POST /api/projects/{id}/groups
type GroupRequest struct {
	NodeIDs []string `json:"node_ids"`
}

// CreateGroup wraps the listed nodes in a new group
func (h *ProjectHandler) CreateGroup(w http.ResponseWriter, r *http.Request) {
	var req GroupRequest
	if !h.decode(w, r, &req) {
		return
	}

	g, err := h.svc.CreateGroup(r.Context(), r.PathValue("id"), req.NodeIDs)
	if err != nil {
		h.fail(w, "Failed to create group", err)
		return
	}
	h.writeJSON(w, g, http.StatusCreated)
}

// Ungroup releases a group's children
func (h *ProjectHandler) Ungroup(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Ungroup(r.Context(), r.PathValue("id"), r.PathValue("groupID")); err != nil {
		h.fail(w, "Failed to ungroup", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ============================================================================
// Execution
// ============================================================================

// RunNode executes one node and returns it with its new status
func (h *ProjectHandler) RunNode(w http.ResponseWriter, r *http.Request) {
	n, err := h.svc.RunNode(r.Context(), r.PathValue("id"), r.PathValue("nodeID"))
	if err != nil {
		h.fail(w, "Failed to run node", err)
		return
	}
	h.writeJSON(w, n, http.StatusOK)
}

// RunRequest is the optional body of POST /api/projects/{id}/run
type RunRequest struct {
	Targets []string `json:"targets"`
}

// RunWorkflow runs the upstream closure of the targets, or every node
func (h *ProjectHandler) RunWorkflow(w http.ResponseWriter, r *http.Request) {
	var req RunRequest
	if !h.decodeOptional(w, r, &req) {
		return
	}

	report, err := h.svc.RunWorkflow(r.Context(), r.PathValue("id"), req.Targets...)
	if err != nil {
		h.fail(w, "Failed to run workflow", err)
		return
	}
	h.writeJSON(w, report, http.StatusOK)
}

// NodeTypes returns the registry catalogue
func (h *ProjectHandler) NodeTypes(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, h.svc.Registry().Catalog(), http.StatusOK)
}

// CanvasSettingsResponse is the editor tuning with durations in milliseconds
type CanvasSettingsResponse struct {
	MinZoom         float64 `json:"minZoom"`
	MaxZoom         float64 `json:"maxZoom"`
	ZoomSensitivity float64 `json:"zoomSensitivity"`
	ZoomStep        float64 `json:"zoomStep"`
	HeaderScaleMin  float64 `json:"headerScaleMin"`
	HeaderScaleMax  float64 `json:"headerScaleMax"`
	LongPressMs     int64   `json:"longPressMs"`
	MoveThreshold   float64 `json:"moveThreshold"`
	ClickThreshold  float64 `json:"clickThreshold"`
	PortRadius      float64 `json:"portRadius"`
	SnapRadius      float64 `json:"snapRadius"`
}

// CanvasSettings returns the interaction tuning
func (h *ProjectHandler) CanvasSettings(w http.ResponseWriter, r *http.Request) {
	c := h.canvas
	h.writeJSON(w, CanvasSettingsResponse{
		MinZoom:         c.MinZoom,
		MaxZoom:         c.MaxZoom,
		ZoomSensitivity: c.ZoomSensitivity,
		ZoomStep:        c.ZoomStep,
		HeaderScaleMin:  c.HeaderScaleMin,
		HeaderScaleMax:  c.HeaderScaleMax,
		LongPressMs:     c.LongPress.Milliseconds(),
		MoveThreshold:   c.MoveThreshold,
		ClickThreshold:  c.ClickThreshold,
		PortRadius:      c.PortRadius,
		SnapRadius:      c.SnapRadius,
	}, http.StatusOK)
}

// ============================================================================
// Import/export
// ============================================================================

// Export downloads a project as json, yaml or toml
func (h *ProjectHandler) Export(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	c, err := codec.ForFormat(r.PathValue("format"))
	if err != nil {
		h.fail(w, "Failed to export project", err)
		return
	}

	// Buffer so a failed export can still report an error
	var buf bytes.Buffer
	if err := h.svc.Export(r.Context(), id, c.Format(), &buf); err != nil {
		h.fail(w, "Failed to export project", err)
		return
	}

	w.Header().Set("Content-Type", codec.ContentType(c.Format()))
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s.%s", id, c.Format()))
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		log.Printf("Failed to write export: %v", err)
	}
}

// Import stores a project document, replacing one with the same id
func (h *ProjectHandler) Import(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	p, err := h.svc.Import(r.Context(), r.PathValue("format"), r.Body)
	if err != nil {
		if statusFor(err) == http.StatusInternalServerError {
			// Anything the service does not classify is a bad document
			h.writeError(w, "Invalid document", err.Error(), http.StatusBadRequest)
			return
		}
		h.fail(w, "Failed to import project", err)
		return
	}
	h.writeJSON(w, p, http.StatusCreated)
}

// ============================================================================
// Helpers
// ============================================================================

// statusFor maps service and domain errors to HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrProjectNotFound),
		errors.Is(err, domain.ErrNodeNotFound),
		errors.Is(err, domain.ErrEdgeNotFound):
		return http.StatusNotFound

	case errors.Is(err, service.ErrNodeRunning),
		errors.Is(err, domain.ErrDuplicateEdge),
		errors.Is(err, domain.ErrHandleOccupied),
		errors.Is(err, domain.ErrDuplicateNode):
		return http.StatusConflict

	case errors.Is(err, service.ErrInvalidNode),
		errors.Is(err, domain.ErrSelfConnection),
		errors.Is(err, domain.ErrPortNotFound),
		errors.Is(err, domain.ErrIncompatiblePorts),
		errors.Is(err, domain.ErrNotGroup),
		errors.Is(err, domain.ErrEmptySelection),
		errors.Is(err, codec.ErrUnknownFormat),
		errors.Is(err, execution.ErrCycle),
		errors.Is(err, execution.ErrNotRunnable):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func (h *ProjectHandler) fail(w http.ResponseWriter, msg string, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		log.Printf("%s: %v", msg, err)
	}
	h.writeError(w, msg, err.Error(), status)
}

// decode reads a required JSON body
func (h *ProjectHandler) decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		h.writeError(w, "Invalid request body", err.Error(), http.StatusBadRequest)
		return false
	}
	return true
}

// decodeOptional reads a JSON body that may be empty
func (h *ProjectHandler) decodeOptional(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		h.writeError(w, "Invalid request body", err.Error(), http.StatusBadRequest)
		return false
	}
	return true
}

func (h *ProjectHandler) writeJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("Failed to encode JSON: %v", err)
	}
}

func (h *ProjectHandler) writeError(w http.ResponseWriter, error, details string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(ErrorResponse{
		Error:   error,
		Details: details,
	}); err != nil {
		log.Printf("Failed to encode error response: %v", err)
	}
}
