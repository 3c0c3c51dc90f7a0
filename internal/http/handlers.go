package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/heliumweb/helium/backend/internal/domain/extension"
	"github.com/heliumweb/helium/backend/internal/domain/isolation"
	"github.com/heliumweb/helium/backend/internal/domain/permissions"
	"github.com/heliumweb/helium/backend/internal/domain/recovery"
	"github.com/heliumweb/helium/backend/internal/infrastructure/monitoring"
	"github.com/heliumweb/helium/backend/internal/shared/types"
)

// Handlers contains all HTTP handlers
type Handlers struct {
	coordinator *extension.Coordinator
	sessions    *isolation.Manager
	permissions *permissions.Engine
	recovery    *recovery.Manager
	store       extension.Store
	metrics     *monitoring.Metrics
}

// NewHandlers creates a new handler set
func NewHandlers(
	coordinator *extension.Coordinator,
	sessions *isolation.Manager,
	permissions *permissions.Engine,
	recovery *recovery.Manager,
	store extension.Store,
	metrics *monitoring.Metrics,
) *Handlers {
	return &Handlers{
		coordinator: coordinator,
		sessions:    sessions,
		permissions: permissions,
		recovery:    recovery,
		store:       store,
		metrics:     metrics,
	}
}

// Root handles the service banner
func (h *Handlers) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "online",
		"service": "Helium Extension Host (Go)",
		"version": "0.3.0",
	})
}

// Health handles detailed health check
func (h *Handlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":     "healthy",
		"extensions": h.coordinator.Stats(),
		"sessions":   h.sessions.Stats(),
		"engine":     gin.H{"breaker": h.coordinator.EngineBreakerState().String()},
	})
}

// ListExtensions lists all registered extensions
func (h *Handlers) ListExtensions(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"extensions": h.coordinator.List(),
		"stats":      h.coordinator.Stats(),
	})
}

// GetExtension returns one extension record
func (h *Handlers) GetExtension(c *gin.Context) {
	ext, ok := h.coordinator.Get(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "extension not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"extension": ext})
}

// addRequest is the install payload: a local path or a package URL
type addRequest struct {
	Path string `json:"path"`
	URL  string `json:"url"`
}

// AddExtension installs an extension from a path or URL
func (h *Handlers) AddExtension(c *gin.Context) {
	var req addRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if req.Path == "" && req.URL == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "path or url is required"})
		return
	}

	var (
		ext *types.Extension
		err error
	)
	if req.URL != "" {
		ext, err = h.coordinator.AddURL(c.Request.Context(), req.URL)
	} else {
		ext, err = h.coordinator.Add(c.Request.Context(), req.Path)
	}
	if err != nil {
		c.JSON(statusFor(err), gin.H{
			"error": err.Error(),
			"kind":  string(types.KindOf(err)),
		})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"extension": ext})
}

// ToggleExtension flips enabled and loads or unloads accordingly
func (h *Handlers) ToggleExtension(c *gin.Context) {
	ext, err := h.coordinator.Toggle(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"extension": ext})
}

// RemoveExtension removes an extension
func (h *Handlers) RemoveExtension(c *gin.Context) {
	id := c.Param("id")
	if err := h.coordinator.Remove(c.Request.Context(), id); err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "extension_id": id})
}

// AssessExtension runs a permission validation pass
func (h *Handlers) AssessExtension(c *gin.Context) {
	assessment, err := h.coordinator.Assess(c.Param("id"))
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"assessment": assessment})
}

// overridesRequest applies user permission overrides to a scope
type overridesRequest struct {
	Scope       string   `json:"scope"`
	Permissions []string `json:"permissions"`
	Allowed     bool     `json:"allowed"`
}

// UpdateOverrides applies and persists user permission overrides
func (h *Handlers) UpdateOverrides(c *gin.Context) {
	var req overridesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if req.Scope == "" || len(req.Permissions) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "scope and permissions are required"})
		return
	}

	if err := h.coordinator.UpdatePermissionSettings(req.Scope, req.Permissions, req.Allowed); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// PermissionStats reports the taxonomy and override totals
func (h *Handlers) PermissionStats(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"stats": h.permissions.Stats()})
}

// SessionStats reports the isolation session pool
func (h *Handlers) SessionStats(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"stats":    h.sessions.Stats(),
		"sessions": h.sessions.Sessions(),
	})
}

// ErrorStats reports the recovery history
func (h *Handlers) ErrorStats(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"stats": h.recovery.Stats()})
}

// ClearErrors resets the recovery history and retry counters
func (h *Handlers) ClearErrors(c *gin.Context) {
	h.recovery.ClearHistory()
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// GetSettings returns the persisted subsystem settings
func (h *Handlers) GetSettings(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"settings": h.store.Settings()})
}

// UpdateSettings replaces the subsystem settings
func (h *Handlers) UpdateSettings(c *gin.Context) {
	var settings types.Settings
	if err := c.ShouldBindJSON(&settings); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if err := h.store.SetSettings(settings); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"settings": settings})
}

// MetricsSnapshot reports request and lifecycle counters as JSON
func (h *Handlers) MetricsSnapshot(c *gin.Context) {
	if h.metrics == nil {
		c.JSON(http.StatusOK, gin.H{})
		return
	}
	c.JSON(http.StatusOK, gin.H{"metrics": h.metrics.GetSnapshot()})
}

// statusFor maps domain failure kinds onto HTTP status codes
func statusFor(err error) int {
	switch types.KindOf(err) {
	case types.KindFileNotFound:
		return http.StatusNotFound
	case types.KindConflictDetected:
		return http.StatusConflict
	case types.KindPermissionDenied:
		return http.StatusForbidden
	case types.KindManifestInvalid, types.KindInvalidPackage, types.KindUnsupportedVersion:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
