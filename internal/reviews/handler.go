package reviews

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"complai-backend/internal/shared/server/middleware"
	"complai-backend/internal/shared/server/respond"
)

// Handler wires HTTP handlers to the service.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches review routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/reviews", h.create)
	rg.GET("/reviews", h.list)
	rg.GET("/reviews/metrics", h.metrics)
	rg.POST("/reviews/validate-batch", h.batchValidate)
	rg.GET("/reviews/:id", h.get)
	rg.PATCH("/reviews/:id", h.update)
	rg.POST("/reviews/:id/timer/start", h.startTimer)
	rg.POST("/reviews/:id/timer/stop", h.stopTimer)
	rg.POST("/reviews/:id/validate", h.validate)
	rg.POST("/reviews/:id/return", h.returnItem)
}

type createRequest struct {
	Kind        string     `json:"kind"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Confidence  float64    `json:"confidence"`
	Status      string     `json:"status"`
	AssignedTo  string     `json:"assignedTo"`
	DueDate     *time.Time `json:"dueDate"`
}

func (h *Handler) create(c *gin.Context) {
	orgID := middleware.OrgIDFromContext(c)

	var req createRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}

	item, err := h.Svc.Add(c.Request.Context(), orgID, CreateInput{
		Kind:        Kind(req.Kind),
		Title:       req.Title,
		Description: req.Description,
		Confidence:  req.Confidence,
		Status:      Status(req.Status),
		AssignedTo:  req.AssignedTo,
		DueDate:     req.DueDate,
	})
	if err != nil {
		h.writeError(c, "failed to create review item", err)
		return
	}
	respond.JSON(c, http.StatusCreated, toResponse(item))
}

func (h *Handler) list(c *gin.Context) {
	orgID := middleware.OrgIDFromContext(c)

	limit := 50
	offset := 0
	if v := c.Query("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			limit = parsed
		}
	}
	if limit < 0 {
		limit = 0
	}
	if limit > 200 {
		limit = 200
	}
	if v := c.Query("offset"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			offset = parsed
		}
	}

	items, err := h.Svc.List(c.Request.Context(), orgID, limit, offset)
	if err != nil {
		h.writeError(c, "failed to list review items", err)
		return
	}

	resp := make([]ItemResponse, 0, len(items))
	for _, item := range items {
		resp = append(resp, toResponse(item))
	}
	respond.JSON(c, http.StatusOK, resp)
}

func (h *Handler) get(c *gin.Context) {
	orgID := middleware.OrgIDFromContext(c)

	item, err := h.Svc.Get(c.Request.Context(), orgID, c.Param("id"))
	if err != nil {
		h.writeError(c, "failed to fetch review item", err)
		return
	}
	respond.JSON(c, http.StatusOK, toResponse(item))
}

type updateRequest struct {
	Title       *string    `json:"title"`
	Description *string    `json:"description"`
	Confidence  *float64   `json:"confidence"`
	Status      *string    `json:"status"`
	AssignedTo  *string    `json:"assignedTo"`
	DueDate     *time.Time `json:"dueDate"`
}

func (h *Handler) update(c *gin.Context) {
	orgID := middleware.OrgIDFromContext(c)

	var req updateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}

	patch := ItemPatch{
		Title:       req.Title,
		Description: req.Description,
		Confidence:  req.Confidence,
		AssignedTo:  req.AssignedTo,
		DueDate:     req.DueDate,
	}
	if req.Status != nil {
		status := Status(*req.Status)
		patch.Status = &status
	}

	item, err := h.Svc.Update(c.Request.Context(), orgID, c.Param("id"), patch)
	if err != nil {
		h.writeError(c, "failed to update review item", err)
		return
	}
	respond.JSON(c, http.StatusOK, toResponse(item))
}

func (h *Handler) startTimer(c *gin.Context) {
	orgID := middleware.OrgIDFromContext(c)

	if err := h.Svc.StartTimer(c.Request.Context(), orgID, c.Param("id")); err != nil {
		h.writeError(c, "failed to start timer", err)
		return
	}
	respond.JSON(c, http.StatusOK, gin.H{"itemId": c.Param("id"), "timer": "started"})
}

func (h *Handler) stopTimer(c *gin.Context) {
	orgID := middleware.OrgIDFromContext(c)

	item, err := h.Svc.StopTimer(c.Request.Context(), orgID, c.Param("id"))
	if err != nil {
		h.writeError(c, "failed to stop timer", err)
		return
	}
	respond.JSON(c, http.StatusOK, toResponse(item))
}

type validateRequest struct {
	Approved bool   `json:"approved"`
	Notes    string `json:"notes"`
}

func (h *Handler) validate(c *gin.Context) {
	orgID := middleware.OrgIDFromContext(c)

	var req validateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}

	item, err := h.Svc.Validate(c.Request.Context(), orgID, c.Param("id"), req.Approved, req.Notes)
	if err != nil {
		h.writeError(c, "failed to validate review item", err)
		return
	}
	respond.JSON(c, http.StatusOK, toResponse(item))
}

type batchValidateRequest struct {
	ItemIDs  []string `json:"itemIds"`
	Approved bool     `json:"approved"`
}

func (h *Handler) batchValidate(c *gin.Context) {
	orgID := middleware.OrgIDFromContext(c)

	var req batchValidateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}
	if len(req.ItemIDs) == 0 {
		respond.Error(c, http.StatusBadRequest, "validation_error", "itemIds is required", nil)
		return
	}

	items, err := h.Svc.BatchValidate(c.Request.Context(), orgID, req.ItemIDs, req.Approved)
	if err != nil {
		h.writeError(c, "failed to batch validate", err)
		return
	}

	resp := make([]ItemResponse, 0, len(items))
	for _, item := range items {
		resp = append(resp, toResponse(item))
	}
	respond.JSON(c, http.StatusOK, resp)
}

type returnRequest struct {
	Reason string `json:"reason"`
}

func (h *Handler) returnItem(c *gin.Context) {
	orgID := middleware.OrgIDFromContext(c)

	var req returnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}

	item, err := h.Svc.Return(c.Request.Context(), orgID, c.Param("id"), req.Reason)
	if err != nil {
		h.writeError(c, "failed to return review item", err)
		return
	}
	respond.JSON(c, http.StatusOK, toResponse(item))
}

func (h *Handler) metrics(c *gin.Context) {
	orgID := middleware.OrgIDFromContext(c)

	snap, err := h.Svc.Metrics(c.Request.Context(), orgID)
	if err != nil {
		h.writeError(c, "failed to compute metrics", err)
		return
	}
	respond.JSON(c, http.StatusOK, snap)
}

func (h *Handler) writeError(c *gin.Context, fallback string, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		respond.Error(c, http.StatusNotFound, "not_found", "review item not found", nil)
	case errors.Is(err, ErrInvalidInput):
		respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
	default:
		respond.Error(c, http.StatusInternalServerError, "internal_error", fallback, nil)
	}
}
