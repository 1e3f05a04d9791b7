package evidence

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"complai-backend/internal/matching"
	"complai-backend/internal/shared/server/middleware"
	"complai-backend/internal/shared/server/respond"
)

const maxUploadSize = 25 << 20 // 25MB

// EnqueueFunc hands a propose-matches request to the async pipeline. A nil
// func means proposals run inline.
type EnqueueFunc func(ctx context.Context, orgID, artifactID, requestID string) error

// Handler wires HTTP handlers to the service.
type Handler struct {
	Svc     *Service
	Enqueue EnqueueFunc
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches evidence routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/evidence", h.create)
	rg.POST("/evidence/upload", h.upload)
	rg.POST("/evidence/from-s3", h.createFromS3)
	rg.GET("/evidence", h.list)
	rg.GET("/evidence/coverage", h.coverage)
	rg.GET("/evidence/:id", h.get)
	rg.PATCH("/evidence/:id", h.update)
	rg.DELETE("/evidence/:id", h.remove)
	rg.POST("/evidence/:id/matches", h.addMatch)
	rg.POST("/evidence/:id/matches/:matchId/accept", h.acceptMatch)
	rg.POST("/evidence/:id/matches/:matchId/reject", h.rejectMatch)
	rg.POST("/evidence/:id/propose", h.propose)
}

type createRequest struct {
	FileName   string     `json:"fileName"`
	Category   string     `json:"category"`
	PeriodFrom *time.Time `json:"periodFrom"`
	PeriodTo   *time.Time `json:"periodTo"`
}

func (h *Handler) create(c *gin.Context) {
	orgID := middleware.OrgIDFromContext(c)

	var req createRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}
	if strings.TrimSpace(req.FileName) == "" {
		respond.Error(c, http.StatusBadRequest, "validation_error", "fileName is required", nil)
		return
	}

	a, err := h.Svc.Add(c.Request.Context(), orgID, CreateInput{
		FileName:   req.FileName,
		UploadedBy: middleware.UserIDFromContext(c),
		Category:   req.Category,
		PeriodFrom: req.PeriodFrom,
		PeriodTo:   req.PeriodTo,
	})
	if err != nil {
		h.writeError(c, "failed to create artifact", err)
		return
	}
	respond.JSON(c, http.StatusCreated, toResponse(a))
}

func (h *Handler) upload(c *gin.Context) {
	orgID := middleware.OrgIDFromContext(c)
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadSize)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "file is required", nil)
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "unable to read file", nil)
		return
	}
	defer file.Close()

	in := CreateInput{
		FileName:   fileHeader.Filename,
		UploadedBy: middleware.UserIDFromContext(c),
		Category:   c.PostForm("category"),
	}
	if from, ok := parseFormTime(c.PostForm("periodFrom")); ok {
		in.PeriodFrom = &from
	}
	if to, ok := parseFormTime(c.PostForm("periodTo")); ok {
		in.PeriodTo = &to
	}

	a, err := h.Svc.Upload(c.Request.Context(), orgID, in, file)
	if err != nil {
		h.writeError(c, "failed to upload evidence", err)
		return
	}
	respond.JSON(c, http.StatusCreated, toResponse(a))
}

type createFromS3Request struct {
	S3Key       string     `json:"s3Key"`
	FileName    string     `json:"fileName"`
	ContentType string     `json:"contentType"`
	SizeBytes   int64      `json:"sizeBytes"`
	Category    string     `json:"category"`
	PeriodFrom  *time.Time `json:"periodFrom"`
	PeriodTo    *time.Time `json:"periodTo"`
}

func (h *Handler) createFromS3(c *gin.Context) {
	orgID := middleware.OrgIDFromContext(c)

	var req createFromS3Request
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}
	req.S3Key = strings.TrimSpace(req.S3Key)
	req.FileName = strings.TrimSpace(req.FileName)
	if req.S3Key == "" {
		respond.Error(c, http.StatusBadRequest, "validation_error", "s3Key is required", nil)
		return
	}
	if req.FileName == "" {
		respond.Error(c, http.StatusBadRequest, "validation_error", "fileName is required", nil)
		return
	}
	if req.SizeBytes <= 0 {
		respond.Error(c, http.StatusBadRequest, "validation_error", "sizeBytes must be positive", nil)
		return
	}

	a, err := h.Svc.RegisterFromStore(c.Request.Context(), orgID, CreateInput{
		FileName:   req.FileName,
		UploadedBy: middleware.UserIDFromContext(c),
		Category:   req.Category,
		PeriodFrom: req.PeriodFrom,
		PeriodTo:   req.PeriodTo,
	}, req.S3Key, req.ContentType, req.SizeBytes)
	if err != nil {
		h.writeError(c, "failed to register artifact", err)
		return
	}
	respond.JSON(c, http.StatusCreated, toResponse(a))
}

func (h *Handler) list(c *gin.Context) {
	orgID := middleware.OrgIDFromContext(c)

	limit := 20
	offset := 0
	if v := c.Query("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			limit = parsed
		}
	}
	if limit < 0 {
		limit = 0
	}
	if limit > 100 {
		limit = 100
	}
	if v := c.Query("offset"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			offset = parsed
		}
	}

	arts, err := h.Svc.List(c.Request.Context(), orgID, limit, offset)
	if err != nil {
		h.writeError(c, "failed to list evidence", err)
		return
	}

	resp := make([]ArtifactResponse, 0, len(arts))
	for _, a := range arts {
		resp = append(resp, toResponse(a))
	}
	respond.JSON(c, http.StatusOK, resp)
}

func (h *Handler) get(c *gin.Context) {
	orgID := middleware.OrgIDFromContext(c)

	a, err := h.Svc.Get(c.Request.Context(), orgID, c.Param("id"))
	if err != nil {
		h.writeError(c, "failed to fetch artifact", err)
		return
	}
	respond.JSON(c, http.StatusOK, toResponse(a))
}

type updateRequest struct {
	FileName   *string    `json:"fileName"`
	Category   *string    `json:"category"`
	PeriodFrom *time.Time `json:"periodFrom"`
	PeriodTo   *time.Time `json:"periodTo"`
}

func (h *Handler) update(c *gin.Context) {
	orgID := middleware.OrgIDFromContext(c)

	var req updateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}

	a, err := h.Svc.Update(c.Request.Context(), orgID, c.Param("id"), ArtifactPatch{
		FileName:   req.FileName,
		Category:   req.Category,
		PeriodFrom: req.PeriodFrom,
		PeriodTo:   req.PeriodTo,
	})
	if err != nil {
		h.writeError(c, "failed to update artifact", err)
		return
	}
	respond.JSON(c, http.StatusOK, toResponse(a))
}

func (h *Handler) remove(c *gin.Context) {
	orgID := middleware.OrgIDFromContext(c)

	if err := h.Svc.Delete(c.Request.Context(), orgID, c.Param("id")); err != nil {
		h.writeError(c, "failed to delete artifact", err)
		return
	}
	c.Status(http.StatusNoContent)
}

type addMatchRequest struct {
	Kind       string  `json:"kind"`
	TargetID   string  `json:"targetId"`
	Confidence float64 `json:"confidence"`
	Reason     string  `json:"reason"`
}

func (h *Handler) addMatch(c *gin.Context) {
	orgID := middleware.OrgIDFromContext(c)

	var req addMatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}

	a, err := h.Svc.AddMatch(c.Request.Context(), orgID, c.Param("id"), Match{
		Kind:       MatchKind(req.Kind),
		TargetID:   req.TargetID,
		Confidence: req.Confidence,
		Reason:     req.Reason,
	})
	if err != nil {
		h.writeError(c, "failed to add match", err)
		return
	}
	respond.JSON(c, http.StatusCreated, toResponse(a))
}

func (h *Handler) acceptMatch(c *gin.Context) {
	orgID := middleware.OrgIDFromContext(c)

	a, err := h.Svc.AcceptMatch(c.Request.Context(), orgID, c.Param("id"), c.Param("matchId"))
	if err != nil {
		h.writeError(c, "failed to accept match", err)
		return
	}
	respond.JSON(c, http.StatusOK, toResponse(a))
}

func (h *Handler) rejectMatch(c *gin.Context) {
	orgID := middleware.OrgIDFromContext(c)

	a, err := h.Svc.RejectMatch(c.Request.Context(), orgID, c.Param("id"), c.Param("matchId"))
	if err != nil {
		h.writeError(c, "failed to reject match", err)
		return
	}
	respond.JSON(c, http.StatusOK, toResponse(a))
}

func (h *Handler) propose(c *gin.Context) {
	orgID := middleware.OrgIDFromContext(c)
	artifactID := c.Param("id")

	if h.Enqueue != nil {
		requestID := middleware.RequestIDFromContext(c)
		if err := h.Enqueue(c.Request.Context(), orgID, artifactID, requestID); err != nil {
			respond.Error(c, http.StatusBadGateway, "queue_error", "failed to enqueue match proposal", nil)
			return
		}
		respond.JSON(c, http.StatusAccepted, gin.H{"artifactId": artifactID, "status": "queued"})
		return
	}

	proposed, err := h.Svc.ProposeMatches(c.Request.Context(), orgID, artifactID)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound), errors.Is(err, matching.ErrNotConfigured):
			h.writeError(c, "failed to propose matches", err)
		default:
			// Provider faults surface as a bad gateway, not a server error.
			respond.Error(c, http.StatusBadGateway, "provider_error", "match proposal failed", nil)
		}
		return
	}

	resp := make([]MatchResponse, 0, len(proposed))
	for _, m := range proposed {
		resp = append(resp, toMatchResponse(m))
	}
	respond.JSON(c, http.StatusOK, gin.H{"artifactId": artifactID, "matches": resp})
}

func (h *Handler) coverage(c *gin.Context) {
	orgID := middleware.OrgIDFromContext(c)

	var ids []string
	for _, part := range strings.Split(c.Query("obligationIds"), ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			ids = append(ids, trimmed)
		}
	}

	cov, err := h.Svc.Coverage(c.Request.Context(), orgID, ids)
	if err != nil {
		h.writeError(c, "failed to compute coverage", err)
		return
	}
	respond.JSON(c, http.StatusOK, gin.H{"coverage": cov, "obligationCount": len(ids)})
}

func (h *Handler) writeError(c *gin.Context, fallback string, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		respond.Error(c, http.StatusNotFound, "not_found", "artifact or match not found", nil)
	case errors.Is(err, ErrWeakMatch):
		respond.Error(c, http.StatusUnprocessableEntity, "weak_match", err.Error(), nil)
	case errors.Is(err, ErrInvalidInput):
		respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
	case errors.Is(err, matching.ErrNotConfigured):
		respond.Error(c, http.StatusServiceUnavailable, "provider_unavailable", "matching provider is not configured", nil)
	default:
		respond.Error(c, http.StatusInternalServerError, "internal_error", fallback, nil)
	}
}

func parseFormTime(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, true
	}
	if t, err := time.Parse("2006-01-02", raw); err == nil {
		return t, true
	}
	return time.Time{}, false
}
