package analysis

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"prospectus-backend/internal/documents"
	"prospectus-backend/internal/llm"
	"prospectus-backend/internal/shared/server/middleware"
	"prospectus-backend/internal/shared/server/respond"
)

// Handler wires HTTP handlers to the service.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches analysis routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/analysis/query", h.query)
	rg.POST("/analysis/extract", h.extract)
	rg.POST("/documents/:id/financial-analysis", h.start)
	rg.GET("/financial-analyses", h.list)
	rg.GET("/financial-analyses/:id", h.get)
}

type queryRequest struct {
	DocumentID string `json:"documentId"`
	Query      string `json:"query"`
}

func (h *Handler) query(c *gin.Context) {
	clientID := middleware.ClientIDFromContext(c)

	var req queryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}

	ctx := WithRequestID(c.Request.Context(), c.GetString("requestId"))
	answer, err := h.Svc.AnalyzeQuery(ctx, clientID, req.DocumentID, req.Query)
	if err != nil {
		h.respondError(c, err, "failed to analyze query")
		return
	}

	respond.JSON(c, http.StatusOK, answer)
}

type extractRequest struct {
	DocumentID string `json:"documentId"`
	DataType   string `json:"dataType"`
}

func (h *Handler) extract(c *gin.Context) {
	clientID := middleware.ClientIDFromContext(c)

	var req extractRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}

	ctx := WithRequestID(c.Request.Context(), c.GetString("requestId"))
	records, err := h.Svc.ExtractData(ctx, clientID, req.DocumentID, req.DataType)
	if err != nil {
		h.respondError(c, err, "failed to extract data")
		return
	}

	respond.JSON(c, http.StatusOK, gin.H{"records": records})
}

func (h *Handler) start(c *gin.Context) {
	clientID := middleware.ClientIDFromContext(c)

	ctx := WithRequestID(c.Request.Context(), c.GetString("requestId"))
	job, err := h.Svc.Start(ctx, clientID, c.Param("id"))
	if err != nil {
		h.respondError(c, err, "failed to start financial analysis")
		return
	}

	respond.JSON(c, http.StatusAccepted, toJobResponse(job))
}

func (h *Handler) get(c *gin.Context) {
	clientID := middleware.ClientIDFromContext(c)

	job, err := h.Svc.Get(c.Request.Context(), clientID, c.Param("id"))
	if err != nil {
		h.respondError(c, err, "failed to fetch analysis")
		return
	}

	respond.JSON(c, http.StatusOK, toJobResponse(job))
}

func (h *Handler) list(c *gin.Context) {
	clientID := middleware.ClientIDFromContext(c)

	limit := 20
	offset := 0
	if v := c.Query("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			limit = parsed
		}
	}
	if v := c.Query("offset"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			offset = parsed
		}
	}

	jobs, err := h.Svc.List(c.Request.Context(), clientID, limit, offset)
	if err != nil {
		h.respondError(c, err, "failed to list analyses")
		return
	}

	resp := make([]jobResponse, 0, len(jobs))
	for _, job := range jobs {
		resp = append(resp, toJobResponse(job))
	}
	respond.JSON(c, http.StatusOK, resp)
}

func (h *Handler) respondError(c *gin.Context, err error, fallback string) {
	var gatewayErr *llm.GatewayError
	switch {
	case errors.Is(err, ErrInvalidInput), errors.Is(err, documents.ErrInvalidInput):
		respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
	case errors.Is(err, ErrNotFound), errors.Is(err, documents.ErrNotFound):
		respond.Error(c, http.StatusNotFound, "not_found", err.Error(), nil)
	case errors.Is(err, llm.ErrNotConfigured):
		respond.Error(c, http.StatusServiceUnavailable, "model_not_configured", "model gateway is not configured", nil)
	case errors.Is(err, ErrModelOutput):
		respond.Error(c, http.StatusBadGateway, "model_output_invalid", "the model returned an unusable response", nil)
	case errors.As(err, &gatewayErr):
		respond.Error(c, http.StatusBadGateway, "model_unavailable", "the model service is unavailable", nil)
	default:
		respond.Error(c, http.StatusInternalServerError, "internal_error", fallback, nil)
	}
}

type jobResponse struct {
	AnalysisID  string                    `json:"analysisId"`
	DocumentID  string                    `json:"documentId"`
	Status      string                    `json:"status"`
	Result      *FinancialAnalysisContent `json:"result,omitempty"`
	ErrorCode   string                    `json:"errorCode,omitempty"`
	CreatedAt   time.Time                 `json:"createdAt"`
	StartedAt   *time.Time                `json:"startedAt,omitempty"`
	CompletedAt *time.Time                `json:"completedAt,omitempty"`
}

func toJobResponse(job Job) jobResponse {
	return jobResponse{
		AnalysisID:  job.ID,
		DocumentID:  job.DocumentID,
		Status:      job.Status,
		Result:      job.Result,
		ErrorCode:   job.ErrorCode,
		CreatedAt:   job.CreatedAt,
		StartedAt:   job.StartedAt,
		CompletedAt: job.CompletedAt,
	}
}
