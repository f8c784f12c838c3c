package chat

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"prospectus-backend/internal/documents"
	"prospectus-backend/internal/llm"
	"prospectus-backend/internal/shared/server/middleware"
	"prospectus-backend/internal/shared/server/respond"
)

// Handler wires HTTP handlers to the service. Message replies stream as
// server-sent events: chunk events with raw fragments, then one done event
// carrying the normalized message.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches chat routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/chat/sessions", h.create)
	rg.GET("/chat/sessions/:id", h.get)
	rg.POST("/chat/sessions/:id/messages", h.send)
}

type createRequest struct {
	DocumentID string `json:"documentId"`
}

func (h *Handler) create(c *gin.Context) {
	clientID := middleware.ClientIDFromContext(c)

	var req createRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
			return
		}
	}

	session, err := h.Svc.Create(c.Request.Context(), clientID, req.DocumentID)
	if err != nil {
		h.respondError(c, err, "failed to create chat session")
		return
	}

	respond.JSON(c, http.StatusCreated, session)
}

func (h *Handler) get(c *gin.Context) {
	clientID := middleware.ClientIDFromContext(c)

	session, err := h.Svc.Get(clientID, c.Param("id"))
	if err != nil {
		h.respondError(c, err, "failed to fetch chat session")
		return
	}

	respond.JSON(c, http.StatusOK, session)
}

type sendRequest struct {
	Message string `json:"message"`
}

func (h *Handler) send(c *gin.Context) {
	clientID := middleware.ClientIDFromContext(c)

	var req sendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}

	// Headers go out with the first fragment, so pre-stream failures can
	// still return plain JSON errors.
	streaming := false
	startStream := func() {
		if streaming {
			return
		}
		streaming = true
		header := c.Writer.Header()
		header.Set("Content-Type", "text/event-stream")
		header.Set("Cache-Control", "no-cache")
		header.Set("Connection", "keep-alive")
		header.Set("X-Accel-Buffering", "no")
		c.Writer.WriteHeader(http.StatusOK)
	}

	reply, err := h.Svc.Send(c.Request.Context(), clientID, c.Param("id"), req.Message, func(chunk string) error {
		startStream()
		return writeEvent(c.Writer, "chunk", gin.H{"text": chunk})
	})
	if err != nil {
		if !streaming {
			h.respondError(c, err, "failed to send message")
			return
		}
		_ = writeEvent(c.Writer, "error", gin.H{"message": "the model stream failed"})
		return
	}

	startStream()
	_ = writeEvent(c.Writer, "done", gin.H{"message": reply})
}

func writeEvent(w gin.ResponseWriter, event string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data); err != nil {
		return err
	}
	w.Flush()
	return nil
}

func (h *Handler) respondError(c *gin.Context, err error, fallback string) {
	var gatewayErr *llm.GatewayError
	switch {
	case errors.Is(err, ErrInvalidInput), errors.Is(err, documents.ErrInvalidInput):
		respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
	case errors.Is(err, ErrNotFound), errors.Is(err, documents.ErrNotFound):
		respond.Error(c, http.StatusNotFound, "not_found", err.Error(), nil)
	case errors.Is(err, ErrBusy):
		respond.Error(c, http.StatusConflict, "session_busy", "a reply is already streaming on this session", nil)
	case errors.Is(err, llm.ErrNotConfigured):
		respond.Error(c, http.StatusServiceUnavailable, "model_not_configured", "model gateway is not configured", nil)
	case errors.As(err, &gatewayErr):
		respond.Error(c, http.StatusBadGateway, "model_unavailable", "the model service is unavailable", nil)
	default:
		respond.Error(c, http.StatusInternalServerError, "internal_error", fallback, nil)
	}
}
