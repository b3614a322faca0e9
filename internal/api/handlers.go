package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/markoub/power-it-sub001/internal/infra/logger"
	"github.com/markoub/power-it-sub001/internal/pipeline"
	"github.com/markoub/power-it-sub001/internal/service/storage"
	"github.com/markoub/power-it-sub001/internal/store"
	"github.com/markoub/power-it-sub001/pkg/errors"
)

type Handler struct {
	store   *store.Store
	runner  *pipeline.Runner
	storage *storage.Service
	logger  *logger.Logger
}

func NewHandler(st *store.Store, runner *pipeline.Runner, stg *storage.Service, log *logger.Logger) *Handler {
	return &Handler{
		store:   st,
		runner:  runner,
		storage: stg,
		logger:  log,
	}
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{Status: "ok"})
}

func (h *Handler) CreatePresentation(c *gin.Context) {
	var req CreatePresentationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}

	p, err := h.store.CreatePresentation(c.Request.Context(), req.Name, req.Topic, req.Author)
	if err != nil {
		h.handleError(c, err)
		return
	}
	steps, err := h.store.ListSteps(c.Request.Context(), p.ID)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, presentationDTO(p, steps))
}

func (h *Handler) ListPresentations(c *gin.Context) {
	list, err := h.store.ListPresentations(c.Request.Context())
	if err != nil {
		h.handleError(c, err)
		return
	}
	out := make([]PresentationResponse, 0, len(list))
	for _, p := range list {
		out = append(out, presentationDTO(p, nil))
	}
	c.JSON(http.StatusOK, out)
}

func (h *Handler) GetPresentation(c *gin.Context) {
	id, ok := h.presentationID(c)
	if !ok {
		return
	}
	p, err := h.store.GetPresentation(c.Request.Context(), id)
	if err != nil {
		h.handleError(c, err)
		return
	}
	steps, err := h.store.ListSteps(c.Request.Context(), id)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, presentationDTO(p, steps))
}

func (h *Handler) DeletePresentation(c *gin.Context) {
	id, ok := h.presentationID(c)
	if !ok {
		return
	}
	if err := h.store.DeletePresentation(c.Request.Context(), id); err != nil {
		h.handleError(c, err)
		return
	}
	if err := h.storage.RemoveAll(id); err != nil {
		// the row is gone; orphaned files are only a cleanup concern
		h.logger.Warn("failed to remove presentation artifacts", "presentation_id", id, "error", err)
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) UpdateTopic(c *gin.Context) {
	id, ok := h.presentationID(c)
	if !ok {
		return
	}
	var req UpdateTopicRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	if err := h.store.UpdateTopic(c.Request.Context(), id, req.Topic); err != nil {
		h.handleError(c, err)
		return
	}
	h.GetPresentation(c)
}

func (h *Handler) SaveResearch(c *gin.Context) {
	id, ok := h.presentationID(c)
	if !ok {
		return
	}
	var req ManualResearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}

	payload, err := json.Marshal(map[string]any{
		"content": req.Content,
		"links":   req.Links,
	})
	if err != nil {
		h.handleError(c, err)
		return
	}
	if err := h.store.SaveManualResearch(c.Request.Context(), id, payload); err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, RunStepResponse{
		Step:   string(store.StepManualResearch),
		Status: string(store.StatusCompleted),
	})
}

// RunStep admits the run synchronously and executes it in the background;
// rejections (busy, missing dependency) surface immediately, progress is
// polled via GetStep.
func (h *Handler) RunStep(c *gin.Context) {
	id, ok := h.presentationID(c)
	if !ok {
		return
	}
	step := store.Step(c.Param("step"))

	if err := h.runner.Start(c.Request.Context(), id, step); err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, RunStepResponse{
		Step:   string(step),
		Status: string(store.StatusProcessing),
	})
}

func (h *Handler) GetStep(c *gin.Context) {
	id, ok := h.presentationID(c)
	if !ok {
		return
	}
	step := store.Step(c.Param("step"))
	if !store.ValidStep(step) {
		h.handleError(c, errors.Newf(errors.ErrCodeInvalidReq, "unknown step %q", step))
		return
	}

	rec, err := h.store.GetStep(c.Request.Context(), id, step)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, stepDTO(rec))
}

func (h *Handler) DownloadDeck(c *gin.Context) {
	id, ok := h.presentationID(c)
	if !ok {
		return
	}
	p, err := h.store.GetPresentation(c.Request.Context(), id)
	if err != nil {
		h.handleError(c, err)
		return
	}
	path, err := h.storage.DeckFile(id, p.Name)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.FileAttachment(path, p.Name+".pptx")
}

func (h *Handler) ServeImage(c *gin.Context) {
	id, ok := h.presentationID(c)
	if !ok {
		return
	}
	path, err := h.storage.ImagePath(id, c.Param("filename"))
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.File(path)
}

func (h *Handler) presentationID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		h.badRequest(c, err)
		return 0, false
	}
	return id, true
}

func (h *Handler) badRequest(c *gin.Context, err error) {
	h.logger.Error("invalid request", "path", c.Request.URL.Path, "error", err)
	c.JSON(http.StatusBadRequest, ErrorResponse{
		Error: ErrorBody{Code: errors.ErrCodeInvalidReq, Message: err.Error()},
	})
}

func (h *Handler) handleError(c *gin.Context, err error) {
	if err == store.ErrNotFound {
		err = errors.New(errors.ErrCodeNotFound, "not found")
	}

	code := errors.Code(err)
	status := http.StatusInternalServerError
	switch code {
	case errors.ErrCodeNotFound:
		status = http.StatusNotFound
	case errors.ErrCodeInvalidReq, errors.ErrCodeUnknownType:
		status = http.StatusBadRequest
	case errors.ErrCodeStepBusy:
		status = http.StatusConflict
	case errors.ErrCodeDependency:
		status = http.StatusConflict
	case errors.ErrCodeRateLimited:
		status = http.StatusTooManyRequests
	}

	if status >= 500 {
		h.logger.Error("request failed", "path", c.Request.URL.Path, "error", err)
	}
	c.JSON(status, ErrorResponse{
		Error: ErrorBody{Code: code, Message: err.Error()},
	})
}
