package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/MolGraph/internal/application/batching"
	"github.com/turtacn/MolGraph/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/MolGraph/internal/interfaces/http/middleware"
)

// BatchHandler serves batch construction and dataset introspection.
type BatchHandler struct {
	service batching.Service
	logger  logging.Logger
}

// NewBatchHandler creates a BatchHandler.
func NewBatchHandler(service batching.Service, logger logging.Logger) *BatchHandler {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &BatchHandler{service: service, logger: logger}
}

// BuildBatchRequest is the body of POST /api/v1/batches.
type BuildBatchRequest struct {
	Indices []int `json:"indices" binding:"required"`
}

// ExportBatchRequest is the body of POST /api/v1/batches/export.
type ExportBatchRequest struct {
	Indices   []int  `json:"indices" binding:"required"`
	Bucket    string `json:"bucket,omitempty"`
	ObjectKey string `json:"object_key,omitempty"`
}

// Build handles POST /api/v1/batches and returns the index record.
func (h *BatchHandler) Build(c *gin.Context) {
	var req BuildBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBadRequest(c, err)
		return
	}

	batch, err := h.service.BuildBatch(c.Request.Context(), req.Indices)
	if err != nil {
		h.logger.Warn("build batch failed",
			logging.String("request_id", middleware.GetRequestID(c)),
			logging.Int("molecules", len(req.Indices)),
			logging.Err(err))
		writeAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, batch)
}

// Export handles POST /api/v1/batches/export.
func (h *BatchHandler) Export(c *gin.Context) {
	var req ExportBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBadRequest(c, err)
		return
	}

	res, err := h.service.ExportBatch(c.Request.Context(), &batching.ExportInput{
		Indices:   req.Indices,
		Bucket:    req.Bucket,
		ObjectKey: req.ObjectKey,
	})
	if err != nil {
		h.logger.Warn("export batch failed",
			logging.String("request_id", middleware.GetRequestID(c)),
			logging.Err(err))
		writeAppError(c, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

// Dataset handles GET /api/v1/dataset.
func (h *BatchHandler) Dataset(c *gin.Context) {
	c.JSON(http.StatusOK, h.service.DatasetInfo())
}
