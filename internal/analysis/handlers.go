package analysis

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	apperrors "github.com/skytrace/skytrace/internal/common/errors"
	"github.com/skytrace/skytrace/internal/dataset"
	"github.com/skytrace/skytrace/internal/report"
)

// AnalyzeRequest is the JSON body for starting a run. Unset tuning fields
// fall back to the service defaults.
type AnalyzeRequest struct {
	Records           []dataset.RawRecord `json:"records" binding:"required"`
	Contamination     *float64            `json:"contamination"`
	EnableGeolocation *bool               `json:"enable_geolocation"`
	AlertThreshold    *float64            `json:"alert_threshold"`
}

// Handler exposes the analysis pipeline over HTTP.
type Handler struct {
	service  *Service
	defaults Options
	logger   *zap.Logger
}

// NewHandler wires the HTTP surface with deployment-level defaults.
func NewHandler(service *Service, defaults Options, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{service: service, defaults: defaults, logger: logger}
}

// RegisterRoutes mounts the handler under /api/v1.
func (h *Handler) RegisterRoutes(r gin.IRouter) {
	api := r.Group("/api/v1")
	{
		api.POST("/analysis", h.Analyze)
		api.GET("/analysis/:id", h.GetRun)
		api.GET("/analysis/:id/export", h.ExportRun)
		api.GET("/analysis/:id/digest", h.Digest)
		api.GET("/sample", h.SampleTemplate)
		api.GET("/alerts/config", h.AlertConfig)
	}
	r.GET("/health", h.Health)
}

// Analyze starts a run from either a multipart CSV upload (field "file") or
// a JSON record list.
func (h *Handler) Analyze(c *gin.Context) {
	raw, opts, err := h.readDataset(c)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}

	result, err := h.service.Run(c.Request.Context(), raw, opts)
	if err != nil {
		h.logger.Warn("analysis run failed", zap.Error(err))
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *Handler) readDataset(c *gin.Context) (*dataset.RawDataset, Options, error) {
	opts := h.defaults

	if strings.HasPrefix(c.ContentType(), "multipart/form-data") {
		file, _, err := c.Request.FormFile("file")
		if err != nil {
			return nil, opts, apperrors.BadRequest("missing CSV upload in field \"file\"")
		}
		defer file.Close()

		raw, err := dataset.DecodeCSV(file)
		if err != nil {
			return nil, opts, apperrors.BadRequest(err.Error())
		}
		return raw, opts, nil
	}

	var req AnalyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		return nil, opts, apperrors.BadRequest("invalid request body: " + err.Error())
	}
	if req.Contamination != nil {
		opts.Contamination = *req.Contamination
	}
	if req.EnableGeolocation != nil {
		opts.EnableGeolocation = *req.EnableGeolocation
	}
	if req.AlertThreshold != nil {
		opts.AlertThreshold = *req.AlertThreshold
	}

	raw := &dataset.RawDataset{
		Columns: dataset.RequiredColumns,
		Rows:    req.Records,
	}
	return raw, opts, nil
}

// GetRun returns a stored run by id.
func (h *Handler) GetRun(c *gin.Context) {
	run, ok := h.service.Get(c.Param("id"))
	if !ok {
		apperrors.Respond(c, apperrors.NotFound("analysis run "+c.Param("id")))
		return
	}
	c.JSON(http.StatusOK, run)
}

// ExportRun streams a stored run's records as csv or json.
func (h *Handler) ExportRun(c *gin.Context) {
	format := c.DefaultQuery("format", report.FormatCSV)
	data, err := h.service.Export(c.Param("id"), format)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}

	switch strings.ToLower(format) {
	case report.FormatJSON:
		c.Header("Content-Disposition", `attachment; filename="anomaly_report.json"`)
		c.Data(http.StatusOK, "application/json", data)
	default:
		c.Header("Content-Disposition", `attachment; filename="anomaly_report.csv"`)
		c.Data(http.StatusOK, "text/csv", data)
	}
}

// Digest returns the trailing 24h/7d summary for a stored run.
func (h *Handler) Digest(c *gin.Context) {
	summary, err := h.service.ScheduledSummary(c.Param("id"), time.Now().UTC())
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

// SampleTemplate serves the 5-row CSV template for download.
func (h *Handler) SampleTemplate(c *gin.Context) {
	c.Header("Content-Disposition", `attachment; filename="sample_logins.csv"`)
	c.Data(http.StatusOK, "text/csv", []byte(dataset.SampleCSV()))
}

// AlertConfig returns the recommended alert thresholds and routing.
func (h *Handler) AlertConfig(c *gin.Context) {
	c.JSON(http.StatusOK, report.DefaultAlertConfiguration())
}

// Health is the liveness probe.
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "analysis-service"})
}
