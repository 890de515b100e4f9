package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/meditrack/internal/service/reporting"
)

// ReportingHandler serves the admin dashboard and the usage analytics routes.
type ReportingHandler struct {
	svc    *reporting.Service
	logger *zap.Logger
}

// NewReportingHandler constructs the HTTP handler adapter.
func NewReportingHandler(svc *reporting.Service, logger *zap.Logger) *ReportingHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportingHandler{svc: svc, logger: logger}
}

// Stats returns the admin headline counts.
func (h *ReportingHandler) Stats(c *gin.Context) {
	overview, err := h.svc.Overview(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, overview)
}

// PrescriptionsByCity counts prescriptions per city. Also mounted publicly.
func (h *ReportingHandler) PrescriptionsByCity(c *gin.Context) {
	counts, err := h.svc.PrescriptionsByCity(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, counts)
}

// MedicineUsage counts prescriptions per medicine.
func (h *ReportingHandler) MedicineUsage(c *gin.Context) {
	usage, err := h.svc.MedicineUsage(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, usage)
}

// ProfessionalsByCity lists vets and pharmacists of a city.
func (h *ReportingHandler) ProfessionalsByCity(c *gin.Context) {
	pros, err := h.svc.ProfessionalsByCity(c.Request.Context(), c.Param("city"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, pros)
}

// Export downloads the usage table as csv, json or xlsx.
func (h *ReportingHandler) Export(c *gin.Context) {
	export, err := h.svc.ExportUsage(c.Request.Context(), c.DefaultQuery("format", reporting.FormatCSV))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+export.Filename+`"`)
	c.Data(http.StatusOK, export.ContentType, export.Body)
}

// ListAreas returns the known usage areas.
func (h *ReportingHandler) ListAreas(c *gin.Context) {
	areas, err := h.svc.ListAreas(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"areas": areas})
}

// AmuByCity returns usage totals per area as chart series.
func (h *ReportingHandler) AmuByCity(c *gin.Context) {
	usage, err := h.svc.AmuByCity(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, usage)
}

type areaReportBody struct {
	Area string `json:"area"`
}

// AreaReport computes trend statistics for one area.
func (h *ReportingHandler) AreaReport(c *gin.Context) {
	var body areaReportBody
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	report, err := h.svc.AreaReport(c.Request.Context(), body.Area)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// Snapshots returns the materialized area reports.
func (h *ReportingHandler) Snapshots(c *gin.Context) {
	snapshots, err := h.svc.ListSnapshots(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, snapshots)
}
