package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/acadops/timetable-api/internal/models"
	"github.com/acadops/timetable-api/internal/service"
	appErrors "github.com/acadops/timetable-api/pkg/errors"
	"github.com/acadops/timetable-api/pkg/response"
)

// TimetableHandler manages scheduling and timetable view endpoints.
type TimetableHandler struct {
	feasibility *service.FeasibilityService
	scheduler   *service.SchedulerService
	timetable   *service.TimetableService
	instances   *service.InstanceService
}

// NewTimetableHandler constructs handler.
func NewTimetableHandler(feasibility *service.FeasibilityService, scheduler *service.SchedulerService, timetable *service.TimetableService, instances *service.InstanceService) *TimetableHandler {
	return &TimetableHandler{feasibility: feasibility, scheduler: scheduler, timetable: timetable, instances: instances}
}

// Feasibility godoc
// @Summary Analyse timetable feasibility
// @Tags Timetable
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /timetable/feasibility [get]
func (h *TimetableHandler) Feasibility(c *gin.Context) {
	report, err := h.feasibility.Analyze(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report)
}

// Analysis godoc
// @Summary Summarise scheduling resource utilisation
// @Tags Timetable
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /timetable/analysis [get]
func (h *TimetableHandler) Analysis(c *gin.Context) {
	analysis, err := h.feasibility.Utilisation(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, analysis)
}

// Regenerate godoc
// @Summary Regenerate the full timetable
// @Tags Timetable
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 408 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /timetable/regenerate [post]
func (h *TimetableHandler) Regenerate(c *gin.Context) {
	result, err := h.scheduler.Regenerate(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result)
}

// List godoc
// @Summary List the compiled timetable
// @Tags Timetable
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /timetable [get]
func (h *TimetableHandler) List(c *gin.Context) {
	details, generation, err := h.timetable.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, details, map[string]interface{}{"generation": generation})
}

// ListByGroup godoc
// @Summary List a group's timetable
// @Tags Timetable
// @Produce json
// @Param id path string true "Group ID"
// @Success 200 {object} response.Envelope
// @Router /groups/{id}/timetable [get]
func (h *TimetableHandler) ListByGroup(c *gin.Context) {
	details, err := h.timetable.ListByGroup(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, details)
}

// ListByTeacher godoc
// @Summary List a teacher's timetable
// @Tags Timetable
// @Produce json
// @Param id path string true "Teacher ID"
// @Success 200 {object} response.Envelope
// @Router /teachers/{id}/timetable [get]
func (h *TimetableHandler) ListByTeacher(c *gin.Context) {
	details, err := h.timetable.ListByTeacher(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, details)
}

// Instances godoc
// @Summary Materialise class instances over a date range
// @Tags Timetable
// @Produce json
// @Param from query string true "Range start (YYYY-MM-DD, inclusive)"
// @Param to query string true "Range end (YYYY-MM-DD, exclusive)"
// @Param scope query string false "Scope kind: all, group, teacher or student"
// @Param id query string false "Scope entity ID"
// @Success 200 {object} response.Envelope
// @Router /class-instances [get]
func (h *TimetableHandler) Instances(c *gin.Context) {
	from, err := time.Parse("2006-01-02", c.Query("from"))
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "from must be a YYYY-MM-DD date"))
		return
	}
	to, err := time.Parse("2006-01-02", c.Query("to"))
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "to must be a YYYY-MM-DD date"))
		return
	}

	scope := models.InstanceScope{Kind: models.InstanceScopeKind(c.DefaultQuery("scope", string(models.ScopeAll))), ID: c.Query("id")}
	switch scope.Kind {
	case models.ScopeAll:
	case models.ScopeGroup, models.ScopeTeacher, models.ScopeStudent:
		if scope.ID == "" {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "scoped instance queries require an id"))
			return
		}
	default:
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "scope must be all, group, teacher or student"))
		return
	}

	details, err := h.instances.MaterialiseRange(c.Request.Context(), from, to, scope)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, details)
}

// ExportCSV godoc
// @Summary Export the compiled timetable as CSV
// @Tags Timetable
// @Produce text/csv
// @Success 200 {file} byte
// @Router /timetable/export/csv [get]
func (h *TimetableHandler) ExportCSV(c *gin.Context) {
	payload, err := h.timetable.ExportCSV(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="timetable.csv"`)
	c.Data(http.StatusOK, "text/csv", payload)
}

// ExportPDF godoc
// @Summary Export the compiled timetable as PDF
// @Tags Timetable
// @Produce application/pdf
// @Success 200 {file} byte
// @Router /timetable/export/pdf [get]
func (h *TimetableHandler) ExportPDF(c *gin.Context) {
	payload, err := h.timetable.ExportPDF(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="timetable.pdf"`)
	c.Data(http.StatusOK, "application/pdf", payload)
}
