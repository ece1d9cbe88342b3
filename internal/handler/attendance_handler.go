package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/acadops/timetable-api/internal/middleware"
	"github.com/acadops/timetable-api/internal/service"
	appErrors "github.com/acadops/timetable-api/pkg/errors"
	"github.com/acadops/timetable-api/pkg/response"
)

// AttendanceHandler manages attendance token and capture endpoints.
type AttendanceHandler struct {
	attendance *service.AttendanceService
}

// NewAttendanceHandler constructs handler.
func NewAttendanceHandler(attendance *service.AttendanceService) *AttendanceHandler {
	return &AttendanceHandler{attendance: attendance}
}

// ScanRequest is the scan payload. The marker identity comes from the access
// token, never from the body.
type ScanRequest struct {
	Nonce           string `json:"nonce" binding:"required"`
	ClassInstanceID string `json:"class_instance_id" binding:"required"`
}

// IssueToken godoc
// @Summary Issue a fresh attendance token for a student
// @Tags Attendance
// @Produce json
// @Param id path string true "Student ID"
// @Success 201 {object} response.Envelope
// @Router /students/{id}/attendance-token [post]
func (h *AttendanceHandler) IssueToken(c *gin.Context) {
	token, err := h.attendance.IssueToken(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, token)
}

// TokenQR godoc
// @Summary Issue a fresh attendance token rendered as a QR code
// @Tags Attendance
// @Produce image/png
// @Param id path string true "Student ID"
// @Param size query int false "Image size in pixels"
// @Success 200 {file} byte
// @Router /students/{id}/attendance-token/qr [post]
func (h *AttendanceHandler) TokenQR(c *gin.Context) {
	token, err := h.attendance.IssueToken(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	size, _ := strconv.Atoi(c.DefaultQuery("size", "256"))
	png, err := h.attendance.TokenQR(token, size)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Data(http.StatusOK, "image/png", png)
}

// Scan godoc
// @Summary Record attendance by scanning a token
// @Tags Attendance
// @Accept json
// @Produce json
// @Param payload body ScanRequest true "Scan payload"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 410 {object} response.Envelope
// @Router /attendance/scan [post]
func (h *AttendanceHandler) Scan(c *gin.Context) {
	var req ScanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	identity := middleware.CurrentIdentity(c)
	if identity == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	result, err := h.attendance.Scan(c.Request.Context(), service.ScanCommand{
		Nonce:           req.Nonce,
		ClassInstanceID: req.ClassInstanceID,
		MarkerID:        identity.Subject,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result)
}

// Sweep godoc
// @Summary Mark absences for ended class instances
// @Tags Attendance
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /attendance/sweep [post]
func (h *AttendanceHandler) Sweep(c *gin.Context) {
	marked, err := h.attendance.SweepAbsences(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"marked_absent": marked})
}

// InstanceRecords godoc
// @Summary List attendance records of a class instance
// @Tags Attendance
// @Produce json
// @Param id path string true "Class instance ID"
// @Success 200 {object} response.Envelope
// @Router /class-instances/{id}/attendance [get]
func (h *AttendanceHandler) InstanceRecords(c *gin.Context) {
	records, err := h.attendance.InstanceRecords(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, records)
}

// StudentRecords godoc
// @Summary List a student's attendance history
// @Tags Attendance
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/attendance [get]
func (h *AttendanceHandler) StudentRecords(c *gin.Context) {
	records, err := h.attendance.StudentRecords(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, records)
}
