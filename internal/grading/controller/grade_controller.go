package controller

import (
	"skillbuilder/internal/grading/service"
	"skillbuilder/pkg/utils/response"

	"github.com/gin-gonic/gin"
)

// GradeController handles grading and content HTTP endpoints.
type GradeController struct {
	gradeService   *service.GradeService
	metricsService *service.MetricsService
}

// NewGradeController creates a new GradeController.
func NewGradeController(gradeService *service.GradeService, metricsService *service.MetricsService) *GradeController {
	return &GradeController{
		gradeService:   gradeService,
		metricsService: metricsService,
	}
}

// Grade runs one submission against a workshop's grader.
func (h *GradeController) Grade(c *gin.Context) {
	var req GradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request parameters")
		return
	}

	out, err := h.gradeService.Grade(c.Request.Context(), service.GradeInput{
		ModuleID:   req.ModuleID,
		WorkshopID: req.WorkshopID,
		ApproachID: req.ApproachID,
		Code:       req.Code,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, out)
}

// ListModules returns the module catalog.
func (h *GradeController) ListModules(c *gin.Context) {
	index, err := h.gradeService.ListModules(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, index)
}

// GetModule returns one module with its workshops.
func (h *GradeController) GetModule(c *gin.Context) {
	moduleID := c.Param("id")
	if moduleID == "" {
		response.BadRequest(c, "Invalid module id")
		return
	}
	module, err := h.gradeService.GetModule(c.Request.Context(), moduleID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, module)
}

// Metrics computes the static quality metrics for a source text.
func (h *GradeController) Metrics(c *gin.Context) {
	var req MetricsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request parameters")
		return
	}
	response.Success(c, h.metricsService.Summary(req.Code))
}

// CompareRefactor evaluates a refactored source against its previous
// version.
func (h *GradeController) CompareRefactor(c *gin.Context) {
	var req RefactorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request parameters")
		return
	}
	cmp, err := h.metricsService.CompareRefactor(req.Previous, req.Refactored)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, cmp)
}

// GradeRequest defines the grading payload.
type GradeRequest struct {
	ModuleID   string `json:"moduleId" binding:"required"`
	WorkshopID string `json:"workshopId" binding:"required"`
	ApproachID string `json:"approachId"`
	Code       string `json:"code" binding:"required"`
}

// MetricsRequest defines the metrics payload.
type MetricsRequest struct {
	Code string `json:"code" binding:"required"`
}

// RefactorRequest defines the refactor comparison payload.
type RefactorRequest struct {
	Previous   string `json:"previous" binding:"required"`
	Refactored string `json:"refactored" binding:"required"`
}
