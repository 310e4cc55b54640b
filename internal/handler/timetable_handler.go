package handler

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/timetable-api/internal/dto"
	"github.com/noah-isme/timetable-api/internal/models"
	"github.com/noah-isme/timetable-api/internal/service"
	appErrors "github.com/noah-isme/timetable-api/pkg/errors"
	"github.com/noah-isme/timetable-api/pkg/response"
)

type timetableService interface {
	Generate(ctx context.Context, req dto.GenerateTimetableRequest) (*dto.TimetableResponse, error)
	Optimize(ctx context.Context, id string) (*dto.OptimizeTimetableResponse, error)
	List(ctx context.Context, query dto.TimetableListQuery) ([]models.SavedScheduleSummary, *models.Pagination, error)
	Get(ctx context.Context, id string) (*dto.TimetableResponse, error)
	UpdateMetadata(ctx context.Context, id string, req dto.UpdateTimetableMetadataRequest) (*dto.TimetableResponse, error)
	Delete(ctx context.Context, id string) error
}

type timetableExporter interface {
	Export(ctx context.Context, id, format, teacherID string) (*service.ExportFile, error)
}

// TimetableHandler exposes timetable generation, optimization and management endpoints.
type TimetableHandler struct {
	service  timetableService
	exporter timetableExporter
}

// NewTimetableHandler constructs the handler.
func NewTimetableHandler(svc *service.TimetableService, exporter *service.ExportService) *TimetableHandler {
	return &TimetableHandler{service: svc, exporter: exporter}
}

// Register mounts the timetable routes on the given group.
func (h *TimetableHandler) Register(group *gin.RouterGroup) {
	timetables := group.Group("/timetables")
	timetables.POST("/generate", h.Generate)
	timetables.GET("", h.List)
	timetables.GET("/:id", h.Get)
	timetables.PATCH("/:id", h.UpdateMetadata)
	timetables.DELETE("/:id", h.Delete)
	timetables.POST("/:id/optimize", h.Optimize)
	timetables.GET("/:id/export", h.Export)
}

// Generate godoc
// @Summary Generate a weekly timetable
// @Description Solves a conflict-free timetable from the stored teachers, lessons and locations. Unless dryRun is set the result is saved.
// @Tags Timetables
// @Accept json
// @Produce json
// @Param payload body dto.GenerateTimetableRequest false "Generation options"
// @Success 201 {object} response.Envelope
// @Success 200 {object} response.Envelope
// @Router /timetables/generate [post]
func (h *TimetableHandler) Generate(c *gin.Context) {
	var req dto.GenerateTimetableRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid generate payload"))
			return
		}
	}
	result, err := h.service.Generate(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	meta := map[string]interface{}{"mode": "preview"}
	status := http.StatusOK
	if result.Persisted {
		meta["mode"] = "saved"
		status = http.StatusCreated
	}
	response.JSON(c, status, result, nil, meta)
}

// List godoc
// @Summary List saved timetables
// @Tags Timetables
// @Produce json
// @Param search query string false "Name or description contains"
// @Param page query int false "Page number"
// @Param pageSize query int false "Page size (max 100)"
// @Param sortBy query string false "name, fitness_score, total_gaps or created_at"
// @Param sortOrder query string false "asc or desc"
// @Success 200 {object} response.Envelope
// @Router /timetables [get]
func (h *TimetableHandler) List(c *gin.Context) {
	page, err := queryInt(c, "page")
	if err != nil {
		response.Error(c, err)
		return
	}
	pageSize, err := queryInt(c, "pageSize")
	if err != nil {
		response.Error(c, err)
		return
	}
	query := dto.TimetableListQuery{
		Search:    c.Query("search"),
		Page:      page,
		PageSize:  pageSize,
		SortBy:    c.Query("sortBy"),
		SortOrder: c.Query("sortOrder"),
	}
	items, pagination, err := h.service.List(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, pagination)
}

// Get godoc
// @Summary Get a saved timetable
// @Tags Timetables
// @Produce json
// @Param id path string true "Timetable ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /timetables/{id} [get]
func (h *TimetableHandler) Get(c *gin.Context) {
	result, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// UpdateMetadata godoc
// @Summary Rename or describe a saved timetable
// @Tags Timetables
// @Accept json
// @Produce json
// @Param id path string true "Timetable ID"
// @Param payload body dto.UpdateTimetableMetadataRequest true "Metadata payload"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /timetables/{id} [patch]
func (h *TimetableHandler) UpdateMetadata(c *gin.Context) {
	var req dto.UpdateTimetableMetadataRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid metadata payload"))
		return
	}
	result, err := h.service.UpdateMetadata(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Delete godoc
// @Summary Delete a saved timetable
// @Tags Timetables
// @Param id path string true "Timetable ID"
// @Success 204
// @Failure 404 {object} response.Envelope
// @Router /timetables/{id} [delete]
func (h *TimetableHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Optimize godoc
// @Summary Reduce teacher gaps of a saved timetable
// @Description Moves single lesson-hours into teacher gaps while every hard constraint keeps holding. Optimizer failures are reported with success=false.
// @Tags Timetables
// @Produce json
// @Param id path string true "Timetable ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 423 {object} response.Envelope
// @Router /timetables/{id}/optimize [post]
func (h *TimetableHandler) Optimize(c *gin.Context) {
	result, err := h.service.Optimize(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Export godoc
// @Summary Download a saved timetable
// @Tags Timetables
// @Produce text/csv
// @Produce application/pdf
// @Param id path string true "Timetable ID"
// @Param format query string false "csv (default) or pdf"
// @Param teacherId query string false "Only hours of this teacher"
// @Success 200 {file} file
// @Failure 404 {object} response.Envelope
// @Router /timetables/{id}/export [get]
func (h *TimetableHandler) Export(c *gin.Context) {
	if h.exporter == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInternal, "export unavailable"))
		return
	}
	file, err := h.exporter.Export(c.Request.Context(), c.Param("id"), c.Query("format"), c.Query("teacherId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, file.Filename, file.ContentType, file.Data)
}

func queryInt(c *gin.Context, name string) (int, error) {
	raw := c.Query(name)
	if raw == "" {
		return 0, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 0 {
		return 0, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("%s must be a non-negative integer", name))
	}
	return value, nil
}
