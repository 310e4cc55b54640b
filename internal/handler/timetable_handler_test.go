package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/timetable-api/internal/dto"
	"github.com/noah-isme/timetable-api/internal/models"
	"github.com/noah-isme/timetable-api/internal/service"
	appErrors "github.com/noah-isme/timetable-api/pkg/errors"
)

type timetableServiceMock struct {
	generateReq dto.GenerateTimetableRequest
	listQuery   dto.TimetableListQuery
	metaReq     dto.UpdateTimetableMetadataRequest
	deletedID   string
	optimizeErr error
	getErr      error
}

func (m *timetableServiceMock) Generate(ctx context.Context, req dto.GenerateTimetableRequest) (*dto.TimetableResponse, error) {
	m.generateReq = req
	resp := &dto.TimetableResponse{FitnessScore: 90}
	if !req.DryRun {
		resp.ID = "tt-1"
		resp.Persisted = true
	}
	return resp, nil
}

func (m *timetableServiceMock) Optimize(ctx context.Context, id string) (*dto.OptimizeTimetableResponse, error) {
	if m.optimizeErr != nil {
		return nil, m.optimizeErr
	}
	gaps := 0
	return &dto.OptimizeTimetableResponse{Success: true, Message: "reduced teacher gaps from 1 to 0 with 1 moved hours", NewGaps: &gaps}, nil
}

func (m *timetableServiceMock) List(ctx context.Context, query dto.TimetableListQuery) ([]models.SavedScheduleSummary, *models.Pagination, error) {
	m.listQuery = query
	return []models.SavedScheduleSummary{{ID: "tt-1"}}, &models.Pagination{Page: 2, PageSize: 5, TotalCount: 6}, nil
}

func (m *timetableServiceMock) Get(ctx context.Context, id string) (*dto.TimetableResponse, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	return &dto.TimetableResponse{ID: id, Persisted: true}, nil
}

func (m *timetableServiceMock) UpdateMetadata(ctx context.Context, id string, req dto.UpdateTimetableMetadataRequest) (*dto.TimetableResponse, error) {
	m.metaReq = req
	return &dto.TimetableResponse{ID: id, Name: req.Name}, nil
}

func (m *timetableServiceMock) Delete(ctx context.Context, id string) error {
	m.deletedID = id
	return nil
}

type exporterMock struct {
	format, teacherID string
}

func (m *exporterMock) Export(ctx context.Context, id, format, teacherID string) (*service.ExportFile, error) {
	m.format, m.teacherID = format, teacherID
	return &service.ExportFile{Filename: "timetable_" + id + ".csv", ContentType: "text/csv", Data: []byte("Teacher\n")}, nil
}

func newTimetableRouter(svc *timetableServiceMock, exporter *exporterMock) *gin.Engine {
	gin.SetMode(gin.TestMode)
	handler := &TimetableHandler{service: svc, exporter: exporter}
	router := gin.New()
	handler.Register(router.Group("/api/v1"))
	return router
}

func perform(router *gin.Engine, method, path string, body []byte) *httptest.ResponseRecorder {
	req, _ := http.NewRequest(method, path, bytes.NewReader(body))
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var payload map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &payload))
	return payload
}

func TestTimetableHandlerGenerateSaved(t *testing.T) {
	mockSvc := &timetableServiceMock{}
	router := newTimetableRouter(mockSvc, &exporterMock{})

	w := perform(router, http.MethodPost, "/api/v1/timetables/generate", []byte(`{"name":"Autumn","maxBlockHours":3,"weights":{"gaps":4}}`))

	require.Equal(t, http.StatusCreated, w.Code)
	require.NotNil(t, mockSvc.generateReq.Name)
	assert.Equal(t, "Autumn", *mockSvc.generateReq.Name)
	assert.Equal(t, 3, mockSvc.generateReq.MaxBlockHours)
	require.NotNil(t, mockSvc.generateReq.Weights)
	assert.Equal(t, 4.0, mockSvc.generateReq.Weights.Gaps)
	payload := decodeEnvelope(t, w)
	assert.Equal(t, "saved", payload["meta"].(map[string]interface{})["mode"])
}

func TestTimetableHandlerGenerateDryRunWithoutBody(t *testing.T) {
	router := newTimetableRouter(&timetableServiceMock{}, &exporterMock{})

	w := perform(router, http.MethodPost, "/api/v1/timetables/generate", []byte(`{"dryRun":true}`))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "preview", decodeEnvelope(t, w)["meta"].(map[string]interface{})["mode"])

	w = perform(router, http.MethodPost, "/api/v1/timetables/generate", nil)
	require.Equal(t, http.StatusCreated, w.Code)
}

func TestTimetableHandlerGenerateInvalidJSON(t *testing.T) {
	router := newTimetableRouter(&timetableServiceMock{}, &exporterMock{})

	w := perform(router, http.MethodPost, "/api/v1/timetables/generate", []byte(`{"name":`))
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTimetableHandlerListParsesQuery(t *testing.T) {
	mockSvc := &timetableServiceMock{}
	router := newTimetableRouter(mockSvc, &exporterMock{})

	w := perform(router, http.MethodGet, "/api/v1/timetables?search=autumn&page=2&pageSize=5&sortBy=total_gaps&sortOrder=asc", nil)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, dto.TimetableListQuery{Search: "autumn", Page: 2, PageSize: 5, SortBy: "total_gaps", SortOrder: "asc"}, mockSvc.listQuery)
	payload := decodeEnvelope(t, w)
	pagination := payload["pagination"].(map[string]interface{})
	assert.Equal(t, float64(6), pagination["total_count"])
}

func TestTimetableHandlerListRejectsBadPage(t *testing.T) {
	router := newTimetableRouter(&timetableServiceMock{}, &exporterMock{})

	w := perform(router, http.MethodGet, "/api/v1/timetables?page=abc", nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTimetableHandlerGetNotFound(t *testing.T) {
	mockSvc := &timetableServiceMock{getErr: appErrors.Clone(appErrors.ErrNotFound, "timetable not found")}
	router := newTimetableRouter(mockSvc, &exporterMock{})

	w := perform(router, http.MethodGet, "/api/v1/timetables/missing", nil)

	require.Equal(t, http.StatusNotFound, w.Code)
	payload := decodeEnvelope(t, w)
	assert.Equal(t, "NOT_FOUND", payload["error"].(map[string]interface{})["code"])
}

func TestTimetableHandlerUpdateAndDelete(t *testing.T) {
	mockSvc := &timetableServiceMock{}
	router := newTimetableRouter(mockSvc, &exporterMock{})

	w := perform(router, http.MethodPatch, "/api/v1/timetables/tt-1", []byte(`{"name":"Spring"}`))
	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, mockSvc.metaReq.Name)
	assert.Equal(t, "Spring", *mockSvc.metaReq.Name)

	w = perform(router, http.MethodDelete, "/api/v1/timetables/tt-1", nil)
	require.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "tt-1", mockSvc.deletedID)
}

func TestTimetableHandlerOptimize(t *testing.T) {
	router := newTimetableRouter(&timetableServiceMock{}, &exporterMock{})

	w := perform(router, http.MethodPost, "/api/v1/timetables/tt-1/optimize", nil)

	require.Equal(t, http.StatusOK, w.Code)
	data := decodeEnvelope(t, w)["data"].(map[string]interface{})
	assert.Equal(t, true, data["success"])
	assert.Equal(t, float64(0), data["newGaps"])
}

func TestTimetableHandlerOptimizeLocked(t *testing.T) {
	mockSvc := &timetableServiceMock{optimizeErr: appErrors.Clone(appErrors.ErrLocked, "timetable is already being optimized")}
	router := newTimetableRouter(mockSvc, &exporterMock{})

	w := perform(router, http.MethodPost, "/api/v1/timetables/tt-1/optimize", nil)
	require.Equal(t, http.StatusLocked, w.Code)
}

func TestTimetableHandlerExport(t *testing.T) {
	exporter := &exporterMock{}
	router := newTimetableRouter(&timetableServiceMock{}, exporter)

	w := perform(router, http.MethodGet, "/api/v1/timetables/tt-1/export?format=csv&teacherId=t1", nil)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "csv", exporter.format)
	assert.Equal(t, "t1", exporter.teacherID)
	assert.Equal(t, "text/csv", w.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="timetable_tt-1.csv"`, w.Header().Get("Content-Disposition"))
	assert.Equal(t, "Teacher\n", w.Body.String())
}
