package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx/types"
	"go.uber.org/zap"

	"github.com/noah-isme/timetable-api/internal/dto"
	"github.com/noah-isme/timetable-api/internal/models"
	"github.com/noah-isme/timetable-api/internal/scheduler"
	appErrors "github.com/noah-isme/timetable-api/pkg/errors"
)

const (
	operationGenerate = "generate"
	operationOptimize = "optimize"

	timetableListPrefix  = timetableCachePrefix + "list:"
	timetableListPattern = timetableListPrefix + "*"
)

type savedScheduleRepository interface {
	Create(ctx context.Context, schedule *models.SavedSchedule) error
	FindByID(ctx context.Context, id string) (*models.SavedSchedule, error)
	List(ctx context.Context, filter models.SavedScheduleFilter) ([]models.SavedScheduleSummary, int, error)
	UpdateMetadata(ctx context.Context, id string, name, description *string) error
	UpdateOptimized(ctx context.Context, schedule *models.SavedSchedule) error
	Delete(ctx context.Context, id string) error
}

type timetableLocker interface {
	Acquire(ctx context.Context, name string, ttl time.Duration) (string, bool, error)
	Release(ctx context.Context, name, token string) error
}

type timetableCache interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Forget(ctx context.Context, keys ...string) error
	Invalidate(ctx context.Context, pattern string) error
}

// TimetableConfig governs solver and optimizer runs.
type TimetableConfig struct {
	Days               int
	HoursPerDay        int
	Solver             scheduler.Options
	SolveTimeout       time.Duration
	OptimizerMaxPasses int
	OptimizeTimeout    time.Duration
	LockTTL            time.Duration
	CacheTTL           time.Duration
}

// TimetableService generates, optimizes and manages saved timetables.
type TimetableService struct {
	repos     TimetableRepositories
	cache     timetableCache
	locker    timetableLocker
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	cfg       TimetableConfig
}

type timetableListPage struct {
	Items      []models.SavedScheduleSummary `json:"items"`
	Pagination models.Pagination             `json:"pagination"`
}

// NewTimetableService wires timetable dependencies.
func NewTimetableService(
	repos TimetableRepositories,
	cache timetableCache,
	locker timetableLocker,
	metrics *MetricsService,
	validate *validator.Validate,
	logger *zap.Logger,
	cfg TimetableConfig,
) *TimetableService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cache == nil {
		cache = NewCacheService(nil, metrics, cfg.CacheTTL, logger, false)
	}
	if cfg.Days <= 0 {
		cfg.Days = scheduler.MaxDays
	}
	if cfg.HoursPerDay <= 0 {
		cfg.HoursPerDay = scheduler.MaxHoursPerDay
	}
	if cfg.Solver.Weights == (scheduler.Weights{}) {
		cfg.Solver.Weights = scheduler.DefaultWeights()
	}
	if cfg.SolveTimeout <= 0 {
		cfg.SolveTimeout = 30 * time.Second
	}
	if cfg.OptimizeTimeout <= 0 {
		cfg.OptimizeTimeout = 15 * time.Second
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = time.Minute
	}
	return &TimetableService{
		repos:     repos,
		cache:     cache,
		locker:    locker,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		cfg:       cfg,
	}
}

// Generate solves a fresh timetable from the stored school data and, unless the
// request is a dry run, persists it.
func (s *TimetableService) Generate(ctx context.Context, req dto.GenerateTimetableRequest) (*dto.TimetableResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid timetable generation payload")
	}
	opts := s.cfg.Solver
	if req.Weights != nil {
		weights := scheduler.Weights{
			Variance:   req.Weights.Variance,
			Gaps:       req.Weights.Gaps,
			Unassigned: req.Weights.Unassigned,
			Spread:     req.Weights.Spread,
		}
		if weights == (scheduler.Weights{}) {
			return nil, appErrors.Clone(appErrors.ErrInvalidWeights, "at least one cost weight must be positive")
		}
		opts.Weights = weights
	}
	if req.MaxBlockHours > 0 {
		opts.MaxBlockHours = req.MaxBlockHours
	}

	model, err := s.buildModel(ctx)
	if err != nil {
		return nil, err
	}

	runCtx, cancel := context.WithTimeout(ctx, s.cfg.SolveTimeout)
	defer cancel()
	start := time.Now()
	result, err := scheduler.NewSolver(opts).Solve(runCtx, model)
	elapsed := time.Since(start)
	if err != nil {
		s.metrics.ObserveTimetableRun(operationGenerate, OutcomeFailed, elapsed)
		return nil, appErrors.Wrap(err, appErrors.ErrUnprocessable.Code, appErrors.ErrUnprocessable.Status, "timetable could not be generated")
	}
	s.metrics.ObserveTimetableRun(operationGenerate, outcomeOf(result.Cancelled), elapsed)
	s.metrics.SetTimetableQuality(result.UnassignedHours, result.TotalGaps)
	s.trace(operationGenerate, result.Logs)
	s.logger.Info("timetable generated",
		zap.Int("entries", result.Schedule.Len()),
		zap.Int("unassigned_hours", result.UnassignedHours),
		zap.Int("total_gaps", result.TotalGaps),
		zap.Float64("fitness_score", result.FitnessScore),
		zap.Int("warnings", len(result.Warnings)),
		zap.Bool("cancelled", result.Cancelled),
		zap.Duration("elapsed", elapsed),
	)

	unassigned := toUnassignedLessons(result.Unassigned)
	resp := &dto.TimetableResponse{
		Name:              req.Name,
		Description:       req.Description,
		FitnessScore:      result.FitnessScore,
		WorkloadVariance:  result.WorkloadVariance,
		TotalGaps:         result.TotalGaps,
		Schedule:          scheduler.Serialize(result.Schedule),
		UnassignedLessons: unassigned,
		Logs:              result.Logs,
		Warnings:          warningStrings(result.Warnings),
		Cancelled:         result.Cancelled,
	}
	if req.DryRun {
		return resp, nil
	}

	saved, err := newSavedSchedule(req, result, unassigned)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode timetable")
	}
	if err := s.repos.Saved.Create(ctx, saved); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist timetable")
	}
	_ = s.cache.Invalidate(ctx, timetableListPattern)

	resp.ID = saved.ID
	resp.Persisted = true
	resp.CreatedAt = &saved.CreatedAt
	resp.UpdatedAt = &saved.UpdatedAt
	return resp, nil
}

// Optimize reduces the teacher gaps of a saved timetable. Concurrent requests for
// the same id are rejected with ErrLocked. Failures of the optimizer itself are
// reported through the response rather than as errors.
func (s *TimetableService) Optimize(ctx context.Context, id string) (*dto.OptimizeTimetableResponse, error) {
	if strings.TrimSpace(id) == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "timetable id is required")
	}
	if s.locker == nil {
		return nil, appErrors.Clone(appErrors.ErrInternal, "optimizer lock unavailable")
	}
	lockName := TimetableKey(id)
	token, ok, err := s.locker.Acquire(ctx, lockName, s.cfg.LockTTL)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to acquire optimizer lock")
	}
	if !ok {
		s.metrics.ObserveTimetableRun(operationOptimize, OutcomeLocked, 0)
		return nil, appErrors.Clone(appErrors.ErrLocked, "timetable is already being optimized")
	}
	defer func() {
		if err := s.locker.Release(context.WithoutCancel(ctx), lockName, token); err != nil {
			s.logger.Warn("release optimizer lock", zap.String("timetable_id", id), zap.Error(err))
		}
	}()

	saved, err := s.findSaved(ctx, id)
	if err != nil {
		return nil, err
	}
	schedule, storeWarnings, err := scheduler.Unmarshal(saved.Schedule)
	if err != nil {
		s.logger.Warn("stored timetable unreadable", zap.String("timetable_id", id), zap.Error(err))
		return &dto.OptimizeTimetableResponse{Success: false, Message: "stored schedule is unreadable"}, nil
	}
	for _, w := range storeWarnings {
		s.logger.Warn("stored timetable row skipped", zap.String("timetable_id", id), zap.String("warning", w.String()))
	}
	model, err := s.buildModel(ctx)
	if err != nil {
		return nil, err
	}

	runCtx, cancel := context.WithTimeout(ctx, s.cfg.OptimizeTimeout)
	defer cancel()
	start := time.Now()
	result, err := scheduler.NewOptimizer(scheduler.OptimizerOptions{MaxPasses: s.cfg.OptimizerMaxPasses}).Optimize(runCtx, schedule, model)
	elapsed := time.Since(start)
	if err != nil {
		s.metrics.ObserveTimetableRun(operationOptimize, OutcomeFailed, elapsed)
		s.logger.Warn("timetable optimization failed", zap.String("timetable_id", id), zap.Error(err))
		return &dto.OptimizeTimetableResponse{Success: false, Message: fmt.Sprintf("optimization failed: %v", err)}, nil
	}
	s.metrics.ObserveTimetableRun(operationOptimize, outcomeOf(result.Cancelled), elapsed)
	s.metrics.SetTimetableQuality(-1, result.TotalGaps)

	summary := optimizeSummary(result)
	if len(storeWarnings) > 0 {
		summary += fmt.Sprintf("; skipped %d stored rows", len(storeWarnings))
	}
	s.logger.Info("timetable optimized",
		zap.String("timetable_id", id),
		zap.Int("initial_gaps", result.InitialGaps),
		zap.Int("total_gaps", result.TotalGaps),
		zap.Int("changes", len(result.Changes)),
		zap.Int("passes", result.Passes),
		zap.Duration("elapsed", elapsed),
	)
	newGaps := result.TotalGaps
	resp := &dto.OptimizeTimetableResponse{Success: true, Message: summary, NewGaps: &newGaps, Changes: result.Changes}
	if len(result.Changes) == 0 {
		return resp, nil
	}

	logs := decodeStrings(saved.Logs)
	for _, w := range storeWarnings {
		logs = append(logs, w.String())
	}
	for _, change := range result.Changes {
		logs = append(logs, fmt.Sprintf("optimizer %s %s %s -> %s: %s", change.Type, change.LessonID, change.FromKey, change.ToKey, change.Reason))
	}
	logs = append(logs, summary)
	s.trace(operationOptimize, logs[len(logs)-len(result.Changes)-1:])

	body, err := scheduler.Marshal(result.Schedule)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode optimized timetable")
	}
	logsJSON, err := json.Marshal(logs)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode optimizer logs")
	}
	quality := scheduler.Evaluate(result.Schedule, model, unassignedHours(saved), s.cfg.Solver.Weights)
	saved.Schedule = types.JSONText(body)
	saved.FitnessScore = quality.FitnessScore
	saved.WorkloadVariance = quality.WorkloadVariance
	saved.TotalGaps = result.TotalGaps
	saved.Logs = types.JSONText(logsJSON)
	if err := s.repos.Saved.UpdateOptimized(ctx, saved); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "timetable not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist optimized timetable")
	}
	s.forget(ctx, id)
	return resp, nil
}

// List returns saved timetable summaries.
func (s *TimetableService) List(ctx context.Context, query dto.TimetableListQuery) ([]models.SavedScheduleSummary, *models.Pagination, error) {
	filter := models.SavedScheduleFilter{
		Search:    strings.TrimSpace(query.Search),
		Page:      query.Page,
		PageSize:  query.PageSize,
		SortBy:    query.SortBy,
		SortOrder: query.SortOrder,
	}
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 || filter.PageSize > 100 {
		filter.PageSize = 20
	}

	key := fmt.Sprintf("%s%s|%d|%d|%s|%s", timetableListPrefix, strings.ToLower(filter.Search), filter.Page, filter.PageSize, filter.SortBy, filter.SortOrder)
	var cached timetableListPage
	if hit, _ := s.cache.Get(ctx, key, &cached); hit {
		return cached.Items, &cached.Pagination, nil
	}

	items, total, err := s.repos.Saved.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list timetables")
	}
	if items == nil {
		items = []models.SavedScheduleSummary{}
	}
	page := timetableListPage{Items: items, Pagination: models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}}
	_ = s.cache.Set(ctx, key, page, s.cfg.CacheTTL)
	return page.Items, &page.Pagination, nil
}

// Get returns a saved timetable, served from cache when possible.
func (s *TimetableService) Get(ctx context.Context, id string) (*dto.TimetableResponse, error) {
	if strings.TrimSpace(id) == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "timetable id is required")
	}
	var cached dto.TimetableResponse
	if hit, _ := s.cache.Get(ctx, TimetableKey(id), &cached); hit {
		return &cached, nil
	}

	saved, err := s.findSaved(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := toTimetableResponse(saved)
	_ = s.cache.Set(ctx, TimetableKey(id), resp, s.cfg.CacheTTL)
	return resp, nil
}

// UpdateMetadata replaces the name and description of a saved timetable.
func (s *TimetableService) UpdateMetadata(ctx context.Context, id string, req dto.UpdateTimetableMetadataRequest) (*dto.TimetableResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid timetable metadata payload")
	}
	if err := s.repos.Saved.UpdateMetadata(ctx, id, trimmed(req.Name), trimmed(req.Description)); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "timetable not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update timetable")
	}
	s.forget(ctx, id)
	return s.Get(ctx, id)
}

// Delete removes a saved timetable.
func (s *TimetableService) Delete(ctx context.Context, id string) error {
	if err := s.repos.Saved.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "timetable not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete timetable")
	}
	s.forget(ctx, id)
	return nil
}

func (s *TimetableService) findSaved(ctx context.Context, id string) (*models.SavedSchedule, error) {
	saved, err := s.repos.Saved.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "timetable not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load timetable")
	}
	return saved, nil
}

func (s *TimetableService) buildModel(ctx context.Context) (*scheduler.InputModel, error) {
	grid, err := scheduler.NewGrid(s.cfg.Days, s.cfg.HoursPerDay)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "invalid timetable grid configuration")
	}
	raw, err := s.loadInput(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load scheduling data")
	}
	model, err := scheduler.Normalize(grid, raw)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnprocessable.Code, appErrors.ErrUnprocessable.Status, "scheduling data cannot be used")
	}
	return model, nil
}

func (s *TimetableService) forget(ctx context.Context, id string) {
	_ = s.cache.Forget(ctx, TimetableKey(id))
	_ = s.cache.Invalidate(ctx, timetableListPattern)
}

func (s *TimetableService) trace(operation string, lines []string) {
	if !s.logger.Core().Enabled(zap.DebugLevel) {
		return
	}
	for _, line := range lines {
		s.logger.Debug("timetable trace", zap.String("operation", operation), zap.String("line", line))
	}
}

func newSavedSchedule(req dto.GenerateTimetableRequest, result *scheduler.Result, unassigned []models.UnassignedLesson) (*models.SavedSchedule, error) {
	body, err := scheduler.Marshal(result.Schedule)
	if err != nil {
		return nil, err
	}
	unassignedJSON, err := json.Marshal(unassigned)
	if err != nil {
		return nil, err
	}
	logsJSON, err := json.Marshal(result.Logs)
	if err != nil {
		return nil, err
	}
	return &models.SavedSchedule{
		Name:             trimmed(req.Name),
		Description:      trimmed(req.Description),
		FitnessScore:     result.FitnessScore,
		WorkloadVariance: result.WorkloadVariance,
		TotalGaps:        result.TotalGaps,
		Schedule:         types.JSONText(body),
		Unassigned:       types.JSONText(unassignedJSON),
		Logs:             types.JSONText(logsJSON),
	}, nil
}

func toTimetableResponse(saved *models.SavedSchedule) *dto.TimetableResponse {
	resp := &dto.TimetableResponse{
		ID:                saved.ID,
		Name:              saved.Name,
		Description:       saved.Description,
		FitnessScore:      saved.FitnessScore,
		WorkloadVariance:  saved.WorkloadVariance,
		TotalGaps:         saved.TotalGaps,
		Schedule:          []scheduler.Row{},
		UnassignedLessons: []models.UnassignedLesson{},
		Logs:              decodeStrings(saved.Logs),
		Persisted:         true,
		CreatedAt:         &saved.CreatedAt,
		UpdatedAt:         &saved.UpdatedAt,
	}
	schedule, warnings, err := scheduler.Unmarshal(saved.Schedule)
	if err != nil {
		resp.Warnings = append(resp.Warnings, "stored schedule is unreadable")
	} else {
		resp.Schedule = scheduler.Serialize(schedule)
		resp.Warnings = append(resp.Warnings, warningStrings(warnings)...)
	}
	if len(saved.Unassigned) > 0 {
		if err := json.Unmarshal(saved.Unassigned, &resp.UnassignedLessons); err != nil {
			resp.Warnings = append(resp.Warnings, "stored unassigned lessons are unreadable")
		}
	}
	return resp
}

// toUnassignedLessons merges remainders per lesson, keeping first-seen order.
func toUnassignedLessons(remainders []scheduler.UnassignedRemainder) []models.UnassignedLesson {
	result := make([]models.UnassignedLesson, 0, len(remainders))
	index := make(map[string]int, len(remainders))
	for _, r := range remainders {
		if i, ok := index[r.LessonID]; ok {
			result[i].WeeklyHours += r.RemainingHours
			continue
		}
		index[r.LessonID] = len(result)
		result = append(result, models.UnassignedLesson{ID: r.LessonID, Name: r.LessonName, WeeklyHours: r.RemainingHours})
	}
	return result
}

func unassignedHours(saved *models.SavedSchedule) int {
	var lessons []models.UnassignedLesson
	if len(saved.Unassigned) == 0 || json.Unmarshal(saved.Unassigned, &lessons) != nil {
		return 0
	}
	total := 0
	for _, l := range lessons {
		total += l.WeeklyHours
	}
	return total
}

func optimizeSummary(result *scheduler.OptimizeResult) string {
	switch {
	case result.Cancelled:
		return fmt.Sprintf("optimization stopped early after %d passes: gaps %d -> %d", result.Passes, result.InitialGaps, result.TotalGaps)
	case len(result.Changes) == 0:
		return fmt.Sprintf("no improving move found: %d gaps remain", result.TotalGaps)
	default:
		return fmt.Sprintf("reduced teacher gaps from %d to %d with %d moved hours", result.InitialGaps, result.TotalGaps, len(result.Changes))
	}
}

func outcomeOf(cancelled bool) string {
	if cancelled {
		return OutcomeCancelled
	}
	return OutcomeSuccess
}

func warningStrings(warnings []scheduler.Warning) []string {
	if len(warnings) == 0 {
		return nil
	}
	out := make([]string, len(warnings))
	for i, w := range warnings {
		out[i] = w.String()
	}
	return out
}

func decodeStrings(raw types.JSONText) []string {
	out := []string{}
	if len(raw) == 0 {
		return out
	}
	if err := json.Unmarshal(raw, &out); err != nil || out == nil {
		return []string{}
	}
	return out
}

func trimmed(value *string) *string {
	if value == nil {
		return nil
	}
	v := strings.TrimSpace(*value)
	if v == "" {
		return nil
	}
	return &v
}
