package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/openlearn/lms-api/internal/api/metrics"
	"github.com/openlearn/lms-api/internal/core/domain"
	"github.com/openlearn/lms-api/internal/core/ports"
)

// GradeHandler handles the grades API: per-user course grade, bulk recent
// grades and the course grading policy.
type GradeHandler struct {
	service ports.GradeService
}

func NewGradeHandler(service ports.GradeService) *GradeHandler {
	return &GradeHandler{service: service}
}

type gradingPolicyRow struct {
	AssignmentType string  `json:"assignment_type"`
	Count          int     `json:"count"`
	Dropped        int     `json:"dropped"`
	Weight         float64 `json:"weight"`
}

// UserGrade handles GET /api/grades/v0/course_grade/:course_id/users/.
//
// The requester gets their own grade by default; staff may target another
// enrolled user with ?username=.
//
// @Summary      Get a user's current course grade
// @Tags         grades
// @Produce      json
// @Security     BearerAuth
// @Param        course_id  path      string  true   "Course key (course-v1:Org+Course+Run)"
// @Param        username   query     string  false  "Target username (staff only)"
// @Success      200        {array}   ports.CourseGrade
// @Failure      403        {object}  map[string]string
// @Failure      404        {object}  map[string]string
// @Router       /api/grades/v0/course_grade/{course_id}/users/ [get]
func (h *GradeHandler) UserGrade(c echo.Context) error {
	username, _, err := ctxIdentity(c)
	if err != nil {
		return err
	}

	start := time.Now()
	grade, err := h.service.UserGrade(c.Request().Context(), ports.UserGradeInput{
		CourseID:          c.Param("course_id"),
		RequesterUsername: username,
		TargetUsername:    c.QueryParam("username"),
	})
	metrics.GradeComputationDuration.WithLabelValues("user_grade").Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.GradeRequestsTotal.WithLabelValues("user_grade", outcomeLabel(err)).Inc()
		return err
	}
	metrics.GradeRequestsTotal.WithLabelValues("user_grade", "ok").Inc()

	// The payload is a single-element list for compatibility with clients of
	// the original API version.
	return c.JSON(http.StatusOK, []*ports.CourseGrade{grade})
}

// BulkGrades handles POST /api/grades/v0/user_grades/.
//
// @Summary      Recompute grades recently impacted by submissions
// @Tags         grades
// @Produce      json
// @Security     BearerAuth
// @Param        organizations  query     string  false  "Comma-separated organization filter"
// @Param        time_delta     query     int     false  "Recency window in minutes"
// @Success      200            {object}  ports.BulkGradesResult
// @Failure      403            {object}  map[string]string
// @Router       /api/grades/v0/user_grades/ [post]
func (h *GradeHandler) BulkGrades(c echo.Context) error {
	username, _, err := ctxIdentity(c)
	if err != nil {
		return err
	}

	start := time.Now()
	result, err := h.service.BulkRecentGrades(c.Request().Context(), ports.BulkGradesInput{
		RequesterUsername: username,
		Organizations:     splitOrganizations(c.QueryParam("organizations")),
		TimeDeltaMinutes:  parseTimeDelta(c.QueryParam("time_delta")),
	})
	metrics.GradeComputationDuration.WithLabelValues("bulk_grades").Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.GradeRequestsTotal.WithLabelValues("bulk_grades", outcomeLabel(err)).Inc()
		return err
	}
	metrics.GradeRequestsTotal.WithLabelValues("bulk_grades", "ok").Inc()

	return c.JSON(http.StatusOK, result)
}

// Policy handles GET /api/grades/v0/policy/:course_id/.
//
// @Summary      Get the course grading policy
// @Tags         grades
// @Produce      json
// @Security     BearerAuth
// @Param        course_id  path      string  true  "Course key (course-v1:Org+Course+Run)"
// @Success      200        {array}   gradingPolicyRow
// @Failure      403        {object}  map[string]string
// @Failure      404        {object}  map[string]string
// @Router       /api/grades/v0/policy/{course_id}/ [get]
func (h *GradeHandler) Policy(c echo.Context) error {
	username, _, err := ctxIdentity(c)
	if err != nil {
		return err
	}

	graders, err := h.service.GradingPolicy(c.Request().Context(), c.Param("course_id"), username)
	if err != nil {
		metrics.GradeRequestsTotal.WithLabelValues("policy", outcomeLabel(err)).Inc()
		return err
	}
	metrics.GradeRequestsTotal.WithLabelValues("policy", "ok").Inc()

	rows := make([]gradingPolicyRow, 0, len(graders))
	for _, g := range graders {
		rows = append(rows, gradingPolicyRow{
			AssignmentType: g.AssignmentType,
			Count:          g.Count,
			Dropped:        g.Dropped,
			Weight:         g.Weight,
		})
	}
	return c.JSON(http.StatusOK, rows)
}

// splitOrganizations parses the comma-separated organizations parameter into
// a set; surrounding commas and blanks are tolerated.
func splitOrganizations(raw string) map[string]struct{} {
	raw = strings.Trim(raw, ",")
	if raw == "" {
		return nil
	}
	orgs := make(map[string]struct{})
	for _, org := range strings.Split(raw, ",") {
		if org = strings.TrimSpace(org); org != "" {
			orgs[org] = struct{}{}
		}
	}
	return orgs
}

// parseTimeDelta parses the minutes window; anything unusable yields zero so
// the service applies its generous default.
func parseTimeDelta(raw string) int {
	minutes, err := strconv.Atoi(raw)
	if err != nil {
		return 0
	}
	return minutes
}

func outcomeLabel(err error) string {
	switch {
	case errors.Is(err, domain.ErrCourseNotFound),
		errors.Is(err, domain.ErrInvalidCourseKey),
		errors.Is(err, domain.ErrUserNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrForbidden):
		return "forbidden"
	default:
		return "error"
	}
}
