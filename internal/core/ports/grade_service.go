package ports

import (
	"context"

	"github.com/openlearn/lms-api/internal/core/domain"
)

// UserGradeInput identifies whose grade in which course is requested, plus the
// requester identity needed for access checks.
type UserGradeInput struct {
	CourseID          string
	RequesterUsername string
	// TargetUsername is empty when the requester asks for their own grade.
	TargetUsername string
}

// CourseGrade is one computed course grade.
type CourseGrade struct {
	Username  string  `json:"username"`
	CourseKey string  `json:"course_key"`
	Passed    bool    `json:"passed"`
	Percent   float64 `json:"percent"`
	// LetterGrade is nil when no cutoff was reached.
	LetterGrade *string `json:"letter_grade"`
}

// BulkGradesInput filters the recently-impacted grade sweep.
type BulkGradesInput struct {
	RequesterUsername string
	// Organizations restricts the sweep to course keys whose org is in the
	// set; empty means all organizations.
	Organizations map[string]struct{}
	// TimeDeltaMinutes bounds how far back submissions are considered.
	TimeDeltaMinutes int
}

// BulkGradeEntry is one student's fresh grade inside a course group.
type BulkGradeEntry struct {
	Passed  bool    `json:"passed"`
	Course  string  `json:"course"`
	Percent float64 `json:"percent"`
	Letter  *string `json:"letter"`
}

// BulkGradesResult groups fresh grades per course ID, then per student email.
type BulkGradesResult map[string]map[string]BulkGradeEntry

// GradeService computes and serves course grades and grading policy.
type GradeService interface {
	UserGrade(ctx context.Context, in UserGradeInput) (*CourseGrade, error)
	BulkRecentGrades(ctx context.Context, in BulkGradesInput) (BulkGradesResult, error)
	// GradingPolicy returns the course's grader rows; staff access required.
	GradingPolicy(ctx context.Context, courseID, requesterUsername string) ([]domain.Grader, error)
}
