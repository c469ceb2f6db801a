package ports

import (
	"context"
	"time"

	"github.com/openlearn/lms-api/internal/core/domain"
)

// CourseRepository reads course definitions, including grading policy.
type CourseRepository interface {
	FindByKey(ctx context.Context, key domain.CourseKey) (*domain.Course, error)
}

// EnrollmentRepository reads course memberships.
type EnrollmentRepository interface {
	Find(ctx context.Context, userID, courseID string) (*domain.Enrollment, error)
}

// SubmissionRepository reads graded submissions.
type SubmissionRepository interface {
	// ForUserCourse returns every graded submission of one user in one course.
	ForUserCourse(ctx context.Context, userID, courseID string) ([]domain.Submission, error)
	// RecentGradeImpacting returns submissions newer than the threshold,
	// across all courses, most recent first.
	RecentGradeImpacting(ctx context.Context, since time.Time) ([]domain.Submission, error)
}
