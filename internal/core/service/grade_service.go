package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/openlearn/lms-api/internal/core/domain"
	"github.com/openlearn/lms-api/internal/core/ports"
)

// defaultTimeDeltaMinutes bounds the bulk sweep when the caller supplies no
// usable window.
const defaultTimeDeltaMinutes = 20000

// GradeCache abstracts the computed-grade cache (Redis).
type GradeCache interface {
	Get(ctx context.Context, username, courseID string) (*ports.CourseGrade, bool, error)
	Set(ctx context.Context, username, courseID string, grade *ports.CourseGrade) error
}

// GradeService computes course grades from graded submissions and the
// course's grading policy.
type GradeService struct {
	users       ports.UserRepository
	courses     ports.CourseRepository
	enrollments ports.EnrollmentRepository
	submissions ports.SubmissionRepository
	cache       GradeCache
	logger      zerolog.Logger
	now         func() time.Time
}

func NewGradeService(
	users ports.UserRepository,
	courses ports.CourseRepository,
	enrollments ports.EnrollmentRepository,
	submissions ports.SubmissionRepository,
	cache GradeCache,
	logger zerolog.Logger,
) *GradeService {
	return &GradeService{
		users:       users,
		courses:     courses,
		enrollments: enrollments,
		submissions: submissions,
		cache:       cache,
		logger:      logger,
		now:         time.Now,
	}
}

// WithClock overrides the service clock. Intended for use in tests.
func (s *GradeService) WithClock(now func() time.Time) *GradeService {
	s.now = now
	return s
}

// UserGrade resolves the course and effective target user, then returns the
// target's computed grade. A course the requester cannot load reads as not
// found, never as forbidden, so course existence is not leaked.
func (s *GradeService) UserGrade(ctx context.Context, in ports.UserGradeInput) (*ports.CourseGrade, error) {
	key, err := domain.ParseCourseKey(in.CourseID)
	if err != nil {
		return nil, err
	}

	requester, err := s.users.FindByUsername(ctx, in.RequesterUsername)
	if err != nil {
		return nil, err
	}

	course, err := s.courses.FindByKey(ctx, key)
	if err != nil {
		return nil, err
	}

	canLoad, err := s.canLoadCourse(ctx, requester, course)
	if err != nil {
		return nil, err
	}
	if !canLoad {
		return nil, fmt.Errorf("%w: %s", domain.ErrCourseNotFound, key)
	}

	target := requester
	if in.TargetUsername != "" && in.TargetUsername != requester.Username {
		staff, err := s.hasStaffAccess(ctx, requester, course)
		if err != nil {
			return nil, err
		}
		if !staff {
			s.logger.Info().
				Str("requester", requester.Username).
				Str("target", in.TargetUsername).
				Msg("cross-user grade request denied")
			return nil, domain.ErrForbidden
		}
		target, err = s.users.FindByUsername(ctx, in.TargetUsername)
		if err != nil {
			return nil, err
		}
	}

	if cached, ok, err := s.cache.Get(ctx, target.Username, key.String()); err == nil && ok {
		return cached, nil
	}

	grade, err := s.computeGrade(ctx, course, target)
	if err != nil {
		return nil, err
	}
	if err := s.cache.Set(ctx, target.Username, key.String(), grade); err != nil {
		s.logger.Warn().Err(err).Str("course", key.String()).Msg("grade cache write failed")
	}
	return grade, nil
}

// BulkRecentGrades sweeps submissions newer than the requested window, groups
// them per course and per student, and recomputes each affected grade.
// Courses outside the organization filter or inaccessible to the requester
// are skipped, as are zero-percent grades and courses left empty by that.
func (s *GradeService) BulkRecentGrades(ctx context.Context, in ports.BulkGradesInput) (ports.BulkGradesResult, error) {
	requester, err := s.users.FindByUsername(ctx, in.RequesterUsername)
	if err != nil {
		return nil, err
	}

	minutes := in.TimeDeltaMinutes
	if minutes <= 0 {
		minutes = defaultTimeDeltaMinutes
	}
	since := s.now().UTC().Add(-time.Duration(minutes) * time.Minute)

	subs, err := s.submissions.RecentGradeImpacting(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("recent submissions: %w", err)
	}

	studentsByCourse := make(map[string]map[string]struct{})
	for _, sub := range subs {
		if len(in.Organizations) > 0 {
			key, err := domain.ParseCourseKey(sub.CourseID)
			if err != nil {
				continue
			}
			if _, ok := in.Organizations[key.Org]; !ok {
				continue
			}
		}
		if studentsByCourse[sub.CourseID] == nil {
			studentsByCourse[sub.CourseID] = make(map[string]struct{})
		}
		studentsByCourse[sub.CourseID][sub.UserID] = struct{}{}
	}

	result := make(ports.BulkGradesResult)
	for courseID, studentIDs := range studentsByCourse {
		key, err := domain.ParseCourseKey(courseID)
		if err != nil {
			continue
		}
		course, err := s.courses.FindByKey(ctx, key)
		if err != nil {
			if errors.Is(err, domain.ErrCourseNotFound) {
				continue
			}
			return nil, err
		}
		canLoad, err := s.canLoadCourse(ctx, requester, course)
		if err != nil {
			return nil, err
		}
		if !canLoad {
			continue
		}

		entries := make(map[string]ports.BulkGradeEntry)
		for userID := range studentIDs {
			student, err := s.users.FindByID(ctx, userID)
			if err != nil {
				if errors.Is(err, domain.ErrUserNotFound) {
					continue
				}
				return nil, err
			}
			grade, err := s.computeGrade(ctx, course, student)
			if err != nil {
				return nil, err
			}
			if grade.Percent <= 0 {
				continue
			}
			entries[student.Email] = ports.BulkGradeEntry{
				Passed:  grade.Passed,
				Course:  course.DisplayName,
				Percent: grade.Percent,
				Letter:  grade.LetterGrade,
			}
		}
		if len(entries) > 0 {
			result[courseID] = entries
		}
	}
	return result, nil
}

// GradingPolicy returns the course's grader breakdown. Staff access only.
func (s *GradeService) GradingPolicy(ctx context.Context, courseID, requesterUsername string) ([]domain.Grader, error) {
	key, err := domain.ParseCourseKey(courseID)
	if err != nil {
		return nil, err
	}

	requester, err := s.users.FindByUsername(ctx, requesterUsername)
	if err != nil {
		return nil, err
	}

	course, err := s.courses.FindByKey(ctx, key)
	if err != nil {
		return nil, err
	}

	staff, err := s.hasStaffAccess(ctx, requester, course)
	if err != nil {
		return nil, err
	}
	if !staff {
		return nil, domain.ErrForbidden
	}
	return course.Graders, nil
}

// canLoadCourse reports whether the user may read the course: staff always,
// otherwise enrollment is required.
func (s *GradeService) canLoadCourse(ctx context.Context, user *domain.User, course *domain.Course) (bool, error) {
	if user.IsStaff {
		return true, nil
	}
	_, err := s.enrollments.Find(ctx, user.ID, course.Key.String())
	if err != nil {
		if errors.Is(err, domain.ErrEnrollmentNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("find enrollment: %w", err)
	}
	return true, nil
}

// hasStaffAccess reports global staff or per-course staff enrollment.
func (s *GradeService) hasStaffAccess(ctx context.Context, user *domain.User, course *domain.Course) (bool, error) {
	if user.IsStaff {
		return true, nil
	}
	enrollment, err := s.enrollments.Find(ctx, user.ID, course.Key.String())
	if err != nil {
		if errors.Is(err, domain.ErrEnrollmentNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("find enrollment: %w", err)
	}
	return enrollment.Staff, nil
}

// computeGrade runs the grade engine for one user in one course: per
// assignment type, missing submissions count as zero, the lowest Dropped
// scores are discarded, and the remaining average contributes Weight to the
// overall percent.
func (s *GradeService) computeGrade(ctx context.Context, course *domain.Course, user *domain.User) (*ports.CourseGrade, error) {
	subs, err := s.submissions.ForUserCourse(ctx, user.ID, course.Key.String())
	if err != nil {
		return nil, fmt.Errorf("load submissions: %w", err)
	}

	byType := make(map[string][]float64)
	for _, sub := range subs {
		if sub.Possible <= 0 {
			continue
		}
		byType[sub.AssignmentType] = append(byType[sub.AssignmentType], sub.Earned/sub.Possible)
	}

	var percent float64
	for _, grader := range course.Graders {
		percent += grader.Weight * assignmentAverage(byType[grader.AssignmentType], grader)
	}
	percent = math.Round(percent*100) / 100

	letter := letterGrade(course.GradeCutoffs, percent)
	return &ports.CourseGrade{
		Username:    user.Username,
		CourseKey:   course.Key.String(),
		Passed:      letter != nil,
		Percent:     percent,
		LetterGrade: letter,
	}, nil
}

// assignmentAverage averages one assignment type's scores under its grader
// row: pad to Count with zeros, drop the lowest Dropped, average the rest.
func assignmentAverage(scores []float64, grader domain.Grader) float64 {
	if grader.Count <= grader.Dropped {
		return 0
	}

	padded := make([]float64, 0, grader.Count)
	padded = append(padded, scores...)
	for len(padded) < grader.Count {
		padded = append(padded, 0)
	}
	sort.Float64s(padded)
	kept := padded[grader.Dropped:]

	var sum float64
	for _, score := range kept {
		sum += score
	}
	return sum / float64(len(kept))
}

// letterGrade picks the letter whose cutoff is the highest one at or below
// percent, or nil when no cutoff is reached.
func letterGrade(cutoffs map[string]float64, percent float64) *string {
	var best *string
	bestCutoff := -1.0
	for letter, cutoff := range cutoffs {
		if percent >= cutoff && cutoff > bestCutoff {
			l := letter
			best = &l
			bestCutoff = cutoff
		}
	}
	return best
}
