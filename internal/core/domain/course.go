package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var ErrInvalidCourseKey = errors.New("invalid course key")
var ErrCourseNotFound = errors.New("course not found")
var ErrEnrollmentNotFound = errors.New("enrollment not found")
var ErrForbidden = errors.New("access forbidden")

// CourseKey identifies a single course run, e.g. "course-v1:edX+DemoX+2026".
// The legacy slash form "edX/DemoX/2026" is still accepted on input.
type CourseKey struct {
	Org    string
	Course string
	Run    string
}

const courseKeyPrefix = "course-v1:"

// ParseCourseKey parses both the modern and the legacy course key notation.
func ParseCourseKey(s string) (CourseKey, error) {
	var parts []string
	switch {
	case strings.HasPrefix(s, courseKeyPrefix):
		parts = strings.Split(strings.TrimPrefix(s, courseKeyPrefix), "+")
	case strings.Count(s, "/") == 2:
		parts = strings.Split(s, "/")
	default:
		return CourseKey{}, fmt.Errorf("%w: %q", ErrInvalidCourseKey, s)
	}

	if len(parts) != 3 || parts[0] == "" || parts[1] == "" || parts[2] == "" {
		return CourseKey{}, fmt.Errorf("%w: %q", ErrInvalidCourseKey, s)
	}
	return CourseKey{Org: parts[0], Course: parts[1], Run: parts[2]}, nil
}

// String renders the canonical course-v1 form.
func (k CourseKey) String() string {
	return courseKeyPrefix + k.Org + "+" + k.Course + "+" + k.Run
}

// Grader is one assignment-type row of a course's grading policy.
type Grader struct {
	AssignmentType string  `json:"assignment_type" bson:"assignment_type"`
	Count          int     `json:"count" bson:"count"`
	Dropped        int     `json:"dropped" bson:"dropped"`
	Weight         float64 `json:"weight" bson:"weight"`
}

// Course is the graded course aggregate: identity plus grading policy.
type Course struct {
	Key         CourseKey `json:"course_key"`
	DisplayName string    `json:"display_name"`
	Graders     []Grader  `json:"graders"`
	// GradeCutoffs maps a letter grade to the minimum percent that earns it,
	// e.g. {"A": 0.9, "B": 0.8, "Pass": 0.5}.
	GradeCutoffs map[string]float64 `json:"grade_cutoffs"`
}

// Enrollment links a user to a course. Staff marks per-course staff access,
// granting the same privileges inside the course as global staff.
type Enrollment struct {
	UserID    string    `json:"user_id"`
	CourseID  string    `json:"course_id"`
	Staff     bool      `json:"staff"`
	CreatedAt time.Time `json:"created_at"`
}

// Submission is a graded problem submission, the unit the grade engine
// aggregates. Earned and Possible are raw points.
type Submission struct {
	ID             string    `json:"id"`
	UserID         string    `json:"user_id"`
	CourseID       string    `json:"course_id"`
	AssignmentType string    `json:"assignment_type"`
	Earned         float64   `json:"earned"`
	Possible       float64   `json:"possible"`
	SubmittedAt    time.Time `json:"submitted_at"`
}
