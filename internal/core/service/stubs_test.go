package service

import (
	"context"
	"time"

	"github.com/openlearn/lms-api/internal/core/domain"
	"github.com/openlearn/lms-api/internal/core/ports"
)

// In-memory fakes shared by the service tests.

type stubUserRepo struct {
	users map[string]*domain.User // keyed by ID
}

func newStubUserRepo(users ...*domain.User) *stubUserRepo {
	r := &stubUserRepo{users: make(map[string]*domain.User)}
	for _, u := range users {
		r.users[u.ID] = u
	}
	return r
}

func (r *stubUserRepo) FindByID(_ context.Context, id string) (*domain.User, error) {
	if u, ok := r.users[id]; ok {
		return u, nil
	}
	return nil, domain.ErrUserNotFound
}

func (r *stubUserRepo) FindByUsername(_ context.Context, username string) (*domain.User, error) {
	for _, u := range r.users {
		if u.Username == username {
			return u, nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (r *stubUserRepo) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	for _, u := range r.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, domain.ErrUserNotFound
}

type stubProfileRepo struct {
	profiles map[string]*domain.UserProfile // keyed by user ID
}

func newStubProfileRepo(profiles ...*domain.UserProfile) *stubProfileRepo {
	r := &stubProfileRepo{profiles: make(map[string]*domain.UserProfile)}
	for _, p := range profiles {
		r.profiles[p.UserID] = p
	}
	return r
}

func (r *stubProfileRepo) FindByUserID(_ context.Context, userID string) (*domain.UserProfile, error) {
	if p, ok := r.profiles[userID]; ok {
		return p, nil
	}
	return nil, domain.ErrUserNotFound
}

type stubAppRepo struct {
	apps       map[string]*domain.Application // keyed by ID
	restricted map[string]bool
}

func newStubAppRepo(apps ...*domain.Application) *stubAppRepo {
	r := &stubAppRepo{apps: make(map[string]*domain.Application), restricted: make(map[string]bool)}
	for _, a := range apps {
		r.apps[a.ID] = a
	}
	return r
}

func (r *stubAppRepo) FindByName(_ context.Context, name string) (*domain.Application, error) {
	for _, a := range r.apps {
		if a.Name == name {
			return a, nil
		}
	}
	return nil, domain.ErrApplicationNotFound
}

func (r *stubAppRepo) FindByClientID(_ context.Context, clientID string) (*domain.Application, error) {
	for _, a := range r.apps {
		if a.ClientID == clientID {
			return a, nil
		}
	}
	return nil, domain.ErrApplicationNotFound
}

func (r *stubAppRepo) IsRestricted(_ context.Context, applicationID string) (bool, error) {
	return r.restricted[applicationID], nil
}

type stubTokenRepo struct {
	saved map[string]*domain.AccessToken
}

func newStubTokenRepo() *stubTokenRepo {
	return &stubTokenRepo{saved: make(map[string]*domain.AccessToken)}
}

func (r *stubTokenRepo) Save(_ context.Context, token *domain.AccessToken) error {
	clone := *token
	r.saved[token.Token] = &clone
	return nil
}

func (r *stubTokenRepo) FindByToken(_ context.Context, token string) (*domain.AccessToken, error) {
	if t, ok := r.saved[token]; ok {
		return t, nil
	}
	return nil, domain.ErrInvalidCredentials
}

type stubCourseRepo struct {
	courses map[string]*domain.Course // keyed by canonical course key
}

func newStubCourseRepo(courses ...*domain.Course) *stubCourseRepo {
	r := &stubCourseRepo{courses: make(map[string]*domain.Course)}
	for _, c := range courses {
		r.courses[c.Key.String()] = c
	}
	return r
}

func (r *stubCourseRepo) FindByKey(_ context.Context, key domain.CourseKey) (*domain.Course, error) {
	if c, ok := r.courses[key.String()]; ok {
		return c, nil
	}
	return nil, domain.ErrCourseNotFound
}

type stubEnrollmentRepo struct {
	enrollments []domain.Enrollment
}

func (r *stubEnrollmentRepo) Find(_ context.Context, userID, courseID string) (*domain.Enrollment, error) {
	for i := range r.enrollments {
		e := &r.enrollments[i]
		if e.UserID == userID && e.CourseID == courseID {
			return e, nil
		}
	}
	return nil, domain.ErrEnrollmentNotFound
}

type stubSubmissionRepo struct {
	submissions []domain.Submission
}

func (r *stubSubmissionRepo) ForUserCourse(_ context.Context, userID, courseID string) ([]domain.Submission, error) {
	var out []domain.Submission
	for _, s := range r.submissions {
		if s.UserID == userID && s.CourseID == courseID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (r *stubSubmissionRepo) RecentGradeImpacting(_ context.Context, since time.Time) ([]domain.Submission, error) {
	var out []domain.Submission
	for _, s := range r.submissions {
		if s.SubmittedAt.After(since) {
			out = append(out, s)
		}
	}
	return out, nil
}

type stubGradeCache struct {
	entries map[string]*ports.CourseGrade
	hits    int
	sets    int
}

func newStubGradeCache() *stubGradeCache {
	return &stubGradeCache{entries: make(map[string]*ports.CourseGrade)}
}

func (c *stubGradeCache) Get(_ context.Context, username, courseID string) (*ports.CourseGrade, bool, error) {
	if g, ok := c.entries[username+"|"+courseID]; ok {
		c.hits++
		return g, true, nil
	}
	return nil, false, nil
}

func (c *stubGradeCache) Set(_ context.Context, username, courseID string, grade *ports.CourseGrade) error {
	c.sets++
	c.entries[username+"|"+courseID] = grade
	return nil
}
