package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/openlearn/lms-api/internal/core/domain"
)

const (
	coursesCollection     = "courses"
	enrollmentsCollection = "enrollments"
	submissionsCollection = "submissions"
)

// CourseRepository reads course definitions keyed by the canonical course-v1
// string, including the grading policy embedded in each course document.
type CourseRepository struct {
	coll *mongo.Collection
}

func NewCourseRepository(db *mongo.Database) *CourseRepository {
	return &CourseRepository{coll: db.Collection(coursesCollection)}
}

type mongoCourse struct {
	Key          string             `bson:"_id"`
	DisplayName  string             `bson:"display_name"`
	Graders      []domain.Grader    `bson:"graders"`
	GradeCutoffs map[string]float64 `bson:"grade_cutoffs"`
}

func (r *CourseRepository) FindByKey(ctx context.Context, key domain.CourseKey) (*domain.Course, error) {
	var mc mongoCourse
	if err := r.coll.FindOne(ctx, bson.M{"_id": key.String()}).Decode(&mc); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, domain.ErrCourseNotFound
		}
		return nil, fmt.Errorf("find course: %w", err)
	}

	return &domain.Course{
		Key:          key,
		DisplayName:  mc.DisplayName,
		Graders:      mc.Graders,
		GradeCutoffs: mc.GradeCutoffs,
	}, nil
}

// EnrollmentRepository reads course memberships.
type EnrollmentRepository struct {
	coll *mongo.Collection
}

func NewEnrollmentRepository(db *mongo.Database) *EnrollmentRepository {
	return &EnrollmentRepository{coll: db.Collection(enrollmentsCollection)}
}

type mongoEnrollment struct {
	UserID    string `bson:"user_id"`
	CourseID  string `bson:"course_id"`
	Staff     bool   `bson:"staff"`
	CreatedAt int64  `bson:"created_at"`
}

func (r *EnrollmentRepository) Find(ctx context.Context, userID, courseID string) (*domain.Enrollment, error) {
	var me mongoEnrollment
	filter := bson.M{"user_id": userID, "course_id": courseID}
	if err := r.coll.FindOne(ctx, filter).Decode(&me); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, domain.ErrEnrollmentNotFound
		}
		return nil, fmt.Errorf("find enrollment: %w", err)
	}

	return &domain.Enrollment{
		UserID:    me.UserID,
		CourseID:  me.CourseID,
		Staff:     me.Staff,
		CreatedAt: unixToTime(me.CreatedAt),
	}, nil
}

// SubmissionRepository reads graded submissions.
type SubmissionRepository struct {
	coll *mongo.Collection
}

func NewSubmissionRepository(db *mongo.Database) *SubmissionRepository {
	return &SubmissionRepository{coll: db.Collection(submissionsCollection)}
}

type mongoSubmission struct {
	ID             primitive.ObjectID `bson:"_id,omitempty"`
	UserID         string             `bson:"user_id"`
	CourseID       string             `bson:"course_id"`
	AssignmentType string             `bson:"assignment_type"`
	Earned         float64            `bson:"earned"`
	Possible       float64            `bson:"possible"`
	SubmittedAt    int64              `bson:"submitted_at"`
}

func (r *SubmissionRepository) ForUserCourse(ctx context.Context, userID, courseID string) ([]domain.Submission, error) {
	filter := bson.M{"user_id": userID, "course_id": courseID}
	return r.find(ctx, filter, nil)
}

func (r *SubmissionRepository) RecentGradeImpacting(ctx context.Context, since time.Time) ([]domain.Submission, error) {
	filter := bson.M{"submitted_at": bson.M{"$gt": since.Unix()}}
	sort := options.Find().SetSort(bson.D{{Key: "submitted_at", Value: -1}})
	return r.find(ctx, filter, sort)
}

func (r *SubmissionRepository) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]domain.Submission, error) {
	var cursor *mongo.Cursor
	var err error
	if opts != nil {
		cursor, err = r.coll.Find(ctx, filter, opts)
	} else {
		cursor, err = r.coll.Find(ctx, filter)
	}
	if err != nil {
		return nil, fmt.Errorf("find submissions: %w", err)
	}
	defer cursor.Close(ctx)

	var out []domain.Submission
	for cursor.Next(ctx) {
		var ms mongoSubmission
		if err := cursor.Decode(&ms); err != nil {
			return nil, fmt.Errorf("decode submission: %w", err)
		}
		out = append(out, domain.Submission{
			ID:             ms.ID.Hex(),
			UserID:         ms.UserID,
			CourseID:       ms.CourseID,
			AssignmentType: ms.AssignmentType,
			Earned:         ms.Earned,
			Possible:       ms.Possible,
			SubmittedAt:    unixToTime(ms.SubmittedAt),
		})
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("iterate submissions: %w", err)
	}
	return out, nil
}
