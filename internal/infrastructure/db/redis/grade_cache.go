package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/openlearn/lms-api/internal/api/metrics"
	"github.com/openlearn/lms-api/internal/core/ports"
)

const gradeTTL = 15 * time.Minute

// GradeCache is a read-through cache for computed course grades backed by
// Redis. Key format: grade:<username>:<course_key>
type GradeCache struct {
	client *redis.Client
}

// NewGradeCache creates a GradeCache wrapping the given Redis client.
func NewGradeCache(client *redis.Client) *GradeCache {
	return &GradeCache{client: client}
}

// Get returns the cached grade when present. A cache failure is reported as
// an error so callers can fall through to recomputation.
func (c *GradeCache) Get(ctx context.Context, username, courseID string) (*ports.CourseGrade, bool, error) {
	raw, err := c.client.Get(ctx, c.key(username, courseID)).Bytes()
	if err == redis.Nil {
		metrics.GradeCacheTotal.WithLabelValues("miss").Inc()
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("grade cache get: %w", err)
	}

	var grade ports.CourseGrade
	if err := json.Unmarshal(raw, &grade); err != nil {
		return nil, false, fmt.Errorf("grade cache decode: %w", err)
	}
	metrics.GradeCacheTotal.WithLabelValues("hit").Inc()
	return &grade, true, nil
}

// Set stores the grade for gradeTTL.
func (c *GradeCache) Set(ctx context.Context, username, courseID string, grade *ports.CourseGrade) error {
	raw, err := json.Marshal(grade)
	if err != nil {
		return fmt.Errorf("grade cache encode: %w", err)
	}
	return c.client.Set(ctx, c.key(username, courseID), raw, gradeTTL).Err()
}

func (c *GradeCache) key(username, courseID string) string {
	return fmt.Sprintf("grade:%s:%s", username, courseID)
}
