// Package digest selects a subscriber's upcoming assignments across all
// active courses and renders them into the textual digest handed to the
// text-generation API.
package digest

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/studyping/studyping/internal/domain"
	"github.com/studyping/studyping/internal/pkg/ctxlog"
)

// CourseAPI is the slice of the course-data client the aggregator needs.
type CourseAPI interface {
	Courses(ctx context.Context, apiKey, baseURL string) ([]domain.Course, error)
	Assignments(ctx context.Context, apiKey string, courseID int64, baseURL string) ([]domain.Assignment, error)
}

// Aggregator merges per-course assignment lists into a single upcoming set.
type Aggregator struct {
	api CourseAPI
}

// NewAggregator creates an aggregator over the given course API client.
func NewAggregator(api CourseAPI) *Aggregator {
	return &Aggregator{api: api}
}

// Result is the outcome of one aggregation.
type Result struct {
	Assignments    []domain.Assignment
	CoursesChecked int
}

// Upcoming fetches all active courses, fetches each course's assignments
// concurrently, and returns the merged list filtered to the lookahead
// window and sorted ascending by due date.
//
// Aggregation is best-effort per course: a failed course fetch is logged
// and contributes zero assignments rather than aborting the whole call.
// Assignments without a due date are excluded.
func (a *Aggregator) Upcoming(ctx context.Context, apiKey, baseURL string, daysAhead int) (*Result, error) {
	if daysAhead <= 0 {
		daysAhead = domain.DefaultDaysAhead
	}

	courses, err := a.api.Courses(ctx, apiKey, baseURL)
	if err != nil {
		return nil, err
	}

	var (
		mu     sync.Mutex
		merged []domain.Assignment
		wg     sync.WaitGroup
	)

	for _, course := range courses {
		wg.Add(1)
		go func(course domain.Course) {
			defer wg.Done()

			assignments, err := a.api.Assignments(ctx, apiKey, course.ID, baseURL)
			if err != nil {
				ctxlog.FromContext(ctx).Warn("course assignment fetch failed, skipping course",
					"course_id", course.ID,
					"course_name", course.Name,
					"error", err,
				)
				return
			}

			for i := range assignments {
				assignments[i].CourseName = course.Name
				assignments[i].CourseCode = course.CourseCode
			}

			mu.Lock()
			merged = append(merged, assignments...)
			mu.Unlock()
		}(course)
	}
	wg.Wait()

	now := time.Now()
	cutoff := now.Add(time.Duration(daysAhead) * 24 * time.Hour)

	upcoming := make([]domain.Assignment, 0, len(merged))
	for _, assignment := range merged {
		if assignment.DueAt == nil {
			continue
		}
		if assignment.DueAt.After(now) && !assignment.DueAt.After(cutoff) {
			upcoming = append(upcoming, assignment)
		}
	}

	sort.SliceStable(upcoming, func(i, j int) bool {
		di, dj := upcoming[i].DueAt, upcoming[j].DueAt
		if di == nil || dj == nil {
			// Undated assignments were already excluded above.
			return false
		}
		return di.Before(*dj)
	})

	return &Result{
		Assignments:    upcoming,
		CoursesChecked: len(courses),
	}, nil
}
