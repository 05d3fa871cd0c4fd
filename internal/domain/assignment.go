package domain

import "time"

// Course is a course the subscriber is actively enrolled in.
// Fetched fresh from the course API on every cycle, never persisted.
type Course struct {
	ID               int64
	Name             string
	CourseCode       string
	AccessRestricted bool
}

// Assignment is a single course assignment. CourseName and CourseCode are
// denormalized onto the record at aggregation time because the raw API
// record only carries the course id and the digest needs course context.
type Assignment struct {
	ID             int64
	CourseID       int64
	Name           string
	Description    string
	DueAt          *time.Time
	PointsPossible *float64
	HTMLURL        string
	CourseName     string
	CourseCode     string
}
