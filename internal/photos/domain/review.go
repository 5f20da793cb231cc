// Package domain holds the photo review states and the aggregate gate a job
// must pass before a supervisor can approve it.
package domain

import "fmt"

// ReviewStatus is the review state of one photo.
type ReviewStatus string

const (
	StatusPending  ReviewStatus = "pending"
	StatusApproved ReviewStatus = "approved"
	StatusRejected ReviewStatus = "rejected"
)

// ParseReviewStatus validates a stored status value.
func ParseReviewStatus(value string) (ReviewStatus, error) {
	switch s := ReviewStatus(value); s {
	case StatusPending, StatusApproved, StatusRejected:
		return s, nil
	default:
		return "", fmt.Errorf("unknown photo status %q", value)
	}
}

// CanReview reports whether a photo in status s may be approved or rejected.
// A photo is reviewed exactly once per instance.
func (s ReviewStatus) CanReview() bool {
	return s == StatusPending
}

// ReviewCounts aggregates the photos of one job by status.
type ReviewCounts struct {
	Pending  int `json:"pending"`
	Approved int `json:"approved"`
	Rejected int `json:"rejected"`
}

// Total is the number of photos on the job.
func (c ReviewCounts) Total() int {
	return c.Pending + c.Approved + c.Rejected
}

// Approvable reports whether the job may be approved: nothing left to review,
// nothing rejected and at least one approved photo.
func (c ReviewCounts) Approvable() bool {
	return c.Pending == 0 && c.Rejected == 0 && c.Approved >= 1
}

// Blocker describes why Approvable is false, in English for error messages.
func (c ReviewCounts) Blocker() string {
	switch {
	case c.Pending > 0:
		return fmt.Sprintf("%d photo(s) still pending review", c.Pending)
	case c.Rejected > 0:
		return fmt.Sprintf("%d photo(s) rejected and awaiting replacement", c.Rejected)
	case c.Approved == 0:
		return "job has no approved photos"
	default:
		return ""
	}
}
