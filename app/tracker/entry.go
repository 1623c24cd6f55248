// Package tracker keeps the ordered list of tracked job applications and answers filtered views of it.
package tracker

import (
	"errors"
	"fmt"
	"strings"
)

// Status is a lifecycle stage of a job application
type Status string

// fixed set of statuses, in the order they are shown to users
const (
	StatusWishlist  Status = "Wishlist"
	StatusApplied   Status = "Applied"
	StatusInterview Status = "Interview"
	StatusOffer     Status = "Offer"
	StatusRejected  Status = "Rejected"
)

// FilterAll is the status filter matching every entry
const FilterAll = "All"

var (
	// ErrValidation returned when an entry can't be added as requested
	ErrValidation = errors.New("validation failed")
	// ErrNotFound returned when an entry id is not in the store
	ErrNotFound = errors.New("entry not found")
	// ErrNotInitialized returned by mutations made before Initialize
	ErrNotInitialized = errors.New("store not initialized")
	// ErrAlreadyInitialized returned by repeated Initialize calls
	ErrAlreadyInitialized = errors.New("store already initialized")
)

var statuses = []Status{StatusWishlist, StatusApplied, StatusInterview, StatusOffer, StatusRejected}

// Statuses returns the fixed status set
func Statuses() []Status {
	res := make([]Status, len(statuses))
	copy(res, statuses)
	return res
}

// ParseStatus converts a string to one of the fixed statuses, case-insensitive
func ParseStatus(s string) (Status, error) {
	for _, st := range statuses {
		if strings.EqualFold(string(st), strings.TrimSpace(s)) {
			return st, nil
		}
	}
	return "", fmt.Errorf("invalid status %q: %w", s, ErrValidation)
}

// ParseFilter normalizes user input for status filtering. Empty or "all" gives FilterAll,
// fixed statuses are matched case-insensitively, anything else is kept trimmed for exact match.
func ParseFilter(s string) string {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, FilterAll) {
		return FilterAll
	}
	if st, err := ParseStatus(s); err == nil {
		return string(st)
	}
	return s
}

// Known checks if status belongs to the fixed set
func (s Status) Known() bool {
	for _, st := range statuses {
		if st == s {
			return true
		}
	}
	return false
}

func (s Status) String() string { return string(s) }

// Entry is a single tracked job application.
// Title and company never change after creation, status changes replace the whole entry.
type Entry struct {
	ID      string `json:"id" yaml:"-"`
	Title   string `json:"title" yaml:"title"`
	Company string `json:"company" yaml:"company"`
	Status  Status `json:"status" yaml:"status"`
}

func (e Entry) String() string {
	return fmt.Sprintf("%s at %s [%s]", e.Title, e.Company, e.Status)
}
