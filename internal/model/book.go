// Package model defines domain entities for the application.
package model

import "time"

// BookStatus represents the reading status of a book.
type BookStatus string

const (
	BookStatusReading   BookStatus = "reading"
	BookStatusCompleted BookStatus = "completed"
	BookStatusWishlist  BookStatus = "wishlist"
)

// IsValid checks if the status is one of the known values.
func (s BookStatus) IsValid() bool {
	switch s {
	case BookStatusReading, BookStatusCompleted, BookStatusWishlist:
		return true
	}
	return false
}

// Book represents a tracked book. The record lives in the hosted data
// API; this process never persists it locally.
type Book struct {
	ID        string     `json:"id"`
	UserID    string     `json:"user_id"`
	Title     string     `json:"title"`
	Author    string     `json:"author"`
	Status    BookStatus `json:"status"`
	CreatedAt time.Time  `json:"created_at"`
}

// Identity is the verified caller identity derived from a bearer token.
// It is built per request and never persisted.
type Identity struct {
	// UserID is the subject claim from the verified token.
	UserID string
	// Claims holds the full decoded claim set.
	Claims map[string]any
}
