// Package dto defines request and response shapes for the HTTP API.
package dto

import (
	"github.com/go-playground/validator/v10"
)

// validate is the shared validator instance for request DTOs.
var validate = validator.New()

// CreateBookRequest is the body for POST /books.
type CreateBookRequest struct {
	Title  string `json:"title" validate:"required,min=1,max=500"`
	Author string `json:"author" validate:"required,min=1,max=200"`
	Status string `json:"status" validate:"required,oneof=reading completed wishlist"`
}

// Validate checks field constraints.
func (r *CreateBookRequest) Validate() error {
	return validate.Struct(r)
}

// UpdateBookRequest is the body for PATCH /books/{id}.
// Only the status field is mutable.
type UpdateBookRequest struct {
	Status string `json:"status" validate:"required,oneof=reading completed wishlist"`
}

// Validate checks field constraints.
func (r *UpdateBookRequest) Validate() error {
	return validate.Struct(r)
}

// SummaryResponse is the body for GET /books/{id}/summary.
type SummaryResponse struct {
	BookID  string `json:"book_id"`
	Title   string `json:"title"`
	Author  string `json:"author"`
	Summary string `json:"summary"`
}

// MessageResponse carries a human-readable confirmation message.
type MessageResponse struct {
	Message string `json:"message"`
}

// ErrorResponse is the uniform error body.
type ErrorResponse struct {
	Error string `json:"error"`
}
