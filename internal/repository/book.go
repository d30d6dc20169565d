package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/booktrack/booktrack/internal/model"
)

// booksTable is the hosted table backing book records.
const booksTable = "books"

// CreateBook inserts a new book owned by the given user and returns
// the stored representation, including the generated ID and timestamp.
func (r *Repository) CreateBook(ctx context.Context, userID, title, author string, status model.BookStatus) (*model.Book, error) {
	payload := map[string]any{
		"user_id": userID,
		"title":   title,
		"author":  author,
		"status":  status,
	}

	books, err := r.doJSON(ctx, http.MethodPost, r.baseURL+"/"+booksTable, payload)
	if err != nil {
		return nil, err
	}
	if len(books) == 0 {
		return nil, fmt.Errorf("%w: insert returned no representation", ErrUpstream)
	}

	return &books[0], nil
}

// ListBooks returns all books owned by the user, newest first,
// optionally filtered by status.
func (r *Repository) ListBooks(ctx context.Context, userID string, status model.BookStatus) ([]model.Book, error) {
	query := url.Values{}
	query.Set("user_id", "eq."+userID)
	query.Set("select", "*")
	query.Set("order", "created_at.desc")
	if status != "" {
		query.Set("status", "eq."+string(status))
	}

	books, err := r.doJSON(ctx, http.MethodGet, r.baseURL+"/"+booksTable+"?"+query.Encode(), nil)
	if err != nil {
		return nil, err
	}

	return books, nil
}

// GetBook returns the book matching id and owner, or nil when no row
// matches. Absence is not an error.
func (r *Repository) GetBook(ctx context.Context, id, userID string) (*model.Book, error) {
	query := url.Values{}
	query.Set("id", "eq."+id)
	query.Set("user_id", "eq."+userID)
	query.Set("select", "*")

	books, err := r.doJSON(ctx, http.MethodGet, r.baseURL+"/"+booksTable+"?"+query.Encode(), nil)
	if err != nil {
		return nil, err
	}
	if len(books) == 0 {
		return nil, nil
	}

	return &books[0], nil
}

// UpdateBookStatus sets the status of a book matching id and owner.
// Returns ErrBookNotFound when the filter matched zero rows.
func (r *Repository) UpdateBookStatus(ctx context.Context, id, userID string, status model.BookStatus) (*model.Book, error) {
	query := url.Values{}
	query.Set("id", "eq."+id)
	query.Set("user_id", "eq."+userID)

	payload := map[string]any{"status": status}

	books, err := r.doJSON(ctx, http.MethodPatch, r.baseURL+"/"+booksTable+"?"+query.Encode(), payload)
	if err != nil {
		return nil, err
	}
	if len(books) == 0 {
		return nil, ErrBookNotFound
	}

	return &books[0], nil
}

// DeleteBook deletes a book matching id and owner. Returns whether a
// row was actually deleted; a non-matching id yields false, not an
// error.
func (r *Repository) DeleteBook(ctx context.Context, id, userID string) (bool, error) {
	query := url.Values{}
	query.Set("id", "eq."+id)
	query.Set("user_id", "eq."+userID)

	books, err := r.doJSON(ctx, http.MethodDelete, r.baseURL+"/"+booksTable+"?"+query.Encode(), nil)
	if err != nil {
		return false, err
	}

	return len(books) > 0, nil
}

// doJSON performs one request against the data API and decodes the
// row-array response. The data API answers every call, including
// mutations, with a JSON array of affected rows.
func (r *Repository) doJSON(ctx context.Context, method, url string, body any) ([]model.Book, error) {
	var bodyReader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
		bodyReader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	r.setHeaders(req)

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w: status %d: %s", ErrUpstream, resp.StatusCode, detail)
	}

	// 204 No Content carries no representation.
	if resp.StatusCode == http.StatusNoContent {
		return nil, nil
	}

	var books []model.Book
	if err := json.NewDecoder(resp.Body).Decode(&books); err != nil {
		return nil, fmt.Errorf("%w: failed to decode response: %v", ErrUpstream, err)
	}

	return books, nil
}
