package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/booktrack/booktrack/internal/auth"
	"github.com/booktrack/booktrack/internal/handler/dto"
	"github.com/booktrack/booktrack/internal/model"
	"github.com/booktrack/booktrack/internal/repository"
	"github.com/booktrack/booktrack/internal/summary"
)

// Summarizer generates a short summary for a book.
type Summarizer interface {
	Summarize(ctx context.Context, title, author string) (string, error)
}

// BookHandler handles HTTP requests for book operations. All routes
// assume the auth middleware has run and injected the caller identity.
type BookHandler struct {
	repo       *repository.Repository
	summarizer Summarizer
	logger     *slog.Logger
}

// NewBookHandler creates a new BookHandler.
func NewBookHandler(repo *repository.Repository, summarizer Summarizer, logger *slog.Logger) *BookHandler {
	return &BookHandler{
		repo:       repo,
		summarizer: summarizer,
		logger:     logger,
	}
}

// Create handles POST /books.
func (h *BookHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateBookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "Validation failed: "+err.Error())
		return
	}

	userID := auth.UserIDFromContext(r.Context())

	book, err := h.repo.CreateBook(r.Context(), userID, req.Title, req.Author, model.BookStatus(req.Status))
	if err != nil {
		h.logger.Error("failed to create book",
			slog.String("error", err.Error()),
			slog.String("user_id", userID),
		)
		writeError(w, http.StatusInternalServerError, "Failed to create book")
		return
	}

	h.logger.Info("book_created",
		slog.String("book_id", book.ID),
		slog.String("user_id", userID),
	)

	writeJSON(w, http.StatusCreated, book)
}

// List handles GET /books with an optional status filter.
func (h *BookHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	status := model.BookStatus(r.URL.Query().Get("status"))

	books, err := h.repo.ListBooks(r.Context(), userID, status)
	if err != nil {
		h.logger.Error("failed to list books",
			slog.String("error", err.Error()),
			slog.String("user_id", userID),
		)
		writeError(w, http.StatusInternalServerError, "Failed to fetch books")
		return
	}

	// An owner with no books gets an empty array, not null.
	if books == nil {
		books = []model.Book{}
	}

	writeJSON(w, http.StatusOK, books)
}

// UpdateStatus handles PATCH /books/{id}.
func (h *BookHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req dto.UpdateBookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "Validation failed: "+err.Error())
		return
	}

	userID := auth.UserIDFromContext(r.Context())

	book, err := h.repo.UpdateBookStatus(r.Context(), id, userID, model.BookStatus(req.Status))
	if err != nil {
		if errors.Is(err, repository.ErrBookNotFound) {
			writeError(w, http.StatusNotFound, "Book not found or unauthorized")
			return
		}
		h.logger.Error("failed to update book",
			slog.String("error", err.Error()),
			slog.String("book_id", id),
			slog.String("user_id", userID),
		)
		writeError(w, http.StatusInternalServerError, "Failed to update book")
		return
	}

	h.logger.Info("book_updated",
		slog.String("book_id", book.ID),
		slog.String("status", string(book.Status)),
		slog.String("user_id", userID),
	)

	writeJSON(w, http.StatusOK, book)
}

// Delete handles DELETE /books/{id}.
func (h *BookHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	userID := auth.UserIDFromContext(r.Context())

	deleted, err := h.repo.DeleteBook(r.Context(), id, userID)
	if err != nil {
		h.logger.Error("failed to delete book",
			slog.String("error", err.Error()),
			slog.String("book_id", id),
			slog.String("user_id", userID),
		)
		writeError(w, http.StatusInternalServerError, "Failed to delete book")
		return
	}
	if !deleted {
		writeError(w, http.StatusNotFound, "Book not found or unauthorized")
		return
	}

	h.logger.Info("book_deleted",
		slog.String("book_id", id),
		slog.String("user_id", userID),
	)

	writeJSON(w, http.StatusOK, dto.MessageResponse{Message: "Book deleted successfully"})
}

// Summary handles GET /books/{id}/summary. Ownership is checked before
// any inference call is made.
func (h *BookHandler) Summary(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	userID := auth.UserIDFromContext(r.Context())

	book, err := h.repo.GetBook(r.Context(), id, userID)
	if err != nil {
		h.logger.Error("failed to fetch book",
			slog.String("error", err.Error()),
			slog.String("book_id", id),
			slog.String("user_id", userID),
		)
		writeError(w, http.StatusInternalServerError, "Failed to generate summary")
		return
	}
	if book == nil {
		writeError(w, http.StatusNotFound, "Book not found or unauthorized")
		return
	}

	text, err := h.summarizer.Summarize(r.Context(), book.Title, book.Author)
	if err != nil {
		h.logger.Error("failed to generate summary",
			slog.String("error", err.Error()),
			slog.String("book_id", id),
			slog.Bool("not_configured", errors.Is(err, summary.ErrNotConfigured)),
		)
		writeError(w, http.StatusInternalServerError, "Failed to generate summary")
		return
	}

	writeJSON(w, http.StatusOK, dto.SummaryResponse{
		BookID:  id,
		Title:   book.Title,
		Author:  book.Author,
		Summary: text,
	})
}
