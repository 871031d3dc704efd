package book

import (
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"

	"libraryapi/internal/httpx"
	"libraryapi/internal/identity"
)

type HTTPHandler struct {
	service *Service
}

func NewHTTPHandler(service *Service) *HTTPHandler {
	return &HTTPHandler{service: service}
}

type CreateBookReq struct {
	Title           string  `json:"title" validate:"required,max=500"`
	Author          string  `json:"author" validate:"required,max=500"`
	ISBN            *string `json:"isbn" validate:"omitempty,isbn"`
	Category        string  `json:"category" validate:"max=100"`
	PublishedYear   *int    `json:"published_year" validate:"omitempty,gte=0,lte=9999"`
	Description     *string `json:"description" validate:"omitempty,max=5000"`
	CoverImage      *string `json:"cover_image" validate:"omitempty,url"`
	TotalCopies     *int    `json:"total_copies" validate:"required,gte=0,lte=100000"`
	AvailableCopies *int    `json:"available_copies" validate:"omitempty,gte=0"`
}

type UpdateBookReq struct {
	Title           *string `json:"title" validate:"omitempty,min=1,max=500"`
	Author          *string `json:"author" validate:"omitempty,min=1,max=500"`
	ISBN            *string `json:"isbn" validate:"omitempty,isbn"`
	Category        *string `json:"category" validate:"omitempty,max=100"`
	PublishedYear   *int    `json:"published_year" validate:"omitempty,gte=0,lte=9999"`
	Description     *string `json:"description" validate:"omitempty,max=5000"`
	CoverImage      *string `json:"cover_image" validate:"omitempty,url"`
	TotalCopies     *int    `json:"total_copies" validate:"omitempty,gte=0,lte=100000"`
	AvailableCopies *int    `json:"available_copies"`
}

func normalizeISBN(isbn *string) *string {
	if isbn == nil {
		return nil
	}
	n := httpx.NormalizeISBN(*isbn)
	return &n
}

func (h *HTTPHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.JSONError(w, r, http.StatusNotFound, "NOT_FOUND", "Book not found", nil)
	case errors.Is(err, ErrValidation):
		httpx.JSONError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), nil)
	case errors.Is(err, ErrHasOpenLoans):
		httpx.JSONError(w, r, http.StatusConflict, "CONFLICT", "Book has copies on loan", nil)
	case errors.Is(err, ErrDuplicateISBN):
		httpx.JSONError(w, r, http.StatusConflict, "ALREADY_EXISTS", "A book with this ISBN already exists", nil)
	case errors.Is(err, identity.ErrForbidden):
		httpx.JSONError(w, r, http.StatusForbidden, "FORBIDDEN", "Only librarians and admins can manage books", nil)
	default:
		log.Printf("book handler error: request_id=%s error=%v", httpx.RequestIDFrom(r), err)
		httpx.JSONError(w, r, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error", nil)
	}
}

// List handles GET /v1/books
// @Summary List books
// @Description Catalog ordered by title. q matches title, author, ISBN or category.
// @Tags books
// @Produce json
// @Param q query string false "Search term"
// @Param category query string false "Exact category"
// @Param page query int false "Page number"
// @Param page_size query int false "Page size (max 100)"
// @Success 200 {object} httpx.SuccessResponse
// @Router /v1/books [get]
func (h *HTTPHandler) List(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	page, _ := strconv.Atoi(query.Get("page"))
	if page < 1 {
		page = 1
	}
	pageSize, _ := strconv.Atoi(query.Get("page_size"))
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}

	params := Query{
		Search:   strings.TrimSpace(query.Get("q")),
		Category: strings.TrimSpace(query.Get("category")),
		Limit:    pageSize,
		Offset:   (page - 1) * pageSize,
	}

	books, total, err := h.service.List(r.Context(), params)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	httpx.JSONSuccess(w, r, books, map[string]any{
		"page":        page,
		"page_size":   pageSize,
		"total":       total,
		"total_pages": (total + pageSize - 1) / pageSize,
	})
}

// Get handles GET /v1/books/{id}
func (h *HTTPHandler) Get(w http.ResponseWriter, r *http.Request) {
	b, err := h.service.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.JSONSuccess(w, r, b, nil)
}

// Create handles POST /v1/books
// @Summary Add a book
// @Tags books
// @Accept json
// @Produce json
// @Param request body CreateBookReq true "Book"
// @Success 201 {object} httpx.SuccessResponse
// @Failure 400 {object} httpx.ErrorResponse
// @Failure 403 {object} httpx.ErrorResponse
// @Router /v1/books [post]
func (h *HTTPHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateBookReq
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.JSONError(w, r, http.StatusBadRequest, "BAD_REQUEST", "Invalid request body", nil)
		return
	}
	if details := httpx.ValidateStruct(req); len(details) > 0 {
		httpx.JSONError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid input", details)
		return
	}

	b, err := h.service.Create(r.Context(), httpx.ActorFrom(r), CreateCommand{
		Title:           req.Title,
		Author:          req.Author,
		ISBN:            normalizeISBN(req.ISBN),
		Category:        req.Category,
		PublishedYear:   req.PublishedYear,
		Description:     req.Description,
		CoverImage:      req.CoverImage,
		TotalCopies:     req.TotalCopies,
		AvailableCopies: req.AvailableCopies,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.JSONCreated(w, r, b)
}

// Update handles PATCH /v1/books/{id}
// @Summary Partially update a book
// @Tags books
// @Accept json
// @Produce json
// @Param id path string true "Book ID"
// @Param request body UpdateBookReq true "Fields to change"
// @Success 200 {object} httpx.SuccessResponse
// @Failure 400 {object} httpx.ErrorResponse
// @Failure 404 {object} httpx.ErrorResponse
// @Router /v1/books/{id} [patch]
func (h *HTTPHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req UpdateBookReq
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.JSONError(w, r, http.StatusBadRequest, "BAD_REQUEST", "Invalid request body", nil)
		return
	}
	if details := httpx.ValidateStruct(req); len(details) > 0 {
		httpx.JSONError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid input", details)
		return
	}

	b, err := h.service.Update(r.Context(), httpx.ActorFrom(r), r.PathValue("id"), UpdateCommand{
		Title:           req.Title,
		Author:          req.Author,
		ISBN:            normalizeISBN(req.ISBN),
		Category:        req.Category,
		PublishedYear:   req.PublishedYear,
		Description:     req.Description,
		CoverImage:      req.CoverImage,
		TotalCopies:     req.TotalCopies,
		AvailableCopies: req.AvailableCopies,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.JSONSuccess(w, r, b, nil)
}

// Delete handles DELETE /v1/books/{id}
func (h *HTTPHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), httpx.ActorFrom(r), r.PathValue("id")); err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.JSONNoContent(w)
}
