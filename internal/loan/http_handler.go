package loan

import (
	"errors"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"libraryapi/internal/httpx"
	"libraryapi/internal/identity"
)

type HTTPHandler struct {
	service *Service
}

func NewHTTPHandler(service *Service) *HTTPHandler {
	return &HTTPHandler{service: service}
}

type BorrowReq struct {
	UserID string `json:"user_id" validate:"omitempty,uuid"`
}

type ExtendReq struct {
	Days *int `json:"days" validate:"omitempty,gte=1,lte=365"`
}

type SweepReq struct {
	AsOf *time.Time `json:"as_of"`
}

type SweepResp struct {
	Marked int       `json:"marked"`
	AsOf   time.Time `json:"as_of"`
}

// decodeOptional accepts an empty body as the zero request.
func decodeOptional(r *http.Request, dst any) error {
	if err := httpx.DecodeJSON(r, dst); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func (h *HTTPHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrBookNotFound):
		httpx.JSONError(w, r, http.StatusNotFound, "NOT_FOUND", "Book not found", nil)
	case errors.Is(err, ErrBorrowerNotFound):
		httpx.JSONError(w, r, http.StatusNotFound, "NOT_FOUND", "Borrower not found", nil)
	case errors.Is(err, ErrNotFound):
		httpx.JSONError(w, r, http.StatusNotFound, "NOT_FOUND", "Loan not found", nil)
	case errors.Is(err, ErrValidation):
		httpx.JSONError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), nil)
	case errors.Is(err, ErrUnavailable):
		httpx.JSONError(w, r, http.StatusConflict, "UNAVAILABLE", "No copies of this book are available", nil)
	case errors.Is(err, ErrDuplicateLoan):
		httpx.JSONError(w, r, http.StatusConflict, "DUPLICATE_LOAN", "You already have this book on loan", nil)
	case errors.Is(err, ErrAlreadyReturned):
		httpx.JSONError(w, r, http.StatusConflict, "ALREADY_RETURNED", "This loan has already been returned", nil)
	case errors.Is(err, ErrCannotExtendReturned):
		httpx.JSONError(w, r, http.StatusConflict, "CANNOT_EXTEND_RETURNED", "Cannot extend a returned loan", nil)
	case errors.Is(err, identity.ErrForbidden):
		httpx.JSONError(w, r, http.StatusForbidden, "FORBIDDEN", "You cannot act on this loan", nil)
	default:
		log.Printf("loan handler error: request_id=%s error=%v", httpx.RequestIDFrom(r), err)
		httpx.JSONError(w, r, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error", nil)
	}
}

func listQuery(r *http.Request) (Query, int, int) {
	query := r.URL.Query()

	page, _ := strconv.Atoi(query.Get("page"))
	if page < 1 {
		page = 1
	}
	pageSize, _ := strconv.Atoi(query.Get("page_size"))
	if pageSize <= 0 || pageSize > 200 {
		pageSize = 50
	}
	return Query{
		BookID: strings.TrimSpace(query.Get("book_id")),
		Status: Status(strings.TrimSpace(query.Get("status"))),
		Limit:  pageSize,
		Offset: (page - 1) * pageSize,
	}, page, pageSize
}

// Borrow handles POST /v1/books/{id}/borrow
// @Summary Borrow a copy of a book
// @Description Students borrow for themselves; staff may pass user_id to lend to someone else.
// @Tags loans
// @Accept json
// @Produce json
// @Param id path string true "Book ID"
// @Param request body BorrowReq false "Borrower"
// @Success 201 {object} httpx.SuccessResponse
// @Failure 404 {object} httpx.ErrorResponse
// @Failure 409 {object} httpx.ErrorResponse
// @Router /v1/books/{id}/borrow [post]
func (h *HTTPHandler) Borrow(w http.ResponseWriter, r *http.Request) {
	var req BorrowReq
	if err := decodeOptional(r, &req); err != nil {
		httpx.JSONError(w, r, http.StatusBadRequest, "BAD_REQUEST", "Invalid request body", nil)
		return
	}
	if details := httpx.ValidateStruct(req); len(details) > 0 {
		httpx.JSONError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid input", details)
		return
	}

	l, err := h.service.Borrow(r.Context(), httpx.ActorFrom(r), r.PathValue("id"), req.UserID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.JSONCreated(w, r, l)
}

// Return handles POST /v1/loans/{id}/return
// @Summary Return a borrowed book
// @Tags loans
// @Produce json
// @Param id path string true "Loan ID"
// @Success 200 {object} httpx.SuccessResponse
// @Failure 409 {object} httpx.ErrorResponse
// @Router /v1/loans/{id}/return [post]
func (h *HTTPHandler) Return(w http.ResponseWriter, r *http.Request) {
	l, err := h.service.Return(r.Context(), httpx.ActorFrom(r), r.PathValue("id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.JSONSuccess(w, r, l, nil)
}

// Extend handles POST /v1/loans/{id}/extend
// @Summary Extend a loan's due date
// @Description days defaults to 14. An overdue loan goes back to borrowed.
// @Tags loans
// @Accept json
// @Produce json
// @Param id path string true "Loan ID"
// @Param request body ExtendReq false "Extension"
// @Success 200 {object} httpx.SuccessResponse
// @Router /v1/loans/{id}/extend [post]
func (h *HTTPHandler) Extend(w http.ResponseWriter, r *http.Request) {
	var req ExtendReq
	if err := decodeOptional(r, &req); err != nil {
		httpx.JSONError(w, r, http.StatusBadRequest, "BAD_REQUEST", "Invalid request body", nil)
		return
	}
	if details := httpx.ValidateStruct(req); len(details) > 0 {
		httpx.JSONError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid input", details)
		return
	}
	days := DefaultExtensionDays
	if req.Days != nil {
		days = *req.Days
	}

	l, err := h.service.Extend(r.Context(), httpx.ActorFrom(r), r.PathValue("id"), days)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.JSONSuccess(w, r, l, nil)
}

// Sweep handles POST /v1/loans/sweep
// @Summary Mark past-due loans as overdue
// @Tags loans
// @Accept json
// @Produce json
// @Param request body SweepReq false "Cut-off time, defaults to now"
// @Success 200 {object} httpx.SuccessResponse
// @Router /v1/loans/sweep [post]
func (h *HTTPHandler) Sweep(w http.ResponseWriter, r *http.Request) {
	var req SweepReq
	if err := decodeOptional(r, &req); err != nil {
		httpx.JSONError(w, r, http.StatusBadRequest, "BAD_REQUEST", "Invalid request body", nil)
		return
	}
	asOf := h.service.now().UTC()
	if req.AsOf != nil {
		asOf = req.AsOf.UTC()
	}

	n, err := h.service.SweepOverdue(r.Context(), httpx.ActorFrom(r), asOf)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.JSONSuccess(w, r, SweepResp{Marked: n, AsOf: asOf}, nil)
}

// Get handles GET /v1/loans/{id}
func (h *HTTPHandler) Get(w http.ResponseWriter, r *http.Request) {
	l, err := h.service.Get(r.Context(), httpx.ActorFrom(r), r.PathValue("id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.JSONSuccess(w, r, l, nil)
}

// List handles GET /v1/loans
// @Summary List all loans, newest first
// @Tags loans
// @Produce json
// @Param status query string false "borrowed, overdue or returned"
// @Param book_id query string false "Book ID"
// @Param user_id query string false "Borrower ID"
// @Success 200 {object} httpx.SuccessResponse
// @Router /v1/loans [get]
func (h *HTTPHandler) List(w http.ResponseWriter, r *http.Request) {
	q, page, pageSize := listQuery(r)
	q.UserID = strings.TrimSpace(r.URL.Query().Get("user_id"))

	loans, err := h.service.ListLoans(r.Context(), httpx.ActorFrom(r), q)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.JSONSuccess(w, r, loans, map[string]any{"page": page, "page_size": pageSize})
}

// ListForUser handles GET /v1/users/{id}/loans
func (h *HTTPHandler) ListForUser(w http.ResponseWriter, r *http.Request) {
	h.listForUser(w, r, r.PathValue("id"))
}

// ListMine handles GET /v1/me/loans
func (h *HTTPHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	h.listForUser(w, r, httpx.UserIDFrom(r))
}

func (h *HTTPHandler) listForUser(w http.ResponseWriter, r *http.Request, userID string) {
	q, page, pageSize := listQuery(r)

	loans, err := h.service.ListLoansForUser(r.Context(), httpx.ActorFrom(r), userID, q)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.JSONSuccess(w, r, loans, map[string]any{"page": page, "page_size": pageSize})
}

// Stats handles GET /v1/users/{id}/stats
// @Summary Count a borrower's current and overdue loans
// @Tags loans
// @Produce json
// @Param id path string true "User ID"
// @Success 200 {object} httpx.SuccessResponse
// @Router /v1/users/{id}/stats [get]
func (h *HTTPHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.BorrowingStats(r.Context(), httpx.ActorFrom(r), r.PathValue("id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.JSONSuccess(w, r, stats, nil)
}
