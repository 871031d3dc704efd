package profile

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

type UpdateRoleReq struct {
	Role string `json:"role" validate:"required,role"`
}

func (h *HTTPHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.JSONError(w, r, http.StatusNotFound, "NOT_FOUND", "User not found", nil)
	case errors.Is(err, ErrInvalidRole):
		httpx.JSONError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", "Role must be admin, librarian or student", nil)
	case errors.Is(err, identity.ErrForbidden):
		httpx.JSONError(w, r, http.StatusForbidden, "FORBIDDEN", "Forbidden", nil)
	default:
		log.Printf("profile handler error: request_id=%s error=%v", httpx.RequestIDFrom(r), err)
		httpx.JSONError(w, r, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error", nil)
	}
}

// Me handles GET /v1/me
// @Summary Current user
// @Tags users
// @Produce json
// @Security Bearer
// @Success 200 {object} httpx.SuccessResponse
// @Failure 401 {object} httpx.ErrorResponse
// @Router /v1/me [get]
func (h *HTTPHandler) Me(w http.ResponseWriter, r *http.Request) {
	actor := httpx.ActorFrom(r)
	if actor.ID == "" {
		httpx.JSONError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized", nil)
		return
	}
	p, err := h.service.Get(r.Context(), actor, actor.ID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.JSONSuccess(w, r, p, nil)
}

// List handles GET /v1/users
// @Summary List members ordered by name
// @Tags users
// @Produce json
// @Security Bearer
// @Param q query string false "Name or email"
// @Param role query string false "admin, librarian or student"
// @Success 200 {object} httpx.SuccessResponse
// @Router /v1/users [get]
func (h *HTTPHandler) List(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	page, _ := strconv.Atoi(query.Get("page"))
	if page < 1 {
		page = 1
	}
	pageSize, _ := strconv.Atoi(query.Get("page_size"))
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 50
	}

	profiles, total, err := h.service.List(r.Context(), httpx.ActorFrom(r), Query{
		Search: strings.TrimSpace(query.Get("q")),
		Role:   identity.Role(strings.TrimSpace(query.Get("role"))),
		Limit:  pageSize,
		Offset: (page - 1) * pageSize,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.JSONSuccess(w, r, profiles, map[string]any{
		"page":      page,
		"page_size": pageSize,
		"total":     total,
	})
}

// Get handles GET /v1/users/{id}
func (h *HTTPHandler) Get(w http.ResponseWriter, r *http.Request) {
	p, err := h.service.Get(r.Context(), httpx.ActorFrom(r), r.PathValue("id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.JSONSuccess(w, r, p, nil)
}

// UpdateRole handles PATCH /v1/users/{id}/role
// @Summary Change a member's role
// @Tags users
// @Accept json
// @Produce json
// @Security Bearer
// @Param id path string true "User ID"
// @Param request body UpdateRoleReq true "New role"
// @Success 200 {object} httpx.SuccessResponse
// @Failure 403 {object} httpx.ErrorResponse
// @Router /v1/users/{id}/role [patch]
func (h *HTTPHandler) UpdateRole(w http.ResponseWriter, r *http.Request) {
	var req UpdateRoleReq
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.JSONError(w, r, http.StatusBadRequest, "BAD_REQUEST", "Invalid request body", nil)
		return
	}
	if details := httpx.ValidateStruct(req); len(details) > 0 {
		httpx.JSONError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid input", details)
		return
	}

	p, err := h.service.UpdateRole(r.Context(), httpx.ActorFrom(r), r.PathValue("id"), identity.Role(req.Role))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.JSONSuccess(w, r, p, nil)
}
