package main

import (
	"context"
	"net/http"
	"time"

	"libraryapi/internal/auth"
	"libraryapi/internal/book"
	"libraryapi/internal/httpx"
	"libraryapi/internal/identity"
	"libraryapi/internal/loan"
	"libraryapi/internal/profile"
)

type pinger interface {
	Ping(ctx context.Context) error
}

type handlers struct {
	auth    *auth.HTTPHandler
	books   *book.HTTPHandler
	loans   *loan.HTTPHandler
	profile *profile.HTTPHandler
}

func newRouter(jwtSecret string, blacklist httpx.BlacklistRepository, db pinger, h handlers) *http.ServeMux {
	router := http.NewServeMux()

	router.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	router.HandleFunc("GET /readyz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 500*time.Millisecond)
		defer cancel()
		if err := db.Ping(ctx); err != nil {
			http.Error(w, "db not ready", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	authed := httpx.AuthMiddleware(jwtSecret, blacklist)
	staff := httpx.RequireRole(identity.RoleAdmin, identity.RoleLibrarian)
	admin := httpx.RequireRole(identity.RoleAdmin)

	protect := func(fn http.HandlerFunc, extra ...func(http.Handler) http.Handler) http.Handler {
		return httpx.Chain(fn, append([]func(http.Handler) http.Handler{authed}, extra...)...)
	}

	router.HandleFunc("POST /v1/auth/register", h.auth.Register)
	router.HandleFunc("POST /v1/auth/login", h.auth.Login)
	router.Handle("POST /v1/auth/logout", protect(h.auth.Logout))

	router.Handle("GET /v1/me", protect(h.profile.Me))
	router.Handle("GET /v1/me/loans", protect(h.loans.ListMine))

	router.Handle("GET /v1/books", protect(h.books.List))
	router.Handle("GET /v1/books/{id}", protect(h.books.Get))
	router.Handle("POST /v1/books", protect(h.books.Create, staff))
	router.Handle("PATCH /v1/books/{id}", protect(h.books.Update, staff))
	router.Handle("DELETE /v1/books/{id}", protect(h.books.Delete, staff))
	router.Handle("POST /v1/books/{id}/borrow", protect(h.loans.Borrow))

	router.Handle("GET /v1/loans", protect(h.loans.List, staff))
	router.Handle("POST /v1/loans/sweep", protect(h.loans.Sweep, staff))
	router.Handle("GET /v1/loans/{id}", protect(h.loans.Get))
	router.Handle("POST /v1/loans/{id}/return", protect(h.loans.Return))
	router.Handle("POST /v1/loans/{id}/extend", protect(h.loans.Extend))

	router.Handle("GET /v1/users", protect(h.profile.List, staff))
	router.Handle("GET /v1/users/{id}", protect(h.profile.Get))
	router.Handle("PATCH /v1/users/{id}/role", protect(h.profile.UpdateRole, admin))
	router.Handle("GET /v1/users/{id}/loans", protect(h.loans.ListForUser))
	router.Handle("GET /v1/users/{id}/stats", protect(h.loans.Stats))

	return router
}
