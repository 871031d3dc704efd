package main

import (
	"context"
	"errors"
	"log"
	"os"

	"libraryapi/internal/book"
	"libraryapi/internal/config"
	"libraryapi/internal/identity"
	"libraryapi/internal/platform/crypto"
	"libraryapi/internal/platform/postgres"
	"libraryapi/internal/profile"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx := context.Background()
	pool, err := postgres.Open(ctx, cfg.DBDSN, cfg.DBTimeout)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pool.Close()

	books := book.NewPostgresRepo(pool, cfg.DBTimeout)
	for _, s := range sampleBooks {
		b := s.toBook()
		if err := books.UpsertByISBN(ctx, &b); err != nil {
			log.Fatalf("Failed to seed %q: %v", s.title, err)
		}
		log.Printf("seeded book id=%s title=%q total_copies=%d", b.ID, b.Title, b.TotalCopies)
	}

	email, password := os.Getenv("SEED_ADMIN_EMAIL"), os.Getenv("SEED_ADMIN_PASSWORD")
	if email == "" || password == "" {
		log.Printf("Seeded %d books; SEED_ADMIN_EMAIL not set, skipping admin", len(sampleBooks))
		return
	}
	if err := seedAdmin(ctx, profile.NewPostgresRepo(pool, cfg.DBTimeout), email, password); err != nil {
		log.Fatalf("Failed to seed admin: %v", err)
	}
	log.Printf("Seeded %d books and admin %s", len(sampleBooks), email)
}

func seedAdmin(ctx context.Context, profiles profile.Repository, email, password string) error {
	if err := crypto.ValidatePasswordStrength(password); err != nil {
		return err
	}
	hash, err := crypto.HashPassword(password)
	if err != nil {
		return err
	}
	admin := profile.Profile{Name: "Administrator", Email: email, Role: identity.RoleAdmin, PasswordHash: hash}
	if err := profiles.Create(ctx, &admin); err != nil {
		if errors.Is(err, profile.ErrAlreadyExists) {
			log.Printf("admin %s already exists", email)
			return nil
		}
		return err
	}
	return nil
}
