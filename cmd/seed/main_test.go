package main

import (
	"context"
	"testing"

	"libraryapi/internal/identity"
	"libraryapi/internal/platform/crypto"
	"libraryapi/internal/profile"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type profileRepo struct {
	profile.Repository
	mock.Mock
}

func (r *profileRepo) Create(ctx context.Context, p *profile.Profile) error {
	return r.Called(ctx, p).Error(0)
}

func TestSampleBooks(t *testing.T) {
	want := map[string]int{
		"Clean Code":               5,
		"The Pragmatic Programmer": 3,
		"Design Patterns":          2,
		"Atomic Habits":            4,
		"Sapiens":                  3,
	}
	require.Len(t, sampleBooks, len(want))

	isbns := map[string]bool{}
	for _, s := range sampleBooks {
		b := s.toBook()
		assert.Equal(t, want[b.Title], b.TotalCopies, b.Title)
		require.NotNil(t, b.ISBN)
		assert.Len(t, *b.ISBN, 13)
		assert.False(t, isbns[*b.ISBN], "duplicate isbn %s", *b.ISBN)
		isbns[*b.ISBN] = true
	}
}

func TestSeedAdmin(t *testing.T) {
	t.Run("creates an admin with a hashed password", func(t *testing.T) {
		repo := &profileRepo{}
		repo.On("Create", mock.Anything, mock.MatchedBy(func(p *profile.Profile) bool {
			return p.Role == identity.RoleAdmin &&
				p.Email == "admin@library.test" &&
				crypto.VerifyPassword(p.PasswordHash, "Str0ng!Pass")
		})).Return(nil)

		require.NoError(t, seedAdmin(context.Background(), repo, "admin@library.test", "Str0ng!Pass"))
		repo.AssertExpectations(t)
	})

	t.Run("existing admin is left alone", func(t *testing.T) {
		repo := &profileRepo{}
		repo.On("Create", mock.Anything, mock.Anything).Return(profile.ErrAlreadyExists)

		assert.NoError(t, seedAdmin(context.Background(), repo, "admin@library.test", "Str0ng!Pass"))
	})

	t.Run("weak password", func(t *testing.T) {
		repo := &profileRepo{}
		assert.Error(t, seedAdmin(context.Background(), repo, "admin@library.test", "short"))
		repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})
}
