//go:build integration

package postgres

import (
	"context"
	"errors"
	"testing"

	"svmedia/internal/domain"
	"svmedia/internal/domain/model"
)

func TestUserRepo_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode.")
	}
	ctx := context.Background()
	repo := NewUserRepo(testPool)

	t.Run("should create and find a user", func(t *testing.T) {
		cleanup(t)
		u, err := model.NewUser("", "  Photo@Example.com ", "bcrypt-hash", false)
		if err != nil {
			t.Fatalf("NewUser failed: %v", err)
		}
		if err := repo.Create(ctx, nil, u); err != nil {
			t.Fatalf("Create failed: %v", err)
		}

		byEmail, err := repo.FindByEmail(ctx, nil, "PHOTO@example.com")
		if err != nil {
			t.Fatalf("FindByEmail failed: %v", err)
		}
		if byEmail.ID != u.ID || byEmail.IsAdmin || !byEmail.IsActive {
			t.Errorf("unexpected user: %+v", byEmail)
		}

		byID, err := repo.FindByID(ctx, nil, u.ID)
		if err != nil {
			t.Fatalf("FindByID failed: %v", err)
		}
		if byID.Email != "photo@example.com" {
			t.Errorf("expected normalized email, got %q", byID.Email)
		}
	})

	t.Run("should reject a taken email", func(t *testing.T) {
		cleanup(t)
		a, _ := model.NewUser("", "dup@example.com", "h", false)
		b, _ := model.NewUser("", "dup@example.com", "h", true)
		if err := repo.Create(ctx, nil, a); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
		if err := repo.Create(ctx, nil, b); !errors.Is(err, domain.ErrAlreadyExists) {
			t.Fatalf("expected ErrAlreadyExists, got %v", err)
		}
	})

	t.Run("should return not found", func(t *testing.T) {
		cleanup(t)
		if _, err := repo.FindByEmail(ctx, nil, "ghost@example.com"); !errors.Is(err, domain.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
		if _, err := repo.FindByID(ctx, nil, "not-a-uuid"); !errors.Is(err, domain.ErrNotFound) {
			t.Errorf("expected ErrNotFound for malformed id, got %v", err)
		}
	})
}
