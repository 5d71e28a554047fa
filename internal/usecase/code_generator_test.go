//go:build !integration

package usecase_test

import (
	"errors"
	"strings"
	"testing"

	"svmedia/internal/config"
	"svmedia/internal/domain"
	"svmedia/internal/usecase"
)

func TestCodeGenerator_Batch(t *testing.T) {
	t.Run("should return distinct codes over the alphabet", func(t *testing.T) {
		g := usecase.NewCodeGenerator(config.CodesConfig{}, nil)
		codes, err := g.Batch(200, g.Budget(200))
		if err != nil {
			t.Fatalf("Batch failed: %v", err)
		}
		seen := map[string]bool{}
		for _, c := range codes {
			if len(c) != 8 {
				t.Fatalf("expected length 8, got %q", c)
			}
			for _, r := range c {
				if !strings.ContainsRune(config.DefaultAlphabet, r) {
					t.Fatalf("code %q has a char outside the alphabet", c)
				}
			}
			if seen[c] {
				t.Fatalf("duplicate code %q", c)
			}
			seen[c] = true
		}
		if len(codes) != 200 {
			t.Errorf("expected 200 codes, got %d", len(codes))
		}
	})

	t.Run("should count collisions against the attempt budget", func(t *testing.T) {
		// 9 distinct digits followed by 6 repeats of the first: 15 draws, 9 codes.
		r := &cycleReader{b: []byte{0, 1, 2, 3, 4, 5, 6, 7, 8, 0, 0, 0, 0, 0, 0}}
		g := usecase.NewCodeGenerator(config.CodesConfig{Alphabet: "0123456789", Length: 1, BudgetFactor: 1.5}, r)
		if g.Budget(10) != 15 {
			t.Fatalf("expected budget 15, got %d", g.Budget(10))
		}
		if _, err := g.Batch(10, g.Budget(10)); !errors.Is(err, domain.ErrExhaustedGenerationBudget) {
			t.Fatalf("expected ErrExhaustedGenerationBudget, got %v", err)
		}
		if r.i != 15 {
			t.Errorf("expected exactly 15 draws, got %d", r.i)
		}
	})

	t.Run("should keep draw order", func(t *testing.T) {
		r := &cycleReader{b: []byte{2, 2, 0, 1}}
		g := usecase.NewCodeGenerator(config.CodesConfig{Alphabet: "abc", Length: 1}, r)
		codes, err := g.Batch(3, 10)
		if err != nil {
			t.Fatalf("Batch failed: %v", err)
		}
		if strings.Join(codes, "") != "cab" {
			t.Errorf("expected c,a,b got %v", codes)
		}
	})

	t.Run("should reject biased bytes", func(t *testing.T) {
		// len 3 -> bytes >= 255 are redrawn.
		r := &cycleReader{b: []byte{255, 255, 1}}
		g := usecase.NewCodeGenerator(config.CodesConfig{Alphabet: "abc", Length: 1}, r)
		codes, err := g.Batch(1, 1)
		if err != nil {
			t.Fatalf("Batch failed: %v", err)
		}
		if codes[0] != "b" {
			t.Errorf("expected b, got %q", codes[0])
		}
	})

	t.Run("should reject a non-positive count", func(t *testing.T) {
		g := usecase.NewCodeGenerator(config.CodesConfig{}, nil)
		if _, err := g.Batch(0, 10); !errors.Is(err, domain.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})
}
