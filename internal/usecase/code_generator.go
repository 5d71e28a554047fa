package usecase

import (
	"crypto/rand"
	"io"
	"math"

	"svmedia/internal/config"
	"svmedia/internal/domain"
)

// CodeGenerator draws fixed-length codes over an alphabet. Bytes that would
// bias the distribution (b >= limit) are rejected and redrawn.
type CodeGenerator struct {
	alphabet string
	length   int
	factor   float64
	limit    int
	rand     io.Reader
}

// NewCodeGenerator uses crypto/rand when r is nil.
func NewCodeGenerator(cfg config.CodesConfig, r io.Reader) *CodeGenerator {
	if r == nil {
		r = rand.Reader
	}
	alphabet := cfg.Alphabet
	if alphabet == "" {
		alphabet = config.DefaultAlphabet
	}
	length := cfg.Length
	if length <= 0 {
		length = 8
	}
	factor := cfg.BudgetFactor
	if factor < 1 {
		factor = 2
	}
	return &CodeGenerator{
		alphabet: alphabet,
		length:   length,
		factor:   factor,
		limit:    256 - 256%len(alphabet),
		rand:     r,
	}
}

// Budget is the number of draws allowed for a batch of count codes.
func (g *CodeGenerator) Budget(count int) int {
	return int(math.Ceil(g.factor * float64(count)))
}

// Batch returns count distinct codes in draw order, spending at most maxAttempts
// draws. Duplicates consume an attempt without growing the set.
func (g *CodeGenerator) Batch(count, maxAttempts int) ([]string, error) {
	if count <= 0 {
		return nil, domain.ErrInvalidArgument
	}
	seen := make(map[string]struct{}, count)
	out := make([]string, 0, count)
	for attempts := 0; len(out) < count && attempts < maxAttempts; attempts++ {
		c, err := g.draw()
		if err != nil {
			return nil, err
		}
		if _, dup := seen[c]; dup {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	if len(out) < count {
		return nil, domain.ErrExhaustedGenerationBudget
	}
	return out, nil
}

func (g *CodeGenerator) draw() (string, error) {
	out := make([]byte, g.length)
	buf := make([]byte, g.length)
	for n := 0; n < g.length; {
		if _, err := io.ReadFull(g.rand, buf[:g.length-n]); err != nil {
			return "", err
		}
		for _, b := range buf[:g.length-n] {
			if int(b) >= g.limit {
				continue
			}
			out[n] = g.alphabet[int(b)%len(g.alphabet)]
			n++
		}
	}
	return string(out), nil
}
