// File: internal/usecase/code_uc.go
package usecase

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"svmedia/internal/config"
	"svmedia/internal/domain"
	"svmedia/internal/domain/model"
	"svmedia/internal/domain/ports/repository"
	"svmedia/internal/infra/logging"
	"svmedia/internal/infra/metrics"
)

const (
	defaultListLimit = 100
	maxListLimit     = 500
)

// Compile-time check
var _ CodeUseCase = (*codeUC)(nil)

// CodeUseCase covers issuing, redeeming and inspecting access codes.
// Admin checks happen in the transport layer before these are called.
type CodeUseCase interface {
	Generate(ctx context.Context, count int, scope model.Scope, issuer *model.User) ([]*model.AccessCode, error)
	Redeem(ctx context.Context, code string, form model.RedemptionForm, usedBy string) (model.Scope, error)
	List(ctx context.Context, f model.CodeFilter) (*model.CodePage, error)
	Usage(ctx context.Context, code string) (*model.AccessCode, error)
	ShiftCodes(ctx context.Context, shift int) ([]model.SquadCodes, error)
	PrintableShift(ctx context.Context, shift int) (string, error)
}

// Translator renders the headings of the printable code sheet.
type Translator interface {
	T(key string, args ...interface{}) string
}

type codeUC struct {
	codes    repository.AccessCodeRepository
	tm       repository.TransactionManager
	gen      *CodeGenerator
	sheet    Translator
	maxBatch int
	now      func() time.Time
	log      *zerolog.Logger
	devMode  bool
}

func NewCodeUseCase(
	codes repository.AccessCodeRepository,
	tm repository.TransactionManager,
	gen *CodeGenerator,
	sheet Translator,
	cfg config.CodesConfig,
	logger *zerolog.Logger,
	devMode bool,
) *codeUC {
	maxBatch := cfg.MaxBatch
	if maxBatch <= 0 {
		maxBatch = 1000
	}
	if sheet == nil {
		sheet = englishSheet{}
	}
	return &codeUC{
		codes:    codes,
		tm:       tm,
		gen:      gen,
		sheet:    sheet,
		maxBatch: maxBatch,
		now:      time.Now,
		log:      logger,
		devMode:  devMode,
	}
}

// Generate draws count distinct codes and stores them as one batch. Nothing is
// stored when the draw budget runs out or any code collides with a stored one.
func (u *codeUC) Generate(ctx context.Context, count int, scope model.Scope, issuer *model.User) ([]*model.AccessCode, error) {
	defer logging.TraceDuration(u.log, "CodeUC.Generate")()
	log := logging.With(ctx, u.log)

	if count <= 0 || count > u.maxBatch || !scope.Valid() || issuer.IsZero() {
		return nil, domain.ErrInvalidArgument
	}

	values, err := u.gen.Batch(count, u.gen.Budget(count))
	if err != nil {
		if errors.Is(err, domain.ErrExhaustedGenerationBudget) {
			metrics.IncGenerationFailure("budget")
			log.Warn().Int("count", count).Int("budget", u.gen.Budget(count)).Msg("code generation budget exhausted")
			return nil, err
		}
		metrics.IncGenerationFailure("entropy")
		return nil, fmt.Errorf("draw codes: %w", err)
	}

	batchID := ulid.MustNew(ulid.Timestamp(u.now()), rand.Reader).String()
	batch := make([]*model.AccessCode, len(values))
	for i, v := range values {
		batch[i] = &model.AccessCode{
			Code:        v,
			CreatedByID: issuer.ID,
			BatchID:     batchID,
			ShiftNumber: scope.Shift,
			SquadNumber: scope.Squad,
		}
	}

	err = u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		return u.codes.InsertBatch(ctx, tx, batch)
	})
	if err != nil {
		if errors.Is(err, domain.ErrDuplicateCode) {
			metrics.IncGenerationFailure("duplicate")
		} else {
			metrics.IncGenerationFailure("storage")
		}
		log.Error().Err(err).Int("count", count).Msg("failed to store code batch")
		return nil, err
	}

	metrics.AddCodesGenerated(len(batch))
	log.Info().
		Str("batch_id", batchID).
		Int("count", len(batch)).
		Int("shift", scope.Shift).
		Int("squad", scope.Squad).
		Msg("access codes generated")
	return batch, nil
}

// Redeem marks the code used and returns the scope it unlocks. The lookup and
// the guarded update run in one transaction holding the row lock, so of two
// concurrent callers exactly one wins and the other sees ErrAlreadyRedeemed.
// A code bound to another scope is reported as ErrNotFound.
func (u *codeUC) Redeem(ctx context.Context, code string, form model.RedemptionForm, usedBy string) (model.Scope, error) {
	defer logging.TraceDuration(u.log, "CodeUC.Redeem")()
	log := logging.With(ctx, u.log)

	code = strings.TrimSpace(code)
	if code == "" {
		metrics.IncRedemption("invalid")
		return model.Scope{}, domain.ErrInvalidArgument
	}
	if err := form.Validate(); err != nil {
		metrics.IncRedemption("invalid")
		return model.Scope{}, err
	}
	scope, _ := form.Scope()
	usage, err := json.Marshal(form)
	if err != nil {
		return model.Scope{}, fmt.Errorf("encode usage data: %w", err)
	}

	var bound model.Scope
	err = u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		ac, err := u.codes.FindForRedeem(ctx, tx, code, scope)
		if err != nil {
			return err
		}
		if ac.IsUsed {
			return domain.ErrAlreadyRedeemed
		}
		if err := u.codes.MarkUsed(ctx, tx, ac.ID, u.now().UTC(), form.FullName(), usedBy, usage); err != nil {
			return err
		}
		bound = ac.Scope()
		return nil
	})

	switch {
	case err == nil:
		metrics.IncRedemption("ok")
		log.Info().
			Str("code", logging.Redact(code, u.devMode)).
			Int("shift", bound.Shift).
			Int("squad", bound.Squad).
			Msg("access code redeemed")
		return bound, nil
	case errors.Is(err, domain.ErrNotFound):
		metrics.IncRedemption("not_found")
	case errors.Is(err, domain.ErrAlreadyRedeemed):
		metrics.IncRedemption("already_redeemed")
	default:
		metrics.IncRedemption("error")
		log.Error().Err(err).Str("code", logging.Redact(code, u.devMode)).Msg("redemption failed")
	}
	return model.Scope{}, err
}

func (u *codeUC) List(ctx context.Context, f model.CodeFilter) (*model.CodePage, error) {
	defer logging.TraceDuration(u.log, "CodeUC.List")()
	if f.Offset < 0 {
		f.Offset = 0
	}
	switch {
	case f.Limit <= 0:
		f.Limit = defaultListLimit
	case f.Limit > maxListLimit:
		f.Limit = maxListLimit
	}
	items, total, err := u.codes.List(ctx, repository.NoTX, f)
	if err != nil {
		return nil, err
	}
	return &model.CodePage{Items: items, Total: total, Offset: f.Offset, Limit: f.Limit}, nil
}

func (u *codeUC) Usage(ctx context.Context, code string) (*model.AccessCode, error) {
	defer logging.TraceDuration(u.log, "CodeUC.Usage")()
	return u.codes.FindByCode(ctx, repository.NoTX, strings.TrimSpace(code))
}

// ShiftCodes groups every code of the shift by squad, ascending.
func (u *codeUC) ShiftCodes(ctx context.Context, shift int) ([]model.SquadCodes, error) {
	defer logging.TraceDuration(u.log, "CodeUC.ShiftCodes")()
	if shift <= 0 {
		return nil, domain.ErrInvalidArgument
	}
	codes, err := u.codes.ListByShift(ctx, repository.NoTX, shift, false)
	if err != nil {
		return nil, err
	}
	return groupBySquad(codes), nil
}

// PrintableShift renders the unused codes of a shift as plain text for printing.
func (u *codeUC) PrintableShift(ctx context.Context, shift int) (string, error) {
	defer logging.TraceDuration(u.log, "CodeUC.PrintableShift")()
	if shift <= 0 {
		return "", domain.ErrInvalidArgument
	}
	codes, err := u.codes.ListByShift(ctx, repository.NoTX, shift, true)
	if err != nil {
		return "", err
	}

	lines := []string{
		u.sheet.T("print.header", shift) + "\n",
		strings.Repeat("=", 50) + "\n",
	}
	for _, g := range groupBySquad(codes) {
		lines = append(lines, "\n"+u.sheet.T("print.squad", g.SquadNumber), strings.Repeat("-", 30))
		for _, c := range g.Codes {
			lines = append(lines, c.Code)
		}
		lines = append(lines, "")
	}
	return strings.Join(lines, "\n"), nil
}

type englishSheet struct{}

func (englishSheet) T(key string, args ...interface{}) string {
	switch key {
	case "print.header":
		return fmt.Sprintf("Shift %d - Unused codes", args...)
	case "print.squad":
		return fmt.Sprintf("Squad %d", args...)
	}
	return key
}

// groupBySquad expects codes ordered by squad.
func groupBySquad(codes []*model.AccessCode) []model.SquadCodes {
	var out []model.SquadCodes
	for _, c := range codes {
		if n := len(out); n == 0 || out[n-1].SquadNumber != c.SquadNumber {
			out = append(out, model.SquadCodes{SquadNumber: c.SquadNumber})
		}
		last := &out[len(out)-1]
		last.Codes = append(last.Codes, c)
	}
	return out
}
