package repository

import (
	"context"
	"time"

	"svmedia/internal/domain/model"
)

// AccessCodeRepository is the port for persisting and redeeming access codes.
type AccessCodeRepository interface {
	// InsertBatch stores all codes in one statement and fills server-side fields.
	// A unique violation returns domain.ErrDuplicateCode and stores nothing.
	InsertBatch(ctx context.Context, tx Tx, codes []*model.AccessCode) error
	// FindForRedeem locks and returns the code matching value and scope.
	// Outside a transaction no lock is taken.
	FindForRedeem(ctx context.Context, tx Tx, code string, scope model.Scope) (*model.AccessCode, error)
	// MarkUsed flips is_used exactly once; a code that is already used returns domain.ErrAlreadyRedeemed.
	MarkUsed(ctx context.Context, tx Tx, id string, usedAt time.Time, fullName, usedBy string, usageData []byte) error
	FindByCode(ctx context.Context, tx Tx, code string) (*model.AccessCode, error)
	List(ctx context.Context, tx Tx, f model.CodeFilter) ([]*model.AccessCode, int, error)
	// ListByShift returns codes of a shift ordered by squad; onlyUnused filters redeemed ones out.
	ListByShift(ctx context.Context, tx Tx, shift int, onlyUnused bool) ([]*model.AccessCode, error)
}
