package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"svmedia/internal/domain"
	"svmedia/internal/domain/model"
	"svmedia/internal/domain/ports/repository"
)

// Ensure implementation satisfies the interface.
var _ repository.AccessCodeRepository = (*accessCodeRepo)(nil)

type accessCodeRepo struct {
	pool *pgxpool.Pool
}

func NewAccessCodeRepo(pool *pgxpool.Pool) repository.AccessCodeRepository {
	return &accessCodeRepo{pool: pool}
}

const accessCodeColumns = `id, code, is_used, created_at, used_at, used_by, created_by_id, batch_id,
       squad_number, shift_number, full_name, usage_data`

// InsertBatch writes every code with a single multi-row INSERT, so the batch
// is stored whole or not at all even outside an explicit transaction.
func (r *accessCodeRepo) InsertBatch(ctx context.Context, tx repository.Tx, codes []*model.AccessCode) error {
	if len(codes) == 0 {
		return domain.ErrInvalidArgument
	}

	const cols = 6
	var sb strings.Builder
	sb.WriteString("INSERT INTO access_codes (id, code, created_by_id, batch_id, squad_number, shift_number) VALUES ")
	args := make([]interface{}, 0, len(codes)*cols)
	byID := make(map[string]*model.AccessCode, len(codes))
	for i, c := range codes {
		if c.ID == "" {
			c.ID = uuid.NewString()
		}
		if i > 0 {
			sb.WriteString(", ")
		}
		n := i * cols
		fmt.Fprintf(&sb, "($%d, $%d, $%d, $%d, $%d, $%d)", n+1, n+2, n+3, n+4, n+5, n+6)
		args = append(args, c.ID, c.Code, c.CreatedByID, c.BatchID, c.SquadNumber, c.ShiftNumber)
		byID[c.ID] = c
	}
	sb.WriteString(" RETURNING id, created_at;")

	rows, err := queryRows(ctx, r.pool, tx, sb.String(), args...)
	if err != nil {
		return translateInsertErr(err)
	}
	defer rows.Close()

	for rows.Next() {
		var id string
		var createdAt time.Time
		if err := rows.Scan(&id, &createdAt); err != nil {
			return domain.ErrReadDatabaseRow
		}
		if c, ok := byID[id]; ok {
			c.CreatedAt = createdAt
		}
	}
	if err := rows.Err(); err != nil {
		return translateInsertErr(err)
	}
	return nil
}

func translateInsertErr(err error) error {
	if isUniqueViolation(err) {
		return domain.ErrDuplicateCode
	}
	switch {
	case errors.Is(err, domain.ErrInvalidArgument), errors.Is(err, domain.ErrInvalidExecContext):
		return err
	default:
		return fmt.Errorf("%w: insert access codes: %v", domain.ErrOperationFailed, err)
	}
}

// FindForRedeem looks a code up by its full natural key. Within a transaction
// the row is locked so a concurrent redeemer blocks until this one commits.
func (r *accessCodeRepo) FindForRedeem(ctx context.Context, tx repository.Tx, code string, scope model.Scope) (*model.AccessCode, error) {
	q := `
SELECT ` + accessCodeColumns + `
  FROM access_codes
 WHERE code = $1 AND shift_number = $2 AND squad_number = $3`
	if inTx(tx) {
		q += "\n   FOR UPDATE"
	}
	row, err := pickRow(ctx, r.pool, tx, q, code, scope.Shift, scope.Squad)
	if err != nil {
		return nil, err
	}
	return scanAccessCode(row)
}

// MarkUsed is the only statement that mutates a code after insertion. The
// is_used guard makes it a no-op for an already redeemed code.
func (r *accessCodeRepo) MarkUsed(ctx context.Context, tx repository.Tx, id string, usedAt time.Time, fullName, usedBy string, usageData []byte) error {
	const q = `
UPDATE access_codes
   SET is_used = TRUE, used_at = $2, full_name = $3, used_by = $4, usage_data = $5
 WHERE id = $1 AND is_used = FALSE;`
	tag, err := execSQL(ctx, r.pool, tx, q, id, usedAt.UTC(), fullName, nullIfEmpty(usedBy), string(usageData))
	if err != nil {
		return fmt.Errorf("%w: mark used: %v", domain.ErrOperationFailed, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrAlreadyRedeemed
	}
	return nil
}

func (r *accessCodeRepo) FindByCode(ctx context.Context, tx repository.Tx, code string) (*model.AccessCode, error) {
	const q = `
SELECT ` + accessCodeColumns + `
  FROM access_codes
 WHERE code = $1;`
	row, err := pickRow(ctx, r.pool, tx, q, code)
	if err != nil {
		return nil, err
	}
	return scanAccessCode(row)
}

func (r *accessCodeRepo) List(ctx context.Context, tx repository.Tx, f model.CodeFilter) ([]*model.AccessCode, int, error) {
	var where []string
	var args []interface{}
	if s := strings.TrimSpace(f.Search); s != "" {
		args = append(args, "%"+escapeLike(s)+"%")
		where = append(where, fmt.Sprintf("(code ILIKE $%d OR full_name ILIKE $%d)", len(args), len(args)))
	}
	if f.IsUsed != nil {
		args = append(args, *f.IsUsed)
		where = append(where, fmt.Sprintf("is_used = $%d", len(args)))
	}
	cond := ""
	if len(where) > 0 {
		cond = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	row, err := pickRow(ctx, r.pool, tx, "SELECT COUNT(*) FROM access_codes"+cond, args...)
	if err != nil {
		return nil, 0, err
	}
	if err := row.Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("%w: count access codes: %v", domain.ErrOperationFailed, err)
	}

	args = append(args, f.Offset, f.Limit)
	q := "SELECT " + accessCodeColumns + " FROM access_codes" + cond +
		fmt.Sprintf(" ORDER BY created_at, id OFFSET $%d LIMIT $%d", len(args)-1, len(args))
	items, err := r.queryCodes(ctx, tx, q, args...)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (r *accessCodeRepo) ListByShift(ctx context.Context, tx repository.Tx, shift int, onlyUnused bool) ([]*model.AccessCode, error) {
	q := `
SELECT ` + accessCodeColumns + `
  FROM access_codes
 WHERE shift_number = $1`
	if onlyUnused {
		q += " AND is_used = FALSE"
	}
	q += " ORDER BY squad_number, created_at, id"
	return r.queryCodes(ctx, tx, q, shift)
}

func (r *accessCodeRepo) queryCodes(ctx context.Context, tx repository.Tx, q string, args ...interface{}) ([]*model.AccessCode, error) {
	rows, err := queryRows(ctx, r.pool, tx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: query access codes: %v", domain.ErrOperationFailed, err)
	}
	defer rows.Close()

	var out []*model.AccessCode
	for rows.Next() {
		c, err := scanAccessCode(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: query access codes: %v", domain.ErrOperationFailed, err)
	}
	return out, nil
}

func scanAccessCode(row pgx.Row) (*model.AccessCode, error) {
	var c model.AccessCode
	var usage []byte
	err := row.Scan(
		&c.ID, &c.Code, &c.IsUsed, &c.CreatedAt, &c.UsedAt, &c.UsedBy, &c.CreatedByID, &c.BatchID,
		&c.SquadNumber, &c.ShiftNumber, &c.FullName, &usage,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	if usage != nil {
		c.UsageData = usage
	}
	return &c, nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
