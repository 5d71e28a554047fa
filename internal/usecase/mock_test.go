//go:build !integration

package usecase_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"svmedia/internal/domain"
	"svmedia/internal/domain/model"
	"svmedia/internal/domain/ports/adapter"
	"svmedia/internal/domain/ports/repository"
	"svmedia/internal/infra/logging"
)

// -----------------------------
// Utilities: tiny helpers
// -----------------------------

// cycleReader repeats its bytes forever; it makes code draws deterministic.
type cycleReader struct {
	b []byte
	i int
}

func (r *cycleReader) Read(p []byte) (int, error) {
	for n := range p {
		p[n] = r.b[r.i%len(r.b)]
		r.i++
	}
	return len(p), nil
}

func validForm(shift, squad int) model.RedemptionForm {
	return model.RedemptionForm{
		Name:    "Ann",
		Surname: "Lee",
		Shift:   fmt.Sprint(shift),
		Group:   fmt.Sprint(squad),
		Agree:   true,
	}
}

// =============================
// Repositories
// =============================

// ---- Mock AccessCodeRepository ----

// MockAccessCodeRepo keeps codes in memory. MarkUsed is a check-and-set under
// the mutex, which is what the guarded UPDATE gives us in Postgres.
type MockAccessCodeRepo struct {
	mu     sync.Mutex
	byCode map[string]*model.AccessCode
	order  []string

	InsertBatchFunc   func(ctx context.Context, tx repository.Tx, codes []*model.AccessCode) error
	FindForRedeemFunc func(ctx context.Context, tx repository.Tx, code string, scope model.Scope) (*model.AccessCode, error)
	Inserts           int
}

var _ repository.AccessCodeRepository = (*MockAccessCodeRepo)(nil)

func NewMockAccessCodeRepo() *MockAccessCodeRepo {
	return &MockAccessCodeRepo{byCode: map[string]*model.AccessCode{}}
}

func (r *MockAccessCodeRepo) InsertBatch(ctx context.Context, tx repository.Tx, codes []*model.AccessCode) error {
	if r.InsertBatchFunc != nil {
		return r.InsertBatchFunc(ctx, tx, codes)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Inserts++
	seen := map[string]bool{}
	for _, c := range codes {
		if _, ok := r.byCode[c.Code]; ok || seen[c.Code] {
			return domain.ErrDuplicateCode
		}
		seen[c.Code] = true
	}
	now := time.Now()
	for _, c := range codes {
		if c.ID == "" {
			c.ID = uuid.NewString()
		}
		c.CreatedAt = now
		cp := *c
		r.byCode[c.Code] = &cp
		r.order = append(r.order, c.Code)
	}
	return nil
}

func (r *MockAccessCodeRepo) FindForRedeem(ctx context.Context, tx repository.Tx, code string, scope model.Scope) (*model.AccessCode, error) {
	if r.FindForRedeemFunc != nil {
		return r.FindForRedeemFunc(ctx, tx, code, scope)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.byCode[code]
	if !ok || c.Scope() != scope {
		return nil, domain.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (r *MockAccessCodeRepo) MarkUsed(ctx context.Context, tx repository.Tx, id string, usedAt time.Time, fullName, usedBy string, usageData []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.byCode {
		if c.ID != id {
			continue
		}
		if c.IsUsed {
			return domain.ErrAlreadyRedeemed
		}
		c.IsUsed = true
		c.UsedAt = &usedAt
		c.FullName = &fullName
		if usedBy != "" {
			c.UsedBy = &usedBy
		}
		c.UsageData = append([]byte(nil), usageData...)
		return nil
	}
	return domain.ErrAlreadyRedeemed
}

func (r *MockAccessCodeRepo) FindByCode(ctx context.Context, tx repository.Tx, code string) (*model.AccessCode, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.byCode[code]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (r *MockAccessCodeRepo) List(ctx context.Context, tx repository.Tx, f model.CodeFilter) ([]*model.AccessCode, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var match []*model.AccessCode
	for _, k := range r.order {
		c := r.byCode[k]
		if f.Search != "" && !strings.Contains(strings.ToLower(c.Code), strings.ToLower(f.Search)) {
			continue
		}
		if f.IsUsed != nil && c.IsUsed != *f.IsUsed {
			continue
		}
		cp := *c
		match = append(match, &cp)
	}
	total := len(match)
	if f.Offset >= total {
		return nil, total, nil
	}
	end := f.Offset + f.Limit
	if end > total {
		end = total
	}
	return match[f.Offset:end], total, nil
}

func (r *MockAccessCodeRepo) ListByShift(ctx context.Context, tx repository.Tx, shift int, onlyUnused bool) ([]*model.AccessCode, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.AccessCode
	for _, k := range r.order {
		c := r.byCode[k]
		if c.ShiftNumber != shift || (onlyUnused && c.IsUsed) {
			continue
		}
		cp := *c
		out = append(out, &cp)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].SquadNumber < out[j].SquadNumber })
	return out, nil
}

func (r *MockAccessCodeRepo) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byCode)
}

// ---- Mock UserRepository ----

type MockUserRepo struct {
	mu      sync.Mutex
	byID    map[string]*model.User
	byEmail map[string]*model.User
}

var _ repository.UserRepository = (*MockUserRepo)(nil)

func NewMockUserRepo() *MockUserRepo {
	return &MockUserRepo{byID: map[string]*model.User{}, byEmail: map[string]*model.User{}}
}

func (r *MockUserRepo) Create(ctx context.Context, tx repository.Tx, u *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byEmail[u.Email]; ok {
		return domain.ErrAlreadyExists
	}
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	cp := *u
	r.byID[cp.ID] = &cp
	r.byEmail[cp.Email] = &cp
	return nil
}

func (r *MockUserRepo) FindByEmail(ctx context.Context, tx repository.Tx, email string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.byEmail[model.NormalizeEmail(email)]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, domain.ErrNotFound
}

func (r *MockUserRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.byID[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, domain.ErrNotFound
}

// =============================
// Adapters
// =============================

// ---- Mock ObjectStore ----

type MockObjectStore struct {
	mu       sync.Mutex
	listings map[string][]model.RemoteObject
	bodies   map[string]string
	present  map[string]bool

	GetFunc  func(ctx context.Context, key string) (io.ReadCloser, error)
	ListErr  error
	Gets     []string
	Presigns map[string]time.Duration
}

var _ adapter.ObjectStore = (*MockObjectStore)(nil)

func NewMockObjectStore() *MockObjectStore {
	return &MockObjectStore{
		listings: map[string][]model.RemoteObject{},
		bodies:   map[string]string{},
		present:  map[string]bool{},
		Presigns: map[string]time.Duration{},
	}
}

// Put appends key to the listing of prefix, so listing order is insertion order.
func (s *MockObjectStore) Put(prefix, key, body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listings[prefix] = append(s.listings[prefix], model.RemoteObject{
		Key:          key,
		Size:         int64(len(body)),
		LastModified: time.Date(2024, 7, 1, 12, 0, 0, 0, time.UTC),
	})
	if !strings.HasSuffix(key, "/") {
		s.bodies[key] = body
	}
}

func (s *MockObjectStore) Publish(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.present[key] = true
}

func (s *MockObjectStore) List(ctx context.Context, prefix string) ([]model.RemoteObject, error) {
	if s.ListErr != nil {
		return nil, s.ListErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.RemoteObject(nil), s.listings[prefix]...), nil
}

func (s *MockObjectStore) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	if s.GetFunc != nil {
		return s.GetFunc(ctx, key)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Gets = append(s.Gets, key)
	b, ok := s.bodies[key]
	if !ok {
		return nil, errors.New("no such key")
	}
	return io.NopCloser(strings.NewReader(b)), nil
}

func (s *MockObjectStore) Exists(ctx context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.present[key], nil
}

func (s *MockObjectStore) PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Presigns[key] = ttl
	return "https://signed.example/" + key, nil
}

// =============================
// Infra helpers for tests
// =============================

// ---- Mock TransactionManager ----

type MockTxManager struct {
	WithTxFunc func(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error
}

func NewMockTxManager() *MockTxManager {
	return &MockTxManager{}
}

var _ repository.TransactionManager = (*MockTxManager)(nil)

// WithTx runs fn immediately with NoTX unless WithTxFunc overrides it.
func (m *MockTxManager) WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	if m.WithTxFunc != nil {
		return m.WithTxFunc(ctx, txOpt, fn)
	}
	return fn(ctx, repository.NoTX)
}

func newTestLogger() *zerolog.Logger { return logging.Nop() }
