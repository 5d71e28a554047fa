//go:build !integration

package api_test

import (
	"context"
	"errors"
	"io"

	"svmedia/internal/domain"
	"svmedia/internal/domain/model"
	"svmedia/internal/usecase"
)

// ---- CodeUseCase ----

type fakeCodes struct {
	GenerateFunc func(ctx context.Context, count int, scope model.Scope, issuer *model.User) ([]*model.AccessCode, error)
	RedeemFunc   func(ctx context.Context, code string, form model.RedemptionForm, usedBy string) (model.Scope, error)
	ListFunc     func(ctx context.Context, f model.CodeFilter) (*model.CodePage, error)
	UsageFunc    func(ctx context.Context, code string) (*model.AccessCode, error)
	ShiftFunc    func(ctx context.Context, shift int) ([]model.SquadCodes, error)
	PrintFunc    func(ctx context.Context, shift int) (string, error)
}

var _ usecase.CodeUseCase = (*fakeCodes)(nil)

func (f *fakeCodes) Generate(ctx context.Context, count int, scope model.Scope, issuer *model.User) ([]*model.AccessCode, error) {
	if f.GenerateFunc == nil {
		return nil, errors.New("not implemented")
	}
	return f.GenerateFunc(ctx, count, scope, issuer)
}

func (f *fakeCodes) Redeem(ctx context.Context, code string, form model.RedemptionForm, usedBy string) (model.Scope, error) {
	if f.RedeemFunc == nil {
		return form.Scope()
	}
	return f.RedeemFunc(ctx, code, form, usedBy)
}

func (f *fakeCodes) List(ctx context.Context, filter model.CodeFilter) (*model.CodePage, error) {
	if f.ListFunc == nil {
		return &model.CodePage{Offset: filter.Offset, Limit: filter.Limit}, nil
	}
	return f.ListFunc(ctx, filter)
}

func (f *fakeCodes) Usage(ctx context.Context, code string) (*model.AccessCode, error) {
	if f.UsageFunc == nil {
		return nil, domain.ErrNotFound
	}
	return f.UsageFunc(ctx, code)
}

func (f *fakeCodes) ShiftCodes(ctx context.Context, shift int) ([]model.SquadCodes, error) {
	if f.ShiftFunc == nil {
		return nil, nil
	}
	return f.ShiftFunc(ctx, shift)
}

func (f *fakeCodes) PrintableShift(ctx context.Context, shift int) (string, error) {
	if f.PrintFunc == nil {
		return "", nil
	}
	return f.PrintFunc(ctx, shift)
}

// ---- ArchiveUseCase ----

type fakeArchives struct {
	mode         string
	AssembleFunc func(ctx context.Context, scope model.Scope) (*model.Archive, error)
	StreamFunc   func(ctx context.Context, scope model.Scope, open func(filename string) io.Writer) error
	LinksFunc    func(ctx context.Context, scope model.Scope) (*model.DownloadLinks, error)
	SharedFunc   func(ctx context.Context, shift int) ([]model.RemoteObject, error)
}

var _ usecase.ArchiveUseCase = (*fakeArchives)(nil)

func (f *fakeArchives) Mode() string { return f.mode }

func (f *fakeArchives) Assemble(ctx context.Context, scope model.Scope) (*model.Archive, error) {
	return f.AssembleFunc(ctx, scope)
}

func (f *fakeArchives) Stream(ctx context.Context, scope model.Scope, open func(filename string) io.Writer) error {
	return f.StreamFunc(ctx, scope, open)
}

func (f *fakeArchives) Links(ctx context.Context, scope model.Scope) (*model.DownloadLinks, error) {
	return f.LinksFunc(ctx, scope)
}

func (f *fakeArchives) ListShared(ctx context.Context, shift int) ([]model.RemoteObject, error) {
	if f.SharedFunc == nil {
		return nil, nil
	}
	return f.SharedFunc(ctx, shift)
}

// ---- AuthUseCase ----

// fakeAuth accepts tokens of the form "tok-<user id>" for the users it holds.
type fakeAuth struct {
	users      map[string]*model.User
	passwords  map[string]string
	CreateFunc func(ctx context.Context, email, password string, isAdmin bool) (*model.User, error)
}

var _ usecase.AuthUseCase = (*fakeAuth)(nil)

func newFakeAuth() *fakeAuth {
	return &fakeAuth{
		users: map[string]*model.User{
			"admin-1": {ID: "admin-1", Email: "admin@example.com", IsActive: true, IsAdmin: true},
			"staff-1": {ID: "staff-1", Email: "staff@example.com", IsActive: true},
		},
		passwords: map[string]string{"admin@example.com": "correct horse"},
	}
}

func (f *fakeAuth) Login(ctx context.Context, email, password string) (string, error) {
	if p, ok := f.passwords[email]; !ok || p != password {
		return "", domain.ErrInvalidCredentials
	}
	for id, u := range f.users {
		if u.Email == email {
			return "tok-" + id, nil
		}
	}
	return "", domain.ErrInvalidCredentials
}

func (f *fakeAuth) Principal(ctx context.Context, token string) (*model.User, error) {
	if len(token) < 4 || token[:4] != "tok-" {
		return nil, domain.ErrUnauthorized
	}
	u, ok := f.users[token[4:]]
	if !ok {
		return nil, domain.ErrUnauthorized
	}
	return u, nil
}

func (f *fakeAuth) CreateUser(ctx context.Context, email, password string, isAdmin bool) (*model.User, error) {
	if f.CreateFunc != nil {
		return f.CreateFunc(ctx, email, password, isAdmin)
	}
	return &model.User{ID: "new-1", Email: email, IsActive: true, IsAdmin: isAdmin}, nil
}

// ---- Limiter ----

type fakeLimiter struct {
	allow bool
	err   error
	keys  []string
}

func (l *fakeLimiter) Allow(ctx context.Context, key string) (bool, error) {
	l.keys = append(l.keys, key)
	return l.allow, l.err
}
