package usecase

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"svmedia/internal/domain"
	"svmedia/internal/domain/model"
	"svmedia/internal/domain/ports/repository"
	"svmedia/internal/infra/logging"
	"svmedia/internal/infra/security"
)

// Compile-time check
var _ AuthUseCase = (*authUC)(nil)

type AuthUseCase interface {
	Login(ctx context.Context, email, password string) (string, error)
	// Principal verifies a token and reloads the user it names.
	Principal(ctx context.Context, token string) (*model.User, error)
	CreateUser(ctx context.Context, email, password string, isAdmin bool) (*model.User, error)
}

type authUC struct {
	users  repository.UserRepository
	tm     repository.TransactionManager
	tokens *security.TokenManager
	log    *zerolog.Logger
}

func NewAuthUseCase(users repository.UserRepository, tm repository.TransactionManager, tokens *security.TokenManager, logger *zerolog.Logger) *authUC {
	return &authUC{users: users, tm: tm, tokens: tokens, log: logger}
}

func (a *authUC) Login(ctx context.Context, email, password string) (string, error) {
	defer logging.TraceDuration(a.log, "AuthUC.Login")()

	u, err := a.users.FindByEmail(ctx, repository.NoTX, email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return "", domain.ErrInvalidCredentials
		}
		return "", err
	}
	if !u.IsActive || !security.CheckPassword(u.PasswordHash, password) {
		return "", domain.ErrInvalidCredentials
	}
	return a.tokens.Mint(u.Email, u.IsAdmin)
}

func (a *authUC) Principal(ctx context.Context, token string) (*model.User, error) {
	claims, err := a.tokens.Parse(token)
	if err != nil {
		return nil, domain.ErrUnauthorized
	}
	u, err := a.users.FindByEmail(ctx, repository.NoTX, claims.Subject)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrUnauthorized
		}
		return nil, err
	}
	if !u.IsActive {
		return nil, domain.ErrUnauthorized
	}
	return u, nil
}

// CreateUser stores a new account; a taken email returns domain.ErrAlreadyExists.
func (a *authUC) CreateUser(ctx context.Context, email, password string, isAdmin bool) (*model.User, error) {
	defer logging.TraceDuration(a.log, "AuthUC.CreateUser")()

	hash, err := security.HashPassword(password)
	if err != nil {
		if errors.Is(err, security.ErrWeakPassword) {
			return nil, domain.ErrInvalidArgument
		}
		return nil, err
	}
	u, err := model.NewUser("", email, hash, isAdmin)
	if err != nil {
		return nil, err
	}
	txOpts := pgx.TxOptions{IsoLevel: pgx.ReadCommitted}
	err = a.tm.WithTx(ctx, txOpts, func(ctx context.Context, tx repository.Tx) error {
		return a.users.Create(ctx, tx, u)
	})
	if err != nil {
		return nil, err
	}
	logging.With(ctx, a.log).Info().Str("user_id", u.ID).Bool("admin", isAdmin).Msg("user created")
	return u, nil
}
