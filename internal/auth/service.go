package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/labportal/reagent-portal/internal/shared"
)

// Service wraps authentication business rules.
type Service struct {
	repo     Repository
	hasher   *Hasher
	validate *validator.Validate
}

// NewService constructs a new Service.
func NewService(repo Repository, hasher *Hasher) *Service {
	return &Service{repo: repo, hasher: hasher, validate: shared.NewValidator()}
}

// Authenticate validates username/password credentials. Usernames match
// exactly. Unknown usernames and wrong passwords fail the same way.
func (s *Service) Authenticate(ctx context.Context, username, password string) (*Account, error) {
	if username == "" || password == "" {
		return nil, shared.ErrInvalidCredentials
	}
	account, err := s.repo.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			s.hasher.CompareDummy(password)
			return nil, shared.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("find account: %w", err)
	}
	if !s.hasher.Compare(account.PasswordHash, password) {
		return nil, shared.ErrInvalidCredentials
	}
	return account, nil
}

// ChangePassword replaces the actor's password after checking the current one.
func (s *Service) ChangePassword(ctx context.Context, actor shared.Actor, req ChangePasswordRequest) error {
	if err := shared.ValidateStruct(s.validate, req); err != nil {
		return err
	}
	account, err := s.repo.FindByID(ctx, actor.ID)
	if err != nil {
		return fmt.Errorf("find account: %w", err)
	}
	if !s.hasher.Compare(account.PasswordHash, req.CurrentPassword) {
		return shared.ErrInvalidCredentials
	}
	hash, err := s.hasher.Hash(req.NewPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.repo.UpdatePasswordHash(ctx, account.ID, hash); err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return nil
}
