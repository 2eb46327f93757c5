package service

import (
	"context"
	"errors"
	"strings"

	"knowledge-hub/internal/account/domain"
	"knowledge-hub/internal/account/repository"
	"knowledge-hub/internal/auth"
	"knowledge-hub/internal/common/clock"
	"knowledge-hub/internal/common/crypto"
	commonerrors "knowledge-hub/internal/common/errors"
	"knowledge-hub/internal/common/logger"
)

type AccountService struct {
	repo          repository.Repository
	hasher        crypto.PasswordHasher
	idGenerator   crypto.IDGenerator
	authenticator *auth.Authenticator
	clock         clock.Clock
	log           *logger.Logger
}

func NewAccountService(
	repo repository.Repository,
	hasher crypto.PasswordHasher,
	idGenerator crypto.IDGenerator,
	authenticator *auth.Authenticator,
	clk clock.Clock,
	log *logger.Logger,
) *AccountService {
	return &AccountService{
		repo:          repo,
		hasher:        hasher,
		idGenerator:   idGenerator,
		authenticator: authenticator,
		clock:         clk,
		log:           log,
	}
}

type RegisterInput struct {
	Name     string
	Email    string
	Password string
}

type LoginInput struct {
	Email    string
	Password string
}

func (s *AccountService) Register(ctx context.Context, input RegisterInput) (domain.User, error) {
	email := normalizeEmail(input.Email)

	s.log.WithFields(ctx, logger.Fields{
		"email":  email,
		"action": "register_attempt",
	}).Info("register attempt")

	hash, err := s.hasher.Hash(input.Password)
	if err != nil {
		s.log.WithFields(ctx, logger.Fields{
			"email":  email,
			"action": "register_hash_failed",
		}).Errorf("register failed: password hash error: %v", err)
		return domain.User{}, commonerrors.ErrInternal.WithCause(err)
	}

	now := s.clock.Now()
	user := domain.User{
		ID:           domain.ID(s.idGenerator.NewID()),
		Name:         strings.TrimSpace(input.Name),
		Email:        email,
		PasswordHash: hash,
		LastActive:   now,
		CreatedAt:    now,
	}

	if err := s.repo.Create(ctx, user); err != nil {
		if errors.Is(err, commonerrors.ErrEmailAlreadyExists) {
			s.log.WithFields(ctx, logger.Fields{
				"email":  email,
				"action": "register_email_exists",
			}).Warn("register failed: email already registered")
			return domain.User{}, err
		}
		s.log.WithFields(ctx, logger.Fields{
			"email":  email,
			"action": "register_create_failed",
		}).Errorf("register failed: %v", err)
		return domain.User{}, commonerrors.ErrStoreUnavailable.WithCause(err)
	}

	s.log.WithFields(ctx, logger.Fields{
		"email":   email,
		"user_id": string(user.ID),
		"action":  "register_success",
	}).Info("register success")

	return user, nil
}

// Login verifies credentials and returns a signed access token. An unknown
// email and a wrong password produce the same error.
func (s *AccountService) Login(ctx context.Context, input LoginInput) (string, error) {
	email := normalizeEmail(input.Email)

	s.log.WithFields(ctx, logger.Fields{
		"email":  email,
		"action": "login_attempt",
	}).Info("login attempt")

	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, commonerrors.ErrUserNotFound) {
			s.log.WithFields(ctx, logger.Fields{
				"email":  email,
				"action": "login_user_not_found",
			}).Warn("login failed: not found")
			return "", commonerrors.ErrInvalidCredentials
		}
		s.log.WithFields(ctx, logger.Fields{
			"email":  email,
			"action": "login_fetch_failed",
		}).Errorf("login failed: %v", err)
		return "", commonerrors.ErrStoreUnavailable.WithCause(err)
	}

	if err := s.hasher.Compare(user.PasswordHash, input.Password); err != nil {
		s.log.WithFields(ctx, logger.Fields{
			"email":  email,
			"action": "login_invalid_password",
		}).Warn("login failed: invalid password")
		return "", commonerrors.ErrInvalidCredentials
	}

	token, err := s.authenticator.Issue(string(user.ID), user.Email, user.Admin)
	if err != nil {
		s.log.WithFields(ctx, logger.Fields{
			"email":   email,
			"user_id": string(user.ID),
			"action":  "login_token_issue_failed",
		}).Errorf("login failed: token issue error: %v", err)
		return "", commonerrors.ErrInternal.WithCause(err)
	}

	if err := s.repo.TouchLastActive(ctx, user.ID, s.clock.Now()); err != nil {
		s.log.WithFields(ctx, logger.Fields{
			"user_id": string(user.ID),
			"action":  "login_touch_last_active_failed",
		}).Warnf("failed to update last_active: %v", err)
	}

	s.log.WithFields(ctx, logger.Fields{
		"email":   email,
		"user_id": string(user.ID),
		"action":  "login_success",
	}).Info("login success")

	return token, nil
}

func (s *AccountService) Get(ctx context.Context, id string) (domain.User, error) {
	return s.repo.FindByID(ctx, domain.ID(id))
}

func (s *AccountService) UpdateProfile(ctx context.Context, id, name, email string) (domain.User, error) {
	user, err := s.repo.UpdateProfile(ctx, domain.ID(id), strings.TrimSpace(name), normalizeEmail(email))
	if err != nil {
		return domain.User{}, err
	}

	s.log.WithFields(ctx, logger.Fields{
		"user_id": id,
		"action":  "profile_updated",
	}).Info("profile updated")

	return user, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
