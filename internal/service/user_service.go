package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"sharedrive/internal/domain"
	"sharedrive/internal/logging"
	"sharedrive/internal/mail"
)

type UserStore interface {
	Create(ctx context.Context, user *domain.User) error
	FindByEmailOrUsername(ctx context.Context, email, username string) (*domain.User, error)
	FindByUsername(ctx context.Context, username string) (*domain.User, error)
	Save(ctx context.Context, user *domain.User) error
}

type TokenIssuer interface {
	Issue(userID, email string) (string, error)
}

// ConfirmationCodec maps usernames to the tokens embedded in verification
// links.
type ConfirmationCodec interface {
	Encrypt(username string) string
	Decrypt(token string) (string, error)
}

type UserService struct {
	users      UserStore
	tokens     TokenIssuer
	codec      ConfirmationCodec
	mailer     mail.Sender
	apiURL     string
	bcryptCost int
	logger     logging.Logger
}

func NewUserService(
	users UserStore,
	tokens TokenIssuer,
	codec ConfirmationCodec,
	mailer mail.Sender,
	apiURL string,
	bcryptCost int,
	logger logging.Logger,
) *UserService {
	if bcryptCost < bcrypt.MinCost || bcryptCost > bcrypt.MaxCost {
		bcryptCost = bcrypt.DefaultCost
	}
	return &UserService{
		users:      users,
		tokens:     tokens,
		codec:      codec,
		mailer:     mailer,
		apiURL:     apiURL,
		bcryptCost: bcryptCost,
		logger:     logger,
	}
}

// Signup registers a new account and mails its confirmation link. A mail
// failure is logged and does not fail the signup.
func (s *UserService) Signup(ctx context.Context, input domain.SignupInput) (*domain.User, error) {
	input.Email = normalizeEmail(input.Email)
	if err := domain.Validate(input).Err(); err != nil {
		return nil, err
	}

	_, err := s.users.FindByEmailOrUsername(ctx, input.Email, input.Username)
	switch {
	case err == nil:
		return nil, fmt.Errorf("%w: email or username taken", domain.ErrAlreadyExists)
	case !errors.Is(err, domain.ErrNotFound):
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), s.bcryptCost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return nil, fmt.Errorf("%w: password is too long", domain.ErrValidation)
		}
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &domain.User{
		FirstName:    input.FirstName,
		LastName:     input.LastName,
		Username:     input.Username,
		Email:        input.Email,
		PasswordHash: string(hash),
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	if err := s.issueToken(ctx, user); err != nil {
		return nil, err
	}

	link := s.apiURL + "/verify/" + s.codec.Encrypt(user.Username)
	if err := s.mailer.SendConfirmation(ctx, user.Email, link); err != nil {
		s.logger.Error(ctx, "failed to send confirmation email", "user_id", user.ID, "error", err)
	}

	s.logger.Info(ctx, "user signed up", "user_id", user.ID)
	return user, nil
}

// Login accepts an email or a username. Unknown users and wrong passwords
// yield the same ErrInvalidCredentials.
func (s *UserService) Login(ctx context.Context, input domain.LoginInput) (*domain.User, error) {
	if err := domain.Validate(input).Err(); err != nil {
		return nil, err
	}

	user, err := s.users.FindByEmailOrUsername(ctx, normalizeEmail(input.EmailOrUsername), input.EmailOrUsername)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password)); err != nil {
		return nil, domain.ErrInvalidCredentials
	}

	if err := s.issueToken(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// VerifyEmail confirms the account named by a confirmation token. Confirming
// twice is not an error.
func (s *UserService) VerifyEmail(ctx context.Context, token string) (*domain.User, error) {
	username, err := s.codec.Decrypt(token)
	if err != nil {
		return nil, err
	}

	user, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		return nil, err
	}

	user.IsConfirmed = true
	if err := s.users.Save(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to save user: %w", err)
	}

	s.logger.Info(ctx, "user verified", "user_id", user.ID)
	return user, nil
}

func (s *UserService) issueToken(ctx context.Context, user *domain.User) error {
	token, err := s.tokens.Issue(user.ID, user.Email)
	if err != nil {
		return fmt.Errorf("failed to issue token: %w", err)
	}

	user.Token = &token
	if err := s.users.Save(ctx, user); err != nil {
		return fmt.Errorf("failed to save token: %w", err)
	}
	return nil
}

// Emails are stored lower-cased, so lookups must be too.
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
