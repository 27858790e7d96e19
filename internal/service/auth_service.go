package service

import (
	"context"
	"fmt"
	"time"

	"github.com/alexedwards/argon2id"

	"github.com/brandforge/contentpilot/internal/domain"
	"github.com/brandforge/contentpilot/internal/mailer"
	"github.com/brandforge/contentpilot/internal/repository"
	"github.com/brandforge/contentpilot/internal/session"
	"github.com/brandforge/contentpilot/pkg/auth"
	"github.com/brandforge/contentpilot/pkg/config"
	"github.com/brandforge/contentpilot/pkg/events"
	"github.com/brandforge/contentpilot/pkg/logger"
)

type AuthService interface {
	Register(ctx context.Context, req *domain.RegisterRequest) (*domain.AuthResponse, error)
	Login(ctx context.Context, req *domain.LoginRequest) (*domain.AuthResponse, error)
	SendCode(ctx context.Context, email string) error
	ConfirmEmail(ctx context.Context, req *domain.ConfirmRequest) (*domain.AuthResponse, error)
	RecoverRequest(ctx context.Context, email string) error
	RecoverVerifyCode(ctx context.Context, email, code string) error
	RecoverReset(ctx context.Context, req *domain.ResetPasswordRequest) error
	Refresh(ctx context.Context) (*domain.AuthResponse, error)
	Logout(ctx context.Context) error
	Session() domain.SessionInfo
}

type authService struct {
	userRepo   repository.UserRepository
	verifyRepo repository.VerifyRepository
	session    *session.Manager
	mailer     mailer.Service
	publisher  events.Publisher
	config     *config.Config
}

func NewAuthService(
	userRepo repository.UserRepository,
	verifyRepo repository.VerifyRepository,
	sess *session.Manager,
	mailer mailer.Service,
	publisher events.Publisher,
	config *config.Config,
) AuthService {
	return &authService{
		userRepo:   userRepo,
		verifyRepo: verifyRepo,
		session:    sess,
		mailer:     mailer,
		publisher:  publisher,
		config:     config,
	}
}

func (s *authService) passwordPolicy() domain.PasswordPolicy {
	return domain.PasswordPolicy{Strict: s.config.Auth.StrictPassword}
}

func (s *authService) Register(ctx context.Context, req *domain.RegisterRequest) (*domain.AuthResponse, error) {
	req.Normalize()
	if err := req.Validate(s.passwordPolicy()); err != nil {
		return nil, err
	}

	existing, err := s.userRepo.FindByEmail(ctx, req.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing user: %w", err)
	}
	if existing != nil {
		return nil, domain.ErrDuplicateUser
	}

	passwordHash, err := argon2id.CreateHash(req.Password, argon2id.DefaultParams)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	needsConfirmation := s.config.Auth.ConfirmationPolicy != "never"

	user, err := s.userRepo.Create(ctx, req.Email, req.Name, req.Username, passwordHash, !needsConfirmation)
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	if err := s.publisher.Publish(ctx, events.UserRegistered, events.UserRegisteredEvent{
		UserID:            user.ID,
		Email:             user.Email,
		NeedsConfirmation: needsConfirmation,
		RegisteredAt:      user.CreatedAt,
	}); err != nil {
		logger.WarnContext(ctx, "Failed to publish registration event", "error", err)
	}

	if needsConfirmation {
		if err := s.issueAndMailConfirmation(ctx, user.Email, user.Name); err != nil {
			logger.ErrorContext(ctx, "Failed to send confirmation code", "error", err, "user_id", user.ID)
			// Registration succeeded; the code can be resent
		}
		if err := s.session.MarkPending(ctx, user.Email); err != nil {
			return nil, err
		}
		return &domain.AuthResponse{
			Message:              "Registration successful. Check your email for a confirmation code.",
			RequiresConfirmation: true,
		}, nil
	}

	return s.authenticate(ctx, user, "Registration successful.")
}

func (s *authService) Login(ctx context.Context, req *domain.LoginRequest) (*domain.AuthResponse, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	if req.Email == s.config.Auth.DemoEmail && req.Password == s.config.Auth.DemoPassword {
		return s.demoLogin(ctx)
	}

	user, err := s.userRepo.FindByEmail(ctx, req.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return nil, domain.ErrInvalidCredentials
	}

	match, err := argon2id.ComparePasswordAndHash(req.Password, user.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("failed to verify password: %w", err)
	}
	if !match {
		return nil, domain.ErrInvalidCredentials
	}

	if !user.EmailConfirmed {
		if err := s.issueAndMailConfirmation(ctx, user.Email, user.Name); err != nil {
			logger.ErrorContext(ctx, "Failed to send confirmation code", "error", err, "user_id", user.ID)
		}
		if err := s.session.MarkPending(ctx, user.Email); err != nil {
			return nil, err
		}
		return &domain.AuthResponse{
			Message:              "Email confirmation required.",
			RequiresConfirmation: true,
		}, nil
	}

	resp, err := s.authenticate(ctx, user, "Login successful.")
	if err != nil {
		return nil, err
	}
	if err := s.publisher.Publish(ctx, events.UserLoggedIn, events.UserLoggedInEvent{
		UserID:     user.ID,
		Email:      user.Email,
		LoggedInAt: time.Now().UTC(),
	}); err != nil {
		logger.WarnContext(ctx, "Failed to publish login event", "error", err)
	}
	return resp, nil
}

// demoLogin provisions the designated demo account on first use.
func (s *authService) demoLogin(ctx context.Context) (*domain.AuthResponse, error) {
	user, err := s.userRepo.FindByEmail(ctx, s.config.Auth.DemoEmail)
	if err != nil {
		return nil, fmt.Errorf("failed to find demo user: %w", err)
	}
	if user == nil {
		passwordHash, err := argon2id.CreateHash(s.config.Auth.DemoPassword, argon2id.DefaultParams)
		if err != nil {
			return nil, fmt.Errorf("failed to hash demo password: %w", err)
		}
		user, err = s.userRepo.Create(ctx, s.config.Auth.DemoEmail, "Demo User", "demo", passwordHash, true)
		if err != nil {
			return nil, fmt.Errorf("failed to provision demo user: %w", err)
		}
		logger.InfoContext(ctx, "Provisioned demo user", "user_id", user.ID)
	}

	return s.authenticate(ctx, user, "Login successful.")
}

func (s *authService) SendCode(ctx context.Context, email string) error {
	email = domain.NormalizeEmail(email)
	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		// Don't reveal whether the email is registered
		return nil
	}
	if user.EmailConfirmed {
		return fmt.Errorf("%w: account is already confirmed", domain.ErrValidation)
	}

	return s.issueAndMailConfirmation(ctx, user.Email, user.Name)
}

func (s *authService) ConfirmEmail(ctx context.Context, req *domain.ConfirmRequest) (*domain.AuthResponse, error) {
	req.Normalize()
	if req.Email == "" {
		req.Email = s.session.PendingEmail()
	}
	if err := domain.ValidateCode(req.Code); err != nil {
		return nil, err
	}
	if req.Email == "" {
		return nil, fmt.Errorf("%w: email is required", domain.ErrValidation)
	}

	if s.config.Auth.StrictCodeVerify {
		ok, err := s.verifyRepo.ConsumeCode(ctx, req.Email, req.Code)
		if err != nil {
			return nil, fmt.Errorf("failed to check code: %w", err)
		}
		if !ok {
			return nil, domain.ErrInvalidCode
		}
	} else {
		// Lenient mode: any well-formed code is accepted
		_ = s.verifyRepo.Clear(ctx, req.Email)
	}

	user, err := s.userRepo.MarkConfirmed(ctx, req.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to confirm user: %w", err)
	}
	if user == nil {
		return nil, domain.ErrUserNotFound
	}

	if err := s.publisher.Publish(ctx, events.UserConfirmed, events.UserConfirmedEvent{
		UserID:      user.ID,
		Email:       user.Email,
		ConfirmedAt: time.Now().UTC(),
	}); err != nil {
		logger.WarnContext(ctx, "Failed to publish confirmation event", "error", err)
	}

	return s.authenticate(ctx, user, "Email confirmed successfully.")
}

func (s *authService) RecoverRequest(ctx context.Context, email string) error {
	email = domain.NormalizeEmail(email)
	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return domain.ErrUserNotFound
	}

	code, err := s.verifyRepo.IssueCode(ctx, user.Email, s.config.Auth.CodeTTL)
	if err != nil {
		return fmt.Errorf("failed to issue recovery code: %w", err)
	}

	if err := s.mailer.SendRecoveryCode(user.Email, code); err != nil {
		return fmt.Errorf("failed to send recovery code: %w", err)
	}
	return nil
}

func (s *authService) RecoverVerifyCode(ctx context.Context, email, code string) error {
	email = domain.NormalizeEmail(email)
	if err := domain.ValidateCode(code); err != nil {
		return err
	}

	if !s.config.Auth.StrictCodeVerify {
		return nil
	}

	ok, err := s.verifyRepo.PeekCode(ctx, email, code)
	if err != nil {
		return fmt.Errorf("failed to check code: %w", err)
	}
	if !ok {
		return domain.ErrInvalidCode
	}
	return nil
}

func (s *authService) RecoverReset(ctx context.Context, req *domain.ResetPasswordRequest) error {
	req.Normalize()
	if err := domain.ValidateCode(req.Code); err != nil {
		return err
	}
	if req.NewPassword != req.ConfirmPassword {
		return fmt.Errorf("%w: passwords do not match", domain.ErrValidation)
	}
	if err := domain.ValidatePassword(req.NewPassword, s.passwordPolicy()); err != nil {
		return err
	}

	if s.config.Auth.StrictCodeVerify {
		ok, err := s.verifyRepo.ConsumeCode(ctx, req.Email, req.Code)
		if err != nil {
			return fmt.Errorf("failed to check code: %w", err)
		}
		if !ok {
			return domain.ErrInvalidCode
		}
	} else {
		_ = s.verifyRepo.Clear(ctx, req.Email)
	}

	passwordHash, err := argon2id.CreateHash(req.NewPassword, argon2id.DefaultParams)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	user, err := s.userRepo.UpdatePassword(ctx, req.Email, passwordHash)
	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	if user == nil {
		return domain.ErrUserNotFound
	}

	if err := s.publisher.Publish(ctx, events.UserPasswordReset, events.UserPasswordResetEvent{
		UserID:  user.ID,
		Email:   user.Email,
		ResetAt: time.Now().UTC(),
	}); err != nil {
		logger.WarnContext(ctx, "Failed to publish password reset event", "error", err)
	}
	return nil
}

func (s *authService) Refresh(ctx context.Context) (*domain.AuthResponse, error) {
	user := s.session.User()
	if s.session.State() != session.Authenticated || user == nil {
		return nil, domain.ErrUnauthorized
	}
	return s.authenticate(ctx, user, "Token refreshed.")
}

func (s *authService) Logout(ctx context.Context) error {
	user := s.session.User()
	if err := s.session.Logout(ctx); err != nil {
		return err
	}
	if user != nil {
		if err := s.publisher.Publish(ctx, events.UserLoggedOut, map[string]string{"user_id": user.ID}); err != nil {
			logger.WarnContext(ctx, "Failed to publish logout event", "error", err)
		}
	}
	return nil
}

func (s *authService) Session() domain.SessionInfo {
	return s.session.Snapshot()
}

func (s *authService) authenticate(ctx context.Context, user *domain.User, message string) (*domain.AuthResponse, error) {
	token, err := auth.NewAccessToken(user.ID, user.Email, s.config.Auth.JWTSecret, s.config.Auth.AccessTokenTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to create access token: %w", err)
	}

	if err := s.session.Authenticate(ctx, user, token); err != nil {
		return nil, err
	}

	return &domain.AuthResponse{
		Message:     message,
		Confirmed:   true,
		AccessToken: token,
		User:        user,
	}, nil
}

func (s *authService) issueAndMailConfirmation(ctx context.Context, email, name string) error {
	code, err := s.verifyRepo.IssueCode(ctx, email, s.config.Auth.CodeTTL)
	if err != nil {
		return fmt.Errorf("failed to issue confirmation code: %w", err)
	}
	return s.mailer.SendConfirmationCode(email, name, code)
}
