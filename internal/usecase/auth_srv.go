package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"yamdb/internal/data/entity"
	"yamdb/internal/data/repository"
	"yamdb/internal/dto/request"
	"yamdb/internal/dto/response"
	"yamdb/pkg/mailer"
	"yamdb/pkg/metrics"
	"yamdb/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type AuthService interface {
	// SignUp registers the pair (or reuses an existing exact match) and mails a code.
	SignUp(ctx context.Context, req *request.SignUpRequest) (*response.SignUpResponse, error)
	// Token exchanges a username and confirmation code for an access token.
	Token(ctx context.Context, req *request.TokenRequest) (*response.TokenResponse, error)
}

type authService struct {
	repo     *repository.Repository
	jwt      *utils.JWTManager
	mailer   mailer.Mailer
	codeCfg  utils.CodeConfig
	throttle *keyThrottle
	attempts *keyThrottle
	log      *zap.Logger
}

func NewAuthService(
	repo *repository.Repository,
	jwt *utils.JWTManager,
	mail mailer.Mailer,
	codeCfg utils.CodeConfig,
	log *zap.Logger,
) AuthService {
	return &authService{
		repo:     repo,
		jwt:      jwt,
		mailer:   mail,
		codeCfg:  codeCfg,
		throttle: newKeyThrottle(codeCfg.ResendPerHour),
		attempts: newKeyThrottle(codeCfg.AttemptsPerHour),
		log:      log.With(zap.String("service", "auth")),
	}
}

func (s *authService) SignUp(ctx context.Context, req *request.SignUpRequest) (*response.SignUpResponse, error) {
	if err := validate(req); err != nil {
		s.log.Warn("Signup validation failed", zap.Error(err))
		return nil, err
	}

	user, err := s.resolveSignUpUser(ctx, req)
	if err != nil {
		return nil, err
	}

	if !s.throttle.Allow(user.Email) {
		metrics.ConfirmationCodesSent.WithLabelValues("throttled").Inc()
		s.log.Warn("Confirmation code throttled", zap.String("email", user.Email))
		return nil, fmt.Errorf("%w: confirmation code requested too often", ErrThrottled)
	}

	code, err := s.issueCode(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	body := fmt.Sprintf("Your confirmation code: %s\nIt expires in %d minutes.", code, s.codeExpiry()/time.Minute)
	if err := s.mailer.Send(ctx, user.Email, "YaMDb confirmation code", body); err != nil {
		metrics.ConfirmationCodesSent.WithLabelValues("failed").Inc()
		s.log.Error("Failed to send confirmation code",
			zap.Error(err),
			zap.String("email", user.Email),
		)
		return nil, fmt.Errorf("send confirmation code: %w", err)
	}
	metrics.ConfirmationCodesSent.WithLabelValues("sent").Inc()

	s.log.Info("Confirmation code sent",
		zap.String("user_id", user.ID.String()),
		zap.String("username", user.Username),
	)

	return &response.SignUpResponse{
		Email:    user.Email,
		Username: user.Username,
	}, nil
}

// resolveSignUpUser returns the existing user for an exact (username, email)
// match, creates a new one when both are free, and rejects partial matches.
func (s *authService) resolveSignUpUser(ctx context.Context, req *request.SignUpRequest) (*entity.User, error) {
	byUsername, err := s.repo.User.FindByUsername(ctx, req.Username)
	if err != nil {
		return nil, fmt.Errorf("check username: %w", err)
	}
	byEmail, err := s.repo.User.FindByEmail(ctx, req.Email)
	if err != nil {
		return nil, fmt.Errorf("check email: %w", err)
	}

	switch {
	case byUsername != nil && byEmail != nil && byUsername.ID == byEmail.ID:
		return byUsername, nil
	case byUsername != nil:
		return nil, fieldError("username", "A user with this username already exists")
	case byEmail != nil:
		return nil, fieldError("email", "A user with this email already exists")
	}

	now := time.Now()
	user := &entity.User{
		Base: entity.Base{
			ID:        uuid.New(),
			CreatedAt: now,
			UpdatedAt: now,
		},
		Username: req.Username,
		Email:    req.Email,
		Role:     entity.RoleUser,
	}

	if err := s.repo.User.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, fmt.Errorf("%w: username or email already taken", ErrConflict)
		}
		s.log.Error("Failed to create user", zap.Error(err), zap.String("username", req.Username))
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.log.Info("User registered",
		zap.String("user_id", user.ID.String()),
		zap.String("username", user.Username),
	)

	return user, nil
}

// issueCode replaces any outstanding codes for userID and returns the new plain code.
func (s *authService) issueCode(ctx context.Context, userID uuid.UUID) (string, error) {
	code, err := utils.GenerateConfirmationCode(s.codeCfg.Length)
	if err != nil {
		return "", err
	}

	hash, err := utils.HashCode(code)
	if err != nil {
		return "", err
	}

	if err := s.repo.ConfirmationCode.InvalidateForUser(ctx, userID); err != nil {
		s.log.Error("Failed to invalidate old codes", zap.Error(err), zap.String("user_id", userID.String()))
		return "", fmt.Errorf("invalidate codes: %w", err)
	}

	now := time.Now()
	record := &entity.ConfirmationCode{
		BaseSimple: entity.BaseSimple{
			ID:        uuid.New(),
			CreatedAt: now,
		},
		UserID:    userID,
		CodeHash:  hash,
		ExpiresAt: now.Add(s.codeExpiry()),
	}

	if err := s.repo.ConfirmationCode.Create(ctx, record); err != nil {
		return "", fmt.Errorf("store confirmation code: %w", err)
	}

	return code, nil
}

func (s *authService) codeExpiry() time.Duration {
	if s.codeCfg.ExpiryMinutes <= 0 {
		return 15 * time.Minute
	}
	return time.Duration(s.codeCfg.ExpiryMinutes) * time.Minute
}

func (s *authService) Token(ctx context.Context, req *request.TokenRequest) (*response.TokenResponse, error) {
	if err := validate(req); err != nil {
		return nil, err
	}

	// caps guessing per account regardless of client IP
	if !s.attempts.Allow(req.Username) {
		s.log.Warn("Token attempts throttled", zap.String("username", req.Username))
		return nil, fmt.Errorf("%w: too many confirmation attempts", ErrThrottled)
	}

	user, err := s.repo.User.FindByUsername(ctx, req.Username)
	if err != nil {
		s.log.Error("Failed to find user", zap.Error(err), zap.String("username", req.Username))
		return nil, fmt.Errorf("find user: %w", err)
	}
	if user == nil {
		return nil, fmt.Errorf("%w: user %s", ErrNotFound, req.Username)
	}

	codes, err := s.repo.ConfirmationCode.FindActiveByUser(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("find confirmation codes: %w", err)
	}

	var matched *entity.ConfirmationCode
	for _, c := range codes {
		if utils.CheckCodeHash(req.ConfirmationCode, c.CodeHash) {
			matched = c
			break
		}
	}
	if matched == nil {
		s.log.Warn("Invalid confirmation code", zap.String("username", req.Username))
		return nil, fieldError("confirmation_code", "Invalid or expired confirmation code")
	}

	// only one concurrent exchange of the same code may win
	if err := s.repo.ConfirmationCode.MarkAsUsed(ctx, matched.ID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.log.Warn("Confirmation code already used", zap.String("username", req.Username))
			return nil, fieldError("confirmation_code", "Invalid or expired confirmation code")
		}
		return nil, fmt.Errorf("mark code used: %w", err)
	}

	token, expiresAt, err := s.jwt.GenerateToken(user.ID, user.Username, string(user.Role))
	if err != nil {
		s.log.Error("Failed to generate token", zap.Error(err), zap.String("user_id", user.ID.String()))
		return nil, fmt.Errorf("generate token: %w", err)
	}

	s.log.Info("Token issued", zap.String("user_id", user.ID.String()))

	return &response.TokenResponse{
		Token:     token,
		ExpiresAt: expiresAt,
	}, nil
}
