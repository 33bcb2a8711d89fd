package auth

import (
	"context"
	"errors"
	"log/slog"

	"golang.org/x/crypto/bcrypt"

	"github.com/param2610-cloud/branch-specific-it-asset-management-lite/internal"
	"github.com/param2610-cloud/branch-specific-it-asset-management-lite/internal/credential"
)

// dummyHash is compared against when the username is unknown so a miss
// costs the same as a wrong password.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("branch-assets-dummy-password"), bcrypt.DefaultCost)

// Service authenticates branch operators against the credential store.
type Service struct {
	credentials credential.Repository
	tokens      TokenService
	logger      *slog.Logger
}

func NewService(credentials credential.Repository, tokens TokenService, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		credentials: credentials,
		tokens:      tokens,
		logger:      logger,
	}
}

// Login checks the password and issues a session token. Unknown users and
// wrong passwords both yield internal.ErrInvalidCredentials.
func (s *Service) Login(ctx context.Context, dto LoginDTO) (*Session, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	cred, err := s.credentials.FindByUsername(ctx, dto.Username)
	if errors.Is(err, credential.ErrNotFound) {
		_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(dto.Password))
		s.logger.Info("login rejected", "username", dto.Username, "reason", "unknown user")
		return nil, internal.ErrInvalidCredentials
	}
	if err != nil {
		return nil, internal.NewInternalError("credential lookup failed", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(cred.PasswordHash), []byte(dto.Password)); err != nil {
		s.logger.Info("login rejected", "username", dto.Username, "reason", "password mismatch")
		return nil, internal.ErrInvalidCredentials
	}

	token, expiresAt, err := s.tokens.Issue(cred.Username)
	if err != nil {
		return nil, internal.NewInternalError("failed to issue session", err)
	}

	s.logger.Info("operator logged in", "username", cred.Username, "location_id", cred.LocationID)
	return &Session{
		Token:     token,
		ExpiresAt: expiresAt,
		Profile:   cred.Profile(),
	}, nil
}

// HashPassword creates a bcrypt hash for a credential record.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
