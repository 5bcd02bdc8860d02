// Package service holds the application logic between the HTTP handlers
// and storage: account registration and session tokens in AuthService,
// student records in StudentService.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aanand-mishra/students-api/internal/security"
	"github.com/aanand-mishra/students-api/internal/storage"
	"github.com/aanand-mishra/students-api/internal/types"
)

// RevocationStore remembers logged-out token ids.
type RevocationStore interface {
	Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

type PasswordHasher interface {
	Hash(password string) (string, error)
	Check(password, hash string) (bool, error)
}

type AuthService struct {
	users   storage.UserStorage
	hasher  PasswordHasher
	tokens  *security.TokenManager
	revoked RevocationStore
	logger  *slog.Logger
}

// NewAuthService wires the auth service. revoked may be nil, in which case
// Logout is unsupported and Verify skips the revocation lookup.
func NewAuthService(users storage.UserStorage, hasher PasswordHasher, tokens *security.TokenManager,
	revoked RevocationStore, logger *slog.Logger) *AuthService {
	return &AuthService{
		users:   users,
		hasher:  hasher,
		tokens:  tokens,
		revoked: revoked,
		logger:  logger,
	}
}

// SupportsLogout reports whether a revocation store is configured.
func (s *AuthService) SupportsLogout() bool {
	return s.revoked != nil
}

func (s *AuthService) Register(ctx context.Context, in types.RegisterInput) (types.AuthResult, error) {
	_, err := s.users.GetUserByEmail(ctx, in.Email)
	switch {
	case err == nil:
		return types.AuthResult{}, ErrDuplicateEmail
	case !errors.Is(err, storage.ErrNotFound):
		return types.AuthResult{}, fmt.Errorf("lookup user: %w", err)
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return types.AuthResult{}, err
	}

	user, err := s.users.CreateUser(ctx, types.NewUser{Email: in.Email, Name: in.Name, PasswordHash: hash})
	if err != nil {
		if errors.Is(err, storage.ErrDuplicate) {
			return types.AuthResult{}, ErrDuplicateEmail
		}
		return types.AuthResult{}, fmt.Errorf("create user: %w", err)
	}

	s.logger.InfoContext(ctx, "user registered", slog.String("user_id", user.ID))
	return s.issue(user)
}

// Login returns ErrInvalidCredentials for an unknown email and for a wrong
// password alike.
func (s *AuthService) Login(ctx context.Context, in types.LoginInput) (types.AuthResult, error) {
	user, err := s.users.GetUserByEmail(ctx, in.Email)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return types.AuthResult{}, ErrInvalidCredentials
		}
		return types.AuthResult{}, fmt.Errorf("lookup user: %w", err)
	}

	ok, err := s.hasher.Check(in.Password, user.PasswordHash)
	if err != nil {
		return types.AuthResult{}, err
	}
	if !ok {
		return types.AuthResult{}, ErrInvalidCredentials
	}

	return s.issue(user)
}

// Verify checks signature, algorithm and expiry, then the revocation list.
func (s *AuthService) Verify(ctx context.Context, token string) (types.Identity, error) {
	claims, err := s.tokens.Parse(token)
	if err != nil {
		s.logger.DebugContext(ctx, "token rejected", slog.String("reason", err.Error()))
		return types.Identity{}, ErrInvalidToken
	}
	id := claims.Identity()

	if s.revoked != nil && id.TokenID != "" {
		revoked, err := s.revoked.IsRevoked(ctx, id.TokenID)
		if err != nil {
			return types.Identity{}, fmt.Errorf("check revocation: %w", err)
		}
		if revoked {
			return types.Identity{}, ErrInvalidToken
		}
	}
	return id, nil
}

// Logout revokes the token the identity was built from.
func (s *AuthService) Logout(ctx context.Context, id types.Identity) error {
	if s.revoked == nil {
		return errors.New("logout: no revocation store configured")
	}
	if id.TokenID == "" {
		return ErrInvalidToken
	}
	if err := s.revoked.Revoke(ctx, id.TokenID, id.ExpiresAt); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "user logged out", slog.String("user_id", id.UserID))
	return nil
}

func (s *AuthService) issue(user types.User) (types.AuthResult, error) {
	pub := user.Public()
	token, _, err := s.tokens.Issue(pub)
	if err != nil {
		return types.AuthResult{}, err
	}
	return types.AuthResult{Token: token, User: pub}, nil
}
