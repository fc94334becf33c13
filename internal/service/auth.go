package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/movietix/internal/model"
	"github.com/iliyamo/movietix/internal/utils"
)

// AuthSettings are the token and hashing parameters of AuthService.
type AuthSettings struct {
	JWTSecret  string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	BcryptCost int
}

// TokenPair is returned on register, login and refresh.
type TokenPair struct {
	Access  utils.AccessToken
	Refresh utils.RefreshToken
}

// RegisterInput is a new account request.
type RegisterInput struct {
	Name     string
	Email    string
	Password string
}

// AuthService manages accounts and session tokens.
type AuthService struct {
	users  UserStore
	tokens TokenStore
	cfg    AuthSettings
	log    *zap.Logger
}

// NewAuthService wires account management.
func NewAuthService(users UserStore, tokens TokenStore, cfg AuthSettings, log *zap.Logger) *AuthService {
	return &AuthService{users: users, tokens: tokens, cfg: cfg, log: log}
}

// Register creates a CUSTOMER account and signs it in.  A taken email yields
// model.ErrConflict.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*model.User, TokenPair, error) {
	name := strings.TrimSpace(in.Name)
	email, err := normalizeEmail(in.Email)
	if err != nil {
		return nil, TokenPair{}, err
	}
	if name == "" {
		return nil, TokenPair{}, fmt.Errorf("%w: name is required", model.ErrValidation)
	}
	if len(in.Password) < utils.MinPasswordLen {
		return nil, TokenPair{}, fmt.Errorf("%w: password must be at least %d characters", model.ErrValidation, utils.MinPasswordLen)
	}

	hash, err := utils.HashPassword(in.Password, s.cfg.BcryptCost)
	if err != nil {
		return nil, TokenPair{}, fmt.Errorf("hash password: %w", err)
	}
	u := &model.User{Name: name, Email: email, PasswordHash: hash, Role: model.RoleCustomer}
	if err := s.users.CreateUser(ctx, u); err != nil {
		return nil, TokenPair{}, err
	}

	pair, err := s.issue(ctx, u)
	if err != nil {
		return nil, TokenPair{}, err
	}
	s.log.Info("user registered", zap.Uint64("user_id", u.ID))
	return u, pair, nil
}

// Login checks credentials.  Unknown email and wrong password are
// indistinguishable to the caller.
func (s *AuthService) Login(ctx context.Context, email, password string) (*model.User, TokenPair, error) {
	email, err := normalizeEmail(email)
	if err != nil || password == "" {
		return nil, TokenPair{}, fmt.Errorf("%w: email and password are required", model.ErrValidation)
	}
	u, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return nil, TokenPair{}, fmt.Errorf("%w: invalid credentials", model.ErrUnauthorized)
		}
		return nil, TokenPair{}, err
	}
	if !utils.VerifyPassword(u.PasswordHash, password) {
		return nil, TokenPair{}, fmt.Errorf("%w: invalid credentials", model.ErrUnauthorized)
	}
	pair, err := s.issue(ctx, u)
	if err != nil {
		return nil, TokenPair{}, err
	}
	return u, pair, nil
}

// Refresh rotates a refresh token: the presented token is revoked and a new
// pair is issued with the user's current role.  Revocation is a
// compare-and-set, so concurrent refreshes of one token yield one new pair.
func (s *AuthService) Refresh(ctx context.Context, raw string) (TokenPair, error) {
	if strings.TrimSpace(raw) == "" {
		return TokenPair{}, fmt.Errorf("%w: refresh_token is required", model.ErrValidation)
	}
	hash := utils.HashRefreshRaw(raw)
	userID, err := s.tokens.ValidateRefresh(ctx, hash)
	if err != nil {
		return TokenPair{}, invalidRefresh(err)
	}
	if err := s.tokens.RevokeRefresh(ctx, hash); err != nil {
		return TokenPair{}, invalidRefresh(err)
	}
	u, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return TokenPair{}, invalidRefresh(err)
	}
	return s.issue(ctx, u)
}

func invalidRefresh(err error) error {
	if errors.Is(err, model.ErrNotFound) {
		return fmt.Errorf("%w: invalid refresh token", model.ErrUnauthorized)
	}
	return err
}

// Logout revokes the given refresh token, or every token of userID when raw
// is empty.
func (s *AuthService) Logout(ctx context.Context, userID uint64, raw string) error {
	if raw != "" {
		hash := utils.HashRefreshRaw(raw)
		owner, err := s.tokens.ValidateRefresh(ctx, hash)
		if err != nil {
			return invalidRefresh(err)
		}
		if userID != 0 && owner != userID {
			return fmt.Errorf("%w: refresh token belongs to another user", model.ErrForbidden)
		}
		return invalidRefresh(s.tokens.RevokeRefresh(ctx, hash))
	}
	if userID == 0 {
		return fmt.Errorf("%w: provide a bearer token or refresh_token", model.ErrValidation)
	}
	return s.tokens.RevokeAllRefresh(ctx, userID)
}

// Profile returns the account of userID.
func (s *AuthService) Profile(ctx context.Context, userID uint64) (*model.User, error) {
	return s.users.GetUserByID(ctx, userID)
}

// Promote grants the ADMIN role.  Tokens already issued keep their old role
// until they expire.
func (s *AuthService) Promote(ctx context.Context, userID uint64) (*model.User, error) {
	u, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if u.Role != model.RoleAdmin {
		if err := s.users.UpdateUserRole(ctx, userID, model.RoleAdmin); err != nil {
			return nil, err
		}
		u.Role = model.RoleAdmin
		s.log.Info("user promoted to admin", zap.Uint64("user_id", userID))
	}
	return u, nil
}

func (s *AuthService) issue(ctx context.Context, u *model.User) (TokenPair, error) {
	access, err := utils.NewAccessToken(s.cfg.JWTSecret, u.ID, u.Role, u.Email, s.cfg.AccessTTL)
	if err != nil {
		return TokenPair{}, fmt.Errorf("issue access token: %w", err)
	}
	refresh, err := utils.NewRefreshToken(s.cfg.RefreshTTL)
	if err != nil {
		return TokenPair{}, fmt.Errorf("issue refresh token: %w", err)
	}
	if err := s.tokens.StoreRefresh(ctx, u.ID, utils.HashRefreshRaw(refresh.Raw), refresh.Exp); err != nil {
		return TokenPair{}, fmt.Errorf("store refresh token: %w", err)
	}
	return TokenPair{Access: access, Refresh: refresh}, nil
}

func normalizeEmail(s string) (string, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return "", fmt.Errorf("%w: email is required", model.ErrValidation)
	}
	addr, err := mail.ParseAddress(s)
	if err != nil || addr.Address != s {
		return "", fmt.Errorf("%w: email is malformed", model.ErrValidation)
	}
	return s, nil
}
