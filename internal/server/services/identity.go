// Package services contains server-side business logic. IdentityService
// signs users in, mints and refreshes JWT/refresh-token pairs, revokes
// sessions and manages accounts; CatalogService serves the equipment catalog.
package services

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/dmitrijs2005/equiplookup/internal/common"
	"github.com/dmitrijs2005/equiplookup/internal/dbx"
	"github.com/dmitrijs2005/equiplookup/internal/logging"
	"github.com/dmitrijs2005/equiplookup/internal/server/auth"
	"github.com/dmitrijs2005/equiplookup/internal/server/config"
	"github.com/dmitrijs2005/equiplookup/internal/server/models"
	"github.com/dmitrijs2005/equiplookup/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/equiplookup/internal/server/sessions"
	"github.com/google/uuid"
)

const minPasswordLength = 8

// Session is what a successful sign-in or refresh hands back to the client.
type Session struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
	User         *models.User
}

// NewUser is the input of CreateUser.
type NewUser struct {
	Email    string
	Password string
	Username string
	Role     string
}

type IdentityService struct {
	repomanager                  repomanager.RepositoryManager
	revocations                  sessions.RevocationStore
	broker                       sessions.Broker
	logger                       logging.Logger
	jwtSecret                    []byte
	accessTokenValidityDuration  time.Duration
	refreshTokenValidityDuration time.Duration
	adminEmail                   string
}

func NewIdentityService(m repomanager.RepositoryManager, revocations sessions.RevocationStore, broker sessions.Broker,
	cfg *config.Config, logger logging.Logger) *IdentityService {
	return &IdentityService{
		repomanager:                  m,
		revocations:                  revocations,
		broker:                       broker,
		logger:                       logger.With("module", "identity"),
		jwtSecret:                    []byte(cfg.SecretKey),
		accessTokenValidityDuration:  cfg.AccessTokenValidityDuration,
		refreshTokenValidityDuration: cfg.RefreshTokenValidityDuration,
		adminEmail:                   cfg.AdminEmail,
	}
}

// SignIn verifies credentials and opens a new session. Unknown emails and
// wrong passwords both yield common.ErrorUnauthorized.
func (s *IdentityService) SignIn(ctx context.Context, email, password string) (*Session, error) {
	repo := s.repomanager.Users(s.repomanager.DB())
	user, err := repo.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorUnauthorized
		}
		return nil, common.ErrorInternal
	}
	if err := auth.CheckPassword(user.PasswordHash, password); err != nil {
		if errors.Is(err, common.ErrorUnauthorized) {
			return nil, common.ErrorUnauthorized
		}
		return nil, common.ErrorInternal
	}
	return s.openSession(ctx, user, uuid.NewString(), s.repomanager.DB())
}

// Refresh rotates refreshToken transactionally and returns a fresh session
// with the same session id.
func (s *IdentityService) Refresh(ctx context.Context, refreshToken string) (*Session, error) {
	repo := s.repomanager.RefreshTokens(s.repomanager.DB())

	token, err := repo.Find(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorUnauthorized
		}
		return nil, fmt.Errorf("error searching refresh token: %w", err)
	}
	if token.Expires.Before(time.Now()) {
		return nil, common.ErrRefreshTokenExpired
	}
	if revoked, err := s.revocations.IsRevoked(ctx, token.SessionID); err != nil {
		return nil, common.ErrorInternal
	} else if revoked {
		return nil, common.ErrSessionRevoked
	}

	user, err := s.repomanager.Users(s.repomanager.DB()).GetByID(ctx, token.UserID)
	if err != nil {
		return nil, common.ErrorUnauthorized
	}

	var session *Session
	if err := s.repomanager.WithTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.repomanager.RefreshTokens(tx).Delete(ctx, refreshToken); err != nil {
			return fmt.Errorf("error deleting refresh token: %w", err)
		}
		var genErr error
		session, genErr = s.openSession(ctx, user, token.SessionID, tx)
		return genErr
	}); err != nil {
		return nil, err
	}
	return session, nil
}

// Authenticate verifies an access token and rejects tokens of revoked
// sessions with common.ErrSessionRevoked.
func (s *IdentityService) Authenticate(ctx context.Context, accessToken string) (*auth.Claims, error) {
	claims, err := auth.ParseToken(accessToken, s.jwtSecret)
	if err != nil {
		return nil, err
	}
	revoked, err := s.revocations.IsRevoked(ctx, claims.SessionID)
	if err != nil {
		s.logger.Error(ctx, "revocation lookup failed", "error", err)
		return nil, common.ErrorInternal
	}
	if revoked {
		return nil, common.ErrSessionRevoked
	}
	return claims, nil
}

// SignOut ends every session of the caller's user: refresh tokens are
// deleted, the session ids are revoked for as long as an access token can
// live, and watchers are told with a SIGNED_OUT event.
func (s *IdentityService) SignOut(ctx context.Context, claims *auth.Claims) error {
	sids, err := s.repomanager.RefreshTokens(s.repomanager.DB()).DeleteByUser(ctx, claims.UserID)
	if err != nil {
		return fmt.Errorf("error deleting refresh tokens: %w", err)
	}
	if claims.SessionID != "" && !contains(sids, claims.SessionID) {
		sids = append(sids, claims.SessionID)
	}

	for _, sid := range sids {
		if err := s.revocations.Revoke(ctx, sid, s.accessTokenValidityDuration); err != nil {
			return fmt.Errorf("error revoking session: %w", err)
		}
	}

	if err := s.broker.Publish(ctx, sessions.Event{Type: sessions.EventSignedOut, UserID: claims.UserID, SessionID: claims.SessionID}); err != nil {
		// revocation already happened; watchers will notice on their next call
		s.logger.Warn(ctx, "publish sign-out event failed", "error", err)
	}

	s.logger.Info(ctx, "signed out", "user_id", claims.UserID, "sessions", len(sids))
	return nil
}

// GetUser returns the account with the given id.
func (s *IdentityService) GetUser(ctx context.Context, userID string) (*models.User, error) {
	user, err := s.repomanager.Users(s.repomanager.DB()).GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorNotFound
		}
		return nil, common.ErrorInternal
	}
	return user, nil
}

// CreateUser registers an account on behalf of actorID, who must be an admin.
func (s *IdentityService) CreateUser(ctx context.Context, actorID string, in NewUser) (*models.User, error) {
	actor, err := s.GetUser(ctx, actorID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorUnauthorized
		}
		return nil, err
	}
	if !actor.IsAdmin() {
		return nil, common.ErrForbidden
	}
	return s.createUser(ctx, in)
}

// EnsureAdmin creates the bootstrap admin account when no admin exists and
// returns its generated password. created is false when nothing was done.
func (s *IdentityService) EnsureAdmin(ctx context.Context) (password string, created bool, err error) {
	n, err := s.repomanager.Users(s.repomanager.DB()).CountByRole(ctx, models.RoleAdmin)
	if err != nil {
		return "", false, err
	}
	if n > 0 {
		return "", false, nil
	}

	password, err = common.MakeRandHexString(12)
	if err != nil {
		return "", false, err
	}
	if _, err := s.createUser(ctx, NewUser{Email: s.adminEmail, Password: password, Username: "admin", Role: models.RoleAdmin}); err != nil {
		return "", false, err
	}
	return password, true, nil
}

// Watch subscribes to auth events of userID.
func (s *IdentityService) Watch(ctx context.Context, userID string) (<-chan sessions.Event, func(), error) {
	return s.broker.Subscribe(ctx, userID)
}

func (s *IdentityService) createUser(ctx context.Context, in NewUser) (*models.User, error) {
	email := normalizeEmail(in.Email)
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, &common.ValidationError{Message: "invalid email"}
	}
	if len(in.Password) < minPasswordLength {
		return nil, &common.ValidationError{Message: fmt.Sprintf("password must be at least %d characters", minPasswordLength)}
	}
	role := in.Role
	if role == "" {
		role = models.RoleUser
	}
	if role != models.RoleUser && role != models.RoleAdmin {
		return nil, &common.ValidationError{Message: fmt.Sprintf("unknown role %q", in.Role)}
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, common.ErrorInternal
	}

	user := &models.User{Email: email, Username: strings.TrimSpace(in.Username), PasswordHash: hash, Role: role}
	u, err := s.repomanager.Users(s.repomanager.DB()).Create(ctx, user)
	if err != nil {
		if errors.Is(err, common.ErrAlreadyExists) {
			return nil, common.ErrAlreadyExists
		}
		return nil, fmt.Errorf("error creating user: %w", err)
	}
	return u, nil
}

func (s *IdentityService) openSession(ctx context.Context, user *models.User, sessionID string, tx dbx.DBTX) (*Session, error) {
	expires := time.Now().Add(s.accessTokenValidityDuration)
	access, err := auth.GenerateToken(user.ID, user.Email, sessionID, s.jwtSecret, s.accessTokenValidityDuration)
	if err != nil {
		return nil, common.ErrorInternal
	}
	refresh, err := common.MakeRandHexString(32)
	if err != nil {
		return nil, common.ErrorInternal
	}
	if err := s.repomanager.RefreshTokens(tx).Create(ctx, user.ID, sessionID, refresh, s.refreshTokenValidityDuration); err != nil {
		return nil, common.ErrorInternal
	}
	return &Session{AccessToken: access, RefreshToken: refresh, ExpiresAt: expires, User: user}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
