package service

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"testhub/backend/internal/apperr"
	"testhub/backend/internal/audit"
	"testhub/backend/internal/security"
	"testhub/backend/internal/session"
	userdomain "testhub/backend/internal/user/domain"
)

// Sentinel errors for the auth service; the handler maps them to HTTP statuses.
var (
	ErrUserExists          = errors.New("name or email already registered")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrUserDisabled        = errors.New("user account is disabled")
	ErrInvalidRefreshToken = errors.New("invalid or expired refresh token")
	ErrSessionExpired      = errors.New("session expired")
	ErrRefreshTokenReuse   = errors.New("refresh token reuse detected; all sessions revoked")
	ErrAlreadyLoggedOut    = errors.New("session already logged out")
	ErrUserNotFound        = errors.New("user not found")
)

// AuthResult holds the outcome of Register (user id only), Login, or Refresh.
type AuthResult struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
	UserID       string
}

// UserRepo is the minimal user repository needed by the auth service.
type UserRepo interface {
	GetByID(ctx context.Context, id string) (*userdomain.User, error)
	GetByName(ctx context.Context, name string) (*userdomain.User, error)
	GetByEmail(ctx context.Context, email string) (*userdomain.User, error)
	CreateWithRole(ctx context.Context, u *userdomain.User, roleID, projectID int64) error
	SetEnabled(ctx context.Context, id string, enabled bool) error
	SoftDelete(ctx context.Context, id string) error
}

// AuthService implements password register, login, refresh, and logout on top
// of the Redis session store. Session existence is the only authority for
// token validity: destroying the session kills the tokens no matter how much
// lifetime they have left.
type AuthService struct {
	userRepo  UserRepo
	sessions  session.Store
	hasher    *security.Hasher
	tokens    *security.TokenProvider
	auditor   audit.EventLogger
	decoyHash string

	// DefaultRoleID/DefaultProjectID are linked to every new registration.
	// Zero means registrations start with no role.
	defaultRoleID    int64
	defaultProjectID int64
}

// NewAuthService returns an AuthService with the given dependencies.
// auditor may be nil; then no audit events are recorded.
func NewAuthService(
	userRepo UserRepo,
	sessions session.Store,
	hasher *security.Hasher,
	tokens *security.TokenProvider,
	auditor audit.EventLogger,
	defaultRoleID, defaultProjectID int64,
) (*AuthService, error) {
	// Verifying missing-user logins against this hash keeps the cost of a
	// lookup failure indistinguishable from a wrong password.
	decoy, err := hasher.Hash(context.Background(), uuid.New().String())
	if err != nil {
		return nil, err
	}
	return &AuthService{
		userRepo:         userRepo,
		sessions:         sessions,
		hasher:           hasher,
		tokens:           tokens,
		auditor:          auditor,
		decoyHash:        decoy,
		defaultRoleID:    defaultRoleID,
		defaultProjectID: defaultProjectID,
	}, nil
}

// Register creates a user with the given name, email, and password, linking
// the default role in the same transaction. Returns AuthResult with UserID
// only; the caller must Login to get tokens.
func (s *AuthService) Register(ctx context.Context, name, email, password string) (*AuthResult, error) {
	name = strings.TrimSpace(name)
	email = strings.TrimSpace(strings.ToLower(email))
	if name == "" {
		return nil, apperr.BadRequest("name is required")
	}
	if err := validateEmail(email); err != nil {
		return nil, apperr.BadRequest(err.Error())
	}
	if err := validatePassword(password); err != nil {
		return nil, apperr.BadRequest(err.Error())
	}
	byName, err := s.userRepo.GetByName(ctx, name)
	if err != nil {
		return nil, err
	}
	byEmail, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if byName != nil || byEmail != nil {
		return nil, ErrUserExists
	}
	hashed, err := s.hasher.Hash(ctx, password)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	user := &userdomain.User{
		ID:        uuid.New().String(),
		Name:      name,
		Email:     email,
		Password:  hashed,
		Enabled:   true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := user.Validate(); err != nil {
		return nil, err
	}
	if err := s.userRepo.CreateWithRole(ctx, user, s.defaultRoleID, s.defaultProjectID); err != nil {
		return nil, err
	}
	return &AuthResult{UserID: user.ID}, nil
}

// Login authenticates with email/password, creates a session, and returns
// tokens. A missing user and a wrong password both answer
// ErrInvalidCredentials; a disabled account with the correct password answers
// ErrUserDisabled so the client can say so.
func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || password == "" {
		return nil, ErrInvalidCredentials
	}
	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if user == nil {
		// Burn the same hashing cost as a real verification.
		_ = s.hasher.Compare(ctx, s.decoyHash, password)
		s.audit(ctx, 0, "", audit.ActionLoginFailure, "unknown user")
		return nil, ErrInvalidCredentials
	}
	if err := s.hasher.Compare(ctx, user.Password, password); err != nil {
		if errors.Is(err, security.ErrPasswordMismatch) {
			s.audit(ctx, 0, user.ID, audit.ActionLoginFailure, "wrong password")
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !user.Active() {
		s.audit(ctx, 0, user.ID, audit.ActionLoginFailure, "account disabled")
		return nil, ErrUserDisabled
	}
	sessionID, err := s.sessions.Create(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	pair, err := s.tokens.IssuePair(user.ID, sessionID)
	if err != nil {
		return nil, err
	}
	if err := s.sessions.BindRefreshToken(ctx, user.ID, sessionID, security.HashRefreshToken(pair.RefreshToken)); err != nil {
		return nil, err
	}
	s.audit(ctx, 0, user.ID, audit.ActionLoginSuccess, "")
	return &AuthResult{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		ExpiresAt:    pair.AccessExpiresAt,
		UserID:       user.ID,
	}, nil
}

// Refresh validates the refresh token against the live session, rotates the
// bound token hash, and re-arms the session TTL. Presenting a stale refresh
// token for a live session is treated as reuse and revokes every session the
// user has.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*AuthResult, error) {
	if refreshToken == "" {
		return nil, ErrInvalidRefreshToken
	}
	claims, err := s.tokens.ValidateRefresh(refreshToken)
	if err != nil {
		return nil, ErrInvalidRefreshToken
	}
	live, err := s.sessions.Exists(ctx, claims.UserID, claims.SessionID)
	if err != nil {
		return nil, err
	}
	if !live {
		return nil, ErrSessionExpired
	}
	storedHash, err := s.sessions.RefreshTokenHash(ctx, claims.UserID, claims.SessionID)
	if err != nil {
		return nil, err
	}
	if storedHash != "" && !security.RefreshTokenHashEqual(refreshToken, storedHash) {
		_, _ = s.sessions.DestroyAllForUser(ctx, claims.UserID)
		return nil, ErrRefreshTokenReuse
	}
	pair, err := s.tokens.IssuePair(claims.UserID, claims.SessionID)
	if err != nil {
		return nil, err
	}
	if err := s.sessions.BindRefreshToken(ctx, claims.UserID, claims.SessionID, security.HashRefreshToken(pair.RefreshToken)); err != nil {
		return nil, err
	}
	if err := s.sessions.Touch(ctx, claims.UserID, claims.SessionID); err != nil {
		return nil, err
	}
	s.audit(ctx, 0, claims.UserID, audit.ActionRefresh, "")
	return &AuthResult{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		ExpiresAt:    pair.AccessExpiresAt,
		UserID:       claims.UserID,
	}, nil
}

// Logout destroys the session. Logging out a session that is already gone
// answers ErrAlreadyLoggedOut; callers render that as a benign response.
func (s *AuthService) Logout(ctx context.Context, userID, sessionID string) error {
	removed, err := s.sessions.Destroy(ctx, userID, sessionID)
	if err != nil {
		return err
	}
	if !removed {
		return ErrAlreadyLoggedOut
	}
	s.audit(ctx, 0, userID, audit.ActionLogout, "")
	return nil
}

// DisableUser flips the account off and destroys every live session, so the
// user's outstanding tokens die with them.
func (s *AuthService) DisableUser(ctx context.Context, userID string) error {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if user == nil {
		return ErrUserNotFound
	}
	if err := s.userRepo.SetEnabled(ctx, userID, false); err != nil {
		return err
	}
	if _, err := s.sessions.DestroyAllForUser(ctx, userID); err != nil {
		return err
	}
	s.audit(ctx, 0, userID, audit.ActionUserDisabled, "")
	return nil
}

// EnableUser flips the account back on. Existing sessions are gone; the user
// must log in again.
func (s *AuthService) EnableUser(ctx context.Context, userID string) error {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if user == nil {
		return ErrUserNotFound
	}
	return s.userRepo.SetEnabled(ctx, userID, true)
}

// DeleteUser soft-deletes the account and destroys every live session.
func (s *AuthService) DeleteUser(ctx context.Context, userID string) error {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if user == nil {
		return ErrUserNotFound
	}
	if err := s.userRepo.SoftDelete(ctx, userID); err != nil {
		return err
	}
	if _, err := s.sessions.DestroyAllForUser(ctx, userID); err != nil {
		return err
	}
	s.audit(ctx, 0, userID, audit.ActionUserDeleted, "")
	return nil
}

func (s *AuthService) audit(ctx context.Context, projectID int64, userID, action, metadata string) {
	if s.auditor == nil {
		return
	}
	s.auditor.LogEvent(ctx, projectID, userID, action, "auth", metadata)
}

func validateEmail(email string) error {
	if email == "" {
		return errors.New("email is required")
	}
	const simpleEmail = `^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`
	ok, _ := regexp.MatchString(simpleEmail, email)
	if !ok {
		return errors.New("invalid email format")
	}
	return nil
}

func validatePassword(password string) error {
	if len(password) < 8 {
		return errors.New("password must be at least 8 characters")
	}
	var hasLetter, hasNumber bool
	for _, r := range password {
		switch {
		case r >= 'A' && r <= 'Z' || r >= 'a' && r <= 'z':
			hasLetter = true
		case r >= '0' && r <= '9':
			hasNumber = true
		}
	}
	if !hasLetter || !hasNumber {
		return errors.New("password must contain letters and numbers")
	}
	return nil
}
