// Package auth composes the token service, the security policy engine and
// the credential store into the authentication flows: register, login,
// refresh, logout, password reset/change and email verification.  Every
// flow that mutates security-relevant state emits a structured security or
// audit entry; that is part of the contract, not optional instrumentation.
package auth

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/inventory-management/internal/config"
	"github.com/iliyamo/inventory-management/internal/model"
	"github.com/iliyamo/inventory-management/internal/repository"
	"github.com/iliyamo/inventory-management/internal/security"
	"github.com/iliyamo/inventory-management/internal/token"
	"github.com/iliyamo/inventory-management/internal/utils"
)

// ForgotPasswordMessage is returned for every forgot-password request,
// whether or not the account exists.
const ForgotPasswordMessage = "If an account with that email exists, a password reset link has been sent."

// UserStore is the slice of the user repository the flows need.
type UserStore interface {
	Create(ctx context.Context, email, passwordHash, name, phone, role string) (uint64, error)
	GetByEmail(ctx context.Context, email string) (model.User, error)
	GetByID(ctx context.Context, id uint64) (model.User, error)
	SetVerified(ctx context.Context, id uint64) error
	UpdatePassword(ctx context.Context, id uint64, passwordHash string) error
	UpdateLastLogin(ctx context.Context, id uint64, at time.Time) error
	ResetPassword(ctx context.Context, id uint64, passwordHash, resetTokenID string) error
}

// TokenStore is the slice of the token repository the flows need.
type TokenStore interface {
	Create(ctx context.Context, t model.Token) error
	GetByID(ctx context.Context, id string) (model.Token, error)
	Invalidate(ctx context.Context, id string) error
	InvalidateWithPaired(ctx context.Context, id string) error
	InvalidateAllForUser(ctx context.Context, userID uint64) error
}

// PolicyEngine is implemented by security.Policy.
type PolicyEngine interface {
	RecordFailedAttempt(ctx context.Context, userID uint64, ip string) (bool, error)
	RecordSuccess(ctx context.Context, userID uint64, ip string) error
	IsLocked(ctx context.Context, u model.User) (bool, error)
	ManageSessions(ctx context.Context, s model.Session) error
	RotateRefreshToken(ctx context.Context, old, newAccess, newRefresh model.Token) error
}

// SessionEnder drops sessions on logout-all.
type SessionEnder interface {
	DeleteByUser(ctx context.Context, userID uint64) error
}

// Client carries request metadata into the flows for token records and
// security logging.
type Client struct {
	IP        string
	UserAgent string
}

// Service is the auth orchestrator.
type Service struct {
	cfg      config.Config
	users    UserStore
	tokens   TokenStore
	sessions SessionEnder
	policy   PolicyEngine
	signer   *token.Service
	audit    *security.Logger
	mailer   Mailer
	now      func() time.Time
}

func NewService(cfg config.Config, users UserStore, tokens TokenStore, sessions SessionEnder,
	policy PolicyEngine, signer *token.Service, audit *security.Logger, mailer Mailer) *Service {
	return &Service{
		cfg:      cfg,
		users:    users,
		tokens:   tokens,
		sessions: sessions,
		policy:   policy,
		signer:   signer,
		audit:    audit,
		mailer:   mailer,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// RegisterInput is the register flow's request payload.
type RegisterInput struct {
	Email    string
	Password string
	Name     string
	Phone    string
	Role     string
}

// TokenPair is the issued credential set.  Refresh fields are zero when
// the login did not request a long-lived session.
type TokenPair struct {
	AccessToken  string
	AccessExp    time.Time
	RefreshToken string
	RefreshExp   time.Time
}

// Register creates an unverified account and dispatches the verification
// mail.  The returned user has the password hash stripped.
func (s *Service) Register(ctx context.Context, in RegisterInput, client Client) (model.User, error) {
	role := in.Role
	if role == "" {
		role = model.RoleStaff
	}
	if !model.ValidRole(role) {
		role = model.RoleStaff
	}
	hash, err := utils.HashPassword(in.Password, s.cfg.BcryptCost)
	if err != nil {
		return model.User{}, err
	}
	uid, err := s.users.Create(ctx, in.Email, hash, in.Name, in.Phone, role)
	if err != nil {
		return model.User{}, err
	}
	u, err := s.users.GetByID(ctx, uid)
	if err != nil {
		return model.User{}, err
	}

	verify, _, err := s.issue(ctx, u, model.TokenVerifyEmail, "", client)
	if err != nil {
		return model.User{}, err
	}
	if err := s.mailer.SendVerification(ctx, u.Email, verify); err != nil {
		// The account exists either way; the user can request a resend.
		log.Printf("auth: verification mail to %s failed: %v", u.Email, err)
	}

	s.audit.LogEvent(ctx, security.Event{
		UserID: uid, Name: model.EventRegistered, Severity: model.SeverityInfo,
		Details: map[string]string{"role": role}, IPAddress: client.IP, UserAgent: client.UserAgent,
	})
	s.audit.LogAudit(ctx, uid, "create", "user", nil, client.IP, client.UserAgent)

	u.PasswordHash = ""
	return u, nil
}

// Login authenticates credentials and issues tokens.  Unknown email, wrong
// password and inactive accounts all fail with ErrInvalidCredentials; a
// lockout fails with security.ErrAccountLocked.  A refresh token is issued
// only when rememberMe is set.
func (s *Service) Login(ctx context.Context, email, password string, rememberMe bool, client Client) (model.User, TokenPair, error) {
	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.logFailure(ctx, 0, "unknown email", client)
			return model.User{}, TokenPair{}, ErrInvalidCredentials
		}
		return model.User{}, TokenPair{}, err
	}
	if !u.IsActive {
		s.logFailure(ctx, u.ID, "inactive account", client)
		return model.User{}, TokenPair{}, ErrInvalidCredentials
	}

	locked, err := s.policy.IsLocked(ctx, u)
	if err != nil {
		return model.User{}, TokenPair{}, err
	}
	if locked {
		s.audit.LogEvent(ctx, security.Event{
			UserID: u.ID, Name: model.EventLoginFailed, Severity: model.SeverityWarning,
			Details: map[string]string{"reason": "account locked"}, IPAddress: client.IP, UserAgent: client.UserAgent,
		})
		return model.User{}, TokenPair{}, security.ErrAccountLocked
	}

	if !utils.VerifyPassword(u.PasswordHash, password) {
		lockedNow, perr := s.policy.RecordFailedAttempt(ctx, u.ID, client.IP)
		if perr != nil {
			return model.User{}, TokenPair{}, perr
		}
		s.logFailure(ctx, u.ID, "wrong password", client)
		if lockedNow {
			s.audit.LogEvent(ctx, security.Event{
				UserID: u.ID, Name: model.EventAccountLocked, Severity: model.SeverityCritical,
				Details: map[string]interface{}{"lockout_minutes": int(s.cfg.LockoutDuration.Minutes())},
				IPAddress: client.IP, UserAgent: client.UserAgent,
			})
			return model.User{}, TokenPair{}, security.ErrAccountLocked
		}
		return model.User{}, TokenPair{}, ErrInvalidCredentials
	}

	if !u.IsVerified {
		return model.User{}, TokenPair{}, ErrAccountUnverified
	}

	if err := s.policy.RecordSuccess(ctx, u.ID, client.IP); err != nil {
		return model.User{}, TokenPair{}, err
	}

	pair, err := s.issuePair(ctx, u, rememberMe, client)
	if err != nil {
		return model.User{}, TokenPair{}, err
	}

	if err := s.policy.ManageSessions(ctx, model.Session{
		ID: uuid.NewString(), UserID: u.ID, IPAddress: client.IP, UserAgent: client.UserAgent,
	}); err != nil {
		return model.User{}, TokenPair{}, err
	}

	now := s.now()
	if err := s.users.UpdateLastLogin(ctx, u.ID, now); err != nil {
		return model.User{}, TokenPair{}, err
	}
	u.LastLogin = &now

	s.audit.LogEvent(ctx, security.Event{
		UserID: u.ID, Name: model.EventLoginSuccess, Severity: model.SeverityInfo,
		IPAddress: client.IP, UserAgent: client.UserAgent,
	})
	s.audit.LogAudit(ctx, u.ID, "login", "session", map[string]bool{"remember_me": rememberMe}, client.IP, client.UserAgent)

	u.PasswordHash = ""
	return u, pair, nil
}

// Refresh rotates a refresh token into a new access/refresh pair.  The old
// pair and the new pair are swapped in one transaction; presenting an
// invalidated refresh token is treated as reuse and logged.
func (s *Service) Refresh(ctx context.Context, rawRefresh string, client Client) (model.User, TokenPair, error) {
	claims, err := s.signer.Verify(rawRefresh, model.TokenRefresh)
	if err != nil {
		if errors.Is(err, token.ErrTokenExpired) && claims.TokenID != "" {
			_ = s.tokens.Invalidate(ctx, claims.TokenID)
		}
		return model.User{}, TokenPair{}, err
	}

	rec, err := s.tokens.GetByID(ctx, claims.TokenID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.User{}, TokenPair{}, token.ErrTokenInvalid
		}
		return model.User{}, TokenPair{}, err
	}
	if rec.Type != model.TokenRefresh {
		return model.User{}, TokenPair{}, token.ErrTokenInvalid
	}
	if rec.Invalidated {
		s.audit.LogEvent(ctx, security.Event{
			UserID: rec.UserID, Name: model.EventTokenReuse, Severity: model.SeverityWarning,
			Details: map[string]string{"token_id": rec.ID}, IPAddress: client.IP, UserAgent: client.UserAgent,
		})
		return model.User{}, TokenPair{}, token.ErrTokenInvalid
	}
	if s.now().After(rec.ExpiresAt) {
		_ = s.tokens.Invalidate(ctx, rec.ID)
		return model.User{}, TokenPair{}, token.ErrTokenExpired
	}

	u, err := s.users.GetByID(ctx, rec.UserID)
	if err != nil {
		return model.User{}, TokenPair{}, token.ErrTokenInvalid
	}
	if !u.IsActive {
		return model.User{}, TokenPair{}, ErrInvalidCredentials
	}

	newAccess, accessSigned, accessExp, err := s.buildToken(u, model.TokenAccess, "", client)
	if err != nil {
		return model.User{}, TokenPair{}, err
	}
	newRefresh, refreshSigned, refreshExp, err := s.buildToken(u, model.TokenRefresh, newAccess.ID, client)
	if err != nil {
		return model.User{}, TokenPair{}, err
	}
	if err := s.policy.RotateRefreshToken(ctx, rec, newAccess, newRefresh); err != nil {
		return model.User{}, TokenPair{}, err
	}

	s.audit.LogEvent(ctx, security.Event{
		UserID: u.ID, Name: model.EventTokenRefreshed, Severity: model.SeverityInfo,
		IPAddress: client.IP, UserAgent: client.UserAgent,
	})
	s.audit.LogAudit(ctx, u.ID, "rotate", "token", map[string]string{"old": rec.ID, "new": newRefresh.ID}, client.IP, client.UserAgent)

	u.PasswordHash = ""
	return u, TokenPair{
		AccessToken: accessSigned, AccessExp: accessExp,
		RefreshToken: refreshSigned, RefreshExp: refreshExp,
	}, nil
}

// Logout invalidates the presented access token and its paired refresh
// token, or with allDevices every live token and session of the user.
func (s *Service) Logout(ctx context.Context, claims token.Claims, allDevices bool, client Client) error {
	if claims.TokenID == "" {
		return ErrNoTokenContext
	}
	if allDevices {
		if err := s.tokens.InvalidateAllForUser(ctx, claims.UserID); err != nil {
			return err
		}
		if err := s.sessions.DeleteByUser(ctx, claims.UserID); err != nil {
			return err
		}
	} else if err := s.tokens.InvalidateWithPaired(ctx, claims.TokenID); err != nil {
		return err
	}
	s.audit.LogEvent(ctx, security.Event{
		UserID: claims.UserID, Name: model.EventLogout, Severity: model.SeverityInfo,
		Details: map[string]bool{"all_devices": allDevices}, IPAddress: client.IP, UserAgent: client.UserAgent,
	})
	return nil
}

// ForgotPassword issues a reset token when the account exists and is
// active.  The returned message is identical in every branch so responses
// never reveal account existence.
func (s *Service) ForgotPassword(ctx context.Context, email string, client Client) (string, error) {
	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.audit.LogEvent(ctx, security.Event{
				Name: model.EventPasswordResetReq, Severity: model.SeverityInfo,
				Details: map[string]string{"outcome": "unknown email"}, IPAddress: client.IP, UserAgent: client.UserAgent,
			})
			return ForgotPasswordMessage, nil
		}
		return "", err
	}
	if !u.IsActive {
		return ForgotPasswordMessage, nil
	}

	reset, _, err := s.issue(ctx, u, model.TokenResetPassword, "", client)
	if err != nil {
		return "", err
	}
	if err := s.mailer.SendPasswordReset(ctx, u.Email, reset); err != nil {
		log.Printf("auth: reset mail to %s failed: %v", u.Email, err)
	}
	s.audit.LogEvent(ctx, security.Event{
		UserID: u.ID, Name: model.EventPasswordResetReq, Severity: model.SeverityInfo,
		IPAddress: client.IP, UserAgent: client.UserAgent,
	})
	return ForgotPasswordMessage, nil
}

// ResetPassword validates the reset token and applies the new password.
// The reset token and every live ACCESS/REFRESH token of the user are
// invalidated in the same transaction: a reset must end all sessions.
func (s *Service) ResetPassword(ctx context.Context, rawToken, newPassword, confirm string, client Client) error {
	if newPassword != confirm {
		return ErrPasswordMismatch
	}
	claims, err := s.signer.Verify(rawToken, model.TokenResetPassword)
	if err != nil {
		if errors.Is(err, token.ErrTokenExpired) && claims.TokenID != "" {
			_ = s.tokens.Invalidate(ctx, claims.TokenID)
		}
		return err
	}
	rec, err := s.tokens.GetByID(ctx, claims.TokenID)
	if err != nil || rec.Type != model.TokenResetPassword || !rec.Live(s.now()) {
		return token.ErrTokenInvalid
	}

	hash, err := utils.HashPassword(newPassword, s.cfg.BcryptCost)
	if err != nil {
		return err
	}
	if err := s.users.ResetPassword(ctx, rec.UserID, hash, rec.ID); err != nil {
		return err
	}
	if err := s.sessions.DeleteByUser(ctx, rec.UserID); err != nil {
		return err
	}
	s.audit.LogEvent(ctx, security.Event{
		UserID: rec.UserID, Name: model.EventPasswordReset, Severity: model.SeverityInfo,
		IPAddress: client.IP, UserAgent: client.UserAgent,
	})
	s.audit.LogAudit(ctx, rec.UserID, "invalidate", "token", map[string]string{"reason": "password reset"}, client.IP, client.UserAgent)
	return nil
}

// ChangePassword is the authenticated self-service change.  It requires
// the current password, rejects reuse, and leaves other sessions alone.
func (s *Service) ChangePassword(ctx context.Context, userID uint64, current, newPassword, confirm string, client Client) error {
	if newPassword != confirm {
		return ErrPasswordMismatch
	}
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if !utils.VerifyPassword(u.PasswordHash, current) {
		return ErrInvalidCredentials
	}
	if newPassword == current {
		return ErrSamePassword
	}
	hash, err := utils.HashPassword(newPassword, s.cfg.BcryptCost)
	if err != nil {
		return err
	}
	if err := s.users.UpdatePassword(ctx, userID, hash); err != nil {
		return err
	}
	s.audit.LogEvent(ctx, security.Event{
		UserID: userID, Name: model.EventPasswordChanged, Severity: model.SeverityInfo,
		IPAddress: client.IP, UserAgent: client.UserAgent,
	})
	return nil
}

// VerifyEmail validates the verification token, marks the user verified
// and burns the token.
func (s *Service) VerifyEmail(ctx context.Context, rawToken string, client Client) error {
	claims, err := s.signer.Verify(rawToken, model.TokenVerifyEmail)
	if err != nil {
		return err
	}
	rec, err := s.tokens.GetByID(ctx, claims.TokenID)
	if err != nil || rec.Type != model.TokenVerifyEmail || !rec.Live(s.now()) {
		return token.ErrTokenInvalid
	}
	if err := s.users.SetVerified(ctx, rec.UserID); err != nil {
		return err
	}
	if err := s.tokens.Invalidate(ctx, rec.ID); err != nil {
		return err
	}
	s.audit.LogEvent(ctx, security.Event{
		UserID: rec.UserID, Name: model.EventEmailVerified, Severity: model.SeverityInfo,
		IPAddress: client.IP, UserAgent: client.UserAgent,
	})
	return nil
}

// issuePair issues an access token and, when rememberMe is set, a refresh
// token whose record references the access record.
func (s *Service) issuePair(ctx context.Context, u model.User, rememberMe bool, client Client) (TokenPair, error) {
	accessRec, accessSigned, accessExp, err := s.buildToken(u, model.TokenAccess, "", client)
	if err != nil {
		return TokenPair{}, err
	}
	if err := s.tokens.Create(ctx, accessRec); err != nil {
		return TokenPair{}, err
	}
	pair := TokenPair{AccessToken: accessSigned, AccessExp: accessExp}
	if !rememberMe {
		return pair, nil
	}
	refreshRec, refreshSigned, refreshExp, err := s.buildToken(u, model.TokenRefresh, accessRec.ID, client)
	if err != nil {
		return TokenPair{}, err
	}
	if err := s.tokens.Create(ctx, refreshRec); err != nil {
		return TokenPair{}, err
	}
	pair.RefreshToken = refreshSigned
	pair.RefreshExp = refreshExp
	return pair, nil
}

// issue signs and persists a single token of the given type.
func (s *Service) issue(ctx context.Context, u model.User, tokenType, pairedID string, client Client) (string, time.Time, error) {
	rec, signed, exp, err := s.buildToken(u, tokenType, pairedID, client)
	if err != nil {
		return "", time.Time{}, err
	}
	if err := s.tokens.Create(ctx, rec); err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

// buildToken signs a token and shapes its record without persisting it.
func (s *Service) buildToken(u model.User, tokenType, pairedID string, client Client) (model.Token, string, time.Time, error) {
	id := uuid.NewString()
	signed, exp, err := s.signer.Issue(token.Claims{
		UserID: u.ID, Email: u.Email, Role: u.Role, TokenID: id, PairedID: pairedID,
	}, tokenType)
	if err != nil {
		return model.Token{}, "", time.Time{}, err
	}
	rec := model.Token{
		ID: id, UserID: u.ID, Type: tokenType, PairedID: pairedID,
		ExpiresAt: exp, IPAddress: client.IP, UserAgent: client.UserAgent,
	}
	return rec, signed, exp, nil
}

func (s *Service) logFailure(ctx context.Context, userID uint64, reason string, client Client) {
	s.audit.LogEvent(ctx, security.Event{
		UserID: userID, Name: model.EventLoginFailed, Severity: model.SeverityWarning,
		Details: map[string]string{"reason": reason}, IPAddress: client.IP, UserAgent: client.UserAgent,
	})
}
