// Package identity tracks who is signed in and mirrors their profile record.
package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/ChrisToms14/PrintEase-Version-2-Client/internal/models"
)

// ErrAuthentication matches any AuthenticationError.
var ErrAuthentication = errors.New("authentication failed")

// AuthenticationError carries the provider's credential rejection unchanged;
// its message is the provider's message. Other provider failures are not
// wrapped.
type AuthenticationError struct {
	Err error
}

func (e *AuthenticationError) Error() string        { return e.Err.Error() }
func (e *AuthenticationError) Unwrap() error        { return e.Err }
func (e *AuthenticationError) Is(target error) bool { return target == ErrAuthentication }

// Provider is the external identity service.
type Provider interface {
	CreateIdentity(ctx context.Context, email, password string) (models.Identity, string, error)
	Authenticate(ctx context.Context, email, password string) (models.Identity, string, error)
	Verify(ctx context.Context, token string) (models.Identity, error)
	SignOut(ctx context.Context, token string) error
	OnIdentityChange(fn func(models.IdentityEvent)) func()
	SendPasswordReset(ctx context.Context, email string) error
	ConfirmPasswordReset(ctx context.Context, code, newPassword string) error
}

// ProfileStore persists one profile document per UID.
type ProfileStore interface {
	GetProfile(ctx context.Context, uid string) (*models.UserProfile, error)
	SetProfile(ctx context.Context, uid string, p *models.UserProfile) error
	UpdateProfile(ctx context.Context, uid string, u models.ProfileUpdate) error
}

// Principal is the authenticated caller.
type Principal struct {
	UID   string
	Email string
}

// Session is a signed-in principal, the token that proves it and the
// profile loaded for it. Profile is nil when no profile document exists.
type Session struct {
	Principal Principal
	Token     string
	Profile   *models.UserProfile
}

// SignupRequest is the sign-up form.
type SignupRequest struct {
	FullName           string `validate:"required"`
	Email              string `validate:"required,email"`
	Password           string `validate:"required"`
	ConfirmPassword    string `validate:"eqfield=Password"`
	InstitutionalEmail string `validate:"omitempty,email"`
	College            string
	Department         string
	ClassName          string
	RollNumber         string
	YearOfEnrollment   string
	YearOfGraduation   string
	Birthday           string
	PhoneNumber        string
}

type Manager struct {
	provider Provider
	profiles ProfileStore
	validate *validator.Validate
	log      *zap.Logger

	mu    sync.RWMutex
	cache map[string]*models.UserProfile

	unsubscribe func()
}

func NewManager(provider Provider, profiles ProfileStore, log *zap.Logger) *Manager {
	m := &Manager{
		provider: provider,
		profiles: profiles,
		validate: validator.New(),
		log:      log,
		cache:    make(map[string]*models.UserProfile),
	}
	m.unsubscribe = provider.OnIdentityChange(m.onIdentityChange)
	return m
}

// Close stops listening to the provider.
func (m *Manager) Close() {
	m.unsubscribe()
}

func (m *Manager) onIdentityChange(ev models.IdentityEvent) {
	if ev.SignedIn {
		m.log.Debug("Identity signed in", zap.String("uid", ev.UID))
		return
	}
	m.mu.Lock()
	delete(m.cache, ev.UID)
	m.mu.Unlock()
	m.log.Debug("Identity signed out", zap.String("uid", ev.UID))
}

func (m *Manager) Login(ctx context.Context, email, password string) (*Session, error) {
	id, token, err := m.provider.Authenticate(ctx, email, password)
	if errors.Is(err, models.ErrInvalidCredentials) {
		return nil, &AuthenticationError{Err: err}
	}
	if err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}
	profile, err := m.loadProfile(ctx, id.UID)
	if err != nil {
		return nil, err
	}
	return &Session{Principal: Principal(id), Token: token, Profile: profile}, nil
}

// Signup creates the identity and its profile. A failed profile write leaves
// the identity in place.
func (m *Manager) Signup(ctx context.Context, req SignupRequest) (*Session, error) {
	req.Email = strings.TrimSpace(req.Email)
	if err := m.validate.Struct(req); err != nil {
		return nil, validationError(err)
	}

	id, token, err := m.provider.CreateIdentity(ctx, req.Email, req.Password)
	if err != nil {
		return nil, err
	}

	profile := &models.UserProfile{
		FullName:           req.FullName,
		PersonalEmail:      req.Email,
		InstitutionalEmail: req.InstitutionalEmail,
		College:            req.College,
		Department:         req.Department,
		ClassName:          req.ClassName,
		RollNumber:         req.RollNumber,
		YearOfEnrollment:   req.YearOfEnrollment,
		YearOfGraduation:   req.YearOfGraduation,
		Birthday:           req.Birthday,
		PhoneNumber:        req.PhoneNumber,
	}
	if err := m.profiles.SetProfile(ctx, id.UID, profile); err != nil {
		m.log.Error("Identity created but profile write failed", zap.String("uid", id.UID), zap.Error(err))
		return nil, fmt.Errorf("save profile: %w", err)
	}
	m.remember(id.UID, profile)

	return &Session{Principal: Principal(id), Token: token, Profile: profile}, nil
}

func (m *Manager) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	if err := m.provider.SignOut(ctx, token); err != nil {
		return err
	}
	return nil
}

// Resolve re-derives the session behind token.
func (m *Manager) Resolve(ctx context.Context, token string) (*Session, error) {
	id, err := m.provider.Verify(ctx, token)
	if err != nil {
		return nil, err
	}

	m.mu.RLock()
	profile, ok := m.cache[id.UID]
	m.mu.RUnlock()
	if !ok {
		if profile, err = m.loadProfile(ctx, id.UID); err != nil {
			return nil, err
		}
	}
	return &Session{Principal: Principal(id), Token: token, Profile: copyProfile(profile)}, nil
}

// UpdateProfile merges u into the stored profile. It does nothing without a
// principal.
func (m *Manager) UpdateProfile(ctx context.Context, principal *Principal, u models.ProfileUpdate) error {
	if principal == nil {
		return nil
	}
	if err := m.profiles.UpdateProfile(ctx, principal.UID, u); err != nil {
		return fmt.Errorf("update profile: %w", err)
	}

	m.mu.Lock()
	if p, ok := m.cache[principal.UID]; ok && p != nil {
		u.Apply(p)
	}
	m.mu.Unlock()
	return nil
}

func (m *Manager) RequestPasswordReset(ctx context.Context, email string) error {
	email = strings.TrimSpace(email)
	if err := m.validate.Var(email, "required,email"); err != nil {
		return &models.ValidationError{Field: "email", Message: "Please enter a valid email address."}
	}
	return m.provider.SendPasswordReset(ctx, email)
}

func (m *Manager) ResetPassword(ctx context.Context, code, newPassword, confirm string) error {
	if code == "" {
		return &models.ValidationError{Field: "code", Message: "The reset link is missing its code."}
	}
	if newPassword != confirm {
		return &models.ValidationError{Field: "confirmPassword", Message: "Passwords do not match"}
	}
	return m.provider.ConfirmPasswordReset(ctx, code, newPassword)
}

func (m *Manager) loadProfile(ctx context.Context, uid string) (*models.UserProfile, error) {
	profile, err := m.profiles.GetProfile(ctx, uid)
	if err != nil {
		return nil, fmt.Errorf("load profile: %w", err)
	}
	if profile != nil {
		m.remember(uid, profile)
	}
	return copyProfile(profile), nil
}

func (m *Manager) remember(uid string, p *models.UserProfile) {
	m.mu.Lock()
	m.cache[uid] = copyProfile(p)
	m.mu.Unlock()
}

func copyProfile(p *models.UserProfile) *models.UserProfile {
	if p == nil {
		return nil
	}
	c := *p
	return &c
}

var fieldMessages = map[string]string{
	"FullName":           "Full name is required.",
	"Email":              "Please enter a valid email address.",
	"Password":           "Password is required.",
	"ConfirmPassword":    "Passwords do not match",
	"InstitutionalEmail": "Please enter a valid institutional email address.",
}

// validationError reports the first failing field of a validator error.
func validationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return &models.ValidationError{Message: err.Error()}
	}
	field := verrs[0].Field()
	msg, ok := fieldMessages[field]
	if !ok {
		msg = field + " is invalid."
	}
	return &models.ValidationError{Field: field, Message: msg}
}
