// Package authprovider is a self-hosted identity provider: email/password
// accounts hashed with bcrypt, HS256 identity tokens that can be revoked on
// sign-out, and emailed password reset links.
package authprovider

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/ChrisToms14/PrintEase-Version-2-Client/internal/models"
	"github.com/ChrisToms14/PrintEase-Version-2-Client/internal/store"
)

var (
	ErrInvalidCredentials = models.ErrInvalidCredentials
	ErrEmailInUse         = errors.New("auth: email already in use")
	ErrWeakPassword       = errors.New("auth: password is too short")
	ErrInvalidEmail       = errors.New("auth: invalid email")
	ErrInvalidToken       = errors.New("auth: invalid or expired session")
	ErrInvalidResetCode   = errors.New("auth: invalid or expired reset link")
)

// Accounts is the persistence the provider needs.
type Accounts interface {
	CreateAccount(ctx context.Context, uid, email, passwordHash string) error
	GetAccountByEmail(ctx context.Context, email string) (*models.Account, error)
	UpdatePasswordHash(ctx context.Context, email, passwordHash string) error
	RevokeToken(ctx context.Context, jti string, expiresAt time.Time) error
	IsTokenRevoked(ctx context.Context, jti string) (bool, error)
	CreateResetToken(ctx context.Context, email, token string, expiresAt time.Time) error
	ConsumeResetToken(ctx context.Context, token string, now time.Time) (string, error)
}

type Options struct {
	Secret         []byte
	TokenTTL       time.Duration
	ResetLinkTTL   time.Duration
	MinPasswordLen int
	BaseURL        string
}

type claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

type Local struct {
	accounts Accounts
	opts     Options
	log      *zap.Logger
	now      func() time.Time

	mu        sync.RWMutex
	listeners map[int]func(models.IdentityEvent)
	nextID    int
}

func NewLocal(accounts Accounts, opts Options, log *zap.Logger) *Local {
	if opts.MinPasswordLen < 1 {
		opts.MinPasswordLen = 6
	}
	return &Local{
		accounts:  accounts,
		opts:      opts,
		log:       log,
		now:       time.Now,
		listeners: make(map[int]func(models.IdentityEvent)),
	}
}

// HashPassword returns the bcrypt hash stored for an account.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// CreateIdentity registers a new account and signs it in.
func (p *Local) CreateIdentity(ctx context.Context, email, password string) (models.Identity, string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if !strings.Contains(email, "@") {
		return models.Identity{}, "", ErrInvalidEmail
	}
	if len(password) < p.opts.MinPasswordLen {
		return models.Identity{}, "", ErrWeakPassword
	}

	hash, err := HashPassword(password)
	if err != nil {
		return models.Identity{}, "", err
	}
	id := models.Identity{UID: uuid.New().String(), Email: email}
	if err := p.accounts.CreateAccount(ctx, id.UID, email, hash); err != nil {
		if errors.Is(err, store.ErrEmailTaken) {
			return models.Identity{}, "", ErrEmailInUse
		}
		return models.Identity{}, "", err
	}
	p.log.Info("Identity created", zap.String("uid", id.UID), zap.String("email", email))

	token, err := p.issue(id)
	if err != nil {
		return models.Identity{}, "", err
	}
	p.emit(models.IdentityEvent{UID: id.UID, Email: id.Email, SignedIn: true})
	return id, token, nil
}

// Authenticate checks email and password and returns a fresh identity token.
func (p *Local) Authenticate(ctx context.Context, email, password string) (models.Identity, string, error) {
	account, err := p.accounts.GetAccountByEmail(ctx, email)
	if err != nil {
		return models.Identity{}, "", err
	}
	if account == nil {
		return models.Identity{}, "", ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)); err != nil {
		return models.Identity{}, "", ErrInvalidCredentials
	}

	id := models.Identity{UID: account.UID, Email: account.Email}
	token, err := p.issue(id)
	if err != nil {
		return models.Identity{}, "", err
	}
	p.emit(models.IdentityEvent{UID: id.UID, Email: id.Email, SignedIn: true})
	return id, token, nil
}

// Verify returns the identity a live token was issued for.
func (p *Local) Verify(ctx context.Context, token string) (models.Identity, error) {
	c, err := p.parse(token)
	if err != nil {
		return models.Identity{}, ErrInvalidToken
	}
	revoked, err := p.accounts.IsTokenRevoked(ctx, c.ID)
	if err != nil {
		return models.Identity{}, err
	}
	if revoked {
		return models.Identity{}, ErrInvalidToken
	}
	return models.Identity{UID: c.Subject, Email: c.Email}, nil
}

// SignOut revokes token. Tokens that no longer verify are already signed out.
func (p *Local) SignOut(ctx context.Context, token string) error {
	c, err := p.parse(token)
	if err != nil {
		return nil
	}
	expires := p.now().Add(p.opts.TokenTTL)
	if c.ExpiresAt != nil {
		expires = c.ExpiresAt.Time
	}
	if err := p.accounts.RevokeToken(ctx, c.ID, expires); err != nil {
		return fmt.Errorf("sign out: %w", err)
	}
	p.emit(models.IdentityEvent{UID: c.Subject, Email: c.Email})
	return nil
}

// OnIdentityChange registers fn for sign-in and sign-out events and returns
// a function that removes it.
func (p *Local) OnIdentityChange(fn func(models.IdentityEvent)) func() {
	p.mu.Lock()
	id := p.nextID
	p.nextID++
	p.listeners[id] = fn
	p.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			p.mu.Lock()
			delete(p.listeners, id)
			p.mu.Unlock()
		})
	}
}

func (p *Local) emit(ev models.IdentityEvent) {
	p.mu.RLock()
	fns := make([]func(models.IdentityEvent), 0, len(p.listeners))
	for _, fn := range p.listeners {
		fns = append(fns, fn)
	}
	p.mu.RUnlock()

	for _, fn := range fns {
		fn(ev)
	}
}

// SendPasswordReset mails a reset link when an account exists for email.
// Unknown addresses succeed silently.
func (p *Local) SendPasswordReset(ctx context.Context, email string) error {
	account, err := p.accounts.GetAccountByEmail(ctx, email)
	if err != nil {
		return err
	}
	if account == nil {
		p.log.Info("Password reset requested for unknown email", zap.String("email", email))
		return nil
	}

	code, err := randomCode()
	if err != nil {
		return err
	}
	if err := p.accounts.CreateResetToken(ctx, account.Email, code, p.now().Add(p.opts.ResetLinkTTL)); err != nil {
		return fmt.Errorf("create reset token: %w", err)
	}

	// MOCK EMAIL SENDING
	p.log.Info("Password reset email sent",
		zap.String("to", account.Email),
		zap.String("subject", "Reset your PrintEase password"),
		zap.String("link", strings.TrimRight(p.opts.BaseURL, "/")+"/reset-password?code="+code),
	)
	return nil
}

// ConfirmPasswordReset sets a new password using a code from a reset link.
func (p *Local) ConfirmPasswordReset(ctx context.Context, code, newPassword string) error {
	if len(newPassword) < p.opts.MinPasswordLen {
		return ErrWeakPassword
	}
	email, err := p.accounts.ConsumeResetToken(ctx, code, p.now())
	if errors.Is(err, store.ErrNotFound) {
		return ErrInvalidResetCode
	}
	if err != nil {
		return err
	}

	hash, err := HashPassword(newPassword)
	if err != nil {
		return err
	}
	if err := p.accounts.UpdatePasswordHash(ctx, email, hash); err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	p.log.Info("Password reset", zap.String("email", email))
	return nil
}

func (p *Local) issue(id models.Identity) (string, error) {
	now := p.now()
	c := claims{
		Email: id.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			Subject:   id.UID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(p.opts.TokenTTL)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(p.opts.Secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

func (p *Local) parse(token string) (*claims, error) {
	if len(p.opts.Secret) == 0 {
		return nil, errors.New("jwt secret is empty")
	}
	tok, err := jwt.ParseWithClaims(token, &claims{}, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, errors.New("unexpected signing method")
		}
		return p.opts.Secret, nil
	}, jwt.WithTimeFunc(p.now))
	if err != nil || !tok.Valid {
		if err == nil {
			err = errors.New("invalid token")
		}
		return nil, err
	}
	c, _ := tok.Claims.(*claims)
	if c == nil || c.Subject == "" || c.ID == "" {
		return nil, errors.New("invalid claims")
	}
	return c, nil
}

func randomCode() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate reset code: %w", err)
	}
	return hex.EncodeToString(b), nil
}
