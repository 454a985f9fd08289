package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ChrisToms14/PrintEase-Version-2-Client/internal/models"
	"go.uber.org/zap"
)

var ErrEmailTaken = errors.New("email already in use")

// CreateAccount inserts a new identity. Emails are stored lower-cased.
func (s *Store) CreateAccount(ctx context.Context, uid, email, passwordHash string) error {
	email = strings.ToLower(strings.TrimSpace(email))

	existing, err := s.GetAccountByEmail(ctx, email)
	if err != nil {
		return err
	}
	if existing != nil {
		return ErrEmailTaken
	}

	_, err = s.DB.ExecContext(ctx,
		s.rebind(`INSERT INTO identities (uid, email, password_hash, created_at) VALUES (?, ?, ?, ?)`),
		uid, email, passwordHash, time.Now().UTC(),
	)
	if err != nil {
		s.log.Error("Failed to create account", zap.String("email", email), zap.Error(err))
		return fmt.Errorf("create account: %w", err)
	}
	return nil
}

// GetAccountByEmail returns nil when no identity uses email.
func (s *Store) GetAccountByEmail(ctx context.Context, email string) (*models.Account, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	row := s.DB.QueryRowContext(ctx,
		s.rebind(`SELECT uid, email, password_hash FROM identities WHERE email = ?`), email)

	var a models.Account
	if err := row.Scan(&a.UID, &a.Email, &a.PasswordHash); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &a, nil
}

func (s *Store) GetAccountByUID(ctx context.Context, uid string) (*models.Account, error) {
	row := s.DB.QueryRowContext(ctx,
		s.rebind(`SELECT uid, email, password_hash FROM identities WHERE uid = ?`), uid)

	var a models.Account
	if err := row.Scan(&a.UID, &a.Email, &a.PasswordHash); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &a, nil
}

func (s *Store) UpdatePasswordHash(ctx context.Context, email, passwordHash string) error {
	res, err := s.DB.ExecContext(ctx,
		s.rebind(`UPDATE identities SET password_hash = ? WHERE email = ?`),
		passwordHash, strings.ToLower(strings.TrimSpace(email)),
	)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// RevokeToken records a signed-out token ID until it would have expired anyway.
func (s *Store) RevokeToken(ctx context.Context, jti string, expiresAt time.Time) error {
	_, err := s.DB.ExecContext(ctx, s.rebind(`
		INSERT INTO revoked_tokens (jti, expires_at) VALUES (?, ?)
		ON CONFLICT (jti) DO NOTHING
	`), jti, expiresAt.UTC())
	return err
}

func (s *Store) IsTokenRevoked(ctx context.Context, jti string) (bool, error) {
	var exists int
	err := s.DB.QueryRowContext(ctx,
		s.rebind(`SELECT 1 FROM revoked_tokens WHERE jti = ?`), jti).Scan(&exists)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// PurgeRevokedTokens drops revocations whose tokens have expired.
func (s *Store) PurgeRevokedTokens(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.DB.ExecContext(ctx,
		s.rebind(`DELETE FROM revoked_tokens WHERE expires_at < ?`), now.UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Password reset links

func (s *Store) CreateResetToken(ctx context.Context, email, token string, expiresAt time.Time) error {
	_, err := s.DB.ExecContext(ctx,
		s.rebind(`INSERT INTO password_resets (token, email, expires_at, used) VALUES (?, ?, ?, 0)`),
		token, strings.ToLower(strings.TrimSpace(email)), expiresAt.UTC(),
	)
	return err
}

// ConsumeResetToken marks a live token used and returns its email. Expired,
// used or unknown tokens yield ErrNotFound.
func (s *Store) ConsumeResetToken(ctx context.Context, token string, now time.Time) (string, error) {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return "", err
	}
	defer tx.Rollback()

	var email string
	err = tx.QueryRowContext(ctx,
		s.rebind(`SELECT email FROM password_resets WHERE token = ? AND used = 0 AND expires_at > ?`),
		token, now.UTC(),
	).Scan(&email)
	if err == sql.ErrNoRows {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}

	if _, err := tx.ExecContext(ctx,
		s.rebind(`UPDATE password_resets SET used = 1 WHERE token = ?`), token); err != nil {
		return "", err
	}
	return email, tx.Commit()
}
