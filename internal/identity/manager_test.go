package identity

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ChrisToms14/PrintEase-Version-2-Client/internal/authprovider"
	"github.com/ChrisToms14/PrintEase-Version-2-Client/internal/models"
	"github.com/ChrisToms14/PrintEase-Version-2-Client/internal/store"
	"github.com/ChrisToms14/PrintEase-Version-2-Client/internal/testutil"
)

func setup(t *testing.T) (*Manager, *store.Store) {
	t.Helper()
	s := testutil.OpenStore(t)
	provider := authprovider.NewLocal(s, authprovider.Options{
		Secret:         []byte("0123456789abcdef0123456789abcdef"),
		TokenTTL:       time.Hour,
		ResetLinkTTL:   time.Hour,
		MinPasswordLen: 6,
	}, zap.NewNop())
	m := NewManager(provider, s, zap.NewNop())
	t.Cleanup(m.Close)
	return m, s
}

func signupRequest() SignupRequest {
	return SignupRequest{
		FullName:        "Asha Rao",
		Email:           "asha@example.com",
		Password:        "secret1",
		ConfirmPassword: "secret1",
		College:         "MIT",
	}
}

func TestSignup_WritesProfileWithZeroCounters(t *testing.T) {
	m, s := setup(t)
	ctx := context.Background()

	sess, err := m.Signup(ctx, signupRequest())
	require.NoError(t, err)
	assert.Equal(t, "asha@example.com", sess.Principal.Email)
	assert.NotEmpty(t, sess.Token)

	stored, err := s.GetProfile(ctx, sess.Principal.UID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, "Asha Rao", stored.FullName)
	assert.Equal(t, "asha@example.com", stored.PersonalEmail)
	assert.Equal(t, "MIT", stored.College)
	assert.Zero(t, stored.TotalOrders)
	assert.Zero(t, stored.TotalAmountSpent)
	assert.Zero(t, stored.TotalPagesPrinted)
}

func TestSignup_Validation(t *testing.T) {
	m, _ := setup(t)

	tests := []struct {
		name  string
		edit  func(*SignupRequest)
		field string
	}{
		{"password mismatch", func(r *SignupRequest) { r.ConfirmPassword = "other" }, "ConfirmPassword"},
		{"missing name", func(r *SignupRequest) { r.FullName = "" }, "FullName"},
		{"bad email", func(r *SignupRequest) { r.Email = "asha" }, "Email"},
		{"missing password", func(r *SignupRequest) { r.Password, r.ConfirmPassword = "", "" }, "Password"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := signupRequest()
			tt.edit(&req)
			_, err := m.Signup(context.Background(), req)

			var verr *models.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
		})
	}
}

func TestSignup_ProviderErrorPassesThrough(t *testing.T) {
	m, _ := setup(t)
	_, err := m.Signup(context.Background(), signupRequest())
	require.NoError(t, err)

	_, err = m.Signup(context.Background(), signupRequest())
	assert.ErrorIs(t, err, authprovider.ErrEmailInUse)
}

func TestLogin(t *testing.T) {
	m, _ := setup(t)
	ctx := context.Background()
	created, err := m.Signup(ctx, signupRequest())
	require.NoError(t, err)

	sess, err := m.Login(ctx, "asha@example.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, created.Principal, sess.Principal)
	require.NotNil(t, sess.Profile)
	assert.Equal(t, "Asha Rao", sess.Profile.FullName)

	_, err = m.Login(ctx, "asha@example.com", "nope")
	assert.ErrorIs(t, err, ErrAuthentication)
	assert.ErrorIs(t, err, authprovider.ErrInvalidCredentials, "provider error is kept")
}

func TestLogin_ProviderFailureIsNotARejection(t *testing.T) {
	m, s := setup(t)
	ctx := context.Background()
	_, err := m.Signup(ctx, signupRequest())
	require.NoError(t, err)

	require.NoError(t, s.DB.Close())
	_, err = m.Login(ctx, "asha@example.com", "secret1")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrAuthentication)
	var aerr *AuthenticationError
	assert.False(t, errors.As(err, &aerr))
}

func TestResolveAndLogout(t *testing.T) {
	m, _ := setup(t)
	ctx := context.Background()
	created, err := m.Signup(ctx, signupRequest())
	require.NoError(t, err)

	sess, err := m.Resolve(ctx, created.Token)
	require.NoError(t, err)
	assert.Equal(t, created.Principal, sess.Principal)
	assert.Equal(t, "Asha Rao", sess.Profile.FullName)

	require.NoError(t, m.Logout(ctx, created.Token))
	m.mu.RLock()
	_, cached := m.cache[created.Principal.UID]
	m.mu.RUnlock()
	assert.False(t, cached, "sign-out evicts the cached profile")

	_, err = m.Resolve(ctx, created.Token)
	assert.ErrorIs(t, err, authprovider.ErrInvalidToken)
}

func TestUpdateProfile(t *testing.T) {
	m, s := setup(t)
	ctx := context.Background()
	created, err := m.Signup(ctx, signupRequest())
	require.NoError(t, err)

	dept := "Physics"
	p := created.Principal
	require.NoError(t, m.UpdateProfile(ctx, &p, models.ProfileUpdate{Department: &dept}))

	stored, err := s.GetProfile(ctx, p.UID)
	require.NoError(t, err)
	assert.Equal(t, "Physics", stored.Department)
	assert.Equal(t, "Asha Rao", stored.FullName)

	sess, err := m.Resolve(ctx, created.Token)
	require.NoError(t, err)
	assert.Equal(t, "Physics", sess.Profile.Department, "cache reflects the update")

	assert.NoError(t, m.UpdateProfile(ctx, nil, models.ProfileUpdate{Department: &dept}))
}

func TestPasswordResetValidation(t *testing.T) {
	m, _ := setup(t)
	ctx := context.Background()

	var verr *models.ValidationError
	assert.ErrorAs(t, m.RequestPasswordReset(ctx, "not-an-email"), &verr)
	assert.NoError(t, m.RequestPasswordReset(ctx, "unknown@example.com"))

	assert.ErrorAs(t, m.ResetPassword(ctx, "code", "secret1", "secret2"), &verr)
	assert.ErrorAs(t, m.ResetPassword(ctx, "", "secret1", "secret1"), &verr)
	assert.ErrorIs(t, m.ResetPassword(ctx, "bogus", "secret1", "secret1"), authprovider.ErrInvalidResetCode)
}

type mockProfiles struct {
	mock.Mock
}

func (m *mockProfiles) GetProfile(ctx context.Context, uid string) (*models.UserProfile, error) {
	args := m.Called(ctx, uid)
	p, _ := args.Get(0).(*models.UserProfile)
	return p, args.Error(1)
}

func (m *mockProfiles) SetProfile(ctx context.Context, uid string, p *models.UserProfile) error {
	return m.Called(ctx, uid, p).Error(0)
}

func (m *mockProfiles) UpdateProfile(ctx context.Context, uid string, u models.ProfileUpdate) error {
	return m.Called(ctx, uid, u).Error(0)
}

func TestSignup_ProfileWriteFailureKeepsIdentity(t *testing.T) {
	s := testutil.OpenStore(t)
	provider := authprovider.NewLocal(s, authprovider.Options{
		Secret:   []byte("0123456789abcdef0123456789abcdef"),
		TokenTTL: time.Hour,
	}, zap.NewNop())
	profiles := &mockProfiles{}
	profiles.On("SetProfile", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("quota exceeded"))

	m := NewManager(provider, profiles, zap.NewNop())
	defer m.Close()

	_, err := m.Signup(context.Background(), signupRequest())
	assert.ErrorContains(t, err, "quota exceeded")

	account, err := s.GetAccountByEmail(context.Background(), "asha@example.com")
	require.NoError(t, err)
	assert.NotNil(t, account, "identity is not rolled back")
	profiles.AssertExpectations(t)
}

func TestContext(t *testing.T) {
	ctx := context.Background()
	assert.Nil(t, PrincipalFromContext(ctx))

	ctx = WithSession(ctx, &Session{Principal: Principal{UID: "u1", Email: "a@x.com"}})
	p := PrincipalFromContext(ctx)
	require.NotNil(t, p)
	assert.Equal(t, "u1", p.UID)
}
