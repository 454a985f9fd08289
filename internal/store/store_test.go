package store

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ChrisToms14/PrintEase-Version-2-Client/internal/models"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	s, err := NewStore(DriverSQLite, "file:"+name+"?mode=memory&cache=shared", zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.Migrate())
	return s
}

func TestMigrate_Idempotent(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.Migrate())

	var n int
	require.NoError(t, s.DB.QueryRow(`SELECT COUNT(*) FROM schema_migrations`).Scan(&n))
	assert.Equal(t, 3, n)
}

func TestMigrateFS_AppliesInOrder(t *testing.T) {
	s := openTestStore(t)
	fsys := fstest.MapFS{
		"002_b.sql":  {Data: []byte(`ALTER TABLE extra ADD COLUMN note TEXT;`)},
		"001_a.sql":  {Data: []byte(`CREATE TABLE extra (id INTEGER PRIMARY KEY);`)},
		"readme.txt": {Data: []byte(`ignored`)},
	}
	require.NoError(t, s.MigrateFS(fsys))

	_, err := s.DB.Exec(`INSERT INTO extra (id, note) VALUES (1, 'x')`)
	assert.NoError(t, err)
}

func TestDocuments_SetGetUpdate(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	type doc struct {
		Name  string `json:"name"`
		Count int    `json:"count"`
	}
	require.NoError(t, s.Set(ctx, "things", "a", doc{Name: "first", Count: 1}))

	var got doc
	require.NoError(t, s.Get(ctx, "things", "a", &got))
	assert.Equal(t, doc{Name: "first", Count: 1}, got)

	require.NoError(t, s.Update(ctx, "things", "a", map[string]any{"count": 7}))
	require.NoError(t, s.Get(ctx, "things", "a", &got))
	assert.Equal(t, doc{Name: "first", Count: 7}, got, "update merges without dropping other fields")

	require.NoError(t, s.Set(ctx, "things", "a", doc{Name: "replaced"}))
	require.NoError(t, s.Get(ctx, "things", "a", &got))
	assert.Equal(t, doc{Name: "replaced"}, got)
}

func TestDocuments_Missing(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	var v map[string]any
	assert.ErrorIs(t, s.Get(ctx, "things", "nope", &v), ErrNotFound)
	assert.ErrorIs(t, s.Update(ctx, "things", "nope", map[string]any{"a": 1}), ErrNotFound)
}

func TestDocuments_AddAndQuery(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	k1, err := s.Add(ctx, "orders", map[string]any{"userId": "a@x.com", "n": 1})
	require.NoError(t, err)
	_, err = s.Add(ctx, "orders", map[string]any{"userId": "b@x.com", "n": 2})
	require.NoError(t, err)
	k3, err := s.Add(ctx, "orders", map[string]any{"userId": "a@x.com", "n": 3})
	require.NoError(t, err)
	assert.NotEqual(t, k1, k3)

	docs, err := s.Query(ctx, "orders", "userId", "a@x.com")
	require.NoError(t, err)
	keys := []string{}
	for _, d := range docs {
		keys = append(keys, d.Key)
	}
	assert.ElementsMatch(t, []string{k1, k3}, keys)

	none, err := s.Query(ctx, "orders", "userId", "c@x.com")
	require.NoError(t, err)
	assert.Empty(t, none)

	byNumber, err := s.Query(ctx, "orders", "n", 3)
	require.NoError(t, err)
	require.Len(t, byNumber, 1)
	assert.Equal(t, k3, byNumber[0].Key)
}

func TestQuery_PostgresPredicate(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta(`(body::jsonb -> $2) = $3::jsonb`)).
		WithArgs("orders", "userId", `"a@x.com"`).
		WillReturnRows(sqlmock.NewRows([]string{"doc_key", "body"}).
			AddRow("k1", `{"userId":"a@x.com"}`))

	s := NewStoreFromDB(db, DriverPostgres, zap.NewNop())
	docs, err := s.Query(context.Background(), "orders", "userId", "a@x.com")
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "k1", docs[0].Key)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProfiles(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	p, err := s.GetProfile(ctx, "uid-1")
	require.NoError(t, err)
	assert.Nil(t, p)

	require.NoError(t, s.SetProfile(ctx, "uid-1", &models.UserProfile{FullName: "Asha", PersonalEmail: "asha@x.com"}))

	college := "MIT"
	orders := 4
	require.NoError(t, s.UpdateProfile(ctx, "uid-1", models.ProfileUpdate{College: &college, TotalOrders: &orders}))

	p, err = s.GetProfile(ctx, "uid-1")
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, "Asha", p.FullName)
	assert.Equal(t, "MIT", p.College)
	assert.Equal(t, 4, p.TotalOrders)

	assert.NoError(t, s.UpdateProfile(ctx, "uid-1", models.ProfileUpdate{}), "empty update is a no-op")
}

func TestOrders(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	o := &models.Order{
		UserID:        "asha@x.com",
		Files:         []string{"/uploads/a.pdf"},
		PrintSpec:     models.DefaultPrintSpec(),
		PaymentMethod: models.PaymentPickup,
		TotalCost:     2,
		Status:        models.StatusPending,
		CreatedAt:     time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC),
	}
	key, err := s.AddOrder(ctx, o)
	require.NoError(t, err)

	mine, err := s.OrdersByOwner(ctx, "asha@x.com")
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, key, mine[0].ID)
	assert.Equal(t, o.CreatedAt, mine[0].CreatedAt)
	assert.Nil(t, mine[0].TransactionID)

	require.NoError(t, s.UpdateOrderStatus(ctx, key, models.StatusCompleted))
	got, err := s.GetOrder(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, got.Status)
	assert.Equal(t, 2, got.TotalCost, "status change leaves the cost alone")

	assert.Error(t, s.UpdateOrderStatus(ctx, key, "Shipped"))
	assert.ErrorIs(t, s.UpdateOrderStatus(ctx, "missing", models.StatusCompleted), ErrNotFound)

	all, err := s.AllOrders(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestAccounts(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.CreateAccount(ctx, "uid-1", "Asha@X.com ", "hash"))
	assert.ErrorIs(t, s.CreateAccount(ctx, "uid-2", "asha@x.com", "hash"), ErrEmailTaken)

	a, err := s.GetAccountByEmail(ctx, "ASHA@x.com")
	require.NoError(t, err)
	require.NotNil(t, a)
	assert.Equal(t, "uid-1", a.UID)
	assert.Equal(t, "asha@x.com", a.Email)

	require.NoError(t, s.UpdatePasswordHash(ctx, "asha@x.com", "new-hash"))
	a, err = s.GetAccountByUID(ctx, "uid-1")
	require.NoError(t, err)
	assert.Equal(t, "new-hash", a.PasswordHash)

	missing, err := s.GetAccountByEmail(ctx, "nobody@x.com")
	require.NoError(t, err)
	assert.Nil(t, missing)
	assert.ErrorIs(t, s.UpdatePasswordHash(ctx, "nobody@x.com", "h"), ErrNotFound)
}

func TestRevokedTokens(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	now := time.Now()

	revoked, err := s.IsTokenRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.False(t, revoked)

	require.NoError(t, s.RevokeToken(ctx, "jti-1", now.Add(-time.Minute)))
	require.NoError(t, s.RevokeToken(ctx, "jti-1", now.Add(-time.Minute)), "revoking twice is harmless")
	require.NoError(t, s.RevokeToken(ctx, "jti-2", now.Add(time.Hour)))

	revoked, err = s.IsTokenRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.True(t, revoked)

	n, err := s.PurgeRevokedTokens(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestResetTokens(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, s.CreateResetToken(ctx, "asha@x.com", "tok", now.Add(time.Hour)))
	require.NoError(t, s.CreateResetToken(ctx, "asha@x.com", "old", now.Add(-time.Hour)))

	email, err := s.ConsumeResetToken(ctx, "tok", now)
	require.NoError(t, err)
	assert.Equal(t, "asha@x.com", email)

	_, err = s.ConsumeResetToken(ctx, "tok", now)
	assert.ErrorIs(t, err, ErrNotFound, "tokens are single use")
	_, err = s.ConsumeResetToken(ctx, "old", now)
	assert.ErrorIs(t, err, ErrNotFound, "expired tokens are rejected")
}

func TestRebind(t *testing.T) {
	pg := &Store{driver: DriverPostgres}
	assert.Equal(t, "SELECT a FROM t WHERE b = $1 AND c = $2", pg.rebind("SELECT a FROM t WHERE b = ? AND c = ?"))

	lite := &Store{driver: DriverSQLite}
	assert.Equal(t, "SELECT ?", lite.rebind("SELECT ?"))
}

func TestAdd_PersistenceFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO documents")).
		WillReturnError(errors.New("disk full"))

	s := NewStoreFromDB(db, DriverSQLite, zap.NewNop())
	_, err = s.Add(context.Background(), "orders", map[string]any{"userId": "a@x.com"})
	assert.ErrorContains(t, err, "disk full")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNewStore_UnsupportedDriver(t *testing.T) {
	_, err := NewStore("mysql", "dsn", zap.NewNop())
	assert.Error(t, err)
}
