package dashboard

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ChrisToms14/PrintEase-Version-2-Client/internal/models"
	"github.com/ChrisToms14/PrintEase-Version-2-Client/internal/testutil"
)

func order(id, status string, cost, pages, copies int, created time.Time) models.Order {
	o := models.Order{ID: id, Status: status, TotalCost: cost, CreatedAt: created}
	o.EstimatedPages = pages
	o.Copies = copies
	return o
}

func day(d, h int) time.Time {
	return time.Date(2024, 3, d, h, 0, 0, 0, time.UTC)
}

func sample() []models.Order {
	return []models.Order{
		order("a", models.StatusPending, 50, 10, 1, day(1, 9)),
		order("b", models.StatusProcessing, 40, 5, 2, day(2, 12)),
		order("c", models.StatusCompleted, 30, 3, 3, day(3, 23)),
	}
}

func TestSummarize(t *testing.T) {
	assert.Equal(t, Stats{TotalOrders: 3, InProgress: 2, Completed: 1, TotalSpent: 120, TotalPages: 29}, Summarize(sample()))
	assert.Equal(t, Stats{}, Summarize(nil))
}

func TestFilter(t *testing.T) {
	orders := sample()

	tests := []struct {
		name string
		c    Criteria
		want []string
	}{
		{"no criteria", Criteria{}, []string{"a", "b", "c"}},
		{"status", Criteria{Status: models.StatusCompleted}, []string{"c"}},
		{"from is inclusive", Criteria{From: day(2, 0)}, []string{"b", "c"}},
		{"to covers the whole day", Criteria{To: day(3, 0)}, []string{"a", "b", "c"}},
		{"range", Criteria{From: day(2, 0), To: day(2, 0)}, []string{"b"}},
		{"range and status", Criteria{From: day(1, 0), To: day(3, 0), Status: models.StatusPending}, []string{"a"}},
		{"nothing matches", Criteria{Status: "Shipped"}, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Filter(orders, tt.c)
			ids := []string{}
			for _, o := range got {
				ids = append(ids, o.ID)
			}
			assert.Equal(t, tt.want, ids)

			assert.Equal(t, got, Filter(got, tt.c), "filtering twice changes nothing")
		})
	}
}

func TestParseCriteria(t *testing.T) {
	c, err := ParseCriteria("2024-03-02", "", "Completed", time.UTC)
	require.NoError(t, err)
	assert.Equal(t, day(2, 0), c.From)
	assert.True(t, c.To.IsZero())
	assert.Equal(t, "Completed", c.Status)

	_, err = ParseCriteria("", "03/02/2024", "", time.UTC)
	assert.Error(t, err)
}

func TestRecent(t *testing.T) {
	orders := []models.Order{
		order("old", models.StatusPending, 1, 1, 1, day(1, 0)),
		order("new", models.StatusPending, 1, 1, 1, day(9, 0)),
		order("tie-b", models.StatusPending, 1, 1, 1, day(5, 0)),
		order("tie-a", models.StatusPending, 1, 1, 1, day(5, 0)),
		order("mid", models.StatusPending, 1, 1, 1, day(3, 0)),
		order("older", models.StatusPending, 1, 1, 1, day(2, 0)),
	}

	got := Recent(orders, RecentLimit)
	ids := []string{}
	for _, o := range got {
		ids = append(ids, o.ID)
	}
	assert.Equal(t, []string{"new", "tie-a", "tie-b", "mid", "older"}, ids)
	assert.Equal(t, "old", orders[0].ID, "input is not reordered")

	assert.Len(t, Recent(orders[:2], RecentLimit), 2)
}

type failingSource struct{}

func (failingSource) OrdersByOwner(context.Context, string) ([]models.Order, error) {
	return nil, errors.New("unavailable")
}

func TestLoad(t *testing.T) {
	s := testutil.OpenStore(t)
	ctx := context.Background()

	for _, o := range []models.Order{
		{UserID: "asha@example.com", Status: models.StatusPending, CreatedAt: day(1, 0)},
		{UserID: "ravi@example.com", Status: models.StatusPending, CreatedAt: day(1, 0)},
		{UserID: "asha@example.com", Status: models.StatusCompleted, CreatedAt: day(2, 0)},
	} {
		o := o
		_, err := s.AddOrder(ctx, &o)
		require.NoError(t, err)
	}

	svc := New(s, zap.NewNop())
	got, err := svc.Load(ctx, "asha@example.com")
	require.NoError(t, err)
	assert.Len(t, got, 2)
	for _, o := range got {
		assert.Equal(t, "asha@example.com", o.UserID)
		assert.NotEmpty(t, o.ID)
	}

	none, err := svc.Load(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, none)

	_, err = New(failingSource{}, zap.NewNop()).Load(ctx, "asha@example.com")
	assert.ErrorContains(t, err, "unavailable")
}
