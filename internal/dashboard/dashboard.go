// Package dashboard reads a customer's orders and derives the figures shown
// on their dashboard.
package dashboard

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/ChrisToms14/PrintEase-Version-2-Client/internal/models"
)

// RecentLimit is how many orders the overview lists.
const RecentLimit = 5

const dateLayout = "2006-01-02"

type OrderSource interface {
	OrdersByOwner(ctx context.Context, email string) ([]models.Order, error)
}

type Service struct {
	orders OrderSource
	log    *zap.Logger
}

func New(orders OrderSource, log *zap.Logger) *Service {
	return &Service{orders: orders, log: log}
}

// Load returns every order placed by email.
func (s *Service) Load(ctx context.Context, email string) ([]models.Order, error) {
	if email == "" {
		return nil, nil
	}
	orders, err := s.orders.OrdersByOwner(ctx, email)
	if err != nil {
		s.log.Error("Failed to load orders", zap.String("email", email), zap.Error(err))
		return nil, fmt.Errorf("load orders: %w", err)
	}
	return orders, nil
}

type Stats struct {
	TotalOrders int
	InProgress  int
	Completed   int
	TotalSpent  int
	TotalPages  int
}

func Summarize(orders []models.Order) Stats {
	var s Stats
	for _, o := range orders {
		s.TotalOrders++
		switch o.Status {
		case models.StatusPending, models.StatusProcessing:
			s.InProgress++
		case models.StatusCompleted:
			s.Completed++
		}
		s.TotalSpent += o.TotalCost
		s.TotalPages += o.Pages()
	}
	return s
}

// Criteria narrows the order list. Zero fields match everything. To covers
// the whole of its calendar day.
type Criteria struct {
	From   time.Time
	To     time.Time
	Status string
}

// ParseCriteria reads YYYY-MM-DD dates in loc. Empty strings leave the
// bound open.
func ParseCriteria(from, to, status string, loc *time.Location) (Criteria, error) {
	var c Criteria
	var err error
	if from != "" {
		if c.From, err = time.ParseInLocation(dateLayout, from, loc); err != nil {
			return Criteria{}, fmt.Errorf("invalid from date %q: %w", from, err)
		}
	}
	if to != "" {
		if c.To, err = time.ParseInLocation(dateLayout, to, loc); err != nil {
			return Criteria{}, fmt.Errorf("invalid to date %q: %w", to, err)
		}
	}
	c.Status = status
	return c, nil
}

// Filter returns the orders matching c, preserving their order.
func Filter(orders []models.Order, c Criteria) []models.Order {
	var end time.Time
	if !c.To.IsZero() {
		end = c.To.AddDate(0, 0, 1)
	}

	out := make([]models.Order, 0, len(orders))
	for _, o := range orders {
		if !c.From.IsZero() && o.CreatedAt.Before(c.From) {
			continue
		}
		if !end.IsZero() && !o.CreatedAt.Before(end) {
			continue
		}
		if c.Status != "" && o.Status != c.Status {
			continue
		}
		out = append(out, o)
	}
	return out
}

// Recent returns up to n orders, newest first. Orders created at the same
// instant are ordered by key.
func Recent(orders []models.Order, n int) []models.Order {
	sorted := append([]models.Order(nil), orders...)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID < b.ID
	})
	if len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}
