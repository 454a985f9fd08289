package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/ChrisToms14/PrintEase-Version-2-Client/internal/models"
)

// AddOrder persists a new order and returns its key.
func (s *Store) AddOrder(ctx context.Context, order *models.Order) (string, error) {
	return s.Add(ctx, OrdersCollection, order)
}

// OrdersByOwner returns every order whose userId equals email, in storage order.
func (s *Store) OrdersByOwner(ctx context.Context, email string) ([]models.Order, error) {
	docs, err := s.Query(ctx, OrdersCollection, "userId", email)
	if err != nil {
		return nil, err
	}
	return decodeOrders(docs)
}

// AllOrders returns every order in the store.
func (s *Store) AllOrders(ctx context.Context) ([]models.Order, error) {
	docs, err := s.All(ctx, OrdersCollection)
	if err != nil {
		return nil, err
	}
	return decodeOrders(docs)
}

func (s *Store) GetOrder(ctx context.Context, key string) (*models.Order, error) {
	var o models.Order
	if err := s.Get(ctx, OrdersCollection, key, &o); err != nil {
		return nil, err
	}
	o.ID = key
	return &o, nil
}

var validStatuses = map[string]bool{
	models.StatusPending:    true,
	models.StatusProcessing: true,
	models.StatusCompleted:  true,
}

// UpdateOrderStatus is the staff-side status change; the web app never calls it.
func (s *Store) UpdateOrderStatus(ctx context.Context, key, status string) error {
	if !validStatuses[status] {
		return fmt.Errorf("invalid order status %q", status)
	}
	err := s.Update(ctx, OrdersCollection, key, map[string]any{"status": status})
	if errors.Is(err, ErrNotFound) {
		return fmt.Errorf("order %s: %w", key, err)
	}
	return err
}

func decodeOrders(docs []Document) ([]models.Order, error) {
	orders := make([]models.Order, 0, len(docs))
	for _, d := range docs {
		var o models.Order
		if err := d.Decode(&o); err != nil {
			return nil, fmt.Errorf("decode order %s: %w", d.Key, err)
		}
		o.ID = d.Key
		orders = append(orders, o)
	}
	return orders, nil
}
