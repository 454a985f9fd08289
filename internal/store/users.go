package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ChrisToms14/PrintEase-Version-2-Client/internal/models"
)

const (
	UsersCollection  = "users"
	OrdersCollection = "orders"
)

// GetProfile returns the profile stored for uid, or nil when there is none.
func (s *Store) GetProfile(ctx context.Context, uid string) (*models.UserProfile, error) {
	var p models.UserProfile
	err := s.Get(ctx, UsersCollection, uid, &p)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *Store) SetProfile(ctx context.Context, uid string, p *models.UserProfile) error {
	return s.Set(ctx, UsersCollection, uid, p)
}

// UpdateProfile merges the non-nil fields of u into the stored profile.
func (s *Store) UpdateProfile(ctx context.Context, uid string, u models.ProfileUpdate) error {
	fields, err := toFields(u)
	if err != nil {
		return err
	}
	if len(fields) == 0 {
		return nil
	}
	return s.Update(ctx, UsersCollection, uid, fields)
}

// toFields flattens a struct into its JSON top-level fields, honouring omitempty.
func toFields(v any) (map[string]any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode fields: %w", err)
	}
	fields := map[string]any{}
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("decode fields: %w", err)
	}
	return fields, nil
}
