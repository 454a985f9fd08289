package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var ErrNotFound = errors.New("document not found")

// Document is a raw record from a collection.
type Document struct {
	Key  string
	Body json.RawMessage
}

// Decode unmarshals the document body into v.
func (d Document) Decode(v any) error {
	return json.Unmarshal(d.Body, v)
}

// Get loads the document at collection/key into dst. It returns ErrNotFound
// when the key is absent.
func (s *Store) Get(ctx context.Context, collection, key string, dst any) error {
	var body string
	err := s.DB.QueryRowContext(ctx,
		s.rebind(`SELECT body FROM documents WHERE collection = ? AND doc_key = ?`),
		collection, key,
	).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("get %s/%s: %w", collection, key, err)
	}
	return json.Unmarshal([]byte(body), dst)
}

// Set writes v at collection/key, replacing any existing body.
func (s *Store) Set(ctx context.Context, collection, key string, v any) error {
	body, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s/%s: %w", collection, key, err)
	}
	now := time.Now().UTC()
	_, err = s.DB.ExecContext(ctx, s.rebind(`
		INSERT INTO documents (collection, doc_key, body, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (collection, doc_key) DO UPDATE SET body = excluded.body, updated_at = excluded.updated_at
	`), collection, key, string(body), now, now)
	if err != nil {
		s.log.Error("Failed to set document", zap.String("collection", collection), zap.String("key", key), zap.Error(err))
		return fmt.Errorf("set %s/%s: %w", collection, key, err)
	}
	return nil
}

// Add stores v under a freshly generated key and returns the key.
func (s *Store) Add(ctx context.Context, collection string, v any) (string, error) {
	key := uuid.New().String()
	body, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encode %s: %w", collection, err)
	}
	now := time.Now().UTC()
	_, err = s.DB.ExecContext(ctx, s.rebind(`
		INSERT INTO documents (collection, doc_key, body, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
	`), collection, key, string(body), now, now)
	if err != nil {
		s.log.Error("Failed to add document", zap.String("collection", collection), zap.Error(err))
		return "", fmt.Errorf("add %s: %w", collection, err)
	}
	return key, nil
}

// Update merges fields into the top level of an existing document. It
// returns ErrNotFound when the key is absent.
func (s *Store) Update(ctx context.Context, collection, key string, fields map[string]any) error {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := `SELECT body FROM documents WHERE collection = ? AND doc_key = ?`
	if s.driver == DriverPostgres {
		query += ` FOR UPDATE`
	}
	var body string
	err = tx.QueryRowContext(ctx, s.rebind(query), collection, key).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("update %s/%s: %w", collection, key, err)
	}

	doc := map[string]json.RawMessage{}
	if err := json.Unmarshal([]byte(body), &doc); err != nil {
		return fmt.Errorf("decode %s/%s: %w", collection, key, err)
	}
	for name, value := range fields {
		raw, err := json.Marshal(value)
		if err != nil {
			return fmt.Errorf("encode field %s: %w", name, err)
		}
		doc[name] = raw
	}
	merged, err := json.Marshal(doc)
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx,
		s.rebind(`UPDATE documents SET body = ?, updated_at = ? WHERE collection = ? AND doc_key = ?`),
		string(merged), time.Now().UTC(), collection, key,
	)
	if err != nil {
		s.log.Error("Failed to update document", zap.String("collection", collection), zap.String("key", key), zap.Error(err))
		return fmt.Errorf("update %s/%s: %w", collection, key, err)
	}
	return tx.Commit()
}

// Query returns the documents of a collection whose top-level field equals
// value. The comparison runs in the database. Results come back in storage
// order; callers sort if they care.
func (s *Store) Query(ctx context.Context, collection, field string, value any) ([]Document, error) {
	want, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("encode query value: %w", err)
	}

	query, path := `SELECT doc_key, body FROM documents
		WHERE collection = ? AND json_extract(body, ?) = json_extract(?, '$')`, "$."+field
	if s.driver == DriverPostgres {
		query, path = `SELECT doc_key, body FROM documents
		WHERE collection = ? AND (body::jsonb -> ?) = ?::jsonb`, field
	}
	rows, err := s.DB.QueryContext(ctx, s.rebind(query), collection, path, string(want))
	if err != nil {
		return nil, fmt.Errorf("query %s by %s: %w", collection, field, err)
	}
	return scanDocuments(rows)
}

// All returns every document in a collection.
func (s *Store) All(ctx context.Context, collection string) ([]Document, error) {
	rows, err := s.DB.QueryContext(ctx,
		s.rebind(`SELECT doc_key, body FROM documents WHERE collection = ?`), collection)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", collection, err)
	}
	return scanDocuments(rows)
}

func scanDocuments(rows *sql.Rows) ([]Document, error) {
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		var key, body string
		if err := rows.Scan(&key, &body); err != nil {
			return nil, err
		}
		docs = append(docs, Document{Key: key, Body: json.RawMessage(body)})
	}
	return docs, rows.Err()
}
