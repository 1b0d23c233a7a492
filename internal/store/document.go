package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"
)

type documentRepo struct {
	s *Store
}

// DocumentRepo returns a DocumentRepo backed by this store.
func (s *Store) DocumentRepo() DocumentRepo {
	return &documentRepo{s: s}
}

func (r *documentRepo) CreateDocument(ctx context.Context, doc *Document) error {
	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now().UTC()
	}

	query, args := r.s.builder().Insert(DocumentsTable.Name).
		Columns("id", "owner_id", "title", "text", "created_at").
		Values(doc.ID, doc.OwnerID, doc.Title, doc.Text, doc.CreatedAt.UnixMilli()).
		Query()
	if _, err := r.s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert document: %w", err)
	}
	return nil
}

func (r *documentRepo) FetchText(ctx context.Context, docID, ownerID string) (string, error) {
	query, args := r.s.builder().Select("text").
		From(entsql.Table(DocumentsTable.Name)).
		Where(entsql.And(
			entsql.EQ("id", docID),
			entsql.EQ("owner_id", ownerID),
		)).
		Query()

	var text string
	err := r.s.db.QueryRowContext(ctx, query, args...).Scan(&text)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("fetch document %s: %w", docID, err)
	}
	return text, nil
}
