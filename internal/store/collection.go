package store

import (
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/payview/server/internal/model"
)

type CollectionStore struct {
	db *sql.DB
}

func NewCollectionStore(db *sql.DB) *CollectionStore {
	return &CollectionStore{db: db}
}

func scanCollection(scanner interface{ Scan(...any) error }) (*model.FileCollection, error) {
	var c model.FileCollection
	var description sql.NullString
	err := scanner.Scan(&c.ID, &c.CreatorID, &c.Title, &c.Slug, &description, &c.PriceCents, &c.CreatedAt)
	if err != nil {
		return nil, err
	}
	if description.Valid {
		c.Description = &description.String
	}
	return &c, nil
}

const collectionCols = `id, creator_id, title, slug, description, price_cents, created_at`

func (s *CollectionStore) Create(c *model.FileCollection) (*model.FileCollection, error) {
	id := uuid.NewString()
	slug := c.Slug
	if slug == "" {
		slug = Slugify(c.Title) + "-" + id[:8]
	}
	_, err := s.db.Exec(
		`INSERT INTO file_collections (id, creator_id, title, slug, description, price_cents) VALUES (?, ?, ?, ?, ?, ?)`,
		id, c.CreatorID, c.Title, slug, c.Description, c.PriceCents,
	)
	if err != nil {
		return nil, fmt.Errorf("insert collection: %w", err)
	}
	return s.GetByID(id)
}

func (s *CollectionStore) GetByID(id string) (*model.FileCollection, error) {
	row := s.db.QueryRow(`SELECT `+collectionCols+` FROM file_collections WHERE id = ?`, id)
	c, err := scanCollection(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get collection: %w", err)
	}
	return c, nil
}
