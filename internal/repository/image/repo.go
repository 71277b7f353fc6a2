package image

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/wb-go/wbf/dbpg"

	"github.com/alexkarpov/image-hosting/internal/model"
)

var ErrImageNotFound = errors.New("image not found")

// Repository provides CRUD operations for image metadata in the database.
type Repository struct {
	db *dbpg.DB
}

// NewRepository creates a new Repository with the given DB connection.
func NewRepository(db *dbpg.DB) *Repository {
	return &Repository{db: db}
}

// SaveImage inserts a new image record and returns its UUID.
func (r *Repository) SaveImage(ctx context.Context, img model.Image) (uuid.UUID, error) {
	query := `
		INSERT INTO images (size_mb, width, height, format, path)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`

	var id uuid.UUID
	err := r.db.QueryRowContext(
		ctx, query, img.SizeMB, img.Width, img.Height, img.Format, img.Path,
	).Scan(&id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("save: failed to save image: %w", err)
	}

	return id, nil
}

// GetImage retrieves an image record by ID.
func (r *Repository) GetImage(ctx context.Context, id uuid.UUID) (model.Image, error) {
	query := `
		SELECT size_mb, width, height, format, path, created_at
		FROM images
		WHERE id = $1
	`

	var img model.Image
	err := r.db.QueryRowContext(
		ctx, query, id,
	).Scan(&img.SizeMB, &img.Width, &img.Height, &img.Format, &img.Path, &img.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Image{}, ErrImageNotFound
		}

		return model.Image{}, fmt.Errorf("get: failed to get image: %w", err)
	}

	img.ID = id

	return img, nil
}

// ListImageIDs returns the IDs of all stored images.
func (r *Repository) ListImageIDs(ctx context.Context) ([]uuid.UUID, error) {
	query := `SELECT id FROM images ORDER BY created_at`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list: failed to query images: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("list: failed to scan id: %w", err)
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list: failed to read rows: %w", err)
	}

	return ids, nil
}

// UpdateImage overwrites the mutable metadata of an existing image.
func (r *Repository) UpdateImage(ctx context.Context, id uuid.UUID, img model.Image) error {
	query := `
		UPDATE images
		SET size_mb = $1, width = $2, height = $3, format = $4, path = $5
		WHERE id = $6
	`

	res, err := r.db.ExecContext(ctx, query, img.SizeMB, img.Width, img.Height, img.Format, img.Path, id)
	if err != nil {
		return fmt.Errorf("update: failed to update image: %w", err)
	}

	rows, _ := res.RowsAffected()
	if rows == 0 {
		return ErrImageNotFound
	}

	return nil
}

// DeleteImage deletes an image record by ID.
func (r *Repository) DeleteImage(ctx context.Context, id uuid.UUID) error {
	query := `
		DELETE FROM images WHERE id = $1
	`

	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete: failed to delete image: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete: failed to get number of rows affected: %w", err)
	}

	if n == 0 {
		return ErrImageNotFound
	}

	return nil
}
