package repository

import (
	"context"
	"time"

	"github.com/jeffersonbalde/syborg-portal/internal/model"
)

const slideColumns = `id, title, subtitle, image_url, position, active, created_at, updated_at`

func (s *Store) ListSlides(ctx context.Context, activeOnly bool) ([]model.Slide, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+slideColumns+`
		FROM hero_slides
		WHERE NOT $1 OR active
		ORDER BY position, created_at
	`, activeOnly)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	slides := make([]model.Slide, 0)
	for rows.Next() {
		slide, err := scanSlide(rows)
		if err != nil {
			return nil, err
		}
		slides = append(slides, slide)
	}
	return slides, rows.Err()
}

func (s *Store) GetSlide(ctx context.Context, slideID string) (model.Slide, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+slideColumns+`
		FROM hero_slides
		WHERE id = $1
	`, slideID)
	return scanSlide(row)
}

func (s *Store) CreateSlide(ctx context.Context, slide model.Slide) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO hero_slides (id, title, subtitle, image_url, position, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, slide.ID, slide.Title, slide.Subtitle, slide.ImageURL, slide.Position, slide.Active, slide.CreatedAt, slide.UpdatedAt)
	return err
}

type SlideUpdate struct {
	Title    *string
	Subtitle *string
	ImageURL *string
	Position *int32
	Active   *bool
}

func (s *Store) UpdateSlide(ctx context.Context, slideID string, update SlideUpdate) (model.Slide, error) {
	row := s.pool.QueryRow(ctx, `
		UPDATE hero_slides
		SET title = COALESCE($2, title),
			subtitle = COALESCE($3, subtitle),
			image_url = COALESCE($4, image_url),
			position = COALESCE($5, position),
			active = COALESCE($6, active),
			updated_at = $7
		WHERE id = $1
		RETURNING `+slideColumns+`
	`, slideID, update.Title, update.Subtitle, update.ImageURL, update.Position, update.Active, time.Now().UTC())
	return scanSlide(row)
}

func (s *Store) DeleteSlide(ctx context.Context, slideID string) (bool, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM hero_slides WHERE id = $1`, slideID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func scanSlide(row rowScanner) (model.Slide, error) {
	var slide model.Slide
	err := row.Scan(
		&slide.ID,
		&slide.Title,
		&slide.Subtitle,
		&slide.ImageURL,
		&slide.Position,
		&slide.Active,
		&slide.CreatedAt,
		&slide.UpdatedAt,
	)
	return slide, err
}
