package repository

import (
	"context"

	"github.com/jeffersonbalde/syborg-portal/internal/model"
)

const eventColumns = `id, title, description, location, starts_at, ends_at, created_at`

func (s *Store) ListEvents(ctx context.Context, limit int32) ([]model.Event, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+eventColumns+`
		FROM events
		ORDER BY starts_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := make([]model.Event, 0, limit)
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	return events, rows.Err()
}

func (s *Store) GetEvent(ctx context.Context, eventID string) (model.Event, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+eventColumns+`
		FROM events
		WHERE id = $1
	`, eventID)
	return scanEvent(row)
}

func (s *Store) CreateEvent(ctx context.Context, event model.Event) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO events (id, title, description, location, starts_at, ends_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, event.ID, event.Title, event.Description, event.Location, event.StartsAt, event.EndsAt, event.CreatedAt)
	return err
}

func (s *Store) CountEvents(ctx context.Context) (int64, error) {
	var count int64
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM events`).Scan(&count)
	return count, err
}

func scanEvent(row rowScanner) (model.Event, error) {
	var event model.Event
	err := row.Scan(
		&event.ID,
		&event.Title,
		&event.Description,
		&event.Location,
		&event.StartsAt,
		&event.EndsAt,
		&event.CreatedAt,
	)
	return event, err
}
