package repository

import (
	"context"

	"github.com/jeffersonbalde/syborg-portal/internal/model"
)

type StudentPage struct {
	Items   []model.User
	Total   int64
	Page    int32
	PerPage int32
}

// ListStudents returns one page of the roster, optionally narrowed by a
// case-insensitive search over name, email and student number.
func (s *Store) ListStudents(ctx context.Context, search string, page, perPage int32) (StudentPage, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 10
	}
	pattern := "%" + search + "%"

	var total int64
	row := s.pool.QueryRow(ctx, `
		SELECT COUNT(*)
		FROM users
		WHERE role = 'student'
		  AND ($1 = '%%'
			OR first_name ILIKE $1
			OR last_name ILIKE $1
			OR email ILIKE $1
			OR student_number ILIKE $1)
	`, pattern)
	if err := row.Scan(&total); err != nil {
		return StudentPage{}, err
	}

	rows, err := s.pool.Query(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE role = 'student'
		  AND ($1 = '%%'
			OR first_name ILIKE $1
			OR last_name ILIKE $1
			OR email ILIKE $1
			OR student_number ILIKE $1)
		ORDER BY last_name, first_name
		LIMIT $2 OFFSET $3
	`, pattern, perPage, (page-1)*perPage)
	if err != nil {
		return StudentPage{}, err
	}
	defer rows.Close()

	items := make([]model.User, 0, perPage)
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return StudentPage{}, err
		}
		items = append(items, user)
	}
	if err := rows.Err(); err != nil {
		return StudentPage{}, err
	}

	return StudentPage{Items: items, Total: total, Page: page, PerPage: perPage}, nil
}

func (s *Store) CountStudents(ctx context.Context) (int64, error) {
	var count int64
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM users WHERE role = 'student'`).Scan(&count)
	return count, err
}
