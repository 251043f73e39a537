package repository

import (
	"context"
	"time"

	"github.com/jeffersonbalde/syborg-portal/internal/model"
)

const userColumns = `id, email, password_hash, first_name, last_name, role, student_number, created_at, updated_at`

func (s *Store) GetUserByEmail(ctx context.Context, email string) (model.User, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE email = $1
	`, email)
	return scanUser(row)
}

func (s *Store) GetUserByID(ctx context.Context, userID string) (model.User, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE id = $1
	`, userID)
	return scanUser(row)
}

func (s *Store) GetUserByStudentNumber(ctx context.Context, studentNumber string) (model.User, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE student_number = $1 AND role = 'student'
	`, studentNumber)
	return scanUser(row)
}

func (s *Store) CreateUser(ctx context.Context, user model.User) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO users (id, email, password_hash, first_name, last_name, role, student_number, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, user.ID, user.Email, user.PasswordHash, user.FirstName, user.LastName, user.Role, user.StudentNumber, user.CreatedAt, user.UpdatedAt)
	return err
}

type UserUpdate struct {
	Email         *string
	PasswordHash  *string
	FirstName     *string
	LastName      *string
	StudentNumber *string
}

func (s *Store) UpdateUser(ctx context.Context, userID string, update UserUpdate) (model.User, error) {
	row := s.pool.QueryRow(ctx, `
		UPDATE users
		SET email = COALESCE($2, email),
			password_hash = COALESCE($3, password_hash),
			first_name = COALESCE($4, first_name),
			last_name = COALESCE($5, last_name),
			student_number = COALESCE($6, student_number),
			updated_at = $7
		WHERE id = $1
		RETURNING `+userColumns+`
	`, userID, update.Email, update.PasswordHash, update.FirstName, update.LastName, update.StudentNumber, time.Now().UTC())
	return scanUser(row)
}

func (s *Store) DeleteUser(ctx context.Context, userID string) (bool, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, userID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (model.User, error) {
	var user model.User
	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.PasswordHash,
		&user.FirstName,
		&user.LastName,
		&user.Role,
		&user.StudentNumber,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	return user, err
}
