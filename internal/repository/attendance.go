package repository

import (
	"context"
	"time"

	"github.com/jeffersonbalde/syborg-portal/internal/model"
)

const attendanceColumns = `id, event_id, student_id, time_in, time_out, method, created_at, updated_at`

func (s *Store) GetAttendance(ctx context.Context, eventID, studentID string) (model.AttendanceRecord, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+attendanceColumns+`
		FROM attendance_records
		WHERE event_id = $1 AND student_id = $2
	`, eventID, studentID)
	return scanAttendance(row)
}

func (s *Store) CreateAttendance(ctx context.Context, record model.AttendanceRecord) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO attendance_records (id, event_id, student_id, time_in, time_out, method, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, record.ID, record.EventID, record.StudentID, record.TimeIn, record.TimeOut, record.Method, record.CreatedAt, record.UpdatedAt)
	return err
}

func (s *Store) SetAttendanceTimeOut(ctx context.Context, recordID string, timeOut time.Time) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE attendance_records
		SET time_out = $2, updated_at = $3
		WHERE id = $1
	`, recordID, timeOut, time.Now().UTC())
	return err
}

func (s *Store) ListAttendanceByEvent(ctx context.Context, eventID string, limit int32) ([]model.AttendanceRecord, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+attendanceColumns+`
		FROM attendance_records
		WHERE event_id = $1
		ORDER BY time_in
		LIMIT $2
	`, eventID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := make([]model.AttendanceRecord, 0, limit)
	for rows.Next() {
		record, err := scanAttendance(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

func (s *Store) CountAttendanceByStudent(ctx context.Context, studentID string) (int64, error) {
	var count int64
	err := s.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM attendance_records WHERE student_id = $1
	`, studentID).Scan(&count)
	return count, err
}

func (s *Store) CountAttendanceSince(ctx context.Context, since time.Time) (int64, error) {
	var count int64
	err := s.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM attendance_records WHERE time_in >= $1
	`, since).Scan(&count)
	return count, err
}

func scanAttendance(row rowScanner) (model.AttendanceRecord, error) {
	var record model.AttendanceRecord
	err := row.Scan(
		&record.ID,
		&record.EventID,
		&record.StudentID,
		&record.TimeIn,
		&record.TimeOut,
		&record.Method,
		&record.CreatedAt,
		&record.UpdatedAt,
	)
	return record, err
}
