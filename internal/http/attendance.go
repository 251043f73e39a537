package http

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/redis/go-redis/v9"

	"github.com/jeffersonbalde/syborg-portal/internal/model"
)

type eventResponse struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Location    string `json:"location,omitempty"`
	StartsAt    int64  `json:"startsAt"`
	EndsAt      int64  `json:"endsAt"`
}

func (s *Server) handleListEvents(w http.ResponseWriter, r *http.Request) {
	limit := parseLimit(r, 50)
	events, err := s.store.ListEvents(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}

	resp := make([]eventResponse, 0, len(events))
	for _, event := range events {
		resp = append(resp, mapEventResponse(event))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetEvent(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "eventId")
	if eventID == "" {
		writeError(w, http.StatusBadRequest, "missing_event_id")
		return
	}

	event, err := s.store.GetEvent(r.Context(), eventID)
	if err != nil {
		writeError(w, http.StatusNotFound, "event_not_found")
		return
	}

	writeJSON(w, http.StatusOK, mapEventResponse(event))
}

type createEventRequest struct {
	Title       string  `json:"title"`
	Description *string `json:"description,omitempty"`
	Location    *string `json:"location,omitempty"`
	StartsAt    int64   `json:"startsAt"`
	EndsAt      int64   `json:"endsAt"`
}

func (s *Server) handleCreateEvent(w http.ResponseWriter, r *http.Request) {
	var req createEventRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}

	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" || req.StartsAt == 0 || req.EndsAt == 0 {
		writeError(w, http.StatusBadRequest, "missing_fields")
		return
	}
	if req.EndsAt <= req.StartsAt {
		writeError(w, http.StatusBadRequest, "invalid_schedule")
		return
	}

	event := model.Event{
		ID:          uuid.NewString(),
		Title:       req.Title,
		Description: req.Description,
		Location:    req.Location,
		StartsAt:    time.Unix(req.StartsAt, 0).UTC(),
		EndsAt:      time.Unix(req.EndsAt, 0).UTC(),
		CreatedAt:   time.Now().UTC(),
	}

	if err := s.store.CreateEvent(r.Context(), event); err != nil {
		writeError(w, http.StatusBadRequest, "event_create_failed")
		return
	}

	writeJSON(w, http.StatusCreated, mapEventResponse(event))
}

// QR codes

// handleIssueQRCode hands the calling student a short-lived numeric code that
// an admin scans at the door. The code is single use and bound to the student
// for its TTL.
func (s *Server) handleIssueQRCode(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "missing_token")
		return
	}

	code, err := randomQRCode()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}

	if err := s.storeQRCode(r.Context(), code, claims.UserID); err != nil {
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"code":     code,
		"validity": s.qrCodeTTL,
	})
}

type recordAttendanceRequest struct {
	Code          string `json:"code,omitempty"`
	StudentNumber string `json:"studentNumber,omitempty"`
}

type attendanceResponse struct {
	ID      string `json:"id"`
	Event   string `json:"event"`
	Student string `json:"student"`
	TimeIn  int64  `json:"timeIn"`
	TimeOut *int64 `json:"timeOut,omitempty"`
	Method  string `json:"method"`
}

// handleRecordAttendance takes attendance for one student: the first
// submission records time in, the second records time out, a third conflicts.
func (s *Server) handleRecordAttendance(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "eventId")
	if eventID == "" {
		writeError(w, http.StatusBadRequest, "missing_event_id")
		return
	}

	event, err := s.store.GetEvent(r.Context(), eventID)
	if err != nil {
		writeError(w, http.StatusNotFound, "event_not_found")
		return
	}

	var req recordAttendanceRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}

	req.Code = strings.TrimSpace(req.Code)
	req.StudentNumber = strings.TrimSpace(req.StudentNumber)
	if req.Code == "" && req.StudentNumber == "" {
		writeError(w, http.StatusBadRequest, "missing_student")
		return
	}
	if req.Code != "" && req.StudentNumber != "" {
		writeError(w, http.StatusBadRequest, "ambiguous_student")
		return
	}

	var student model.User
	method := model.AttendanceMethodManual
	if req.Code != "" {
		method = model.AttendanceMethodQR
		studentID, ok, err := s.consumeQRCode(r.Context(), req.Code)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "server_error")
			return
		}
		if !ok {
			writeError(w, http.StatusNotFound, "code_not_found")
			return
		}
		student, err = s.store.GetUserByID(r.Context(), studentID)
		if err != nil || student.Role != model.RoleStudent {
			writeError(w, http.StatusNotFound, "student_not_found")
			return
		}
	} else {
		student, err = s.store.GetUserByStudentNumber(r.Context(), req.StudentNumber)
		if err != nil {
			writeError(w, http.StatusNotFound, "student_not_found")
			return
		}
	}

	now := time.Now().UTC()
	existing, err := s.store.GetAttendance(r.Context(), event.ID, student.ID)
	if err == nil {
		if existing.TimeOut != nil {
			writeError(w, http.StatusConflict, "attendance_complete")
			return
		}
		if err := s.store.SetAttendanceTimeOut(r.Context(), existing.ID, now); err != nil {
			writeError(w, http.StatusInternalServerError, "server_error")
			return
		}
		existing.TimeOut = &now
		writeJSON(w, http.StatusOK, mapAttendanceResponse(existing))
		return
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}

	record := model.AttendanceRecord{
		ID:        uuid.NewString(),
		EventID:   event.ID,
		StudentID: student.ID,
		TimeIn:    now,
		Method:    method,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.CreateAttendance(r.Context(), record); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			writeError(w, http.StatusConflict, "attendance_exists")
			return
		}
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}

	writeJSON(w, http.StatusCreated, mapAttendanceResponse(record))
}

func (s *Server) handleListAttendance(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "eventId")
	if eventID == "" {
		writeError(w, http.StatusBadRequest, "missing_event_id")
		return
	}

	if _, err := s.store.GetEvent(r.Context(), eventID); err != nil {
		writeError(w, http.StatusNotFound, "event_not_found")
		return
	}

	limit := parseLimit(r, 200)
	records, err := s.store.ListAttendanceByEvent(r.Context(), eventID, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}

	resp := make([]attendanceResponse, 0, len(records))
	for _, record := range records {
		resp = append(resp, mapAttendanceResponse(record))
	}
	writeJSON(w, http.StatusOK, resp)
}

// Redis helpers

func randomQRCode() (string, error) {
	max := big.NewInt(100000000)
	value, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%08d", value.Int64()), nil
}

func (s *Server) storeQRCode(ctx context.Context, code, studentID string) error {
	if s.redis == nil {
		return errors.New("redis_not_configured")
	}
	return s.redis.Set(ctx, qrCodeKey(code), studentID, s.cfg.QRCodeTTL).Err()
}

func (s *Server) consumeQRCode(ctx context.Context, code string) (string, bool, error) {
	if s.redis == nil {
		return "", false, errors.New("redis_not_configured")
	}
	value, err := s.redis.GetDel(ctx, qrCodeKey(code)).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

func qrCodeKey(code string) string {
	return fmt.Sprintf("attendance_qr:%s", code)
}

func mapEventResponse(event model.Event) eventResponse {
	resp := eventResponse{
		ID:       event.ID,
		Title:    event.Title,
		StartsAt: event.StartsAt.Unix(),
		EndsAt:   event.EndsAt.Unix(),
	}
	if event.Description != nil {
		resp.Description = *event.Description
	}
	if event.Location != nil {
		resp.Location = *event.Location
	}
	return resp
}

func mapAttendanceResponse(record model.AttendanceRecord) attendanceResponse {
	resp := attendanceResponse{
		ID:      record.ID,
		Event:   record.EventID,
		Student: record.StudentID,
		TimeIn:  record.TimeIn.Unix(),
		Method:  string(record.Method),
	}
	if record.TimeOut != nil {
		timeOut := record.TimeOut.Unix()
		resp.TimeOut = &timeOut
	}
	return resp
}
