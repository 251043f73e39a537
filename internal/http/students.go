package http

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/jeffersonbalde/syborg-portal/internal/crypto"
	"github.com/jeffersonbalde/syborg-portal/internal/model"
	"github.com/jeffersonbalde/syborg-portal/internal/repository"
)

type studentSummary struct {
	ID            string `json:"id"`
	FirstName     string `json:"firstname"`
	LastName      string `json:"lastname"`
	Email         string `json:"email"`
	StudentNumber string `json:"studentNumber"`
	CreatedOn     int64  `json:"createdOn"`
}

type studentPageResponse struct {
	Items   []studentSummary `json:"items"`
	Total   int64            `json:"total"`
	Page    int32            `json:"page"`
	PerPage int32            `json:"perPage"`
}

func (s *Server) handleListStudents(w http.ResponseWriter, r *http.Request) {
	page := parsePositiveInt32(r.URL.Query().Get("page"), 1)
	perPage := parsePositiveInt32(r.URL.Query().Get("perPage"), 10)
	if perPage > 100 {
		perPage = 100
	}
	search := strings.TrimSpace(r.URL.Query().Get("search"))

	result, err := s.store.ListStudents(r.Context(), search, page, perPage)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}

	items := make([]studentSummary, 0, len(result.Items))
	for _, student := range result.Items {
		items = append(items, mapStudentSummary(student))
	}
	writeJSON(w, http.StatusOK, studentPageResponse{
		Items:   items,
		Total:   result.Total,
		Page:    result.Page,
		PerPage: result.PerPage,
	})
}

type createStudentRequest struct {
	Email         string `json:"email"`
	Password      string `json:"password"`
	FirstName     string `json:"firstname"`
	LastName      string `json:"lastname"`
	StudentNumber string `json:"studentNumber"`
}

func (s *Server) handleCreateStudent(w http.ResponseWriter, r *http.Request) {
	var req createStudentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}

	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	req.StudentNumber = strings.TrimSpace(req.StudentNumber)
	if req.Email == "" || req.Password == "" || req.FirstName == "" || req.LastName == "" || req.StudentNumber == "" {
		writeError(w, http.StatusBadRequest, "missing_fields")
		return
	}

	hash, err := crypto.HashPassword(req.Password)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "password_hash_failed")
		return
	}

	now := time.Now().UTC()
	user := model.User{
		ID:            uuid.NewString(),
		Email:         req.Email,
		PasswordHash:  hash,
		FirstName:     req.FirstName,
		LastName:      req.LastName,
		Role:          model.RoleStudent,
		StudentNumber: &req.StudentNumber,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := s.store.CreateUser(r.Context(), user); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			writeError(w, http.StatusConflict, "student_exists")
			return
		}
		writeError(w, http.StatusBadRequest, "student_create_failed")
		return
	}

	writeJSON(w, http.StatusCreated, mapStudentSummary(user))
}

func (s *Server) handleGetStudent(w http.ResponseWriter, r *http.Request) {
	studentID := chi.URLParam(r, "studentId")
	if studentID == "" {
		writeError(w, http.StatusBadRequest, "missing_student_id")
		return
	}

	user, err := s.store.GetUserByID(r.Context(), studentID)
	if err != nil || user.Role != model.RoleStudent {
		writeError(w, http.StatusNotFound, "student_not_found")
		return
	}

	writeJSON(w, http.StatusOK, mapStudentSummary(user))
}

type patchStudentRequest struct {
	Email         *string `json:"email,omitempty"`
	Password      *string `json:"password,omitempty"`
	FirstName     *string `json:"firstname,omitempty"`
	LastName      *string `json:"lastname,omitempty"`
	StudentNumber *string `json:"studentNumber,omitempty"`
}

func (s *Server) handlePatchStudent(w http.ResponseWriter, r *http.Request) {
	studentID := chi.URLParam(r, "studentId")
	if studentID == "" {
		writeError(w, http.StatusBadRequest, "missing_student_id")
		return
	}

	existing, err := s.store.GetUserByID(r.Context(), studentID)
	if err != nil || existing.Role != model.RoleStudent {
		writeError(w, http.StatusNotFound, "student_not_found")
		return
	}

	var req patchStudentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}

	update := repository.UserUpdate{}
	if req.Email != nil {
		email := strings.TrimSpace(strings.ToLower(*req.Email))
		if email != "" {
			update.Email = &email
		}
	}
	if req.FirstName != nil {
		first := strings.TrimSpace(*req.FirstName)
		if first != "" {
			update.FirstName = &first
		}
	}
	if req.LastName != nil {
		last := strings.TrimSpace(*req.LastName)
		if last != "" {
			update.LastName = &last
		}
	}
	if req.StudentNumber != nil {
		number := strings.TrimSpace(*req.StudentNumber)
		if number != "" {
			update.StudentNumber = &number
		}
	}
	if req.Password != nil && strings.TrimSpace(*req.Password) != "" {
		hash, err := crypto.HashPassword(*req.Password)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "password_hash_failed")
			return
		}
		update.PasswordHash = &hash
	}

	user, err := s.store.UpdateUser(r.Context(), studentID, update)
	if err != nil {
		writeError(w, http.StatusBadRequest, "update_failed")
		return
	}

	writeJSON(w, http.StatusOK, mapStudentSummary(user))
}

func (s *Server) handleDeleteStudent(w http.ResponseWriter, r *http.Request) {
	studentID := chi.URLParam(r, "studentId")
	if studentID == "" {
		writeError(w, http.StatusBadRequest, "missing_student_id")
		return
	}

	existing, err := s.store.GetUserByID(r.Context(), studentID)
	if err != nil || existing.Role != model.RoleStudent {
		if err != nil && !errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusInternalServerError, "server_error")
			return
		}
		writeError(w, http.StatusNotFound, "student_not_found")
		return
	}

	deleted, err := s.store.DeleteUser(r.Context(), studentID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	if !deleted {
		writeError(w, http.StatusNotFound, "student_not_found")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func mapStudentSummary(user model.User) studentSummary {
	summary := studentSummary{
		ID:        user.ID,
		FirstName: user.FirstName,
		LastName:  user.LastName,
		Email:     user.Email,
		CreatedOn: user.CreatedAt.Unix(),
	}
	if user.StudentNumber != nil {
		summary.StudentNumber = *user.StudentNumber
	}
	return summary
}

func parsePositiveInt32(raw string, fallback int32) int32 {
	if raw == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil || parsed < 1 {
		return fallback
	}
	return int32(parsed)
}
