package http

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"

	"github.com/jeffersonbalde/syborg-portal/internal/auth"
	"github.com/jeffersonbalde/syborg-portal/internal/crypto"
	"github.com/jeffersonbalde/syborg-portal/internal/model"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Status string      `json:"status"`
	User   userSummary `json:"user"`
	Role   string      `json:"role"`
	Token  string      `json:"token"`
}

type sessionResponse struct {
	User userSummary `json:"user"`
	Role string      `json:"role"`
}

type userSummary struct {
	ID            string  `json:"id"`
	Email         string  `json:"email"`
	FirstName     string  `json:"firstname"`
	LastName      string  `json:"lastname"`
	StudentNumber *string `json:"studentNumber,omitempty"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "missing_credentials")
		return
	}

	user, err := s.store.GetUserByEmail(r.Context(), req.Email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusUnauthorized, "invalid_credentials")
			return
		}
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}

	if err := crypto.CheckPassword(user.PasswordHash, req.Password); err != nil {
		writeError(w, http.StatusUnauthorized, "invalid_credentials")
		return
	}

	token, err := auth.NewAccessToken(s.cfg.JWTSecret, s.cfg.JWTIssuer, s.cfg.AccessTokenTTL, auth.Claims{
		UserID: user.ID,
		Role:   string(user.Role),
		Email:  user.Email,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "token_error")
		return
	}

	writeJSON(w, http.StatusOK, loginResponse{
		Status: "success",
		User:   mapUserSummary(user),
		Role:   string(user.Role),
		Token:  token,
	})
}

// handleLogout revokes the presented token for its remaining lifetime. The
// response is acknowledged even when revocation storage is unavailable, since
// clients clear local state regardless of the outcome.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "missing_token")
		return
	}

	token := bearerToken(r.Header.Get("Authorization"))
	_ = s.revokeToken(r.Context(), token, claims)
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "missing_token")
		return
	}

	user, err := s.store.GetUserByID(r.Context(), claims.UserID)
	if err != nil {
		writeError(w, http.StatusNotFound, "user_not_found")
		return
	}

	writeJSON(w, http.StatusOK, sessionResponse{
		User: mapUserSummary(user),
		Role: string(user.Role),
	})
}

type adminDashboardResponse struct {
	Students        int64 `json:"students"`
	Events          int64 `json:"events"`
	AttendanceToday int64 `json:"attendanceToday"`
}

type studentDashboardResponse struct {
	Events       int64 `json:"events"`
	MyAttendance int64 `json:"myAttendance"`
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "missing_token")
		return
	}

	events, err := s.store.CountEvents(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}

	switch claims.Role {
	case string(model.RoleAdmin):
		students, err := s.store.CountStudents(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, "server_error")
			return
		}
		midnight := time.Now().UTC().Truncate(24 * time.Hour)
		today, err := s.store.CountAttendanceSince(r.Context(), midnight)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "server_error")
			return
		}
		writeJSON(w, http.StatusOK, adminDashboardResponse{
			Students:        students,
			Events:          events,
			AttendanceToday: today,
		})
	case string(model.RoleStudent):
		mine, err := s.store.CountAttendanceByStudent(r.Context(), claims.UserID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "server_error")
			return
		}
		writeJSON(w, http.StatusOK, studentDashboardResponse{
			Events:       events,
			MyAttendance: mine,
		})
	default:
		writeError(w, http.StatusForbidden, "forbidden")
	}
}

// Token revocation

func (s *Server) revokeToken(ctx context.Context, token string, claims *auth.Claims) error {
	if s.redis == nil || token == "" {
		return nil
	}
	ttl := s.cfg.AccessTokenTTL
	if claims.ExpiresAt != nil {
		remaining := time.Until(claims.ExpiresAt.Time)
		if remaining <= 0 {
			return nil
		}
		ttl = remaining
	}
	return s.redis.Set(ctx, revokedTokenKey(token), "1", ttl).Err()
}

func (s *Server) isTokenRevoked(ctx context.Context, token string) (bool, error) {
	if s.redis == nil {
		return false, nil
	}
	_, err := s.redis.Get(ctx, revokedTokenKey(token)).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func revokedTokenKey(token string) string {
	return "revoked_token:" + crypto.HashToken(token)
}

func mapUserSummary(user model.User) userSummary {
	return userSummary{
		ID:            user.ID,
		Email:         user.Email,
		FirstName:     user.FirstName,
		LastName:      user.LastName,
		StudentNumber: user.StudentNumber,
	}
}
