package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/jeffersonbalde/syborg-portal/internal/auth"
	"github.com/jeffersonbalde/syborg-portal/internal/config"
	"github.com/jeffersonbalde/syborg-portal/internal/model"
	"github.com/jeffersonbalde/syborg-portal/internal/repository"
)

type Server struct {
	cfg       config.Config
	store     *repository.Store
	redis     *redis.Client
	qrCodeTTL int64
}

func NewServer(cfg config.Config, store *repository.Store, redisClient *redis.Client) *Server {
	return &Server{
		cfg:       cfg,
		store:     store,
		redis:     redisClient,
		qrCodeTTL: int64(cfg.QRCodeTTL.Seconds()),
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Post("/login", s.handleLogin)
	r.With(s.authMiddleware).Post("/logout", s.handleLogout)
	r.With(s.authMiddleware).Get("/user", s.handleGetUser)
	r.With(s.authMiddleware).Get("/dashboard", s.handleDashboard)

	r.Get("/slides", s.handleListSlides)
	r.With(s.authMiddleware, s.requireRole(model.RoleAdmin)).Post("/slides", s.handleCreateSlide)
	r.With(s.authMiddleware, s.requireRole(model.RoleAdmin)).Patch("/slides/{slideId}", s.handlePatchSlide)
	r.With(s.authMiddleware, s.requireRole(model.RoleAdmin)).Delete("/slides/{slideId}", s.handleDeleteSlide)

	r.Route("/students", func(r chi.Router) {
		r.Use(s.authMiddleware, s.requireRole(model.RoleAdmin))
		r.Get("/", s.handleListStudents)
		r.Post("/", s.handleCreateStudent)
		r.Get("/{studentId}", s.handleGetStudent)
		r.Patch("/{studentId}", s.handlePatchStudent)
		r.Delete("/{studentId}", s.handleDeleteStudent)
	})

	r.With(s.authMiddleware).Get("/events", s.handleListEvents)
	r.With(s.authMiddleware, s.requireRole(model.RoleAdmin)).Post("/events", s.handleCreateEvent)
	r.With(s.authMiddleware).Get("/events/{eventId}", s.handleGetEvent)

	r.With(s.authMiddleware, s.requireRole(model.RoleStudent)).Post("/attendance/qr", s.handleIssueQRCode)
	r.With(s.authMiddleware, s.requireRole(model.RoleAdmin)).Post("/events/{eventId}/attendance", s.handleRecordAttendance)
	r.With(s.authMiddleware, s.requireRole(model.RoleAdmin)).Get("/events/{eventId}/attendance", s.handleListAttendance)

	return r
}

// Auth

type claimsKey struct{}

func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r.Header.Get("Authorization"))
		if token == "" {
			writeError(w, http.StatusUnauthorized, "missing_token")
			return
		}
		claims, err := auth.ParseToken(s.cfg.JWTSecret, s.cfg.JWTIssuer, token)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid_token")
			return
		}
		revoked, err := s.isTokenRevoked(r.Context(), token)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "server_error")
			return
		}
		if revoked {
			writeError(w, http.StatusUnauthorized, "invalid_token")
			return
		}
		ctx := context.WithValue(r.Context(), claimsKey{}, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) requireRole(role model.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims := claimsFromContext(r.Context())
			if claims == nil {
				writeError(w, http.StatusUnauthorized, "missing_token")
				return
			}
			if claims.Role != string(role) {
				writeError(w, http.StatusForbidden, "forbidden")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

var errTokenRevoked = errors.New("token revoked")

func (s *Server) parseRequestToken(r *http.Request, token string) (*auth.Claims, error) {
	claims, err := auth.ParseToken(s.cfg.JWTSecret, s.cfg.JWTIssuer, token)
	if err != nil {
		return nil, err
	}
	revoked, err := s.isTokenRevoked(r.Context(), token)
	if err != nil {
		return nil, err
	}
	if revoked {
		return nil, errTokenRevoked
	}
	return claims, nil
}

func claimsFromContext(ctx context.Context) *auth.Claims {
	value := ctx.Value(claimsKey{})
	claims, _ := value.(*auth.Claims)
	return claims
}

// Utilities

func bearerToken(header string) string {
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func decodeJSON(r *http.Request, out interface{}) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(out)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code string) {
	writeJSON(w, status, map[string]string{"error": code})
}

func parseLimit(r *http.Request, fallback int32) int32 {
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			return int32(parsed)
		}
	}
	return fallback
}
