package http

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/jeffersonbalde/syborg-portal/internal/model"
	"github.com/jeffersonbalde/syborg-portal/internal/repository"
)

type slideResponse struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Subtitle string `json:"subtitle,omitempty"`
	ImageURL string `json:"imageUrl"`
	Position int32  `json:"position"`
	Active   bool   `json:"active"`
}

// handleListSlides serves the landing-page hero slider. Anonymous callers see
// only active slides; an authenticated admin sees the full set.
func (s *Server) handleListSlides(w http.ResponseWriter, r *http.Request) {
	activeOnly := true
	if token := bearerToken(r.Header.Get("Authorization")); token != "" {
		if claims, err := s.parseRequestToken(r, token); err == nil && claims.Role == string(model.RoleAdmin) {
			activeOnly = false
		}
	}

	slides, err := s.store.ListSlides(r.Context(), activeOnly)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}

	resp := make([]slideResponse, 0, len(slides))
	for _, slide := range slides {
		resp = append(resp, mapSlideResponse(slide))
	}
	writeJSON(w, http.StatusOK, resp)
}

type createSlideRequest struct {
	Title    string  `json:"title"`
	Subtitle *string `json:"subtitle,omitempty"`
	ImageURL string  `json:"imageUrl"`
	Position *int32  `json:"position,omitempty"`
	Active   *bool   `json:"active,omitempty"`
}

func (s *Server) handleCreateSlide(w http.ResponseWriter, r *http.Request) {
	var req createSlideRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}

	req.Title = strings.TrimSpace(req.Title)
	req.ImageURL = strings.TrimSpace(req.ImageURL)
	if req.Title == "" || req.ImageURL == "" {
		writeError(w, http.StatusBadRequest, "missing_fields")
		return
	}

	now := time.Now().UTC()
	slide := model.Slide{
		ID:        uuid.NewString(),
		Title:     req.Title,
		Subtitle:  req.Subtitle,
		ImageURL:  req.ImageURL,
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if req.Position != nil {
		slide.Position = *req.Position
	}
	if req.Active != nil {
		slide.Active = *req.Active
	}

	if err := s.store.CreateSlide(r.Context(), slide); err != nil {
		writeError(w, http.StatusBadRequest, "slide_create_failed")
		return
	}

	writeJSON(w, http.StatusCreated, mapSlideResponse(slide))
}

type patchSlideRequest struct {
	Title    *string `json:"title,omitempty"`
	Subtitle *string `json:"subtitle,omitempty"`
	ImageURL *string `json:"imageUrl,omitempty"`
	Position *int32  `json:"position,omitempty"`
	Active   *bool   `json:"active,omitempty"`
}

func (s *Server) handlePatchSlide(w http.ResponseWriter, r *http.Request) {
	slideID := chi.URLParam(r, "slideId")
	if slideID == "" {
		writeError(w, http.StatusBadRequest, "missing_slide_id")
		return
	}

	if _, err := s.store.GetSlide(r.Context(), slideID); err != nil {
		writeError(w, http.StatusNotFound, "slide_not_found")
		return
	}

	var req patchSlideRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}

	update := repository.SlideUpdate{
		Subtitle: req.Subtitle,
		Position: req.Position,
		Active:   req.Active,
	}
	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if title != "" {
			update.Title = &title
		}
	}
	if req.ImageURL != nil {
		imageURL := strings.TrimSpace(*req.ImageURL)
		if imageURL != "" {
			update.ImageURL = &imageURL
		}
	}

	slide, err := s.store.UpdateSlide(r.Context(), slideID, update)
	if err != nil {
		writeError(w, http.StatusBadRequest, "update_failed")
		return
	}

	writeJSON(w, http.StatusOK, mapSlideResponse(slide))
}

func (s *Server) handleDeleteSlide(w http.ResponseWriter, r *http.Request) {
	slideID := chi.URLParam(r, "slideId")
	if slideID == "" {
		writeError(w, http.StatusBadRequest, "missing_slide_id")
		return
	}

	deleted, err := s.store.DeleteSlide(r.Context(), slideID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	if !deleted {
		writeError(w, http.StatusNotFound, "slide_not_found")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func mapSlideResponse(slide model.Slide) slideResponse {
	resp := slideResponse{
		ID:       slide.ID,
		Title:    slide.Title,
		ImageURL: slide.ImageURL,
		Position: slide.Position,
		Active:   slide.Active,
	}
	if slide.Subtitle != nil {
		resp.Subtitle = *slide.Subtitle
	}
	return resp
}
