package api

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/okian/vitrine/internal/domain/model"
)

type smartFeedResponse struct {
	Success  bool                    `json:"success"`
	Products []model.ScoredCandidate `json:"products"`
}

type analyticsResponse struct {
	Success bool `json:"success"`
	model.Analytics
}

type promoteRequest struct {
	Days int `json:"days" validate:"required,min=1,max=365"`
}

type promoteResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	model.Promotion
}

func (s *Server) handleSmartFeed(w http.ResponseWriter, r *http.Request) {
	const op = "api.smart_feed"
	feed, err := s.deps.GetSmartFeed(r.Context(), ViewerID(r.Context()), r.URL.Query().Get("city_id"))
	if err != nil {
		writeError(w, r, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, smartFeedResponse{Success: true, Products: feed.Products})
}

func (s *Server) handleAnalytics(w http.ResponseWriter, r *http.Request) {
	const op = "api.analytics"
	a, err := s.deps.Analytics(r.Context())
	if err != nil {
		writeError(w, r, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, analyticsResponse{Success: true, Analytics: a})
}

func (s *Server) handlePromote(kind model.Kind) http.HandlerFunc {
	op := "api.promote_" + string(kind)
	return func(w http.ResponseWriter, r *http.Request) {
		var req promoteRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, r, Wrap(op, fmt.Errorf("%w: %w", ErrBadRequest, err)))
			return
		}
		if err := s.validate.Struct(req); err != nil {
			writeError(w, r, Wrap(op, fmt.Errorf("%w: days must be between 1 and 365", ErrBadRequest)))
			return
		}

		promo, err := s.deps.Promote(r.Context(), kind, chi.URLParam(r, "id"), ViewerID(r.Context()), req.Days)
		if err != nil {
			writeError(w, r, Wrap(op, err))
			return
		}
		writeJSON(w, http.StatusOK, promoteResponse{
			Success:   true,
			Message:   fmt.Sprintf("promoted for %d days", promo.Days),
			Promotion: promo,
		})
	}
}
