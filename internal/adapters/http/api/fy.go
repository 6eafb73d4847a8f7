package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	service "github.com/okian/vitrine/internal/app"
	"github.com/okian/vitrine/internal/domain/model"
)

type feedResponse struct {
	Success      bool                    `json:"success"`
	Message      string                  `json:"message"`
	Personalized bool                    `json:"personalized"`
	Videos       []model.ScoredCandidate `json:"videos"`
}

type videoResponse struct {
	Success bool                `json:"success"`
	Video   service.VideoDetail `json:"video"`
}

type counterResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Count   int64  `json:"count"`
}

type viewResponse struct {
	Success  bool   `json:"success"`
	Message  string `json:"message"`
	NewViews int64  `json:"new_views_count"`
}

type likeResponse struct {
	Success  bool   `json:"success"`
	Liked    bool   `json:"liked"`
	NewLikes int64  `json:"new_likes_count"`
	Message  string `json:"message"`
}

func (s *Server) handleFeed(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_feed"
	feed, err := s.deps.GetFeed(r.Context(), ViewerID(r.Context()), s.now())
	if err != nil {
		writeError(w, r, Wrap(op, err))
		return
	}
	msg := "global feed"
	if feed.Personalized {
		msg = "personalized feed"
	}
	writeJSON(w, http.StatusOK, feedResponse{
		Success:      true,
		Message:      msg,
		Personalized: feed.Personalized,
		Videos:       feed.Videos,
	})
}

func (s *Server) handleGetVideo(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_video"
	v, err := s.deps.GetVideo(r.Context(), chi.URLParam(r, "id"), ViewerID(r.Context()))
	if err != nil {
		writeError(w, r, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, videoResponse{Success: true, Video: v})
}

func (s *Server) handleView(w http.ResponseWriter, r *http.Request) {
	const op = "api.record_view"
	n, err := s.deps.RecordView(r.Context(), chi.URLParam(r, "id"), ViewerID(r.Context()))
	if err != nil {
		writeError(w, r, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, viewResponse{Success: true, Message: "view recorded", NewViews: n})
}

func (s *Server) handleProductClick(w http.ResponseWriter, r *http.Request) {
	const op = "api.product_click"
	n, err := s.deps.RecordProductClick(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, counterResponse{Success: true, Message: "product click recorded", Count: n})
}

func (s *Server) handleAttributedSale(w http.ResponseWriter, r *http.Request) {
	const op = "api.attributed_sale"
	n, err := s.deps.RecordAttributedSale(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, counterResponse{Success: true, Message: "sale attributed", Count: n})
}

func (s *Server) handleToggleLike(w http.ResponseWriter, r *http.Request) {
	const op = "api.toggle_like"
	res, err := s.deps.ToggleLike(r.Context(), chi.URLParam(r, "id"), ViewerID(r.Context()))
	if err != nil {
		writeError(w, r, Wrap(op, err))
		return
	}
	msg := "like removed"
	if res.Liked {
		msg = "video liked"
	}
	writeJSON(w, http.StatusOK, likeResponse{Success: true, Liked: res.Liked, NewLikes: res.LikesCount, Message: msg})
}
