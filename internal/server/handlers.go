package server

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/iptvdeck/iptvdeck/internal/cache"
	"github.com/iptvdeck/iptvdeck/internal/epg"
	"github.com/iptvdeck/iptvdeck/internal/history"
	"github.com/iptvdeck/iptvdeck/internal/xtream"
)

func kindFromRequest(r *http.Request) (xtream.ContentKind, bool) {
	switch chi.URLParam(r, "kind") {
	case "live":
		return xtream.KindLive, true
	case "vod", "movie":
		return xtream.KindMovie, true
	case "series":
		return xtream.KindSeries, true
	default:
		return "", false
	}
}

func cacheOpts(r *http.Request) cache.Options {
	return cache.Options{ForceRefresh: r.URL.Query().Get("refresh") == "1"}
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	kind, ok := kindFromRequest(r)
	if !ok {
		writeJSON(w, http.StatusBadRequest, apiError{Error: "unknown content kind"})
		return
	}
	cats, err := s.catalog.Categories(r.Context(), kind, cacheOpts(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cats)
}

func (s *Server) handleStreams(w http.ResponseWriter, r *http.Request) {
	kind, ok := kindFromRequest(r)
	if !ok {
		writeJSON(w, http.StatusBadRequest, apiError{Error: "unknown content kind"})
		return
	}
	categoryID := r.URL.Query().Get("category")
	opts := cacheOpts(r)

	var (
		payload any
		err     error
	)
	switch kind {
	case xtream.KindLive:
		payload, err = s.catalog.LiveStreams(r.Context(), categoryID, opts)
	case xtream.KindMovie:
		payload, err = s.catalog.VodStreams(r.Context(), categoryID, opts)
	default:
		payload, err = s.catalog.Series(r.Context(), categoryID, opts)
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, payload)
}

func (s *Server) handleSeriesInfo(w http.ResponseWriter, r *http.Request) {
	info, err := s.catalog.SeriesInfo(r.Context(), chi.URLParam(r, "seriesID"), cacheOpts(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

type epgResponse struct {
	NowNext  epg.NowNext   `json:"now_next"`
	Progress int           `json:"progress"`
	Listings []epg.Listing `json:"listings"`
}

func (s *Server) handleEPG(w http.ResponseWriter, r *http.Request) {
	channelID := chi.URLParam(r, "channelID")
	listings, err := s.epg.Window(r.Context(), channelID, cacheOpts(r))
	if err != nil {
		writeError(w, err)
		return
	}
	nn, err := s.epg.NowNext(r.Context(), channelID)
	if err != nil {
		writeError(w, err)
		return
	}
	resp := epgResponse{NowNext: nn, Listings: listings}
	if nn.Current != nil {
		resp.Progress = epg.ProgressPercent(*nn.Current, s.epg.Now())
	}
	writeJSON(w, http.StatusOK, resp)
}

type resolveResponse struct {
	URL string `json:"url"`
}

func (s *Server) handleResolve(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	kind := xtream.ContentKind(q.Get("kind"))
	id := q.Get("id")
	ext := q.Get("ext")
	if ext == "" && kind == xtream.KindLive {
		ext = s.cfg.StreamExt
	}

	u, err := s.resolver.StreamURL(kind, id, ext)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, apiError{Error: "invalid resolve request"})
		return
	}
	writeJSON(w, http.StatusOK, resolveResponse{URL: u})
}

func (s *Server) handleRecent(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	entries, err := s.history.Recent(r.Context(), limit)
	if err != nil {
		writeError(w, err)
		return
	}
	if entries == nil {
		entries = []history.Entry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) handleSaveProgress(w http.ResponseWriter, r *http.Request) {
	var e history.Entry
	if err := json.NewDecoder(r.Body).Decode(&e); err != nil {
		writeJSON(w, http.StatusBadRequest, apiError{Error: "invalid progress payload"})
		return
	}
	if err := s.history.SaveProgress(r.Context(), e); err != nil {
		writeJSON(w, http.StatusBadRequest, apiError{Error: err.Error()})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDeleteProgress(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if err := s.history.DeleteProgress(r.Context(), q.Get("kind"), q.Get("id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleFavorites(w http.ResponseWriter, r *http.Request) {
	favs, err := s.history.Favorites(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	if favs == nil {
		favs = []history.Favorite{}
	}
	writeJSON(w, http.StatusOK, favs)
}

func (s *Server) handleAddFavorite(w http.ResponseWriter, r *http.Request) {
	var f history.Favorite
	if err := json.NewDecoder(r.Body).Decode(&f); err != nil {
		writeJSON(w, http.StatusBadRequest, apiError{Error: "invalid favorite payload"})
		return
	}
	if err := s.history.AddFavorite(r.Context(), f); err != nil {
		writeJSON(w, http.StatusBadRequest, apiError{Error: err.Error()})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRemoveFavorite(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if err := s.history.RemoveFavorite(r.Context(), q.Get("kind"), q.Get("id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
