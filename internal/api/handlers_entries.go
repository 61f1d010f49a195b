package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/iammorganparry/clive/apps/semcache/internal/memory"
	"github.com/iammorganparry/clive/apps/semcache/internal/models"
)

const (
	defaultSampleCount = 10
	maxSampleCount     = 1000
	defaultTopK        = 10
	maxTopK            = 500
)

type EntryHandler struct {
	svc *memory.Service
}

func NewEntryHandler(svc *memory.Service) *EntryHandler {
	return &EntryHandler{svc: svc}
}

// Get handles GET /entries/{id}
func (h *EntryHandler) Get(w http.ResponseWriter, r *http.Request) {
	e, err := h.svc.Get(chi.URLParam(r, "id"))
	if errors.Is(err, memory.ErrNotFound) {
		writeError(w, http.StatusNotFound, "entry not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, e)
}

// Sample handles GET /entries/sample?count=k
func (h *EntryHandler) Sample(w http.ResponseWriter, r *http.Request) {
	count := defaultSampleCount
	if v := r.URL.Query().Get("count"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "count must be a non-negative integer")
			return
		}
		count = min(n, maxSampleCount)
	}

	entries := h.svc.SampleWeighted(count)
	if entries == nil {
		entries = []*models.CacheEntry{}
	}
	writeJSON(w, http.StatusOK, models.EntriesResponse{Entries: entries})
}

// QueryTags handles POST /entries/query/tags
func (h *EntryHandler) QueryTags(w http.ResponseWriter, r *http.Request) {
	var req models.TagQueryRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.MinOverlap < 0 || req.MinOverlap > 1 {
		writeError(w, http.StatusBadRequest, "minOverlap must be in [0,1]")
		return
	}

	entries := h.svc.QueryByTags(req.Tags, req.MinOverlap)
	if entries == nil {
		entries = []*models.CacheEntry{}
	}
	writeJSON(w, http.StatusOK, models.EntriesResponse{Entries: entries})
}

// QueryVector handles POST /entries/query/vector
func (h *EntryHandler) QueryVector(w http.ResponseWriter, r *http.Request) {
	var req models.VectorQueryRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if len(req.Vector) == 0 && req.Text == "" {
		writeError(w, http.StatusBadRequest, "vector or text is required")
		return
	}
	topK := req.TopK
	if topK <= 0 {
		topK = defaultTopK
	}
	topK = min(topK, maxTopK)

	var (
		results []models.ScoredEntry
		err     error
	)
	if len(req.Vector) > 0 {
		results, err = h.svc.QueryByVector(req.Vector, topK)
	} else {
		results, err = h.svc.QueryByText(req.Text, topK)
	}
	if errors.Is(err, memory.ErrInvalidVector) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, models.VectorQueryResponse{Results: results})
}

// Stats handles GET /stats
func (h *EntryHandler) Stats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Stats())
}

// Consolidate handles POST /consolidate
func (h *EntryHandler) Consolidate(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Consolidate())
}
