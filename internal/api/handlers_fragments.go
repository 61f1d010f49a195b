package api

import (
	"net/http"

	"github.com/iammorganparry/clive/apps/semcache/internal/memory"
	"github.com/iammorganparry/clive/apps/semcache/internal/models"
)

// maxBulkFragments caps one bulk request.
const maxBulkFragments = 1000

type FragmentHandler struct {
	svc *memory.Service
}

func NewFragmentHandler(svc *memory.Service) *FragmentHandler {
	return &FragmentHandler{svc: svc}
}

// Ingest handles POST /fragments
func (h *FragmentHandler) Ingest(w http.ResponseWriter, r *http.Request) {
	var req models.IngestRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	res, err := h.svc.Ingest(req.Content, req.SourceURL)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	status := http.StatusOK
	if res.Status == models.StatusInserted {
		status = http.StatusCreated
	}
	writeJSON(w, status, res)
}

// BulkIngest handles POST /fragments/bulk
func (h *FragmentHandler) BulkIngest(w http.ResponseWriter, r *http.Request) {
	var req models.BulkIngestRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if len(req.Fragments) == 0 {
		writeError(w, http.StatusBadRequest, "fragments array is required")
		return
	}
	if len(req.Fragments) > maxBulkFragments {
		writeError(w, http.StatusBadRequest, "too many fragments")
		return
	}

	var resp models.BulkIngestResponse
	for _, f := range req.Fragments {
		res, err := h.svc.Ingest(f.Content, f.SourceURL)
		if err != nil {
			resp.Failed++
			continue
		}
		switch res.Status {
		case models.StatusInserted:
			resp.Inserted++
		case models.StatusMerged:
			resp.Merged++
		case models.StatusRejectedDuplicate:
			resp.Duplicates++
		default:
			resp.Rejected++
		}
	}

	writeJSON(w, http.StatusOK, resp)
}
