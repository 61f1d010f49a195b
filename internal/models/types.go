package models

import "time"

// IngestStatus is the outcome of one ingestion.
type IngestStatus string

const (
	StatusRejectedDuplicate  IngestStatus = "rejected_duplicate"
	StatusRejectedLowQuality IngestStatus = "rejected_low_quality"
	StatusMerged             IngestStatus = "merged"
	StatusInserted           IngestStatus = "inserted"
)

// Rejection reasons reported alongside rejected_low_quality.
const (
	ReasonLength  = "length"
	ReasonQuality = "quality"
)

// IngestResult is returned from Service.Ingest.
type IngestResult struct {
	Status     IngestStatus `json:"status"`
	EntryID    string       `json:"id,omitempty"`
	Reason     string       `json:"reason,omitempty"`
	Similarity float64      `json:"similarity,omitempty"`
	Degraded   bool         `json:"degraded,omitempty"`
}

// ClusterPattern is a cluster whose share of the store crossed the reporting threshold.
type ClusterPattern struct {
	ClusterID string  `json:"clusterId"`
	Count     int     `json:"count"`
	Share     float64 `json:"share"`
}

// Stats is the aggregate view recomputed by each consolidation.
type Stats struct {
	TotalEntries        int              `json:"totalEntries"`
	AverageWeight       float64          `json:"averageWeight"`
	SelfPerceptionRatio float64          `json:"selfPerceptionRatio"`
	Diversity           float64          `json:"diversity"`
	EmergentPatterns    []ClusterPattern `json:"emergentPatterns"`
	MinQuality          float64          `json:"minQuality"`
	MinUniqueness       float64          `json:"minUniqueness"`
	ComputedAt          time.Time        `json:"computedAt"`
}

// ConsolidationReport summarizes one consolidation pass.
type ConsolidationReport struct {
	DecayPass bool  `json:"decayPass"`
	Decayed   int   `json:"decayed"`
	Removed   int   `json:"removed"`
	Merged    int   `json:"merged"`
	Skipped   int   `json:"skipped"`
	Tuned     bool  `json:"tuned"`
	Stats     Stats `json:"stats"`
}

// IngestRequest is the payload for POST /fragments.
type IngestRequest struct {
	Content   string `json:"content"`
	SourceURL string `json:"sourceUrl,omitempty"`
}

// BulkIngestRequest is the payload for POST /fragments/bulk.
type BulkIngestRequest struct {
	Fragments []IngestRequest `json:"fragments"`
}

// BulkIngestResponse is returned from POST /fragments/bulk.
type BulkIngestResponse struct {
	Inserted   int `json:"inserted"`
	Merged     int `json:"merged"`
	Duplicates int `json:"duplicates"`
	Rejected   int `json:"rejected"`
	Failed     int `json:"failed"`
}

// TagQueryRequest is the payload for POST /entries/query/tags.
type TagQueryRequest struct {
	Tags       []string `json:"tags"`
	MinOverlap float64  `json:"minOverlap"`
}

// VectorQueryRequest is the payload for POST /entries/query/vector.
// Text is embedded server-side when Vector is empty.
type VectorQueryRequest struct {
	Vector []float32 `json:"vector,omitempty"`
	Text   string    `json:"text,omitempty"`
	TopK   int       `json:"topK"`
}

// ScoredEntry is a vector query hit.
type ScoredEntry struct {
	Entry      *CacheEntry `json:"entry"`
	Similarity float64     `json:"similarity"`
}

// EntriesResponse wraps a list of entries.
type EntriesResponse struct {
	Entries []*CacheEntry `json:"entries"`
}

// VectorQueryResponse is returned from POST /entries/query/vector.
type VectorQueryResponse struct {
	Results []ScoredEntry `json:"results"`
}

// HealthResponse is returned from GET /health.
type HealthResponse struct {
	Status      string       `json:"status"`
	Persistence ServiceCheck `json:"persistence"`
	EntryCount  int          `json:"entryCount"`
}

type ServiceCheck struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}
