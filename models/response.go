package models

// APIResponse is the envelope of every JSON API reply.
type APIResponse struct {
	// Success indicates whether the request completed without errors.
	Success bool `json:"success"`

	// Data carries the payload when Success is true.
	Data any `json:"data,omitempty"`

	// Meta carries pagination or counters where relevant.
	Meta any `json:"meta,omitempty"`

	// Error is populated only when Success is false.
	Error *ErrorDetail `json:"error,omitempty"`
}

// CommentsMeta describes a page of comments returned by the JSON API.
type CommentsMeta struct {
	Page    int  `json:"page"`
	Count   int  `json:"count"`
	HasMore bool `json:"hasMore"`
}

// HealthResponse is the response for GET /api/v1/health.
type HealthResponse struct {
	Status     string     `json:"status"` // "healthy" or "degraded"
	Uptime     string     `json:"uptime"`
	CMS        string     `json:"cms"` // "reachable" or "unreachable"
	CacheStats CacheStats `json:"cache_stats"`
	Version    string     `json:"version"`
}

// CacheStats reports the state of the feed cache.
type CacheStats struct {
	Entries    int   `json:"entries"`
	MaxEntries int   `json:"max_entries"`
	Hits       int64 `json:"hits"`
	Misses     int64 `json:"misses"`
}
