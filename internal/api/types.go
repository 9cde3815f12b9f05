package api

// AskRequest is the body of POST /ask.
type AskRequest struct {
	Question string `json:"question"`
}

// SourceResponse is one retrieved chunk in rank order.
type SourceResponse struct {
	ChunkID string  `json:"chunk_id"`
	Page    int     `json:"page"`
	Start   int     `json:"start"`
	End     int     `json:"end"`
	Score   float64 `json:"score"`
	Text    string  `json:"text"`
}

// AskResponse is the body returned by POST /ask.
type AskResponse struct {
	Answer           string           `json:"answer"`
	Sources          []SourceResponse `json:"sources"`
	SecurityFindings []string         `json:"security_findings"`
	Latency          float64          `json:"latency_ms"`
}

// HealthResponse is the body returned by GET /health.
type HealthResponse struct {
	Status string `json:"status"`
	Chunks int    `json:"chunks"`
}

// ErrorResponse carries a failure message and, for pipeline errors, the
// step that failed.
type ErrorResponse struct {
	Error string `json:"error"`
	Op    string `json:"op,omitempty"`
}
