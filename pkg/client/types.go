package client

// EmbeddingDim is the length of every face embedding.
const EmbeddingDim = 128

// Candidate is a stored embedding sent back for similarity search.
type Candidate struct {
	UserID    string    `json:"userId"`
	Embedding []float64 `json:"embedding"`
}

// SearchRequest ranks Candidates against Query.
// Zero TopN and nil Threshold use the service defaults (10 and the configured threshold).
type SearchRequest struct {
	Query      []float64
	Candidates []Candidate
	TopN       int
	Threshold  *float64
}

// Match is a ranked search hit, ordered by descending Similarity.
type Match struct {
	UserID     string  `json:"userId"`
	Similarity float64 `json:"similarity"`
}

// BatchItem is one image of a batch extraction. ImageBase64 wins over ImageURL.
type BatchItem struct {
	ID          string `json:"id"`
	ImageURL    string `json:"imageUrl,omitempty"`
	ImageBase64 string `json:"imageBase64,omitempty"`
}

// BatchResult is the outcome of one batch item.
type BatchResult struct {
	ID        string    `json:"id"`
	Status    string    `json:"status"` // ok, error, skipped
	Success   bool      `json:"success"`
	Embedding []float64 `json:"embedding"`
	Error     *string   `json:"error"`
}

// BatchReport summarizes a batch extraction. Results keep the input order.
type BatchReport struct {
	Total      int           `json:"total"`
	Processed  int           `json:"processed"`
	Successful int           `json:"successful"`
	Failed     int           `json:"failed"`
	Skipped    int           `json:"skipped"`
	Results    []BatchResult `json:"results"`
}

// HealthStatus represents the service health.
type HealthStatus struct {
	Status  string            `json:"status"` // "healthy" or "degraded"
	Service string            `json:"service"`
	Version string            `json:"version"`
	Checks  map[string]string `json:"checks"`
}

// Healthy reports whether every component check passed.
func (h HealthStatus) Healthy() bool { return h.Status == "healthy" }
