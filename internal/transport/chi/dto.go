package chi

import (
	"encoding/json"
	"strings"

	"github.com/kailas-cloud/facedex/internal/domain"
	dombatch "github.com/kailas-cloud/facedex/internal/domain/batch"
	"github.com/kailas-cloud/facedex/internal/domain/search/request"
	"github.com/kailas-cloud/facedex/internal/domain/search/result"
	batchuc "github.com/kailas-cloud/facedex/internal/usecase/batch"
)

type errorResponse struct {
	Error string `json:"error"`
}

type failureResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

type extractResponse struct {
	Success      bool             `json:"success"`
	Embedding    domain.Embedding `json:"embedding"`
	FaceDetected bool             `json:"faceDetected"`
	Error        *string          `json:"error"`
}

type matchItem struct {
	UserID     string  `json:"userId"`
	Similarity float64 `json:"similarity"`
}

type searchResponse struct {
	Success bool        `json:"success"`
	Matches []matchItem `json:"matches"`
}

type healthResponse struct {
	Status  string            `json:"status"`
	Service string            `json:"service"`
	Version string            `json:"version"`
	Checks  map[string]string `json:"checks"`
}

type batchRequest struct {
	Items []batchRequestItem `json:"items"`
}

type batchRequestItem struct {
	ID          string `json:"id"`
	ImageURL    string `json:"imageUrl"`
	ImageBase64 string `json:"imageBase64"`
}

type batchResultItem struct {
	ID        string           `json:"id"`
	Status    string           `json:"status"`
	Success   bool             `json:"success"`
	Embedding domain.Embedding `json:"embedding"`
	Error     *string          `json:"error"`
}

type batchResponse struct {
	Success    bool              `json:"success"`
	Total      int               `json:"total"`
	Processed  int               `json:"processed"`
	Successful int               `json:"successful"`
	Failed     int               `json:"failed"`
	Skipped    int               `json:"skipped"`
	Results    []batchResultItem `json:"results"`
}

// searchBody keeps every field raw: presence, array shape and loose typing are
// checked separately so each failure gets its own message.
type searchBody struct {
	QueryEmbedding json.RawMessage `json:"queryEmbedding"`
	AllEmbeddings  json.RawMessage `json:"allEmbeddings"`
	TopN           any             `json:"topN"`
	Threshold      any             `json:"threshold"`
}

type candidateBody struct {
	UserID    json.RawMessage `json:"userId"`
	Embedding json.RawMessage `json:"embedding"`
}

func matchesToResponse(matches []result.Match) []matchItem {
	items := make([]matchItem, len(matches))
	for i := range matches {
		items[i] = matchItem{UserID: matches[i].ID(), Similarity: matches[i].Similarity()}
	}
	return items
}

// candidatesFromRaw converts pool elements leniently. Elements that are not objects, or whose
// fields have the wrong type, become invalid candidates and are skipped by the engine.
func candidatesFromRaw(raw []json.RawMessage) []request.Candidate {
	pool := make([]request.Candidate, len(raw))
	for i, el := range raw {
		var c candidateBody
		if json.Unmarshal(el, &c) != nil {
			continue
		}
		pool[i].ID = candidateID(c.UserID)
		var emb domain.Embedding
		if json.Unmarshal(c.Embedding, &emb) == nil {
			pool[i].Embedding = emb
		}
	}
	return pool
}

// candidateID accepts string and numeric user IDs.
func candidateID(raw json.RawMessage) string {
	var s string
	if json.Unmarshal(raw, &s) == nil {
		return s
	}
	var n json.Number
	if json.Unmarshal(raw, &n) == nil {
		return n.String()
	}
	return ""
}

func batchItemsFromRequest(req batchRequest) []batchuc.Item {
	items := make([]batchuc.Item, len(req.Items))
	for i, it := range req.Items {
		items[i] = batchuc.Item{
			ID:          it.ID,
			ImageURL:    strings.TrimSpace(it.ImageURL),
			ImageBase64: it.ImageBase64,
		}
	}
	return items
}

func batchResultToResponse(r dombatch.Result) batchResultItem {
	item := batchResultItem{
		ID:        r.ID(),
		Status:    string(r.Status()),
		Success:   r.Status() == dombatch.StatusOK,
		Embedding: r.Embedding(),
	}
	if r.Err() != nil {
		msg := failureMessage(r.Err())
		item.Error = &msg
	}
	return item
}
