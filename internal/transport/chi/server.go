// Package chi is the HTTP transport of the face service.
package chi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/facedex/internal/domain"
	dombatch "github.com/kailas-cloud/facedex/internal/domain/batch"
	"github.com/kailas-cloud/facedex/internal/domain/search/request"
	"github.com/kailas-cloud/facedex/internal/domain/search/result"
	"github.com/kailas-cloud/facedex/internal/source"
	batchuc "github.com/kailas-cloud/facedex/internal/usecase/batch"
	healthuc "github.com/kailas-cloud/facedex/internal/usecase/health"
	"github.com/kailas-cloud/facedex/internal/version"
)

// ServiceName is reported by the health endpoint.
const ServiceName = "Face Recognition Service"

const multipartMemory = 8 << 20

// Extractor turns one image source into one face embedding.
type Extractor interface {
	Extract(ctx context.Context, src source.Source) (domain.Embedding, error)
}

// Searcher ranks a candidate pool.
type Searcher interface {
	Search(ctx context.Context, req *request.Request) []result.Match
}

// BatchExtractor extracts many images per call.
type BatchExtractor interface {
	Extract(ctx context.Context, items []batchuc.Item) (dombatch.Report, error)
}

// HealthChecker reports component health.
type HealthChecker interface {
	Check(ctx context.Context) healthuc.Report
}

// Options tune request handling.
type Options struct {
	// DefaultThreshold applies when a search request carries no usable threshold.
	DefaultThreshold float64
	// MaxBodyBytes caps request bodies; zero disables the limit.
	MaxBodyBytes int64
	// RequestTimeout bounds every face API request; zero disables the deadline.
	RequestTimeout time.Duration
}

// Server holds the HTTP handlers.
type Server struct {
	extract       Extractor
	search        Searcher
	batch         BatchExtractor
	health        HealthChecker
	opts          Options
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(
	extract Extractor,
	search Searcher,
	batch BatchExtractor,
	health HealthChecker,
	opts Options,
	logger *zap.Logger,
) *Server {
	s := &Server{
		extract: extract,
		search:  search,
		batch:   batch,
		health:  health,
		opts:    opts,
		logger:  logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(errRequestTooLarge, http.StatusRequestEntityTooLarge),
		sentinelHandler(domain.ErrNoImageInput, http.StatusBadRequest),
		sentinelHandler(domain.ErrInvalidBase64, http.StatusBadRequest),
		sentinelHandler(domain.ErrInvalidQueryEmbedding, http.StatusBadRequest),
		sentinelHandler(domain.ErrBatchTooLarge, http.StatusBadRequest),
		extractionFailureHandler,
	}
	return s
}

// ExtractEmbedding handles POST /api/face/extract-embedding.
// Inputs are checked in order: multipart "image", JSON "imageBase64", JSON "imageUrl".
func (s *Server) ExtractEmbedding(w http.ResponseWriter, r *http.Request) {
	s.limitBody(w, r)

	src, err := sourceFromRequest(r)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	emb, err := s.extract.Extract(r.Context(), src)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, extractResponse{
		Success:      true,
		Embedding:    emb,
		FaceDetected: true,
	})
}

// ExtractEmbeddings handles POST /api/face/extract-embeddings.
func (s *Server) ExtractEmbeddings(w http.ResponseWriter, r *http.Request) {
	s.limitBody(w, r)

	var req batchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if tooLarge(err) {
			s.handleDomainError(w, r, errRequestTooLarge)
			return
		}
		writeJSON(w, http.StatusBadRequest, failureResponse{Error: "items must be an array"})
		return
	}

	report, err := s.batch.Extract(r.Context(), batchItemsFromRequest(req))
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	results := make([]batchResultItem, len(report.Results))
	for i, res := range report.Results {
		results[i] = batchResultToResponse(res)
	}

	writeJSON(w, http.StatusOK, batchResponse{
		Success:    true,
		Total:      report.Total,
		Processed:  report.Processed,
		Successful: report.Successful,
		Failed:     report.Failed,
		Skipped:    report.Skipped,
		Results:    results,
	})
}

// SearchSimilar handles POST /api/face/search-similar.
func (s *Server) SearchSimilar(w http.ResponseWriter, r *http.Request) {
	s.limitBody(w, r)

	var body searchBody
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	if err := dec.Decode(&body); err != nil {
		if tooLarge(err) {
			s.handleDomainError(w, r, errRequestTooLarge)
			return
		}
		body = searchBody{}
	}

	if body.QueryEmbedding == nil || body.AllEmbeddings == nil {
		writeJSON(w, http.StatusBadRequest, failureResponse{Error: "queryEmbedding and allEmbeddings are required"})
		return
	}

	var query domain.Embedding
	if err := json.Unmarshal(body.QueryEmbedding, &query); err != nil {
		s.handleDomainError(w, r, fmt.Errorf("%w: %w", domain.ErrInvalidQueryEmbedding, err))
		return
	}

	var rawPool []json.RawMessage
	if err := json.Unmarshal(body.AllEmbeddings, &rawPool); err != nil || rawPool == nil {
		writeJSON(w, http.StatusBadRequest, failureResponse{Error: "allEmbeddings must be an array"})
		return
	}

	req, err := request.New(
		query,
		candidatesFromRaw(rawPool),
		request.ParseTopN(body.TopN),
		request.ParseThreshold(body.Threshold, s.opts.DefaultThreshold),
	)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	matches := s.search.Search(r.Context(), &req)

	writeJSON(w, http.StatusOK, searchResponse{
		Success: true,
		Matches: matchesToResponse(matches),
	})
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, healthResponse{
		Status:  string(report.Status),
		Service: ServiceName,
		Version: version.Version,
		Checks:  checks,
	})
}

func (s *Server) limitBody(w http.ResponseWriter, r *http.Request) {
	if s.opts.MaxBodyBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxBodyBytes)
	}
}

// sourceFromRequest picks the image input. A multipart request without an "image" file and
// a body that is not a JSON object both count as carrying no input.
func sourceFromRequest(r *http.Request) (source.Source, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))

	if mediaType == "multipart/form-data" {
		if err := r.ParseMultipartForm(multipartMemory); err != nil {
			if tooLarge(err) {
				return source.Source{}, errRequestTooLarge
			}
			return source.Source{}, domain.ErrNoImageInput
		}
		file, _, err := r.FormFile("image")
		if err != nil {
			return source.Source{}, domain.ErrNoImageInput
		}
		defer func() { _ = file.Close() }()

		data, err := io.ReadAll(file)
		if err != nil {
			return source.Source{}, fmt.Errorf("read upload: %w", err)
		}
		return source.FromFile(data), nil
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		if tooLarge(err) {
			return source.Source{}, errRequestTooLarge
		}
		return source.Source{}, fmt.Errorf("read body: %w", err)
	}

	var fields map[string]json.RawMessage
	if err := json.NewDecoder(bytes.NewReader(body)).Decode(&fields); err != nil {
		return source.Source{}, domain.ErrNoImageInput
	}

	if raw, ok := fields["imageBase64"]; ok {
		var payload string
		if err := json.Unmarshal(raw, &payload); err != nil {
			return source.Source{}, fmt.Errorf("%w: expected a string", domain.ErrInvalidBase64)
		}
		return source.FromBase64(payload), nil
	}
	if raw, ok := fields["imageUrl"]; ok {
		var u string
		if err := json.Unmarshal(raw, &u); err != nil {
			return source.Source{}, fmt.Errorf("%w: imageUrl must be a string", domain.ErrDownloadFailed)
		}
		return source.FromURL(u), nil
	}
	return source.Source{}, domain.ErrNoImageInput
}

func tooLarge(err error) bool {
	var mbe *http.MaxBytesError
	return errors.As(err, &mbe)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
