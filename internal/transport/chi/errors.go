package chi

import (
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/kailas-cloud/facedex/internal/domain"
	logpkg "github.com/kailas-cloud/facedex/internal/logger"
)

const internalErrorMessage = "internal server error"

// errRequestTooLarge signals a request body above the configured limit.
var errRequestTooLarge = errors.New("request body too large")

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error) bool

// failureMessage renders an error for API clients. Known failures get a stable text,
// some followed by the stage detail. Unknown errors never leak their message.
func failureMessage(err error) string {
	var mfe *domain.MultipleFacesError
	switch {
	case errors.As(err, &mfe):
		return "Multiple faces detected. Please upload an image with a single face"
	case errors.Is(err, domain.ErrNoFaceDetected):
		return "No face detected in the image"
	case errors.Is(err, domain.ErrDownloadFailed):
		return "Failed to download image from URL"
	case errors.Is(err, domain.ErrInvalidImageData):
		return withDetail("Invalid image data", err, domain.ErrInvalidImageData)
	case errors.Is(err, domain.ErrEmbeddingExtractionFailed):
		return withDetail("Embedding extraction failed", err, domain.ErrEmbeddingExtractionFailed)
	case errors.Is(err, domain.ErrInvalidBase64):
		return withDetail(domain.ErrInvalidBase64.Error(), err, domain.ErrInvalidBase64)
	case errors.Is(err, domain.ErrNoImageInput):
		return domain.ErrNoImageInput.Error()
	case errors.Is(err, domain.ErrInvalidQueryEmbedding):
		return domain.ErrInvalidQueryEmbedding.Error()
	case errors.Is(err, errRequestTooLarge):
		return errRequestTooLarge.Error()
	case errors.Is(err, domain.ErrBatchTooLarge):
		return withDetail(domain.ErrBatchTooLarge.Error(), err, domain.ErrBatchTooLarge)
	default:
		return internalErrorMessage
	}
}

// withDetail appends whatever follows the sentinel text in err's message (the decoder cause).
func withDetail(prefix string, err, sentinel error) string {
	msg := err.Error()
	marker := sentinel.Error() + ": "
	if i := strings.Index(msg, marker); i >= 0 {
		if detail := msg[i+len(marker):]; detail != "" {
			return prefix + ": " + detail
		}
	}
	return prefix
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int) errorHandler {
	return func(w http.ResponseWriter, err error) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeJSON(w, status, failureResponse{Success: false, Error: failureMessage(err)})
		return true
	}
}

// extractionFailureHandler reports anticipated pipeline failures as a structured
// success:false answer with status 200 so clients can fall back gracefully.
func extractionFailureHandler(w http.ResponseWriter, err error) bool {
	if !domain.IsExtractionFailure(err) {
		return false
	}
	msg := failureMessage(err)
	writeJSON(w, http.StatusOK, extractResponse{Success: false, Error: &msg})
	return true
}

func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	log := logpkg.FromContext(r.Context(), s.logger)
	for _, h := range s.errorHandlers {
		if h(w, err) {
			log.Debug("request failed", zap.Error(err))
			return
		}
	}
	log.Error("internal error", zap.Error(err))
	writeJSON(w, http.StatusInternalServerError, failureResponse{Success: false, Error: internalErrorMessage})
}
