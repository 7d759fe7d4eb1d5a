package domain

import (
	"errors"
	"fmt"
)

// Pipeline failures. These are reported to callers as a structured
// success:false response rather than as server faults.
var (
	// ErrInvalidImageData signals bytes that cannot be decoded as an image.
	ErrInvalidImageData = errors.New("invalid image data")
	// ErrDownloadFailed signals a failed remote image fetch (network, status, timeout).
	ErrDownloadFailed = errors.New("failed to download image from URL")
	// ErrNoFaceDetected signals an image without any detected face.
	ErrNoFaceDetected = errors.New("no face detected in the image")
	// ErrMultipleFacesDetected signals an image with more than one detected face.
	ErrMultipleFacesDetected = errors.New("multiple faces detected")
	// ErrEmbeddingExtractionFailed signals a failure inside a model stage.
	ErrEmbeddingExtractionFailed = errors.New("embedding extraction failed")
)

// Request validation failures.
var (
	// ErrInvalidQueryEmbedding signals a search query that is not a 128-d vector.
	ErrInvalidQueryEmbedding = errors.New("queryEmbedding must be an array of 128 numbers")
	// ErrInvalidEmbedding signals a vector of the wrong length or with non-finite values.
	ErrInvalidEmbedding = errors.New("invalid embedding")
	// ErrInvalidBase64 signals an undecodable imageBase64 payload.
	ErrInvalidBase64 = errors.New("invalid base64 image")
	// ErrNoImageInput signals an extraction request without any image input.
	ErrNoImageInput = errors.New("image (multipart), imageBase64, or imageUrl is required")
	// ErrBatchTooLarge signals a batch request above the configured item limit.
	ErrBatchTooLarge = errors.New("batch too large")
)

// ErrModelBackend signals an unusable response from the face model backend.
var ErrModelBackend = errors.New("face model backend error")

// MultipleFacesError wraps ErrMultipleFacesDetected with the detected face count.
type MultipleFacesError struct {
	Count int
}

func (e *MultipleFacesError) Error() string {
	return fmt.Sprintf("%s (%d): please upload an image with a single face",
		ErrMultipleFacesDetected.Error(), e.Count)
}

func (e *MultipleFacesError) Unwrap() error { return ErrMultipleFacesDetected }

// NewMultipleFaces creates a multiple faces error.
func NewMultipleFaces(count int) error {
	return &MultipleFacesError{Count: count}
}

var extractionFailures = []error{
	ErrInvalidImageData,
	ErrDownloadFailed,
	ErrNoFaceDetected,
	ErrMultipleFacesDetected,
	ErrEmbeddingExtractionFailed,
}

// IsExtractionFailure reports whether err is an anticipated pipeline failure.
// Anything else reaching the transport layer is an internal fault.
func IsExtractionFailure(err error) bool {
	for _, s := range extractionFailures {
		if errors.Is(err, s) {
			return true
		}
	}
	return false
}
