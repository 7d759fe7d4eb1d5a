package client

import (
	"errors"
	"fmt"
)

// ErrExtractionFailed matches every ExtractionError. Use errors.Is() to check.
var ErrExtractionFailed = errors.New("facedex: face extraction failed")

// ExtractionError is returned when the service processed the image but could not
// produce an embedding: no face, several faces, undecodable image, failed download.
type ExtractionError struct {
	Message string
}

func (e *ExtractionError) Error() string { return "facedex: " + e.Message }

func (e *ExtractionError) Unwrap() error { return ErrExtractionFailed }

// APIError is a non-success HTTP answer from the service.
type APIError struct {
	StatusCode int
	Message    string
	RequestID  string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("facedex: HTTP %d", e.StatusCode)
	}
	return fmt.Sprintf("facedex: HTTP %d: %s", e.StatusCode, e.Message)
}
