// Package batch holds per-item results and counters of a batch extraction.
package batch

import "github.com/kailas-cloud/facedex/internal/domain"

// ItemStatus is the processing outcome of a single batch item.
type ItemStatus string

// Batch item status values.
const (
	StatusOK      ItemStatus = "ok"
	StatusError   ItemStatus = "error"
	StatusSkipped ItemStatus = "skipped"
)

// Result is the outcome of processing one item in a batch operation.
type Result struct {
	id        string
	status    ItemStatus
	embedding domain.Embedding
	err       error
}

// NewOK creates a successful batch result.
func NewOK(id string, emb domain.Embedding) Result {
	return Result{id: id, status: StatusOK, embedding: emb}
}

// NewError creates a failed batch result.
func NewError(id string, err error) Result { return Result{id: id, status: StatusError, err: err} }

// NewSkipped creates a result for an item that carried no usable input.
func NewSkipped(id string, reason error) Result {
	return Result{id: id, status: StatusSkipped, err: reason}
}

// ID returns the item identifier.
func (r Result) ID() string { return r.id }

// Status returns the processing outcome.
func (r Result) Status() ItemStatus { return r.status }

// Embedding returns the extracted embedding, nil unless the status is StatusOK.
func (r Result) Embedding() domain.Embedding { return r.embedding }

// Err returns the error, if any.
func (r Result) Err() error { return r.err }

// Report aggregates the results of one batch call. Results keep input order.
// Processed counts items that reached extraction: Processed = Successful + Failed,
// Total = Processed + Skipped.
type Report struct {
	Results    []Result
	Total      int
	Processed  int
	Successful int
	Failed     int
	Skipped    int
}

// NewReport computes the counters over results.
func NewReport(results []Result) Report {
	r := Report{Results: results, Total: len(results)}
	for _, res := range results {
		switch res.status {
		case StatusOK:
			r.Successful++
		case StatusError:
			r.Failed++
		case StatusSkipped:
			r.Skipped++
		}
	}
	r.Processed = r.Successful + r.Failed
	return r
}
