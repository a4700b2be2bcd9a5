// Package results provides the per-batch result store and the two export
// paths: the lossless full dump and the flattened tabular summary.
package results

import (
	"encoding/json"
	"time"

	"github.com/transitlab/route-miner/pkg/query"
)

// Record is the outcome of one dispatched task: the originating spec, the
// raw response or failure reason, and the actual dispatch instant. Exactly
// one record is appended per scheduled task, in dispatch completion order.
type Record struct {
	Spec query.Spec `json:"spec"`

	// Raw is the verbatim response body on success; nil on failure.
	Raw json.RawMessage `json:"raw,omitempty"`

	// FailureReason is set when the dispatch failed; empty on success.
	FailureReason string `json:"failure_reason,omitempty"`

	// DispatchedAt is the instant the call actually went out.
	DispatchedAt time.Time `json:"dispatched_at"`

	// Estimate marks auxiliary records produced by arrival-time estimation
	// calls; they are not primary mining results.
	Estimate bool `json:"estimate,omitempty"`
}

// Succeeded reports whether the dispatch produced a response.
func (r Record) Succeeded() bool {
	return r.FailureReason == ""
}

// Document decodes the raw response for extraction-path walking. Failed
// records have no document.
func (r Record) Document() (any, bool) {
	if len(r.Raw) == 0 {
		return nil, false
	}
	var doc any
	if err := json.Unmarshal(r.Raw, &doc); err != nil {
		return nil, false
	}
	return doc, true
}
