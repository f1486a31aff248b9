// Package errors — taxonomy.go adds the closed error-code set the query
// front-end, federation coordinator, and quorum store return to callers.
//
// The wire error surface is {code, message, details{}} with code drawn from
// this closed set. Every constructor still fills Reason/Suggestion per the
// CanonicError convention above; TaxonomyCode is the additional stable
// string identifier callers switch on.
package errors

import "fmt"

// TaxonomyCode is the closed set of wire error codes the core returns.
type TaxonomyCode string

const (
	CodeSyntaxError       TaxonomyCode = "SYNTAX_ERROR"
	CodeValidationError   TaxonomyCode = "VALIDATION_ERROR"
	CodeSecurityDenied    TaxonomyCode = "SECURITY_DENIED"
	CodeResourceLimit     TaxonomyCode = "RESOURCE_LIMIT"
	CodeOptimizeError     TaxonomyCode = "OPTIMIZE_ERROR"
	CodeSourceUnavailable TaxonomyCode = "SOURCE_UNAVAILABLE"
	CodeMergeFailed       TaxonomyCode = "MERGE_FAILED"
	CodeStreamCancelled   TaxonomyCode = "STREAM_CANCELLED"
	CodeInsufficientNodes TaxonomyCode = "INSUFFICIENT_NODES"
	CodeNodeTimeout       TaxonomyCode = "NODE_TIMEOUT"
	CodeInconsistentRead  TaxonomyCode = "INCONSISTENT_READ"
	CodeInternalError     TaxonomyCode = "INTERNAL"
)

// IsTransient reports whether callers should consider retrying. Per spec
// §7: "no automatic retry inside the core" — this only classifies codes,
// it never triggers a retry itself.
func (c TaxonomyCode) IsTransient() bool {
	switch c {
	case CodeNodeTimeout, CodeSourceUnavailable:
		return true
	default:
		return false
	}
}

// TaxonomyError is the error type returned across the query/federation/
// quorum surfaces. It embeds CanonicError for the Reason/Suggestion
// convention and adds a stable TaxonomyCode plus a free-form Details map
// for the wire {code, message, details{}} shape.
type TaxonomyError struct {
	CanonicError
	TaxonomyCode TaxonomyCode
	Details      map[string]any
}

func newTaxonomyError(code TaxonomyCode, message, reason, suggestion string, details map[string]any) *TaxonomyError {
	return &TaxonomyError{
		CanonicError: CanonicError{
			Code:       taxonomyExitCode(code),
			Message:    message,
			Reason:     reason,
			Suggestion: suggestion,
		},
		TaxonomyCode: code,
		Details:      details,
	}
}

func taxonomyExitCode(code TaxonomyCode) ErrorCode {
	switch code {
	case CodeSecurityDenied:
		return CodeAuth
	case CodeSourceUnavailable, CodeNodeTimeout, CodeInsufficientNodes, CodeMergeFailed, CodeInternalError:
		return CodeEngine
	default:
		return CodeValidation
	}
}

// NewSyntaxError reports a lexer/parser failure at a specific position.
func NewSyntaxError(query string, line, column int, detail string) *TaxonomyError {
	return newTaxonomyError(
		CodeSyntaxError,
		"query rejected: syntax error",
		fmt.Sprintf("%s (line %d, column %d)", detail, line, column),
		"check the query syntax against the dialect grammar",
		map[string]any{"query": query, "line": line, "column": column},
	)
}

// NewValidationError reports a semantic/resource validator ERROR result.
func NewValidationError(category, message, context string) *TaxonomyError {
	return newTaxonomyError(
		CodeValidationError,
		message,
		context,
		"fix the referenced table, column, or type mismatch and resubmit",
		map[string]any{"category": category},
	)
}

// NewSecurityDenied reports a missing-permission validator ERROR.
func NewSecurityDenied(required, missing string) *TaxonomyError {
	return newTaxonomyError(
		CodeSecurityDenied,
		"query denied: insufficient permissions",
		fmt.Sprintf("operation requires %q, caller lacks %q", required, missing),
		"request the missing permission from an administrator",
		map[string]any{"required": required, "missing": missing},
	)
}

// NewResourceLimit reports a resource-limit validator breach in strict mode.
func NewResourceLimit(limit string, actual, max int) *TaxonomyError {
	return newTaxonomyError(
		CodeResourceLimit,
		fmt.Sprintf("query exceeds resource limit: %s", limit),
		fmt.Sprintf("%s=%d exceeds configured maximum %d", limit, actual, max),
		"simplify the query or raise the configured limit",
		map[string]any{"limit": limit, "actual": actual, "max": max},
	)
}

// NewOptimizeError reports a logical-optimizer failure.
func NewOptimizeError(reason string) *TaxonomyError {
	return newTaxonomyError(
		CodeOptimizeError,
		"query optimization failed",
		reason,
		"file this as a planner bug; the query parsed and validated successfully",
		nil,
	)
}

// NewSourceUnavailable reports a federation source that failed dispatch.
func NewSourceUnavailable(sourceID, reason string) *TaxonomyError {
	return newTaxonomyError(
		CodeSourceUnavailable,
		fmt.Sprintf("source unavailable: %s", sourceID),
		reason,
		"retry once the source recovers, or exclude it from the query's sources",
		map[string]any{"source_id": sourceID},
	)
}

// NewMergeFailed reports a fatal error merging federated partial results.
func NewMergeFailed(reason string) *TaxonomyError {
	return newTaxonomyError(
		CodeMergeFailed,
		"failed to merge federated results",
		reason,
		"check that all sources return a compatible result schema",
		nil,
	)
}

// NewStreamCancelled reports cooperative cancellation of a stream operator.
func NewStreamCancelled(streamID string) *TaxonomyError {
	return newTaxonomyError(
		CodeStreamCancelled,
		fmt.Sprintf("stream cancelled: %s", streamID),
		"cancellation requested by caller",
		"",
		map[string]any{"stream_id": streamID},
	)
}

// NewInsufficientNodes reports that fewer healthy replicas exist than the
// read/write quorum requires.
func NewInsufficientNodes(key string, need, have int) *TaxonomyError {
	return newTaxonomyError(
		CodeInsufficientNodes,
		"insufficient healthy nodes for quorum",
		fmt.Sprintf("need %d, found %d healthy candidates for key %q", need, have, key),
		"wait for node recovery or reduce the configured quorum size",
		map[string]any{"key": key, "need": need, "have": have},
	)
}

// NewNodeTimeout reports a per-node RPC timeout.
func NewNodeTimeout(nodeID string) *TaxonomyError {
	return newTaxonomyError(
		CodeNodeTimeout,
		fmt.Sprintf("node timed out: %s", nodeID),
		"node did not respond within the configured per-operation timeout",
		"transient; safe to retry against a different node",
		map[string]any{"node_id": nodeID},
	)
}

// NewInconsistentRead reports a non-fatal quorum read inconsistency. The
// caller still receives a best-effort value alongside this error.
func NewInconsistentRead(key string, ackNodes int) *TaxonomyError {
	return newTaxonomyError(
		CodeInconsistentRead,
		fmt.Sprintf("inconsistent replica values for key %q", key),
		fmt.Sprintf("%d nodes responded with divergent values; majority value returned, repair queued", ackNodes),
		"",
		map[string]any{"key": key, "ack_nodes": ackNodes},
	)
}

// NewInternalTaxonomy reports an unexpected internal failure.
func NewInternalTaxonomy(component string, cause error) *TaxonomyError {
	e := newTaxonomyError(
		CodeInternalError,
		fmt.Sprintf("internal error in %s", component),
		cause.Error(),
		"this is likely a bug; check logs for the full stack",
		map[string]any{"component": component},
	)
	e.Cause = cause
	return e
}
