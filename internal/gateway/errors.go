package gateway

import (
	"net/http"

	"github.com/canonica-labs/lakequery/internal/errors"
)

// statusForError classifies an internal error into the HTTP status and
// wire ErrorResponse the gateway returns for it. Unrecognized errors map to
// 500 — per docs/plan.md: "Errors must be understandable", so every error
// canonica itself raises is handled explicitly below.
func statusForError(err error) (int, ErrorResponse) {
	switch e := err.(type) {
	case *errors.ErrAuthFailed:
		return http.StatusUnauthorized, resp(e.Message, e.Reason, e.Suggestion)
	case *errors.ErrAccessDenied:
		return http.StatusForbidden, resp(e.Message, e.Reason, e.Suggestion)
	case *errors.ErrTableNotFound:
		return http.StatusNotFound, resp(e.Message, e.Reason, e.Suggestion)
	case *errors.ErrEngineUnavailable:
		return http.StatusServiceUnavailable, resp(e.Message, e.Reason, e.Suggestion)
	case *errors.ErrDatabaseUnavailable:
		return http.StatusInternalServerError, resp(e.Message, e.Reason, e.Suggestion)
	case *errors.ErrMetadataConflict:
		return http.StatusInternalServerError, resp(e.Message, e.Reason, e.Suggestion)
	case *errors.ErrMigrationFailed:
		return http.StatusInternalServerError, resp(e.Message, e.Reason, e.Suggestion)
	case *errors.ErrBootstrapError:
		return http.StatusBadRequest, resp(e.Message, e.Reason, e.Suggestion)
	case *errors.ErrCapabilityDenied:
		return http.StatusBadRequest, resp(e.Message, e.Reason, e.Suggestion)
	case *errors.ErrConstraintViolation:
		return http.StatusBadRequest, resp(e.Message, e.Reason, e.Suggestion)
	case *errors.ErrQueryRejected:
		return http.StatusBadRequest, resp(e.Message, e.Reason, e.Suggestion)
	case *errors.ErrWriteNotAllowed:
		return http.StatusBadRequest, resp(e.Message, e.Reason, e.Suggestion)
	case *errors.ErrUnsupportedSyntax:
		return http.StatusBadRequest, resp(e.Message, e.Reason, e.Suggestion)
	case *errors.ErrVendorHint:
		return http.StatusBadRequest, resp(e.Message, e.Reason, e.Suggestion)
	case *errors.ErrAmbiguousTable:
		return http.StatusBadRequest, resp(e.Message, e.Reason, e.Suggestion)
	case *errors.ErrInvalidTableDefinition:
		return http.StatusBadRequest, resp(e.Message, e.Reason, e.Suggestion)
	case *errors.ErrTableAlreadyExists:
		return http.StatusConflict, resp(e.Message, e.Reason, e.Suggestion)
	case *errors.ErrPlannerError:
		return http.StatusBadRequest, resp(e.Message, e.Reason, e.Suggestion)
	case *errors.ErrCrossEngineQuery:
		return http.StatusBadRequest, resp(e.Message, e.Reason, e.Suggestion)
	case *errors.TaxonomyError:
		return statusForTaxonomy(e), resp(e.Message, e.Reason, e.Suggestion)
	default:
		return http.StatusInternalServerError, resp("internal error", err.Error(), "")
	}
}

func statusForTaxonomy(e *errors.TaxonomyError) int {
	switch e.TaxonomyCode {
	case errors.CodeSecurityDenied:
		return http.StatusForbidden
	case errors.CodeSourceUnavailable, errors.CodeNodeTimeout, errors.CodeInsufficientNodes, errors.CodeMergeFailed:
		return http.StatusServiceUnavailable
	case errors.CodeInternalError:
		return http.StatusInternalServerError
	default:
		return http.StatusBadRequest
	}
}

func resp(message, reason, suggestion string) ErrorResponse {
	return ErrorResponse{Error: message, Reason: reason, Suggestion: suggestion}
}
