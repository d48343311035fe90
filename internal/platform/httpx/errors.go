package httpx

import (
	"errors"
	"net/http"

	"github.com/billease/billease/internal/shared"
)

var kindStatus = map[shared.Kind]int{
	shared.KindNotFound:             http.StatusNotFound,
	shared.KindValidation:           http.StatusBadRequest,
	shared.KindInvalidTransition:    http.StatusConflict,
	shared.KindCreditLimitExceeded:  http.StatusUnprocessableEntity,
	shared.KindReferentialIntegrity: http.StatusConflict,
	shared.KindConcurrencyConflict:  http.StatusConflict,
	shared.KindForbidden:            http.StatusForbidden,
}

// RespondError maps domain errors to HTTP responses using RFC7807. The kind
// and identifiers are passed through verbatim; unclassified errors are hidden.
func RespondError(w http.ResponseWriter, err error) {
	var e *shared.Error
	if errors.As(err, &e) {
		status, ok := kindStatus[e.Kind]
		if !ok {
			status = http.StatusInternalServerError
		}
		writeProblem(w, ProblemDetail{
			Title:  string(e.Kind),
			Status: status,
			Detail: err.Error(),
			Kind:   string(e.Kind),
			IDs:    e.IDs,
		})
		return
	}
	Problem(w, http.StatusInternalServerError, "Internal Error", "")
}

// BadRequest reports a malformed request body or parameter.
func BadRequest(w http.ResponseWriter, detail string) {
	writeProblem(w, ProblemDetail{
		Title:  string(shared.KindValidation),
		Status: http.StatusBadRequest,
		Detail: detail,
		Kind:   string(shared.KindValidation),
	})
}
