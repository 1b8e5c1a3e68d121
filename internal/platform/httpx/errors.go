// Package httpx provides HTTP response utilities.
package httpx

import (
	"errors"
	"net/http"

	"github.com/hesabyar/hesabyar/internal/shared"
)

// FieldProblem lists one invalid field in a validation problem.
type FieldProblem struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// RespondError maps domain errors to HTTP responses using RFC7807.
func RespondError(w http.ResponseWriter, err error) {
	var verrs shared.ValidationErrors
	var verr *shared.ValidationError
	var persist *shared.PersistenceError
	switch {
	case errors.As(err, &verrs):
		fields := make([]FieldProblem, 0, len(verrs))
		for _, v := range verrs {
			fields = append(fields, FieldProblem{Field: v.Field, Message: v.Message})
		}
		writeProblem(w, ProblemDetail{Title: "Validation Failed", Status: http.StatusBadRequest, Detail: err.Error(), Fields: fields})
	case errors.As(err, &verr):
		writeProblem(w, ProblemDetail{Title: "Validation Failed", Status: http.StatusBadRequest, Detail: verr.Error(),
			Fields: []FieldProblem{{Field: verr.Field, Message: verr.Message}}})
	case errors.Is(err, shared.ErrValidation):
		Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, shared.ErrNotFound):
		Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, shared.ErrInsufficientStock):
		Problem(w, http.StatusConflict, "Insufficient Stock", err.Error())
	case errors.Is(err, shared.ErrIdempotencyConflict):
		Problem(w, http.StatusConflict, "Duplicate Request", err.Error())
	case errors.As(err, &persist):
		Problem(w, http.StatusUnprocessableEntity, "Persistence Failed", persist.Message)
	default:
		Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
