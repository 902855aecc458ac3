package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/pkordes/mileage-tracker/internal/domain"
	"github.com/pkordes/mileage-tracker/internal/handler/gen"
)

// errNoUser is returned when a protected operation runs without a user in
// the context.
var errNoUser = errors.New("missing bearer token")

func errorBody(code, message string) gen.ErrorResponse {
	return gen.ErrorResponse{Error: gen.ErrorDetail{Code: code, Message: message}}
}

// notFoundBody returns an ErrorResponse for a missing resource.
// The caller names what was being looked up.
func notFoundBody(message string) gen.ErrorResponse {
	return errorBody("not_found", message)
}

// requestBody returns an ErrorResponse for input rejected before reaching the
// service layer (missing or malformed body, unparseable parameters).
func requestBody(message string) gen.ErrorResponse {
	return errorBody("validation_error", message)
}

func validationBody(err error) gen.ErrorResponse {
	return errorBody("validation_error", unwrapMessage(err, domain.ErrValidation))
}

func stateBody(err error) gen.ErrorResponse {
	return errorBody("invalid_state", unwrapMessage(err, domain.ErrInvalidStateTransition))
}

func locationBody(err error) gen.ErrorResponse {
	return errorBody("location_unavailable", unwrapMessage(err, domain.ErrLocationUnavailable))
}

func conflictBody(err error) gen.ErrorResponse {
	return errorBody("conflict", unwrapMessage(err, domain.ErrConflict))
}

func notAuthenticatedBody() gen.ErrorResponse {
	return errorBody("not_authenticated", "sign in to save your trip")
}

func invalidCredentialsBody() gen.ErrorResponse {
	return errorBody("invalid_credentials", "invalid email or password")
}

func storageBody() gen.ErrorResponse {
	return errorBody("storage_unavailable", "trip storage is unavailable, please try again")
}

// classify maps an error a handler did not turn into a typed response onto
// its HTTP status and body. Storage and unexpected errors are logged; their
// detail never reaches the client.
func (s *Server) classify(r *http.Request, err error) (int, gen.ErrorResponse) {
	switch {
	case errors.Is(err, errNoUser):
		return http.StatusUnauthorized, errorBody("unauthorized", errNoUser.Error())
	case errors.Is(err, domain.ErrInvalidStateTransition):
		return http.StatusConflict, stateBody(err)
	case errors.Is(err, domain.ErrConflict):
		return http.StatusConflict, conflictBody(err)
	case errors.Is(err, domain.ErrLocationUnavailable):
		return http.StatusUnprocessableEntity, locationBody(err)
	case errors.Is(err, domain.ErrValidation):
		return http.StatusUnprocessableEntity, validationBody(err)
	case errors.Is(err, domain.ErrNotAuthenticated):
		return http.StatusUnauthorized, notAuthenticatedBody()
	case errors.Is(err, domain.ErrInvalidCredentials):
		return http.StatusUnauthorized, invalidCredentialsBody()
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, notFoundBody("not found")
	case errors.Is(err, domain.ErrStorageWrite), errors.Is(err, domain.ErrStorageRead):
		s.log.ErrorContext(r.Context(), "storage failure", "path", r.URL.Path, "error", err)
		return http.StatusServiceUnavailable, storageBody()
	default:
		s.log.ErrorContext(r.Context(), "unhandled error", "path", r.URL.Path, "error", err)
		return http.StatusInternalServerError, errorBody("internal_error", "internal server error")
	}
}

// responseError is the strict handler's hook for errors returned by a
// handler or raised while writing its response.
func (s *Server) responseError(w http.ResponseWriter, r *http.Request, err error) {
	status, body := s.classify(r, err)
	writeJSON(w, status, body)
}

// requestError is the strict handler's hook for bodies that fail to decode.
func (s *Server) requestError(w http.ResponseWriter, r *http.Request, err error) {
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		writeJSON(w, http.StatusRequestEntityTooLarge, errorBody("payload_too_large", "request body too large"))
	case errors.Is(err, io.EOF):
		writeJSON(w, http.StatusUnprocessableEntity, requestBody("request body is required"))
	default:
		writeJSON(w, http.StatusUnprocessableEntity, requestBody("malformed request body"))
	}
}

// paramError is the generated router's hook for query and path parameters
// that fail to bind.
func (s *Server) paramError(w http.ResponseWriter, _ *http.Request, err error) {
	msg := "invalid request parameters"
	var invalid *gen.InvalidParamFormatError
	if errors.As(err, &invalid) {
		switch invalid.ParamName {
		case "id":
			msg = "invalid trip id"
		case "from", "to":
			msg = invalid.ParamName + " must be a date (YYYY-MM-DD)"
		default:
			msg = "invalid " + invalid.ParamName + " parameter"
		}
	}
	writeJSON(w, http.StatusUnprocessableEntity, requestBody(msg))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// unwrapMessage extracts the human-readable part that follows the sentinel in
// a wrapped error, e.g. "service.TripTracker.StartTrip: invalid state
// transition: a trip is already in progress" → "a trip is already in progress".
// Falls back to the sentinel text.
func unwrapMessage(err, sentinel error) string {
	msg := err.Error()
	marker := sentinel.Error() + ": "
	if i := strings.Index(msg, marker); i >= 0 {
		return msg[i+len(marker):]
	}
	return sentinel.Error()
}
