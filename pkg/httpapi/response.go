package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/germanamz/agentic/pkg/modeladapter"
)

const (
	errorCodeInvalidRequest = "invalid_request"
	errorCodeInvalidQuery   = "invalid_query"
	errorCodeTooLarge       = "request_too_large"
	errorCodeUpstream       = "upstream_unavailable"
	errorCodeTimeout        = "timeout"
	errorCodeCancelled      = "cancelled"
	errorCodeRuntime        = "runtime_error"
)

var (
	errInvalidRequest = errors.New("invalid request")
	errInvalidQuery   = errors.New("query is required")
	errTooLarge       = errors.New("request body too large")
)

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type apiErrorResponse struct {
	Error apiError `json:"error"`
}

type askRequest struct {
	Query *string `json:"query"`
}

type askResponse struct {
	Response string `json:"response"`
}

type healthResponse struct {
	Message string `json:"message"`
}

type configResponse struct {
	ModelName string `json:"model_name"`
}

type toolsResponse struct {
	Tools []string `json:"tools"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, apiErrorResponse{
		Error: apiError{
			Code:    code,
			Message: message,
		},
	})
}

func writeMappedError(w http.ResponseWriter, err error) {
	status, e := mapError(err)
	writeError(w, status, e.Code, e.Message)
}

// decodeAsk reads one askRequest from r and checks that it names a query.
func decodeAsk(r io.Reader) (string, error) {
	if r == nil {
		return "", invalidRequestError("request body is required")
	}

	var req askRequest
	decoder := json.NewDecoder(r)
	if err := decoder.Decode(&req); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			return "", fmt.Errorf("%w: limit is %d bytes", errTooLarge, maxBytesErr.Limit)
		}
		if errors.Is(err, io.EOF) {
			return "", invalidRequestError("request body is required")
		}
		return "", invalidRequestError(fmt.Sprintf("invalid JSON body: %v", err))
	}

	if err := decoder.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return "", invalidRequestError("request body must contain exactly one JSON object")
	}

	if req.Query == nil {
		return "", errInvalidQuery
	}

	return *req.Query, nil
}

// mapError translates err into a status code and a client-safe error body.
// Internal error text is only passed through for request validation errors.
func mapError(err error) (int, apiError) {
	switch {
	case errors.Is(err, errInvalidRequest):
		return http.StatusBadRequest, apiError{errorCodeInvalidRequest, err.Error()}
	case errors.Is(err, errInvalidQuery):
		return http.StatusUnprocessableEntity, apiError{errorCodeInvalidQuery, err.Error()}
	case errors.Is(err, errTooLarge):
		return http.StatusRequestEntityTooLarge, apiError{errorCodeTooLarge, err.Error()}
	case errors.Is(err, modeladapter.ErrUpstreamUnavailable):
		return http.StatusBadGateway, apiError{errorCodeUpstream, "the inference server is unavailable"}
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, apiError{errorCodeTimeout, "the request timed out"}
	case errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable, apiError{errorCodeCancelled, "the request was cancelled"}
	default:
		return http.StatusInternalServerError, apiError{errorCodeRuntime, "internal error"}
	}
}

func invalidRequestError(message string) error {
	return fmt.Errorf("%w: %s", errInvalidRequest, message)
}
