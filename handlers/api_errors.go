package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"gorm.io/gorm"

	"github.com/camden-git/vanshavalibackend/kinship"
)

const (
	CodeInvalidInput  = "invalid_input"
	CodeNotFound      = "not_found"
	CodeInternalError = "internal_error"
	CodeTimeout       = "timeout"
)

// APIErrorDetail represents a single error in the standardized error response.
type APIErrorDetail struct {
	Code   string `json:"code"`
	Status string `json:"status"`
	Detail string `json:"detail"`
}

// APIErrorResponse represents the standardized error response body.
type APIErrorResponse struct {
	Errors []APIErrorDetail `json:"errors"`
}

// WriteAPIError writes a standardized error response with the given HTTP status, code, and detail.
func WriteAPIError(w http.ResponseWriter, httpStatus int, code string, detail string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpStatus)

	resp := APIErrorResponse{
		Errors: []APIErrorDetail{
			{
				Code:   code,
				Status: strconv.Itoa(httpStatus),
				Detail: detail,
			},
		},
	}

	_ = json.NewEncoder(w).Encode(resp)
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			log.Printf("Error encoding JSON response: %v", err)
		}
	}
}

// writeServiceError maps engine and store errors onto status codes. Client
// errors carry their message; anything else is logged and hidden.
func writeServiceError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, kinship.ErrInvalidInput):
		WriteAPIError(w, http.StatusBadRequest, CodeInvalidInput, err.Error())
	case errors.Is(err, kinship.ErrNotFound), errors.Is(err, gorm.ErrRecordNotFound):
		WriteAPIError(w, http.StatusNotFound, CodeNotFound, err.Error())
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		log.Printf("Warning: %s aborted: %v", op, err)
		WriteAPIError(w, http.StatusServiceUnavailable, CodeTimeout, "request timed out")
	default:
		log.Printf("ERROR %s: %v", op, err)
		WriteAPIError(w, http.StatusInternalServerError, CodeInternalError, "failed to "+op)
	}
}
