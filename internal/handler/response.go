package handler

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"tallyocr/internal/domain"
)

// APIResponse is the standard envelope for all API responses.
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *APIError   `json:"error,omitempty"`
}

// APIError holds error details in the response.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// RespondOK sends a 200 success response.
func RespondOK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, APIResponse{Success: true, Data: data})
}

// RespondCreated sends a 201 success response.
func RespondCreated(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, APIResponse{Success: true, Data: data})
}

// RespondError sends an error response with the given status code.
func RespondError(c *gin.Context, status int, code, msg string) {
	c.JSON(status, APIResponse{
		Success: false,
		Error:   &APIError{Code: code, Message: msg},
	})
}

// MapDomainError translates domain errors to HTTP status codes and error codes.
func MapDomainError(err error) (status int, code, msg string) {
	var (
		rowErr   *domain.RowWidthError
		fieldErr *domain.FieldResolutionError
		subErr   *domain.SubmissionError
	)
	switch {
	case errors.Is(err, domain.ErrSessionNotFound):
		return http.StatusNotFound, "SESSION_NOT_FOUND", "session not found"
	case errors.Is(err, domain.ErrPageNotFound):
		return http.StatusNotFound, "PAGE_NOT_FOUND", "page not found"
	case errors.Is(err, domain.ErrTableNotFound):
		return http.StatusNotFound, "TABLE_NOT_FOUND", "table index out of range"
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, "NOT_FOUND", "resource not found"
	case errors.Is(err, domain.ErrUnsupportedFileType):
		return http.StatusBadRequest, "UNSUPPORTED_FILE_TYPE", "unsupported file type; allowed: png, jpg"
	case errors.Is(err, domain.ErrFileTooLarge):
		return http.StatusRequestEntityTooLarge, "FILE_TOO_LARGE", "file exceeds maximum allowed size"
	case errors.Is(err, domain.ErrUploadFailed):
		return http.StatusInternalServerError, "UPLOAD_FAILED", "file upload to storage failed"
	case errors.Is(err, domain.ErrOrgUnitNotSelected):
		return http.StatusConflict, "ORG_UNIT_NOT_SELECTED", "select an organisation unit first"
	case errors.Is(err, domain.ErrFacilityNotSelected):
		return http.StatusConflict, "FACILITY_NOT_SELECTED", "select a facility first"
	case errors.Is(err, domain.ErrDataSetNotSelected):
		return http.StatusConflict, "DATASET_NOT_SELECTED", "select a dataset first"
	case errors.Is(err, domain.ErrPeriodNotSet):
		return http.StatusConflict, "PERIOD_NOT_SET", "set the period start date first"
	case errors.Is(err, domain.ErrCatalogNotLoaded):
		return http.StatusConflict, "CATALOG_NOT_LOADED", "select a dataset to load its form catalog first"
	case errors.Is(err, domain.ErrPayloadNotGenerated):
		return http.StatusConflict, "PAYLOAD_NOT_GENERATED", "generate the payload before submitting"
	case errors.As(err, &rowErr):
		return http.StatusBadRequest, "ROW_WIDTH_MISMATCH", rowErr.Error()
	case errors.As(err, &fieldErr):
		return http.StatusUnprocessableEntity, "UNRESOLVED_FIELD", fieldErr.Error()
	case errors.As(err, &subErr):
		return http.StatusBadGateway, "SUBMISSION_REJECTED", subErr.Error()
	default:
		return http.StatusInternalServerError, "INTERNAL_ERROR", "an internal error occurred"
	}
}

// HandleError maps a domain error and sends the appropriate error response.
func HandleError(c *gin.Context, err error) {
	status, code, msg := MapDomainError(err)
	if status >= 500 {
		requestID, _ := c.Get("request_id")
		log.Printf("[%s] internal error: %v", requestID, err)
	}
	RespondError(c, status, code, msg)
}
