package errors

import (
	"net/http"
	"strings"
)

// ErrorCode is a string representation of a specific error condition.
// Codes are "<MODULE>_<NNN>"; the module prefix is recoverable via
// ModuleForCode.
type ErrorCode string

func (c ErrorCode) String() string {
	return string(c)
}

// Common error codes.
const (
	ErrCodeInternal           ErrorCode = "COMMON_001"
	ErrCodeBadRequest         ErrorCode = "COMMON_002"
	ErrCodeNotFound           ErrorCode = "COMMON_005"
	ErrCodeConflict           ErrorCode = "COMMON_006"
	ErrCodeTooManyRequests    ErrorCode = "COMMON_007"
	ErrCodeServiceUnavailable ErrorCode = "COMMON_008"
	ErrCodeTimeout            ErrorCode = "COMMON_009"
	ErrCodeValidation         ErrorCode = "COMMON_010"
	ErrCodeSerialization      ErrorCode = "COMMON_011"
	ErrCodeCacheError         ErrorCode = "COMMON_013"
	ErrCodeExternalService    ErrorCode = "COMMON_014"
	ErrCodeFeatureDisabled    ErrorCode = "COMMON_015"
)

// Sentinel codes with no module.
const (
	CodeOK      ErrorCode = "OK"
	CodeUnknown ErrorCode = "UNKNOWN"
)

// Graph construction error codes.
const (
	ErrCodeMissingPositions ErrorCode = "GRAPH_001"
	ErrCodeInvalidCutoff    ErrorCode = "GRAPH_002"
	ErrCodeIndexOutOfRange  ErrorCode = "GRAPH_003"
	ErrCodeShapeMismatch    ErrorCode = "GRAPH_004"
	ErrCodeEmptyBatch       ErrorCode = "GRAPH_005"
	ErrCodeUnknownKey       ErrorCode = "GRAPH_006"
)

// Dataset archive error codes.
const (
	ErrCodeArchiveFormat     ErrorCode = "DATA_001"
	ErrCodeArchiveMissingKey ErrorCode = "DATA_002"
	ErrCodeUnsupportedDType  ErrorCode = "DATA_003"
	ErrCodeArchiveSource     ErrorCode = "DATA_004"
)

// Messaging error codes.
const (
	ErrCodeMessagePublish ErrorCode = "MSG_001"
	ErrCodeMessageConsume ErrorCode = "MSG_002"
	ErrCodeMessageDecode  ErrorCode = "MSG_003"
)

// ErrorCodeHTTPStatus maps ErrorCodes to HTTP status codes.
var ErrorCodeHTTPStatus = map[ErrorCode]int{
	CodeOK: http.StatusOK,

	ErrCodeInternal:           http.StatusInternalServerError,
	ErrCodeBadRequest:         http.StatusBadRequest,
	ErrCodeNotFound:           http.StatusNotFound,
	ErrCodeConflict:           http.StatusConflict,
	ErrCodeTooManyRequests:    http.StatusTooManyRequests,
	ErrCodeServiceUnavailable: http.StatusServiceUnavailable,
	ErrCodeTimeout:            http.StatusGatewayTimeout,
	ErrCodeValidation:         http.StatusBadRequest,
	ErrCodeSerialization:      http.StatusInternalServerError,
	ErrCodeCacheError:         http.StatusInternalServerError,
	ErrCodeExternalService:    http.StatusBadGateway,
	ErrCodeFeatureDisabled:    http.StatusNotImplemented,

	ErrCodeMissingPositions: http.StatusInternalServerError,
	ErrCodeInvalidCutoff:    http.StatusInternalServerError,
	ErrCodeIndexOutOfRange:  http.StatusBadRequest,
	ErrCodeShapeMismatch:    http.StatusInternalServerError,
	ErrCodeEmptyBatch:       http.StatusBadRequest,
	ErrCodeUnknownKey:       http.StatusBadRequest,

	ErrCodeArchiveFormat:     http.StatusInternalServerError,
	ErrCodeArchiveMissingKey: http.StatusNotFound,
	ErrCodeUnsupportedDType:  http.StatusInternalServerError,
	ErrCodeArchiveSource:     http.StatusBadGateway,

	ErrCodeMessagePublish: http.StatusBadGateway,
	ErrCodeMessageConsume: http.StatusBadGateway,
	ErrCodeMessageDecode:  http.StatusBadRequest,
}

// ErrorCodeMessage maps ErrorCodes to default messages.
var ErrorCodeMessage = map[ErrorCode]string{
	ErrCodeInternal:           "internal error",
	ErrCodeBadRequest:         "bad request",
	ErrCodeNotFound:           "resource not found",
	ErrCodeConflict:           "resource conflict",
	ErrCodeTooManyRequests:    "too many requests",
	ErrCodeServiceUnavailable: "service unavailable",
	ErrCodeTimeout:            "request timeout",
	ErrCodeValidation:         "validation failed",
	ErrCodeSerialization:      "serialization failed",
	ErrCodeCacheError:         "cache error",
	ErrCodeExternalService:    "external service error",
	ErrCodeFeatureDisabled:    "feature disabled",

	ErrCodeMissingPositions: "dataset has no positions",
	ErrCodeInvalidCutoff:    "cutoff must be a positive finite number",
	ErrCodeIndexOutOfRange:  "molecule index out of range",
	ErrCodeShapeMismatch:    "dataset array shapes are inconsistent",
	ErrCodeEmptyBatch:       "batch selection is empty",
	ErrCodeUnknownKey:       "unknown key",

	ErrCodeArchiveFormat:     "malformed dataset archive",
	ErrCodeArchiveMissingKey: "array missing from dataset archive",
	ErrCodeUnsupportedDType:  "unsupported array dtype",
	ErrCodeArchiveSource:     "dataset source unavailable",

	ErrCodeMessagePublish: "failed to publish message",
	ErrCodeMessageConsume: "failed to consume message",
	ErrCodeMessageDecode:  "failed to decode message",
}

// HTTPStatusForCode returns the HTTP status code for an ErrorCode.
func HTTPStatusForCode(code ErrorCode) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// DefaultMessageForCode returns the default message for an ErrorCode.
func DefaultMessageForCode(code ErrorCode) string {
	if msg, ok := ErrorCodeMessage[code]; ok {
		return msg
	}
	return "unknown error"
}

// IsClientError returns true if the ErrorCode corresponds to a 4xx HTTP status.
func IsClientError(code ErrorCode) bool {
	status := HTTPStatusForCode(code)
	return status >= 400 && status < 500
}

// IsServerError returns true if the ErrorCode corresponds to a 5xx HTTP status.
func IsServerError(code ErrorCode) bool {
	status := HTTPStatusForCode(code)
	return status >= 500 && status < 600
}

// ModuleForCode returns the module prefix of an ErrorCode.
func ModuleForCode(code ErrorCode) string {
	parts := strings.Split(string(code), "_")
	if len(parts) > 1 && parts[0] != "" {
		return parts[0]
	}
	return "UNKNOWN"
}
