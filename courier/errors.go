package courier

import (
	"encoding/json"
	"fmt"
)

// SDKError is the base error type for all courier errors.
type SDKError struct {
	Message string
	Cause   error
}

func (e *SDKError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *SDKError) Unwrap() error {
	return e.Cause
}

// ProviderError represents an error returned by a backend.
type ProviderError struct {
	SDKError
	Provider   string
	StatusCode int
	ErrorCode  string
	Retryable  bool
	RetryAfter *float64
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("[%s] %s (status=%d, retryable=%v)", e.Provider, e.Message, e.StatusCode, e.Retryable)
}

// Concrete provider error types.

type AuthenticationError struct{ ProviderError }
type AccessDeniedError struct{ ProviderError }
type NotFoundError struct{ ProviderError }
type InvalidRequestError struct{ ProviderError }
type RateLimitError struct{ ProviderError }
type ServerError struct{ ProviderError }

// Non-provider errors.

// ConfigurationError reports invalid or missing configuration. It is raised
// synchronously at the point of misuse, never deferred to request time.
type ConfigurationError struct{ SDKError }

// NotImplementedError reports a request for an adapter family that has no
// implementation yet.
type NotImplementedError struct {
	SDKError
	Family AdapterFamily
}

// UnsupportedCapabilityError reports a probe for a capability this SDK does
// not provide, such as embeddings or image generation.
type UnsupportedCapabilityError struct {
	SDKError
	Capability Capability
}

// InvalidResponseError reports a backend response that failed schema
// validation. Non-streaming calls reject wholesale rather than returning a
// partial result.
type InvalidResponseError struct{ SDKError }

// wireErrorBody is the error envelope most chat backends return.
type wireErrorBody struct {
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    any    `json:"code"`
	} `json:"error"`
	Message string `json:"message"`
}

// HandleFailedResponse translates a non-2xx HTTP response into a structured
// error. Retryable is set iff the status is 429 or >= 500; this layer only
// classifies, retry policy belongs to the transport.
func HandleFailedResponse(statusCode int, body []byte, provider string, retryAfter *float64) error {
	message := fmt.Sprintf("request failed with status %d", statusCode)
	errorCode := ""

	var envelope wireErrorBody
	if err := json.Unmarshal(body, &envelope); err == nil {
		switch {
		case envelope.Error != nil && envelope.Error.Message != "":
			message = envelope.Error.Message
			errorCode = fmt.Sprint(envelope.Error.Code)
			if envelope.Error.Code == nil {
				errorCode = envelope.Error.Type
			}
		case envelope.Message != "":
			message = envelope.Message
		}
	}

	pe := ProviderError{
		SDKError:   SDKError{Message: message},
		Provider:   provider,
		StatusCode: statusCode,
		ErrorCode:  errorCode,
		Retryable:  statusCode == 429 || statusCode >= 500,
		RetryAfter: retryAfter,
	}

	switch {
	case statusCode == 401:
		return &AuthenticationError{ProviderError: pe}
	case statusCode == 403:
		return &AccessDeniedError{ProviderError: pe}
	case statusCode == 404:
		return &NotFoundError{ProviderError: pe}
	case statusCode == 429:
		return &RateLimitError{ProviderError: pe}
	case statusCode >= 500:
		return &ServerError{ProviderError: pe}
	case statusCode >= 400:
		return &InvalidRequestError{ProviderError: pe}
	default:
		return &pe
	}
}

// IsRetryable returns true if the error is safe to retry.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	switch e := err.(type) {
	case *ProviderError:
		return e.Retryable
	case *AuthenticationError:
		return false
	case *AccessDeniedError:
		return false
	case *NotFoundError:
		return false
	case *InvalidRequestError:
		return false
	case *RateLimitError:
		return true
	case *ServerError:
		return true
	case *ConfigurationError:
		return false
	case *NotImplementedError:
		return false
	case *UnsupportedCapabilityError:
		return false
	case *InvalidResponseError:
		return false
	default:
		return false
	}
}
