package apierrors

import (
	"errors"
	"strings"

	"voice-relay/internal/clients/openai"
	"voice-relay/internal/clients/twilio"
	"voice-relay/internal/store"
	"voice-relay/internal/voicecall/callsession"
	"voice-relay/internal/voicecall/processor"
)

// MapError converts domain/processor errors to APIErrors.
//
// If the error is already an APIError, it returns it as-is.
// If the error is a known domain error, it maps it to an appropriate APIError.
// If the error is unknown, it returns a sanitized InternalError (500).
func MapError(err error) *APIError {
	if err == nil {
		return nil
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}

	switch {
	// Map voice call processor errors
	case errors.Is(err, processor.ErrInvalidCall):
		return BadRequest(CodeInvalidCall, "Call SID is required")

	case errors.Is(err, processor.ErrCallNotFound):
		return NotFound(CodeCallNotFound, "Call not found")

	case errors.Is(err, processor.ErrStreamRejected):
		return Forbidden(CodeStreamRejected, "Media stream was rejected")

	case errors.Is(err, processor.ErrHistoryUnavailable):
		return ServiceUnavailable(CodeHistoryUnavailable, "Call history is not available on this server", err)

	case errors.Is(err, callsession.ErrSessionNotFound):
		return NotFound(CodeCallNotFound, "Call not found")

	case errors.Is(err, callsession.ErrInvalidSession):
		return BadRequest(CodeInvalidCall, "Invalid call session")

	// Map client errors
	case errors.Is(err, twilio.ErrMissingCallSID):
		return BadRequest(CodeInvalidCall, "Call SID is required")

	case errors.Is(err, twilio.ErrTerminationRequestFailed):
		return ServiceUnavailable(CodeTelephonyServiceError, "Telephony provider is temporarily unavailable. Please try again later.", err)

	case errors.Is(err, openai.ErrConnectionFailed):
		return ServiceUnavailable(CodeAIServiceError, "AI service is temporarily unavailable. Please try again later.", err)

	// Map store errors
	case errors.Is(err, store.ErrNotFound):
		return NotFound(CodeNotFound, "Resource not found")

	default:
		return mapExternalServiceError(err)
	}
}

// mapExternalServiceError attempts to identify external service errors
// and map them to appropriate service-specific error responses.
func mapExternalServiceError(err error) *APIError {
	errMsg := strings.ToLower(err.Error())

	if strings.Contains(errMsg, "twilio") {
		return ServiceUnavailable(
			CodeTelephonyServiceError,
			"Telephony provider is temporarily unavailable. Please try again later.",
			err,
		)
	}

	if strings.Contains(errMsg, "openai") || strings.Contains(errMsg, "ai service") {
		return ServiceUnavailable(
			CodeAIServiceError,
			"AI service is temporarily unavailable. Please try again later.",
			err,
		)
	}

	return InternalError(err)
}
