package core

import (
	"encoding/json"
	"net/http"
)

// Fixed messages for status codes whose body is never consulted.
const (
	msgAuthenticationRequired = "You should provide valid api key to perform this operation"
	msgNotAuthorized          = "You are not authorized to perform this operation"
	msgNotFound               = "Could not find what you are looking for"
	msgRequestTooLarge        = "Request body is too large"
	msgUnprocessableEntity    = "The operation cannot be processed"
	msgTooManyRequests        = "You have made too many requests in a short period of time. Please retry your request later"
	msgServerError            = "Try again. If the problem persists, contact support."
	msgServiceUnavailable     = "The service is temporarily unavailable. Please retry shortly."
	msgUnexpected             = "An unexpected error occurred"
	msgInvalidJSON            = "The response from Airtable was invalid JSON. Please try again soon."
)

// Classify maps a status code and a decoded response body to a typed error.
//
// body is the result of decoding the response as JSON; pass nil when decoding
// failed. Only a JSON object (map[string]any) counts as a valid body: arrays,
// scalars, null and undecodable payloads yield UNEXPECTED_ERROR whatever the
// status. For a valid body, nil is returned when statusCode is below 400.
func Classify(statusCode int, body any) *Error {
	obj, ok := body.(map[string]any)
	if !ok {
		return invalidBodyError(statusCode)
	}
	return classifyStatus(statusCode, obj)
}

// DecodeBody decodes a raw response payload. Decoding failures return nil,
// which Classify treats as an invalid body.
func DecodeBody(raw []byte) any {
	var body any
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil
	}
	return body
}

// IsPlainObject reports whether a decoded JSON value is an object.
func IsPlainObject(body any) bool {
	_, ok := body.(map[string]any)
	return ok
}

func invalidBodyError(statusCode int) *Error {
	return newError(KindUnexpectedError, msgInvalidJSON, statusCode)
}

func classifyStatus(statusCode int, body map[string]any) *Error {
	switch {
	case statusCode < http.StatusBadRequest:
		return nil
	case statusCode == http.StatusUnauthorized:
		return newError(KindAuthenticationRequired, msgAuthenticationRequired, statusCode)
	case statusCode == http.StatusForbidden:
		return newError(KindNotAuthorized, msgNotAuthorized, statusCode)
	case statusCode == http.StatusNotFound:
		_, message := embeddedError(body)
		return newError(KindNotFound, orDefault(message, msgNotFound), statusCode)
	case statusCode == http.StatusRequestEntityTooLarge:
		return newError(KindRequestTooLarge, msgRequestTooLarge, statusCode)
	case statusCode == http.StatusUnprocessableEntity:
		kind, message := embeddedError(body)
		return newError(ErrorKind(orDefault(kind, string(KindUnprocessableEntity))), orDefault(message, msgUnprocessableEntity), statusCode)
	case statusCode == http.StatusTooManyRequests:
		return newError(KindTooManyRequests, msgTooManyRequests, statusCode)
	case statusCode == http.StatusInternalServerError:
		return newError(KindServerError, msgServerError, statusCode)
	case statusCode == http.StatusServiceUnavailable:
		return newError(KindServiceUnavailable, msgServiceUnavailable, statusCode)
	default:
		kind, message := embeddedError(body)
		return newError(ErrorKind(orDefault(kind, string(KindUnexpectedError))), orDefault(message, msgUnexpected), statusCode)
	}
}

// embeddedError extracts {"error": {"type": ..., "message": ...}}.
// Non-string members are ignored.
func embeddedError(body map[string]any) (kind, message string) {
	errObj, ok := body["error"].(map[string]any)
	if !ok {
		return "", ""
	}
	kind, _ = errObj["type"].(string)
	message, _ = errObj["message"].(string)
	return kind, message
}

func orDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
