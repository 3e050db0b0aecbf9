package domain

import "errors"

var (
	// ErrEmptyQuery is returned for text searches shorter than MinQueryLength.
	ErrEmptyQuery = errors.New("query too short")

	// ErrTransport covers network errors and non-2xx responses from a provider.
	ErrTransport = errors.New("transport failure")

	// ErrMalformedPayload is returned when a provider response does not have the expected shape.
	ErrMalformedPayload = errors.New("malformed payload")

	ErrGeolocationUnavailable = errors.New("geolocation unavailable")
	ErrGeolocationDenied      = errors.New("geolocation permission denied")
	ErrGeolocationTimeout     = errors.New("geolocation timed out")
)
