// Package faults defines the error taxonomy shared by the analysis
// pipeline. Callers wrap these sentinels with fmt.Errorf("...: %w", err)
// and the delivery layer maps them to machine codes and user messages.
package faults

import "errors"

var (
	// ErrServiceUnavailable means the remote scene archive could not be
	// reached or refused our credentials. Fatal for the current request.
	ErrServiceUnavailable = errors.New("satellite service unavailable")

	// ErrDataUnavailable means the request was valid but no qualifying
	// imagery or statistics exist for it.
	ErrDataUnavailable = errors.New("no satellite data available")

	// ErrInvalidImage means a scene is missing required spectral bands.
	ErrInvalidImage = errors.New("invalid satellite image")

	// ErrUnsupportedVIType means an unknown vegetation index code.
	ErrUnsupportedVIType = errors.New("unsupported vegetation index type")

	// ErrOverlayGeneration means overlay rendering failed. Non-fatal for
	// batch selection, fatal (empty reference) for single-image requests.
	ErrOverlayGeneration = errors.New("overlay generation failed")
)

// Code returns the machine enum for an error.
func Code(err error) string {
	switch {
	case errors.Is(err, ErrServiceUnavailable):
		return "SERVICE_UNAVAILABLE"
	case errors.Is(err, ErrDataUnavailable):
		return "DATA_UNAVAILABLE"
	case errors.Is(err, ErrInvalidImage):
		return "INVALID_IMAGE"
	case errors.Is(err, ErrUnsupportedVIType):
		return "UNSUPPORTED_VI_TYPE"
	case errors.Is(err, ErrOverlayGeneration):
		return "OVERLAY_GENERATION_FAILURE"
	default:
		return "INTERNAL"
	}
}

// Message returns the human-facing message for an error.
func Message(err error) string {
	switch {
	case errors.Is(err, ErrServiceUnavailable):
		return "Unable to reach the satellite imagery service. Please try again later."
	case errors.Is(err, ErrDataUnavailable):
		return "No suitable satellite data was found for this field and date range."
	case errors.Is(err, ErrInvalidImage):
		return "The satellite scene is missing required spectral bands."
	case errors.Is(err, ErrUnsupportedVIType):
		return "The requested vegetation index is not supported."
	case errors.Is(err, ErrOverlayGeneration):
		return "The overlay image could not be generated."
	default:
		return "An unexpected error occurred while processing satellite data."
	}
}
