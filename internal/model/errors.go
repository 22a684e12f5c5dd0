package model

import "github.com/rotisserie/eris"

// Error kinds surfaced by the core. Callers wrap them with eris and test with
// eris.Is; the serving layer maps them to responses.
var (
	// ErrNotFound marks an unknown area code or resource id.
	ErrNotFound = eris.New("not found")

	// ErrInvalidParameter marks a request the core refuses to evaluate:
	// non-positive radius, unknown resource kind, empty evacuation set,
	// unknown area code in a request.
	ErrInvalidParameter = eris.New("invalid parameter")

	// ErrGeometry marks a malformed polygon.
	ErrGeometry = eris.New("geometry error")

	// ErrInvariant marks corrupted input that the loading layer failed to
	// validate (for example a negative city code). It is never expected in
	// normal operation and callers treat it as fatal.
	ErrInvariant = eris.New("invariant violation")
)
