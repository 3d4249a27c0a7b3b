package shared

import "fmt"

var (
	// Configuration errors
	ErrMissingConfig      = fmt.Errorf("configuration not found")
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing credentials")

	// Authentication errors
	ErrAuthFailed   = fmt.Errorf("authentication failed")
	ErrUnauthorized = fmt.Errorf("library access not authorized")
	ErrTimeout      = fmt.Errorf("operation timed out")

	// Catalog and library errors
	ErrAPIRequest         = fmt.Errorf("API request failed")
	ErrServiceUnavailable = fmt.Errorf("service unavailable")
	ErrSearchFailed       = fmt.Errorf("catalog search failed")
	ErrNoMatch            = fmt.Errorf("no catalog match")
	ErrCreationFailed     = fmt.Errorf("playlist creation failed")
	ErrPlaylistNotFound   = fmt.Errorf("playlist not found")

	// Run lifecycle errors
	ErrCancelled   = fmt.Errorf("run cancelled")
	ErrRunNotFound = fmt.Errorf("run not found")

	// Input validation errors
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
)
