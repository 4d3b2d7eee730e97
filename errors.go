package cliploop

import (
	"cliploop/storage"
	"cliploop/twitch"
)

// Error handling types exported for library users.
//
// All error types support the standard error handling patterns:
//
// Using errors.Is() for sentinel errors:
//
//	if errors.Is(err, cliploop.ErrNotFound) {
//		fmt.Println("broadcaster not found")
//	}
//
// Using errors.As() for wrapped errors:
//
//	var apiErr *cliploop.APIError
//	if errors.As(err, &apiErr) {
//		fmt.Printf("catalog returned %d: %s\n", apiErr.StatusCode, apiErr.Message)
//	}

// Type aliases for convenient error handling.
type (
	// APIError wraps catalog responses with a non-success status.
	APIError = twitch.APIError
	// StorageError wraps errors during history storage operations.
	StorageError = storage.StorageError
)

// Sentinel errors exported from sub-packages.
var (
	// ErrNotFound indicates the broadcaster search had no match.
	ErrNotFound = twitch.ErrNotFound
	// ErrReauthRequired indicates the catalog rejected the credential.
	ErrReauthRequired = twitch.ErrReauthRequired
	// ErrInvalidRequest indicates the catalog rejected the request itself.
	ErrInvalidRequest = twitch.ErrInvalidRequest
	// ErrUnavailable indicates a transport failure or catalog-side error.
	ErrUnavailable = twitch.ErrUnavailable

	// Storage errors
	// ErrHistoryNotFound indicates an entry was not found in storage.
	ErrHistoryNotFound = storage.ErrNotFound
	// ErrHistoryInvalidInput indicates invalid input was provided.
	ErrHistoryInvalidInput = storage.ErrInvalidInput
	// ErrHistoryCorrupt indicates data corruption was detected.
	ErrHistoryCorrupt = storage.ErrStorageCorrupt
)
