package kata

import "context"

// Backend is the interface for coding-exercise platform integrations.
type Backend interface {
	// CompletedPage retrieves one zero-indexed page of the challenges the
	// user has completed. A user the platform does not know yields an
	// *APIError of kind NotFound; network failures yield *TransportError.
	// The page is returned unvalidated; callers check its fields.
	CompletedPage(ctx context.Context, userID string, page int) (*Page, error)
}
