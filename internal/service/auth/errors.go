package auth

import (
	"fmt"

	"github.com/phrazzld/taskhub-api/internal/domain"
)

// Token errors. All of them are unauthenticated failures.
var (
	// ErrInvalidToken indicates the token format is invalid or signature doesn't match
	ErrInvalidToken = fmt.Errorf("invalid authentication token: %w", domain.ErrUnauthenticated)

	// ErrExpiredToken indicates the token has expired
	ErrExpiredToken = fmt.Errorf("authentication token has expired: %w", domain.ErrUnauthenticated)

	// ErrTokenNotYetValid indicates the token is not yet valid (nbf claim in the future)
	ErrTokenNotYetValid = fmt.Errorf("authentication token not yet valid: %w", domain.ErrUnauthenticated)

	// ErrMissingToken indicates a token was expected but not provided
	ErrMissingToken = fmt.Errorf("authentication token is missing: %w", domain.ErrUnauthenticated)
)
