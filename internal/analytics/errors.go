package analytics

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrFetch is the single failure class for anything the datastore could
	// not answer. Callers never receive partial data alongside it.
	ErrFetch       = errors.New("analytics fetch failed")
	ErrMissingUser = errors.New("user id is required")
)

func fetchError(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrFetch, op, err)
}

func requireUser(userID string) error {
	if strings.TrimSpace(userID) == "" {
		return ErrMissingUser
	}
	return nil
}
