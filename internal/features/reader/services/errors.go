package services

import (
	"errors"
	"fmt"

	"feedreader/internal/core"
	"feedreader/internal/features/reader/store"
)

// FetchError reports that a feed could not be retrieved or parsed
type FetchError struct {
	FeedID int64
	URL    string
	Err    error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch feed %d (%s): %v", e.FeedID, e.URL, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// translate maps storage errors onto the application error taxonomy
func translate(err error, notFound string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, store.ErrNotFound):
		return core.NewNotFoundError(notFound, err)
	case errors.Is(err, store.ErrDuplicate):
		return core.NewDuplicateFeedError("feed already registered", err)
	default:
		return core.NewStorageError("storage operation failed", err)
	}
}
