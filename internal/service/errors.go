package service

import (
	"context"
	"errors"
	"fmt"

	"refhub/finder/internal/client"
)

type ErrorKind int

const (
	// KindInternal covers every failure that is not the upstream's fault.
	KindInternal ErrorKind = iota
	// KindUpstream means the RefHub site could not be reached or answered
	// with a non-success status.
	KindUpstream
	// KindCancelled means the caller went away before the search finished.
	KindCancelled
)

func (k ErrorKind) String() string {
	switch k {
	case KindUpstream:
		return "upstream"
	case KindCancelled:
		return "cancelled"
	default:
		return "internal"
	}
}

// SearchError carries the classification and request context of a failed
// search or crawl.
type SearchError struct {
	Kind  ErrorKind
	Query string
	Page  int
	Err   error
}

func (e *SearchError) Error() string {
	return fmt.Sprintf("%s error searching %q page %d: %v", e.Kind, e.Query, e.Page, e.Err)
}

func (e *SearchError) Unwrap() error {
	return e.Err
}

func classify(query string, page int, err error) *SearchError {
	kind := KindInternal
	var fetchErr *client.FetchError
	switch {
	case errors.Is(err, context.Canceled):
		kind = KindCancelled
	case errors.As(err, &fetchErr):
		kind = KindUpstream
	}

	return &SearchError{
		Kind:  kind,
		Query: query,
		Page:  page,
		Err:   err,
	}
}
