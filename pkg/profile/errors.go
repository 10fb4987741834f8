package profile

import "fmt"

// FetchError wraps a failed list retrieval with its cache key context.
// Fetch failures are never stored; the next GetOrFetch retries.
type FetchError struct {
	Tracker string
	List    ListType
	Err     error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s list for tracker %s: %v", e.List, e.Tracker, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}
