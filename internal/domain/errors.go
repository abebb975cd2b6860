package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNoContext signals that retrieval matched nothing for a query. It is
	// not a failure: the generator is expected to produce a graceful answer.
	ErrNoContext = errors.New("no matching context")

	// ErrNoSources means every source of a knowledge base failed to yield
	// chunks, which is fatal to an index build.
	ErrNoSources = errors.New("no sources produced any chunks")

	// ErrIndexNotReady means the remote index infrastructure did not become
	// ready within the configured deadline.
	ErrIndexNotReady = errors.New("index infrastructure not ready")
)

// FetchError reports an unreachable source or a non-success HTTP status.
// A failed source is recoverable as long as another source still succeeds.
type FetchError struct {
	URL    string
	Status int
	Err    error
}

func (e *FetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
	}
	return fmt.Sprintf("fetch %s: status %d", e.URL, e.Status)
}

func (e *FetchError) Unwrap() error { return e.Err }
