package grid

import "errors"

var (
	// ErrNoChunkTouched is returned by View when no operation has ever
	// resolved a chunk, so there is no cursor to snapshot.
	ErrNoChunkTouched = errors.New("grid: no chunk touched yet")

	// ErrEmptyView is returned by ViewRect for non-positive dimensions.
	ErrEmptyView = errors.New("grid: view dimensions must be positive")

	// ErrViewTooLarge is returned by ViewRect when w*h does not fit in an
	// int, so the requested snapshot could never be allocated.
	ErrViewTooLarge = errors.New("grid: view dimensions overflow")
)
