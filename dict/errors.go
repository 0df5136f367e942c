package dict

import "errors"

// Error kinds returned by Dict operations. Failure sites wrap them with
// fmt.Errorf("%w: ...") so callers match with errors.Is.
var (
	// ErrKeyExists is returned by Add when the key is already present.
	ErrKeyExists = errors.New("key already exists")
	// ErrNotFound is returned by Fetch, Delete and Unlink when the key is absent.
	ErrNotFound = errors.New("key not found")
	// ErrAllocation is returned by TryExpand when the bucket array cannot be
	// allocated. Expand propagates the runtime panic instead.
	ErrAllocation = errors.New("allocation failed")
	// ErrInvalidExpand is returned when a capacity request cannot be honored:
	// a migration is running, the requested size is below the element count,
	// the size computation overflows, or the table already has that capacity.
	ErrInvalidExpand = errors.New("invalid expand")
	// ErrIteratorMisuse wraps the panic raised by Release when a structural
	// change happened during an unsafe iteration.
	ErrIteratorMisuse = errors.New("iterator misuse")
)
