package errdefs

import "errors"

// Sentinel errors shared across packages. Wrap with fmt.Errorf("...: %w", ...)
// and test with errors.Is.
var (
	// ErrInvalidConfig marks a configuration whose referenced files are
	// missing or whose fields fail validation at use time.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrLaunch marks a failure to start the game binary.
	ErrLaunch = errors.New("launch failed")

	// ErrNotFound marks a lookup miss: unknown configuration name or
	// instance marker.
	ErrNotFound = errors.New("not found")

	// ErrStoreIO marks an unreadable or unwritable configuration store.
	ErrStoreIO = errors.New("store unreadable")

	// ErrScheduleParse marks an unparsable date-time for a scheduled action.
	ErrScheduleParse = errors.New("unparsable schedule time")
)
