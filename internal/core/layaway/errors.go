package layaway

import "errors"

var (
	ErrNotLocked = errors.New("layaway: lock is not held")
	ErrNotOpen   = errors.New("layaway: file is not open")
)
