package repository

import "errors"

// ErrNotFound marks lookups with no matching rows.
var ErrNotFound = errors.New("not found")
