package repository

import "errors"

// ErrNotFound is returned by durable stores when no row matches.
var ErrNotFound = errors.New("record not found")
