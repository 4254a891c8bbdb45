// Package domain provides shared domain-level sentinel errors.
package domain

import "errors"

// ErrNotFound indicates the requested entity does not exist.
var ErrNotFound = errors.New("not found")

// ErrConflict indicates a write collided with an existing record
// (duplicate ID or concurrent modification).
var ErrConflict = errors.New("conflict: record already exists or was modified")
