// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as the
// service package and handlers to distinguish between different failure
// scenarios without inspecting driver errors.
package repository

import "errors"

// ErrNotFound is returned when the requested row does not exist.
var ErrNotFound = errors.New("not found")

// ErrDuplicate is returned when an insert or update violates a unique
// key, such as a second active assignment for the same user or a second
// daily report for the same day.
var ErrDuplicate = errors.New("duplicate")

// ErrInUse is returned when a foreign key rejects a write: a delete of a
// row other rows still reference (a truck with dispensing history), or an
// insert pointing at a row that does not exist.
var ErrInUse = errors.New("referenced by other records")

// ErrStaleVersion is returned by compare-and-swap updates when the row
// changed since it was read.
var ErrStaleVersion = errors.New("row changed concurrently")
