// Package repository defines error types that are reused across multiple
// repositories. These sentinel values let handlers map store outcomes to
// HTTP responses without inspecting driver errors.
package repository

import "errors"

// ErrNotFound is returned when a row does not exist or is not owned by the
// caller. Handlers translate it into a 404 so that other users' records
// are indistinguishable from missing ones.
var ErrNotFound = errors.New("not found")

// ErrEmailExists is returned by UserRepo.Create when the email is taken.
var ErrEmailExists = errors.New("email already exists")
