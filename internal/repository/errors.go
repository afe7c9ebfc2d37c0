// Package repository implements MySQL persistence for users, movies,
// showtimes, orders, promotions and seat holds. Repositories run either
// on the shared pool or, via WithTx, inside a caller-owned transaction.
package repository

import "github.com/go-faster/errors"

// ErrNotFound is returned when a looked-up row does not exist. Handlers
// translate it into an HTTP 404 response.
var ErrNotFound = errors.New("not found")

// ErrConflict is returned when a write violates a unique constraint.
// Handlers translate it into an HTTP 409 response.
var ErrConflict = errors.New("conflict")

// ErrEmailExists is returned by UserRepo.Create for a registered email.
var ErrEmailExists = errors.New("email already exists")
