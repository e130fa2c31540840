// Package repository implements data access against MySQL.  Sentinel
// errors let higher layers translate failures into the HTTP taxonomy
// without leaking driver error shapes.
package repository

import "errors"

// ErrEmailExists is returned when an insert collides with the unique email
// index.  Handlers translate this into HTTP 409.
var ErrEmailExists = errors.New("email already exists")

// ErrNotFound is returned when a lookup matches no live row.  Handlers
// translate this into HTTP 404 or, for credential lookups, a generic 401.
var ErrNotFound = errors.New("not found")
