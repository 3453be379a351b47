package router

import (
	"errors"

	"github.com/roach88/parley/internal/store"
)

// Kind names the category of a failed operation. It is carried in the
// "kind" field of an error envelope.
type Kind string

// Store kinds are passed through unchanged.
const (
	KindConstraintViolation = Kind(store.KindConstraintViolation)
	KindReferenceViolation  = Kind(store.KindReferenceViolation)
	KindNotFound            = Kind(store.KindNotFound)
	KindStoreUnavailable    = Kind(store.KindStoreUnavailable)
)

// Router kinds.
const (
	// KindUnauthorized is a failed login or a call the caller may not make.
	KindUnauthorized Kind = "Unauthorized"

	// KindInvalidPayload means the payload was not decodable JSON for the operation.
	KindInvalidPayload Kind = "InvalidPayload"

	// KindUnknownOperation means no operation has the requested name.
	KindUnknownOperation Kind = "UnknownOperation"

	// KindInternal covers unclassified errors and recovered panics.
	KindInternal Kind = "Internal"
)

// msgInvalidCredentials is shared by unknown-user and wrong-password
// logins so the two cannot be told apart.
const msgInvalidCredentials = "Invalid username or password"

// fromError converts an access layer error into a failed Result.
func fromError[T any](err error) Result[T] {
	var se *store.Error
	if errors.As(err, &se) {
		return Fail[T](Kind(se.Kind), err.Error())
	}
	return Fail[T](KindInternal, err.Error())
}
