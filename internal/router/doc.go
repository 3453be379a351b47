// Package router exposes the store's access layer under stable operation
// names ("user-login", "save-message", ...) and wraps every outcome in a
// Result whose JSON form is the {success, ...} envelope.
//
// Callers pass an explicit Session with each call instead of relying on
// process-wide "current user" state. Dispatch never returns a bare error
// and never lets a panic escape.
package router
